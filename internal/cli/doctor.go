package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/skyfeed/internal/config"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check config and credentials for every feed",
	RunE:  doctorAction,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printCheck(false, "config directory %s", configDir)
		ok = false
	} else {
		printCheck(true, "config directory %s", configDir)
	}

	// Config file
	cfg, err := config.Load(configDir)
	if err != nil {
		printCheck(false, "config.yaml: %v", err)
		return fmt.Errorf("some checks failed")
	}
	printCheck(true, "config.yaml (%d feeds)", len(cfg.Feeds))

	// Credentials, one session per feed
	coords, err := buildCoordinators(cfg, newLogger(cfg.Log, io.Discard), "")
	if err != nil {
		printCheck(false, "feeds: %v", err)
		return fmt.Errorf("some checks failed")
	}
	for _, c := range coords {
		if err := c.Poll(cmd.Context()); err != nil {
			printCheck(false, "%s: %v", c.Name(), err)
			ok = false
			continue
		}
		s := c.Snapshot()
		printCheck(true, "%s (%s, %d posts)", c.Name(), s.Label, s.Count())
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}
