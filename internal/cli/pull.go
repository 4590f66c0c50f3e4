package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/skyfeed/internal/config"
	"github.com/ppiankov/skyfeed/internal/poller"
	"github.com/ppiankov/skyfeed/internal/render"
	"github.com/spf13/cobra"
)

var (
	pullFeed   string
	pullFormat string
	noColor    bool
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Poll every configured feed once and print the posts",
	RunE:  pullAction,
}

func init() {
	pullCmd.Flags().StringVar(&pullFeed, "feed", "", "only pull this entity id")
	pullCmd.Flags().StringVar(&pullFormat, "format", "terminal", "output format: terminal, json, markdown")
	pullCmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colors")
	rootCmd.AddCommand(pullCmd)
}

func pullAction(cmd *cobra.Command, _ []string) error {
	formatter, err := render.New(pullFormat, !noColor)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	coords, err := buildCoordinators(cfg, newLogger(cfg.Log, os.Stderr), pullFeed)
	if err != nil {
		return err
	}

	// A failed feed still renders, carrying its error.
	input := render.Input{Feeds: make([]poller.Snapshot, 0, len(coords))}
	failed := 0
	for _, c := range coords {
		if err := c.Poll(cmd.Context()); err != nil {
			failed++
		}
		input.Feeds = append(input.Feeds, c.Snapshot())
	}

	if err := formatter.Format(os.Stdout, input); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if failed == len(coords) {
		return fmt.Errorf("all %d feeds failed", failed)
	}
	return nil
}
