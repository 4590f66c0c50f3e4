// Package cli provides the command-line interface for skyfeed.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:          "skyfeed",
	Short:        "Poll Bluesky feeds and act on posts",
	Long:         "skyfeed keeps a fresh snapshot of Bluesky timelines, author feeds and custom feeds, and can like or repost through the same sessions.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("skyfeed %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", defaultConfigDir(), "config directory")
	rootCmd.AddCommand(versionCmd)
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".skyfeed"
	}
	return filepath.Join(home, ".skyfeed")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
