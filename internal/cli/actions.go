package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/ppiankov/skyfeed/internal/config"
	"github.com/ppiankov/skyfeed/internal/registry"
	"github.com/spf13/cobra"
)

var actionFeed string

var likeCmd = &cobra.Command{
	Use:   "like <uri> <cid>",
	Short: "Like a post and print the like record uri",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreate(cmd.Context(), args, (*registry.Registry).Like)
	},
}

var unlikeCmd = &cobra.Command{
	Use:   "unlike <record-uri>",
	Short: "Delete a like record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemove(cmd.Context(), args, (*registry.Registry).Unlike)
	},
}

var repostCmd = &cobra.Command{
	Use:   "repost <uri> <cid>",
	Short: "Repost a post and print the repost record uri",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreate(cmd.Context(), args, (*registry.Registry).Repost)
	},
}

var unrepostCmd = &cobra.Command{
	Use:   "unrepost <record-uri>",
	Short: "Delete a repost record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemove(cmd.Context(), args, (*registry.Registry).Unrepost)
	},
}

func init() {
	for _, c := range []*cobra.Command{likeCmd, unlikeCmd, repostCmd, unrepostCmd} {
		c.Flags().StringVar(&actionFeed, "feed", "", "entity id whose session performs the action (default: the only feed)")
		rootCmd.AddCommand(c)
	}
}

// actionRegistry loads the config and resolves which entity acts.
func actionRegistry() (*registry.Registry, string, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}

	entity := actionFeed
	if entity == "" {
		if len(cfg.Feeds) != 1 {
			return nil, "", fmt.Errorf("%d feeds configured, pick one with --feed", len(cfg.Feeds))
		}
		entity = cfg.Feeds[0].EntityID()
	}

	coords, err := buildCoordinators(cfg, newLogger(cfg.Log, io.Discard), entity)
	if err != nil {
		return nil, "", err
	}
	reg, err := buildRegistry(coords)
	if err != nil {
		return nil, "", err
	}
	return reg, entity, nil
}

func runCreate(ctx context.Context, args []string, fn func(*registry.Registry, context.Context, string, string, string) (string, error)) error {
	reg, entity, err := actionRegistry()
	if err != nil {
		return err
	}
	recordURI, err := fn(reg, ctx, entity, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Println(recordURI)
	return nil
}

func runRemove(ctx context.Context, args []string, fn func(*registry.Registry, context.Context, string, string) error) error {
	reg, entity, err := actionRegistry()
	if err != nil {
		return err
	}
	if err := fn(reg, ctx, entity, args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}
