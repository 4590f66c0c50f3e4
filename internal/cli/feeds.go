package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ppiankov/skyfeed/internal/config"
	"github.com/ppiankov/skyfeed/internal/poller"
	"github.com/ppiankov/skyfeed/internal/registry"
	"github.com/ppiankov/skyfeed/internal/source"
)

// newLogger builds the slog logger described by the log section.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// buildCoordinators wires one session, client, feed and coordinator per
// configured feed. When only is set, just that entity is built.
func buildCoordinators(cfg *config.Config, logger *slog.Logger, only string) ([]*poller.Coordinator, error) {
	var coords []*poller.Coordinator
	for _, fc := range cfg.Feeds {
		id := fc.EntityID()
		if only != "" && id != only {
			continue
		}

		opts := source.Options{
			PDSHost:    cfg.Bluesky.PDSHost,
			PublicHost: cfg.Bluesky.PublicHost,
			HTTPClient: &http.Client{Timeout: cfg.Bluesky.Timeout.Duration},
			Logger:     logger.With("feed", id),
		}
		session, err := source.NewSession(source.Credentials{Handle: fc.Handle, Password: fc.AppPassword}, opts)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", id, err)
		}
		client, err := source.NewClient(session, opts)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", id, err)
		}
		feed, err := source.NewFeed(id, client, fc.Request())
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", id, err)
		}
		c, err := poller.New(feed, poller.Options{
			Interval: fc.UpdateInterval.Duration,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", id, err)
		}
		coords = append(coords, c)
	}

	if only != "" && len(coords) == 0 {
		return nil, &registry.LookupError{EntityID: only}
	}
	return coords, nil
}

// buildRegistry registers every coordinator under its entity id.
func buildRegistry(coords []*poller.Coordinator) (*registry.Registry, error) {
	reg := registry.New()
	for _, c := range coords {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
