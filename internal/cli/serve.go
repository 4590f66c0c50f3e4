package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ppiankov/skyfeed/internal/api"
	"github.com/ppiankov/skyfeed/internal/config"
	"github.com/ppiankov/skyfeed/internal/poller"
	"github.com/ppiankov/skyfeed/internal/registry"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll all feeds on their schedules and serve the HTTP API",
	RunE:  serveAction,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "override server.listen")
	rootCmd.AddCommand(serveCmd)
}

func serveAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}

	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coords, err := buildCoordinators(cfg, logger, "")
	if err != nil {
		return err
	}
	reg, err := buildRegistry(coords)
	if err != nil {
		return err
	}

	startPolling(ctx, reg, logger)
	defer reg.StopAll()

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           api.NewRouter(api.NewHandler(reg, logger)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return runServer(ctx, srv, logger)
}

// startPolling runs one immediate poll per feed, then hands each coordinator
// to its schedule. A failed first poll is logged and polling continues.
func startPolling(ctx context.Context, reg *registry.Registry, logger *slog.Logger) {
	for _, c := range reg.All() {
		if err := c.Poll(ctx); err != nil && !errors.Is(err, poller.ErrPollInProgress) {
			logger.Warn("initial poll failed", "feed", c.Name(), "error", err)
		}
		if err := c.Start(ctx); err != nil {
			logger.Error("start poller", "feed", c.Name(), "error", err)
			continue
		}
		logger.Info("polling", "feed", c.Name(), "interval", c.Interval())
	}
}

func runServer(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
