package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/runnerr0/visitlog/internal/config"
	"github.com/runnerr0/visitlog/internal/identify"
	"github.com/runnerr0/visitlog/internal/logging"
	"github.com/runnerr0/visitlog/internal/server"
	"github.com/runnerr0/visitlog/internal/signals"
)

// Execute implements the go-flags Commander interface for IngestCommand.
func (c *IngestCommand) Execute(args []string) error {
	a, err := c.globals.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, coord := c.buildDaemon(ctx, a)
	defer coord.Close()

	logging.FromContext(ctx).Info().
		Str("version", c.version).
		Str("db", a.dbPath).
		Msg("visitlog daemon starting")
	return srv.Run(ctx)
}

// applyOverrides copies command-line overrides into cfg.
func (c *IngestCommand) applyOverrides(cfg *config.Config) {
	if c.Host != "" {
		cfg.Daemon.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Daemon.Port = c.Port
	}
	if c.SpoolDir != "" {
		cfg.Daemon.SpoolDir = c.SpoolDir
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}
}

// buildDaemon wires the signal coordinator and HTTP server over a's store.
// The caller must Close the coordinator after the server stops.
func (c *IngestCommand) buildDaemon(ctx context.Context, a *app) (*server.Server, *signals.Coordinator) {
	c.applyOverrides(a.cfg)
	if c.LogLevel != "" {
		logger := logging.FromContext(ctx).Level(logging.ParseLevel(c.LogLevel))
		ctx = logging.WithContext(ctx, logger)
	}

	coord := signals.NewCoordinator(ctx, signals.Options{
		Identifier: identify.NewFromConfig(a.cfg.Identify),
		Routes:     identify.NewPathStrategy(a.cfg.Identify.ExcludedRoutes),
		Recorder:   a.recorder,
		Delays:     signals.DelaysFromConfig(a.cfg.Signals),
	})

	srv := server.New(server.Deps{
		Signals:  coord,
		History:  a.engine,
		Daemon:   a.cfg.Daemon,
		PageSize: a.cfg.Query.PageSize,
		Version:  c.version,
	})
	return srv, coord
}
