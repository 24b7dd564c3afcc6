package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/runnerr0/visitlog/internal/config"
	"github.com/runnerr0/visitlog/internal/history"
	"github.com/runnerr0/visitlog/internal/logging"
	"github.com/runnerr0/visitlog/internal/storage"
)

// app is the state shared by the subcommands: configuration, a logger in
// ctx, and the recorder and query engine over one store.
type app struct {
	ctx      context.Context
	cfg      *config.Config
	dbPath   string
	store    storage.Store
	recorder *history.Recorder
	engine   *history.Engine
	closers  []io.Closer
}

// loadConfig reads the config named by --config, or the default location,
// and applies --db-path and --verbose.
func (g *GlobalFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.Config != "" {
		cfg, err = config.Load(g.Config)
	} else {
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// resolveDBPath returns --db-path when set, otherwise the configured path.
func (g *GlobalFlags) resolveDBPath(cfg *config.Config) (string, error) {
	if g.DBPath != "" {
		return config.ExpandPath(g.DBPath)
	}
	return cfg.DBPath()
}

// openApp loads configuration and opens the SQLite store it names.
func (g *GlobalFlags) openApp() (*app, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}

	dbPath, err := g.resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	logger, logFile, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	store, db, err := storage.Open(dbPath, cfg.Storage.SQLiteJournalMode)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := newApp(logging.WithContext(context.Background(), logger), cfg, store, dbPath)
	a.closers = append(a.closers, db)
	if logFile != nil {
		a.closers = append(a.closers, logFile)
	}
	return a, nil
}

// newApp wires the recorder and query engine over store.
func newApp(ctx context.Context, cfg *config.Config, store storage.Store, dbPath string) *app {
	return &app{
		ctx:    ctx,
		cfg:    cfg,
		dbPath: dbPath,
		store:  store,
		recorder: history.NewRecorder(store, history.RecorderOptions{
			NamespaceKey:        cfg.History.NamespaceKey,
			MaxVisitsPerChannel: cfg.History.MaxVisitsPerChannel,
			DebounceWindow:      time.Duration(cfg.History.DebounceWindowMs) * time.Millisecond,
		}),
		engine: history.NewEngine(store, history.EngineOptions{
			NamespaceKey:  cfg.History.NamespaceKey,
			RecentDisplay: cfg.Query.RecentDisplay,
		}),
	}
}

// Close closes the store, then the database and log file.
func (a *app) Close() error {
	err := a.store.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if cerr := a.closers[i].Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// sizeBytes reports the on-disk size of the database, falling back to the
// page count for in-memory databases.
func (a *app) sizeBytes() int64 {
	if info, err := os.Stat(a.dbPath); err == nil {
		return info.Size()
	}
	if s, ok := a.store.(*storage.SQLiteStore); ok {
		return s.SizeBytes(a.ctx)
	}
	return 0
}

// schemaVersion reports the applied schema version, or 0 when the store is
// not SQLite.
func (a *app) schemaVersion() int {
	if s, ok := a.store.(*storage.SQLiteStore); ok {
		if v, err := s.SchemaVersion(a.ctx); err == nil {
			return v
		}
	}
	return 0
}

// newLogger builds the CLI logger from the logging section. Console output
// goes to stderr so stdout stays machine-readable.
func newLogger(cfg *config.Config) (zerolog.Logger, *os.File, error) {
	opts := logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if cfg.Logging.File == "" {
		return logging.New(opts), nil, nil
	}
	path, err := config.ExpandPath(cfg.Logging.File)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("resolve log file: %w", err)
	}
	return logging.OpenFile(path, opts)
}
