package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"streak-keeper/internal/config"
	"streak-keeper/internal/logger"
	"streak-keeper/internal/repository"
	"streak-keeper/internal/service"
)

// app is the wired tracker every command works against.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	tracker *service.Tracker
	close   func() error
}

// openApp loads configuration, opens the configured store and loads the tracker.
func openApp(ctx context.Context, opts *RootOptions, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if opts.Driver != "" {
		cfg.StorageDriver = opts.Driver
	}
	if opts.Database != "" {
		cfg.DatabaseURL = opts.Database
	}
	if opts.Snapshot != "" {
		cfg.SnapshotPath = opts.Snapshot
	}
	if opts.Verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log := logger.New(logOut, cfg.LogLevel)

	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	tracker := service.NewTracker(store,
		service.WithLogger(logger.ForComponent(log, "tracker")),
		service.WithNotifier(service.LogNotifier{Log: logger.ForComponent(log, "notify")}),
	)
	if err := tracker.Load(ctx); err != nil {
		_ = closeStore()
		return nil, err
	}

	return &app{cfg: cfg, log: log, tracker: tracker, close: closeStore}, nil
}

func openStore(cfg config.Config, log *slog.Logger) (service.Store, func() error, error) {
	switch cfg.StorageDriver {
	case config.DriverJSON:
		store := repository.NewFileStore(cfg.SnapshotPath, logger.ForComponent(log, "store"))
		return store, func() error { return nil }, nil
	default:
		db, err := repository.NewDB(cfg.DatabaseURL, logger.ForComponent(log, "db"))
		if err != nil {
			return nil, nil, fmt.Errorf("db: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("db: %w", err)
		}
		return repository.NewCategoryRepository(db), sqlDB.Close, nil
	}
}

// withApp opens the app for the duration of fn. Streaks whose grace window
// ran out while nothing was running are reset before fn sees them.
func withApp(ctx context.Context, opts *RootOptions, logOut io.Writer, fn func(*app) error) error {
	return withLoadedApp(ctx, opts, logOut, func(a *app) error {
		if _, err := a.tracker.CheckResets(ctx); err != nil {
			return fmt.Errorf("catch up resets: %w", err)
		}
		return fn(a)
	})
}

// withLoadedApp opens the app without the reset catch-up, for commands that
// run the check themselves.
func withLoadedApp(ctx context.Context, opts *RootOptions, logOut io.Writer, fn func(*app) error) error {
	a, err := openApp(ctx, opts, logOut)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			a.log.Warn("close store", "error", err)
		}
	}()
	return fn(a)
}
