package app

import (
	"context"

	"github.com/rs/zerolog"

	"streamsight/internal/config"
	"streamsight/internal/logging"
	"streamsight/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logging.Component(logger, "app")}
}

// openStore returns a nil store when no DSN is configured; the archive is
// strictly optional.
func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// RunOptions configure the run command.
type RunOptions struct {
	InputPath string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
