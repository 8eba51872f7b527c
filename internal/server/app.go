// Package server initializes and runs the FieldVault server: it wires the
// configured metadata repositories and byte store into the storage
// engine, starts the retention sweeper, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/avolkovs/fieldvault/internal/bytestore"
	"github.com/avolkovs/fieldvault/internal/keymanager"
	"github.com/avolkovs/fieldvault/internal/logging"
	"github.com/avolkovs/fieldvault/internal/retention"
	"github.com/avolkovs/fieldvault/internal/server/config"
	"github.com/avolkovs/fieldvault/internal/server/models"
	"github.com/avolkovs/fieldvault/internal/server/repositories/repomanager"
	"github.com/avolkovs/fieldvault/internal/server/storage"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	engine  *storage.Engine
	sweeper *retention.Sweeper
	db      *sql.DB
}

func NewApp(ctx context.Context, c *config.Config, policies []models.RetentionPolicy) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	app := &App{config: c, logger: logger}

	repos, err := app.initRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := app.initByteStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("byte store init error: %w", err)
	}

	keys := keymanager.NewRepositoryProvider(repos.Keys)

	app.engine = storage.NewEngine(repos, blobs, keys, logger, storage.Options{
		MaxObjectSize:        c.MaxObjectSize,
		CompressionThreshold: c.CompressionThreshold,
		DefaultMaxVersions:   c.DefaultMaxVersions,
		GrantSecret:          c.GrantSecret,
		GrantTTL:             c.GrantTTL,
	})
	app.sweeper = retention.NewSweeper(app.engine, policies, c.SweepInterval, logger)

	return app, nil
}

// Engine exposes the storage engine for embedding callers.
func (app *App) Engine() *storage.Engine {
	return app.engine
}

func (app *App) initRepositories(ctx context.Context) (repomanager.Repositories, error) {
	if app.config.StorageBackend == config.BackendMemory {
		return repomanager.NewMemory(), nil
	}

	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return repomanager.Repositories{}, err
	}
	if err := db.PingContext(ctx); err != nil {
		return repomanager.Repositories{}, err
	}
	if err := repomanager.RunMigrations(ctx, db); err != nil {
		return repomanager.Repositories{}, err
	}

	app.db = db
	return repomanager.NewPostgres(db), nil
}

func (app *App) initByteStore(ctx context.Context) (bytestore.ByteStore, error) {
	var (
		store bytestore.ByteStore
		err   error
	)
	switch app.config.StorageBackend {
	case config.BackendLocal:
		store, err = bytestore.NewLocalStore(app.config.StorageRoot)
	case config.BackendS3:
		store, err = bytestore.NewS3Store(ctx, bytestore.S3Config{
			User:         app.config.S3RootUser,
			Password:     app.config.S3RootPassword,
			Bucket:       app.config.S3Bucket,
			Region:       app.config.S3Region,
			BaseEndpoint: app.config.S3BaseEndpoint,
		})
	case config.BackendMemory:
		return bytestore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", app.config.StorageBackend)
	}
	if err != nil {
		return nil, err
	}

	return bytestore.NewRetryingStore(store, 3, 10*time.Second), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, err.Error())
		}
	}
	app.logger.Info(ctx, "App stopped")
}
