// Package server wires configuration, storage, services and transports
// together and runs them until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/listings/internal/logging"
	"github.com/dmitrijs2005/listings/internal/server/auth"
	"github.com/dmitrijs2005/listings/internal/server/config"
	"github.com/dmitrijs2005/listings/internal/server/httpapi"
	"github.com/dmitrijs2005/listings/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/listings/internal/server/services"
	"github.com/dmitrijs2005/listings/internal/server/storage"

	gs "github.com/dmitrijs2005/listings/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *httpapi.Server
	grpc   *gs.Server
}

// OpenDB opens the connection pool and applies pending migrations.
func OpenDB(ctx context.Context, c *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(c.DBMaxOpenConns)
	db.SetMaxIdleConns(c.DBMaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := repomanager.NewPostgresRepositoryManager().RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewLogger builds the process logger for the configured environment.
func NewLogger(c *config.Config) logging.Logger {
	level := slog.LevelDebug
	if c.IsProduction() {
		level = slog.LevelInfo
	}
	return logging.New(os.Stdout, c.Env, level).With("app", c.AppName)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := NewLogger(c)

	db, err := OpenDB(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store, err := storage.NewS3Store(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	tokens, err := auth.NewTokenManager(c.SecretKey, c.TokenAlgorithm)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("token manager init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	hasher := auth.NewPasswordHasher(c.BcryptCost)

	us := services.NewUserService(db, m, c, hasher, tokens, logger.With("module", "users"))
	ls := services.NewListingService(db, m, logger.With("module", "listings"))
	is := services.NewImageService(db, m, store, c, logger.With("module", "images"))

	api := httpapi.New(c, httpapi.Deps{
		Users:    us,
		Listings: ls,
		Images:   is,
		Gate:     auth.NewGate(tokens, us),
		DB:       db,
		Log:      logger.With("module", "http"),
	})

	return &App{
		config: c,
		logger: logger,
		db:     db,
		http:   api,
		grpc:   gs.NewServer(c.GRPCAddr, db, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.http.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := app.http.Listen(app.config.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error(ctx, "http server", "error", err)
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server", "error", err)
		cancelFunc()
	}
}

// Run blocks until a termination signal arrives or a server fails, then
// drains both servers and closes the database pool.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Env)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
