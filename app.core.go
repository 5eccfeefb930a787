package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// limitersPruneInterval is how often idle clients rate limiters are dropped.
const limitersPruneInterval = 5 * time.Minute

var _ AppProvider = (*App)(nil)

type AppProvider interface {
	Run(ctx context.Context) error
}

// App owns the catalog services, the http server and the background
// workers. Cleanups run in reverse order once Run returns.
type App struct {
	logger    *zap.Logger
	config    *Config
	clock     TickerClocker
	server    *http.Server
	api       *APIHandler
	cleanups  []func() error
	consumers []func(context.Context) error
}

// NewApp loads the configs then builds the storage backend, the
// optional bolt mirror, the services and the http server.
func NewApp(configFile, envFile string) (*App, error) {
	config, err := LoadAndInitConfigs(configFile, envFile, GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %w", err)
	}
	return newAppFromConfig(config)
}

func newAppFromConfig(config *Config) (*App, error) {
	if err := os.MkdirAll(config.LogFolder, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create logging folder: %w", err)
	}
	clock := NewTickClock(NewClock(config.IsProduction))
	logWriter := NewRSyncWriter(config, clock)
	logger, flusher := SetupLogging(config, logWriter, clock)
	app := &App{
		logger:   logger,
		config:   config,
		clock:    clock,
		cleanups: []func() error{logWriter.Close, flusher},
	}

	storages, err := NewStorages(config, logger)
	if err != nil {
		app.Clean()
		return nil, fmt.Errorf("failed to setup storages: %w", err)
	}
	app.cleanups = append(app.cleanups, storages.Close)

	queue, err := app.setupMirror(storages)
	if err != nil {
		app.Clean()
		return nil, err
	}

	books := NewBookService(logger, config, clock, storages.Books, queue)
	users := NewUserService(logger, config, clock, storages.Users)
	store := NewStoreService(logger, config, clock, storages.Books, storages.Users)
	if config.Catalog.SeedOnStart {
		if err := store.Init(context.Background()); err != nil {
			app.Clean()
			return nil, fmt.Errorf("failed to seed the store: %w", err)
		}
	}

	version := config.GitTag
	if version == "" {
		version = config.GitCommit
	}
	app.api = NewAPIHandler(logger, config,
		&Statistics{
			version:   version,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
			backend:   config.Storage.Backend,
		},
		clock, NewIDsHandler(), books, users, store,
	)
	app.server = app.newServer()
	return app, nil
}

// setupMirror opens the bolt mirror and registers its consumer when
// enabled. The returned queue is nil otherwise and catalog writes are
// then not published.
func (app *App) setupMirror(storages *Storages) (Queuer, error) {
	if !app.config.Mirror.Enable {
		return nil, nil
	}
	mirrorDB, err := GetBoltDBClient(app.config.BoltDB.MirrorFilePath, &app.config.BoltDB)
	if err != nil {
		return nil, fmt.Errorf("failed to setup boltdb mirror: %w", err)
	}
	app.cleanups = append(app.cleanups, mirrorDB.Close)

	queue := NewRedisQueue(storages.Redis, DefaultPopTimeout)
	mirror := NewMirrorConsumer(app.logger, queue, NewBoltBookStorage(app.logger, &app.config.BoltDB, mirrorDB))
	app.consumers = append(app.consumers, func(ctx context.Context) error {
		return mirror.Consume(ctx, CreateQueue, UpdateQueue, DeleteQueue)
	})
	return queue, nil
}

// newServer wires the routes, their middlewares stacks and the request timeout.
func (app *App) newServer() *http.Server {
	public, ops := app.api.MiddlewaresStacks()
	router := app.api.SetupRoutes(httprouter.New(), &MiddlewareMap{public: public.Chain, ops: ops.Chain})
	return &http.Server{
		Addr: fmt.Sprintf("%s:%s", app.config.Server.Host, app.config.Server.Port),
		Handler: http.TimeoutHandler(router, app.config.Server.RequestTimeout,
			"Timeout. Processing taking too long. Please reach out to support."),
		ReadTimeout:    app.config.Server.ReadTimeout,
		WriteTimeout:   app.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
		ConnContext:    SaveConnInContext,
	}
}

// Run serves the api until ctx is done or a worker fails, then shuts
// the server down gracefully and releases every resource.
func (app *App) Run(ctx context.Context) error {
	defer app.Clean()
	g, gCtx := errgroup.WithContext(ctx)

	for _, consume := range app.consumers {
		consume := consume
		g.Go(func() error { return consume(gCtx) })
	}
	g.Go(func() error {
		return app.api.PruneRateLimiters(gCtx, app.clock, limitersPruneInterval)
	})
	g.Go(app.serve)
	g.Go(func() error { return app.stop(ctx, gCtx) })

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions in reverse order.
func (app *App) Clean() {
	for i := len(app.cleanups) - 1; i >= 0; i-- {
		if err := app.cleanups[i](); err != nil {
			fmt.Fprintln(os.Stderr, "error during app cleanup:", err)
		}
	}
	app.cleanups = nil
}

func (app *App) serve() error {
	app.logger.Info("api server starting",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.String("app.backend", app.config.Storage.Backend),
	)
	if err := app.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// stop waits for the group to end and shuts the server down, closing
// it abruptly when the graceful shutdown does not complete in time.
// It always returns nil so the group reports the failing worker.
func (app *App) stop(ctx, gCtx context.Context) error {
	<-gCtx.Done()
	reason := "errored at running"
	if ctx.Err() != nil {
		reason = "requested to stop"
	}
	app.logger.Info("api server stopping", zap.String("reason", reason))

	sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()
	switch err := app.server.Shutdown(sCtx); {
	case err == nil:
		app.logger.Info("api server graceful shutdown succeeded")
	case errors.Is(err, context.DeadlineExceeded):
		app.logger.Warn("api server graceful shutdown timed out", zap.NamedError("close", app.server.Close()))
	default:
		app.logger.Error("api server graceful shutdown failed", zap.Error(err), zap.NamedError("close", app.server.Close()))
	}
	return nil
}
