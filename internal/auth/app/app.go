package app

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

	"github.com/aussiebroadwan/currex/internal/auth/domain"
	httpapi "github.com/aussiebroadwan/currex/internal/auth/http"
	"github.com/aussiebroadwan/currex/internal/auth/metrics"
	"github.com/aussiebroadwan/currex/internal/auth/service"
	"github.com/aussiebroadwan/currex/internal/auth/store"
	"github.com/aussiebroadwan/currex/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/currex/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/currex/pkg/cryptox"
	"github.com/aussiebroadwan/currex/pkg/jwtx"
	"github.com/aussiebroadwan/currex/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// BuildVersion is overridden at build time via
// -ldflags "-X github.com/aussiebroadwan/currex/internal/auth/app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	keys    *signingKeys
	scopes  *domain.ScopeRegistry
	metrics *metrics.Metrics

	userService         *service.UserService
	tokenService        *service.TokenService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "currex-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		scopes: domain.DefaultScopeRegistry(),
	}

	keys, err := loadSigningKeys(cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.keys = keys

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Users exposes the user service for administrative commands.
func (app *Application) Users() *service.UserService { return app.userService }

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"algorithm", app.keys.alg,
		"database", app.cfg.DatabaseDriver,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	return app.Close()
}

// Close releases the database without touching the HTTP server. Commands
// that never call Run use it directly.
func (app *Application) Close() error {
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(app.cfg.PostgresDSN)
	default:
		db, err = sqlite.NewStore("file:" + app.cfg.DatabaseFile)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	pepper, err := cryptox.LoadPepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(reg)

	issuers, err := service.NewIssuerRegistry(service.IssuerSettings{
		Algorithm:  app.keys.alg,
		Key:        app.keys.sign,
		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.Audience,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
		NotBefore:  app.cfg.NotBefore,
	}, app.scopes)
	if err != nil {
		return fmt.Errorf("failed to build token issuers: %w", err)
	}

	validator, err := jwtx.NewValidator(app.keys.alg, app.keys.verify, time.Now)
	if err != nil {
		return fmt.Errorf("failed to build token validator: %w", err)
	}

	app.userService = &service.UserService{
		Store:   app.db,
		Hasher:  cryptox.NewHasher(pepper),
		Policy:  service.NewCredentialPolicy(app.cfg.MinUsernameLength, app.cfg.MinPasswordLength),
		Metrics: app.metrics,
	}

	app.tokenService = &service.TokenService{
		Users:         app.userService,
		Store:         app.db,
		Issuers:       issuers,
		Scopes:        app.scopes,
		Validator:     validator,
		Metrics:       app.metrics,
		SubjectPrefix: app.cfg.SubjectPrefix,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.metrics,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys.jwks,
		true,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.Scopes = app.scopes
	router.Metrics = app.metrics
	router.RateLimits = httpapi.RateLimits{
		Strict:   app.cfg.rateLimit(app.cfg.RateLimitStrict),
		Moderate: app.cfg.rateLimit(app.cfg.RateLimitModerate),
		Lenient:  app.cfg.rateLimit(app.cfg.RateLimitLenient),
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
