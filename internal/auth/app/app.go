package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/voltex/internal/auth/http"
	"github.com/aussiebroadwan/voltex/internal/auth/service"
	"github.com/aussiebroadwan/voltex/internal/auth/store"
	"github.com/aussiebroadwan/voltex/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/voltex/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/voltex/internal/auth/store/drivers/sqlstore"
	"github.com/aussiebroadwan/voltex/internal/obs"
	"github.com/aussiebroadwan/voltex/pkg/cryptox"
	"github.com/aussiebroadwan/voltex/pkg/httpx"
	"github.com/aussiebroadwan/voltex/pkg/jwtx"
	"github.com/aussiebroadwan/voltex/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// migratingStore is a store driver that owns its schema.
type migratingStore interface {
	store.Store
	ApplyMigrations() error
}

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	signer jwtx.Signer

	auditService        *service.AuditService
	authenticator       *service.Authenticator
	verifier            *service.Verifier
	accountService      *service.AccountService
	mfaService          *service.MFAService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "voltex-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.JWTSecret == DefaultJWTSecret {
		app.logger.Warn("JWT_SECRET is not set, using the insecure development secret")
	}
	cryptox.SetPepper(cfg.Pepper)

	trusted, err := httpx.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TRUSTED_PROXIES: %w", err)
	}

	signer, err := jwtx.NewSignerHS256([]byte(cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to create token signer: %w", err)
	}
	app.signer = signer

	if err := app.initDatabase(context.Background()); err != nil {
		return nil, err
	}

	obs.Init()
	obs.InitBuildInfo(BuildVersion, cfg.Env)

	app.initServices()
	app.initHTTP(trusted)

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion, "db_driver", app.cfg.DBDriver)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// Handler exposes the fully wired router, for running the service in-process.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Close releases the database of an application that was never Run.
func (app *Application) Close() error {
	return app.db.Close()
}

// initDatabase opens the configured driver and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	db, err := openStore(ctx, app.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DBDriver)
	return nil
}

func openStore(ctx context.Context, cfg Config) (migratingStore, error) {
	pool := sqlstore.Pool{
		MaxOpen:     cfg.DBPoolMax,
		MaxIdle:     cfg.DBPoolIdle,
		IdleTimeout: cfg.DBPoolIdleTime,
	}

	switch cfg.DBDriver {
	case "sqlite", "":
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DatabaseFile)
		st, err := sqlite.NewStore(dsn)
		if err != nil {
			return nil, err
		}
		st.SetPool(pool)
		return st, nil
	case "postgres":
		return postgres.NewStore(ctx, postgres.Config{
			Host:        cfg.DBHost,
			Port:        cfg.DBPort,
			Name:        cfg.DBName,
			User:        cfg.DBUser,
			Password:    cfg.DBPassword,
			SSLMode:     cfg.DBSSLMode,
			Pool:        pool,
		})
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.auditService = &service.AuditService{Store: app.db}
	lockout := service.Lockout{Threshold: app.cfg.LockoutThreshold, Duration: app.cfg.LockoutDuration}

	app.authenticator = &service.Authenticator{
		Store:      app.db,
		Signer:     app.signer,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTokenTTL,
		SessionTTL: app.cfg.SessionTTL,
		Lockout:    lockout,
		Audit:      app.auditService,
	}

	app.verifier = &service.Verifier{
		Store:  app.db,
		Tokens: jwtx.NewVerifierHS256([]byte(app.cfg.JWTSecret), jwtx.VerifyOptions{Issuer: app.cfg.Issuer}),
	}

	app.accountService = &service.AccountService{Store: app.db, Audit: app.auditService, Lockout: lockout}
	app.mfaService = &service.MFAService{
		Store:  app.db,
		Issuer: "Voltex",
		Audit:  app.auditService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP(trusted []netip.Prefix) {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)
	if app.cfg.RateLimits != (httpx.RateLimits{}) {
		router.Limits = app.cfg.RateLimits
	}
	router.TrustedProxies = trusted

	router.Authenticator = app.authenticator
	router.Verifier = app.verifier
	router.AccountService = app.accountService
	router.MFAService = app.mfaService
	router.AuditService = app.auditService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
