// Package app assembles the authentication engine: configuration, storage,
// services, HTTP surface, and process lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpapi "github.com/authlab/authlab/internal/auth/http"
	"github.com/authlab/authlab/internal/auth/service"
	"github.com/authlab/authlab/internal/auth/store"
	"github.com/authlab/authlab/internal/auth/store/drivers/memory"
	"github.com/authlab/authlab/internal/auth/store/drivers/sqlite"
	"github.com/authlab/authlab/pkg/cryptox"
	"github.com/authlab/authlab/pkg/jwtx"
	"github.com/authlab/authlab/pkg/slogx"
)

const BuildVersion = "v0.1.0"

// Application holds the wired engine and its lifecycle.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	signer *jwtx.Signer

	userService  *service.UserService
	sessions     *service.SessionService
	tokens       *service.TokenService
	mfaService   *service.MFAService
	oauthService *service.OAuthService
	audit        *service.AuditService
	gateway      *service.Gateway
	housekeeping *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New builds an Application from config. The JWT secret is generated per
// process when unset, which is fine for the reference in-memory deployment
// and wrong for anything shared; production must set AUTH_JWT_SECRET.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authlab",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = cryptox.MustGenerateToken(cryptox.TokenSize256)
		app.logger.Warn("AUTH_JWT_SECRET not set, generated an ephemeral signing secret")
	}
	signer, err := jwtx.NewSigner([]byte(secret), cfg.Issuer, cfg.Audience)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.signer = signer

	app.initServices()

	if err := app.seed(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to seed directory: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeping.Start()

	app.logger.Info("auth engine starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown drains in-flight requests, stops the sweeper, and closes the
// store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth engine")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeping.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("auth engine stopped")
	return nil
}

// initStore selects the backend: SQLite when a database file is configured,
// otherwise the in-memory reference store.
func (app *Application) initStore() error {
	if app.cfg.DatabaseFile == "" {
		app.db = memory.NewStore()
		app.logger.Info("using in-memory store; state resets on restart")
		return nil
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.db = db

	app.logger.Info("database ready", "file", app.cfg.DatabaseFile)
	return nil
}

func (app *Application) initServices() {
	app.userService = &service.UserService{
		Store:      app.db,
		BcryptCost: app.cfg.BcryptCost,
	}
	app.sessions = &service.SessionService{
		Store: app.db,
		TTL:   app.cfg.SessionTTL,
	}
	app.tokens = &service.TokenService{
		Signer:     app.signer,
		Users:      app.userService,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}
	app.mfaService = &service.MFAService{
		Store:  app.db,
		Issuer: app.cfg.Issuer,
		Skew:   app.cfg.MFASkew,
	}
	app.oauthService = &service.OAuthService{
		Store: app.db,
		Users: app.userService,
		Client: service.OAuthClient{
			ID:          app.cfg.OAuthClientID,
			Secret:      app.cfg.OAuthClientSecret,
			RedirectURI: app.cfg.OAuthRedirectURI,
		},
	}
	app.audit = &service.AuditService{Store: app.db, Logger: app.logger}

	// Session first: a browser carrying both a cookie and a stale bearer
	// header should keep working.
	app.gateway = &service.Gateway{
		Strategies: []service.AuthStrategy{
			&service.SessionStrategy{Sessions: app.sessions},
			&service.BearerStrategy{Tokens: app.tokens},
		},
		Audit:  app.audit,
		Logger: app.logger,
	}

	app.housekeeping = service.NewHousekeepingService(app.db, app.logger, app.cfg.HousekeepingInterval)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.db, app.logger)
	router.SecureCookies = app.cfg.Env != "dev"
	router.SessionTTL = app.cfg.SessionTTL
	router.Gateway = app.gateway
	router.UserService = app.userService
	router.Sessions = app.sessions
	router.Tokens = app.tokens
	router.MFAService = app.mfaService
	router.OAuthService = app.oauthService
	router.Audit = app.audit
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: router,
	}
}
