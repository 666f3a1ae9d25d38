package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	httpapi "github.com/sigilauth/sigil/internal/auth/http"
	"github.com/sigilauth/sigil/internal/auth/service"
	"github.com/sigilauth/sigil/internal/auth/store"
	"github.com/sigilauth/sigil/internal/auth/store/drivers/redis"
	"github.com/sigilauth/sigil/internal/auth/store/drivers/sqlite"
	"github.com/sigilauth/sigil/pkg/cryptox"
	"github.com/sigilauth/sigil/pkg/jwtx"
	"github.com/sigilauth/sigil/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          store.Store
	redisClient *goredis.Client // nil unless RedisAddr is configured
	revocations store.Revocations
	keyManager  *jwtx.KeyManager

	// Services
	sessionService      *service.SessionService
	userService         *service.UserService
	bootstrapService    *service.BootstrapService
	keyRotationService  *service.KeyRotationService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "sigil",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	// Initialize database first (required for persistent keys)
	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	ctx := context.Background()

	if err := app.initRevocations(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	// Initialize JWT key manager (after database for persistent mode)
	keyManager, err := InitSigningKeys(ctx, app.cfg, app.db, app.logger)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keyManager = keyManager

	app.initServices()

	if err := app.seedAdmin(ctx); err != nil {
		app.closeStores()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run serves until a shutdown signal arrives or the listener fails.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("sigil starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown drains in-flight requests within the configured grace period,
// then stops background work and closes the stores.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down sigil...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	app.closeStores()

	app.logger.Info("sigil stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initRevocations picks the revocation backend. Redis keeps revoked
// token ids with a TTL matching the token expiry; SQLite relies on
// housekeeping to sweep expired entries.
func (app *Application) initRevocations(ctx context.Context) error {
	if app.cfg.RedisAddr == "" {
		app.revocations = app.db.Revocations()
		return nil
	}

	client, err := redis.Dial(ctx, app.cfg.RedisAddr, app.cfg.RedisPassword, app.cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	app.redisClient = client
	app.revocations = redis.NewRevocations(client, app.cfg.Leeway)
	app.logger.Info("revocation store backed by redis", "addr", app.cfg.RedisAddr)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		KeyManager:  app.keyManager,
		Users:       app.db.Users(),
		Revocations: app.revocations,

		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.Audience,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,

		StoreTimeout:          app.cfg.StoreTimeout,
		Leeway:                app.cfg.Leeway,
		CheckAccessRevocation: app.cfg.CheckAccessRevocation,
	}

	app.userService = &service.UserService{Users: app.db.Users()}
	app.bootstrapService = &service.BootstrapService{Users: app.db.Users()}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.Leeway,
	)

	// Key rotation works in both modes; only persistent mode writes
	// new keys to the database.
	if app.cfg.KeyStorageMode == "persistent" {
		app.keyRotationService = &service.KeyRotationService{
			Keys:        app.db.SigningKeys(),
			KeyManager:  app.keyManager,
			RSABits:     app.cfg.RSABits,
			GracePeriod: app.cfg.KeyGracePeriod,
		}
		app.logger.Info("key rotation service enabled (persistent mode)")
	} else {
		app.keyRotationService = &service.KeyRotationService{
			Keys:       nil,
			KeyManager: app.keyManager,
			RSABits:    app.cfg.RSABits,
		}
		app.logger.Info("key rotation service enabled (ephemeral mode)")
	}
}

// seedAdmin creates the first-run admin principal when credentials are
// configured and the user table is empty.
func (app *Application) seedAdmin(ctx context.Context) error {
	if app.cfg.AdminUsername == "" || app.cfg.AdminPassword == "" {
		return nil
	}

	id, err := app.bootstrapService.SeedAdmin(
		ctx,
		app.cfg.AdminUsername,
		app.cfg.AdminPassword,
		app.cfg.AdminPreferredName,
		app.cfg.AdminScopes,
	)
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if id != "" {
		app.logger.Info("seeded admin user", "username", app.cfg.AdminUsername, "user_id", id)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.SessionService = app.sessionService
	router.UserService = app.userService
	router.KeyRotationService = app.keyRotationService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

func (app *Application) closeStores() {
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
	}
}
