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

	"github.com/aussiebroadwan/accounts/internal/accounts/graph"
	httpapi "github.com/aussiebroadwan/accounts/internal/accounts/http"
	"github.com/aussiebroadwan/accounts/internal/accounts/policy"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	dynamostore "github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/dynamodb"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/memory"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/postgres"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the accounts service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db          store.Store
	cipher      *cryptox.FieldCipher
	signer      *jwtx.HS256Signer
	verifier    *jwtx.HS256Verifier
	userService *service.UserService

	server *http.Server
	router *httpapi.Router
}

// New validates cfg and creates an Application with all dependencies
// initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "accounts-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := app.initSecrets(); err != nil {
		return nil, err
	}

	if err := app.initDatabase(context.Background()); err != nil {
		return nil, err
	}

	if err := app.initHTTP(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Handler exposes the router, mostly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("accounts service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.Store,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
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
	app.logger.Info("shutting down accounts service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("accounts service stopped")
	return nil
}

// initSecrets picks the field key and token secret for the environment.
func (app *Application) initSecrets() error {
	key, ephemeral, err := app.cfg.FieldCipherKey()
	if err != nil {
		return fmt.Errorf("failed to select field key: %w", err)
	}
	if ephemeral {
		app.logger.Warn("ACCOUNTS_FIELD_KEY not set, using an ephemeral key; encrypted fields will be unreadable after restart")
	}
	if app.cipher, err = cryptox.NewFieldCipher(key); err != nil {
		return fmt.Errorf("failed to initialize field cipher: %w", err)
	}

	secret, ephemeral, err := app.cfg.SigningSecret()
	if err != nil {
		return fmt.Errorf("failed to select token secret: %w", err)
	}
	if ephemeral {
		app.logger.Warn("ACCOUNTS_TOKEN_SECRET not set, using an ephemeral secret; tokens will not survive a restart")
	}
	if app.signer, err = jwtx.NewHS256Signer(secret); err != nil {
		return fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.verifier, err = jwtx.NewHS256Verifier(secret, jwtx.VerifyOptions{
		Issuer: app.cfg.Issuer,
		Leeway: 30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token verifier: %w", err)
	}
	return nil
}

// initDatabase opens the configured store and applies migrations
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

	app.logger.Info("database migrations applied successfully", "store", app.cfg.Store)
	return nil
}

func openStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.Store {
	case StoreMemory:
		return memory.NewStore(), nil
	case StorePostgres:
		return postgres.NewStore(cfg.DatabaseURL)
	case StoreDynamoDB:
		return dynamostore.NewStore(ctx, dynamostore.Options{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoDBEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Table:           cfg.TableName(),
			CreateTable:     cfg.DynamoDBCreateTable,
		})
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DatabaseFile)
		return sqlite.NewStore(dsn)
	}
}

// initHTTP builds the service, schema and router, then the HTTP server
func (app *Application) initHTTP() error {
	app.userService = &service.UserService{
		Store:  app.db,
		Cipher: app.cipher,
		Credentials: &service.CredentialManager{
			Signer: app.signer,
			Issuer: app.cfg.Issuer,
			TTL:    app.cfg.TokenTTL,
		},
	}

	schema, err := graph.NewSchema(&graph.Resolver{
		Users:  app.userService,
		Policy: policy.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to build graphql schema: %w", err)
	}

	router := httpapi.NewRouter(
		app.verifier,
		BuildVersion,
		app.db,
		schema,
		app.logger,
	)
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
