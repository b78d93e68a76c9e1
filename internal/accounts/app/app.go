package app

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/milongahq/accounts/internal/accounts/mail"
	"github.com/milongahq/accounts/internal/accounts/service"
	"github.com/milongahq/accounts/internal/accounts/store"
	"github.com/milongahq/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/milongahq/accounts/pkg/cryptox"
	"github.com/milongahq/accounts/pkg/slogx"
	"github.com/milongahq/accounts/pkg/tokenx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the accounts service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	accountService *service.AccountService
	reaperService  *service.ReaperService
}

// New creates an Application with all dependencies initialized.
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

	// Set pepper path for password hashing
	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.reaperService.Start()

	app.logger.Info("accounts service started",
		"version", BuildVersion,
		"policy", app.cfg.PolicyName,
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	app.logger.Info("shutdown signal received", "signal", sig)

	return app.Shutdown()
}

// Shutdown stops the reaper and closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down accounts service...")

	app.reaperService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("accounts service stopped")
	return nil
}

// Accounts exposes the lifecycle service to the transport layer.
func (app *Application) Accounts() *service.AccountService {
	return app.accountService
}

// initDatabase opens the store and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
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

// initServices builds the token, lifecycle, and reaper services.
func (app *Application) initServices() error {
	secret, err := loadOrGenerateSecret(app.cfg.SecretFile)
	if err != nil {
		return fmt.Errorf("failed to load signing secret: %w", err)
	}

	tokens, err := tokenx.New(secret)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	app.accountService = &service.AccountService{
		Store:       app.db,
		Tokens:      tokens,
		Mailer:      &mail.LogMailer{Logger: slogx.Component(app.logger, "mail")},
		Policy:      app.cfg.Policy(),
		TokenMaxAge: app.cfg.TokenMaxAge,
	}

	app.reaperService = service.NewReaperService(
		app.db,
		slogx.Component(app.logger, "reaper"),
		app.cfg.ReaperInterval,
		app.cfg.ReaperGracePeriod,
	)
	app.reaperService.TokenMaxAge = app.cfg.TokenMaxAge

	return nil
}
