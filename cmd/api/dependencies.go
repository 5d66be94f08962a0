package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	importhandler "github.com/FACorreiaa/statement-importer/internal/domain/import/handler"
	importrepo "github.com/FACorreiaa/statement-importer/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/statement-importer/internal/domain/import/service"
	"github.com/FACorreiaa/statement-importer/pkg/config"
	"github.com/FACorreiaa/statement-importer/pkg/db"
	"github.com/FACorreiaa/statement-importer/pkg/metrics"
	"github.com/FACorreiaa/statement-importer/pkg/money"
	"github.com/FACorreiaa/statement-importer/pkg/pdftext"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	DB      *db.DB
	Logger  *slog.Logger
	Metrics *metrics.ImportMetrics

	// Repositories
	TransactionStore importrepo.TransactionStore

	// Services
	ImportService *importservice.ImportService

	// Handlers
	ImportHandler *importhandler.ImportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        int32(d.Config.Database.MaxConns),
		MinConns:        int32(d.Config.Database.MinConns),
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(); err != nil {
		d.DB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	d.TransactionStore = importrepo.NewPostgresTransactionStore(d.DB.Pool)
	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	// Unknown currency codes fail start-up.
	if _, err := money.NewFromDecimal(decimal.Zero, d.Config.Import.DefaultCurrency); err != nil {
		return err
	}

	if d.Config.Observability.MetricsEnabled {
		d.Metrics = metrics.New()
	}

	d.ImportService = importservice.NewImportService(d.TransactionStore, pdftext.NewExtractor(), d.Logger).
		WithMetrics(d.Metrics).
		WithRecordDefaults(d.Config.Import.DefaultCurrency, d.Config.Import.Note)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Config.Import.MaxUploadBytes, d.Logger)
	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
