// Package cli provides the bootstrap shared by cmd/backoffice and
// cmd/report-worker.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"backoffice/internal/config"
	"backoffice/internal/log"
	"backoffice/internal/services"
	"backoffice/internal/sheets"
	gsheet "backoffice/internal/sheets/google"
	"backoffice/internal/storage"
)

// Setup loads the .env file (when present) and the configuration, and
// builds the process logger. It exits the process when the configuration
// is invalid.
func Setup(component string) (*config.Config, *log.Logger) {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := NewLogger(cfg, component, os.Stdout)
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// NewLogger builds a logger honoring LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg *config.Config, component string, out io.Writer) *log.Logger {
	return log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    log.Format(strings.ToLower(cfg.LogFormat)),
		Component: component,
		Output:    out,
	})
}

// InitSQLite opens the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// ServiceOptions maps the configuration onto report service options.
func ServiceOptions(cfg *config.Config) services.Options {
	return services.Options{
		CacheSize:           cfg.ReportCacheSize,
		CacheTTL:            cfg.ReportCacheTTL,
		OverviewConcurrency: cfg.OverviewConcurrency,
	}
}

// InitPublisher returns the Google Sheets publisher, or nil when no
// spreadsheet is configured. It exits the process when the client cannot
// be created.
func InitPublisher(ctx context.Context, cfg *config.Config, logger *log.Logger) sheets.ReportPublisher {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil
	}
	client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleReportSheet, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets publishing enabled", "sheet", cfg.GoogleReportSheet)
	return client
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
func GracefulShutdown(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, stop
}
