package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"backoffice/internal/amqp"
	"backoffice/internal/cache"
	"backoffice/internal/cli"
	apphttp "backoffice/internal/http"
	"backoffice/internal/log"
	"backoffice/internal/services"
)

func main() {
	cfg, logger := cli.Setup(log.ComponentApp)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var exports services.ExportPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		exports = client
		logger.Info("Asynchronous exports enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Asynchronous exports disabled - no AMQP_URL provided")
	}

	svc := services.NewReportService(repo, repo, exports, cli.ServiceOptions(cfg), logger)
	srv := apphttp.NewServer(":"+cfg.Port, svc, logger)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	go cache.RunCleanup(ctx, cfg.ReportCacheTTL, func(n int) {
		logger.Debug("Expired aggregates dropped", "count", n)
	}, svc)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting backoffice server", log.FieldOperation, log.OpStartup, "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	m := srv.Metrics()
	logger.Info("Server stopped gracefully", "requests", m.TotalRequests, "server_errors", m.ServerErrors)
}
