package main

import (
	"context"
	"errors"
	"os"

	"backoffice/internal/amqp"
	"backoffice/internal/cli"
	"backoffice/internal/log"
	"backoffice/internal/services"
	"backoffice/internal/worker"
)

func main() {
	cfg, logger := cli.Setup(log.ComponentWorker)
	logger.Info("Starting report-worker", log.FieldOperation, log.OpStartup)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	publisher := cli.InitPublisher(ctx, cfg, logger)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	svc := services.NewReportService(repo, repo, nil, cli.ServiceOptions(cfg), logger)
	exportWorker := worker.NewExportWorker(svc, publisher, cfg.ExportDir, logger)

	logger.Info("Consuming export requests", "queue", cfg.AMQPQueue, "export_dir", cfg.ExportDir)
	err = amqpClient.ConsumeExportRequests(ctx, exportWorker.HandleExportRequest)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
}
