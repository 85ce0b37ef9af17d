package main

import (
	"context"
	"errors"
	"os"
	"time"

	"wisesplit/internal/amqp"
	"wisesplit/internal/cache"
	"wisesplit/internal/cli"
	"wisesplit/internal/core"
	"wisesplit/internal/log"
	"wisesplit/internal/services"
	"wisesplit/internal/sheets"
	gsheet "wisesplit/internal/sheets/google"
	"wisesplit/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, logger := cli.LoadConfig(log.ComponentWorker)
	logger.Info("Starting wisesplit-worker", log.FieldOperation, log.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}
	if cfg.DataBackend == "memory" {
		logger.Error("The worker needs a shared store: set DATA_BACKEND to sqlite or postgres")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)

	// The worker only consumes, so the store is opened without a publisher.
	storeCfg := *cfg
	storeCfg.AMQPURL = ""
	be := cli.InitBackend(ctx, logger, &storeCfg)

	var exporter sheets.SettlementExporter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSettlementSheet)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Exporting settlements to Google Sheets",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSettlementSheet)
	} else {
		exporter = sheets.NewLogExporter(nil)
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting to log")
	}

	settlementCache := cache.NewLRUCache[core.Settlement](cfg.SettlementCacheSize, cfg.SettlementCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(settlementCache)
	cacheManager.StartCleanup(cfg.SettlementCacheTTL)

	settlements := services.NewSettlementService(be.Store, settlementCache)
	settlementWorker := worker.NewSettlementWorker(settlements, be.Store, exporter)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	if len(cfg.ExportGroupIDs) > 0 {
		logger.Info("Exporting configured groups at startup", "groups", len(cfg.ExportGroupIDs))
		if err := settlementWorker.ExportGroups(ctx, cfg.ExportGroupIDs); err != nil {
			logger.Error("Startup export failed", log.FieldError, err)
		}
	}

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- amqpClient.ConsumeLedgerChanged(ctx, settlementWorker.HandleLedgerChanged)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-consumeErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
			exitCode = 1
		}
	}
	stop()

	err = cli.Shutdown(logger, shutdownTimeout,
		func(context.Context) error { return amqpClient.Close() },
		func(context.Context) error { cacheManager.Stop(); return nil },
		func(context.Context) error { return be.Cleanup() },
	)
	if err != nil {
		exitCode = 1
	}
	logger.Info("Worker stopped")
	os.Exit(exitCode)
}
