package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"wisesplit/internal/cache"
	"wisesplit/internal/cli"
	"wisesplit/internal/core"
	apphttp "wisesplit/internal/http"
	"wisesplit/internal/log"
	"wisesplit/internal/middleware/ratelimit"
	"wisesplit/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger := cli.LoadConfig(log.ComponentApp)

	ctx, stop := cli.SignalContext(logger)

	be := cli.InitBackend(ctx, logger, cfg)

	settlementCache := cache.NewLRUCache[core.Settlement](cfg.SettlementCacheSize, cfg.SettlementCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(settlementCache)
	cacheManager.StartCleanup(cfg.SettlementCacheTTL)

	expenses := services.NewExpenseService(be.Store, be.Publisher)
	settlements := services.NewSettlementService(be.Store, settlementCache)

	srv := apphttp.NewServer(":"+cfg.Port, expenses, settlements, be.Ping, ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitPerMinute,
	})
	srv.MaxHeaderBytes = 1 << 16

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting wisesplit server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			exitCode = 1
		}
	}

	stop()

	err := cli.Shutdown(logger, shutdownTimeout,
		srv.Shutdown,
		func(context.Context) error { cacheManager.Stop(); return nil },
		func(context.Context) error { return be.Cleanup() },
	)
	if err != nil {
		exitCode = 1
	}
	logger.Info("Server stopped")
	os.Exit(exitCode)
}
