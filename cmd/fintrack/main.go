package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	m := metrics.New()
	policy := core.NewEditPolicy(cfg.EditWindow)

	reportOpts := []services.ReportOption{
		services.WithReportMetrics(m),
		services.WithReportPolicy(policy),
	}
	cacheManager := cache.NewManager()
	if cfg.DashboardCacheTTL > 0 {
		dashboards := cache.NewLRUCache[services.Dashboard](cfg.DashboardCacheSize, cfg.DashboardCacheTTL)
		cacheManager.Register(dashboards)
		reportOpts = append(reportOpts, services.WithDashboardCache(dashboards))
	}
	cacheManager.StartCleanup(time.Minute)
	reports := services.NewReportService(repo, reportOpts...)

	readiness := map[string]apphttp.Pinger{"sqlite": repo}
	entryOpts := []services.EntryOption{
		services.WithInvalidator(reports),
		services.WithEntryMetrics(m),
		services.WithEditPolicy(policy),
	}
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, entry events disabled", "error", err)
			amqpClient = nil
		} else {
			entryOpts = append(entryOpts, services.WithPublisher(amqpClient))
			readiness["amqp"] = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - entry events will not be published")
	}

	var verifier *auth.Verifier
	if cfg.AuthJWTSecret != "" {
		verifier = auth.NewVerifier(cfg.AuthJWTSecret)
		logger.Info("Bearer token authentication enabled")
	}

	svc := apphttp.Services{
		Entries:    services.NewEntryService(repo, entryOpts...),
		Reports:    reports,
		Accounts:   services.NewAccountService(repo, cfg.DefaultCurrency),
		Categories: services.NewCategoryService(repo),
	}
	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		Metrics:            m,
		Verifier:           verifier,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Readiness:          readiness,
	})

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			amqpClient.Close()
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"db", cfg.SQLiteDBPath,
		"edit_window", cfg.EditWindow.String(),
		"auth", verifier != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
