package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/gmv-dashboard/backend/internal/api/handlers"
	"github.com/gmv-dashboard/backend/internal/cache"
	redisCache "github.com/gmv-dashboard/backend/internal/cache/redis"
	"github.com/gmv-dashboard/backend/internal/dashboard"
	"github.com/gmv-dashboard/backend/internal/dataset"
	"github.com/gmv-dashboard/backend/internal/metrics"
	"github.com/gmv-dashboard/backend/internal/middleware/ratelimit"
	"github.com/gmv-dashboard/backend/internal/middleware/security"
	"github.com/gmv-dashboard/backend/internal/middleware/validation"
	"github.com/gmv-dashboard/backend/internal/source"
	"github.com/gmv-dashboard/backend/internal/watch"
	"github.com/gmv-dashboard/backend/pkg/config"
	appLogger "github.com/gmv-dashboard/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting GMV Dashboard API Server")

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cacheOpts := []cache.Option{cache.WithLogger(appLogger.Named("cache"))}
	if cfg.Cache.Redis.Enabled {
		remote, err := redisCache.NewClient(ctx, redisCache.Config{
			Host:             cfg.Cache.Redis.Host,
			Port:             cfg.Cache.Redis.Port,
			Password:         cfg.Cache.Redis.Password,
			DB:               cfg.Cache.Redis.DB,
			TTL:              cfg.Cache.TTL,
			FailureThreshold: cfg.Cache.Breaker.FailureThreshold,
			BreakerTimeout:   cfg.Cache.Breaker.Timeout,
		})
		if err != nil {
			appLogger.Warn("Redis unavailable, caching locally only", zap.Error(err))
		} else {
			defer remote.Close()
			cacheOpts = append(cacheOpts, cache.WithRemote(remote))
		}
	}
	tableCache := cache.New(cacheOpts...)

	loader := dataset.NewLoader(tableCache,
		dataset.WithLogger(appLogger.Named("dataset")),
		dataset.WithRevenueColumn(cfg.Data.RevenueColumn),
	)

	mode, err := source.ParseIdentityMode(cfg.Data.Identity)
	if err != nil {
		appLogger.Fatal("Invalid identity mode", zap.Error(err))
	}

	service := dashboard.NewService(loader, sources(cfg.Data, mode), dashboard.Options{
		Categories:        cfg.Data.Categories,
		Channels:          cfg.Data.Channels,
		SpendChannels:     cfg.Data.SpendChannels,
		WeatherFactors:    cfg.Data.WeatherFactors,
		StockIndexColumn:  cfg.Data.StockIndexColumn,
		AllocationPeriods: cfg.Data.AllocationPeriods,
	}, appLogger.Named("dashboard"))

	if err := service.Check(); err != nil {
		appLogger.Warn("Some data sources are unavailable", zap.Error(err))
	}

	hub := handlers.NewHub()

	if cfg.Watch.Enabled {
		watcher, err := watch.New(tableCache, watch.Config{
			Sources:  service.SourceNames(),
			Debounce: cfg.Watch.Debounce,
			Logger:   appLogger.Named("watch"),
			OnChange: func(changed []string, dropped int) {
				hub.Broadcast(handlers.RefreshEvent{Type: "changed", Sources: changed, Entries: dropped})
			},
		})
		if err != nil {
			appLogger.Warn("Source watching disabled", zap.Error(err))
		} else {
			defer watcher.Close()
			watcher.Start(ctx)
		}
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.Server.AllowedOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IsDevelopment:  cfg.Server.Development,
	}))

	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(ratelimit.Config{
			MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
			Logger:               appLogger.Named("ratelimit"),
		})
		defer limiter.Stop()
		app.Use(limiter.Middleware())
	}

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api/v1", validation.Middleware(validation.Config{
		Logger: appLogger.Named("validation"),
	}))
	handlers.Routes(api,
		handlers.NewDashboardHandler(service),
		handlers.NewCacheHandler(tableCache, hub),
		handlers.NewHealthHandler(service),
		handlers.NewWebSocketHandler(hub),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

// sources maps configured locations to sources. An empty location leaves the
// dataset unconfigured; pages that need it report a load error.
func sources(data config.DataConfig, mode source.IdentityMode) dashboard.Sources {
	file := func(path string) source.Source {
		if path == "" {
			return nil
		}
		return source.NewFile(path, mode)
	}

	return dashboard.Sources{
		Primary:           file(data.Primary),
		ChannelSpend:      file(data.ChannelSpend),
		RevenueSummary:    file(data.RevenueSummary),
		ProductRevenue:    file(data.ProductRevenue),
		OptymAllocation:   file(data.OptymAllocation),
		RobynMaxResponse:  file(data.RobynMaxResponse),
		RobynTarget:       file(data.RobynTarget),
		RobynBudget:       file(data.RobynBudget),
		FeatureImportance: file(data.FeatureImportance),
	}
}
