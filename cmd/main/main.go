package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-forecast/src/cache"
	"stock-forecast/src/config"
	datasource "stock-forecast/src/data_source"
	"stock-forecast/src/data_source/yahoo"
	"stock-forecast/src/forecast"
	"stock-forecast/src/grpc_control"
	"stock-forecast/src/interfaces"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"
	"stock-forecast/src/network"
	"stock-forecast/src/server"
	"stock-forecast/src/storage"
	"stock-forecast/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	writeConfig := flag.String("write-config", "", "write the effective config to this path and exit")
	flag.Parse()

	// Load config from YAML file, .env and FORECAST_* variables
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *writeConfig != "" {
		if err := cfg.Save(*writeConfig); err != nil {
			fmt.Printf("Error writing config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Forecast log
	store, err := storage.NewForecastStore(cfg.MConfig, appLogger.Named("Storage"))
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := store.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer store.Close()

	// 2. Historical sources
	var networkManager interfaces.INetworkManager = network.NewAsyncNetworkManager(cfg.MConfig, appLogger.Named("Network"))
	sources := datasource.NewMultiSourceManager([]interfaces.IHistoricalSource{
		yahoo.NewYahooFinanceSource(networkManager, appLogger.Named("YahooFinanceSource")),
	}, appLogger.Named("MultiSourceManager"))

	// 3. Optional response cache
	var historyCache interfaces.IHistoryCache
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisHistoryCache(ctx, cfg.Cache, appLogger.Named("Cache"))
		if err != nil {
			appLogger.Warning("Cache disabled: %v", err)
		} else {
			historyCache = redisCache
			defer redisCache.Close()
		}
	}

	// 4. HTTP + websocket server
	srv := server.NewFastAPIServer(
		cfg.MConfig,
		appLogger.Named("Server"),
		sources,
		historyCache,
		forecast.NewLinearTrend(cfg.Forecast.HorizonDays),
		store,
	)

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	// 5. gRPC health
	var control *grpc_control.ControlService
	if cfg.GrpcPort != 0 {
		control = grpc_control.NewControlService(sources, appLogger.Named("ControlService"))
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort))
		if err != nil {
			appLogger.Critical("Failed to listen on grpc port %d: %v", cfg.GrpcPort, err)
		}
		go func() {
			if err := control.Serve(lis); err != nil {
				appLogger.Error("gRPC server failed: %v", err)
			}
		}()
		control.SetServing(true)

		go func() {
			sel := models.MSelection{Symbol: cfg.DataSource.DefaultSymbol, Period: models.Period(cfg.DataSource.DefaultPeriod)}
			healthy := control.ProbeSources(ctx, sel, time.Duration(cfg.Network.RequestTimeout)*time.Second)
			appLogger.Info("Startup probe: %d/%d sources healthy", healthy, len(sources.GetAllSources()))
		}()
	}

	// 6. Periodic refresh while markets are open
	scheduler := utils.NewRefreshScheduler(ctx, utils.NewMarketScheduler(appLogger.Named("MarketScheduler")), srv, appLogger.Named("RefreshScheduler"))
	if err := scheduler.Register(cfg.DataSource.RefreshCron); err != nil {
		appLogger.Critical("Failed to schedule refresh: %v", err)
	}
	scheduler.Start()

	appLogger.Info("Initialization complete.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	scheduler.Stop()
	if control != nil {
		control.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown: %v", err)
	}
	cancel()
}
