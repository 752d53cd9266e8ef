package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"brokerage_tracker/internal/app/port"
	"brokerage_tracker/internal/app/service"
	"brokerage_tracker/internal/client"
	"brokerage_tracker/internal/domain/entity"
	"brokerage_tracker/internal/infrastructure/configloader"
	"brokerage_tracker/internal/infrastructure/storage"
	"brokerage_tracker/internal/pkg/logger"
	"brokerage_tracker/internal/pkg/metrics"
)

// application holds everything a subcommand needs.
type application struct {
	cfg      *configloader.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	store    *storage.SQLiteStore
	service  *service.PortfolioServiceImpl
}

// newApplication loads config and wires logging, storage, providers and the
// portfolio service. logToStderr keeps stdout free for command output.
func newApplication(logToStderr bool) (*application, error) {
	path := configloader.ResolvePath(*configPath)
	cfg, err := configloader.Load(path)
	if err != nil {
		explicit := *configPath != "" || os.Getenv("CONFIG_PATH") != ""
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "config file %s not found, using defaults\n", path)
		cfg = configloader.Default()
	}

	zapLogger, err := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Stderr: logToStderr,
	})
	if err != nil {
		return nil, err
	}
	appLogger := logger.NewSlogAdapter()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	providerMetrics := metrics.NewProviderMetrics(registry)

	store, err := storage.OpenSQLite(cfg.Storage.Path, appLogger)
	if err != nil {
		_ = zapLogger.Sync()
		return nil, err
	}

	assets := entity.DefaultCryptoAssets().WithOverrides(cfg.CryptoAssets)
	providers := []port.PriceProvider{
		client.NewStooqClient(client.StooqConfig{
			BaseURL: cfg.Stooq.BaseURL,
			Market:  cfg.Stooq.Market,
			Timeout: time.Duration(cfg.Stooq.RequestTimeoutMillis) * time.Millisecond,
			RateLimit: client.RateLimit{
				RequestsPerMinute: cfg.Stooq.RequestsPerMinute,
				Burst:             cfg.Stooq.Burst,
			},
		}, zapLogger),
		client.NewCoinGeckoClient(client.CoinGeckoConfig{
			BaseURL:    cfg.CoinGecko.BaseURL,
			APIKey:     cfg.CoinGecko.APIKey,
			VsCurrency: cfg.CoinGecko.VsCurrency,
			Timeout:    time.Duration(cfg.CoinGecko.RequestTimeoutMillis) * time.Millisecond,
			RateLimit: client.RateLimit{
				RequestsPerMinute: cfg.CoinGecko.RequestsPerMinute,
				Burst:             cfg.CoinGecko.Burst,
			},
		}, assets, zapLogger),
	}
	aggregator := service.NewPriceAggregator(
		service.NewSymbolClassifier(assets),
		providers,
		cfg.ProviderTimeout(),
		providerMetrics,
		zapLogger,
	)
	svc := service.NewPortfolioService(store, aggregator, cfg.PriceCacheTTL(), providerMetrics, appLogger)

	zapLogger.Debug("Application initialized",
		zap.String("config", path),
		zap.String("storage", cfg.Storage.Path),
		zap.Int("cryptoAssets", assets.Len()))

	return &application{
		cfg:      cfg,
		logger:   zapLogger,
		registry: registry,
		store:    store,
		service:  svc,
	}, nil
}

func (a *application) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
