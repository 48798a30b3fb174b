package main

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/mohamedkhairy/stock-indicators/internal/config"
	"github.com/mohamedkhairy/stock-indicators/internal/data"
	"github.com/mohamedkhairy/stock-indicators/internal/replay"
	"github.com/mohamedkhairy/stock-indicators/pkg/indicator"
	"github.com/mohamedkhairy/stock-indicators/pkg/logger"
	"github.com/mohamedkhairy/stock-indicators/pkg/models"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	engineConfig, err := replay.ConfigFrom(cfg)
	if err != nil {
		logger.Fatal("Invalid indicator chain", logger.ErrorField(err))
	}

	registry := indicator.DefaultRegistry()
	logger.Info("Starting replay",
		logger.Strings("chain", cfg.Replay.Chain),
		logger.Strings("available", registry.List()),
		logger.Int("max_cache_size", engineConfig.MaxCacheSize),
		logger.Int("vwap_lookback", engineConfig.VWAPLookback),
	)

	quotes, err := loadQuotes(cfg.Replay)
	if err != nil {
		logger.Fatal("Failed to load quotes", logger.ErrorField(err))
	}

	engine, err := replay.NewEngine(engineConfig, registry, logger.Get())
	if err != nil {
		logger.Fatal("Failed to build hub graph", logger.ErrorField(err))
	}

	started := time.Now()
	if err := engine.Replay(quotes); err != nil {
		logger.Fatal("Replay failed", logger.ErrorField(err))
	}

	report, err := engine.Verify()
	if err != nil {
		logger.Fatal("Verification failed", logger.ErrorField(err))
	}

	if err := engine.Close(); err != nil {
		logger.Warn("Failed to detach hubs", logger.ErrorField(err))
	}

	if cfg.Replay.DumpMetrics {
		if err := dumpMetrics(); err != nil {
			logger.Warn("Failed to dump metrics", logger.ErrorField(err))
		}
	}

	if !report.OK() {
		logger.Fatal("Streaming results diverged from batch results",
			logger.Int("hubs", len(report.Hubs)),
			logger.Int("reference_mismatches", report.ReferenceMismatches),
		)
	}

	logger.Info("Replay verified",
		logger.Int("quotes", report.Quotes),
		logger.Int("hubs", len(report.Hubs)),
		logger.Bool("reference_checked", report.ReferenceChecked),
		logger.Duration("elapsed", time.Since(started)),
	)
}

// loadQuotes reads the configured CSV file, or generates a deterministic series
func loadQuotes(cfg config.ReplayConfig) ([]models.Quote, error) {
	if cfg.QuotesFile != "" {
		quotes, err := data.LoadQuotesFile(cfg.QuotesFile)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded quotes", logger.String("file", cfg.QuotesFile), logger.Int("count", len(quotes)))
		return quotes, nil
	}

	logger.Info("Generating quotes", logger.Int("count", cfg.QuoteCount), logger.Int("seed", int(cfg.Seed)))
	return data.GenerateQuotes(cfg.QuoteCount, cfg.Seed), nil
}

// dumpMetrics writes the hub metrics in the Prometheus text format
func dumpMetrics() error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
			return err
		}
	}
	return nil
}
