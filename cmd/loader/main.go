package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-history-loader/internal/backend"
	"github.com/trogers1052/stock-history-loader/internal/config"
	"github.com/trogers1052/stock-history-loader/internal/kafka"
	"github.com/trogers1052/stock-history-loader/internal/logging"
	"github.com/trogers1052/stock-history-loader/internal/marketdata"
	"github.com/trogers1052/stock-history-loader/internal/pipeline"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code; deferred cleanup completes before exit
func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	logger := logging.New(cfg.Log)

	st, closeStore, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer closeStore()

	var publisher pipeline.Publisher
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = producer
	}

	req, err := pipeline.ParseRequest(cfg.Loader.Ticker, cfg.Loader.StartDate, cfg.Loader.EndDate)
	if err != nil {
		logger.Fatalf("invalid request: %v", err)
	}

	source := marketdata.NewYahooClient(cfg.MarketData.BaseURL, cfg.MarketData.UserAgent, cfg.MarketData.Timeout, logger)
	loader := pipeline.NewLoader(source, st, cfg.Loader.Table, publisher, logger)

	summary := loader.Run(ctx, req)
	logger.WithFields(logrus.Fields{
		"ticker":  summary.Ticker,
		"table":   summary.Table,
		"fetched": summary.Fetched,
		"saved":   summary.Saved,
		"failed":  summary.Failed,
	}).Info("run finished")

	if !summary.OK() {
		return 1
	}
	return 0
}
