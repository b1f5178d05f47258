package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-history-loader/internal/backend"
	"github.com/trogers1052/stock-history-loader/internal/config"
	"github.com/trogers1052/stock-history-loader/internal/kafka"
	"github.com/trogers1052/stock-history-loader/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	logger := logging.New(cfg.Log)

	if !cfg.Kafka.Enabled() {
		logger.Fatal("KAFKA_BROKERS is required")
	}

	st, closeStore, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer closeStore()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, cfg.Kafka.ReplicationTable, st, logger)
	defer consumer.Close()

	if err := consumer.Start(ctx); err != nil {
		logger.WithError(err).Error("consumer stopped")
	}
}
