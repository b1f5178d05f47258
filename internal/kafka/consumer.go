package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-history-loader/internal/models"
	"github.com/trogers1052/stock-history-loader/internal/store"
)

// messageReader is the part of kafka.Reader the consumer needs
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer replicates price record events into a store.
// Redelivered events are harmless: applying one is an idempotent upsert.
type Consumer struct {
	reader messageReader
	topic  string
	store  store.Store
	log    logrus.FieldLogger

	// destination overrides the event's table when set
	destination string
	ensured     map[string]bool
}

// NewConsumer creates a new Kafka consumer for price record events
func NewConsumer(brokers []string, topic, groupID, destination string, st store.Store, log logrus.FieldLogger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return newConsumer(reader, topic, destination, st, log)
}

func newConsumer(reader messageReader, topic, destination string, st store.Store, log logrus.FieldLogger) *Consumer {
	return &Consumer{
		reader:      reader,
		topic:       topic,
		store:       st,
		log:         log,
		destination: destination,
		ensured:     make(map[string]bool),
	}
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.log.WithField("topic", c.topic).Info("starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info("Kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				c.log.WithError(err).Error("error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.WithError(err).WithFields(logrus.Fields{
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Error("error processing message")
				// Continue processing other messages
			}
		}
	}
}

// processMessage applies a single Kafka message to the store
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.PriceRecordEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal price record event: %w", err)
	}

	if event.EventType != models.EventPriceRecordUpserted {
		c.log.WithField("event_type", event.EventType).Debug("ignoring event")
		return nil
	}

	table := event.Table
	if c.destination != "" {
		table = c.destination
	}
	if table == "" {
		return fmt.Errorf("event %s has no table", event.EventID)
	}
	if event.Record.Ticker == "" || event.Record.Date == "" {
		return fmt.Errorf("event %s has no record key", event.EventID)
	}

	if !c.ensured[table] {
		if err := c.store.EnsureTable(ctx, table); err != nil {
			return fmt.Errorf("failed to ensure table %s: %w", table, err)
		}
		c.ensured[table] = true
	}

	if err := c.store.PutRecord(ctx, table, event.Record); err != nil {
		return fmt.Errorf("failed to replicate %s: %w", event.Record.Key(), err)
	}

	c.log.WithFields(logrus.Fields{
		"table":  table,
		"ticker": event.Record.Ticker,
		"date":   event.Record.Date,
	}).Debug("replicated price record")
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
