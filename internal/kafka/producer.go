package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/stock-history-loader/internal/models"
)

// messageWriter is the part of kafka.Writer the producer needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing price record events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishRecordUpserted publishes a price record upserted event.
// Messages are keyed by TICKER:DATE so every version of a record lands on
// the same partition and replays in order.
func (p *Producer) PublishRecordUpserted(ctx context.Context, table string, rec models.PriceRecord) error {
	event := models.PriceRecordEvent{
		EventID:   uuid.NewString(),
		EventType: models.EventPriceRecordUpserted,
		Table:     table,
		Record:    rec,
		Timestamp: p.now().UTC(),
	}
	return p.publish(ctx, rec.Key(), event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.PriceRecordEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
