package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-history-loader/internal/models"
	"github.com/trogers1052/stock-history-loader/internal/store"
	"github.com/trogers1052/stock-history-loader/internal/store/memory"
)

// MockReader replays a fixed list of messages, then blocks until ctx ends
type MockReader struct {
	messages []kafka.Message
	closed   bool
}

func (m *MockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(m.messages) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := m.messages[0]
	m.messages = m.messages[1:]
	return msg, nil
}

func (m *MockReader) Close() error {
	m.closed = true
	return nil
}

// failingStore rejects every write
type failingStore struct {
	*memory.Store
}

func (f failingStore) PutRecord(ctx context.Context, table string, rec models.PriceRecord) error {
	return errors.New("throttled")
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func eventMessage(t *testing.T, event models.PriceRecordEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.Record.Key()), Value: data}
}

func upserted(table, ticker, date, close string) models.PriceRecordEvent {
	rec := models.PriceRecord{Ticker: ticker, Date: date}
	if close != "" {
		rec.Close = decimal.NewNullDecimal(decimal.RequireFromString(close))
	}
	return models.PriceRecordEvent{
		EventID:   "evt-" + date,
		EventType: models.EventPriceRecordUpserted,
		Table:     table,
		Record:    rec,
		Timestamp: time.Now(),
	}
}

func TestProcessMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("applies upsert events and ensures the table once", func(t *testing.T) {
		st := memory.New()
		c := newConsumer(&MockReader{}, "prices", "", st, quietLogger())

		require.NoError(t, c.processMessage(ctx, eventMessage(t, upserted("StockMarketData", "MSFT", "2023-01-03", "239.58"))))
		require.NoError(t, c.processMessage(ctx, eventMessage(t, upserted("StockMarketData", "MSFT", "2023-01-04", "229.10"))))

		assert.Equal(t, 1, st.Creates)
		assert.Equal(t, 2, st.Len("StockMarketData"))

		got, err := st.GetRecord(ctx, "StockMarketData", "MSFT", "2023-01-04")
		require.NoError(t, err)
		assert.Equal(t, "229.1", got.Close.Decimal.String())
		assert.False(t, got.Volume.Valid)
	})

	t.Run("redelivery is idempotent", func(t *testing.T) {
		st := memory.New()
		c := newConsumer(&MockReader{}, "prices", "", st, quietLogger())
		msg := eventMessage(t, upserted("t", "AAPL", "2023-01-03", "125.07"))

		require.NoError(t, c.processMessage(ctx, msg))
		require.NoError(t, c.processMessage(ctx, msg))
		assert.Equal(t, 1, st.Len("t"))
	})

	t.Run("destination overrides the event table", func(t *testing.T) {
		st := memory.New()
		c := newConsumer(&MockReader{}, "prices", "Replica", st, quietLogger())

		require.NoError(t, c.processMessage(ctx, eventMessage(t, upserted("StockMarketData", "AAPL", "2023-01-03", "1"))))
		assert.Equal(t, 1, st.Len("Replica"))
		assert.Equal(t, 0, st.Len("StockMarketData"))
	})

	t.Run("ignores other event types", func(t *testing.T) {
		st := memory.New()
		c := newConsumer(&MockReader{}, "prices", "", st, quietLogger())
		event := upserted("t", "AAPL", "2023-01-03", "1")
		event.EventType = "PRICE_RECORD_DELETED"

		require.NoError(t, c.processMessage(ctx, eventMessage(t, event)))
		assert.Equal(t, 0, st.Puts)
	})

	t.Run("rejects malformed messages", func(t *testing.T) {
		st := memory.New()
		c := newConsumer(&MockReader{}, "prices", "", st, quietLogger())

		err := c.processMessage(ctx, kafka.Message{Value: []byte("{not json")})
		require.Error(t, err)

		event := upserted("t", "", "2023-01-03", "1")
		err = c.processMessage(ctx, eventMessage(t, event))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no record key")
	})

	t.Run("store failures are returned", func(t *testing.T) {
		c := newConsumer(&MockReader{}, "prices", "", failingStore{memory.New()}, quietLogger())

		err := c.processMessage(ctx, eventMessage(t, upserted("t", "AAPL", "2023-01-03", "1")))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "throttled")
	})
}

func TestConsumerStart(t *testing.T) {
	st := memory.New()
	reader := &MockReader{messages: []kafka.Message{
		eventMessage(t, upserted("t", "AAPL", "2023-01-03", "1")),
		{Value: []byte("garbage")},
		eventMessage(t, upserted("t", "AAPL", "2023-01-04", "2")),
	}}
	c := newConsumer(reader, "prices", "", st, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		_, err := st.GetRecord(context.Background(), "t", "AAPL", "2023-01-04")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	_, err := st.GetRecord(context.Background(), "t", "AAPL", "2023-01-03")
	assert.NoError(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

// MockWriter captures produced messages
type MockWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *MockWriter) Close() error {
	m.closed = true
	return nil
}

func TestProducerPublishRecordUpserted(t *testing.T) {
	w := &MockWriter{}
	fixed := time.Date(2023, 1, 6, 12, 0, 0, 0, time.UTC)
	p := &Producer{writer: w, topic: "prices", now: func() time.Time { return fixed }}

	rec := models.PriceRecord{
		Ticker: "AAPL",
		Date:   "2023-01-04",
		Close:  decimal.NewNullDecimal(decimal.RequireFromString("123.45")),
	}
	require.NoError(t, p.PublishRecordUpserted(context.Background(), "StockMarketData", rec))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "AAPL:2023-01-04", string(msg.Key))

	var event models.PriceRecordEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, models.EventPriceRecordUpserted, event.EventType)
	assert.Equal(t, "StockMarketData", event.Table)
	assert.NotEmpty(t, event.EventID)
	assert.True(t, fixed.Equal(event.Timestamp))
	assert.True(t, rec.Equal(event.Record))
	assert.False(t, event.Record.Volume.Valid)

	// a second event gets its own id
	require.NoError(t, p.PublishRecordUpserted(context.Background(), "StockMarketData", rec))
	var second models.PriceRecordEvent
	require.NoError(t, json.Unmarshal(w.messages[1].Value, &second))
	assert.NotEqual(t, event.EventID, second.EventID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducerWriteError(t *testing.T) {
	p := &Producer{writer: &MockWriter{err: errors.New("broker down")}, topic: "prices", now: time.Now}

	err := p.PublishRecordUpserted(context.Background(), "t", models.PriceRecord{Ticker: "A", Date: "2023-01-03"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
