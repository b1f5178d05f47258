// Package redisstore stores price records in Redis hashes.
//
// Layout, for table T:
//
//	<prefix>tables             set of provisioned table names
//	<prefix>T:TICKER:DATE      hash with ticker, date and the defined numeric fields
//	<prefix>T:TICKER:dates     sorted set of dates, scored as YYYYMMDD
//
// An absent numeric field is simply not present in the hash.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-history-loader/internal/models"
	"github.com/trogers1052/stock-history-loader/internal/store"
)

const DefaultPrefix = "stockdata:"

// Store implements store.Store on Redis
type Store struct {
	client *redis.Client
	prefix string
}

// Config holds Redis connection parameters
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// New connects to Redis and verifies the connection
func New(cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", classify(err))
	}

	return NewWithClient(client, cfg.Prefix), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Close closes the Redis client
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) tablesKey() string {
	return s.prefix + "tables"
}

func (s *Store) recordKey(table, ticker, date string) string {
	return fmt.Sprintf("%s%s:%s:%s", s.prefix, table, ticker, date)
}

func (s *Store) indexKey(table, ticker string) string {
	return fmt.Sprintf("%s%s:%s:dates", s.prefix, table, ticker)
}

// EnsureTable implements store.Store
func (s *Store) EnsureTable(ctx context.Context, table string) error {
	if err := s.client.SAdd(ctx, s.tablesKey(), table).Err(); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, classify(err))
	}
	return nil
}

func (s *Store) requireTable(ctx context.Context, table string) error {
	ok, err := s.client.SIsMember(ctx, s.tablesKey(), table).Result()
	if err != nil {
		return fmt.Errorf("failed to check table %s: %w", table, classify(err))
	}
	if !ok {
		return fmt.Errorf("%w: table %s does not exist", store.ErrRequest, table)
	}
	return nil
}

// PutRecord implements store.Store. The hash is deleted and rewritten in one
// transaction so fields absent from rec never survive from an older write.
func (s *Store) PutRecord(ctx context.Context, table string, rec models.PriceRecord) error {
	if err := s.requireTable(ctx, table); err != nil {
		return err
	}

	score, err := dateScore(rec.Date)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrRequest, err)
	}

	key := s.recordKey(table, rec.Ticker, rec.Date)
	fields := encode(rec)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		pipe.ZAdd(ctx, s.indexKey(table, rec.Ticker), redis.Z{Score: score, Member: rec.Date})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to put %s on %s: %w", rec.Ticker, rec.Date, classify(err))
	}
	return nil
}

// GetRecord implements store.Store
func (s *Store) GetRecord(ctx context.Context, table, ticker, date string) (*models.PriceRecord, error) {
	values, err := s.client.HGetAll(ctx, s.recordKey(table, ticker, date)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s on %s: %w", ticker, date, classify(err))
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s on %s", store.ErrNotFound, ticker, date)
	}
	rec, err := decode(values)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecords implements store.Store
func (s *Store) ListRecords(ctx context.Context, table, ticker string) ([]models.PriceRecord, error) {
	dates, err := s.client.ZRange(ctx, s.indexKey(table, ticker), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", ticker, classify(err))
	}
	if len(dates) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(dates))
	for i, date := range dates {
		cmds[i] = pipe.HGetAll(ctx, s.recordKey(table, ticker, date))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", ticker, classify(err))
	}

	records := make([]models.PriceRecord, 0, len(dates))
	for _, cmd := range cmds {
		values := cmd.Val()
		if len(values) == 0 {
			continue
		}
		rec, err := decode(values)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func dateScore(date string) (float64, error) {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}
	n, _ := strconv.Atoi(t.Format("20060102"))
	return float64(n), nil
}

func encode(rec models.PriceRecord) map[string]any {
	fields := map[string]any{
		"ticker": rec.Ticker,
		"date":   rec.Date,
	}
	put := func(name string, d decimal.NullDecimal) {
		if d.Valid {
			fields[name] = d.Decimal.String()
		}
	}
	put("Open", rec.Open)
	put("High", rec.High)
	put("Low", rec.Low)
	put("Close", rec.Close)
	put("Volume", rec.Volume)
	return fields
}

func decode(values map[string]string) (models.PriceRecord, error) {
	rec := models.PriceRecord{
		Ticker: values["ticker"],
		Date:   values["date"],
	}
	fields := []struct {
		name string
		out  *decimal.NullDecimal
	}{
		{"Open", &rec.Open},
		{"High", &rec.High},
		{"Low", &rec.Low},
		{"Close", &rec.Close},
		{"Volume", &rec.Volume},
	}
	for _, f := range fields {
		raw, ok := values[f.name]
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return rec, fmt.Errorf("invalid %s %q for %s on %s: %w", f.name, raw, rec.Ticker, rec.Date, err)
		}
		*f.out = decimal.NewNullDecimal(d)
	}
	return rec, nil
}

func classify(err error) error {
	msg := err.Error()
	if strings.HasPrefix(msg, "NOAUTH") || strings.HasPrefix(msg, "WRONGPASS") {
		return fmt.Errorf("%w: %w", store.ErrCredentials, err)
	}
	return fmt.Errorf("%w: %w", store.ErrRequest, err)
}
