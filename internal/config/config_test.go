package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"AWS_REGION", "STORE_BACKEND", "KAFKA_BROKERS", "EXPORT_DIR", "SERVER_HOST", "SERVER_PORT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "MSFT", cfg.Loader.Ticker)
	assert.Equal(t, "2023-01-01", cfg.Loader.StartDate)
	assert.Equal(t, "2023-12-31", cfg.Loader.EndDate)
	assert.Equal(t, "StockMarketData", cfg.Loader.Table)
	assert.Equal(t, BackendDynamoDB, cfg.Loader.Backend)
	assert.Equal(t, "us-east-1", cfg.Dynamo.Region)
	assert.Equal(t, int64(5), cfg.Dynamo.ReadCapacity)
	assert.Equal(t, int64(5), cfg.Dynamo.WriteCapacity)
	assert.Equal(t, "data", cfg.Export.Dir)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOADER_TICKER", "aapl")
	t.Setenv("LOADER_START_DATE", "2023-01-03")
	t.Setenv("LOADER_END_DATE", "2023-01-05")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("MARKETDATA_TIMEOUT", "5s")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "AAPL", cfg.Loader.Ticker)
	assert.Equal(t, BackendPostgres, cfg.Loader.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, 5*time.Second, cfg.MarketData.Timeout)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad start date", "LOADER_START_DATE", "01/01/2023"},
		{"end before start", "LOADER_END_DATE", "2022-12-31"},
		{"unknown backend", "STORE_BACKEND", "sqlite"},
		{"bad capacity", "DYNAMODB_READ_CAPACITY", "many"},
		{"zero capacity", "DYNAMODB_WRITE_CAPACITY", "0"},
		{"bad timeout", "MARKETDATA_TIMEOUT", "soon"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"bad log format", "LOG_FORMAT", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "stockdata", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/stockdata?sslmode=disable", d.ConnectionString())
}
