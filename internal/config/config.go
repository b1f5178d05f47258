package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends
const (
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all application configuration
type Config struct {
	Loader     LoaderConfig
	MarketData MarketDataConfig
	Dynamo     DynamoConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Server     ServerConfig
	Export     ExportConfig
	Log        LogConfig
}

// LoaderConfig selects what the loader downloads and where it writes
type LoaderConfig struct {
	Ticker    string
	StartDate string
	EndDate   string
	Table     string
	Backend   string
}

// MarketDataConfig holds the market-data API client settings
type MarketDataConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// DynamoConfig holds DynamoDB configuration
type DynamoConfig struct {
	Region        string
	Endpoint      string
	ReadCapacity  int64
	WriteCapacity int64
	WaitTimeout   time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// KafkaConfig holds Kafka configuration. No brokers disables publishing.
type KafkaConfig struct {
	Brokers          []string
	Topic            string
	GroupID          string
	ReplicationTable string
}

// Enabled reports whether any broker is configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// Addr renders the listen address in host:port form
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ExportConfig holds the CSV export settings
type ExportConfig struct {
	Dir string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables. Defaults reproduce
// the original batch job: MSFT for 2023 into StockMarketData on DynamoDB.
func Load() (*Config, error) {
	mdTimeout, err := getDuration("MARKETDATA_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	readCap, err := getInt64("DYNAMODB_READ_CAPACITY", 5)
	if err != nil {
		return nil, err
	}
	writeCap, err := getInt64("DYNAMODB_WRITE_CAPACITY", 5)
	if err != nil {
		return nil, err
	}
	waitTimeout, err := getDuration("DYNAMODB_WAIT_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	redisDB, err := getInt64("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Loader: LoaderConfig{
			Ticker:    strings.ToUpper(getEnv("LOADER_TICKER", "MSFT")),
			StartDate: getEnv("LOADER_START_DATE", "2023-01-01"),
			EndDate:   getEnv("LOADER_END_DATE", "2023-12-31"),
			Table:     getEnv("LOADER_TABLE", "StockMarketData"),
			Backend:   strings.ToLower(getEnv("STORE_BACKEND", BackendDynamoDB)),
		},
		MarketData: MarketDataConfig{
			BaseURL:   getEnv("MARKETDATA_BASE_URL", "https://query1.finance.yahoo.com"),
			UserAgent: getEnv("MARKETDATA_USER_AGENT", ""),
			Timeout:   mdTimeout,
		},
		Dynamo: DynamoConfig{
			Region:        getEnv("AWS_REGION", "us-east-1"),
			Endpoint:      getEnv("DYNAMODB_ENDPOINT", ""),
			ReadCapacity:  readCap,
			WriteCapacity: writeCap,
			WaitTimeout:   waitTimeout,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "stockdata"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       int(redisDB),
			Prefix:   getEnv("REDIS_PREFIX", "stockdata:"),
		},
		Kafka: KafkaConfig{
			Brokers:          splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:            getEnv("KAFKA_TOPIC", "stock-price-records"),
			GroupID:          getEnv("KAFKA_GROUP_ID", "stock-history-replicator"),
			ReplicationTable: getEnv("REPLICATION_TABLE", ""),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Export: ExportConfig{
			Dir: getEnv("EXPORT_DIR", "data"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s value %q: %w", key, value, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s value %q: %w", key, value, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
