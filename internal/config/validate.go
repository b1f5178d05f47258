package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Loader.Ticker == "" {
		return errors.New("LOADER_TICKER is required")
	}
	if c.Loader.Table == "" {
		return errors.New("LOADER_TABLE is required")
	}

	start, err := time.Parse("2006-01-02", c.Loader.StartDate)
	if err != nil {
		return fmt.Errorf("LOADER_START_DATE must be YYYY-MM-DD: %w", err)
	}
	end, err := time.Parse("2006-01-02", c.Loader.EndDate)
	if err != nil {
		return fmt.Errorf("LOADER_END_DATE must be YYYY-MM-DD: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("LOADER_END_DATE %s is before LOADER_START_DATE %s", c.Loader.EndDate, c.Loader.StartDate)
	}

	switch c.Loader.Backend {
	case BackendDynamoDB, BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("STORE_BACKEND %q must be one of %s, %s, %s", c.Loader.Backend, BackendDynamoDB, BackendPostgres, BackendRedis)
	}

	if c.Dynamo.ReadCapacity < 1 || c.Dynamo.WriteCapacity < 1 {
		return errors.New("DynamoDB read and write capacity must be >= 1")
	}
	if c.MarketData.Timeout <= 0 {
		return errors.New("MARKETDATA_TIMEOUT must be positive")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT %q must be text or json", c.Log.Format)
	}
	return nil
}
