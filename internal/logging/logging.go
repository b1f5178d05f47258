// Package logging builds the process logger.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-history-loader/internal/config"
)

// New returns a logrus logger writing to stderr with the configured level and format
func New(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
