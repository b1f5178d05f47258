package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-history-loader/internal/csvfile"
	"github.com/trogers1052/stock-history-loader/internal/marketdata"
	"github.com/trogers1052/stock-history-loader/internal/models"
)

// Exporter writes one ticker's history to <dir>/<TICKER>_stock_data.csv
type Exporter struct {
	source marketdata.Source
	dir    string
	log    logrus.FieldLogger
}

// NewExporter creates an Exporter writing into dir
func NewExporter(source marketdata.Source, dir string, log logrus.FieldLogger) *Exporter {
	return &Exporter{source: source, dir: dir, log: log}
}

// Run fetches the series once and replaces the ticker's file with it
func (e *Exporter) Run(ctx context.Context, req Request) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	log := e.log.WithField("ticker", ticker)

	log.WithFields(logrus.Fields{
		"start": req.Start.Format(models.DateLayout),
		"end":   req.End.Format(models.DateLayout),
	}).Info("fetching data")

	series, err := e.source.FetchDaily(ctx, ticker, req.Start, req.End)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", ticker, err)
	}

	path, err := csvfile.Write(e.dir, series)
	if err != nil {
		return "", fmt.Errorf("failed to save %s: %w", ticker, err)
	}

	log.WithFields(logrus.Fields{"path": path, "rows": len(series.Rows)}).Info("data saved")
	return path, nil
}
