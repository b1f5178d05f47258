// Package pipeline runs the fetch, transform and persist sequences.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-history-loader/internal/marketdata"
	"github.com/trogers1052/stock-history-loader/internal/models"
	"github.com/trogers1052/stock-history-loader/internal/store"
	"github.com/trogers1052/stock-history-loader/internal/transform"
)

// Publisher announces persisted records
type Publisher interface {
	PublishRecordUpserted(ctx context.Context, table string, rec models.PriceRecord) error
}

// Loader moves one ticker's history into a store, one upsert per row
type Loader struct {
	source    marketdata.Source
	store     store.Store
	table     string
	publisher Publisher
	log       logrus.FieldLogger
}

// NewLoader creates a Loader. publisher may be nil.
func NewLoader(source marketdata.Source, st store.Store, table string, publisher Publisher, log logrus.FieldLogger) *Loader {
	return &Loader{
		source:    source,
		store:     st,
		table:     table,
		publisher: publisher,
		log:       log,
	}
}

// Run ensures the table, fetches the series once and upserts every row in
// order. A failed write is recorded and the next row is tried; a fetch or
// transform failure stops the ticker.
func (l *Loader) Run(ctx context.Context, req Request) Summary {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	sum := Summary{Ticker: ticker, Table: l.table}
	log := l.log.WithFields(logrus.Fields{"ticker": ticker, "table": l.table})

	if err := l.store.EnsureTable(ctx, l.table); err != nil {
		sum.ProvisionErr = err
		log.WithError(err).WithField("kind", store.KindOf(err)).Error("error checking or creating table")
	}

	log.WithFields(logrus.Fields{
		"start": req.Start.Format(models.DateLayout),
		"end":   req.End.Format(models.DateLayout),
	}).Info("downloading stock data")

	series, err := l.source.FetchDaily(ctx, ticker, req.Start, req.End)
	if err != nil {
		sum.Err = fmt.Errorf("failed to download %s: %w", ticker, err)
		log.WithError(err).Error("error downloading stock data")
		return sum
	}
	sum.Fetched = len(series.Rows)

	for _, row := range series.Rows {
		rec, err := transform.FromRow(ticker, row)
		if err != nil {
			sum.Err = fmt.Errorf("failed to transform %s: %w", ticker, err)
			log.WithError(err).Error("error transforming stock data")
			return sum
		}
		l.save(ctx, &sum, rec, log)
	}

	log.WithField("summary", sum.String()).Info("completed saving stock data")
	return sum
}

func (l *Loader) save(ctx context.Context, sum *Summary, rec models.PriceRecord, log logrus.FieldLogger) {
	log = log.WithField("date", rec.Date)

	if err := l.store.PutRecord(ctx, l.table, rec); err != nil {
		kind := store.KindOf(err)
		sum.Failed++
		sum.Failures = append(sum.Failures, RowFailure{Date: rec.Date, Kind: kind, Err: err})
		log.WithError(err).WithField("kind", kind).Error("error saving data")
		return
	}
	sum.Saved++
	log.Debug("saved data")

	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishRecordUpserted(ctx, l.table, rec); err != nil {
		log.WithError(err).Warn("error publishing record event")
	}
}
