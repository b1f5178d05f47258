// Package transform turns market-data rows into price records.
package transform

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-history-loader/internal/marketdata"
	"github.com/trogers1052/stock-history-loader/internal/models"
)

// FromRow converts one upstream row into a PriceRecord.
// Undefined values become absent fields; defined values are parsed from
// their exact text so no binary float rounding reaches the store.
func FromRow(ticker string, row marketdata.Row) (models.PriceRecord, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return models.PriceRecord{}, fmt.Errorf("ticker is required")
	}
	if row.Date.IsZero() {
		return models.PriceRecord{}, fmt.Errorf("row for %s has no date", ticker)
	}

	rec := models.PriceRecord{
		Ticker: ticker,
		Date:   row.Date.Format(models.DateLayout),
	}

	fields := []struct {
		name string
		in   marketdata.Value
		out  *decimal.NullDecimal
	}{
		{"Open", row.Open, &rec.Open},
		{"High", row.High, &rec.High},
		{"Low", row.Low, &rec.Low},
		{"Close", row.Close, &rec.Close},
		{"Volume", row.Volume, &rec.Volume},
	}
	for _, f := range fields {
		v, err := parse(f.in)
		if err != nil {
			return models.PriceRecord{}, fmt.Errorf("invalid %s %q for %s on %s: %w", f.name, string(f.in), ticker, rec.Date, err)
		}
		*f.out = v
	}
	return rec, nil
}

func parse(v marketdata.Value) (decimal.NullDecimal, error) {
	if !v.Defined() {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
