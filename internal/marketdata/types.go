package marketdata

import (
	"context"
	"strings"
	"time"
)

// Source fetches the daily price history of one ticker. Both ends of the
// range are inclusive.
type Source interface {
	FetchDaily(ctx context.Context, ticker string, start, end time.Time) (*Series, error)
}

// Value is the exact textual form of one upstream number.
// Empty, null and NaN mean the observation is undefined.
type Value string

// Defined reports whether the upstream sent an actual number
func (v Value) Defined() bool {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return false
	}
	switch strings.ToLower(s) {
	case "nan", "null", "none":
		return false
	}
	return true
}

// String returns the trimmed text, or "" when undefined
func (v Value) String() string {
	if !v.Defined() {
		return ""
	}
	return strings.TrimSpace(string(v))
}

// Row is one trading day as returned by the market-data source
type Row struct {
	Date   time.Time
	Open   Value
	High   Value
	Low    Value
	Close  Value
	Volume Value
}

// Series is the daily history of a single ticker, ordered by date
type Series struct {
	Ticker string
	Rows   []Row
}
