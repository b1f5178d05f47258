package pipeline

import (
	"fmt"
	"time"

	"github.com/trogers1052/stock-history-loader/internal/models"
	"github.com/trogers1052/stock-history-loader/internal/store"
)

// Request selects one ticker and an inclusive date range
type Request struct {
	Ticker string
	Start  time.Time
	End    time.Time
}

// ParseRequest builds a Request from YYYY-MM-DD strings
func ParseRequest(ticker, start, end string) (Request, error) {
	s, err := time.Parse(models.DateLayout, start)
	if err != nil {
		return Request{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(models.DateLayout, end)
	if err != nil {
		return Request{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if e.Before(s) {
		return Request{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	if ticker == "" {
		return Request{}, fmt.Errorf("ticker is required")
	}
	return Request{Ticker: ticker, Start: s, End: e}, nil
}

// RowFailure records one row that could not be persisted
type RowFailure struct {
	Date string
	Kind store.Kind
	Err  error
}

// Summary is the aggregate outcome of one loader run
type Summary struct {
	Ticker  string
	Table   string
	Fetched int
	Saved   int
	Failed  int

	Failures []RowFailure
	// ProvisionErr is set when EnsureTable failed; the run still proceeds
	ProvisionErr error
	// Err is set when fetching or transforming aborted the ticker
	Err error
}

// OK reports whether every fetched row was saved
func (s Summary) OK() bool {
	return s.ProvisionErr == nil && s.Err == nil && s.Failed == 0
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: fetched=%d saved=%d failed=%d", s.Ticker, s.Fetched, s.Saved, s.Failed)
}
