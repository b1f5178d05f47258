package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the key format for the trading date of a price record
const DateLayout = "2006-01-02"

// PriceRecord represents one trading day of OHLCV data for one ticker.
// The pair (Ticker, Date) identifies it. A numeric field with Valid == false
// is absent: the upstream had no observation for it.
type PriceRecord struct {
	Ticker string              `json:"ticker"`
	Date   string              `json:"date"`
	Open   decimal.NullDecimal `json:"open"`
	High   decimal.NullDecimal `json:"high"`
	Low    decimal.NullDecimal `json:"low"`
	Close  decimal.NullDecimal `json:"close"`
	Volume decimal.NullDecimal `json:"volume"`
}

// Key returns the record identity in TICKER:DATE form
func (p PriceRecord) Key() string {
	return p.Ticker + ":" + p.Date
}

// Equal reports whether both records carry the same key and values
func (p PriceRecord) Equal(other PriceRecord) bool {
	return p.Ticker == other.Ticker &&
		p.Date == other.Date &&
		nullEqual(p.Open, other.Open) &&
		nullEqual(p.High, other.High) &&
		nullEqual(p.Low, other.Low) &&
		nullEqual(p.Close, other.Close) &&
		nullEqual(p.Volume, other.Volume)
}

func nullEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

// Event types published for price records
const (
	EventPriceRecordUpserted = "PRICE_RECORD_UPSERTED"
)

// PriceRecordEvent represents a Kafka event for a persisted price record
type PriceRecordEvent struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	Table     string      `json:"table"`
	Record    PriceRecord `json:"record"`
	Timestamp time.Time   `json:"timestamp"`
}
