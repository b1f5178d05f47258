// Package store defines the key-value persistence contract for price records.
//
// Every backend keys records by partition key ticker and sort key date.
// PutRecord is a full replace at that key, so writing the same record twice
// leaves the store as one write would, and the last write for a key wins.
package store

import (
	"context"
	"errors"

	"github.com/trogers1052/stock-history-loader/internal/models"
)

var (
	// ErrCredentials means the backend could not resolve credentials
	ErrCredentials = errors.New("store credentials unavailable")
	// ErrRequest wraps a failed backend request (throttling, validation, missing table)
	ErrRequest = errors.New("store request failed")
	// ErrNotFound means no record exists at the requested key
	ErrNotFound = errors.New("record not found")
)

// Store persists price records in named tables
type Store interface {
	// EnsureTable creates the table when it does not exist and returns once it is ready
	EnsureTable(ctx context.Context, table string) error
	// PutRecord upserts rec at (rec.Ticker, rec.Date)
	PutRecord(ctx context.Context, table string, rec models.PriceRecord) error
	// GetRecord returns the record at (ticker, date) or ErrNotFound
	GetRecord(ctx context.Context, table, ticker, date string) (*models.PriceRecord, error)
	// ListRecords returns every record of ticker ordered by date ascending
	ListRecords(ctx context.Context, table, ticker string) ([]models.PriceRecord, error)
}

// Kind names the failure class of a store error
type Kind string

const (
	KindNone        Kind = ""
	KindCredentials Kind = "credentials"
	KindRequest     Kind = "store"
	KindNotFound    Kind = "not_found"
	KindUnknown     Kind = "unknown"
)

// KindOf classifies err against the sentinel errors
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrCredentials):
		return KindCredentials
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrRequest):
		return KindRequest
	default:
		return KindUnknown
	}
}
