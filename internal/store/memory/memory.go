// Package memory is an in-process Store used by tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/trogers1052/stock-history-loader/internal/models"
	"github.com/trogers1052/stock-history-loader/internal/store"
)

type key struct {
	ticker string
	date   string
}

// Store keeps tables in maps guarded by a mutex
type Store struct {
	mu     sync.RWMutex
	tables map[string]map[key]models.PriceRecord

	// Creates counts how many times a table was actually created
	Creates int
	// Puts counts successful writes
	Puts int
}

// New creates an empty Store
func New() *Store {
	return &Store{tables: make(map[string]map[key]models.PriceRecord)}
}

// EnsureTable implements store.Store
func (s *Store) EnsureTable(ctx context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[table]; ok {
		return nil
	}
	s.tables[table] = make(map[key]models.PriceRecord)
	s.Creates++
	return nil
}

// PutRecord implements store.Store
func (s *Store) PutRecord(ctx context.Context, table string, rec models.PriceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("%w: table %s does not exist", store.ErrRequest, table)
	}
	t[key{rec.Ticker, rec.Date}] = rec
	s.Puts++
	return nil
}

// GetRecord implements store.Store
func (s *Store) GetRecord(ctx context.Context, table, ticker, date string) (*models.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: table %s does not exist", store.ErrRequest, table)
	}
	rec, ok := t[key{ticker, date}]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", store.ErrNotFound, ticker, date)
	}
	return &rec, nil
}

// ListRecords implements store.Store
func (s *Store) ListRecords(ctx context.Context, table, ticker string) ([]models.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: table %s does not exist", store.ErrRequest, table)
	}
	var out []models.PriceRecord
	for k, rec := range t {
		if k.ticker == ticker {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// Len returns the number of records in table
func (s *Store) Len(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}
