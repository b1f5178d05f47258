package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/trogers1052/stock-history-loader/internal/models"
	"github.com/trogers1052/stock-history-loader/internal/store"
)

// EnsureTable registers a logical price table, migrating the schema first
func (db *DB) EnsureTable(ctx context.Context, table string) error {
	if err := db.Migrate(); err != nil {
		return classify(err)
	}

	query := `
		INSERT INTO price_tables (name, created_at)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := db.conn.ExecContext(ctx, query, table, time.Now()); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, classify(err))
	}
	return nil
}

// PutRecord upserts a price record
func (db *DB) PutRecord(ctx context.Context, table string, p models.PriceRecord) error {
	query := `
		INSERT INTO price_records (table_name, ticker, trade_date, open, high, low, close, volume, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (table_name, ticker, trade_date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			updated_at = EXCLUDED.updated_at
	`
	_, err := db.conn.ExecContext(ctx, query,
		table, p.Ticker, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, time.Now(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return fmt.Errorf("failed to put %s on %s: table %s does not exist: %w", p.Ticker, p.Date, table, classify(err))
		}
		return fmt.Errorf("failed to put %s on %s: %w", p.Ticker, p.Date, classify(err))
	}
	return nil
}

// GetRecord retrieves the price record for a ticker and date
func (db *DB) GetRecord(ctx context.Context, table, ticker, date string) (*models.PriceRecord, error) {
	query := `
		SELECT ticker, trade_date, open, high, low, close, volume
		FROM price_records
		WHERE table_name = $1 AND ticker = $2 AND trade_date = $3
	`
	p, err := scanRecord(db.conn.QueryRowContext(ctx, query, table, ticker, date))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s on %s", store.ErrNotFound, ticker, date)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price record: %w", classify(err))
	}
	return p, nil
}

// ListRecords retrieves all price records for a ticker, ordered by date ascending
func (db *DB) ListRecords(ctx context.Context, table, ticker string) ([]models.PriceRecord, error) {
	query := `
		SELECT ticker, trade_date, open, high, low, close, volume
		FROM price_records
		WHERE table_name = $1 AND ticker = $2
		ORDER BY trade_date ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, table, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to list price records: %w", classify(err))
	}
	defer rows.Close()

	var records []models.PriceRecord
	for rows.Next() {
		p, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price record: %w", classify(err))
		}
		records = append(records, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list price records: %w", classify(err))
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.PriceRecord, error) {
	var p models.PriceRecord
	var date time.Time
	err := row.Scan(&p.Ticker, &date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume)
	if err != nil {
		return nil, err
	}
	p.Date = date.Format(models.DateLayout)
	return &p, nil
}
