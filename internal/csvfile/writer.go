// Package csvfile writes a fetched price series to a local CSV file.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trogers1052/stock-history-loader/internal/marketdata"
	"github.com/trogers1052/stock-history-loader/internal/models"
)

// Header is the first row of every file
var Header = []string{"Date", "Open", "High", "Low", "Close", "Volume"}

// Path returns <dir>/<TICKER>_stock_data.csv
func Path(dir, ticker string) string {
	return filepath.Join(dir, strings.ToUpper(ticker)+"_stock_data.csv")
}

// Write serializes series into Path(dir, series.Ticker), replacing any
// previous file as a whole. The content goes to a temp file in dir first
// and is renamed into place, so readers never see a partial file.
func Write(dir string, series *marketdata.Series) (string, error) {
	if series == nil || series.Ticker == "" {
		return "", fmt.Errorf("series has no ticker")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := Path(dir, series.Ticker)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(Header); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range series.Rows {
		record := []string{
			row.Date.Format(models.DateLayout),
			row.Open.String(),
			row.High.String(),
			row.Low.String(),
			row.Close.String(),
			row.Volume.String(),
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return "", fmt.Errorf("failed to write row %s: %w", record[0], err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return path, nil
}
