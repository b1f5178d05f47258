package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-history-loader/internal/models"
)

const (
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"
	DefaultUserAgent    = "Mozilla/5.0 (compatible; stock-history-loader/1.0)"
	DefaultTimeout      = 30 * time.Second
)

// YahooClient reads daily history from the Yahoo Finance chart API
type YahooClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	log       logrus.FieldLogger
}

// NewYahooClient creates a chart API client. An empty baseURL selects the public endpoint.
func NewYahooClient(baseURL, userAgent string, timeout time.Duration, log logrus.FieldLogger) *YahooClient {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &YahooClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
		log:       log,
	}
}

// chartResponse mirrors the subset of /v8/finance/chart used here.
// Numbers stay json.Number so their text is never rounded through float64;
// JSON nulls decode to the empty Number.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartQuote struct {
	Open   []json.Number `json:"open"`
	High   []json.Number `json:"high"`
	Low    []json.Number `json:"low"`
	Close  []json.Number `json:"close"`
	Volume []json.Number `json:"volume"`
}

// FetchDaily implements Source
func (c *YahooClient) FetchDaily(ctx context.Context, ticker string, start, end time.Time) (*Series, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s", end.Format(models.DateLayout), start.Format(models.DateLayout))
	}

	q := url.Values{}
	q.Set("period1", strconv.FormatInt(dayStart(start).Unix(), 10))
	// period2 is exclusive upstream
	q.Set("period2", strconv.FormatInt(dayStart(end).AddDate(0, 0, 1).Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "history")
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), q.Encode())

	var payload chartResponse
	if err := c.jget(ctx, addr, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch %s history: %w", ticker, err)
	}
	if e := payload.Chart.Error; e != nil {
		return nil, fmt.Errorf("market data error for %s: %s: %s", ticker, e.Code, e.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("no market data returned for %s", ticker)
	}

	series := payload.Chart.Result[0].series(ticker, start, end)
	c.log.WithFields(logrus.Fields{
		"ticker": ticker,
		"rows":   len(series.Rows),
	}).Debug("fetched daily history")
	return series, nil
}

// jget performs a GET and decodes the JSON body into data. Error bodies are
// decoded too since the chart API reports failures in the payload.
func (c *YahooClient) jget(ctx context.Context, addr string, data *chartResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	decodeErr := dec.Decode(data)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && data.Chart.Error != nil {
			return fmt.Errorf("%s: %s: %s", resp.Status, data.Chart.Error.Code, data.Chart.Error.Description)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	return nil
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r chartResult) series(ticker string, start, end time.Time) *Series {
	s := &Series{Ticker: ticker}
	var q chartQuote
	if len(r.Indicators.Quote) > 0 {
		q = r.Indicators.Quote[0]
	}
	from := dayStart(start).Format(models.DateLayout)
	to := dayStart(end).Format(models.DateLayout)

	offset := time.Duration(r.Meta.GMTOffset) * time.Second
	for i, ts := range r.Timestamp {
		// trading date in the exchange's local time
		date := dayStart(time.Unix(ts, 0).UTC().Add(offset))
		key := date.Format(models.DateLayout)
		if key < from || key > to {
			continue
		}
		s.Rows = append(s.Rows, Row{
			Date:   date,
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  at(q.Close, i),
			Volume: at(q.Volume, i),
		})
	}
	return s
}

func at(col []json.Number, i int) Value {
	if i >= len(col) {
		return ""
	}
	return Value(col[i])
}
