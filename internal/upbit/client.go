// Package upbit is a read-only client for the Upbit quotation REST API.
package upbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"upbit-backtester/internal/model"
)

// MaxCandleCount is the per-request candle limit imposed by Upbit.
const MaxCandleCount = 200

// MaxTradeCount is the per-request limit of the trade tick endpoint.
const MaxTradeCount = 500

const kstLayout = "2006-01-02T15:04:05"

// APIError is a non-2xx response from Upbit.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upbit api error: status %d: %s", e.Status, e.Body)
}

// IsRateLimit reports whether err is an Upbit too-many-requests response.
func IsRateLimit(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusTooManyRequests ||
		strings.Contains(strings.ToLower(apiErr.Body), "too_many_requests")
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// candlePath maps an interval tag to its Upbit endpoint path.
func candlePath(interval string) (string, error) {
	switch {
	case strings.HasPrefix(interval, "minute"):
		unit := strings.TrimPrefix(interval, "minute")
		switch unit {
		case "1", "3", "5", "10", "15", "30", "60", "240":
			return "/candles/minutes/" + unit, nil
		}
		return "", fmt.Errorf("unsupported interval: %s", interval)
	case interval == "day":
		return "/candles/days", nil
	case interval == "week":
		return "/candles/weeks", nil
	case interval == "month":
		return "/candles/months", nil
	}
	return "", fmt.Errorf("unsupported interval: %s", interval)
}

// SupportedInterval reports whether interval names a valid candle endpoint.
func SupportedInterval(interval string) bool {
	_, err := candlePath(interval)
	return err == nil
}

type candleRow struct {
	Market               string  `json:"market"`
	CandleDateTimeKST    string  `json:"candle_date_time_kst"`
	OpeningPrice         float64 `json:"opening_price"`
	HighPrice            float64 `json:"high_price"`
	LowPrice             float64 `json:"low_price"`
	TradePrice           float64 `json:"trade_price"`
	CandleAccTradeVolume float64 `json:"candle_acc_trade_volume"`
}

// FetchCandles returns up to count candles for market/interval, newest
// first, each strictly older than the `to` cursor when one is given. The
// cursor format is yyyy-MM-ddTHH:mm:ss (KST).
func (c *Client) FetchCandles(ctx context.Context, market, interval string, count int, to string) ([]model.Candle, error) {
	path, err := candlePath(interval)
	if err != nil {
		return nil, err
	}
	if count > MaxCandleCount {
		count = MaxCandleCount
	}
	q := url.Values{}
	q.Set("market", market)
	q.Set("count", strconv.Itoa(count))
	if to != "" {
		q.Set("to", to)
	}

	var rows []candleRow
	if err := c.getJSON(ctx, path, q, &rows); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, r := range rows {
		ts, err := time.Parse(kstLayout, r.CandleDateTimeKST)
		if err != nil {
			c.logger.Warn("skipping candle with malformed timestamp",
				zap.String("market", market), zap.String("ts", r.CandleDateTimeKST))
			continue
		}
		candles = append(candles, model.Candle{
			Market:    r.Market,
			Timestamp: ts,
			Open:      r.OpeningPrice,
			High:      r.HighPrice,
			Low:       r.LowPrice,
			Close:     r.TradePrice,
			Volume:    r.CandleAccTradeVolume,
		})
	}
	return candles, nil
}

// FormatCursor renders t as an Upbit `to` cursor.
func FormatCursor(t time.Time) string { return t.Format(kstLayout) }

func (c *Client) Ticker(ctx context.Context, market string) (*model.Ticker, error) {
	q := url.Values{}
	q.Set("markets", market)
	var out []model.Ticker
	if err := c.getJSON(ctx, "/ticker", q, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no ticker returned for %s", market)
	}
	return &out[0], nil
}

func (c *Client) OrderBook(ctx context.Context, market string) (*model.OrderBook, error) {
	q := url.Values{}
	q.Set("markets", market)
	var out []model.OrderBook
	if err := c.getJSON(ctx, "/orderbook", q, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no orderbook returned for %s", market)
	}
	return &out[0], nil
}

// RecentTrades returns the latest executed trades for market, newest first.
// Upbit caps count at 500 per request.
func (c *Client) RecentTrades(ctx context.Context, market string, count int) ([]model.TradeTick, error) {
	if count < 1 {
		count = 1
	}
	if count > MaxTradeCount {
		count = MaxTradeCount
	}
	q := url.Values{}
	q.Set("market", market)
	q.Set("count", strconv.Itoa(count))
	var out []model.TradeTick
	if err := c.getJSON(ctx, "/trades/ticks", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Markets(ctx context.Context) ([]model.Market, error) {
	var out []model.Market
	if err := c.getJSON(ctx, "/market/all", url.Values{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upbit request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode upbit response: %w", err)
	}
	return nil
}
