package upbit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCandlePath(t *testing.T) {
	tests := []struct {
		interval string
		path     string
		ok       bool
	}{
		{"day", "/candles/days", true},
		{"week", "/candles/weeks", true},
		{"month", "/candles/months", true},
		{"minute1", "/candles/minutes/1", true},
		{"minute60", "/candles/minutes/60", true},
		{"minute240", "/candles/minutes/240", true},
		{"minute7", "", false},
		{"hour", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		path, err := candlePath(tt.interval)
		if tt.ok {
			require.NoError(t, err, tt.interval)
			assert.Equal(t, tt.path, path)
			assert.True(t, SupportedInterval(tt.interval))
		} else {
			assert.Error(t, err, tt.interval)
			assert.False(t, SupportedInterval(tt.interval))
		}
	}
}

func TestFetchCandles(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"market":"KRW-BTC","candle_date_time_kst":"2024-06-02T09:00:00","opening_price":100,"high_price":110,"low_price":95,"trade_price":105,"candle_acc_trade_volume":1.5},
			{"market":"KRW-BTC","candle_date_time_kst":"2024-06-01T09:00:00","opening_price":90,"high_price":101,"low_price":89,"trade_price":100,"candle_acc_trade_volume":2.0},
			{"market":"KRW-BTC","candle_date_time_kst":"not-a-date","opening_price":1,"high_price":1,"low_price":1,"trade_price":1,"candle_acc_trade_volume":1}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	candles, err := c.FetchCandles(context.Background(), "KRW-BTC", "day", 500, "2024-06-03T00:00:00")
	require.NoError(t, err)

	assert.Equal(t, "/candles/days", gotPath)
	assert.Equal(t, "KRW-BTC", gotQuery["market"][0])
	// count is clamped to the exchange maximum
	assert.Equal(t, "200", gotQuery["count"][0])
	assert.Equal(t, "2024-06-03T00:00:00", gotQuery["to"][0])

	// the malformed row is skipped, not fatal
	require.Len(t, candles, 2)
	assert.Equal(t, time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC), candles[0].Timestamp)
	assert.InDelta(t, 105.0, candles[0].Close, 1e-9)
	assert.InDelta(t, 2.0, candles[1].Volume, 1e-9)
}

func TestFetchCandles_UnsupportedInterval(t *testing.T) {
	c := NewClient("http://localhost:1", zap.NewNop())
	_, err := c.FetchCandles(context.Background(), "KRW-BTC", "minute2", 10, "")
	assert.ErrorContains(t, err, "unsupported interval")
}

func TestGetJSON_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"name":"too_many_requests"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.FetchCandles(context.Background(), "KRW-BTC", "day", 10, "")
	require.Error(t, err)
	assert.True(t, IsRateLimit(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
}

func TestIsRateLimit_OtherErrors(t *testing.T) {
	assert.False(t, IsRateLimit(nil))
	assert.False(t, IsRateLimit(context.Canceled))
	assert.False(t, IsRateLimit(&APIError{Status: http.StatusNotFound, Body: "not found"}))
	assert.True(t, IsRateLimit(&APIError{Status: http.StatusBadRequest, Body: "too_many_requests"}))
}

func TestTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ticker", r.URL.Path)
		assert.Equal(t, "KRW-ETH", r.URL.Query().Get("markets"))
		w.Write([]byte(`[{"market":"KRW-ETH","trade_price":5000000.5}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	ticker, err := c.Ticker(context.Background(), "KRW-ETH")
	require.NoError(t, err)
	assert.Equal(t, "KRW-ETH", ticker.Market)
	assert.Equal(t, "5000000.5", ticker.TradePrice.String())
}

func TestTicker_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.Ticker(context.Background(), "KRW-DOGE")
	assert.ErrorContains(t, err, "no ticker returned")
}

func TestRecentTrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trades/ticks", r.URL.Path)
		assert.Equal(t, "KRW-BTC", r.URL.Query().Get("market"))
		assert.Equal(t, "500", r.URL.Query().Get("count"))
		w.Write([]byte(`[{"market":"KRW-BTC","trade_date_utc":"2024-06-01","trade_time_utc":"12:00:01","trade_price":"61500000","trade_volume":"0.0015","ask_bid":"ASK","sequential_id":17}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	// counts above the endpoint limit are clamped
	ticks, err := c.RecentTrades(context.Background(), "KRW-BTC", 9999)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Equal(t, "ASK", ticks[0].AskBid)
	assert.Equal(t, "0.0015", ticks[0].TradeVolume.String())
	assert.Equal(t, int64(17), ticks[0].SequentialID)
}

func TestMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/market/all", r.URL.Path)
		w.Write([]byte(`[{"market":"KRW-BTC","korean_name":"비트코인","english_name":"Bitcoin"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	markets, err := c.Markets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "Bitcoin", markets[0].EnglishName)
}

func TestFormatCursor(t *testing.T) {
	ts := time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, "2024-03-15T23:59:59", FormatCursor(ts))
}
