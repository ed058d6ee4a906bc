package collector

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upbit-backtester/internal/model"
	"upbit-backtester/internal/progress"
	"upbit-backtester/internal/upbit"
)

// fakeFetcher serves daily candles from an in-memory ascending series the
// way the exchange does: newest first, strictly older than the cursor.
type fakeFetcher struct {
	candles  []model.Candle // ascending
	calls    int
	failures int // fail this many leading calls
	stall    bool
}

func (f *fakeFetcher) FetchCandles(ctx context.Context, market, interval string, count int, to string) ([]model.Candle, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, fmt.Errorf("simulated upstream failure")
	}
	cursor, err := time.Parse("2006-01-02T15:04:05", to)
	if err != nil {
		return nil, err
	}
	if f.stall {
		// misbehaving server: returns the same newest page regardless of cursor
		cursor = f.candles[len(f.candles)-1].Timestamp.Add(time.Hour)
	}
	var page []model.Candle
	for i := len(f.candles) - 1; i >= 0 && len(page) < count; i-- {
		if f.candles[i].Timestamp.Before(cursor) {
			page = append(page, f.candles[i])
		}
	}
	return page, nil
}

func dailyCandles(start time.Time, n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		out[i] = model.Candle{
			Market:    "KRW-BTC",
			Timestamp: start.AddDate(0, 0, i),
			Open:      100, High: 110, Low: 90, Close: 105, Volume: 1,
		}
	}
	return out
}

func newTestCollector(f *fakeFetcher) *Collector {
	c := New(f)
	c.PageDelay = 0
	c.RetryBase = time.Millisecond
	return c
}

func TestCollect_SinglePage(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeFetcher{candles: dailyCandles(start, 30)}
	c := newTestCollector(f)

	got, err := c.Collect(context.Background(), "KRW-BTC", "day", start, start.AddDate(0, 0, 29), progress.Nop{})
	require.NoError(t, err)
	assert.Len(t, got, 30)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Timestamp.Before(got[i].Timestamp), "series must ascend")
	}
}

func TestCollect_MultiPagePaginatesBackward(t *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	n := upbit.MaxCandleCount*2 + 50 // forces three pages
	f := &fakeFetcher{candles: dailyCandles(start, n)}
	c := newTestCollector(f)

	got, err := c.Collect(context.Background(), "KRW-BTC", "day", start, start.AddDate(0, 0, n-1), progress.Nop{})
	require.NoError(t, err)
	assert.Len(t, got, n)
	assert.GreaterOrEqual(t, f.calls, 3)
	assert.Equal(t, start, got[0].Timestamp)
}

func TestCollect_StartBoundaryStopsPaging(t *testing.T) {
	seriesStart := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeFetcher{candles: dailyCandles(seriesStart, 500)}
	c := newTestCollector(f)

	// ask only for the newest 100 days; older pages must not be walked
	start := seriesStart.AddDate(0, 0, 400)
	end := seriesStart.AddDate(0, 0, 499)
	got, err := c.Collect(context.Background(), "KRW-BTC", "day", start, end, progress.Nop{})
	require.NoError(t, err)
	assert.Len(t, got, 100)
	assert.Equal(t, start, got[0].Timestamp)
	assert.Equal(t, end, got[len(got)-1].Timestamp)
}

func TestCollect_RetriesTransientFailures(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeFetcher{candles: dailyCandles(start, 10), failures: 2}
	c := newTestCollector(f)

	got, err := c.Collect(context.Background(), "KRW-BTC", "day", start, start.AddDate(0, 0, 9), progress.Nop{})
	require.NoError(t, err)
	assert.Len(t, got, 10)
	assert.Equal(t, 3, f.calls) // 2 failures + 1 success
}

func TestCollect_GivesUpAfterMaxRetries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeFetcher{candles: dailyCandles(start, 10), failures: 10}
	c := newTestCollector(f)

	_, err := c.Collect(context.Background(), "KRW-BTC", "day", start, start.AddDate(0, 0, 9), progress.Nop{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestCollect_CursorStallIsAnError(t *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeFetcher{candles: dailyCandles(start, upbit.MaxCandleCount), stall: true}
	c := newTestCollector(f)

	_, err := c.Collect(context.Background(), "KRW-BTC", "day", start, start.AddDate(0, 0, upbit.MaxCandleCount-1), progress.Nop{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stalled")
}

func TestCollect_EmptyRangeIsAnError(t *testing.T) {
	seriesStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeFetcher{candles: dailyCandles(seriesStart, 10)}
	c := newTestCollector(f)

	// request a window years before any data exists
	start := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := c.Collect(context.Background(), "KRW-BTC", "day", start, start.AddDate(0, 0, 5), progress.Nop{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candle data")
}

func TestCollect_DeduplicatesTimestamps(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := dailyCandles(start, 10)
	candles = append(candles, candles[4]) // duplicate in upstream data
	f := &fakeFetcher{candles: candles}
	c := newTestCollector(f)

	got, err := c.Collect(context.Background(), "KRW-BTC", "day", start, start.AddDate(0, 0, 9), progress.Nop{})
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestCollect_CancelledContext(t *testing.T) {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeFetcher{candles: dailyCandles(start, 500), failures: 1}
	c := newTestCollector(f)
	c.RetryBase = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Collect(ctx, "KRW-BTC", "day", start, start.AddDate(0, 0, 499), progress.Nop{})
	require.Error(t, err)
}
