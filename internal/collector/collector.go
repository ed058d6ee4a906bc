// Package collector assembles a complete ascending candle series for a date
// range by paging the Upbit candle API backward in time.
package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"upbit-backtester/internal/infrastructure"
	"upbit-backtester/internal/model"
	"upbit-backtester/internal/progress"
	"upbit-backtester/internal/upbit"
)

// CandleFetcher is the sole upstream primitive the collector needs: the
// most recent count candles strictly older than the `to` cursor, newest
// first.
type CandleFetcher interface {
	FetchCandles(ctx context.Context, market, interval string, count int, to string) ([]model.Candle, error)
}

const (
	pageSize   = upbit.MaxCandleCount
	maxPages   = 50
	maxRetries = 3
)

type Collector struct {
	fetcher CandleFetcher

	// PageDelay paces successive page fetches; RetryBase is the first
	// retry backoff (doubled per attempt). Overridable for tests.
	PageDelay time.Duration
	RetryBase time.Duration
}

func New(fetcher CandleFetcher) *Collector {
	return &Collector{
		fetcher:   fetcher,
		PageDelay: 200 * time.Millisecond,
		RetryBase: time.Second,
	}
}

// Collect returns every candle of market/interval dated within
// [start, end], ascending and de-duplicated by timestamp, or an error.
// start and end are civil dates (midnight-truncated).
func (c *Collector) Collect(ctx context.Context, market, interval string, start, end time.Time, obs progress.Observer) ([]model.Candle, error) {
	cursor := upbit.FormatCursor(end.Add(24*time.Hour - time.Second)) // end of end date
	var collected []model.Candle

	for page := 1; ; page++ {
		if page > maxPages {
			return nil, fmt.Errorf("range requires more than %d page fetches; narrow the date range", maxPages)
		}

		candles, err := c.fetchPage(ctx, market, interval, cursor)
		if err != nil {
			return nil, err
		}
		infrastructure.CollectorPages.Inc()
		if len(candles) == 0 {
			break
		}

		// Pages arrive newest first; anything dated before the start
		// boundary ends the whole collection.
		reachedStart := false
		for _, cdl := range candles {
			if cdl.Timestamp.Before(start) {
				reachedStart = true
				break
			}
			collected = append(collected, cdl)
		}
		progress.Emit(obs, "collect", fmt.Sprintf("page %d: %d candles (%d total)", page, len(candles), len(collected)))
		if reachedStart {
			break
		}
		if len(candles) < pageSize {
			break
		}

		next := upbit.FormatCursor(candles[len(candles)-1].Timestamp)
		if next == cursor {
			return nil, fmt.Errorf("candle pagination stalled at cursor %s", cursor)
		}
		cursor = next

		if err := sleepCtx(ctx, c.PageDelay); err != nil {
			return nil, err
		}
	}

	if len(collected) == 0 {
		return nil, fmt.Errorf("no candle data for %s %s in %s..%s",
			market, interval, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].Timestamp.Before(collected[j].Timestamp)
	})
	return dedupe(collected), nil
}

// fetchPage retries transient and rate-limit failures with exponential
// backoff (1s, 2s, 4s by default) before giving up.
func (c *Collector) fetchPage(ctx context.Context, market, interval, cursor string) ([]model.Candle, error) {
	backoff := c.RetryBase
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			infrastructure.CollectorRetries.Inc()
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, err
			}
			backoff *= 2
		}
		candles, err := c.fetcher.FetchCandles(ctx, market, interval, pageSize, cursor)
		if err == nil {
			return candles, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if upbit.IsRateLimit(err) {
			// back off harder when the exchange is throttling us
			backoff *= 2
		}
		lastErr = err
	}
	return nil, fmt.Errorf("candle fetch failed after %d attempts: %w", maxRetries, lastErr)
}

func dedupe(candles []model.Candle) []model.Candle {
	out := candles[:1]
	for _, c := range candles[1:] {
		if !c.Timestamp.Equal(out[len(out)-1].Timestamp) {
			out = append(out, c)
		}
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
