package upbit

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"upbit-backtester/internal/model"
)

// majorMarkets are always reported separately in the market summary.
var majorMarkets = map[string]bool{
	"KRW-BTC": true,
	"KRW-ETH": true,
	"KRW-XRP": true,
}

const tickerChunkSize = 50

// Tickers fetches current-price snapshots for several markets at once.
func (c *Client) Tickers(ctx context.Context, markets []string) ([]model.Ticker, error) {
	q := url.Values{}
	q.Set("markets", strings.Join(markets, ","))
	var out []model.Ticker
	if err := c.getJSON(ctx, "/ticker", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarketSummary composes a snapshot of all KRW markets: major coins, the
// five busiest by 24h traded value (majors excluded), and the five biggest
// gainers and losers by signed change rate. Partial ticker-chunk failures
// are logged and skipped; only a fully empty result is an error.
func (c *Client) MarketSummary(ctx context.Context) (*model.MarketSummary, error) {
	markets, err := c.Markets(ctx)
	if err != nil {
		return nil, err
	}

	var krw []string
	for _, m := range markets {
		if strings.HasPrefix(m.MarketCode, "KRW-") {
			krw = append(krw, m.MarketCode)
		}
	}
	if len(krw) == 0 {
		return nil, fmt.Errorf("no KRW markets listed")
	}

	var tickers []model.Ticker
	for i := 0; i < len(krw); i += tickerChunkSize {
		end := i + tickerChunkSize
		if end > len(krw) {
			end = len(krw)
		}
		chunk, err := c.Tickers(ctx, krw[i:end])
		if err != nil {
			c.logger.Warn("ticker chunk failed", zap.Int("offset", i), zap.Error(err))
			continue
		}
		tickers = append(tickers, chunk...)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers returned for KRW markets")
	}

	var majors, others []model.Ticker
	for _, t := range tickers {
		if majorMarkets[t.Market] {
			majors = append(majors, t)
		} else {
			others = append(others, t)
		}
	}

	sort.Slice(others, func(i, j int) bool {
		return others[i].AccTradePrice24H.GreaterThan(others[j].AccTradePrice24H)
	})
	topVolume := topN(others, 5)

	byChange := append([]model.Ticker(nil), tickers...)
	sort.Slice(byChange, func(i, j int) bool {
		return byChange[i].SignedChangeRate.GreaterThan(byChange[j].SignedChangeRate)
	})
	gainers := topN(byChange, 5)

	losers := make([]model.Ticker, 0, 5)
	for i := len(byChange) - 1; i >= 0 && len(losers) < 5; i-- {
		losers = append(losers, byChange[i])
	}

	return &model.MarketSummary{
		TimestampMs:    tickers[0].TimestampMs,
		MajorCoins:     majors,
		TopVolume:      topVolume,
		TopGainers:     gainers,
		TopLosers:      losers,
		KRWMarketCount: len(krw),
	}, nil
}

func topN(tickers []model.Ticker, n int) []model.Ticker {
	if len(tickers) > n {
		tickers = tickers[:n]
	}
	return append([]model.Ticker(nil), tickers...)
}
