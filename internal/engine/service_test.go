package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upbit-backtester/internal/model"
	"upbit-backtester/internal/progress"
)

// fakeCollector returns a canned series or error without paging anything.
type fakeCollector struct {
	candles []model.Candle
	err     error
}

func (f *fakeCollector) Collect(ctx context.Context, market, interval string, start, end time.Time, obs progress.Observer) ([]model.Candle, error) {
	return f.candles, f.err
}

func trendCandles(n int) []model.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		// a falling then rising close gives crossover strategies work to do
		p := 100.0 + 30*float64(i%2) + float64(i)
		out[i] = model.Candle{
			Market:    "KRW-BTC",
			Timestamp: base.AddDate(0, 0, i),
			Open:      p, High: p + 1, Low: p - 1, Close: p, Volume: 1,
		}
	}
	return out
}

func validRequest() Request {
	return Request{
		Market:       "KRW-BTC",
		StrategyType: "sma_crossover",
		StartDate:    "2024-01-01",
		EndDate:      "2024-06-30",
		StrategyParams: map[string]interface{}{
			"fast_period": 2.0,
			"slow_period": 3.0,
		},
	}
}

func TestServiceRun_ValidationFailures(t *testing.T) {
	svc := NewService(&fakeCollector{candles: trendCandles(100)})

	tests := []struct {
		name   string
		mutate func(*Request)
		want   string
	}{
		{"bad start date", func(r *Request) { r.StartDate = "01/01/2024" }, "invalid start_date"},
		{"bad end date", func(r *Request) { r.EndDate = "soon" }, "invalid end_date"},
		{"start after end", func(r *Request) { r.StartDate, r.EndDate = r.EndDate, r.StartDate }, "before end_date"},
		{"missing market", func(r *Request) { r.Market = "" }, "market is required"},
		{"negative capital", func(r *Request) { r.InitialCapital = -5 }, "must be positive"},
		{"commission too high", func(r *Request) { c := 0.5; r.CommissionRate = &c }, "commission_rate"},
		{"bad interval", func(r *Request) { r.Interval = "minute7" }, "unsupported interval"},
		{"unknown strategy", func(r *Request) { r.StrategyType = "martingale" }, "unknown strategy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Run(context.Background(), req)
			require.NotNil(t, err)
			assert.Equal(t, KindValidation, err.Kind)
			assert.Contains(t, err.Message, tt.want)
		})
	}
}

func TestServiceRun_CollectorFailureIsDataError(t *testing.T) {
	svc := NewService(&fakeCollector{err: fmt.Errorf("exchange unreachable")})

	_, err := svc.Run(context.Background(), validRequest())
	require.NotNil(t, err)
	assert.Equal(t, KindData, err.Kind)
	assert.Contains(t, err.Message, "exchange unreachable")
}

func TestServiceRun_TooFewCandles(t *testing.T) {
	svc := NewService(&fakeCollector{candles: trendCandles(2)})

	_, err := svc.Run(context.Background(), validRequest())
	require.NotNil(t, err)
	assert.Equal(t, KindInsufficientData, err.Kind)
	assert.Contains(t, err.Message, "needs at least 3 candles, got 2")
}

func TestServiceRun_DefaultCapitalReport(t *testing.T) {
	svc := NewService(&fakeCollector{candles: trendCandles(60)})
	req := validRequest()
	g := false
	req.GenerateChart = &g

	report, err := svc.Run(context.Background(), req)
	require.Nil(t, err)

	info := report.StrategyInfo
	assert.Equal(t, "sma_crossover", info.Strategy)
	assert.Equal(t, "KRW-BTC", info.Market)
	assert.Equal(t, "day", info.Interval)
	assert.InDelta(t, float64(DefaultInitialCapital), info.InitialCapital, 1e-9)
	assert.Equal(t, "default", info.CapitalSource)
	assert.InDelta(t, DefaultCommissionRate, info.CommissionRate, 1e-12)
	assert.Equal(t, 60, info.TotalCandles)

	assert.NotEmpty(t, report.UserGuidance.CapitalNotice)
	assert.NotEmpty(t, report.UserGuidance.RecalculationGuide)
	assert.False(t, report.ChartInfo.ChartGenerated)

	// consistency between the two profit views
	assert.InDelta(t, report.PerformanceMetrics.TotalReturn*100,
		report.CapitalIndependentMetrics.TotalReturnPct, 1e-9)
}

func TestServiceRun_UserCapitalReport(t *testing.T) {
	svc := NewService(&fakeCollector{candles: trendCandles(60)})
	req := validRequest()
	req.InitialCapital = 5_000_000
	g := false
	req.GenerateChart = &g

	report, err := svc.Run(context.Background(), req)
	require.Nil(t, err)
	assert.Equal(t, "user_specified", report.StrategyInfo.CapitalSource)
	assert.Empty(t, report.UserGuidance.RecalculationGuide)
	assert.NotEmpty(t, report.UserGuidance.PerformanceNote)
}

type panicRenderer struct{}

func (panicRenderer) RenderBacktest(*model.BacktestReport, []model.Candle, []model.EquityPoint, string, string, string) (string, string, error) {
	return "", "", fmt.Errorf("disk full")
}

func TestServiceRun_ChartFailureDoesNotFailRun(t *testing.T) {
	svc := NewService(&fakeCollector{candles: trendCandles(60)}, WithRenderer(panicRenderer{}))

	report, err := svc.Run(context.Background(), validRequest())
	require.Nil(t, err)
	assert.False(t, report.ChartInfo.ChartGenerated)
	assert.Contains(t, report.ChartInfo.Error, "disk full")
}

type flakyStore struct{}

func (flakyStore) SaveRun(context.Context, *model.BacktestReport) error {
	return fmt.Errorf("database offline")
}

func TestServiceRun_StoreFailureDoesNotFailRun(t *testing.T) {
	svc := NewService(&fakeCollector{candles: trendCandles(60)}, WithStore(flakyStore{}))
	req := validRequest()
	g := false
	req.GenerateChart = &g

	report, err := svc.Run(context.Background(), req)
	require.Nil(t, err)
	require.NotNil(t, report)
}

// panicky blows up during Prepare, the way an indexing bug in a real
// strategy would.
type panicky struct{ scripted }

func (panicky) Prepare(model.PriceSeries) { panic("index out of range") }

func TestSimulate_PanicBecomesSimulationError(t *testing.T) {
	svc := NewService(&fakeCollector{})
	req := validRequest()
	req.applyDefaults()

	_, err := svc.simulate(&panicky{}, trendCandles(10), req)
	require.NotNil(t, err)
	assert.Equal(t, KindSimulation, err.Kind)
	assert.Contains(t, err.Message, "index out of range")
}
