package engine

import (
	"context"
	"fmt"
	"time"

	"upbit-backtester/internal/infrastructure"
	"upbit-backtester/internal/model"
	"upbit-backtester/internal/progress"
	"upbit-backtester/internal/strategy"
	"upbit-backtester/internal/upbit"
)

const (
	DefaultInitialCapital = 1_000_000
	DefaultCommissionRate = 0.0005
	DefaultInterval       = "day"

	dateLayout = "2006-01-02"
)

// Request are the caller-supplied backtest parameters. Zero values for
// capital, interval and commission take the documented defaults.
type Request struct {
	Market         string                 `json:"market"`
	StrategyType   string                 `json:"strategy_type"`
	StartDate      string                 `json:"start_date"`
	EndDate        string                 `json:"end_date"`
	InitialCapital float64                `json:"initial_capital"`
	Interval       string                 `json:"interval"`
	StrategyParams map[string]interface{} `json:"strategy_params"`
	CommissionRate *float64               `json:"commission_rate"`
	GenerateChart  *bool                  `json:"generate_chart"`
}

func (r *Request) applyDefaults() {
	if r.InitialCapital == 0 {
		r.InitialCapital = DefaultInitialCapital
	}
	if r.Interval == "" {
		r.Interval = DefaultInterval
	}
	if r.CommissionRate == nil {
		c := DefaultCommissionRate
		r.CommissionRate = &c
	}
	if r.GenerateChart == nil {
		g := true
		r.GenerateChart = &g
	}
	if r.StrategyParams == nil {
		r.StrategyParams = map[string]interface{}{}
	}
}

// CandleCollector abstracts the historical data collector.
type CandleCollector interface {
	Collect(ctx context.Context, market, interval string, start, end time.Time, obs progress.Observer) ([]model.Candle, error)
}

// ChartRenderer renders a backtest chart and returns the written filename
// and an image reference. Rendering is a presentation side effect; its
// failure never fails the run.
type ChartRenderer interface {
	RenderBacktest(report *model.BacktestReport, candles []model.Candle, equity []model.EquityPoint, market, strategyType, interval string) (filename, imageRef string, err error)
}

// RunStore archives finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, report *model.BacktestReport) error
}

// ReportPublisher announces finished runs to downstream consumers.
type ReportPublisher interface {
	PublishReport(report *model.BacktestReport) error
}

// Service orchestrates one backtest invocation end to end: validate,
// collect, simulate, analyze, assemble. Renderer, store and publisher are
// optional; their failures are isolated from the result.
type Service struct {
	collector CandleCollector
	renderer  ChartRenderer
	store     RunStore
	publisher ReportPublisher
	observer  progress.Observer
}

func NewService(collector CandleCollector, opts ...ServiceOption) *Service {
	s := &Service{collector: collector, observer: progress.Nop{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ServiceOption func(*Service)

func WithRenderer(r ChartRenderer) ServiceOption    { return func(s *Service) { s.renderer = r } }
func WithStore(st RunStore) ServiceOption           { return func(s *Service) { s.store = st } }
func WithPublisher(p ReportPublisher) ServiceOption { return func(s *Service) { s.publisher = p } }
func WithObserver(o progress.Observer) ServiceOption {
	return func(s *Service) { s.observer = o }
}

// Run executes one backtest. Returns either a complete report or a typed
// *Error; no partial results.
func (s *Service) Run(ctx context.Context, req Request) (*model.BacktestReport, *Error) {
	req.applyDefaults()
	began := time.Now()

	start, end, strat, verr := s.validate(&req)
	if verr != nil {
		infrastructure.BacktestRuns.WithLabelValues(req.StrategyType, "error").Inc()
		return nil, verr
	}
	progress.Emit(s.observer, "start", fmt.Sprintf("backtest %s %s (%s..%s)", req.Market, req.StrategyType, req.StartDate, req.EndDate))

	candles, err := s.collector.Collect(ctx, req.Market, req.Interval, start, end, s.observer)
	if err != nil {
		infrastructure.BacktestRuns.WithLabelValues(req.StrategyType, "error").Inc()
		return nil, dataErr("candle collection failed: %v", err)
	}

	if required := strat.MinCandles(); len(candles) < required {
		infrastructure.BacktestRuns.WithLabelValues(req.StrategyType, "error").Inc()
		return nil, insufficientErr("not enough data: strategy %s needs at least %d candles, got %d",
			req.StrategyType, required, len(candles))
	}

	res, serr := s.simulate(strat, candles, req)
	if serr != nil {
		infrastructure.BacktestRuns.WithLabelValues(req.StrategyType, "error").Inc()
		return nil, serr
	}

	report := s.assemble(req, candles, res)

	if *req.GenerateChart {
		s.renderChart(report, candles, res.EquityCurve, req)
	} else {
		report.ChartInfo = model.ChartInfo{
			ChartGenerated: false,
			Message:        "chart generation disabled",
		}
	}

	if s.store != nil {
		if err := s.store.SaveRun(ctx, report); err != nil {
			progress.Emit(s.observer, "store", fmt.Sprintf("saving run failed: %v", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishReport(report); err != nil {
			progress.Emit(s.observer, "publish", fmt.Sprintf("publishing report failed: %v", err))
		}
	}

	infrastructure.BacktestRuns.WithLabelValues(req.StrategyType, "ok").Inc()
	infrastructure.BacktestDuration.WithLabelValues(req.StrategyType).Observe(time.Since(began).Seconds())
	progress.Emit(s.observer, "done", fmt.Sprintf("backtest %s finished: total return %.2f%%",
		req.Market, report.PerformanceMetrics.TotalReturn*100))
	return report, nil
}

func (s *Service) validate(req *Request) (start, end time.Time, strat strategy.Strategy, verr *Error) {
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return start, end, nil, validationErr("invalid start_date %q: use YYYY-MM-DD", req.StartDate)
	}
	end, err = time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return start, end, nil, validationErr("invalid end_date %q: use YYYY-MM-DD", req.EndDate)
	}
	if !start.Before(end) {
		return start, end, nil, validationErr("start_date must be before end_date")
	}
	if req.Market == "" {
		return start, end, nil, validationErr("market is required")
	}
	if req.InitialCapital <= 0 {
		return start, end, nil, validationErr("initial_capital must be positive")
	}
	if c := *req.CommissionRate; c < 0 || c > 0.1 {
		return start, end, nil, validationErr("commission_rate must be within [0, 0.1]")
	}
	if !upbit.SupportedInterval(req.Interval) {
		return start, end, nil, validationErr("unsupported interval: %s", req.Interval)
	}
	strat, err = strategy.New(req.StrategyType, req.StrategyParams)
	if err != nil {
		return start, end, nil, validationErr("%v", err)
	}
	return start, end, strat, nil
}

// simulate runs the backtester with a panic guard: an unexpected numerical
// failure inside a strategy or the analyzer becomes a simulation error
// instead of taking down the invocation's goroutine.
func (s *Service) simulate(strat strategy.Strategy, candles []model.Candle, req Request) (res SimulationResult, serr *Error) {
	defer func() {
		if r := recover(); r != nil {
			serr = simulationErr("simulation failed for %s: %v", req.StrategyType, r)
		}
	}()
	res = NewBacktester(strat, req.InitialCapital, *req.CommissionRate).Run(candles, s.observer)
	return res, nil
}

func (s *Service) assemble(req Request, candles []model.Candle, res SimulationResult) *model.BacktestReport {
	metrics := ComputeMetrics(res.EquityCurve, res.Trades, req.InitialCapital, res.FinalValue)
	summary := Summarize(req.InitialCapital, res)

	capitalSource := "user_specified"
	if req.InitialCapital == DefaultInitialCapital {
		capitalSource = "default"
	}

	report := &model.BacktestReport{
		StrategyInfo: model.StrategyInfo{
			Strategy:       req.StrategyType,
			Market:         req.Market,
			Interval:       req.Interval,
			StartDate:      req.StartDate,
			EndDate:        req.EndDate,
			InitialCapital: req.InitialCapital,
			CapitalSource:  capitalSource,
			CommissionRate: *req.CommissionRate,
			StrategyParams: req.StrategyParams,
			TotalCandles:   len(candles),
		},
		PerformanceMetrics: metrics,
		TradeHistory:       EnhanceTrades(res.Trades),
		MonthlyReturns:     MonthlyReturns(res.EquityCurve),
		DrawdownPeriods:    DrawdownPeriods(res.EquityCurve),
		PortfolioSummary:   summary,
		CapitalIndependentMetrics: model.CapitalIndependentMetrics{
			Note:                "these metrics are identical for any initial capital",
			TotalReturnPct:      metrics.TotalReturn * 100,
			AnnualizedReturnPct: metrics.AnnualizedReturn * 100,
			SharpeRatio:         metrics.SharpeRatio,
			MaxDrawdownPct:      metrics.MaxDrawdown * 100,
			WinRatePct:          metrics.WinRate * 100,
		},
	}

	if capitalSource == "default" {
		report.UserGuidance = model.UserGuidance{
			CapitalNotice:      fmt.Sprintf("no initial capital given; the default of %.0f KRW was used", float64(DefaultInitialCapital)),
			RecalculationGuide: "set the initial_capital parameter to recompute with a different capital",
			QuickCalculation: fmt.Sprintf("rough scaling: (desired capital / 1,000,000) x %.0f KRW profit",
				summary.AbsoluteProfit),
			Examples: []string{
				fmt.Sprintf("with 5,000,000 KRW: about %.0f KRW profit", summary.AbsoluteProfit*5),
				fmt.Sprintf("with 10,000,000 KRW: about %.0f KRW profit", summary.AbsoluteProfit*10),
			},
		}
	} else {
		report.UserGuidance = model.UserGuidance{
			CapitalNotice:   fmt.Sprintf("results computed with your initial capital of %.0f KRW", req.InitialCapital),
			PerformanceNote: "all figures above are relative to the capital you specified",
		}
	}
	return report
}

func (s *Service) renderChart(report *model.BacktestReport, candles []model.Candle, equity []model.EquityPoint, req Request) {
	if s.renderer == nil {
		report.ChartInfo = model.ChartInfo{
			ChartGenerated: false,
			Message:        "no chart renderer configured",
		}
		return
	}
	progress.Emit(s.observer, "chart", "rendering backtest chart")
	filename, imageRef, err := s.renderer.RenderBacktest(report, candles, equity, req.Market, req.StrategyType, req.Interval)
	if err != nil {
		report.ChartInfo = model.ChartInfo{
			ChartGenerated: false,
			Error:          err.Error(),
			Message:        "chart rendering failed; the backtest result itself is unaffected",
		}
		return
	}
	report.ChartInfo = model.ChartInfo{
		ChartGenerated: true,
		Filename:       filename,
		ImageURL:       imageRef,
		Message:        "backtest chart generated",
	}
}
