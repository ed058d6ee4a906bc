package model

import (
	"encoding/json"
	"math"
	"time"
)

// JSONFloat encodes like a plain float64 but survives non-finite values:
// +Inf/-Inf become the strings "Infinity"/"-Infinity" and NaN becomes null,
// instead of failing the encoder. Profit factor is +Inf when a run has no
// losing trades.
type JSONFloat float64

func (f JSONFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(v):
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *JSONFloat) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"Infinity"`:
		*f = JSONFloat(math.Inf(1))
		return nil
	case `"-Infinity"`:
		*f = JSONFloat(math.Inf(-1))
		return nil
	case "null":
		*f = JSONFloat(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = JSONFloat(v)
	return nil
}

// Trade is one executed position transition. BUY trades are only emitted
// from a flat position, SELL trades only from a long one. Indicators holds
// strategy diagnostics captured at execution (rsi, bb_position, macd, ...).
type Trade struct {
	Time           time.Time          `json:"date"`
	Action         string             `json:"action"` // "BUY" or "SELL"
	Price          float64            `json:"price"`
	Quantity       float64            `json:"quantity"`
	Commission     float64            `json:"commission"`
	CashBalance    float64            `json:"cash_balance"`
	AssetBalance   float64            `json:"asset_balance"`
	Indicators     map[string]float64 `json:"indicators,omitempty"`
	PortfolioValue float64            `json:"portfolio_value"`
	TradeProfit    float64            `json:"trade_profit"`
	TradeReturn    float64            `json:"trade_return"`
}

const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// EquityPoint is one mark-to-market observation of the simulated portfolio;
// one point is produced per simulated candle.
type EquityPoint struct {
	Time  time.Time `json:"date"`
	Value float64   `json:"value"`
	Price float64   `json:"price"`
}

type PerformanceMetrics struct {
	TotalReturn      float64   `json:"total_return"`
	AnnualizedReturn float64   `json:"annualized_return"`
	Volatility       float64   `json:"volatility"`
	SharpeRatio      float64   `json:"sharpe_ratio"`
	MaxDrawdown      float64   `json:"max_drawdown"` // negative
	WinRate          float64   `json:"win_rate"`
	ProfitFactor     JSONFloat `json:"profit_factor"`
	TotalTrades      int       `json:"total_trades"`
}

// DrawdownPeriod is one completed peak-to-recovery decline in the equity
// curve. Drawdown is negative; a decline still in progress at series end is
// not reported.
type DrawdownPeriod struct {
	PeakDate     time.Time `json:"peak_date"`
	TroughDate   time.Time `json:"trough_date"`
	RecoveryDate time.Time `json:"recovery_date"`
	Drawdown     float64   `json:"drawdown"`
}

type PortfolioSummary struct {
	InitialCapital     float64 `json:"initial_capital"`
	FinalCashBalance   float64 `json:"final_cash_balance"`
	FinalAssetQuantity float64 `json:"final_asset_quantity"`
	FinalAssetPrice    float64 `json:"final_asset_price"`
	FinalAssetValue    float64 `json:"final_asset_value"`
	FinalTotalValue    float64 `json:"final_total_value"`
	AbsoluteProfit     float64 `json:"absolute_profit"`
	PositionStatus     string  `json:"position_status"` // CASH, HOLDING_ASSET or MIXED
	RealizedProfit     float64 `json:"realized_profit"`
	UnrealizedProfit   float64 `json:"unrealized_profit"`
	RealizedReturn     float64 `json:"realized_return"`
	UnrealizedReturn   float64 `json:"unrealized_return"`
}

type StrategyInfo struct {
	Strategy       string                 `json:"strategy"`
	Market         string                 `json:"market"`
	Interval       string                 `json:"interval"`
	StartDate      string                 `json:"start_date"`
	EndDate        string                 `json:"end_date"`
	InitialCapital float64                `json:"initial_capital"`
	CapitalSource  string                 `json:"capital_source"` // "default" or "user_specified"
	CommissionRate float64                `json:"commission_rate"`
	StrategyParams map[string]interface{} `json:"strategy_params"`
	TotalCandles   int                    `json:"total_candles"`
}

type UserGuidance struct {
	CapitalNotice      string   `json:"capital_notice"`
	RecalculationGuide string   `json:"recalculation_guide,omitempty"`
	QuickCalculation   string   `json:"quick_calculation,omitempty"`
	Examples           []string `json:"examples,omitempty"`
	PerformanceNote    string   `json:"performance_note,omitempty"`
}

// CapitalIndependentMetrics restates the capital-free metrics as
// percentages; identical for any initial capital.
type CapitalIndependentMetrics struct {
	Note                string  `json:"note"`
	TotalReturnPct      float64 `json:"total_return_pct"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`
	SharpeRatio         float64 `json:"sharpe_ratio"`
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	WinRatePct          float64 `json:"win_rate_pct"`
}

type ChartInfo struct {
	ChartGenerated bool   `json:"chart_generated"`
	ImageURL       string `json:"image_url,omitempty"`
	Filename       string `json:"filename,omitempty"`
	Message        string `json:"message"`
	Error          string `json:"error,omitempty"`
}

// BacktestReport is the full result of one backtest invocation.
type BacktestReport struct {
	StrategyInfo              StrategyInfo              `json:"strategy_info"`
	PerformanceMetrics        PerformanceMetrics        `json:"performance_metrics"`
	TradeHistory              []Trade                   `json:"trade_history"`
	MonthlyReturns            map[string]float64        `json:"monthly_returns"`
	DrawdownPeriods           []DrawdownPeriod          `json:"drawdown_periods"`
	PortfolioSummary          PortfolioSummary          `json:"portfolio_summary"`
	UserGuidance              UserGuidance              `json:"user_guidance"`
	CapitalIndependentMetrics CapitalIndependentMetrics `json:"capital_independent_metrics"`
	ChartInfo                 ChartInfo                 `json:"chart_info"`
}
