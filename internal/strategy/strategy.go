// Package strategy holds the closed set of trading strategies the backtest
// engine can simulate. Each strategy validates its own parameters,
// precomputes its indicators over the full price series, and emits one
// action per candle index.
package strategy

import (
	"fmt"

	"upbit-backtester/internal/model"
)

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Strategy is the single polymorphic contract the engine drives. OnIndex is
// called for every index from Warmup() upward, in ascending order; flat
// reports whether the portfolio currently holds cash only. Implementations
// may keep edge-trigger state across calls but must be deterministic for a
// given series.
type Strategy interface {
	Name() string

	// Validate checks parameter relationships; it runs before any data
	// is fetched.
	Validate() error

	// MinCandles is the fewest candles the strategy can be simulated on.
	MinCandles() int

	// Warmup is the first index with enough history to evaluate signals.
	Warmup() int

	// Prepare computes indicators over the full series.
	Prepare(series model.PriceSeries)

	// OnIndex returns the action at index i. Entry signals are only
	// returned when flat, exit signals only when not.
	OnIndex(i int, flat bool) Action

	// Diagnostics reports indicator values worth attaching to a trade
	// executed at index i.
	Diagnostics(i int) map[string]float64
}

// New builds a strategy from its wire tag and parameter bag (JSON numbers
// arrive as float64) and validates it. Unknown tags and the reserved
// "custom" tag are rejected.
func New(strategyType string, params map[string]interface{}) (Strategy, error) {
	var s Strategy
	switch strategyType {
	case "sma_crossover":
		s = NewSMACrossover(
			intParam(params, "fast_period", 20),
			intParam(params, "slow_period", 50),
		)
	case "rsi_oversold":
		s = NewRSIOversold(
			intParam(params, "rsi_period", 14),
			floatParam(params, "oversold_threshold", 30),
			floatParam(params, "overbought_threshold", 70),
		)
	case "bollinger_bands":
		s = NewBollinger(
			intParam(params, "period", 20),
			floatParam(params, "std_dev", 2),
			floatParam(params, "buy_threshold", 0.1),
			floatParam(params, "sell_threshold", 0.9),
		)
	case "macd_signal":
		s = NewMACDSignal(
			intParam(params, "fast_period", 12),
			intParam(params, "slow_period", 26),
			intParam(params, "signal_period", 9),
		)
	case "breakout":
		s = NewBreakout(
			intParam(params, "lookback", 55),
			intParam(params, "exit_lookback", 20),
			intParam(params, "atr_period", 14),
			boolParam(params, "atr_filter", false),
		)
	case "custom":
		return nil, fmt.Errorf("custom strategies are not supported yet")
	default:
		return nil, fmt.Errorf("unknown strategy type: %s", strategyType)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func floatParam(params map[string]interface{}, key string, def float64) float64 {
	if params == nil {
		return def
	}
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func intParam(params map[string]interface{}, key string, def int) int {
	return int(floatParam(params, key, float64(def)))
}

func boolParam(params map[string]interface{}, key string, def bool) bool {
	if params == nil {
		return def
	}
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}
