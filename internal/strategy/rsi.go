package strategy

import (
	"fmt"
	"math"

	"upbit-backtester/internal/indicator"
	"upbit-backtester/internal/model"
)

// RSIOversold buys when RSI enters the oversold zone and sells when it
// enters the overbought zone. Both signals are edge-triggered: they fire
// once upon crossing into the zone, not on every step inside it.
type RSIOversold struct {
	period     int
	oversold   float64
	overbought float64

	rsi []float64

	prevOversold   bool
	prevOverbought bool
}

func NewRSIOversold(period int, oversold, overbought float64) *RSIOversold {
	return &RSIOversold{period: period, oversold: oversold, overbought: overbought}
}

func (s *RSIOversold) Name() string { return "rsi_oversold" }

func (s *RSIOversold) Validate() error {
	if s.period < 2 {
		return fmt.Errorf("rsi period must be at least 2")
	}
	if s.oversold >= s.overbought {
		return fmt.Errorf("oversold threshold (%.1f) must be below overbought threshold (%.1f)", s.oversold, s.overbought)
	}
	if s.oversold < 0 || s.overbought > 100 {
		return fmt.Errorf("rsi thresholds must lie within 0-100")
	}
	return nil
}

func (s *RSIOversold) MinCandles() int { return s.period + 1 }

func (s *RSIOversold) Warmup() int { return s.period }

func (s *RSIOversold) Prepare(series model.PriceSeries) {
	s.rsi = indicator.RSI(series.Closes, s.period)
	s.prevOversold = false
	s.prevOverbought = false
}

func (s *RSIOversold) OnIndex(i int, flat bool) Action {
	rsi := s.rsi[i]
	if math.IsNaN(rsi) {
		return ActionHold
	}
	action := ActionHold
	if flat && rsi <= s.oversold && !s.prevOversold {
		action = ActionBuy
	} else if !flat && rsi >= s.overbought && !s.prevOverbought {
		action = ActionSell
	}
	s.prevOversold = rsi <= s.oversold
	s.prevOverbought = rsi >= s.overbought
	return action
}

func (s *RSIOversold) Diagnostics(i int) map[string]float64 {
	return map[string]float64{"rsi": s.rsi[i]}
}
