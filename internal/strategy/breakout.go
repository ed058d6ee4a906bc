package strategy

import (
	"fmt"
	"math"

	"upbit-backtester/internal/indicator"
	"upbit-backtester/internal/model"
)

// Breakout is a Donchian-channel trend follower: it buys when the close
// breaks above the prior lookback-candle high and sells when the close
// breaks below the prior exitLookback-candle low. With the ATR filter on,
// entries additionally require a breakout distance of at least half an ATR.
type Breakout struct {
	lookback     int
	exitLookback int
	atrPeriod    int
	atrFilter    bool

	closes     []float64
	entryHighs []float64
	exitLows   []float64
	atr        []float64
}

func NewBreakout(lookback, exitLookback, atrPeriod int, atrFilter bool) *Breakout {
	return &Breakout{lookback: lookback, exitLookback: exitLookback, atrPeriod: atrPeriod, atrFilter: atrFilter}
}

func (s *Breakout) Name() string { return "breakout" }

func (s *Breakout) Validate() error {
	if s.lookback < 1 || s.exitLookback < 1 {
		return fmt.Errorf("breakout channel periods must be at least 1")
	}
	if s.atrPeriod < 1 {
		return fmt.Errorf("atr period must be at least 1")
	}
	if s.lookback <= s.exitLookback {
		return fmt.Errorf("entry lookback (%d) must be longer than exit lookback (%d)", s.lookback, s.exitLookback)
	}
	return nil
}

func (s *Breakout) MinCandles() int {
	max := s.lookback
	if s.exitLookback > max {
		max = s.exitLookback
	}
	if s.atrPeriod > max {
		max = s.atrPeriod
	}
	return max + 5
}

func (s *Breakout) Warmup() int { return s.lookback }

func (s *Breakout) Prepare(series model.PriceSeries) {
	s.closes = series.Closes
	s.entryHighs = indicator.RollingHigh(series.Highs, s.lookback)
	s.exitLows = indicator.RollingLow(series.Lows, s.exitLookback)
	if s.atrFilter {
		s.atr = indicator.ATR(series.Highs, series.Lows, series.Closes, s.atrPeriod)
	}
}

func (s *Breakout) OnIndex(i int, flat bool) Action {
	price := s.closes[i]
	// Channels are evaluated against the prior candle so the breakout
	// candle itself is excluded from its own level.
	entryLevel := s.entryHighs[i-1]
	exitLevel := s.exitLows[i-1]

	if flat && !math.IsNaN(entryLevel) && price > entryLevel {
		if s.atrFilter && i >= s.atrPeriod {
			if atr := s.atr[i]; !math.IsNaN(atr) && price-entryLevel < atr*0.5 {
				return ActionHold
			}
		}
		return ActionBuy
	}
	if !flat && !math.IsNaN(exitLevel) && price < exitLevel {
		return ActionSell
	}
	return ActionHold
}

func (s *Breakout) Diagnostics(i int) map[string]float64 {
	d := map[string]float64{}
	if i > 0 {
		if level := s.entryHighs[i-1]; !math.IsNaN(level) {
			d["entry_level"] = level
			d["breakout_strength"] = s.closes[i] - level
		}
		if level := s.exitLows[i-1]; !math.IsNaN(level) {
			d["exit_level"] = level
		}
	}
	if s.atrFilter && s.atr != nil && !math.IsNaN(s.atr[i]) {
		d["atr"] = s.atr[i]
	}
	return d
}
