package strategy

import (
	"fmt"
	"math"

	"upbit-backtester/internal/indicator"
	"upbit-backtester/internal/model"
)

// Bollinger trades on the close's normalized position inside the bands:
// (price - lower) / (upper - lower). At or below buyThreshold it buys, at
// or above sellThreshold it sells.
type Bollinger struct {
	period        int
	numStd        float64
	buyThreshold  float64
	sellThreshold float64

	closes []float64
	upper  []float64
	lower  []float64
}

func NewBollinger(period int, numStd, buyThreshold, sellThreshold float64) *Bollinger {
	return &Bollinger{period: period, numStd: numStd, buyThreshold: buyThreshold, sellThreshold: sellThreshold}
}

func (s *Bollinger) Name() string { return "bollinger_bands" }

func (s *Bollinger) Validate() error {
	if s.period < 2 {
		return fmt.Errorf("bollinger period must be at least 2")
	}
	if s.numStd <= 0 {
		return fmt.Errorf("std dev multiplier must be positive")
	}
	if s.buyThreshold >= s.sellThreshold {
		return fmt.Errorf("buy threshold (%.2f) must be below sell threshold (%.2f)", s.buyThreshold, s.sellThreshold)
	}
	if s.buyThreshold < 0 || s.sellThreshold > 1 {
		return fmt.Errorf("band thresholds must lie within 0-1")
	}
	return nil
}

func (s *Bollinger) MinCandles() int { return s.period }

func (s *Bollinger) Warmup() int { return s.period }

func (s *Bollinger) Prepare(series model.PriceSeries) {
	s.closes = series.Closes
	s.upper, _, s.lower = indicator.BollingerBands(series.Closes, s.period, s.numStd)
}

func (s *Bollinger) OnIndex(i int, flat bool) Action {
	upper, lower := s.upper[i], s.lower[i]
	if math.IsNaN(upper) || math.IsNaN(lower) {
		return ActionHold
	}
	width := upper - lower
	if width <= 0 {
		return ActionHold
	}
	position := (s.closes[i] - lower) / width
	if flat && position <= s.buyThreshold {
		return ActionBuy
	}
	if !flat && position >= s.sellThreshold {
		return ActionSell
	}
	return ActionHold
}

func (s *Bollinger) Diagnostics(i int) map[string]float64 {
	d := map[string]float64{
		"bb_upper": s.upper[i],
		"bb_lower": s.lower[i],
	}
	if width := s.upper[i] - s.lower[i]; width > 0 {
		d["bb_position"] = (s.closes[i] - s.lower[i]) / width
	}
	return d
}
