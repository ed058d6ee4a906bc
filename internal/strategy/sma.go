package strategy

import (
	"fmt"
	"math"

	"upbit-backtester/internal/indicator"
	"upbit-backtester/internal/model"
)

// SMACrossover buys on a golden cross (fast SMA crossing above slow SMA)
// and sells on the dead cross.
type SMACrossover struct {
	fastPeriod int
	slowPeriod int

	fast []float64
	slow []float64
}

func NewSMACrossover(fastPeriod, slowPeriod int) *SMACrossover {
	return &SMACrossover{fastPeriod: fastPeriod, slowPeriod: slowPeriod}
}

func (s *SMACrossover) Name() string { return "sma_crossover" }

func (s *SMACrossover) Validate() error {
	if s.fastPeriod < 1 || s.slowPeriod < 1 {
		return fmt.Errorf("moving average periods must be at least 1")
	}
	if s.fastPeriod >= s.slowPeriod {
		return fmt.Errorf("fast period (%d) must be smaller than slow period (%d)", s.fastPeriod, s.slowPeriod)
	}
	return nil
}

func (s *SMACrossover) MinCandles() int {
	if s.fastPeriod > s.slowPeriod {
		return s.fastPeriod
	}
	return s.slowPeriod
}

func (s *SMACrossover) Warmup() int { return s.slowPeriod }

func (s *SMACrossover) Prepare(series model.PriceSeries) {
	s.fast = indicator.SMA(series.Closes, s.fastPeriod)
	s.slow = indicator.SMA(series.Closes, s.slowPeriod)
}

func (s *SMACrossover) OnIndex(i int, flat bool) Action {
	prevFast, prevSlow := s.fast[i-1], s.slow[i-1]
	currFast, currSlow := s.fast[i], s.slow[i]
	if math.IsNaN(prevFast) || math.IsNaN(prevSlow) || math.IsNaN(currFast) || math.IsNaN(currSlow) {
		return ActionHold
	}
	if flat && prevFast <= prevSlow && currFast > currSlow {
		return ActionBuy
	}
	if !flat && prevFast >= prevSlow && currFast < currSlow {
		return ActionSell
	}
	return ActionHold
}

func (s *SMACrossover) Diagnostics(i int) map[string]float64 {
	return map[string]float64{
		"fast_sma": s.fast[i],
		"slow_sma": s.slow[i],
	}
}
