package strategy

import (
	"fmt"
	"math"

	"upbit-backtester/internal/indicator"
	"upbit-backtester/internal/model"
)

// MACDSignal buys when the MACD line crosses above its signal line and
// sells when it crosses back below.
type MACDSignal struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int

	macd      []float64
	signal    []float64
	histogram []float64

	prevAbove bool
}

func NewMACDSignal(fastPeriod, slowPeriod, signalPeriod int) *MACDSignal {
	return &MACDSignal{fastPeriod: fastPeriod, slowPeriod: slowPeriod, signalPeriod: signalPeriod}
}

func (s *MACDSignal) Name() string { return "macd_signal" }

func (s *MACDSignal) Validate() error {
	if s.fastPeriod < 1 || s.slowPeriod < 1 || s.signalPeriod < 1 {
		return fmt.Errorf("macd periods must be at least 1")
	}
	if s.fastPeriod >= s.slowPeriod {
		return fmt.Errorf("macd fast period (%d) must be smaller than slow period (%d)", s.fastPeriod, s.slowPeriod)
	}
	return nil
}

func (s *MACDSignal) MinCandles() int {
	max := s.slowPeriod
	if s.fastPeriod > max {
		max = s.fastPeriod
	}
	return max + s.signalPeriod
}

func (s *MACDSignal) Warmup() int { return s.slowPeriod + s.signalPeriod }

func (s *MACDSignal) Prepare(series model.PriceSeries) {
	s.macd, s.signal, s.histogram = indicator.MACD(series.Closes, s.fastPeriod, s.slowPeriod, s.signalPeriod)
	s.prevAbove = false
}

func (s *MACDSignal) OnIndex(i int, flat bool) Action {
	macd, signal := s.macd[i], s.signal[i]
	if math.IsNaN(macd) || math.IsNaN(signal) {
		return ActionHold
	}
	above := macd > signal
	action := ActionHold
	if flat && above && !s.prevAbove {
		action = ActionBuy
	} else if !flat && !above && s.prevAbove {
		action = ActionSell
	}
	s.prevAbove = above
	return action
}

func (s *MACDSignal) Diagnostics(i int) map[string]float64 {
	d := map[string]float64{
		"macd":   s.macd[i],
		"signal": s.signal[i],
	}
	if !math.IsNaN(s.histogram[i]) {
		d["histogram"] = s.histogram[i]
	}
	return d
}
