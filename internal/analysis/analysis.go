// Package analysis produces a current technical snapshot for a market: the
// latest SMA/RSI/Bollinger/MACD/volume readings over a recent candle window,
// a per-indicator signal for each, and one combined trading signal.
package analysis

import (
	"encoding/json"
	"math"
	"sort"

	"upbit-backtester/internal/indicator"
	"upbit-backtester/internal/model"
)

// Signal vocabulary. Trend indicators report bullish/bearish, oscillators
// report overbought/oversold; the combined signal folds both families
// together (oversold counts toward buying, overbought toward selling).
const (
	SignalNeutral    = "neutral"
	SignalBullish    = "bullish"
	SignalBearish    = "bearish"
	SignalOverbought = "overbought"
	SignalOversold   = "oversold"

	SignalStrongBuy  = "strong_buy"
	SignalBuy        = "buy"
	SignalSell       = "sell"
	SignalStrongSell = "strong_sell"
)

// Float encodes like a float64 but renders NaN as the string "N/A", so a
// snapshot over a short history stays readable instead of failing the
// encoder.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) {
		return []byte(`"N/A"`), nil
	}
	return json.Marshal(float64(f))
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == `"N/A"` {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

type SMASnapshot struct {
	SMA20  Float `json:"sma_20"`
	SMA50  Float `json:"sma_50"`
	SMA200 Float `json:"sma_200"`
}

type BandSnapshot struct {
	Upper  Float `json:"upper"`
	Middle Float `json:"middle"`
	Lower  Float `json:"lower"`
}

type MACDSnapshot struct {
	MACD      Float `json:"macd"`
	Signal    Float `json:"signal"`
	Histogram Float `json:"histogram"`
}

// VolumeSnapshot relates the latest bar's volume to its 20-bar average.
type VolumeSnapshot struct {
	Current Float `json:"current"`
	SMA     Float `json:"sma"`
	Ratio   Float `json:"ratio"`
}

type Indicators struct {
	SMA            SMASnapshot    `json:"sma"`
	RSI            Float          `json:"rsi"`
	BollingerBands BandSnapshot   `json:"bollinger_bands"`
	MACD           MACDSnapshot   `json:"macd"`
	Volume         VolumeSnapshot `json:"volume"`
}

type Signals struct {
	MA      string `json:"ma_signal"`
	RSI     string `json:"rsi_signal"`
	BB      string `json:"bb_signal"`
	MACD    string `json:"macd_signal"`
	Volume  string `json:"volume_signal"`
	Overall string `json:"overall_signal"`
}

type Report struct {
	Status       string     `json:"status"`
	Market       string     `json:"market"`
	Interval     string     `json:"interval"`
	CurrentPrice Float      `json:"current_price"`
	Indicators   Indicators `json:"indicators"`
	Signals      Signals    `json:"signals"`
}

// Analyze computes the snapshot over candles, which may arrive in any order;
// they are evaluated oldest to newest. Indicators without enough history
// come back as NaN and contribute a neutral signal.
func Analyze(market, interval string, candles []model.Candle) *Report {
	sorted := make([]model.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	series := model.NewPriceSeries(sorted)
	closes, volumes := series.Closes, series.Volumes

	price := last(closes)
	sma20 := last(indicator.SMA(closes, 20))
	sma50 := last(indicator.SMA(closes, 50))
	sma200 := last(indicator.SMA(closes, 200))
	rsi := last(indicator.RSI(closes, 14))
	bbUpper, bbMiddle, bbLower := indicator.BollingerBands(closes, 20, 2)
	macdLine, signalLine, histogram := indicator.MACD(closes, 12, 26, 9)

	volCurrent := last(volumes)
	volSMA := last(indicator.SMA(volumes, 20))
	volRatio := math.NaN()
	if !math.IsNaN(volSMA) && volSMA > 0 && !math.IsNaN(volCurrent) {
		volRatio = volCurrent / volSMA
	}

	signals := Signals{
		MA:     maSignal(price, sma20, sma50, sma200),
		RSI:    rsiSignal(rsi),
		BB:     bandSignal(price, last(bbUpper), last(bbLower)),
		MACD:   macdSignal(last(macdLine), last(signalLine), last(histogram)),
		Volume: volumeSignal(volRatio),
	}
	signals.Overall = overallSignal(signals.MA, signals.RSI, signals.BB, signals.MACD)

	return &Report{
		Status:       "ok",
		Market:       market,
		Interval:     interval,
		CurrentPrice: Float(price),
		Indicators: Indicators{
			SMA:            SMASnapshot{SMA20: Float(sma20), SMA50: Float(sma50), SMA200: Float(sma200)},
			RSI:            Float(rsi),
			BollingerBands: BandSnapshot{Upper: Float(last(bbUpper)), Middle: Float(last(bbMiddle)), Lower: Float(last(bbLower))},
			MACD:           MACDSnapshot{MACD: Float(last(macdLine)), Signal: Float(last(signalLine)), Histogram: Float(last(histogram))},
			Volume:         VolumeSnapshot{Current: Float(volCurrent), SMA: Float(volSMA), Ratio: Float(volRatio)},
		},
		Signals: signals,
	}
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// maSignal fires only once the 200-bar average exists, so a young market
// never reads as trending.
func maSignal(price, sma20, sma50, sma200 float64) string {
	if anyNaN(price, sma20, sma50, sma200) {
		return SignalNeutral
	}
	switch {
	case price > sma20 && sma20 > sma50:
		return SignalBullish
	case price < sma20 && sma20 < sma50:
		return SignalBearish
	}
	return SignalNeutral
}

func rsiSignal(rsi float64) string {
	switch {
	case math.IsNaN(rsi):
		return SignalNeutral
	case rsi > 70:
		return SignalOverbought
	case rsi < 30:
		return SignalOversold
	}
	return SignalNeutral
}

func bandSignal(price, upper, lower float64) string {
	if anyNaN(price, upper, lower) {
		return SignalNeutral
	}
	switch {
	case price > upper:
		return SignalOverbought
	case price < lower:
		return SignalOversold
	}
	return SignalNeutral
}

func macdSignal(macd, signal, histogram float64) string {
	if anyNaN(macd, signal, histogram) {
		return SignalNeutral
	}
	switch {
	case macd > signal && histogram > 0:
		return SignalBullish
	case macd < signal && histogram < 0:
		return SignalBearish
	}
	return SignalNeutral
}

func volumeSignal(ratio float64) string {
	switch {
	case math.IsNaN(ratio):
		return SignalNeutral
	case ratio > 1.5:
		return "high"
	case ratio < 0.5:
		return "low"
	}
	return SignalNeutral
}

// overallSignal combines the non-neutral indicator signals. Volume is
// informational only and never votes. Thresholds: 60% agreement is a strong
// signal, a 40% plurality a plain one.
func overallSignal(signals ...string) string {
	var defined, bullish, bearish int
	for _, s := range signals {
		switch s {
		case SignalBullish, SignalOversold:
			defined++
			bullish++
		case SignalBearish, SignalOverbought:
			defined++
			bearish++
		}
	}
	if defined == 0 {
		return SignalNeutral
	}

	strong := math.Max(1, float64(defined)*0.6)
	plain := math.Max(1, float64(defined)*0.4)
	b, s := float64(bullish), float64(bearish)
	switch {
	case b >= strong:
		return SignalStrongBuy
	case b > s && b >= plain:
		return SignalBuy
	case s >= strong:
		return SignalStrongSell
	case s > b && s >= plain:
		return SignalSell
	}
	return SignalNeutral
}
