// Package indicator provides stateless technical-indicator functions over
// float64 series. Every function allocates and returns fresh output slices;
// positions without enough trailing history hold math.NaN(). Callers must
// treat NaN as "no signal".
package indicator

import "math"

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA is the simple moving average; defined from index period-1.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 1 {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA is the exponential moving average seeded with the SMA of the first
// period samples at index period-1, then ema[i] = v*k + ema[i-1]*(1-k) with
// k = 2/(period+1).
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 1 || len(values) < period {
		return out
	}
	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	out[period-1] = seed / float64(period)
	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// RSI computes the Relative Strength Index with Wilder's smoothing. The
// first defined value is at index period; RSI is 100 when the smoothed loss
// is zero.
func RSI(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 1 || len(values) < period+1 {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss += -delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// BollingerBands returns upper/middle/lower bands: SMA(period) ± numStd
// rolling population standard deviations.
func BollingerBands(values []float64, period int, numStd float64) (upper, middle, lower []float64) {
	upper = nanSlice(len(values))
	middle = nanSlice(len(values))
	lower = nanSlice(len(values))
	if period < 1 {
		return
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		var sum float64
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(period)
		var sq float64
		for _, v := range window {
			d := v - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(period))
		middle[i] = mean
		upper[i] = mean + std*numStd
		lower[i] = mean - std*numStd
	}
	return
}

// MACD returns the MACD line (EMA(fast)-EMA(slow)), its signal line
// (EMA(signal) of the MACD line, computed from the point the MACD line is
// first defined) and the histogram (macd - signal).
func MACD(values []float64, fast, slow, signal int) (macdLine, signalLine, histogram []float64) {
	n := len(values)
	macdLine = nanSlice(n)
	signalLine = nanSlice(n)
	histogram = nanSlice(n)
	if n < slow {
		return
	}
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	for i := slow - 1; i < n; i++ {
		macdLine[i] = emaFast[i] - emaSlow[i]
	}
	offset := slow - 1
	if n-offset >= signal {
		sub := EMA(macdLine[offset:], signal)
		for i, v := range sub {
			signalLine[offset+i] = v
		}
	}
	for i := 0; i < n; i++ {
		histogram[i] = macdLine[i] - signalLine[i]
	}
	return
}

// RollingHigh is the maximum over the trailing window of size period.
func RollingHigh(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 1 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		max := values[i-period+1]
		for _, v := range values[i-period+2 : i+1] {
			if v > max {
				max = v
			}
		}
		out[i] = max
	}
	return out
}

// RollingLow is the minimum over the trailing window of size period.
func RollingLow(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 1 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		min := values[i-period+1]
		for _, v := range values[i-period+2 : i+1] {
			if v < min {
				min = v
			}
		}
		out[i] = min
	}
	return out
}

// ATR is the simple moving average of the true range. The true range at i
// is max(high-low, |high-prevClose|, |low-prevClose|), undefined at i=0;
// the first ATR value lands at index period.
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(highs)
	out := nanSlice(n)
	if n < 2 || period < 1 {
		return out
	}
	tr := nanSlice(n)
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	for i := period; i < n; i++ {
		var sum float64
		ok := true
		for _, v := range tr[i-period+1 : i+1] {
			if math.IsNaN(v) {
				ok = false
				break
			}
			sum += v
		}
		if ok {
			out[i] = sum / float64(period)
		}
	}
	return out
}
