package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := SMA(values, 3)

	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	// (1+2+3)/3 = 2, (2+3+4)/3 = 3, (3+4+5)/3 = 4
	assert.InDelta(t, 2.0, out[2], 1e-9)
	assert.InDelta(t, 3.0, out[3], 1e-9)
	assert.InDelta(t, 4.0, out[4], 1e-9)
}

func TestSMA_PeriodLargerThanSeries(t *testing.T) {
	out := SMA([]float64{1, 2}, 5)
	for _, v := range out {
		assert.True(t, math.IsNaN(v))
	}
}

func TestEMA_SeedIsSMA(t *testing.T) {
	values := []float64{2, 4, 6, 8}
	out := EMA(values, 3)

	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	// seed = (2+4+6)/3 = 4, k = 2/4 = 0.5 -> 8*0.5 + 4*0.5 = 6
	assert.InDelta(t, 4.0, out[2], 1e-9)
	assert.InDelta(t, 6.0, out[3], 1e-9)
}

func TestRSI_Bounds(t *testing.T) {
	values := []float64{44, 44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84,
		46.08, 45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03, 46.41, 46.22}
	out := RSI(values, 14)

	for i := 0; i < 14; i++ {
		assert.True(t, math.IsNaN(out[i]), "index %d should be undefined", i)
	}
	for i := 14; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i], 0.0)
		assert.LessOrEqual(t, out[i], 100.0)
	}
}

func TestRSI_AllGainsIs100(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7}
	out := RSI(values, 3)
	assert.InDelta(t, 100.0, out[3], 1e-9)
	assert.InDelta(t, 100.0, out[6], 1e-9)
}

func TestBollingerBands(t *testing.T) {
	values := []float64{2, 2, 2, 2}
	upper, middle, lower := BollingerBands(values, 3, 2)

	assert.True(t, math.IsNaN(middle[1]))
	// constant series: std = 0, all bands collapse onto the mean
	assert.InDelta(t, 2.0, middle[2], 1e-9)
	assert.InDelta(t, 2.0, upper[2], 1e-9)
	assert.InDelta(t, 2.0, lower[2], 1e-9)

	// verify ordering on a moving series
	values = []float64{1, 2, 3, 4, 5, 6}
	upper, middle, lower = BollingerBands(values, 3, 2)
	for i := 2; i < len(values); i++ {
		assert.Greater(t, upper[i], middle[i])
		assert.Less(t, lower[i], middle[i])
	}
}

func TestMACD(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	macd, signal, hist := MACD(values, 12, 26, 9)

	assert.True(t, math.IsNaN(macd[24]))
	assert.False(t, math.IsNaN(macd[25]))
	// signal needs 9 MACD samples from index 25
	assert.True(t, math.IsNaN(signal[32]))
	assert.False(t, math.IsNaN(signal[33]))
	assert.InDelta(t, macd[40]-signal[40], hist[40], 1e-9)
	// steady uptrend keeps the MACD line positive once defined
	assert.Greater(t, macd[40], 0.0)
}

func TestRollingHighLow(t *testing.T) {
	values := []float64{3, 1, 4, 1, 5}
	high := RollingHigh(values, 3)
	low := RollingLow(values, 3)

	assert.True(t, math.IsNaN(high[1]))
	assert.InDelta(t, 4.0, high[2], 1e-9)
	assert.InDelta(t, 4.0, high[3], 1e-9)
	assert.InDelta(t, 5.0, high[4], 1e-9)
	assert.InDelta(t, 1.0, low[2], 1e-9)
	assert.InDelta(t, 1.0, low[4], 1e-9)
}

func TestATR(t *testing.T) {
	highs := []float64{10, 12, 11, 13, 14}
	lows := []float64{8, 9, 9, 10, 12}
	closes := []float64{9, 11, 10, 12, 13}
	out := ATR(highs, lows, closes, 2)

	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	// tr[1]=max(3,3,0)=3, tr[2]=max(2,0,2)=2, tr[3]=max(3,3,0)=3, tr[4]=max(2,2,0)=2
	assert.InDelta(t, 2.5, out[2], 1e-9)
	assert.InDelta(t, 2.5, out[3], 1e-9)
	assert.InDelta(t, 2.5, out[4], 1e-9)
}
