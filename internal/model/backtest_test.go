package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFloat_NonFiniteValues(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{1.25, "1.25"},
		{0, "0"},
		{math.Inf(1), `"Infinity"`},
		{math.Inf(-1), `"-Infinity"`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(JSONFloat(tt.value))
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(data))
	}

	data, err := json.Marshal(JSONFloat(math.NaN()))
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestJSONFloat_RoundTrip(t *testing.T) {
	var f JSONFloat
	require.NoError(t, json.Unmarshal([]byte(`"Infinity"`), &f))
	assert.True(t, math.IsInf(float64(f), 1))

	require.NoError(t, json.Unmarshal([]byte(`"-Infinity"`), &f))
	assert.True(t, math.IsInf(float64(f), -1))

	require.NoError(t, json.Unmarshal([]byte("null"), &f))
	assert.True(t, math.IsNaN(float64(f)))

	require.NoError(t, json.Unmarshal([]byte("3.5"), &f))
	assert.InDelta(t, 3.5, float64(f), 1e-9)
}

func TestMetrics_EncodeWithInfiniteProfitFactor(t *testing.T) {
	m := PerformanceMetrics{
		TotalReturn:  0.5,
		ProfitFactor: JSONFloat(math.Inf(1)),
		TotalTrades:  2,
	}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"profit_factor":"Infinity"`)
}

func TestNewPriceSeries(t *testing.T) {
	candles := []Candle{
		{Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 20},
	}
	s := NewPriceSeries(candles)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []float64{1.5, 2.5}, s.Closes)
	assert.Equal(t, []float64{2, 3}, s.Highs)
	assert.Equal(t, []float64{0.5, 1}, s.Lows)
	assert.Equal(t, []float64{10, 20}, s.Volumes)
}
