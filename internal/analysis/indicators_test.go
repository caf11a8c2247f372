package analysis

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant_terminal/internal/models"
)

func randomWalk(seed uint64, n int) []float64 {
	r := rand.New(rand.NewPCG(seed, seed+1))
	values := make([]float64, n)
	price := 100.0
	for i := range values {
		price += (r.Float64() - 0.5) * 2
		values[i] = price
	}
	return values
}

func TestEMA_SeedsWithFirstSample(t *testing.T) {
	values := []float64{10, 11, 12, 13}
	ema := EMA(values, 3)

	require.Len(t, ema, len(values))
	assert.Equal(t, 10.0, ema[0])
	// k = 0.5
	assert.InDelta(t, 10.5, ema[1], 1e-12)
	assert.InDelta(t, 11.25, ema[2], 1e-12)
	assert.InDelta(t, 12.125, ema[3], 1e-12)
}

func TestEMA_PeriodOneTracksLatestSample(t *testing.T) {
	values := randomWalk(7, 50)
	ema := EMA(values, 1)
	for i := range values {
		assert.InDelta(t, values[i], ema[i], 1e-12)
	}
}

func TestEMA_InvalidInput(t *testing.T) {
	assert.Nil(t, EMA(nil, 5))
	assert.Nil(t, EMA([]float64{1, 2}, 0))
}

func TestRSI_UndefinedBeforePeriod(t *testing.T) {
	values := randomWalk(1, 40)
	rsi := RSI(values, 14)

	require.Len(t, rsi, 40)
	for i := 0; i < 14; i++ {
		assert.True(t, math.IsNaN(rsi[i]), "index %d should be undefined", i)
	}
	for i := 14; i < 40; i++ {
		assert.False(t, math.IsNaN(rsi[i]))
		assert.GreaterOrEqual(t, rsi[i], 0.0)
		assert.LessOrEqual(t, rsi[i], 100.0)
	}
}

func TestRSI_NoLossesIsHundred(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	rsi := RSI(values, 14)
	assert.Equal(t, 100.0, rsi[14])
	assert.Equal(t, 100.0, rsi[19])
}

func TestRSI_EqualGainsAndLossesIsFifty(t *testing.T) {
	// alternating +1 / -1 gives equal averages at the seed index
	values := []float64{100}
	for i := 0; i < 14; i++ {
		if i%2 == 0 {
			values = append(values, values[len(values)-1]+1)
		} else {
			values = append(values, values[len(values)-1]-1)
		}
	}
	rsi := RSI(values, 14)
	assert.InDelta(t, 50.0, rsi[14], 1e-9)
}

func TestRSI_FlatSeriesIsFifty(t *testing.T) {
	values := make([]float64, 16)
	for i := range values {
		values[i] = 42
	}
	rsi := RSI(values, 14)
	assert.Equal(t, 50.0, rsi[14])
	assert.Equal(t, 50.0, rsi[15])
}

func TestRSI_WilderSmoothingAfterSeed(t *testing.T) {
	// changes +1, -0.5, +1.5 seed avgGain 5/6 and avgLoss 1/6.
	// The -1 step smooths them to (5/6*2+0)/3 = 5/9 and (1/6*2+1)/3 = 4/9.
	rsi := RSI([]float64{10, 11, 10.5, 12, 11}, 3)
	require.Len(t, rsi, 5)
	assert.True(t, math.IsNaN(rsi[2]))
	assert.InDelta(t, 100-100/(1+5.0), rsi[3], 1e-9)
	assert.InDelta(t, 100-100/(1+5.0/4), rsi[4], 1e-9)
}

func TestRSI_ShortSeriesAllUndefined(t *testing.T) {
	rsi := RSI([]float64{1, 2, 3}, 14)
	for _, v := range rsi {
		assert.True(t, math.IsNaN(v))
	}
}

func TestBollinger_Ordering(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		values := randomWalk(seed, 60)
		bands := Bollinger(values, 20, 2)
		for i, b := range bands {
			if i < 19 {
				assert.False(t, b.Valid, "index %d should carry no band", i)
				continue
			}
			require.True(t, b.Valid)
			assert.GreaterOrEqual(t, b.Upper, b.Mid)
			assert.GreaterOrEqual(t, b.Mid, b.Lower)
		}
	}
}

func TestBollinger_PopulationStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	bands := Bollinger(values, 8, 2)
	last := bands[7]
	require.True(t, last.Valid)
	// mean 5, population stddev 2
	assert.InDelta(t, 5.0, last.Mid, 1e-12)
	assert.InDelta(t, 9.0, last.Upper, 1e-12)
	assert.InDelta(t, 1.0, last.Lower, 1e-12)
}

func TestMACD_Lengths(t *testing.T) {
	values := randomWalk(3, 100)
	macd, sig, hist := MACD(values, 12, 26, 9)
	assert.Len(t, macd, 100)
	assert.Len(t, sig, 100)
	assert.Len(t, hist, 100)
	assert.Equal(t, 0.0, macd[0])
	assert.InDelta(t, macd[50]-sig[50], hist[50], 1e-12)
}

func TestBuildChart(t *testing.T) {
	values := randomWalk(9, 30)
	history := make([]models.PricePoint, len(values))
	for i, v := range values {
		history[i] = models.PricePoint{Open: v - 0.1, Close: v, High: v + 1, Low: v - 1}
	}

	chart := BuildChart(history)
	require.Len(t, chart, 30)
	assert.Nil(t, chart[18].SMA20)
	require.NotNil(t, chart[19].SMA20)
	assert.GreaterOrEqual(t, *chart[19].Upper, *chart[19].Lower)
	assert.Nil(t, chart[13].RSI)
	assert.NotNil(t, chart[14].RSI)
	require.NotNil(t, chart[0].EMA20)
	assert.Equal(t, values[0], *chart[0].EMA20)
	assert.True(t, chart[0].Up)
}

func TestLatest(t *testing.T) {
	_, ok := Latest(nil)
	assert.False(t, ok)

	values := randomWalk(11, 5)
	history := make([]models.PricePoint, len(values))
	for i, v := range values {
		history[i] = models.PricePoint{Close: v}
	}
	snap, ok := Latest(history)
	require.True(t, ok)
	assert.False(t, snap.RSIReady)
	assert.False(t, snap.BandsReady)
}
