package analysis

import (
	"math"

	"quant_terminal/internal/models"
)

const (
	DefaultRSIPeriod       = 14
	DefaultBollingerPeriod = 20
	DefaultBollingerK      = 2.0
	DefaultEMAPeriod       = 20
)

// Band is one Bollinger sample. Valid is false until the window is full.
type Band struct {
	Mid   float64
	Upper float64
	Lower float64
	Valid bool
}

// Closes extracts the close series from a history
func Closes(history []models.PricePoint) []float64 {
	closes := make([]float64, len(history))
	for i, p := range history {
		closes[i] = p.Close
	}
	return closes
}

// EMA returns the exponential moving average series, seeded with the first sample.
// The result has the same length as values. A period below 1 yields nil.
func EMA(values []float64, period int) []float64 {
	if period < 1 || len(values) == 0 {
		return nil
	}

	k := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// RSI returns the Wilder-smoothed relative strength index series.
// Indices below period are NaN (undefined).
func RSI(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if period < 1 || len(values) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

// rsiFromAverages maps a flat window (no gains, no losses) to 50
// and a window without losses to 100.
func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Bollinger returns rolling mean +/- k population standard deviations.
func Bollinger(values []float64, period int, k float64) []Band {
	out := make([]Band, len(values))
	if period < 1 {
		return out
	}

	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		mean, std := meanStdDev(window)
		out[i] = Band{
			Mid:   mean,
			Upper: mean + k*std,
			Lower: mean - k*std,
			Valid: true,
		}
	}
	return out
}

func meanStdDev(window []float64) (float64, float64) {
	n := float64(len(window))
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	mean := sum / n

	sq := 0.0
	for _, v := range window {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}

// MACD returns the MACD line (fast EMA - slow EMA), its signal line and the histogram
func MACD(values []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	if fastEMA == nil || slowEMA == nil {
		return nil, nil, nil
	}

	macd = make([]float64, len(values))
	for i := range values {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	sig = EMA(macd, signal)
	if sig == nil {
		return nil, nil, nil
	}
	hist = make([]float64, len(values))
	for i := range values {
		hist[i] = macd[i] - sig[i]
	}
	return macd, sig, hist
}

// Snapshot holds the latest indicator values handed to the analysis prompt
type Snapshot struct {
	RSI        float64 `json:"rsi"`
	RSIReady   bool    `json:"rsi_ready"`
	EMA20      float64 `json:"ema20"`
	MACD       float64 `json:"macd"`
	Signal     float64 `json:"signal"`
	Upper      float64 `json:"upper"`
	Lower      float64 `json:"lower"`
	BandsReady bool    `json:"bands_ready"`
}

// Latest computes a Snapshot from a non-empty history. ok is false for an empty one.
func Latest(history []models.PricePoint) (Snapshot, bool) {
	if len(history) == 0 {
		return Snapshot{}, false
	}

	closes := Closes(history)
	last := len(closes) - 1

	var s Snapshot
	if rsi := RSI(closes, DefaultRSIPeriod); !math.IsNaN(rsi[last]) {
		s.RSI = rsi[last]
		s.RSIReady = true
	}
	s.EMA20 = EMA(closes, DefaultEMAPeriod)[last]
	macd, sig, _ := MACD(closes, 12, 26, 9)
	s.MACD = macd[last]
	s.Signal = sig[last]
	if band := Bollinger(closes, DefaultBollingerPeriod, DefaultBollingerK)[last]; band.Valid {
		s.Upper = band.Upper
		s.Lower = band.Lower
		s.BandsReady = true
	}
	return s, true
}
