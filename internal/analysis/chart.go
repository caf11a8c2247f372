package analysis

import (
	"math"

	"quant_terminal/internal/models"
)

// ChartPoint is a history sample decorated with the overlays the dashboard draws
type ChartPoint struct {
	models.PricePoint
	Up    bool     `json:"up"`
	SMA20 *float64 `json:"sma20,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
	Lower *float64 `json:"lower,omitempty"`
	EMA20 *float64 `json:"ema20,omitempty"`
	RSI   *float64 `json:"rsi,omitempty"`
}

// BuildChart derives the chart series from scratch for the given history
func BuildChart(history []models.PricePoint) []ChartPoint {
	closes := Closes(history)
	bands := Bollinger(closes, DefaultBollingerPeriod, DefaultBollingerK)
	ema := EMA(closes, DefaultEMAPeriod)
	rsi := RSI(closes, DefaultRSIPeriod)

	points := make([]ChartPoint, len(history))
	for i, p := range history {
		cp := ChartPoint{PricePoint: p, Up: p.Close >= p.Open}
		if bands[i].Valid {
			cp.SMA20 = ptr(bands[i].Mid)
			cp.Upper = ptr(bands[i].Upper)
			cp.Lower = ptr(bands[i].Lower)
		}
		if ema != nil {
			cp.EMA20 = ptr(ema[i])
		}
		if !math.IsNaN(rsi[i]) {
			cp.RSI = ptr(rsi[i])
		}
		points[i] = cp
	}
	return points
}

func ptr(v float64) *float64 { return &v }
