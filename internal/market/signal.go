package market

import (
	"math"

	"quant_terminal/internal/models"
)

const (
	// percent change beyond which a symbol leans bullish or bearish
	SentimentThreshold = 0.05
	MaxStrength        = 5
	// strength at which a directional signal is flagged as an AI pick
	PickStrength = 4
)

// DeriveSignal builds the scanner row for a polled quote
func DeriveSignal(q Quote) models.Signal {
	sentiment := models.Neutral
	switch {
	case q.Change > SentimentThreshold:
		sentiment = models.Bullish
	case q.Change < -SentimentThreshold:
		sentiment = models.Bearish
	}

	strength := int(math.Ceil(math.Abs(q.Change) * 10))
	if strength < 1 {
		strength = 1
	}
	if strength > MaxStrength {
		strength = MaxStrength
	}

	return models.Signal{
		Symbol:    q.Symbol,
		Price:     q.Price,
		Change:    q.Change,
		Sentiment: sentiment,
		Strength:  strength,
		AIPick:    strength >= PickStrength && sentiment != models.Neutral,
	}
}
