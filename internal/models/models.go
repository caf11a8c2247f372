package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Horizon is the intended holding period the analysis is framed for
type Horizon string

const (
	HorizonScalp Horizon = "SCALP"
	HorizonDay   Horizon = "DAY"
	HorizonSwing Horizon = "SWING"
)

// ParseHorizon validates a horizon string
func ParseHorizon(s string) (Horizon, bool) {
	switch h := Horizon(s); h {
	case HorizonScalp, HorizonDay, HorizonSwing:
		return h, true
	}
	return "", false
}

type Sentiment string

const (
	Bullish Sentiment = "BULLISH"
	Bearish Sentiment = "BEARISH"
	Neutral Sentiment = "NEUTRAL"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type TradeStatus string

const (
	StatusOpen   TradeStatus = "OPEN"
	StatusClosed TradeStatus = "CLOSED"
)

// APIStatus is the user-visible state of the last provider call
type APIStatus string

const (
	APIIdle        APIStatus = "IDLE"
	APISyncing     APIStatus = "SYNCING"
	APIRateLimited APIStatus = "RATE_LIMITED"
	APIError       APIStatus = "ERROR"
	APIDegraded    APIStatus = "DEGRADED"
)

// PricePoint is one OHLCV sample of a price history
type PricePoint struct {
	Time   time.Time `json:"time"`
	Label  string    `json:"label"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Signal is the scanner view of one tracked symbol
type Signal struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	Sentiment Sentiment `json:"sentiment"`
	Strength  int       `json:"strength"`
	IsSyncing bool      `json:"is_syncing"`
	AIPick    bool      `json:"ai_pick"`
}

// Trade represents an executed mock order
type Trade struct {
	ID       string          `json:"id"`
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Time     time.Time       `json:"time"`
	Status   TradeStatus     `json:"status"`
}

// Notional returns price * quantity
func (t *Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}

// NewsItem is a headline fed into the analysis prompt
type NewsItem struct {
	ID        string `json:"id" yaml:"id"`
	Headline  string `json:"headline" yaml:"headline"`
	Source    string `json:"source" yaml:"source"`
	Time      string `json:"time" yaml:"time"`
	Sentiment string `json:"sentiment,omitempty" yaml:"sentiment"`
}

type GroundingSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type BacktestResult struct {
	WinRate        float64 `json:"winRate"`
	TotalTrades    float64 `json:"totalTrades"`
	ProfitFactor   float64 `json:"profitFactor"`
	AvgProfit      float64 `json:"avgProfit"`
	ExpectedReturn float64 `json:"expectedReturn"`
}

// AnalysisResult is the structured verdict returned by the analysis model.
// JSON field names follow the response schema sent to the provider.
type AnalysisResult struct {
	Symbol           string            `json:"symbol"`
	Horizon          Horizon           `json:"horizon"`
	Sentiment        string            `json:"sentiment"`
	Trend            string            `json:"trend"`
	KeyLevels        []float64         `json:"keyLevels"`
	Recommendation   string            `json:"recommendation"`
	Reasoning        string            `json:"reasoning"`
	EntryPrice       float64           `json:"entryPrice"`
	TargetPrice      float64           `json:"targetPrice"`
	StopLoss         float64           `json:"stopLoss"`
	Confidence       float64           `json:"confidence"`
	AlphaScore       float64           `json:"alphaScore"`
	ActualPrice      float64           `json:"actualPrice,omitempty"`
	ReferencePrice   float64           `json:"referencePrice"`
	SuggestedHorizon string            `json:"suggestedHorizon,omitempty"`
	Backtest         BacktestResult    `json:"backtest"`
	Sources          []GroundingSource `json:"sources,omitempty"`
	Grounded         bool              `json:"grounded"`
	Degraded         bool              `json:"degraded"`
	CreatedAt        time.Time         `json:"createdAt"`
}
