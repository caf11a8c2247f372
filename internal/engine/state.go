package engine

import (
	"slices"

	"github.com/shopspring/decimal"

	"quant_terminal/internal/analysis"
	"quant_terminal/internal/exchange"
	"quant_terminal/internal/models"
)

// State is a point-in-time copy of everything the front-ends render
type State struct {
	Symbols     []string               `json:"symbols"`
	Selected    string                 `json:"selected"`
	SelectionID string                 `json:"selection_id"`
	Horizon     models.Horizon         `json:"horizon"`
	Insight     string                 `json:"insight"`
	Price       float64                `json:"price"`
	HistoryLen  int                    `json:"history_length"`
	Indicators  *analysis.Snapshot     `json:"indicators,omitempty"`
	Analysis    *models.AnalysisResult `json:"analysis"`
	Signals     []models.Signal        `json:"signals"`
	Balance     decimal.Decimal        `json:"balance"`
	Exposure    exchange.Exposure      `json:"exposure"`
	News        []models.NewsItem      `json:"news"`
	APIStatus   models.APIStatus       `json:"api_status"`
	LastError   string                 `json:"last_error,omitempty"`
	IsSyncing   bool                   `json:"is_syncing"`
	IsAnalyzing bool                   `json:"is_analyzing"`
	IsSynced    bool                   `json:"is_synced"`
	SyncMessage string                 `json:"sync_message,omitempty"`
	Running     bool                   `json:"running"`
}

func (e *TradingEngine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := State{
		Symbols:     slices.Clone(e.symbols),
		Selected:    e.selected,
		SelectionID: e.selectionID,
		Horizon:     e.horizon,
		Insight:     e.insight,
		HistoryLen:  len(e.history),
		Analysis:    e.analysis,
		Signals:     make([]models.Signal, 0, len(e.symbols)),
		Balance:     e.account.Balance(),
		Exposure:    exchange.Exposure{Symbol: e.selected},
		News:        e.news,
		APIStatus:   e.apiStatus,
		LastError:   e.lastError,
		IsSyncing:   e.isSyncing,
		IsAnalyzing: e.isAnalyzing,
		IsSynced:    e.isSynced,
		Running:     e.isRunning,
	}
	for _, sym := range e.symbols {
		sig := e.signals[sym]
		sig.IsSyncing = sig.IsSyncing || e.isSyncing
		s.Signals = append(s.Signals, sig)
	}
	if n := len(e.history); n > 0 {
		s.Price = e.history[n-1].Close
		s.Exposure = e.account.MarkToMarket(e.selected, decimal.NewFromFloat(s.Price))
		if snap, ok := analysis.Latest(e.history); ok {
			s.Indicators = &snap
		}
	}
	if e.syncMessage != "" && e.now().Sub(e.syncedAt) < syncMessageTTL {
		s.SyncMessage = e.syncMessage
	}
	return s
}

// History returns a copy of the selected symbol's history, oldest first
func (e *TradingEngine) History() []models.PricePoint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.history)
}

// Chart returns the history decorated with indicator overlays
func (e *TradingEngine) Chart() []analysis.ChartPoint {
	return analysis.BuildChart(e.History())
}

func (e *TradingEngine) Analysis() *models.AnalysisResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.analysis
}

func (e *TradingEngine) Trades() []*models.Trade {
	return e.account.Trades()
}

func (e *TradingEngine) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.symbols)
}
