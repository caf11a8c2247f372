package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"quant_terminal/internal/ai"
	"quant_terminal/internal/analysis"
	"quant_terminal/internal/exchange"
	"quant_terminal/internal/market"
	"quant_terminal/internal/models"
)

var (
	ErrNoHistory       = errors.New("no price history loaded")
	ErrBusy            = errors.New("operation already in progress")
	ErrUnknownSymbol   = errors.New("unknown symbol")
	ErrStaleResult     = errors.New("selection changed while the request was in flight")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidHorizon  = errors.New("invalid horizon")
	ErrEmptyMessage    = errors.New("message is empty")
)

const (
	syncMessageTTL = 3 * time.Second
	pollTimeout    = 8 * time.Second
	callTimeout    = 3 * time.Minute
)

// Update kinds passed to the update callback
const (
	UpdateSignals   = "signals"
	UpdateSelection = "selection"
	UpdateSync      = "sync"
	UpdateStatus    = "status"
)

// Analyzer is the generative side of the terminal
type Analyzer interface {
	AnalyzeMarket(ctx context.Context, in ai.AnalysisInput) (*models.AnalysisResult, error)
	SyncMarketPrices(ctx context.Context, symbols []string) (map[string]float64, error)
	Chat(ctx context.Context, message, marketContext string) (string, error)
}

// PriceFeed resolves current prices for the watch list
type PriceFeed interface {
	FetchLivePrice(ctx context.Context, symbol string) (float64, bool)
	Update(ctx context.Context, symbols []string) []market.Quote
	Observe(symbol string, price float64)
}

// SeriesGenerator builds the history shown for a selection
type SeriesGenerator interface {
	Series(symbol string, count int, basePrice float64) []models.PricePoint
}

type Options struct {
	Symbols       []string
	HistoryLength int
	PollInterval  time.Duration
	News          []models.NewsItem
}

// TradingEngine owns the terminal state: selection, history, analysis,
// signals, status flags and the poll schedule.
type TradingEngine struct {
	analyst Analyzer
	feed    PriceFeed
	gen     SeriesGenerator
	account *exchange.PaperAccount

	symbols      []string
	historyLen   int
	pollInterval time.Duration
	news         []models.NewsItem

	selected    string
	selectionID string
	horizon     models.Horizon
	insight     string
	history     []models.PricePoint
	analysis    *models.AnalysisResult
	signals     map[string]models.Signal

	isSyncing   bool
	isAnalyzing bool
	isPolling   bool
	isSynced    bool
	apiStatus   models.APIStatus
	lastError   string
	syncMessage string
	syncedAt    time.Time

	isRunning bool
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc

	mu  sync.RWMutex
	now func() time.Time

	onTrade    func(*models.Trade)
	onAnalysis func(*models.AnalysisResult)
	onUpdate   func(string)
}

func NewTradingEngine(
	analyst Analyzer,
	feed PriceFeed,
	gen SeriesGenerator,
	account *exchange.PaperAccount,
	opts Options,
) *TradingEngine {
	if len(opts.Symbols) == 0 {
		opts.Symbols = market.DefaultSymbols
	}
	if opts.HistoryLength <= 0 {
		opts.HistoryLength = 120
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.News == nil {
		opts.News = market.DefaultNews()
	}

	signals := make(map[string]models.Signal, len(opts.Symbols))
	for _, s := range opts.Symbols {
		signals[s] = models.Signal{Symbol: s, Sentiment: models.Neutral, IsSyncing: true}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &TradingEngine{
		analyst:      analyst,
		feed:         feed,
		gen:          gen,
		account:      account,
		symbols:      slices.Clone(opts.Symbols),
		historyLen:   opts.HistoryLength,
		pollInterval: opts.PollInterval,
		news:         opts.News,
		selected:     opts.Symbols[0],
		selectionID:  uuid.NewString(),
		horizon:      models.HorizonDay,
		signals:      signals,
		apiStatus:    models.APIIdle,
		ctx:          ctx,
		cancel:       cancel,
		now:          time.Now,
	}
}

// SetCallbacks registers notification hooks. They are invoked without the engine lock held.
func (e *TradingEngine) SetCallbacks(
	onTrade func(*models.Trade),
	onAnalysis func(*models.AnalysisResult),
	onUpdate func(string),
) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTrade = onTrade
	e.onAnalysis = onAnalysis
	e.onUpdate = onUpdate
}

// Start loads the initial selection and schedules the live poll
func (e *TradingEngine) Start() error {
	e.mu.Lock()
	if e.isRunning {
		e.mu.Unlock()
		return nil
	}
	if e.ctx.Err() != nil {
		e.ctx, e.cancel = context.WithCancel(context.Background())
	}
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	schedule := fmt.Sprintf("@every %s", e.pollInterval)
	if _, err := c.AddFunc(schedule, e.pollTick); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("schedule market poll: %w", err)
	}
	e.cron = c
	e.isRunning = true
	selected := e.selected
	ctx := e.ctx
	e.mu.Unlock()

	c.Start()
	log.Printf("🚀 Trading terminal started (poll every %s)", e.pollInterval)

	go func() {
		if err := e.SelectSymbol(ctx, selected); err != nil && !errors.Is(err, ErrStaleResult) {
			log.Printf("❌ Initial load of %s failed: %v", selected, err)
		}
	}()
	go e.pollTick()
	return nil
}

// Stop cancels the poll schedule and any call started by it
func (e *TradingEngine) Stop() {
	e.mu.Lock()
	if !e.isRunning {
		e.mu.Unlock()
		return
	}
	e.isRunning = false
	c := e.cron
	e.cron = nil
	e.cancel()
	e.mu.Unlock()

	<-c.Stop().Done()
	log.Println("⏸️ Trading terminal stopped")
}

func (e *TradingEngine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isRunning
}

func (e *TradingEngine) pollTick() {
	e.mu.RLock()
	base := e.ctx
	e.mu.RUnlock()

	ctx, cancel := context.WithTimeout(base, pollTimeout)
	defer cancel()
	if err := e.PollMarket(ctx); err != nil && !errors.Is(err, ErrBusy) {
		log.Printf("⚠️ Market poll failed: %v", err)
	}
}

// PollMarket refreshes every tracked symbol's signal from the live feed
func (e *TradingEngine) PollMarket(ctx context.Context) error {
	e.mu.Lock()
	if e.isPolling {
		e.mu.Unlock()
		return ErrBusy
	}
	e.isPolling = true
	symbols := slices.Clone(e.symbols)
	e.mu.Unlock()

	quotes := e.feed.Update(ctx, symbols)

	e.mu.Lock()
	e.isPolling = false
	for _, q := range quotes {
		s := market.DeriveSignal(q)
		e.signals[q.Symbol] = s
	}
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	e.notify(UpdateSignals)
	return nil
}

// SelectSymbol switches the selection. Prior history and analysis are dropped
// before anything else happens; the new history is generated around the live price.
func (e *TradingEngine) SelectSymbol(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	e.mu.Lock()
	if !slices.Contains(e.symbols, symbol) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	tag := uuid.NewString()
	e.selected = symbol
	e.selectionID = tag
	e.history = nil
	e.analysis = nil
	e.isSynced = false
	e.syncMessage = ""
	e.mu.Unlock()
	e.notify(UpdateSelection)

	price, live := e.feed.FetchLivePrice(ctx, symbol)
	history := e.gen.Series(symbol, e.historyLen, price)

	e.mu.Lock()
	if e.selectionID != tag {
		e.mu.Unlock()
		return ErrStaleResult
	}
	e.history = history
	e.mu.Unlock()

	log.Printf("📈 Selected %s: %d points around %.4f (live: %t)", symbol, len(history), price, live)
	e.notify(UpdateSelection)
	return nil
}

func (e *TradingEngine) SetHorizon(h string) error {
	horizon, ok := models.ParseHorizon(strings.ToUpper(strings.TrimSpace(h)))
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidHorizon, h)
	}
	e.mu.Lock()
	e.horizon = horizon
	e.mu.Unlock()
	e.notify(UpdateSelection)
	return nil
}

func (e *TradingEngine) SetInsight(insight string) {
	e.mu.Lock()
	e.insight = strings.TrimSpace(insight)
	e.mu.Unlock()
}

// SyncNow asks the generative API for current prices of the watch list. Signal
// prices are always updated; the selected history is shifted to the synced
// price only if the selection did not change meanwhile.
func (e *TradingEngine) SyncNow(ctx context.Context) (map[string]float64, error) {
	e.mu.Lock()
	if e.isSyncing {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	e.isSyncing = true
	e.apiStatus = models.APISyncing
	tag := e.selectionID
	symbol := e.selected
	symbols := slices.Clone(e.symbols)
	e.mu.Unlock()
	e.notify(UpdateStatus)

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	prices, err := e.analyst.SyncMarketPrices(ctx, symbols)

	e.mu.Lock()
	e.isSyncing = false
	if err != nil {
		e.failLocked(err)
		e.mu.Unlock()
		e.notify(UpdateStatus)
		log.Printf("❌ Price sync failed: %v", err)
		return nil, err
	}

	e.apiStatus = models.APIIdle
	e.lastError = ""
	for sym, p := range prices {
		if s, ok := e.signals[sym]; ok {
			s.Price = p
			s.IsSyncing = false
			e.signals[sym] = s
		}
		e.feed.Observe(sym, p)
	}

	var result error
	if p, ok := prices[symbol]; ok {
		switch {
		case e.selectionID != tag:
			result = ErrStaleResult
		case len(e.history) > 0:
			diff := p - e.history[len(e.history)-1].Close
			e.history = market.Shift(e.history, diff)
			e.isSynced = true
			e.syncMessage = fmt.Sprintf("Synced %s to $%.2f", symbol, p)
			e.syncedAt = e.now()
		}
	}
	e.mu.Unlock()

	log.Printf("🔄 Synced %d/%d prices from web", len(prices), len(symbols))
	e.notify(UpdateSync)
	return prices, result
}

// Analyze runs a market analysis for the current selection
func (e *TradingEngine) Analyze(ctx context.Context) (*models.AnalysisResult, error) {
	e.mu.Lock()
	if e.isAnalyzing {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	if len(e.history) == 0 {
		e.mu.Unlock()
		return nil, ErrNoHistory
	}
	e.isAnalyzing = true
	e.apiStatus = models.APISyncing
	tag := e.selectionID
	history := slices.Clone(e.history)
	in := ai.AnalysisInput{
		Symbol:  e.selected,
		History: history,
		News:    e.news,
		Horizon: e.horizon,
		Insight: e.insight,
	}
	e.mu.Unlock()
	e.notify(UpdateStatus)

	in.Indicators, _ = analysis.Latest(history)

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	result, err := e.analyst.AnalyzeMarket(ctx, in)

	e.mu.Lock()
	e.isAnalyzing = false
	if err != nil {
		e.failLocked(err)
		e.mu.Unlock()
		e.notify(UpdateStatus)
		log.Printf("❌ Analysis of %s failed: %v", in.Symbol, err)
		return nil, err
	}
	if e.selectionID != tag {
		e.apiStatus = models.APIIdle
		e.mu.Unlock()
		e.notify(UpdateStatus)
		log.Printf("⚠️ Discarding analysis of %s: selection changed", in.Symbol)
		return nil, ErrStaleResult
	}

	e.analysis = result
	e.isSynced = true
	e.lastError = ""
	e.apiStatus = models.APIIdle
	if result.Degraded {
		e.apiStatus = models.APIDegraded
	}
	onAnalysis := e.onAnalysis
	e.mu.Unlock()

	log.Printf("🤖 Analysis for %s: %s (confidence %.0f%%, grounded: %t, degraded: %t)",
		result.Symbol, result.Recommendation, result.Confidence, result.Grounded, result.Degraded)
	e.notify(UpdateStatus)
	if onAnalysis != nil {
		onAnalysis(result)
	}
	return result, nil
}

func (e *TradingEngine) failLocked(err error) {
	e.lastError = err.Error()
	if ai.KindOf(err) == ai.KindRateLimited {
		e.apiStatus = models.APIRateLimited
	} else {
		e.apiStatus = models.APIError
	}
}

// ExecuteTrade fills a mock order for the selected symbol at the last close
func (e *TradingEngine) ExecuteTrade(side models.Side, quantity decimal.Decimal) (*models.Trade, error) {
	if !quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	e.mu.RLock()
	if len(e.history) == 0 {
		e.mu.RUnlock()
		return nil, ErrNoHistory
	}
	symbol := e.selected
	price := decimal.NewFromFloat(e.history[len(e.history)-1].Close)
	onTrade := e.onTrade
	e.mu.RUnlock()

	trade, err := e.account.Execute(symbol, side, price, quantity)
	if err != nil {
		return nil, err
	}
	if onTrade != nil {
		onTrade(trade)
	}
	return trade, nil
}

// EstimateRisk is the loss if quantity bought at the last close is stopped out at stopLoss
func (e *TradingEngine) EstimateRisk(stopLoss, quantity decimal.Decimal) (decimal.Decimal, error) {
	price, ok := e.lastClose()
	if !ok {
		return decimal.Zero, ErrNoHistory
	}
	return exchange.EstimateRisk(decimal.NewFromFloat(price), stopLoss, quantity), nil
}

// Chat answers a free-text question with the current selection as context
func (e *TradingEngine) Chat(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return e.analyst.Chat(ctx, message, e.marketContext())
}

func (e *TradingEngine) marketContext() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Symbol: %s. Horizon: %s.", e.selected, e.horizon)
	if n := len(e.history); n > 0 {
		fmt.Fprintf(&sb, " Price: $%.2f.", e.history[n-1].Close)
		if snap, ok := analysis.Latest(e.history); ok && snap.RSIReady {
			fmt.Fprintf(&sb, " RSI: %.1f.", snap.RSI)
		}
	}
	if a := e.analysis; a != nil && !a.Degraded {
		fmt.Fprintf(&sb, " Latest analysis: %s, trend %s, target %.2f, stop %.2f.",
			a.Recommendation, a.Trend, a.TargetPrice, a.StopLoss)
	}
	if e.insight != "" {
		fmt.Fprintf(&sb, " Trader notes: %s", e.insight)
	}
	return sb.String()
}

func (e *TradingEngine) lastClose() (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.history) == 0 {
		return 0, false
	}
	return e.history[len(e.history)-1].Close, true
}

func (e *TradingEngine) notify(kind string) {
	e.mu.RLock()
	fn := e.onUpdate
	e.mu.RUnlock()
	if fn != nil {
		fn(kind)
	}
}
