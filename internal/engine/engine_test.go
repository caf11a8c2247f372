package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant_terminal/internal/ai"
	"quant_terminal/internal/exchange"
	"quant_terminal/internal/market"
	"quant_terminal/internal/models"
)

type flatGenerator struct{}

func (flatGenerator) Series(symbol string, count int, base float64) []models.PricePoint {
	out := make([]models.PricePoint, count)
	for i := range out {
		out[i] = models.PricePoint{Open: base, High: base + 1, Low: base - 1, Close: base, Volume: 100000}
	}
	return out
}

// stubFeed prices every symbol at a fixed value; gate, when set, blocks FetchLivePrice
type stubFeed struct {
	prices map[string]float64
	gate   chan struct{}

	mu       sync.Mutex
	observed map[string]float64
}

func newStubFeed() *stubFeed {
	return &stubFeed{
		prices:   map[string]float64{"NVDA": 185.04, "AAPL": 242.15, "BTC/USD": 96520},
		observed: map[string]float64{},
	}
}

func (f *stubFeed) FetchLivePrice(ctx context.Context, symbol string) (float64, bool) {
	if f.gate != nil {
		<-f.gate
	}
	return f.prices[symbol], false
}

func (f *stubFeed) Update(ctx context.Context, symbols []string) []market.Quote {
	out := make([]market.Quote, len(symbols))
	for i, s := range symbols {
		out[i] = market.Quote{Symbol: s, Price: f.prices[s], Change: 0.25}
	}
	return out
}

func (f *stubFeed) Observe(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed[symbol] = price
}

type stubAnalyst struct {
	result  *models.AnalysisResult
	err     error
	prices  map[string]float64
	reply   string
	gate    chan struct{}
	started chan struct{}

	mu       sync.Mutex
	lastIn   ai.AnalysisInput
	lastCtxt string
}

func (a *stubAnalyst) wait() {
	if a.started != nil {
		a.started <- struct{}{}
	}
	if a.gate != nil {
		<-a.gate
	}
}

func (a *stubAnalyst) AnalyzeMarket(ctx context.Context, in ai.AnalysisInput) (*models.AnalysisResult, error) {
	a.mu.Lock()
	a.lastIn = in
	a.mu.Unlock()
	a.wait()
	if a.err != nil {
		return nil, a.err
	}
	r := *a.result
	r.Symbol = in.Symbol
	return &r, nil
}

func (a *stubAnalyst) SyncMarketPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	a.wait()
	return a.prices, a.err
}

func (a *stubAnalyst) Chat(ctx context.Context, message, marketContext string) (string, error) {
	a.mu.Lock()
	a.lastCtxt = marketContext
	a.mu.Unlock()
	return a.reply, a.err
}

func newTestEngine(t *testing.T, an *stubAnalyst, feed *stubFeed) *TradingEngine {
	t.Helper()
	account := exchange.NewPaperAccount(decimal.NewFromInt(100000))
	e := NewTradingEngine(an, feed, flatGenerator{}, account, Options{
		Symbols:       []string{"NVDA", "AAPL", "BTC/USD"},
		HistoryLength: 30,
		PollInterval:  time.Hour,
	})
	require.NoError(t, e.SelectSymbol(context.Background(), "NVDA"))
	return e
}

func TestSelectSymbolLoadsHistory(t *testing.T) {
	e := newTestEngine(t, &stubAnalyst{}, newStubFeed())

	st := e.State()
	assert.Equal(t, "NVDA", st.Selected)
	assert.Equal(t, 30, st.HistoryLen)
	assert.Equal(t, 185.04, st.Price)
	require.NotNil(t, st.Indicators)
	assert.Len(t, e.Chart(), 30)
}

func TestSelectSymbolUnknown(t *testing.T) {
	e := newTestEngine(t, &stubAnalyst{}, newStubFeed())
	err := e.SelectSymbol(context.Background(), "DOGE")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Equal(t, "NVDA", e.State().Selected)
}

func TestSymbolSwitchClearsAnalysisImmediately(t *testing.T) {
	an := &stubAnalyst{result: &models.AnalysisResult{Recommendation: "BUY"}}
	feed := newStubFeed()
	e := newTestEngine(t, an, feed)

	_, err := e.Analyze(context.Background())
	require.NoError(t, err)
	require.NotNil(t, e.Analysis())

	feed.gate = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- e.SelectSymbol(context.Background(), "AAPL") }()

	require.Eventually(t, func() bool { return e.State().Selected == "AAPL" }, time.Second, time.Millisecond)
	st := e.State()
	assert.Nil(t, st.Analysis)
	assert.Zero(t, st.HistoryLen)

	close(feed.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 242.15, e.State().Price)
}

func TestSymbolSwitchDiscardsOlderLoad(t *testing.T) {
	feed := newStubFeed()
	e := newTestEngine(t, &stubAnalyst{}, feed)

	feed.gate = make(chan struct{})
	first := make(chan error, 1)
	go func() { first <- e.SelectSymbol(context.Background(), "AAPL") }()
	require.Eventually(t, func() bool { return e.State().Selected == "AAPL" }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- e.SelectSymbol(context.Background(), "BTC/USD") }()
	require.Eventually(t, func() bool { return e.State().Selected == "BTC/USD" }, time.Second, time.Millisecond)

	close(feed.gate)
	errs := []error{<-first, <-second}
	assert.Contains(t, errs, ErrStaleResult)
	assert.Equal(t, 96520.0, e.State().Price)
}

func TestAnalyzeBusyGuard(t *testing.T) {
	an := &stubAnalyst{
		result:  &models.AnalysisResult{Recommendation: "HOLD"},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	e := newTestEngine(t, an, newStubFeed())

	done := make(chan error, 1)
	go func() {
		_, err := e.Analyze(context.Background())
		done <- err
	}()
	<-an.started

	assert.True(t, e.State().IsAnalyzing)
	assert.Equal(t, models.APISyncing, e.State().APIStatus)
	_, err := e.Analyze(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(an.gate)
	require.NoError(t, <-done)
	assert.False(t, e.State().IsAnalyzing)
	assert.Equal(t, models.APIIdle, e.State().APIStatus)
}

func TestAnalyzeStaleResultDiscarded(t *testing.T) {
	an := &stubAnalyst{
		result:  &models.AnalysisResult{Recommendation: "BUY"},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	e := newTestEngine(t, an, newStubFeed())

	done := make(chan error, 1)
	go func() {
		_, err := e.Analyze(context.Background())
		done <- err
	}()
	<-an.started
	require.NoError(t, e.SelectSymbol(context.Background(), "AAPL"))

	close(an.gate)
	assert.ErrorIs(t, <-done, ErrStaleResult)
	assert.Nil(t, e.Analysis())
	assert.Equal(t, models.APIIdle, e.State().APIStatus)
}

func TestAnalyzeStatuses(t *testing.T) {
	tests := []struct {
		name   string
		result *models.AnalysisResult
		err    error
		want   models.APIStatus
	}{
		{"ok", &models.AnalysisResult{Recommendation: "BUY"}, nil, models.APIIdle},
		{"degraded", &models.AnalysisResult{Degraded: true}, nil, models.APIDegraded},
		{"rate limited", nil, &ai.APIError{Kind: ai.KindRateLimited, StatusCode: 429}, models.APIRateLimited},
		{"other", nil, errors.New("boom"), models.APIError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, &stubAnalyst{result: tt.result, err: tt.err}, newStubFeed())
			_, err := e.Analyze(context.Background())
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.NotEmpty(t, e.State().LastError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, e.State().APIStatus)
		})
	}
}

func TestAnalyzePassesContext(t *testing.T) {
	an := &stubAnalyst{result: &models.AnalysisResult{}}
	e := newTestEngine(t, an, newStubFeed())
	require.NoError(t, e.SetHorizon("swing"))
	e.SetInsight("  earnings next week ")

	_, err := e.Analyze(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.HorizonSwing, an.lastIn.Horizon)
	assert.Equal(t, "earnings next week", an.lastIn.Insight)
	assert.Len(t, an.lastIn.History, 30)
	assert.Len(t, an.lastIn.News, 3)
	assert.True(t, an.lastIn.Indicators.RSIReady)

	assert.ErrorIs(t, e.SetHorizon("WEEK"), ErrInvalidHorizon)
}

func TestAnalyzeWithoutHistory(t *testing.T) {
	account := exchange.NewPaperAccount(decimal.NewFromInt(100000))
	e := NewTradingEngine(&stubAnalyst{}, newStubFeed(), flatGenerator{}, account, Options{})

	_, err := e.Analyze(context.Background())
	assert.ErrorIs(t, err, ErrNoHistory)
	_, err = e.ExecuteTrade(models.Buy, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNoHistory)
	_, err = e.EstimateRisk(decimal.NewFromInt(180), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestTradeRoundTrip(t *testing.T) {
	e := newTestEngine(t, &stubAnalyst{}, newStubFeed())

	var notified []*models.Trade
	e.SetCallbacks(func(tr *models.Trade) { notified = append(notified, tr) }, nil, nil)

	qty := decimal.NewFromInt(10)
	buy, err := e.ExecuteTrade(models.Buy, qty)
	require.NoError(t, err)
	assert.True(t, buy.Price.Equal(decimal.NewFromFloat(185.04)))
	assert.Equal(t, "98149.6", e.State().Balance.String())

	_, err = e.ExecuteTrade(models.Sell, qty)
	require.NoError(t, err)
	assert.True(t, e.State().Balance.Equal(decimal.NewFromInt(100000)))

	assert.Len(t, e.Trades(), 2)
	assert.Len(t, notified, 2)
	assert.Equal(t, models.Sell, e.Trades()[0].Side)
}

func TestTradeValidation(t *testing.T) {
	e := newTestEngine(t, &stubAnalyst{}, newStubFeed())

	_, err := e.ExecuteTrade(models.Buy, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = e.ExecuteTrade(models.Buy, decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, exchange.ErrInsufficientBalance)
	_, err = e.ExecuteTrade(models.Side("HOLD"), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, exchange.ErrInvalidOrder)
}

func TestExposureInState(t *testing.T) {
	e := newTestEngine(t, &stubAnalyst{}, newStubFeed())
	_, err := e.ExecuteTrade(models.Buy, decimal.NewFromInt(2))
	require.NoError(t, err)

	exp := e.State().Exposure
	assert.Equal(t, "NVDA", exp.Symbol)
	assert.True(t, exp.NetQuantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, exp.UnrealizedPL.IsZero())
}

func TestEstimateRisk(t *testing.T) {
	e := newTestEngine(t, &stubAnalyst{}, newStubFeed())
	risk, err := e.EstimateRisk(decimal.NewFromFloat(180.04), decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, "50", risk.String())
}

func TestSyncNowShiftsHistory(t *testing.T) {
	an := &stubAnalyst{prices: map[string]float64{"NVDA": 190, "AAPL": 250}}
	feed := newStubFeed()
	e := newTestEngine(t, an, feed)

	var updates []string
	e.SetCallbacks(nil, nil, func(kind string) { updates = append(updates, kind) })

	prices, err := e.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Len(t, prices, 2)

	st := e.State()
	assert.Equal(t, 190.0, st.Price)
	assert.True(t, st.IsSynced)
	assert.Equal(t, "Synced NVDA to $190.00", st.SyncMessage)
	assert.Equal(t, models.APIIdle, st.APIStatus)

	h := e.History()
	assert.InDelta(t, 191.0, h[0].High, 1e-9)
	assert.InDelta(t, 189.0, h[0].Low, 1e-9)

	for _, s := range st.Signals {
		if s.Symbol == "AAPL" {
			assert.Equal(t, 250.0, s.Price)
		}
	}
	assert.Equal(t, 250.0, feed.observed["AAPL"])
	assert.Contains(t, updates, UpdateSync)

	e.now = func() time.Time { return time.Now().Add(time.Minute) }
	assert.Empty(t, e.State().SyncMessage)
}

func TestSyncNowErrors(t *testing.T) {
	an := &stubAnalyst{err: &ai.APIError{Kind: ai.KindRateLimited, StatusCode: 429}}
	e := newTestEngine(t, an, newStubFeed())

	_, err := e.SyncNow(context.Background())
	assert.Equal(t, ai.KindRateLimited, ai.KindOf(err))
	st := e.State()
	assert.Equal(t, models.APIRateLimited, st.APIStatus)
	assert.False(t, st.IsSyncing)
	assert.Equal(t, 185.04, st.Price)
}

func TestSyncNowBusy(t *testing.T) {
	an := &stubAnalyst{prices: map[string]float64{}, gate: make(chan struct{}), started: make(chan struct{}, 1)}
	e := newTestEngine(t, an, newStubFeed())

	done := make(chan error, 1)
	go func() {
		_, err := e.SyncNow(context.Background())
		done <- err
	}()
	<-an.started
	_, err := e.SyncNow(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.True(t, e.State().Signals[0].IsSyncing)

	close(an.gate)
	assert.NoError(t, <-done)
}

func TestPollMarket(t *testing.T) {
	e := newTestEngine(t, &stubAnalyst{}, newStubFeed())

	st := e.State()
	for _, s := range st.Signals {
		assert.True(t, s.IsSyncing)
	}

	require.NoError(t, e.PollMarket(context.Background()))
	st = e.State()
	require.Len(t, st.Signals, 3)
	for _, s := range st.Signals {
		assert.False(t, s.IsSyncing)
		assert.Equal(t, models.Bullish, s.Sentiment)
		assert.Equal(t, 3, s.Strength)
	}
	assert.Equal(t, "NVDA", st.Signals[0].Symbol)
}

func TestChat(t *testing.T) {
	an := &stubAnalyst{reply: "Looks strong."}
	e := newTestEngine(t, an, newStubFeed())

	_, err := e.Chat(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	out, err := e.Chat(context.Background(), "Outlook?")
	require.NoError(t, err)
	assert.Equal(t, "Looks strong.", out)
	assert.Contains(t, an.lastCtxt, "Symbol: NVDA")
	assert.Contains(t, an.lastCtxt, "$185.04")
}

func TestStartStop(t *testing.T) {
	account := exchange.NewPaperAccount(decimal.NewFromInt(100000))
	e := NewTradingEngine(&stubAnalyst{}, newStubFeed(), flatGenerator{}, account, Options{
		Symbols:      []string{"NVDA"},
		PollInterval: 20 * time.Millisecond,
	})

	require.NoError(t, e.Start())
	assert.True(t, e.IsRunning())
	require.Eventually(t, func() bool {
		st := e.State()
		return st.HistoryLen == 120 && !st.Signals[0].IsSyncing
	}, 2*time.Second, 5*time.Millisecond)

	e.Stop()
	assert.False(t, e.IsRunning())
	e.Stop()
}
