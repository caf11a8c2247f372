package market

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"quant_terminal/internal/exchange"
)

// DriftFactor bounds the synthetic drift to +/-0.005% of the reference price
const DriftFactor = 0.0001

// A failing quote source is skipped for a cooldown that doubles per failure
const (
	SourceCooldownMin = 10 * time.Second
	SourceCooldownMax = 5 * time.Minute
)

// Quote is one resolved price for a tracked symbol
type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
	Live   bool    `json:"live"`
}

// LiveFeed resolves current prices, preferring the external quote source and
// silently falling back to a drifted reference price.
type LiveFeed struct {
	source exchange.QuoteSource
	refs   ReferenceTable
	rnd    *lockedRand

	mu   sync.Mutex
	last map[string]float64

	srcMu    sync.Mutex
	cooldown *backoff.Backoff
	retryAt  time.Time
	now      func() time.Time
}

// NewLiveFeed creates a feed. source may be nil, in which case every price is synthetic.
func NewLiveFeed(source exchange.QuoteSource, refs ReferenceTable, rng *rand.Rand) *LiveFeed {
	if refs == nil {
		refs = DefaultReferencePrices()
	}
	return &LiveFeed{
		source: source,
		refs:   refs,
		rnd:    newLockedRand(rng),
		last:   make(map[string]float64),
		cooldown: &backoff.Backoff{
			Min:    SourceCooldownMin,
			Max:    SourceCooldownMax,
			Factor: 2,
		},
		now: time.Now,
	}
}

// FetchLivePrice returns the current price of symbol. live reports whether it
// came from the external source.
func (f *LiveFeed) FetchLivePrice(ctx context.Context, symbol string) (price float64, live bool) {
	if f.source != nil && f.source.Supports(symbol) && f.sourceReady() {
		p, err := f.source.Quote(ctx, symbol)
		if err == nil && p > 0 {
			f.sourceRecovered()
			return p, true
		}
		if err != nil {
			f.sourceFailed(symbol, err)
		}
	}

	base := f.refs.Price(symbol)
	return base + (f.rnd.Float64()-0.5)*base*DriftFactor, false
}

func (f *LiveFeed) sourceReady() bool {
	f.srcMu.Lock()
	defer f.srcMu.Unlock()
	return !f.now().Before(f.retryAt)
}

func (f *LiveFeed) sourceRecovered() {
	f.srcMu.Lock()
	defer f.srcMu.Unlock()
	f.cooldown.Reset()
	f.retryAt = time.Time{}
}

// sourceFailed pauses the source. Failures from the same poll tick extend
// the pause only once.
func (f *LiveFeed) sourceFailed(symbol string, err error) {
	f.srcMu.Lock()
	defer f.srcMu.Unlock()
	now := f.now()
	if now.Before(f.retryAt) {
		return
	}
	d := f.cooldown.Duration()
	f.retryAt = now.Add(d)
	log.Printf("⚠️ %s quote for %s failed, using reference prices for %s: %v", f.source.Name(), symbol, d, err)
}

// Update resolves every symbol concurrently and returns quotes in input order.
// Change is the percent move against the previously observed price, or against
// the reference price on the first observation.
func (f *LiveFeed) Update(ctx context.Context, symbols []string) []Quote {
	quotes := make([]Quote, len(symbols))

	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			price, live := f.FetchLivePrice(ctx, sym)
			quotes[i] = Quote{Symbol: sym, Price: price, Live: live}
		}(i, sym)
	}
	wg.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range quotes {
		q := &quotes[i]
		prev, ok := f.last[q.Symbol]
		if !ok {
			prev = f.refs.Price(q.Symbol)
		}
		if prev > 0 {
			q.Change = (q.Price - prev) / prev * 100
		}
		f.last[q.Symbol] = q.Price
	}
	return quotes
}

// Observe records an externally obtained price, e.g. from a web sync
func (f *LiveFeed) Observe(symbol string, price float64) {
	if price <= 0 {
		return
	}
	f.mu.Lock()
	f.last[symbol] = price
	f.mu.Unlock()
}
