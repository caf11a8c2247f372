package market

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"quant_terminal/internal/models"
)

const (
	// per-step volatility as a fraction of the current price
	Volatility = 0.0008
	// wick excursion as a fraction of the step volatility
	WickFactor = 0.2
	MinVolume  = 100000
	VolumeSpan = 500000

	FallbackPrice = 100.0
)

// DefaultSymbols is the tracked watch list
var DefaultSymbols = []string{"NVDA", "BTC/USD", "AAPL", "TSLA", "ETH/USD", "GOOGL"}

// ReferenceTable maps a symbol to its fixed reference price
type ReferenceTable map[string]float64

func DefaultReferencePrices() ReferenceTable {
	return ReferenceTable{
		"NVDA":    185.04,
		"AAPL":    242.15,
		"TSLA":    258.40,
		"GOOGL":   192.30,
		"BTC/USD": 96520.00,
		"ETH/USD": 2680.50,
	}
}

func (t ReferenceTable) Price(symbol string) float64 {
	if p, ok := t[symbol]; ok && p > 0 {
		return p
	}
	return FallbackPrice
}

// lockedRand makes a *rand.Rand safe to share between goroutines
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand(r *rand.Rand) *lockedRand {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &lockedRand{r: r}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Generator produces synthetic OHLCV histories
type Generator struct {
	refs ReferenceTable
	rnd  *lockedRand
	now  func() time.Time
	step time.Duration
}

// NewGenerator creates a generator. A nil rng is seeded randomly.
func NewGenerator(refs ReferenceTable, rng *rand.Rand) *Generator {
	if refs == nil {
		refs = DefaultReferencePrices()
	}
	return &Generator{
		refs: refs,
		rnd:  newLockedRand(rng),
		now:  time.Now,
		step: time.Minute,
	}
}

// Series generates count one-minute samples ending now. A basePrice <= 0 falls
// back to the reference table.
func (g *Generator) Series(symbol string, count int, basePrice float64) []models.PricePoint {
	if count <= 0 {
		return []models.PricePoint{}
	}

	current := basePrice
	if current <= 0 || math.IsNaN(current) || math.IsInf(current, 0) {
		current = g.refs.Price(symbol)
	}

	now := g.now()
	points := make([]models.PricePoint, count)
	for i := 0; i < count; i++ {
		ts := now.Add(-time.Duration(count-i) * g.step)
		vol := current * Volatility
		open := current + (g.rnd.Float64()-0.5)*vol
		cl := open + (g.rnd.Float64()-0.5)*vol
		high := math.Max(open, cl) + g.rnd.Float64()*vol*WickFactor
		low := math.Min(open, cl) - g.rnd.Float64()*vol*WickFactor
		volume := float64(g.rnd.IntN(VolumeSpan) + MinVolume)

		points[i] = models.PricePoint{
			Time:   ts,
			Label:  ts.Format("15:04"),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  cl,
			Volume: volume,
		}
		current = cl
	}
	return points
}

// Shift moves every OHLC value of history by delta, returning a new slice
func Shift(history []models.PricePoint, delta float64) []models.PricePoint {
	out := make([]models.PricePoint, len(history))
	for i, p := range history {
		p.Open += delta
		p.High += delta
		p.Low += delta
		p.Close += delta
		out[i] = p
	}
	return out
}
