package exchange

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quant_terminal/internal/models"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidOrder        = errors.New("invalid order")
)

// PaperAccount - paper trading account, trades are kept for the session only
type PaperAccount struct {
	balance decimal.Decimal
	trades  []*models.Trade
	mu      sync.RWMutex
	now     func() time.Time
}

func NewPaperAccount(initialBalance decimal.Decimal) *PaperAccount {
	return &PaperAccount{
		balance: initialBalance,
		trades:  make([]*models.Trade, 0),
		now:     time.Now,
	}
}

// Execute fills a market order at price. BUY debits price*qty, SELL credits it.
func (a *PaperAccount) Execute(symbol string, side models.Side, price, quantity decimal.Decimal) (*models.Trade, error) {
	if side != models.Buy && side != models.Sell {
		return nil, fmt.Errorf("%w: side %q", ErrInvalidOrder, side)
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidOrder)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// no margin: a buy may spend at most the cash balance
	notional := price.Mul(quantity)
	if side == models.Buy && a.balance.LessThan(notional) {
		return nil, fmt.Errorf("%w: %s USD", ErrInsufficientBalance, a.balance.StringFixed(2))
	}

	trade := &models.Trade{
		ID:       uuid.NewString(),
		Symbol:   symbol,
		Side:     side,
		Price:    price,
		Quantity: quantity,
		Time:     a.now(),
		Status:   models.StatusOpen,
	}

	if side == models.Buy {
		a.balance = a.balance.Sub(notional)
	} else {
		a.balance = a.balance.Add(notional)
	}
	// newest first
	a.trades = append([]*models.Trade{trade}, a.trades...)

	log.Printf("✅ Paper: %s %s %s @ %s | Notional: %s | Balance: %s",
		side, quantity.String(), symbol, price.StringFixed(4), notional.StringFixed(2), a.balance.StringFixed(2))

	return trade, nil
}

func (a *PaperAccount) Balance() decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balance
}

// Trades returns a copy of the trade list, newest first
func (a *PaperAccount) Trades() []*models.Trade {
	a.mu.RLock()
	defer a.mu.RUnlock()
	trades := make([]*models.Trade, len(a.trades))
	copy(trades, a.trades)
	return trades
}

// Exposure is the derived position in one symbol
type Exposure struct {
	Symbol       string          `json:"symbol"`
	NetQuantity  decimal.Decimal `json:"net_quantity"`
	UnrealizedPL decimal.Decimal `json:"unrealized_pl"`
}

// MarkToMarket values every trade in symbol against the current price.
// A BUY gains when price rises above its fill, a SELL when it falls below.
func (a *PaperAccount) MarkToMarket(symbol string, current decimal.Decimal) Exposure {
	a.mu.RLock()
	defer a.mu.RUnlock()

	exp := Exposure{Symbol: symbol}
	for _, t := range a.trades {
		if t.Symbol != symbol {
			continue
		}
		diff := current.Sub(t.Price).Mul(t.Quantity)
		if t.Side == models.Buy {
			exp.NetQuantity = exp.NetQuantity.Add(t.Quantity)
			exp.UnrealizedPL = exp.UnrealizedPL.Add(diff)
		} else {
			exp.NetQuantity = exp.NetQuantity.Sub(t.Quantity)
			exp.UnrealizedPL = exp.UnrealizedPL.Sub(diff)
		}
	}
	return exp
}

// EstimateRisk is the loss if a position of quantity entered at price is stopped out.
// Zero when no stop is set.
func EstimateRisk(price, stopLoss, quantity decimal.Decimal) decimal.Decimal {
	if !stopLoss.IsPositive() || !quantity.IsPositive() {
		return decimal.Zero
	}
	return price.Sub(stopLoss).Abs().Mul(quantity)
}
