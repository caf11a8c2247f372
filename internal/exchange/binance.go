package exchange

import (
	"context"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2"
)

// BinanceQuoter reads spot ticker prices for USD crypto pairs (BTC/USD -> BTCUSDT)
type BinanceQuoter struct {
	client *binance.Client
	pairs  map[string]string
}

func NewBinanceQuoter(apiKey, secretKey string) *BinanceQuoter {
	return &BinanceQuoter{
		client: binance.NewClient(apiKey, secretKey),
		pairs: map[string]string{
			"BTC/USD": "BTCUSDT",
			"ETH/USD": "ETHUSDT",
			"SOL/USD": "SOLUSDT",
		},
	}
}

// WithBaseURL points the client at another REST root (testnet, mirrors)
func (b *BinanceQuoter) WithBaseURL(url string) *BinanceQuoter {
	b.client.BaseURL = url
	return b
}

func (b *BinanceQuoter) Name() string { return "binance" }

func (b *BinanceQuoter) Supports(symbol string) bool {
	_, ok := b.pairs[symbol]
	return ok
}

func (b *BinanceQuoter) Quote(ctx context.Context, symbol string) (float64, error) {
	pair, ok := b.pairs[symbol]
	if !ok {
		return 0, fmt.Errorf("binance: unsupported symbol %s", symbol)
	}

	prices, err := b.client.NewListPricesService().Symbol(pair).Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price data for %s", pair)
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("binance: bad price %q for %s: %w", prices[0].Price, pair, err)
	}
	return price, nil
}
