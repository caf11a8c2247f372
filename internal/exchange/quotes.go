package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	simplejson "github.com/bitly/go-simplejson"
)

// QuoteSource resolves a current USD price for the symbols it recognises
type QuoteSource interface {
	Name() string
	Supports(symbol string) bool
	Quote(ctx context.Context, symbol string) (float64, error)
}

// CoinGeckoQuoter reads /simple/price, whose payload is { "<id>": { "usd": <number> } }
type CoinGeckoQuoter struct {
	baseURL string
	client  *http.Client
	ids     map[string]string
}

func NewCoinGeckoQuoter(baseURL string) *CoinGeckoQuoter {
	return &CoinGeckoQuoter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		ids: map[string]string{
			"BTC/USD": "bitcoin",
			"ETH/USD": "ethereum",
			"SOL/USD": "solana",
		},
	}
}

func (c *CoinGeckoQuoter) Name() string { return "coingecko" }

func (c *CoinGeckoQuoter) Supports(symbol string) bool {
	_, ok := c.ids[symbol]
	return ok
}

func (c *CoinGeckoQuoter) Quote(ctx context.Context, symbol string) (float64, error) {
	id, ok := c.ids[symbol]
	if !ok {
		return 0, fmt.Errorf("coingecko: unsupported symbol %s", symbol)
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("coingecko read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coingecko: status %d, body: %s", resp.StatusCode, string(body))
	}

	js, err := simplejson.NewJson(body)
	if err != nil {
		return 0, fmt.Errorf("coingecko decode: %w", err)
	}
	price, err := js.GetPath(id, "usd").Float64()
	if err != nil {
		return 0, fmt.Errorf("coingecko: no usd price for %s", id)
	}
	if price <= 0 {
		return 0, fmt.Errorf("coingecko: invalid price %f for %s", price, id)
	}
	return price, nil
}
