package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinGeckoQuoter_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		w.Write([]byte(`{"bitcoin":{"usd":96520.5}}`))
	}))
	defer srv.Close()

	q := NewCoinGeckoQuoter(srv.URL)
	require.True(t, q.Supports("BTC/USD"))
	assert.False(t, q.Supports("NVDA"))

	price, err := q.Quote(context.Background(), "BTC/USD")
	require.NoError(t, err)
	assert.Equal(t, 96520.5, price)
}

func TestCoinGeckoQuoter_Errors(t *testing.T) {
	status := http.StatusOK
	body := `{"ethereum":{}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	q := NewCoinGeckoQuoter(srv.URL)
	ctx := context.Background()

	_, err := q.Quote(ctx, "ETH/USD")
	assert.Error(t, err, "missing usd field")

	status, body = http.StatusTooManyRequests, `{"status":{"error_code":429}}`
	_, err = q.Quote(ctx, "ETH/USD")
	assert.Error(t, err)

	_, err = q.Quote(ctx, "AAPL")
	assert.Error(t, err)
}

func TestBinanceQuoter_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"ETHUSDT","price":"2680.50000000"}`))
	}))
	defer srv.Close()

	q := NewBinanceQuoter("", "").WithBaseURL(srv.URL)
	assert.True(t, q.Supports("ETH/USD"))
	assert.False(t, q.Supports("TSLA"))

	price, err := q.Quote(context.Background(), "ETH/USD")
	require.NoError(t, err)
	assert.Equal(t, 2680.5, price)
}
