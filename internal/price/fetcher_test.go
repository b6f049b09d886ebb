package price

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
)

func newTestFetcher(t *testing.T, handler http.HandlerFunc) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	f := NewFetcher("USD").SetBaseURL(srv.URL)
	f.client.SetRetryCount(0)
	return f
}

func TestPricesBatch(t *testing.T) {
	var gotIDs, gotCurrency string
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		gotIDs = r.URL.Query().Get("ids")
		gotCurrency = r.URL.Query().Get("vs_currencies")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ethereum":{"usd":3000.5},"matic-network":{"usd":0.7},"other":{"eur":1}}`)) //nolint:errcheck
	})

	prices, err := f.Prices(context.Background(), []string{"matic-network", "ethereum", "ethereum", "other"})
	require.NoError(t, err)
	assert.Equal(t, "ethereum,matic-network,other", gotIDs)
	assert.Equal(t, "usd", gotCurrency)
	assert.Equal(t, map[string]float64{"ethereum": 3000.5, "matic-network": 0.7}, prices)
}

func TestChainPrice(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ethereum":{"usd":2500}}`)) //nolint:errcheck
	})

	p, err := f.ChainPrice(context.Background(), &chain.Chain{Name: "base", CoinGeckoID: "ethereum"})
	require.NoError(t, err)
	assert.Equal(t, 2500.0, p)

	_, err = f.ChainPrice(context.Background(), &chain.Chain{Name: "devnet"})
	assert.ErrorIs(t, err, ErrNoPriceID)
}

func TestPriceMissingQuote(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`)) //nolint:errcheck
	})
	_, err := f.Price(context.Background(), "ethereum")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPriceHTTPError(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	_, err := f.Price(context.Background(), "ethereum")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestValue(t *testing.T) {
	wei, _ := new(big.Int).SetString("2500000000000000000", 10)
	assert.InDelta(t, 5000.0, Value(wei, 18, 2000), 1e-9)
	assert.InDelta(t, 3.0, Value(big.NewInt(3_000_000), 6, 1), 1e-9)
	assert.Equal(t, 0.0, Value(nil, 18, 2000))
}
