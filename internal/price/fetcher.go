// Package price fetches native currency prices from CoinGecko.
package price

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
)

// DefaultBaseURL is the public CoinGecko API.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

var (
	// ErrNoPriceID is returned for chains without a CoinGecko ID.
	ErrNoPriceID = errors.New("no price source for chain")
	// ErrUnavailable is returned when the API has no quote for a coin.
	ErrUnavailable = errors.New("price not available")
)

// Fetcher retrieves prices from CoinGecko's simple-price endpoint.
type Fetcher struct {
	client   *resty.Client
	currency string
}

// NewFetcher creates a fetcher quoting in currency (default usd).
func NewFetcher(currency string) *Fetcher {
	if currency == "" {
		currency = "usd"
	}
	client := resty.New().
		SetBaseURL(DefaultBaseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Fetcher{client: client, currency: strings.ToLower(currency)}
}

// SetBaseURL points the fetcher at another CoinGecko-compatible API.
func (f *Fetcher) SetBaseURL(url string) *Fetcher {
	f.client.SetBaseURL(url)
	return f
}

// Currency returns the quote currency, lower-case.
func (f *Fetcher) Currency() string { return f.currency }

// ChainPrice returns the price of c's native currency.
func (f *Fetcher) ChainPrice(ctx context.Context, c *chain.Chain) (float64, error) {
	if c.CoinGeckoID == "" {
		return 0, fmt.Errorf("%w: %s", ErrNoPriceID, c.Name)
	}
	return f.Price(ctx, c.CoinGeckoID)
}

// Price returns the price of a single CoinGecko coin ID.
func (f *Fetcher) Price(ctx context.Context, id string) (float64, error) {
	prices, err := f.Prices(ctx, []string{id})
	if err != nil {
		return 0, err
	}
	p, ok := prices[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnavailable, id)
	}
	return p, nil
}

// Prices fetches several coin IDs in one request. IDs without a quote are
// absent from the result.
func (f *Fetcher) Prices(ctx context.Context, ids []string) (map[string]float64, error) {
	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	list := make([]string, 0, len(unique))
	for id := range unique {
		list = append(list, id)
	}
	sort.Strings(list)

	// Response: {"ethereum":{"usd":1234.56}, ...}
	var raw map[string]map[string]float64
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("ids", strings.Join(list, ",")).
		SetQueryParam("vs_currencies", f.currency).
		SetResult(&raw).
		Get("/simple/price")
	if err != nil {
		return nil, fmt.Errorf("fetching prices: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching prices: HTTP %d", resp.StatusCode())
	}

	prices := make(map[string]float64, len(raw))
	for id, quotes := range raw {
		if p, ok := quotes[f.currency]; ok {
			prices[id] = p
		}
	}
	return prices, nil
}

// Value converts a raw token amount with the given decimals into the quote
// currency at price.
func Value(raw *big.Int, decimals int, price float64) float64 {
	if raw == nil {
		return 0
	}
	amount := new(big.Float).SetInt(raw)
	if decimals > 0 {
		scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
		amount.Quo(amount, scale)
	}
	v, _ := amount.Mul(amount, big.NewFloat(price)).Float64()
	return v
}
