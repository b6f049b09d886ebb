// Package providers fetches an address's transaction history from an
// ordered list of sources, falling back to the next on failure.
package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
)

// ErrAllFailed is returned when every provider in the registry fails.
var ErrAllFailed = errors.New("all providers failed")

// Provider fetches transaction history for an address, newest first.
type Provider interface {
	Name() string
	Transactions(ctx context.Context, address common.Address, n int) ([]*chain.Transaction, error)
}

// Registry tries providers in order and returns the first non-empty result.
type Registry struct {
	providers []Provider
}

// New creates a Registry from an ordered list of providers.
func New(ps ...Provider) *Registry {
	return &Registry{providers: ps}
}

// Result carries the fetched transactions and the provider that supplied them.
type Result struct {
	Txs      []*chain.Transaction
	Source   string
	Warnings []string // non-fatal provider errors
}

// Transactions tries each provider in order. Failures and empty answers are
// recorded as warnings and the next provider is tried. When no provider has
// data the result is empty; ErrAllFailed is returned only if every provider
// errored.
func (r *Registry) Transactions(ctx context.Context, address common.Address, n int) (*Result, error) {
	res := &Result{Txs: []*chain.Transaction{}}
	failed := 0
	for _, p := range r.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txs, err := p.Transactions(ctx, address, n)
		if err != nil {
			failed++
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}
		if len(txs) == 0 {
			res.Source = p.Name()
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: no transactions found", p.Name()))
			continue
		}
		if len(txs) > n {
			txs = txs[:n]
		}
		res.Txs = txs
		res.Source = p.Name()
		return res, nil
	}
	if failed == len(r.providers) {
		return res, ErrAllFailed
	}
	return res, nil
}

// Names returns the names of all registered providers (for display).
func (r *Registry) Names() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}
