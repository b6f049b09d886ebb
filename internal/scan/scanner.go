// Package scan walks recent blocks backwards looking for transactions that
// involve an address.
package scan

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/network"
)

// DefaultMaxBlocksBack is the scan depth used when none is given.
const DefaultMaxBlocksBack = 1000

// initialCap bounds the preallocated result; limit is caller-controlled.
const initialCap = 64

// ErrInvalidLimit is returned for a negative result limit.
var ErrInvalidLimit = errors.New("limit must not be negative")

// Accessor is the chain data the scanner needs.
type Accessor interface {
	CurrentHeight(ctx context.Context, network string) (uint64, error)
	BlockWithTransactions(ctx context.Context, network string, n uint64) (*chain.Block, error)
}

// Options tunes a Scanner. The zero value gives fail-fast scans over
// DefaultMaxBlocksBack blocks.
type Options struct {
	// MaxBlocksBack is the depth used by Recent.
	MaxBlocksBack int
	// BlockRetries > 0 retries a failed block fetch that many times and then
	// skips the block instead of aborting the scan.
	BlockRetries int
	// RetryInterval is the first backoff delay. Zero means 200ms.
	RetryInterval time.Duration
}

// Scanner finds recent transactions for an address. It holds no per-scan
// state and is safe for concurrent use.
type Scanner struct {
	accessor Accessor
	opts     Options
}

// NewScanner creates a Scanner reading blocks through accessor.
func NewScanner(accessor Accessor, opts Options) *Scanner {
	if opts.MaxBlocksBack <= 0 {
		opts.MaxBlocksBack = DefaultMaxBlocksBack
	}
	if opts.BlockRetries < 0 {
		opts.BlockRetries = 0
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 200 * time.Millisecond
	}
	return &Scanner{accessor: accessor, opts: opts}
}

// Result is the outcome of Scan.
type Result struct {
	Transactions []*chain.Transaction
	// Head is the height the scan started from; 0 when no height was read.
	Head uint64
}

// Recent is FindRecentTransactions with the scanner's configured depth.
func (s *Scanner) Recent(ctx context.Context, address common.Address, network string, limit int) ([]*chain.Transaction, error) {
	return s.FindRecentTransactions(ctx, address, network, limit, s.opts.MaxBlocksBack)
}

// RecentWithHead is Recent that also reports the head it anchored on.
func (s *Scanner) RecentWithHead(ctx context.Context, address common.Address, network string, limit int) (*Result, error) {
	return s.Scan(ctx, address, network, limit, s.opts.MaxBlocksBack)
}

// FindRecentTransactions returns up to limit transactions sent from or to
// address, newest block first and in block order within a block. At most
// maxBlocksBack blocks below the current head are visited; maxBlocksBack <= 0
// means DefaultMaxBlocksBack. Blocks the node does not have are skipped.
//
// The context is checked between block fetches only, so a fetch in flight
// is completed and its block processed before cancellation is reported.
func (s *Scanner) FindRecentTransactions(ctx context.Context, address common.Address, network string, limit, maxBlocksBack int) ([]*chain.Transaction, error) {
	res, err := s.Scan(ctx, address, network, limit, maxBlocksBack)
	if err != nil {
		return nil, err
	}
	return res.Transactions, nil
}

// Scan is FindRecentTransactions that also returns the head height read at
// the start of the walk.
func (s *Scanner) Scan(ctx context.Context, address common.Address, network string, limit, maxBlocksBack int) (*Result, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	found := make([]*chain.Transaction, 0, min(limit, initialCap))
	if limit == 0 {
		return &Result{Transactions: found}, nil
	}
	if maxBlocksBack <= 0 {
		maxBlocksBack = DefaultMaxBlocksBack
	}

	height, err := s.accessor.CurrentHeight(ctx, network)
	if err != nil {
		return nil, err
	}

	var floor uint64
	if height > uint64(maxBlocksBack) {
		floor = height - uint64(maxBlocksBack)
	}

	log := logrus.WithFields(logrus.Fields{"network": network, "address": address.Hex()})
	log.WithFields(logrus.Fields{"from": height, "floor": floor, "limit": limit}).Debug("scanning blocks")

	for n := height; n > floor; n-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		block, err := s.fetch(ctx, network, n)
		if err != nil {
			return nil, err
		}
		if block == nil {
			continue
		}

		for _, tx := range block.Transactions {
			if !tx.Involves(address) {
				continue
			}
			found = append(found, tx)
			if len(found) == limit {
				return &Result{Transactions: found, Head: height}, nil
			}
		}
	}
	return &Result{Transactions: found, Head: height}, nil
}

// fetch reads block n once, or with retries when enabled. A block that still
// fails after its retries is treated as absent.
func (s *Scanner) fetch(ctx context.Context, net string, n uint64) (*chain.Block, error) {
	if s.opts.BlockRetries == 0 {
		return s.accessor.BlockWithTransactions(ctx, net, n)
	}

	var block *chain.Block
	op := func() error {
		b, err := s.accessor.BlockWithTransactions(ctx, net, n)
		if errors.Is(err, network.ErrUnavailableNetwork) {
			return backoff.Permanent(err)
		}
		if err != nil {
			return err
		}
		block = b
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.opts.RetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.opts.BlockRetries)), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		logrus.WithFields(logrus.Fields{"network": net, "block": n, "wait": wait}).WithError(err).Debug("retrying block fetch")
	})
	switch {
	case err == nil:
		return block, nil
	case errors.Is(err, network.ErrUnavailableNetwork):
		return nil, err
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		logrus.WithFields(logrus.Fields{"network": net, "block": n}).WithError(err).Warn("skipping block after retries")
		return nil, nil
	}
}
