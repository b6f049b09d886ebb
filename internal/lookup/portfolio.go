package lookup

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
)

const (
	// MaxPortfolioWallets bounds one Portfolio call.
	MaxPortfolioWallets = 50

	portfolioParallelism = 8
)

// WalletError is a wallet Portfolio could not read.
type WalletError struct {
	Address string `json:"address"`
	Error   string `json:"error"`
}

// Portfolio is the combined view of several wallets on one network.
type Portfolio struct {
	Wallets               []AddressInfo `json:"wallets"`
	Failed                []WalletError `json:"failed,omitempty"`
	TotalBalance          string        `json:"totalBalance"`
	TotalBalanceFormatted string        `json:"totalBalanceFormatted"`
	TotalTransactions     uint64        `json:"totalTransactions"`
}

// Portfolio reads every address concurrently and totals balances and
// transaction counts. Duplicates are read once. A wallet that fails is
// reported in Failed and left out of the totals; the call only fails when
// no wallet can be read.
func (s *Service) Portfolio(ctx context.Context, network string, addrs []common.Address) (*Portfolio, error) {
	addrs = dedupe(addrs)
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no addresses", ErrInvalidInput)
	}
	if len(addrs) > MaxPortfolioWallets {
		return nil, fmt.Errorf("%w: %d addresses, at most %d", ErrInvalidInput, len(addrs), MaxPortfolioWallets)
	}

	infos := make([]*AddressInfo, len(addrs))
	errs := make([]error, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(portfolioParallelism)
	for i, addr := range addrs {
		g.Go(func() error {
			infos[i], errs[i] = s.Address(gctx, network, addr)
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	p := &Portfolio{Wallets: make([]AddressInfo, 0, len(addrs))}
	total := new(big.Int)
	var firstErr error
	for i, info := range infos {
		if errs[i] != nil {
			logrus.WithFields(logrus.Fields{
				"network": network,
				"address": addrs[i].Hex(),
			}).WithError(errs[i]).Warn("Skipping portfolio wallet")
			p.Failed = append(p.Failed, WalletError{Address: addrs[i].Hex(), Error: errs[i].Error()})
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		p.Wallets = append(p.Wallets, *info)
		if bal, ok := new(big.Int).SetString(info.Balance, 10); ok {
			total.Add(total, bal)
		}
		p.TotalTransactions += info.TransactionCount
	}
	if len(p.Wallets) == 0 {
		return nil, firstErr
	}
	p.TotalBalance = total.String()
	p.TotalBalanceFormatted = chain.FormatEther(total)
	return p, nil
}

func dedupe(addrs []common.Address) []common.Address {
	seen := make(map[common.Address]struct{}, len(addrs))
	out := make([]common.Address, 0, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
