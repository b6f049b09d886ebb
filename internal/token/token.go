// Package token reads ERC-20 metadata, balances and transfers.
package token

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/contract"
)

const (
	// TransferWindow is how many blocks below the head Transfers searches.
	TransferWindow = 1000
	// DefaultTransferLimit applies when Transfers is called with limit <= 0.
	DefaultTransferLimit = 10

	cacheSize = 512
)

// ClientSource hands out a dialed client per network.
type ClientSource interface {
	Client(ctx context.Context, network string) (*chain.EVMClient, error)
}

// Info is a token's immutable metadata.
type Info struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
}

// Holding is a non-zero balance of one token.
type Holding struct {
	Token            Info   `json:"token"`
	Balance          string `json:"balance"`
	BalanceFormatted string `json:"balanceFormatted"`
}

// Transfer is one decoded Transfer event.
type Transfer struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	BlockNumber uint64 `json:"blockNumber"`
	Timestamp   uint64 `json:"timestamp"`
	TxHash      string `json:"txHash"`
}

// Service answers token queries. Metadata is cached per network and address.
type Service struct {
	clients ClientSource
	popular map[string][]string
	cache   *lru.Cache
}

// New creates a Service. popular lists the tokens Top reports per network.
func New(clients ClientSource, popular map[string][]string) *Service {
	cache, _ := lru.New(cacheSize)
	return &Service{clients: clients, popular: popular, cache: cache}
}

func cacheKey(network string, token common.Address) string {
	return strings.ToLower(network) + "/" + token.Hex()
}

// Info fetches name, symbol, decimals and total supply of token.
func (s *Service) Info(ctx context.Context, network string, token common.Address) (*Info, error) {
	key := cacheKey(network, token)
	if v, ok := s.cache.Get(key); ok {
		info := v.(Info)
		return &info, nil
	}

	c, err := s.clients.Client(ctx, network)
	if err != nil {
		return nil, err
	}
	caller := contract.NewCaller(c, contract.ERC20)

	var (
		name, symbol string
		decimals     *big.Int
		supply       *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		name, err = caller.String(gctx, token, "name")
		return err
	})
	g.Go(func() (err error) {
		symbol, err = caller.String(gctx, token, "symbol")
		return err
	})
	g.Go(func() (err error) {
		decimals, err = caller.Uint(gctx, token, "decimals")
		return err
	})
	g.Go(func() (err error) {
		supply, err = caller.Uint(gctx, token, "totalSupply")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("token %s on %s: %w", token.Hex(), network, err)
	}

	info := Info{
		Address:     token.Hex(),
		Name:        name,
		Symbol:      symbol,
		Decimals:    int(decimals.Int64()),
		TotalSupply: supply.String(),
	}
	s.cache.Add(key, info)
	return &info, nil
}

// Tokens returns the popular token list configured for network.
func (s *Service) Tokens(network string) []common.Address {
	list := s.popular[strings.ToLower(network)]
	out := make([]common.Address, 0, len(list))
	for _, a := range list {
		if common.IsHexAddress(a) {
			out = append(out, common.HexToAddress(a))
		}
	}
	return out
}

// Top returns metadata for the network's popular tokens in configured
// order. Tokens that fail are logged and left out.
func (s *Service) Top(ctx context.Context, network string) ([]Info, error) {
	tokens := s.Tokens(network)
	out := make([]Info, 0, len(tokens))
	for _, t := range tokens {
		info, err := s.Info(ctx, network, t)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logrus.WithFields(logrus.Fields{
				"network": network,
				"token":   t.Hex(),
			}).WithError(err).Warn("Skipping token")
			continue
		}
		out = append(out, *info)
	}
	return out, nil
}

// Holdings returns owner's non-zero balances among tokens. Tokens whose
// balance or metadata cannot be read are logged and skipped.
func (s *Service) Holdings(ctx context.Context, network string, owner common.Address, tokens []common.Address) ([]Holding, error) {
	c, err := s.clients.Client(ctx, network)
	if err != nil {
		return nil, err
	}
	caller := contract.NewCaller(c, contract.ERC20)

	holdings := make([]*Holding, len(tokens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, t := range tokens {
		g.Go(func() error {
			bal, err := caller.Uint(gctx, t, "balanceOf", owner)
			if err == nil && bal.Sign() == 0 {
				return nil
			}
			var info *Info
			if err == nil {
				info, err = s.Info(gctx, network, t)
			}
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"network": network,
					"token":   t.Hex(),
				}).WithError(err).Debug("Skipping token balance")
				return nil
			}
			holdings[i] = &Holding{
				Token:            *info,
				Balance:          bal.String(),
				BalanceFormatted: chain.TrimZeros(chain.FormatUnits(bal, info.Decimals)),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]Holding, 0, len(holdings))
	for _, h := range holdings {
		if h != nil {
			out = append(out, *h)
		}
	}
	return out, nil
}

// Transfers returns up to limit of the most recent Transfer events of token
// within the last TransferWindow blocks, newest first.
func (s *Service) Transfers(ctx context.Context, network string, token common.Address, limit int) ([]Transfer, error) {
	if limit <= 0 {
		limit = DefaultTransferLimit
	}
	c, err := s.clients.Client(ctx, network)
	if err != nil {
		return nil, err
	}
	head, err := c.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	var from uint64
	if head > TransferWindow {
		from = head - TransferWindow
	}

	event := contract.ERC20.Events["Transfer"]
	logs, err := c.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{token},
		Topics:    [][]common.Hash{{event.ID}},
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})
	if len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}

	out := make([]Transfer, 0, len(logs))
	blocks := make(map[uint64]struct{})
	for i := len(logs) - 1; i >= 0; i-- {
		lg := logs[i]
		// ERC-721 Transfer shares the signature but indexes the token ID.
		if len(lg.Topics) != 3 {
			continue
		}
		vals, err := event.Inputs.NonIndexed().Unpack(lg.Data)
		if err != nil || len(vals) != 1 {
			continue
		}
		value, _ := vals[0].(*big.Int)
		out = append(out, Transfer{
			From:        common.BytesToAddress(lg.Topics[1].Bytes()).Hex(),
			To:          common.BytesToAddress(lg.Topics[2].Bytes()).Hex(),
			Value:       value.String(),
			BlockNumber: lg.BlockNumber,
			TxHash:      lg.TxHash.Hex(),
		})
		blocks[lg.BlockNumber] = struct{}{}
	}

	times, err := timestamps(ctx, c, blocks)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Timestamp = times[out[i].BlockNumber]
	}
	return out, nil
}

// timestamps fetches the timestamp of each block once.
func timestamps(ctx context.Context, c *chain.EVMClient, blocks map[uint64]struct{}) (map[uint64]uint64, error) {
	nums := make([]uint64, 0, len(blocks))
	for n := range blocks {
		nums = append(nums, n)
	}
	ts := make([]uint64, len(nums))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, n := range nums {
		g.Go(func() error {
			b, err := c.BlockByNumber(gctx, n, false)
			if err != nil {
				return err
			}
			if b != nil {
				ts[i] = b.Timestamp
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[uint64]uint64, len(nums))
	for i, n := range nums {
		out[n] = ts[i]
	}
	return out, nil
}
