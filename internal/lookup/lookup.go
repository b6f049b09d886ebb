// Package lookup answers the explorer's point queries: addresses, blocks,
// transactions and contracts.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/ens"
	"github.com/Mohsinsiddi/w3scan/internal/scan"
)

var (
	// ErrNotFound is returned when a block or transaction does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for unparseable addresses, hashes and
	// block references.
	ErrInvalidInput = errors.New("invalid input")
)

// ensNetwork is the only network whose ENS registry is consulted.
const ensNetwork = "ethereum"

// ClientSource hands out a dialed client per network.
type ClientSource interface {
	Client(ctx context.Context, network string) (*chain.EVMClient, error)
}

// Service performs lookups against the networks of a ClientSource.
type Service struct {
	clients ClientSource
	scanner *scan.Scanner
}

// New creates a Service. scanner may be nil when recent transactions are
// never requested.
func New(clients ClientSource, scanner *scan.Scanner) *Service {
	return &Service{clients: clients, scanner: scanner}
}

// ParseAddress parses a hex address in any letter case.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: address %q", ErrInvalidInput, s)
	}
	return common.HexToAddress(s), nil
}

// ParseHash parses a 32-byte hex hash.
func ParseHash(s string) (common.Hash, error) {
	s = strings.TrimSpace(s)
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: hash %q", ErrInvalidInput, s)
	}
	return common.BytesToHash(b), nil
}

// ResolveAddress accepts a hex address, or an ENS name on ethereum.
func (s *Service) ResolveAddress(ctx context.Context, network, input string) (common.Address, error) {
	if !ens.IsName(input) {
		return ParseAddress(input)
	}
	if !strings.EqualFold(network, ensNetwork) {
		return common.Address{}, fmt.Errorf("%w: ENS names are only resolved on %s", ErrInvalidInput, ensNetwork)
	}
	c, err := s.clients.Client(ctx, network)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := ens.NewResolver(c).Resolve(ctx, strings.ToLower(strings.TrimSpace(input)))
	if errors.Is(err, ens.ErrNoResolver) || errors.Is(err, ens.ErrNoRecord) {
		return common.Address{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return addr, err
}

// Address fetches balance, code and nonce of addr concurrently.
func (s *Service) Address(ctx context.Context, network string, addr common.Address) (*AddressInfo, error) {
	c, err := s.clients.Client(ctx, network)
	if err != nil {
		return nil, err
	}

	var (
		balance *big.Int
		code    []byte
		nonce   uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = c.Balance(gctx, addr)
		return err
	})
	g.Go(func() error {
		var err error
		code, err = c.Code(gctx, addr)
		return err
	})
	g.Go(func() error {
		var err error
		nonce, err = c.TransactionCount(gctx, addr)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &AddressInfo{
		Address:          addr.Hex(),
		Balance:          balance.String(),
		BalanceFormatted: chain.FormatEther(balance),
		TransactionCount: nonce,
		IsContract:       len(code) > 0,
	}, nil
}

// AddressWithTransactions is Address plus up to limit recent transactions
// found by scanning back from the head. The account and the scan are read
// concurrently; confirmations count from the head the scan started at.
func (s *Service) AddressWithTransactions(ctx context.Context, network string, addr common.Address, limit int) (*AddressDetails, error) {
	if s.scanner == nil {
		return nil, errors.New("lookup: no scanner configured")
	}

	var (
		info *AddressInfo
		res  *scan.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = s.Address(gctx, network, addr)
		return err
	})
	g.Go(func() error {
		var err error
		res, err = s.scanner.RecentWithHead(gctx, addr, network, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	details := &AddressDetails{AddressInfo: *info, Transactions: make([]TxInfo, len(res.Transactions))}
	for i, tx := range res.Transactions {
		details.Transactions[i] = NewTxInfo(tx, res.Head)
	}
	return details, nil
}

// ParseBlockRef validates a block reference: "latest", a decimal or 0x
// number, or a block hash. Exactly one of the results is meaningful:
// latest, a hash, or the number.
func ParseBlockRef(ref string) (num uint64, hash common.Hash, latest bool, err error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.EqualFold(ref, "latest") || ref == "":
		return 0, common.Hash{}, true, nil
	case len(ref) == 66 && strings.HasPrefix(ref, "0x"):
		h, err := ParseHash(ref)
		return 0, h, false, err
	case strings.HasPrefix(ref, "0x"):
		n, err := hexutil.DecodeUint64(ref)
		if err != nil {
			return 0, common.Hash{}, false, fmt.Errorf("%w: block %q", ErrInvalidInput, ref)
		}
		return n, common.Hash{}, false, nil
	default:
		n, err := strconv.ParseUint(ref, 10, 64)
		if err != nil {
			return 0, common.Hash{}, false, fmt.Errorf("%w: block %q", ErrInvalidInput, ref)
		}
		return n, common.Hash{}, false, nil
	}
}

// Block fetches a block by reference, see ParseBlockRef.
func (s *Service) Block(ctx context.Context, network, ref string) (*BlockInfo, error) {
	num, hash, latest, err := ParseBlockRef(ref)
	if err != nil {
		return nil, err
	}
	c, err := s.clients.Client(ctx, network)
	if err != nil {
		return nil, err
	}

	var b *chain.Block
	switch {
	case latest:
		b, err = c.LatestBlock(ctx, false)
	case hash != (common.Hash{}):
		b, err = c.BlockByHash(ctx, hash, false)
	default:
		b, err = c.BlockByNumber(ctx, num, false)
	}
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: block %s on %s", ErrNotFound, ref, network)
	}
	info := NewBlockInfo(b)
	return &info, nil
}

// Transaction fetches a transaction with its receipt, block timestamp and
// confirmation count.
func (s *Service) Transaction(ctx context.Context, network string, hash common.Hash) (*TxInfo, error) {
	c, err := s.clients.Client(ctx, network)
	if err != nil {
		return nil, err
	}

	var (
		tx      *chain.Transaction
		receipt *chain.Receipt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tx, err = c.TransactionByHash(gctx, hash)
		return err
	})
	g.Go(func() error {
		var err error
		receipt, err = c.TransactionReceipt(gctx, hash)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: transaction %s on %s", ErrNotFound, hash.Hex(), network)
	}

	var head uint64
	if tx.BlockNumber > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			b, err := c.BlockByNumber(gctx, tx.BlockNumber, false)
			if b != nil {
				tx.Timestamp = b.Timestamp
			}
			return err
		})
		g.Go(func() error {
			var err error
			head, err = c.BlockNumber(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	info := NewTxInfo(tx, head)
	if receipt != nil {
		info.withReceipt(receipt)
	}
	return &info, nil
}

// Contract fetches the bytecode and balance at addr.
func (s *Service) Contract(ctx context.Context, network string, addr common.Address) (*ContractInfo, error) {
	c, err := s.clients.Client(ctx, network)
	if err != nil {
		return nil, err
	}

	var (
		code    []byte
		balance *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		code, err = c.Code(gctx, addr)
		return err
	})
	g.Go(func() error {
		var err error
		balance, err = c.Balance(gctx, addr)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ContractInfo{
		Address:    addr.Hex(),
		Bytecode:   hexutil.Encode(code),
		IsContract: len(code) > 0,
		Balance:    balance.String(),
	}, nil
}
