// Package nft reads ERC-721 collections, items and ownership.
package nft

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/contract"
)

const (
	// OwnershipWindow is how many blocks below the head OwnedBy searches.
	OwnershipWindow = 10000
	// DefaultOwnedLimit applies when OwnedBy is called with limit <= 0.
	DefaultOwnedLimit = 10
	// DefaultGateway serves ipfs:// URIs.
	DefaultGateway = "https://ipfs.io/ipfs/"
)

// erc721InterfaceID is the ERC-165 identifier of ERC-721.
var erc721InterfaceID = [4]byte{0x80, 0xac, 0x58, 0xcd}

// ClientSource hands out a dialed client per network.
type ClientSource interface {
	Client(ctx context.Context, network string) (*chain.EVMClient, error)
}

// Collection describes an ERC-721 contract. TotalSupply is nil when the
// contract does not implement it.
type Collection struct {
	Address     string  `json:"address"`
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	TotalSupply *uint64 `json:"totalSupply,omitempty"`
}

// Item is one token. Metadata fields are empty when the token URI could not
// be read or fetched.
type Item struct {
	TokenID         string          `json:"tokenId"`
	ContractAddress string          `json:"contractAddress"`
	Owner           string          `json:"owner"`
	TokenURI        string          `json:"tokenUri,omitempty"`
	Name            string          `json:"name,omitempty"`
	Description     string          `json:"description,omitempty"`
	Image           string          `json:"image,omitempty"`
	Attributes      json.RawMessage `json:"attributes,omitempty"`
}

type metadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Attributes  json.RawMessage `json:"attributes"`
}

// Service answers NFT queries.
type Service struct {
	clients ClientSource
	http    *resty.Client
	gateway string
}

// New creates a Service fetching metadata through the default IPFS gateway.
func New(clients ClientSource) *Service {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")
	return &Service{clients: clients, http: client, gateway: DefaultGateway}
}

// SetGateway changes the gateway ipfs:// URIs are rewritten to.
func (s *Service) SetGateway(prefix string) *Service {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	s.gateway = prefix
	return s
}

// GatewayURL rewrites an ipfs:// URI to an HTTP gateway URL. Other URIs are
// returned unchanged.
func (s *Service) GatewayURL(uri string) string {
	if rest, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		return s.gateway + strings.TrimPrefix(rest, "ipfs/")
	}
	return uri
}

func (s *Service) caller(ctx context.Context, network string) (*contract.Caller, error) {
	c, err := s.clients.Client(ctx, network)
	if err != nil {
		return nil, err
	}
	return contract.NewCaller(c, contract.ERC721), nil
}

// Collection fetches name, symbol and, when available, total supply.
func (s *Service) Collection(ctx context.Context, network string, addr common.Address) (*Collection, error) {
	caller, err := s.caller(ctx, network)
	if err != nil {
		return nil, err
	}

	var name, symbol string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		name, err = caller.String(gctx, addr, "name")
		return err
	})
	g.Go(func() (err error) {
		symbol, err = caller.String(gctx, addr, "symbol")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collection %s on %s: %w", addr.Hex(), network, err)
	}

	col := &Collection{Address: addr.Hex(), Name: name, Symbol: symbol}
	if supply, err := caller.Uint(ctx, addr, "totalSupply"); err == nil && supply.IsUint64() {
		n := supply.Uint64()
		col.TotalSupply = &n
	}
	return col, nil
}

// IsERC721 reports whether addr declares ERC-721 support via ERC-165.
// Contracts that do not implement supportsInterface report false.
func (s *Service) IsERC721(ctx context.Context, network string, addr common.Address) (bool, error) {
	caller, err := s.caller(ctx, network)
	if err != nil {
		return false, err
	}
	ok, err := caller.Bool(ctx, addr, "supportsInterface", erc721InterfaceID)
	if err != nil {
		// A node-reported error here is a revert: no ERC-165 support.
		var rerr rpc.Error
		if errors.As(err, &rerr) || errors.Is(err, contract.ErrEmptyResult) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// Item fetches the owner and token URI of tokenID and, when possible, its
// metadata. Metadata failures are logged and leave the fields empty.
func (s *Service) Item(ctx context.Context, network string, addr common.Address, tokenID *big.Int) (*Item, error) {
	caller, err := s.caller(ctx, network)
	if err != nil {
		return nil, err
	}
	owner, err := caller.Address(ctx, addr, "ownerOf", tokenID)
	if err != nil {
		return nil, fmt.Errorf("token %s of %s: %w", tokenID, addr.Hex(), err)
	}

	item := &Item{TokenID: tokenID.String(), ContractAddress: addr.Hex(), Owner: owner.Hex()}
	uri, err := caller.String(ctx, addr, "tokenURI", tokenID)
	if err != nil || uri == "" {
		return item, nil
	}
	item.TokenURI = uri

	md, err := s.fetchMetadata(ctx, uri)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"contract": addr.Hex(),
			"tokenId":  tokenID.String(),
			"uri":      uri,
		}).WithError(err).Warn("Failed to fetch NFT metadata")
		return item, nil
	}
	item.Name = md.Name
	item.Description = md.Description
	item.Image = s.GatewayURL(md.Image)
	if len(md.Attributes) > 0 && string(md.Attributes) != "null" {
		item.Attributes = md.Attributes
	}
	return item, nil
}

func (s *Service) fetchMetadata(ctx context.Context, uri string) (*metadata, error) {
	var md metadata
	if rest, ok := strings.CutPrefix(uri, "data:application/json;base64,"); ok {
		raw, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return nil, err
		}
		return &md, json.Unmarshal(raw, &md)
	}
	if rest, ok := strings.CutPrefix(uri, "data:application/json,"); ok {
		return &md, json.Unmarshal([]byte(rest), &md)
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetResult(&md).
		ForceContentType("application/json").
		Get(s.GatewayURL(uri))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("metadata HTTP %d", resp.StatusCode())
	}
	return &md, nil
}

// OwnedBy returns up to limit tokens of collection held by owner. Candidates
// are the token IDs transferred to owner within the last OwnershipWindow
// blocks, kept only if ownerOf still reports owner.
func (s *Service) OwnedBy(ctx context.Context, network string, owner, collection common.Address, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = DefaultOwnedLimit
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
	if head > OwnershipWindow {
		from = head - OwnershipWindow
	}

	logs, err := c.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{collection},
		Topics: [][]common.Hash{
			{contract.ERC721.Events["Transfer"].ID},
			nil,
			{common.BytesToHash(owner.Bytes())},
		},
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[common.Hash]struct{})
	var ids []*big.Int
	for _, lg := range logs {
		if len(lg.Topics) != 4 {
			continue
		}
		if _, dup := seen[lg.Topics[3]]; dup {
			continue
		}
		seen[lg.Topics[3]] = struct{}{}
		ids = append(ids, lg.Topics[3].Big())
	}

	caller := contract.NewCaller(c, contract.ERC721)
	items := make([]Item, 0, min(limit, len(ids)))
	for _, id := range ids {
		if len(items) >= limit {
			break
		}
		current, err := caller.Address(ctx, collection, "ownerOf", id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// burned or otherwise unreadable
			continue
		}
		if current != owner {
			continue
		}
		items = append(items, Item{TokenID: id.String(), ContractAddress: collection.Hex(), Owner: current.Hex()})
	}
	return items, nil
}
