// Package ens resolves Ethereum Name Service names (EIP-137) and reverse
// records (EIP-181).
package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/Mohsinsiddi/w3scan/internal/contract"
)

// RegistryAddress is the ENS registry, same on Ethereum mainnet and Sepolia.
var RegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

var (
	// ErrNoResolver is returned when the registry has no resolver for a name.
	ErrNoResolver = errors.New("no resolver set")
	// ErrNoRecord is returned when the resolver has no record for a name.
	ErrNoRecord = errors.New("no record")
)

// IsName reports whether s looks like an ENS name rather than an address.
func IsName(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasSuffix(s, ".eth") && len(s) > len(".eth")
}

// Resolver queries the ENS registry and resolvers through a call backend.
type Resolver struct {
	registry common.Address
	reg      *contract.Caller
	backend  contract.Backend
}

// NewResolver creates a Resolver that talks to the canonical registry.
func NewResolver(backend contract.Backend) *Resolver {
	return &Resolver{
		registry: RegistryAddress,
		reg:      contract.NewCaller(backend, contract.ENSRegistry),
		backend:  backend,
	}
}

// Resolve resolves an ENS name to an address.
func (r *Resolver) Resolve(ctx context.Context, name string) (common.Address, error) {
	node := Namehash(name)
	res, err := r.resolverFor(ctx, node, name)
	if err != nil {
		return common.Address{}, err
	}

	addr, err := res.Address(ctx, res.resolverAddr, "addr", [32]byte(node))
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS resolver: %w", err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: address for %q", ErrNoRecord, name)
	}
	return addr, nil
}

// ReverseLookup resolves an address to its primary ENS name.
func (r *Resolver) ReverseLookup(ctx context.Context, addr common.Address) (string, error) {
	reverse := strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x")) + ".addr.reverse"
	node := Namehash(reverse)
	res, err := r.resolverFor(ctx, node, addr.Hex())
	if err != nil {
		return "", err
	}

	name, err := res.String(ctx, res.resolverAddr, "name", [32]byte(node))
	if err != nil {
		return "", fmt.Errorf("querying reverse resolver: %w", err)
	}
	if name == "" {
		return "", fmt.Errorf("%w: reverse name for %s", ErrNoRecord, addr.Hex())
	}
	return name, nil
}

// resolverFor looks up the resolver contract responsible for node.
func (r *Resolver) resolverFor(ctx context.Context, node common.Hash, label string) (*boundResolver, error) {
	addr, err := r.reg.Address(ctx, r.registry, "resolver", [32]byte(node))
	if err != nil {
		return nil, fmt.Errorf("querying ENS registry: %w", err)
	}
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("%w for %q", ErrNoResolver, label)
	}
	return &boundResolver{Caller: contract.NewCaller(r.backend, contract.ENSResolver), resolverAddr: addr}, nil
}

type boundResolver struct {
	*contract.Caller
	resolverAddr common.Address
}

// Namehash implements the EIP-137 namehash algorithm:
// namehash("") = 0x00…00, namehash("eth") = keccak256(namehash("") ‖ keccak256("eth")).
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := keccak256([]byte(labels[i]))
		node = common.BytesToHash(keccak256(append(node.Bytes(), label...)))
	}
	return node
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
