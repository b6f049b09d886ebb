package ens

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3scan/internal/contract"
)

// ---------------------------------------------------------------------------
// Namehash — EIP-137 vectors
// ---------------------------------------------------------------------------

func TestNamehash(t *testing.T) {
	cases := map[string]string{
		"":        "0x0000000000000000000000000000000000000000000000000000000000000000",
		"eth":     "0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae",
		"foo.eth": "0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f",
	}
	for name, want := range cases {
		assert.Equal(t, want, Namehash(name).Hex(), name)
	}
}

func TestNamehashCaseSensitive(t *testing.T) {
	// Names must be normalised before hashing; the hash itself does not.
	assert.NotEqual(t, Namehash("Test.eth"), Namehash("test.eth"))
}

func TestIsName(t *testing.T) {
	assert.True(t, IsName("vitalik.eth"))
	assert.True(t, IsName(" Sub.Vitalik.ETH "))
	assert.False(t, IsName(".eth"))
	assert.False(t, IsName("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"))
}

// ---------------------------------------------------------------------------
// fake registry + resolver
// ---------------------------------------------------------------------------

type ensBackend struct {
	t         *testing.T
	resolvers map[common.Hash]common.Address // node → resolver
	addrs     map[common.Hash]common.Address // node → addr record
	names     map[common.Hash]string         // node → reverse name
	err       error
}

func (b *ensBackend) CallContract(_ context.Context, to common.Address, data []byte) ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	var node common.Hash
	copy(node[:], data[4:36])
	sel := hexutil.Encode(data[:4])

	switch {
	case to == RegistryAddress && sel == hexutil.Encode(contract.ENSRegistry.Methods["resolver"].ID):
		return packOut(b.t, contract.ENSRegistry, "resolver", b.resolvers[node]), nil
	case sel == hexutil.Encode(contract.ENSResolver.Methods["addr"].ID):
		return packOut(b.t, contract.ENSResolver, "addr", b.addrs[node]), nil
	case sel == hexutil.Encode(contract.ENSResolver.Methods["name"].ID):
		return packOut(b.t, contract.ENSResolver, "name", b.names[node]), nil
	}
	return nil, nil
}

func packOut(t *testing.T, parsed abi.ABI, method string, v interface{}) []byte {
	t.Helper()
	out, err := parsed.Methods[method].Outputs.Pack(v)
	require.NoError(t, err)
	return out
}

var (
	publicResolver = common.HexToAddress("0x4976fb03C32e5B8cfe2b6cCB31c09Ba78EBaBa41")
	vitalik        = common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
)

func newBackend(t *testing.T) *ensBackend {
	return &ensBackend{
		t:         t,
		resolvers: map[common.Hash]common.Address{},
		addrs:     map[common.Hash]common.Address{},
		names:     map[common.Hash]string{},
	}
}

func TestResolve(t *testing.T) {
	b := newBackend(t)
	node := Namehash("vitalik.eth")
	b.resolvers[node] = publicResolver
	b.addrs[node] = vitalik

	got, err := NewResolver(b).Resolve(context.Background(), "vitalik.eth")
	require.NoError(t, err)
	assert.Equal(t, vitalik, got)
}

func TestResolveNoResolver(t *testing.T) {
	_, err := NewResolver(newBackend(t)).Resolve(context.Background(), "nobody.eth")
	assert.ErrorIs(t, err, ErrNoResolver)
}

func TestResolveNoAddressRecord(t *testing.T) {
	b := newBackend(t)
	b.resolvers[Namehash("empty.eth")] = publicResolver

	_, err := NewResolver(b).Resolve(context.Background(), "empty.eth")
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestResolveBackendError(t *testing.T) {
	b := newBackend(t)
	b.err = errors.New("connection refused")

	_, err := NewResolver(b).Resolve(context.Background(), "vitalik.eth")
	assert.ErrorIs(t, err, b.err)
}

func TestReverseLookup(t *testing.T) {
	b := newBackend(t)
	node := Namehash("d8da6bf26964af9d7eed9e03e53415d37aa96045.addr.reverse")
	b.resolvers[node] = publicResolver
	b.names[node] = "vitalik.eth"

	name, err := NewResolver(b).ReverseLookup(context.Background(), vitalik)
	require.NoError(t, err)
	assert.Equal(t, "vitalik.eth", name)
}

func TestReverseLookupNoName(t *testing.T) {
	b := newBackend(t)
	node := Namehash("d8da6bf26964af9d7eed9e03e53415d37aa96045.addr.reverse")
	b.resolvers[node] = publicResolver

	_, err := NewResolver(b).ReverseLookup(context.Background(), vitalik)
	assert.ErrorIs(t, err, ErrNoRecord)
}
