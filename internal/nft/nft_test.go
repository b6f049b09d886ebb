package nft

import (
	"context"
	"errors"
	"math"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/contract"
	"github.com/Mohsinsiddi/w3scan/internal/network"
	"github.com/Mohsinsiddi/w3scan/internal/testutil"
)

var (
	punks = testutil.Addr(0x9a2c)
	plain = testutil.Addr(0x1234)
	alice = testutil.Addr(0xa11ce)
	bob   = testutil.Addr(0xb0b)
)

type collection struct {
	owners map[int64]common.Address
	uris   map[int64]string
}

func register(cs *testutil.Contracts, addr common.Address, col *collection, withSupply bool) {
	cs.Register(addr, contract.ERC721, "name", testutil.Returns("Punks"))
	cs.Register(addr, contract.ERC721, "symbol", testutil.Returns("PNK"))
	if withSupply {
		cs.Register(addr, contract.ERC721, "totalSupply", testutil.Returns(big.NewInt(10_000)))
	}
	cs.Register(addr, contract.ERC721, "supportsInterface", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{args[0].([4]byte) == erc721InterfaceID}, nil
	})
	cs.Register(addr, contract.ERC721, "ownerOf", func(args []interface{}) ([]interface{}, error) {
		owner, ok := col.owners[args[0].(*big.Int).Int64()]
		if !ok {
			return nil, errors.New("nonexistent token")
		}
		return []interface{}{owner}, nil
	})
	cs.Register(addr, contract.ERC721, "tokenURI", func(args []interface{}) ([]interface{}, error) {
		uri, ok := col.uris[args[0].(*big.Int).Int64()]
		if !ok {
			return nil, errors.New("no uri")
		}
		return []interface{}{uri}, nil
	})
}

func newService(t *testing.T, c *testutil.Chain, cs *testutil.Contracts, logs *testutil.Logs) *Service {
	t.Helper()
	handlers := c.Handlers()
	handlers["eth_call"] = cs.Call
	handlers["eth_getLogs"] = logs.Handler(func() uint64 { return c.Head })
	node := testutil.NewNode(t, handlers)

	reg := chain.NewRegistryFrom([]chain.Chain{{Name: "devnet", ChainID: 1337, MainnetRPCs: []string{node.URL}}})
	acc := network.New(reg, network.Options{})
	t.Cleanup(acc.Close)
	return New(acc)
}

func TestCollection(t *testing.T) {
	cs := testutil.NewContracts()
	register(cs, punks, &collection{}, true)
	register(cs, plain, &collection{}, false)
	s := newService(t, testutil.NewChain(1), cs, &testutil.Logs{})
	ctx := context.Background()

	col, err := s.Collection(ctx, "devnet", punks)
	require.NoError(t, err)
	assert.Equal(t, "Punks", col.Name)
	assert.Equal(t, "PNK", col.Symbol)
	require.NotNil(t, col.TotalSupply)
	assert.Equal(t, uint64(10_000), *col.TotalSupply)

	col, err = s.Collection(ctx, "devnet", plain)
	require.NoError(t, err)
	assert.Nil(t, col.TotalSupply)

	_, err = s.Collection(ctx, "devnet", bob)
	assert.ErrorIs(t, err, contract.ErrEmptyResult)
}

func TestIsERC721(t *testing.T) {
	cs := testutil.NewContracts()
	register(cs, punks, &collection{}, false)
	cs.Register(plain, contract.ERC721, "name", testutil.Returns("Not an NFT"))
	s := newService(t, testutil.NewChain(1), cs, &testutil.Logs{})
	ctx := context.Background()

	ok, err := s.IsERC721(ctx, "devnet", punks)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsERC721(ctx, "devnet", plain)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.IsERC721(ctx, "devnet", alice)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestItemWithMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ipfs/QmMeta/1":
			// gateways often serve JSON as text/plain
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte(`{"name":"Punk #1","description":"first","image":"ipfs://QmImage/1.png","attributes":[{"trait_type":"hat","value":"cap"}]}`)) //nolint:errcheck
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	cs := testutil.NewContracts()
	register(cs, punks, &collection{
		owners: map[int64]common.Address{1: alice, 2: bob, 3: bob},
		uris:   map[int64]string{1: "ipfs://QmMeta/1", 2: "ipfs://QmMissing/2"},
	}, false)
	s := newService(t, testutil.NewChain(1), cs, &testutil.Logs{})
	s.SetGateway(srv.URL + "/ipfs")
	ctx := context.Background()

	item, err := s.Item(ctx, "devnet", punks, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, alice.Hex(), item.Owner)
	assert.Equal(t, "Punk #1", item.Name)
	assert.Equal(t, "first", item.Description)
	assert.Equal(t, srv.URL+"/ipfs/QmImage/1.png", item.Image)
	assert.JSONEq(t, `[{"trait_type":"hat","value":"cap"}]`, string(item.Attributes))

	// metadata 404 is not fatal
	item, err = s.Item(ctx, "devnet", punks, big.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, bob.Hex(), item.Owner)
	assert.Equal(t, "ipfs://QmMissing/2", item.TokenURI)
	assert.Empty(t, item.Name)

	// no tokenURI
	item, err = s.Item(ctx, "devnet", punks, big.NewInt(3))
	require.NoError(t, err)
	assert.Empty(t, item.TokenURI)

	_, err = s.Item(ctx, "devnet", punks, big.NewInt(99))
	assert.Error(t, err)
}

func TestItemDataURI(t *testing.T) {
	cs := testutil.NewContracts()
	register(cs, punks, &collection{
		owners: map[int64]common.Address{7: alice},
		// {"name":"On-chain"}
		uris: map[int64]string{7: "data:application/json;base64,eyJuYW1lIjoiT24tY2hhaW4ifQ=="},
	}, false)
	s := newService(t, testutil.NewChain(1), cs, &testutil.Logs{})

	item, err := s.Item(context.Background(), "devnet", punks, big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, "On-chain", item.Name)
}

func TestGatewayURL(t *testing.T) {
	s := New(nil)
	assert.Equal(t, "https://ipfs.io/ipfs/QmX/1.json", s.GatewayURL("ipfs://QmX/1.json"))
	assert.Equal(t, "https://ipfs.io/ipfs/QmX", s.GatewayURL("ipfs://ipfs/QmX"))
	assert.Equal(t, "https://example.com/1", s.GatewayURL("https://example.com/1"))
}

func TestOwnedBy(t *testing.T) {
	c := testutil.NewChain(20_000)
	logs := &testutil.Logs{}
	logs.Add(
		testutil.TransferLog(punks, 5_000, 0, common.Address{}, alice, big.NewInt(1), true), // outside window
		testutil.TransferLog(punks, 12_000, 0, common.Address{}, alice, big.NewInt(2), true),
		testutil.TransferLog(punks, 13_000, 0, common.Address{}, alice, big.NewInt(3), true),
		testutil.TransferLog(punks, 14_000, 0, alice, bob, big.NewInt(3), true),
		testutil.TransferLog(punks, 15_000, 0, bob, alice, big.NewInt(3), true),
		testutil.TransferLog(punks, 16_000, 0, common.Address{}, alice, big.NewInt(4), true),
		testutil.TransferLog(punks, 17_000, 0, common.Address{}, alice, big.NewInt(5), true),
		testutil.TransferLog(punks, 18_000, 0, common.Address{}, bob, big.NewInt(6), true),
	)
	cs := testutil.NewContracts()
	register(cs, punks, &collection{owners: map[int64]common.Address{
		1: alice, 2: alice, 3: alice, 4: bob, 6: bob, // 5 burned
	}}, false)
	s := newService(t, c, cs, logs)

	items, err := s.OwnedBy(context.Background(), "devnet", alice, punks, 10)
	require.NoError(t, err)
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.TokenID
		assert.Equal(t, alice.Hex(), it.Owner)
	}
	assert.Equal(t, []string{"2", "3"}, ids)

	items, err = s.OwnedBy(context.Background(), "devnet", alice, punks, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2", items[0].TokenID)

	items, err = s.OwnedBy(context.Background(), "devnet", alice, punks, math.MaxInt)
	require.NoError(t, err)
	assert.Len(t, items, 2, "the limit only bounds the result")
}
