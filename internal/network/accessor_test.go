package network

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/rpc"
	"github.com/Mohsinsiddi/w3scan/internal/testutil"
)

type mapSecrets map[string]string

func (m mapSecrets) Lookup(name string) string { return m[name] }

func testRegistry(mainnet, testnet []string) *chain.Registry {
	return chain.NewRegistryFrom([]chain.Chain{{
		Name:           "devnet",
		DisplayName:    "Devnet",
		ChainID:        1337,
		NativeCurrency: chain.Currency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		MainnetRPCs:    mainnet,
		TestnetRPCs:    testnet,
	}})
}

// countingSelect returns the first url and counts invocations.
func countingSelect(n *int) SelectFunc {
	return func(_ context.Context, urls []string, _ string) (string, error) {
		*n++
		return urls[0], nil
	}
}

func TestChainUnknownNetwork(t *testing.T) {
	a := New(testRegistry(nil, nil), Options{})
	_, err := a.Chain("solana")
	assert.ErrorIs(t, err, ErrUnavailableNetwork)
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}

func TestEndpointsPriorityOrder(t *testing.T) {
	t.Setenv("W3SCAN_RPC_URL_DEVNET", "https://env-a, https://env-b")
	a := New(testRegistry([]string{"https://default", "https://custom"}, nil), Options{
		CustomRPCs: map[string][]string{"devnet": {"https://custom"}},
	})

	urls, err := a.Endpoints("DevNet")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://custom", "https://env-a", "https://env-b", "https://default"}, urls)
}

func TestEndpointsFillsKeyPlaceholder(t *testing.T) {
	reg := testRegistry([]string{"https://rpc.example/v2/{key}", "https://public"}, nil)

	withKey := New(reg, Options{Secrets: mapSecrets{"rpc.devnet": "s3cret"}})
	urls, err := withKey.Endpoints("devnet")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://rpc.example/v2/s3cret", "https://public"}, urls)

	withoutKey := New(reg, Options{})
	urls, err = withoutKey.Endpoints("devnet")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://public"}, urls)
}

func TestEndpointsNoneAvailable(t *testing.T) {
	a := New(testRegistry([]string{"https://main"}, nil), Options{Mode: chain.ModeTestnet})
	_, err := a.Endpoints("devnet")
	assert.ErrorIs(t, err, ErrUnavailableNetwork)
	assert.NotErrorIs(t, err, chain.ErrChainNotFound)
}

func TestEndpointsTestnetMode(t *testing.T) {
	a := New(testRegistry([]string{"https://main"}, []string{"https://test"}), Options{Mode: chain.ModeTestnet})
	urls, err := a.Endpoints("devnet")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://test"}, urls)
	assert.Equal(t, chain.ModeTestnet, a.Mode())
}

func TestCurrentHeightAndBlock(t *testing.T) {
	c := testutil.NewChain(120)
	c.Add(120, testutil.Tx{Hash: testutil.Hash(1), From: testutil.Addr(1), To: testutil.To(testutil.Addr(2)), Value: 5})
	node := testutil.NewNode(t, c.Handlers())

	a := New(testRegistry([]string{node.URL}, nil), Options{})
	t.Cleanup(a.Close)
	ctx := context.Background()

	h, err := a.CurrentHeight(ctx, "devnet")
	require.NoError(t, err)
	assert.Equal(t, uint64(120), h)

	b, err := a.BlockWithTransactions(ctx, "devnet", 120)
	require.NoError(t, err)
	require.NotNil(t, b)
	require.Len(t, b.Transactions, 1)
	assert.Equal(t, testutil.Addr(1), b.Transactions[0].From)
	assert.Equal(t, uint64(120), b.Transactions[0].BlockNumber)

	missing, err := a.BlockWithTransactions(ctx, "devnet", 7)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClientSelectedOnce(t *testing.T) {
	node := testutil.NewNode(t, testutil.NewChain(1).Handlers())
	calls := 0
	a := New(testRegistry([]string{node.URL, "https://other"}, nil), Options{Select: countingSelect(&calls)})
	t.Cleanup(a.Close)

	first, err := a.Client(context.Background(), "devnet")
	require.NoError(t, err)
	second, err := a.Client(context.Background(), "DEVNET")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, node.URL, first.URL())
}

func TestClientSelectionFailureNotCached(t *testing.T) {
	fail := true
	a := New(testRegistry([]string{"https://a", "https://b"}, nil), Options{
		Select: func(_ context.Context, urls []string, _ string) (string, error) {
			if fail {
				return "", rpc.ErrNoHealthyRPC
			}
			return urls[1], nil
		},
	})
	t.Cleanup(a.Close)

	_, err := a.Client(context.Background(), "devnet")
	var fe *chain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.ErrorIs(t, err, rpc.ErrNoHealthyRPC)

	fail = false
	c, err := a.Client(context.Background(), "devnet")
	require.NoError(t, err)
	assert.Equal(t, "https://b", c.URL())
}

func TestFetchErrorPropagates(t *testing.T) {
	node := testutil.NewNode(t, map[string]testutil.Handler{
		"eth_blockNumber": testutil.Fail(-32000, "backend down"),
	})
	a := New(testRegistry([]string{node.URL}, nil), Options{})
	t.Cleanup(a.Close)

	_, err := a.CurrentHeight(context.Background(), "devnet")
	var fe *chain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "eth_blockNumber", fe.Method)
}
