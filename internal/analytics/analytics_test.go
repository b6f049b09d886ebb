package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/network"
	"github.com/Mohsinsiddi/w3scan/internal/testutil"
)

func addBlock(c *testutil.Chain, n uint64, txs int) {
	list := make([]testutil.Tx, txs)
	for i := range list {
		list[i] = testutil.Tx{Hash: testutil.Hash(int64(n)*100 + int64(i)), From: testutil.Addr(1)}
	}
	c.Add(n, list...)
}

func newService(t *testing.T, c *testutil.Chain) (*Service, *testutil.Node) {
	t.Helper()
	handlers := c.Handlers()
	handlers["eth_gasPrice"] = testutil.Static("0x3b9aca00")
	node := testutil.NewNode(t, handlers)

	reg := chain.NewRegistryFrom([]chain.Chain{{Name: "devnet", ChainID: 1337, MainnetRPCs: []string{node.URL}}})
	acc := network.New(reg, network.Options{})
	t.Cleanup(acc.Close)

	s := New(acc, Options{RequestsPerSecond: rate.Inf})
	s.now = func() time.Time { return time.UnixMilli(1_700_000_000_123) }
	return s, node
}

func TestStats(t *testing.T) {
	c := testutil.NewChain(1000)
	addBlock(c, 1000, 3)
	addBlock(c, 900, 0)
	s, _ := newService(t, c)

	st, err := s.Stats(context.Background(), "devnet")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), st.BlockNumber)
	assert.Equal(t, 12.0, st.BlockTime)
	assert.Equal(t, GasTiers{
		Slow: "0.8", Standard: "1", Fast: "1.2", Instant: "1.5", BaseFee: "1",
		Timestamp: 1_700_000_000_123,
	}, st.GasPrice)
	assert.InDelta(t, 0.25, st.TPS, 1e-9)
	assert.Equal(t, uint64(21_600), st.Transactions24h)
	assert.Equal(t, uint64(12_960), st.ActiveAddresses24h)
}

func TestGas(t *testing.T) {
	s, node := newService(t, testutil.NewChain(5))

	g, err := s.Gas(context.Background(), "devnet")
	require.NoError(t, err)
	assert.Equal(t, "1", g.Standard)
	assert.Equal(t, "1.5", g.Instant)
	assert.Equal(t, "1", g.BaseFee)
	assert.Equal(t, 1, node.Calls("eth_gasPrice"))
}

func TestStatsDefaultBlockTime(t *testing.T) {
	c := testutil.NewChain(50)
	addBlock(c, 50, 6)
	s, node := newService(t, c)

	st, err := s.Stats(context.Background(), "devnet")
	require.NoError(t, err)
	assert.Equal(t, DefaultBlockTime, st.BlockTime)
	assert.InDelta(t, 0.5, st.TPS, 1e-9)
	assert.Equal(t, 1, node.Calls("eth_getBlockByNumber"))
}

func TestStatsMissingBlockTimeReference(t *testing.T) {
	c := testutil.NewChain(1000)
	addBlock(c, 1000, 1)
	s, _ := newService(t, c)

	st, err := s.Stats(context.Background(), "devnet")
	require.NoError(t, err)
	assert.Equal(t, DefaultBlockTime, st.BlockTime)
}

func TestGasSamples(t *testing.T) {
	n, step := GasSamples(24)
	assert.Equal(t, 100, n)
	assert.Equal(t, 72, step)

	n, step = GasSamples(1)
	assert.Equal(t, 6, n)
	assert.Equal(t, 50, step)

	n, step = GasSamples(168)
	assert.Equal(t, 100, n)
	assert.Equal(t, 504, step)

	n, step = GasSamples(1 << 62)
	assert.Equal(t, 100, n, "huge ranges are clamped instead of overflowing")
	assert.Equal(t, MaxGasHours*BlocksPerHour/100, step)

	n, step = GasSamples(-5)
	assert.Equal(t, 6, n)
	assert.Equal(t, 50, step)
}

func TestHistoryRangeTooLarge(t *testing.T) {
	s, node := newService(t, testutil.NewChain(10))

	_, err := s.GasHistory(context.Background(), "devnet", 1<<62)
	assert.ErrorIs(t, err, ErrRangeTooLarge)
	_, err = s.GasHistory(context.Background(), "devnet", MaxGasHours+1)
	assert.ErrorIs(t, err, ErrRangeTooLarge)
	_, err = s.VolumeHistory(context.Background(), "devnet", 1<<62)
	assert.ErrorIs(t, err, ErrRangeTooLarge)
	_, err = s.VolumeHistory(context.Background(), "devnet", MaxVolumeDays+1)
	assert.ErrorIs(t, err, ErrRangeTooLarge)
	assert.Zero(t, node.Calls("eth_blockNumber"), "rejected before touching the node")

	_, err = s.VolumeHistory(context.Background(), "devnet", MaxVolumeDays)
	assert.NoError(t, err)
}

func TestGasHistory(t *testing.T) {
	c := testutil.NewChain(500)
	for _, n := range []uint64{500, 450, 400, 300, 250} {
		addBlock(c, n, 1)
	}
	c.Fail[400] = true
	s, node := newService(t, c)

	points, err := s.GasHistory(context.Background(), "devnet", 1)
	require.NoError(t, err)
	blocks := make([]uint64, len(points))
	for i, p := range points {
		blocks[i] = p.Block
		assert.Equal(t, 1.0, p.GasPrice)
		assert.Equal(t, int64(1_700_000_000+p.Block*12)*1000, p.Timestamp)
	}
	assert.Equal(t, []uint64{250, 300, 450, 500}, blocks)
	assert.Equal(t, 6, node.Calls("eth_getBlockByNumber"))
}

func TestVolumeHistory(t *testing.T) {
	c := testutil.NewChain(1000)
	addBlock(c, 1000, 4)
	addBlock(c, 700, 3)
	addBlock(c, 400, 2)
	addBlock(c, 100, 1)
	s, node := newService(t, c)

	points, err := s.VolumeHistory(context.Background(), "devnet", 1)
	require.NoError(t, err)
	require.Len(t, points, 4)
	for i, want := range []struct {
		block uint64
		count int
	}{{100, 1}, {400, 2}, {700, 3}, {1000, 4}} {
		assert.Equal(t, want.block, points[i].Block)
		assert.Equal(t, want.count, points[i].Count)
	}
	// the walk stops before going below genesis
	assert.Equal(t, 4, node.Calls("eth_getBlockByNumber"))
}

func TestHistoryCancelled(t *testing.T) {
	c := testutil.NewChain(1000)
	addBlock(c, 1000, 1)
	s, _ := newService(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.VolumeHistory(ctx, "devnet", 1)
	assert.Error(t, err)
}

func TestHistoryUnknownNetwork(t *testing.T) {
	s, _ := newService(t, testutil.NewChain(1))
	_, err := s.GasHistory(context.Background(), "nowhere", 24)
	assert.ErrorIs(t, err, network.ErrUnavailableNetwork)
}
