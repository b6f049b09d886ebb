package chain

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3scan/internal/testutil"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

var (
	alice = common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	bob   = common.HexToAddress("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
)

// newMockClient starts a JSON-RPC node serving fixed results per method.
func newMockClient(t *testing.T, responses map[string]interface{}) (*EVMClient, *testutil.Node) {
	t.Helper()
	handlers := make(map[string]testutil.Handler, len(responses))
	for m, v := range responses {
		handlers[m] = testutil.Static(v)
	}
	node := testutil.NewNode(t, handlers)
	c, err := NewEVMClient(node.URL)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, node
}

func newHandlerClient(t *testing.T, handlers map[string]testutil.Handler) *EVMClient {
	t.Helper()
	node := testutil.NewNode(t, handlers)
	c, err := NewEVMClient(node.URL)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

// rpcBadJSON creates a server that returns malformed JSON.
func rpcBadJSON(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not valid json`)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func requireFetchError(t *testing.T, err error, method string) {
	t.Helper()
	require.Error(t, err)
	var fe *FetchError
	require.True(t, errors.As(err, &fe), "expected *FetchError, got %T", err)
	assert.Equal(t, method, fe.Method)
}

// ---------------------------------------------------------------------------
// NewEVMClient
// ---------------------------------------------------------------------------

func TestNewEVMClientUnsupportedScheme(t *testing.T) {
	_, err := NewEVMClient("ftp://example.com")
	require.Error(t, err)
}

func TestNewEVMClientKeepsURL(t *testing.T) {
	c, err := NewEVMClient("http://127.0.0.1:8545")
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "http://127.0.0.1:8545", c.URL())
}

// ---------------------------------------------------------------------------
// BlockNumber / ChainID / GasPrice
// ---------------------------------------------------------------------------

func TestBlockNumberSuccess(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{
		"eth_blockNumber": "0x1388", // 5000
	})
	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), n)
}

func TestBlockNumberRPCError(t *testing.T) {
	c := newHandlerClient(t, map[string]testutil.Handler{
		"eth_blockNumber": testutil.Fail(-32603, "internal error"),
	})
	_, err := c.BlockNumber(context.Background())
	requireFetchError(t, err, "eth_blockNumber")
	assert.Contains(t, err.Error(), "internal error")
}

func TestBlockNumberConnectionRefused(t *testing.T) {
	c, err := NewEVMClient("http://127.0.0.1:19999")
	require.NoError(t, err)
	_, err = c.BlockNumber(context.Background())
	requireFetchError(t, err, "eth_blockNumber")
}

func TestBlockNumberInvalidJSON(t *testing.T) {
	srv := rpcBadJSON(t)
	c, err := NewEVMClient(srv.URL)
	require.NoError(t, err)
	_, err = c.BlockNumber(context.Background())
	requireFetchError(t, err, "eth_blockNumber")
}

func TestChainIDSuccess(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{
		"eth_chainId": "0x2105", // 8453 = Base mainnet
	})
	id, err := c.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(8453), id.Int64())
}

func TestGasPriceSuccess(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{
		"eth_gasPrice": "0x77359400", // 2 Gwei
	})
	gp, err := c.GasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2_000_000_000), gp)
}

// ---------------------------------------------------------------------------
// Balance / Code / TransactionCount
// ---------------------------------------------------------------------------

func TestBalanceSuccess(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{
		"eth_getBalance": "0x1BC16D674EC80000", // 2 ETH
	})
	bal, err := c.Balance(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "2.000000000000000000", WeiToETH(bal))
}

func TestBalanceZero(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{
		"eth_getBalance": "0x0",
	})
	bal, err := c.Balance(context.Background(), bob)
	require.NoError(t, err)
	assert.Equal(t, 0, bal.Sign())
}

func TestBalanceRPCError(t *testing.T) {
	c := newHandlerClient(t, map[string]testutil.Handler{
		"eth_getBalance": testutil.Fail(-32602, "invalid params"),
	})
	_, err := c.Balance(context.Background(), alice)
	requireFetchError(t, err, "eth_getBalance")
}

func TestCodeContract(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{
		"eth_getCode": "0x6080604052",
	})
	code, err := c.Code(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, code)
}

func TestCodeEOA(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{
		"eth_getCode": "0x",
	})
	code, err := c.Code(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestTransactionCountSuccess(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{
		"eth_getTransactionCount": "0x2a",
	})
	n, err := c.TransactionCount(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)
}

// ---------------------------------------------------------------------------
// BlockByNumber
// ---------------------------------------------------------------------------

func TestBlockByNumberFull(t *testing.T) {
	chainData := testutil.NewChain(100)
	chainData.Add(100,
		testutil.Tx{Hash: testutil.Hash(1), From: alice, To: testutil.To(bob), Value: 1000},
		testutil.Tx{Hash: testutil.Hash(2), From: bob, Input: []byte{0x60, 0x80}},
	)
	c := newHandlerClient(t, chainData.Handlers())

	b, err := c.BlockByNumber(context.Background(), 100, true)
	require.NoError(t, err)
	require.NotNil(t, b)

	assert.Equal(t, uint64(100), b.Number)
	assert.Equal(t, uint64(1_700_000_000+100*12), b.Timestamp)
	assert.Equal(t, uint64(30_000_000), b.GasLimit)
	assert.Equal(t, big.NewInt(1_000_000_000), b.BaseFee)
	require.Len(t, b.Transactions, 2)
	assert.Equal(t, 2, b.TxCount())

	first := b.Transactions[0]
	assert.Equal(t, testutil.Hash(1), first.Hash)
	assert.Equal(t, alice, first.From)
	require.NotNil(t, first.To)
	assert.Equal(t, bob, *first.To)
	assert.Equal(t, big.NewInt(1000), first.Value)
	assert.Equal(t, uint64(21_000), first.Gas)
	assert.Equal(t, b.Hash, first.BlockHash)
	assert.Equal(t, b.Timestamp, first.Timestamp)
	assert.Equal(t, uint64(100), first.BlockNumber)

	creation := b.Transactions[1]
	assert.Nil(t, creation.To)
	assert.True(t, creation.IsContractCreation())
	assert.Equal(t, []byte{0x60, 0x80}, creation.Input)
}

func TestBlockByNumberHashesOnly(t *testing.T) {
	chainData := testutil.NewChain(7)
	chainData.Add(7, testutil.Tx{Hash: testutil.Hash(9), From: alice})
	c := newHandlerClient(t, chainData.Handlers())

	b, err := c.BlockByNumber(context.Background(), 7, false)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Empty(t, b.Transactions)
	assert.Equal(t, []common.Hash{testutil.Hash(9)}, b.TxHashes)
}

func TestBlockByNumberAbsent(t *testing.T) {
	c := newHandlerClient(t, testutil.NewChain(10).Handlers())
	b, err := c.BlockByNumber(context.Background(), 11, true)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestBlockByNumberRPCError(t *testing.T) {
	chainData := testutil.NewChain(10)
	chainData.Fail[5] = true
	c := newHandlerClient(t, chainData.Handlers())

	_, err := c.BlockByNumber(context.Background(), 5, true)
	requireFetchError(t, err, "eth_getBlockByNumber")
}

func TestBlockByNumberL2TransactionType(t *testing.T) {
	// OP-stack deposit transactions carry fields core/types does not know.
	block := map[string]interface{}{
		"number":     "0x10",
		"hash":       testutil.Hash(16).Hex(),
		"parentHash": testutil.Hash(15).Hex(),
		"timestamp":  "0x6553f100",
		"miner":      bob.Hex(),
		"gasUsed":    "0x0",
		"gasLimit":   "0x1c9c380",
		"transactions": []interface{}{map[string]interface{}{
			"hash":       testutil.Hash(77).Hex(),
			"from":       alice.Hex(),
			"to":         bob.Hex(),
			"value":      "0x0",
			"gas":        "0xf4240",
			"nonce":      "0x0",
			"input":      "0x",
			"type":       "0x7e",
			"sourceHash": testutil.Hash(1).Hex(),
			"mint":       "0x0",
		}},
	}
	c, _ := newMockClient(t, map[string]interface{}{"eth_getBlockByNumber": block})

	b, err := c.BlockByNumber(context.Background(), 16, true)
	require.NoError(t, err)
	require.Len(t, b.Transactions, 1)
	assert.Nil(t, b.BaseFee)
	assert.Nil(t, b.Transactions[0].GasPrice)
	assert.Equal(t, 0, b.Transactions[0].Value.Sign())
}

func TestLatestBlockRequestsLatestTag(t *testing.T) {
	chainData := testutil.NewChain(3)
	chainData.Add(3)
	node := testutil.NewNode(t, chainData.Handlers())
	c, err := NewEVMClient(node.URL)
	require.NoError(t, err)

	b, err := c.LatestBlock(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, uint64(3), b.Number)

	calls := node.Log()
	require.Len(t, calls, 1)
	var tag string
	require.NoError(t, json.Unmarshal(calls[0].Params[0], &tag))
	assert.Equal(t, "latest", tag)
}

func TestBlockByHash(t *testing.T) {
	chainData := testutil.NewChain(9)
	chainData.Add(9, testutil.Tx{Hash: testutil.Hash(3), From: alice, To: testutil.To(bob)})
	c := newHandlerClient(t, chainData.Handlers())

	b, err := c.BlockByHash(context.Background(), testutil.BlockHash(9), true)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, uint64(9), b.Number)
	require.Len(t, b.Transactions, 1)
	assert.Equal(t, testutil.BlockHash(9), b.Transactions[0].BlockHash)

	missing, err := c.BlockByHash(context.Background(), testutil.Hash(1), false)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// ---------------------------------------------------------------------------
// TransactionByHash / TransactionReceipt
// ---------------------------------------------------------------------------

func TestTransactionByHashSuccess(t *testing.T) {
	tx := testutil.TxJSON(0xE5E534, testutil.Hash(500), 0,
		testutil.Tx{Hash: testutil.Hash(3), From: alice, To: testutil.To(bob), Value: 7})
	c, _ := newMockClient(t, map[string]interface{}{"eth_getTransactionByHash": tx})

	got, err := c.TransactionByHash(context.Background(), testutil.Hash(3))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(0xE5E534), got.BlockNumber)
	assert.Equal(t, testutil.Hash(500), got.BlockHash)
	assert.Equal(t, big.NewInt(7), got.Value)
	assert.Equal(t, "transfer", got.Method())
}

func TestTransactionByHashUnknown(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{"eth_getTransactionByHash": nil})
	got, err := c.TransactionByHash(context.Background(), testutil.Hash(3))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTransactionReceiptSuccess(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]interface{}{
			"status":          "0x1",
			"blockNumber":     "0x64",
			"gasUsed":         "0x5208",
			"contractAddress": nil,
		},
	})
	r, err := c.TransactionReceipt(context.Background(), testutil.Hash(3))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.Succeeded())
	assert.Equal(t, uint64(100), r.BlockNumber)
	assert.Equal(t, uint64(21000), r.GasUsed)
	assert.Nil(t, r.ContractAddress)
	assert.Equal(t, testutil.Hash(3), r.TxHash)
}

func TestTransactionReceiptReverted(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]interface{}{
			"status":          "0x0",
			"blockNumber":     "0x64",
			"gasUsed":         "0x5208",
			"contractAddress": bob.Hex(),
		},
	})
	r, err := c.TransactionReceipt(context.Background(), testutil.Hash(3))
	require.NoError(t, err)
	assert.False(t, r.Succeeded())
	require.NotNil(t, r.ContractAddress)
	assert.Equal(t, bob, *r.ContractAddress)
}

func TestTransactionReceiptPending(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{"eth_getTransactionReceipt": nil})
	r, err := c.TransactionReceipt(context.Background(), testutil.Hash(3))
	require.NoError(t, err)
	assert.Nil(t, r)
}

// ---------------------------------------------------------------------------
// CallContract / FilterLogs
// ---------------------------------------------------------------------------

func TestCallContractSuccess(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{
		"eth_call": "0x0000000000000000000000000000000000000000000000000000000000000012",
	})
	out, err := c.CallContract(context.Background(), bob, []byte{0x31, 0x3c, 0xe5, 0x67})
	require.NoError(t, err)
	assert.Equal(t, int64(18), new(big.Int).SetBytes(out).Int64())
}

func TestCallContractRevert(t *testing.T) {
	c := newHandlerClient(t, map[string]testutil.Handler{
		"eth_call": testutil.Fail(3, "execution reverted"),
	})
	_, err := c.CallContract(context.Background(), bob, nil)
	requireFetchError(t, err, "eth_call")
}

func TestFilterLogsSuccess(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{
		"eth_getLogs": []interface{}{map[string]interface{}{
			"address":          bob.Hex(),
			"topics":           []string{testutil.Hash(1).Hex()},
			"data":             "0x",
			"blockNumber":      "0x10",
			"transactionHash":  testutil.Hash(2).Hex(),
			"transactionIndex": "0x0",
			"blockHash":        testutil.Hash(3).Hex(),
			"logIndex":         "0x0",
			"removed":          false,
		}},
	})
	logs, err := c.FilterLogs(context.Background(), ethereum.FilterQuery{Addresses: []common.Address{bob}})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, uint64(16), logs[0].BlockNumber)
	assert.Equal(t, bob, logs[0].Address)
}

func TestFilterLogsEmpty(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{"eth_getLogs": []interface{}{}})
	logs, err := c.FilterLogs(context.Background(), ethereum.FilterQuery{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

// ---------------------------------------------------------------------------
// Ping / Gas
// ---------------------------------------------------------------------------

func TestPingSuccess(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{"eth_blockNumber": "0x64"})
	latency, n, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), n)
	assert.Greater(t, latency, time.Duration(0))
}

func TestPingContextCancelled(t *testing.T) {
	c, _ := newMockClient(t, map[string]interface{}{"eth_blockNumber": "0x64"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := c.Ping(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGasEIP1559Chain(t *testing.T) {
	chainData := testutil.NewChain(9)
	chainData.Add(9)
	handlers := chainData.Handlers()
	handlers["eth_gasPrice"] = testutil.Static("0x77359400")
	c := newHandlerClient(t, handlers)

	info, err := c.Gas(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2.0, info.GasPriceGwei, 0.0001)
	assert.InDelta(t, 1.0, info.BaseFeeGwei, 0.0001)
	assert.Equal(t, uint64(9), info.BlockNumber)
}

func TestGasLegacyChain(t *testing.T) {
	c := newHandlerClient(t, map[string]testutil.Handler{
		"eth_gasPrice":         testutil.Static("0x3b9aca00"),
		"eth_getBlockByNumber": testutil.Fail(-32000, "unavailable"),
	})
	info, err := c.Gas(context.Background())
	require.NoError(t, err)
	assert.Nil(t, info.BaseFee)
	assert.InDelta(t, 1.0, info.GasPriceGwei, 0.0001)
	assert.Zero(t, info.BaseFeeGwei)
}

func TestGasPriceError(t *testing.T) {
	c := newHandlerClient(t, map[string]testutil.Handler{
		"eth_gasPrice": testutil.Fail(-32000, "boom"),
	})
	_, err := c.Gas(context.Background())
	requireFetchError(t, err, "eth_gasPrice")
}

// ---------------------------------------------------------------------------
// Transaction helpers
// ---------------------------------------------------------------------------

func TestTransactionInvolves(t *testing.T) {
	tx := &Transaction{From: alice, To: &bob}
	assert.True(t, tx.Involves(alice))
	assert.True(t, tx.Involves(bob))
	assert.False(t, tx.Involves(common.HexToAddress("0x01")))

	creation := &Transaction{From: alice}
	assert.True(t, creation.Involves(alice))
	assert.False(t, creation.Involves(common.Address{}))
}

func TestInvolvesIgnoresCase(t *testing.T) {
	upper := common.HexToAddress("0xDEADBEEFDEADBEEFDEADBEEFDEADBEEFDEADBEEF")
	tx := &Transaction{From: alice, To: &bob}
	assert.True(t, tx.Involves(upper))
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := fetchErr("eth_call", inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "eth_call: boom", err.Error())
	assert.Nil(t, fetchErr("eth_call", nil))
}
