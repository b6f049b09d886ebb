package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// FetchError reports a failed call to the node: transport errors, JSON-RPC
// errors and undecodable responses all surface as a FetchError.
type FetchError struct {
	Method string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func fetchErr(method string, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Method: method, Err: err}
}

// EVMClient is a context-aware JSON-RPC client for EVM chains. It is safe
// for concurrent use.
type EVMClient struct {
	url string
	rpc *rpc.Client
	eth *ethclient.Client
}

// NewEVMClient creates a client pointed at url. HTTP endpoints are not
// contacted until the first call.
func NewEVMClient(url string) (*EVMClient, error) {
	c, err := rpc.DialOptions(context.Background(), url,
		rpc.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}))
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return &EVMClient{url: url, rpc: c, eth: ethclient.NewClient(c)}, nil
}

// URL returns the endpoint this client talks to.
func (c *EVMClient) URL() string { return c.url }

// Close releases the underlying connection.
func (c *EVMClient) Close() { c.rpc.Close() }

// BlockNumber returns the latest block number.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fetchErr("eth_blockNumber", err)
	}
	return n, nil
}

// BlockByNumber fetches block n. With full set the block carries decoded
// transaction bodies. It returns nil, nil when the node has no such block.
func (c *EVMClient) BlockByNumber(ctx context.Context, n uint64, full bool) (*Block, error) {
	return c.getBlock(ctx, hexutil.EncodeUint64(n), full)
}

// LatestBlock fetches the head block.
func (c *EVMClient) LatestBlock(ctx context.Context, full bool) (*Block, error) {
	return c.getBlock(ctx, "latest", full)
}

// BlockByHash fetches the block with the given hash, or nil, nil if the node
// does not know it.
func (c *EVMClient) BlockByHash(ctx context.Context, hash common.Hash, full bool) (*Block, error) {
	return c.fetchBlock(ctx, "eth_getBlockByHash", hash, full)
}

// Balance returns the native balance of addr at the latest block, in wei.
func (c *EVMClient) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	bal, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fetchErr("eth_getBalance", err)
	}
	return bal, nil
}

// Code returns the bytecode at addr. Empty means an externally owned account.
func (c *EVMClient) Code(ctx context.Context, addr common.Address) ([]byte, error) {
	code, err := c.eth.CodeAt(ctx, addr, nil)
	if err != nil {
		return nil, fetchErr("eth_getCode", err)
	}
	return code, nil
}

// TransactionCount returns the nonce of addr at the latest block.
func (c *EVMClient) TransactionCount(ctx context.Context, addr common.Address) (uint64, error) {
	n, err := c.eth.NonceAt(ctx, addr, nil)
	if err != nil {
		return 0, fetchErr("eth_getTransactionCount", err)
	}
	return n, nil
}

// TransactionByHash returns a transaction, or nil, nil if the node does not
// know it. Timestamp is left zero; it lives on the block.
func (c *EVMClient) TransactionByHash(ctx context.Context, hash common.Hash) (*Transaction, error) {
	var rt *rpcTransaction
	if err := c.rpc.CallContext(ctx, &rt, "eth_getTransactionByHash", hash); err != nil {
		return nil, fetchErr("eth_getTransactionByHash", err)
	}
	if rt == nil {
		return nil, nil
	}
	return rt.toTx(), nil
}

// TransactionReceipt fetches the receipt for hash.
// Returns nil, nil if the transaction is pending or unknown.
func (c *EVMClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	var rr *rpcReceipt
	if err := c.rpc.CallContext(ctx, &rr, "eth_getTransactionReceipt", hash); err != nil {
		return nil, fetchErr("eth_getTransactionReceipt", err)
	}
	if rr == nil {
		return nil, nil
	}
	return &Receipt{
		TxHash:          hash,
		Status:          uint64(rr.Status),
		BlockNumber:     uint64(rr.BlockNumber),
		GasUsed:         uint64(rr.GasUsed),
		ContractAddress: rr.ContractAddress,
	}, nil
}

// CallContract executes a read-only call against the latest state.
func (c *EVMClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fetchErr("eth_call", err)
	}
	return out, nil
}

// FilterLogs queries event logs matching q.
func (c *EVMClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	logs, err := c.eth.FilterLogs(ctx, q)
	if err != nil {
		return nil, fetchErr("eth_getLogs", err)
	}
	return logs, nil
}

// GasPrice returns the node's suggested legacy gas price.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	gp, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fetchErr("eth_gasPrice", err)
	}
	return gp, nil
}

// ChainID returns the chain's ID.
func (c *EVMClient) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, fetchErr("eth_chainId", err)
	}
	return id, nil
}

// Ping tests the RPC endpoint and returns latency + block number.
func (c *EVMClient) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.BlockNumber(ctx)
	return time.Since(start), blockNum, err
}

// --- raw JSON-RPC shapes ---

// Blocks and transactions are decoded from raw JSON instead of through
// core/types so that L2-specific transaction types never fail the decode.

type rpcBlock struct {
	Number       hexutil.Uint64    `json:"number"`
	Hash         common.Hash       `json:"hash"`
	ParentHash   common.Hash       `json:"parentHash"`
	Timestamp    hexutil.Uint64    `json:"timestamp"`
	Miner        common.Address    `json:"miner"`
	GasUsed      hexutil.Uint64    `json:"gasUsed"`
	GasLimit     hexutil.Uint64    `json:"gasLimit"`
	BaseFee      *hexutil.Big      `json:"baseFeePerGas"`
	Transactions []json.RawMessage `json:"transactions"`
}

type rpcTransaction struct {
	Hash        common.Hash     `json:"hash"`
	From        common.Address  `json:"from"`
	To          *common.Address `json:"to"`
	Value       *hexutil.Big    `json:"value"`
	GasPrice    *hexutil.Big    `json:"gasPrice"`
	Gas         hexutil.Uint64  `json:"gas"`
	Nonce       hexutil.Uint64  `json:"nonce"`
	Input       hexutil.Bytes   `json:"input"`
	BlockNumber *hexutil.Big    `json:"blockNumber"`
	BlockHash   *common.Hash    `json:"blockHash"`
}

type rpcReceipt struct {
	Status          hexutil.Uint64  `json:"status"`
	BlockNumber     hexutil.Uint64  `json:"blockNumber"`
	GasUsed         hexutil.Uint64  `json:"gasUsed"`
	ContractAddress *common.Address `json:"contractAddress"`
}

func (rt *rpcTransaction) toTx() *Transaction {
	tx := &Transaction{
		Hash:  rt.Hash,
		From:  rt.From,
		To:    rt.To,
		Gas:   uint64(rt.Gas),
		Nonce: uint64(rt.Nonce),
		Input: rt.Input,
		Value: new(big.Int),
	}
	if rt.Value != nil {
		tx.Value = rt.Value.ToInt()
	}
	if rt.GasPrice != nil {
		tx.GasPrice = rt.GasPrice.ToInt()
	}
	if rt.BlockNumber != nil {
		tx.BlockNumber = rt.BlockNumber.ToInt().Uint64()
	}
	if rt.BlockHash != nil {
		tx.BlockHash = *rt.BlockHash
	}
	return tx
}

func (c *EVMClient) getBlock(ctx context.Context, tag string, full bool) (*Block, error) {
	return c.fetchBlock(ctx, "eth_getBlockByNumber", tag, full)
}

func (c *EVMClient) fetchBlock(ctx context.Context, method string, ref interface{}, full bool) (*Block, error) {
	var rb *rpcBlock
	if err := c.rpc.CallContext(ctx, &rb, method, ref, full); err != nil {
		return nil, fetchErr(method, err)
	}
	if rb == nil {
		return nil, nil
	}

	b := &Block{
		Number:     uint64(rb.Number),
		Hash:       rb.Hash,
		ParentHash: rb.ParentHash,
		Timestamp:  uint64(rb.Timestamp),
		Miner:      rb.Miner,
		GasUsed:    uint64(rb.GasUsed),
		GasLimit:   uint64(rb.GasLimit),
		TxHashes:   make([]common.Hash, 0, len(rb.Transactions)),
	}
	if rb.BaseFee != nil {
		b.BaseFee = rb.BaseFee.ToInt()
	}

	for _, raw := range rb.Transactions {
		if len(raw) > 0 && raw[0] == '"' {
			var h common.Hash
			if err := json.Unmarshal(raw, &h); err != nil {
				return nil, fetchErr(method, fmt.Errorf("decoding tx hash: %w", err))
			}
			b.TxHashes = append(b.TxHashes, h)
			continue
		}
		var rt rpcTransaction
		if err := json.Unmarshal(raw, &rt); err != nil {
			return nil, fetchErr(method, fmt.Errorf("decoding tx in block %d: %w", b.Number, err))
		}
		tx := rt.toTx()
		tx.BlockNumber = b.Number
		tx.BlockHash = b.Hash
		tx.Timestamp = b.Timestamp
		b.TxHashes = append(b.TxHashes, tx.Hash)
		b.Transactions = append(b.Transactions, tx)
	}
	return b, nil
}
