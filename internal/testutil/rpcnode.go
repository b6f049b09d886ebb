// Package testutil provides an in-process JSON-RPC node for tests.
package testutil

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Handler answers one JSON-RPC method. A nil result with a nil error is
// serialised as JSON null.
type Handler func(params []json.RawMessage) (interface{}, *RPCError)

// Static returns a handler that always answers v.
func Static(v interface{}) Handler {
	return func([]json.RawMessage) (interface{}, *RPCError) { return v, nil }
}

// Fail returns a handler that always answers with a JSON-RPC error.
func Fail(code int, msg string) Handler {
	return func([]json.RawMessage) (interface{}, *RPCError) {
		return nil, &RPCError{Code: code, Message: msg}
	}
}

// Node is an httptest server speaking JSON-RPC. Unknown methods answer
// -32601. It records how often each method was called.
type Node struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	calls    map[string]int
	log      []Call
}

// Call is one recorded request.
type Call struct {
	Method string
	Params []json.RawMessage
}

// NewNode starts a node and registers its shutdown with t.Cleanup.
func NewNode(t testing.TB, handlers map[string]Handler) *Node {
	t.Helper()
	n := &Node{handlers: make(map[string]Handler), calls: make(map[string]int)}
	for m, h := range handlers {
		n.handlers[m] = h
	}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.Server.Close)
	return n
}

// Handle sets or replaces the handler for method.
func (n *Node) Handle(method string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

// Calls returns how many times method was requested.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// Log returns every recorded request in arrival order.
func (n *Node) Log() []Call {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Call(nil), n.log...)
}

type request struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	n.log = append(n.log, Call{Method: req.Method, Params: req.Params})
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if !ok {
		resp["error"] = RPCError{Code: -32601, Message: "method not found"}
	} else if result, rpcErr := h(req.Params); rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

// ---------------------------------------------------------------------------
// chain fixtures
// ---------------------------------------------------------------------------

// Addr returns a deterministic address derived from n.
func Addr(n int64) common.Address {
	return common.BigToAddress(big.NewInt(n))
}

// Hash returns a deterministic hash derived from n.
func Hash(n int64) common.Hash {
	return common.BigToHash(big.NewInt(n))
}

// Tx is a transaction fixture.
type Tx struct {
	Hash  common.Hash
	From  common.Address
	To    *common.Address
	Value int64
	Input []byte
}

// To returns a pointer to addr, for use in Tx literals.
func To(addr common.Address) *common.Address { return &addr }

// Chain serves blocks, transactions, receipts and account state from
// memory. Heights missing from Blocks answer null.
type Chain struct {
	mu     sync.Mutex
	Head   uint64
	Blocks map[uint64][]Tx
	// Fail makes eth_getBlockByNumber error for the listed heights.
	Fail map[uint64]bool
	// Pending transactions are known but not mined.
	Pending  []Tx
	Reverted map[common.Hash]bool
	Balances map[common.Address]*big.Int
	Codes    map[common.Address][]byte
	Nonces   map[common.Address]uint64
}

// NewChain creates a chain with the given head and no blocks.
func NewChain(head uint64) *Chain {
	return &Chain{
		Head:     head,
		Blocks:   make(map[uint64][]Tx),
		Fail:     make(map[uint64]bool),
		Reverted: make(map[common.Hash]bool),
		Balances: make(map[common.Address]*big.Int),
		Codes:    make(map[common.Address][]byte),
		Nonces:   make(map[common.Address]uint64),
	}
}

// Add registers block n holding txs.
func (c *Chain) Add(n uint64, txs ...Tx) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Blocks[n] = append(c.Blocks[n], txs...)
}

// Handlers returns the JSON-RPC handlers serving this chain.
func (c *Chain) Handlers() map[string]Handler {
	return map[string]Handler{
		"eth_blockNumber": func([]json.RawMessage) (interface{}, *RPCError) {
			c.mu.Lock()
			defer c.mu.Unlock()
			return hexutil.EncodeUint64(c.Head), nil
		},
		"eth_getBlockByNumber":      c.blockByNumber,
		"eth_getBlockByHash":        c.blockByHash,
		"eth_getTransactionByHash":  c.txByHash,
		"eth_getTransactionReceipt": c.receipt,
		"eth_getBalance": func(params []json.RawMessage) (interface{}, *RPCError) {
			c.mu.Lock()
			defer c.mu.Unlock()
			bal := c.Balances[paramAddr(params)]
			if bal == nil {
				bal = new(big.Int)
			}
			return hexutil.EncodeBig(bal), nil
		},
		"eth_getCode": func(params []json.RawMessage) (interface{}, *RPCError) {
			c.mu.Lock()
			defer c.mu.Unlock()
			return hexutil.Encode(c.Codes[paramAddr(params)]), nil
		},
		"eth_getTransactionCount": func(params []json.RawMessage) (interface{}, *RPCError) {
			c.mu.Lock()
			defer c.mu.Unlock()
			return hexutil.EncodeUint64(c.Nonces[paramAddr(params)]), nil
		},
	}
}

func paramAddr(params []json.RawMessage) common.Address {
	var a common.Address
	if len(params) > 0 {
		json.Unmarshal(params[0], &a) //nolint:errcheck
	}
	return a
}

func paramHash(params []json.RawMessage) common.Hash {
	var h common.Hash
	if len(params) > 0 {
		json.Unmarshal(params[0], &h) //nolint:errcheck
	}
	return h
}

// find locates a mined transaction by hash. Callers hold c.mu.
func (c *Chain) find(hash common.Hash) (n uint64, index int, tx Tx, ok bool) {
	for num, txs := range c.Blocks {
		for i, t := range txs {
			if t.Hash == hash {
				return num, i, t, true
			}
		}
	}
	return 0, 0, Tx{}, false
}

func (c *Chain) txByHash(params []json.RawMessage) (interface{}, *RPCError) {
	hash := paramHash(params)
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, i, tx, ok := c.find(hash); ok {
		return TxJSON(n, BlockHash(n), uint64(i), tx), nil
	}
	for _, tx := range c.Pending {
		if tx.Hash == hash {
			m := TxJSON(0, common.Hash{}, 0, tx)
			m["blockNumber"] = nil
			m["blockHash"] = nil
			m["transactionIndex"] = nil
			return m, nil
		}
	}
	return nil, nil
}

func (c *Chain) receipt(params []json.RawMessage) (interface{}, *RPCError) {
	hash := paramHash(params)
	c.mu.Lock()
	defer c.mu.Unlock()
	n, i, tx, ok := c.find(hash)
	if !ok {
		return nil, nil
	}
	status := "0x1"
	if c.Reverted[hash] {
		status = "0x0"
	}
	r := map[string]interface{}{
		"transactionHash":   hash.Hex(),
		"transactionIndex":  hexutil.EncodeUint64(uint64(i)),
		"blockHash":         BlockHash(n).Hex(),
		"blockNumber":       hexutil.EncodeUint64(n),
		"from":              tx.From.Hex(),
		"to":                nil,
		"gasUsed":           hexutil.EncodeUint64(21_000),
		"cumulativeGasUsed": hexutil.EncodeUint64(21_000 * uint64(i+1)),
		"contractAddress":   nil,
		"logs":              []interface{}{},
		"status":            status,
	}
	if tx.To != nil {
		r["to"] = tx.To.Hex()
	} else {
		r["contractAddress"] = Addr(int64(n)<<8 | int64(i)).Hex()
	}
	return r, nil
}

// BlockHash returns the hash BlockJSON assigns to block n.
func BlockHash(n uint64) common.Hash {
	return Hash(int64(n) + 1_000_000)
}

func (c *Chain) blockByHash(params []json.RawMessage) (interface{}, *RPCError) {
	if len(params) < 2 {
		return nil, &RPCError{Code: -32602, Message: "missing params"}
	}
	var hash common.Hash
	var full bool
	if err := json.Unmarshal(params[0], &hash); err != nil {
		return nil, &RPCError{Code: -32602, Message: err.Error()}
	}
	json.Unmarshal(params[1], &full) //nolint:errcheck

	c.mu.Lock()
	defer c.mu.Unlock()
	for n, txs := range c.Blocks {
		if BlockHash(n) == hash {
			return BlockJSON(n, full, txs...), nil
		}
	}
	return nil, nil
}

func (c *Chain) blockByNumber(params []json.RawMessage) (interface{}, *RPCError) {
	if len(params) < 2 {
		return nil, &RPCError{Code: -32602, Message: "missing params"}
	}
	var tag string
	var full bool
	if err := json.Unmarshal(params[0], &tag); err != nil {
		return nil, &RPCError{Code: -32602, Message: err.Error()}
	}
	json.Unmarshal(params[1], &full) //nolint:errcheck

	c.mu.Lock()
	defer c.mu.Unlock()

	var num uint64
	if strings.EqualFold(tag, "latest") {
		num = c.Head
	} else {
		n, err := hexutil.DecodeUint64(tag)
		if err != nil {
			return nil, &RPCError{Code: -32602, Message: err.Error()}
		}
		num = n
	}
	if c.Fail[num] {
		return nil, &RPCError{Code: -32000, Message: "header not found"}
	}
	txs, ok := c.Blocks[num]
	if !ok {
		return nil, nil
	}
	return BlockJSON(num, full, txs...), nil
}

// BlockJSON renders block n the way a node does.
func BlockJSON(n uint64, full bool, txs ...Tx) map[string]interface{} {
	hash := BlockHash(n)
	list := make([]interface{}, 0, len(txs))
	for i, tx := range txs {
		if full {
			list = append(list, TxJSON(n, hash, uint64(i), tx))
		} else {
			list = append(list, tx.Hash.Hex())
		}
	}
	parent := common.Hash{}
	if n > 0 {
		parent = Hash(int64(n) + 999_999)
	}
	return map[string]interface{}{
		"number":        hexutil.EncodeUint64(n),
		"hash":          hash.Hex(),
		"parentHash":    parent.Hex(),
		"timestamp":     hexutil.EncodeUint64(1_700_000_000 + n*12),
		"miner":         Addr(0xfee).Hex(),
		"gasUsed":       hexutil.EncodeUint64(21_000 * uint64(len(txs))),
		"gasLimit":      hexutil.EncodeUint64(30_000_000),
		"baseFeePerGas": hexutil.EncodeBig(big.NewInt(1_000_000_000)),
		"transactions":  list,
	}
}

// TxJSON renders tx as a full transaction object inside block n.
func TxJSON(n uint64, blockHash common.Hash, index uint64, tx Tx) map[string]interface{} {
	m := map[string]interface{}{
		"hash":             tx.Hash.Hex(),
		"from":             tx.From.Hex(),
		"to":               nil,
		"value":            hexutil.EncodeBig(big.NewInt(tx.Value)),
		"gas":              hexutil.EncodeUint64(21_000),
		"gasPrice":         hexutil.EncodeBig(big.NewInt(2_000_000_000)),
		"nonce":            hexutil.EncodeUint64(index),
		"input":            hexutil.Encode(tx.Input),
		"blockNumber":      hexutil.EncodeUint64(n),
		"blockHash":        blockHash.Hex(),
		"transactionIndex": hexutil.EncodeUint64(index),
		"type":             "0x2",
	}
	if tx.To != nil {
		m["to"] = tx.To.Hex()
	}
	return m
}
