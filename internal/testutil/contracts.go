package testutil

import (
	"encoding/json"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// MethodFunc answers a contract call with its return values. A non-nil
// error is reported as an execution revert.
type MethodFunc func(args []interface{}) ([]interface{}, error)

// Contracts answers eth_call from Go functions registered per address and
// method. Calls to addresses without a registration return empty data, the
// way a node answers calls to an account without code.
type Contracts struct {
	mu      sync.Mutex
	abis    map[common.Address]abi.ABI
	methods map[common.Address]map[string]MethodFunc
}

// NewContracts creates an empty contract set.
func NewContracts() *Contracts {
	return &Contracts{
		abis:    make(map[common.Address]abi.ABI),
		methods: make(map[common.Address]map[string]MethodFunc),
	}
}

// Register serves method of the contract at addr.
func (c *Contracts) Register(addr common.Address, parsed abi.ABI, method string, fn MethodFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abis[addr] = parsed
	if c.methods[addr] == nil {
		c.methods[addr] = make(map[string]MethodFunc)
	}
	c.methods[addr][method] = fn
}

// Returns is a MethodFunc answering fixed values.
func Returns(vals ...interface{}) MethodFunc {
	return func([]interface{}) ([]interface{}, error) { return vals, nil }
}

type callArg struct {
	To    *common.Address `json:"to"`
	Data  hexutil.Bytes   `json:"data"`
	Input hexutil.Bytes   `json:"input"`
}

// Call is the eth_call handler.
func (c *Contracts) Call(params []json.RawMessage) (interface{}, *RPCError) {
	if len(params) == 0 {
		return nil, &RPCError{Code: -32602, Message: "missing params"}
	}
	var arg callArg
	if err := json.Unmarshal(params[0], &arg); err != nil {
		return nil, &RPCError{Code: -32602, Message: err.Error()}
	}
	data := arg.Input
	if len(data) == 0 {
		data = arg.Data
	}
	if arg.To == nil || len(data) < 4 {
		return "0x", nil
	}

	c.mu.Lock()
	parsed, ok := c.abis[*arg.To]
	methods := c.methods[*arg.To]
	c.mu.Unlock()
	if !ok {
		return "0x", nil
	}

	m, err := parsed.MethodById(data[:4])
	if err != nil {
		return nil, &RPCError{Code: 3, Message: "execution reverted"}
	}
	fn, ok := methods[m.Name]
	if !ok {
		return nil, &RPCError{Code: 3, Message: "execution reverted"}
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, &RPCError{Code: -32602, Message: err.Error()}
	}
	vals, err := fn(args)
	if err != nil {
		return nil, &RPCError{Code: 3, Message: "execution reverted: " + err.Error()}
	}
	out, err := m.Outputs.Pack(vals...)
	if err != nil {
		return nil, &RPCError{Code: -32603, Message: err.Error()}
	}
	return hexutil.Encode(out), nil
}

// Logs serves eth_getLogs from a fixed log list, filtering by address,
// block range and topics.
type Logs struct {
	mu   sync.Mutex
	logs []types.Log
}

// Add appends logs.
func (l *Logs) Add(logs ...types.Log) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, logs...)
}

type filterArg struct {
	Address   []common.Address `json:"address"`
	Topics    [][]common.Hash  `json:"topics"`
	FromBlock string           `json:"fromBlock"`
	ToBlock   string           `json:"toBlock"`
}

// Handler is the eth_getLogs handler. head resolves "latest".
func (l *Logs) Handler(head func() uint64) Handler {
	return func(params []json.RawMessage) (interface{}, *RPCError) {
		if len(params) == 0 {
			return nil, &RPCError{Code: -32602, Message: "missing params"}
		}
		var q filterArg
		if err := json.Unmarshal(params[0], &q); err != nil {
			return nil, &RPCError{Code: -32602, Message: err.Error()}
		}
		from := blockArg(q.FromBlock, 0, head)
		to := blockArg(q.ToBlock, head(), head)

		l.mu.Lock()
		defer l.mu.Unlock()
		out := make([]types.Log, 0)
		for _, lg := range l.logs {
			if lg.BlockNumber < from || lg.BlockNumber > to {
				continue
			}
			if len(q.Address) > 0 && !containsAddr(q.Address, lg.Address) {
				continue
			}
			if !topicsMatch(q.Topics, lg.Topics) {
				continue
			}
			out = append(out, lg)
		}
		return out, nil
	}
}

func blockArg(s string, def uint64, head func() uint64) uint64 {
	switch strings.ToLower(s) {
	case "":
		return def
	case "latest", "pending", "safe", "finalized":
		return head()
	case "earliest":
		return 0
	}
	n, err := hexutil.DecodeUint64(s)
	if err != nil {
		return def
	}
	return n
}

func containsAddr(list []common.Address, a common.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func topicsMatch(filter [][]common.Hash, topics []common.Hash) bool {
	if len(filter) > len(topics) {
		return false
	}
	for i, alts := range filter {
		if len(alts) == 0 {
			continue
		}
		found := false
		for _, t := range alts {
			if t == topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// TransferLog builds an ERC-20/721 Transfer log. For ERC-721 the token ID is
// indexed; for ERC-20 the amount is the log data.
func TransferLog(token common.Address, block uint64, index uint, from, to common.Address, value *big.Int, indexedValue bool) types.Log {
	sig := common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	lg := types.Log{
		Address:     token,
		Topics:      []common.Hash{sig, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:        []byte{},
		BlockNumber: block,
		TxHash:      Hash(int64(block)<<16 | int64(index)),
		BlockHash:   BlockHash(block),
		Index:       index,
	}
	if indexedValue {
		lg.Topics = append(lg.Topics, common.BigToHash(value))
	} else {
		lg.Data = common.BigToHash(value).Bytes()
	}
	return lg
}
