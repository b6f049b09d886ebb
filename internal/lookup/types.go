package lookup

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
)

// AddressInfo summarises an account.
type AddressInfo struct {
	Address          string `json:"address"`
	Balance          string `json:"balance"`
	BalanceFormatted string `json:"balanceFormatted"`
	TransactionCount uint64 `json:"transactionCount"`
	IsContract       bool   `json:"isContract"`
}

// AddressDetails is AddressInfo plus the account's recent transactions.
type AddressDetails struct {
	AddressInfo
	Transactions []TxInfo `json:"transactions"`
}

// BlockInfo is the explorer view of a block.
type BlockInfo struct {
	Number           uint64   `json:"number"`
	Hash             string   `json:"hash"`
	Timestamp        uint64   `json:"timestamp"`
	ParentHash       string   `json:"parentHash"`
	Miner            string   `json:"miner"`
	GasUsed          string   `json:"gasUsed"`
	GasLimit         string   `json:"gasLimit"`
	BaseFeePerGas    string   `json:"baseFeePerGas,omitempty"`
	Transactions     []string `json:"transactions"`
	TransactionCount int      `json:"transactionCount"`
}

// TxInfo is the explorer view of a transaction. Receipt fields are only set
// once the transaction is mined.
type TxInfo struct {
	Hash            string  `json:"hash"`
	From            string  `json:"from"`
	To              *string `json:"to"`
	Value           string  `json:"value"`
	ValueFormatted  string  `json:"valueFormatted"`
	GasPrice        string  `json:"gasPrice"`
	GasUsed         string  `json:"gasUsed,omitempty"`
	GasLimit        string  `json:"gasLimit"`
	Nonce           uint64  `json:"nonce"`
	BlockNumber     uint64  `json:"blockNumber"`
	BlockHash       string  `json:"blockHash"`
	Timestamp       uint64  `json:"timestamp"`
	Confirmations   uint64  `json:"confirmations"`
	Input           string  `json:"input"`
	Method          string  `json:"method"`
	Status          *uint64 `json:"status,omitempty"`
	ContractAddress string  `json:"contractAddress,omitempty"`
}

// ContractInfo is the bytecode view of an address.
type ContractInfo struct {
	Address    string `json:"address"`
	Bytecode   string `json:"bytecode"`
	IsContract bool   `json:"isContract"`
	Balance    string `json:"balance"`
}

// NewBlockInfo converts a fetched block.
func NewBlockInfo(b *chain.Block) BlockInfo {
	info := BlockInfo{
		Number:           b.Number,
		Hash:             b.Hash.Hex(),
		Timestamp:        b.Timestamp,
		ParentHash:       b.ParentHash.Hex(),
		Miner:            b.Miner.Hex(),
		GasUsed:          new(big.Int).SetUint64(b.GasUsed).String(),
		GasLimit:         new(big.Int).SetUint64(b.GasLimit).String(),
		Transactions:     make([]string, len(b.TxHashes)),
		TransactionCount: b.TxCount(),
	}
	if b.BaseFee != nil {
		info.BaseFeePerGas = b.BaseFee.String()
	}
	for i, h := range b.TxHashes {
		info.Transactions[i] = h.Hex()
	}
	return info
}

// NewTxInfo converts a transaction. head is the current block height and
// sets Confirmations for mined transactions.
func NewTxInfo(tx *chain.Transaction, head uint64) TxInfo {
	info := TxInfo{
		Hash:           tx.Hash.Hex(),
		From:           tx.From.Hex(),
		Value:          bigString(tx.Value),
		ValueFormatted: chain.FormatEther(tx.Value),
		GasPrice:       bigString(tx.GasPrice),
		GasLimit:       new(big.Int).SetUint64(tx.Gas).String(),
		Nonce:          tx.Nonce,
		BlockNumber:    tx.BlockNumber,
		Timestamp:      tx.Timestamp,
		Input:          hexutil.Encode(tx.Input),
		Method:         tx.Method(),
		Confirmations:  confirmations(head, tx.BlockNumber),
	}
	if tx.To != nil {
		to := tx.To.Hex()
		info.To = &to
	}
	if tx.BlockHash != (common.Hash{}) {
		info.BlockHash = tx.BlockHash.Hex()
	}
	return info
}

// withReceipt adds receipt fields.
func (t *TxInfo) withReceipt(r *chain.Receipt) {
	status := r.Status
	t.Status = &status
	t.GasUsed = new(big.Int).SetUint64(r.GasUsed).String()
	if r.ContractAddress != nil {
		t.ContractAddress = r.ContractAddress.Hex()
	}
}

// confirmations counts the inclusion block itself; pending is 0.
func confirmations(head, block uint64) uint64 {
	if block == 0 || block > head {
		return 0
	}
	return head - block + 1
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
