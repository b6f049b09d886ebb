package chain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Block is a block as returned by the node. Transactions is only populated
// when the block was fetched with full bodies; TxHashes always is.
type Block struct {
	Number       uint64
	Hash         common.Hash
	ParentHash   common.Hash
	Timestamp    uint64
	Miner        common.Address
	GasUsed      uint64
	GasLimit     uint64
	BaseFee      *big.Int // nil on pre-EIP-1559 chains
	TxHashes     []common.Hash
	Transactions []*Transaction
}

// TxCount returns the number of transactions in the block.
func (b *Block) TxCount() int {
	return len(b.TxHashes)
}

// Age returns a human-readable relative age string.
func (b *Block) Age() string {
	return age(b.Timestamp)
}

// GasUsedPct returns gas utilisation as a percentage string.
func (b *Block) GasUsedPct() string {
	if b.GasLimit == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(b.GasUsed)/float64(b.GasLimit)*100)
}

// Transaction is an immutable record of a transfer included in a block.
type Transaction struct {
	Hash        common.Hash
	From        common.Address
	To          *common.Address // nil for contract creation
	Value       *big.Int
	GasPrice    *big.Int
	Gas         uint64
	Nonce       uint64
	Input       []byte
	BlockNumber uint64
	BlockHash   common.Hash
	Timestamp   uint64
}

// Involves reports whether addr is the sender or the recipient of tx.
func (tx *Transaction) Involves(addr common.Address) bool {
	if tx.From == addr {
		return true
	}
	return tx.To != nil && *tx.To == addr
}

// IsContractCreation reports whether tx deploys a contract.
func (tx *Transaction) IsContractCreation() bool {
	return tx.To == nil
}

// Method returns the decoded method name of the call data.
func (tx *Transaction) Method() string {
	return DecodeMethod(tx.Input)
}

// Receipt holds the on-chain receipt of a mined transaction.
type Receipt struct {
	TxHash          common.Hash
	Status          uint64 // 1 = success, 0 = reverted
	BlockNumber     uint64
	GasUsed         uint64
	ContractAddress *common.Address // set when a contract was deployed
}

// Succeeded reports whether the transaction executed successfully.
func (r *Receipt) Succeeded() bool {
	return r.Status == 1
}

func age(ts uint64) string {
	if ts == 0 {
		return "unknown"
	}
	now := uint64(time.Now().Unix())
	if ts > now {
		return "0s ago"
	}
	diff := now - ts
	switch {
	case diff < 60:
		return fmt.Sprintf("%ds ago", diff)
	case diff < 3600:
		return fmt.Sprintf("%dm ago", diff/60)
	case diff < 86400:
		return fmt.Sprintf("%dh ago", diff/3600)
	default:
		return fmt.Sprintf("%dd ago", diff/86400)
	}
}
