package chain

import (
	"context"
	"math/big"
)

// GasInfo holds current gas pricing data for a chain.
type GasInfo struct {
	GasPrice     *big.Int // legacy eth_gasPrice (Wei)
	BaseFee      *big.Int // EIP-1559 base fee (Wei), nil on legacy chains
	GasPriceGwei float64
	BaseFeeGwei  float64
	BlockNumber  uint64
}

// Gas fetches the gas price and the base fee of the head block.
// A failing head block lookup is not fatal; BaseFee is left nil.
func (c *EVMClient) Gas(ctx context.Context) (*GasInfo, error) {
	gp, err := c.GasPrice(ctx)
	if err != nil {
		return nil, err
	}
	info := &GasInfo{
		GasPrice:     gp,
		GasPriceGwei: WeiToGwei(gp),
	}
	if head, err := c.LatestBlock(ctx, false); err == nil && head != nil {
		info.BlockNumber = head.Number
		if head.BaseFee != nil {
			info.BaseFee = head.BaseFee
			info.BaseFeeGwei = WeiToGwei(head.BaseFee)
		}
	}
	return info, nil
}
