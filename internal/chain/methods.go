package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// knownMethods maps 4-byte selectors to human-readable names.
var knownMethods = map[string]string{
	"0xa9059cbb": "transfer",
	"0x095ea7b3": "approve",
	"0x23b872dd": "transferFrom",
	"0x42842e0e": "safeTransferFrom",
	"0xb88d4fde": "safeTransferFrom",
	"0xa22cb465": "setApprovalForAll",
	"0x39509351": "increaseAllowance",
	"0xa457c2d7": "decreaseAllowance",
	"0x7ff36ab5": "swapExactETHForTokens",
	"0x18cbafe5": "swapExactTokensForETH",
	"0x38ed1739": "swapExactTokensForTokens",
	"0xfb3bdb41": "swapETHForExactTokens",
	"0x8803dbee": "swapTokensForExactTokens",
	"0x5c11d795": "swapExactTokensForTokensSupportingFeeOnTransferTokens",
	"0xb6f9de95": "swapExactETHForTokensSupportingFeeOnTransferTokens",
	"0x791ac947": "swapExactTokensForETHSupportingFeeOnTransferTokens",
	"0x414bf389": "exactInputSingle", // Uniswap V3
	"0xdb3e2198": "exactOutputSingle",
	"0xac9650d8": "multicall",
	"0x5ae401dc": "multicall", // Uniswap V3 multicall
	"0x3593564c": "execute",   // Uniswap universal router
	"0x12aa3caf": "swap",      // 1inch v5
	"0x0502b1c5": "unoswap",   // 1inch
	"0xe8e33700": "addLiquidity",
	"0xf305d719": "addLiquidityETH",
	"0xbaa2abde": "removeLiquidity",
	"0x02751cec": "removeLiquidityETH",
	"0x6a627842": "mint",
	"0x40c10f19": "mint",
	"0x42966c68": "burn",
	"0x4e71d92d": "claim",
	"0x2e7ba6ef": "claim",
	"0x379607f5": "claim",
	"0x3d18b912": "getReward",
	"0xe9fad8ee": "exit",
	"0xa694fc3a": "stake",
	"0x2e1a7d4d": "withdraw",
	"0x51cff8d9": "withdraw",
	"0xd0e30db0": "deposit",
	"0xb6b55f25": "deposit",
	"0x70a08231": "balanceOf",
	"0x313ce567": "decimals",
	"0x06fdde03": "name",
	"0x95d89b41": "symbol",
	"0x18160ddd": "totalSupply",
}

// DecodeMethod returns a human-readable method name for call data.
// Plain value sends decode as "transfer"; unknown selectors are returned as
// their 0x-prefixed hex form.
func DecodeMethod(input []byte) string {
	if len(input) == 0 {
		return "transfer"
	}
	if len(input) < 4 {
		return "call"
	}
	selector := hexutil.Encode(input[:4])
	if name, ok := knownMethods[selector]; ok {
		return name
	}
	return selector
}

// DecodeMethodHex is DecodeMethod for hex-encoded call data, as returned by
// explorer APIs.
func DecodeMethodHex(input string) string {
	clean := strings.TrimPrefix(strings.TrimSpace(input), "0x")
	if clean == "" {
		return "transfer"
	}
	if len(clean) < 8 {
		return "call"
	}
	selector := "0x" + strings.ToLower(clean[:8])
	if name, ok := knownMethods[selector]; ok {
		return name
	}
	return selector
}
