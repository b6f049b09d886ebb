package config

import "time"

// Timeout constants used across cmd and server packages.
const (
	RPCSelectTimeout = 10 * time.Second // BestEVM benchmark / RPC selection
	LookupTimeout    = 30 * time.Second // single explorer lookup from the CLI
	ScanTimeout      = 2 * time.Minute  // recent-transaction scan from the CLI
)

// DefaultScanDepth is the number of blocks a recent-transaction scan walks
// back from the head when nothing else is configured.
const DefaultScanDepth = 1000

// DefaultPopularTokens lists well-known ERC-20 contracts per network.
var DefaultPopularTokens = map[string][]string{
	"ethereum": {
		"0xdac17f958d2ee523a2206206994597c13d831ec7", // USDT
		"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", // USDC
		"0x6b175474e89094c44da98b954eedeac495271d0f", // DAI
		"0x2260fac5e5542a773aa44fbcfedf7c193bc2c599", // WBTC
		"0x514910771af9ca656af840dff83e8264ecf986ca", // LINK
	},
	"base": {
		"0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", // USDC
	},
	"arbitrum": {
		"0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9", // USDT
		"0xff970a61a04b1ca14834a43f5de4533ebddb5cc8", // USDC.e
	},
}
