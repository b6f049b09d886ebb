package chain

import (
	"errors"
	"strings"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// Network modes.
const (
	ModeMainnet = "mainnet"
	ModeTestnet = "testnet"
)

// Currency describes a chain's native currency.
type Currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Chain holds all metadata for a single EVM network.
type Chain struct {
	Name            string   `json:"name"`
	DisplayName     string   `json:"display_name"`
	ChainID         int64    `json:"chain_id"`
	TestnetChainID  int64    `json:"testnet_chain_id"`
	NativeCurrency  Currency `json:"native_currency"`
	MainnetRPCs     []string `json:"mainnet_rpcs"`
	TestnetRPCs     []string `json:"testnet_rpcs"`
	MainnetExplorer string   `json:"mainnet_explorer"`
	TestnetExplorer string   `json:"testnet_explorer"`
	TestnetName     string   `json:"testnet_name"`
	// Etherscan-compatible tx API endpoints (no key required for basic use).
	MainnetExplorerAPI string `json:"mainnet_explorer_api,omitempty"`
	TestnetExplorerAPI string `json:"testnet_explorer_api,omitempty"`
	// CoinGeckoID identifies the native currency for USD pricing.
	CoinGeckoID string `json:"coingecko_id,omitempty"`
}

// Registry is the network registry. It is built once and passed to the
// components that need it; nothing mutates it after construction.
type Registry struct {
	chains []Chain
	byName map[string]*Chain
	byID   map[int64]*Chain
}

// NewRegistry creates the registry of built-in networks.
func NewRegistry() *Registry {
	return NewRegistryFrom(builtinChains())
}

// NewRegistryFrom builds a registry over an explicit chain list.
func NewRegistryFrom(chains []Chain) *Registry {
	r := &Registry{
		chains: chains,
		byName: make(map[string]*Chain, len(chains)),
		byID:   make(map[int64]*Chain, len(chains)),
	}
	for i := range r.chains {
		c := &r.chains[i]
		r.byName[strings.ToLower(c.Name)] = c
		if c.ChainID != 0 {
			r.byID[c.ChainID] = c
		}
		if c.TestnetChainID != 0 {
			r.byID[c.TestnetChainID] = c
		}
	}
	return r
}

// All returns every chain in the registry.
func (r *Registry) All() []Chain {
	return r.chains
}

// Names returns the slug of every chain, in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.chains))
	for i, c := range r.chains {
		names[i] = c.Name
	}
	return names
}

// GetByName finds a chain by its slug name (e.g. "base", "ethereum").
func (r *Registry) GetByName(name string) (*Chain, error) {
	c, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// GetByChainID finds a chain by its mainnet or testnet chain ID.
func (r *Registry) GetByChainID(id int64) (*Chain, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// RPCs returns the RPC list for a chain in the given mode ("mainnet"/"testnet").
func (c *Chain) RPCs(mode string) []string {
	if mode == ModeTestnet {
		return c.TestnetRPCs
	}
	return c.MainnetRPCs
}

// Explorer returns the explorer URL for a chain in the given mode.
func (c *Chain) Explorer(mode string) string {
	if mode == ModeTestnet {
		return c.TestnetExplorer
	}
	return c.MainnetExplorer
}

// ExplorerAPIURL returns the Etherscan-compatible API endpoint for the given
// mode, or an empty string if no API is registered for this chain.
func (c *Chain) ExplorerAPIURL(mode string) string {
	if mode == ModeTestnet {
		return c.TestnetExplorerAPI
	}
	return c.MainnetExplorerAPI
}

// --- chain data ---

func builtinChains() []Chain {
	ether := Currency{Name: "Ether", Symbol: "ETH", Decimals: 18}

	return []Chain{
		{
			Name: "ethereum", DisplayName: "Ethereum Mainnet", ChainID: 1, TestnetChainID: 11155111,
			NativeCurrency:     ether,
			MainnetRPCs:        []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			TestnetRPCs:        []string{"https://rpc.sepolia.org", "https://sepolia.gateway.tenderly.co"},
			MainnetExplorer:    "https://etherscan.io",
			TestnetExplorer:    "https://sepolia.etherscan.io",
			TestnetName:        "Sepolia",
			MainnetExplorerAPI: "https://eth.blockscout.com/api",
			TestnetExplorerAPI: "https://eth-sepolia.blockscout.com/api",
			CoinGeckoID:        "ethereum",
		},
		{
			Name: "base", DisplayName: "Base", ChainID: 8453, TestnetChainID: 84532,
			NativeCurrency:     ether,
			MainnetRPCs:        []string{"https://mainnet.base.org", "https://base.llamarpc.com"},
			TestnetRPCs:        []string{"https://sepolia.base.org"},
			MainnetExplorer:    "https://basescan.org",
			TestnetExplorer:    "https://sepolia.basescan.org",
			TestnetName:        "Base Sepolia",
			MainnetExplorerAPI: "https://base.blockscout.com/api",
			TestnetExplorerAPI: "https://base-sepolia.blockscout.com/api",
			CoinGeckoID:        "ethereum",
		},
		{
			Name: "arbitrum", DisplayName: "Arbitrum One", ChainID: 42161, TestnetChainID: 421614,
			NativeCurrency:     ether,
			MainnetRPCs:        []string{"https://arb1.arbitrum.io/rpc", "https://arbitrum.llamarpc.com"},
			TestnetRPCs:        []string{"https://sepolia-rollup.arbitrum.io/rpc"},
			MainnetExplorer:    "https://arbiscan.io",
			TestnetExplorer:    "https://sepolia.arbiscan.io",
			TestnetName:        "Arb Sepolia",
			MainnetExplorerAPI: "https://arbitrum.blockscout.com/api",
			TestnetExplorerAPI: "https://arbitrum-sepolia.blockscout.com/api",
			CoinGeckoID:        "ethereum",
		},
		{
			Name: "optimism", DisplayName: "OP Mainnet", ChainID: 10, TestnetChainID: 11155420,
			NativeCurrency:     ether,
			MainnetRPCs:        []string{"https://mainnet.optimism.io", "https://optimism.llamarpc.com"},
			TestnetRPCs:        []string{"https://sepolia.optimism.io"},
			MainnetExplorer:    "https://optimistic.etherscan.io",
			TestnetExplorer:    "https://sepolia-optimism.etherscan.io",
			TestnetName:        "OP Sepolia",
			MainnetExplorerAPI: "https://optimism.blockscout.com/api",
			TestnetExplorerAPI: "https://optimism-sepolia.blockscout.com/api",
			CoinGeckoID:        "ethereum",
		},
		{
			Name: "polygon", DisplayName: "Polygon PoS", ChainID: 137, TestnetChainID: 80002,
			NativeCurrency:     Currency{Name: "POL", Symbol: "POL", Decimals: 18},
			MainnetRPCs:        []string{"https://polygon-bor-rpc.publicnode.com", "https://polygon-pokt.nodies.app"},
			TestnetRPCs:        []string{"https://rpc-amoy.polygon.technology"},
			MainnetExplorer:    "https://polygonscan.com",
			TestnetExplorer:    "https://amoy.polygonscan.com",
			TestnetName:        "Amoy",
			MainnetExplorerAPI: "https://polygon.blockscout.com/api",
			TestnetExplorerAPI: "https://polygon-amoy.blockscout.com/api",
			CoinGeckoID:        "matic-network",
		},
	}
}
