package chain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
)

func TestRegistryHasAllChains(t *testing.T) {
	registry := chain.NewRegistry()
	assert.Equal(t, 5, len(registry.All()))
	assert.Equal(t, []string{"ethereum", "base", "arbitrum", "optimism", "polygon"}, registry.Names())
}

func TestRegistryGetByName(t *testing.T) {
	registry := chain.NewRegistry()

	tests := []struct {
		name    string
		chainID int64
	}{
		{"ethereum", 1},
		{"base", 8453},
		{"polygon", 137},
		{"arbitrum", 42161},
		{"optimism", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := registry.GetByName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, c.Name)
			assert.Equal(t, tt.chainID, c.ChainID)
		})
	}
}

func TestRegistryGetByNameCaseInsensitive(t *testing.T) {
	registry := chain.NewRegistry()
	c, err := registry.GetByName("  Base ")
	require.NoError(t, err)
	assert.Equal(t, "base", c.Name)
}

func TestRegistryGetUnknownChain(t *testing.T) {
	registry := chain.NewRegistry()
	_, err := registry.GetByName("unknownchain")
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}

func TestRegistryGetByChainID(t *testing.T) {
	registry := chain.NewRegistry()

	c, err := registry.GetByChainID(42161)
	require.NoError(t, err)
	assert.Equal(t, "arbitrum", c.Name)

	// testnet IDs resolve to the same chain
	c, err = registry.GetByChainID(84532)
	require.NoError(t, err)
	assert.Equal(t, "base", c.Name)

	_, err = registry.GetByChainID(999999)
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}

func TestAllChainsHaveRPC(t *testing.T) {
	registry := chain.NewRegistry()
	for _, c := range registry.All() {
		t.Run(c.Name, func(t *testing.T) {
			assert.NotEmpty(t, c.MainnetRPCs, "chain %s has no mainnet RPCs", c.Name)
			assert.NotEmpty(t, c.TestnetRPCs, "chain %s has no testnet RPCs", c.Name)
			assert.NotEmpty(t, c.MainnetExplorer)
			assert.NotEmpty(t, c.CoinGeckoID)
			assert.Equal(t, 18, c.NativeCurrency.Decimals)
		})
	}
}

func TestChainModeAccessors(t *testing.T) {
	c, err := chain.NewRegistry().GetByName("ethereum")
	require.NoError(t, err)

	assert.Equal(t, c.MainnetRPCs, c.RPCs(chain.ModeMainnet))
	assert.Equal(t, c.TestnetRPCs, c.RPCs(chain.ModeTestnet))
	assert.Equal(t, "https://etherscan.io", c.Explorer(""))
	assert.Equal(t, "https://sepolia.etherscan.io", c.Explorer(chain.ModeTestnet))
	assert.Equal(t, "https://eth.blockscout.com/api", c.ExplorerAPIURL(chain.ModeMainnet))
	assert.Equal(t, "https://eth-sepolia.blockscout.com/api", c.ExplorerAPIURL(chain.ModeTestnet))
}

func TestNewRegistryFrom(t *testing.T) {
	r := chain.NewRegistryFrom([]chain.Chain{{Name: "Devnet", ChainID: 31337}})
	c, err := r.GetByName("devnet")
	require.NoError(t, err)
	assert.Equal(t, int64(31337), c.ChainID)
	_, err = r.GetByName("ethereum")
	assert.ErrorIs(t, err, chain.ErrChainNotFound)
}
