package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3scan/internal/config"
)

func TestLoadDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "ethereum", cfg.DefaultNetwork)
	assert.Equal(t, "mainnet", cfg.NetworkMode)
	assert.Equal(t, "fastest", cfg.RPCAlgorithm)
	assert.Equal(t, "USD", cfg.PriceCurrency)
	assert.Equal(t, 10, cfg.WatchInterval)
	assert.Equal(t, config.DefaultScanDepth, cfg.Scan.MaxBlocksBack)
	assert.Equal(t, 0, cfg.Scan.BlockRetries)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 10.0, cfg.Server.RateLimit)
	assert.Equal(t, 20, cfg.Server.RateBurst)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.NotNil(t, cfg.CustomRPCs)
	assert.Len(t, cfg.Tokens("ethereum"), 5)
}

func TestSaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.DefaultNetwork = "base"
	cfg.RPCAlgorithm = "round-robin"
	cfg.Scan.MaxBlocksBack = 250
	cfg.Server.Addr = "127.0.0.1:9000"
	cfg.PopularTokens["base"] = []string{"0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"}

	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "base", reloaded.DefaultNetwork)
	assert.Equal(t, "round-robin", reloaded.RPCAlgorithm)
	assert.Equal(t, 250, reloaded.Scan.MaxBlocksBack)
	assert.Equal(t, "127.0.0.1:9000", reloaded.Server.Addr)
	assert.Equal(t, []string{"0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"}, reloaded.Tokens("base"))
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"default_network":"Arbitrum","scan":{"block_retries":2}}`), 0o600))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "arbitrum", cfg.DefaultNetwork)
	assert.Equal(t, 2, cfg.Scan.BlockRetries)
	assert.Equal(t, config.DefaultScanDepth, cfg.Scan.MaxBlocksBack)
	assert.Equal(t, "mainnet", cfg.NetworkMode)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{nope`), 0o600))

	_, err := config.Load(dir)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"default_network":"base"}`), 0o600))
	t.Setenv("W3SCAN_DEFAULT_NETWORK", "optimism")
	t.Setenv("W3SCAN_SERVER_ADDR", ":7777")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "optimism", cfg.DefaultNetwork)
	assert.Equal(t, ":7777", cfg.Server.Addr)
}

func TestDefaultDirFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)

	got, err := config.DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir())
}

func TestSet(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.Set("default_network", "Polygon"))
	assert.Equal(t, "polygon", cfg.DefaultNetwork)

	require.NoError(t, cfg.Set("network_mode", "testnet"))
	assert.Equal(t, "testnet", cfg.NetworkMode)
	assert.Error(t, cfg.Set("network_mode", "devnet"))

	require.NoError(t, cfg.Set("scan.max_blocks_back", "5000"))
	assert.Equal(t, 5000, cfg.Scan.MaxBlocksBack)
	assert.Error(t, cfg.Set("scan.max_blocks_back", "0"))
	assert.Error(t, cfg.Set("scan.max_blocks_back", "many"))

	require.NoError(t, cfg.Set("scan.block_retries", "0"))
	require.NoError(t, cfg.Set("server.rate_limit", "2.5"))
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
	assert.Error(t, cfg.Set("server.rate_limit", "-1"))

	require.NoError(t, cfg.Set("rpc_algorithm", "Round-Robin"))
	assert.Equal(t, "round-robin", cfg.RPCAlgorithm)
	assert.Error(t, cfg.Set("rpc_algorithm", "random"))

	require.NoError(t, cfg.Set("log_level", "debug"))
	assert.Error(t, cfg.Set("log_level", "loud"))

	assert.ErrorIs(t, cfg.Set("wallet", "x"), config.ErrUnknownKey)
}

func TestAddCustomRPC(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.AddRPC("Base", "https://custom.base.rpc"))
	assert.Contains(t, cfg.GetRPCs("base"), "https://custom.base.rpc")
	assert.Error(t, cfg.AddRPC("base", "https://custom.base.rpc"), "duplicates are rejected")
}

func TestRemoveCustomRPC(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	cfg.AddRPC("base", "https://rpc1.base") //nolint:errcheck
	cfg.AddRPC("base", "https://rpc2.base") //nolint:errcheck

	require.NoError(t, cfg.RemoveRPC("base", "https://rpc1.base"))

	rpcs := cfg.GetRPCs("base")
	assert.NotContains(t, rpcs, "https://rpc1.base")
	assert.Contains(t, rpcs, "https://rpc2.base")
	assert.Error(t, cfg.RemoveRPC("base", "https://nonexistent.rpc"))
}

func TestCustomRPCsSurviveReload(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	for _, url := range []string{"https://rpc1", "https://rpc2", "https://rpc3"} {
		require.NoError(t, cfg.AddRPC("ethereum", url))
	}
	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://rpc1", "https://rpc2", "https://rpc3"}, reloaded.GetRPCs("ethereum"))
}

func TestConfigFileCreatedOnSave(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Load(dir)
	require.NoError(t, cfg.Save())

	_, err := os.Stat(filepath.Join(dir, "config.json"))
	assert.NoError(t, err, "config.json should be created on save")
}

func TestLoadFromNonExistentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "subdir")
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ethereum", cfg.DefaultNetwork)
	assert.Equal(t, dir, cfg.Dir())
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("W3SCAN_DOTENV_NEW=from-file\nW3SCAN_DOTENV_KEEP=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("W3SCAN_DOTENV_NEW") })
	t.Setenv("W3SCAN_DOTENV_KEEP", "from-shell")

	require.NoError(t, config.LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("W3SCAN_DOTENV_NEW"))
	assert.Equal(t, "from-shell", os.Getenv("W3SCAN_DOTENV_KEEP"), "the shell environment wins")
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnvMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("W3SCAN_DOTENV_BAD=\"unterminated\n"), 0o600))
	assert.Error(t, config.LoadDotEnv(path))
}
