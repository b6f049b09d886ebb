package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	defaultNetwork   = "ethereum"
	defaultMode      = "mainnet"
	defaultAlgorithm = "fastest"
	defaultCurrency  = "USD"
	defaultInterval  = 10
	defaultLogLevel  = "warn"

	defaultServerAddr = ":8080"
	defaultRateLimit  = 10.0
	defaultRateBurst  = 20

	configFile = "config.json"

	// EnvPrefix prefixes every environment override, e.g.
	// W3SCAN_DEFAULT_NETWORK or W3SCAN_SERVER_ADDR.
	EnvPrefix = "W3SCAN"
	// EnvConfigDir overrides the config directory.
	EnvConfigDir = "W3SCAN_CONFIG_DIR"

	// DotEnvFile is read from the working directory before config loads.
	DotEnvFile = ".env"
)

// ErrUnknownKey is returned by Set for keys that cannot be set by name.
var ErrUnknownKey = errors.New("unknown config key")

// LoadDotEnv exports the variables in path that are not already set in the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	logrus.WithField("path", path).Debug("Loaded environment file")
	return nil
}

// DefaultDir returns ~/.w3scan, or $W3SCAN_CONFIG_DIR when set.
func DefaultDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home dir: %w", err)
	}
	return filepath.Join(home, ".w3scan"), nil
}

// Load reads config from dir (or uses defaults). dir defaults to DefaultDir.
// Values are layered: defaults, then config.json, then W3SCAN_* environment
// variables.
func Load(dir string) (*Config, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	v := newViper(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.configDir = dir
	cfg.normalize()
	return cfg, nil
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, configFile))
	v.SetConfigType("json")

	v.SetDefault("default_network", defaultNetwork)
	v.SetDefault("network_mode", defaultMode)
	v.SetDefault("rpc_algorithm", defaultAlgorithm)
	v.SetDefault("price_currency", defaultCurrency)
	v.SetDefault("watch_interval", defaultInterval)
	v.SetDefault("custom_rpcs", map[string][]string{})
	v.SetDefault("popular_tokens", DefaultPopularTokens)
	v.SetDefault("scan.max_blocks_back", DefaultScanDepth)
	v.SetDefault("scan.block_retries", 0)
	v.SetDefault("server.addr", defaultServerAddr)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", defaultRateLimit)
	v.SetDefault("server.rate_burst", defaultRateBurst)
	v.SetDefault("log_level", defaultLogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// normalize fills zero values that would make the config unusable.
func (c *Config) normalize() {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if c.PopularTokens == nil {
		c.PopularTokens = make(map[string][]string)
	}
	if c.Scan.MaxBlocksBack <= 0 {
		c.Scan.MaxBlocksBack = DefaultScanDepth
	}
	if c.Scan.BlockRetries < 0 {
		c.Scan.BlockRetries = 0
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = defaultInterval
	}
	c.NetworkMode = strings.ToLower(c.NetworkMode)
	c.DefaultNetwork = strings.ToLower(c.DefaultNetwork)
}

// Save writes the config to disk as JSON.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Set assigns a scalar setting by its config key, e.g.
// Set("scan.max_blocks_back", "2000").
func (c *Config) Set(key, value string) error {
	switch strings.ToLower(key) {
	case "default_network":
		c.DefaultNetwork = strings.ToLower(value)
	case "network_mode":
		mode := strings.ToLower(value)
		if mode != "mainnet" && mode != "testnet" {
			return fmt.Errorf("network_mode must be mainnet or testnet, got %q", value)
		}
		c.NetworkMode = mode
	case "rpc_algorithm":
		algo := strings.ToLower(value)
		if !slices.Contains([]string{"fastest", "round-robin", "failover"}, algo) {
			return fmt.Errorf("rpc_algorithm must be fastest, round-robin or failover, got %q", value)
		}
		c.RPCAlgorithm = algo
	case "price_currency":
		c.PriceCurrency = strings.ToUpper(value)
	case "log_level":
		if _, err := logrus.ParseLevel(value); err != nil {
			return err
		}
		c.LogLevel = value
	case "watch_interval":
		return setInt(&c.WatchInterval, key, value, 1)
	case "scan.max_blocks_back":
		return setInt(&c.Scan.MaxBlocksBack, key, value, 1)
	case "scan.block_retries":
		return setInt(&c.Scan.BlockRetries, key, value, 0)
	case "server.addr":
		c.Server.Addr = value
	case "server.rate_limit":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("%s must be a positive number, got %q", key, value)
		}
		c.Server.RateLimit = f
	case "server.rate_burst":
		return setInt(&c.Server.RateBurst, key, value, 1)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

func setInt(dst *int, key, value string, min int) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < min {
		return fmt.Errorf("%s must be an integer >= %d, got %q", key, min, value)
	}
	*dst = n
	return nil
}

// AddRPC adds a custom RPC URL for a chain.
func (c *Config) AddRPC(chain, url string) error {
	chain = strings.ToLower(chain)
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[chain], url) {
		return fmt.Errorf("RPC %s already exists for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = append(c.CustomRPCs[chain], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a chain.
func (c *Config) RemoveRPC(chain, url string) error {
	chain = strings.ToLower(chain)
	rpcs := c.CustomRPCs[chain]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a chain.
func (c *Config) GetRPCs(chain string) []string {
	return c.CustomRPCs[strings.ToLower(chain)]
}

// Tokens returns the popular token list for a network.
func (c *Config) Tokens(network string) []string {
	return c.PopularTokens[strings.ToLower(network)]
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}
