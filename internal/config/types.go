package config

// Config holds all w3scan configuration.
type Config struct {
	DefaultNetwork string              `json:"default_network" mapstructure:"default_network"`
	NetworkMode    string              `json:"network_mode"    mapstructure:"network_mode"`  // "mainnet" | "testnet"
	RPCAlgorithm   string              `json:"rpc_algorithm"   mapstructure:"rpc_algorithm"` // "fastest" | "round-robin" | "failover"
	PriceCurrency  string              `json:"price_currency"  mapstructure:"price_currency"`
	WatchInterval  int                 `json:"watch_interval"  mapstructure:"watch_interval"` // seconds
	CustomRPCs     map[string][]string `json:"custom_rpcs"     mapstructure:"custom_rpcs"`
	PopularTokens  map[string][]string `json:"popular_tokens"  mapstructure:"popular_tokens"`
	Scan           ScanConfig          `json:"scan"            mapstructure:"scan"`
	Server         ServerConfig        `json:"server"          mapstructure:"server"`
	LogLevel       string              `json:"log_level"       mapstructure:"log_level"`

	// internal: config dir path used for Save()
	configDir string
}

// ScanConfig tunes the recent-transaction scanner.
type ScanConfig struct {
	// MaxBlocksBack is how far below the head a scan may walk.
	MaxBlocksBack int `json:"max_blocks_back" mapstructure:"max_blocks_back"`
	// BlockRetries > 0 retries a failed block fetch and then skips the block
	// instead of failing the whole scan.
	BlockRetries int `json:"block_retries" mapstructure:"block_retries"`
}

// ServerConfig configures `w3scan serve`.
type ServerConfig struct {
	Addr        string   `json:"addr"         mapstructure:"addr"`
	CORSOrigins []string `json:"cors_origins" mapstructure:"cors_origins"`
	// RateLimit is the sustained requests per second allowed per client IP.
	RateLimit float64 `json:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `json:"rate_burst" mapstructure:"rate_burst"`
}
