package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/config"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/w3scan/cmd.Version=1.2.3" .
var Version = "1.0.0"

var (
	cfgDir     string
	cfg        *config.Config
	verbose    bool
	logLevel   string
	testnet    bool
	mainnet    bool
	networkArg string
	jsonOut    bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "w3scan",
	Short: "The Web3 block explorer",
	Long: `w3scan — a multi-network EVM block explorer for the terminal and HTTP.

  Look up addresses, blocks, transactions, contracts, tokens and NFTs,
  find an account's recent transactions by scanning back from the chain
  head, watch live network stats, or serve it all as a JSON API.

Global flags --testnet and --mainnet override the configured network mode
for a single invocation. Without either flag the persisted mode is used
(default: mainnet). Persist with: w3scan config set network_mode <mode>`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config (skip for commands that don't need it).
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		if err := config.LoadDotEnv(config.DotEnvFile); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if testnet {
			cfg.NetworkMode = "testnet"
		}
		if mainnet {
			cfg.NetworkMode = "mainnet"
		}
		return setupLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeApp()
	},
}

// setupLogging applies --log-level, --verbose and the configured level, in
// that order of precedence. Logs go to stderr so stdout stays parseable.
func setupLogging() error {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if verbose {
		level = "debug"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

// Execute runs the root command.
// Interrupts cancel the command context, which stops scans between blocks
// and shuts the API server down gracefully.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		closeApp()
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: ~/.w3scan, or $W3SCAN_CONFIG_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&testnet, "testnet", false, "use testnet instead of mainnet")
	rootCmd.PersistentFlags().BoolVar(&mainnet, "mainnet", false, "use mainnet instead of testnet")
	rootCmd.PersistentFlags().StringVarP(&networkArg, "network", "n", "", "network to query (default: configured default network)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")
	rootCmd.MarkFlagsMutuallyExclusive("testnet", "mainnet")

	// Register all sub-commands.
	rootCmd.AddCommand(
		addressCmd,
		portfolioCmd,
		blockCmd,
		txCmd,
		txsCmd,
		contractCmd,
		tokenCmd,
		nftCmd,
		statsCmd,
		gasCmd,
		ensCmd,
		networkCmd,
		rpcCmd,
		configCmd,
		secretsCmd,
		serveCmd,
		checksumCmd,
		keccakCmd,
		selectorCmd,
	)
}
