package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage configuration stored in config.json under the config directory.

Any key can also be overridden per invocation with an environment variable,
e.g. W3SCAN_DEFAULT_NETWORK=base or W3SCAN_SCAN_MAX_BLOCKS_BACK=5000.`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOut {
			return output(cfg, nil)
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("%s\n\n", ui.StyleTitle.Render("Current Configuration"))
		fmt.Println(string(data))
		fmt.Println(ui.Meta("Config directory: " + cfg.Dir()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and save it.

Keys:
  default_network       network used without --network
  network_mode          mainnet or testnet
  rpc_algorithm         fastest, round-robin or failover
  price_currency        fiat currency for values, e.g. USD or EUR
  log_level             trace, debug, info, warn or error
  watch_interval        seconds between live dashboard refreshes
  scan.max_blocks_back  how far below the head a scan may walk
  scan.block_retries    retries per failed block before it is skipped (0 fails fast)
  server.addr           listen address of w3scan serve
  server.rate_limit     requests per second per client IP
  server.rate_burst     burst size per client IP`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s set to %q", args[0], args[1])))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd, configSetCmd)
}
