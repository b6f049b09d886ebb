package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "List networks and pick the default",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all supported networks",
	RunE: func(cmd *cobra.Command, args []string) error {
		chains := chain.NewRegistry().All()
		if jsonOut {
			return output(chains, nil)
		}

		t := ui.NewTable([]ui.Column{
			{Title: "#", Width: 3},
			{Title: "Name", Width: 14},
			{Title: "Display", Width: 20},
			{Title: "Chain ID", Width: 10, Right: true},
			{Title: "Currency", Width: 9},
			{Title: "Testnet", Width: 18},
			{Title: "Explorer API", Width: 12},
		})
		for i, c := range chains {
			name := ui.ChainName(c.Name)
			if c.Name == cfg.DefaultNetwork {
				name += " ★"
			}
			api := "—"
			if c.ExplorerAPIURL(cfg.NetworkMode) != "" {
				api = "yes"
			}
			t.AddRow(ui.Row{
				fmt.Sprintf("%d", i+1),
				name,
				c.DisplayName,
				fmt.Sprintf("%d", c.ChainID),
				c.NativeCurrency.Symbol,
				c.TestnetName,
				api,
			})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d networks · mode %s · ★ default", len(chains), cfg.NetworkMode)))
		return nil
	},
}

var networkInfoCmd = &cobra.Command{
	Use:   "info [network]",
	Short: "Show a network's chain ID, currency, explorer and RPC endpoints",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := networkArg
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			var err error
			if name, err = resolveNetwork(); err != nil {
				return err
			}
		}
		a := getApp()
		c, err := a.accessor.Chain(name)
		if err != nil {
			return err
		}
		endpoints, err := a.accessor.Endpoints(c.Name)
		if err != nil {
			return err
		}

		view := struct {
			*chain.Chain
			Mode      string   `json:"mode"`
			Endpoints []string `json:"endpoints"`
		}{c, cfg.NetworkMode, endpoints}
		return output(view, func() string {
			id := c.ChainID
			if cfg.NetworkMode == chain.ModeTestnet {
				id = c.TestnetChainID
			}
			pairs := [][2]string{
				{"Name", ui.ChainName(c.Name)},
				{"Display", c.DisplayName},
				{"Chain ID", fmt.Sprintf("%d", id)},
				{"Currency", fmt.Sprintf("%s (%s, %d decimals)", c.NativeCurrency.Symbol, c.NativeCurrency.Name, c.NativeCurrency.Decimals)},
				{"Explorer", orDash(c.Explorer(cfg.NetworkMode))},
				{"Explorer API", orDash(c.ExplorerAPIURL(cfg.NetworkMode))},
				{"Endpoints", strings.Join(endpoints, "\n")},
			}
			if cfg.NetworkMode == chain.ModeTestnet {
				pairs = append(pairs, [2]string{"Testnet", c.TestnetName})
			}
			return ui.KeyValueBlock(fmt.Sprintf("🌐 %s · %s", c.DisplayName, cfg.NetworkMode), pairs)
		})
	},
}

var networkUseCmd = &cobra.Command{
	Use:   "use <network>",
	Short: "Set the default network",
	Long: `Set the default network and persist it to config.

When combined with --testnet or --mainnet the network mode is also persisted.

Examples:
  w3scan network use base              # set default network, keep current mode
  w3scan network use base --testnet    # also persist testnet mode
  w3scan network use polygon --mainnet # also persist mainnet mode`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.ToLower(args[0])
		if _, err := chain.NewRegistry().GetByName(name); err != nil {
			return fmt.Errorf("unknown network %q — run `w3scan network list` to see all networks", name)
		}

		cfg.DefaultNetwork = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default network set to %s (%s)", ui.ChainName(name), cfg.NetworkMode)))
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkInfoCmd, networkUseCmd)
}
