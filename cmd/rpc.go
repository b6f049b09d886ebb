package cmd

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/config"
	"github.com/Mohsinsiddi/w3scan/internal/rpc"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var rpcNoCheck bool

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage RPC endpoints",
	Long: `Manage RPC endpoints.

Endpoints are tried in this order: custom RPCs from config.json, then
W3SCAN_RPC_URL_<NETWORK> (comma-separated), then the built-in defaults.
Defaults containing {key} use the secret rpc.<network>; set it with
  w3scan secrets set rpc.<network>`,
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <network> <url>",
	Short: "Add a custom RPC URL for a network",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, raw := strings.ToLower(args[0]), args[1]
		if _, err := chain.NewRegistry().GetByName(name); err != nil {
			return fmt.Errorf("unknown network %q — run `w3scan network list` to see all networks", name)
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("invalid RPC URL %q: want http(s):// or ws(s)://", raw)
		}
		if !rpcNoCheck {
			s := spin("Probing " + redactURL(raw) + "…")
			ep, err := rpc.HealthCheck(cmd.Context(), raw, 0)
			s.Stop()
			if err != nil {
				return fmt.Errorf("RPC %s is not reachable: %w (use --no-check to add it anyway)", redactURL(raw), err)
			}
			fmt.Println(ui.Info(fmt.Sprintf("%s answered in %dms at block %s", redactURL(raw), ep.Latency.Milliseconds(), commaSep(ep.BlockNumber))))
		}
		if err := cfg.AddRPC(name, raw); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.ChainName(name), redactURL(raw))))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <network> <url>",
	Short: "Remove a custom RPC URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, raw := args[0], args[1]
		if err := cfg.RemoveRPC(name, raw); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Removed RPC for %s: %s", name, raw)))
		return nil
	},
}

var rpcListCmd = &cobra.Command{
	Use:   "list <network>",
	Short: "List the RPC endpoints of a network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := chain.NewRegistry().GetByName(args[0])
		if err != nil {
			return fmt.Errorf("unknown network %q — run `w3scan network list` to see all networks", args[0])
		}
		custom := cfg.GetRPCs(c.Name)
		if jsonOut {
			return output(map[string]interface{}{
				"network": c.Name,
				"mainnet": c.MainnetRPCs,
				"testnet": c.TestnetRPCs,
				"custom":  custom,
			}, nil)
		}

		fmt.Println(ui.StyleTitle.Render(fmt.Sprintf("RPCs for %s", c.DisplayName)))
		fmt.Println(ui.StyleHeader.Render("Built-in RPCs:"))
		for _, r := range c.MainnetRPCs {
			fmt.Printf("  %s %s\n", ui.Meta("(mainnet)"), r)
		}
		for _, r := range c.TestnetRPCs {
			fmt.Printf("  %s %s\n", ui.Meta("(testnet)"), r)
		}
		if len(custom) > 0 {
			fmt.Println(ui.StyleHeader.Render("Custom RPCs:"))
			for _, r := range custom {
				fmt.Printf("  %s\n", r)
			}
		}
		return nil
	},
}

var rpcBenchmarkCmd = &cobra.Command{
	Use:   "benchmark <network>",
	Short: "Benchmark a network's RPCs and show which one is picked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()
		c, err := a.accessor.Chain(args[0])
		if err != nil {
			return err
		}
		urls, err := a.accessor.Endpoints(c.Name)
		if err != nil {
			return err
		}
		algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
		if err != nil {
			return err
		}

		ctx, cancel := contextWithTimeout(cmd, config.RPCSelectTimeout+5*time.Second)
		defer cancel()
		s := spin(fmt.Sprintf("Benchmarking %d %s RPCs…", len(urls), c.DisplayName))
		results := rpc.BenchmarkEVM(ctx, urls)
		s.Stop()

		var picked string
		if best, err := rpc.NewPicker(algo).Pick(rpc.ResultsToEndpoints(results)); err == nil {
			picked = best.URL
		}

		if jsonOut {
			rows := make([]map[string]interface{}, len(results))
			for i, r := range results {
				row := map[string]interface{}{
					"url":         redactURL(r.URL),
					"latencyMs":   r.Latency.Milliseconds(),
					"blockNumber": r.BlockNumber,
					"selected":    r.URL == picked,
				}
				if r.Err != nil {
					row["error"] = r.Err.Error()
				}
				rows[i] = row
			}
			return output(rows, nil)
		}

		t := ui.NewTable([]ui.Column{
			{Title: "RPC URL", Width: 48},
			{Title: "Latency", Width: 10, Right: true},
			{Title: "Block #", Width: 12, Right: true},
			{Title: "Status", Width: 12},
		})
		for _, r := range results {
			status := ui.Success("healthy")
			latency := fmt.Sprintf("%dms", r.Latency.Milliseconds())
			block := fmt.Sprintf("%d", r.BlockNumber)
			if r.Err != nil {
				status, latency, block = ui.Err("down"), "—", "—"
			}
			u := redactURL(r.URL)
			if r.URL == picked {
				u = ui.Val("★ " + u)
			}
			t.AddRow(ui.Row{u, latency, block, status})
		}
		fmt.Printf("%s\n\n%s\n", ui.StyleTitle.Render(fmt.Sprintf("%s RPCs · %s", c.DisplayName, cfg.NetworkMode)), t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("★ picked by the %s algorithm", algo)))
		return nil
	},
}

var rpcAlgorithmCmd = &cobra.Command{
	Use:   "algorithm",
	Short: "Show or set the RPC selection algorithm",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(ui.Info(fmt.Sprintf("RPC algorithm: %s", cfg.RPCAlgorithm)))
		return nil
	},
}

var rpcAlgorithmSetCmd = &cobra.Command{
	Use:   "set <fastest|round-robin|failover>",
	Short: "Set the RPC selection algorithm",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set("rpc_algorithm", args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC algorithm set to %q", cfg.RPCAlgorithm)))
		return nil
	},
}

// redactURL hides path segments and query values that may carry API keys.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	out := u.Scheme + "://" + u.Host
	if p := strings.Trim(u.Path, "/"); p != "" {
		parts := strings.Split(p, "/")
		last := parts[len(parts)-1]
		if len(last) >= 20 {
			parts[len(parts)-1] = last[:4] + "…"
		}
		out += "/" + strings.Join(parts, "/")
	}
	if u.RawQuery != "" {
		out += "?…"
	}
	return out
}

func init() {
	rpcAddCmd.Flags().BoolVar(&rpcNoCheck, "no-check", false, "add the URL without probing it first")
	rpcAlgorithmCmd.AddCommand(rpcAlgorithmSetCmd)
	rpcCmd.AddCommand(rpcAddCmd, rpcRemoveCmd, rpcListCmd, rpcBenchmarkCmd, rpcAlgorithmCmd)
}
