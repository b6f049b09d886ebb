package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3scan/internal/analytics"
	"github.com/Mohsinsiddi/w3scan/internal/config"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var gasAll bool

// gasView is one network of `w3scan gas --json`.
type gasView struct {
	Network   string              `json:"network"`
	Gas       *analytics.GasTiers `json:"gas,omitempty"`
	LatencyMs int64               `json:"latencyMs"`
	Error     string              `json:"error,omitempty"`
}

var gasCmd = &cobra.Command{
	Use:   "gas",
	Short: "Show gas prices for one network or all of them",
	Long: `Show slow, standard, fast and instant gas prices in gwei.

With --all every network is queried concurrently in a live board sorted
cheapest first; press r to retry failed networks and q to quit.

Examples:
  w3scan gas
  w3scan gas --network polygon
  w3scan gas --all`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if gasAll {
			return runGasAll(cmd)
		}
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		ctx, cancel := contextWithTimeout(cmd, config.LookupTimeout)
		defer cancel()

		s := spin(fmt.Sprintf("Reading gas on %s…", net))
		res := fetchGas(ctx, net)
		s.Stop()
		if res.Err != nil {
			return res.Err
		}
		return output(gasView{Network: net, Gas: &res.Tiers, LatencyMs: res.Latency.Milliseconds()}, func() string {
			pairs := [][2]string{
				{"Slow", res.Tiers.Slow + " gwei"},
				{"Standard", ui.Val(res.Tiers.Standard + " gwei")},
				{"Fast", res.Tiers.Fast + " gwei"},
				{"Instant", res.Tiers.Instant + " gwei"},
			}
			if res.Tiers.BaseFee != "" {
				pairs = append(pairs, [2]string{"Base fee", res.Tiers.BaseFee + " gwei"})
			}
			return ui.KeyValueBlock(fmt.Sprintf("⛽ Gas  ·  %s · %s", net, cfg.NetworkMode), pairs)
		})
	},
}

// fetchGas reads the tiers of net and times the call.
func fetchGas(ctx context.Context, net string) ui.GasResultMsg {
	start := time.Now()
	tiers, err := getApp().analytics.Gas(ctx, net)
	res := ui.GasResultMsg{Network: net, Latency: time.Since(start), Err: err}
	if tiers != nil {
		res.Tiers = *tiers
	}
	return res
}

func runGasAll(cmd *cobra.Command) error {
	chains := getApp().registry.All()

	if jsonOut {
		views := make([]gasView, len(chains))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(8)
		for i, c := range chains {
			g.Go(func() error {
				cctx, cancel := context.WithTimeout(ctx, config.LookupTimeout)
				defer cancel()
				res := fetchGas(cctx, c.Name)
				views[i] = gasView{Network: c.Name, LatencyMs: res.Latency.Milliseconds()}
				if res.Err != nil {
					views[i].Error = res.Err.Error()
				} else {
					views[i].Gas = &res.Tiers
				}
				return nil
			})
		}
		g.Wait() //nolint:errcheck
		return output(views, nil)
	}

	rows := make([]ui.GasRow, len(chains))
	for i, c := range chains {
		rows[i] = ui.GasRow{Network: c.Name, DisplayName: c.DisplayName}
	}
	board := ui.NewGasBoard(cfg.NetworkMode, rows, func(network string) tea.Cmd {
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(cmd.Context(), config.LookupTimeout)
			defer cancel()
			return fetchGas(ctx, network)
		}
	})
	return ui.RunGasBoard(board)
}

func init() {
	gasCmd.Flags().BoolVarP(&gasAll, "all", "a", false, "show every network in a live board")
}
