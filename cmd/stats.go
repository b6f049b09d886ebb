package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/analytics"
	"github.com/Mohsinsiddi/w3scan/internal/config"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var (
	statsAll      bool
	statsLive     bool
	statsInterval int
	historyHours  int
	historyDays   int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show live network statistics",
	Long: `Show the latest block, average block time, throughput and gas tiers of a
network. With --live the numbers refresh every --interval seconds. With
--all every network is read concurrently and compared side by side.

Examples:
  w3scan stats
  w3scan stats --all
  w3scan stats --network base --live --interval 5
  w3scan stats gas-history --hours 12
  w3scan stats tx-history --days 7`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if statsAll {
			return runStatsAll(cmd)
		}
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		a := getApp()

		if statsLive && !jsonOut {
			interval := time.Duration(statsInterval) * time.Second
			if statsInterval <= 0 {
				interval = time.Duration(cfg.WatchInterval) * time.Second
			}
			fetch := func() (*analytics.Stats, error) {
				ctx, cancel := context.WithTimeout(cmd.Context(), config.LookupTimeout)
				defer cancel()
				return a.analytics.Stats(ctx, net)
			}
			_, err := ui.NewDashboard(net, interval, fetch).Run()
			return err
		}

		ctx, cancel := contextWithTimeout(cmd, config.LookupTimeout)
		defer cancel()
		s := spin(fmt.Sprintf("Reading %s stats…", net))
		stats, err := a.analytics.Stats(ctx, net)
		s.Stop()
		if err != nil {
			return err
		}
		return output(stats, func() string {
			pairs := [][2]string{
				{"Latest block", commaSep(stats.BlockNumber)},
				{"Block time", fmt.Sprintf("%.2fs", stats.BlockTime)},
				{"Throughput", fmt.Sprintf("%.2f tx/s", stats.TPS)},
				{"Gas (slow)", stats.GasPrice.Slow + " gwei"},
				{"Gas (standard)", stats.GasPrice.Standard + " gwei"},
				{"Gas (fast)", stats.GasPrice.Fast + " gwei"},
				{"Gas (instant)", stats.GasPrice.Instant + " gwei"},
			}
			if stats.GasPrice.BaseFee != "" {
				pairs = append(pairs, [2]string{"Base fee", stats.GasPrice.BaseFee + " gwei"})
			}
			return ui.KeyValueBlock(fmt.Sprintf("📊 %s · %s", net, cfg.NetworkMode), pairs)
		})
	},
}

func runStatsAll(cmd *cobra.Command) error {
	a := getApp()
	chains := a.registry.All()
	names := make([]string, len(chains))
	for i, c := range chains {
		names[i] = c.Name
	}

	ctx, cancel := contextWithTimeout(cmd, config.LookupTimeout)
	defer cancel()
	s := spin(fmt.Sprintf("Reading stats of %d networks…", len(names)))
	rows := a.analytics.Compare(ctx, names)
	s.Stop()

	return output(rows, func() string {
		return ui.StyleTitle.Render(fmt.Sprintf("📊 Networks  ·  %s", cfg.NetworkMode)) + "\n\n" + renderCompare(rows)
	})
}

// renderCompare lays out one row per network; failed networks show their
// error in place of the figures.
func renderCompare(rows []analytics.NetworkStats) string {
	t := ui.NewTable([]ui.Column{
		{Title: "Network", Width: 12},
		{Title: "Block", Width: 12, Right: true},
		{Title: "Block time", Width: 10, Right: true},
		{Title: "TPS", Width: 8, Right: true},
		{Title: "Gas (gwei)", Width: 10, Right: true},
		{Title: "Txs 24h", Width: 12, Right: true},
	})
	var failed []string
	for _, r := range rows {
		if r.Stats == nil {
			t.AddRow(ui.Row{ui.ChainName(r.Network), ui.Err("error")})
			failed = append(failed, ui.Warn(r.Network+": "+r.Error))
			continue
		}
		st := r.Stats
		t.AddRow(ui.Row{
			ui.ChainName(r.Network),
			commaSep(st.BlockNumber),
			fmt.Sprintf("%.2fs", st.BlockTime),
			fmt.Sprintf("%.2f", st.TPS),
			st.GasPrice.Standard,
			commaSep(st.Transactions24h),
		})
	}
	out := t.Render()
	for _, f := range failed {
		out += f + "\n"
	}
	return out
}

var gasHistoryCmd = &cobra.Command{
	Use:   "gas-history",
	Short: "Chart the base fee over the last hours",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		ctx, cancel := contextWithTimeout(cmd, config.ScanTimeout)
		defer cancel()

		if historyHours <= 0 {
			historyHours = analytics.DefaultGasHours
		}
		samples, _ := analytics.GasSamples(historyHours)
		s := spin(fmt.Sprintf("Sampling %d blocks over %dh on %s…", samples, historyHours, net))
		points, err := getApp().analytics.GasHistory(ctx, net, historyHours)
		s.Stop()
		if err != nil {
			return err
		}
		return output(points, func() string {
			if len(points) == 0 {
				return ui.Meta(net + " has no base fee history (pre-EIP-1559 blocks).")
			}
			bars := make([]bar, len(points))
			for i, p := range points {
				bars[i] = bar{label: time.UnixMilli(p.Timestamp).Format("Jan 02 15:04"), value: p.GasPrice, text: fmt.Sprintf("%.2f gwei", p.GasPrice)}
			}
			sum := analytics.SummarizeGas(points)
			return ui.StyleTitle.Render(fmt.Sprintf("Base Fee · last %dh · %s", historyHours, net)) + "\n\n" + renderBars(bars, 40) +
				"\n" + summaryLine(sum, "%.2f", "gwei")
		})
	},
}

var txHistoryCmd = &cobra.Command{
	Use:   "tx-history",
	Short: "Chart transactions per sampled block over the last days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		ctx, cancel := contextWithTimeout(cmd, config.ScanTimeout)
		defer cancel()

		if historyDays <= 0 {
			historyDays = analytics.DefaultVolumeDays
		}
		s := spin(fmt.Sprintf("Sampling %dd of blocks on %s…", historyDays, net))
		points, err := getApp().analytics.VolumeHistory(ctx, net, historyDays)
		s.Stop()
		if err != nil {
			return err
		}
		return output(points, func() string {
			if len(points) == 0 {
				return ui.Meta("No blocks could be sampled.")
			}
			bars := make([]bar, len(points))
			for i, p := range points {
				bars[i] = bar{label: time.UnixMilli(p.Timestamp).Format("Jan 02 15:04"), value: float64(p.Count), text: fmt.Sprintf("%d txs", p.Count)}
			}
			sum := analytics.SummarizeVolume(points)
			return ui.StyleTitle.Render(fmt.Sprintf("Transactions per Block · last %dd · %s", historyDays, net)) + "\n\n" + renderBars(bars, 40) +
				"\n" + summaryLine(sum, "%.1f", "txs")
		})
	},
}

// summaryLine prints a history summary with each figure in format.
func summaryLine(s analytics.Summary, format, unit string) string {
	f := func(v float64) string { return fmt.Sprintf(format, v) }
	return ui.Meta(fmt.Sprintf("  %d samples  ·  min %s  ·  median %s  ·  mean %s  ·  max %s %s",
		s.Samples, f(s.Min), f(s.Median), f(s.Mean), f(s.Max), unit))
}

type bar struct {
	label string
	value float64
	text  string
}

// renderBars draws one horizontal bar per point, scaled to the maximum.
func renderBars(bars []bar, width int) string {
	var peak float64
	for _, b := range bars {
		peak = max(peak, b.value)
	}
	var sb strings.Builder
	for _, b := range bars {
		n := 0
		if peak > 0 {
			n = int(b.value / peak * float64(width))
		}
		fmt.Fprintf(&sb, "  %s  %s%s  %s\n",
			ui.Meta(b.label),
			ui.Val(strings.Repeat("█", n)),
			strings.Repeat(" ", width-n),
			b.text)
	}
	return sb.String()
}

func init() {
	statsCmd.Flags().BoolVarP(&statsAll, "all", "a", false, "compare every network")
	statsCmd.Flags().BoolVarP(&statsLive, "live", "l", false, "refresh continuously")
	statsCmd.MarkFlagsMutuallyExclusive("all", "live")
	statsCmd.Flags().IntVar(&statsInterval, "interval", 0, "refresh interval in seconds (default: watch_interval from config)")
	gasHistoryCmd.Flags().IntVar(&historyHours, "hours", analytics.DefaultGasHours, "hours of history")
	txHistoryCmd.Flags().IntVar(&historyDays, "days", analytics.DefaultVolumeDays, "days of history")
	statsCmd.AddCommand(gasHistoryCmd, txHistoryCmd)
}
