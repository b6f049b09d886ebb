package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/config"
	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var blockCmd = &cobra.Command{
	Use:   "block [number|hash|latest]",
	Short: "Show block details",
	Long: `Fetch and display a block header. The block is given as a decimal or
0x number, a block hash, or "latest" (the default).

Examples:
  w3scan block
  w3scan block 19000000
  w3scan block 0x121eac0 --network base
  w3scan block latest --testnet`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		ref := "latest"
		if len(args) == 1 {
			ref = args[0]
		}
		if _, _, _, err := lookup.ParseBlockRef(ref); err != nil {
			return err
		}

		ctx, cancel := contextWithTimeout(cmd, config.LookupTimeout)
		defer cancel()

		s := spin(fmt.Sprintf("Fetching block %s on %s (%s)…", ref, ui.ChainName(net), cfg.NetworkMode))
		block, err := getApp().lookup.Block(ctx, net, ref)
		s.Stop()
		if err != nil {
			return fmt.Errorf("fetching block: %w", err)
		}

		return output(block, func() string { return renderBlock(net, block) })
	},
}

func renderBlock(net string, b *lookup.BlockInfo) string {
	gasUsed, gasLimit := mustBig(b.GasUsed).Uint64(), mustBig(b.GasLimit).Uint64()
	gasStr := fmt.Sprintf("%s / %s", commaSep(gasUsed), commaSep(gasLimit))
	if gasLimit > 0 {
		gasStr += fmt.Sprintf("  (%.1f%%)", float64(gasUsed)/float64(gasLimit)*100)
	}

	baseFee := "—  (legacy / pre-EIP-1559)"
	if b.BaseFeePerGas != "" {
		baseFee = fmt.Sprintf("%.4f Gwei", chainGwei(b.BaseFeePerGas))
	}

	pairs := [][2]string{
		{"Block", "#" + commaSep(b.Number)},
		{"Hash", b.Hash},
		{"Parent", b.ParentHash},
		{"Timestamp", formatTime(b.Timestamp)},
		{"Transactions", fmt.Sprintf("%d", b.TransactionCount)},
		{"Gas Used / Limit", gasStr},
		{"Base Fee", baseFee},
		{"Miner / Validator", ui.TruncateAddr(b.Miner)},
	}
	return ui.KeyValueBlock(fmt.Sprintf("🧱 Block  ·  %s · %s", net, cfg.NetworkMode), pairs)
}
