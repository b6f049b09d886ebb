package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/config"
	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/providers"
	"github.com/Mohsinsiddi/w3scan/internal/scan"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var (
	txsLast        int
	txsSource      string
	txsDepth       int
	txsInteractive bool
)

// txsView is the --json shape of `w3scan txs`.
type txsView struct {
	Network      string          `json:"network"`
	Address      string          `json:"address"`
	Source       string          `json:"source"`
	Transactions []lookup.TxInfo `json:"transactions"`
	Warnings     []string        `json:"warnings,omitempty"`
}

var txsCmd = &cobra.Command{
	Use:   "txs <address-or-ens>",
	Short: "List an address's recent transactions",
	Long: `List the most recent transactions sent from or to an address, newest
first.

Sources (--source):
  auto      explorer APIs when available, falling back to the block scanner
  explorer  Etherscan V2 (key "explorer.etherscan") or the chain's explorer API
  scan      walk back from the head block by block over JSON-RPC

The scanner only sees transactions within --depth blocks of the head
(default: config scan.max_blocks_back).

Examples:
  w3scan txs vitalik.eth --last 5
  w3scan txs 0x… --network base --source scan --depth 5000
  w3scan txs 0x… -i                          # browse, open in explorer`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if txsLast < 0 {
			return scan.ErrInvalidLimit
		}
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		a := getApp()
		ctx, cancel := contextWithTimeout(cmd, config.ScanTimeout)
		defer cancel()

		addr, err := a.lookup.ResolveAddress(ctx, net, args[0])
		if err != nil {
			return err
		}
		c, _ := a.registry.GetByName(net)

		scanner := a.scanner
		if txsDepth > 0 {
			scanner = scan.NewScanner(a.accessor, scan.Options{
				MaxBlocksBack: txsDepth,
				BlockRetries:  cfg.Scan.BlockRetries,
			})
		}
		reg, err := providers.BuildRegistry(txsSource, c, cfg.NetworkMode, a.secrets, scanner)
		if err != nil {
			return err
		}
		logrus.WithField("providers", reg.Names()).Debug("Transaction sources")

		s := spin(fmt.Sprintf("Fetching last %d transactions on %s…", txsLast, ui.ChainName(net)))
		res, err := reg.Transactions(ctx, addr, txsLast)
		var head uint64
		if err == nil && len(res.Txs) > 0 {
			head, err = a.accessor.CurrentHeight(ctx, net)
		}
		s.Stop()
		if err != nil {
			return err
		}

		view := txsView{Network: net, Address: addr.Hex(), Source: res.Source, Warnings: res.Warnings,
			Transactions: make([]lookup.TxInfo, len(res.Txs))}
		for i, tx := range res.Txs {
			view.Transactions[i] = lookup.NewTxInfo(tx, head)
		}
		for _, w := range res.Warnings {
			logrus.Debug(w)
		}

		explorer := c.Explorer(cfg.NetworkMode)
		if txsInteractive && !jsonOut {
			title := ui.StyleTitle.Render("Recent Transactions") + "  " +
				ui.Meta(fmt.Sprintf("(%s, %s, via %s)", net, cfg.NetworkMode, res.Source))
			return ui.RunTxList(title, txRows(view.Transactions, explorer))
		}
		return output(view, func() string {
			out := fmt.Sprintf("%s  %s\n\n", ui.StyleTitle.Render(ui.TruncateAddr(view.Address)),
				ui.Meta(fmt.Sprintf("(%s, %s, via %s)", net, cfg.NetworkMode, res.Source)))
			out += renderTxTable(view.Transactions, explorer)
			if explorer != "" {
				out += "\n" + ui.Meta(fmt.Sprintf("Explorer: %s/address/%s", explorer, view.Address))
			}
			return out
		})
	},
}

func init() {
	txsCmd.Flags().IntVar(&txsLast, "last", 10, "number of transactions to show")
	txsCmd.Flags().StringVar(&txsSource, "source", providers.SourceAuto, "transaction source: auto, explorer, scan")
	txsCmd.Flags().IntVar(&txsDepth, "depth", 0, "blocks to scan back from the head (default: config)")
	txsCmd.Flags().BoolVarP(&txsInteractive, "interactive", "i", false, "browse results interactively")
}
