package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/config"
	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

// portfolioView is the --json shape of `w3scan portfolio`.
type portfolioView struct {
	*lookup.Portfolio
	Network string `json:"network"`
	Symbol  string `json:"symbol"`
}

var portfolioCmd = &cobra.Command{
	Use:   "portfolio <address-or-ens>...",
	Short: "Total the balances and transaction counts of several wallets",
	Long: fmt.Sprintf(`Read several wallets concurrently and show each balance and transaction
count with a totals row. Wallets that cannot be read are listed separately
and left out of the totals. At most %d wallets per call.

Examples:
  w3scan portfolio vitalik.eth 0xab5801a7d398351b8be11c439e05c5b3259aec9b
  w3scan portfolio 0x… 0x… --network base --json`, lookup.MaxPortfolioWallets),
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		a := getApp()
		ctx, cancel := contextWithTimeout(cmd, config.LookupTimeout)
		defer cancel()

		s := spin(fmt.Sprintf("Reading %d wallets on %s…", len(args), net))
		addrs := make([]common.Address, len(args))
		for i, arg := range args {
			if addrs[i], err = a.lookup.ResolveAddress(ctx, net, arg); err != nil {
				s.Stop()
				return err
			}
		}
		p, err := a.lookup.Portfolio(ctx, net, addrs)
		s.Stop()
		if err != nil {
			return err
		}

		c, _ := a.registry.GetByName(net)
		view := portfolioView{Portfolio: p, Network: net, Symbol: c.NativeCurrency.Symbol}
		return output(view, func() string {
			return ui.StyleTitle.Render(fmt.Sprintf("💼 Portfolio  ·  %s · %s", net, cfg.NetworkMode)) + "\n\n" +
				renderPortfolio(p, view.Symbol)
		})
	},
}

// renderPortfolio lists each wallet, a totals row, and any wallet that
// failed.
func renderPortfolio(p *lookup.Portfolio, symbol string) string {
	t := ui.NewTable([]ui.Column{
		{Title: "Wallet", Width: 42},
		{Title: "Balance", Width: 24, Right: true},
		{Title: "Txs", Width: 10, Right: true},
		{Title: "Type", Width: 8},
	})
	for _, w := range p.Wallets {
		kind := "EOA"
		if w.IsContract {
			kind = "contract"
		}
		t.AddRow(ui.Row{ui.Addr(w.Address), w.BalanceFormatted + " " + symbol, commaSep(w.TransactionCount), kind})
	}
	t.AddRow(ui.Row{
		ui.Val(fmt.Sprintf("Total (%d wallets)", len(p.Wallets))),
		ui.Val(p.TotalBalanceFormatted + " " + symbol),
		ui.Val(commaSep(p.TotalTransactions)),
	})
	out := t.Render()
	for _, f := range p.Failed {
		out += ui.Warn(fmt.Sprintf("%s: %s", f.Address, f.Error)) + "\n"
	}
	return out
}
