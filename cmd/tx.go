package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/config"
	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var txCmd = &cobra.Command{
	Use:   "tx <hash>",
	Short: "Show transaction details",
	Long: `Fetch a transaction with its receipt: status, gas used, confirmations
and the decoded method name. Pending transactions show 0 confirmations and
no status.

Examples:
  w3scan tx 0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060
  w3scan tx 0x… --network arbitrum --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := lookup.ParseHash(args[0])
		if err != nil {
			return err
		}
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		a := getApp()
		ctx, cancel := contextWithTimeout(cmd, config.LookupTimeout)
		defer cancel()

		s := spin("Fetching transaction…")
		tx, err := a.lookup.Transaction(ctx, net, hash)
		s.Stop()
		if err != nil {
			return err
		}

		c, _ := a.registry.GetByName(net)
		return output(tx, func() string {
			return renderTx(tx, c.NativeCurrency.Symbol, c.Explorer(cfg.NetworkMode))
		})
	},
}

func renderTx(tx *lookup.TxInfo, symbol, explorer string) string {
	to := "(contract creation)"
	if tx.To != nil {
		to = ui.Addr(*tx.To)
	}
	status := ui.Warn("pending")
	if tx.Status != nil {
		if *tx.Status == 1 {
			status = ui.Success("success")
		} else {
			status = ui.Err("reverted")
		}
	}
	block := "—"
	if tx.BlockNumber > 0 {
		block = "#" + commaSep(tx.BlockNumber)
	}

	pairs := [][2]string{
		{"Hash", ui.Addr(tx.Hash)},
		{"Status", status},
		{"Block", block},
		{"Timestamp", formatTime(tx.Timestamp)},
		{"Confirmations", commaSep(tx.Confirmations)},
		{"From", ui.Addr(tx.From)},
		{"To", to},
		{"Value", tx.ValueFormatted + " " + symbol},
		{"Method", tx.Method},
		{"Gas Price", fmt.Sprintf("%.4f Gwei", chainGwei(tx.GasPrice))},
		{"Gas Limit", commaSep(mustBig(tx.GasLimit).Uint64())},
		{"Nonce", fmt.Sprintf("%d", tx.Nonce)},
	}
	if tx.GasUsed != "" {
		pairs = append(pairs, [2]string{"Gas Used", commaSep(mustBig(tx.GasUsed).Uint64())})
	}
	if tx.ContractAddress != "" {
		pairs = append(pairs, [2]string{"Contract Created", ui.Addr(tx.ContractAddress)})
	}
	if explorer != "" {
		pairs = append(pairs, [2]string{"Explorer", strings.TrimSuffix(explorer, "/") + "/tx/" + tx.Hash})
	}
	return ui.KeyValueBlock("Transaction Details", pairs)
}
