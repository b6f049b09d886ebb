package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/config"
	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/price"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var addressTxs int

// addressView is the --json shape of `w3scan address`.
type addressView struct {
	*lookup.AddressDetails
	Network  string   `json:"network"`
	ValueUSD *float64 `json:"valueUsd,omitempty"`
}

var addressCmd = &cobra.Command{
	Use:     "address <address-or-ens>",
	Aliases: []string{"addr", "balance"},
	Short:   "Show balance, nonce and recent transactions of an address",
	Long: `Show an account's native balance, transaction count and whether it is a
contract, followed by its most recent transactions found by scanning back
from the chain head.

ENS names are resolved on ethereum.

Examples:
  w3scan address vitalik.eth
  w3scan address 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045 --network base
  w3scan address 0xd8dA…6045 --txs 0        # skip the scan`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		a := getApp()
		ctx, cancel := contextWithTimeout(cmd, config.ScanTimeout)
		defer cancel()

		s := spin(fmt.Sprintf("Looking up %s on %s…", args[0], ui.ChainName(net)))
		addr, err := a.lookup.ResolveAddress(ctx, net, args[0])
		if err != nil {
			s.Stop()
			return err
		}
		details, err := addressDetails(ctx, net, addr)
		s.Stop()
		if err != nil {
			return err
		}

		view := addressView{AddressDetails: details, Network: net}
		c, _ := a.registry.GetByName(net)
		if usd, err := a.prices.ChainPrice(ctx, c); err == nil {
			v := price.Value(mustBig(details.Balance), c.NativeCurrency.Decimals, usd)
			view.ValueUSD = &v
		} else {
			logrus.WithError(err).WithField("network", net).Debug("Price unavailable")
		}

		return output(view, func() string {
			balance := details.BalanceFormatted + " " + c.NativeCurrency.Symbol
			if view.ValueUSD != nil {
				balance += fmt.Sprintf("  (≈ %.2f %s)", *view.ValueUSD, strings.ToUpper(a.prices.Currency()))
			}
			kind := "account (EOA)"
			if details.IsContract {
				kind = "contract"
			}
			pairs := [][2]string{
				{"Address", ui.Addr(details.Address)},
				{"Balance", balance},
				{"Transactions sent", commaSep(details.TransactionCount)},
				{"Type", kind},
			}
			out := ui.KeyValueBlock(fmt.Sprintf("👤 Address  ·  %s · %s", net, cfg.NetworkMode), pairs)
			if addressTxs > 0 {
				out += "\n" + renderTxTable(details.Transactions, c.Explorer(cfg.NetworkMode))
			}
			return out
		})
	},
}

// addressDetails fetches the account, plus recent transactions unless
// --txs is 0.
func addressDetails(ctx context.Context, net string, addr common.Address) (*lookup.AddressDetails, error) {
	a := getApp()
	if addressTxs <= 0 {
		info, err := a.lookup.Address(ctx, net, addr)
		if err != nil {
			return nil, err
		}
		return &lookup.AddressDetails{AddressInfo: *info, Transactions: []lookup.TxInfo{}}, nil
	}
	return a.lookup.AddressWithTransactions(ctx, net, addr, addressTxs)
}

func init() {
	addressCmd.Flags().IntVar(&addressTxs, "txs", 10, "number of recent transactions to scan for (0 to skip)")
}
