package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/config"
	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/token"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var (
	tokenList      []string
	transfersLimit int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Explore ERC-20 tokens",
	Long: `Explore ERC-20 tokens.

Sub-commands:
  w3scan token info <token>          name, symbol, decimals and supply
  w3scan token top                   the network's popular tokens
  w3scan token holdings <address>    an account's non-zero token balances
  w3scan token transfers <token>     the latest Transfer events`,
}

var tokenInfoCmd = &cobra.Command{
	Use:   "info <token>",
	Short: "Show a token's metadata and total supply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		addr, err := lookup.ParseAddress(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := contextWithTimeout(cmd, config.LookupTimeout)
		defer cancel()

		s := spin(fmt.Sprintf("Reading token %s on %s…", ui.TruncateAddr(addr.Hex()), net))
		info, err := getApp().tokens.Info(ctx, net, addr)
		s.Stop()
		if err != nil {
			return err
		}
		return output(info, func() string {
			return ui.KeyValueBlock(fmt.Sprintf("🪙 Token  ·  %s · %s", net, cfg.NetworkMode), [][2]string{
				{"Address", ui.Addr(info.Address)},
				{"Name", info.Name},
				{"Symbol", ui.Val(info.Symbol)},
				{"Decimals", fmt.Sprintf("%d", info.Decimals)},
				{"Total supply", formatSupply(info)},
			})
		})
	},
}

var tokenTopCmd = &cobra.Command{
	Use:   "top",
	Short: "List the network's popular tokens",
	Long: `List metadata for the network's popular tokens.

The list comes from popular_tokens in config.json and defaults to the
well-known stablecoins and wrapped assets of each network.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		ctx, cancel := contextWithTimeout(cmd, config.LookupTimeout)
		defer cancel()

		s := spin(fmt.Sprintf("Loading popular tokens on %s…", net))
		infos, err := getApp().tokens.Top(ctx, net)
		s.Stop()
		if err != nil {
			return err
		}
		return output(infos, func() string {
			if len(infos) == 0 {
				return ui.Meta(fmt.Sprintf("No popular tokens configured for %s.", net))
			}
			t := ui.NewTable([]ui.Column{
				{Title: "Symbol", Width: 10},
				{Title: "Name", Width: 24},
				{Title: "Address", Width: 44},
				{Title: "Decimals", Width: 9},
				{Title: "Total Supply", Width: 28, Right: true},
			})
			for _, i := range infos {
				t.AddRow(ui.Row{ui.Val(i.Symbol), i.Name, ui.Addr(i.Address), fmt.Sprintf("%d", i.Decimals), formatSupply(&i)})
			}
			return ui.StyleTitle.Render(fmt.Sprintf("Popular Tokens · %s", net)) + "\n\n" + t.Render()
		})
	},
}

var tokenHoldingsCmd = &cobra.Command{
	Use:   "holdings <address-or-ens>",
	Short: "Show an account's token balances",
	Long: `Show the non-zero balances an account holds among the network's popular
tokens, or among --tokens when given.

Examples:
  w3scan token holdings vitalik.eth
  w3scan token holdings 0xd8dA…6045 --tokens 0xA0b8…eB48,0xdAC1…1ec7`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		a := getApp()
		ctx, cancel := contextWithTimeout(cmd, config.LookupTimeout)
		defer cancel()

		owner, err := resolveAddress(ctx, net, args[0])
		if err != nil {
			return err
		}
		tokens := a.tokens.Tokens(net)
		if len(tokenList) > 0 {
			tokens = tokens[:0:0]
			for _, t := range tokenList {
				addr, err := lookup.ParseAddress(t)
				if err != nil {
					return err
				}
				tokens = append(tokens, addr)
			}
		}
		if len(tokens) == 0 {
			return fmt.Errorf("no tokens to check on %s; pass --tokens", net)
		}

		s := spin(fmt.Sprintf("Checking %d tokens for %s…", len(tokens), ui.TruncateAddr(owner)))
		holdings, err := a.tokens.Holdings(ctx, net, common.HexToAddress(owner), tokens)
		s.Stop()
		if err != nil {
			return err
		}
		return output(holdings, func() string {
			if len(holdings) == 0 {
				return ui.Meta(fmt.Sprintf("No balances among %d checked tokens.", len(tokens)))
			}
			t := ui.NewTable([]ui.Column{
				{Title: "Symbol", Width: 10},
				{Title: "Balance", Width: 30, Right: true},
				{Title: "Token", Width: 44},
			})
			for _, h := range holdings {
				t.AddRow(ui.Row{ui.Val(h.Token.Symbol), h.BalanceFormatted, ui.Addr(h.Token.Address)})
			}
			return ui.StyleTitle.Render(fmt.Sprintf("Token Holdings · %s · %s", ui.TruncateAddr(owner), net)) + "\n\n" + t.Render()
		})
	},
}

var tokenTransfersCmd = &cobra.Command{
	Use:   "transfers <token>",
	Short: "Show a token's latest transfers",
	Long: fmt.Sprintf(`Show the most recent Transfer events of a token, newest first, found in
the last %d blocks.`, token.TransferWindow),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		addr, err := lookup.ParseAddress(args[0])
		if err != nil {
			return err
		}
		a := getApp()
		ctx, cancel := contextWithTimeout(cmd, config.LookupTimeout)
		defer cancel()

		s := spin(fmt.Sprintf("Reading transfers of %s on %s…", ui.TruncateAddr(addr.Hex()), net))
		transfers, err := a.tokens.Transfers(ctx, net, addr, transfersLimit)
		var info *token.Info
		if err == nil {
			info, _ = a.tokens.Info(ctx, net, addr)
		}
		s.Stop()
		if err != nil {
			return err
		}
		return output(transfers, func() string {
			if len(transfers) == 0 {
				return ui.Meta(fmt.Sprintf("No transfers in the last %d blocks.", token.TransferWindow))
			}
			t := ui.NewTable([]ui.Column{
				{Title: "Block", Width: 10},
				{Title: "Age", Width: 9},
				{Title: "From", Width: 14},
				{Title: "To", Width: 14},
				{Title: "Amount", Width: 24},
				{Title: "Tx", Width: 14},
			})
			for _, tr := range transfers {
				when := "—"
				if tr.Timestamp > 0 {
					when = age(timeOf(tr.Timestamp))
				}
				t.AddRow(ui.Row{
					fmt.Sprintf("%d", tr.BlockNumber),
					when,
					ui.TruncateAddr(tr.From),
					ui.TruncateAddr(tr.To),
					formatAmount(tr.Value, info),
					ui.TruncateAddr(tr.TxHash),
				})
			}
			return ui.StyleTitle.Render(fmt.Sprintf("Transfers · %s · %s", symbolOr(info, ui.TruncateAddr(addr.Hex())), net)) + "\n\n" + t.Render()
		})
	},
}

// formatSupply renders the total supply in whole tokens.
func formatSupply(info *token.Info) string {
	supply, ok := new(big.Int).SetString(info.TotalSupply, 10)
	if !ok {
		return "—"
	}
	return chain.TrimZeros(chain.FormatUnits(supply, info.Decimals)) + " " + info.Symbol
}

// formatAmount scales a raw amount by the token's decimals when known.
func formatAmount(raw string, info *token.Info) string {
	if info == nil {
		return raw
	}
	return chain.TrimZeros(chain.FormatUnits(mustBig(raw), info.Decimals))
}

func symbolOr(info *token.Info, fallback string) string {
	if info == nil || strings.TrimSpace(info.Symbol) == "" {
		return fallback
	}
	return info.Symbol
}

func init() {
	tokenHoldingsCmd.Flags().StringSliceVar(&tokenList, "tokens", nil, "comma-separated token addresses to check")
	tokenTransfersCmd.Flags().IntVar(&transfersLimit, "limit", token.DefaultTransferLimit, "maximum transfers to show")
	tokenCmd.AddCommand(tokenInfoCmd, tokenTopCmd, tokenHoldingsCmd, tokenTransfersCmd)
}
