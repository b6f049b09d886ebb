package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/config"
	"github.com/Mohsinsiddi/w3scan/internal/contract"
	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/providers"
	"github.com/Mohsinsiddi/w3scan/internal/token"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var (
	contractShowABI bool
	contractABIFile string
	contractBuiltin string
	contractCode    bool
)

// contractView is the --json shape of `w3scan contract`.
type contractView struct {
	*lookup.ContractInfo
	Network  string            `json:"network"`
	Standard string            `json:"standard,omitempty"`
	Token    *token.Info       `json:"token,omitempty"`
	ABI      *contract.Summary `json:"abi,omitempty"`
}

var contractCmd = &cobra.Command{
	Use:   "contract <address>",
	Short: "Inspect a contract's bytecode, standard and ABI",
	Long: `Show whether an address holds code, its balance, and which token standard
it implements (ERC-20 or ERC-721).

ABI source for --abi (first that applies):
  --abi-file <file>   Raw ABI JSON array or Hardhat/Foundry artifact
  --builtin <id>      A bundled ABI (see: w3scan contract builtins)
  otherwise           The verified ABI from the network's explorer API

Examples:
  w3scan contract 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48
  w3scan contract 0xA0b8…eB48 --abi
  w3scan contract 0x1234…     --abi --abi-file ./out/Vault.sol/Vault.json`,
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

		s := spin(fmt.Sprintf("Inspecting %s on %s…", ui.TruncateAddr(addr.Hex()), net))
		info, err := a.lookup.Contract(ctx, net, addr)
		if err != nil {
			s.Stop()
			return err
		}
		view := contractView{ContractInfo: info, Network: net}
		if info.IsContract {
			view.Standard, view.Token = detectStandard(ctx, net, addr)
			if contractShowABI {
				parsed, err := contractABI(ctx, net, addr)
				if err != nil {
					s.Stop()
					return err
				}
				sum := contract.Summarize(parsed)
				view.ABI = &sum
			}
		}
		s.Stop()

		return output(view, func() string { return renderContract(view, info) })
	},
}

var contractCallCmd = &cobra.Command{
	Use:   "call <address> <function> [args...]",
	Short: "Call a read-only contract function",
	Long: `Call a view or pure function and print its decoded outputs.

Integers take decimal or 0x hex, bytes take 0x hex. The ABI comes from
--abi-file, --builtin, or the explorer's verified ABI, in that order.

Examples:
  w3scan contract call 0xA0b8…eB48 balanceOf 0xd8dA…6045 --builtin erc20
  w3scan contract call 0x1234… getReserves --abi-file ./Pair.json -n base`,
	Args: cobra.MinimumNArgs(2),
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

		parsed, err := contractABI(ctx, net, addr)
		if err != nil {
			return err
		}
		client, err := a.accessor.Client(ctx, net)
		if err != nil {
			return err
		}
		caller := contract.NewCaller(client, parsed)
		m, ok := caller.Method(args[1])
		if !ok {
			return fmt.Errorf("%w: %s", contract.ErrUnknownMethod, args[1])
		}
		callArgs, err := contract.ParseArgs(m, args[2:])
		if err != nil {
			return err
		}

		s := spin(fmt.Sprintf("Calling %s on %s…", m.Sig, net))
		results, err := caller.Call(ctx, addr, m.Name, callArgs...)
		s.Stop()
		if err != nil {
			return err
		}

		values := make([]string, len(results))
		for i, r := range results {
			values[i] = contract.FormatValue(r)
		}
		return output(map[string]interface{}{
			"network":  net,
			"contract": addr.Hex(),
			"function": m.Sig,
			"results":  values,
		}, func() string {
			var b strings.Builder
			fmt.Fprintf(&b, "\n%s  %s\n\n", ui.StyleTitle.Render(fmt.Sprintf("%s · %s (%s)", m.Sig, net, cfg.NetworkMode)), ui.Meta("→ result"))
			for i, v := range values {
				label, typ := fmt.Sprintf("[%d]", i), ""
				if i < len(m.Outputs) {
					typ = m.Outputs[i].Type.String()
					if m.Outputs[i].Name != "" {
						label = m.Outputs[i].Name
					}
				}
				fmt.Fprintf(&b, "  %s  %s  %s\n", label, ui.Val(v), ui.Meta(typ))
			}
			return b.String()
		})
	},
}

var contractBuiltinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "List the bundled contract ABIs",
	RunE: func(cmd *cobra.Command, args []string) error {
		builtins := contract.AllBuiltins()
		if jsonOut {
			out := make([]map[string]interface{}, len(builtins))
			for i, b := range builtins {
				out[i] = map[string]interface{}{"id": b.ID, "name": b.Name, "functions": len(b.ABI.Methods)}
			}
			return output(out, nil)
		}

		t := ui.NewTable([]ui.Column{
			{Title: "ID", Width: 14},
			{Title: "Name", Width: 30},
			{Title: "Functions", Width: 10},
			{Title: "Description", Width: 50},
		})
		for _, b := range builtins {
			t.AddRow(ui.Row{ui.Val(b.ID), b.Name, fmt.Sprintf("%d", len(b.ABI.Methods)), ui.Meta(b.Description)})
		}
		fmt.Printf("%s\n\n%s\n", ui.StyleTitle.Render("Built-in Contract ABIs"), t.Render())
		fmt.Println(ui.Hint("Use: w3scan contract call <address> <function> --builtin <id>"))
		return nil
	},
}

// detectStandard checks for ERC-721 first, since NFT collections often
// answer name() and symbol() too.
func detectStandard(ctx context.Context, net string, addr common.Address) (string, *token.Info) {
	a := getApp()
	if ok, err := a.nfts.IsERC721(ctx, net, addr); err == nil && ok {
		return "ERC-721", nil
	} else if err != nil {
		logrus.WithError(err).Debug("ERC-721 check failed")
	}
	info, err := a.tokens.Info(ctx, net, addr)
	if err != nil {
		logrus.WithError(err).Debug("ERC-20 check failed")
		return "", nil
	}
	if info.Symbol == "" && info.Name == "" {
		return "", nil
	}
	return "ERC-20", info
}

// contractABI resolves the ABI from --abi-file, --builtin or the explorer.
func contractABI(ctx context.Context, net string, addr common.Address) (abi.ABI, error) {
	switch {
	case contractABIFile != "":
		return contract.LoadFromFile(contractABIFile)
	case contractBuiltin != "":
		b, ok := contract.GetBuiltin(contractBuiltin)
		if !ok {
			return abi.ABI{}, fmt.Errorf("unknown built-in %q — run `w3scan contract builtins` to see all", contractBuiltin)
		}
		return b.ABI, nil
	}

	a := getApp()
	c, err := a.accessor.Chain(net)
	if err != nil {
		return abi.ABI{}, err
	}
	var sources []contract.ABISource
	for _, e := range providers.Explorers(c, cfg.NetworkMode, a.secrets) {
		sources = append(sources, e)
	}
	parsed, err := contract.NewFetcher(sources...).Fetch(ctx, addr)
	if errors.Is(err, providers.ErrNotVerified) {
		return abi.ABI{}, fmt.Errorf("%w\n  Provide one with --abi-file <file.json> or --builtin <id>", err)
	}
	return parsed, err
}

func renderContract(view contractView, info *lookup.ContractInfo) string {
	a := getApp()
	c, _ := a.registry.GetByName(view.Network)
	kind := "account (no code)"
	if info.IsContract {
		kind = "contract"
		if view.Standard != "" {
			kind += " · " + view.Standard
		}
	}
	pairs := [][2]string{
		{"Address", ui.Addr(info.Address)},
		{"Type", kind},
		{"Balance", chain.FormatUnits(mustBig(info.Balance), c.NativeCurrency.Decimals) + " " + c.NativeCurrency.Symbol},
		{"Bytecode", fmt.Sprintf("%d bytes", bytecodeLen(info.Bytecode))},
	}
	if view.Token != nil {
		pairs = append(pairs,
			[2]string{"Token", fmt.Sprintf("%s (%s)", view.Token.Name, view.Token.Symbol)},
			[2]string{"Decimals", fmt.Sprintf("%d", view.Token.Decimals)},
		)
	}
	out := ui.KeyValueBlock(fmt.Sprintf("📜 Contract  ·  %s · %s", view.Network, cfg.NetworkMode), pairs)

	if contractCode && info.IsContract {
		out += "\n" + ui.Meta(info.Bytecode) + "\n"
	}
	if view.ABI != nil {
		out += "\n" + ui.StyleTitle.Render(fmt.Sprintf("Functions (%d)", len(view.ABI.Functions))) + "\n"
		t := ui.NewTable([]ui.Column{
			{Title: "Selector", Width: 12},
			{Title: "Signature", Width: 60},
			{Title: "Access", Width: 10},
		})
		for _, f := range view.ABI.Functions {
			access := "write"
			switch {
			case f.ReadOnly:
				access = "read"
			case f.Payable:
				access = "payable"
			}
			t.AddRow(ui.Row{ui.Meta(f.Selector), ui.Val(f.Signature), access})
		}
		out += t.Render()
		if len(view.ABI.Events) > 0 {
			out += "\n" + ui.StyleTitle.Render(fmt.Sprintf("Events (%d)", len(view.ABI.Events))) + "\n"
			for _, e := range view.ABI.Events {
				out += "  " + ui.Val(e.Signature) + "  " + ui.Meta(e.Topic) + "\n"
			}
		}
	}
	if explorer := c.Explorer(cfg.NetworkMode); explorer != "" {
		out += "\n" + ui.Meta("🔗 "+strings.TrimSuffix(explorer, "/")+"/address/"+info.Address)
	}
	return out
}

// bytecodeLen is the byte length of a 0x-prefixed hex string.
func bytecodeLen(code string) int {
	return len(strings.TrimPrefix(code, "0x")) / 2
}

func init() {
	contractCmd.Flags().BoolVar(&contractShowABI, "abi", false, "list the contract's functions and events")
	contractCmd.Flags().BoolVar(&contractCode, "code", false, "print the full bytecode (always included with --json)")
	contractCmd.PersistentFlags().StringVar(&contractABIFile, "abi-file", "", "ABI JSON array or Hardhat/Foundry artifact")
	contractCmd.PersistentFlags().StringVar(&contractBuiltin, "builtin", "", "bundled ABI id, e.g. erc20")
	contractCmd.MarkFlagsMutuallyExclusive("abi-file", "builtin")

	contractCmd.AddCommand(contractCallCmd, contractBuiltinsCmd)
}
