package cmd

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var selectorEvent bool

type selectorView struct {
	Signature string `json:"signature,omitempty"`
	Selector  string `json:"selector,omitempty"`
	Topic     string `json:"topic,omitempty"`
	Method    string `json:"method,omitempty"`
}

var selectorCmd = &cobra.Command{
	Use:   "selector <signature-or-selector>",
	Short: "Compute or look up a 4-byte function selector",
	Long: `Compute a 4-byte function selector (or with --event a 32-byte event topic)
from a signature, or look up a known selector in the built-in table that
transaction lists use to label methods.

Parameter names are dropped before hashing.

Examples:
  w3scan selector "transfer(address to, uint256 amount)"
  w3scan selector --event "Transfer(address,address,uint256)"
  w3scan selector 0xa9059cbb`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := strings.TrimSpace(args[0])

		if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
			v := selectorView{Selector: strings.ToLower(input), Method: chain.DecodeMethodHex(input)}
			return output(v, func() string {
				method := v.Method
				if method == v.Selector {
					method = ui.Meta("unknown")
				}
				return ui.KeyValueBlock("Selector Lookup", [][2]string{
					{"Selector", v.Selector},
					{"Method", ui.Val(method)},
				})
			})
		}

		sig := normalizeSignature(input)
		if selectorEvent {
			v := selectorView{Signature: sig, Topic: computeEventTopic(sig)}
			return output(v, func() string {
				return ui.KeyValueBlock("Event Topic", [][2]string{
					{"Signature", sig},
					{"Topic 0", ui.Val(v.Topic)},
				})
			})
		}

		hash := crypto.Keccak256([]byte(sig))
		v := selectorView{Signature: sig, Selector: hexutil.Encode(hash[:4])}
		return output(v, func() string {
			return ui.KeyValueBlock("Function Selector", [][2]string{
				{"Signature", sig},
				{"Selector", ui.Val(v.Selector)},
				{"Full hash", hexutil.Encode(hash)},
			})
		})
	},
}

// normalizeSignature strips parameter names and whitespace:
// "transfer(address to, uint256 amount)" becomes "transfer(address,uint256)".
func normalizeSignature(sig string) string {
	open := strings.Index(sig, "(")
	if open < 0 {
		return strings.TrimSpace(sig)
	}
	name := strings.TrimSpace(sig[:open])
	params := strings.TrimSuffix(strings.TrimSpace(sig[open+1:]), ")")
	if strings.TrimSpace(params) == "" {
		return name + "()"
	}

	var types []string
	for _, p := range strings.Split(params, ",") {
		if f := strings.Fields(p); len(f) > 0 {
			types = append(types, f[0])
		}
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(types, ","))
}

func computeEventTopic(sig string) string {
	return crypto.Keccak256Hash([]byte(sig)).Hex()
}

func init() {
	selectorCmd.Flags().BoolVar(&selectorEvent, "event", false, "compute a 32-byte event topic instead of a selector")
}
