package cmd

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

type keccakView struct {
	Input    string `json:"input"`
	Type     string `json:"type"`
	Hash     string `json:"hash"`
	Selector string `json:"selector"`
}

var keccakCmd = &cobra.Command{
	Use:   "keccak <input>",
	Short: "Compute Keccak-256 hash of text or hex input",
	Long: `Compute the Keccak-256 hash of the given input.

Input starting with 0x is hashed as raw bytes, anything else as UTF-8 text.
The first four bytes are shown as well for selector lookups.

Examples:
  w3scan keccak "transfer(address,uint256)"
  w3scan keccak "Hello, world!"
  w3scan keccak 0xdeadbeef`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := keccakOf(args[0])
		if err != nil {
			return err
		}
		return output(v, func() string {
			return ui.KeyValueBlock("Keccak-256 Hash", [][2]string{
				{"Input", v.Input},
				{"Type", v.Type},
				{"Keccak-256", ui.Val(v.Hash)},
				{"Selector (4 bytes)", v.Selector},
			})
		})
	},
}

func keccakOf(input string) (keccakView, error) {
	v := keccakView{Input: input, Type: "text"}
	data := []byte(input)
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		raw, err := hexutil.Decode("0x" + input[2:])
		if err != nil {
			return v, fmt.Errorf("%w: hex input: %v", lookup.ErrInvalidInput, err)
		}
		data, v.Type = raw, "hex"
	}
	hash := crypto.Keccak256(data)
	v.Hash = hexutil.Encode(hash)
	v.Selector = hexutil.Encode(hash[:4])
	return v, nil
}
