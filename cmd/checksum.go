package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

type checksumView struct {
	Input       string `json:"input"`
	Checksummed string `json:"checksummed"`
	Status      string `json:"status"`
}

const (
	checksumValid    = "valid"
	checksumLower    = "not-checksummed"
	checksumMismatch = "mismatch"
)

var checksumCmd = &cobra.Command{
	Use:   "checksum <address>",
	Short: "Validate or convert an address to EIP-55 checksum format",
	Long: `Print the EIP-55 mixed-case form of an address and report whether the
input already carried a correct checksum.

Examples:
  w3scan checksum 0xd8da6bf26964af9d7eed9e03e53415d37aa96045
  w3scan checksum 0xD8DA6BF26964AF9D7EED9E03E53415D37AA96045`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := strings.TrimSpace(args[0])
		clean := strings.TrimPrefix(strings.TrimPrefix(input, "0x"), "0X")
		if len(clean) != 40 {
			return fmt.Errorf("%w: expected 40 hex chars, got %d", lookup.ErrInvalidInput, len(clean))
		}
		if _, err := hex.DecodeString(clean); err != nil {
			return fmt.Errorf("%w: %v", lookup.ErrInvalidInput, err)
		}

		v := checksumView{Input: input, Checksummed: toChecksumAddress(clean)}
		v.Status = checksumStatus(input, v.Checksummed)

		return output(v, func() string {
			var verdict string
			switch v.Status {
			case checksumValid:
				verdict = ui.Success("address is correctly checksummed")
			case checksumLower:
				verdict = ui.Warn("valid address but not checksummed")
			default:
				verdict = ui.Err("checksum mismatch")
			}
			return ui.KeyValueBlock("EIP-55 Checksum", [][2]string{
				{"Input", input},
				{"Checksummed", ui.Addr(v.Checksummed)},
				{"Valid", verdict},
			})
		})
	},
}

// toChecksumAddress returns the EIP-55 form of 40 hex characters.
func toChecksumAddress(clean string) string {
	return common.HexToAddress("0x" + clean).Hex()
}

// checksumStatus compares input with its checksummed form. Single-case
// input carries no checksum; mixed case that differs is a mismatch.
func checksumStatus(input, checksummed string) string {
	body := strings.TrimPrefix(strings.TrimPrefix(input, "0x"), "0X")
	switch {
	case "0x"+body == checksummed:
		return checksumValid
	case body == strings.ToLower(body) || body == strings.ToUpper(body):
		return checksumLower
	default:
		return checksumMismatch
	}
}
