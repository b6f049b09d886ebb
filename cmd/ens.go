package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/config"
	"github.com/Mohsinsiddi/w3scan/internal/ens"
	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

// ensView is the --json shape of `w3scan ens`.
type ensView struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	// Verified is set when the record in the other direction agrees.
	Verified *bool `json:"verified,omitempty"`
}

var ensCmd = &cobra.Command{
	Use:   "ens <name-or-address>",
	Short: "Resolve ENS names to addresses and vice versa",
	Long: `Resolve ENS names to Ethereum addresses or perform reverse lookups.

Auto-detects direction: a 0x address gets a reverse lookup, anything else
is resolved as a name. The record in the other direction is checked too.

ENS always resolves on ethereum (sepolia with --testnet).

Examples:
  w3scan ens vitalik.eth
  w3scan ens 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := strings.TrimSpace(args[0])
		ctx, cancel := contextWithTimeout(cmd, config.LookupTimeout)
		defer cancel()

		client, err := getApp().accessor.Client(ctx, "ethereum")
		if err != nil {
			return err
		}
		r := ens.NewResolver(client)

		var view ensView
		s := spin(fmt.Sprintf("Resolving %s…", input))
		if strings.HasPrefix(strings.ToLower(input), "0x") {
			addr, perr := lookup.ParseAddress(input)
			if perr != nil {
				s.Stop()
				return perr
			}
			name, rerr := r.ReverseLookup(ctx, addr)
			if rerr != nil {
				s.Stop()
				return fmt.Errorf("reverse lookup failed: %w", rerr)
			}
			view = ensView{Name: name, Address: addr.Hex()}
			if fwd, ferr := r.Resolve(ctx, name); ferr == nil {
				ok := fwd == addr
				view.Verified = &ok
			}
		} else {
			name := strings.ToLower(input)
			addr, rerr := r.Resolve(ctx, name)
			if rerr != nil {
				s.Stop()
				return fmt.Errorf("resolution failed: %w", rerr)
			}
			view = ensView{Name: name, Address: addr.Hex()}
			if rev, ferr := r.ReverseLookup(ctx, addr); ferr == nil {
				ok := strings.EqualFold(rev, name)
				view.Verified = &ok
			}
		}
		s.Stop()

		return output(view, func() string {
			pairs := [][2]string{
				{"ENS Name", ui.Val(view.Name)},
				{"Address", ui.Addr(view.Address)},
			}
			switch {
			case view.Verified == nil:
				pairs = append(pairs, [2]string{"Check", ui.Meta("no record in the other direction")})
			case *view.Verified:
				pairs = append(pairs, [2]string{"Check", ui.Success("forward and reverse records match")})
			default:
				pairs = append(pairs, [2]string{"Check", ui.Warn("forward and reverse records disagree")})
			}
			return ui.KeyValueBlock("ENS · "+cfg.NetworkMode, pairs)
		})
	},
}
