package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/providers"
	"github.com/Mohsinsiddi/w3scan/internal/secrets"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var secretsReveal bool

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Store API keys in the OS keychain",
	Long: fmt.Sprintf(`Store API keys in the OS keychain so they never land in config.json.

Well-known names:
  %-22s Etherscan V2 key, enables Etherscan history and ABIs
  explorer.<network>     key for the network's own explorer API
  rpc.<network>          key substituted into {key} RPC URLs

Every secret can also be supplied as an environment variable, which wins
over the keychain: rpc.ethereum is read from W3SCAN_SECRET_RPC_ETHEREUM.`, providers.EtherscanSecret),
}

var secretsSetCmd = &cobra.Command{
	Use:   "set <name> [value]",
	Short: "Store a secret (prompts when value is omitted)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.ToLower(args[0])
		if err := validSecretName(name); err != nil {
			return err
		}
		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			v, err := keyring.TerminalPrompt(fmt.Sprintf("Value for %s", name))
			if err != nil {
				return err
			}
			value = v
		}
		if strings.TrimSpace(value) == "" {
			return errors.New("secret value is empty")
		}

		store, err := secrets.Open(cfg.Dir())
		if err != nil {
			return err
		}
		if err := store.Set(name, strings.TrimSpace(value)); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Stored %s in the keychain", name)))
		return nil
	},
}

var secretsGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show a stored secret, masked unless --reveal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := secrets.Open(cfg.Dir())
		if err != nil {
			return err
		}
		v, err := store.Get(strings.ToLower(args[0]))
		if err != nil {
			return err
		}
		if !secretsReveal {
			v = maskSecret(v)
		}
		fmt.Println(v)
		return nil
	},
}

var secretsDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a stored secret",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := secrets.Open(cfg.Dir())
		if err != nil {
			return err
		}
		name := strings.ToLower(args[0])
		if err := store.Delete(name); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Deleted %s", name)))
		return nil
	},
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored secret names",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := secrets.Open(cfg.Dir())
		if err != nil {
			return err
		}
		names, err := store.Names()
		if err != nil {
			return err
		}
		if jsonOut {
			if names == nil {
				names = []string{}
			}
			return output(names, nil)
		}
		if len(names) == 0 {
			fmt.Println(ui.Info("No secrets stored."))
			fmt.Println(ui.Hint("Add one with: w3scan secrets set " + providers.EtherscanSecret))
			return nil
		}
		for _, n := range names {
			fmt.Println("  " + ui.Val(n))
		}
		return nil
	},
}

// validSecretName accepts <kind>.<name> with a known kind.
func validSecretName(name string) error {
	kind, rest, ok := strings.Cut(name, ".")
	if !ok || rest == "" || (kind != secrets.KindRPC && kind != secrets.KindExplorer) {
		return fmt.Errorf("invalid secret name %q: want %s.<network> or %s.<network|etherscan>", name, secrets.KindRPC, secrets.KindExplorer)
	}
	return nil
}

// maskSecret keeps the first and last four characters.
func maskSecret(v string) string {
	if len(v) <= 10 {
		return strings.Repeat("•", len(v))
	}
	return v[:4] + strings.Repeat("•", len(v)-8) + v[len(v)-4:]
}

func init() {
	secretsGetCmd.Flags().BoolVar(&secretsReveal, "reveal", false, "print the full value")
	secretsCmd.AddCommand(secretsSetCmd, secretsGetCmd, secretsDeleteCmd, secretsListCmd)
}
