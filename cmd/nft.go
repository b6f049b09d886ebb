package cmd

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/config"
	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/nft"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var (
	nftOwnedLimit int
	nftGateway    string
)

var nftCmd = &cobra.Command{
	Use:   "nft",
	Short: "Explore ERC-721 collections",
	Long: `Explore ERC-721 collections.

Sub-commands:
  w3scan nft collection <contract>            name, symbol and supply
  w3scan nft item <contract> <token-id>        owner, token URI and metadata
  w3scan nft owned <owner> <contract>          tokens an account holds

ipfs:// URIs are fetched through --gateway (default ` + nft.DefaultGateway + `).`,
}

// nfts returns the NFT service with the --gateway override applied.
func nfts() *nft.Service {
	s := getApp().nfts
	if nftGateway != "" {
		s.SetGateway(nftGateway)
	}
	return s
}

var nftCollectionCmd = &cobra.Command{
	Use:   "collection <contract>",
	Short: "Show a collection's name, symbol and total supply",
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

		s := spin(fmt.Sprintf("Reading collection %s on %s…", ui.TruncateAddr(addr.Hex()), net))
		col, err := nfts().Collection(ctx, net, addr)
		s.Stop()
		if err != nil {
			return err
		}
		return output(col, func() string {
			supply := "—"
			if col.TotalSupply != nil {
				supply = commaSep(*col.TotalSupply)
			}
			return ui.KeyValueBlock(fmt.Sprintf("🖼  Collection  ·  %s · %s", net, cfg.NetworkMode), [][2]string{
				{"Address", ui.Addr(col.Address)},
				{"Name", col.Name},
				{"Symbol", ui.Val(col.Symbol)},
				{"Total supply", supply},
			})
		})
	},
}

var nftItemCmd = &cobra.Command{
	Use:   "item <contract> <token-id>",
	Short: "Show a token's owner, URI and metadata",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		addr, err := lookup.ParseAddress(args[0])
		if err != nil {
			return err
		}
		id, ok := new(big.Int).SetString(args[1], 0)
		if !ok || id.Sign() < 0 {
			return fmt.Errorf("%w: token id %q", lookup.ErrInvalidInput, args[1])
		}
		svc := nfts()
		ctx, cancel := contextWithTimeout(cmd, config.LookupTimeout)
		defer cancel()

		s := spin(fmt.Sprintf("Reading token #%s on %s…", id, net))
		item, err := svc.Item(ctx, net, addr, id)
		s.Stop()
		if err != nil {
			return err
		}
		return output(item, func() string {
			pairs := [][2]string{
				{"Collection", ui.Addr(item.ContractAddress)},
				{"Token ID", ui.Val(item.TokenID)},
				{"Owner", ui.Addr(item.Owner)},
				{"Token URI", orDash(item.TokenURI)},
			}
			if item.Name != "" {
				pairs = append(pairs, [2]string{"Name", item.Name})
			}
			if item.Description != "" {
				pairs = append(pairs, [2]string{"Description", item.Description})
			}
			if item.Image != "" {
				pairs = append(pairs, [2]string{"Image", svc.GatewayURL(item.Image)})
			}
			if len(item.Attributes) > 0 {
				pairs = append(pairs, [2]string{"Attributes", ui.Meta(string(item.Attributes))})
			}
			return ui.KeyValueBlock(fmt.Sprintf("🖼  NFT  ·  %s · %s", net, cfg.NetworkMode), pairs)
		})
	},
}

var nftOwnedCmd = &cobra.Command{
	Use:   "owned <owner-or-ens> <contract>",
	Short: "List the tokens of a collection an account holds",
	Long: fmt.Sprintf(`List tokens of a collection an account holds. Candidates are the tokens
transferred to the account within the last %d blocks that it still owns.`, nft.OwnershipWindow),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		collection, err := lookup.ParseAddress(args[1])
		if err != nil {
			return err
		}
		ctx, cancel := contextWithTimeout(cmd, config.ScanTimeout)
		defer cancel()

		owner, err := resolveAddress(ctx, net, args[0])
		if err != nil {
			return err
		}
		s := spin(fmt.Sprintf("Finding tokens of %s…", ui.TruncateAddr(owner)))
		items, err := nfts().OwnedBy(ctx, net, common.HexToAddress(owner), collection, nftOwnedLimit)
		s.Stop()
		if err != nil {
			return err
		}
		return output(items, func() string {
			if len(items) == 0 {
				return ui.Meta(fmt.Sprintf("No tokens received in the last %d blocks are still held.", nft.OwnershipWindow))
			}
			t := ui.NewTable([]ui.Column{
				{Title: "Token ID", Width: 20},
				{Title: "Name", Width: 30},
				{Title: "Token URI", Width: 50},
			})
			for _, it := range items {
				t.AddRow(ui.Row{ui.Val(it.TokenID), orDash(it.Name), ui.Meta(orDash(it.TokenURI))})
			}
			return ui.StyleTitle.Render(fmt.Sprintf("NFTs of %s · %s", ui.TruncateAddr(owner), net)) + "\n\n" + t.Render()
		})
	},
}

func init() {
	nftCmd.PersistentFlags().StringVar(&nftGateway, "gateway", "", "IPFS gateway prefix, e.g. https://cloudflare-ipfs.com/ipfs/")
	nftOwnedCmd.Flags().IntVar(&nftOwnedLimit, "limit", nft.DefaultOwnedLimit, "maximum tokens to list")
	nftCmd.AddCommand(nftCollectionCmd, nftItemCmd, nftOwnedCmd)
}
