package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/server"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

var (
	serveAddr string
	serveCORS []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the explorer as a JSON HTTP API",
	Long: `Serve the explorer as a JSON HTTP API.

Every endpoint takes ?network=<name> and defaults to ethereum.

  GET /api/networks
  GET /api/address/{address}?limit=10
  GET /api/block/{number|hash|latest}
  GET /api/transaction/{hash}
  GET /api/contract/{address}
  GET /api/tokens/top | /api/tokens/info?address= | /api/tokens/transfers?address=&limit=
  GET /api/nft/collection?address= | /api/nft/item?address=&tokenId= | /api/nft/owned?owner=&address=
  GET /api/dashboard/stats | /api/dashboard/gas-history?hours= | /api/dashboard/tx-history?days=

Requests are rate limited per client IP (server.rate_limit, server.rate_burst).
Ctrl-C shuts the server down gracefully.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()
		opts := server.Options{
			Addr:        cfg.Server.Addr,
			CORSOrigins: cfg.Server.CORSOrigins,
			RateLimit:   cfg.Server.RateLimit,
			RateBurst:   cfg.Server.RateBurst,
		}
		if serveAddr != "" {
			opts.Addr = serveAddr
		}
		if len(serveCORS) > 0 {
			opts.CORSOrigins = serveCORS
		}

		srv := server.New(server.Services{
			Networks:  a.accessor,
			Lookup:    a.lookup,
			Tokens:    a.tokens,
			NFTs:      a.nfts,
			Analytics: a.analytics,
		}, opts)

		fmt.Fprintln(os.Stderr, ui.Success(fmt.Sprintf("Serving the %s API on %s", cfg.NetworkMode, opts.Addr)))
		fmt.Fprintln(os.Stderr, ui.Hint("Press Ctrl-C to stop"))
		return srv.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr from config)")
	serveCmd.Flags().StringSliceVar(&serveCORS, "cors", nil, "allowed CORS origins (default: server.cors_origins from config)")
}
