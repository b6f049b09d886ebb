package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3scan/internal/analytics"
	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/config"
	"github.com/Mohsinsiddi/w3scan/internal/lookup"
	"github.com/Mohsinsiddi/w3scan/internal/network"
	"github.com/Mohsinsiddi/w3scan/internal/nft"
	"github.com/Mohsinsiddi/w3scan/internal/price"
	"github.com/Mohsinsiddi/w3scan/internal/scan"
	"github.com/Mohsinsiddi/w3scan/internal/secrets"
	"github.com/Mohsinsiddi/w3scan/internal/token"
	"github.com/Mohsinsiddi/w3scan/internal/ui"
)

// app holds the services commands share. It is built on first use so that
// offline commands (checksum, keccak, config) never dial a node.
type app struct {
	registry  *chain.Registry
	secrets   *lazySecrets
	accessor  *network.Accessor
	scanner   *scan.Scanner
	lookup    *lookup.Service
	tokens    *token.Service
	nfts      *nft.Service
	analytics *analytics.Service
	prices    *price.Fetcher
}

var (
	appOnce sync.Once
	theApp  *app
)

// getApp wires the services from the loaded config.
func getApp() *app {
	appOnce.Do(func() {
		reg := chain.NewRegistry()
		keys := &lazySecrets{dir: cfg.Dir()}
		acc := network.New(reg, network.Options{
			Mode:          cfg.NetworkMode,
			Algorithm:     cfg.RPCAlgorithm,
			CustomRPCs:    cfg.CustomRPCs,
			Secrets:       keys,
			SelectTimeout: config.RPCSelectTimeout,
		})
		scanner := scan.NewScanner(acc, scan.Options{
			MaxBlocksBack: cfg.Scan.MaxBlocksBack,
			BlockRetries:  cfg.Scan.BlockRetries,
		})
		theApp = &app{
			registry:  reg,
			secrets:   keys,
			accessor:  acc,
			scanner:   scanner,
			lookup:    lookup.New(acc, scanner),
			tokens:    token.New(acc, cfg.PopularTokens),
			nfts:      nft.New(acc),
			analytics: analytics.New(acc, analytics.Options{}),
			prices:    price.NewFetcher(cfg.PriceCurrency),
		}
	})
	return theApp
}

// closeApp releases dialed clients. Safe to call when nothing was built.
func closeApp() {
	if theApp != nil {
		theApp.accessor.Close()
	}
}

// lazySecrets opens the keychain the first time a secret is needed.
type lazySecrets struct {
	dir   string
	once  sync.Once
	store *secrets.Store
}

func (l *lazySecrets) open() *secrets.Store {
	l.once.Do(func() {
		s, err := secrets.Open(l.dir)
		if err != nil {
			logrus.WithError(err).Debug("Keychain unavailable, using environment secrets only")
			return
		}
		l.store = s
	})
	return l.store
}

// Lookup implements network.SecretSource.
func (l *lazySecrets) Lookup(name string) string {
	return l.open().Lookup(name)
}

// resolveNetwork returns --network, else the configured default, and checks
// it against the registry.
func resolveNetwork() (string, error) {
	name := networkArg
	if name == "" {
		name = cfg.DefaultNetwork
	}
	if name == "" {
		name = "ethereum"
	}
	name = strings.ToLower(name)
	if _, err := getApp().registry.GetByName(name); err != nil {
		return "", fmt.Errorf("unknown network %q — run `w3scan network list` to see all networks", name)
	}
	return name, nil
}

// resolveAddress accepts a hex address or an ENS name.
func resolveAddress(ctx context.Context, net, input string) (string, error) {
	addr, err := getApp().lookup.ResolveAddress(ctx, net, input)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

// output prints v as JSON under --json, or the rendered text otherwise.
func output(v interface{}, render func() string) error {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Println(render())
	return nil
}

// spin starts a spinner unless output is JSON.
func spin(msg string) *ui.Spinner {
	s := ui.NewSpinner(msg)
	if !jsonOut {
		s.Start()
	}
	return s
}

// errorLine formats a command error with a hint for the common cases.
func errorLine(err error) string {
	line := ui.Err(err.Error())
	switch {
	case errors.Is(err, network.ErrUnavailableNetwork):
		line += "\n" + ui.Hint("check `w3scan network list` and `w3scan rpc list <network>`")
	case errors.Is(err, lookup.ErrNotFound):
		line += "\n" + ui.Hint("try another network with --network")
	case errors.Is(err, context.DeadlineExceeded):
		line += "\n" + ui.Hint("the node is slow; add a faster endpoint with `w3scan rpc add`")
	}
	return line
}

// contextWithTimeout bounds a command's network work.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), d)
}

// mustBig parses a decimal amount produced by this program; bad input is 0.
func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

// txRows converts transactions for the table and the interactive browser.
func txRows(txs []lookup.TxInfo, explorer string) []ui.TxRow {
	rows := make([]ui.TxRow, len(txs))
	for i, tx := range txs {
		rows[i] = ui.TxRow{
			Hash:   tx.Hash,
			Block:  tx.BlockNumber,
			From:   tx.From,
			Value:  tx.ValueFormatted,
			Method: tx.Method,
		}
		if tx.Timestamp > 0 {
			rows[i].Age = age(timeOf(tx.Timestamp))
		}
		if tx.To != nil {
			rows[i].To = *tx.To
		}
		if explorer != "" {
			rows[i].URL = strings.TrimSuffix(explorer, "/") + "/tx/" + tx.Hash
		}
	}
	return rows
}

// renderTxTable renders recent transactions, or a note when there are none.
func renderTxTable(txs []lookup.TxInfo, explorer string) string {
	if len(txs) == 0 {
		return ui.Meta("No recent transactions found in the scanned blocks.")
	}
	title := ui.StyleTitle.Render(fmt.Sprintf("Recent Transactions (%d)", len(txs)))
	return title + "\n" + ui.TxTable(txRows(txs, explorer)).Render()
}

// chainGwei converts a decimal wei amount to gwei.
func chainGwei(wei string) float64 {
	return chain.WeiToGwei(mustBig(wei))
}

// commaSep formats a uint64 with comma thousands separators.
func commaSep(n uint64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	result := make([]byte, 0, len(s)+len(s)/3)
	for i, ch := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(ch))
	}
	return string(result)
}

// formatTime renders a unix timestamp with its relative age.
func formatTime(ts uint64) string {
	if ts == 0 {
		return "—"
	}
	t := timeOf(ts)
	return t.UTC().Format("2006-01-02 15:04:05 UTC") + "  (" + age(t) + ")"
}

func timeOf(ts uint64) time.Time { return time.Unix(int64(ts), 0) }

func age(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
