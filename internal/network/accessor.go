// Package network resolves network identifiers into dialed chain clients.
package network

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/rpc"
	"github.com/Mohsinsiddi/w3scan/internal/secrets"
)

// ErrUnavailableNetwork is returned when a network identifier does not
// resolve to a usable endpoint. It is not retryable.
var ErrUnavailableNetwork = errors.New("unavailable network")

// EnvRPCPrefix prefixes per-network endpoint overrides, e.g.
// W3SCAN_RPC_URL_BASE=https://a,https://b.
const EnvRPCPrefix = "W3SCAN_RPC_URL_"

const keyPlaceholder = "{key}"

// SecretSource supplies API keys for templated endpoint URLs.
type SecretSource interface {
	Lookup(name string) string
}

// SelectFunc picks one URL out of several candidates.
type SelectFunc func(ctx context.Context, urls []string, algorithm string) (string, error)

// Options configures an Accessor.
type Options struct {
	// Mode is chain.ModeMainnet (default) or chain.ModeTestnet.
	Mode string
	// Algorithm is the RPC selection algorithm, see rpc.ParseAlgorithm.
	Algorithm string
	// CustomRPCs are tried before the registry's endpoints.
	CustomRPCs map[string][]string
	// Secrets fills {key} placeholders from rpc.<network>.
	Secrets SecretSource
	// Select defaults to rpc.SelectBest.
	Select SelectFunc
	// SelectTimeout bounds endpoint selection. Zero means 10s.
	SelectTimeout time.Duration
}

// Accessor is the multi-network chain data accessor. The endpoint for each
// network is selected once and the dialed client is reused; clients are safe
// for concurrent use. No chain data is cached and nothing is retried.
type Accessor struct {
	registry *chain.Registry
	opts     Options

	mu      sync.Mutex
	clients map[string]*clientSlot
}

type clientSlot struct {
	mu     sync.Mutex
	client *chain.EVMClient
}

// New creates an Accessor over registry.
func New(registry *chain.Registry, opts Options) *Accessor {
	if opts.Mode == "" {
		opts.Mode = chain.ModeMainnet
	}
	if opts.Select == nil {
		opts.Select = rpc.SelectBest
	}
	if opts.SelectTimeout <= 0 {
		opts.SelectTimeout = 10 * time.Second
	}
	return &Accessor{registry: registry, opts: opts, clients: make(map[string]*clientSlot)}
}

// Mode returns the network mode this accessor serves.
func (a *Accessor) Mode() string { return a.opts.Mode }

// Registry returns the registry the accessor resolves against.
func (a *Accessor) Registry() *chain.Registry { return a.registry }

// Chain resolves a network identifier.
func (a *Accessor) Chain(network string) (*chain.Chain, error) {
	c, err := a.registry.GetByName(network)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrUnavailableNetwork, network, err)
	}
	return c, nil
}

// Endpoints returns the candidate RPC URLs for network in priority order:
// custom RPCs, environment overrides, then the registry defaults. Templated
// URLs whose key is not available are dropped.
func (a *Accessor) Endpoints(network string) ([]string, error) {
	c, err := a.Chain(network)
	if err != nil {
		return nil, err
	}

	var candidates []string
	candidates = append(candidates, a.opts.CustomRPCs[c.Name]...)
	candidates = append(candidates, envEndpoints(c.Name)...)
	candidates = append(candidates, c.RPCs(a.opts.Mode)...)

	var key string
	if a.opts.Secrets != nil {
		key = a.opts.Secrets.Lookup(secrets.Name(secrets.KindRPC, c.Name))
	}

	seen := make(map[string]bool, len(candidates))
	urls := make([]string, 0, len(candidates))
	for _, u := range candidates {
		u = strings.TrimSpace(u)
		if strings.Contains(u, keyPlaceholder) {
			if key == "" {
				logrus.WithFields(logrus.Fields{"network": c.Name, "url": u}).Debug("skipping RPC: no API key stored")
				continue
			}
			u = strings.ReplaceAll(u, keyPlaceholder, key)
		}
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: %q has no %s RPC endpoint", ErrUnavailableNetwork, c.Name, a.opts.Mode)
	}
	return urls, nil
}

func envEndpoints(network string) []string {
	v := os.Getenv(EnvRPCPrefix + strings.ToUpper(network))
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

// Client returns the dialed client for network, selecting an endpoint on
// first use.
func (a *Accessor) Client(ctx context.Context, network string) (*chain.EVMClient, error) {
	c, err := a.Chain(network)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	slot, ok := a.clients[c.Name]
	if !ok {
		slot = &clientSlot{}
		a.clients[c.Name] = slot
	}
	a.mu.Unlock()

	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.client != nil {
		return slot.client, nil
	}

	urls, err := a.Endpoints(c.Name)
	if err != nil {
		return nil, err
	}

	selectCtx, cancel := context.WithTimeout(ctx, a.opts.SelectTimeout)
	defer cancel()
	url, err := a.opts.Select(selectCtx, urls, a.opts.Algorithm)
	if err != nil {
		return nil, &chain.FetchError{Method: "select_endpoint", Err: fmt.Errorf("%s: %w", c.Name, err)}
	}

	client, err := chain.NewEVMClient(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrUnavailableNetwork, c.Name, err)
	}
	logrus.WithFields(logrus.Fields{"network": c.Name, "url": url, "mode": a.opts.Mode}).Debug("using RPC endpoint")
	slot.client = client
	return client, nil
}

// CurrentHeight returns the latest block number of network.
func (a *Accessor) CurrentHeight(ctx context.Context, network string) (uint64, error) {
	c, err := a.Client(ctx, network)
	if err != nil {
		return 0, err
	}
	return c.BlockNumber(ctx)
}

// BlockWithTransactions fetches block n with full transaction bodies.
// It returns nil, nil when the node has no such block.
func (a *Accessor) BlockWithTransactions(ctx context.Context, network string, n uint64) (*chain.Block, error) {
	c, err := a.Client(ctx, network)
	if err != nil {
		return nil, err
	}
	return c.BlockByNumber(ctx, n, true)
}

// Close releases every dialed client.
func (a *Accessor) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for name, slot := range a.clients {
		slot.mu.Lock()
		if slot.client != nil {
			slot.client.Close()
		}
		slot.mu.Unlock()
		delete(a.clients, name)
	}
}
