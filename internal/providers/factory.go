package providers

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/network"
	"github.com/Mohsinsiddi/w3scan/internal/scan"
	"github.com/Mohsinsiddi/w3scan/internal/secrets"
)

// Sources accepted by Build.
const (
	SourceAuto     = "auto"
	SourceExplorer = "explorer"
	SourceScan     = "scan"
)

// EtherscanSecret is the secret holding the Etherscan V2 key.
const EtherscanSecret = "explorer.etherscan"

// ParseSource validates a --source value; empty means auto.
func ParseSource(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", SourceAuto:
		return SourceAuto, nil
	case SourceExplorer:
		return SourceExplorer, nil
	case SourceScan:
		return SourceScan, nil
	}
	return "", fmt.Errorf("unknown source %q: use auto, explorer or scan", s)
}

// BuildRegistry assembles the providers for one network in priority order:
//
//  1. Etherscan V2 if an "explorer.etherscan" key is stored
//  2. the chain's own explorer API, keyed by "explorer.<network>" if stored
//  3. the block scanner
//
// source "explorer" keeps 1-2, "scan" keeps 3 only.
func BuildRegistry(source string, c *chain.Chain, mode string, keys network.SecretSource, scanner *scan.Scanner) (*Registry, error) {
	source, err := ParseSource(source)
	if err != nil {
		return nil, err
	}
	var ps []Provider
	if source != SourceScan {
		for _, e := range Explorers(c, mode, keys) {
			ps = append(ps, e)
		}
		if source == SourceExplorer && len(ps) == 0 {
			return nil, fmt.Errorf("%s has no explorer API configured", c.Name)
		}
	}
	if source != SourceExplorer {
		ps = append(ps, NewScan(scanner, c.Name))
	}
	return New(ps...), nil
}

// Explorers returns the explorer APIs serving c in mode, Etherscan V2 first.
// It is empty when no key is stored for Etherscan and the chain has no
// explorer API of its own.
func Explorers(c *chain.Chain, mode string, keys network.SecretSource) []*Explorer {
	lookup := func(name string) string {
		if keys == nil {
			return ""
		}
		return keys.Lookup(name)
	}

	var out []*Explorer
	chainID := c.ChainID
	if mode == chain.ModeTestnet {
		chainID = c.TestnetChainID
	}
	if e := NewEtherscan(chainID, lookup(EtherscanSecret)); e != nil {
		out = append(out, e)
	}
	if api := c.ExplorerAPIURL(mode); api != "" {
		out = append(out, NewBlockScout(api, lookup(secrets.Name(secrets.KindExplorer, c.Name))))
	}
	return out
}
