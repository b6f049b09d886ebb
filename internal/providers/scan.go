package providers

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
	"github.com/Mohsinsiddi/w3scan/internal/scan"
)

// Scan walks recent blocks over JSON-RPC. It is the fallback every network
// has, and the only source whose results reflect the node's current view.
type Scan struct {
	scanner *scan.Scanner
	network string
}

// NewScan creates a scan provider for network.
func NewScan(scanner *scan.Scanner, network string) *Scan {
	return &Scan{scanner: scanner, network: network}
}

func (s *Scan) Name() string { return "scan" }

func (s *Scan) Transactions(ctx context.Context, address common.Address, n int) ([]*chain.Transaction, error) {
	return s.scanner.Recent(ctx, address, s.network, n)
}
