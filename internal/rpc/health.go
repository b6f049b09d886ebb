package rpc

import (
	"context"
	"time"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
)

// healthTimeout bounds a single health check.
const healthTimeout = 5 * time.Second

// HealthCheck pings a single EVM RPC and returns whether it's healthy.
// A node is considered healthy if it responds within healthTimeout and its
// block is within staleBlockThreshold of bestBlock (pass 0 to skip the
// recency check).
func HealthCheck(ctx context.Context, url string, bestBlock uint64) (Endpoint, error) {
	ep := Endpoint{URL: url, Checked: true}

	c, err := chain.NewEVMClient(url)
	if err != nil {
		return ep, err
	}
	defer c.Close()

	timeoutCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	ep.Latency, ep.BlockNumber, err = c.Ping(timeoutCtx)
	ep.Healthy = err == nil && blocksBehind(&ep, bestBlock) <= staleBlockThreshold
	return ep, err
}
