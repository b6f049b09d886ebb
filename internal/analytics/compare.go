package analytics

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const compareParallelism = 8

// NetworkStats is one network of a Compare.
type NetworkStats struct {
	Network string `json:"network"`
	Stats   *Stats `json:"stats,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Compare reads Stats of every network concurrently. Results keep the order
// of networks; a network that fails carries its error instead of stats.
func (s *Service) Compare(ctx context.Context, networks []string) []NetworkStats {
	out := make([]NetworkStats, len(networks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(compareParallelism)
	for i, net := range networks {
		g.Go(func() error {
			out[i].Network = net
			st, err := s.Stats(gctx, net)
			if err != nil {
				out[i].Error = err.Error()
				return nil
			}
			out[i].Stats = st
			return nil
		})
	}
	g.Wait() //nolint:errcheck
	return out
}
