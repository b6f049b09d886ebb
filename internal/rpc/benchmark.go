package rpc

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
)

// BenchmarkResult holds the result of a single endpoint benchmark.
type BenchmarkResult struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Err         error
}

// BenchmarkEVM pings all EVM RPC URLs in parallel and returns results in
// input order. Per-endpoint failures are recorded in Err, never returned.
func BenchmarkEVM(ctx context.Context, urls []string) []BenchmarkResult {
	results := make([]BenchmarkResult, len(urls))

	var g errgroup.Group
	for i, url := range urls {
		g.Go(func() error {
			results[i] = ping(ctx, url)
			if err := results[i].Err; err != nil {
				logrus.WithFields(logrus.Fields{"url": url, "err": err}).Debug("RPC benchmark failed")
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck
	return results
}

func ping(ctx context.Context, url string) BenchmarkResult {
	r := BenchmarkResult{URL: url}
	c, err := chain.NewEVMClient(url)
	if err != nil {
		r.Err = err
		return r
	}
	defer c.Close()

	pingCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	r.Latency, r.BlockNumber, r.Err = c.Ping(pingCtx)
	return r
}

// ResultsToEndpoints converts benchmark results to picker Endpoints.
// All returned endpoints have Checked: true since they have been actively tested.
func ResultsToEndpoints(results []BenchmarkResult) []Endpoint {
	endpoints := make([]Endpoint, 0, len(results))
	for _, r := range results {
		endpoints = append(endpoints, Endpoint{
			URL:         r.URL,
			Latency:     r.Latency,
			BlockNumber: r.BlockNumber,
			Healthy:     r.Err == nil,
			Checked:     true,
		})
	}
	return endpoints
}

// BestEVM runs a benchmark and returns the best EVM endpoint URL using the given algorithm.
func BestEVM(ctx context.Context, urls []string, algo Algorithm) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}

	endpoints := ResultsToEndpoints(BenchmarkEVM(ctx, urls))
	winner, err := NewPicker(algo).Pick(endpoints)
	if err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{
		"url":     winner.URL,
		"latency": winner.Latency,
		"block":   winner.BlockNumber,
		"algo":    algo,
	}).Debug("RPC endpoint selected")
	return winner.URL, nil
}
