// Package analytics derives network statistics and history series from
// sampled blocks.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Mohsinsiddi/w3scan/internal/chain"
)

const (
	// DefaultBlockTime is assumed when it cannot be measured.
	DefaultBlockTime = 12.0
	// blockTimeWindow is how many blocks the average block time spans.
	blockTimeWindow = 100

	maxGasSamples = 100
	// BlocksPerHour at a 12s block time; history series step by it.
	BlocksPerHour = 300

	DefaultGasHours   = 24
	DefaultVolumeDays = 7

	// MaxGasHours and MaxVolumeDays bound the history ranges.
	MaxGasHours   = 30 * 24
	MaxVolumeDays = 30
)

// ErrRangeTooLarge is returned for history ranges above MaxGasHours or
// MaxVolumeDays.
var ErrRangeTooLarge = errors.New("history range too large")

// ClientSource hands out a dialed client per network.
type ClientSource interface {
	Client(ctx context.Context, network string) (*chain.EVMClient, error)
}

// GasTiers are gas price suggestions in gwei.
type GasTiers struct {
	Slow      string `json:"slow"`
	Standard  string `json:"standard"`
	Fast      string `json:"fast"`
	Instant   string `json:"instant"`
	BaseFee   string `json:"baseFee,omitempty"`
	Timestamp int64  `json:"timestamp"` // unix ms
}

// Stats is a snapshot of network activity. The 24h figures extrapolate the
// head block.
type Stats struct {
	BlockNumber        uint64   `json:"blockNumber"`
	BlockTime          float64  `json:"blockTime"`
	GasPrice           GasTiers `json:"gasPrice"`
	TPS                float64  `json:"tps"`
	Transactions24h    uint64   `json:"transactions24h"`
	ActiveAddresses24h uint64   `json:"activeAddresses24h"`
}

// GasPoint is the base fee of one sampled block.
type GasPoint struct {
	Timestamp int64   `json:"timestamp"` // unix ms
	GasPrice  float64 `json:"gasPrice"`  // gwei
	Block     uint64  `json:"block"`
}

// VolumePoint is the transaction count of one sampled block.
type VolumePoint struct {
	Timestamp int64  `json:"timestamp"` // unix ms
	Count     int    `json:"count"`
	Block     uint64 `json:"block"`
}

// Options tunes sampling.
type Options struct {
	// RequestsPerSecond throttles block fetches of history series.
	// 0 means 10/s; rate.Inf disables throttling.
	RequestsPerSecond rate.Limit
	Burst             int
}

// Service computes analytics.
type Service struct {
	clients ClientSource
	limiter *rate.Limiter
	now     func() time.Time
}

// New creates a Service.
func New(clients ClientSource, opts Options) *Service {
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	return &Service{
		clients: clients,
		limiter: rate.NewLimiter(opts.RequestsPerSecond, opts.Burst),
		now:     time.Now,
	}
}

// Stats reports the head height, average block time, gas tiers and
// throughput estimates.
func (s *Service) Stats(ctx context.Context, network string) (*Stats, error) {
	c, err := s.clients.Client(ctx, network)
	if err != nil {
		return nil, err
	}

	var (
		gasPrice *big.Int
		head     *chain.Block
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		gasPrice, err = c.GasPrice(gctx)
		return err
	})
	g.Go(func() (err error) {
		head, err = c.LatestBlock(gctx, false)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if head == nil {
		return nil, fmt.Errorf("%s: no head block", network)
	}

	blockTime := DefaultBlockTime
	if head.Number >= blockTimeWindow {
		prev, err := c.BlockByNumber(ctx, head.Number-blockTimeWindow, false)
		if err != nil {
			logrus.WithField("network", network).WithError(err).Debug("Block time unavailable")
		} else if prev != nil && head.Timestamp > prev.Timestamp {
			blockTime = float64(head.Timestamp-prev.Timestamp) / blockTimeWindow
		}
	}

	tps := float64(head.TxCount()) / blockTime
	tx24h := uint64(tps * 86400)
	return &Stats{
		BlockNumber:        head.Number,
		BlockTime:          blockTime,
		GasPrice:           s.tiers(gasPrice, head.BaseFee),
		TPS:                tps,
		Transactions24h:    tx24h,
		ActiveAddresses24h: tx24h * 6 / 10,
	}, nil
}

// Gas returns the gas tiers of network without the block time and
// throughput work Stats does.
func (s *Service) Gas(ctx context.Context, network string) (*GasTiers, error) {
	c, err := s.clients.Client(ctx, network)
	if err != nil {
		return nil, err
	}
	info, err := c.Gas(ctx)
	if err != nil {
		return nil, err
	}
	t := s.tiers(info.GasPrice, info.BaseFee)
	return &t, nil
}

func (s *Service) tiers(gasPrice, baseFee *big.Int) GasTiers {
	gwei := func(wei *big.Int, pct int64) string {
		return chain.TrimZeros(chain.FormatUnits(chain.ScalePercent(wei, pct), 9))
	}
	t := GasTiers{
		Slow:      gwei(gasPrice, 80),
		Standard:  gwei(gasPrice, 100),
		Fast:      gwei(gasPrice, 120),
		Instant:   gwei(gasPrice, 150),
		Timestamp: s.now().UnixMilli(),
	}
	if baseFee != nil {
		t.BaseFee = gwei(baseFee, 100)
	}
	return t
}

// GasSamples returns the sample count and block spacing GasHistory uses
// for hours.
// hours is clamped to [1, MaxGasHours].
func GasSamples(hours int) (samples, interval int) {
	hours = min(max(hours, 1), MaxGasHours)
	samples = min(hours*6, maxGasSamples)
	interval = max(hours*BlocksPerHour/samples, 1)
	return samples, interval
}

// GasHistory samples the base fee over the last hours, oldest first. Blocks
// without a base fee and blocks that fail to load are left out.
func (s *Service) GasHistory(ctx context.Context, network string, hours int) ([]GasPoint, error) {
	if hours <= 0 {
		hours = DefaultGasHours
	}
	if hours > MaxGasHours {
		return nil, fmt.Errorf("%w: %d hours, at most %d", ErrRangeTooLarge, hours, MaxGasHours)
	}
	samples, interval := GasSamples(hours)

	points := make([]GasPoint, 0, samples)
	err := s.sample(ctx, network, samples, interval, func(b *chain.Block) {
		if b.BaseFee == nil {
			return
		}
		points = append(points, GasPoint{
			Timestamp: int64(b.Timestamp) * 1000,
			GasPrice:  chain.WeiToGwei(b.BaseFee),
			Block:     b.Number,
		})
	})
	if err != nil {
		return nil, err
	}
	reverse(points)
	return points, nil
}

// VolumeHistory samples the transaction count once per hour over the last
// days, oldest first.
func (s *Service) VolumeHistory(ctx context.Context, network string, days int) ([]VolumePoint, error) {
	if days <= 0 {
		days = DefaultVolumeDays
	}
	if days > MaxVolumeDays {
		return nil, fmt.Errorf("%w: %d days, at most %d", ErrRangeTooLarge, days, MaxVolumeDays)
	}
	samples := days * 24

	points := make([]VolumePoint, 0, min(samples, maxGasSamples))
	err := s.sample(ctx, network, samples, BlocksPerHour, func(b *chain.Block) {
		points = append(points, VolumePoint{
			Timestamp: int64(b.Timestamp) * 1000,
			Count:     b.TxCount(),
			Block:     b.Number,
		})
	})
	if err != nil {
		return nil, err
	}
	reverse(points)
	return points, nil
}

// sample visits up to n blocks spaced interval apart, newest first, starting
// at the head. Fetches are throttled by the service limiter; a failed block
// is logged and skipped.
func (s *Service) sample(ctx context.Context, network string, n, interval int, visit func(*chain.Block)) error {
	c, err := s.clients.Client(ctx, network)
	if err != nil {
		return err
	}
	head, err := c.BlockNumber(ctx)
	if err != nil {
		return err
	}

	step := uint64(interval)
	for i := 0; i < n; i++ {
		offset := uint64(i) * step
		if offset > head {
			break
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		num := head - offset
		b, err := c.BlockByNumber(ctx, num, false)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logrus.WithFields(logrus.Fields{
				"network": network,
				"block":   num,
			}).WithError(err).Warn("Skipping sample block")
			continue
		}
		if b != nil {
			visit(b)
		}
	}
	return nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
