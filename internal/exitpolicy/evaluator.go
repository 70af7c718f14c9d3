// Package exitpolicy periodically sells open positions that reached the
// profit target.
package exitpolicy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-copy-trader/internal/dex"
	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/mirror"
	"solana-copy-trader/internal/observability"
)

// Defaults.
const (
	DefaultInterval       = 5 * time.Second
	DefaultMaxConcurrent  = 4
	DefaultProfitMultiple = 1.25
)

// Positions lists open positions.
type Positions interface {
	Snapshot() []domain.Position
}

// Closer sells a held position through the mirror close path.
type Closer interface {
	Exit(ctx context.Context, mint string) mirror.Outcome
}

// Config holds evaluator parameters.
type Config struct {
	Interval            time.Duration
	MaxConcurrent       int
	TradeAmountLamports uint64
	ProfitMultiple      float64
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.ProfitMultiple <= 0 {
		c.ProfitMultiple = DefaultProfitMultiple
	}
	return c
}

// Target returns the lamport value at which a position is sold:
// floor(TradeAmountLamports × ProfitMultiple).
func (c Config) Target() uint64 {
	return decimal.NewFromInt(int64(c.TradeAmountLamports)).
		Mul(decimal.NewFromFloat(c.ProfitMultiple)).
		Floor().
		BigInt().
		Uint64()
}

// Evaluator checks every open position once per interval.
type Evaluator struct {
	cfg       Config
	positions Positions
	registry  *dex.Registry
	closer    Closer
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// New creates an Evaluator.
func New(cfg Config, positions Positions, registry *dex.Registry, closer Closer, metrics *observability.Metrics, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		cfg:       cfg.withDefaults(),
		positions: positions,
		registry:  registry,
		closer:    closer,
		metrics:   metrics,
		logger:    logger.Named("exit"),
	}
}

// Run evaluates positions on every tick until ctx is cancelled.
func (e *Evaluator) Run(ctx context.Context) error {
	e.logger.Info("exit evaluator started",
		zap.Duration("interval", e.cfg.Interval),
		zap.Uint64("target_lamports", e.cfg.Target()))

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Evaluate(ctx)
		}
	}
}

// Evaluate runs one cycle and returns the number of positions sold.
func (e *Evaluator) Evaluate(ctx context.Context) int {
	start := time.Now()
	defer func() { e.metrics.RecordExitCycle(time.Since(start)) }()

	target := e.cfg.Target()
	positions := e.positions.Snapshot()
	sold := make([]bool, len(positions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrent)
	for i, pos := range positions {
		g.Go(func() error {
			sold[i] = e.check(gctx, pos, target)
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, s := range sold {
		if s {
			n++
		}
	}
	return n
}

func (e *Evaluator) check(ctx context.Context, pos domain.Position, target uint64) bool {
	log := e.logger.With(zap.String("mint", pos.Mint), zap.String("symbol", pos.Symbol))

	adapter, err := e.registry.Get(pos.DEX)
	if err != nil {
		log.Error("no adapter for position", zap.Error(err))
		e.metrics.RecordExitCheck("error")
		return false
	}

	value, err := adapter.ExitValue(ctx, pos)
	if err != nil {
		log.Warn("exit value unavailable", zap.Error(err))
		e.metrics.RecordExitCheck("error")
		return false
	}
	if value < target {
		log.Debug("below target", zap.Uint64("value", value), zap.Uint64("target", target))
		e.metrics.RecordExitCheck("hold")
		return false
	}

	e.metrics.RecordExitCheck("sell")
	log.Info("profit target reached", zap.Uint64("value", value), zap.Uint64("target", target))

	out := e.closer.Exit(ctx, pos.Mint)
	if out.Kind != mirror.OutcomeSold {
		log.Warn("exit sell not completed", zap.String("outcome", string(out.Kind)), zap.Error(out.Err))
		return false
	}
	e.metrics.RecordExitSell()
	return true
}
