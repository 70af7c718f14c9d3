package app

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-copy-trader/internal/audit"
	"solana-copy-trader/internal/classifier"
	"solana-copy-trader/internal/config"
	"solana-copy-trader/internal/dex"
	"solana-copy-trader/internal/exitpolicy"
	"solana-copy-trader/internal/ledger"
	"solana-copy-trader/internal/mirror"
	"solana-copy-trader/internal/monitor"
	"solana-copy-trader/internal/notify"
	"solana-copy-trader/internal/observability"
	"solana-copy-trader/internal/sigcache"
	"solana-copy-trader/internal/solana"
	"solana-copy-trader/internal/tokens"
	"solana-copy-trader/internal/wallet"
)

// TradingModule wires the event pipeline, the mirror engine and the exit
// evaluator, and runs them for the lifetime of the app.
func TradingModule() fx.Option {
	return fx.Module("trading",
		fx.Provide(
			ledger.New,
			newResolver,
			newClassifier,
			newRecorder,
			newNotifier,
			newEngine,
			newEvaluator,
			newMonitor,
		),
		fx.Invoke(runTrading),
	)
}

func newResolver(rpc solana.RPCClient, s *Stores, logger *zap.Logger) tokens.Resolver {
	return tokens.NewCachedResolver(tokens.NewRPCResolver(rpc, logger), logger, tokenCaches(s)...)
}

func newClassifier(cfg *config.Config, registry *dex.Registry, resolver tokens.Resolver, logger *zap.Logger) *classifier.Classifier {
	return classifier.New(registry, resolver, cfg.TargetWallet, logger)
}

func newRecorder(lc fx.Lifecycle, cfg *config.Config, sinks []audit.Sink, metrics *observability.Metrics, logger *zap.Logger) *audit.Recorder {
	r := audit.NewRecorder(logger, metrics, cfg.Audit.BufferSize, sinks...)
	lc.Append(fx.Hook{OnStop: r.Close})
	return r
}

func newNotifier(lc fx.Lifecycle, cfg *config.Config, subs notify.SubscriberStore, l *ledger.Ledger, logger *zap.Logger) (notify.Notifier, error) {
	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	if cfg.Telegram.Token == "" {
		return notifiers, nil
	}

	tg, err := notify.NewTelegram(notify.TelegramConfig{
		Token:  cfg.Telegram.Token,
		ChatID: cfg.Telegram.ChatID,
	}, subs, l, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			tg.Start(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			tg.Stop()
			return nil
		},
	})
	return append(notifiers, tg), nil
}

func newEngine(cfg *config.Config, l *ledger.Ledger, registry *dex.Registry, rpc solana.RPCClient, signer wallet.Signer,
	n notify.Notifier, rec *audit.Recorder, metrics *observability.Metrics, logger *zap.Logger) *mirror.Engine {
	return mirror.New(mirror.Config{
		TradeAmountLamports:    cfg.Trade.AmountLamports,
		MinTargetTradeLamports: cfg.Trade.MinTargetLamports,
		Operator:               signer.PublicKey(),
		Fetch: solana.FetchPolicy{
			Attempts:  cfg.Monitor.FetchAttempts,
			BaseDelay: cfg.Monitor.FetchBaseDelay,
		},
	}, l, registry, rpc, logger,
		mirror.WithNotifier(n),
		mirror.WithAuditor(rec),
		mirror.WithMetrics(metrics),
	)
}

func newEvaluator(cfg *config.Config, l *ledger.Ledger, registry *dex.Registry, engine *mirror.Engine,
	metrics *observability.Metrics, logger *zap.Logger) *exitpolicy.Evaluator {
	return exitpolicy.New(exitpolicy.Config{
		Interval:            cfg.Exit.Interval,
		MaxConcurrent:       cfg.Exit.MaxConcurrent,
		TradeAmountLamports: cfg.Trade.AmountLamports,
		ProfitMultiple:      cfg.Trade.ProfitTargetMultiple,
	}, l, registry, engine, metrics, logger)
}

func newMonitor(cfg *config.Config, ws solana.WSClient, rpc solana.RPCClient, registry *dex.Registry,
	c *classifier.Classifier, engine *mirror.Engine, rec *audit.Recorder, metrics *observability.Metrics, logger *zap.Logger) *monitor.Monitor {
	return monitor.New(monitor.Config{
		Wallet:        cfg.TargetWallet,
		MaxConcurrent: cfg.Monitor.MaxConcurrent,
		Fetch: solana.FetchPolicy{
			Attempts:  cfg.Monitor.FetchAttempts,
			BaseDelay: cfg.Monitor.FetchBaseDelay,
		},
	}, ws, rpc, registry,
		sigcache.New(cfg.Monitor.SignatureWindow, cfg.Monitor.SignatureWindowMultiple),
		c, engine, metrics, logger, monitor.WithAuditor(rec))
}

// runTrading starts the monitor and the exit evaluator. If either stops on
// its own the app shuts down.
func runTrading(lc fx.Lifecycle, sd fx.Shutdowner, m *monitor.Monitor, ev *exitpolicy.Evaluator, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	var g *errgroup.Group

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			g, ctx = errgroup.WithContext(ctx)
			g.Go(func() error { return m.Run(ctx) })
			g.Go(func() error { return ev.Run(ctx) })
			go func() {
				err := g.Wait()
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("trading stopped", zap.Error(err))
					_ = sd.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			done := make(chan struct{})
			go func() {
				_ = g.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
