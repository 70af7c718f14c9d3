package app

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"solana-copy-trader/internal/config"
	"solana-copy-trader/internal/dex"
	"solana-copy-trader/internal/observability"
	"solana-copy-trader/internal/solana"
	"solana-copy-trader/internal/wallet"
)

// ChainModule provides the node clients, the operator key and the DEX
// adapters.
func ChainModule() fx.Option {
	return fx.Module("chain",
		fx.Provide(
			newRPC,
			newWS,
			newSigner,
			newExecutor,
			newRegistry,
		),
	)
}

func newRPC(cfg *config.Config, metrics *observability.Metrics) solana.RPCClient {
	opts := []solana.ClientOption{
		solana.WithObserver(metrics.ObserveRPC),
	}
	if cfg.RPC.Commitment != "" {
		opts = append(opts, solana.WithCommitment(cfg.RPC.Commitment))
	}
	if cfg.RPC.Timeout > 0 {
		opts = append(opts, solana.WithTimeout(cfg.RPC.Timeout))
	}
	if cfg.RPC.MaxRetries > 0 {
		opts = append(opts, solana.WithMaxRetries(cfg.RPC.MaxRetries))
	}
	return solana.NewHTTPClient(cfg.RPC.HTTPEndpoint, opts...)
}

func newWS(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (solana.WSClient, error) {
	wsCfg := solana.DefaultWSConfig()
	wsCfg.Logger = logger
	if cfg.RPC.Commitment != "" {
		wsCfg.Commitment = cfg.RPC.Commitment
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ws, err := solana.NewWSClient(ctx, cfg.RPC.WSEndpoint, &wsCfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(ws.Close))
	return ws, nil
}

func newSigner(cfg *config.Config, logger *zap.Logger) (wallet.Signer, error) {
	kp, err := wallet.FromBase58(cfg.Wallet.PrivateKey)
	if err != nil {
		return nil, err
	}
	logger.Info("operator wallet loaded", zap.String("address", kp.PublicKey()))
	return kp, nil
}

func newExecutor(cfg *config.Config, signer wallet.Signer, rpc solana.RPCClient, logger *zap.Logger) *dex.Executor {
	return dex.NewExecutor(dex.NewJupiterAPI(cfg.Jupiter.BaseURL), signer, rpc, dex.ExecutorConfig{
		SlippageBps:         cfg.Trade.SlippageBps,
		PriorityFeeLamports: cfg.Trade.PriorityFeeLamports,
	}, logger)
}

// newRegistry registers Jupiter ahead of Raydium: aggregator routes through
// Raydium pools mention both programs.
func newRegistry(rpc solana.RPCClient, exec *dex.Executor) *dex.Registry {
	return dex.NewRegistry(
		dex.NewJupiterAdapter(rpc, exec),
		dex.NewRaydiumAdapter(rpc, exec),
	)
}
