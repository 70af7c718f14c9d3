// Package app assembles the copy trader from fx modules.
package app

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"solana-copy-trader/internal/config"
	"solana-copy-trader/internal/logging"
	"solana-copy-trader/internal/observability"
)

// ConfigPath is the optional YAML file handed to config.Load.
type ConfigPath string

// New builds the application. Start it with Run or Start/Stop.
func New(path ConfigPath) *fx.App {
	return fx.New(
		fx.Supply(path),
		CoreModule(),
		StorageModule(),
		ChainModule(),
		TradingModule(),
		HTTPModule(),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)
}

// CoreModule provides configuration, logging and metrics.
func CoreModule() fx.Option {
	return fx.Module("core",
		fx.Provide(
			loadConfig,
			newLogger,
			observability.Default,
		),
	)
}

func loadConfig(path ConfigPath) (*config.Config, error) {
	cfg, err := config.Load(string(path))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func() {
		_ = logger.Sync()
	}))
	return logger, nil
}
