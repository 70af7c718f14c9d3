package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"solana-copy-trader/internal/audit"
	"solana-copy-trader/internal/config"
	"solana-copy-trader/internal/notify"
	"solana-copy-trader/internal/storage"
	chstore "solana-copy-trader/internal/storage/clickhouse"
	"solana-copy-trader/internal/storage/memory"
	"solana-copy-trader/internal/storage/migrations"
	"solana-copy-trader/internal/storage/postgres"
	"solana-copy-trader/internal/tokens"
)

// recentTradesCapacity bounds the in-memory trade log used without Postgres.
const recentTradesCapacity = 1000

// Stores groups the optional backends. Nil fields are disabled.
type Stores struct {
	Postgres   *postgres.Pool
	ClickHouse *chstore.Conn
	Redis      *tokens.RedisCache
}

// StorageModule connects the configured databases and builds the stores
// layered on them.
func StorageModule() fx.Option {
	return fx.Module("storage",
		fx.Provide(
			newStores,
			newTradeLog,
			newSubscribers,
			newAuditSinks,
		),
	)
}

func newStores(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	ctx := context.Background()
	s := &Stores{}

	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.Postgres = pool
		logger.Info("postgres connected")
	}

	if cfg.ClickHouse.DSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		s.ClickHouse = conn
		logger.Info("clickhouse connected")
	}

	if cfg.Redis.Addr != "" {
		rc, err := tokens.NewRedisCache(ctx, tokens.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			s.close()
			return nil, err
		}
		s.Redis = rc
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	lc.Append(fx.StopHook(s.close))
	return s, nil
}

func (s *Stores) close() {
	if s.Postgres != nil {
		s.Postgres.Close()
	}
	if s.ClickHouse != nil {
		_ = s.ClickHouse.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
}

// newTradeLog returns the queryable trade log: Postgres when configured,
// otherwise a bounded in-memory store.
func newTradeLog(s *Stores) storage.TradeLogStore {
	if s.Postgres != nil {
		return postgres.NewTradeLogStore(s.Postgres)
	}
	return memory.NewTradeLogStore(recentTradesCapacity)
}

func newSubscribers(s *Stores) notify.SubscriberStore {
	if s.Postgres != nil {
		return postgres.NewSubscriberStore(s.Postgres)
	}
	return notify.NewMemorySubscribers()
}

func newAuditSinks(lc fx.Lifecycle, cfg *config.Config, s *Stores, tradeLog storage.TradeLogStore, logger *zap.Logger) ([]audit.Sink, error) {
	sinks := []audit.Sink{audit.NewLogSink(logger), tradeLog}

	if cfg.Audit.CSVPath != "" {
		csv, err := audit.NewCSVSink(cfg.Audit.CSVPath)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(csv.Close))
		sinks = append(sinks, csv)
	}
	if s.ClickHouse != nil {
		sinks = append(sinks, chstore.NewTradeLogStore(s.ClickHouse))
	}
	return sinks, nil
}

// tokenCaches lists the metadata caches in lookup order.
func tokenCaches(s *Stores) []tokens.Cache {
	caches := []tokens.Cache{tokens.NewMemoryCache()}
	if s.Redis != nil {
		caches = append(caches, s.Redis)
	}
	if s.Postgres != nil {
		caches = append(caches, postgres.NewTokenMetadataStore(s.Postgres))
	}
	return caches
}
