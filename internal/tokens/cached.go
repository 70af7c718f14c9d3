package tokens

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"solana-copy-trader/internal/domain"
)

// CachedResolver consults caches in order before falling back to source.
// A hit in a later cache back-fills the earlier ones.
type CachedResolver struct {
	source Resolver
	caches []Cache
	logger *zap.Logger
}

// NewCachedResolver wraps source with the given caches, fastest first.
func NewCachedResolver(source Resolver, logger *zap.Logger, caches ...Cache) *CachedResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedResolver{source: source, caches: caches, logger: logger.Named("tokens")}
}

// Resolve implements Resolver. Cache failures are logged and skipped.
func (r *CachedResolver) Resolve(ctx context.Context, mint string) (domain.TokenMetadata, error) {
	if domain.IsNative(mint) {
		return domain.NativeMetadata, nil
	}

	for i, c := range r.caches {
		meta, err := c.Get(ctx, mint)
		if err == nil {
			r.fill(ctx, r.caches[:i], meta)
			return meta, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("metadata cache read failed", zap.String("mint", mint), zap.Error(err))
		}
	}

	meta, err := r.source.Resolve(ctx, mint)
	if err != nil {
		return domain.TokenMetadata{}, err
	}
	r.fill(ctx, r.caches, meta)
	return meta, nil
}

func (r *CachedResolver) fill(ctx context.Context, caches []Cache, meta domain.TokenMetadata) {
	for _, c := range caches {
		if err := c.Set(ctx, meta); err != nil {
			r.logger.Warn("metadata cache write failed", zap.String("mint", meta.Mint), zap.Error(err))
		}
	}
}
