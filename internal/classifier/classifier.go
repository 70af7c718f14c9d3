// Package classifier turns fetched transactions into canonical swap events.
package classifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-copy-trader/internal/dex"
	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/solana"
	"solana-copy-trader/internal/tokens"
)

// Classifier selects a protocol adapter by hint and resolves leg metadata.
type Classifier struct {
	registry *dex.Registry
	tokens   tokens.Resolver
	wallet   string
	logger   *zap.Logger
}

// New creates a Classifier for swaps performed by wallet.
func New(registry *dex.Registry, resolver tokens.Resolver, wallet string, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		registry: registry,
		tokens:   resolver,
		wallet:   wallet,
		logger:   logger.Named("classifier"),
	}
}

// Classify builds the SwapEvent for tx. Insufficient or ambiguous evidence is
// reported as *domain.ClassificationError; RPC failures as
// *domain.ExternalCallError.
func (c *Classifier) Classify(ctx context.Context, tx *solana.Transaction, signature string, hint domain.DEX) (*domain.SwapEvent, error) {
	if tx == nil {
		return nil, domain.NewClassificationError(signature, "transaction", domain.ErrNotFound)
	}
	if tx.Failed() {
		return nil, domain.NewClassificationError(signature, "transaction", domain.ErrFailedTransaction)
	}

	adapter, err := c.registry.Get(hint)
	if err != nil {
		return nil, domain.NewClassificationError(signature, "protocol hint", err)
	}

	trade, err := adapter.Classify(ctx, tx, c.wallet)
	if err != nil {
		return nil, err
	}
	if trade == nil || trade.From.Mint == "" || trade.To.Mint == "" {
		return nil, domain.NewClassificationError(signature, "legs", domain.ErrMissingLeg)
	}

	from, err := c.leg(ctx, signature, trade.From)
	if err != nil {
		return nil, err
	}
	to, err := c.leg(ctx, signature, trade.To)
	if err != nil {
		return nil, err
	}

	event := &domain.SwapEvent{
		Signature: signature,
		Wallet:    c.wallet,
		DEX:       adapter.DEX(),
		Type:      trade.Type,
		From:      from,
		To:        to,
		Pool:      trade.Pool,
		Slot:      tx.Slot,
		BlockTime: tx.BlockTime,
	}

	c.logger.Debug("classified",
		zap.String("signature", signature),
		zap.String("dex", event.DEX.String()),
		zap.String("type", string(event.Type)),
		zap.String("from", from.Symbol),
		zap.String("to", to.Symbol))
	return event, nil
}

// leg resolves l's metadata. Failed RPC calls stay external; a mint that is
// missing or undecodable makes the transaction unclassifiable.
func (c *Classifier) leg(ctx context.Context, signature string, l dex.TradeLeg) (domain.Leg, error) {
	meta, err := c.tokens.Resolve(ctx, l.Mint)
	if err != nil {
		if domain.IsExternalCallError(err) {
			return domain.Leg{}, fmt.Errorf("resolve token %s: %w", l.Mint, err)
		}
		return domain.Leg{}, domain.NewClassificationError(signature, "token metadata", err)
	}

	amount := l.Amount
	if !l.Scaled {
		amount = amount.Shift(-int32(meta.Decimals))
	}
	return domain.Leg{
		Mint:     l.Mint,
		Amount:   amount,
		Symbol:   meta.Symbol,
		Decimals: meta.Decimals,
	}, nil
}
