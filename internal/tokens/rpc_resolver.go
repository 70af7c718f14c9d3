package tokens

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/solana"
)

// RPCResolver reads decimals from the mint account and name/symbol from
// the Metaplex metadata account in a single getMultipleAccounts call.
type RPCResolver struct {
	rpc    solana.RPCClient
	logger *zap.Logger
}

// NewRPCResolver creates a chain-backed resolver.
func NewRPCResolver(rpc solana.RPCClient, logger *zap.Logger) *RPCResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPCResolver{rpc: rpc, logger: logger.Named("tokens")}
}

// Resolve implements Resolver. Tokens without Metaplex metadata resolve
// with an abbreviated mint as their symbol.
func (r *RPCResolver) Resolve(ctx context.Context, mint string) (domain.TokenMetadata, error) {
	if domain.IsNative(mint) {
		return domain.NativeMetadata, nil
	}

	metaAddr, err := MetadataAddress(mint)
	if err != nil {
		return domain.TokenMetadata{}, fmt.Errorf("resolve %s: %w", mint, err)
	}

	accounts, err := r.rpc.GetMultipleAccounts(ctx, []string{mint, metaAddr})
	if err != nil {
		return domain.TokenMetadata{}, domain.NewExternalCallError("get mint accounts", err)
	}
	if len(accounts) != 2 || accounts[0] == nil {
		return domain.TokenMetadata{}, fmt.Errorf("resolve %s: mint account: %w", mint, domain.ErrNotFound)
	}

	decimals, err := solana.DecodeMintDecimals(accounts[0].Data)
	if err != nil {
		return domain.TokenMetadata{}, fmt.Errorf("resolve %s: %w: %v", mint, domain.ErrDecodeAccount, err)
	}

	meta := domain.TokenMetadata{Mint: mint, Decimals: decimals}
	if accounts[1] != nil {
		onchain, err := decodeMetadata(accounts[1].Data)
		if err != nil {
			r.logger.Debug("undecodable metadata", zap.String("mint", mint), zap.Error(err))
		} else {
			meta.Name = onchain.Name
			meta.Symbol = onchain.Symbol
		}
	}
	meta.Symbol = normalizeSymbol(mint, meta.Symbol)
	return meta, nil
}
