package dex

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/solana"
)

// raydiumRouteLabel is the Jupiter venue label for Raydium AMM v4.
const raydiumRouteLabel = "Raydium"

// RaydiumAdapter classifies AMM v4 swaps from pre/post token balances.
type RaydiumAdapter struct {
	rpc  solana.RPCClient
	exec *Executor
}

// NewRaydiumAdapter creates the pool-protocol adapter.
func NewRaydiumAdapter(rpc solana.RPCClient, exec *Executor) *RaydiumAdapter {
	return &RaydiumAdapter{rpc: rpc, exec: exec}
}

// DEX implements Adapter.
func (a *RaydiumAdapter) DEX() domain.DEX { return domain.DEXRaydium }

// Detect implements Adapter.
func (a *RaydiumAdapter) Detect(logs []string) bool {
	return solana.LogsMention(logs, RaydiumAMMProgramID)
}

// TradeSize diffs owner's balances of baseMint and quoteMint across tx.
// The side that decreased is Less; when neither decreased Less is base.
func TradeSize(tx *solana.Transaction, baseMint, quoteMint, owner string) domain.TradeDelta {
	var pre, post []solana.TokenBalance
	if tx.Meta != nil {
		pre, post = tx.Meta.PreTokenBalances, tx.Meta.PostTokenBalances
	}

	baseDiff := ownerBalance(post, owner, baseMint).Sub(ownerBalance(pre, owner, baseMint))
	quoteDiff := ownerBalance(post, owner, quoteMint).Sub(ownerBalance(pre, owner, quoteMint))

	if !baseDiff.IsNegative() && quoteDiff.IsNegative() {
		return domain.TradeDelta{LessMint: quoteMint, LessAmount: quoteDiff, MoreMint: baseMint, MoreAmount: baseDiff}
	}
	return domain.TradeDelta{LessMint: baseMint, LessAmount: baseDiff, MoreMint: quoteMint, MoreAmount: quoteDiff}
}

// ownerBalance sums owner's UI balance of mint over all its token accounts.
func ownerBalance(balances []solana.TokenBalance, owner, mint string) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		if b.Owner == owner && b.Mint == mint {
			total = total.Add(b.Amount.UIAmount())
		}
	}
	return total
}

// Pools returns the AMM v4 pool accounts referenced by tx's top-level
// instructions, in first-seen order.
func (a *RaydiumAdapter) Pools(ctx context.Context, tx *solana.Transaction) ([]PoolState, error) {
	var candidates []string
	seen := make(map[string]bool)
	for _, ix := range tx.Instructions() {
		for _, acc := range ix.Accounts {
			if acc == solana.TokenProgramID || seen[acc] {
				continue
			}
			seen[acc] = true
			candidates = append(candidates, acc)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	infos, err := a.rpc.GetMultipleAccounts(ctx, candidates)
	if err != nil {
		return nil, domain.NewExternalCallError("get pool candidates", err)
	}

	var pools []PoolState
	for i, info := range infos {
		if !isPoolAccount(info) {
			continue
		}
		pool, err := DecodePoolState(candidates[i], info.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrDecodeAccount, err)
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

// Classify implements Adapter.
//
// With one pool the pool authority's balance change is measured and
// mirrored: what the authority gained the wallet paid. With several pools
// (a multi-hop route) the wallet's change at the first pool gives the input
// and at the last pool the output; the result is always a Swap.
func (a *RaydiumAdapter) Classify(ctx context.Context, tx *solana.Transaction, wallet string) (*Trade, error) {
	pools, err := a.Pools(ctx, tx)
	if err != nil {
		if domain.IsExternalCallError(err) {
			return nil, err
		}
		return nil, domain.NewClassificationError(tx.Signature, "raydium pools", err)
	}
	if len(pools) == 0 {
		return nil, domain.NewClassificationError(tx.Signature, "raydium pools", domain.ErrNoPool)
	}

	poolAddr := pools[0].Address
	trade := &Trade{Pool: &poolAddr}

	if len(pools) == 1 {
		p := pools[0]
		delta := TradeSize(tx, p.BaseMint, p.QuoteMint, RaydiumAuthority)
		if delta.LessAmount.IsZero() && delta.MoreAmount.IsZero() {
			return nil, domain.NewClassificationError(tx.Signature, "raydium authority unchanged", domain.ErrMissingLeg)
		}
		trade.From = TradeLeg{Mint: delta.MoreMint, Amount: delta.MoreAmount.Abs(), Scaled: true}
		trade.To = TradeLeg{Mint: delta.LessMint, Amount: delta.LessAmount.Abs(), Scaled: true}
		switch delta.Type() {
		case domain.SwapTypeBuy:
			trade.Type = domain.SwapTypeSell
		case domain.SwapTypeSell:
			trade.Type = domain.SwapTypeBuy
		default:
			trade.Type = domain.SwapTypeSwap
		}
		return trade, nil
	}

	first, last := pools[0], pools[len(pools)-1]
	in := TradeSize(tx, first.BaseMint, first.QuoteMint, wallet)
	out := TradeSize(tx, last.BaseMint, last.QuoteMint, wallet)
	if in.LessAmount.IsZero() || out.MoreAmount.IsZero() {
		return nil, domain.NewClassificationError(tx.Signature, "raydium wallet balances", domain.ErrMissingLeg)
	}
	trade.Type = domain.SwapTypeSwap
	trade.From = TradeLeg{Mint: in.LessMint, Amount: in.LessAmount.Abs(), Scaled: true}
	trade.To = TradeLeg{Mint: out.MoreMint, Amount: out.MoreAmount, Scaled: true}
	return trade, nil
}

// Pool fetches and decodes one pool account.
func (a *RaydiumAdapter) Pool(ctx context.Context, address string) (PoolState, error) {
	info, err := a.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		return PoolState{}, domain.NewExternalCallError("get pool", err)
	}
	if !isPoolAccount(info) {
		return PoolState{}, fmt.Errorf("pool %s: %w", address, domain.ErrNoPool)
	}
	return DecodePoolState(address, info.Data)
}

// Reserves returns the pool's vault balances oriented for swapping inputMint.
func (a *RaydiumAdapter) Reserves(ctx context.Context, pool PoolState, inputMint string) (Reserves, error) {
	if inputMint != pool.BaseMint && inputMint != pool.QuoteMint {
		return Reserves{}, fmt.Errorf("mint %s not in pool %s: %w", inputMint, pool.Address, domain.ErrNoPool)
	}

	vaults, err := a.rpc.GetMultipleAccounts(ctx, []string{pool.BaseVault, pool.QuoteVault})
	if err != nil {
		return Reserves{}, domain.NewExternalCallError("get vaults", err)
	}
	amounts := make([]uint64, 2)
	for i, v := range vaults {
		if v == nil {
			return Reserves{}, fmt.Errorf("vault of pool %s: %w", pool.Address, domain.ErrNotFound)
		}
		ta, err := solana.DecodeTokenAccount(v.Data)
		if err != nil {
			return Reserves{}, fmt.Errorf("%w: %v", domain.ErrDecodeAccount, err)
		}
		amounts[i] = ta.Amount
	}

	if inputMint == pool.BaseMint {
		return Reserves{In: amounts[0], Out: amounts[1]}, nil
	}
	return Reserves{In: amounts[1], Out: amounts[0]}, nil
}

// Quote implements Adapter with constant-product pricing over live reserves.
func (a *RaydiumAdapter) Quote(ctx context.Context, req SwapRequest) (*Quote, error) {
	if req.Pool == "" {
		return nil, fmt.Errorf("raydium quote: %w", domain.ErrNoPool)
	}
	pool, err := a.Pool(ctx, req.Pool)
	if err != nil {
		return nil, err
	}
	res, err := a.Reserves(ctx, pool, req.InputMint)
	if err != nil {
		return nil, err
	}

	out := res.AmountOut(req.Amount)
	return &Quote{
		InputMint:  req.InputMint,
		OutputMint: req.OutputMint,
		InAmount:   req.Amount,
		OutAmount:  out,
		MinOut:     applySlippage(out, a.exec.slippage(req)),
	}, nil
}

// Execute implements Adapter by routing through Raydium venues only.
func (a *RaydiumAdapter) Execute(ctx context.Context, req SwapRequest) (*Execution, error) {
	return a.exec.swap(ctx, req, []string{raydiumRouteLabel})
}

// Received implements Adapter: the owner's gain in the bought mint.
func (a *RaydiumAdapter) Received(_ context.Context, tx *solana.Transaction, to domain.Leg, owner string) (decimal.Decimal, error) {
	delta := TradeSize(tx, domain.NativeMint, to.Mint, owner)
	got := delta.MoreAmount
	if delta.MoreMint != to.Mint {
		got = delta.LessAmount
	}
	if !got.IsPositive() {
		return decimal.Zero, fmt.Errorf("no %s received: %w", to.Mint, domain.ErrMissingLeg)
	}
	return got, nil
}

// Proceeds implements Adapter: the native amount that left the pool
// authority's vault. The operator's temporary wrapped-SOL account is closed
// in the same transaction, so its own balance is not observable.
func (a *RaydiumAdapter) Proceeds(_ context.Context, tx *solana.Transaction, pos domain.Position, _ string) (decimal.Decimal, error) {
	delta := TradeSize(tx, domain.NativeMint, pos.Mint, RaydiumAuthority)
	if delta.LessMint != domain.NativeMint || !delta.LessAmount.IsNegative() {
		return decimal.Zero, fmt.Errorf("no native outflow from pool: %w", domain.ErrMissingLeg)
	}
	return delta.LessAmount.Abs(), nil
}

// ExitValue implements Adapter: lamports for the full position at current
// reserves.
func (a *RaydiumAdapter) ExitValue(ctx context.Context, pos domain.Position) (uint64, error) {
	if pos.Pool == nil {
		return 0, fmt.Errorf("position %s: %w", pos.Mint, domain.ErrNoPool)
	}
	pool, err := a.Pool(ctx, *pos.Pool)
	if err != nil {
		return 0, err
	}
	res, err := a.Reserves(ctx, pool, pos.Mint)
	if err != nil {
		return 0, err
	}
	return res.AmountOut(pos.RawAmount()), nil
}
