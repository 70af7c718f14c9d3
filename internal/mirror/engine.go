// Package mirror replicates the target wallet's buys and sells with the
// operator's funds and owns the shared position close path.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-copy-trader/internal/dex"
	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/ledger"
	"solana-copy-trader/internal/notify"
	"solana-copy-trader/internal/observability"
	"solana-copy-trader/internal/solana"
)

// Audit reasons.
const (
	ReasonMonitored  = "Monitored new transaction"
	ReasonBelowMin   = "Below minimum trade size"
	ReasonCircular   = "Input and Output mint are same"
	ReasonCopiedBuy  = "Succeed copying buy."
	ReasonCopiedSell = "Succeed copying sell."
	ReasonAutoSell   = "Auto sell triggered"
)

// Auditor receives trade log entries. Recording must not block.
type Auditor interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

// Config holds the mirroring parameters.
type Config struct {
	// TradeAmountLamports is the fixed native amount spent per mirrored buy.
	TradeAmountLamports uint64
	// MinTargetTradeLamports is the smallest target trade that is mirrored.
	MinTargetTradeLamports uint64
	// Operator is the public key of the wallet that executes mirrored swaps.
	Operator string
	// Fetch controls how executed transactions are awaited.
	Fetch solana.FetchPolicy
}

// Engine applies swap events to the ledger.
type Engine struct {
	cfg      Config
	ledger   *ledger.Ledger
	registry *dex.Registry
	rpc      solana.RPCClient
	notifier notify.Notifier
	audit    Auditor
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the report channel.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithAuditor sets the trade log.
func WithAuditor(a Auditor) Option {
	return func(e *Engine) { e.audit = a }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine.
func New(cfg Config, l *ledger.Ledger, registry *dex.Registry, rpc solana.RPCClient, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Fetch.Attempts <= 0 {
		cfg.Fetch = solana.DefaultFetchPolicy()
	}
	e := &Engine{
		cfg:      cfg,
		ledger:   l,
		registry: registry,
		rpc:      rpc,
		notifier: notify.Multi{},
		audit:    nopAuditor{},
		logger:   logger.Named("mirror"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the engine's position ledger.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Handle mirrors ev. Events are independent: Handle may be called
// concurrently, and ledger updates for one mint are serialized by the
// ledger's claim/commit protocol.
func (e *Engine) Handle(ctx context.Context, ev *domain.SwapEvent) Outcome {
	e.record(ctx, string(ev.Type), ev, eventToken(ev), eventAmount(ev), ReasonMonitored)
	e.send(ctx, notify.EventReport(ev, e.now()))

	native := ev.NativeAmount()
	if !native.IsZero() && native.Shift(domain.NativeDecimals).LessThan(decimal.NewFromInt(int64(e.cfg.MinTargetTradeLamports))) {
		e.record(ctx, domain.AuditSkipped, ev, eventToken(ev), eventAmount(ev), ReasonBelowMin)
		e.send(ctx, notify.Skipped(native))
		e.metrics.RecordSkip("below_minimum")
		return Outcome{Kind: OutcomeBelowMinimum}
	}

	if ev.IsCircular() {
		e.record(ctx, domain.AuditCircular, ev, ev.From.Mint, "", ReasonCircular)
		e.send(ctx, notify.Circular())
		e.metrics.RecordSkip("circular")
		return Outcome{Kind: OutcomeCircular}
	}

	switch ev.Type {
	case domain.SwapTypeBuy:
		return e.buy(ctx, ev)
	case domain.SwapTypeSell:
		return e.sell(ctx, ev)
	default:
		e.metrics.RecordSkip("swap")
		return Outcome{Kind: OutcomeIgnored}
	}
}

func (e *Engine) buy(ctx context.Context, ev *domain.SwapEvent) Outcome {
	start := e.now()
	mint := ev.To.Mint

	if !e.ledger.Reserve(mint) {
		e.logger.Info("already holding mint, not buying again",
			zap.String("mint", mint),
			zap.String("signature", ev.Signature))
		e.metrics.RecordSkip("already_held")
		return Outcome{Kind: OutcomeAlreadyHeld}
	}

	pos, sig, err := e.executeBuy(ctx, ev)
	if err != nil {
		e.ledger.Release(mint)
		return e.failed(ctx, "buy", ev.DEX, mint, sig, err)
	}

	if err := e.ledger.Open(pos); err != nil {
		// Only possible if the reservation was lost.
		return e.failed(ctx, "buy", ev.DEX, mint, sig, err)
	}
	e.metrics.SetOpenPositions(e.ledger.Len())
	e.metrics.RecordTrade("buy", "success", e.now().Sub(start))

	tradeSOL := domain.LamportsToSOL(e.cfg.TradeAmountLamports)
	e.record(ctx, domain.AuditBuySuccess, ev, mint, pos.Amount.String(), ReasonCopiedBuy)
	e.send(ctx, notify.BuyExecuted(tradeSOL, pos.Amount, pos.Symbol))
	e.logger.Info("mirrored buy",
		zap.String("mint", mint),
		zap.String("symbol", pos.Symbol),
		zap.String("amount", pos.Amount.String()),
		zap.String("fee", pos.Fee.String()),
		zap.String("signature", sig))

	return Outcome{Kind: OutcomeBought, Signature: sig, Position: pos}
}

// executeBuy swaps the configured native amount into ev's output mint and
// measures what arrived. The returned signature is set once the swap was sent.
// An error means no tokens were bought; a confirmed swap whose output cannot
// be measured opens at the quoted output.
func (e *Engine) executeBuy(ctx context.Context, ev *domain.SwapEvent) (domain.Position, string, error) {
	adapter, err := e.registry.Get(ev.DEX)
	if err != nil {
		return domain.Position{}, "", err
	}
	req := dex.SwapRequest{
		InputMint:  domain.NativeMint,
		OutputMint: ev.To.Mint,
		Amount:     e.cfg.TradeAmountLamports,
	}
	if ev.Pool != nil {
		req.Pool = *ev.Pool
	}

	exec, err := adapter.Execute(ctx, req)
	if err != nil {
		return domain.Position{}, "", err
	}
	tx, err := e.confirmed(ctx, exec.Signature)
	if err != nil {
		return domain.Position{}, exec.Signature, err
	}

	// The swap landed. From here on the position exists even when the
	// received amount cannot be measured.
	received, err := adapter.Received(ctx, tx, ev.To, e.cfg.Operator)
	if err == nil && !received.IsPositive() {
		err = fmt.Errorf("measure received %s: %w", ev.To.Symbol, domain.ErrMissingLeg)
	}
	if err != nil {
		received = domain.FromBaseUnits(exec.ExpectedOut, ev.To.Decimals)
		e.unmeasured(ctx, "buy", ev.DEX, ev.To.Mint, exec.Signature, received, err)
	}

	return domain.Position{
		Mint:         ev.To.Mint,
		Amount:       received,
		Decimals:     ev.To.Decimals,
		Symbol:       ev.To.Symbol,
		DEX:          ev.DEX,
		Pool:         ev.Pool,
		Fee:          domain.LamportsToSOL(tx.Meta.Fee),
		BuySignature: exec.Signature,
		OpenedAt:     e.now(),
	}, exec.Signature, nil
}

func (e *Engine) sell(ctx context.Context, ev *domain.SwapEvent) Outcome {
	pos, ok := e.ledger.Claim(ev.From.Mint)
	if !ok {
		e.logger.Debug("sell of unheld mint",
			zap.String("mint", ev.From.Mint),
			zap.String("signature", ev.Signature))
		e.metrics.RecordSkip("not_held")
		return Outcome{Kind: OutcomeNotHeld}
	}
	if ev.Pool != nil {
		pos.Pool = ev.Pool
	}
	return e.closeClaimed(ctx, pos, ReasonCopiedSell)
}

// Exit sells the whole open position for mint through the same path as a
// mirrored sell. It returns OutcomeNotHeld when the position is gone or
// already being sold.
func (e *Engine) Exit(ctx context.Context, mint string) Outcome {
	pos, ok := e.ledger.Claim(mint)
	if !ok {
		return Outcome{Kind: OutcomeNotHeld}
	}
	return e.closeClaimed(ctx, pos, ReasonAutoSell)
}

// closeClaimed sells a claimed position. When the sell does not land the
// claim is returned and the position is left untouched. Once it lands the
// position is closed, even if the proceeds cannot be measured.
func (e *Engine) closeClaimed(ctx context.Context, pos domain.Position, reason string) Outcome {
	start := e.now()

	proceeds, measured, sig, err := e.executeSell(ctx, pos)
	if err != nil {
		e.ledger.Unclaim(pos.Mint)
		return e.failed(ctx, "sell", pos.DEX, pos.Mint, sig, err)
	}

	e.ledger.Close(pos.Mint)
	pos.Sold = true
	e.metrics.SetOpenPositions(e.ledger.Len())
	e.metrics.RecordTrade("sell", "success", e.now().Sub(start))

	var profit decimal.Decimal
	if measured {
		profit = Profit(proceeds, e.cfg.TradeAmountLamports, pos.Fee)
		e.metrics.RecordProfit(profit.InexactFloat64())
	}

	e.audit.Record(ctx, domain.AuditEntry{
		Action: domain.AuditSellSuccess,
		Wallet: e.cfg.Operator,
		DEX:    pos.DEX,
		Token:  pos.Mint,
		Amount: proceeds.String(),
		Reason: reason,
	})
	e.send(ctx, notify.SellTriggered(proceeds, pos.Symbol, profit))
	e.logger.Info("closed position",
		zap.String("mint", pos.Mint),
		zap.String("symbol", pos.Symbol),
		zap.String("proceeds", proceeds.String()),
		zap.String("profit_pct", profit.StringFixed(2)),
		zap.String("reason", reason),
		zap.String("signature", sig))

	return Outcome{Kind: OutcomeSold, Signature: sig, Position: pos, Proceeds: proceeds, Profit: profit}
}

// executeSell sells the whole position. An error means the position is still
// held. measured is false when the sell landed but its proceeds are unknown.
func (e *Engine) executeSell(ctx context.Context, pos domain.Position) (proceeds decimal.Decimal, measured bool, sig string, err error) {
	adapter, err := e.registry.Get(pos.DEX)
	if err != nil {
		return decimal.Zero, false, "", err
	}
	amount := pos.RawAmount()
	if amount == 0 {
		return decimal.Zero, false, "", fmt.Errorf("sell %s: empty position", pos.Mint)
	}

	exec, err := adapter.Execute(ctx, dex.SwapRequest{
		InputMint:  pos.Mint,
		OutputMint: domain.NativeMint,
		Amount:     amount,
		Pool:       pos.PoolAddress(),
	})
	if err != nil {
		return decimal.Zero, false, "", err
	}
	tx, err := e.confirmed(ctx, exec.Signature)
	if err != nil {
		return decimal.Zero, false, exec.Signature, err
	}
	proceeds, err = adapter.Proceeds(ctx, tx, pos, e.cfg.Operator)
	if err != nil {
		e.unmeasured(ctx, "sell", pos.DEX, pos.Mint, exec.Signature, decimal.Zero, err)
		return decimal.Zero, false, exec.Signature, nil
	}
	return proceeds, true, exec.Signature, nil
}

// confirmed waits for an executed transaction and checks it succeeded.
func (e *Engine) confirmed(ctx context.Context, signature string) (*solana.Transaction, error) {
	tx, err := solana.FetchTransaction(ctx, e.rpc, signature, e.cfg.Fetch)
	if err != nil {
		return nil, domain.NewExternalCallError("fetch executed transaction", err)
	}
	if tx.Failed() {
		return nil, fmt.Errorf("%s: %w", signature, domain.ErrFailedTransaction)
	}
	if tx.Meta == nil {
		return nil, fmt.Errorf("%s: missing meta: %w", signature, domain.ErrNotFound)
	}
	return tx, nil
}

func (e *Engine) failed(ctx context.Context, side string, d domain.DEX, mint, sig string, err error) Outcome {
	action, msg := domain.AuditBuyFailed, "Purchase failed"
	if side == "sell" {
		action, msg = domain.AuditSellFailed, "Sale failed"
	}

	var ext *domain.ExternalCallError
	if errors.As(err, &ext) {
		e.metrics.RecordExternalError(ext.Op)
	}
	e.metrics.RecordTrade(side, "failed", 0)

	e.logger.Error("mirrored trade failed",
		zap.String("side", side),
		zap.String("mint", mint),
		zap.String("signature", sig),
		zap.Error(err))
	e.audit.Record(ctx, domain.AuditEntry{
		Action: action,
		Wallet: e.cfg.Operator,
		DEX:    d,
		Token:  mint,
		Reason: err.Error(),
	})
	e.send(ctx, notify.Failure(fmt.Sprintf("%s: %v", msg, err)))
	return Outcome{Kind: OutcomeFailed, Signature: sig, Err: err}
}

// unmeasured reports a confirmed swap whose result could not be read from
// the transaction. assumed is the amount booked in its place.
func (e *Engine) unmeasured(ctx context.Context, side string, d domain.DEX, mint, sig string, assumed decimal.Decimal, err error) {
	var ext *domain.ExternalCallError
	if errors.As(err, &ext) {
		e.metrics.RecordExternalError(ext.Op)
	}
	e.logger.Error("confirmed swap could not be measured",
		zap.String("side", side),
		zap.String("mint", mint),
		zap.String("signature", sig),
		zap.String("assumed", assumed.String()),
		zap.Error(err))
	e.audit.Record(ctx, domain.AuditEntry{
		Action: domain.AuditError,
		Wallet: e.cfg.Operator,
		DEX:    d,
		Token:  mint,
		Amount: assumed.String(),
		Reason: fmt.Sprintf("%s %s confirmed but not measured: %v", side, sig, err),
	})
}

func (e *Engine) record(ctx context.Context, action string, ev *domain.SwapEvent, token, amount, reason string) {
	e.audit.Record(ctx, domain.AuditEntry{
		Action: action,
		Wallet: ev.Wallet,
		DEX:    ev.DEX,
		Token:  token,
		Amount: amount,
		Reason: reason,
	})
}

func (e *Engine) send(ctx context.Context, msg string) {
	if err := e.notifier.Send(ctx, msg); err != nil {
		e.logger.Warn("notification failed", zap.Error(err))
	}
}

// Profit returns the percentage gain of proceeds over the SOL spent on the
// buy including its network fee.
func Profit(proceeds decimal.Decimal, tradeLamports uint64, fee decimal.Decimal) decimal.Decimal {
	used := domain.LamportsToSOL(tradeLamports).Add(fee)
	if used.IsZero() {
		return decimal.Zero
	}
	return proceeds.Sub(used).Mul(decimal.NewFromInt(100)).Div(used)
}

func eventToken(ev *domain.SwapEvent) string {
	switch ev.Type {
	case domain.SwapTypeBuy:
		return ev.To.Mint
	case domain.SwapTypeSell:
		return ev.From.Mint
	default:
		return ev.From.Mint + ev.To.Mint
	}
}

func eventAmount(ev *domain.SwapEvent) string {
	if ev.Type == domain.SwapTypeSwap {
		return ""
	}
	return ev.NativeAmount().String()
}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, domain.AuditEntry) {}
