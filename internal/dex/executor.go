package dex

import (
	"context"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"

	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/solana"
	"solana-copy-trader/internal/wallet"
)

// ExecutorConfig holds execution parameters shared by all adapters.
type ExecutorConfig struct {
	SlippageBps         int
	PriorityFeeLamports uint64
}

// Executor routes swaps through the Jupiter swap API, signs them with the
// operator key and broadcasts them over RPC.
type Executor struct {
	api    *JupiterAPI
	signer wallet.Signer
	rpc    solana.RPCClient
	cfg    ExecutorConfig
	logger *zap.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(api *JupiterAPI, signer wallet.Signer, rpc solana.RPCClient, cfg ExecutorConfig, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{api: api, signer: signer, rpc: rpc, cfg: cfg, logger: logger.Named("executor")}
}

func (e *Executor) slippage(req SwapRequest) int {
	if req.SlippageBps > 0 {
		return req.SlippageBps
	}
	return e.cfg.SlippageBps
}

// quote prices req, optionally restricted to dexes.
func (e *Executor) quote(ctx context.Context, req SwapRequest, dexes []string) (*QuoteResponse, error) {
	q, err := e.api.Quote(ctx, QuoteParams{
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		Amount:      req.Amount,
		SlippageBps: e.slippage(req),
		Dexes:       dexes,
	})
	if err != nil {
		return nil, domain.NewExternalCallError("quote", err)
	}
	return q, nil
}

// swap runs quote, build, sign and send. The returned signature is not yet
// confirmed; callers fetch the transaction to learn the outcome.
func (e *Executor) swap(ctx context.Context, req SwapRequest, dexes []string) (*Execution, error) {
	q, err := e.quote(ctx, req, dexes)
	if err != nil {
		return nil, err
	}

	unsigned, err := e.api.SwapTransaction(ctx, q, e.signer.PublicKey(), e.cfg.PriorityFeeLamports)
	if err != nil {
		return nil, domain.NewExternalCallError("build swap", err)
	}

	raw, err := base64.StdEncoding.DecodeString(unsigned)
	if err != nil {
		return nil, domain.NewExternalCallError("build swap", fmt.Errorf("decode transaction: %w", err))
	}
	signed, err := e.signer.SignTransaction(raw)
	if err != nil {
		return nil, domain.NewExternalCallError("sign swap", err)
	}

	sig, err := e.rpc.SendTransaction(ctx, base64.StdEncoding.EncodeToString(signed))
	if err != nil {
		return nil, domain.NewExternalCallError("send swap", err)
	}

	e.logger.Info("swap sent",
		zap.String("signature", sig),
		zap.String("input", req.InputMint),
		zap.String("output", req.OutputMint),
		zap.Uint64("amount", req.Amount),
		zap.Uint64("expected_out", q.OutAmount),
		zap.Strings("dexes", dexes))
	return &Execution{Signature: sig, ExpectedOut: q.OutAmount}, nil
}
