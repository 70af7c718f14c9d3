package dex

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"solana-copy-trader/internal/domain"
	"solana-copy-trader/internal/solana"
)

// JupiterProgramID is the Jupiter v6 aggregator program.
const JupiterProgramID = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"

// Transfer is an SPL token transfer executed inside an aggregator route.
type Transfer struct {
	Source      string
	Destination string
	Authority   string
	Amount      decimal.Decimal // base units
}

// JupiterAdapter classifies aggregator swaps by tracing token transfers.
type JupiterAdapter struct {
	rpc  solana.RPCClient
	exec *Executor
}

// NewJupiterAdapter creates the aggregator adapter.
func NewJupiterAdapter(rpc solana.RPCClient, exec *Executor) *JupiterAdapter {
	return &JupiterAdapter{rpc: rpc, exec: exec}
}

// DEX implements Adapter.
func (a *JupiterAdapter) DEX() domain.DEX { return domain.DEXJupiter }

// Detect implements Adapter.
func (a *JupiterAdapter) Detect(logs []string) bool {
	return solana.LogsMention(logs, JupiterProgramID)
}

// Transfers returns the canonical input and output transfers of the route:
// the first token transfer, and the last one unless the monitored wallet
// authorized it (a fee or wrap step), in which case the one before it.
func Transfers(tx *solana.Transaction, monitored string) (in, out Transfer, err error) {
	first, last := -1, -1
	for i, ix := range tx.Instructions() {
		if ix.ProgramID != JupiterProgramID {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return Transfer{}, Transfer{}, fmt.Errorf("no aggregator instruction: %w", domain.ErrInsufficientTransfers)
	}

	var transfers []Transfer
	for _, set := range tx.InnerInstructions() {
		if set.Index < first || set.Index > last {
			continue
		}
		for _, ix := range set.Instructions {
			if !ix.IsTokenTransfer() {
				continue
			}
			amount, perr := decimal.NewFromString(ix.Parsed.Info.RawAmount())
			if perr != nil {
				continue
			}
			transfers = append(transfers, Transfer{
				Source:      ix.Parsed.Info.Source,
				Destination: ix.Parsed.Info.Destination,
				Authority:   ix.Parsed.Info.Authority,
				Amount:      amount,
			})
		}
	}

	if len(transfers) < 2 {
		return Transfer{}, Transfer{}, fmt.Errorf("found %d: %w", len(transfers), domain.ErrInsufficientTransfers)
	}

	out = transfers[len(transfers)-1]
	if out.Authority == monitored {
		out = transfers[len(transfers)-2]
	}
	return transfers[0], out, nil
}

// Classify implements Adapter.
func (a *JupiterAdapter) Classify(ctx context.Context, tx *solana.Transaction, wallet string) (*Trade, error) {
	in, out, err := Transfers(tx, wallet)
	if err != nil {
		return nil, domain.NewClassificationError(tx.Signature, "jupiter transfers", err)
	}

	inMint, err := a.transferMint(ctx, in)
	if err != nil {
		return nil, a.classifyErr(tx.Signature, "input mint", err)
	}
	outMint, err := a.transferMint(ctx, out)
	if err != nil {
		return nil, a.classifyErr(tx.Signature, "output mint", err)
	}

	trade := &Trade{
		Type: domain.SwapTypeSwap,
		From: TradeLeg{Mint: inMint, Amount: in.Amount},
		To:   TradeLeg{Mint: outMint, Amount: out.Amount},
	}
	switch {
	case domain.IsNative(inMint):
		trade.Type = domain.SwapTypeBuy
	case domain.IsNative(outMint):
		trade.Type = domain.SwapTypeSell
	}
	return trade, nil
}

func (a *JupiterAdapter) classifyErr(sig, reason string, err error) error {
	if domain.IsExternalCallError(err) {
		return err
	}
	return domain.NewClassificationError(sig, reason, err)
}

// transferMint reads the mint from the transfer's source token account,
// falling back to the destination when the source was closed in the same
// transaction.
func (a *JupiterAdapter) transferMint(ctx context.Context, t Transfer) (string, error) {
	accounts, err := a.rpc.GetMultipleAccounts(ctx, []string{t.Source, t.Destination})
	if err != nil {
		return "", domain.NewExternalCallError("get token accounts", err)
	}
	for _, acct := range accounts {
		if acct == nil {
			continue
		}
		ta, err := solana.DecodeTokenAccount(acct.Data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrDecodeAccount, err)
		}
		return ta.Mint.String(), nil
	}
	return "", fmt.Errorf("token accounts %s/%s: %w", t.Source, t.Destination, domain.ErrNotFound)
}

// Quote implements Adapter.
func (a *JupiterAdapter) Quote(ctx context.Context, req SwapRequest) (*Quote, error) {
	q, err := a.exec.quote(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	return &Quote{
		InputMint:  req.InputMint,
		OutputMint: req.OutputMint,
		InAmount:   q.InAmount,
		OutAmount:  q.OutAmount,
		MinOut:     q.OtherAmountThreshold,
	}, nil
}

// Execute implements Adapter.
func (a *JupiterAdapter) Execute(ctx context.Context, req SwapRequest) (*Execution, error) {
	return a.exec.swap(ctx, req, nil)
}

// Received implements Adapter: the output transfer of the operator's route.
func (a *JupiterAdapter) Received(_ context.Context, tx *solana.Transaction, to domain.Leg, owner string) (decimal.Decimal, error) {
	_, out, err := Transfers(tx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return out.Amount.Shift(-int32(to.Decimals)), nil
}

// Proceeds implements Adapter. The output leg of a sell is the native asset.
func (a *JupiterAdapter) Proceeds(_ context.Context, tx *solana.Transaction, _ domain.Position, owner string) (decimal.Decimal, error) {
	_, out, err := Transfers(tx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return out.Amount.Shift(-domain.NativeDecimals), nil
}

// ExitValue implements Adapter using a sell quote.
func (a *JupiterAdapter) ExitValue(ctx context.Context, pos domain.Position) (uint64, error) {
	q, err := a.Quote(ctx, SwapRequest{
		InputMint:  pos.Mint,
		OutputMint: domain.NativeMint,
		Amount:     pos.RawAmount(),
	})
	if err != nil {
		return 0, err
	}
	return q.OutAmount, nil
}
