package solana

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// RPCClient defines the Solana RPC HTTP interface used by the engine.
type RPCClient interface {
	// GetTransaction retrieves a jsonParsed transaction by signature.
	// Returns (nil, nil) when the transaction is not (yet) visible.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves a single account. Returns (nil, nil) if absent.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetMultipleAccounts retrieves accounts in request order. Missing
	// accounts are nil entries.
	GetMultipleAccounts(ctx context.Context, pubkeys []string) ([]*AccountInfo, error)

	// SendTransaction broadcasts a signed, base64-encoded transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)
}

// Transaction represents a confirmed Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// Failed reports whether the transaction errored on-chain.
func (t *Transaction) Failed() bool {
	return t.Meta != nil && t.Meta.Err != nil
}

// Instructions returns the top-level instructions, or nil.
func (t *Transaction) Instructions() []Instruction {
	if t.Message == nil {
		return nil
	}
	return t.Message.Instructions
}

// InnerInstructions returns the inner instruction sets, or nil.
func (t *Transaction) InnerInstructions() []InnerInstructions {
	if t.Meta == nil {
		return nil
	}
	return t.Meta.InnerInstructions
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	Fee               uint64
	LogMessages       []string
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	InnerInstructions []InnerInstructions
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []Instruction
}

// Instruction is a top-level or inner instruction. Parsed is set only for
// programs the RPC node knows how to decode.
type Instruction struct {
	ProgramID string
	Accounts  []string
	Data      string
	Parsed    *ParsedInstruction
}

// IsTokenTransfer reports whether the instruction is an SPL token
// transfer or transferChecked.
func (i Instruction) IsTokenTransfer() bool {
	if i.Parsed == nil {
		return false
	}
	if i.ProgramID != TokenProgramID && i.ProgramID != Token2022ProgramID {
		return false
	}
	return i.Parsed.Type == "transfer" || i.Parsed.Type == "transferChecked"
}

// ParsedInstruction is the RPC node's decoding of an instruction.
type ParsedInstruction struct {
	Type string
	Info ParsedInfo
}

// ParsedInfo holds the fields of a parsed token instruction.
type ParsedInfo struct {
	Source      string
	Destination string
	Authority   string
	Mint        string
	Amount      string // raw amount for transfer
	TokenAmount *UITokenAmount
}

// RawAmount returns the transferred base-unit amount as a string.
func (p ParsedInfo) RawAmount() string {
	if p.TokenAmount != nil {
		return p.TokenAmount.Amount
	}
	return p.Amount
}

// InnerInstructions groups the inner instructions of one top-level instruction.
type InnerInstructions struct {
	Index        int
	Instructions []Instruction
}

// TokenBalance is a pre/post token balance entry.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       UITokenAmount
}

// UITokenAmount carries a raw amount and its decimals.
type UITokenAmount struct {
	Amount   string `json:"amount"`
	Decimals int    `json:"decimals"`
}

// UIAmount returns the amount scaled by decimals. Unparseable amounts are zero.
func (a UITokenAmount) UIAmount() decimal.Decimal {
	raw, err := decimal.NewFromString(a.Amount)
	if err != nil {
		return decimal.Zero
	}
	return raw.Shift(-int32(a.Decimals))
}

// AccountInfo represents Solana account information with decoded data.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte
	Executable bool
}

// LogsMention reports whether any log line invokes programID.
func LogsMention(logs []string, programID string) bool {
	for _, line := range logs {
		if strings.Contains(line, programID) {
			return true
		}
	}
	return false
}

// decodeParsed returns nil when "parsed" is not an object (some programs emit a string).
func decodeParsed(raw json.RawMessage) *ParsedInstruction {
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var p struct {
		Type string `json:"type"`
		Info struct {
			Source      string         `json:"source"`
			Destination string         `json:"destination"`
			Authority   string         `json:"authority"`
			Mint        string         `json:"mint"`
			Amount      string         `json:"amount"`
			TokenAmount *UITokenAmount `json:"tokenAmount"`
		} `json:"info"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	return &ParsedInstruction{
		Type: p.Type,
		Info: ParsedInfo{
			Source:      p.Info.Source,
			Destination: p.Info.Destination,
			Authority:   p.Info.Authority,
			Mint:        p.Info.Mint,
			Amount:      p.Info.Amount,
			TokenAmount: p.Info.TokenAmount,
		},
	}
}
