package domain

import "time"

// Audit actions.
const (
	AuditBuy         = "Buy"
	AuditSell        = "Sell"
	AuditSwap        = "Swap"
	AuditSkipped     = "Skipped"
	AuditCircular    = "Circular"
	AuditBuySuccess  = "Buy Success"
	AuditSellSuccess = "Sell Success"
	AuditBuyFailed   = "Buy Failed"
	AuditSellFailed  = "Sell Failed"
	AuditError       = "Error"
)

// AuditEntry is one append-only trade log record.
type AuditEntry struct {
	ID        string
	Timestamp time.Time
	Action    string
	Wallet    string
	DEX       DEX
	Token     string
	Amount    string
	Reason    string
}
