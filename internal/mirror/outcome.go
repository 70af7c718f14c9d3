package mirror

import (
	"github.com/shopspring/decimal"

	"solana-copy-trader/internal/domain"
)

// OutcomeKind classifies what Handle or Exit did with an event.
type OutcomeKind string

const (
	OutcomeBought       OutcomeKind = "bought"
	OutcomeSold         OutcomeKind = "sold"
	OutcomeBelowMinimum OutcomeKind = "below_minimum"
	OutcomeCircular     OutcomeKind = "circular"
	OutcomeIgnored      OutcomeKind = "ignored" // Swap events are not mirrored
	OutcomeAlreadyHeld  OutcomeKind = "already_held"
	OutcomeNotHeld      OutcomeKind = "not_held"
	OutcomeFailed       OutcomeKind = "failed"
)

// Outcome is the result of mirroring one event.
type Outcome struct {
	Kind OutcomeKind
	// Signature of the operator's executed swap, when one was sent.
	Signature string
	// Position opened by a buy or closed by a sell.
	Position domain.Position
	// Proceeds and Profit (percent) of a sell. Both are zero when the sell
	// landed but its proceeds could not be measured.
	Proceeds decimal.Decimal
	Profit   decimal.Decimal
	Err      error
}
