package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"solana-copy-trader/internal/domain"
)

const solscan = "https://solscan.io"

// EventReport describes a monitored swap of the target wallet.
func EventReport(ev *domain.SwapEvent, at time.Time) string {
	var b strings.Builder
	ts := at.Format("15:04:05")
	switch ev.Type {
	case domain.SwapTypeBuy:
		fmt.Fprintf(&b, "🟢 [BUY] %s %s ➡ %s SOL [%s]\n", ev.To.Amount, ev.To.Symbol, ev.From.Amount, ts)
	case domain.SwapTypeSell:
		fmt.Fprintf(&b, "🔴 [SELL] %s %s ➡ %s SOL [%s]\n", ev.From.Amount, ev.From.Symbol, ev.To.Amount, ts)
	default:
		fmt.Fprintf(&b, "⚪ [SWAP] %s %s ➡ %s %s [%s]\n", ev.From.Amount, ev.From.Symbol, ev.To.Amount, ev.To.Symbol, ts)
	}
	fmt.Fprintf(&b, "📍 DEX: %s\n", ev.DEX)
	fmt.Fprintf(&b, "📝 TX: %s/tx/%s\n", solscan, ev.Signature)
	fmt.Fprintf(&b, "🤵 Wallet: %s/account/%s", solscan, ev.Wallet)
	return b.String()
}

// BuyExecuted reports a completed mirrored buy.
func BuyExecuted(sol, tokens decimal.Decimal, symbol string) string {
	return fmt.Sprintf("🛒 ✅ BUY EXECUTED: Purchased %s %s for %s SOL", tokens, symbol, sol)
}

// SellTriggered reports a completed mirrored sell.
func SellTriggered(sol decimal.Decimal, symbol string, profit decimal.Decimal) string {
	return fmt.Sprintf("🔴 SELL TRIGGERED: Sold 100%% of %s for %s SOL (Profit: %s%%)", symbol, sol, profit.StringFixed(2))
}

// Circular reports a swap whose legs share a mint.
func Circular() string {
	return "🔄 CIRCULAR ARBITRAGE: Input and Output mint are same."
}

// Skipped reports a swap below the minimum mirrored size.
func Skipped(sol decimal.Decimal) string {
	return fmt.Sprintf("⚠ Skipped Trade: Below Minimum Trade Size (%s SOL)", sol)
}

// Failure reports a failed mirrored trade.
func Failure(msg string) string {
	return "❌ ERROR: " + msg
}

// Positions lists open positions.
func Positions(positions []domain.Position) string {
	if len(positions) == 0 {
		return "📭 No open positions"
	}
	var b strings.Builder
	b.WriteString("📊 Open positions:")
	for _, p := range positions {
		fmt.Fprintf(&b, "\n- %s %s (%s) via %s since %s",
			p.Amount, p.Symbol, p.Mint, p.DEX, p.OpenedAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}
