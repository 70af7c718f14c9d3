package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"solana-copy-trader/internal/domain"
)

func TestEventReport(t *testing.T) {
	ev := &domain.SwapEvent{
		Signature: "5sig",
		Wallet:    "Wallet1",
		DEX:       domain.DEXRaydium,
		Type:      domain.SwapTypeBuy,
		From:      domain.Leg{Mint: domain.NativeMint, Amount: decimal.NewFromInt(2), Symbol: "SOL"},
		To:        domain.Leg{Mint: "m", Amount: decimal.NewFromInt(500), Symbol: "BONK"},
	}
	at := time.Date(2024, 1, 1, 9, 30, 5, 0, time.UTC)

	got := EventReport(ev, at)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "🟢 [BUY] 500 BONK ➡ 2 SOL [09:30:05]", lines[0])
	assert.Equal(t, "📍 DEX: Raydium", lines[1])
	assert.Equal(t, "📝 TX: https://solscan.io/tx/5sig", lines[2])
	assert.Equal(t, "🤵 Wallet: https://solscan.io/account/Wallet1", lines[3])

	ev.Type = domain.SwapTypeSwap
	assert.Contains(t, EventReport(ev, at), "[SWAP] 2 SOL ➡ 500 BONK")
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "🛒 ✅ BUY EXECUTED: Purchased 1234.5 BONK for 0.1 SOL",
		BuyExecuted(decimal.RequireFromString("0.1"), decimal.RequireFromString("1234.5"), "BONK"))
	assert.Equal(t, "🔴 SELL TRIGGERED: Sold 100% of BONK for 0.15 SOL (Profit: 49.93%)",
		SellTriggered(decimal.RequireFromString("0.15"), "BONK", decimal.RequireFromString("49.925")))
	assert.Equal(t, "⚠ Skipped Trade: Below Minimum Trade Size (0.01 SOL)", Skipped(decimal.RequireFromString("0.01")))
	assert.Contains(t, Circular(), "CIRCULAR ARBITRAGE")
	assert.Equal(t, "📭 No open positions", Positions(nil))
	assert.Contains(t, Positions([]domain.Position{{Mint: "m", Symbol: "BONK", Amount: decimal.NewFromInt(5), DEX: domain.DEXJupiter}}),
		"- 5 BONK (m) via Jupiter")
}

type failing struct{}

func (failing) Send(context.Context, string) error { return errors.New("down") }

func TestMulti(t *testing.T) {
	err := Multi{NewLogNotifier(zap.NewNop()), failing{}}.Send(context.Background(), "hi")
	assert.EqualError(t, err, "down")
	assert.NoError(t, Multi{}.Send(context.Background(), "hi"))
}

// botServer fakes the Telegram Bot API.
type botServer struct {
	*httptest.Server
	mu   sync.Mutex
	sent []sentMessage
}

type sentMessage struct {
	chatID string
	text   string
}

func newBotServer(t *testing.T) *botServer {
	s := &botServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"copy_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			s.mu.Lock()
			s.sent = append(s.sent, sentMessage{chatID: r.PostForm.Get("chat_id"), text: r.PostForm.Get("text")})
			s.mu.Unlock()
			fmt.Fprintf(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":%s,"type":"private"}}}`, r.PostForm.Get("chat_id"))
		default:
			fmt.Fprint(w, `{"ok":true,"result":[]}`)
		}
	}))
	return s
}

func (s *botServer) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

type staticPositions []domain.Position

func (p staticPositions) Snapshot() []domain.Position { return p }

func command(chatID int64, text string) tgbot.Update {
	name := strings.Fields(text)[0]
	return tgbot.Update{Message: &tgbot.Message{
		Chat:     &tgbot.Chat{ID: chatID, UserName: "alice"},
		Text:     text,
		Entities: []tgbot.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func TestTelegram_CommandsAndBroadcast(t *testing.T) {
	srv := newBotServer(t)
	defer srv.Close()

	subs := NewMemorySubscribers()
	positions := staticPositions{{Mint: "m", Symbol: "BONK", Amount: decimal.NewFromInt(5), DEX: domain.DEXRaydium}}
	tg, err := NewTelegram(TelegramConfig{Token: "T", ChatID: 100, Endpoint: srv.URL + "/bot%s/%s"}, subs, positions, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	tg.handleUpdate(ctx, command(200, "/start"))
	tg.handleUpdate(ctx, command(100, "/start"))
	tg.handleUpdate(ctx, command(200, "/positions"))
	tg.handleUpdate(ctx, tgbot.Update{Message: &tgbot.Message{Chat: &tgbot.Chat{ID: 200}, Text: "hello"}})

	list, err := subs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].Username)

	msgs := srv.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "200", msgs[0].chatID)
	assert.Contains(t, msgs[0].text, "Wallet Tracker")
	assert.Contains(t, msgs[2].text, "BONK")

	require.NoError(t, tg.Send(ctx, "report"))
	msgs = srv.messages()[3:]
	require.Len(t, msgs, 2, "configured chat is not duplicated")
	assert.Equal(t, "100", msgs[0].chatID)
	assert.Equal(t, "200", msgs[1].chatID)
	assert.Equal(t, "report", msgs[1].text)
}

func TestNewTelegram_RequiresToken(t *testing.T) {
	_, err := NewTelegram(TelegramConfig{}, nil, nil, nil)
	assert.Error(t, err)
}
