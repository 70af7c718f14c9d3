package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"solana-copy-trader/internal/domain"
)

const startText = "Solana Copy Trader | Wallet Tracker\n\n" +
	"This bot mirrors the swaps of a tracked Solana wallet. " +
	"You will receive a notification for every detected trade and every mirrored buy or sell.\n\n" +
	"/positions lists the open positions."

// Subscriber is a chat registered through /start.
type Subscriber struct {
	ChatID   int64
	Username string
}

// SubscriberStore persists chats that receive reports.
type SubscriberStore interface {
	Add(ctx context.Context, s Subscriber) error
	List(ctx context.Context) ([]Subscriber, error)
}

// PositionSource lists open positions for /positions.
type PositionSource interface {
	Snapshot() []domain.Position
}

// TelegramConfig configures the Telegram notifier.
type TelegramConfig struct {
	Token string
	// ChatID, when non-zero, always receives reports.
	ChatID int64
	// Endpoint overrides the Bot API endpoint format.
	Endpoint string
}

// Telegram sends reports through a Telegram bot and answers /start and
// /positions.
type Telegram struct {
	bot       *tgbot.BotAPI
	chatID    int64
	subs      SubscriberStore
	positions PositionSource
	logger    *zap.Logger

	wg sync.WaitGroup
}

// NewTelegram connects to the Bot API.
func NewTelegram(cfg TelegramConfig, subs SubscriberStore, positions PositionSource, logger *zap.Logger) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: empty token")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbot.APIEndpoint
	}
	b, err := tgbot.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if subs == nil {
		subs = NewMemorySubscribers()
	}
	return &Telegram{
		bot:       b,
		chatID:    cfg.ChatID,
		subs:      subs,
		positions: positions,
		logger:    logger.Named("telegram"),
	}, nil
}

// Send implements Notifier.
func (t *Telegram) Send(ctx context.Context, msg string) error {
	chats, err := t.chats(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range chats {
		if _, err := t.bot.Send(tgbot.NewMessage(id, msg)); err != nil {
			errs = append(errs, fmt.Errorf("telegram: send to %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Telegram) chats(ctx context.Context) ([]int64, error) {
	subs, err := t.subs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("telegram: list subscribers: %w", err)
	}
	seen := make(map[int64]bool, len(subs)+1)
	var out []int64
	if t.chatID != 0 {
		seen[t.chatID] = true
		out = append(out, t.chatID)
	}
	for _, s := range subs {
		if !seen[s.ChatID] {
			seen[s.ChatID] = true
			out = append(out, s.ChatID)
		}
	}
	return out, nil
}

// Start begins polling for commands.
func (t *Telegram) Start(ctx context.Context) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for update := range updates {
			t.handleUpdate(ctx, update)
		}
	}()
}

// Stop ends polling.
func (t *Telegram) Stop() {
	t.bot.StopReceivingUpdates()
	t.wg.Wait()
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}

	chatID := msg.Chat.ID
	var err error
	switch msg.Command() {
	case "start":
		err = t.handleStart(ctx, chatID, msg.Chat.UserName)
	case "positions":
		err = t.reply(chatID, t.positionsText())
	}
	if err != nil {
		t.logger.Error("command failed",
			zap.String("command", msg.Command()),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

func (t *Telegram) handleStart(ctx context.Context, chatID int64, username string) error {
	if err := t.subs.Add(ctx, Subscriber{ChatID: chatID, Username: username}); err != nil {
		return err
	}
	return t.reply(chatID, startText)
}

func (t *Telegram) positionsText() string {
	if t.positions == nil {
		return Positions(nil)
	}
	return Positions(t.positions.Snapshot())
}

func (t *Telegram) reply(chatID int64, text string) error {
	_, err := t.bot.Send(tgbot.NewMessage(chatID, text))
	return err
}

// MemorySubscribers is an in-process SubscriberStore.
type MemorySubscribers struct {
	mu   sync.Mutex
	subs map[int64]Subscriber
	ids  []int64
}

// NewMemorySubscribers creates an empty store.
func NewMemorySubscribers() *MemorySubscribers {
	return &MemorySubscribers{subs: make(map[int64]Subscriber)}
}

// Add implements SubscriberStore.
func (m *MemorySubscribers) Add(_ context.Context, s Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[s.ChatID]; !ok {
		m.ids = append(m.ids, s.ChatID)
	}
	m.subs[s.ChatID] = s
	return nil
}

// List implements SubscriberStore.
func (m *MemorySubscribers) List(_ context.Context) ([]Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Subscriber, 0, len(m.ids))
	for _, id := range m.ids {
		out = append(out, m.subs[id])
	}
	return out, nil
}
