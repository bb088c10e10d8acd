package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sukalov/geniusbot/internal/dispatcher"
)

const (
	confirmFlush = "confirm_flush_ledger"
	abortFlush   = "abort_flush_ledger"

	maxMessageLength = 4096
)

// LedgerAdmin is the maintenance side of the dedup ledger.
type LedgerAdmin interface {
	Flush(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type StatsSource interface {
	Stats() dispatcher.Stats
}

type Previewer interface {
	Preview(ctx context.Context, args string) (string, error)
}

type CacheCounter interface {
	Count() (int, error)
}

// AdminHandlers serves the operator commands. Only listed usernames may use them.
type AdminHandlers struct {
	ledger  LedgerAdmin
	stats   StatsSource
	preview Previewer
	cache   CacheCounter
	admins  map[string]bool
	started time.Time

	mu             sync.Mutex
	flushPending   map[int64]bool
	awaitingLookup map[int64]bool
}

func NewAdminHandlers(ledger LedgerAdmin, stats StatsSource, preview Previewer, cache CacheCounter, adminUsernames []string) *AdminHandlers {
	admins := make(map[string]bool)
	for _, username := range adminUsernames {
		admins[strings.TrimPrefix(username, "@")] = true
	}

	return &AdminHandlers{
		ledger:         ledger,
		stats:          stats,
		preview:        preview,
		cache:          cache,
		admins:         admins,
		started:        time.Now(),
		flushPending:   make(map[int64]bool),
		awaitingLookup: make(map[int64]bool),
	}
}

// Handlers returns the routing table for the admin bot.
func (h *AdminHandlers) Handlers() Handlers {
	return Handlers{
		Commands: map[string]HandlerFunc{
			"start":        h.helpHandler,
			"help":         h.helpHandler,
			"stats":        h.statsHandler,
			"flush_ledger": h.flushLedgerHandler,
			"lookup":       h.lookupHandler,
		},
		Messages: []HandlerFunc{h.messageHandler},
		Callbacks: map[string]HandlerFunc{
			confirmFlush: h.confirmHandler,
			abortFlush:   h.abortHandler,
		},
	}
}

func (h *AdminHandlers) isAdmin(user *tgbotapi.User) bool {
	return user != nil && h.admins[user.UserName]
}

func (h *AdminHandlers) helpHandler(m Messenger, update tgbotapi.Update) error {
	return m.SendMessage(update.Message.Chat.ID,
		"/stats - counters and ledger size\n"+
			"/lookup - preview a reply without posting it\n"+
			"/flush_ledger - forget every answered comment")
}

func (h *AdminHandlers) statsHandler(m Messenger, update tgbotapi.Update) error {
	message := update.Message
	if !h.isAdmin(message.From) {
		return m.SendMessage(message.Chat.ID, "you are not an admin")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var b strings.Builder
	s := h.stats.Stats()
	fmt.Fprintf(&b, "*uptime:* %s\n", time.Since(h.started).Truncate(time.Second))
	fmt.Fprintf(&b, "*comments seen:* %d\n", s.Seen)
	fmt.Fprintf(&b, "*answered:* %d\n", s.Answered)
	fmt.Fprintf(&b, "*rejected:* %d\n", s.Rejected)
	fmt.Fprintf(&b, "*duplicates skipped:* %d\n", s.Duplicate)

	if n, err := h.ledger.Count(ctx); err != nil {
		fmt.Fprintf(&b, "*ledger:* error (%v)\n", err)
	} else {
		fmt.Fprintf(&b, "*ledger:* %d comments\n", n)
	}
	if n, err := h.cache.Count(); err != nil {
		fmt.Fprintf(&b, "*cache:* error (%v)", err)
	} else {
		fmt.Fprintf(&b, "*cache:* %d songs", n)
	}

	return m.SendMessageWithMarkdown(message.Chat.ID, b.String(), true)
}

func (h *AdminHandlers) flushLedgerHandler(m Messenger, update tgbotapi.Update) error {
	message := update.Message
	if !h.isAdmin(message.From) {
		return m.SendMessage(message.Chat.ID, "you are not an admin")
	}

	h.mu.Lock()
	h.flushPending[message.Chat.ID] = true
	h.mu.Unlock()

	return m.SendMessageWithButtons(message.Chat.ID,
		"every answered comment will be forgotten and may be answered again. sure?",
		tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("flush", confirmFlush),
				tgbotapi.NewInlineKeyboardButtonData("cancel", abortFlush),
			),
		),
	)
}

// takePending reports whether a flush was pending for the callback's chat and clears it.
func (h *AdminHandlers) takePending(update tgbotapi.Update) (int64, bool) {
	chatID := update.CallbackQuery.From.ID
	if update.CallbackQuery.Message != nil {
		chatID = update.CallbackQuery.Message.Chat.ID
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	pending := h.flushPending[chatID]
	delete(h.flushPending, chatID)
	return chatID, pending
}

func (h *AdminHandlers) confirmHandler(m Messenger, update tgbotapi.Update) error {
	if !h.isAdmin(update.CallbackQuery.From) {
		return m.SendMessage(update.CallbackQuery.From.ID, "you are not an admin")
	}

	chatID, pending := h.takePending(update)
	if !pending {
		return m.SendMessage(chatID, "this button no longer works")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := h.ledger.Flush(ctx)
	if err != nil {
		return m.SendMessage(chatID, fmt.Sprintf("flush failed: %v", err))
	}
	return m.SendMessage(chatID, fmt.Sprintf("ledger flushed, %d comments forgotten", removed))
}

func (h *AdminHandlers) abortHandler(m Messenger, update tgbotapi.Update) error {
	chatID, pending := h.takePending(update)
	if !pending {
		return m.SendMessage(chatID, "this button no longer works")
	}
	return m.SendMessage(chatID, "ok, cancelled")
}

func (h *AdminHandlers) lookupHandler(m Messenger, update tgbotapi.Update) error {
	message := update.Message
	if !h.isAdmin(message.From) {
		return m.SendMessage(message.Chat.ID, "you are not an admin")
	}

	if args := strings.TrimSpace(message.CommandArguments()); args != "" {
		return h.sendPreview(m, message.Chat.ID, args)
	}

	h.mu.Lock()
	h.awaitingLookup[message.Chat.ID] = true
	h.mu.Unlock()
	return m.SendMessage(message.Chat.ID, "send \"artist, song, view\" to preview the reply")
}

func (h *AdminHandlers) messageHandler(m Messenger, update tgbotapi.Update) error {
	if update.Message == nil {
		return nil
	}
	if !h.isAdmin(update.Message.From) {
		return nil
	}
	chatID := update.Message.Chat.ID
	if update.Message.IsCommand() {
		return m.SendMessage(chatID, "unknown command, see /help")
	}

	h.mu.Lock()
	awaiting := h.awaitingLookup[chatID]
	delete(h.awaitingLookup, chatID)
	h.mu.Unlock()

	if !awaiting {
		return m.SendMessage(chatID, "nothing to do. to preview a reply, send /lookup first")
	}
	return h.sendPreview(m, chatID, update.Message.Text)
}

func (h *AdminHandlers) sendPreview(m Messenger, chatID int64, args string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	text, err := h.preview.Preview(ctx, args)
	if err != nil {
		return m.SendMessage(chatID, fmt.Sprintf("no reply: %v", err))
	}
	for _, chunk := range splitMessage(text, maxMessageLength) {
		if err := m.SendMessage(chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

// splitMessage cuts text into pieces of at most limit runes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	return append(chunks, string(runes))
}
