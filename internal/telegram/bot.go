// Package telegram runs the operator bot: log channel delivery and admin commands.
package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/sukalov/geniusbot/internal/logger"
)

// Messenger is what handlers use to answer.
type Messenger interface {
	SendMessage(chatID int64, text string) error
	SendMessageWithMarkdown(chatID int64, text string, disableLinks bool) error
	SendMessageWithButtons(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error
}

// HandlerFunc handles one update.
type HandlerFunc func(m Messenger, update tgbotapi.Update) error

// Handlers routes updates by command name and callback data.
type Handlers struct {
	Commands  map[string]HandlerFunc
	Messages  []HandlerFunc
	Callbacks map[string]HandlerFunc
}

// Bot represents a configurable Telegram bot
type Bot struct {
	Client *tgbotapi.BotAPI
	name   string
	mu     sync.Mutex
}

// New creates a new bot instance
func New(name, token string) (*Bot, error) {
	botClient, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &Bot{
		Client: botClient,
		name:   name,
	}, nil
}

// Start processes updates until ctx is done.
func (b *Bot) Start(ctx context.Context, handlers Handlers) {
	logger.Info("telegram bot authorized", zap.String("bot", b.name), zap.String("account", b.Client.Self.UserName))

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.Client.GetUpdatesChan(updateConfig)
	defer b.Client.StopReceivingUpdates()

	for {
		select {
		case update := <-updates:
			go Dispatch(b, handlers, update)
		case <-ctx.Done():
			return
		}
	}
}

// Dispatch routes one update to its handler.
func Dispatch(m Messenger, handlers Handlers, update tgbotapi.Update) {
	if update.Message != nil && update.Message.IsCommand() {
		if handler, exists := handlers.Commands[update.Message.Command()]; exists {
			if err := handler(m, update); err != nil {
				logger.Error("command handler error", zap.String("command", update.Message.Command()), zap.Error(err))
			}
			return
		}
	}

	if update.CallbackQuery != nil {
		if handler, exists := handlers.Callbacks[update.CallbackQuery.Data]; exists {
			if err := handler(m, update); err != nil {
				logger.Error("callback handler error", zap.String("data", update.CallbackQuery.Data), zap.Error(err))
			}
			return
		}
	}

	for _, handler := range handlers.Messages {
		if err := handler(m, update); err != nil {
			logger.Error("message handler error", zap.Error(err))
		}
	}
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.send(msg)
	return err
}

func (b *Bot) SendMessageWithMarkdown(chatID int64, text string, disableLinks bool) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = disableLinks
	_, err := b.send(msg)
	return err
}

func (b *Bot) SendMessageWithButtons(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := b.send(msg)
	return err
}

func (b *Bot) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Client.Send(c)
}
