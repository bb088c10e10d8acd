package logger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sukalov/geniusbot/internal/utils"
)

var (
	mu        sync.RWMutex
	console   = zap.NewNop()
	channelID int64
	botClient BotClient
)

// BotClient is the operator channel the log lines are mirrored to.
type BotClient interface {
	SendMessage(chatID int64, text string) error
}

// Init builds the console logger for the given level ("debug" selects the development encoder).
func Init(level string) error {
	var cfg zap.Config
	if strings.EqualFold(level, "debug") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	mu.Lock()
	console = l
	mu.Unlock()
	return nil
}

// SetLogger replaces the console logger; tests use zaptest/observer loggers here.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	console = l
}

// AttachChannel mirrors log lines to a Telegram channel.
func AttachChannel(client BotClient, chatID int64) {
	mu.Lock()
	defer mu.Unlock()
	botClient = client
	channelID = chatID
}

func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return console
}

func Sync() {
	_ = L().Sync()
}

func Info(message string, fields ...zap.Field) {
	L().Info(message, fields...)
	sendLog("ℹ️ INFO", message, fields)
}

func Error(message string, fields ...zap.Field) {
	L().Error(message, fields...)
	sendLog("❌ ERROR", message, fields)
}

// Debug never goes to the channel.
func Debug(message string, fields ...zap.Field) {
	L().Debug(message, fields...)
}

func Success(message string, fields ...zap.Field) {
	L().Info(message, append(fields, zap.Bool("success", true))...)
	sendLog("✅ SUCCESS", message, fields)
}

func Warn(message string, fields ...zap.Field) {
	L().Warn(message, fields...)
}

func sendLog(prefix, message string, fields []zap.Field) {
	mu.RLock()
	client, chatID := botClient, channelID
	mu.RUnlock()

	if client == nil {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n%s", utils.FormatTimestamp(time.Now()), prefix, message)
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	for k, v := range enc.Fields {
		fmt.Fprintf(&b, "\n%s: %v", k, v)
	}
	logMessage := b.String()

	go func() {
		if err := client.SendMessage(chatID, logMessage); err != nil {
			fmt.Printf("Failed to send log to channel: %v\nLog was: %s\n", err, logMessage)
		}
	}()
}

// LogWithErr logs message at info level, or at error level with err attached.
func LogWithErr(message string, err error, fields ...zap.Field) {
	if err == nil {
		Info(message, fields...)
		return
	}
	Error(message, append(fields, zap.Error(err))...)
}
