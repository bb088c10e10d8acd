package main

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sukalov/geniusbot/internal/config"
	"github.com/sukalov/geniusbot/internal/db"
	"github.com/sukalov/geniusbot/internal/logger"
	"github.com/sukalov/geniusbot/internal/redis"
)

// Ledger is the dedup store as the bot and its operator commands see it.
type Ledger interface {
	Has(ctx context.Context, id string) (bool, error)
	Add(ctx context.Context, id string) error
	Flush(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

// openLedger picks the backend from the URL scheme: redis:// and rediss:// use a Redis set,
// anything else goes to SQL (libsql for remote Turso URLs, SQLite for local files).
func openLedger(ctx context.Context, cfg config.LedgerConfig) (Ledger, error) {
	if isRedisURL(cfg.URL) {
		ledger, err := redis.NewLedger(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		logger.Info("using redis ledger")
		return ledger, nil
	}

	database, err := db.Open(ctx, cfg.URL, cfg.AuthToken)
	if err != nil {
		return nil, err
	}
	ledger, err := db.NewLedger(ctx, database)
	if err != nil {
		database.Close()
		return nil, err
	}
	logger.Info("using sql ledger", zap.String("url", redactURL(cfg.URL)))
	return ledger, nil
}

func isRedisURL(url string) bool {
	return strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://")
}

func redactURL(url string) string {
	if i := strings.Index(url, "?"); i >= 0 {
		return url[:i]
	}
	return url
}
