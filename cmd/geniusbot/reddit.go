package main

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sukalov/geniusbot/internal/dispatcher"
	"github.com/sukalov/geniusbot/internal/logger"
	"github.com/sukalov/geniusbot/internal/reddit"
)

// redditSession authenticates on every connect, so a failed login is retried by the supervisor
// like any other stream failure. Replies go through the latest client.
type redditSession struct {
	cfg reddit.Config

	mu        sync.Mutex
	client    *reddit.Client
	confirmed bool
}

func newRedditSession(cfg reddit.Config) *redditSession {
	return &redditSession{cfg: cfg}
}

func (s *redditSession) Connect(ctx context.Context) (dispatcher.Stream, error) {
	client, err := reddit.New(ctx, s.cfg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.client = client
	confirmed := s.confirmed
	s.confirmed = true
	s.mu.Unlock()

	if !confirmed {
		if me, err := client.Me(ctx); err != nil {
			logger.Warn("failed to confirm reddit account", zap.Error(err))
		} else {
			logger.Info("authenticated on reddit", zap.String("account", me))
		}
	}
	return client, nil
}

func (s *redditSession) Reply(ctx context.Context, commentID, text string) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client == nil {
		return fmt.Errorf("reply to %s: %w", commentID, reddit.ErrUnavailable)
	}
	return client.Reply(ctx, commentID, text)
}
