package redis

import (
	"context"
	"fmt"

	redisClient "github.com/go-redis/redis/v8"
)

const answeredKey = "geniusbot:answered"

// Ledger keeps answered comment ids in a Redis set.
type Ledger struct {
	client *redisClient.Client
	key    string
}

// NewLedger connects to a redis:// or rediss:// URL.
func NewLedger(ctx context.Context, url string) (*Ledger, error) {
	opt, err := redisClient.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redisClient.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &Ledger{client: client, key: answeredKey}, nil
}

func (redis *Ledger) Has(ctx context.Context, id string) (bool, error) {
	ok, err := redis.client.SIsMember(ctx, redis.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check comment %s: %w", id, err)
	}
	return ok, nil
}

// Add marks id as answered; SADD ignores duplicates.
func (redis *Ledger) Add(ctx context.Context, id string) error {
	if err := redis.client.SAdd(ctx, redis.key, id).Err(); err != nil {
		return fmt.Errorf("failed to add comment %s: %w", id, err)
	}
	return nil
}

// Flush removes the whole set and returns how many ids it held.
func (redis *Ledger) Flush(ctx context.Context) (int64, error) {
	var card *redisClient.IntCmd
	_, err := redis.client.TxPipelined(ctx, func(pipe redisClient.Pipeliner) error {
		card = pipe.SCard(ctx, redis.key)
		pipe.Del(ctx, redis.key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to flush comments: %w", err)
	}
	return card.Val(), nil
}

func (redis *Ledger) Count(ctx context.Context) (int64, error) {
	n, err := redis.client.SCard(ctx, redis.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}

func (redis *Ledger) Close() error {
	return redis.client.Close()
}
