package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sukalov/geniusbot/internal/logger"
)

// Connector opens a fresh comment stream.
type Connector func(ctx context.Context) (Stream, error)

// Backoff bounds the delay between restarts.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

func (b Backoff) next(cur time.Duration) time.Duration {
	if cur <= 0 {
		return b.Min
	}
	cur *= 2
	if cur > b.Max {
		return b.Max
	}
	return cur
}

// Supervise keeps the dispatcher running until ctx is done: it connects, runs, and after a
// stream failure or end waits with exponential backoff before reconnecting. Already answered
// comments are skipped on restart through the ledger.
func (d *Dispatcher) Supervise(ctx context.Context, connect Connector, backoff Backoff) error {
	if backoff.Min <= 0 {
		backoff.Min = time.Second
	}
	if backoff.Max < backoff.Min {
		backoff.Max = backoff.Min
	}

	var delay time.Duration
	for {
		before := d.Stats().Seen

		stream, err := connect(ctx)
		if err == nil {
			err = d.Run(ctx, stream)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.Stats().Seen > before {
			delay = 0
		}
		delay = backoff.next(delay)

		if err != nil {
			logger.Error("comment stream failed, reconnecting", zap.Error(err), zap.Duration("backoff", delay))
		} else {
			logger.Info("comment stream ended, reconnecting", zap.Duration("backoff", delay))
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
