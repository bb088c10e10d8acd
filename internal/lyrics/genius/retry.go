package genius

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sukalov/geniusbot/internal/logger"
)

const (
	defaultMaxRetries = 3
	defaultBackoffMs  = 500
)

func getRetryConfig() (int, time.Duration) {
	maxRetries := defaultMaxRetries
	if raw := os.Getenv("GENIUS_MAX_RETRIES"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			maxRetries = parsed
		}
	}

	backoffMs := defaultBackoffMs
	if raw := os.Getenv("GENIUS_RETRY_BACKOFF_MS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			backoffMs = parsed
		}
	}

	return maxRetries, time.Duration(backoffMs) * time.Millisecond
}

// doRequestWithRetry retries transport errors, 429 and 5xx. Only GET requests are sent, so the
// request is reused as is. After the last attempt the final response is returned unchanged.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	maxRetries := c.maxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	baseBackoff := c.baseBackoff
	if baseBackoff <= 0 {
		baseBackoff = time.Duration(defaultBackoffMs) * time.Millisecond
	}

	ctx := req.Context()
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "request canceled")
		}

		resp, err := c.httpClient.Do(req)
		retryAfter, retry := shouldRetry(resp, err)
		if !retry || attempt == maxRetries-1 {
			if err != nil && retry {
				return nil, errors.Wrapf(err, "request failed after %d attempts", maxRetries)
			}
			return resp, err
		}

		if err != nil {
			logger.Warn("genius retry after error",
				zap.Int("attempt", attempt+1), zap.Int("max", maxRetries), zap.Error(err))
		} else {
			logger.Warn("genius retry after status",
				zap.Int("attempt", attempt+1), zap.Int("max", maxRetries), zap.Int("status", resp.StatusCode))
			_ = resp.Body.Close()
		}

		backoff := baseBackoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			backoff = retryAfter
		}
		if err := sleepWithContext(ctx, backoff); err != nil {
			return nil, err
		}
	}
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}
	return 0, false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "request canceled")
	case <-timer.C:
		return nil
	}
}
