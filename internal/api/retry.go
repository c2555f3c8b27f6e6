package api

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/example/quickcommerce/internal/apperr"
)

const (
	backoffBase = time.Second
	backoffCap  = 10 * time.Second
)

// Backoff returns the wait before retry number n (1-based):
// min(1s * 2^n, 10s), so 2s, 4s, 8s, then 10s.
func Backoff(n int) time.Duration {
	if n < 1 {
		return 0
	}
	if n >= 4 {
		return backoffCap
	}
	return min(backoffBase<<n, backoffCap)
}

// schedule yields Backoff(1), Backoff(2), ... for the retries of one call.
type schedule struct {
	retry int
}

func (s *schedule) NextBackOff() time.Duration {
	s.retry++
	return Backoff(s.retry)
}

func (s *schedule) Reset() { s.retry = 0 }

// policy returns the retry policy of a single call: the doubling schedule,
// capped at maxRetries, stopping once ctx is done.
func (c *Client) policy(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(backoff.WithMaxRetries(&schedule{}, uint64(c.maxRetries)), ctx)
}

// send runs the attempt loop of one call. The policy lives only in this
// frame, so concurrent calls to the same endpoint never share a budget.
// It returns the number of attempts made.
func (c *Client) send(ctx context.Context, req Request, route string, body []byte) (*Response, int, error) {
	policy := c.policy(ctx)
	for attempt := 1; ; attempt++ {
		resp, err := c.attempt(ctx, req, route, body)
		if err == nil {
			return resp, attempt, nil
		}
		if !apperr.IsRetryable(err) {
			return nil, attempt, err
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			if attempt > 1 && ctx.Err() == nil {
				c.logger.WarnContext(ctx, "[api] max retries reached",
					"endpoint", route, "retries", attempt-1, "max", c.maxRetries)
			}
			return nil, attempt, err
		}

		c.logger.InfoContext(ctx, "[api] retrying request",
			"endpoint", route, "retry", attempt, "max", c.maxRetries, "delay", delay,
			"status", apperr.StatusCode(err))
		c.metrics.IncRetry(route)

		if err := c.sleep(ctx, delay); err != nil {
			return nil, attempt, c.noResponse(err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
