package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// PingResult reports whether the backend answered the wake-up probe.
type PingResult struct {
	Success      bool
	ResponseTime time.Duration
	Message      string
}

// Ping sends an unauthenticated GET /ping with a short timeout and no
// retries. It never fails: the result is advisory.
func (c *Client) Ping(ctx context.Context) PingResult {
	ctx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()

	c.logger.DebugContext(ctx, "[api] pinging backend")
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return c.pingFailed(ctx, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.pingFailed(ctx, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return c.pingFailed(ctx, responseError(resp.StatusCode, raw))
	}

	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &body)
	if body.Message == "" {
		body.Message = "Backend is awake"
	}

	elapsed := time.Since(started)
	c.metrics.IncPing("ok")
	c.logger.DebugContext(ctx, "[api] backend responded", "elapsed", elapsed)
	return PingResult{Success: true, ResponseTime: elapsed, Message: body.Message}
}

func (c *Client) pingFailed(ctx context.Context, err error) PingResult {
	c.metrics.IncPing("failed")
	c.logger.WarnContext(ctx, "[api] backend ping failed", "error", err)
	return PingResult{Message: "Backend may be starting up, please wait a moment"}
}
