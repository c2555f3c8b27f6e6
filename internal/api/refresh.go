package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/example/quickcommerce/internal/apperr"
)

const refreshKey = "refresh"

var (
	errNoRefreshToken = apperr.New(apperr.KindAuth, "No valid refresh token available.")
	errSessionExpired = apperr.New(apperr.KindAuth, "Session expired or invalid. Please login again.")
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// authorize returns the token to attach to a request, refreshing an expired
// one first. An empty result means the request goes out unauthenticated.
func (c *Client) authorize(ctx context.Context) string {
	token, ok := c.tokens.AccessToken()
	if !ok {
		return ""
	}
	if !c.tokens.IsExpired(token) {
		return token
	}

	fresh, err := c.RefreshAccessToken(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "[api] sending request without credentials", "error", err)
		return ""
	}
	return fresh
}

// RefreshAccessToken exchanges the refresh token for a new access token.
// Concurrent callers share one in-flight exchange. Any failure clears the
// session; the exchange itself is never retried.
func (c *Client) RefreshAccessToken(ctx context.Context) (string, error) {
	result, err, _ := c.refreshGroup.Do(refreshKey, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Client) refresh(ctx context.Context) (string, error) {
	refreshToken, ok := c.tokens.RefreshToken()
	if !ok || c.tokens.IsExpired(refreshToken) {
		c.logger.InfoContext(ctx, "[api] no valid refresh token available")
		c.metrics.IncRefresh("missing")
		c.clearSession(ctx)
		return "", errNoRefreshToken
	}

	access, err := c.exchange(ctx, refreshToken)
	if err != nil {
		c.logger.WarnContext(ctx, "[api] token refresh failed", "error", err)
		c.metrics.IncRefresh("failed")
		c.clearSession(ctx)
		return "", &apperr.Error{
			Kind:       apperr.KindAuth,
			Message:    errSessionExpired.Message,
			StatusCode: apperr.StatusCode(err),
			Underlying: err,
		}
	}

	// Logout or a new login during the exchange wins over the stale session.
	if current, ok := c.tokens.RefreshToken(); !ok || current != refreshToken {
		c.logger.InfoContext(ctx, "[api] session changed during token refresh")
		c.metrics.IncRefresh("discarded")
		return "", errSessionExpired
	}
	if err := c.tokens.SetAccessToken(ctx, access); err != nil {
		c.metrics.IncRefresh("failed")
		if _, ok := c.tokens.RefreshToken(); !ok {
			return "", errSessionExpired
		}
		return "", apperr.Wrap(apperr.KindInternal, err, "Could not store the refreshed session.")
	}
	c.metrics.IncRefresh("ok")
	c.logger.DebugContext(ctx, "[api] received new access token")
	return access, nil
}

// exchange posts the refresh token directly, bypassing auth injection and
// the retry loop.
func (c *Client) exchange(ctx context.Context, refreshToken string) (string, error) {
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", setupError(err)
	}

	if c.http.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.http.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return "", setupError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.noResponse(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.noResponse(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", responseError(resp.StatusCode, raw)
	}

	var parsed refreshResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.AccessToken == "" {
		return "", apperr.New(apperr.KindAuth, "Invalid response from token refresh endpoint.")
	}
	return parsed.AccessToken, nil
}

func (c *Client) clearSession(ctx context.Context) {
	if err := c.tokens.Clear(ctx); err != nil {
		c.logger.ErrorContext(ctx, "[api] failed to clear session", "error", err)
	}
}
