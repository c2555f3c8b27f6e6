package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// scriptLoader fetches the widget script once and caches it. A failed fetch
// is retried on the next call.
type scriptLoader struct {
	url  string
	http *http.Client

	mu     sync.Mutex
	script []byte
}

func (l *scriptLoader) load(ctx context.Context) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.script != nil {
		return l.script, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway script returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	l.script = body
	return body, nil
}

func (l *scriptLoader) cached() ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.script, l.script != nil
}
