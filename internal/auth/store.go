// Package auth owns the session credentials: the access token, the refresh
// token and the cached user profile.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/quickcommerce/internal/models"
	"github.com/example/quickcommerce/internal/storage"
	"github.com/example/quickcommerce/internal/utils"
)

// ErrNoSession is returned when an update needs a session that is not held.
var ErrNoSession = errors.New("auth: no session")

// Event is a session change broadcast to subscribers.
type Event int

const (
	EventLogin Event = iota + 1
	EventRefresh
	EventLogout
)

func (e Event) String() string {
	switch e {
	case EventLogin:
		return "login"
	case EventRefresh:
		return "refresh"
	case EventLogout:
		return "logout"
	}
	return "unknown"
}

// Store holds the session in memory and mirrors it to a storage backend.
// Writes hold the lock until persistence completes, so no reader observes a
// partially written session.
type Store struct {
	backend storage.Storage
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.RWMutex
	creds models.Credentials

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore loads any persisted session from backend.
func NewStore(ctx context.Context, backend storage.Storage, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
		subs:    map[int]func(Event){},
	}
	for _, opt := range opts {
		opt(s)
	}

	values, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	s.creds = models.Credentials{
		AccessToken:  values[storage.KeyAccessToken],
		RefreshToken: values[storage.KeyRefreshToken],
	}
	if raw := values[storage.KeyUserProfile]; raw != "" {
		var user models.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			s.logger.WarnContext(ctx, "[auth] discarding unreadable stored profile", "error", err)
		} else {
			s.creds.User = &user
		}
	}
	return s, nil
}

// AccessToken returns the stored access token, if any.
func (s *Store) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.AccessToken, s.creds.AccessToken != ""
}

// RefreshToken returns the stored refresh token, if any.
func (s *Store) RefreshToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.RefreshToken, s.creds.RefreshToken != ""
}

// User returns a copy of the cached profile.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds.User == nil {
		return nil
	}
	u := *s.creds.User
	return &u
}

// Snapshot returns a copy of the whole session.
func (s *Store) Snapshot() models.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.creds
	if c.User != nil {
		u := *c.User
		c.User = &u
	}
	return c
}

// IsAuthenticated reports whether a session is held. The access token may be
// expired; the API client refreshes it on the next call.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.AccessToken != "" || s.creds.RefreshToken != ""
}

// IsExpired reports whether token's exp claim lies in the past. Tokens that
// cannot be decoded are treated as expired.
func (s *Store) IsExpired(token string) bool {
	return utils.IsTokenExpired(token, s.now())
}

// SetTokens replaces the whole session.
func (s *Store) SetTokens(ctx context.Context, access, refresh string, user *models.User) error {
	values := storage.Values{
		storage.KeyAccessToken:  access,
		storage.KeyRefreshToken: refresh,
	}
	if user != nil {
		raw, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}
		values[storage.KeyUserProfile] = string(raw)
	}

	s.mu.Lock()
	if err := s.backend.SetAll(ctx, values); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	s.creds = models.Credentials{AccessToken: access, RefreshToken: refresh}
	if user != nil {
		u := *user
		s.creds.User = &u
	}
	s.mu.Unlock()

	s.notify(EventLogin)
	return nil
}

// SetAccessToken replaces only the access token, as after a refresh. It
// returns ErrNoSession once the session has been cleared, so a refresh that
// finishes after logout cannot bring the session back.
func (s *Store) SetAccessToken(ctx context.Context, access string) error {
	s.mu.Lock()
	if s.creds.RefreshToken == "" {
		s.mu.Unlock()
		return ErrNoSession
	}
	if err := s.backend.Set(ctx, storage.KeyAccessToken, access); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist access token: %w", err)
	}
	s.creds.AccessToken = access
	s.mu.Unlock()

	s.notify(EventRefresh)
	return nil
}

// SetUser replaces the cached profile.
func (s *Store) SetUser(ctx context.Context, user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Set(ctx, storage.KeyUserProfile, string(raw)); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	s.creds.User = &user
	return nil
}

// Clear removes the session. It is safe to call repeatedly; subscribers hear
// about the logout only when a session was actually held.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	had := !s.creds.Empty()
	s.creds = models.Credentials{}
	err := s.backend.Clear(ctx)
	s.mu.Unlock()

	if err != nil {
		s.logger.ErrorContext(ctx, "[auth] failed to clear persisted session", "error", err)
		err = fmt.Errorf("clear session: %w", err)
	}
	if had {
		s.logger.InfoContext(ctx, "[auth] session cleared")
		s.notify(EventLogout)
	}
	return err
}

// Subscribe registers fn for session events and returns its cancel func.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
