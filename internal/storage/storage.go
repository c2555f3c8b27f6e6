// Package storage persists the session credentials under three fixed keys.
// Every backend writes and clears the keys as one unit.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Key names a persisted credential field.
type Key string

const (
	KeyAccessToken  Key = "accessToken"
	KeyRefreshToken Key = "refreshToken"
	KeyUserProfile  Key = "userProfile"
)

// Keys lists every credential key.
var Keys = []Key{KeyAccessToken, KeyRefreshToken, KeyUserProfile}

// ErrUnknownKey is returned for keys outside Keys.
var ErrUnknownKey = errors.New("unknown credential key")

// Values maps credential keys to their stored values.
type Values map[Key]string

// Storage is a credential persistence backend.
type Storage interface {
	// Load returns every stored key. Missing keys are absent from the map.
	Load(ctx context.Context) (Values, error)
	// Set replaces the value of a single key.
	Set(ctx context.Context, key Key, value string) error
	// SetAll replaces all keys at once; keys missing from values are removed.
	SetAll(ctx context.Context, values Values) error
	// Clear removes every key. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

func validKey(key Key) error {
	for _, k := range Keys {
		if k == key {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

func validValues(values Values) error {
	for key := range values {
		if err := validKey(key); err != nil {
			return err
		}
	}
	return nil
}
