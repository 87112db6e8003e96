// Package langpref owns per-user language preferences: the store abstraction
// that persists detected tags, and the resolver that turns a user id into a
// non-empty language tag under all circumstances.
package langpref

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotFound is returned by Store.Get when no preference is recorded.
var ErrNotFound = errors.New("langpref: no preference stored")

// Store maps user ids to language tags. Implementations must be safe for
// concurrent use with key-level atomicity on Get/Set.
type Store interface {
	Get(ctx context.Context, userID string) (string, error)
	Set(ctx context.Context, userID, lang string) error
}

// MemoryStore is the volatile, single-process store. Preferences reset on
// restart.
type MemoryStore struct {
	mu    sync.Mutex
	prefs map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lang, ok := s.prefs[userID]
	if !ok {
		return "", ErrNotFound
	}
	return lang, nil
}

func (s *MemoryStore) Set(_ context.Context, userID, lang string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(lang) == "" {
		return fmt.Errorf("language tag is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[userID] = lang
	return nil
}
