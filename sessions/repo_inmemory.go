package sessions

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/medix-console/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo keeps credentials in process memory; they do not survive a restart
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string // sessionID -> key -> value
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]map[string]string),
	}
}

func (r *InMemoryRepo) Save(_ context.Context, sessionID string, pair Pair) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = map[string]string{
		KeyAccessToken:  pair.AccessToken,
		KeyRefreshToken: pair.RefreshToken,
	}
	return nil
}

func (r *InMemoryRepo) ReplaceAccess(_ context.Context, sessionID, expectedRefresh, access string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, ok := r.sessions[sessionID]
	if !ok || expectedRefresh == "" || values[KeyRefreshToken] != expectedRefresh {
		return errors.ErrCredentialsChanged
	}
	values[KeyAccessToken] = access
	return nil
}

func (r *InMemoryRepo) Clear(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, sessionID, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	values, ok := r.sessions[sessionID]
	if !ok {
		return "", errors.ErrNotFound
	}
	value, ok := values[key]
	if !ok || value == "" {
		return "", errors.ErrNotFound
	}
	return value, nil
}
