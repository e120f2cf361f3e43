package refresh

import (
	"context"
	"fmt"

	"github.com/jrsteele09/medix-console/internal/errors"
	"github.com/jrsteele09/medix-console/sessions"
	"golang.org/x/sync/singleflight"
)

// ExchangeFunc trades a refresh token for a new access token at the remote API
type ExchangeFunc func(ctx context.Context, refreshToken string) (accessToken string, err error)

// Manager refreshes access tokens, sharing one in-flight exchange between every caller
// presenting the same refresh token
type Manager struct {
	exchange ExchangeFunc
	group    singleflight.Group
}

// NewManager creates a new refresh manager
func NewManager(exchange ExchangeFunc) *Manager {
	return &Manager{exchange: exchange}
}

// Result describes how an access token was obtained
type Result struct {
	AccessToken string
	Exchanged   bool // false when another caller had already replaced the stale token
	Shared      bool // true when the exchange was shared with concurrent callers
}

// Refresh returns an access token newer than staleAccess, storing it in store.
// If the stored access token already differs from staleAccess it is returned without an exchange.
// The new token is only stored while store still holds the exchanged refresh token; a logout or
// new login during the exchange wins and Refresh returns errors.ErrCredentialsChanged.
func (m *Manager) Refresh(ctx context.Context, store sessions.TokenStore, staleAccess string) (Result, error) {
	if current := store.ReadAccess(ctx); current != "" && current != staleAccess {
		return Result{AccessToken: current}, nil
	}

	refreshToken := store.ReadRefresh(ctx)
	if refreshToken == "" {
		return Result{}, errors.ErrMissingRefreshToken
	}

	// the shared exchange must not die with the first caller's request
	exchangeCtx := context.WithoutCancel(ctx)
	v, err, shared := m.group.Do(refreshToken, func() (interface{}, error) {
		access, err := m.exchange(exchangeCtx, refreshToken)
		if err != nil {
			return "", err
		}
		if access == "" {
			return "", fmt.Errorf("%w: empty access token", errors.ErrRefreshFailed)
		}
		if err := store.ReplaceAccess(exchangeCtx, refreshToken, access); err != nil {
			return "", fmt.Errorf("[refresh Manager] failed to store access token: %w", err)
		}
		return access, nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{AccessToken: v.(string), Exchanged: true, Shared: shared}, nil
}
