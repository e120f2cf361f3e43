package sessions

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// Fixed storage keys of the credential pair inside a session namespace
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Pair is the bearer credential pair issued by the remote API
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether neither credential is present
func (p Pair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// OAuth2 exposes the pair as an oauth2 bearer token
func (p Pair) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
	}
}

// Repo persists credential pairs for many console sessions.
// Get returns errors.ErrNotFound when the key is absent.
// ReplaceAccess stores access only while the session still holds expectedRefresh,
// otherwise it returns errors.ErrCredentialsChanged and leaves the session untouched.
type Repo interface {
	Save(ctx context.Context, sessionID string, pair Pair) error
	ReplaceAccess(ctx context.Context, sessionID, expectedRefresh, access string) error
	Clear(ctx context.Context, sessionID string) error
	Get(ctx context.Context, sessionID, key string) (string, error)
}

// TokenStore is the credential storage of a single console session
type TokenStore interface {
	Save(ctx context.Context, pair Pair) error
	ReplaceAccess(ctx context.Context, expectedRefresh, access string) error
	Clear(ctx context.Context) error
	ReadAccess(ctx context.Context) string
	ReadRefresh(ctx context.Context) string
}

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now
