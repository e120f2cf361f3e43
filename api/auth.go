package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jrsteele09/medix-console/gateway"
	"github.com/jrsteele09/medix-console/sessions"
	"github.com/jrsteele09/medix-console/users"
)

const (
	LoginPath          = "/auth/login/"
	ProfilePath        = "/users/profile/"
	ChangePasswordPath = "/users/change_password/"
)

// TokenPair is the login response of the remote API
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (p TokenPair) Pair() sessions.Pair {
	return sessions.Pair{AccessToken: p.Access, RefreshToken: p.Refresh}
}

type AuthAPI struct {
	requester
}

// Login exchanges credentials for a token pair. It never carries a bearer and is never retried.
func (a *AuthAPI) Login(ctx context.Context, email, password string) (TokenPair, error) {
	var pair TokenPair
	err := a.doer.Do(ctx, gateway.Request{
		Method:   http.MethodPost,
		Path:     LoginPath,
		Body:     map[string]string{"email": email, "password": password},
		SkipAuth: true,
	}, &pair)
	return pair, err
}

// Register creates an account through the users endpoint
func (a *AuthAPI) Register(ctx context.Context, body any) (json.RawMessage, error) {
	return a.post(ctx, "/users/", body)
}

// Profile fetches the signed-in user. A role the console does not know is an error,
// so such a user is never treated as authenticated.
func (a *AuthAPI) Profile(ctx context.Context) (*users.User, error) {
	var u users.User
	if err := a.doer.Do(ctx, gateway.Request{Method: http.MethodGet, Path: ProfilePath}, &u); err != nil {
		return nil, err
	}
	role, err := users.ParseRole(string(u.Role))
	if err != nil {
		return nil, fmt.Errorf("[AuthAPI Profile] %w", err)
	}
	u.Role = role
	return &u, nil
}

func (a *AuthAPI) UpdateProfile(ctx context.Context, body any) (json.RawMessage, error) {
	return a.patch(ctx, ProfilePath, body)
}

func (a *AuthAPI) ChangePassword(ctx context.Context, body any) (json.RawMessage, error) {
	return a.post(ctx, ChangePasswordPath, body)
}
