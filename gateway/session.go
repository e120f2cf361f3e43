package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/medix-console/internal/errors"
	"github.com/jrsteele09/medix-console/sessions"
)

// Session is the gateway bound to one console session's credentials
type Session struct {
	client    *Client
	store     sessions.TokenStore
	onExpired func()
}

var _ Doer = (*Session)(nil)

// attempt carries the retry marker of one original request
type attempt struct {
	accessToken string
	retried     bool
}

// Do attaches the stored access token. A 401 on the first attempt triggers exactly one
// refresh-and-retry; a failed refresh clears the store and returns *SessionExpiredError.
// A refresh lost to a concurrent logout or login leaves the store to its new owner.
func (s *Session) Do(ctx context.Context, req Request, out any) error {
	if req.SkipAuth {
		return s.client.Do(ctx, req, out)
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return err
	}

	a := attempt{accessToken: s.store.ReadAccess(ctx)}
	for {
		resp, err := s.client.send(ctx, req, body, a.accessToken)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusUnauthorized || a.retried {
			return decode(req, resp, out)
		}

		a.retried = true
		original := newStatusError(req.Method, req.Path, resp)
		result, err := s.client.refresher.Refresh(ctx, s.store, a.accessToken)
		if errors.Is(err, errors.ErrCredentialsChanged) {
			s.client.metrics.refresh("lost")
			log.Debug().Str("method", req.Method).Str("path", req.Path).Msg("Credentials changed during refresh, dropping the exchanged token")
			return &SessionExpiredError{Original: original, Cause: err}
		}
		if err != nil {
			s.client.metrics.refresh("failed")
			s.expire(ctx)
			return &SessionExpiredError{Original: original, Cause: err}
		}
		switch {
		case !result.Exchanged:
			s.client.metrics.refresh("reused")
		case result.Shared:
			s.client.metrics.refresh("shared")
		default:
			s.client.metrics.refresh("exchanged")
		}
		log.Debug().Str("method", req.Method).Str("path", req.Path).Bool("exchanged", result.Exchanged).Msg("Retrying request with refreshed access token")
		a.accessToken = result.AccessToken
	}
}

func (s *Session) expire(ctx context.Context) {
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		log.Err(err).Msg("Failed to clear session store after refresh failure")
	}
	log.Warn().Msg("Access token refresh failed, session torn down")
	if s.onExpired != nil {
		s.onExpired()
	}
}
