package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jrsteele09/medix-console/internal/errors"
)

// StatusError is a non-2xx answer from the remote API, passed through to the caller untouched
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	Detail     string // server provided message, empty when the body carried none
}

func newStatusError(method, path string, resp *response) *StatusError {
	return &StatusError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Detail:     detailFromBody(resp.Body),
	}
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("remote api %s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Detail)
	}
	return fmt.Sprintf("remote api %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// Message returns the server message or fallback
func (e *StatusError) Message(fallback string) string {
	if e.Detail != "" {
		return e.Detail
	}
	return fallback
}

// detailFromBody extracts {"detail": "..."} or {"error": "..."} from a JSON error body
func detailFromBody(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	return payload.Error
}

// SessionExpiredError is returned when a 401 could not be recovered by refreshing the access token.
// The session store has already been cleared; callers send the user back to the login page.
type SessionExpiredError struct {
	Original error // the 401 that triggered the refresh
	Cause    error // why the refresh failed
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("%s: refresh failed: %v", errors.ErrSessionExpired, e.Cause)
}

func (e *SessionExpiredError) Unwrap() []error {
	return []error{errors.ErrSessionExpired, e.Original, e.Cause}
}

// StatusCode returns the HTTP status of a *StatusError in err's chain, or 0
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
