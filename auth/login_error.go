package auth

import (
	"fmt"

	"github.com/jrsteele09/medix-console/gateway"
	"github.com/jrsteele09/medix-console/internal/errors"
)

const (
	msgLoginSucceeded = "Login successful!"
	msgLoginFailed    = "Login failed"
	msgLoggedOut      = "Logged out successfully"
	msgSessionExpired = "Your session has expired. Please log in again."
)

// LoginError is returned by Session.Login. Message is the text shown to the user.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed: %s: %v", e.Message, e.Err)
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// loginMessage prefers the server detail over the generic failure text
func loginMessage(err error) string {
	var statusErr *gateway.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Message(msgLoginFailed)
	}
	return msgLoginFailed
}
