package auth

import (
	"net/mail"
	"strings"

	"github.com/jrsteele09/medix-console/internal/errors"
)

const (
	msgCredentialsRequired = "Email and password are required"
	msgInvalidEmail        = "Enter a valid email address"
)

// ValidateCredentials rejects a login form before anything is sent to the remote API.
// The returned *LoginError carries the message shown to the user.
func ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return &LoginError{Message: msgCredentialsRequired, Err: errors.ErrInvalidCredentials}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &LoginError{Message: msgInvalidEmail, Err: errors.ErrInvalidCredentials}
	}
	return nil
}
