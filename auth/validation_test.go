package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/medix-console/auth"
	"github.com/jrsteele09/medix-console/internal/errors"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		message  string
	}{
		{name: "valid", email: "ada.admin@medix.test", password: "secret"},
		{name: "surrounding whitespace", email: "  ada.admin@medix.test ", password: "secret"},
		{name: "missing email", email: "", password: "secret", message: "Email and password are required"},
		{name: "blank email", email: "   ", password: "secret", message: "Email and password are required"},
		{name: "missing password", email: "ada.admin@medix.test", password: "", message: "Email and password are required"},
		{name: "not an address", email: "ada.admin", password: "secret", message: "Enter a valid email address"},
		{name: "display name form", email: "Ada <ada.admin@medix.test>", password: "secret", message: "Enter a valid email address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateCredentials(tt.email, tt.password)
			if tt.message == "" {
				require.NoError(t, err)
				return
			}
			var loginErr *auth.LoginError
			require.ErrorAs(t, err, &loginErr)
			require.Equal(t, tt.message, loginErr.Message)
			require.ErrorIs(t, err, errors.ErrInvalidCredentials)
		})
	}
}
