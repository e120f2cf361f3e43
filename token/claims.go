package token

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/medix-console/internal/errors"
)

// Claims are the access token fields the console reads. The signature is never verified here;
// the remote API remains the authority on token validity.
type Claims struct {
	UserID    string    // user_id claim, informational only
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// Decode reads the claims of a raw JWT without verifying it
func Decode(rawToken string) (Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return Claims{}, errors.ErrInvalidToken
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("%w: error extracting claims", errors.ErrInvalidToken)
	}

	exp, err := mapClaims.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	var claims Claims
	if uid, ok := mapClaims["user_id"]; ok && uid != nil {
		claims.UserID = fmt.Sprint(uid)
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// Expired reports whether the exp claim lies before now. Tokens without exp never expire here.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

// CheckExpiry decodes rawToken and returns ErrTokenExpired when its exp lies before now
func CheckExpiry(rawToken string, now time.Time) error {
	claims, err := Decode(rawToken)
	if err != nil {
		return err
	}
	if claims.Expired(now) {
		return errors.ErrTokenExpired
	}
	return nil
}
