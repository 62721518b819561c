package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned when a credential is not a decodable JWT. Opaque
// tokens are legal bearer credentials, so callers treat this as "no hints".
var ErrNotJWT = errors.New("credential is not a jwt")

// Claims are the unverified claims the backend places in its tokens.
type Claims struct {
	ID   string `json:"id,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// Inspect decodes token without verifying its signature.
func Inspect(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return nil, ErrNotJWT
	}

	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, ErrNotJWT
	}
	return claims, nil
}

// ExpiresAt returns the exp claim, if any.
func (c *Claims) ExpiresAt() (time.Time, bool) {
	if c == nil || c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.RegisteredClaims.ExpiresAt.Time, true
}

// Expired reports whether exp lies before now minus leeway. Tokens without
// an exp claim never expire here.
func (c *Claims) Expired(now time.Time, leeway time.Duration) bool {
	exp, ok := c.ExpiresAt()
	if !ok {
		return false
	}
	return !now.Before(exp.Add(leeway))
}

// Expired is a convenience for Inspect(token).Expired. Non-JWT credentials
// are never reported as expired.
func Expired(token string, now time.Time, leeway time.Duration) bool {
	claims, err := Inspect(token)
	if err != nil {
		return false
	}
	return claims.Expired(now, leeway)
}
