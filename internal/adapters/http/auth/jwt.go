// Package auth issues and verifies bearer tokens and limits request rates
// per acting identity.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/s3m-esports/standings/internal/domain/model"
)

// Claims carries the actor role next to the registered claims. The subject
// is the actor id.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens.
type Tokens struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokens creates a token service. An empty issuer is neither set nor checked.
func NewTokens(secret, issuer string) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue mints a token for actor valid for ttl.
func (t *Tokens) Issue(actor model.Actor, ttl time.Duration) (string, error) {
	if actor.ID == "" || !actor.Role.Valid() {
		return "", fmt.Errorf("%w: actor needs an id and a known role", ErrInvalidToken)
	}
	now := t.now()
	claims := Claims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses a token and returns the actor it names.
func (t *Tokens) Verify(raw string) (model.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.Actor{}, ErrExpiredToken
	case err != nil:
		return model.Actor{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return model.Actor{}, ErrInvalidToken
	}
	return model.Actor{ID: claims.Subject, Role: claims.Role}, nil
}

// FromRequest verifies the Authorization bearer token of r.
func (t *Tokens) FromRequest(r *http.Request) (model.Actor, error) {
	h := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return model.Actor{}, ErrMissingToken
	}
	return t.Verify(strings.TrimSpace(raw))
}
