package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rituelsdebene/boutique/pkg/auth"
)

// ErrNoToken is returned by Authenticate when no bearer token was sent.
var ErrNoToken = errors.New("missing bearer token")

type claimsKey struct{}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Authenticate validates the request's bearer token.
func Authenticate(r *http.Request) (*auth.Claims, error) {
	token := BearerToken(r)
	if token == "" {
		return nil, ErrNoToken
	}
	return auth.ValidateToken(token)
}

// WithClaims stores validated claims in ctx.
func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFromCtx(r *http.Request) (*auth.Claims, bool) {
	c, ok := r.Context().Value(claimsKey{}).(*auth.Claims)
	return c, ok && c != nil
}

func UserIDFromCtx(r *http.Request) (uint, bool) {
	c, ok := ClaimsFromCtx(r)
	if !ok {
		return 0, false
	}
	return c.ID, true
}

func RoleFromCtx(r *http.Request) (string, bool) {
	c, ok := ClaimsFromCtx(r)
	if !ok {
		return "", false
	}
	return c.Role, true
}
