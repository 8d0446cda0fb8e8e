package auth

import (
	"context"
	"net/http"
	"strings"
)

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok && c != nil
}

type Validator interface {
	Validate(token string) (*Claims, error)
}

// Gate authenticates incoming requests by their bearer token.
type Gate struct {
	tokens Validator
}

func NewGate(tokens Validator) *Gate {
	return &Gate{tokens: tokens}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingCredentials
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedHeader
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMalformedHeader
	}

	return token, nil
}

// Authenticate validates the request's bearer token. On success the returned
// request carries the claims in its context.
func (g *Gate) Authenticate(r *http.Request) (*http.Request, *Claims, error) {
	token, err := BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return r, nil, err
	}

	claims, err := g.tokens.Validate(token)
	if err != nil {
		return r, nil, err
	}

	return r.WithContext(WithClaims(r.Context(), claims)), claims, nil
}
