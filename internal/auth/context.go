package auth

import (
	"context"
	"errors"
)

// ErrNoIdentity is returned when a context carries no verified claims.
var ErrNoIdentity = errors.New("no authenticated user")

type contextKey struct{}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// FromContext returns the claims stored by WithClaims, or nil.
func FromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(contextKey{}).(*Claims)
	return claims
}

// Identity resolves the current inspector from request claims.
type Identity struct{}

// CurrentInspectorID returns the inspector ID of the signed-in user.
func (Identity) CurrentInspectorID(ctx context.Context) (string, error) {
	claims := FromContext(ctx)
	if claims == nil {
		return "", ErrNoIdentity
	}
	return claims.InspectorID(), nil
}
