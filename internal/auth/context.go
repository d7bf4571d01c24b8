package auth

import (
	"context"

	"github.com/straye-as/scorecard-api/internal/domain"
)

// AuthMethod records how a request was authenticated
type AuthMethod string

const (
	AuthMethodJWT    AuthMethod = "jwt"
	AuthMethodAPIKey AuthMethod = "api_key"
)

// UserContext holds authenticated user information
type UserContext struct {
	// Handle is the CRM owner handle the caller's scorecard is computed for.
	// API key callers may leave it empty.
	Handle      domain.Identity
	DisplayName string
	Email       string
	Method      AuthMethod
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// IsSystem reports whether the caller authenticated with the service API key.
// System callers may read any scorecard.
func (u *UserContext) IsSystem() bool {
	return u.Method == AuthMethodAPIKey
}
