package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// Role names used across the access-control layer.
const (
	RoleAdmin        = "admin"
	RoleAuditor      = "auditor"
	RolePatient      = "patient"
	RolePractitioner = "practitioner"
	RoleUser         = "user"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the verified caller attached to the request context by the
// middleware. It lives exactly as long as the request.
type Identity struct {
	UserID string
	Role   string
	Claims jwt.MapClaims
}

// DocumentID returns the documento_id claim for patient identities, or ""
// when absent.
func (id *Identity) DocumentID() string {
	doc, _ := id.Claims["documento_id"].(string)
	return doc
}

// WithIdentity returns a context carrying the verified identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the verified identity, or nil when the request
// did not pass through the auth middleware (public routes).
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
