package tenancy

import (
	"github.com/rs/zerolog"
	"github.com/wolfeidau/cybaware/internal/rbac"
)

// AuthorizationContext is the request-scoped proof of who is acting, in which organization,
// with what role. It is built by the access guard once per request, handed to business logic
// as a value, and never persisted.
type AuthorizationContext struct {
	principalID int64
	orgID       int64
	role        rbac.Role
}

// NewAuthorizationContext is called by the access guard after every check has passed.
// Business logic receives contexts, it does not build them.
func NewAuthorizationContext(principalID, orgID int64, role rbac.Role) *AuthorizationContext {
	return &AuthorizationContext{
		principalID: principalID,
		orgID:       orgID,
		role:        role,
	}
}

// PrincipalID returns the authenticated user id.
func (ac *AuthorizationContext) PrincipalID() int64 { return ac.principalID }

// OrgID returns the organization the request was authorized for.
func (ac *AuthorizationContext) OrgID() int64 { return ac.orgID }

// Role returns the caller's effective role in OrgID.
func (ac *AuthorizationContext) Role() rbac.Role { return ac.role }

// valid reports whether ac can scope data access.
func (ac *AuthorizationContext) valid() bool {
	return ac != nil && ac.principalID > 0 && ac.orgID > 0 && ac.role.Valid()
}

// MarshalZerologObject adds the context to a log event.
func (ac *AuthorizationContext) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("principal_id", ac.principalID).
		Int64("org_id", ac.orgID).
		Str("role", string(ac.role))
}
