package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/rbac"
	"github.com/wolfeidau/cybaware/internal/store"
	"github.com/wolfeidau/cybaware/internal/telemetry"
	"github.com/wolfeidau/cybaware/internal/tenancy"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMissingToken is the cause of an Unauthenticated error when no bearer token was sent.
var ErrMissingToken = errors.New("missing bearer token")

// Kind classifies an AccessError.
type Kind int

const (
	KindUnauthenticated Kind = iota + 1
	KindTenantUnresolved
	KindNotAMember
	KindCorruptMembership
	KindInsufficientRole
	KindStoreUnavailable
)

// Code returns the diagnostic code used in logs and metrics.
func (k Kind) Code() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindTenantUnresolved:
		return "tenant_unresolved"
	case KindNotAMember:
		return "not_a_member"
	case KindCorruptMembership:
		return "corrupt_membership"
	case KindInsufficientRole:
		return "insufficient_role"
	case KindStoreUnavailable:
		return "store_unavailable"
	default:
		return "unknown"
	}
}

// Forbidden reports whether k is one of the denials that must look identical to clients.
func (k Kind) Forbidden() bool {
	return k == KindNotAMember || k == KindCorruptMembership || k == KindInsufficientRole
}

// AccessError is returned by AccessGuard for every denied request.
type AccessError struct {
	Kind Kind
	Err  error
}

func (e *AccessError) Error() string {
	if e.Err == nil {
		return e.Kind.Code()
	}
	return fmt.Sprintf("%s: %v", e.Kind.Code(), e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// IsKind reports whether err is an AccessError of kind k.
func IsKind(err error, k Kind) bool {
	var ae *AccessError
	return errors.As(err, &ae) && ae.Kind == k
}

// Request carries the request metadata the guard needs.
type Request struct {
	BearerToken string
	Host        string
	OrgHeader   string
}

// AccessGuard runs authentication, tenant resolution, membership lookup and the role
// check for one request, in that order, stopping at the first failure.
type AccessGuard struct {
	authn   *Authenticator
	tenants *TenantResolver
	members store.MembershipStore
}

// NewAccessGuard wires the guard's collaborators.
func NewAccessGuard(authn *Authenticator, tenants *TenantResolver, members store.MembershipStore) (*AccessGuard, error) {
	if authn == nil || tenants == nil || members == nil {
		return nil, errors.New("access guard requires an authenticator, tenant resolver and membership store")
	}
	return &AccessGuard{authn: authn, tenants: tenants, members: members}, nil
}

// Authenticator returns the guard's authenticator.
func (g *AccessGuard) Authenticator() *Authenticator { return g.authn }

// Authenticate runs the token step alone, for endpoints that do not act on an organization.
func (g *AccessGuard) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, &AccessError{Kind: KindUnauthenticated, Err: ErrMissingToken}
	}

	user, err := g.authn.AuthenticateToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrUnauthorized) {
			return nil, &AccessError{Kind: KindUnauthenticated, Err: err}
		}
		return nil, &AccessError{Kind: KindStoreUnavailable, Err: err}
	}

	return user, nil
}

// Authorize returns the authorization context for req if it satisfies requirement.
// Every failure is an *AccessError.
func (g *AccessGuard) Authorize(ctx context.Context, req Request, requirement rbac.Requirement) (*tenancy.AuthorizationContext, error) {
	started := time.Now()

	ac, err := g.authorize(ctx, req, requirement)

	outcome := "allowed"
	var ae *AccessError
	if errors.As(err, &ae) {
		outcome = ae.Kind.Code()
	}

	m := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.AuthzDecisionsTotal.Add(ctx, 1, attrs)
	m.AuthzDuration.Record(ctx, float64(time.Since(started).Microseconds())/1000, attrs)

	logger := zerolog.Ctx(ctx)
	if err != nil {
		logger.Debug().
			Str("outcome", outcome).
			Str("requirement", requirement.String()).
			Err(err).
			Msg("access denied")
		return nil, err
	}

	logger.Debug().
		Object("authz", ac).
		Str("requirement", requirement.String()).
		Msg("access granted")

	return ac, nil
}

func (g *AccessGuard) authorize(ctx context.Context, req Request, requirement rbac.Requirement) (*tenancy.AuthorizationContext, error) {
	user, err := g.Authenticate(ctx, req.BearerToken)
	if err != nil {
		return nil, err
	}

	orgID, ok, err := g.tenants.Resolve(ctx, req.Host, req.OrgHeader)
	if err != nil {
		return nil, &AccessError{Kind: KindStoreUnavailable, Err: err}
	}
	if !ok {
		return nil, &AccessError{Kind: KindTenantUnresolved}
	}

	membership, err := g.members.Find(ctx, user.UserID, orgID)
	if err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			return nil, &AccessError{Kind: KindNotAMember}
		}
		return nil, &AccessError{Kind: KindStoreUnavailable, Err: err}
	}

	role, err := rbac.ParseRole(membership.Role)
	if err != nil {
		zerolog.Ctx(ctx).Error().
			Str("alert", "data_integrity").
			Int64("membership_id", membership.MembershipID).
			Int64("user_id", user.UserID).
			Int64("org_id", orgID).
			Str("stored_role", membership.Role).
			Msg("membership has an unknown role")
		telemetry.GetMetrics().DataIntegrityAlerts.Add(ctx, 1,
			metric.WithAttributes(attribute.String("entity", string(tenancy.KindMembership))))
		return nil, &AccessError{Kind: KindCorruptMembership, Err: err}
	}

	if !rbac.Satisfies(role, requirement) {
		return nil, &AccessError{
			Kind: KindInsufficientRole,
			Err:  fmt.Errorf("role %s does not satisfy %s", role, requirement),
		}
	}

	return tenancy.NewAuthorizationContext(user.UserID, orgID, role), nil
}
