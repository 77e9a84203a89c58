package store

import (
	"context"
	"errors"

	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

// Sentinel errors for membership store operations
var (
	ErrMembershipNotFound      = errors.New("membership not found")
	ErrMembershipAlreadyExists = errors.New("membership already exists")
	ErrLastOwner               = errors.New("organization must keep at least one owner")
)

// MembershipStore maps (user, organization) to a role.
type MembershipStore interface {
	// Find returns the membership of userID in orgID exactly as stored, without validating
	// the role. It is the lookup the access guard uses and therefore takes no scope.
	// Returns ErrMembershipNotFound if there is none.
	Find(ctx context.Context, userID, orgID int64) (*models.Membership, error)

	// Get returns the membership of userID in the scoped organization.
	// Returns ErrMembershipNotFound if there is none.
	Get(ctx context.Context, scope tenancy.Predicate, userID int64) (*models.Membership, error)

	// Create adds userID to the organization of scope with role.
	// Returns ErrMembershipAlreadyExists if the user is already a member.
	Create(ctx context.Context, scope tenancy.Predicate, userID int64, role string) (*models.Membership, error)

	// List returns the memberships of the scoped organization ordered by user id.
	List(ctx context.Context, scope tenancy.Predicate) ([]*models.Membership, error)

	// Delete removes userID from the scoped organization.
	// Returns ErrMembershipNotFound if the user is not a member, and ErrLastOwner if the
	// user is the only OWNER left. The owner count and the delete are atomic.
	Delete(ctx context.Context, scope tenancy.Predicate, userID int64) error
}
