package store

import (
	"context"
	"errors"

	"github.com/wolfeidau/cybaware/internal/models"
)

// Sentinel errors for organization store operations
var (
	ErrOrganizationNotFound      = errors.New("organization not found")
	ErrOrganizationAlreadyExists = errors.New("organization already exists")
)

// OrganizationStore defines the interface for organization storage operations.
// Organizations represent tenants in the system.
type OrganizationStore interface {
	// CreateWithOwner creates the organization and an OWNER membership for ownerUserID
	// in one step. Returns ErrOrganizationAlreadyExists if the name or slug is taken.
	CreateWithOwner(ctx context.Context, org *models.Organization, ownerUserID int64) error

	// Get retrieves an organization by ID.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Get(ctx context.Context, orgID int64) (*models.Organization, error)

	// GetBySlug retrieves an organization by its slug.
	// Returns ErrOrganizationNotFound if no organization has that slug.
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)

	// Delete deletes an organization by ID, cascading to its memberships and owned data.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Delete(ctx context.Context, orgID int64) error
}
