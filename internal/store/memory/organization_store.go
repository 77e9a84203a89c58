package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/rbac"
	"github.com/wolfeidau/cybaware/internal/store"
)

// OrganizationStore implements store.OrganizationStore using in-memory storage.
// It writes owner memberships into the MembershipStore it was created with.
type OrganizationStore struct {
	mu sync.RWMutex

	nextID        int64
	organizations map[int64]*models.Organization // org_id -> Organization
	bySlug        map[string]int64               // slug -> org_id
	byName        map[string]int64               // name -> org_id

	members *MembershipStore
}

// NewOrganizationStore creates a new in-memory organization store.
func NewOrganizationStore(members *MembershipStore) *OrganizationStore {
	return &OrganizationStore{
		organizations: make(map[int64]*models.Organization),
		bySlug:        make(map[string]int64),
		byName:        make(map[string]int64),
		members:       members,
	}
}

// CreateWithOwner creates an organization and makes ownerUserID its OWNER.
func (s *OrganizationStore) CreateWithOwner(ctx context.Context, org *models.Organization, ownerUserID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySlug[org.Slug]; exists {
		return store.ErrOrganizationAlreadyExists
	}
	if _, exists := s.byName[org.Name]; exists {
		return store.ErrOrganizationAlreadyExists
	}

	s.nextID++
	org.OrgID = s.nextID
	now := time.Now()
	org.CreatedAt = now
	org.UpdatedAt = now

	s.members.mu.Lock()
	_, err := s.members.insertLocked(ownerUserID, org.OrgID, string(rbac.RoleOwner))
	s.members.mu.Unlock()
	if err != nil {
		return err
	}

	clone := *org
	s.organizations[clone.OrgID] = &clone
	s.bySlug[clone.Slug] = clone.OrgID
	s.byName[clone.Name] = clone.OrgID

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID int64) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	clone := *org
	return &clone, nil
}

// GetBySlug retrieves an organization by slug.
func (s *OrganizationStore) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.bySlug[slug]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	clone := *s.organizations[id]
	return &clone, nil
}

// Delete deletes an organization and its memberships.
// Note: projects and trainings held in other memory stores are not cascaded.
func (s *OrganizationStore) Delete(ctx context.Context, orgID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return store.ErrOrganizationNotFound
	}

	delete(s.organizations, orgID)
	delete(s.bySlug, org.Slug)
	delete(s.byName, org.Name)
	s.members.deleteOrg(orgID)

	return nil
}
