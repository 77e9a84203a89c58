package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/rbac"
	"github.com/wolfeidau/cybaware/internal/store"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

type membershipKey struct {
	userID int64
	orgID  int64
}

// MembershipStore implements store.MembershipStore using in-memory storage.
// Roles are stored as given; the access guard is responsible for validating them.
type MembershipStore struct {
	mu sync.RWMutex

	nextID      int64
	memberships map[membershipKey]*models.Membership
}

// NewMembershipStore creates a new in-memory membership store.
func NewMembershipStore() *MembershipStore {
	return &MembershipStore{
		memberships: make(map[membershipKey]*models.Membership),
	}
}

// Find returns the raw membership for (userID, orgID).
func (s *MembershipStore) Find(ctx context.Context, userID, orgID int64) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.memberships[membershipKey{userID: userID, orgID: orgID}]
	if !exists {
		return nil, store.ErrMembershipNotFound
	}

	clone := *m
	return &clone, nil
}

// Get returns the membership of userID in the scoped organization.
func (s *MembershipStore) Get(ctx context.Context, scope tenancy.Predicate, userID int64) (*models.Membership, error) {
	if err := store.CheckScope(scope, tenancy.KindMembership); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.memberships[membershipKey{userID: userID, orgID: scope.OrgID()}]
	if !exists || !scope.Matches(m.OrgID) {
		return nil, store.ErrMembershipNotFound
	}

	clone := *m
	return &clone, nil
}

// Create adds a member to the scoped organization.
func (s *MembershipStore) Create(ctx context.Context, scope tenancy.Predicate, userID int64, role string) (*models.Membership, error) {
	if err := store.CheckScope(scope, tenancy.KindMembership); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(userID, scope.OrgID(), role)
}

// insertLocked adds a membership. Callers must hold s.mu.
func (s *MembershipStore) insertLocked(userID, orgID int64, role string) (*models.Membership, error) {
	key := membershipKey{userID: userID, orgID: orgID}
	if _, exists := s.memberships[key]; exists {
		return nil, store.ErrMembershipAlreadyExists
	}

	s.nextID++
	m := &models.Membership{
		MembershipID: s.nextID,
		UserID:       userID,
		OrgID:        orgID,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	s.memberships[key] = m

	clone := *m
	return &clone, nil
}

// List returns the members of the scoped organization.
func (s *MembershipStore) List(ctx context.Context, scope tenancy.Predicate) ([]*models.Membership, error) {
	if err := store.CheckScope(scope, tenancy.KindMembership); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Membership
	for _, m := range s.memberships {
		if scope.Matches(m.OrgID) {
			clone := *m
			result = append(result, &clone)
		}
	}

	slices.SortFunc(result, func(a, b *models.Membership) int {
		return cmp.Compare(a.UserID, b.UserID)
	})

	return result, nil
}

// Delete removes a member from the scoped organization.
func (s *MembershipStore) Delete(ctx context.Context, scope tenancy.Predicate, userID int64) error {
	if err := store.CheckScope(scope, tenancy.KindMembership); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{userID: userID, orgID: scope.OrgID()}
	m, exists := s.memberships[key]
	if !exists {
		return store.ErrMembershipNotFound
	}

	if m.Role == string(rbac.RoleOwner) && s.countOwnersLocked(key.orgID) <= 1 {
		return store.ErrLastOwner
	}

	delete(s.memberships, key)
	return nil
}

// countOwnersLocked counts the OWNER memberships of orgID. Callers must hold s.mu.
func (s *MembershipStore) countOwnersLocked(orgID int64) int {
	n := 0
	for key, m := range s.memberships {
		if key.orgID == orgID && m.Role == string(rbac.RoleOwner) {
			n++
		}
	}
	return n
}

// deleteOrg drops every membership of orgID.
func (s *MembershipStore) deleteOrg(orgID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.memberships {
		if key.orgID == orgID {
			delete(s.memberships, key)
		}
	}
}
