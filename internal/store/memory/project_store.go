package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/store"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

// ProjectStore implements store.ProjectStore using in-memory storage.
type ProjectStore struct {
	mu sync.RWMutex

	nextID   int64
	projects map[int64]*models.Project
}

// NewProjectStore creates a new in-memory project store.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{
		projects: make(map[int64]*models.Project),
	}
}

// Create stores a project in the scoped organization.
func (s *ProjectStore) Create(ctx context.Context, scope tenancy.Predicate, project *models.Project) error {
	if err := store.CheckScope(scope, tenancy.KindProject); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	project.ProjectID = s.nextID
	project.OrgID = scope.OrgID()
	project.CreatedAt = time.Now()

	clone := *project
	s.projects[clone.ProjectID] = &clone

	return nil
}

// Get returns a project of the scoped organization.
func (s *ProjectStore) Get(ctx context.Context, scope tenancy.Predicate, projectID int64) (*models.Project, error) {
	if err := store.CheckScope(scope, tenancy.KindProject); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.projects[projectID]
	if !exists || !scope.Matches(p.OrgID) {
		return nil, store.ErrProjectNotFound
	}

	clone := *p
	return &clone, nil
}

// List returns the projects of the scoped organization ordered by ID.
func (s *ProjectStore) List(ctx context.Context, scope tenancy.Predicate) ([]*models.Project, error) {
	if err := store.CheckScope(scope, tenancy.KindProject); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Project
	for _, p := range s.projects {
		if scope.Matches(p.OrgID) {
			clone := *p
			result = append(result, &clone)
		}
	}

	slices.SortFunc(result, func(a, b *models.Project) int {
		return cmp.Compare(a.ProjectID, b.ProjectID)
	})

	return result, nil
}
