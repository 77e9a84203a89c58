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

// TrainingStore implements store.TrainingStore using in-memory storage.
// Modules are resolved to their tenant through the owning training, mirroring the join
// the SQL store performs.
type TrainingStore struct {
	mu sync.RWMutex

	nextTrainingID int64
	nextModuleID   int64
	trainings      map[int64]*models.Training
	modules        map[int64][]*models.Module // training_id -> modules
}

// NewTrainingStore creates a new in-memory training store.
func NewTrainingStore() *TrainingStore {
	return &TrainingStore{
		trainings: make(map[int64]*models.Training),
		modules:   make(map[int64][]*models.Module),
	}
}

// Create stores a training in the scoped organization.
func (s *TrainingStore) Create(ctx context.Context, scope tenancy.Predicate, training *models.Training) error {
	if err := store.CheckScope(scope, tenancy.KindTraining); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTrainingID++
	training.TrainingID = s.nextTrainingID
	training.OrgID = scope.OrgID()
	training.CreatedAt = time.Now()

	clone := *training
	s.trainings[clone.TrainingID] = &clone

	return nil
}

// Get returns a training of the scoped organization.
func (s *TrainingStore) Get(ctx context.Context, scope tenancy.Predicate, trainingID int64) (*models.Training, error) {
	if err := store.CheckScope(scope, tenancy.KindTraining); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.trainings[trainingID]
	if !exists || !scope.Matches(t.OrgID) {
		return nil, store.ErrTrainingNotFound
	}

	clone := *t
	return &clone, nil
}

// List returns trainings of the scoped organization, newest first.
func (s *TrainingStore) List(ctx context.Context, scope tenancy.Predicate, activeOnly bool) ([]*models.Training, error) {
	if err := store.CheckScope(scope, tenancy.KindTraining); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Training
	for _, t := range s.trainings {
		if !scope.Matches(t.OrgID) || (activeOnly && !t.Active) {
			continue
		}
		clone := *t
		result = append(result, &clone)
	}

	slices.SortFunc(result, func(a, b *models.Training) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.TrainingID, a.TrainingID)
	})

	return result, nil
}

// AddModule appends a module to a training of the scoped organization.
func (s *TrainingStore) AddModule(ctx context.Context, scope tenancy.Predicate, module *models.Module) error {
	if err := store.CheckScope(scope, tenancy.KindModule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.trainings[module.TrainingID]
	if !exists || !scope.Matches(t.OrgID) {
		return store.ErrTrainingNotFound
	}

	s.nextModuleID++
	module.ModuleID = s.nextModuleID
	module.CreatedAt = time.Now()

	clone := *module
	s.modules[clone.TrainingID] = append(s.modules[clone.TrainingID], &clone)

	return nil
}

// ListModules returns the modules of a training of the scoped organization.
func (s *TrainingStore) ListModules(ctx context.Context, scope tenancy.Predicate, trainingID int64) ([]*models.Module, error) {
	if err := store.CheckScope(scope, tenancy.KindModule); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.trainings[trainingID]
	if !exists || !scope.Matches(t.OrgID) {
		return nil, store.ErrTrainingNotFound
	}

	result := make([]*models.Module, 0, len(s.modules[trainingID]))
	for _, m := range s.modules[trainingID] {
		clone := *m
		result = append(result, &clone)
	}

	slices.SortStableFunc(result, func(a, b *models.Module) int {
		return cmp.Compare(a.OrderIndex, b.OrderIndex)
	})

	return result, nil
}
