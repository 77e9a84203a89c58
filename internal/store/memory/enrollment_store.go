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

type enrollmentKey struct {
	userID     int64
	trainingID int64
}

type progressKey struct {
	userID   int64
	moduleID int64
}

// EnrollmentStore implements store.EnrollmentStore using in-memory storage.
// Trainings and modules are read from the TrainingStore it was created with; progress rows
// reach their organization through module then training, as the SQL joins do.
type EnrollmentStore struct {
	mu sync.RWMutex

	nextEnrollmentID int64
	nextProgressID   int64
	enrollments      map[enrollmentKey]*models.Enrollment
	progress         map[progressKey]*models.Progress

	trainings *TrainingStore
}

// NewEnrollmentStore creates a new in-memory enrollment store.
func NewEnrollmentStore(trainings *TrainingStore) *EnrollmentStore {
	return &EnrollmentStore{
		enrollments: make(map[enrollmentKey]*models.Enrollment),
		progress:    make(map[progressKey]*models.Progress),
		trainings:   trainings,
	}
}

// Enroll assigns a training of the scoped organization to userID.
func (s *EnrollmentStore) Enroll(ctx context.Context, scope tenancy.Predicate, trainingID, userID, assignedBy int64, dueAt *time.Time) (*models.Enrollment, error) {
	if err := store.CheckScope(scope, tenancy.KindEnrollment); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.trainings.mu.RLock()
	defer s.trainings.mu.RUnlock()

	t, exists := s.trainings.trainings[trainingID]
	if !exists || !scope.Matches(t.OrgID) {
		return nil, store.ErrTrainingNotFound
	}

	key := enrollmentKey{userID: userID, trainingID: trainingID}
	if e, exists := s.enrollments[key]; exists {
		clone := *e
		return &clone, nil
	}

	now := time.Now()
	s.nextEnrollmentID++
	e := &models.Enrollment{
		EnrollmentID: s.nextEnrollmentID,
		UserID:       userID,
		TrainingID:   trainingID,
		Status:       models.EnrollmentAssigned,
		AssignedBy:   assignedBy,
		DueAt:        dueAt,
		CreatedAt:    now,
	}
	s.enrollments[key] = e

	for _, m := range s.trainings.modules[trainingID] {
		pk := progressKey{userID: userID, moduleID: m.ModuleID}
		if _, exists := s.progress[pk]; exists {
			continue
		}
		s.nextProgressID++
		s.progress[pk] = &models.Progress{
			ProgressID: s.nextProgressID,
			UserID:     userID,
			ModuleID:   m.ModuleID,
			Status:     models.ProgressNotStarted,
			CreatedAt:  now,
		}
	}

	clone := *e
	return &clone, nil
}

// ListProgress returns progress rows of the scoped organization.
func (s *EnrollmentStore) ListProgress(ctx context.Context, scope tenancy.Predicate, userID int64) ([]*models.Progress, error) {
	if err := store.CheckScope(scope, tenancy.KindProgress); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	s.trainings.mu.RLock()
	defer s.trainings.mu.RUnlock()

	moduleOrg := make(map[int64]int64)
	for trainingID, mods := range s.trainings.modules {
		t, exists := s.trainings.trainings[trainingID]
		if !exists {
			continue
		}
		for _, m := range mods {
			moduleOrg[m.ModuleID] = t.OrgID
		}
	}

	var result []*models.Progress
	for _, p := range s.progress {
		if userID != 0 && p.UserID != userID {
			continue
		}
		if !scope.Matches(moduleOrg[p.ModuleID]) {
			continue
		}
		clone := *p
		result = append(result, &clone)
	}

	slices.SortFunc(result, func(a, b *models.Progress) int {
		if c := cmp.Compare(a.ModuleID, b.ModuleID); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})

	return result, nil
}
