package store

import (
	"context"
	"time"

	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

// EnrollmentStore assigns trainings to users and exposes their module progress.
type EnrollmentStore interface {
	// Enroll assigns a training of the scoped organization (a KindEnrollment scope) to userID
	// and creates a NOT_STARTED progress row for every module the training has. Enrolling
	// twice returns the existing enrollment unchanged.
	// Returns ErrTrainingNotFound if the training is outside the scope.
	Enroll(ctx context.Context, scope tenancy.Predicate, trainingID, userID, assignedBy int64, dueAt *time.Time) (*models.Enrollment, error)

	// ListProgress returns progress rows of the scoped organization (a KindProgress scope)
	// ordered by module and user. A userID of 0 returns every user.
	ListProgress(ctx context.Context, scope tenancy.Predicate, userID int64) ([]*models.Progress, error)
}
