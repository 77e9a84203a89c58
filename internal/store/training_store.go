package store

import (
	"context"
	"errors"

	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

// Sentinel errors for training store operations
var (
	ErrTrainingNotFound = errors.New("training not found")
)

// TrainingStore stores trainings and their modules.
//
// Training methods take a KindTraining scope. Module methods take a KindModule scope, which
// reaches the tenant key through the parent training; a module can only be added to or listed
// from a training inside the scoped organization.
type TrainingStore interface {
	// Create stores a training in the scoped organization.
	Create(ctx context.Context, scope tenancy.Predicate, training *models.Training) error

	// Get returns a training of the scoped organization.
	// Returns ErrTrainingNotFound for unknown ids and for trainings of other organizations.
	Get(ctx context.Context, scope tenancy.Predicate, trainingID int64) (*models.Training, error)

	// List returns trainings of the scoped organization, newest first.
	List(ctx context.Context, scope tenancy.Predicate, activeOnly bool) ([]*models.Training, error)

	// AddModule appends a module to a training of the scoped organization.
	// Returns ErrTrainingNotFound if the training is outside the scope.
	AddModule(ctx context.Context, scope tenancy.Predicate, module *models.Module) error

	// ListModules returns the modules of a training ordered by OrderIndex.
	// Returns ErrTrainingNotFound if the training is outside the scope.
	ListModules(ctx context.Context, scope tenancy.Predicate, trainingID int64) ([]*models.Module, error)
}
