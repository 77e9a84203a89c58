package store

import (
	"context"
	"errors"

	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

var ErrProjectNotFound = errors.New("project not found")

// ProjectStore stores organization projects. Every method is scoped; the OrgID of a created
// project is taken from the scope, never from the argument.
type ProjectStore interface {
	Create(ctx context.Context, scope tenancy.Predicate, project *models.Project) error
	Get(ctx context.Context, scope tenancy.Predicate, projectID int64) (*models.Project, error)
	List(ctx context.Context, scope tenancy.Predicate) ([]*models.Project, error)
}
