package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/store"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

// ProjectStore implements store.ProjectStore using PostgreSQL.
type ProjectStore struct {
	pool *pgxpool.Pool
}

// NewProjectStore creates a new PostgreSQL-backed project store.
func NewProjectStore(pool *pgxpool.Pool) *ProjectStore {
	return &ProjectStore{pool: pool}
}

// Create inserts a project owned by the scoped organization.
func (s *ProjectStore) Create(ctx context.Context, scope tenancy.Predicate, project *models.Project) error {
	if err := store.CheckScope(scope, tenancy.KindProject); err != nil {
		return err
	}

	project.OrgID = scope.OrgID()
	err := s.pool.QueryRow(ctx, `
		INSERT INTO projects (org_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING project_id, created_at
	`, project.OrgID, project.Name, project.Description).Scan(&project.ProjectID, &project.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", mapPostgresError(err))
	}

	return nil
}

// Get returns a project of the scoped organization.
func (s *ProjectStore) Get(ctx context.Context, scope tenancy.Predicate, projectID int64) (*models.Project, error) {
	if err := store.CheckScope(scope, tenancy.KindProject); err != nil {
		return nil, err
	}

	joins, where, arg := scope.SQL(2)
	query := `
		SELECT projects.project_id, projects.org_id, projects.name, projects.description, projects.created_at
		FROM projects` + joins + `
		WHERE projects.project_id = $1 AND ` + where

	var p models.Project
	err := s.pool.QueryRow(ctx, query, projectID, arg).Scan(&p.ProjectID, &p.OrgID, &p.Name, &p.Description, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", mapPostgresError(err))
	}

	return &p, nil
}

// List returns the projects of the scoped organization ordered by ID.
func (s *ProjectStore) List(ctx context.Context, scope tenancy.Predicate) ([]*models.Project, error) {
	if err := store.CheckScope(scope, tenancy.KindProject); err != nil {
		return nil, err
	}

	joins, where, arg := scope.SQL(1)
	query := `
		SELECT projects.project_id, projects.org_id, projects.name, projects.description, projects.created_at
		FROM projects` + joins + `
		WHERE ` + where + `
		ORDER BY projects.project_id
	`

	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", mapPostgresError(err))
	}

	projects, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Project, error) {
		var p models.Project
		err := row.Scan(&p.ProjectID, &p.OrgID, &p.Name, &p.Description, &p.CreatedAt)
		return &p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan projects: %w", err)
	}

	return projects, nil
}
