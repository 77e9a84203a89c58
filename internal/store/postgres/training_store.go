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

const trainingColumns = `trainings.training_id, trainings.org_id, trainings.title,
	trainings.description, trainings.active, trainings.created_at`

// TrainingStore implements store.TrainingStore using PostgreSQL.
//
// Module queries take a KindModule predicate whose tenant column lives on trainings,
// so the training lookups below select FROM trainings and reuse the predicate's
// WHERE clause directly.
type TrainingStore struct {
	pool *pgxpool.Pool
}

// NewTrainingStore creates a new PostgreSQL-backed training store.
func NewTrainingStore(pool *pgxpool.Pool) *TrainingStore {
	return &TrainingStore{pool: pool}
}

// Create inserts a training owned by the scoped organization.
func (s *TrainingStore) Create(ctx context.Context, scope tenancy.Predicate, training *models.Training) error {
	if err := store.CheckScope(scope, tenancy.KindTraining); err != nil {
		return err
	}

	training.OrgID = scope.OrgID()
	err := s.pool.QueryRow(ctx, `
		INSERT INTO trainings (org_id, title, description, active)
		VALUES ($1, $2, $3, $4)
		RETURNING training_id, created_at
	`, training.OrgID, training.Title, training.Description, training.Active).Scan(&training.TrainingID, &training.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create training: %w", mapPostgresError(err))
	}

	return nil
}

// Get returns a training of the scoped organization.
func (s *TrainingStore) Get(ctx context.Context, scope tenancy.Predicate, trainingID int64) (*models.Training, error) {
	if err := store.CheckScope(scope, tenancy.KindTraining); err != nil {
		return nil, err
	}

	joins, where, arg := scope.SQL(2)
	query := `SELECT ` + trainingColumns + ` FROM trainings` + joins +
		` WHERE trainings.training_id = $1 AND ` + where

	t, err := scanTraining(s.pool.QueryRow(ctx, query, trainingID, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrTrainingNotFound
		}
		return nil, fmt.Errorf("failed to get training: %w", mapPostgresError(err))
	}

	return t, nil
}

// List returns trainings of the scoped organization, newest first.
func (s *TrainingStore) List(ctx context.Context, scope tenancy.Predicate, activeOnly bool) ([]*models.Training, error) {
	if err := store.CheckScope(scope, tenancy.KindTraining); err != nil {
		return nil, err
	}

	joins, where, arg := scope.SQL(1)
	query := `SELECT ` + trainingColumns + ` FROM trainings` + joins + ` WHERE ` + where
	if activeOnly {
		query += ` AND trainings.active`
	}
	query += ` ORDER BY trainings.created_at DESC, trainings.training_id DESC`

	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list trainings: %w", mapPostgresError(err))
	}

	trainings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Training, error) {
		return scanTraining(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan trainings: %w", err)
	}

	return trainings, nil
}

// AddModule appends a module to a training of the scoped organization. The insert selects
// the parent training through the predicate so a foreign training inserts nothing.
func (s *TrainingStore) AddModule(ctx context.Context, scope tenancy.Predicate, module *models.Module) error {
	if err := store.CheckScope(scope, tenancy.KindModule); err != nil {
		return err
	}

	_, where, arg := scope.SQL(6)
	query := `
		INSERT INTO modules (training_id, title, content_url, order_index, duration_min)
		SELECT trainings.training_id, $2, $3, $4, $5
		FROM trainings
		WHERE trainings.training_id = $1 AND ` + where + `
		RETURNING module_id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		module.TrainingID,
		module.Title,
		module.ContentURL,
		module.OrderIndex,
		module.DurationMin,
		arg,
	).Scan(&module.ModuleID, &module.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrTrainingNotFound
		}
		return fmt.Errorf("failed to add module: %w", mapPostgresError(err))
	}

	return nil
}

// ListModules returns the modules of a training of the scoped organization.
func (s *TrainingStore) ListModules(ctx context.Context, scope tenancy.Predicate, trainingID int64) ([]*models.Module, error) {
	if err := store.CheckScope(scope, tenancy.KindModule); err != nil {
		return nil, err
	}

	joins, where, arg := scope.SQL(2)

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM trainings WHERE trainings.training_id = $1 AND `+where+`)`,
		trainingID, arg,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check training: %w", mapPostgresError(err))
	}
	if !exists {
		return nil, store.ErrTrainingNotFound
	}

	query := `
		SELECT modules.module_id, modules.training_id, modules.title, modules.content_url,
			modules.order_index, modules.duration_min, modules.created_at
		FROM modules` + joins + `
		WHERE modules.training_id = $1 AND ` + where + `
		ORDER BY modules.order_index, modules.module_id
	`

	rows, err := s.pool.Query(ctx, query, trainingID, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", mapPostgresError(err))
	}

	modules, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Module, error) {
		var m models.Module
		err := row.Scan(&m.ModuleID, &m.TrainingID, &m.Title, &m.ContentURL, &m.OrderIndex, &m.DurationMin, &m.CreatedAt)
		return &m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan modules: %w", err)
	}

	return modules, nil
}

func scanTraining(row pgx.Row) (*models.Training, error) {
	var t models.Training
	err := row.Scan(&t.TrainingID, &t.OrgID, &t.Title, &t.Description, &t.Active, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
