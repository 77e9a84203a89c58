package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/store"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

// EnrollmentStore implements store.EnrollmentStore using PostgreSQL.
//
// Enrollments reach their organization through trainings and progress rows through
// modules then trainings, so every query takes its joins from the predicate.
type EnrollmentStore struct {
	pool *pgxpool.Pool
}

// NewEnrollmentStore creates a new PostgreSQL-backed enrollment store.
func NewEnrollmentStore(pool *pgxpool.Pool) *EnrollmentStore {
	return &EnrollmentStore{pool: pool}
}

// Enroll assigns a training of the scoped organization to userID and seeds a NOT_STARTED
// progress row for each of its modules. Repeating the call returns the existing enrollment.
func (s *EnrollmentStore) Enroll(ctx context.Context, scope tenancy.Predicate, trainingID, userID, assignedBy int64, dueAt *time.Time) (*models.Enrollment, error) {
	if err := store.CheckScope(scope, tenancy.KindEnrollment); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	// the tenant column of the predicate lives on trainings
	_, where, arg := scope.SQL(2)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM trainings WHERE trainings.training_id = $1 AND `+where+`)`,
		trainingID, arg,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check training: %w", mapPostgresError(err))
	}
	if !exists {
		return nil, store.ErrTrainingNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO enrollments (user_id, training_id, status, assigned_by, due_at)
		VALUES ($1, $2, $3, NULLIF($4, 0), $5)
		ON CONFLICT (user_id, training_id) DO NOTHING
	`, userID, trainingID, models.EnrollmentAssigned, assignedBy, dueAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create enrollment: %w", mapPostgresError(err))
	}

	var e models.Enrollment
	err = tx.QueryRow(ctx, `
		SELECT enrollment_id, user_id, training_id, status, COALESCE(assigned_by, 0), due_at, created_at
		FROM enrollments
		WHERE user_id = $1 AND training_id = $2
	`, userID, trainingID).Scan(&e.EnrollmentID, &e.UserID, &e.TrainingID, &e.Status, &e.AssignedBy, &e.DueAt, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read enrollment: %w", mapPostgresError(err))
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO progress (user_id, module_id, status)
		SELECT $1, modules.module_id, $3
		FROM modules
		WHERE modules.training_id = $2
		ON CONFLICT (user_id, module_id) DO NOTHING
	`, userID, trainingID, models.ProgressNotStarted)
	if err != nil {
		return nil, fmt.Errorf("failed to create progress: %w", mapPostgresError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit enrollment: %w", err)
	}

	log.Debug().
		Int64("org_id", scope.OrgID()).
		Int64("training_id", trainingID).
		Int64("user_id", userID).
		Msg("Enrolled user")

	return &e, nil
}

// ListProgress returns progress rows of the scoped organization ordered by module then
// user. A non-zero userID limits the rows to that user.
func (s *EnrollmentStore) ListProgress(ctx context.Context, scope tenancy.Predicate, userID int64) ([]*models.Progress, error) {
	if err := store.CheckScope(scope, tenancy.KindProgress); err != nil {
		return nil, err
	}

	joins, where, arg := scope.SQL(1)
	query := `
		SELECT progress.progress_id, progress.user_id, progress.module_id,
			progress.status, progress.created_at
		FROM progress` + joins + `
		WHERE ` + where
	args := []any{arg}
	if userID != 0 {
		query += ` AND progress.user_id = $2`
		args = append(args, userID)
	}
	query += ` ORDER BY progress.module_id, progress.user_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", mapPostgresError(err))
	}

	progress, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Progress, error) {
		var p models.Progress
		err := row.Scan(&p.ProgressID, &p.UserID, &p.ModuleID, &p.Status, &p.CreatedAt)
		return &p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan progress: %w", err)
	}

	return progress, nil
}
