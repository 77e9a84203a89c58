package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wolfeidau/cybaware/internal/store"
)

// constraintErrors maps named constraints from the schema to store sentinels.
var constraintErrors = map[string]error{
	"users_email_key":          store.ErrUserAlreadyExists,
	"organizations_name_key":   store.ErrOrganizationAlreadyExists,
	"organizations_slug_key":   store.ErrOrganizationAlreadyExists,
	"memberships_user_org_key": store.ErrMembershipAlreadyExists,
}

// foreignKeyErrors maps the referenced table of a foreign key violation to a not found sentinel.
var foreignKeyErrors = map[string]error{
	"memberships_user_id_fkey":     store.ErrUserNotFound,
	"memberships_org_id_fkey":      store.ErrOrganizationNotFound,
	"projects_org_id_fkey":         store.ErrOrganizationNotFound,
	"trainings_org_id_fkey":        store.ErrOrganizationNotFound,
	"modules_training_id_fkey":     store.ErrTrainingNotFound,
	"enrollments_user_id_fkey":     store.ErrUserNotFound,
	"enrollments_training_id_fkey": store.ErrTrainingNotFound,
	"progress_user_id_fkey":        store.ErrUserNotFound,
	"progress_module_id_fkey":      store.ErrTrainingNotFound,
}

// mapPostgresError maps PostgreSQL-specific errors to sentinel errors.
// Returns the original error if it's not a PostgreSQL error or doesn't match known patterns.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if sentinel, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return sentinel
		}
		return fmt.Errorf("unique constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.ForeignKeyViolation:
		if sentinel, ok := foreignKeyErrors[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: %s", sentinel, pgErr.Detail)
		}
		return fmt.Errorf("foreign key violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.CheckViolation:
		return fmt.Errorf("check constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("transaction conflict (retryable): %w", err)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		return fmt.Errorf("database connection error: %w", err)

	case pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown:
		return fmt.Errorf("database server unavailable: %w", err)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	case pgerrcode.InsufficientResources,
		pgerrcode.DiskFull,
		pgerrcode.OutOfMemory,
		pgerrcode.TooManyConnections:
		return fmt.Errorf("database resource limit: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s (detail: %s, hint: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, pgErr.Hint, err)
	}
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
