package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/rbac"
	"github.com/wolfeidau/cybaware/internal/store"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

// MembershipStore implements store.MembershipStore using PostgreSQL.
// The role column is read back verbatim; validation belongs to the access guard.
type MembershipStore struct {
	pool *pgxpool.Pool
}

// NewMembershipStore creates a new PostgreSQL-backed membership store.
func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

// Find returns the raw membership for (userID, orgID).
func (s *MembershipStore) Find(ctx context.Context, userID, orgID int64) (*models.Membership, error) {
	var m models.Membership
	err := s.pool.QueryRow(ctx, `
		SELECT membership_id, user_id, org_id, role, created_at
		FROM memberships
		WHERE user_id = $1 AND org_id = $2
	`, userID, orgID).Scan(&m.MembershipID, &m.UserID, &m.OrgID, &m.Role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to find membership: %w", mapPostgresError(err))
	}

	return &m, nil
}

// Get returns the membership of userID in the scoped organization.
func (s *MembershipStore) Get(ctx context.Context, scope tenancy.Predicate, userID int64) (*models.Membership, error) {
	if err := store.CheckScope(scope, tenancy.KindMembership); err != nil {
		return nil, err
	}

	joins, where, arg := scope.SQL(2)
	var m models.Membership
	err := s.pool.QueryRow(ctx, `
		SELECT memberships.membership_id, memberships.user_id, memberships.org_id,
			memberships.role, memberships.created_at
		FROM memberships`+joins+`
		WHERE memberships.user_id = $1 AND `+where, userID, arg,
	).Scan(&m.MembershipID, &m.UserID, &m.OrgID, &m.Role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", mapPostgresError(err))
	}

	return &m, nil
}

// Create adds a member to the scoped organization.
func (s *MembershipStore) Create(ctx context.Context, scope tenancy.Predicate, userID int64, role string) (*models.Membership, error) {
	if err := store.CheckScope(scope, tenancy.KindMembership); err != nil {
		return nil, err
	}

	m := models.Membership{UserID: userID, OrgID: scope.OrgID(), Role: role}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO memberships (user_id, org_id, role)
		VALUES ($1, $2, $3)
		RETURNING membership_id, created_at
	`, m.UserID, m.OrgID, m.Role).Scan(&m.MembershipID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", mapPostgresError(err))
	}

	log.Debug().
		Int64("org_id", m.OrgID).
		Int64("user_id", m.UserID).
		Str("role", m.Role).
		Msg("Created membership")

	return &m, nil
}

// List returns the members of the scoped organization.
func (s *MembershipStore) List(ctx context.Context, scope tenancy.Predicate) ([]*models.Membership, error) {
	if err := store.CheckScope(scope, tenancy.KindMembership); err != nil {
		return nil, err
	}

	joins, where, arg := scope.SQL(1)
	query := `
		SELECT memberships.membership_id, memberships.user_id, memberships.org_id,
			memberships.role, memberships.created_at
		FROM memberships` + joins + `
		WHERE ` + where + `
		ORDER BY memberships.user_id
	`

	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var result []*models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.MembershipID, &m.UserID, &m.OrgID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		result = append(result, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}

	return result, nil
}

// Delete removes a member from the scoped organization. The organization's memberships
// are locked for the duration of the check so concurrent removals cannot drop the last owner.
func (s *MembershipStore) Delete(ctx context.Context, scope tenancy.Predicate, userID int64) error {
	if err := store.CheckScope(scope, tenancy.KindMembership); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	joins, where, arg := scope.SQL(1)
	rows, err := tx.Query(ctx, `
		SELECT memberships.user_id, memberships.role
		FROM memberships`+joins+`
		WHERE `+where+`
		ORDER BY memberships.membership_id
		FOR UPDATE OF memberships
	`, arg)
	if err != nil {
		return fmt.Errorf("failed to lock memberships: %w", mapPostgresError(err))
	}

	var (
		found  bool
		target string
		owners int
	)
	for rows.Next() {
		var (
			id   int64
			role string
		)
		if err := rows.Scan(&id, &role); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan membership: %w", err)
		}
		if role == string(rbac.RoleOwner) {
			owners++
		}
		if id == userID {
			found = true
			target = role
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating memberships: %w", err)
	}

	if !found {
		return store.ErrMembershipNotFound
	}
	if target == string(rbac.RoleOwner) && owners <= 1 {
		return store.ErrLastOwner
	}

	_, where, arg = scope.SQL(2)
	if _, err := tx.Exec(ctx, `DELETE FROM memberships WHERE memberships.user_id = $1 AND `+where, userID, arg); err != nil {
		return fmt.Errorf("failed to delete membership: %w", mapPostgresError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit membership removal: %w", err)
	}

	log.Debug().
		Int64("org_id", scope.OrgID()).
		Int64("user_id", userID).
		Msg("Deleted membership")

	return nil
}
