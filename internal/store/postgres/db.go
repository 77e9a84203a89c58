package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// DB owns the connection pool shared by the PostgreSQL stores.
type DB struct {
	pool *pgxpool.Pool
	cfg  *Config

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Open connects to PostgreSQL, retrying until cfg.ConnectRetryTimeout, and applies the
// embedded migrations when cfg.AutoMigrate is set.
func Open(ctx context.Context, cfg *Config) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pool, err := ConnectWithRetry(ctx, &cfg.Pool, cfg.ConnectRetryTimeout)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := runMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DB{
		pool:   pool,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}, nil
}

// Start begins background pool monitoring.
func (db *DB) Start() {
	db.wg.Add(1)
	go func() {
		defer db.wg.Done()
		db.monitorConnectionPool()
	}()
}

// Close stops background tasks and closes the pool. It is safe to call more than once.
func (db *DB) Close() {
	db.stopOnce.Do(func() {
		log.Info().Msg("Closing PostgreSQL stores")
		close(db.stopCh)
		db.wg.Wait()
		db.pool.Close()
	})
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Users returns the user store.
func (db *DB) Users() *UserStore { return NewUserStore(db.pool) }

// Organizations returns the organization store.
func (db *DB) Organizations() *OrganizationStore { return NewOrganizationStore(db.pool) }

// Memberships returns the membership store.
func (db *DB) Memberships() *MembershipStore { return NewMembershipStore(db.pool) }

// Projects returns the project store.
func (db *DB) Projects() *ProjectStore { return NewProjectStore(db.pool) }

// Trainings returns the training store.
func (db *DB) Trainings() *TrainingStore { return NewTrainingStore(db.pool) }

// Enrollments returns the enrollment store.
func (db *DB) Enrollments() *EnrollmentStore { return NewEnrollmentStore(db.pool) }

// monitorConnectionPool logs connection pool statistics periodically.
func (db *DB) monitorConnectionPool() {
	ticker := time.NewTicker(db.cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := db.pool.Stat()
			log.Debug().
				Int32("total_conns", stats.TotalConns()).
				Int32("idle_conns", stats.IdleConns()).
				Int32("acquired_conns", stats.AcquiredConns()).
				Int64("acquire_count", stats.AcquireCount()).
				Dur("acquire_duration", stats.AcquireDuration()).
				Msg("Connection pool stats")
		case <-db.stopCh:
			return
		}
	}
}
