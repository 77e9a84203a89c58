package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/cybaware/internal/auth"
	"github.com/wolfeidau/cybaware/internal/logger"
	"github.com/wolfeidau/cybaware/internal/server"
	memorystore "github.com/wolfeidau/cybaware/internal/store/memory"
	postgresstore "github.com/wolfeidau/cybaware/internal/store/postgres"
	"github.com/wolfeidau/cybaware/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ServeCmd struct {
	Listen     string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"CYBAWARE_LISTEN"`
	BaseDomain string `help:"apex domain organizations are served under as subdomains, empty disables subdomain resolution" default:"" env:"CYBAWARE_BASE_DOMAIN"`

	CORSOrigins []string `help:"allowed CORS origins" default:"http://localhost:3000" env:"CYBAWARE_CORS_ORIGINS"`

	Token      TokenFlags `embed:"" prefix:"token-"`
	BcryptCost int        `help:"bcrypt cost for new password hashes, 0 uses the library default" default:"0" env:"CYBAWARE_BCRYPT_COST"`

	Tracing     bool    `help:"enable OpenTelemetry export" default:"false" env:"CYBAWARE_TRACING"`
	SampleRatio float64 `help:"trace sample ratio" default:"1.0" env:"CYBAWARE_TRACE_SAMPLE_RATIO"`

	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"CYBAWARE_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`

	ShutdownTimeout time.Duration `help:"grace period for in-flight requests on shutdown" default:"15s" env:"CYBAWARE_SHUTDOWN_TIMEOUT"`
}

type PostgresStoreFlags struct {
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	MaxConns        int32         `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`
	ConnectRetry    time.Duration `help:"how long to retry the initial connection" default:"30s"`

	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"CYBAWARE_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (c *ServeCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Dev)
	zerolog.DefaultContextLogger = &log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	log.Info().Str("version", globals.Version).Bool("dev", globals.Dev).Msg("Starting server")

	if c.Tracing {
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "cybaware-api",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	stores, health, closeStores, err := c.openStores(ctx, log)
	if err != nil {
		return err
	}
	defer closeStores()

	hasher, err := auth.NewBcryptHasher(c.BcryptCost)
	if err != nil {
		return err
	}
	codec, err := c.Token.codec()
	if err != nil {
		return fmt.Errorf("invalid token configuration: %w", err)
	}
	authn, err := auth.NewAuthenticator(codec, stores.Users, hasher)
	if err != nil {
		return err
	}
	tenants, err := auth.NewTenantResolver(auth.TenantConfig{BaseDomain: c.BaseDomain}, stores.Organizations)
	if err != nil {
		return fmt.Errorf("invalid tenant configuration: %w", err)
	}
	guard, err := auth.NewAccessGuard(authn, tenants, stores.Memberships)
	if err != nil {
		return err
	}

	api, err := server.NewServer(guard, hasher, stores, server.WithHealthCheck(health))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	handler := api.Handler(log)
	if c.Tracing {
		handler = otelhttp.NewHandler(handler, "cybaware-api")
	}
	handler = withCORS(c.CORSOrigins, handler)

	httpServer := configureHTTPServer(c.Listen, handler)
	httpServer.BaseContext = func(_ net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Str("base_domain", c.BaseDomain).Str("store", c.StoreType).Msg("Starting HTTP server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}
	return nil
}

func (c *ServeCmd) openStores(ctx context.Context, log zerolog.Logger) (server.Stores, server.HealthFunc, func(), error) {
	switch c.StoreType {
	case "postgres":
		if err := c.PostgresStore.Validate(); err != nil {
			return server.Stores{}, nil, nil, err
		}

		db, err := postgresstore.Open(ctx, &postgresstore.Config{
			Pool: postgresstore.PoolConfig{
				ConnString:      c.PostgresStore.ConnString,
				MaxConns:        c.PostgresStore.MaxConns,
				MinConns:        c.PostgresStore.MinConns,
				MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
				MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
			},
			AutoMigrate:         c.PostgresStore.AutoMigrate,
			ConnectRetryTimeout: c.PostgresStore.ConnectRetry,
		})
		if err != nil {
			return server.Stores{}, nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.Start()

		log.Info().Bool("auto_migrate", c.PostgresStore.AutoMigrate).Msg("Using PostgreSQL stores with shared connection pool")
		return server.Stores{
			Users:         db.Users(),
			Organizations: db.Organizations(),
			Memberships:   db.Memberships(),
			Projects:      db.Projects(),
			Trainings:     db.Trainings(),
			Enrollments:   db.Enrollments(),
		}, db.Ping, db.Close, nil

	default:
		members := memorystore.NewMembershipStore()
		trainings := memorystore.NewTrainingStore()
		log.Warn().Msg("Using in-memory stores, all data is lost on restart")
		return server.Stores{
			Users:         memorystore.NewUserStore(),
			Organizations: memorystore.NewOrganizationStore(members),
			Memberships:   members,
			Projects:      memorystore.NewProjectStore(),
			Trainings:     trainings,
			Enrollments:   memorystore.NewEnrollmentStore(trainings),
		}, nil, func() {}, nil
	}
}

func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", auth.OrgIDHeader, "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "WWW-Authenticate"},
		MaxAge:         600,
	})
	return middleware.Handler(h)
}
