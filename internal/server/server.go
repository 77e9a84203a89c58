package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/cybaware/internal/auth"
	httpmiddleware "github.com/wolfeidau/cybaware/internal/http"
	"github.com/wolfeidau/cybaware/internal/logger"
	"github.com/wolfeidau/cybaware/internal/rbac"
	"github.com/wolfeidau/cybaware/internal/store"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

// Stores groups the storage collaborators of the API.
type Stores struct {
	Users         store.UserStore
	Organizations store.OrganizationStore
	Memberships   store.MembershipStore
	Projects      store.ProjectStore
	Trainings     store.TrainingStore
	Enrollments   store.EnrollmentStore
}

func (s Stores) validate() error {
	if s.Users == nil || s.Organizations == nil || s.Memberships == nil || s.Projects == nil ||
		s.Trainings == nil || s.Enrollments == nil {
		return errors.New("all stores are required")
	}
	return nil
}

// HealthFunc reports whether a dependency is usable.
type HealthFunc func(ctx context.Context) error

// Server is the CybAware HTTP API.
type Server struct {
	guard  *auth.AccessGuard
	authn  *auth.Authenticator
	hasher auth.PasswordHasher
	filter *tenancy.Filter
	stores Stores
	health HealthFunc

	validate *validator.Validate
}

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck adds a dependency check to /healthz.
func WithHealthCheck(fn HealthFunc) Option {
	return func(s *Server) {
		s.health = fn
	}
}

// WithFilter replaces the default tenant scope registry.
func WithFilter(f *tenancy.Filter) Option {
	return func(s *Server) {
		s.filter = f
	}
}

// NewServer creates the API server.
func NewServer(guard *auth.AccessGuard, hasher auth.PasswordHasher, stores Stores, opts ...Option) (*Server, error) {
	if guard == nil || hasher == nil {
		return nil, errors.New("access guard and password hasher are required")
	}
	if err := stores.validate(); err != nil {
		return nil, err
	}

	s := &Server{
		guard:  guard,
		authn:  guard.Authenticator(),
		hasher: hasher,
		filter: tenancy.DefaultFilter(),
		stores: stores,

		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.filter.Validate(ScopedKinds...); err != nil {
		return nil, err
	}

	return s, nil
}

// ScopedKinds lists every tenant-owned entity the handlers query.
var ScopedKinds = []tenancy.EntityKind{
	tenancy.KindMembership,
	tenancy.KindProject,
	tenancy.KindTraining,
	tenancy.KindModule,
	tenancy.KindEnrollment,
	tenancy.KindProgress,
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.healthz)

	mux.HandleFunc("POST /auth/register", s.register)
	mux.HandleFunc("POST /auth/login", s.login)
	mux.Handle("GET /auth/me", s.guard.RequireUser(s.me))
	mux.Handle("PATCH /auth/me", s.guard.RequireUser(s.updateMe))

	mux.Handle("POST /orgs", s.guard.RequireUser(s.createOrganization))

	mux.Handle("GET /org", s.guard.Protect(rbac.AnyMember(true), s.getOrganization))
	mux.Handle("DELETE /org", s.guard.Protect(rbac.OneOf(false, rbac.RoleOwner), s.deleteOrganization))
	mux.Handle("GET /org/members", s.guard.Protect(rbac.AtLeast(rbac.RoleAdmin, true), s.listMembers))
	mux.Handle("POST /org/members", s.guard.Protect(rbac.OneOf(true, rbac.RoleAdmin), s.addMember))
	mux.Handle("DELETE /org/members/{userID}", s.guard.Protect(rbac.AtLeast(rbac.RoleAdmin, true), s.removeMember))

	mux.Handle("GET /projects", s.guard.Protect(rbac.AnyMember(true), s.listProjects))
	mux.Handle("POST /projects", s.guard.Protect(rbac.OneOf(true, rbac.RoleAdmin, rbac.RoleManager), s.createProject))

	mux.Handle("GET /trainings", s.guard.Protect(rbac.AtLeast(rbac.RoleManager, true), s.listTrainings))
	mux.Handle("POST /trainings", s.guard.Protect(rbac.AtLeast(rbac.RoleManager, true), s.createTraining))
	mux.Handle("GET /trainings/{trainingID}/modules", s.guard.Protect(rbac.AtLeast(rbac.RoleManager, true), s.listModules))
	mux.Handle("POST /trainings/{trainingID}/modules", s.guard.Protect(rbac.AtLeast(rbac.RoleManager, true), s.addModule))
	mux.Handle("POST /trainings/{trainingID}/enroll", s.guard.Protect(rbac.AtLeast(rbac.RoleManager, true), s.enrollUsers))

	mux.Handle("GET /progress", s.guard.Protect(rbac.AnyMember(true), s.listProgress))
	mux.Handle("GET /progress/me", s.guard.Protect(rbac.AnyMember(true), s.myProgress))

	return httpmiddleware.RequestMetadata()(logger.RequestLogger(log)(mux))
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
			httpmiddleware.WriteError(w, r, http.StatusServiceUnavailable, "unhealthy")
			return
		}
	}
	httpmiddleware.WriteJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// scope returns the predicate for kind. A failure here is a programming error, checked at
// startup by NewServer, so it is reported as a 500.
func (s *Server) scope(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext, kind tenancy.EntityKind) (tenancy.Predicate, bool) {
	p, err := s.filter.Predicate(ac, kind)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("kind", string(kind)).Msg("failed to build tenant scope")
		httpmiddleware.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return tenancy.Predicate{}, false
	}
	return p, true
}

// writeStoreError maps store sentinels to responses.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrOrganizationNotFound),
		errors.Is(err, store.ErrMembershipNotFound),
		errors.Is(err, store.ErrProjectNotFound),
		errors.Is(err, store.ErrTrainingNotFound):
		httpmiddleware.WriteError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrUserAlreadyExists),
		errors.Is(err, store.ErrOrganizationAlreadyExists),
		errors.Is(err, store.ErrMembershipAlreadyExists):
		httpmiddleware.WriteError(w, r, http.StatusConflict, "already exists")
	case errors.Is(err, store.ErrLastOwner):
		httpmiddleware.WriteError(w, r, http.StatusConflict, "cannot remove the last owner")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("store operation failed")
		httpmiddleware.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	httpmiddleware.WriteError(w, r, http.StatusBadRequest, msg)
}
