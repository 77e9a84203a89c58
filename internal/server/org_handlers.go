package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	httpmiddleware "github.com/wolfeidau/cybaware/internal/http"
	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/rbac"
	"github.com/wolfeidau/cybaware/internal/store"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

type createOrganizationRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Slug string `json:"slug" validate:"required,slug"`
}

type organizationResponse struct {
	OrgID     int64     `json:"org_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	Role      string    `json:"role,omitempty"`
}

// addMemberRequest identifies the user by id or, when user_id is absent, by email.
type addMemberRequest struct {
	UserID int64  `json:"user_id" validate:"required_without=Email,gte=0"`
	Email  string `json:"email" validate:"omitempty,email,max=254"`
	Role   string `json:"role" validate:"required,role"`
}

type membershipResponse struct {
	UserID    int64     `json:"user_id"`
	OrgID     int64     `json:"org_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toOrganizationResponse(o *models.Organization, role rbac.Role) organizationResponse {
	return organizationResponse{
		OrgID:     o.OrgID,
		Name:      o.Name,
		Slug:      o.Slug,
		CreatedAt: o.CreatedAt,
		Role:      role.String(),
	}
}

func toMembershipResponse(m *models.Membership) membershipResponse {
	return membershipResponse{
		UserID:    m.UserID,
		OrgID:     m.OrgID,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
	}
}

func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req createOrganizationRequest
	if err := httpmiddleware.DecodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if !s.valid(w, r, &req) {
		return
	}

	org := &models.Organization{Name: req.Name, Slug: req.Slug}
	if err := s.stores.Organizations.CreateWithOwner(r.Context(), org, user.UserID); err != nil {
		writeStoreError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Int64("org_id", org.OrgID).Str("slug", org.Slug).Msg("organization created")
	httpmiddleware.WriteJSON(w, r, http.StatusCreated, toOrganizationResponse(org, rbac.RoleOwner))
}

func (s *Server) getOrganization(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
	org, err := s.stores.Organizations.Get(r.Context(), ac.OrgID())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	httpmiddleware.WriteJSON(w, r, http.StatusOK, toOrganizationResponse(org, ac.Role()))
}

func (s *Server) deleteOrganization(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
	if err := s.stores.Organizations.Delete(r.Context(), ac.OrgID()); err != nil {
		writeStoreError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Msg("organization deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
	scope, ok := s.scope(w, r, ac, tenancy.KindMembership)
	if !ok {
		return
	}

	members, err := s.stores.Memberships.List(r.Context(), scope)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	resp := make([]membershipResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, toMembershipResponse(m))
	}
	httpmiddleware.WriteJSON(w, r, http.StatusOK, resp)
}

// addMember grants a role to an existing user. A caller can never grant a role ranked above
// its own.
func (s *Server) addMember(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
	var req addMemberRequest
	if err := httpmiddleware.DecodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if !s.valid(w, r, &req) {
		return
	}

	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		badRequest(w, r, "invalid role")
		return
	}
	if role.Rank() > ac.Role().Rank() {
		httpmiddleware.WriteError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	user, err := s.lookupUser(r, req)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	scope, ok := s.scope(w, r, ac, tenancy.KindMembership)
	if !ok {
		return
	}

	m, err := s.stores.Memberships.Create(r.Context(), scope, user.UserID, role.String())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Int64("member_id", user.UserID).Stringer("granted", role).Msg("member added")
	httpmiddleware.WriteJSON(w, r, http.StatusCreated, toMembershipResponse(m))
}

func (s *Server) lookupUser(r *http.Request, req addMemberRequest) (*models.User, error) {
	if req.UserID > 0 {
		return s.stores.Users.Get(r.Context(), req.UserID)
	}
	if req.Email != "" {
		return s.stores.Users.GetByEmail(r.Context(), req.Email)
	}
	return nil, store.ErrUserNotFound
}

// removeMember deletes a membership. Only an OWNER can remove an OWNER. The store refuses to
// remove the last OWNER of an organization.
func (s *Server) removeMember(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
	userID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil || userID <= 0 {
		badRequest(w, r, "invalid user id")
		return
	}

	scope, ok := s.scope(w, r, ac, tenancy.KindMembership)
	if !ok {
		return
	}

	target, err := s.stores.Memberships.Get(r.Context(), scope, userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	// A corrupt stored role is not an owner and may be removed by an admin.
	if targetRole, _ := rbac.ParseRole(target.Role); targetRole == rbac.RoleOwner && ac.Role() != rbac.RoleOwner {
		httpmiddleware.WriteError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	if err := s.stores.Memberships.Delete(r.Context(), scope, userID); err != nil {
		writeStoreError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Int64("member_id", userID).Msg("member removed")
	w.WriteHeader(http.StatusNoContent)
}
