package server

import (
	"net/http"
	"strings"
	"time"

	httpmiddleware "github.com/wolfeidau/cybaware/internal/http"
	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

type createProjectRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type projectResponse struct {
	ProjectID   int64     `json:"project_id"`
	OrgID       int64     `json:"org_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func toProjectResponse(p *models.Project) projectResponse {
	return projectResponse{
		ProjectID:   p.ProjectID,
		OrgID:       p.OrgID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
	scope, ok := s.scope(w, r, ac, tenancy.KindProject)
	if !ok {
		return
	}

	projects, err := s.stores.Projects.List(r.Context(), scope)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	resp := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, toProjectResponse(p))
	}
	httpmiddleware.WriteJSON(w, r, http.StatusOK, resp)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
	var req createProjectRequest
	if err := httpmiddleware.DecodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if !s.valid(w, r, &req) {
		return
	}

	scope, ok := s.scope(w, r, ac, tenancy.KindProject)
	if !ok {
		return
	}

	project := &models.Project{Name: req.Name, Description: req.Description}
	if err := s.stores.Projects.Create(r.Context(), scope, project); err != nil {
		writeStoreError(w, r, err)
		return
	}

	httpmiddleware.WriteJSON(w, r, http.StatusCreated, toProjectResponse(project))
}
