package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	httpmiddleware "github.com/wolfeidau/cybaware/internal/http"
	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

type createTrainingRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Active      *bool  `json:"active"`
}

type trainingResponse struct {
	TrainingID  int64     `json:"training_id"`
	OrgID       int64     `json:"org_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type addModuleRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	ContentURL  string `json:"content_url" validate:"omitempty,url"`
	OrderIndex  int    `json:"order_index" validate:"gte=0"`
	DurationMin int    `json:"duration_min" validate:"gte=0"`
}

type moduleResponse struct {
	ModuleID    int64     `json:"module_id"`
	TrainingID  int64     `json:"training_id"`
	Title       string    `json:"title"`
	ContentURL  string    `json:"content_url"`
	OrderIndex  int       `json:"order_index"`
	DurationMin int       `json:"duration_min"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTrainingResponse(t *models.Training) trainingResponse {
	return trainingResponse{
		TrainingID:  t.TrainingID,
		OrgID:       t.OrgID,
		Title:       t.Title,
		Description: t.Description,
		Active:      t.Active,
		CreatedAt:   t.CreatedAt,
	}
}

func toModuleResponse(m *models.Module) moduleResponse {
	return moduleResponse{
		ModuleID:    m.ModuleID,
		TrainingID:  m.TrainingID,
		Title:       m.Title,
		ContentURL:  m.ContentURL,
		OrderIndex:  m.OrderIndex,
		DurationMin: m.DurationMin,
		CreatedAt:   m.CreatedAt,
	}
}

func (s *Server) listTrainings(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))

	scope, ok := s.scope(w, r, ac, tenancy.KindTraining)
	if !ok {
		return
	}

	trainings, err := s.stores.Trainings.List(r.Context(), scope, activeOnly)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	resp := make([]trainingResponse, 0, len(trainings))
	for _, t := range trainings {
		resp = append(resp, toTrainingResponse(t))
	}
	httpmiddleware.WriteJSON(w, r, http.StatusOK, resp)
}

func (s *Server) createTraining(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
	var req createTrainingRequest
	if err := httpmiddleware.DecodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if !s.valid(w, r, &req) {
		return
	}

	scope, ok := s.scope(w, r, ac, tenancy.KindTraining)
	if !ok {
		return
	}

	training := &models.Training{
		Title:       req.Title,
		Description: req.Description,
		Active:      req.Active == nil || *req.Active,
	}
	if err := s.stores.Trainings.Create(r.Context(), scope, training); err != nil {
		writeStoreError(w, r, err)
		return
	}

	httpmiddleware.WriteJSON(w, r, http.StatusCreated, toTrainingResponse(training))
}

func trainingIDFromPath(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("trainingID"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) listModules(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
	trainingID, ok := trainingIDFromPath(r)
	if !ok {
		badRequest(w, r, "invalid training id")
		return
	}

	scope, ok := s.scope(w, r, ac, tenancy.KindModule)
	if !ok {
		return
	}

	modules, err := s.stores.Trainings.ListModules(r.Context(), scope, trainingID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	resp := make([]moduleResponse, 0, len(modules))
	for _, m := range modules {
		resp = append(resp, toModuleResponse(m))
	}
	httpmiddleware.WriteJSON(w, r, http.StatusOK, resp)
}

func (s *Server) addModule(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
	trainingID, ok := trainingIDFromPath(r)
	if !ok {
		badRequest(w, r, "invalid training id")
		return
	}

	var req addModuleRequest
	if err := httpmiddleware.DecodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if !s.valid(w, r, &req) {
		return
	}

	scope, ok := s.scope(w, r, ac, tenancy.KindModule)
	if !ok {
		return
	}

	module := &models.Module{
		TrainingID:  trainingID,
		Title:       req.Title,
		ContentURL:  req.ContentURL,
		OrderIndex:  req.OrderIndex,
		DurationMin: req.DurationMin,
	}
	if err := s.stores.Trainings.AddModule(r.Context(), scope, module); err != nil {
		writeStoreError(w, r, err)
		return
	}

	httpmiddleware.WriteJSON(w, r, http.StatusCreated, toModuleResponse(module))
}
