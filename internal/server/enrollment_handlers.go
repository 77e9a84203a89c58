package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	httpmiddleware "github.com/wolfeidau/cybaware/internal/http"
	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/store"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

type enrollRequest struct {
	Emails []string   `json:"emails" validate:"required,min=1,max=100,dive,required,email"`
	DueAt  *time.Time `json:"due_at"`
}

type enrollmentResponse struct {
	EnrollmentID int64      `json:"enrollment_id"`
	UserID       int64      `json:"user_id"`
	TrainingID   int64      `json:"training_id"`
	Status       string     `json:"status"`
	AssignedBy   int64      `json:"assigned_by,omitempty"`
	DueAt        *time.Time `json:"due_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type progressResponse struct {
	ProgressID int64     `json:"progress_id"`
	UserID     int64     `json:"user_id"`
	ModuleID   int64     `json:"module_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func toEnrollmentResponse(e *models.Enrollment) enrollmentResponse {
	return enrollmentResponse{
		EnrollmentID: e.EnrollmentID,
		UserID:       e.UserID,
		TrainingID:   e.TrainingID,
		Status:       e.Status,
		AssignedBy:   e.AssignedBy,
		DueAt:        e.DueAt,
		CreatedAt:    e.CreatedAt,
	}
}

func toProgressResponse(p *models.Progress) progressResponse {
	return progressResponse{
		ProgressID: p.ProgressID,
		UserID:     p.UserID,
		ModuleID:   p.ModuleID,
		Status:     p.Status,
		CreatedAt:  p.CreatedAt,
	}
}

// enrollUsers assigns a training to users given by email. Unknown emails and users that are
// not members of the organization are skipped; users already enrolled keep their enrollment.
func (s *Server) enrollUsers(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
	trainingID, ok := trainingIDFromPath(r)
	if !ok {
		badRequest(w, r, "invalid training id")
		return
	}

	var req enrollRequest
	if !s.decodeValid(w, r, &req) {
		return
	}

	trainingScope, ok := s.scope(w, r, ac, tenancy.KindTraining)
	if !ok {
		return
	}
	memberScope, ok := s.scope(w, r, ac, tenancy.KindMembership)
	if !ok {
		return
	}
	enrollScope, ok := s.scope(w, r, ac, tenancy.KindEnrollment)
	if !ok {
		return
	}

	if _, err := s.stores.Trainings.Get(r.Context(), trainingScope, trainingID); err != nil {
		writeStoreError(w, r, err)
		return
	}

	log := zerolog.Ctx(r.Context())

	resp := make([]enrollmentResponse, 0, len(req.Emails))
	for _, email := range req.Emails {
		user, err := s.stores.Users.GetByEmail(r.Context(), email)
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug().Msg("skipping enrollment of unknown user")
			continue
		}
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		_, err = s.stores.Memberships.Get(r.Context(), memberScope, user.UserID)
		if errors.Is(err, store.ErrMembershipNotFound) {
			log.Debug().Int64("user_id", user.UserID).Msg("skipping enrollment of non member")
			continue
		}
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		e, err := s.stores.Enrollments.Enroll(r.Context(), enrollScope, trainingID, user.UserID, ac.PrincipalID(), req.DueAt)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		resp = append(resp, toEnrollmentResponse(e))
	}

	log.Info().Int64("training_id", trainingID).Int("enrolled", len(resp)).Msg("users enrolled")
	httpmiddleware.WriteJSON(w, r, http.StatusCreated, resp)
}

// listProgress returns the progress of every member of the organization.
func (s *Server) listProgress(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
	s.writeProgress(w, r, ac, 0)
}

func (s *Server) myProgress(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
	s.writeProgress(w, r, ac, ac.PrincipalID())
}

func (s *Server) writeProgress(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext, userID int64) {
	scope, ok := s.scope(w, r, ac, tenancy.KindProgress)
	if !ok {
		return
	}

	rows, err := s.stores.Enrollments.ListProgress(r.Context(), scope, userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	resp := make([]progressResponse, 0, len(rows))
	for _, p := range rows {
		resp = append(resp, toProgressResponse(p))
	}
	httpmiddleware.WriteJSON(w, r, http.StatusOK, resp)
}
