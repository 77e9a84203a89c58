package server

import (
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/cybaware/internal/auth"
	httpmiddleware "github.com/wolfeidau/cybaware/internal/http"
	"github.com/wolfeidau/cybaware/internal/models"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"max=200"`
	Password string `json:"password" validate:"required,min=8,max=72,bcrypt"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72,bcrypt"`
}

// updateMeRequest changes only the fields that are present.
type updateMeRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72,bcrypt"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type userResponse struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		UserID:    u.UserID,
		Email:     u.Email,
		Name:      u.Name,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpmiddleware.DecodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if !s.valid(w, r, &req) {
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to hash password")
		httpmiddleware.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.stores.Users.Create(r.Context(), user); err != nil {
		writeStoreError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Int64("user_id", user.UserID).Msg("user registered")
	httpmiddleware.WriteJSON(w, r, http.StatusCreated, toUserResponse(user))
}

// login accepts a JSON body or an OAuth2 password-grant style form with username and password.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readLoginRequest(w, r)
	if !ok {
		return
	}

	user, err := s.authn.AuthenticatePassword(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="cybaware"`)
			httpmiddleware.WriteError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("login failed")
		httpmiddleware.WriteError(w, r, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	token, err := s.authn.IssueToken(r.Context(), user)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to issue token")
		httpmiddleware.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	httpmiddleware.WriteJSON(w, r, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.authn.Codec().TTL().Seconds()),
	})
}

func (s *Server) readLoginRequest(w http.ResponseWriter, r *http.Request) (loginRequest, bool) {
	var req loginRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
		if err := r.ParseForm(); err != nil {
			badRequest(w, r, "invalid form")
			return req, false
		}
		req.Email = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	} else if err := httpmiddleware.DecodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return req, false
	}

	return req, s.valid(w, r, &req)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request, user *models.User) {
	httpmiddleware.WriteJSON(w, r, http.StatusOK, toUserResponse(user))
}

// updateMe changes the caller's name, email or password. A new email must not belong to
// another user.
func (s *Server) updateMe(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req updateMeRequest
	if err := httpmiddleware.DecodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	for _, f := range []*string{req.Name, req.Email} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if !s.valid(w, r, &req) {
		return
	}

	updated := *user
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Email != nil {
		updated.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to hash password")
			httpmiddleware.WriteError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		updated.PasswordHash = hash
	}

	if err := s.stores.Users.Update(r.Context(), &updated); err != nil {
		writeStoreError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Bool("email_changed", updated.Email != user.Email).
		Bool("password_changed", req.Password != nil).
		Msg("user updated")
	httpmiddleware.WriteJSON(w, r, http.StatusOK, toUserResponse(&updated))
}
