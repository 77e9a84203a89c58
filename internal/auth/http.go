package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/cybaware/internal/models"
	httpmiddleware "github.com/wolfeidau/cybaware/internal/http"
	"github.com/wolfeidau/cybaware/internal/rbac"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

// OrgIDHeader names the organization explicitly when the host does not.
const OrgIDHeader = "X-Org-Id"

// HandlerFunc handles a request that passed the access guard.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext)

// UserHandlerFunc handles a request that carried a valid token but targets no organization.
type UserHandlerFunc func(w http.ResponseWriter, r *http.Request, user *models.User)

// Protect runs Authorize for every request and calls next with the resulting context.
func (g *AccessGuard) Protect(requirement rbac.Requirement, next HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, err := g.Authorize(r.Context(), RequestFromHTTP(r), requirement)
		if err != nil {
			WriteAccessError(w, r, err)
			return
		}

		ctx := zerolog.Ctx(r.Context()).With().Object("authz", ac).Logger().WithContext(r.Context())
		next(w, r.WithContext(ctx), ac)
	})
}

// RequireUser authenticates the bearer token only.
func (g *AccessGuard) RequireUser(next UserHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := g.Authenticate(r.Context(), BearerToken(r))
		if err != nil {
			WriteAccessError(w, r, err)
			return
		}

		ctx := zerolog.Ctx(r.Context()).With().Int64("principal_id", user.UserID).Logger().WithContext(r.Context())
		next(w, r.WithContext(ctx), user)
	})
}

// RequestFromHTTP collects the guard inputs from r.
func RequestFromHTTP(r *http.Request) Request {
	return Request{
		BearerToken: BearerToken(r),
		Host:        httpmiddleware.ExtractHost(r),
		OrgHeader:   strings.TrimSpace(r.Header.Get(OrgIDHeader)),
	}
}

// BearerToken extracts the token from the Authorization header, or "".
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

// WriteAccessError writes the response for a guard failure. The three forbidden kinds
// produce byte-identical responses; only the log line tells them apart.
func WriteAccessError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	var ae *AccessError
	if !errors.As(err, &ae) {
		logger.Error().Err(err).Msg("unexpected authorization failure")
		httpmiddleware.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	switch {
	case ae.Kind == KindUnauthenticated:
		msg := "authentication required"
		switch {
		case errors.Is(err, ErrMissingToken):
			w.Header().Set("WWW-Authenticate", `Bearer realm="cybaware"`)
		case errors.Is(err, ErrTokenExpired):
			msg = "token expired"
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="token expired"`)
		default:
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		}
		httpmiddleware.WriteError(w, r, http.StatusUnauthorized, msg)

	case ae.Kind == KindTenantUnresolved:
		httpmiddleware.WriteError(w, r, http.StatusBadRequest, "organization could not be determined")

	case ae.Kind.Forbidden():
		logger.Info().Str("denial", ae.Kind.Code()).Msg("forbidden")
		httpmiddleware.WriteError(w, r, http.StatusForbidden, "forbidden")

	default:
		logger.Error().Err(ae.Err).Str("denial", ae.Kind.Code()).Msg("authorization dependency failed")
		httpmiddleware.WriteError(w, r, http.StatusServiceUnavailable, "service unavailable")
	}
}
