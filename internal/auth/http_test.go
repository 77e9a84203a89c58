package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/rbac"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "", want: ""},
		{header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{header: "bearer abc", want: "abc"},
		{header: "Basic dXNlcjpwYXNz", want: ""},
		{header: "Bearer", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			require.Equal(t, tt.want, BearerToken(r))
		})
	}
}

func TestProtect(t *testing.T) {
	f := newGuardFixture(t)

	var got *tenancy.AuthorizationContext
	handler := f.guard.Protect(rbac.AtLeast(rbac.RoleManager, true), func(w http.ResponseWriter, r *http.Request, ac *tenancy.AuthorizationContext) {
		got = ac
		w.WriteHeader(http.StatusNoContent)
	})

	serve := func(token, host, orgHeader string) *httptest.ResponseRecorder {
		got = nil
		r := httptest.NewRequest(http.MethodGet, "/org", nil)
		r.Host = host
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		if orgHeader != "" {
			r.Header.Set(OrgIDHeader, orgHeader)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	_, manager := f.member(t, "manager@example.com", "MANAGER")
	_, employee := f.member(t, "employee@example.com", "EMPLOYEE")
	_, outsider := f.member(t, "outsider@example.com", "")
	corruptUser, corrupt := f.member(t, "corrupt@example.com", "")
	scope, err := tenancy.DefaultFilter().Predicate(
		tenancy.NewAuthorizationContext(corruptUser.UserID, f.org.OrgID, rbac.RoleOwner), tenancy.KindMembership)
	require.NoError(t, err)
	_, err = f.members.Create(t.Context(), scope, corruptUser.UserID, "ROOT")
	require.NoError(t, err)

	t.Run("allowed", func(t *testing.T) {
		w := serve(manager, "acme.cybaware.nl", "")
		require.Equal(t, http.StatusNoContent, w.Code)
		require.NotNil(t, got)
		require.Equal(t, rbac.RoleManager, got.Role())
	})

	t.Run("forwarded host is honoured", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/org", nil)
		r.Host = "10.0.0.5:8080"
		r.Header.Set("X-Forwarded-Host", "acme.cybaware.nl")
		r.Header.Set("Authorization", "Bearer "+manager)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		require.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := serve("", "acme.cybaware.nl", "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Equal(t, `Bearer realm="cybaware"`, w.Header().Get("WWW-Authenticate"))
		require.Nil(t, got)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := serve("garbage", "acme.cybaware.nl", "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Equal(t, `Bearer error="invalid_token"`, w.Header().Get("WWW-Authenticate"))
	})

	t.Run("expired token", func(t *testing.T) {
		f.clock.Advance(2 * time.Hour)
		defer f.clock.Advance(-2 * time.Hour)

		w := serve(manager, "acme.cybaware.nl", "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Contains(t, w.Header().Get("WWW-Authenticate"), "token expired")
	})

	t.Run("tenant unresolved", func(t *testing.T) {
		w := serve(manager, "cybaware.nl", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("forbidden responses are indistinguishable", func(t *testing.T) {
		insufficient := serve(employee, "acme.cybaware.nl", "")
		notMember := serve(outsider, "acme.cybaware.nl", "")
		corruptRole := serve(corrupt, "acme.cybaware.nl", "")
		unknownOrg := serve(manager, "cybaware.nl", "999")

		for _, w := range []*httptest.ResponseRecorder{insufficient, notMember, corruptRole, unknownOrg} {
			require.Equal(t, http.StatusForbidden, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, map[string]any{"error": "forbidden"}, body)
		}
		require.Nil(t, got)
	})
}

func TestRequireUser(t *testing.T) {
	f := newGuardFixture(t)
	user, token := f.member(t, "solo@example.com", "")

	var got *models.User
	handler := f.guard.RequireUser(func(w http.ResponseWriter, r *http.Request, u *models.User) {
		got = u
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, user.UserID, got.UserID)

	r = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
