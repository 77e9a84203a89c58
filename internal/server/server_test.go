package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/cybaware/internal/auth"
	"github.com/wolfeidau/cybaware/internal/store/memory"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct horse battery"

type apiFixture struct {
	t   *testing.T
	srv *httptest.Server
}

func newAPIFixture(t *testing.T, opts ...Option) *apiFixture {
	t.Helper()

	users := memory.NewUserStore()
	members := memory.NewMembershipStore()
	orgs := memory.NewOrganizationStore(members)

	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		SigningKey: []byte("server-test-signing-key-32-bytes!!"),
		Issuer:     "cybaware-test",
		Audience:   "cybaware-api",
	})
	require.NoError(t, err)

	authn, err := auth.NewAuthenticator(codec, users, hasher)
	require.NoError(t, err)

	tenants, err := auth.NewTenantResolver(auth.TenantConfig{BaseDomain: "cybaware.test"}, orgs)
	require.NoError(t, err)

	guard, err := auth.NewAccessGuard(authn, tenants, members)
	require.NoError(t, err)

	trainings := memory.NewTrainingStore()

	s, err := NewServer(guard, hasher, Stores{
		Users:         users,
		Organizations: orgs,
		Memberships:   members,
		Projects:      memory.NewProjectStore(),
		Trainings:     trainings,
		Enrollments:   memory.NewEnrollmentStore(trainings),
	}, opts...)
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler(zerolog.Nop()))
	t.Cleanup(srv.Close)

	return &apiFixture{t: t, srv: srv}
}

type call struct {
	method string
	path   string
	token  string
	orgID  int64
	host   string
	body   any
}

func (f *apiFixture) do(c call) (int, map[string]any) {
	f.t.Helper()

	var body bytes.Buffer
	if c.body != nil {
		require.NoError(f.t, json.NewEncoder(&body).Encode(c.body))
	}

	req, err := http.NewRequest(c.method, f.srv.URL+c.path, &body)
	require.NoError(f.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.orgID != 0 {
		req.Header.Set(auth.OrgIDHeader, strconv.FormatInt(c.orgID, 10))
	}
	if c.host != "" {
		req.Host = c.host
	}

	resp, err := f.srv.Client().Do(req)
	require.NoError(f.t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		var raw json.RawMessage
		require.NoError(f.t, json.NewDecoder(resp.Body).Decode(&raw))
		if strings.HasPrefix(string(raw), "{") {
			require.NoError(f.t, json.Unmarshal(raw, &decoded))
		} else {
			var items []any
			require.NoError(f.t, json.Unmarshal(raw, &items))
			decoded = map[string]any{"items": items}
		}
	}
	return resp.StatusCode, decoded
}

// signup registers a user and returns its id and a bearer token.
func (f *apiFixture) signup(email string) (int64, string) {
	f.t.Helper()

	status, body := f.do(call{method: http.MethodPost, path: "/auth/register", body: map[string]string{
		"email": email, "name": email, "password": testPassword,
	}})
	require.Equal(f.t, http.StatusCreated, status, body)
	userID := int64(body["user_id"].(float64))

	status, body = f.do(call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"email": email, "password": testPassword,
	}})
	require.Equal(f.t, http.StatusOK, status, body)

	return userID, body["access_token"].(string)
}

func (f *apiFixture) createOrg(token, slug string) int64 {
	f.t.Helper()
	status, body := f.do(call{method: http.MethodPost, path: "/orgs", token: token, body: map[string]string{
		"name": strings.ToUpper(slug), "slug": slug,
	}})
	require.Equal(f.t, http.StatusCreated, status, body)
	require.Equal(f.t, "OWNER", body["role"])
	return int64(body["org_id"].(float64))
}

func (f *apiFixture) addMember(token string, orgID, userID int64, role string) {
	f.t.Helper()
	status, body := f.do(call{method: http.MethodPost, path: "/org/members", token: token, orgID: orgID, body: map[string]any{
		"user_id": userID, "role": role,
	}})
	require.Equal(f.t, http.StatusCreated, status, body)
}

func items(body map[string]any) []any {
	v, _ := body["items"].([]any)
	return v
}

func TestServer_healthz(t *testing.T) {
	f := newAPIFixture(t)
	status, body := f.do(call{method: http.MethodGet, path: "/healthz"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])

	unhealthy := newAPIFixture(t, WithHealthCheck(func(context.Context) error {
		return errors.New("database down")
	}))
	status, _ = unhealthy.do(call{method: http.MethodGet, path: "/healthz"})
	require.Equal(t, http.StatusServiceUnavailable, status)
}

func TestServer_registerAndLogin(t *testing.T) {
	f := newAPIFixture(t)
	_, token := f.signup("alice@example.com")

	t.Run("duplicate email", func(t *testing.T) {
		status, _ := f.do(call{method: http.MethodPost, path: "/auth/register", body: map[string]string{
			"email": "alice@example.com", "password": testPassword,
		}})
		require.Equal(t, http.StatusConflict, status)
	})

	t.Run("short password", func(t *testing.T) {
		status, body := f.do(call{method: http.MethodPost, path: "/auth/register", body: map[string]string{
			"email": "bob@example.com", "password": "short",
		}})
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "invalid password: min", body["error"])
	})

	t.Run("password longer than bcrypt accepts", func(t *testing.T) {
		status, body := f.do(call{method: http.MethodPost, path: "/auth/register", body: map[string]string{
			"email": "bob@example.com", "password": strings.Repeat("p", 80),
		}})
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "invalid password: max", body["error"])

		status, _ = f.do(call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
			"email": "alice@example.com", "password": strings.Repeat("p", 80),
		}})
		require.Equal(t, http.StatusBadRequest, status)

		// 30 characters but 90 bytes
		status, body = f.do(call{method: http.MethodPost, path: "/auth/register", body: map[string]string{
			"email": "bob@example.com", "password": strings.Repeat("€", 30),
		}})
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "invalid password: bcrypt", body["error"])
	})

	t.Run("invalid email", func(t *testing.T) {
		for _, email := range []string{"", "bob", "bob@", strings.Repeat("a", 250) + "@example.com"} {
			status, body := f.do(call{method: http.MethodPost, path: "/auth/register", body: map[string]string{
				"email": email, "password": testPassword,
			}})
			require.Equal(t, http.StatusBadRequest, status, email)
			require.Contains(t, body["error"], "email", email)
		}
	})

	t.Run("missing login fields", func(t *testing.T) {
		status, body := f.do(call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
			"email": "alice@example.com",
		}})
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "invalid password: required", body["error"])
	})

	t.Run("wrong password", func(t *testing.T) {
		status, body := f.do(call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
			"email": "alice@example.com", "password": "not the password",
		}})
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, "invalid credentials", body["error"])
	})

	t.Run("form login", func(t *testing.T) {
		form := url.Values{"username": {"alice@example.com"}, "password": {testPassword}}
		resp, err := f.srv.Client().PostForm(f.srv.URL+"/auth/login", form)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var tok tokenResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
		require.NotEmpty(t, tok.AccessToken)
		require.Equal(t, "bearer", tok.TokenType)
		require.Equal(t, int64(3600), tok.ExpiresIn)
	})

	t.Run("me", func(t *testing.T) {
		status, body := f.do(call{method: http.MethodGet, path: "/auth/me", token: token})
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "alice@example.com", body["email"])

		status, _ = f.do(call{method: http.MethodGet, path: "/auth/me"})
		require.Equal(t, http.StatusUnauthorized, status)

		status, _ = f.do(call{method: http.MethodGet, path: "/auth/me", token: token + "x"})
		require.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestServer_createOrganization(t *testing.T) {
	f := newAPIFixture(t)
	_, token := f.signup("alice@example.com")
	f.createOrg(token, "acme")

	for _, slug := range []string{"Acme", "-acme", "acme-", "ac me", ""} {
		status, _ := f.do(call{method: http.MethodPost, path: "/orgs", token: token, body: map[string]string{
			"name": "x", "slug": slug,
		}})
		require.Equal(t, http.StatusBadRequest, status, slug)
	}

	status, _ := f.do(call{method: http.MethodPost, path: "/orgs", token: token, body: map[string]string{
		"name": "Other", "slug": "acme",
	}})
	require.Equal(t, http.StatusConflict, status)
}

func TestServer_tenantResolution(t *testing.T) {
	f := newAPIFixture(t)
	_, token := f.signup("alice@example.com")
	orgID := f.createOrg(token, "acme")

	status, body := f.do(call{method: http.MethodGet, path: "/org", token: token, host: "acme.cybaware.test"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(orgID), body["org_id"])

	status, body = f.do(call{method: http.MethodGet, path: "/org", token: token, orgID: orgID})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "OWNER", body["role"])

	status, body = f.do(call{method: http.MethodGet, path: "/org", token: token})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "organization could not be determined", body["error"])

	// The token is checked before the tenant.
	status, _ = f.do(call{method: http.MethodGet, path: "/org", orgID: orgID})
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestServer_tenantIsolation(t *testing.T) {
	f := newAPIFixture(t)
	_, alice := f.signup("alice@example.com")
	_, carol := f.signup("carol@example.com")
	acme := f.createOrg(alice, "acme")
	globex := f.createOrg(carol, "globex")

	status, _ := f.do(call{method: http.MethodPost, path: "/projects", token: alice, orgID: acme, body: map[string]string{"name": "acme-roadmap"}})
	require.Equal(t, http.StatusCreated, status)
	status, _ = f.do(call{method: http.MethodPost, path: "/projects", token: carol, orgID: globex, body: map[string]string{"name": "globex-roadmap"}})
	require.Equal(t, http.StatusCreated, status)

	status, body := f.do(call{method: http.MethodGet, path: "/projects", token: alice, orgID: acme})
	require.Equal(t, http.StatusOK, status)
	require.Len(t, items(body), 1)
	require.Equal(t, "acme-roadmap", items(body)[0].(map[string]any)["name"])

	// Non-member and unknown organization are indistinguishable.
	status, notMember := f.do(call{method: http.MethodGet, path: "/projects", token: alice, orgID: globex})
	require.Equal(t, http.StatusForbidden, status)
	status, unknown := f.do(call{method: http.MethodGet, path: "/projects", token: alice, orgID: 999})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, notMember["error"], unknown["error"])
}

func TestServer_roleRequirements(t *testing.T) {
	f := newAPIFixture(t)
	_, owner := f.signup("owner@example.com")
	adminID, admin := f.signup("admin@example.com")
	managerID, manager := f.signup("manager@example.com")
	employeeID, employee := f.signup("employee@example.com")

	orgID := f.createOrg(owner, "acme")
	f.addMember(owner, orgID, adminID, "ADMIN")
	f.addMember(admin, orgID, managerID, "MANAGER")
	f.addMember(admin, orgID, employeeID, "EMPLOYEE")

	cases := []struct {
		name   string
		token  string
		method string
		path   string
		body   any
		want   int
	}{
		{"employee reads org", employee, http.MethodGet, "/org", nil, http.StatusOK},
		{"employee lists projects", employee, http.MethodGet, "/projects", nil, http.StatusOK},
		{"employee creates project", employee, http.MethodPost, "/projects", map[string]string{"name": "p"}, http.StatusForbidden},
		{"manager creates project", manager, http.MethodPost, "/projects", map[string]string{"name": "p"}, http.StatusCreated},
		{"owner creates project", owner, http.MethodPost, "/projects", map[string]string{"name": "p"}, http.StatusCreated},
		{"employee lists members", employee, http.MethodGet, "/org/members", nil, http.StatusForbidden},
		{"manager lists members", manager, http.MethodGet, "/org/members", nil, http.StatusForbidden},
		{"admin lists members", admin, http.MethodGet, "/org/members", nil, http.StatusOK},
		{"employee lists trainings", employee, http.MethodGet, "/trainings", nil, http.StatusForbidden},
		{"manager lists trainings", manager, http.MethodGet, "/trainings", nil, http.StatusOK},
		{"employee reads progress", employee, http.MethodGet, "/progress/me", nil, http.StatusOK},
		{"employee enrolls users", employee, http.MethodPost, "/trainings/1/enroll", map[string]any{"emails": []string{"employee@example.com"}}, http.StatusForbidden},
		{"manager adds member", manager, http.MethodPost, "/org/members", map[string]any{"user_id": employeeID, "role": "EMPLOYEE"}, http.StatusForbidden},
		{"admin deletes org", admin, http.MethodDelete, "/org", nil, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := f.do(call{method: tc.method, path: tc.path, token: tc.token, orgID: orgID, body: tc.body})
			require.Equal(t, tc.want, status, body)
			if tc.want == http.StatusForbidden {
				require.Equal(t, "forbidden", body["error"])
			}
		})
	}

	status, _ := f.do(call{method: http.MethodDelete, path: "/org", token: owner, orgID: orgID})
	require.Equal(t, http.StatusNoContent, status)

	status, _ = f.do(call{method: http.MethodGet, path: "/org", token: owner, orgID: orgID})
	require.Equal(t, http.StatusForbidden, status)
}

func TestServer_memberManagement(t *testing.T) {
	f := newAPIFixture(t)
	ownerID, owner := f.signup("owner@example.com")
	adminID, admin := f.signup("admin@example.com")
	otherID, _ := f.signup("other@example.com")

	orgID := f.createOrg(owner, "acme")
	f.addMember(owner, orgID, adminID, "ADMIN")

	t.Run("admin cannot grant owner", func(t *testing.T) {
		status, _ := f.do(call{method: http.MethodPost, path: "/org/members", token: admin, orgID: orgID, body: map[string]any{
			"user_id": otherID, "role": "OWNER",
		}})
		require.Equal(t, http.StatusForbidden, status)
	})

	t.Run("unknown role", func(t *testing.T) {
		status, _ := f.do(call{method: http.MethodPost, path: "/org/members", token: admin, orgID: orgID, body: map[string]any{
			"user_id": otherID, "role": "admin",
		}})
		require.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("unknown user", func(t *testing.T) {
		status, _ := f.do(call{method: http.MethodPost, path: "/org/members", token: admin, orgID: orgID, body: map[string]any{
			"email": "nobody@example.com", "role": "EMPLOYEE",
		}})
		require.Equal(t, http.StatusNotFound, status)
	})

	t.Run("add by email", func(t *testing.T) {
		status, body := f.do(call{method: http.MethodPost, path: "/org/members", token: admin, orgID: orgID, body: map[string]any{
			"email": "other@example.com", "role": "MANAGER",
		}})
		require.Equal(t, http.StatusCreated, status, body)
		require.Equal(t, float64(otherID), body["user_id"])

		status, _ = f.do(call{method: http.MethodPost, path: "/org/members", token: admin, orgID: orgID, body: map[string]any{
			"user_id": otherID, "role": "EMPLOYEE",
		}})
		require.Equal(t, http.StatusConflict, status)
	})

	t.Run("admin cannot remove owner", func(t *testing.T) {
		status, _ := f.do(call{method: http.MethodDelete, path: "/org/members/" + strconv.FormatInt(ownerID, 10), token: admin, orgID: orgID})
		require.Equal(t, http.StatusForbidden, status)
	})

	t.Run("last owner cannot leave", func(t *testing.T) {
		status, body := f.do(call{method: http.MethodDelete, path: "/org/members/" + strconv.FormatInt(ownerID, 10), token: owner, orgID: orgID})
		require.Equal(t, http.StatusConflict, status)
		require.Equal(t, "cannot remove the last owner", body["error"])
	})

	t.Run("member of another organization is not found", func(t *testing.T) {
		_, rival := f.signup("rival@example.com")
		rivalOrg := f.createOrg(rival, "globex")

		status, _ := f.do(call{method: http.MethodDelete, path: "/org/members/" + strconv.FormatInt(adminID, 10), token: rival, orgID: rivalOrg})
		require.Equal(t, http.StatusNotFound, status)

		status, body := f.do(call{method: http.MethodGet, path: "/org/members", token: owner, orgID: orgID})
		require.Equal(t, http.StatusOK, status)
		require.Len(t, items(body), 3)
	})

	t.Run("admin removes manager", func(t *testing.T) {
		path := "/org/members/" + strconv.FormatInt(otherID, 10)
		status, _ := f.do(call{method: http.MethodDelete, path: path, token: admin, orgID: orgID})
		require.Equal(t, http.StatusNoContent, status)

		status, _ = f.do(call{method: http.MethodDelete, path: path, token: admin, orgID: orgID})
		require.Equal(t, http.StatusNotFound, status)
	})

	t.Run("members listing", func(t *testing.T) {
		status, body := f.do(call{method: http.MethodGet, path: "/org/members", token: owner, orgID: orgID})
		require.Equal(t, http.StatusOK, status)
		require.Len(t, items(body), 2)
	})
}

func TestServer_trainingModules(t *testing.T) {
	f := newAPIFixture(t)
	_, owner := f.signup("owner@example.com")
	employeeID, employee := f.signup("employee@example.com")
	_, rival := f.signup("rival@example.com")

	orgID := f.createOrg(owner, "acme")
	rivalOrg := f.createOrg(rival, "globex")
	f.addMember(owner, orgID, employeeID, "EMPLOYEE")

	status, body := f.do(call{method: http.MethodPost, path: "/trainings", token: owner, orgID: orgID, body: map[string]any{
		"title": "Phishing basics",
	}})
	require.Equal(t, http.StatusCreated, status, body)
	require.Equal(t, true, body["active"])
	trainingPath := "/trainings/" + strconv.FormatInt(int64(body["training_id"].(float64)), 10) + "/modules"

	status, _ = f.do(call{method: http.MethodPost, path: trainingPath, token: owner, orgID: orgID, body: map[string]any{
		"title": "Spotting links", "order_index": 1, "duration_min": 10,
	}})
	require.Equal(t, http.StatusCreated, status)

	status, _ = f.do(call{method: http.MethodPost, path: trainingPath, token: employee, orgID: orgID, body: map[string]any{
		"title": "Sneaky", "order_index": 2,
	}})
	require.Equal(t, http.StatusForbidden, status)

	status, _ = f.do(call{method: http.MethodGet, path: trainingPath, token: employee, orgID: orgID})
	require.Equal(t, http.StatusForbidden, status)

	status, body = f.do(call{method: http.MethodGet, path: trainingPath, token: owner, orgID: orgID})
	require.Equal(t, http.StatusOK, status)
	require.Len(t, items(body), 1)

	status, body = f.do(call{method: http.MethodPost, path: trainingPath, token: owner, orgID: orgID, body: map[string]any{
		"title": "Bad link", "content_url": "not a url",
	}})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid content_url: url", body["error"])

	// A training of another organization is not found through the rival's scope.
	status, _ = f.do(call{method: http.MethodGet, path: trainingPath, token: rival, orgID: rivalOrg})
	require.Equal(t, http.StatusNotFound, status)
	status, _ = f.do(call{method: http.MethodPost, path: trainingPath, token: rival, orgID: rivalOrg, body: map[string]any{
		"title": "Injected",
	}})
	require.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(call{method: http.MethodGet, path: "/trainings/abc/modules", token: owner, orgID: orgID})
	require.Equal(t, http.StatusBadRequest, status)
}

func TestServer_updateMe(t *testing.T) {
	f := newAPIFixture(t)
	_, alice := f.signup("alice@example.com")
	f.signup("bob@example.com")

	t.Run("name only", func(t *testing.T) {
		status, body := f.do(call{method: http.MethodPatch, path: "/auth/me", token: alice, body: map[string]any{
			"name": "  Alice  ",
		}})
		require.Equal(t, http.StatusOK, status, body)
		require.Equal(t, "Alice", body["name"])
		require.Equal(t, "alice@example.com", body["email"])
	})

	t.Run("email taken by another user", func(t *testing.T) {
		status, _ := f.do(call{method: http.MethodPatch, path: "/auth/me", token: alice, body: map[string]any{
			"email": "bob@example.com",
		}})
		require.Equal(t, http.StatusConflict, status)
	})

	t.Run("invalid fields", func(t *testing.T) {
		for _, body := range []map[string]any{
			{"name": ""},
			{"email": "not-an-email"},
			{"password": "short"},
			{"password": strings.Repeat("p", 73)},
		} {
			status, _ := f.do(call{method: http.MethodPatch, path: "/auth/me", token: alice, body: body})
			require.Equal(t, http.StatusBadRequest, status, body)
		}
	})

	t.Run("email and password", func(t *testing.T) {
		status, body := f.do(call{method: http.MethodPatch, path: "/auth/me", token: alice, body: map[string]any{
			"email": "alice@acme.example", "password": "a new passphrase",
		}})
		require.Equal(t, http.StatusOK, status, body)
		require.Equal(t, "alice@acme.example", body["email"])

		status, _ = f.do(call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
			"email": "alice@example.com", "password": testPassword,
		}})
		require.Equal(t, http.StatusUnauthorized, status)

		status, _ = f.do(call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
			"email": "alice@acme.example", "password": "a new passphrase",
		}})
		require.Equal(t, http.StatusOK, status)

		// the existing token still identifies the user
		status, body = f.do(call{method: http.MethodGet, path: "/auth/me", token: alice})
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "alice@acme.example", body["email"])
	})

	status, _ := f.do(call{method: http.MethodPatch, path: "/auth/me", body: map[string]any{"name": "x"}})
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestServer_enrollmentAndProgress(t *testing.T) {
	f := newAPIFixture(t)
	_, owner := f.signup("owner@example.com")
	managerID, manager := f.signup("manager@example.com")
	employeeID, employee := f.signup("employee@example.com")
	_, outsider := f.signup("outsider@example.com")

	orgID := f.createOrg(owner, "acme")
	outsiderOrg := f.createOrg(outsider, "globex")
	f.addMember(owner, orgID, managerID, "MANAGER")
	f.addMember(owner, orgID, employeeID, "EMPLOYEE")

	status, body := f.do(call{method: http.MethodPost, path: "/trainings", token: manager, orgID: orgID, body: map[string]any{
		"title": "Phishing basics",
	}})
	require.Equal(t, http.StatusCreated, status, body)
	trainingPath := "/trainings/" + strconv.FormatInt(int64(body["training_id"].(float64)), 10)

	for i, title := range []string{"Links", "Attachments"} {
		status, _ = f.do(call{method: http.MethodPost, path: trainingPath + "/modules", token: manager, orgID: orgID, body: map[string]any{
			"title": title, "order_index": i,
		}})
		require.Equal(t, http.StatusCreated, status)
	}

	enroll := map[string]any{
		"emails": []string{"employee@example.com", "manager@example.com", "nobody@example.com", "outsider@example.com"},
		"due_at": "2026-12-01T00:00:00Z",
	}

	status, body = f.do(call{method: http.MethodPost, path: trainingPath + "/enroll", token: manager, orgID: orgID, body: enroll})
	require.Equal(t, http.StatusCreated, status, body)
	enrolled := items(body)
	require.Len(t, enrolled, 2, "unknown users and non members are skipped")
	first := enrolled[0].(map[string]any)
	require.Equal(t, float64(employeeID), first["user_id"])
	require.Equal(t, "ASSIGNED", first["status"])
	require.Equal(t, float64(managerID), first["assigned_by"])
	require.Equal(t, "2026-12-01T00:00:00Z", first["due_at"])

	t.Run("enrolling again keeps the enrollment", func(t *testing.T) {
		status, body := f.do(call{method: http.MethodPost, path: trainingPath + "/enroll", token: owner, orgID: orgID, body: map[string]any{
			"emails": []string{"employee@example.com"},
		}})
		require.Equal(t, http.StatusCreated, status, body)
		require.Equal(t, first["enrollment_id"], items(body)[0].(map[string]any)["enrollment_id"])
	})

	t.Run("invalid emails", func(t *testing.T) {
		for _, emails := range [][]string{{}, {"not-an-email"}} {
			status, _ := f.do(call{method: http.MethodPost, path: trainingPath + "/enroll", token: manager, orgID: orgID, body: map[string]any{
				"emails": emails,
			}})
			require.Equal(t, http.StatusBadRequest, status, emails)
		}
	})

	t.Run("progress of the organization", func(t *testing.T) {
		status, body := f.do(call{method: http.MethodGet, path: "/progress", token: employee, orgID: orgID})
		require.Equal(t, http.StatusOK, status)
		require.Len(t, items(body), 4)
		for _, p := range items(body) {
			require.Equal(t, "NOT_STARTED", p.(map[string]any)["status"])
		}
	})

	t.Run("own progress", func(t *testing.T) {
		status, body := f.do(call{method: http.MethodGet, path: "/progress/me", token: employee, orgID: orgID})
		require.Equal(t, http.StatusOK, status)
		require.Len(t, items(body), 2)
		for _, p := range items(body) {
			require.Equal(t, float64(employeeID), p.(map[string]any)["user_id"])
		}
	})

	t.Run("other organizations see nothing", func(t *testing.T) {
		status, body := f.do(call{method: http.MethodGet, path: "/progress", token: outsider, orgID: outsiderOrg})
		require.Equal(t, http.StatusOK, status)
		require.Empty(t, items(body))

		status, _ = f.do(call{method: http.MethodPost, path: trainingPath + "/enroll", token: outsider, orgID: outsiderOrg, body: map[string]any{
			"emails": []string{"outsider@example.com"},
		}})
		require.Equal(t, http.StatusNotFound, status)

		status, _ = f.do(call{method: http.MethodGet, path: "/progress", token: outsider, orgID: orgID})
		require.Equal(t, http.StatusForbidden, status)
	})
}
