package user

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"swiftel-client/internal/api"
	"swiftel-client/internal/api/apitest"
	"swiftel-client/internal/domain/auth"
	"swiftel-client/internal/middleware"
	"swiftel-client/internal/pkg/cache"
	"swiftel-client/internal/pkg/session"
	service "swiftel-client/internal/service/user"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticState struct{ s session.State }

func (f *staticState) State() session.State { return f.s }

type fixture struct {
	t       *testing.T
	backend *apitest.Backend
	client  *api.Client
	state   *staticState
	engine  *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := apitest.NewBackend(t)
	client, err := api.NewClient(api.Config{BaseURL: b.URL()})
	require.NoError(t, err)

	f := &fixture{t: t, backend: b, client: client, state: &staticState{}}
	h := NewUserHandler(service.NewUserService(client, cache.New(32, time.Minute)))
	g := middleware.NewGuardMiddleware(f.state)

	r := gin.New()
	account := r.Group("/account", g.Route("/account"))
	account.GET("", h.Account)
	account.PATCH("", h.UpdateAccount)
	users := r.Group("/users", g.Route("/users"))
	users.GET("", h.List)
	users.PATCH("/:id", h.Update)
	users.DELETE("/:id", h.Delete)
	f.engine = r
	return f
}

func (f *fixture) as(u auth.User) {
	f.client.SetBearer(f.backend.TokenFor(u))
	f.state.s = session.State{
		Identity:  &auth.Identity{ID: u.ID, Username: u.Username, Role: u.Role},
		Readiness: session.Ready,
	}
}

func (f *fixture) do(method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func path(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10)
}

func TestAccount(t *testing.T) {
	f := newFixture(t)
	alice := f.backend.AddUser("alice", "alice@swiftel.test", "secret1", auth.RoleEmployee)
	f.as(alice)

	w, resp := f.do(http.MethodGet, "/account", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice@swiftel.test", resp["data"].(map[string]any)["email"])

	t.Run("passwords must match", func(t *testing.T) {
		w, resp := f.do(http.MethodPatch, "/account", map[string]any{"password": "secret22", "confirmPassword": "secret23"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Passwords do not match", resp["message"])
		assert.Zero(t, f.backend.Calls("PATCH /api/users/me"))
	})

	t.Run("bad email", func(t *testing.T) {
		w, _ := f.do(http.MethodPatch, "/account", map[string]any{"email": "nope"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("updated", func(t *testing.T) {
		w, _ := f.do(http.MethodPatch, "/account", map[string]any{"username": "alice2"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		_, resp := f.do(http.MethodGet, "/account", nil)
		assert.Equal(t, "alice2", resp["data"].(map[string]any)["username"])
	})
}

func TestUsers(t *testing.T) {
	f := newFixture(t)
	admin := f.backend.AddUser("root", "root@swiftel.test", "secret1", auth.RoleAdmin)
	bob := f.backend.AddUser("bob", "bob@swiftel.test", "secret1", auth.RoleBoardMember)
	alice := f.backend.AddUser("alice", "alice@swiftel.test", "secret1", auth.RoleEmployee)

	t.Run("employees are redirected", func(t *testing.T) {
		f.as(alice)
		w, _ := f.do(http.MethodGet, "/users", nil)
		assert.Equal(t, http.StatusFound, w.Code)
	})

	t.Run("board member reads but cannot edit", func(t *testing.T) {
		f.as(bob)
		w, resp := f.do(http.MethodGet, "/users", nil)
		require.Equal(t, http.StatusOK, w.Code)
		data := resp["data"].(map[string]any)
		assert.EqualValues(t, 3, data["count"])
		assert.Equal(t, false, data["can_edit"])

		w, resp = f.do(http.MethodDelete, path(alice.ID), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Forbidden", resp["message"])
	})

	t.Run("admin edits and deletes", func(t *testing.T) {
		f.as(admin)
		w, resp := f.do(http.MethodPatch, path(alice.ID), map[string]any{"role": "board_member"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "board_member", resp["data"].(map[string]any)["role"])

		w, _ = f.do(http.MethodDelete, path(admin.ID), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w, _ = f.do(http.MethodDelete, path(alice.ID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		_, resp = f.do(http.MethodGet, "/users", nil)
		assert.EqualValues(t, 2, resp["data"].(map[string]any)["count"])
	})

	t.Run("bad id", func(t *testing.T) {
		w, _ := f.do(http.MethodDelete, "/users/x", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
