package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"swiftel-client/internal/api/apitest"
	"swiftel-client/internal/config"
	"swiftel-client/internal/domain/auth"
	xerrors "swiftel-client/internal/pkg/errors"
	"swiftel-client/internal/pkg/session"
	"swiftel-client/internal/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type shell struct {
	t       *testing.T
	srv     *Server
	backend *apitest.Backend
	durable *session.MemoryTier
}

func newShell(t *testing.T, seed string) *shell {
	t.Helper()
	return newShellWith(t, apitest.NewBackend(t), seed)
}

func (s *shell) boot() {
	s.t.Helper()
	s.srv.Start()
	select {
	case <-s.srv.Sessions().Ready():
	case <-time.After(5 * time.Second):
		s.t.Fatal("boot did not complete")
	}
}

func (s *shell) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.srv.Handler().ServeHTTP(w, req)
	return w
}

func unread(t *testing.T, w *httptest.ResponseRecorder) float64 {
	t.Helper()
	summary, _ := data(t, w)["summary"].(map[string]any)
	n, _ := summary["total_unread"].(float64)
	return n
}

func data(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func TestServer_LoadingBeforeBoot(t *testing.T) {
	s := newShell(t, "")

	w := s.do(http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusServiceUnavailable, s.do(http.MethodGet, "/health", nil).Code)

	s.boot()
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", nil).Code)
}

func TestServer_EmployeeJourney(t *testing.T) {
	s := newShell(t, "")
	alice := s.backend.AddUser("alice", "alice@swiftel.test", "secret1", auth.RoleEmployee)
	s.boot()

	w := s.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = s.do(http.MethodGet, "/", nil)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	// sign in, remembered
	w = s.do(http.MethodPost, "/login", auth.LoginRequest{Email: alice.Email, Password: "secret1", RememberMe: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "/dashboard", data(t, w)["redirect"])

	stored, err := s.durable.Get(context.Background(), session.DefaultKey)
	require.NoError(t, err)
	assert.NotEmpty(t, stored)

	require.Eventually(t, func() bool { return s.backend.Sockets() == 1 }, 5*time.Second, 10*time.Millisecond)

	w = s.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "alice", data(t, w)["user"].(map[string]any)["username"])

	// approver views bounce back to the dashboard
	w = s.do(http.MethodGet, "/requests", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	amount := 120.0
	w = s.do(http.MethodPost, "/make-request", map[string]any{
		"title": "Laptop", "description": "Replacement", "type": "monetary", "amount": amount,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/my-requests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, data(t, w)["count"])

	// a push signal makes the notification list stale
	s.backend.AddNotification(alice.ID, "first")
	w = s.do(http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, unread(t, w))

	s.backend.AddNotification(alice.ID, "second")
	assert.EqualValues(t, 1, unread(t, s.do(http.MethodGet, "/notifications", nil)))

	require.Equal(t, 1, s.backend.Push("refresh"))
	require.Eventually(t, func() bool {
		return unread(t, s.do(http.MethodGet, "/notifications", nil)) == 2
	}, 5*time.Second, 20*time.Millisecond)

	// sign out
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/logout", nil).Code)
	require.Eventually(t, func() bool { return s.backend.Sockets() == 0 }, 5*time.Second, 10*time.Millisecond)

	_, err = s.durable.Get(context.Background(), session.DefaultKey)
	assert.ErrorIs(t, err, xerrors.ErrNoToken)

	w = s.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestServer_SwitchingUsersWithoutLogout(t *testing.T) {
	s := newShell(t, "")
	alice := s.backend.AddUser("alice", "alice@swiftel.test", "secret1", auth.RoleEmployee)
	bob := s.backend.AddUser("bob", "bob@swiftel.test", "secret2", auth.RoleEmployee)
	s.backend.AddNotification(alice.ID, "alice-secret")
	s.boot()

	w := s.do(http.MethodPost, "/login", auth.LoginRequest{Email: alice.Email, Password: "secret1", RememberMe: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Eventually(t, func() bool {
		users := s.backend.SocketUsers()
		return len(users) == 1 && users[0] == alice.ID
	}, 5*time.Second, 10*time.Millisecond)

	w = s.do(http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "alice-secret")

	w = s.do(http.MethodPost, "/login", auth.LoginRequest{Email: bob.Email, Password: "secret2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "alice-secret")
	assert.EqualValues(t, 0, unread(t, w))

	w = s.do(http.MethodGet, "/account", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "bob", data(t, w)["username"])

	require.Eventually(t, func() bool {
		users := s.backend.SocketUsers()
		return len(users) == 1 && users[0] == bob.ID
	}, 5*time.Second, 10*time.Millisecond)
}

func TestServer_RunStopsOnShutdown(t *testing.T) {
	s := newShell(t, "")

	done := make(chan error, 1)
	go func() { done <- s.srv.Run() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestServer_ShutdownBeforeRun(t *testing.T) {
	s := newShell(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.srv.Shutdown(ctx))
	require.NoError(t, s.srv.Shutdown(ctx))

	assert.NoError(t, s.srv.Run())
}

func TestServer_RestoresStoredSession(t *testing.T) {
	backend := apitest.NewBackend(t)
	bob := backend.AddUser("bob", "bob@swiftel.test", "secret1", auth.RoleBoardMember)
	s := newShellWith(t, backend, backend.TokenFor(bob))
	s.boot()

	w := s.do(http.MethodGet, "/requests", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "pending", data(t, w)["status"])

	require.Eventually(t, func() bool { return backend.Sockets() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestServer_PurgesCorruptedToken(t *testing.T) {
	s := newShell(t, "not-a-token")
	s.boot()

	_, err := s.durable.Get(context.Background(), session.DefaultKey)
	assert.ErrorIs(t, err, xerrors.ErrNoToken)

	w := s.do(http.MethodGet, "/account", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Equal(t, 0, s.backend.Sockets())
}

func TestServer_NotFoundAndMetrics(t *testing.T) {
	s := newShell(t, "")
	s.boot()

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/nowhere", nil).Code)

	w := s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func newShellWith(t *testing.T, backend *apitest.Backend, seed string) *shell {
	t.Helper()
	durable := session.NewMemoryTier()
	if seed != "" {
		require.NoError(t, durable.Set(context.Background(), session.DefaultKey, seed))
	}

	cfg := config.AppConfig{
		HTTPAddr:     "127.0.0.1:0",
		APIBaseURL:   backend.URL(),
		APITimeout:   5 * time.Second,
		WSURL:        websocket.WSBaseFromAPI(backend.URL()),
		WSReconnect:  true,
		WSMaxBackoff: 200 * time.Millisecond,
		TokenKey:     session.DefaultKey,
	}
	srv, err := NewServer(cfg, zap.NewNop(), WithDurableTier(durable))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return &shell{t: t, srv: srv, backend: backend, durable: durable}
}
