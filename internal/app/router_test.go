package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/http/cookiejar"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/flaelle/flaelle/internal/auth"
	"github.com/flaelle/flaelle/internal/costing"
	"github.com/flaelle/flaelle/internal/observability"
	"github.com/flaelle/flaelle/internal/shared"
)

type stubDistribution struct {
	actor string
}

func (s *stubDistribution) DistributeCosts(_ context.Context, shipmentID, actor string) (costing.Result, error) {
	s.actor = actor
	return costing.Result{ShipmentID: shipmentID, Applied: true}, nil
}

func (s *stubDistribution) PreviewDistribution(_ context.Context, shipmentID string) (costing.Result, error) {
	return costing.Result{ShipmentID: shipmentID}, nil
}

type testServer struct {
	*httptest.Server
	client       *http.Client
	distribution *stubDistribution
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	authService, err := auth.NewService(auth.Account{Username: "flaelle", PasswordHash: string(hash)}, nil, nil)
	require.NoError(t, err)

	cfg := &Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second, RateLimitPerMin: 1000}
	sessions := shared.NewSessionManager(rdb, "flaelle_session", time.Hour, false)
	csrf := shared.NewCSRFManager("test-secret")
	dist := &stubDistribution{}

	router := NewRouter(RouterParams{
		Config:         cfg,
		SessionManager: sessions,
		CSRFManager:    csrf,
		AuthHandler:    auth.NewHandler(nil, authService, sessions, csrf),
		CostingHandler: costing.NewHandler(nil, dist),
		Metrics:        observability.NewMetrics(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testServer{Server: srv, client: &http.Client{Jar: jar}, distribution: dist}
}

func (s *testServer) do(t *testing.T, method, path, body, csrfToken string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if csrfToken != "" {
		req.Header.Set(shared.CSRFHeader, csrfToken)
	}
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func sessionInfo(t *testing.T, resp *http.Response) auth.SessionInfo {
	t.Helper()
	var info auth.SessionInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	return info
}

const shipmentPath = "/api/shipments/9f1c1d2e-4b7a-4c1e-9a55-0c6f1b2a3d40/distribution"

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Frame-Options"))

	resp = s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIRequiresSession(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, shipmentPath, "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))

	resp = s.do(t, http.MethodGet, "/api/nowhere", "", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLoginThenDistributeWithCSRF(t *testing.T) {
	s := newTestServer(t)

	info := sessionInfo(t, s.do(t, http.MethodGet, "/api/auth/session", "", ""))
	require.False(t, info.Authenticated)

	resp := s.do(t, http.MethodPost, "/api/auth/login", `{"username":"flaelle","password":"correct horse"}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info = sessionInfo(t, resp)
	require.True(t, info.Authenticated)
	require.NotEmpty(t, info.CSRFToken)

	resp = s.do(t, http.MethodGet, shipmentPath, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, shipmentPath, "", "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodPost, shipmentPath, "", info.CSRFToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "flaelle", s.distribution.actor)

	resp = s.do(t, http.MethodPost, "/api/auth/logout", "", info.CSRFToken)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.do(t, http.MethodGet, shipmentPath, "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
