package http_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pawsen/library-org/internal/auth"
	"github.com/pawsen/library-org/internal/catalog"
	"github.com/pawsen/library-org/internal/config"
	"github.com/pawsen/library-org/internal/events"
	"github.com/pawsen/library-org/internal/health"
	apphttp "github.com/pawsen/library-org/internal/http"
	"github.com/pawsen/library-org/internal/metadata"
	"github.com/pawsen/library-org/internal/metrics"
	"github.com/pawsen/library-org/internal/repo"
	"github.com/pawsen/library-org/internal/testutil"
)

type staticFetcher struct{ rec metadata.Record }

func (f staticFetcher) Fetch(context.Context, string) metadata.Record { return f.rec }

type testServer struct {
	router   *apphttp.Router
	recorder *events.Recorder
	token    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	database := testutil.NewTestDB(t)
	m := metrics.New()
	recorder := &events.Recorder{}

	store := repo.NewStore(database, log)
	svc := catalog.NewService(store,
		staticFetcher{metadata.Record{Title: "Fetched"}}, recorder, m, log, catalog.Config{})

	authSvc, err := auth.NewService(auth.Config{
		Username:   "librarian",
		Password:   "Passw0rd!",
		SecretKey:  "router-test-secret",
		SessionTTL: time.Hour,
	}, store.Tokens, log)
	require.NoError(t, err)
	sess, err := authSvc.Login(context.Background(), "librarian", "Passw0rd!")
	require.NoError(t, err)

	serverCfg := config.Default().Server
	serverCfg.LoginRPS = 100
	serverCfg.LoginBurst = 100

	router := apphttp.NewRouter(apphttp.Deps{
		Catalog:  catalog.NewHTTPHandler(svc, log),
		Auth:     auth.NewHTTPHandler(authSvc, false),
		Verifier: authSvc,
		Health:   health.NewChecker(database, recorder, log),
		Metrics:  m,
		Log:      log,
		Server:   serverCfg,
	})
	t.Cleanup(router.Close)
	return &testServer{router: router, recorder: recorder, token: sess.Token}
}

func (s *testServer) do(r *http.Request) testutil.RecordResponse {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return testutil.RecordHTTPResponse(w)
}

func TestRouter_PublicEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz", "/v1/books", "/v1/logs", "/v1/locations", "/v1/lookup/0306406152"} {
		t.Run(path, func(t *testing.T) {
			resp := s.do(testutil.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, resp.Code)
			assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
			assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
		})
	}
}

func TestRouter_WritesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method, path string
	}{
		{http.MethodPost, "/v1/books"},
		{http.MethodPut, "/v1/books/1"},
		{http.MethodDelete, "/v1/books/1"},
		{http.MethodPost, "/v1/books/1/refresh"},
		{http.MethodPost, "/v1/logs/1/restore"},
		{http.MethodPost, "/v1/locations"},
		{http.MethodPut, "/v1/locations/1"},
		{http.MethodDelete, "/v1/locations/1"},
		{http.MethodGet, "/v1/auth/me"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := s.do(testutil.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusUnauthorized, resp.Code)
			assert.Equal(t, "UNAUTHORIZED", resp.ErrorCode())

			resp = s.do(testutil.NewRequestWithAuth(tt.method, tt.path, nil, "not-a-jwt"))
			assert.Equal(t, http.StatusUnauthorized, resp.Code)
		})
	}
}

func TestRouter_AuthenticatedFlow(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(testutil.NewRequestWithAuth(http.MethodPost, "/v1/locations",
		catalog.LocationInput{LabelName: "A1", FullName: "Shelf"}, s.token))
	require.Equal(t, http.StatusCreated, resp.Code)
	locID := uint(resp.Data()["id"].(float64))

	resp = s.do(testutil.NewRequestWithAuth(http.MethodPost, "/v1/books", catalog.BookInput{
		ISBN: "0306406152", Title: "Dune", Authors: "Frank Herbert", LocationID: &locID,
	}, s.token))
	require.Equal(t, http.StatusCreated, resp.Code)
	bookID := uint(resp.Data()["id"].(float64))

	resp = s.do(testutil.NewRequestWithAuth(http.MethodDelete, fmt.Sprintf("/v1/books/%d", bookID), nil, s.token))
	require.Equal(t, http.StatusNoContent, resp.Code)

	assert.Equal(t, []string{events.BookAdded, events.BookDeleted}, s.recorder.Types())
}

func TestRouter_LoginAndCookie(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, testutil.NewRequest(http.MethodPost, "/v1/auth/login",
		auth.LoginReq{Username: "librarian", Password: "Passw0rd!"}))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := testutil.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.AddCookie(cookies[0])
	resp := s.do(req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "librarian", resp.Data()["username"])
}

func TestRouter_UnknownRouteAndMethod(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(testutil.NewRequest(http.MethodGet, "/books", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = s.do(testutil.NewRequest(http.MethodPatch, "/v1/books", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}

func TestRouter_MetricsExposeRoutes(t *testing.T) {
	s := newTestServer(t)
	s.do(testutil.NewRequest(http.MethodGet, "/v1/books/7", nil))

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `route="GET /v1/books/{id}"`)
}
