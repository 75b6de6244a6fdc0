package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/hero-assign-backend/internal/engine"
	"github.com/DoyleJ11/hero-assign-backend/internal/metrics"
	"github.com/DoyleJ11/hero-assign-backend/internal/storage"
	"github.com/DoyleJ11/hero-assign-backend/internal/store"
	"github.com/DoyleJ11/hero-assign-backend/pkg/types"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	s := store.New(context.Background(),
		storage.NewFile(filepath.Join(t.TempDir(), "assignments.json")),
		store.WithShuffler(rand.New(rand.NewPCG(5, 8))),
	)
	t.Cleanup(s.Close)

	srv := httptest.NewServer(SetupRoutes(Deps{
		Store:   s,
		Metrics: metrics.NewPrometheus("").Handler(),
		Log:     zaptest.NewLogger(t),
	}))
	t.Cleanup(srv.Close)
	return srv, s
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func register(t *testing.T, srv *httptest.Server, name string) *http.Response {
	t.Helper()
	body, err := json.Marshal(types.RegisterRequest{Name: name})
	require.NoError(t, err)
	return postJSON(t, srv.URL+"/api/register", string(body))
}

func TestRegister_Scenario(t *testing.T) {
	srv, s := newTestServer(t)

	st, err := s.Load(context.Background())
	require.NoError(t, err)

	resp := register(t, srv, "Alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	first := decode[types.RegisterResponse](t, resp)
	assert.Equal(t, types.RegisterResponse{Hero: st.Order[0], AlreadyAssigned: false, Name: "Alice"}, first)

	resp = register(t, srv, "alice ")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[types.RegisterResponse](t, resp)
	assert.Equal(t, first.Hero, second.Hero)
	assert.True(t, second.AlreadyAssigned)
	assert.Equal(t, "alice", second.Name)

	for i := 1; i < len(engine.HeroPool); i++ {
		resp := register(t, srv, fmt.Sprintf("Guest %d", i))
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp = register(t, srv, "Latecomer")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, MsgPoolExhausted, decode[types.ErrorResponse](t, resp).Detail)
}

func TestRegister_BadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name       string
		body       string
		wantDetail string
	}{
		{name: "blank name", body: `{"name":"   "}`, wantDetail: MsgNameRequired},
		{name: "missing name", body: `{}`, wantDetail: MsgNameRequired},
		{name: "malformed json", body: `{"name":`, wantDetail: MsgBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/register", tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tc.wantDetail, decode[types.ErrorResponse](t, resp).Detail)
		})
	}
}

func TestStatusAndReset(t *testing.T) {
	srv, _ := newTestServer(t)

	require.Equal(t, http.StatusOK, register(t, srv, "Alice").StatusCode)
	require.Equal(t, http.StatusOK, register(t, srv, "Bob").StatusCode)

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[types.StatusResponse](t, resp)
	assert.Equal(t, 12, status.Total)
	assert.Equal(t, 2, status.Assigned)
	assert.Equal(t, 10, status.Remaining)
	assert.Contains(t, status.Assignments, "alice")
	assert.Contains(t, status.Assignments, "bob")

	resp = postJSON(t, srv.URL+"/api/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reset := decode[types.ResetResponse](t, resp)
	assert.Equal(t, MsgResetDone, reset.Message)
	assert.True(t, engine.IsPermutation(reset.NewOrder))

	resp2, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp2.Body.Close()
	status = decode[types.StatusResponse](t, resp2)
	assert.Equal(t, 0, status.Assigned)
	assert.Equal(t, status.Total, status.Remaining)
	assert.NotNil(t, status.Assignments)
	assert.Empty(t, status.Assignments)
}

func TestHealthzAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no feed configured")
}

type failingStore struct{ err error }

func (f failingStore) Allocate(context.Context, string) (engine.Allocation, error) {
	return engine.Allocation{}, f.err
}

func (f failingStore) Status(context.Context) (engine.Status, error) {
	return engine.Status{}, f.err
}

func (f failingStore) Reset(context.Context) ([]string, error) { return nil, f.err }

func TestStorageFailureIs500(t *testing.T) {
	h := SetupRoutes(Deps{Store: failingStore{err: errors.New("read assignments.json: permission denied")}})

	cases := []struct {
		method string
		path   string
		body   string
	}{
		{method: http.MethodPost, path: "/api/register", body: `{"name":"alice"}`},
		{method: http.MethodGet, path: "/api/status"},
		{method: http.MethodPost, path: "/api/reset"},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body)))

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			var body types.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, MsgInternal, body.Detail)
		})
	}
}
