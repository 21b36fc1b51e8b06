package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/showstart-scout/internal/config"
	"github.com/jonathan/showstart-scout/internal/search"
	"github.com/jonathan/showstart-scout/internal/types"
)

var fixedNow = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

// fakeService records calls and returns canned answers.
type fakeService struct {
	mu        sync.Mutex
	readyErr  error
	submitErr error
	outcome   *types.SearchOutcome
	panicMsg  string

	gotName    string
	gotTimeout time.Duration
	submitted  int
}

func (f *fakeService) Search(_ context.Context, name string, timeout time.Duration) *types.SearchOutcome {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotName, f.gotTimeout = name, timeout
	if f.outcome != nil {
		return f.outcome
	}
	return &types.SearchOutcome{RapperName: name, Success: true, Performances: []types.PerformanceListing{}}
}

func (f *fakeService) Submit(name string, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotName, f.gotTimeout = name, timeout
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted++
	return "9b2f6a4e-1111-4c3a-9d7e-2f0c3b1a0e55", nil
}

func (f *fakeService) Ready() error { return f.readyErr }

func newTestServer(t *testing.T, svc SearchService, mutate ...func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimit.CleanupInterval = 0
	for _, m := range mutate {
		m(cfg)
	}
	s := New(cfg, svc)
	s.now = func() time.Time { return fixedNow }
	t.Cleanup(s.rateLimiter.Stop)
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "rapper-search-api", resp["service"])
	assert.Equal(t, "2026-10-17T09:00:00Z", resp["timestamp"])
}

func TestInfoEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeService{})

	w := do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, Version, resp["version"])
	assert.Equal(t, "running", resp["status"])
	assert.Equal(t, config.ModeSync, resp["mode"])
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, &fakeService{})

	w := do(t, s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "HTTP_404", decodeEnvelope(t, w).ErrorCode)
}

func TestSearch_Sync(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(t, svc)

	w := do(t, s, http.MethodPost, "/search/rapper", `{"rapper_name":"  GAI ","timeout_seconds":60}`)
	require.Equal(t, http.StatusOK, w.Code)

	var outcome types.SearchOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.True(t, outcome.Success)
	assert.Equal(t, "GAI", svc.gotName)
	assert.Equal(t, 60*time.Second, svc.gotTimeout)
}

func TestSearch_SyncNoTimeoutMeansNoDeadline(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(t, svc)

	w := do(t, s, http.MethodPost, "/search/rapper", `{"rapper_name":"GAI"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Duration(0), svc.gotTimeout)
}

func TestSearch_FailedOutcomeIsStill200(t *testing.T) {
	msg := "agent timed out after 30 seconds"
	svc := &fakeService{outcome: &types.SearchOutcome{
		RapperName:     "GAI",
		Performances:   []types.PerformanceListing{},
		ExecutionStats: types.ExecutionStats{Timeout: true, TimeoutSeconds: 30},
		ErrorMessage:   &msg,
	}}
	s := newTestServer(t, svc)

	w := do(t, s, http.MethodPost, "/search/rapper", `{"rapper_name":"GAI","timeout_seconds":30}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"timeout":true`)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestSearch_Async(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(t, svc, func(c *config.Config) { c.Server.Mode = config.ModeAsync })

	w := do(t, s, http.MethodPost, "/search/rapper", `{"rapper_name":"GAI"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var ack types.SubmissionAck
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.True(t, ack.Success)
	assert.Equal(t, "accepted", ack.Status)
	assert.Equal(t, "GAI", ack.RapperName)
	assert.NotEmpty(t, ack.TaskID)
	assert.Equal(t, fixedNow, ack.SubmittedAt)
	assert.Equal(t, 1, svc.submitted)
}

func TestSearch_AsyncSubmitUnavailable(t *testing.T) {
	svc := &fakeService{submitErr: search.ErrServiceUnavailable}
	s := newTestServer(t, svc, func(c *config.Config) { c.Server.Mode = config.ModeAsync })

	w := do(t, s, http.MethodPost, "/search/rapper", `{"rapper_name":"GAI"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "HTTP_503", decodeEnvelope(t, w).ErrorCode)
}

func TestSearch_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"malformed JSON", `{"rapper_name":`, "body"},
		{"missing name", `{}`, "rapper_name"},
		{"blank name", `{"rapper_name":"   "}`, "rapper_name"},
		{"name too long", `{"rapper_name":"` + strings.Repeat("x", 51) + `"}`, "rapper_name"},
		{"timeout below bound", `{"rapper_name":"GAI","timeout_seconds":10}`, "timeout_seconds"},
		{"timeout above bound", `{"rapper_name":"GAI","timeout_seconds":601}`, "timeout_seconds"},
		{"zero timeout", `{"rapper_name":"GAI","timeout_seconds":0}`, "timeout_seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			s := newTestServer(t, svc)

			w := do(t, s, http.MethodPost, "/search/rapper", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			resp := decodeEnvelope(t, w)
			assert.Equal(t, "HTTP_400", resp.ErrorCode)
			assert.Contains(t, resp.ErrorMessage, tt.wantField)
			assert.Empty(t, svc.gotName, "service must not be called")
		})
	}
}

func TestSearch_ServiceMissing(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(t, s, http.MethodPost, "/search/rapper", `{"rapper_name":"GAI"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, "HTTP_503", resp.ErrorCode)
	assert.Equal(t, search.ErrServiceUnavailable.Error(), resp.ErrorMessage)
}

func TestSearch_ServiceNotReady(t *testing.T) {
	s := newTestServer(t, &fakeService{readyErr: search.ErrServiceUnavailable})

	w := do(t, s, http.MethodPost, "/search/rapper", `{"rapper_name":"GAI"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSearch_PanicBecomesInternalError(t *testing.T) {
	s := newTestServer(t, &fakeService{panicMsg: "db pool exploded"})

	w := do(t, s, http.MethodPost, "/search/rapper", `{"rapper_name":"GAI"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, CodeInternal, resp.ErrorCode)
	assert.NotContains(t, resp.ErrorMessage, "db pool exploded")
}

func TestSearch_RateLimited(t *testing.T) {
	s := newTestServer(t, &fakeService{}, func(c *config.Config) {
		c.RateLimit.SearchLimit = 2
		c.RateLimit.SearchBurst = 2
		c.RateLimit.SearchWindow = time.Hour
	})

	for i := 0; i < 2; i++ {
		w := do(t, s, http.MethodPost, "/search/rapper", `{"rapper_name":"GAI"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := do(t, s, http.MethodPost, "/search/rapper", `{"rapper_name":"GAI"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, "HTTP_429", resp.ErrorCode)
	assert.Positive(t, resp.RetryAfter)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Health stays reachable.
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, &fakeService{})

	w := do(t, s, http.MethodOptions, "/search/rapper", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestShutdown_RunsClosersInOrder(t *testing.T) {
	s := newTestServer(t, &fakeService{})
	var order []string
	s.OnShutdown(func(context.Context) error { order = append(order, "service"); return nil })
	s.OnShutdown(func(context.Context) error { order = append(order, "store"); return errors.New("close failed") })

	err := s.Shutdown(context.Background())
	assert.ErrorContains(t, err, "close failed")
	assert.Equal(t, []string{"service", "store"}, order)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", &ErrValidation{Field: "rapper_name", Message: "is required"}, http.StatusBadRequest},
		{"invalid request", search.ErrInvalidRequest, http.StatusBadRequest},
		{"unavailable", search.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"wrapped unavailable", errors.Join(errors.New("closing"), search.ErrServiceUnavailable), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "rapper_name", Message: "is required"}
	assert.Equal(t, "validation error: rapper_name - is required", err.Error())
}
