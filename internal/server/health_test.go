package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greencoach/greencoach-service/internal/handlers"
)

type stubDB struct{ err error }

func (s stubDB) HealthCheck(context.Context) error { return s.err }

func TestHealthEndpoint(t *testing.T) {
	deps := newTestDeps(t)
	deps.DB = stubDB{}
	router := newTestRouter(t, deps)

	w := serve(router, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, handlers.Version, resp.Version)

	ts, err := time.Parse(time.RFC3339, resp.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, 5*time.Second)
}

func TestHealthEndpoint_DatabaseDown(t *testing.T) {
	deps := newTestDeps(t)
	deps.DB = stubDB{err: errors.New("connection refused")}
	router := newTestRouter(t, deps)

	w := serve(router, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"unhealthy"`)
}

func TestHealthEndpoint_NotRateLimited(t *testing.T) {
	deps := newTestDeps(t)
	deps.Config.RateLimit.General = "1-M"
	router := newTestRouter(t, deps)

	for range 5 {
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/health", "", nil).Code)
	}
	assert.Equal(t, http.StatusMethodNotAllowed, serve(router, http.MethodPost, "/api/health", "", nil).Code)
}
