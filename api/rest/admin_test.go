package rest_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminKey = "s3cret"

func TestAdminAuth(t *testing.T) {
	disabled := newTestServer(t, "")
	w := disabled.do(http.MethodGet, "/api/admin/metrics", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	s := newTestServer(t, testAdminKey)
	w = s.do(http.MethodGet, "/api/admin/metrics", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodGet, "/api/admin/metrics", nil, "X-Admin-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodGet, "/api/admin/metrics", nil, "X-Admin-Key", testAdminKey)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminMetrics(t *testing.T) {
	s := newTestServer(t, testAdminKey)
	s.newGame(t)

	w := s.do(http.MethodGet, "/api/admin/metrics", nil, "X-Admin-Key", testAdminKey)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, float64(1), resp["games_in_memory"])
	assert.Contains(t, resp, "scheduler_tasks")
}

func TestAdminGamesAndEvict(t *testing.T) {
	s := newTestServer(t, testAdminKey)
	id := s.newGame(t)

	w := s.do(http.MethodGet, "/api/admin/games", nil, "X-Admin-Key", testAdminKey)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, []interface{}{id}, resp["live"])
	assert.Equal(t, []interface{}{id}, resp["known"])

	w = s.do(http.MethodPost, "/api/admin/games/"+id+"/evict", nil, "X-Admin-Key", testAdminKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, s.sm.Count())

	w = s.do(http.MethodPost, "/api/admin/games/"+id+"/evict", nil, "X-Admin-Key", testAdminKey)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminSweep(t *testing.T) {
	s := newTestServer(t, testAdminKey)
	s.newGame(t)

	w := s.do(http.MethodPost, "/api/admin/sweep?idle=soon", nil, "X-Admin-Key", testAdminKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/admin/sweep", nil, "X-Admin-Key", testAdminKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["evicted"])

	time.Sleep(2 * time.Millisecond)
	w = s.do(http.MethodPost, "/api/admin/sweep?idle=1ms", nil, "X-Admin-Key", testAdminKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["evicted"])
}

func TestAdminSchedulerTasks(t *testing.T) {
	s := newTestServer(t, testAdminKey)
	s.sm.Start()
	defer s.sm.Shutdown(t.Context())

	w := s.do(http.MethodGet, "/api/admin/scheduler", nil, "X-Admin-Key", testAdminKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"games:autosave", "games:sweep"}, decode(t, w)["tasks"])
}
