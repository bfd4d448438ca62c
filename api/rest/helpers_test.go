package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/miniquest/api/rest"
	"github.com/kasuganosora/miniquest/audit"
	"github.com/kasuganosora/miniquest/game/combat"
	"github.com/kasuganosora/miniquest/game/player"
	"github.com/kasuganosora/miniquest/game/save"
	mw "github.com/kasuganosora/miniquest/middleware"
	"github.com/kasuganosora/miniquest/scheduler"
	"github.com/kasuganosora/miniquest/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type alwaysAttack struct{}

func (alwaysAttack) Decide(*combat.Enemy, *combat.Hero, combat.RNG) combat.Intent {
	return combat.IntentAttack
}

type testServer struct {
	r       *gin.Engine
	sm      *player.SessionManager
	store   *save.Store
	journal *audit.Journal
	sched   *scheduler.Scheduler
}

// newTestServer wires the handlers the way main does, with an in-memory
// database, a local cache and no enemy turn delay.
func newTestServer(t *testing.T, adminKey string) *testServer {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := testutil.TestConfig()
	journal := audit.New(db, 1, testutil.Logger())
	t.Cleanup(func() { journal.Stop(context.Background()) })
	sched := scheduler.New(testutil.Logger())
	t.Cleanup(sched.Stop)
	store := save.NewStore(db)

	sm := player.NewSessionManager(player.ManagerConfig{
		Game:      cfg.Game,
		Policy:    alwaysAttack{},
		Cache:     testutil.SetupTestCache(t),
		Store:     store,
		Scheduler: sched,
		Journal:   journal,
		Logger:    testutil.Logger(),
	})

	gameH := rest.NewGameHandler(sm, nil)
	saveH := rest.NewSaveHandler(sm, nil)
	encH := rest.NewEncounterHandler(journal)
	adminH := rest.NewAdminHandler(sm, sched, nil)

	r := gin.New()
	r.Use(mw.TraceID())
	api := r.Group("/api")
	api.GET("/health", gameH.Health)
	api.POST("/games", gameH.Create)
	g := api.Group("/games/:id")
	g.GET("", gameH.Get)
	g.DELETE("", gameH.Delete)
	g.POST("/reset", gameH.Reset)
	g.POST("/step", gameH.Step)
	g.POST("/actions", gameH.Act)
	g.POST("/potion", gameH.Potion)
	g.POST("/interact", gameH.Interact)
	g.POST("/quest", gameH.Quest)
	g.POST("/save", saveH.Save)
	g.POST("/load", saveH.Load)
	g.GET("/encounters", encH.List)
	api.GET("/saves", saveH.List)
	api.DELETE("/saves/:slot", saveH.Delete)

	admin := api.Group("/admin", rest.AdminAuth(adminKey))
	admin.GET("/metrics", adminH.Metrics)
	admin.GET("/games", adminH.ListGames)
	admin.POST("/games/:id/evict", adminH.EvictGame)
	admin.POST("/sweep", adminH.Sweep)
	admin.GET("/scheduler", adminH.ListSchedulerTasks)

	return &testServer{r: r, sm: sm, store: store, journal: journal, sched: sched}
}

func (s *testServer) do(method, path string, body interface{}, header ...string) *httptest.ResponseRecorder {
	var b []byte
	if body != nil {
		if raw, ok := body.(string); ok {
			b = []byte(raw)
		} else {
			b, _ = json.Marshal(body)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

// newGame creates a game and returns its id.
func (s *testServer) newGame(t *testing.T) string {
	t.Helper()
	w := s.do(http.MethodPost, "/api/games", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["id"].(string)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// game extracts the "game" view from a response.
func game(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	g, ok := decode(t, w)["game"].(map[string]interface{})
	require.True(t, ok, "no game in %s", w.Body.String())
	return g
}
