package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasuganosora/miniquest/api"
	"github.com/kasuganosora/miniquest/audit"
	"github.com/kasuganosora/miniquest/cache"
	"github.com/kasuganosora/miniquest/config"
	"github.com/kasuganosora/miniquest/game/player"
	"github.com/kasuganosora/miniquest/game/save"
	"github.com/kasuganosora/miniquest/resource"
	"github.com/kasuganosora/miniquest/scheduler"
	"github.com/kasuganosora/miniquest/testutil"
)

const adminKey = "integration-admin"

// TestServer is a real HTTP server with every subsystem wired the way
// main.go wires them. The cache and pub/sub run against miniredis.
type TestServer struct {
	Cfg     *config.Config
	Redis   *miniredis.Miniredis
	SM      *player.SessionManager
	Journal *audit.Journal
	Server  *httptest.Server
	URL     string
}

// NewTestServer starts a server. mutate may adjust the config before
// anything is built.
func NewTestServer(t *testing.T, mutate func(*config.Config)) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	cfg := testutil.TestConfig()
	cfg.Cache.RedisAddr = mr.Addr()
	cfg.Server.AdminKey = adminKey
	cfg.Security.RateLimitRPS = 1000
	cfg.Security.RateLimitBurst = 2000
	cfg.Game.JournalBatch = 1
	if mutate != nil {
		mutate(cfg)
	}
	logger := zap.NewNop()

	db := testutil.SetupTestDB(t)
	c, err := cache.NewCache(cfg.Cache)
	require.NoError(t, err)
	pubsub, err := cache.NewPubSub(cfg.Cache)
	require.NoError(t, err)
	archetypes, err := resource.LoadArchetypes(cfg.Game.ArchetypesPath)
	require.NoError(t, err)

	journal := audit.New(db, cfg.Game.JournalBatch, logger)
	sched := scheduler.New(logger)
	sm := player.NewSessionManager(player.ManagerConfig{
		Game:       cfg.Game,
		GameTTL:    cfg.Cache.GameTTL,
		Archetypes: archetypes,
		Cache:      c,
		Store:      save.NewStore(db),
		Scheduler:  sched,
		Journal:    journal,
		Events:     pubsub,
		Logger:     logger,
	})
	sm.Start()

	r := api.NewRouter(api.Deps{
		Sessions:  sm,
		Journal:   journal,
		PubSub:    pubsub,
		Scheduler: sched,
		Server:    cfg.Server,
		Security:  cfg.Security,
		Logger:    logger,
	})
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		sm.Shutdown(context.Background())
		sched.Stop()
		journal.Stop(context.Background())
		_ = c.Close()
	})
	return &TestServer{Cfg: cfg, Redis: mr, SM: sm, Journal: journal, Server: srv, URL: srv.URL}
}

// Do sends a JSON request and decodes the JSON reply.
func (ts *TestServer) Do(t *testing.T, method, path string, body interface{}, header ...string) (int, map[string]interface{}) {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// CreateGame starts a game and returns its id.
func (ts *TestServer) CreateGame(t *testing.T, seed int64) string {
	t.Helper()
	code, body := ts.Do(t, http.MethodPost, "/api/games", map[string]int64{"seed": seed})
	require.Equal(t, http.StatusCreated, code, body)
	return body["id"].(string)
}

// Game fetches the current view of a game.
func (ts *TestServer) Game(t *testing.T, id string) map[string]interface{} {
	t.Helper()
	code, body := ts.Do(t, http.MethodGet, "/api/games/"+id, nil)
	require.Equal(t, http.StatusOK, code, body)
	return body["game"].(map[string]interface{})
}

// SSEEvent is one server-sent event.
type SSEEvent struct {
	Name string
	Data string
}

// EventStream reads a game's event stream in the background.
type EventStream struct {
	events chan SSEEvent
	cancel context.CancelFunc
}

// Events opens the event stream of game id and waits for the
// "connected" event.
func (ts *TestServer) Events(t *testing.T, id string) *EventStream {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/games/"+id+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	es := &EventStream{events: make(chan SSEEvent, 64), cancel: cancel}
	go func() {
		defer resp.Body.Close()
		defer close(es.events)
		sc := bufio.NewScanner(resp.Body)
		var cur SSEEvent
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				cur.Name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				cur.Data = strings.TrimPrefix(line, "data: ")
			case line == "" && cur.Name != "":
				es.events <- cur
				cur = SSEEvent{}
			}
		}
	}()
	t.Cleanup(es.Close)

	ev := es.Next(t, 5*time.Second)
	require.Equal(t, "connected", ev.Name)
	return es
}

// Next returns the next event or fails the test after timeout.
func (es *EventStream) Next(t *testing.T, timeout time.Duration) SSEEvent {
	t.Helper()
	select {
	case ev, ok := <-es.events:
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(timeout):
		t.Fatalf("no event within %s", timeout)
		return SSEEvent{}
	}
}

// NextTurn returns the next "turn" event decoded.
func (es *EventStream) NextTurn(t *testing.T, timeout time.Duration) player.Event {
	t.Helper()
	ev := es.Next(t, timeout)
	require.Equal(t, "turn", ev.Name)
	var out player.Event
	require.NoError(t, json.Unmarshal([]byte(ev.Data), &out))
	return out
}

func (es *EventStream) Close() { es.cancel() }
