package rest

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/miniquest/game/player"
	"github.com/kasuganosora/miniquest/scheduler"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	sm     *player.SessionManager
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(sm *player.SessionManager, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{sm: sm, sched: sched, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"games_in_memory": h.sm.Count(),
		"scheduler_tasks": h.sched.ListTickers(),
	})
}

// ListGames returns the games held in memory and every game with a
// cached snapshot.
// GET /api/admin/games
func (h *AdminHandler) ListGames(c *gin.Context) {
	known, err := h.sm.Known(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	live := h.sm.IDs()
	sort.Strings(live)
	sort.Strings(known)
	c.JSON(http.StatusOK, gin.H{"live": live, "known": known})
}

// EvictGame persists a game and drops it from memory.
// POST /api/admin/games/:id/evict
func (h *AdminHandler) EvictGame(c *gin.Context) {
	id := c.Param("id")
	if err := h.sm.Evict(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("admin evicted game", zap.String("game_id", id))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Sweep evicts games idle for longer than ?idle= (default 30m).
// POST /api/admin/sweep
func (h *AdminHandler) Sweep(c *gin.Context) {
	idle := 30 * time.Minute
	if s := c.Query("idle"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid idle duration"})
			return
		}
		idle = d
	}
	n := h.sm.SweepIdle(c.Request.Context(), idle)
	c.JSON(http.StatusOK, gin.H{"evicted": n})
}

// ListSchedulerTasks returns names of all registered ticker tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// With an empty adminKey all admin endpoints answer 503, so a server
// deployed without server.admin_key exposes nothing.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		if c.GetHeader("X-Admin-Key") != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
