package rest

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/miniquest/game/combat"
	"github.com/kasuganosora/miniquest/game/player"
	"github.com/kasuganosora/miniquest/game/world"
	mw "github.com/kasuganosora/miniquest/middleware"
)

// GameHandler handles the game REST endpoints.
type GameHandler struct {
	sm     *player.SessionManager
	logger *zap.Logger
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(sm *player.SessionManager, logger *zap.Logger) *GameHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameHandler{sm: sm, logger: logger}
}

func requestContext(c *gin.Context) context.Context {
	return player.WithTraceID(c.Request.Context(), mw.GetTraceID(c))
}

// load resolves :id or writes the error response.
func (h *GameHandler) load(c *gin.Context) (*player.GameSession, bool) {
	g, err := h.sm.Get(requestContext(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return g, true
}

// persist mirrors g to the cache after a command. A failure is logged; the
// in-memory game stays authoritative.
func (h *GameHandler) persist(c *gin.Context, g *player.GameSession) {
	if err := h.sm.Persist(c.Request.Context(), g); err != nil {
		h.logger.Warn("persist game",
			zap.String("game_id", g.ID),
			zap.String("trace_id", mw.GetTraceID(c)),
			zap.Error(err))
	}
}

type createGameRequest struct {
	Seed *int64 `json:"seed"`
}

// Create handles POST /api/games.
func (h *GameHandler) Create(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, err := h.sm.Create(requestContext(c), req.Seed)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": g.ID, "seed": g.Seed, "game": g.View()})
}

// Get handles GET /api/games/:id.
func (h *GameHandler) Get(c *gin.Context) {
	g, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": g.View()})
}

// Delete handles DELETE /api/games/:id.
func (h *GameHandler) Delete(c *gin.Context) {
	if err := h.sm.Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Reset handles POST /api/games/:id/reset.
func (h *GameHandler) Reset(c *gin.Context) {
	g, ok := h.load(c)
	if !ok {
		return
	}
	if err := g.Reset(); err != nil {
		respondError(c, err)
		return
	}
	h.persist(c, g)
	c.JSON(http.StatusOK, gin.H{"game": g.View()})
}

type stepRequest struct {
	Tile string `json:"tile" binding:"required"`
}

// Step handles POST /api/games/:id/step.
func (h *GameHandler) Step(c *gin.Context) {
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tile, err := world.ParseTile(req.Tile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, ok := h.load(c)
	if !ok {
		return
	}
	res, err := g.Step(requestContext(c), tile)
	if err != nil {
		respondError(c, err)
		return
	}
	h.persist(c, g)
	c.JSON(http.StatusOK, gin.H{"step": res, "game": g.View()})
}

type actionRequest struct {
	Action string `json:"action" binding:"required"`
}

// Act handles POST /api/games/:id/actions. When enemy turns are paced the
// response carries enemy_turn_pending and the reply arrives on the event
// stream.
func (h *GameHandler) Act(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action, err := combat.ParseHeroAction(req.Action)
	if err != nil {
		respondError(c, err)
		return
	}
	g, ok := h.load(c)
	if !ok {
		return
	}
	res, err := g.Act(requestContext(c), action)
	if err != nil {
		respondError(c, err)
		return
	}
	h.persist(c, g)
	c.JSON(http.StatusOK, gin.H{"result": res, "game": g.View()})
}

// Potion handles POST /api/games/:id/potion.
func (h *GameHandler) Potion(c *gin.Context) {
	g, ok := h.load(c)
	if !ok {
		return
	}
	healed, err := g.UsePotion()
	if err != nil {
		if errors.Is(err, player.ErrNoPotions) {
			// the failed attempt is in the log
			h.persist(c, g)
		}
		respondError(c, err)
		return
	}
	h.persist(c, g)
	c.JSON(http.StatusOK, gin.H{"healed": healed, "game": g.View()})
}

type questRequest struct {
	Choice string `json:"choice" binding:"required,oneof=accept decline claim"`
}

// Quest handles POST /api/games/:id/quest.
func (h *GameHandler) Quest(c *gin.Context) {
	var req questRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, ok := h.load(c)
	if !ok {
		return
	}
	line, err := g.TalkToElder(world.QuestChoice(req.Choice))
	if err != nil {
		respondError(c, err)
		return
	}
	h.persist(c, g)
	c.JSON(http.StatusOK, gin.H{"message": line, "game": g.View()})
}

type interactRequest struct {
	Tile string `json:"tile" binding:"required"`
	Key  string `json:"key"`
}

// Interact handles POST /api/games/:id/interact. Chests are told apart by
// the client's key, e.g. "dungeon:3,4".
func (h *GameHandler) Interact(c *gin.Context) {
	var req interactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tile, err := world.ParseTile(req.Tile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, ok := h.load(c)
	if !ok {
		return
	}
	res, err := g.Interact(tile, req.Key)
	if err != nil {
		respondError(c, err)
		return
	}
	h.persist(c, g)
	c.JSON(http.StatusOK, gin.H{"interact": res, "game": g.View()})
}

// Health handles GET /api/health.
func (h *GameHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "games": h.sm.Count()})
}
