package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/miniquest/game/player"
)

// SaveHandler handles save slot endpoints.
type SaveHandler struct {
	sm     *player.SessionManager
	logger *zap.Logger
}

// NewSaveHandler creates a SaveHandler.
func NewSaveHandler(sm *player.SessionManager, logger *zap.Logger) *SaveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaveHandler{sm: sm, logger: logger}
}

type slotRequest struct {
	Slot string `json:"slot" binding:"required,max=64"`
}

// Save handles POST /api/games/:id/save.
func (h *SaveHandler) Save(c *gin.Context) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := requestContext(c)
	if err := h.sm.SaveSlot(ctx, c.Param("id"), req.Slot); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "slot": req.Slot})
}

// Load handles POST /api/games/:id/load. A missing or malformed save
// leaves the game unchanged; the response still carries its view so the
// client can show the notice.
func (h *SaveHandler) Load(c *gin.Context) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := requestContext(c)
	id := c.Param("id")
	if err := h.sm.LoadSlot(ctx, id, req.Slot); err != nil {
		status := statusOf(err)
		body := gin.H{"error": err.Error()}
		if status == http.StatusInternalServerError {
			_ = c.Error(err)
			body["error"] = "internal error"
		}
		if g, gerr := h.sm.Get(ctx, id); gerr == nil {
			body["game"] = g.View()
		}
		c.JSON(status, body)
		return
	}
	g, err := h.sm.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "game": g.View()})
}

// List handles GET /api/saves.
func (h *SaveHandler) List(c *gin.Context) {
	slots, err := h.sm.Slots(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// Delete handles DELETE /api/saves/:slot.
func (h *SaveHandler) Delete(c *gin.Context) {
	if err := h.sm.DeleteSlot(c.Request.Context(), c.Param("slot")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
