package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/miniquest/model"
)

const maxEncounterLimit = 100

// EncounterSource reads the encounter journal; *audit.Journal satisfies it.
type EncounterSource interface {
	Recent(ctx context.Context, gameID string, limit int) ([]model.EncounterLog, error)
}

// EncounterHandler serves a game's finished encounters.
type EncounterHandler struct {
	journal EncounterSource
}

func NewEncounterHandler(journal EncounterSource) *EncounterHandler {
	return &EncounterHandler{journal: journal}
}

// List handles GET /api/games/:id/encounters?limit=20.
func (h *EncounterHandler) List(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= maxEncounterLimit {
		limit = l
	}
	rows, err := h.journal.Recent(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"encounters": rows})
}
