package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/miniquest/game/combat"
	"github.com/kasuganosora/miniquest/game/player"
	"github.com/kasuganosora/miniquest/game/save"
	"github.com/kasuganosora/miniquest/game/world"
)

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, player.ErrGameNotFound), errors.Is(err, save.ErrSlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, player.ErrInCombat),
		errors.Is(err, player.ErrNotInCombat),
		errors.Is(err, player.ErrNotYourTurn),
		errors.Is(err, player.ErrNoPotions),
		errors.Is(err, world.ErrQuestChoice):
		return http.StatusConflict
	case errors.Is(err, player.ErrGameClosed):
		return http.StatusGone
	case errors.Is(err, save.ErrInvalidSlot),
		errors.Is(err, combat.ErrUnknownAction),
		errors.Is(err, world.ErrChestKey):
		return http.StatusBadRequest
	case errors.Is(err, save.ErrMalformedRecord):
		return http.StatusUnprocessableEntity
	case errors.Is(err, player.ErrSlotsDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Internal errors are attached to the
// context for the request logger and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
