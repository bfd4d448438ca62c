package sse

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/miniquest/cache"
	"github.com/kasuganosora/miniquest/game/player"
	mw "github.com/kasuganosora/miniquest/middleware"
)

const defaultKeepalive = 30 * time.Second

// Handler streams a game's turn results as server-sent events.
type Handler struct {
	pubsub    cache.PubSub
	sm        *player.SessionManager
	logger    *zap.Logger
	keepalive time.Duration
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, sm *player.SessionManager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pubsub: pubsub, sm: sm, logger: logger, keepalive: defaultKeepalive}
}

// ServeEvents handles GET /api/games/:id/events.
// Every resolved hero action or enemy turn arrives as a "turn" event whose
// data is the JSON encoded player.Event. Paced enemy turns are only
// delivered this way.
func (h *Handler) ServeEvents(c *gin.Context) {
	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	_, err := h.sm.Get(ctx, id)
	cancel()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}

	// Set SSE headers.
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, player.EventsChannel(id))
	if err != nil {
		h.logger.Error("sse subscribe failed",
			zap.String("game_id", id),
			zap.String("trace_id", mw.GetTraceID(c)),
			zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"game_id\":%q}\n\n", id)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: turn\ndata: %s\n\n", msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}
