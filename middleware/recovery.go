package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery returns a Gin middleware that turns a handler panic into a 500.
// The log entry names the game and save slot the request was working on;
// the client gets the trace id to quote.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			traceID := GetTraceID(c)
			fields := []zap.Field{
				zap.Error(err),
				zap.String("trace_id", traceID),
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
			}
			if id := c.Param("id"); id != "" {
				fields = append(fields, zap.String("game_id", id))
			}
			if slot := c.Param("slot"); slot != "" {
				fields = append(fields, zap.String("slot", slot))
			}
			fields = append(fields, zap.Stack("stack"))
			log.Error("handler panic", fields...)

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":    "internal error",
				"trace_id": traceID,
			})
		}()
		c.Next()
	}
}
