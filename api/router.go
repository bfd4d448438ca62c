// Package api assembles the HTTP surface of the game server.
package api

import (
	"net/netip"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apirest "github.com/kasuganosora/miniquest/api/rest"
	"github.com/kasuganosora/miniquest/api/sse"
	"github.com/kasuganosora/miniquest/audit"
	"github.com/kasuganosora/miniquest/cache"
	"github.com/kasuganosora/miniquest/config"
	"github.com/kasuganosora/miniquest/game/player"
	mw "github.com/kasuganosora/miniquest/middleware"
	"github.com/kasuganosora/miniquest/scheduler"
)

// Deps are the services the router hands to its handlers.
type Deps struct {
	Sessions  *player.SessionManager
	Journal   *audit.Journal
	PubSub    cache.PubSub
	Scheduler *scheduler.Scheduler
	Server    config.ServerConfig
	Security  config.SecurityConfig
	AdminIPs  []netip.Prefix
	Logger    *zap.Logger
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(d.Logger), mw.Recovery(d.Logger))
	r.Use(mw.RateLimit(rate.Limit(d.Security.RateLimitRPS), d.Security.RateLimitBurst))

	gameH := apirest.NewGameHandler(d.Sessions, d.Logger)
	saveH := apirest.NewSaveHandler(d.Sessions, d.Logger)
	encH := apirest.NewEncounterHandler(d.Journal)
	adminH := apirest.NewAdminHandler(d.Sessions, d.Scheduler, d.Logger)
	sseH := sse.NewHandler(d.PubSub, d.Sessions, d.Logger)

	api := r.Group("/api")
	{
		api.GET("/health", gameH.Health)
		api.POST("/games", gameH.Create)

		gameG := api.Group("/games/:id")
		gameG.GET("", gameH.Get)
		gameG.DELETE("", gameH.Delete)
		gameG.POST("/reset", gameH.Reset)
		gameG.POST("/step", gameH.Step)
		gameG.POST("/actions", gameH.Act)
		gameG.POST("/potion", gameH.Potion)
		gameG.POST("/quest", gameH.Quest)
		gameG.POST("/interact", gameH.Interact)
		gameG.POST("/save", saveH.Save)
		gameG.POST("/load", saveH.Load)
		gameG.GET("/encounters", encH.List)
		gameG.GET("/events", sseH.ServeEvents)

		api.GET("/saves", saveH.List)
		api.DELETE("/saves/:slot", saveH.Delete)

		adminG := api.Group("/admin")
		adminG.Use(mw.IPWhitelist(d.AdminIPs), apirest.AdminAuth(d.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/games", adminH.ListGames)
		adminG.POST("/games/:id/evict", adminH.EvictGame)
		adminG.POST("/sweep", adminH.Sweep)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
	}
	return r
}
