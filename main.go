package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/miniquest/api"
	"github.com/kasuganosora/miniquest/audit"
	"github.com/kasuganosora/miniquest/cache"
	"github.com/kasuganosora/miniquest/config"
	dbadapter "github.com/kasuganosora/miniquest/db"
	"github.com/kasuganosora/miniquest/game/player"
	"github.com/kasuganosora/miniquest/game/save"
	mw "github.com/kasuganosora/miniquest/middleware"
	"github.com/kasuganosora/miniquest/model"
	"github.com/kasuganosora/miniquest/resource"
	"github.com/kasuganosora/miniquest/scheduler"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, cfgErr := config.Load(cfgPath)
	if cfgErr != nil {
		cfg = config.Default()
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfgErr != nil {
		logger.Warn("config not loaded, using defaults", zap.String("path", cfgPath), zap.Error(cfgErr))
	}
	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Encounter journal ----
	journal := audit.New(db, cfg.Game.JournalBatch, logger)

	// ---- Cache / PubSub ----
	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer c.Close()
	pubsub, err := cache.NewPubSub(cfg.Cache)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Encounter table ----
	archetypes, err := resource.LoadArchetypes(cfg.Game.ArchetypesPath)
	if err != nil {
		log.Fatalf("archetypes: %v", err)
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)

	// ---- Games ----
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

	adminIPs, err := mw.ParseAllowList(cfg.Security.AdminIPs)
	if err != nil {
		log.Fatalf("security.admin_ips: %v", err)
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := api.NewRouter(api.Deps{
		Sessions:  sm,
		Journal:   journal,
		PubSub:    pubsub,
		Scheduler: sched,
		Server:    cfg.Server,
		Security:  cfg.Security,
		AdminIPs:  adminIPs,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	sm.Shutdown(ctx)
	sched.Stop()
	journal.Stop(ctx)
}
