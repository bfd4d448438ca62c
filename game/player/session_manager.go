package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kasuganosora/miniquest/cache"
	"github.com/kasuganosora/miniquest/config"
	"github.com/kasuganosora/miniquest/game/combat"
	"github.com/kasuganosora/miniquest/game/save"
	"github.com/kasuganosora/miniquest/resource"
	"github.com/kasuganosora/miniquest/scheduler"
)

const (
	gameKeyPrefix = "game:"
	gameIndexKey  = "games"

	autosaveTask = "games:autosave"
	sweepTask    = "games:sweep"
	persistWait  = 2 * time.Second
)

// ErrSlotsDisabled is returned by slot operations when no store is wired.
var ErrSlotsDisabled = errors.New("save slots disabled")

// ManagerConfig wires a SessionManager. Cache, Store, Journal and Events
// may be nil; the corresponding feature is then off.
type ManagerConfig struct {
	Game       config.GameConfig
	GameTTL    time.Duration // lifetime of cached snapshots; 0 = no expiry
	Archetypes []resource.EnemyArchetype
	Policy     combat.Policy
	Cache      cache.Cache
	Store      *save.Store
	Scheduler  *scheduler.Scheduler
	Journal    Recorder
	Events     Publisher
	Logger     *zap.Logger
}

// SessionManager owns the running games. Live games are held in memory
// and mirrored to the cache so they survive eviction and restarts.
type SessionManager struct {
	mu     sync.RWMutex
	games  map[string]*GameSession
	cfg    ManagerConfig
	logger *zap.Logger
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(cfg ManagerConfig) *SessionManager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &SessionManager{
		games:  make(map[string]*GameSession),
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

func (sm *SessionManager) gameConfig(seed int64) GameConfig {
	gc := GameConfig{
		Seed:           seed,
		Archetypes:     sm.cfg.Archetypes,
		Policy:         sm.cfg.Policy,
		EnemyTurnDelay: sm.cfg.Game.EnemyTurnDelay(),
		Events:         sm.cfg.Events,
		Journal:        sm.cfg.Journal,
		OnChange:       sm.persistAsync,
		Logger:         sm.logger,
	}
	if sm.cfg.Scheduler != nil {
		gc.Delayer = sm.cfg.Scheduler
	}
	return gc
}

// pickSeed returns seed if given, else the configured seed, else a
// fresh one from crypto/rand.
func (sm *SessionManager) pickSeed(seed *int64) (int64, error) {
	if seed != nil {
		return *seed, nil
	}
	if sm.cfg.Game.Seed != 0 {
		return sm.cfg.Game.Seed, nil
	}
	return combat.NewSeed()
}

// Create starts a new game.
func (sm *SessionManager) Create(ctx context.Context, seed *int64) (*GameSession, error) {
	s, err := sm.pickSeed(seed)
	if err != nil {
		return nil, err
	}
	g := NewGameSession(uuid.NewString(), sm.gameConfig(s))
	sm.Register(g)
	if err := sm.Persist(ctx, g); err != nil {
		sm.logger.Warn("persist new game", zap.String("game_id", g.ID), zap.Error(err))
	}
	return g, nil
}

// Register adds a game. A previous game with the same id is closed first.
func (sm *SessionManager) Register(g *GameSession) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if old, ok := sm.games[g.ID]; ok && old != g {
		old.Close()
		sm.logger.Info("game displaced", zap.String("game_id", g.ID))
	}
	sm.games[g.ID] = g
	sm.logger.Info("game registered", zap.String("game_id", g.ID), zap.Int64("seed", g.Seed))
}

// Unregister drops a game from memory; its cached snapshot stays.
func (sm *SessionManager) Unregister(id string) {
	sm.mu.Lock()
	g, ok := sm.games[id]
	delete(sm.games, id)
	sm.mu.Unlock()
	if ok {
		g.Close()
		sm.logger.Info("game unregistered", zap.String("game_id", id))
	}
}

// Get returns a running game, rehydrating it from the cache when it is
// not in memory.
func (sm *SessionManager) Get(ctx context.Context, id string) (*GameSession, error) {
	sm.mu.RLock()
	g, ok := sm.games[id]
	sm.mu.RUnlock()
	if ok {
		return g, nil
	}
	return sm.rehydrate(ctx, id)
}

func (sm *SessionManager) rehydrate(ctx context.Context, id string) (*GameSession, error) {
	if sm.cfg.Cache == nil {
		return nil, ErrGameNotFound
	}
	data, err := sm.cfg.Cache.Get(ctx, gameKeyPrefix+id)
	if cache.IsNotFound(err) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("player: read cached game: %w", err)
	}
	rec, err := save.Decode([]byte(data))
	if err != nil {
		sm.logger.Error("cached game unreadable", zap.String("game_id", id), zap.Error(err))
		return nil, err
	}
	seed, err := sm.pickSeed(nil)
	if err != nil {
		return nil, err
	}
	g := NewGameSession(id, sm.gameConfig(seed))
	g.mu.Lock()
	err = g.adoptLocked(rec)
	var events []Event
	if err == nil {
		events = g.driveEnemyLocked()
	}
	done := g.takeFinished()
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sm.mu.Lock()
	if existing, ok := sm.games[id]; ok {
		// lost the race against another request
		sm.mu.Unlock()
		g.Close()
		return existing, nil
	}
	sm.games[id] = g
	sm.mu.Unlock()

	if sm.cfg.GameTTL > 0 {
		// reading a game back renews its lease
		if err := sm.cfg.Cache.Expire(ctx, gameKeyPrefix+id, sm.cfg.GameTTL); err != nil && !cache.IsNotFound(err) {
			sm.logger.Warn("renew cached game", zap.String("game_id", id), zap.Error(err))
		}
	}
	g.emit(ctx, events, done)
	sm.logger.Info("game rehydrated", zap.String("game_id", id))
	return g, nil
}

// Evict writes a game to the cache and drops it from memory.
func (sm *SessionManager) Evict(ctx context.Context, id string) error {
	sm.mu.RLock()
	g, ok := sm.games[id]
	sm.mu.RUnlock()
	if !ok {
		return ErrGameNotFound
	}
	return sm.retire(ctx, g)
}

// retire closes g, writes its final state and drops it from memory. When
// the write fails the game is reopened and stays registered.
func (sm *SessionManager) retire(ctx context.Context, g *GameSession) error {
	g.persistMu.Lock()
	defer g.persistMu.Unlock()
	rec := g.closeAndRecord()
	if rec != nil {
		if err := sm.write(ctx, g.ID, rec); err != nil {
			g.reopen()
			return err
		}
	}
	sm.mu.Lock()
	if sm.games[g.ID] == g {
		delete(sm.games, g.ID)
	}
	sm.mu.Unlock()
	sm.logger.Info("game retired", zap.String("game_id", g.ID))
	return nil
}

// Remove ends a game for good.
func (sm *SessionManager) Remove(ctx context.Context, id string) error {
	sm.Unregister(id)
	if sm.cfg.Cache == nil {
		return nil
	}
	if err := sm.cfg.Cache.Del(ctx, gameKeyPrefix+id); err != nil {
		return err
	}
	return sm.cfg.Cache.SRem(ctx, gameIndexKey, id)
}

// Persist mirrors g into the cache. Writes of one game land in the order
// their snapshots were taken; a closed game is not written again, its
// final state was stored when it was retired.
func (sm *SessionManager) Persist(ctx context.Context, g *GameSession) error {
	if sm.cfg.Cache == nil {
		return nil
	}
	g.persistMu.Lock()
	defer g.persistMu.Unlock()
	rec := g.liveRecord()
	if rec == nil {
		return nil
	}
	return sm.write(ctx, g.ID, rec)
}

func (sm *SessionManager) write(ctx context.Context, id string, rec *save.Record) error {
	if sm.cfg.Cache == nil {
		return nil
	}
	data, err := save.Encode(rec, time.Now())
	if err != nil {
		return fmt.Errorf("player: encode game: %w", err)
	}
	if err := sm.cfg.Cache.Set(ctx, gameKeyPrefix+id, string(data), sm.cfg.GameTTL); err != nil {
		return err
	}
	return sm.cfg.Cache.SAdd(ctx, gameIndexKey, id)
}

func (sm *SessionManager) persistAsync(g *GameSession) {
	ctx, cancel := context.WithTimeout(context.Background(), persistWait)
	defer cancel()
	if err := sm.Persist(ctx, g); err != nil {
		sm.logger.Warn("persist game", zap.String("game_id", g.ID), zap.Error(err))
	}
}

// SaveSlot writes the game into a named save slot.
func (sm *SessionManager) SaveSlot(ctx context.Context, id, slot string) error {
	if sm.cfg.Store == nil {
		return ErrSlotsDisabled
	}
	g, err := sm.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := sm.cfg.Store.Save(ctx, slot, id, g.Record()); err != nil {
		return err
	}
	g.note("Game saved.")
	sm.logger.Info("game saved", zap.String("game_id", id), zap.String("slot", slot))
	return sm.Persist(ctx, g)
}

// LoadSlot replaces the game with the contents of a save slot. Missing
// and malformed saves leave the game as it was.
func (sm *SessionManager) LoadSlot(ctx context.Context, id, slot string) error {
	if sm.cfg.Store == nil {
		return ErrSlotsDisabled
	}
	g, err := sm.Get(ctx, id)
	if err != nil {
		return err
	}
	rec, err := sm.cfg.Store.Load(ctx, slot)
	switch {
	case errors.Is(err, save.ErrSlotNotFound):
		g.note("No save found.")
		return err
	case errors.Is(err, save.ErrMalformedRecord):
		g.note("Failed to load save.")
		sm.logger.Warn("malformed save", zap.String("game_id", id), zap.String("slot", slot), zap.Error(err))
		return err
	case err != nil:
		return err
	}
	if err := g.Restore(ctx, rec); err != nil {
		return err
	}
	sm.logger.Info("game loaded", zap.String("game_id", id), zap.String("slot", slot))
	return sm.Persist(ctx, g)
}

// Slots lists the save slots.
func (sm *SessionManager) Slots(ctx context.Context) ([]save.SlotInfo, error) {
	if sm.cfg.Store == nil {
		return nil, nil
	}
	return sm.cfg.Store.List(ctx)
}

// DeleteSlot removes a save slot.
func (sm *SessionManager) DeleteSlot(ctx context.Context, slot string) error {
	if sm.cfg.Store == nil {
		return nil
	}
	return sm.cfg.Store.Delete(ctx, slot)
}

// Known returns the ids of every game with a cached snapshot. Index
// entries whose snapshot has expired are dropped on the way.
func (sm *SessionManager) Known(ctx context.Context) ([]string, error) {
	if sm.cfg.Cache == nil {
		return sm.IDs(), nil
	}
	ids, err := sm.cfg.Cache.SMembers(ctx, gameIndexKey)
	if err != nil {
		return nil, err
	}
	live := ids[:0]
	var stale []string
	for _, id := range ids {
		ok, err := sm.cfg.Cache.Exists(ctx, gameKeyPrefix+id)
		if err != nil {
			return nil, err
		}
		if ok {
			live = append(live, id)
		} else {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := sm.cfg.Cache.SRem(ctx, gameIndexKey, stale...); err != nil {
			sm.logger.Warn("prune game index", zap.Error(err))
		}
	}
	return live, nil
}

// IDs returns the ids of the games held in memory.
func (sm *SessionManager) IDs() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	ids := make([]string, 0, len(sm.games))
	for id := range sm.games {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of games held in memory.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.games)
}

func (sm *SessionManager) all() []*GameSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]*GameSession, 0, len(sm.games))
	for _, g := range sm.games {
		out = append(out, g)
	}
	return out
}

// AutosaveAll mirrors every in-memory game into the cache.
func (sm *SessionManager) AutosaveAll(ctx context.Context) {
	for _, g := range sm.all() {
		if err := sm.Persist(ctx, g); err != nil {
			sm.logger.Warn("autosave", zap.String("game_id", g.ID), zap.Error(err))
		}
	}
}

// SweepIdle persists and evicts games idle for longer than ttl. Games
// waiting on a paced enemy turn are kept. It returns the number evicted.
func (sm *SessionManager) SweepIdle(ctx context.Context, ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	n := 0
	for _, g := range sm.all() {
		if g.LastActive().After(cutoff) || sm.enemyTurnPending(g) {
			continue
		}
		if err := sm.retire(ctx, g); err != nil {
			sm.logger.Warn("persist idle game", zap.String("game_id", g.ID), zap.Error(err))
			continue
		}
		n++
	}
	if n > 0 {
		sm.logger.Info("idle games evicted", zap.Int("count", n))
	}
	return n
}

func (sm *SessionManager) enemyTurnPending(g *GameSession) bool {
	return sm.cfg.Scheduler != nil && sm.cfg.Scheduler.Pending(g.enemyTask())
}

// Start registers the autosave and idle-sweep tickers.
func (sm *SessionManager) Start() {
	s := sm.cfg.Scheduler
	if s == nil {
		return
	}
	if iv := sm.cfg.Game.AutosaveInterval; iv > 0 {
		s.AddTicker(autosaveTask, iv, func() {
			ctx, cancel := context.WithTimeout(context.Background(), persistWait)
			defer cancel()
			sm.AutosaveAll(ctx)
		})
	}
	if ttl := sm.cfg.Game.IdleTTL; ttl > 0 {
		iv := ttl / 4
		if iv < time.Second {
			iv = time.Second
		}
		s.AddTicker(sweepTask, iv, func() {
			ctx, cancel := context.WithTimeout(context.Background(), persistWait)
			defer cancel()
			sm.SweepIdle(ctx, ttl)
		})
	}
}

// Shutdown stops the tickers and writes every game to the cache.
func (sm *SessionManager) Shutdown(ctx context.Context) {
	if s := sm.cfg.Scheduler; s != nil {
		s.Remove(autosaveTask)
		s.Remove(sweepTask)
	}
	for _, g := range sm.all() {
		if err := sm.retire(ctx, g); err != nil {
			sm.logger.Warn("persist game on shutdown", zap.String("game_id", g.ID), zap.Error(err))
			g.Close()
		}
	}
}
