package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/miniquest/audit"
	"github.com/kasuganosora/miniquest/game/combat"
	"github.com/kasuganosora/miniquest/game/save"
	"github.com/kasuganosora/miniquest/game/world"
	"github.com/kasuganosora/miniquest/resource"
	"github.com/kasuganosora/miniquest/scheduler"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameClosed   = errors.New("game closed")
	ErrInCombat     = errors.New("not possible during combat")
	ErrNotInCombat  = errors.New("no combat in progress")
	ErrNotYourTurn  = errors.New("not the hero's turn")
	ErrNoPotions    = errors.New("no potions left")
)

const (
	welcomeLine = "Welcome! Explore town, accept the Elder’s quest, and defeat the dungeon boss."
	newGameLine = "New adventure begins!"
)

// Delayer runs named one-shot tasks; *scheduler.Scheduler satisfies it.
type Delayer interface {
	AddDelay(name string, delay time.Duration, fn scheduler.TaskFn)
	Remove(name string)
}

// Publisher fans out game events; cache.PubSub satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel, message string) error
}

// Recorder receives finished encounters; *audit.Journal satisfies it.
type Recorder interface {
	Record(e audit.Entry)
}

// GameConfig configures a GameSession. Every field is optional.
type GameConfig struct {
	Seed           int64
	RNG            combat.RNG // overrides Seed when set
	Archetypes     []resource.EnemyArchetype
	Policy         combat.Policy
	EnemyTurnDelay time.Duration // 0 = the enemy answers within the same call
	Delayer        Delayer       // required for a non-zero delay
	Events         Publisher
	Journal        Recorder
	// OnChange is called after state changed outside a caller's request,
	// i.e. after a paced enemy turn.
	OnChange func(*GameSession)
	Logger   *zap.Logger
}

// Event is published on EventsChannel for every resolved combat step.
type Event struct {
	GameID string            `json:"game_id"`
	Turn   int               `json:"turn"`
	Actor  combat.Side       `json:"actor"`
	Result combat.TurnResult `json:"result"`
}

// EventsChannel is the pub/sub channel a game's events go to.
func EventsChannel(gameID string) string {
	return "game:" + gameID + ":events"
}

// StepResult describes what happened when the hero moved.
type StepResult struct {
	Tile      world.Tile       `json:"tile"`
	Moved     bool             `json:"moved"`
	Boss      bool             `json:"boss,omitempty"`
	Encounter *combat.Snapshot `json:"encounter,omitempty"`
}

// View is a detached render view of a whole game.
type View struct {
	ID               string           `json:"id"`
	Hero             *combat.Hero     `json:"hero"`
	World            *world.State     `json:"world"`
	Elder            string           `json:"elder"`
	Combat           *combat.Snapshot `json:"combat,omitempty"`
	EnemyTurnPending bool             `json:"enemy_turn_pending"`
	Turn             int              `json:"turn"`
	Log              []string         `json:"log"`
}

type encounterStats struct {
	steps   int
	traceID string
}

// GameSession is one running game: the hero, world progress, the current
// encounter if any, and the game log. All methods are safe for
// concurrent use.
type GameSession struct {
	ID   string
	Seed int64

	cfg    GameConfig
	logger *zap.Logger

	// persistMu orders cache writes of this game.
	persistMu sync.Mutex

	mu         sync.Mutex
	rng        combat.RNG
	overworld  *world.Overworld
	hero       *combat.Hero
	world      *world.State
	battle     *combat.Session
	encounter  encounterStats
	finished   []audit.Entry
	turn       int
	log        gameLog
	lastActive time.Time
	closed     bool
}

// NewGameSession starts a fresh game. All randomness of the game comes
// from one source, seeded with cfg.Seed unless cfg.RNG is given.
func NewGameSession(id string, cfg GameConfig) *GameSession {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	rng := cfg.RNG
	if rng == nil {
		rng = combat.NewRNG(cfg.Seed)
	}
	g := &GameSession{
		ID:     id,
		Seed:   cfg.Seed,
		cfg:    cfg,
		logger: cfg.Logger.With(zap.String("game_id", id)),
		rng:    rng,
	}
	g.overworld = world.NewOverworld(rng, combat.NewGenerator(rng, cfg.Archetypes))
	g.resetLocked()
	g.addLog(welcomeLine)
	return g
}

func (g *GameSession) resetLocked() {
	if g.battle != nil && g.cfg.Delayer != nil {
		g.cfg.Delayer.Remove(g.enemyTask())
	}
	g.hero = combat.NewHero()
	g.world = world.NewState()
	g.battle = nil
	g.encounter = encounterStats{}
	g.turn = 0
	g.log = gameLog{}
	g.lastActive = time.Now()
}

func (g *GameSession) addLog(msg string) {
	g.log.add(g.turn, msg)
}

func (g *GameSession) touch() {
	g.lastActive = time.Now()
}

func (g *GameSession) enemyTask() string {
	return "enemy-turn:" + g.ID
}

func (g *GameSession) paced() bool {
	return g.cfg.EnemyTurnDelay > 0 && g.cfg.Delayer != nil
}

func (g *GameSession) sessionConfig() combat.SessionConfig {
	return combat.SessionConfig{RNG: g.rng, Policy: g.cfg.Policy, Logger: g.logger}
}

// Reset throws the current game away and starts over.
func (g *GameSession) Reset() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrGameClosed
	}
	g.resetLocked()
	g.addLog(newGameLine)
	g.logger.Info("game reset")
	return nil
}

// Step reports a successful move onto tile. Impassable tiles only log a
// bump. Walking onto the boss altar while the boss lives starts the boss
// fight; other tiles roll for a random encounter.
func (g *GameSession) Step(ctx context.Context, tile world.Tile) (*StepResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, ErrGameClosed
	}
	if g.battle != nil {
		return nil, ErrInCombat
	}
	g.touch()

	res := &StepResult{Tile: tile}
	if !tile.Passable() {
		g.addLog("You bump into something.")
		g.turn++
		return res, nil
	}
	res.Moved = true

	enemy, boss := g.overworld.Step(tile, g.hero.Level, g.world)
	if enemy == nil {
		g.addLog("You move.")
		g.turn++
		return res, nil
	}

	g.battle = combat.NewSession(g.hero, enemy, g.sessionConfig())
	g.encounter = encounterStats{traceID: traceIDFrom(ctx)}
	if boss {
		g.addLog("A terrifying presence blocks your path… THE BOSS attacks!")
	} else {
		g.addLog(fmt.Sprintf("A wild %s appears!", enemy.Name))
	}
	snap := g.battle.Snapshot()
	res.Boss = boss
	res.Encounter = &snap
	return res, nil
}

// Act submits a hero action. With pacing configured the enemy's reply is
// scheduled and the returned result has EnemyTurnPending set; otherwise
// every enemy turn the action unlocks is resolved and merged in.
func (g *GameSession) Act(ctx context.Context, a combat.HeroAction) (combat.TurnResult, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return combat.TurnResult{}, ErrGameClosed
	}
	if g.battle == nil {
		g.mu.Unlock()
		return combat.TurnResult{}, ErrNotInCombat
	}
	res := g.battle.ResolveHeroAction(a)
	if res.Ignored {
		g.mu.Unlock()
		return res, ErrNotYourTurn
	}
	g.touch()
	g.absorb(combat.SideHero, res)
	events := []Event{g.event(combat.SideHero, res)}

	enemyEvents := g.driveEnemyLocked()
	for _, ev := range enemyEvents {
		res.Merge(ev.Result)
	}
	events = append(events, enemyEvents...)
	done := g.takeFinished()
	g.mu.Unlock()

	g.emit(ctx, events, done)
	return res, nil
}

// driveEnemyLocked resolves or schedules the enemy's pending turns.
func (g *GameSession) driveEnemyLocked() []Event {
	if g.battle == nil || g.battle.TurnOwner() != combat.SideEnemy {
		return nil
	}
	if g.paced() {
		g.cfg.Delayer.AddDelay(g.enemyTask(), g.cfg.EnemyTurnDelay, g.runEnemyTurn)
		return nil
	}
	var events []Event
	for g.battle != nil && g.battle.TurnOwner() == combat.SideEnemy {
		res := g.battle.ResolveEnemyTurn()
		g.absorb(combat.SideEnemy, res)
		events = append(events, g.event(combat.SideEnemy, res))
	}
	return events
}

// runEnemyTurn is the paced enemy turn fired by the Delayer.
func (g *GameSession) runEnemyTurn() {
	g.mu.Lock()
	if g.closed || g.battle == nil || g.battle.TurnOwner() != combat.SideEnemy {
		g.mu.Unlock()
		return
	}
	res := g.battle.ResolveEnemyTurn()
	g.absorb(combat.SideEnemy, res)
	events := []Event{g.event(combat.SideEnemy, res)}
	// a stunned hero hands the turn straight back
	events = append(events, g.driveEnemyLocked()...)
	done := g.takeFinished()
	g.mu.Unlock()

	g.emit(context.Background(), events, done)
	if g.cfg.OnChange != nil {
		g.cfg.OnChange(g)
	}
}

// absorb writes a resolved step into the game log and closes the
// encounter when it ended. A round advances the turn counter once: the
// hero's step only counts when the enemy does not answer it.
func (g *GameSession) absorb(actor combat.Side, res combat.TurnResult) {
	for _, line := range res.LogLines {
		g.addLog(line)
	}
	g.encounter.steps++
	if res.Outcome != combat.OutcomeInProgress {
		g.finishEncounter(res)
	}
	if actor == combat.SideEnemy || !res.EnemyTurnPending {
		g.turn++
	}
}

func (g *GameSession) finishEncounter(res combat.TurnResult) {
	if res.Rewards != nil && res.Rewards.BossDefeated {
		g.world.MarkBossDefeated()
	}
	e := g.battle.Enemy()
	entry := audit.Entry{
		GameID:     g.ID,
		TraceID:    g.encounter.traceID,
		EnemyName:  e.Name,
		EnemyLevel: e.Level,
		IsBoss:     e.IsBoss,
		Outcome:    string(res.Outcome),
		HeroLevel:  g.hero.Level,
		Turns:      g.encounter.steps,
	}
	switch {
	case res.Rewards != nil:
		entry.Rewards = res.Rewards
	case res.Defeat != nil:
		entry.Rewards = res.Defeat
	}
	g.finished = append(g.finished, entry)
	g.battle = nil
	g.encounter = encounterStats{}
}

func (g *GameSession) takeFinished() []audit.Entry {
	done := g.finished
	g.finished = nil
	return done
}

func (g *GameSession) event(actor combat.Side, res combat.TurnResult) Event {
	return Event{GameID: g.ID, Turn: g.turn, Actor: actor, Result: res}
}

// emit hands finished encounters to the journal and publishes events.
// It must be called without holding mu.
func (g *GameSession) emit(ctx context.Context, events []Event, done []audit.Entry) {
	if g.cfg.Journal != nil {
		for _, e := range done {
			g.cfg.Journal.Record(e)
		}
	}
	if g.cfg.Events == nil {
		return
	}
	ch := EventsChannel(g.ID)
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			g.logger.Warn("encode game event", zap.Error(err))
			continue
		}
		if err := g.cfg.Events.Publish(ctx, ch, string(data)); err != nil {
			g.logger.Warn("publish game event", zap.Error(err))
		}
	}
}

// UsePotion drinks a potion outside combat.
func (g *GameSession) UsePotion() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return 0, ErrGameClosed
	}
	if g.battle != nil {
		return 0, ErrInCombat
	}
	g.touch()
	amt, ok := combat.DrinkPotion(g.hero, g.rng)
	if !ok {
		g.addLog("No potions left.")
		return 0, ErrNoPotions
	}
	g.addLog(fmt.Sprintf("You drink a potion and restore %d HP.", amt))
	g.turn++
	return amt, nil
}

// TalkToElder answers the Elder. It returns the resulting log line.
func (g *GameSession) TalkToElder(choice world.QuestChoice) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return "", ErrGameClosed
	}
	if g.battle != nil {
		return "", ErrInCombat
	}
	g.touch()
	line, err := g.world.TalkToElder(choice, g.hero)
	if err != nil {
		return "", err
	}
	g.addLog(line)
	g.turn++
	g.logger.Info("elder quest", zap.String("choice", string(choice)), zap.String("state", string(g.world.ElderQuest)))
	return line, nil
}

// InteractResult is what interacting with a tile produced.
type InteractResult struct {
	Tile    world.Tile        `json:"tile"`
	Message string            `json:"message"`
	Loot    *combat.ChestLoot `json:"loot,omitempty"`
}

// Interact uses the tile the hero faces. Chests need the client's key for
// the chest so each one pays out once; the Elder answers through
// TalkToElder.
func (g *GameSession) Interact(tile world.Tile, chestKey string) (*InteractResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, ErrGameClosed
	}
	if g.battle != nil {
		return nil, ErrInCombat
	}
	res := &InteractResult{Tile: tile}
	switch tile {
	case world.TileSign:
		res.Message = g.world.ReadSign()
	case world.TileChest:
		line, loot, err := g.world.OpenChest(chestKey, g.hero, g.rng)
		if err != nil {
			return nil, err
		}
		res.Message, res.Loot = line, loot
		if loot != nil {
			g.logger.Info("chest opened",
				zap.String("chest", chestKey),
				zap.Int("gold", loot.Gold),
				zap.Bool("equipped", loot.Equipped))
		}
	default:
		res.Message = world.NothingLine
	}
	g.touch()
	g.addLog(res.Message)
	g.turn++
	return res, nil
}

// View returns a snapshot of the whole game.
func (g *GameSession) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := View{
		ID:    g.ID,
		Hero:  g.hero.Clone(),
		World: g.world.Clone(),
		Elder: g.world.ElderGreeting(),
		Turn:  g.turn,
		Log:   g.log.snapshot(),
	}
	if g.battle != nil {
		snap := g.battle.Snapshot()
		v.Combat = &snap
		v.EnemyTurnPending = g.battle.TurnOwner() == combat.SideEnemy
	}
	return v
}

// InCombat reports whether an encounter is running.
func (g *GameSession) InCombat() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.battle != nil
}

// LastActive is when a player last acted on the game.
func (g *GameSession) LastActive() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastActive
}

// Record captures the game for persistence, including a running
// encounter.
func (g *GameSession) Record() *save.Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.recordLocked()
}

func (g *GameSession) recordLocked() *save.Record {
	r := &save.Record{
		Hero:  g.hero.Clone(),
		World: g.world.Clone(),
		Turn:  g.turn,
		Log:   g.log.snapshot(),
	}
	if g.battle != nil {
		st := g.battle.State()
		r.Combat = &st
	}
	return r
}

// Restore replaces the game with rec. The record is adopted as a whole
// or not at all: a malformed record leaves the game untouched apart from
// a notice in its log.
func (g *GameSession) Restore(ctx context.Context, rec *save.Record) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrGameClosed
	}
	if err := g.adoptLocked(rec); err != nil {
		g.addLog("Failed to load save.")
		g.mu.Unlock()
		g.logger.Warn("save rejected", zap.Error(err))
		return err
	}
	savedAt := "unknown time"
	if !rec.Meta.SavedAt.IsZero() {
		savedAt = rec.Meta.SavedAt.Format(time.RFC3339)
	}
	g.addLog(fmt.Sprintf("Loaded save (%s).", savedAt))
	events := g.driveEnemyLocked()
	done := g.takeFinished()
	g.mu.Unlock()

	g.emit(ctx, events, done)
	return nil
}

// adoptLocked validates rec and swaps it in.
func (g *GameSession) adoptLocked(rec *save.Record) error {
	if rec == nil {
		return fmt.Errorf("%w: empty record", save.ErrMalformedRecord)
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	hero := rec.Hero.Clone()
	var battle *combat.Session
	if rec.Combat != nil {
		b, err := combat.RestoreSession(hero, *rec.Combat, g.sessionConfig())
		if err != nil {
			return fmt.Errorf("%w: %v", save.ErrMalformedRecord, err)
		}
		battle = b
	}
	if g.battle != nil && g.cfg.Delayer != nil {
		g.cfg.Delayer.Remove(g.enemyTask())
	}
	g.hero = hero
	g.world = rec.World.Clone()
	g.battle = battle
	g.encounter = encounterStats{}
	g.turn = rec.Turn
	g.log.reset(rec.Log)
	g.touch()
	return nil
}

// note writes a notice to the game log without advancing the turn.
func (g *GameSession) note(msg string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addLog(msg)
}

// Close stops the game's pending enemy turn. A closed game rejects
// further commands.
func (g *GameSession) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closeLocked()
}

func (g *GameSession) closeLocked() {
	if g.closed {
		return
	}
	g.closed = true
	if g.cfg.Delayer != nil {
		g.cfg.Delayer.Remove(g.enemyTask())
	}
}

// closeAndRecord closes the game and returns its final record in one step,
// so no command can land between the two. It returns nil if the game was
// already closed.
func (g *GameSession) closeAndRecord() *save.Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	rec := g.recordLocked()
	g.closeLocked()
	return rec
}

// reopen undoes closeAndRecord after the final record could not be
// written. A pending enemy turn is rescheduled.
func (g *GameSession) reopen() {
	g.mu.Lock()
	if !g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = false
	events := g.driveEnemyLocked()
	done := g.takeFinished()
	g.mu.Unlock()
	g.emit(context.Background(), events, done)
}

// liveRecord returns the current record, or nil once the game is closed.
func (g *GameSession) liveRecord() *save.Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	return g.recordLocked()
}
