package player

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/miniquest/audit"
	"github.com/kasuganosora/miniquest/game/combat"
	"github.com/kasuganosora/miniquest/game/save"
	"github.com/kasuganosora/miniquest/game/world"
	"github.com/kasuganosora/miniquest/scheduler"
)

type fixedPolicy combat.Intent

func (p fixedPolicy) Decide(*combat.Enemy, *combat.Hero, combat.RNG) combat.Intent {
	return combat.Intent(p)
}

// manualDelayer keeps scheduled tasks until the test fires them.
type manualDelayer struct {
	mu    sync.Mutex
	tasks map[string]scheduler.TaskFn
}

func newManualDelayer() *manualDelayer {
	return &manualDelayer{tasks: map[string]scheduler.TaskFn{}}
}

func (d *manualDelayer) AddDelay(name string, _ time.Duration, fn scheduler.TaskFn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks[name] = fn
}

func (d *manualDelayer) Remove(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tasks, name)
}

func (d *manualDelayer) fire(name string) bool {
	d.mu.Lock()
	fn, ok := d.tasks[name]
	delete(d.tasks, name)
	d.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

type memPublisher struct {
	mu   sync.Mutex
	msgs []string
}

func (p *memPublisher) Publish(_ context.Context, _ string, msg string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *memPublisher) events(t *testing.T) []Event {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.msgs))
	for i, m := range p.msgs {
		require.NoError(t, json.Unmarshal([]byte(m), &out[i]))
	}
	return out
}

// luckyRNG wins every chance roll and draws the lowest value otherwise.
type luckyRNG struct{}

func (luckyRNG) Intn(int) int     { return 0 }
func (luckyRNG) Float64() float64 { return 0 }

type memRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *memRecorder) Record(e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func newTestGame(cfg GameConfig) *GameSession {
	if cfg.Policy == nil {
		cfg.Policy = fixedPolicy(combat.IntentAttack)
	}
	if cfg.Seed == 0 {
		cfg.Seed = 7
	}
	return NewGameSession("g1", cfg)
}

// strongHero returns a record whose hero kills anything in one hit.
func strongHero(quest world.QuestState) *save.Record {
	h := combat.NewHero()
	h.Atk = 500
	w := world.NewState()
	w.ElderQuest = quest
	return &save.Record{Hero: h, World: w, Turn: 5}
}

func TestNewGameSession_InitialView(t *testing.T) {
	g := newTestGame(GameConfig{})
	v := g.View()

	assert.Equal(t, "g1", v.ID)
	assert.Equal(t, 1, v.Hero.Level)
	assert.Equal(t, 0, v.Turn)
	assert.Nil(t, v.Combat)
	assert.Equal(t, world.QuestNotStarted, v.World.ElderQuest)
	require.Len(t, v.Log, 1)
	assert.True(t, strings.HasPrefix(v.Log[0], "[000] Welcome!"))
}

func TestStep_WallAndQuietTile(t *testing.T) {
	g := newTestGame(GameConfig{})
	ctx := context.Background()

	res, err := g.Step(ctx, world.TileWall)
	require.NoError(t, err)
	assert.False(t, res.Moved)

	res, err = g.Step(ctx, world.TileChest)
	require.NoError(t, err)
	assert.True(t, res.Moved)
	assert.Nil(t, res.Encounter)

	v := g.View()
	assert.Equal(t, 2, v.Turn)
	assert.Equal(t, "[001] You move.", v.Log[0])
	assert.Equal(t, "[000] You bump into something.", v.Log[1])
}

func TestStep_BossStartsCombat(t *testing.T) {
	g := newTestGame(GameConfig{})
	ctx := context.Background()

	res, err := g.Step(ctx, world.TileBoss)
	require.NoError(t, err)
	require.NotNil(t, res.Encounter)
	assert.True(t, res.Boss)
	assert.Equal(t, "Dungeon Beast", res.Encounter.EnemyName)
	assert.True(t, g.InCombat())
	assert.Contains(t, g.View().Log[0], "THE BOSS attacks!")

	_, err = g.Step(ctx, world.TileFloor)
	assert.ErrorIs(t, err, ErrInCombat)
	_, err = g.UsePotion()
	assert.ErrorIs(t, err, ErrInCombat)
	_, err = g.TalkToElder(world.ChoiceAccept)
	assert.ErrorIs(t, err, ErrInCombat)
}

func TestAct_NotInCombat(t *testing.T) {
	g := newTestGame(GameConfig{})
	_, err := g.Act(context.Background(), combat.ActionAttack)
	assert.ErrorIs(t, err, ErrNotInCombat)
}

func TestAct_InlineEnemyTurn(t *testing.T) {
	pub := &memPublisher{}
	g := newTestGame(GameConfig{Events: pub})
	ctx := context.Background()
	_, err := g.Step(ctx, world.TileBoss)
	require.NoError(t, err)

	res, err := g.Act(ctx, combat.ActionDefend)
	require.NoError(t, err)
	assert.False(t, res.EnemyTurnPending)
	assert.Equal(t, combat.OutcomeInProgress, res.Outcome)
	require.Len(t, res.LogLines, 2)
	assert.Contains(t, res.LogLines[1], "attacks you for")

	v := g.View()
	require.NotNil(t, v.Combat)
	assert.Equal(t, combat.SideHero, v.Combat.TurnOwner)
	assert.False(t, v.EnemyTurnPending)
	// the hero's action and the enemy's reply are one round
	assert.Equal(t, 1, v.Turn)
	assert.True(t, strings.HasPrefix(v.Log[0], "[000] Dungeon Beast attacks you for"))
	assert.Equal(t, "[000] You defend (+3 DEF until the next hit).", v.Log[1])

	evs := pub.events(t)
	require.Len(t, evs, 2)
	assert.Equal(t, combat.SideHero, evs[0].Actor)
	assert.Equal(t, combat.SideEnemy, evs[1].Actor)
	assert.Equal(t, "g1", evs[1].GameID)
}

func TestAct_PacedEnemyTurn(t *testing.T) {
	d := newManualDelayer()
	changed := 0
	g := newTestGame(GameConfig{
		EnemyTurnDelay: 280 * time.Millisecond,
		Delayer:        d,
		OnChange:       func(*GameSession) { changed++ },
	})
	ctx := context.Background()
	_, err := g.Step(ctx, world.TileBoss)
	require.NoError(t, err)

	res, err := g.Act(ctx, combat.ActionDefend)
	require.NoError(t, err)
	assert.True(t, res.EnemyTurnPending)
	assert.True(t, g.View().EnemyTurnPending)

	// the hero cannot act while the enemy holds the turn
	res, err = g.Act(ctx, combat.ActionAttack)
	assert.ErrorIs(t, err, ErrNotYourTurn)
	assert.True(t, res.Ignored)

	assert.Equal(t, 0, g.View().Turn)

	require.True(t, d.fire("enemy-turn:g1"))
	v := g.View()
	assert.Equal(t, 1, v.Turn)
	assert.False(t, v.EnemyTurnPending)
	assert.Equal(t, combat.SideHero, v.Combat.TurnOwner)
	assert.Equal(t, 1, changed)
	assert.Contains(t, v.Log[0], "attacks you for")
}

func TestBossVictory_AdvancesQuest(t *testing.T) {
	rec := &memRecorder{}
	g := newTestGame(GameConfig{Journal: rec})
	ctx := WithTraceID(context.Background(), "trace-1")
	require.NoError(t, g.Restore(ctx, strongHero(world.QuestActive)))

	_, err := g.Step(ctx, world.TileBoss)
	require.NoError(t, err)
	res, err := g.Act(ctx, combat.ActionAttack)
	require.NoError(t, err)
	assert.Equal(t, combat.OutcomeVictory, res.Outcome)
	require.NotNil(t, res.Rewards)
	assert.True(t, res.Rewards.BossDefeated)

	v := g.View()
	assert.Nil(t, v.Combat)
	assert.True(t, v.World.BossDefeated)
	assert.Equal(t, world.QuestBossDefeated, v.World.ElderQuest)

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, "victory", e.Outcome)
	assert.True(t, e.IsBoss)
	assert.Equal(t, "trace-1", e.TraceID)
	assert.Equal(t, 1, e.Turns)

	// the altar is quiet once the boss is down
	step, err := g.Step(ctx, world.TileBoss)
	require.NoError(t, err)
	assert.Nil(t, step.Encounter)

	line, err := g.TalkToElder(world.ChoiceClaim)
	require.NoError(t, err)
	assert.Equal(t, "Quest complete! +80 gold, +3 potions.", line)
	assert.Equal(t, world.QuestCompleted, g.View().World.ElderQuest)
}

func TestTalkToElder_WrongChoice(t *testing.T) {
	g := newTestGame(GameConfig{})
	_, err := g.TalkToElder(world.ChoiceClaim)
	assert.ErrorIs(t, err, world.ErrQuestChoice)

	line, err := g.TalkToElder(world.ChoiceAccept)
	require.NoError(t, err)
	assert.Equal(t, "Quest accepted: Defeat the dungeon boss.", line)
}

func TestUsePotion(t *testing.T) {
	g := newTestGame(GameConfig{})
	rec := g.Record()
	rec.Hero.HP = 5
	rec.Hero.Potions = 1
	require.NoError(t, g.Restore(context.Background(), rec))

	amt, err := g.UsePotion()
	require.NoError(t, err)
	// round(30*0.35) + [2,6]
	assert.GreaterOrEqual(t, amt, 13)
	assert.LessOrEqual(t, amt, 17)
	assert.Equal(t, 5+amt, g.View().Hero.HP)

	_, err = g.UsePotion()
	assert.ErrorIs(t, err, ErrNoPotions)
	v := g.View()
	assert.Contains(t, v.Log[0], "No potions left.")
	assert.Equal(t, 0, v.Hero.Potions)
}

func TestRestore_MalformedKeepsGame(t *testing.T) {
	g := newTestGame(GameConfig{})
	_, err := g.Step(context.Background(), world.TileWall)
	require.NoError(t, err)
	before := g.View()

	err = g.Restore(context.Background(), &save.Record{World: world.NewState()})
	assert.ErrorIs(t, err, save.ErrMalformedRecord)

	after := g.View()
	assert.Equal(t, before.Turn, after.Turn)
	assert.Equal(t, before.Hero, after.Hero)
	assert.Contains(t, after.Log[0], "Failed to load save.")
	assert.Equal(t, before.Log, after.Log[1:])
}

func TestRecordRestore_MidCombat(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(GameConfig{})
	_, err := g.Step(ctx, world.TileBoss)
	require.NoError(t, err)
	_, err = g.Act(ctx, combat.ActionDefend)
	require.NoError(t, err)

	rec := g.Record()
	require.NotNil(t, rec.Combat)
	data, err := save.Encode(rec, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	decoded, err := save.Decode(data)
	require.NoError(t, err)

	other := NewGameSession("g2", GameConfig{Seed: 9, Policy: fixedPolicy(combat.IntentAttack)})
	require.NoError(t, other.Restore(ctx, decoded))

	want, got := g.View(), other.View()
	assert.Equal(t, want.Combat, got.Combat)
	assert.Equal(t, want.Hero, got.Hero)
	assert.Equal(t, want.Turn, got.Turn)
	assert.Equal(t, "[001] Loaded save (2026-01-02T03:04:05Z).", got.Log[0])

	_, err = other.Act(ctx, combat.ActionAttack)
	assert.NoError(t, err)
}

func TestRestore_EnemyTurnResumes(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(GameConfig{})
	_, err := g.Step(ctx, world.TileBoss)
	require.NoError(t, err)

	rec := g.Record()
	rec.Combat.TurnOwner = combat.SideEnemy
	other := newTestGame(GameConfig{})
	require.NoError(t, other.Restore(ctx, rec))

	v := other.View()
	require.NotNil(t, v.Combat)
	assert.Equal(t, combat.SideHero, v.Combat.TurnOwner)
	assert.Contains(t, v.Log[0], "attacks you for")
}

func TestGameLog_Bounded(t *testing.T) {
	g := newTestGame(GameConfig{})
	for i := 0; i < 100; i++ {
		_, err := g.Step(context.Background(), world.TileWater)
		require.NoError(t, err)
	}
	v := g.View()
	assert.Len(t, v.Log, maxLogLines)
	assert.Equal(t, "[099] You bump into something.", v.Log[0])
	assert.Equal(t, 100, v.Turn)
}

func TestReset(t *testing.T) {
	g := newTestGame(GameConfig{})
	_, err := g.Step(context.Background(), world.TileBoss)
	require.NoError(t, err)

	require.NoError(t, g.Reset())
	v := g.View()
	assert.Nil(t, v.Combat)
	assert.Equal(t, 0, v.Turn)
	assert.Equal(t, []string{"[000] New adventure begins!"}, v.Log)
}

func TestClose_RejectsCommands(t *testing.T) {
	d := newManualDelayer()
	g := newTestGame(GameConfig{EnemyTurnDelay: time.Second, Delayer: d})
	ctx := context.Background()
	_, err := g.Step(ctx, world.TileBoss)
	require.NoError(t, err)
	_, err = g.Act(ctx, combat.ActionDefend)
	require.NoError(t, err)

	g.Close()
	assert.False(t, d.fire("enemy-turn:g1"))
	_, err = g.Act(ctx, combat.ActionAttack)
	assert.ErrorIs(t, err, ErrGameClosed)
	_, err = g.Step(ctx, world.TileFloor)
	assert.ErrorIs(t, err, ErrGameClosed)
}

func TestBossEscape_LeavesQuestOpen(t *testing.T) {
	rec := &memRecorder{}
	g := newTestGame(GameConfig{RNG: luckyRNG{}, Journal: rec})
	ctx := context.Background()
	require.NoError(t, g.Restore(ctx, strongHero(world.QuestActive)))

	_, err := g.Step(ctx, world.TileBoss)
	require.NoError(t, err)
	res, err := g.Act(ctx, combat.ActionRun)
	require.NoError(t, err)
	assert.Equal(t, combat.OutcomeEscape, res.Outcome)
	assert.Nil(t, res.Rewards)

	v := g.View()
	assert.Nil(t, v.Combat)
	assert.False(t, v.World.BossDefeated)
	assert.Equal(t, world.QuestActive, v.World.ElderQuest)
	// escape ends the round on the hero's step
	assert.Equal(t, 6, v.Turn)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, "escape", rec.entries[0].Outcome)

	step, err := g.Step(ctx, world.TileBoss)
	require.NoError(t, err)
	assert.True(t, step.Boss)
	assert.NotNil(t, step.Encounter)
}

func TestBossDefeat_LeavesQuestOpen(t *testing.T) {
	g := newTestGame(GameConfig{})
	ctx := context.Background()
	rec := strongHero(world.QuestActive)
	rec.Hero.HP = 1
	rec.Hero.Gold = 40
	require.NoError(t, g.Restore(ctx, rec))

	_, err := g.Step(ctx, world.TileBoss)
	require.NoError(t, err)
	res, err := g.Act(ctx, combat.ActionDefend)
	require.NoError(t, err)
	assert.Equal(t, combat.OutcomeDefeat, res.Outcome)
	require.NotNil(t, res.Defeat)
	assert.Equal(t, 10, res.Defeat.LostGold)

	v := g.View()
	assert.Nil(t, v.Combat)
	assert.False(t, v.World.BossDefeated)
	assert.Equal(t, world.QuestActive, v.World.ElderQuest)
	assert.Equal(t, v.Hero.HPMax, v.Hero.HP)

	step, err := g.Step(ctx, world.TileBoss)
	require.NoError(t, err)
	assert.True(t, step.Boss)
	assert.NotNil(t, step.Encounter)
}

func TestInteract_ChestPaysOnce(t *testing.T) {
	g := newTestGame(GameConfig{RNG: luckyRNG{}})

	res, err := g.Interact(world.TileChest, "dungeon:3,4")
	require.NoError(t, err)
	require.NotNil(t, res.Loot)
	assert.True(t, res.Loot.Equipped)
	assert.Equal(t, "You open the chest: +8 gold and +1 potion and equipped Common Plain Iron Dagger (+1 ATK)!", res.Message)

	v := g.View()
	assert.Equal(t, 1, v.Hero.Weapon.Atk)
	assert.Equal(t, 8, v.Hero.Gold)
	assert.True(t, v.World.OpenedChests["dungeon:3,4"])
	assert.Equal(t, 1, v.Turn)
	assert.Equal(t, "[000] "+res.Message, v.Log[0])

	res, err = g.Interact(world.TileChest, "dungeon:3,4")
	require.NoError(t, err)
	assert.Nil(t, res.Loot)
	assert.Equal(t, "The chest is empty.", res.Message)
	assert.Equal(t, 8, g.View().Hero.Gold)

	_, err = g.Interact(world.TileChest, "")
	assert.ErrorIs(t, err, world.ErrChestKey)
}

func TestInteract_SignAndOthers(t *testing.T) {
	g := newTestGame(GameConfig{})
	ctx := context.Background()

	res, err := g.Interact(world.TileSign, "")
	require.NoError(t, err)
	assert.Equal(t, world.SignText, res.Message)
	assert.True(t, g.View().World.SignRead)

	res, err = g.Interact(world.TileGrass, "")
	require.NoError(t, err)
	assert.Equal(t, "Nothing to interact with.", res.Message)
	assert.Equal(t, 2, g.View().Turn)

	_, err = g.Step(ctx, world.TileBoss)
	require.NoError(t, err)
	_, err = g.Interact(world.TileChest, "a")
	assert.ErrorIs(t, err, ErrInCombat)
}

func TestOpenedChests_SurviveRecord(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(GameConfig{})
	_, err := g.Interact(world.TileChest, "town:5,5")
	require.NoError(t, err)

	data, err := save.Encode(g.Record(), time.Now())
	require.NoError(t, err)
	decoded, err := save.Decode(data)
	require.NoError(t, err)

	other := NewGameSession("g2", GameConfig{Seed: 3})
	require.NoError(t, other.Restore(ctx, decoded))
	res, err := other.Interact(world.TileChest, "town:5,5")
	require.NoError(t, err)
	assert.Equal(t, "The chest is empty.", res.Message)
}
