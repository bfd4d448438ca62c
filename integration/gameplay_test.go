package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/miniquest/config"
	"github.com/kasuganosora/miniquest/game/combat"
)

// strengthen makes the hero of game id strong enough to end any fight
// with one blow.
func strengthen(t *testing.T, ts *TestServer, id string) {
	t.Helper()
	ctx := context.Background()
	g, err := ts.SM.Get(ctx, id)
	require.NoError(t, err)
	rec := g.Record()
	rec.Hero.Atk = 500
	require.NoError(t, g.Restore(ctx, rec))
}

func TestQuestFromAcceptToClaim(t *testing.T) {
	ts := NewTestServer(t, nil)
	id := ts.CreateGame(t, 7)
	strengthen(t, ts, id)
	events := ts.Events(t, id)

	code, body := ts.Do(t, http.MethodPost, "/api/games/"+id+"/quest", map[string]string{"choice": "accept"})
	require.Equal(t, http.StatusOK, code, body)

	code, body = ts.Do(t, http.MethodPost, "/api/games/"+id+"/step",
		map[string]string{"tile": "boss"}, "X-Trace-ID", "quest-run")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["step"].(map[string]interface{})["boss"])

	code, body = ts.Do(t, http.MethodPost, "/api/games/"+id+"/actions", map[string]string{"action": "attack"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "victory", body["result"].(map[string]interface{})["outcome"])

	ev := events.NextTurn(t, 5*time.Second)
	assert.Equal(t, combat.SideHero, ev.Actor)
	assert.Equal(t, combat.OutcomeVictory, ev.Result.Outcome)
	require.NotNil(t, ev.Result.Rewards)
	assert.True(t, ev.Result.Rewards.BossDefeated)

	v := ts.Game(t, id)
	assert.Equal(t, "boss_defeated", v["world"].(map[string]interface{})["elder_quest"])
	gold := v["hero"].(map[string]interface{})["gold"].(float64)

	code, body = ts.Do(t, http.MethodPost, "/api/games/"+id+"/quest", map[string]string{"choice": "claim"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Quest complete! +80 gold, +3 potions.", body["message"])
	hero := body["game"].(map[string]interface{})["hero"].(map[string]interface{})
	assert.Equal(t, gold+80, hero["gold"])
	assert.Equal(t, float64(5), hero["potions"])

	require.Eventually(t, func() bool {
		code, body := ts.Do(t, http.MethodGet, "/api/games/"+id+"/encounters", nil)
		list, _ := body["encounters"].([]interface{})
		return code == http.StatusOK && len(list) == 1
	}, 5*time.Second, 20*time.Millisecond)
	_, body = ts.Do(t, http.MethodGet, "/api/games/"+id+"/encounters", nil)
	row := body["encounters"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "victory", row["outcome"])
	assert.Equal(t, "quest-run", row["trace_id"])
	assert.Equal(t, true, row["is_boss"])

	// the altar is quiet once the boss is gone
	code, body = ts.Do(t, http.MethodPost, "/api/games/"+id+"/step", map[string]string{"tile": "boss"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Nil(t, body["step"].(map[string]interface{})["boss"])
}

func TestPacedEnemyTurnArrivesOnStream(t *testing.T) {
	ts := NewTestServer(t, func(c *config.Config) { c.Game.EnemyTurnDelayMs = 300 })
	id := ts.CreateGame(t, 11)
	events := ts.Events(t, id)

	code, body := ts.Do(t, http.MethodPost, "/api/games/"+id+"/step", map[string]string{"tile": "boss"})
	require.Equal(t, http.StatusOK, code, body)

	code, body = ts.Do(t, http.MethodPost, "/api/games/"+id+"/actions", map[string]string{"action": "defend"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["result"].(map[string]interface{})["enemy_turn_pending"])

	code, _ = ts.Do(t, http.MethodPost, "/api/games/"+id+"/actions", map[string]string{"action": "attack"})
	assert.Equal(t, http.StatusConflict, code, "the enemy still holds the turn")

	hero := events.NextTurn(t, 5*time.Second)
	assert.Equal(t, combat.SideHero, hero.Actor)
	enemy := events.NextTurn(t, 5*time.Second)
	assert.Equal(t, combat.SideEnemy, enemy.Actor)
	assert.Greater(t, enemy.Turn, hero.Turn)

	v := ts.Game(t, id)
	assert.Equal(t, false, v["enemy_turn_pending"])
	assert.Equal(t, "hero", v["combat"].(map[string]interface{})["turn_owner"])
}

func TestSaveLoadAcrossGames(t *testing.T) {
	ts := NewTestServer(t, nil)
	a := ts.CreateGame(t, 1)
	b := ts.CreateGame(t, 2)

	code, body := ts.Do(t, http.MethodPost, "/api/games/"+a+"/quest", map[string]string{"choice": "accept"})
	require.Equal(t, http.StatusOK, code, body)
	code, body = ts.Do(t, http.MethodPost, "/api/games/"+a+"/save", map[string]string{"slot": "shared"})
	require.Equal(t, http.StatusOK, code, body)

	// slots are global: game b can load what a saved
	code, body = ts.Do(t, http.MethodPost, "/api/games/"+b+"/load", map[string]string{"slot": "shared"})
	require.Equal(t, http.StatusOK, code, body)
	v := body["game"].(map[string]interface{})
	assert.Equal(t, b, v["id"])
	assert.Equal(t, "active", v["world"].(map[string]interface{})["elder_quest"])

	code, body = ts.Do(t, http.MethodGet, "/api/saves", nil)
	require.Equal(t, http.StatusOK, code)
	slots := body["slots"].([]interface{})
	require.Len(t, slots, 1)
	assert.Equal(t, a, slots[0].(map[string]interface{})["game_id"])
}

func TestEvictedGameComesBackFromRedis(t *testing.T) {
	ts := NewTestServer(t, nil)
	id := ts.CreateGame(t, 3)
	for i := 0; i < 3; i++ {
		code, body := ts.Do(t, http.MethodPost, "/api/games/"+id+"/step", map[string]string{"tile": "wall"})
		require.Equal(t, http.StatusOK, code, body)
	}

	code, body := ts.Do(t, http.MethodPost, "/api/admin/games/"+id+"/evict", nil, "X-Admin-Key", adminKey)
	require.Equal(t, http.StatusOK, code, body)
	assert.True(t, ts.Redis.Exists("game:"+id))
	assert.Equal(t, 0, ts.SM.Count())

	v := ts.Game(t, id)
	assert.Equal(t, float64(3), v["turn"])
	assert.Equal(t, 1, ts.SM.Count())

	code, body = ts.Do(t, http.MethodGet, "/api/admin/games", nil, "X-Admin-Key", adminKey)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body["known"], id)
}

func TestDeletedGameIsGone(t *testing.T) {
	ts := NewTestServer(t, nil)
	id := ts.CreateGame(t, 4)

	code, _ := ts.Do(t, http.MethodDelete, "/api/games/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, ts.Redis.Exists("game:"+id))

	code, _ = ts.Do(t, http.MethodGet, "/api/games/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
