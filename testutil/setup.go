package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kasuganosora/miniquest/cache"
	"github.com/kasuganosora/miniquest/config"
	dbadapter "github.com/kasuganosora/miniquest/db"
	"github.com/kasuganosora/miniquest/model"
)

// SetupTestDB opens a private in-memory SQLite database and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{Mode: dbadapter.ModeSQLiteMemory})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates a LocalCache (no Redis required).
func SetupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewCache(config.CacheConfig{})
	require.NoError(t, err, "SetupTestCache: NewCache")
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// TestConfig returns defaults tuned for tests: no enemy turn delay and a
// fixed seed.
func TestConfig() *config.Config {
	cfg := config.Default()
	cfg.Database.Mode = dbadapter.ModeSQLiteMemory
	cfg.Game.EnemyTurnDelayMs = 0
	cfg.Game.Seed = 1
	return cfg
}

// Logger returns a no-op logger.
func Logger() *zap.Logger { return zap.NewNop() }
