package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Game     GameConfig     `mapstructure:"game"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"` // empty disables /api/admin
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | sqlite_memory | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
	// GameTTL is how long a live game snapshot survives in the cache.
	GameTTL         time.Duration `mapstructure:"game_ttl"`
}

type GameConfig struct {
	EnemyTurnDelayMs int           `mapstructure:"enemy_turn_delay_ms"`
	Seed             int64         `mapstructure:"seed"` // 0 = crypto/rand per game
	ArchetypesPath   string        `mapstructure:"archetypes_path"`
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
	IdleTTL          time.Duration `mapstructure:"idle_ttl"`
	JournalBatch     int           `mapstructure:"journal_batch"`
}

// EnemyTurnDelay is the pause between a hero action and the enemy's reply.
func (g GameConfig) EnemyTurnDelay() time.Duration {
	return time.Duration(g.EnemyTurnDelayMs) * time.Millisecond
}

type SecurityConfig struct {
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	AdminIPs       []string `mapstructure:"admin_ips"` // addresses or CIDRs; empty = any
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.admin_key", "")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/miniquest.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("cache.game_ttl", "24h")
	v.SetDefault("game.enemy_turn_delay_ms", 280)
	v.SetDefault("game.seed", 0)
	v.SetDefault("game.archetypes_path", "")
	v.SetDefault("game.autosave_interval", "1m")
	v.SetDefault("game.idle_ttl", "30m")
	v.SetDefault("game.journal_batch", 64)
	v.SetDefault("security.rate_limit_rps", 20)
	v.SetDefault("security.rate_limit_burst", 40)
	v.SetDefault("security.admin_ips", []string{})
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading a file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Unmarshal of plain defaults cannot fail.
	_ = v.Unmarshal(cfg)
	return cfg
}
