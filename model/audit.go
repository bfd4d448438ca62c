package model

import (
	"time"

	"gorm.io/datatypes"
)

// EncounterLog is one finished encounter in the journal.
type EncounterLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	GameID     string         `gorm:"index:idx_encounter_game;size:36;not null" json:"game_id"`
	TraceID    string         `gorm:"size:36" json:"trace_id"`
	EnemyName  string         `gorm:"size:32;not null" json:"enemy_name"`
	EnemyLevel int            `json:"enemy_level"`
	IsBoss     bool           `json:"is_boss"`
	Outcome    string         `gorm:"size:16;index:idx_encounter_outcome;not null" json:"outcome"`
	HeroLevel  int            `json:"hero_level"`
	Turns      int            `json:"turns"`
	Rewards    datatypes.JSON `json:"rewards"`
	CreatedAt  time.Time      `gorm:"index:idx_encounter_created;autoCreateTime:milli" json:"created_at"`
}
