package model

import (
	"time"

	"gorm.io/datatypes"
)

// SaveSlot stores one named save record.
type SaveSlot struct {
	Slot      string         `gorm:"primaryKey;size:64" json:"slot"`
	GameID    string         `gorm:"size:36;index" json:"game_id"`
	Version   int            `gorm:"not null" json:"version"`
	Data      datatypes.JSON `gorm:"not null" json:"data"`
	SavedAt   time.Time      `json:"saved_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:milli" json:"updated_at"`
}
