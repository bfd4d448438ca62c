package save

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kasuganosora/miniquest/model"
)

var (
	ErrSlotNotFound = errors.New("save slot not found")
	ErrInvalidSlot  = errors.New("invalid save slot name")
)

const maxSlotLen = 64

// SlotInfo describes a stored slot without its payload.
type SlotInfo struct {
	Slot    string    `json:"slot"`
	GameID  string    `json:"game_id"`
	SavedAt time.Time `json:"saved_at"`
}

// Store keeps save records in the save_slots table.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func checkSlot(slot string) error {
	if slot == "" || len(slot) > maxSlotLen {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return nil
}

// Save writes r into slot, replacing whatever was there.
func (s *Store) Save(ctx context.Context, slot, gameID string, r *Record) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	data, err := Encode(r, time.Now())
	if err != nil {
		return fmt.Errorf("save: encode: %w", err)
	}
	row := model.SaveSlot{
		Slot:    slot,
		GameID:  gameID,
		Version: r.Meta.Version,
		Data:    datatypes.JSON(data),
		SavedAt: r.Meta.SavedAt,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"game_id", "version", "data", "saved_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save: write slot %s: %w", slot, err)
	}
	return nil
}

// Load reads and validates the record in slot.
func (s *Store) Load(ctx context.Context, slot string) (*Record, error) {
	if err := checkSlot(slot); err != nil {
		return nil, err
	}
	var row model.SaveSlot
	err := s.db.WithContext(ctx).Where("slot = ?", slot).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("save: read slot %s: %w", slot, err)
	}
	return Decode(row.Data)
}

// List returns every slot, most recently saved first.
func (s *Store) List(ctx context.Context) ([]SlotInfo, error) {
	var rows []model.SaveSlot
	err := s.db.WithContext(ctx).
		Select("slot", "game_id", "saved_at").
		Order("saved_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("save: list slots: %w", err)
	}
	out := make([]SlotInfo, len(rows))
	for i, r := range rows {
		out[i] = SlotInfo{Slot: r.Slot, GameID: r.GameID, SavedAt: r.SavedAt}
	}
	return out, nil
}

// Delete removes slot. Deleting a missing slot is not an error.
func (s *Store) Delete(ctx context.Context, slot string) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Where("slot = ?", slot).Delete(&model.SaveSlot{}).Error
}

// PutRaw stores data as-is. It exists for imports of externally produced
// saves; validation happens on Load.
func (s *Store) PutRaw(ctx context.Context, slot, gameID string, data []byte) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	row := model.SaveSlot{Slot: slot, GameID: gameID, Version: CurrentVersion, Data: datatypes.JSON(data), SavedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}
