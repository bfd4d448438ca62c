package save

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kasuganosora/miniquest/game/combat"
	"github.com/kasuganosora/miniquest/game/world"
)

// CurrentVersion is the record layout written by this package.
const CurrentVersion = 2

// ErrMalformedRecord is returned for records that cannot be adopted.
var ErrMalformedRecord = errors.New("malformed save record")

type Meta struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
}

// Record is a complete, self-contained snapshot of one game.
type Record struct {
	Meta   Meta                 `json:"meta"`
	Hero   *combat.Hero         `json:"hero"`
	World  *world.State         `json:"world"`
	Combat *combat.SessionState `json:"combat,omitempty"`
	Turn   int                  `json:"turn"`
	Log    []string             `json:"log"`
}

// Validate rejects records missing the hero or world, or holding
// out-of-range values.
func (r *Record) Validate() error {
	if r.Hero == nil {
		return fmt.Errorf("%w: missing hero", ErrMalformedRecord)
	}
	if r.World == nil {
		return fmt.Errorf("%w: missing world", ErrMalformedRecord)
	}
	if r.Meta.Version > CurrentVersion {
		return fmt.Errorf("%w: version %d is newer than %d", ErrMalformedRecord, r.Meta.Version, CurrentVersion)
	}
	if r.Turn < 0 {
		return fmt.Errorf("%w: negative turn", ErrMalformedRecord)
	}
	if err := r.Hero.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if err := r.World.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if r.Combat != nil {
		if err := r.Combat.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
	}
	return nil
}

// Encode stamps the record with the current version and time and
// marshals it.
func Encode(r *Record, now time.Time) ([]byte, error) {
	r.Meta = Meta{Version: CurrentVersion, SavedAt: now.UTC()}
	return json.Marshal(r)
}

// Decode parses and validates a record.
func Decode(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
