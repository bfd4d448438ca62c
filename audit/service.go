package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kasuganosora/miniquest/model"
)

const (
	defaultBatch  = 64
	flushInterval = 2 * time.Second
	queueSize     = 1024
)

// Entry is one finished encounter.
type Entry struct {
	GameID     string
	TraceID    string
	EnemyName  string
	EnemyLevel int
	IsBoss     bool
	Outcome    string
	HeroLevel  int
	Turns      int
	Rewards    interface{} // marshalled to JSON; nil for escape and defeat
}

// Journal writes encounter outcomes to the database asynchronously in
// batches. Recording never blocks the game; a full queue drops the entry.
type Journal struct {
	db     *gorm.DB
	ch     chan *model.EncounterLog
	stopCh chan struct{}
	wg     sync.WaitGroup
	batch  int
	logger *zap.Logger
}

// New creates a Journal and starts its background worker. batch <= 0
// uses the default size.
func New(db *gorm.DB, batch int, logger *zap.Logger) *Journal {
	if batch <= 0 {
		batch = defaultBatch
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &Journal{
		db:     db,
		ch:     make(chan *model.EncounterLog, queueSize),
		stopCh: make(chan struct{}),
		batch:  batch,
		logger: logger,
	}
	j.wg.Add(1)
	go j.worker()
	return j
}

// Record enqueues e for an async write.
func (j *Journal) Record(e Entry) {
	var rewards datatypes.JSON
	if e.Rewards != nil {
		raw, err := json.Marshal(e.Rewards)
		if err != nil {
			j.logger.Warn("journal rewards not encodable", zap.Error(err))
		} else {
			rewards = datatypes.JSON(raw)
		}
	}
	row := &model.EncounterLog{
		GameID:     e.GameID,
		TraceID:    e.TraceID,
		EnemyName:  e.EnemyName,
		EnemyLevel: e.EnemyLevel,
		IsBoss:     e.IsBoss,
		Outcome:    e.Outcome,
		HeroLevel:  e.HeroLevel,
		Turns:      e.Turns,
		Rewards:    rewards,
	}
	select {
	case j.ch <- row:
	default:
		j.logger.Warn("journal queue full, dropping entry",
			zap.String("game_id", e.GameID),
			zap.String("outcome", e.Outcome))
	}
}

// Recent returns the latest entries of a game, newest first.
func (j *Journal) Recent(ctx context.Context, gameID string, limit int) ([]model.EncounterLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []model.EncounterLog
	err := j.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (j *Journal) Stop(_ context.Context) {
	select {
	case <-j.stopCh:
	default:
		close(j.stopCh)
	}
	j.wg.Wait()
}

func (j *Journal) worker() {
	defer j.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	pending := make([]*model.EncounterLog, 0, j.batch)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		if err := j.db.Create(&pending).Error; err != nil {
			j.logger.Error("journal batch write failed", zap.Int("size", len(pending)), zap.Error(err))
		}
		pending = pending[:0]
	}

	for {
		select {
		case row := <-j.ch:
			pending = append(pending, row)
			if len(pending) >= j.batch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-j.stopCh:
			for {
				select {
				case row := <-j.ch:
					pending = append(pending, row)
				default:
					flush()
					return
				}
			}
		}
	}
}
