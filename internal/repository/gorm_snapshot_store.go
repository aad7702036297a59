package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/snapshot"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ snapshot.Store = (*GormSnapshotStore)(nil)

// GormSnapshotStore keeps snapshots in the snapshots table. Subscribers only
// see writes made through this instance.
type GormSnapshotStore struct {
	db       *gorm.DB
	notifier *snapshot.Notifier
	now      func() time.Time
}

func NewGormSnapshotStore(db *gorm.DB) *GormSnapshotStore {
	return &GormSnapshotStore{
		db:       db,
		notifier: snapshot.NewNotifier(),
		now:      time.Now,
	}
}

func (s *GormSnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	var model SnapshotModel
	err := s.db.WithContext(ctx).First(&model, "snapshot_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: snapshot %q", domain.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %q: %w", key, err)
	}
	return model.Value, nil
}

func (s *GormSnapshotStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("snapshot key is required")
	}
	if value == nil {
		value = []byte{}
	}

	model := SnapshotModel{
		Key:       key,
		Value:     value,
		UpdatedAt: s.now().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "snapshot_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to write snapshot %q: %w", key, err)
	}

	s.notifier.Notify(key, value)
	return nil
}

func (s *GormSnapshotStore) Delete(ctx context.Context, key string) error {
	result := s.db.WithContext(ctx).
		Where("snapshot_key = ?", key).
		Delete(&SnapshotModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete snapshot %q: %w", key, result.Error)
	}
	if result.RowsAffected > 0 {
		s.notifier.Notify(key, nil)
	}
	return nil
}

func (s *GormSnapshotStore) Subscribe(_ context.Context, key string, fn snapshot.Listener) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("listener is required")
	}
	return s.notifier.Add(key, fn), nil
}

func (s *GormSnapshotStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
