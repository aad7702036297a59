package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func addSnapshotsUpdatedAtIndex() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_add_snapshots_updated_at_index",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_snapshots_updated_at ON snapshots (updated_at)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP INDEX IF EXISTS idx_snapshots_updated_at`).Error
		},
	}
}
