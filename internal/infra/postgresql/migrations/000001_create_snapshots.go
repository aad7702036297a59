package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/batch-trace/internal/repository"
	"gorm.io/gorm"
)

func createSnapshotsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_snapshots",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.SnapshotModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SnapshotModel{})
		},
	}
}
