package migrations

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate brings the snapshot schema up to date. It runs against both the
// postgres and sqlite gorm dialects.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createSnapshotsTable(),
		addSnapshotsUpdatedAtIndex(),
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate snapshot schema: %w", err)
	}
	return nil
}
