package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Producers look up parked entries by kind and reference before sending a fresh copy.
func indexPendingRemindersReference() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000009_index_pending_reminders_reference",
		Migrate: func(tx *gorm.DB) error {
			return createIndexes(tx,
				`CREATE INDEX IF NOT EXISTS idx_pending_reminders_kind_reference ON pending_reminders (kind, reference_id) WHERE reference_id IS NOT NULL`,
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP INDEX IF EXISTS idx_pending_reminders_kind_reference`).Error
		},
	}
}
