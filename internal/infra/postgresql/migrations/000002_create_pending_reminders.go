package migrations

import (
	"github.com/awopa/maternal-notify/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createPendingRemindersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_pending_reminders",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.PendingReminderModel{}); err != nil {
				return err
			}
			return createIndexes(tx,
				`CREATE INDEX IF NOT EXISTS idx_pending_reminders_retryable ON pending_reminders (created_at) WHERE retry_count < 5`,
				`CREATE INDEX IF NOT EXISTS idx_pending_reminders_kind ON pending_reminders (kind)`,
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.PendingReminderModel{})
		},
	}
}
