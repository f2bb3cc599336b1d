package migrations

import (
	"github.com/awopa/maternal-notify/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createVisitsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000007_create_visits",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.VisitModel{}); err != nil {
				return err
			}
			return createIndexes(tx,
				`CREATE INDEX IF NOT EXISTS idx_visits_patient_date ON visits (patient_id, visit_date)`,
				`CREATE INDEX IF NOT EXISTS idx_visits_open ON visits (visit_date) WHERE reminder_sent = false`,
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.VisitModel{})
		},
	}
}
