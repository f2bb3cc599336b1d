package migrations

import (
	"github.com/awopa/maternal-notify/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createMedicationsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_medications",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.MedicationModel{}); err != nil {
				return err
			}
			return createIndexes(tx,
				`CREATE INDEX IF NOT EXISTS idx_medications_refill_date ON medications (refill_date) WHERE refill_date IS NOT NULL`,
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.MedicationModel{})
		},
	}
}
