package migrations

import (
	"github.com/awopa/maternal-notify/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createPregnanciesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000006_create_pregnancies",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.PregnancyModel{}); err != nil {
				return err
			}
			return createIndexes(tx,
				`CREATE INDEX IF NOT EXISTS idx_pregnancies_last_update ON pregnancies (last_update_sent)`,
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.PregnancyModel{})
		},
	}
}
