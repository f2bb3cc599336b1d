package migrations

import (
	"github.com/awopa/maternal-notify/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createNutritionProfilesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000005_create_nutrition_profiles",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NutritionProfileModel{}); err != nil {
				return err
			}
			return createIndexes(tx,
				`CREATE INDEX IF NOT EXISTS idx_nutrition_profiles_phone ON nutrition_profiles (phone)`,
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NutritionProfileModel{})
		},
	}
}
