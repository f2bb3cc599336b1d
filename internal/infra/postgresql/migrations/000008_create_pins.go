package migrations

import (
	"github.com/awopa/maternal-notify/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createPinsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000008_create_pins",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.PinModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.PinModel{})
		},
	}
}
