package migrations

import (
	"github.com/awopa/maternal-notify/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createAppointmentsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_appointments",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.AppointmentModel{}); err != nil {
				return err
			}
			return createIndexes(tx,
				`CREATE INDEX IF NOT EXISTS idx_appointments_date ON appointments (date)`,
				`CREATE INDEX IF NOT EXISTS idx_appointments_phone_status ON appointments (phone, status)`,
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.AppointmentModel{})
		},
	}
}
