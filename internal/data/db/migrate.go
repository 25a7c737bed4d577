package db

import (
	"github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&survey.SheetRow{},
	)
}
