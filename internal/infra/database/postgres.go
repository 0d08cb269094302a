package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/akashdesaidev/Threadspire/internal/infra/database/models"
)

func NewPostgres(dsn string, slowThreshold time.Duration) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             slowThreshold, // Slow SQL threshold
			LogLevel:                  logger.Warn,   // Log level
			IgnoreRecordNotFoundError: true,          // Ignore ErrRecordNotFound error for logger
			Colorful:                  true,          // Enable color
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
	})
	return db, err
}

func MigratePostgres(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Thread{},
		&models.Segment{},
		&models.SegmentReaction{},
		&models.ThreadTag{},
		&models.User{},
		&models.Bookmark{},
		&models.Collection{},
		&models.CollectionThread{},
	)
}
