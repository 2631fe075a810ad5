package dbhelper

import (
	"fmt"
	"os"
	"time"

	"tryonapi/config"
	"tryonapi/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func SetupDB() *gorm.DB {
	db, err := gorm.Open(postgres.Open(
		fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			config.GetEnv("DB_USERNAME", ""),
			config.GetEnv("DB_PASSWORD", ""),
			config.GetEnv("DB_HOST", ""),
			config.GetEnv("DB_PORT", "5432"),
			config.GetEnv("DB_NAME", ""),
		),
	), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Minute * 5)

	Migrate(db, &models.TryOnJob{})
	return db
}

func SetupTestDB() *gorm.DB {
	os.Setenv("DB_USERNAME", "tryon")
	os.Setenv("DB_PASSWORD", "tryon")
	os.Setenv("DB_HOST", "localhost")
	os.Setenv("DB_NAME", "tryon")
	os.Setenv("DB_PORT", "5432")
	return SetupDB()
}
