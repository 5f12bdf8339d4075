package db

import (
	"fmt"
	"log"

	"vesting-backend/internal/config"
	"vesting-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB connects to postgres and migrates the journal tables.
// It leaves DB nil when no DSN is configured.
func InitDB() error {
	if config.AppConfig == nil || config.AppConfig.Database.DSN == "" {
		log.Println("⚠️ Database DSN not configured, event journal disabled")
		return nil
	}

	db, err := Open(config.AppConfig.Database.DSN)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to dsn and runs AutoMigrate
func Open(dsn string) (*gorm.DB, error) {
	log.Printf("Connecting to database")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		CreateBatchSize:                          1000,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	log.Println("✅ Database connected successfully")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the vesting tables
func Migrate(db *gorm.DB) error {
	log.Println("🚀 Starting database schema migration with GORM AutoMigrate...")
	if err := db.AutoMigrate(
		&models.VestingEvent{},
		&models.ScheduleRecord{},
	); err != nil {
		return fmt.Errorf("AutoMigrate failed: %w", err)
	}
	log.Println("✅ Database schema migrated successfully")
	return nil
}

// Close releases the underlying connection pool
func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		sqlDB.Close()
	}
}
