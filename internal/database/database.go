package database

import (
	"fmt"
	"time"

	"github.com/partnerpay/backend/internal/config"
	"github.com/partnerpay/backend/internal/models"
	"github.com/partnerpay/backend/internal/queue"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB initializes the database connection with configuration
func InitDB(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dbConfig.URL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdle)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate runs schema auto-migration for all models
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Parties
		&models.User{},
		&models.Project{},
		&models.Coupon{},
		&models.Contract{},
		&models.PayoutAccount{},

		// Commission lifecycle
		&models.Purchase{},
		&models.CommissionAdjustment{},
		&models.Transfer{},

		// Rewards
		&models.Reward{},
		&models.RewardEarned{},
		&models.AttributionEvent{},

		// Collaborator sinks
		&models.AuditEvent{},
		&models.Notification{},

		// Background jobs
		&queue.Job{},
	)
}
