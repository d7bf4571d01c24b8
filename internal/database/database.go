package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/straye-as/scorecard-api/internal/config"
	"github.com/straye-as/scorecard-api/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := cfg.ConnectionString()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// AutoMigrate creates the CRM record and snapshot tables (development and tests only;
// deployed databases are migrated with cmd/migrate)
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Lead{},
		&domain.Opportunity{},
		&domain.Deal{},
		&domain.ScorecardSnapshot{},
	)
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck pings the database within ctx
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	_, err := HealthCheckWithStats(ctx, db)
	return err
}

// HealthCheckWithStats pings the database and returns the pool statistics
func HealthCheckWithStats(ctx context.Context, db *gorm.DB) (sql.DBStats, error) {
	if db == nil {
		return sql.DBStats{}, fmt.Errorf("database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return sql.DBStats{}, fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return sqlDB.Stats(), fmt.Errorf("database ping failed: %w", err)
	}
	return sqlDB.Stats(), nil
}
