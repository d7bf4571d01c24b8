// Package testutil holds database helpers shared by package tests
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/straye-as/scorecard-api/internal/database"
	"github.com/straye-as/scorecard-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB opens an empty file-backed sqlite database in a temp dir.
// The pool is limited to one connection so concurrent fetches share it.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open sqlite test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SetupTestDB opens a test database with the CRM record and snapshot tables
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := OpenTestDB(t)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CleanupTestData empties every scorecard table
func CleanupTestData(t *testing.T, db *gorm.DB) {
	tables := []string{
		"scorecard_snapshots",
		"deals",
		"opportunities",
		"leads",
	}

	for _, table := range tables {
		err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error
		if err != nil {
			// Table might not exist, that's ok
			t.Logf("Note: Could not clean table %s: %v", table, err)
		}
	}
}

// CreateTestLead inserts a lead for owner created at the given instant
func CreateTestLead(t *testing.T, db *gorm.DB, owner string, createdAt time.Time) *domain.Lead {
	lead := &domain.Lead{
		BaseModel:   domain.BaseModel{CreatedAt: createdAt},
		OwnerHandle: owner,
		Name:        fmt.Sprintf("Lead %d", time.Now().UnixNano()),
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

// CreateTestOpportunity inserts a closed-won opportunity
func CreateTestOpportunity(t *testing.T, db *gorm.DB, owner, account string, amount float64, createdAt, closeDate time.Time) *domain.Opportunity {
	opp := &domain.Opportunity{
		BaseModel:   domain.BaseModel{CreatedAt: createdAt},
		OwnerHandle: owner,
		AccountID:   StrPtr(account),
		Name:        fmt.Sprintf("Opportunity %d", time.Now().UnixNano()),
		Stage:       domain.ClosedWonStage,
		Amount:      FloatPtr(amount),
		CloseDate:   &closeDate,
	}
	require.NoError(t, db.Create(opp).Error)
	return opp
}

func StrPtr(s string) *string { return &s }

func FloatPtr(f float64) *float64 { return &f }
