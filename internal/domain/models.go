package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns an ID when the caller did not set one
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// ClosedWonStage is the stage/status value marking a successfully closed record
const ClosedWonStage = "Closed Won"

// Lead is a prospect captured by an owner
type Lead struct {
	BaseModel
	OwnerHandle string `gorm:"type:varchar(100);not null;index;column:owner_handle"`
	Name        string `gorm:"type:varchar(200)"`
	Company     string `gorm:"type:varchar(200)"`
	Source      string `gorm:"type:varchar(100)"`
}

// Opportunity is a sales opportunity; Amount counts towards net sales once closed won
type Opportunity struct {
	BaseModel
	OwnerHandle string     `gorm:"type:varchar(100);not null;index;column:owner_handle"`
	AccountID   *string    `gorm:"type:varchar(64);index;column:account_id"`
	Name        string     `gorm:"type:varchar(200)"`
	Stage       string     `gorm:"type:varchar(50);not null;index"`
	Amount      *float64   `gorm:"type:decimal(15,2)"`
	CloseDate   *time.Time `gorm:"type:date;index;column:close_date"`
}

// Deal is a purchase deal; Price counts towards net purchase once closed won
type Deal struct {
	BaseModel
	OwnerHandle string     `gorm:"type:varchar(100);not null;index;column:owner_handle"`
	AccountID   *string    `gorm:"type:varchar(64);index;column:account_id"`
	Name        string     `gorm:"type:varchar(200)"`
	Status      string     `gorm:"type:varchar(50);not null;index"`
	Price       *float64   `gorm:"type:decimal(15,2);column:closed_price"`
	ClosedAt    *time.Time `gorm:"index;column:closed_at"`
}

// ScorecardSnapshot stores one exported scorecard
type ScorecardSnapshot struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Identity     string         `gorm:"type:varchar(100);not null;index"`
	RoleKey      string         `gorm:"type:varchar(50);not null;column:role_key"`
	RangeToken   string         `gorm:"type:varchar(32);not null;column:range_token"`
	WindowFrom   *time.Time     `gorm:"column:window_from"`
	WindowTo     *time.Time     `gorm:"column:window_to"`
	Targets      datatypes.JSON `gorm:"column:targets"`
	Achievements datatypes.JSON `gorm:"column:achievements"`
	OwnMetrics   datatypes.JSON `gorm:"column:own_metrics"`
	GeneratedAt  time.Time      `gorm:"not null;index;column:generated_at"`
	CreatedAt    time.Time      `gorm:"not null"`
}

// TableName overrides the default table name to match the migration
func (ScorecardSnapshot) TableName() string {
	return "scorecard_snapshots"
}

// BeforeCreate assigns an ID when the caller did not set one
func (s *ScorecardSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
