package repository

import (
	"context"
	"errors"
	"time"

	"github.com/straye-as/scorecard-api/internal/domain"
	"gorm.io/gorm"
)

// maxSnapshotPage caps snapshot listings
const maxSnapshotPage = 200

type ScorecardSnapshotRepository struct {
	db *gorm.DB
}

func NewScorecardSnapshotRepository(db *gorm.DB) *ScorecardSnapshotRepository {
	return &ScorecardSnapshotRepository{db: db}
}

func (r *ScorecardSnapshotRepository) Create(ctx context.Context, snapshot *domain.ScorecardSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// CreateBatch stores all snapshots of one export run in a single transaction
func (r *ScorecardSnapshotRepository) CreateBatch(ctx context.Context, snapshots []domain.ScorecardSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(snapshots, 100).Error
	})
}

// ListByIdentity returns the newest snapshots for identity, optionally narrowed to one range token
func (r *ScorecardSnapshotRepository) ListByIdentity(ctx context.Context, identity domain.Identity, rangeToken string, limit int) ([]domain.ScorecardSnapshot, error) {
	if limit <= 0 || limit > maxSnapshotPage {
		limit = maxSnapshotPage
	}

	query := r.db.WithContext(ctx).Where("identity = ?", identity.String())
	if rangeToken != "" {
		query = query.Where("range_token = ?", rangeToken)
	}

	var snapshots []domain.ScorecardSnapshot
	err := query.Order("generated_at DESC").Limit(limit).Find(&snapshots).Error
	return snapshots, err
}

// GetLatest returns the newest snapshot for identity and range token, or nil when none exists
func (r *ScorecardSnapshotRepository) GetLatest(ctx context.Context, identity domain.Identity, rangeToken string) (*domain.ScorecardSnapshot, error) {
	var snapshot domain.ScorecardSnapshot
	err := r.db.WithContext(ctx).
		Where("identity = ? AND range_token = ?", identity.String(), rangeToken).
		Order("generated_at DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// DeleteOlderThan prunes snapshots generated before cutoff and returns how many were removed
func (r *ScorecardSnapshotRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("generated_at < ?", cutoff.UTC()).Delete(&domain.ScorecardSnapshot{})
	return result.RowsAffected, result.Error
}
