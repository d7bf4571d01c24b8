package repository

import (
	"context"
	"sort"

	"github.com/straye-as/scorecard-api/internal/domain"
	"github.com/straye-as/scorecard-api/internal/scorecard"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// RecordRepository serves scorecard records from the application database
type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

var (
	_ scorecard.Fetcher        = (*RecordRepository)(nil)
	_ scorecard.OwnerDirectory = (*RecordRepository)(nil)
)

func (r *RecordRepository) CreateLead(ctx context.Context, lead *domain.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

func (r *RecordRepository) CreateOpportunity(ctx context.Context, opp *domain.Opportunity) error {
	return r.db.WithContext(ctx).Create(opp).Error
}

func (r *RecordRepository) CreateDeal(ctx context.Context, deal *domain.Deal) error {
	return r.db.WithContext(ctx).Create(deal).Error
}

// ownedBy matches owner handles case-insensitively
func ownedBy(owner domain.Identity) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("UPPER(owner_handle) = ?", owner.String())
	}
}

// inWindow restricts an instant column to [from, to)
func inWindow(column string, window scorecard.TimeWindow) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		from, to, ok := window.Bounds()
		if !ok {
			return db
		}
		return db.Where(column+" >= ? AND "+column+" < ?", from.UTC(), to.UTC())
	}
}

// onDays restricts a date column to the days the window touches
func onDays(column string, window scorecard.TimeWindow) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		from, to, ok := window.Boundaries(scorecard.PrecisionDate)
		if !ok {
			return db
		}
		return db.Where(column+" >= ? AND "+column+" < ?", from, to)
	}
}

// FetchOwnerRecords loads the five record subsets for owner concurrently
func (r *RecordRepository) FetchOwnerRecords(ctx context.Context, owner domain.Identity, window scorecard.TimeWindow) (*scorecard.RecordSet, error) {
	rs := &scorecard.RecordSet{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var n int64
		err := r.db.WithContext(gctx).Model(&domain.Lead{}).
			Scopes(ownedBy(owner), inWindow("created_at", window)).
			Count(&n).Error
		rs.Leads = int(n)
		return err
	})

	g.Go(func() error {
		var opps []domain.Opportunity
		err := r.db.WithContext(gctx).
			Scopes(ownedBy(owner), inWindow("created_at", window)).
			Find(&opps).Error
		rs.OpportunitiesCreated = toOpportunityRecords(opps)
		return err
	})

	g.Go(func() error {
		var opps []domain.Opportunity
		err := r.db.WithContext(gctx).
			Scopes(ownedBy(owner), onDays("close_date", window)).
			Where("stage = ?", domain.ClosedWonStage).
			Find(&opps).Error
		rs.OpportunitiesClosedWon = toOpportunityRecords(opps)
		return err
	})

	g.Go(func() error {
		var deals []domain.Deal
		err := r.db.WithContext(gctx).
			Scopes(ownedBy(owner), inWindow("created_at", window)).
			Find(&deals).Error
		rs.DealsCreated = toDealRecords(deals)
		return err
	})

	g.Go(func() error {
		var deals []domain.Deal
		err := r.db.WithContext(gctx).
			Scopes(ownedBy(owner), inWindow("closed_at", window)).
			Where("status = ?", domain.ClosedWonStage).
			Find(&deals).Error
		rs.DealsClosedWon = toDealRecords(deals)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rs, nil
}

// ListOwners returns every owner with a lead, opportunity or deal created in the window
func (r *RecordRepository) ListOwners(ctx context.Context, window scorecard.TimeWindow) ([]domain.Identity, error) {
	seen := make(map[domain.Identity]struct{})
	for _, model := range []any{&domain.Lead{}, &domain.Opportunity{}, &domain.Deal{}} {
		var handles []string
		err := r.db.WithContext(ctx).Model(model).
			Scopes(inWindow("created_at", window)).
			Distinct().
			Pluck("owner_handle", &handles).Error
		if err != nil {
			return nil, err
		}
		for _, h := range handles {
			if id := domain.NewIdentity(h); !id.IsZero() {
				seen[id] = struct{}{}
			}
		}
	}

	owners := make([]domain.Identity, 0, len(seen))
	for id := range seen {
		owners = append(owners, id)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners, nil
}

func toOpportunityRecords(opps []domain.Opportunity) []scorecard.OpportunityRecord {
	out := make([]scorecard.OpportunityRecord, 0, len(opps))
	for _, o := range opps {
		out = append(out, scorecard.OpportunityRecord{
			ID:        o.ID.String(),
			AccountID: o.AccountID,
			Amount:    o.Amount,
			Stage:     o.Stage,
		})
	}
	return out
}

func toDealRecords(deals []domain.Deal) []scorecard.DealRecord {
	out := make([]scorecard.DealRecord, 0, len(deals))
	for _, d := range deals {
		out = append(out, scorecard.DealRecord{
			ID:        d.ID.String(),
			AccountID: d.AccountID,
			Price:     d.Price,
			Status:    d.Status,
		})
	}
	return out
}
