package scorecard

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/straye-as/scorecard-api/internal/domain"
)

// OpportunityRecord is the slice of an opportunity the engine needs
type OpportunityRecord struct {
	ID        string
	AccountID *string
	Amount    *float64
	Stage     string
}

// DealRecord is the slice of a deal the engine needs
type DealRecord struct {
	ID        string
	AccountID *string
	Price     *float64
	Status    string
}

// RecordSet is everything fetched for one owner over one window. Created subsets
// are filtered by creation time; closed-won subsets by their own close field.
type RecordSet struct {
	Leads                  int
	OpportunitiesCreated   []OpportunityRecord
	OpportunitiesClosedWon []OpportunityRecord
	DealsCreated           []DealRecord
	DealsClosedWon         []DealRecord
}

// Fetcher loads one owner's records. Implementations must return an error on
// connectivity or authorization failures instead of an empty set, and must be
// safe for concurrent use across owners.
type Fetcher interface {
	FetchOwnerRecords(ctx context.Context, owner domain.Identity, window TimeWindow) (*RecordSet, error)
}

// OwnerDirectory is implemented by fetchers that can list every owner with
// activity in a window. Org-wide scopes include these owners.
type OwnerDirectory interface {
	ListOwners(ctx context.Context, window TimeWindow) ([]domain.Identity, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, owner domain.Identity, window TimeWindow) (*RecordSet, error)

func (f FetcherFunc) FetchOwnerRecords(ctx context.Context, owner domain.Identity, window TimeWindow) (*RecordSet, error) {
	return f(ctx, owner, window)
}

// Summarize reduces a record set to the owner's metrics
func Summarize(rs *RecordSet) domain.OwnerMetrics {
	if rs == nil {
		return domain.OwnerMetrics{}
	}

	salesAmounts := make([]*float64, 0, len(rs.OpportunitiesClosedWon))
	for _, o := range rs.OpportunitiesClosedWon {
		salesAmounts = append(salesAmounts, o.Amount)
	}
	purchaseAmounts := make([]*float64, 0, len(rs.DealsClosedWon))
	for _, d := range rs.DealsClosedWon {
		purchaseAmounts = append(purchaseAmounts, d.Price)
	}

	oppAccounts := make([]*string, 0, len(rs.OpportunitiesCreated))
	for _, o := range rs.OpportunitiesCreated {
		oppAccounts = append(oppAccounts, o.AccountID)
	}
	dealAccounts := make([]*string, 0, len(rs.DealsCreated))
	for _, d := range rs.DealsCreated {
		dealAccounts = append(dealAccounts, d.AccountID)
	}

	leads := rs.Leads
	if leads < 0 {
		leads = 0
	}

	return domain.OwnerMetrics{
		LeadsCount:                leads,
		OpportunitiesCreatedCount: len(rs.OpportunitiesCreated),
		DealsCreatedCount:         len(rs.DealsCreated),
		NetSales:                  sumAmounts(salesAmounts),
		NetPurchase:               sumAmounts(purchaseAmounts),
		UniqueAccountCount:        CountUniqueAccounts(oppAccounts, dealAccounts),
	}
}

// CountUniqueAccounts returns the size of the union of both account lists.
// Nil and blank identifiers are ignored.
func CountUniqueAccounts(opportunityAccounts, dealAccounts []*string) int {
	seen := make(map[string]struct{}, len(opportunityAccounts)+len(dealAccounts))
	for _, list := range [][]*string{opportunityAccounts, dealAccounts} {
		for _, id := range list {
			if id == nil {
				continue
			}
			key := strings.TrimSpace(*id)
			if key == "" {
				continue
			}
			seen[key] = struct{}{}
		}
	}
	return len(seen)
}

// sumAmounts adds monetary values exactly. Nil amounts count as zero and negative
// amounts (credits) offset the others; only the total is clamped at zero.
func sumAmounts(amounts []*float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		if a == nil {
			continue
		}
		total = total.Add(decimal.NewFromFloat(*a))
	}
	if total.IsNegative() {
		return 0
	}
	return total.InexactFloat64()
}
