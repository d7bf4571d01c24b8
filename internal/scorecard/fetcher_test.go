package scorecard_test

import (
	"testing"

	"github.com/straye-as/scorecard-api/internal/domain"
	"github.com/straye-as/scorecard-api/internal/scorecard"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestCountUniqueAccounts(t *testing.T) {
	tests := []struct {
		name  string
		opps  []*string
		deals []*string
		want  int
	}{
		{
			name:  "overlap counted once",
			opps:  []*string{strPtr("A"), strPtr("B")},
			deals: []*string{strPtr("B"), strPtr("C")},
			want:  3,
		},
		{
			name:  "nil and blank ignored",
			opps:  []*string{nil, strPtr(""), strPtr("  "), strPtr("A")},
			deals: []*string{nil},
			want:  1,
		},
		{
			name:  "duplicates within one source",
			opps:  []*string{strPtr("A"), strPtr("A"), strPtr(" A ")},
			deals: nil,
			want:  1,
		},
		{
			name: "both empty",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scorecard.CountUniqueAccounts(tt.opps, tt.deals))
		})
	}
}

func TestSummarize(t *testing.T) {
	rs := &scorecard.RecordSet{
		Leads: 4,
		OpportunitiesCreated: []scorecard.OpportunityRecord{
			{ID: "o1", AccountID: strPtr("A")},
			{ID: "o2", AccountID: strPtr("B")},
			{ID: "o3"},
		},
		OpportunitiesClosedWon: []scorecard.OpportunityRecord{
			{ID: "o1", Amount: floatPtr(1000.10)},
			{ID: "o9", Amount: floatPtr(2000.20)},
			{ID: "o10"},
		},
		DealsCreated: []scorecard.DealRecord{
			{ID: "d1", AccountID: strPtr("B")},
			{ID: "d2", AccountID: strPtr("C")},
		},
		DealsClosedWon: []scorecard.DealRecord{
			{ID: "d1", Price: floatPtr(500)},
			{ID: "d3"},
		},
	}

	got := scorecard.Summarize(rs)

	assert.Equal(t, domain.OwnerMetrics{
		LeadsCount:                4,
		OpportunitiesCreatedCount: 3,
		DealsCreatedCount:         2,
		NetSales:                  3000.30,
		NetPurchase:               500,
		UniqueAccountCount:        3,
	}, got)
}

func TestSummarize_NilRecordSet(t *testing.T) {
	assert.Equal(t, domain.OwnerMetrics{}, scorecard.Summarize(nil))
}

func TestSummarize_NegativeValuesClampToZero(t *testing.T) {
	rs := &scorecard.RecordSet{
		Leads: -1,
		OpportunitiesClosedWon: []scorecard.OpportunityRecord{
			{ID: "o1", Amount: floatPtr(-250)},
		},
	}

	got := scorecard.Summarize(rs)

	assert.Equal(t, 0, got.LeadsCount)
	assert.Equal(t, float64(0), got.NetSales)
}

func TestSummarize_CreditsOffsetTotals(t *testing.T) {
	rs := &scorecard.RecordSet{
		OpportunitiesClosedWon: []scorecard.OpportunityRecord{
			{ID: "o1", Amount: floatPtr(1000)},
			{ID: "o2", Amount: floatPtr(-250.5)},
			{ID: "o3"},
		},
		DealsClosedWon: []scorecard.DealRecord{
			{ID: "d1", Price: floatPtr(100)},
			{ID: "d2", Price: floatPtr(-400)},
		},
	}

	got := scorecard.Summarize(rs)

	assert.Equal(t, 749.5, got.NetSales)
	assert.Equal(t, float64(0), got.NetPurchase)
}
