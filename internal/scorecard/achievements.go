package scorecard

import (
	"github.com/shopspring/decimal"
	"github.com/straye-as/scorecard-api/internal/domain"
)

// BuildAchievements maps metrics to achievements for the role. Only kinds present
// in targets are emitted. scope must not contain self; self's metrics are passed
// separately in own.
func BuildAchievements(role domain.RoleKey, targets domain.TargetEntries, own domain.OwnerMetrics, scope map[domain.Identity]domain.OwnerMetrics) domain.AchievementMap {
	out := domain.AchievementMap{}
	put := func(kind domain.TargetKind, value float64) {
		if targets.Has(kind) {
			out[kind] = value
		}
	}

	switch {
	case role == domain.RoleOperationsHead:
		put(domain.TargetSalesOrg, sumScope(own.NetSales, scope, func(m domain.OwnerMetrics) float64 { return m.NetSales }))

	case role == domain.RoleFloorManager:
		put(domain.TargetSalesSelf, own.NetSales)
		put(domain.TargetOpportunitiesCreated, float64(own.OpportunitiesCreatedCount))
		put(domain.TargetLeadsGenerated, float64(own.LeadsCount))
		put(domain.TargetUniqueAccounts, float64(own.UniqueAccountCount))

	case role.IsSalesFamily():
		put(domain.TargetSalesSelf, own.NetSales)
		if role.IsLineManager() {
			put(domain.TargetSalesTeam, sumScope(0, scope, func(m domain.OwnerMetrics) float64 { return m.NetSales }))
		}
		put(domain.TargetOpportunitiesCreated, float64(own.OpportunitiesCreatedCount))
		put(domain.TargetLeadsGenerated, float64(own.LeadsCount))
		put(domain.TargetUniqueAccounts, float64(own.UniqueAccountCount))

	case role.IsPurchaseFamily():
		put(domain.TargetPurchaseSelf, own.NetPurchase)
		if role.IsLineManager() {
			put(domain.TargetPurchaseTeam, sumScope(0, scope, func(m domain.OwnerMetrics) float64 { return m.NetPurchase }))
		}
		put(domain.TargetDealsCreated, float64(own.DealsCreatedCount))
		put(domain.TargetLeadsGenerated, float64(own.LeadsCount))
		put(domain.TargetUniqueAccounts, float64(own.UniqueAccountCount))
	}

	return out
}

func sumScope(start float64, scope map[domain.Identity]domain.OwnerMetrics, pick func(domain.OwnerMetrics) float64) float64 {
	total := decimal.NewFromFloat(start)
	for _, m := range scope {
		total = total.Add(decimal.NewFromFloat(pick(m)))
	}
	return total.InexactFloat64()
}
