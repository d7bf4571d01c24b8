package scorecard

import "github.com/straye-as/scorecard-api/internal/domain"

// Quotas are the tunables used to rewrite team-size dependent targets
type Quotas struct {
	SalesPerMember          float64
	PurchasePerMember       float64
	FloorManagerSalesTarget float64
}

// TargetAdjuster produces per-request target tables from the shared base table
type TargetAdjuster struct {
	base   domain.TargetTable
	quotas Quotas
}

// NewTargetAdjuster wraps the base table; the base is never written to
func NewTargetAdjuster(base domain.TargetTable, quotas Quotas) *TargetAdjuster {
	return &TargetAdjuster{base: base, quotas: quotas}
}

// Adjust returns a private copy of the role's targets with the role's overrides
// applied. Overrides for entries the table does not contain are skipped.
func (a *TargetAdjuster) Adjust(role domain.RoleKey, teamSize int) domain.TargetEntries {
	entries := a.base.For(role)

	set := func(kind domain.TargetKind, target float64) {
		if i, ok := entries.Find(kind); ok {
			entries[i].Target = target
		}
	}

	switch role {
	case domain.RoleSalesLineManager:
		set(domain.TargetSalesTeam, float64(teamSize)*a.quotas.SalesPerMember)
	case domain.RolePurchaseLineManager:
		set(domain.TargetPurchaseTeam, float64(teamSize)*a.quotas.PurchasePerMember)
	case domain.RoleFloorManager:
		set(domain.TargetSalesSelf, a.quotas.FloorManagerSalesTarget)
	}

	return entries
}
