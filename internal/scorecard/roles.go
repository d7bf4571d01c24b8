package scorecard

import "github.com/straye-as/scorecard-api/internal/domain"

// Signals are the behavioral inputs to role inference
type Signals struct {
	HasDeals bool
	HasOpps  bool
	HasTeam  bool
}

// SignalsFor derives the signals from an owner's own metrics and team membership
func SignalsFor(own domain.OwnerMetrics, hasTeam bool) Signals {
	return Signals{
		HasDeals: own.DealsCreatedCount > 0,
		HasOpps:  own.OpportunitiesCreatedCount > 0,
		HasTeam:  hasTeam,
	}
}

type roleRule struct {
	name  string
	match func(Signals) bool
	role  domain.RoleKey
}

// behavioralRules is evaluated top to bottom; the first match wins. Users with
// both deal and opportunity activity (or neither) fall through to the last two
// rules, which do not distinguish sales from purchase.
var behavioralRules = []roleRule{
	{
		name:  "purchase with team",
		match: func(s Signals) bool { return s.HasDeals && !s.HasOpps && s.HasTeam },
		role:  domain.RolePurchaseLineManager,
	},
	{
		name:  "sales with team",
		match: func(s Signals) bool { return s.HasOpps && !s.HasDeals && s.HasTeam },
		role:  domain.RoleSalesLineManager,
	},
	{
		name:  "sales without team",
		match: func(s Signals) bool { return s.HasOpps && !s.HasDeals && !s.HasTeam },
		role:  domain.RoleSalesExecutive,
	},
	{
		name:  "purchase without team",
		match: func(s Signals) bool { return s.HasDeals && !s.HasOpps && !s.HasTeam },
		role:  domain.RolePurchaseExecutive,
	},
	{
		name:  "fallback with team",
		match: func(s Signals) bool { return s.HasTeam },
		role:  domain.RoleSalesLineManager,
	},
	{
		name:  "fallback",
		match: func(Signals) bool { return true },
		role:  domain.RoleSalesExecutive,
	},
}

// RoleResolver assigns exactly one role per identity and signal set
type RoleResolver struct {
	forced map[domain.Identity]domain.RoleKey
}

// NewRoleResolver builds a resolver; forced maps identities to a role that
// overrides behavioral inference
func NewRoleResolver(forced map[domain.Identity]domain.RoleKey) *RoleResolver {
	normalized := make(map[domain.Identity]domain.RoleKey, len(forced))
	for id, role := range forced {
		normalized[domain.NewIdentity(string(id))] = role
	}
	return &RoleResolver{forced: normalized}
}

// Forced returns the configured role for the identity, if any
func (r *RoleResolver) Forced(id domain.Identity) (domain.RoleKey, bool) {
	role, ok := r.forced[domain.NewIdentity(string(id))]
	return role, ok
}

// Resolve returns the identity's role and the name of the rule that decided it
func (r *RoleResolver) Resolve(id domain.Identity, s Signals) (domain.RoleKey, string) {
	if role, ok := r.Forced(id); ok {
		return role, "forced"
	}
	for _, rule := range behavioralRules {
		if rule.match(s) {
			return rule.role, rule.name
		}
	}
	// unreachable: the last rule always matches
	return domain.RoleSalesExecutive, "fallback"
}
