package scorecard

import (
	"sort"

	"github.com/straye-as/scorecard-api/internal/domain"
)

// Scope is the set of owners aggregated into one scorecard besides the caller
type Scope struct {
	OrgWide bool
	Members []domain.Identity
}

// ScopeResolver decides which owners a scorecard aggregates
type ScopeResolver struct {
	teams  domain.TeamMap
	admins map[domain.Identity]struct{}
}

// NewScopeResolver builds a resolver over the team map; admins get org-wide scope
func NewScopeResolver(teams domain.TeamMap, admins []domain.Identity) *ScopeResolver {
	set := make(map[domain.Identity]struct{}, len(admins))
	for _, a := range admins {
		set[domain.NewIdentity(string(a))] = struct{}{}
	}
	return &ScopeResolver{teams: teams, admins: set}
}

// IsOrgWide reports whether the identity/role pair sees the whole organization
func (s *ScopeResolver) IsOrgWide(id domain.Identity, role domain.RoleKey) bool {
	if role == domain.RoleOperationsHead {
		return true
	}
	_, ok := s.admins[domain.NewIdentity(string(id))]
	return ok
}

// Resolve returns the scope. Org-wide scopes cover every known identity plus
// extra (typically owners reported by the record source), minus self. Other
// scopes are exactly the configured team list.
func (s *ScopeResolver) Resolve(id domain.Identity, role domain.RoleKey, extra []domain.Identity) Scope {
	self := domain.NewIdentity(string(id))
	if !s.IsOrgWide(self, role) {
		return Scope{Members: s.teams.Members(self)}
	}

	seen := make(map[domain.Identity]struct{})
	var members []domain.Identity
	add := func(ids []domain.Identity) {
		for _, raw := range ids {
			m := domain.NewIdentity(string(raw))
			if m == "" || m == self {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			members = append(members, m)
		}
	}
	add(s.teams.KnownIdentities())
	add(extra)
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

	return Scope{OrgWide: true, Members: members}
}
