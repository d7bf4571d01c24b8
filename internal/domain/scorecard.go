package domain

import (
	"sort"
	"strings"
	"time"
)

// Identity is a case-insensitive user handle. The zero value is the empty handle.
type Identity string

// NewIdentity normalizes a raw handle to its canonical upper-case form
func NewIdentity(raw string) Identity {
	return Identity(strings.ToUpper(strings.TrimSpace(raw)))
}

func (i Identity) String() string {
	return string(i)
}

// IsZero reports whether the handle is empty after normalization
func (i Identity) IsZero() bool {
	return NewIdentity(string(i)) == ""
}

// Equal compares two handles ignoring case
func (i Identity) Equal(other Identity) bool {
	return NewIdentity(string(i)) == NewIdentity(string(other))
}

// RoleKey identifies the organizational role a scorecard is computed for
type RoleKey string

const (
	RoleOperationsHead      RoleKey = "operations_head"
	RoleFloorManager        RoleKey = "floor_manager"
	RoleSalesLineManager    RoleKey = "sales_line_manager"
	RolePurchaseLineManager RoleKey = "purchase_line_manager"
	RoleSalesExecutive      RoleKey = "sales_executive"
	RolePurchaseExecutive   RoleKey = "purchase_executive"
)

// AllRoleKeys returns every role in a stable order
func AllRoleKeys() []RoleKey {
	return []RoleKey{
		RoleOperationsHead,
		RoleFloorManager,
		RoleSalesLineManager,
		RolePurchaseLineManager,
		RoleSalesExecutive,
		RolePurchaseExecutive,
	}
}

// IsValid checks if the role key is one of the known roles
func (r RoleKey) IsValid() bool {
	for _, k := range AllRoleKeys() {
		if r == k {
			return true
		}
	}
	return false
}

// IsSalesFamily reports whether the role belongs to the sales branch
func (r RoleKey) IsSalesFamily() bool {
	return strings.HasPrefix(string(r), "sales")
}

// IsPurchaseFamily reports whether the role belongs to the purchase branch
func (r RoleKey) IsPurchaseFamily() bool {
	return strings.HasPrefix(string(r), "purchase")
}

// IsLineManager reports whether the role owns a team-aggregated target
func (r RoleKey) IsLineManager() bool {
	return strings.HasSuffix(string(r), "line_manager")
}

// TargetKind is the closed set of target entries a role table may contain
type TargetKind string

const (
	TargetSalesSelf            TargetKind = "sales_self"
	TargetSalesTeam            TargetKind = "sales_team"
	TargetSalesOrg             TargetKind = "sales_org"
	TargetPurchaseSelf         TargetKind = "purchase_self"
	TargetPurchaseTeam         TargetKind = "purchase_team"
	TargetUniqueAccounts       TargetKind = "unique_accounts"
	TargetOpportunitiesCreated TargetKind = "opportunities_created"
	TargetDealsCreated         TargetKind = "deals_created"
	TargetLeadsGenerated       TargetKind = "leads_generated"
)

var targetDisplayNames = map[TargetKind]string{
	TargetSalesSelf:            "Monthly Sales (Self)",
	TargetSalesTeam:            "Monthly Sales (Team Members)",
	TargetSalesOrg:             "Monthly Sales (Self + Team Members)",
	TargetPurchaseSelf:         "Monthly Purchase (Self)",
	TargetPurchaseTeam:         "Monthly Purchase (Team Members)",
	TargetUniqueAccounts:       "Monthly Unique Accounts",
	TargetOpportunitiesCreated: "Monthly Opportunities Created",
	TargetDealsCreated:         "Monthly Deals Created",
	TargetLeadsGenerated:       "Monthly Leads Generated",
}

// DisplayName returns the label shown to users for this target kind
func (k TargetKind) DisplayName() string {
	if name, ok := targetDisplayNames[k]; ok {
		return name
	}
	return string(k)
}

// IsValid checks if the kind is a known target kind
func (k TargetKind) IsValid() bool {
	_, ok := targetDisplayNames[k]
	return ok
}

// IsTeamAggregate reports whether the kind sums over team members
func (k TargetKind) IsTeamAggregate() bool {
	return k == TargetSalesTeam || k == TargetPurchaseTeam
}

// ParseTargetKind accepts either the kind code or its display name
func ParseTargetKind(s string) (TargetKind, bool) {
	trimmed := strings.TrimSpace(s)
	if k := TargetKind(strings.ToLower(trimmed)); k.IsValid() {
		return k, true
	}
	for k, name := range targetDisplayNames {
		if strings.EqualFold(name, trimmed) {
			return k, true
		}
	}
	return "", false
}

// TargetEntry is one weighted OKR line of a role's table
type TargetEntry struct {
	Kind   TargetKind `json:"kind"`
	Weight int        `json:"weight"`
	Target float64    `json:"target"`
}

// TargetEntries is the ordered target list for one role
type TargetEntries []TargetEntry

// Find returns the index of the entry with the given kind
func (e TargetEntries) Find(kind TargetKind) (int, bool) {
	for i := range e {
		if e[i].Kind == kind {
			return i, true
		}
	}
	return -1, false
}

// Has reports whether an entry of the given kind exists
func (e TargetEntries) Has(kind TargetKind) bool {
	_, ok := e.Find(kind)
	return ok
}

// TotalWeight sums the weights of all entries
func (e TargetEntries) TotalWeight() int {
	total := 0
	for _, entry := range e {
		total += entry.Weight
	}
	return total
}

// Clone returns an independent copy of the entries
func (e TargetEntries) Clone() TargetEntries {
	if e == nil {
		return TargetEntries{}
	}
	out := make(TargetEntries, len(e))
	copy(out, e)
	return out
}

// TargetTable maps each role to its base targets. It is shared read-only state.
type TargetTable map[RoleKey]TargetEntries

// For returns a deep copy of the role's entries, empty when the role has none
func (t TargetTable) For(role RoleKey) TargetEntries {
	return t[role].Clone()
}

// TeamMap maps a leader to the ordered list of members they are accountable for
type TeamMap struct {
	teams map[Identity][]Identity
}

// NewTeamMap normalizes every handle, drops duplicates and, when orgHead is set,
// grants the org head the union of every other team's members.
func NewTeamMap(raw map[string][]string, orgHead Identity) TeamMap {
	teams := make(map[Identity][]Identity, len(raw)+1)
	for leader, members := range raw {
		id := NewIdentity(leader)
		if id == "" {
			continue
		}
		teams[id] = appendUnique(teams[id], members...)
	}

	head := NewIdentity(string(orgHead))
	if head != "" {
		var union []Identity
		for _, leader := range sortedKeys(teams) {
			if leader == head {
				continue
			}
			for _, m := range teams[leader] {
				if m != head {
					union = appendUnique(union, string(m))
				}
			}
		}
		teams[head] = appendUnique(teams[head], identitiesToStrings(union)...)
	}

	return TeamMap{teams: teams}
}

// Members returns a copy of the identity's team, empty when none is configured
func (m TeamMap) Members(id Identity) []Identity {
	members := m.teams[NewIdentity(string(id))]
	out := make([]Identity, len(members))
	copy(out, members)
	return out
}

// HasTeam reports whether the identity leads a non-empty team
func (m TeamMap) HasTeam(id Identity) bool {
	return len(m.teams[NewIdentity(string(id))]) > 0
}

// Leaders returns every configured leader, sorted
func (m TeamMap) Leaders() []Identity {
	return sortedKeys(m.teams)
}

// KnownIdentities returns every leader and member, sorted and deduplicated
func (m TeamMap) KnownIdentities() []Identity {
	seen := make(map[Identity]struct{})
	for leader, members := range m.teams {
		seen[leader] = struct{}{}
		for _, member := range members {
			seen[member] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func appendUnique(list []Identity, raw ...string) []Identity {
	for _, r := range raw {
		id := NewIdentity(r)
		if id == "" {
			continue
		}
		dup := false
		for _, existing := range list {
			if existing == id {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, id)
		}
	}
	return list
}

func identitiesToStrings(ids []Identity) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func sortedKeys[V any](m map[Identity]V) []Identity {
	keys := make([]Identity, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// OwnerMetrics holds the aggregated figures for one owner over one window
type OwnerMetrics struct {
	LeadsCount                int     `json:"leadsCount"`
	OpportunitiesCreatedCount int     `json:"opportunitiesCreatedCount"`
	DealsCreatedCount         int     `json:"dealsCreatedCount"`
	NetSales                  float64 `json:"netSales"`
	NetPurchase               float64 `json:"netPurchase"`
	UniqueAccountCount        int     `json:"uniqueAccountCount"`
}

// AchievementMap holds achieved values keyed by the same kinds as the target table
type AchievementMap map[TargetKind]float64

// Named re-keys the achievements by display name for presentation
func (a AchievementMap) Named() map[string]float64 {
	out := make(map[string]float64, len(a))
	for k, v := range a {
		out[k.DisplayName()] = v
	}
	return out
}

// Scorecard is the result of one scorecard computation
type Scorecard struct {
	Identity       Identity
	RoleKey        RoleKey
	RequestedRange string
	Range          string
	WindowFrom     *time.Time
	WindowTo       *time.Time
	Targets        TargetEntries
	Achievements   AchievementMap
	OwnMetrics     OwnerMetrics
	ScopeMetrics   map[Identity]OwnerMetrics
	GeneratedAt    time.Time
}
