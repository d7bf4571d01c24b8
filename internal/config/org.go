package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/straye-as/scorecard-api/internal/domain"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// OrgFile is the on-disk shape of the organization file
type OrgFile struct {
	OrgHead     string                       `yaml:"orgHead" validate:"required"`
	Admins      []string                     `yaml:"admins" validate:"dive,required"`
	ForcedRoles map[string]string            `yaml:"forcedRoles" validate:"dive,keys,required,endkeys,required"`
	Quotas      QuotaFile                    `yaml:"quotas"`
	Teams       map[string][]string          `yaml:"teams" validate:"dive,keys,required,endkeys,dive,required"`
	Targets     map[string][]TargetFileEntry `yaml:"targets" validate:"required,dive,keys,required,endkeys,min=1,dive"`
}

// QuotaFile holds the per-member quotas used for team targets
type QuotaFile struct {
	SalesPerMember          float64 `yaml:"salesPerMember" validate:"gt=0"`
	PurchasePerMember       float64 `yaml:"purchasePerMember" validate:"gt=0"`
	FloorManagerSalesTarget float64 `yaml:"floorManagerSalesTarget" validate:"gt=0"`
}

// TargetFileEntry is one target line. Kind accepts either the kind code
// (sales_self) or its display name (Monthly Sales (Self)).
type TargetFileEntry struct {
	Kind   string  `yaml:"kind" validate:"required"`
	Weight int     `yaml:"weight" validate:"gte=0,lte=100"`
	Target float64 `yaml:"target" validate:"gt=0"`
}

// Org is the validated organization snapshot handed to the scorecard engine
type Org struct {
	OrgHead     domain.Identity
	Admins      []domain.Identity
	ForcedRoles map[domain.Identity]domain.RoleKey
	Teams       domain.TeamMap
	Targets     domain.TargetTable
	Quotas      QuotaFile
}

// ErrInvalidOrg is wrapped by every org file validation failure
var ErrInvalidOrg = errors.New("invalid organization config")

// LoadOrg reads the organization file at path. A missing file yields DefaultOrg.
func LoadOrg(path string) (*Org, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultOrg(), nil
		}
		return nil, fmt.Errorf("failed to read org file %s: %w", path, err)
	}
	return ParseOrg(data)
}

// ParseOrg decodes and validates an organization file
func ParseOrg(data []byte) (*Org, error) {
	var file OrgFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode org file: %w", err)
	}
	return file.Build()
}

// Build validates the file and converts it to an Org
func (f *OrgFile) Build() (*Org, error) {
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrg, err)
	}

	forced := make(map[domain.Identity]domain.RoleKey, len(f.ForcedRoles))
	for handle, raw := range f.ForcedRoles {
		role := domain.RoleKey(strings.ToLower(strings.TrimSpace(raw)))
		if !role.IsValid() {
			return nil, fmt.Errorf("%w: forced role %q for %s is not a known role", ErrInvalidOrg, raw, handle)
		}
		forced[domain.NewIdentity(handle)] = role
	}

	// the org head is always operations_head, listed or not
	head := domain.NewIdentity(f.OrgHead)
	if role, ok := forced[head]; ok && role != domain.RoleOperationsHead {
		return nil, fmt.Errorf("%w: org head %s is forced to %s, want %s", ErrInvalidOrg, head, role, domain.RoleOperationsHead)
	}
	forced[head] = domain.RoleOperationsHead

	targets := make(domain.TargetTable, len(f.Targets))
	for rawRole, lines := range f.Targets {
		role := domain.RoleKey(strings.ToLower(strings.TrimSpace(rawRole)))
		if !role.IsValid() {
			return nil, fmt.Errorf("%w: targets for unknown role %q", ErrInvalidOrg, rawRole)
		}
		entries := make(domain.TargetEntries, 0, len(lines))
		for _, line := range lines {
			kind, ok := domain.ParseTargetKind(line.Kind)
			if !ok {
				return nil, fmt.Errorf("%w: role %s has unknown target kind %q", ErrInvalidOrg, role, line.Kind)
			}
			if entries.Has(kind) {
				return nil, fmt.Errorf("%w: role %s lists %s twice", ErrInvalidOrg, role, kind)
			}
			entries = append(entries, domain.TargetEntry{Kind: kind, Weight: line.Weight, Target: line.Target})
		}
		if total := entries.TotalWeight(); total != 100 {
			return nil, fmt.Errorf("%w: weights for role %s sum to %d, want 100", ErrInvalidOrg, role, total)
		}
		targets[role] = entries
	}

	admins := make([]domain.Identity, 0, len(f.Admins))
	for _, a := range f.Admins {
		admins = append(admins, domain.NewIdentity(a))
	}

	return &Org{
		OrgHead:     head,
		Admins:      admins,
		ForcedRoles: forced,
		Teams:       domain.NewTeamMap(f.Teams, head),
		Targets:     targets,
		Quotas:      f.Quotas,
	}, nil
}

// DefaultOrg returns the built-in organization used when no file is configured
func DefaultOrg() *Org {
	org, err := DefaultOrgFile().Build()
	if err != nil {
		// the built-in tables are static; failing here is a programming error
		panic(err)
	}
	return org
}

// DefaultOrgFile returns the built-in organization in file form
func DefaultOrgFile() *OrgFile {
	return &OrgFile{
		OrgHead: "MARK",
		Admins:  []string{"ADMIN"},
		ForcedRoles: map[string]string{
			"MARK":  string(domain.RoleOperationsHead),
			"DAVID": string(domain.RoleFloorManager),
		},
		Quotas: QuotaFile{
			SalesPerMember:          100000,
			PurchasePerMember:       100000,
			FloorManagerSalesTarget: 300000,
		},
		Teams: map[string][]string{
			"FAIZAL": {"AHMAD", "MICHAEL", "JOHN", "RAY", "ARCHIE", "RICKY"},
			"VICTOR": {"MOHSIN", "PETER"},
			"ROBIN":  {"ADAM", "SAM", "MARCEL", "FREDDIE"},
			"MARCUS": {"KEEV", "RODY", "ABRAHAM", "RYAN", "ATIN"},
			"DAISY":  {"TIA", "ZELLA"},
			"AVA":    {"GLORIA", "JENNIE", "SONYA", "LILY", "LINZA"},
			"BRIAN":  {"JASON_F", "NEERAJ", "ALLEN"},
			"TONY":   {"RICK", "LEO", "RICHARD"},
			"LUKE":   {"OMAR", "ALEX", "JAMES"},
			"DAVID":  {"DAVID"},
		},
		Targets: map[string][]TargetFileEntry{
			string(domain.RoleOperationsHead): {
				{Kind: string(domain.TargetSalesOrg), Weight: 100, Target: 1500000},
			},
			string(domain.RoleFloorManager): {
				{Kind: string(domain.TargetSalesSelf), Weight: 70, Target: 300000},
				{Kind: string(domain.TargetUniqueAccounts), Weight: 10, Target: 50},
				{Kind: string(domain.TargetOpportunitiesCreated), Weight: 10, Target: 100},
				{Kind: string(domain.TargetLeadsGenerated), Weight: 10, Target: 250},
			},
			string(domain.RoleSalesLineManager): {
				{Kind: string(domain.TargetSalesSelf), Weight: 40, Target: 200000},
				{Kind: string(domain.TargetSalesTeam), Weight: 30, Target: 700000},
				{Kind: string(domain.TargetUniqueAccounts), Weight: 10, Target: 50},
				{Kind: string(domain.TargetOpportunitiesCreated), Weight: 10, Target: 100},
				{Kind: string(domain.TargetLeadsGenerated), Weight: 10, Target: 250},
			},
			string(domain.RolePurchaseLineManager): {
				{Kind: string(domain.TargetPurchaseSelf), Weight: 40, Target: 200000},
				{Kind: string(domain.TargetPurchaseTeam), Weight: 30, Target: 700000},
				{Kind: string(domain.TargetUniqueAccounts), Weight: 10, Target: 50},
				{Kind: string(domain.TargetDealsCreated), Weight: 10, Target: 100},
				{Kind: string(domain.TargetLeadsGenerated), Weight: 10, Target: 250},
			},
			string(domain.RoleSalesExecutive): {
				{Kind: string(domain.TargetSalesSelf), Weight: 70, Target: 100000},
				{Kind: string(domain.TargetUniqueAccounts), Weight: 10, Target: 50},
				{Kind: string(domain.TargetOpportunitiesCreated), Weight: 10, Target: 100},
				{Kind: string(domain.TargetLeadsGenerated), Weight: 10, Target: 250},
			},
			string(domain.RolePurchaseExecutive): {
				{Kind: string(domain.TargetPurchaseSelf), Weight: 70, Target: 100000},
				{Kind: string(domain.TargetUniqueAccounts), Weight: 10, Target: 50},
				{Kind: string(domain.TargetDealsCreated), Weight: 10, Target: 100},
				{Kind: string(domain.TargetLeadsGenerated), Weight: 10, Target: 250},
			},
		},
	}
}

// IsAdmin reports whether the identity is a configured org administrator
func (o *Org) IsAdmin(id domain.Identity) bool {
	for _, a := range o.Admins {
		if a.Equal(id) {
			return true
		}
	}
	return false
}

// CanViewOthers reports whether the identity may request another user's scorecard
func (o *Org) CanViewOthers(id domain.Identity) bool {
	return o.IsAdmin(id) || o.OrgHead.Equal(id)
}

// KnownIdentities returns every handle in the org: team leaders and members,
// forced-role handles and admins, sorted
func (o *Org) KnownIdentities() []domain.Identity {
	seen := make(map[domain.Identity]struct{})
	for _, id := range o.Teams.KnownIdentities() {
		seen[id] = struct{}{}
	}
	for id := range o.ForcedRoles {
		seen[id] = struct{}{}
	}
	for _, id := range o.Admins {
		seen[id] = struct{}{}
	}
	out := make([]domain.Identity, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
