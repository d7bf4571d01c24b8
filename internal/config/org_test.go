package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/straye-as/scorecard-api/internal/config"
	"github.com/straye-as/scorecard-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalOrg = `
orgHead: boss
admins: [root]
forcedRoles:
  boss: operations_head
quotas:
  salesPerMember: 75000
  purchasePerMember: 50000
  floorManagerSalesTarget: 1
teams:
  lead: [a, b, A]
  other: [c]
targets:
  sales_line_manager:
    - { kind: sales_self, weight: 60, target: 10 }
    - { kind: "Monthly Sales (Team Members)", weight: 40, target: 20 }
`

func TestParseOrg(t *testing.T) {
	org, err := config.ParseOrg([]byte(minimalOrg))
	require.NoError(t, err)

	assert.Equal(t, domain.Identity("BOSS"), org.OrgHead)
	assert.Equal(t, []domain.Identity{"ROOT"}, org.Admins)
	assert.Equal(t, domain.RoleOperationsHead, org.ForcedRoles["BOSS"])
	assert.Equal(t, 75000.0, org.Quotas.SalesPerMember)

	assert.Equal(t, []domain.Identity{"A", "B"}, org.Teams.Members("lead"))
	assert.Equal(t, []domain.Identity{"A", "B", "C"}, org.Teams.Members("BOSS"))

	entries := org.Targets[domain.RoleSalesLineManager]
	require.Len(t, entries, 2)
	assert.Equal(t, domain.TargetSalesTeam, entries[1].Kind)
}

func TestParseOrg_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "weights do not sum to 100",
			yaml: `
orgHead: boss
quotas: { salesPerMember: 1, purchasePerMember: 1, floorManagerSalesTarget: 1 }
targets:
  sales_executive:
    - { kind: sales_self, weight: 60, target: 10 }
`,
		},
		{
			name: "unknown role",
			yaml: `
orgHead: boss
quotas: { salesPerMember: 1, purchasePerMember: 1, floorManagerSalesTarget: 1 }
targets:
  janitor:
    - { kind: sales_self, weight: 100, target: 10 }
`,
		},
		{
			name: "unknown kind",
			yaml: `
orgHead: boss
quotas: { salesPerMember: 1, purchasePerMember: 1, floorManagerSalesTarget: 1 }
targets:
  sales_executive:
    - { kind: "Monthly Coffee", weight: 100, target: 10 }
`,
		},
		{
			name: "non positive target",
			yaml: `
orgHead: boss
quotas: { salesPerMember: 1, purchasePerMember: 1, floorManagerSalesTarget: 1 }
targets:
  sales_executive:
    - { kind: sales_self, weight: 100, target: 0 }
`,
		},
		{
			name: "missing quotas",
			yaml: `
orgHead: boss
targets:
  sales_executive:
    - { kind: sales_self, weight: 100, target: 10 }
`,
		},
		{
			name: "org head forced to another role",
			yaml: `
orgHead: boss
forcedRoles: { Boss: sales_line_manager }
quotas: { salesPerMember: 1, purchasePerMember: 1, floorManagerSalesTarget: 1 }
targets:
  sales_executive:
    - { kind: sales_self, weight: 100, target: 10 }
`,
		},
		{
			name: "unknown forced role",
			yaml: `
orgHead: boss
forcedRoles: { boss: ceo }
quotas: { salesPerMember: 1, purchasePerMember: 1, floorManagerSalesTarget: 1 }
targets:
  sales_executive:
    - { kind: sales_self, weight: 100, target: 10 }
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.ParseOrg([]byte(tt.yaml))
			assert.ErrorIs(t, err, config.ErrInvalidOrg)
		})
	}
}

func TestParseOrg_OrgHeadAlwaysOperationsHead(t *testing.T) {
	org, err := config.ParseOrg([]byte(`
orgHead: boss
forcedRoles: { floor: floor_manager }
quotas: { salesPerMember: 1, purchasePerMember: 1, floorManagerSalesTarget: 1 }
teams:
  lead: [a, b]
targets:
  sales_executive:
    - { kind: sales_self, weight: 100, target: 10 }
`))
	require.NoError(t, err)

	assert.Equal(t, domain.RoleOperationsHead, org.ForcedRoles["BOSS"])
	assert.Equal(t, domain.RoleFloorManager, org.ForcedRoles["FLOOR"])
	assert.Equal(t, []domain.Identity{"A", "B"}, org.Teams.Members("BOSS"))
}

func TestDefaultOrg(t *testing.T) {
	org := config.DefaultOrg()

	for _, role := range domain.AllRoleKeys() {
		assert.Equal(t, 100, org.Targets[role].TotalWeight(), "role %s", role)
	}
	assert.Equal(t, domain.RoleFloorManager, org.ForcedRoles["DAVID"])
	assert.True(t, org.Teams.HasTeam("faizal"))
	assert.Contains(t, org.Teams.Members("MARK"), domain.Identity("ZELLA"))
	assert.True(t, org.CanViewOthers("admin"))
	assert.True(t, org.CanViewOthers("mark"))
	assert.False(t, org.CanViewOthers("RAY"))
	assert.Contains(t, org.KnownIdentities(), domain.Identity("ADMIN"))
}

func TestLoadOrg_MissingFileUsesDefaults(t *testing.T) {
	org, err := config.LoadOrg(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultOrg().OrgHead, org.OrgHead)
}

func TestLoadOrg_ShippedFileMatchesDefaults(t *testing.T) {
	org, err := config.LoadOrg(filepath.Join("..", "..", "config", "org.yaml"))
	require.NoError(t, err)

	def := config.DefaultOrg()
	assert.Equal(t, def.Targets, org.Targets)
	assert.Equal(t, def.Teams.KnownIdentities(), org.Teams.KnownIdentities())
	assert.Equal(t, def.Quotas, org.Quotas)
}

func TestLoadOrg_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "org.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalOrg), 0o600))

	org, err := config.LoadOrg(path)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity("BOSS"), org.OrgHead)
}
