package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/straye-as/scorecard-api/internal/auth"
	"github.com/straye-as/scorecard-api/internal/config"
	"github.com/straye-as/scorecard-api/internal/domain"
	"github.com/straye-as/scorecard-api/internal/metrics"
	"github.com/straye-as/scorecard-api/internal/repository"
	"github.com/straye-as/scorecard-api/internal/scorecard"
	"github.com/straye-as/scorecard-api/internal/service"
	"github.com/straye-as/scorecard-api/internal/storage"
	dbutil "github.com/straye-as/scorecard-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var fixedNow = time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)

var errUpstream = errors.New("crm unavailable")

func floatPtr(f float64) *float64 { return &f }

// testFetcher gives AHMAD two closed-won opportunities and fails for RICKY
func testFetcher() scorecard.Fetcher {
	return scorecard.FetcherFunc(func(ctx context.Context, owner domain.Identity, window scorecard.TimeWindow) (*scorecard.RecordSet, error) {
		switch owner {
		case "RICKY":
			return nil, errUpstream
		case "AHMAD":
			return &scorecard.RecordSet{
				Leads: 3,
				OpportunitiesCreated: []scorecard.OpportunityRecord{
					{ID: "o1"}, {ID: "o2"},
				},
				OpportunitiesClosedWon: []scorecard.OpportunityRecord{
					{ID: "o1", Amount: floatPtr(40000), Stage: domain.ClosedWonStage},
					{ID: "o2", Amount: floatPtr(10000), Stage: domain.ClosedWonStage},
				},
			}, nil
		}
		return &scorecard.RecordSet{}, nil
	})
}

type fixture struct {
	svc       *service.ScorecardService
	org       *config.Org
	snapshots *repository.ScorecardSnapshotRepository
	store     storage.Storage
	metrics   *metrics.ScorecardMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbutil.SetupTestDB(t)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	org := config.DefaultOrg()
	engineCfg, err := service.EngineConfig(org, &config.ScorecardConfig{Timezone: "UTC", MaxConcurrentFetches: 4})
	require.NoError(t, err)
	engine := scorecard.NewEngine(testFetcher(), engineCfg, zap.NewNop())

	f := &fixture{
		org:       org,
		snapshots: repository.NewScorecardSnapshotRepository(db),
		store:     store,
		metrics:   metrics.New(),
	}
	f.svc = service.NewScorecardService(engine, org, service.ScorecardServiceOptions{
		SnapshotRepo:   f.snapshots,
		Storage:        store,
		Metrics:        f.metrics,
		ComputeTimeout: 5 * time.Second,
		ExportPrefix:   "exports",
		ExportRange:    "LAST_MONTH",
		Retention:      365 * 24 * time.Hour,
		Now:            func() time.Time { return fixedNow },
	}, zap.NewNop())
	return f
}

func asUser(handle string) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		Handle: domain.NewIdentity(handle),
		Method: auth.AuthMethodJWT,
	})
}

func asSystem(handle string) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		Handle: domain.NewIdentity(handle),
		Method: auth.AuthMethodAPIKey,
	})
}

func TestGetMyScorecard(t *testing.T) {
	f := newFixture(t)

	dto, err := f.svc.GetMyScorecard(asUser("ahmad"), "LAST_MONTH")
	require.NoError(t, err)

	assert.Equal(t, "AHMAD", dto.Identity)
	assert.Equal(t, domain.RoleSalesExecutive, dto.RoleKey)
	assert.Equal(t, "LAST_MONTH", dto.Range)
	assert.Equal(t, "2024-03-01T00:00:00Z", dto.WindowFrom)
	assert.Equal(t, "2024-04-01T00:00:00Z", dto.WindowTo)
	assert.Equal(t, 50000.0, dto.Achievements["Monthly Sales (Self)"])
	assert.Equal(t, 3.0, dto.Achievements["Monthly Leads Generated"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ScorecardsTotal.WithLabelValues(string(domain.RoleSalesExecutive))))
}

func TestGetMyScorecard_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetMyScorecard(context.Background(), "LAST_MONTH")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = f.svc.GetMyScorecard(asSystem(""), "LAST_MONTH")
	assert.ErrorIs(t, err, service.ErrMissingHandle)

	_, err = f.svc.GetMyScorecard(asUser("ricky"), "LAST_MONTH")
	assert.ErrorIs(t, err, domain.ErrAdapterFailure)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FetchFailures.WithLabelValues(string(domain.FetchPhaseSelf))))
}

func TestGetScorecardFor_Permissions(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		ctx     context.Context
		target  string
		wantErr error
	}{
		{name: "self", ctx: asUser("ahmad"), target: "AHMAD"},
		{name: "org admin", ctx: asUser("admin"), target: "AHMAD"},
		{name: "org head", ctx: asUser("mark"), target: "ahmad"},
		{name: "api key", ctx: asSystem(""), target: "AHMAD"},
		{name: "team leader is not enough", ctx: asUser("faizal"), target: "AHMAD", wantErr: service.ErrPermissionDenied},
		{name: "peer", ctx: asUser("michael"), target: "AHMAD", wantErr: service.ErrPermissionDenied},
		{name: "anonymous", ctx: context.Background(), target: "AHMAD", wantErr: service.ErrUnauthorized},
		{name: "blank target", ctx: asUser("admin"), target: "  ", wantErr: service.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dto, err := f.svc.GetScorecardFor(tt.ctx, tt.target, "THIS_MONTH")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, dto)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "AHMAD", dto.Identity)
		})
	}
}

func TestRangeOptions(t *testing.T) {
	f := newFixture(t)

	opts := f.svc.RangeOptions()
	require.Len(t, opts, len(scorecard.RangeTokens()))

	defaults := 0
	for _, o := range opts {
		if o.Default {
			defaults++
			assert.Equal(t, string(scorecard.DefaultRange), o.Token)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestExportAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	summary, err := f.svc.ExportAll(ctx, "last_month")
	require.NoError(t, err)

	// RICKY fails directly; FAIZAL's team and the org-wide scopes include RICKY
	assert.ElementsMatch(t, []string{"ADMIN", "FAIZAL", "MARK", "RICKY"}, summary.Failed)
	assert.Equal(t, "LAST_MONTH", summary.RangeToken)
	assert.Equal(t, len(f.org.KnownIdentities())-4, summary.Exported)
	assert.Regexp(t, `^exports/2024-04-02/LAST_MONTH-[0-9a-f-]{36}\.json$`, summary.StoragePath)

	stored, err := f.snapshots.ListByIdentity(ctx, "AHMAD", "LAST_MONTH", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, string(domain.RoleSalesExecutive), stored[0].RoleKey)
	assert.JSONEq(t, `{"sales_self":50000,"unique_accounts":0,"opportunities_created":2,"leads_generated":3}`, string(stored[0].Achievements))

	rc, err := f.store.Download(ctx, summary.StoragePath)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)

	var report service.ExportReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, "LAST_MONTH", report.RangeToken)
	assert.Len(t, report.Scorecards, summary.Exported)
	assert.Equal(t, summary.Failed, report.Failed)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ExportRuns.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, float64(summary.Exported), testutil.ToFloat64(f.metrics.ExportedSnapshots))
}

func TestListSnapshots(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ExportAll(context.Background(), "LAST_MONTH")
	require.NoError(t, err)

	list, err := f.svc.ListSnapshots(asUser("ahmad"), "ahmad", "", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "LAST_MONTH", list[0].RangeToken)
	assert.Equal(t, 50000.0, list[0].Achievements["Monthly Sales (Self)"])

	list, err = f.svc.ListSnapshots(asUser("admin"), "AHMAD", "this_month", 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.ListSnapshots(asUser("ahmad"), "AHMAD", "NEXT_YEAR", 0)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = f.svc.ListSnapshots(asUser("michael"), "AHMAD", "", 0)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestLatestSnapshot(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.LatestSnapshot(asUser("ahmad"), "AHMAD", "")
	assert.ErrorIs(t, err, service.ErrSnapshotNotFound)

	_, err = f.svc.ExportAll(context.Background(), "LAST_MONTH")
	require.NoError(t, err)

	latest, err := f.svc.LatestSnapshot(asUser("ahmad"), "AHMAD", "")
	require.NoError(t, err)
	assert.Equal(t, "LAST_MONTH", latest.RangeToken)
	assert.Equal(t, "2024-04-02T08:00:00Z", latest.GeneratedAt)

	_, err = f.svc.LatestSnapshot(asUser("ahmad"), "AHMAD", "THIS_MONTH")
	assert.ErrorIs(t, err, service.ErrSnapshotNotFound)

	_, err = f.svc.LatestSnapshot(asUser("ahmad"), "AHMAD", "bogus")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = f.svc.LatestSnapshot(asUser("ray"), "AHMAD", "")
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestExportAll_PrunesExpiredSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.snapshots.Create(ctx, &domain.ScorecardSnapshot{
		Identity:     "AHMAD",
		RoleKey:      string(domain.RoleSalesExecutive),
		RangeToken:   "LAST_MONTH",
		Achievements: datatypes.JSON(`{}`),
		GeneratedAt:  fixedNow.AddDate(-2, 0, 0),
	}))

	_, err := f.svc.ExportAll(ctx, "LAST_MONTH")
	require.NoError(t, err)

	stored, err := f.snapshots.ListByIdentity(ctx, "AHMAD", "LAST_MONTH", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].GeneratedAt.Equal(fixedNow))
}

func TestExportWithoutSnapshotStore(t *testing.T) {
	org := config.DefaultOrg()
	engineCfg, err := service.EngineConfig(org, &config.ScorecardConfig{Timezone: "UTC"})
	require.NoError(t, err)
	svc := service.NewScorecardService(scorecard.NewEngine(testFetcher(), engineCfg, zap.NewNop()), org,
		service.ScorecardServiceOptions{}, zap.NewNop())

	_, err = svc.ExportAll(context.Background(), "LAST_MONTH")
	assert.ErrorIs(t, err, service.ErrExportUnavailable)
	_, err = svc.ListSnapshots(asUser("ahmad"), "AHMAD", "", 0)
	assert.ErrorIs(t, err, service.ErrExportUnavailable)
	_, err = svc.LatestSnapshot(asUser("ahmad"), "AHMAD", "")
	assert.ErrorIs(t, err, service.ErrExportUnavailable)
}

func TestEngineConfig_OrgHeadWithoutForcedRole(t *testing.T) {
	org, err := config.ParseOrg([]byte(`
orgHead: boss
quotas: { salesPerMember: 100000, purchasePerMember: 100000, floorManagerSalesTarget: 300000 }
teams:
  lead: [a, b]
targets:
  operations_head:
    - { kind: sales_org, weight: 100, target: 1000000 }
  sales_line_manager:
    - { kind: sales_self, weight: 70, target: 200000 }
    - { kind: sales_team, weight: 30, target: 700000 }
`))
	require.NoError(t, err)

	amounts := map[domain.Identity]float64{"BOSS": 5000, "A": 10000, "B": 20000}
	fetcher := scorecard.FetcherFunc(func(ctx context.Context, owner domain.Identity, window scorecard.TimeWindow) (*scorecard.RecordSet, error) {
		return &scorecard.RecordSet{
			OpportunitiesCreated:   []scorecard.OpportunityRecord{{ID: "c-" + owner.String()}},
			OpportunitiesClosedWon: []scorecard.OpportunityRecord{{ID: "w-" + owner.String(), Amount: floatPtr(amounts[owner])}},
		}, nil
	})

	engineCfg, err := service.EngineConfig(org, &config.ScorecardConfig{Timezone: "UTC"})
	require.NoError(t, err)
	card, err := scorecard.NewEngine(fetcher, engineCfg, zap.NewNop()).Compute(context.Background(), "boss", "THIS_MONTH", fixedNow)
	require.NoError(t, err)

	assert.Equal(t, domain.RoleOperationsHead, card.RoleKey)
	assert.False(t, card.Targets.Has(domain.TargetSalesTeam))
	assert.Equal(t, domain.AchievementMap{domain.TargetSalesOrg: 35000}, card.Achievements)
}
