package scorecard_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/straye-as/scorecard-api/internal/domain"
	"github.com/straye-as/scorecard-api/internal/scorecard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

// fakeFetcher serves canned record sets. Unknown owners have no records.
type fakeFetcher struct {
	records map[domain.Identity]*scorecard.RecordSet
	errs    map[domain.Identity]error

	mu      sync.Mutex
	calls   []domain.Identity
	windows []scorecard.TimeWindow
}

func (f *fakeFetcher) FetchOwnerRecords(ctx context.Context, owner domain.Identity, window scorecard.TimeWindow) (*scorecard.RecordSet, error) {
	f.mu.Lock()
	f.calls = append(f.calls, owner)
	f.windows = append(f.windows, window)
	f.mu.Unlock()

	if err, ok := f.errs[owner]; ok {
		return nil, err
	}
	if rs, ok := f.records[owner]; ok {
		return rs, nil
	}
	return &scorecard.RecordSet{}, nil
}

// directoryFetcher also lists owners
type directoryFetcher struct {
	*fakeFetcher
	owners []domain.Identity
	err    error
}

func (d *directoryFetcher) ListOwners(ctx context.Context, window scorecard.TimeWindow) ([]domain.Identity, error) {
	return d.owners, d.err
}

func salesRecords(opps int, closedWon ...float64) *scorecard.RecordSet {
	rs := &scorecard.RecordSet{}
	for i := 0; i < opps; i++ {
		rs.OpportunitiesCreated = append(rs.OpportunitiesCreated, scorecard.OpportunityRecord{ID: "opp"})
	}
	for _, amount := range closedWon {
		rs.OpportunitiesClosedWon = append(rs.OpportunitiesClosedWon, scorecard.OpportunityRecord{ID: "won", Amount: floatPtr(amount), Stage: domain.ClosedWonStage})
	}
	return rs
}

func newTestEngine(fetcher scorecard.Fetcher, teams map[string][]string) *scorecard.Engine {
	return scorecard.NewEngine(fetcher, scorecard.Config{
		Teams:   domain.NewTeamMap(teams, "MARK"),
		Targets: testTargetTable(),
		ForcedRoles: map[domain.Identity]domain.RoleKey{
			"MARK":  domain.RoleOperationsHead,
			"DAVID": domain.RoleFloorManager,
		},
		Admins: []domain.Identity{"ADMIN"},
		Quotas: testQuotas,
	}, zap.NewNop())
}

func TestEngine_SalesExecutiveWithoutTeam(t *testing.T) {
	fetcher := &fakeFetcher{records: map[domain.Identity]*scorecard.RecordSet{
		"SALES1": salesRecords(3, 50000),
	}}
	engine := newTestEngine(fetcher, nil)

	card, err := engine.Compute(context.Background(), "sales1", "LAST_N_DAYS:30", testNow)
	require.NoError(t, err)

	assert.Equal(t, domain.RoleSalesExecutive, card.RoleKey)
	named := card.Achievements.Named()
	assert.Equal(t, 50000.0, named["Monthly Sales (Self)"])
	assert.NotContains(t, named, "Monthly Sales (Team Members)")
	assert.Empty(t, card.ScopeMetrics)
	assert.Equal(t, []domain.Identity{"SALES1"}, fetcher.calls)
}

func TestEngine_SalesLineManagerAggregatesTeam(t *testing.T) {
	fetcher := &fakeFetcher{records: map[domain.Identity]*scorecard.RecordSet{
		"LEADX": salesRecords(2),
		"A":     salesRecords(1, 10000),
		"B":     salesRecords(1, 5000, 15000),
	}}
	engine := newTestEngine(fetcher, map[string][]string{"LEADX": {"A", "B"}})

	card, err := engine.Compute(context.Background(), "LEADX", "THIS_MONTH", testNow)
	require.NoError(t, err)

	assert.Equal(t, domain.RoleSalesLineManager, card.RoleKey)
	i, ok := card.Targets.Find(domain.TargetSalesTeam)
	require.True(t, ok)
	assert.Equal(t, 2*testQuotas.SalesPerMember, card.Targets[i].Target)
	assert.Equal(t, 30000.0, card.Achievements.Named()["Monthly Sales (Team Members)"])
	assert.Len(t, card.ScopeMetrics, 2)
	assert.Equal(t, 20000.0, card.ScopeMetrics["B"].NetSales)
}

func TestEngine_OperationsHeadSumsOrganization(t *testing.T) {
	fetcher := &fakeFetcher{records: map[domain.Identity]*scorecard.RecordSet{
		"MARK":  salesRecords(0, 5),
		"LEAD1": salesRecords(1, 40),
		"A":     salesRecords(1, 10),
		"B":     salesRecords(1, 20),
	}}
	engine := newTestEngine(fetcher, map[string][]string{"LEAD1": {"A", "B"}})

	card, err := engine.Compute(context.Background(), "Mark", "ALL_TIME", testNow)
	require.NoError(t, err)

	assert.Equal(t, domain.RoleOperationsHead, card.RoleKey)
	assert.Equal(t, map[string]float64{"Monthly Sales (Self + Team Members)": 75}, card.Achievements.Named())
	assert.NotContains(t, card.ScopeMetrics, domain.Identity("MARK"))
	assert.Nil(t, card.WindowFrom)
	assert.Nil(t, card.WindowTo)
}

func TestEngine_OrgWideScopeIncludesDirectoryOwners(t *testing.T) {
	base := &fakeFetcher{records: map[domain.Identity]*scorecard.RecordSet{
		"MARK":     salesRecords(0, 1),
		"OUTSIDER": salesRecords(1, 99),
	}}
	fetcher := &directoryFetcher{fakeFetcher: base, owners: []domain.Identity{"outsider", "MARK"}}
	engine := newTestEngine(fetcher, map[string][]string{"LEAD1": {"A"}})

	card, err := engine.Compute(context.Background(), "MARK", "LAST_N_DAYS:7", testNow)
	require.NoError(t, err)

	assert.Contains(t, card.ScopeMetrics, domain.Identity("OUTSIDER"))
	assert.Equal(t, 100.0, card.Achievements[domain.TargetSalesOrg])
}

func TestEngine_DirectoryFailureIsFatal(t *testing.T) {
	fetcher := &directoryFetcher{fakeFetcher: &fakeFetcher{}, err: errors.New("timeout")}
	engine := newTestEngine(fetcher, nil)

	card, err := engine.Compute(context.Background(), "ADMIN", "LAST_N_DAYS:7", testNow)

	assert.Nil(t, card)
	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, domain.FetchPhaseDirectory, fetchErr.Phase)
}

func TestEngine_UnknownRangeMatchesThirtyDays(t *testing.T) {
	fetcher := &fakeFetcher{records: map[domain.Identity]*scorecard.RecordSet{
		"SALES1": salesRecords(3, 50000),
	}}
	engine := newTestEngine(fetcher, nil)

	bogus, err := engine.Compute(context.Background(), "SALES1", "BOGUS", testNow)
	require.NoError(t, err)
	thirty, err := engine.Compute(context.Background(), "SALES1", "LAST_N_DAYS:30", testNow)
	require.NoError(t, err)

	assert.Equal(t, "BOGUS", bogus.RequestedRange)
	assert.Equal(t, thirty.Range, bogus.Range)
	assert.Equal(t, thirty.WindowFrom, bogus.WindowFrom)
	assert.Equal(t, thirty.WindowTo, bogus.WindowTo)
	assert.Equal(t, thirty.Targets, bogus.Targets)
	assert.Equal(t, thirty.Achievements, bogus.Achievements)
	require.Len(t, fetcher.windows, 2)
	assert.Equal(t, fetcher.windows[0], fetcher.windows[1])
}

func TestEngine_FloorManagerIgnoresTeam(t *testing.T) {
	fetcher := &fakeFetcher{records: map[domain.Identity]*scorecard.RecordSet{
		"DAVID": salesRecords(4, 1234),
		"X":     salesRecords(1, 99999),
	}}
	teams := map[string][]string{"DAVID": {"X", "Y", "Z"}}
	engine := newTestEngine(fetcher, teams)

	card, err := engine.Compute(context.Background(), "david", "LAST_N_DAYS:90", testNow)
	require.NoError(t, err)

	assert.Equal(t, domain.RoleFloorManager, card.RoleKey)
	for kind := range card.Achievements {
		assert.False(t, kind.IsTeamAggregate(), "unexpected %s", kind)
	}
	assert.Equal(t, 1234.0, card.Achievements[domain.TargetSalesSelf])
	assert.Equal(t, 4.0, card.Achievements[domain.TargetOpportunitiesCreated])
	i, ok := card.Targets.Find(domain.TargetSalesSelf)
	require.True(t, ok)
	assert.Equal(t, testQuotas.FloorManagerSalesTarget, card.Targets[i].Target)
}

func TestEngine_SelfInOwnTeamIsNotDoubleCounted(t *testing.T) {
	fetcher := &fakeFetcher{records: map[domain.Identity]*scorecard.RecordSet{
		"L": salesRecords(1, 500),
		"A": salesRecords(1, 100),
	}}
	engine := newTestEngine(fetcher, map[string][]string{"L": {"L", "A"}})

	card, err := engine.Compute(context.Background(), "L", "LAST_N_DAYS:30", testNow)
	require.NoError(t, err)

	assert.Equal(t, 100.0, card.Achievements[domain.TargetSalesTeam])
	assert.Equal(t, 500.0, card.ScopeMetrics["L"].NetSales)
	assert.Equal(t, 1, countCalls(fetcher, "L"))
}

func TestEngine_Idempotent(t *testing.T) {
	fetcher := &fakeFetcher{records: map[domain.Identity]*scorecard.RecordSet{
		"LEADX": salesRecords(2, 1.1),
		"A":     salesRecords(1, 2.2),
		"B":     salesRecords(1, 3.3),
		"C":     salesRecords(1, 4.4),
	}}
	engine := newTestEngine(fetcher, map[string][]string{"LEADX": {"A", "B", "C"}})

	first, err := engine.Compute(context.Background(), "LEADX", "LAST_6_MONTHS", testNow)
	require.NoError(t, err)
	second, err := engine.Compute(context.Background(), "LEADX", "LAST_6_MONTHS", testNow)
	require.NoError(t, err)

	assert.Equal(t, first.Targets, second.Targets)
	assert.Equal(t, first.Achievements, second.Achievements)
}

func TestEngine_ScopeFetchFailureAbortsComputation(t *testing.T) {
	fetcher := &fakeFetcher{
		records: map[domain.Identity]*scorecard.RecordSet{"LEADX": salesRecords(1)},
		errs:    map[domain.Identity]error{"B": errors.New("connection refused")},
	}
	engine := newTestEngine(fetcher, map[string][]string{"LEADX": {"A", "B"}})

	card, err := engine.Compute(context.Background(), "LEADX", "", testNow)

	assert.Nil(t, card)
	assert.ErrorIs(t, err, domain.ErrAdapterFailure)
	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, domain.Identity("B"), fetchErr.Owner)
	assert.Equal(t, domain.FetchPhaseScope, fetchErr.Phase)
}

func TestEngine_SelfFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[domain.Identity]error{"SALES1": errors.New("unauthorized")}}
	engine := newTestEngine(fetcher, nil)

	_, err := engine.Compute(context.Background(), "SALES1", "", testNow)

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, domain.FetchPhaseSelf, fetchErr.Phase)
	assert.EqualError(t, err, "self fetch for SALES1 failed: unauthorized")
}

func TestEngine_EmptyIdentity(t *testing.T) {
	engine := newTestEngine(&fakeFetcher{}, nil)

	_, err := engine.Compute(context.Background(), "  ", "", testNow)

	assert.ErrorIs(t, err, scorecard.ErrEmptyIdentity)
}

func TestEngine_RespectsFetchLimit(t *testing.T) {
	var active, peak int32
	fetcher := scorecard.FetcherFunc(func(ctx context.Context, owner domain.Identity, window scorecard.TimeWindow) (*scorecard.RecordSet, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return &scorecard.RecordSet{}, nil
	})

	members := []string{"M1", "M2", "M3", "M4", "M5", "M6", "M7", "M8"}
	engine := scorecard.NewEngine(fetcher, scorecard.Config{
		Teams:                domain.NewTeamMap(map[string][]string{"LEAD": members}, ""),
		Targets:              testTargetTable(),
		Quotas:               testQuotas,
		MaxConcurrentFetches: 2,
	}, zap.NewNop())

	card, err := engine.Compute(context.Background(), "LEAD", "", testNow)
	require.NoError(t, err)

	assert.Len(t, card.ScopeMetrics, len(members))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func countCalls(f *fakeFetcher, id domain.Identity) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == id {
			n++
		}
	}
	return n
}
