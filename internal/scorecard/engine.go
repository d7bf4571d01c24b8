package scorecard

import (
	"context"
	"errors"
	"time"

	"github.com/straye-as/scorecard-api/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrentFetches bounds concurrent scope fetches when Config leaves it unset
const DefaultMaxConcurrentFetches = 8

// ErrEmptyIdentity is returned when a scorecard is requested for a blank handle
var ErrEmptyIdentity = errors.New("identity is required")

// Config holds the process-wide snapshots the engine reads. None of it is
// written to after NewEngine returns.
type Config struct {
	Teams                domain.TeamMap
	Targets              domain.TargetTable
	ForcedRoles          map[domain.Identity]domain.RoleKey
	Admins               []domain.Identity
	Quotas               Quotas
	MaxConcurrentFetches int
	// Location anchors day and month boundaries; defaults to UTC
	Location *time.Location
}

// Engine computes scorecards from a record source
type Engine struct {
	fetcher  Fetcher
	roles    *RoleResolver
	scopes   *ScopeResolver
	adjuster *TargetAdjuster
	teams    domain.TeamMap
	limit    int
	location *time.Location
	logger   *zap.Logger
}

// NewEngine creates a new scorecard engine
func NewEngine(fetcher Fetcher, cfg Config, logger *zap.Logger) *Engine {
	limit := cfg.MaxConcurrentFetches
	if limit <= 0 {
		limit = DefaultMaxConcurrentFetches
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		fetcher:  fetcher,
		roles:    NewRoleResolver(cfg.ForcedRoles),
		scopes:   NewScopeResolver(cfg.Teams, cfg.Admins),
		adjuster: NewTargetAdjuster(cfg.Targets, cfg.Quotas),
		teams:    cfg.Teams,
		limit:    limit,
		location: loc,
		logger:   logger,
	}
}

// Teams returns the team map the engine was configured with
func (e *Engine) Teams() domain.TeamMap {
	return e.teams
}

// Compute builds the scorecard for identity over the window selected by rawRange.
// Any fetch failure aborts the whole computation and is returned as a
// *domain.FetchError.
func (e *Engine) Compute(ctx context.Context, identity domain.Identity, rawRange string, now time.Time) (*domain.Scorecard, error) {
	self := domain.NewIdentity(string(identity))
	if self.IsZero() {
		return nil, ErrEmptyIdentity
	}

	res := Resolve(rawRange, now.In(e.location))
	if res.Defaulted {
		e.logger.Debug("unknown range token, using default",
			zap.String("requested", rawRange),
			zap.String("range", string(res.Token)))
	}

	ownRecords, err := e.fetcher.FetchOwnerRecords(ctx, self, res.Window)
	if err != nil {
		return nil, &domain.FetchError{Owner: self, Phase: domain.FetchPhaseSelf, Err: err}
	}
	own := Summarize(ownRecords)

	role, rule := e.roles.Resolve(self, SignalsFor(own, e.teams.HasTeam(self)))

	var extra []domain.Identity
	if e.scopes.IsOrgWide(self, role) {
		if dir, ok := e.fetcher.(OwnerDirectory); ok {
			extra, err = dir.ListOwners(ctx, res.Window)
			if err != nil {
				return nil, &domain.FetchError{Phase: domain.FetchPhaseDirectory, Err: err}
			}
		}
	}
	scope := e.scopes.Resolve(self, role, extra)

	scopeMetrics, err := e.fetchScope(ctx, self, own, scope.Members, res.Window)
	if err != nil {
		return nil, err
	}

	targets := e.adjuster.Adjust(role, len(scope.Members))
	achievements := BuildAchievements(role, targets, own, withoutSelf(scopeMetrics, self))

	e.logger.Debug("scorecard computed",
		zap.String("identity", self.String()),
		zap.String("role", string(role)),
		zap.String("rule", rule),
		zap.Int("scope_size", len(scope.Members)),
		zap.Bool("org_wide", scope.OrgWide))

	card := &domain.Scorecard{
		Identity:       self,
		RoleKey:        role,
		RequestedRange: rawRange,
		Range:          string(res.Token),
		Targets:        targets,
		Achievements:   achievements,
		OwnMetrics:     own,
		ScopeMetrics:   scopeMetrics,
		GeneratedAt:    now,
	}
	if from, to, ok := res.Window.Bounds(); ok {
		card.WindowFrom = &from
		card.WindowTo = &to
	}
	return card, nil
}

// fetchScope fetches every member concurrently. A member equal to self reuses own.
// The first failure cancels the remaining fetches.
func (e *Engine) fetchScope(ctx context.Context, self domain.Identity, own domain.OwnerMetrics, members []domain.Identity, window TimeWindow) (map[domain.Identity]domain.OwnerMetrics, error) {
	results := make([]domain.OwnerMetrics, len(members))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i, member := range members {
		if member == self {
			results[i] = own
			continue
		}
		g.Go(func() error {
			rs, err := e.fetcher.FetchOwnerRecords(gctx, member, window)
			if err != nil {
				return &domain.FetchError{Owner: member, Phase: domain.FetchPhaseScope, Err: err}
			}
			results[i] = Summarize(rs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[domain.Identity]domain.OwnerMetrics, len(members))
	for i, member := range members {
		out[member] = results[i]
	}
	return out, nil
}

func withoutSelf(scope map[domain.Identity]domain.OwnerMetrics, self domain.Identity) map[domain.Identity]domain.OwnerMetrics {
	if _, ok := scope[self]; !ok {
		return scope
	}
	out := make(map[domain.Identity]domain.OwnerMetrics, len(scope))
	for id, m := range scope {
		if id != self {
			out[id] = m
		}
	}
	return out
}
