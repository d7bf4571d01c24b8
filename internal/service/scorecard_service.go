package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/scorecard-api/internal/auth"
	"github.com/straye-as/scorecard-api/internal/config"
	"github.com/straye-as/scorecard-api/internal/domain"
	"github.com/straye-as/scorecard-api/internal/logger"
	"github.com/straye-as/scorecard-api/internal/mapper"
	"github.com/straye-as/scorecard-api/internal/metrics"
	"github.com/straye-as/scorecard-api/internal/repository"
	"github.com/straye-as/scorecard-api/internal/scorecard"
	"github.com/straye-as/scorecard-api/internal/storage"
	"go.uber.org/zap"
)

// EngineConfig builds the engine configuration from the org snapshot
func EngineConfig(org *config.Org, cfg *config.ScorecardConfig) (scorecard.Config, error) {
	loc, err := cfg.Location()
	if err != nil {
		return scorecard.Config{}, err
	}
	return scorecard.Config{
		Teams:       org.Teams,
		Targets:     org.Targets,
		ForcedRoles: org.ForcedRoles,
		Admins:      org.Admins,
		Quotas: scorecard.Quotas{
			SalesPerMember:          org.Quotas.SalesPerMember,
			PurchasePerMember:       org.Quotas.PurchasePerMember,
			FloorManagerSalesTarget: org.Quotas.FloorManagerSalesTarget,
		},
		MaxConcurrentFetches: cfg.MaxConcurrentFetches,
		Location:             loc,
	}, nil
}

// ExportReport is the document uploaded to storage by an export run
type ExportReport struct {
	RangeToken  string                `json:"rangeToken"`
	GeneratedAt string                `json:"generatedAt"`
	Scorecards  []domain.ScorecardDTO `json:"scorecards"`
	Failed      []string              `json:"failed,omitempty"`
}

type ScorecardService struct {
	engine         *scorecard.Engine
	org            *config.Org
	snapshotRepo   *repository.ScorecardSnapshotRepository
	storage        storage.Storage
	metrics        *metrics.ScorecardMetrics
	computeTimeout time.Duration
	exportPrefix   string
	exportRange    string
	retention      time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// ScorecardServiceOptions carries the optional collaborators of ScorecardService
type ScorecardServiceOptions struct {
	SnapshotRepo   *repository.ScorecardSnapshotRepository
	Storage        storage.Storage
	Metrics        *metrics.ScorecardMetrics
	ComputeTimeout time.Duration
	ExportPrefix   string
	// ExportRange is the range token scheduled exports use; LatestSnapshot falls back to it
	ExportRange string
	// Retention prunes snapshots older than this after each export; zero keeps everything
	Retention time.Duration
	// Now defaults to time.Now
	Now func() time.Time
}

func NewScorecardService(engine *scorecard.Engine, org *config.Org, opts ScorecardServiceOptions, logger *zap.Logger) *ScorecardService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ScorecardService{
		engine:         engine,
		org:            org,
		snapshotRepo:   opts.SnapshotRepo,
		storage:        opts.Storage,
		metrics:        opts.Metrics,
		computeTimeout: opts.ComputeTimeout,
		exportPrefix:   opts.ExportPrefix,
		exportRange:    opts.ExportRange,
		retention:      opts.Retention,
		logger:         logger,
		now:            now,
	}
}

// GetMyScorecard computes the caller's own scorecard
func (s *ScorecardService) GetMyScorecard(ctx context.Context, rawRange string) (*domain.ScorecardDTO, error) {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if user.Handle.IsZero() {
		return nil, ErrMissingHandle
	}
	return s.compute(ctx, user.Handle, rawRange)
}

// GetScorecardFor computes another user's scorecard. Callers may always read their
// own; reading others requires the API key, org admin rights or being the org head.
func (s *ScorecardService) GetScorecardFor(ctx context.Context, identity string, rawRange string) (*domain.ScorecardDTO, error) {
	target := domain.NewIdentity(identity)
	if target.IsZero() {
		return nil, fmt.Errorf("%w: identity is required", ErrInvalidInput)
	}
	if err := s.authorizeView(ctx, target); err != nil {
		return nil, err
	}
	return s.compute(ctx, target, rawRange)
}

// ListSnapshots returns stored exports for identity, newest first
func (s *ScorecardService) ListSnapshots(ctx context.Context, identity, rawRange string, limit int) ([]domain.ScorecardSnapshotDTO, error) {
	if s.snapshotRepo == nil {
		return nil, ErrExportUnavailable
	}
	target := domain.NewIdentity(identity)
	if target.IsZero() {
		return nil, fmt.Errorf("%w: identity is required", ErrInvalidInput)
	}
	if err := s.authorizeView(ctx, target); err != nil {
		return nil, err
	}

	token := ""
	if strings.TrimSpace(rawRange) != "" {
		t, ok := scorecard.ParseRangeToken(rawRange)
		if !ok {
			return nil, fmt.Errorf("%w: unknown range %q", ErrInvalidInput, rawRange)
		}
		token = string(t)
	}

	snapshots, err := s.snapshotRepo.ListByIdentity(ctx, target, token, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	out := make([]domain.ScorecardSnapshotDTO, 0, len(snapshots))
	for i := range snapshots {
		out = append(out, mapper.ToSnapshotDTO(&snapshots[i]))
	}
	return out, nil
}

// LatestSnapshot returns the newest stored export for identity. An empty range
// selects the scheduled export's range.
func (s *ScorecardService) LatestSnapshot(ctx context.Context, identity, rawRange string) (*domain.ScorecardSnapshotDTO, error) {
	if s.snapshotRepo == nil {
		return nil, ErrExportUnavailable
	}
	target := domain.NewIdentity(identity)
	if target.IsZero() {
		return nil, fmt.Errorf("%w: identity is required", ErrInvalidInput)
	}
	if err := s.authorizeView(ctx, target); err != nil {
		return nil, err
	}

	raw := rawRange
	if strings.TrimSpace(raw) == "" {
		raw = s.exportRange
	}
	token, ok := scorecard.ParseRangeToken(raw)
	if !ok {
		return nil, fmt.Errorf("%w: unknown range %q", ErrInvalidInput, raw)
	}

	snapshot, err := s.snapshotRepo.GetLatest(ctx, target, string(token))
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snapshot == nil {
		return nil, ErrSnapshotNotFound
	}
	dto := mapper.ToSnapshotDTO(snapshot)
	return &dto, nil
}

// RangeOptions lists the accepted range tokens
func (s *ScorecardService) RangeOptions() []domain.RangeOptionDTO {
	tokens := scorecard.RangeTokens()
	names := make([]string, 0, len(tokens))
	for _, t := range tokens {
		names = append(names, string(t))
	}
	return mapper.ToRangeOptions(names, string(scorecard.DefaultRange))
}

// ExportAll computes the scorecard of every known identity, stores the snapshots
// and uploads a JSON report. A failed identity is reported and skipped.
func (s *ScorecardService) ExportAll(ctx context.Context, rawRange string) (*domain.ExportSummaryDTO, error) {
	if s.snapshotRepo == nil {
		return nil, ErrExportUnavailable
	}

	started := s.now()
	token := scorecard.Resolve(rawRange, started).Token
	summary := &domain.ExportSummaryDTO{RangeToken: string(token)}
	report := ExportReport{RangeToken: string(token), GeneratedAt: started.UTC().Format(time.RFC3339)}

	var snapshots []domain.ScorecardSnapshot
	for _, id := range s.org.KnownIdentities() {
		card, err := s.computeCard(ctx, id, string(token))
		if err != nil {
			if ctx.Err() != nil {
				s.metrics.ObserveExport(0, started, ctx.Err())
				return nil, fmt.Errorf("export interrupted: %w", ctx.Err())
			}
			s.logger.Warn("scorecard export skipped identity",
				zap.String("identity", id.String()), zap.Error(err))
			summary.Failed = append(summary.Failed, id.String())
			continue
		}

		snap, err := mapper.ToScorecardSnapshot(card)
		if err != nil {
			return nil, fmt.Errorf("failed to encode snapshot for %s: %w", id, err)
		}
		snapshots = append(snapshots, *snap)
		report.Scorecards = append(report.Scorecards, mapper.ToScorecardDTO(card))
	}
	report.Failed = summary.Failed

	if err := s.snapshotRepo.CreateBatch(ctx, snapshots); err != nil {
		s.metrics.ObserveExport(0, started, err)
		return nil, fmt.Errorf("failed to store snapshots: %w", err)
	}
	summary.Exported = len(snapshots)

	if s.retention > 0 {
		cutoff := started.Add(-s.retention)
		pruned, err := s.snapshotRepo.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			s.logger.Warn("failed to prune old scorecard snapshots", zap.Time("cutoff", cutoff), zap.Error(err))
		} else if pruned > 0 {
			s.logger.Info("pruned old scorecard snapshots", zap.Int64("deleted", pruned), zap.Time("cutoff", cutoff))
		}
	}

	if s.storage != nil {
		name, err := s.uploadReport(ctx, started, report)
		if err != nil {
			s.metrics.ObserveExport(0, started, err)
			return nil, err
		}
		summary.StoragePath = name
	}

	s.metrics.ObserveExport(summary.Exported, started, nil)
	s.logger.Info("scorecard export completed",
		zap.String("range", summary.RangeToken),
		zap.Int("exported", summary.Exported),
		zap.Int("failed", len(summary.Failed)),
		zap.String("storage_path", summary.StoragePath),
		zap.Duration("duration", s.now().Sub(started)),
	)
	return summary, nil
}

func (s *ScorecardService) uploadReport(ctx context.Context, at time.Time, report ExportReport) (string, error) {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode export report: %w", err)
	}
	name := path.Join(
		s.exportPrefix,
		at.UTC().Format("2006-01-02"),
		fmt.Sprintf("%s-%s.json", strings.ReplaceAll(report.RangeToken, ":", "_"), uuid.NewString()),
	)
	stored, _, err := s.storage.Upload(ctx, name, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to upload export report: %w", err)
	}
	return stored, nil
}

func (s *ScorecardService) authorizeView(ctx context.Context, target domain.Identity) error {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	if user.IsSystem() || user.Handle.Equal(target) || s.org.CanViewOthers(user.Handle) {
		return nil
	}
	return ErrPermissionDenied
}

func (s *ScorecardService) compute(ctx context.Context, id domain.Identity, rawRange string) (*domain.ScorecardDTO, error) {
	card, err := s.computeCard(ctx, id, rawRange)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToScorecardDTO(card)
	return &dto, nil
}

func (s *ScorecardService) computeCard(ctx context.Context, id domain.Identity, rawRange string) (*domain.Scorecard, error) {
	if s.computeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.computeTimeout)
		defer cancel()
	}

	log := logger.WithScorecard(s.logger, id.String(), rawRange)
	start := time.Now()
	card, err := s.engine.Compute(ctx, id, rawRange, s.now())
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.ObserveCompute(string(scorecard.Resolve(rawRange, s.now()).Token), "", elapsed, err)
		log.Error("scorecard computation failed", zap.Error(err), zap.Duration("duration", elapsed))
		return nil, err
	}
	s.metrics.ObserveCompute(card.Range, card.RoleKey, elapsed, nil)
	log.Debug("scorecard served",
		zap.String("role", string(card.RoleKey)),
		zap.Duration("duration", elapsed))
	return card, nil
}
