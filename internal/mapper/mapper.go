package mapper

import (
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/straye-as/scorecard-api/internal/domain"
)

const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// PercentToTarget is achieved as a percentage of target, clamped to [0, 100]
func PercentToTarget(achieved, target float64) float64 {
	if target <= 0 {
		if achieved > 0 {
			return 100
		}
		return 0
	}
	progress := achieved / target
	if math.IsNaN(progress) || math.IsInf(progress, 0) || progress < 0 {
		return 0
	}
	if progress > 1 {
		progress = 1
	}
	return round2(progress * 100)
}

func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// ToScorecardDTO converts Scorecard to ScorecardDTO. Target lines are listed in
// table order; lines without an achievement contribute nothing to the weighted score.
func ToScorecardDTO(sc *domain.Scorecard) domain.ScorecardDTO {
	targets := make([]domain.TargetDTO, 0, len(sc.Targets))
	weighted := decimal.Zero
	for _, entry := range sc.Targets {
		dto := domain.TargetDTO{
			Name:   entry.Kind.DisplayName(),
			Kind:   entry.Kind,
			Weight: entry.Weight,
			Target: entry.Target,
		}
		if achieved, ok := sc.Achievements[entry.Kind]; ok {
			a := achieved
			dto.Achieved = &a
			dto.PercentToTarget = PercentToTarget(achieved, entry.Target)
			weighted = weighted.Add(decimal.NewFromFloat(dto.PercentToTarget).
				Mul(decimal.NewFromInt(int64(entry.Weight))).
				Div(decimal.NewFromInt(100)))
		}
		targets = append(targets, dto)
	}

	return domain.ScorecardDTO{
		Identity:       sc.Identity.String(),
		RoleKey:        sc.RoleKey,
		RequestedRange: sc.RequestedRange,
		Range:          sc.Range,
		WindowFrom:     formatOptionalTime(sc.WindowFrom),
		WindowTo:       formatOptionalTime(sc.WindowTo),
		Targets:        targets,
		Achievements:   sc.Achievements.Named(),
		WeightedScore:  weighted.Round(2).InexactFloat64(),
		OwnMetrics:     sc.OwnMetrics,
		ScopeMetrics:   ToScopeMetricsDTO(sc.ScopeMetrics),
		GeneratedAt:    formatTime(sc.GeneratedAt),
	}
}

// ToScopeMetricsDTO keys the team performance table by handle
func ToScopeMetricsDTO(scope map[domain.Identity]domain.OwnerMetrics) map[string]domain.OwnerMetricsDTO {
	out := make(map[string]domain.OwnerMetricsDTO, len(scope))
	for id, m := range scope {
		out[id.String()] = domain.OwnerMetricsDTO{OwnerMetrics: m, Identity: id.String()}
	}
	return out
}

// ToScorecardSnapshot converts a computed scorecard into its stored form
func ToScorecardSnapshot(sc *domain.Scorecard) (*domain.ScorecardSnapshot, error) {
	targets, err := json.Marshal(sc.Targets)
	if err != nil {
		return nil, err
	}
	achievements, err := json.Marshal(achievementsByKind(sc.Achievements))
	if err != nil {
		return nil, err
	}
	own, err := json.Marshal(sc.OwnMetrics)
	if err != nil {
		return nil, err
	}

	return &domain.ScorecardSnapshot{
		Identity:     sc.Identity.String(),
		RoleKey:      string(sc.RoleKey),
		RangeToken:   sc.Range,
		WindowFrom:   sc.WindowFrom,
		WindowTo:     sc.WindowTo,
		Targets:      targets,
		Achievements: achievements,
		OwnMetrics:   own,
		GeneratedAt:  sc.GeneratedAt,
	}, nil
}

// ToSnapshotDTO converts ScorecardSnapshot to ScorecardSnapshotDTO
func ToSnapshotDTO(s *domain.ScorecardSnapshot) domain.ScorecardSnapshotDTO {
	dto := domain.ScorecardSnapshotDTO{
		ID:           s.ID.String(),
		Identity:     s.Identity,
		RoleKey:      s.RoleKey,
		RangeToken:   s.RangeToken,
		WindowFrom:   formatOptionalTime(s.WindowFrom),
		WindowTo:     formatOptionalTime(s.WindowTo),
		Achievements: map[string]float64{},
		GeneratedAt:  formatTime(s.GeneratedAt),
	}

	var byKind map[string]float64
	if len(s.Achievements) > 0 && json.Unmarshal(s.Achievements, &byKind) == nil {
		for k, v := range byKind {
			kind, ok := domain.ParseTargetKind(k)
			if !ok {
				continue
			}
			dto.Achievements[kind.DisplayName()] = v
		}
	}
	return dto
}

func achievementsByKind(a domain.AchievementMap) map[string]float64 {
	out := make(map[string]float64, len(a))
	for k, v := range a {
		out[string(k)] = v
	}
	return out
}

// ToRangeOptions lists the accepted range tokens, flagging the default
func ToRangeOptions(tokens []string, defaultToken string) []domain.RangeOptionDTO {
	out := make([]domain.RangeOptionDTO, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, domain.RangeOptionDTO{Token: t, Default: t == defaultToken})
	}
	return out
}
