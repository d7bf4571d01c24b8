package domain

// DTOs for API responses

// ScorecardDTO is the presentation form of a Scorecard
type ScorecardDTO struct {
	Identity       string                     `json:"identity"`
	RoleKey        RoleKey                    `json:"roleKey"`
	RequestedRange string                     `json:"requestedRange"`
	Range          string                     `json:"range"`
	WindowFrom     string                     `json:"windowFrom,omitempty"` // ISO 8601
	WindowTo       string                     `json:"windowTo,omitempty"`   // ISO 8601
	Targets        []TargetDTO                `json:"targets"`
	Achievements   map[string]float64         `json:"achievements"`
	WeightedScore  float64                    `json:"weightedScore"`
	OwnMetrics     OwnerMetrics               `json:"ownMetrics"`
	ScopeMetrics   map[string]OwnerMetricsDTO `json:"scopeMetrics"`
	GeneratedAt    string                     `json:"generatedAt"` // ISO 8601
}

// TargetDTO pairs a target entry with what was achieved against it
type TargetDTO struct {
	Name            string     `json:"name"`
	Kind            TargetKind `json:"kind"`
	Weight          int        `json:"weight"`
	Target          float64    `json:"target"`
	Achieved        *float64   `json:"achieved,omitempty"`
	PercentToTarget float64    `json:"percentToTarget"`
}

// OwnerMetricsDTO is one row of the team performance table
type OwnerMetricsDTO struct {
	OwnerMetrics
	Identity string `json:"identity"`
}

// RangeOptionDTO describes an accepted range token
type RangeOptionDTO struct {
	Token   string `json:"token"`
	Default bool   `json:"default"`
}

// ScorecardSnapshotDTO is a stored export of a scorecard
type ScorecardSnapshotDTO struct {
	ID           string             `json:"id"`
	Identity     string             `json:"identity"`
	RoleKey      string             `json:"roleKey"`
	RangeToken   string             `json:"rangeToken"`
	WindowFrom   string             `json:"windowFrom,omitempty"`
	WindowTo     string             `json:"windowTo,omitempty"`
	Achievements map[string]float64 `json:"achievements"`
	GeneratedAt  string             `json:"generatedAt"`
}

// ExportSummaryDTO reports the outcome of a scorecard export run
type ExportSummaryDTO struct {
	RangeToken  string   `json:"rangeToken"`
	Exported    int      `json:"exported"`
	Failed      []string `json:"failed,omitempty"`
	StoragePath string   `json:"storagePath,omitempty"`
}
