package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/scorecard-api/internal/service"
	"go.uber.org/zap"
)

// defaultSnapshotLimit applies when ?limit is absent
const defaultSnapshotLimit = 12

type ScorecardHandler struct {
	scorecardService *service.ScorecardService
	logger           *zap.Logger
}

func NewScorecardHandler(scorecardService *service.ScorecardService, logger *zap.Logger) *ScorecardHandler {
	return &ScorecardHandler{
		scorecardService: scorecardService,
		logger:           logger,
	}
}

type identityParams struct {
	Identity string `validate:"required,max=128"`
}

type snapshotParams struct {
	Identity string `validate:"required,max=128"`
	Limit    int    `validate:"min=1,max=200"`
}

// @Summary Get my scorecard
// @Description Computes the caller's performance scorecard for the requested range.
// @Description
// @Description **Range tokens:** `LAST_N_DAYS:7`, `LAST_N_DAYS:30`, `LAST_N_DAYS:90`, `LAST_N_DAYS:180`,
// @Description `LAST_N_DAYS:365`, `LAST_3_MONTHS`, `LAST_6_MONTHS`, `LAST_12_MONTHS`, `THIS_MONTH`,
// @Description `LAST_MONTH`, `ALL_TIME`. Unknown tokens fall back to `LAST_N_DAYS:30`; the
// @Description response carries both `requestedRange` and the resolved `range`.
// @Description
// @Description The role is derived from the caller's own activity and team; targets are scaled by
// @Description team size and `scopeMetrics` lists every member the role covers.
// @Description API key callers must name the user with the `X-Scorecard-User` header.
// @Tags Scorecards
// @Produce json
// @Param range query string false "Range token" default(LAST_N_DAYS:30)
// @Success 200 {object} domain.ScorecardDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 502 {object} domain.APIError "Record source failed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /scorecard [get]
func (h *ScorecardHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	card, err := h.scorecardService.GetMyScorecard(r.Context(), r.URL.Query().Get("range"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

// @Summary Get a user's scorecard
// @Description Computes another user's scorecard. Allowed for the user themselves, org
// @Description administrators, the org head and API key callers.
// @Tags Scorecards
// @Produce json
// @Param identity path string true "User handle"
// @Param range query string false "Range token" default(LAST_N_DAYS:30)
// @Success 200 {object} domain.ScorecardDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 502 {object} domain.APIError "Record source failed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /scorecards/{identity} [get]
func (h *ScorecardHandler) GetFor(w http.ResponseWriter, r *http.Request) {
	params := identityParams{Identity: chi.URLParam(r, "identity")}
	if err := validate.Struct(params); err != nil {
		respondValidationError(w, err)
		return
	}

	card, err := h.scorecardService.GetScorecardFor(r.Context(), params.Identity, r.URL.Query().Get("range"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

// @Summary List range tokens
// @Tags Scorecards
// @Produce json
// @Success 200 {array} domain.RangeOptionDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /scorecard/ranges [get]
func (h *ScorecardHandler) Ranges(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scorecardService.RangeOptions())
}

// @Summary List stored scorecard snapshots
// @Description Returns exported snapshots for a user, newest first.
// @Tags Scorecards
// @Produce json
// @Param identity path string true "User handle"
// @Param range query string false "Only snapshots exported for this range token"
// @Param limit query int false "Maximum number of snapshots (1-200)" default(12)
// @Success 200 {array} domain.ScorecardSnapshotDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 503 {object} domain.APIError "Exports not configured"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /scorecards/snapshots/{identity} [get]
func (h *ScorecardHandler) Snapshots(w http.ResponseWriter, r *http.Request) {
	params := snapshotParams{Identity: chi.URLParam(r, "identity"), Limit: defaultSnapshotLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		params.Limit = limit
	}
	if err := validate.Struct(params); err != nil {
		respondValidationError(w, err)
		return
	}

	snapshots, err := h.scorecardService.ListSnapshots(r.Context(), params.Identity, r.URL.Query().Get("range"), params.Limit)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshots)
}

// @Summary Get the latest stored snapshot
// @Description Returns the newest exported snapshot for a user. Without a range the
// @Description scheduled export's range is used.
// @Tags Scorecards
// @Produce json
// @Param identity path string true "User handle"
// @Param range query string false "Range token"
// @Success 200 {object} domain.ScorecardSnapshotDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 503 {object} domain.APIError "Exports not configured"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /scorecards/snapshots/{identity}/latest [get]
func (h *ScorecardHandler) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	params := identityParams{Identity: chi.URLParam(r, "identity")}
	if err := validate.Struct(params); err != nil {
		respondValidationError(w, err)
		return
	}

	snapshot, err := h.scorecardService.LatestSnapshot(r.Context(), params.Identity, r.URL.Query().Get("range"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// @Summary Export all scorecards
// @Description Computes and stores a snapshot for every known user and uploads a JSON report.
// @Description Runs the same export as the scheduled job. API key only.
// @Tags Scorecards
// @Produce json
// @Param range query string false "Range token" default(LAST_N_DAYS:30)
// @Success 200 {object} domain.ExportSummaryDTO
// @Failure 403 {object} domain.APIError
// @Failure 503 {object} domain.APIError "Exports not configured"
// @Security ApiKeyAuth
// @Router /scorecards/export [post]
func (h *ScorecardHandler) Export(w http.ResponseWriter, r *http.Request) {
	summary, err := h.scorecardService.ExportAll(r.Context(), r.URL.Query().Get("range"))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
