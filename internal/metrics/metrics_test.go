package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/straye-as/scorecard-api/internal/domain"
	"github.com/straye-as/scorecard-api/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCompute(t *testing.T) {
	m := metrics.New()

	m.ObserveCompute("LAST_MONTH", domain.RoleSalesExecutive, 120*time.Millisecond, nil)
	m.ObserveCompute("LAST_MONTH", domain.RoleSalesExecutive, 80*time.Millisecond, nil)
	m.ObserveCompute("THIS_MONTH", "", time.Second, &domain.FetchError{
		Owner: "BOB", Phase: domain.FetchPhaseScope, Err: errors.New("timeout"),
	})
	m.ObserveCompute("THIS_MONTH", "", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScorecardsTotal.WithLabelValues(string(domain.RoleSalesExecutive))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchFailures.WithLabelValues(string(domain.FetchPhaseScope))))
	assert.Equal(t, 2, testutil.CollectAndCount(m.ComputeDuration))
}

func TestObserveExport(t *testing.T) {
	m := metrics.New()
	at := time.Date(2024, 4, 1, 2, 0, 0, 0, time.UTC)

	m.ObserveExport(12, at, nil)
	m.ObserveExport(0, at, errors.New("storage down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportRuns.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportRuns.WithLabelValues(metrics.OutcomeError)))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.ExportedSnapshots))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.LastExport))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.ScorecardMetrics
	assert.NotPanics(t, func() {
		m.ObserveCompute("LAST_MONTH", domain.RoleFloorManager, time.Second, nil)
		m.ObserveExport(1, time.Now(), nil)
	})
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.ObserveCompute("LAST_MONTH", domain.RoleOperationsHead, time.Second, nil)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `scorecard_computed_total{role="operations_head"} 1`)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}
