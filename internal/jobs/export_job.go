package jobs

import (
	"context"
	"time"

	"github.com/straye-as/scorecard-api/internal/domain"
	"go.uber.org/zap"
)

// ExportJobName is the name of the scorecard export job
const ExportJobName = "scorecard_export"

// DefaultExportTimeout bounds one export run
const DefaultExportTimeout = 30 * time.Minute

// ScorecardExporter computes and stores every known scorecard for a range token.
// Implemented by service.ScorecardService.
type ScorecardExporter interface {
	ExportAll(ctx context.Context, rawRange string) (*domain.ExportSummaryDTO, error)
}

// ExportJob periodically snapshots every scorecard
type ExportJob struct {
	exporter ScorecardExporter
	rng      string
	logger   *zap.Logger
	timeout  time.Duration
}

// NewExportJob creates the export job for the given range token
func NewExportJob(exporter ScorecardExporter, rangeToken string, logger *zap.Logger, timeout time.Duration) *ExportJob {
	if timeout <= 0 {
		timeout = DefaultExportTimeout
	}
	return &ExportJob{
		exporter: exporter,
		rng:      rangeToken,
		logger:   logger,
		timeout:  timeout,
	}
}

// Run executes one export. Called by the scheduler.
func (j *ExportJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	summary, err := j.exporter.ExportAll(ctx, j.rng)
	if err != nil {
		j.logger.Error("scorecard export job failed",
			zap.String("range", j.rng),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	fields := []zap.Field{
		zap.String("range", summary.RangeToken),
		zap.Int("exported", summary.Exported),
		zap.Int("failed", len(summary.Failed)),
		zap.String("storage_path", summary.StoragePath),
		zap.Duration("duration", time.Since(start)),
	}
	if len(summary.Failed) > 0 {
		j.logger.Warn("scorecard export job completed with failures", append(fields, zap.Strings("failed_identities", summary.Failed))...)
		return
	}
	j.logger.Info("scorecard export job completed", fields...)
}

// Register adds the job to the scheduler under ExportJobName
func (j *ExportJob) Register(s *Scheduler, cronExpr string) error {
	return s.AddJob(ExportJobName, cronExpr, j.Run)
}
