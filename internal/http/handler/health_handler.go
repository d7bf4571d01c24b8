package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/straye-as/scorecard-api/internal/database"
	"github.com/straye-as/scorecard-api/internal/datawarehouse"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const readinessTimeout = 5 * time.Second

// WarehouseChecker reports warehouse connectivity; *datawarehouse.Client implements it
type WarehouseChecker interface {
	HealthCheck(ctx context.Context) *datawarehouse.HealthStatus
	IsEnabled() bool
}

type HealthHandler struct {
	db        *gorm.DB
	warehouse WarehouseChecker
	// warehouseRequired fails readiness when the warehouse is the record source
	warehouseRequired bool
	logger            *zap.Logger
}

func NewHealthHandler(db *gorm.DB, warehouse WarehouseChecker, warehouseRequired bool, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:                db,
		warehouse:         warehouse,
		warehouseRequired: warehouseRequired,
		logger:            logger,
	}
}

// Live is the liveness probe
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// @Summary Readiness check
// @Description Checks the database and, when enabled, the data warehouse.
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]interface{})
	allHealthy := true

	stats, err := database.HealthCheckWithStats(ctx, h.db)
	if err != nil {
		h.logger.Error("Database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		}
		allHealthy = false
	} else {
		checks["database"] = map[string]interface{}{
			"status":           "healthy",
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
		}
	}

	if h.warehouse != nil && h.warehouse.IsEnabled() {
		status := h.warehouse.HealthCheck(ctx)
		checks["data_warehouse"] = status
		if status.Status != "healthy" && h.warehouseRequired {
			allHealthy = false
		}
	} else if h.warehouseRequired {
		checks["data_warehouse"] = map[string]interface{}{"status": "disabled"}
		allHealthy = false
	}

	status, code := "healthy", http.StatusOK
	if !allHealthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
