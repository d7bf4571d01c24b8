// Package datawarehouse provides read-only connectivity to the MS SQL Server data warehouse.
// The warehouse holds a mirror of the CRM objects (leads, opportunities, deals) and can
// serve as the scorecard record source.
package datawarehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb" // MS SQL Server driver
	"github.com/straye-as/scorecard-api/internal/config"
	"go.uber.org/zap"
)

const (
	// Default retry configuration for connection attempts
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 10 * time.Second
	defaultBackoffFactor  = 2.0

	// Default health check timeout
	defaultHealthCheckTimeout = 5 * time.Second
)

// Client provides read-only access to the MS SQL Server data warehouse.
// It manages connection pooling and provides methods for executing queries.
type Client struct {
	db           *sql.DB
	logger       *zap.Logger
	queryTimeout time.Duration
	schema       string
}

// HealthStatus represents the health check result for the data warehouse connection
type HealthStatus struct {
	Status     string        `json:"status"`
	Latency    time.Duration `json:"latency_ms"`
	Error      string        `json:"error,omitempty"`
	MaxOpen    int           `json:"max_open_connections"`
	Open       int           `json:"open_connections"`
	InUse      int           `json:"in_use"`
	Idle       int           `json:"idle"`
	WaitCount  int64         `json:"wait_count"`
	WaitTimeMs int64         `json:"wait_time_ms"`
}

// NewClient creates a new data warehouse client with the given configuration.
// Returns nil if the data warehouse is not enabled or not configured.
// The client establishes a connection pool with retry logic for transient failures.
func NewClient(cfg *config.DataWarehouseConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("Data warehouse connection disabled")
		return nil, nil
	}

	if cfg.URL == "" || cfg.User == "" || cfg.Password == "" {
		logger.Warn("Data warehouse enabled but missing credentials, skipping connection",
			zap.Bool("url_present", cfg.URL != ""),
			zap.Bool("user_present", cfg.User != ""),
			zap.Bool("password_present", cfg.Password != ""),
		)
		return nil, nil
	}

	logger.Info("Initializing data warehouse connection",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Int("query_timeout_seconds", cfg.QueryTimeout),
	)

	connStr, err := buildConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	var db *sql.DB
	backoff := defaultInitialBackoff

	for attempt := 1; attempt <= defaultMaxRetries; attempt++ {
		db, err = sql.Open("sqlserver", connStr)
		if err == nil {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
			db.SetMaxIdleConns(cfg.MaxIdleConns)
			db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

			ctx, cancel := context.WithTimeout(context.Background(), defaultHealthCheckTimeout)
			err = db.PingContext(ctx)
			cancel()
			if err == nil {
				logger.Info("Data warehouse connection established", zap.Int("attempts_taken", attempt))
				return NewClientFromDB(db, cfg, logger), nil
			}
			_ = db.Close()
		}

		logger.Warn("Data warehouse connection attempt failed",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", defaultMaxRetries),
		)
		if attempt < defaultMaxRetries {
			time.Sleep(backoff)
			backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
		}
	}

	return nil, fmt.Errorf("failed to connect to data warehouse after %d attempts: %w", defaultMaxRetries, err)
}

// NewClientFromDB wraps an already opened pool
func NewClientFromDB(db *sql.DB, cfg *config.DataWarehouseConfig, logger *zap.Logger) *Client {
	timeout := cfg.QueryTimeoutDuration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		db:           db,
		logger:       logger,
		queryTimeout: timeout,
		schema:       cfg.Schema,
	}
}

// buildConnectionString constructs a SQL Server connection string from the config.
// URL format expected: host:port/database or host:port (uses default database)
func buildConnectionString(cfg *config.DataWarehouseConfig) (string, error) {
	urlParts := strings.SplitN(cfg.URL, "/", 2)
	hostPort := urlParts[0]
	if hostPort == "" {
		return "", fmt.Errorf("missing host in data warehouse URL")
	}
	database := ""
	if len(urlParts) > 1 {
		database = urlParts[1]
	}

	hostParts := strings.SplitN(hostPort, ":", 2)
	host := hostParts[0]
	port := "1433"
	if len(hostParts) > 1 {
		port = hostParts[1]
	}

	query := url.Values{}
	query.Add("encrypt", "true")
	query.Add("TrustServerCertificate", "false")
	query.Add("connection timeout", "30")
	query.Add("ApplicationIntent", "ReadOnly")
	if database != "" {
		query.Add("database", database)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%s", host, port),
		RawQuery: query.Encode(),
	}
	return u.String(), nil
}

// Close gracefully closes the data warehouse connection.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close data warehouse connection: %w", err)
	}
	c.logger.Info("Data warehouse connection closed")
	return nil
}

// HealthCheck pings the warehouse and reports pool statistics
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	if c == nil || c.db == nil {
		return &HealthStatus{Status: "disabled"}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHealthCheckTimeout)
		defer cancel()
	}

	start := time.Now()
	err := c.db.PingContext(ctx)
	latency := time.Since(start)

	stats := c.db.Stats()
	status := &HealthStatus{
		Status:     "healthy",
		Latency:    latency,
		MaxOpen:    stats.MaxOpenConnections,
		Open:       stats.OpenConnections,
		InUse:      stats.InUse,
		Idle:       stats.Idle,
		WaitCount:  stats.WaitCount,
		WaitTimeMs: stats.WaitDuration.Milliseconds(),
	}
	if err != nil {
		c.logger.Warn("Data warehouse health check failed", zap.Error(err), zap.Duration("latency", latency))
		status.Status = "unhealthy"
		status.Error = err.Error()
	}
	return status
}

// query runs a read-only query and hands every row to scan. The client's query
// timeout applies when ctx has no deadline.
func (c *Client) query(ctx context.Context, query string, scan func(*sql.Rows) error, args ...any) error {
	if c == nil || c.db == nil {
		return fmt.Errorf("data warehouse client not initialized")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		c.logger.Error("Data warehouse query failed",
			zap.Error(err),
			zap.String("query", truncateQuery(query, 200)),
			zap.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	c.logger.Debug("Data warehouse query completed",
		zap.String("query", truncateQuery(query, 200)),
		zap.Int("rows_returned", n),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// table qualifies a CRM mirror table with the configured schema
func (c *Client) table(name string) string {
	if c.schema == "" {
		return name
	}
	return c.schema + "." + name
}

// IsEnabled returns true if the client is initialized and ready for queries.
func (c *Client) IsEnabled() bool {
	return c != nil && c.db != nil
}

// truncateQuery truncates a query string for logging purposes
func truncateQuery(query string, maxLen int) string {
	if len(query) <= maxLen {
		return query
	}
	return query[:maxLen] + "..."
}
