package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/scorecard-api/docs"
	"github.com/straye-as/scorecard-api/internal/auth"
	"github.com/straye-as/scorecard-api/internal/config"
	"github.com/straye-as/scorecard-api/internal/database"
	"github.com/straye-as/scorecard-api/internal/datawarehouse"
	"github.com/straye-as/scorecard-api/internal/http/handler"
	"github.com/straye-as/scorecard-api/internal/http/middleware"
	"github.com/straye-as/scorecard-api/internal/http/router"
	"github.com/straye-as/scorecard-api/internal/jobs"
	"github.com/straye-as/scorecard-api/internal/logger"
	"github.com/straye-as/scorecard-api/internal/metrics"
	"github.com/straye-as/scorecard-api/internal/repository"
	"github.com/straye-as/scorecard-api/internal/scorecard"
	"github.com/straye-as/scorecard-api/internal/service"
	"github.com/straye-as/scorecard-api/internal/storage"
	"go.uber.org/zap"
)

// @title Straye Scorecard API
// @version 1.0
// @description Role-based performance scorecards computed from CRM leads, opportunities and deals
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@straye.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations
// @Security BearerAuth
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	org, err := config.LoadOrg(cfg.Scorecard.OrgFile)
	if err != nil {
		return fmt.Errorf("failed to load org config: %w", err)
	}
	log.Info("Org configuration loaded",
		zap.String("file", cfg.Scorecard.OrgFile),
		zap.Int("teams", len(org.Teams.Leaders())),
		zap.Int("known_identities", len(org.KnownIdentities())),
	)

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	exportStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// The warehouse is optional unless it is the record source
	var dwClient *datawarehouse.Client
	if cfg.DataWarehouse.Enabled {
		dwClient, err = datawarehouse.NewClient(&cfg.DataWarehouse, log)
		if err != nil && cfg.Scorecard.Source == config.SourceWarehouse {
			return fmt.Errorf("failed to connect to data warehouse: %w", err)
		}
		if err != nil {
			log.Warn("Data warehouse connection failed, continuing without it", zap.Error(err))
		}
	}
	defer func() { _ = dwClient.Close() }()

	var fetcher scorecard.Fetcher
	switch cfg.Scorecard.Source {
	case config.SourceWarehouse:
		if !dwClient.IsEnabled() {
			return fmt.Errorf("scorecard source %q needs data warehouse credentials", config.SourceWarehouse)
		}
		fetcher = datawarehouse.NewRecordSource(dwClient)
	default:
		fetcher = repository.NewRecordRepository(db)
	}
	log.Info("Scorecard record source selected", zap.String("source", cfg.Scorecard.Source))

	engineCfg, err := service.EngineConfig(org, &cfg.Scorecard)
	if err != nil {
		return fmt.Errorf("invalid scorecard config: %w", err)
	}
	engine := scorecard.NewEngine(fetcher, engineCfg, log)

	scorecardMetrics := metrics.New()
	scorecardService := service.NewScorecardService(engine, org, service.ScorecardServiceOptions{
		SnapshotRepo:   repository.NewScorecardSnapshotRepository(db),
		Storage:        exportStorage,
		Metrics:        scorecardMetrics,
		ComputeTimeout: cfg.Scorecard.ComputeTimeoutDuration(),
		ExportPrefix:   cfg.Export.PathPrefix,
		ExportRange:    cfg.Export.Range,
		Retention:      cfg.Export.RetentionDuration(),
	}, log)

	rt := router.NewRouter(
		cfg,
		log,
		auth.NewMiddleware(cfg, log),
		middleware.NewRateLimiter(&cfg.RateLimit, log),
		scorecardMetrics.Handler(),
		handler.NewHealthHandler(db, dwClient, cfg.Scorecard.Source == config.SourceWarehouse, log),
		handler.NewScorecardHandler(scorecardService, log),
	)

	var scheduler *jobs.Scheduler
	if cfg.Export.Enabled {
		scheduler = jobs.NewScheduler(log)
		exportJob := jobs.NewExportJob(scorecardService, cfg.Export.Range, log, jobs.DefaultExportTimeout)
		if err := exportJob.Register(scheduler, cfg.Export.Schedule); err != nil {
			return fmt.Errorf("failed to register export job: %w", err)
		}
		scheduler.Start()
		log.Info("Scheduler started",
			zap.Strings("jobs", scheduler.GetJobNames()),
			zap.String("cron_expr", cfg.Export.Schedule),
			zap.String("range", cfg.Export.Range),
		)
	} else {
		log.Info("Scorecard export job disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      http.TimeoutHandler(rt.Setup(), cfg.Server.RequestTimeoutDuration(), `{"type":"service_unavailable","title":"Service Unavailable","status":503,"detail":"Request timed out"}`),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
