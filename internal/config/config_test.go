package config_test

import (
	"testing"
	"time"

	"github.com/straye-as/scorecard-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.SourceDatabase, cfg.Scorecard.Source)
	assert.Equal(t, 8, cfg.Scorecard.MaxConcurrentFetches)
	assert.Equal(t, "./config/org.yaml", cfg.Scorecard.OrgFile)
	assert.Equal(t, "LAST_MONTH", cfg.Export.Range)
	assert.Equal(t, 30*time.Second, cfg.Scorecard.ComputeTimeoutDuration())
	assert.Contains(t, cfg.RateLimit.WhitelistPaths, "/metrics")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SCORECARD_MAXCONCURRENTFETCHES", "3")
	t.Setenv("JWT_SECRET", "dev-secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Scorecard.MaxConcurrentFetches)
	assert.Equal(t, "dev-secret", cfg.Auth.JWTSecret)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Scorecard: config.ScorecardConfig{Source: "database", MaxConcurrentFetches: 4, Timezone: "Europe/Oslo"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{"valid", func(c *config.Config) {}, false},
		{"source is case insensitive", func(c *config.Config) { c.Scorecard.Source = " Database " }, false},
		{"unknown source", func(c *config.Config) { c.Scorecard.Source = "csv" }, true},
		{"warehouse without warehouse", func(c *config.Config) { c.Scorecard.Source = "warehouse" }, true},
		{"warehouse enabled", func(c *config.Config) {
			c.Scorecard.Source = "warehouse"
			c.DataWarehouse.Enabled = true
		}, false},
		{"zero fetch limit", func(c *config.Config) { c.Scorecard.MaxConcurrentFetches = 0 }, true},
		{"bad timezone", func(c *config.Config) { c.Scorecard.Timezone = "Mars/Olympus" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
