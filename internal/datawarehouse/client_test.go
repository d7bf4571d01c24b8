package datawarehouse_test

import (
	"context"
	"testing"

	"github.com/straye-as/scorecard-api/internal/config"
	"github.com/straye-as/scorecard-api/internal/datawarehouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewClient_DisabledConfig(t *testing.T) {
	logger := zap.NewNop()

	client, err := datawarehouse.NewClient(nil, logger)
	assert.NoError(t, err)
	assert.Nil(t, client)

	client, err = datawarehouse.NewClient(&config.DataWarehouseConfig{Enabled: false}, logger)
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewClient_MissingCredentials(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name string
		cfg  *config.DataWarehouseConfig
	}{
		{
			name: "missing URL",
			cfg:  &config.DataWarehouseConfig{Enabled: true, User: "user", Password: "pass"},
		},
		{
			name: "missing user",
			cfg:  &config.DataWarehouseConfig{Enabled: true, URL: "host:1433/db", Password: "pass"},
		},
		{
			name: "missing password",
			cfg:  &config.DataWarehouseConfig{Enabled: true, URL: "host:1433/db", User: "user"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := datawarehouse.NewClient(tt.cfg, logger)
			assert.NoError(t, err)
			assert.Nil(t, client)
		})
	}
}

func TestClient_NilIsDisabled(t *testing.T) {
	var client *datawarehouse.Client

	assert.False(t, client.IsEnabled())
	assert.NoError(t, client.Close())
	assert.Equal(t, "disabled", client.HealthCheck(context.Background()).Status)
}

func TestClient_HealthCheck(t *testing.T) {
	client := newTestClient(t)

	status := client.HealthCheck(context.Background())
	require.NotNil(t, status)
	assert.Equal(t, "healthy", status.Status)
	assert.Empty(t, status.Error)
	assert.Equal(t, 1, status.MaxOpen)
	assert.True(t, client.IsEnabled())
}
