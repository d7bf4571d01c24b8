package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// SecretSource defines where secrets are loaded from
type SecretSource string

const (
	// SourceEnvironment loads secrets from environment variables
	SourceEnvironment SecretSource = "environment"
	// SourceVault loads secrets from Azure Key Vault
	SourceVault SecretSource = "vault"
	// SourceAuto uses the environment in development and the vault elsewhere
	SourceAuto SecretSource = "auto"
)

// Key Vault secret names read by the service
const (
	SecretDatabaseHost      = "POSTGRES-MAIN-HOST"
	SecretDatabaseUser      = "POSTGRES-MAIN-USER"
	SecretDatabasePassword  = "POSTGRES-MAIN-PASSWORD"
	SecretJWTSigning        = "jwt-signing-secret"
	SecretAdminAPIKey       = "admin-api-key"
	SecretStorageConnection = "storage-connection-string"
	SecretWarehouseURL      = "WAREHOUSE-URL"
	SecretWarehouseUser     = "WAREHOUSE-USERNAME"
	SecretWarehousePassword = "WAREHOUSE-PASSWORD"
)

// ErrSecretNotFound is returned when neither the source nor the override has a value
var ErrSecretNotFound = errors.New("secret not found")

// Provider abstracts secret retrieval from different sources
type Provider struct {
	source SecretSource
	vault  *VaultClient
	logger *zap.Logger
	getenv func(string) string
}

// ProviderConfig holds configuration for the secrets provider
type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string // "development", "staging", "production"
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ResolveSource turns SourceAuto into a concrete source for the environment
func ResolveSource(source SecretSource, environment string) SecretSource {
	if source != SourceAuto {
		return source
	}
	switch environment {
	case "development", "local", "test", "":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

// NewProvider creates a new secrets provider
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := ResolveSource(cfg.Source, cfg.Environment)
	provider := &Provider{source: source, logger: logger, getenv: os.Getenv}

	if source == SourceVault {
		if cfg.VaultName == "" {
			return nil, fmt.Errorf("vault name required when using vault secret source")
		}
		vault, err := NewVaultClient(&VaultConfig{
			VaultName:    cfg.VaultName,
			CacheEnabled: cfg.CacheEnabled,
			CacheTTL:     cfg.CacheTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vault client: %w", err)
		}
		provider.vault = vault
	}

	logger.Info("Secrets provider initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment),
	)
	return provider, nil
}

// NewEnvironmentProvider returns a provider that only reads environment variables
func NewEnvironmentProvider(logger *zap.Logger) *Provider {
	return &Provider{source: SourceEnvironment, logger: logger, getenv: os.Getenv}
}

// GetSecret retrieves a secret by name. For the environment source the name is
// the variable name.
func (p *Provider) GetSecret(ctx context.Context, secretName string) (string, error) {
	switch p.source {
	case SourceEnvironment:
		value := p.getenv(secretName)
		if value == "" {
			return "", fmt.Errorf("%w: environment variable '%s' not set", ErrSecretNotFound, secretName)
		}
		return value, nil
	case SourceVault:
		if p.vault == nil {
			return "", fmt.Errorf("vault client not initialized")
		}
		return p.vault.GetSecret(ctx, secretName)
	default:
		return "", fmt.Errorf("unknown secret source: %s", p.source)
	}
}

// GetSecretOrEnv prefers a set environment variable, then the configured source
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if envValue := p.getenv(envName); envValue != "" {
		p.logger.Debug("Using environment variable override", zap.String("env_name", envName))
		return envValue, nil
	}
	if p.source == SourceEnvironment {
		return p.GetSecret(ctx, envName)
	}
	return p.GetSecret(ctx, secretName)
}

// Binding ties a secret (with its environment override) to a config field
type Binding struct {
	Secret string
	Env    string
	Target *string
}

// Apply resolves every binding, leaving targets untouched when no value exists.
// It returns the names of the secrets that could not be resolved.
func (p *Provider) Apply(ctx context.Context, bindings []Binding) []string {
	var missing []string
	for _, b := range bindings {
		value, err := p.GetSecretOrEnv(ctx, b.Secret, b.Env)
		if err != nil || value == "" {
			missing = append(missing, b.Secret)
			continue
		}
		*b.Target = value
	}
	return missing
}

// Source returns the current secret source
func (p *Provider) Source() SecretSource {
	return p.source
}

// IsVaultEnabled returns true if secrets are loaded from vault
func (p *Provider) IsVaultEnabled() bool {
	return p.source == SourceVault
}
