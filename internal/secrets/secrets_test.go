package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVault struct {
	values map[string]string
	calls  int
}

func (f *fakeVault) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.calls++
	v, ok := f.values[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, errors.New("SecretNotFound")
	}
	return azsecrets.GetSecretResponse{Secret: azsecrets.Secret{Value: &v}}, nil
}

func TestResolveSource(t *testing.T) {
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, "development"))
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, ""))
	assert.Equal(t, SourceVault, ResolveSource(SourceAuto, "production"))
	assert.Equal(t, SourceVault, ResolveSource(SourceVault, "development"))
}

func TestVaultClient_CachesUntilExpiry(t *testing.T) {
	fake := &fakeVault{values: map[string]string{"jwt-signing-secret": "s3cret"}}
	client := newVaultClient(fake, &VaultConfig{VaultName: "kv", CacheEnabled: true, CacheTTL: time.Minute}, zap.NewNop())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		v, err := client.GetSecret(context.Background(), "jwt-signing-secret")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)
	}
	assert.Equal(t, 1, fake.calls)

	now = now.Add(2 * time.Minute)
	_, err := client.GetSecret(context.Background(), "jwt-signing-secret")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.calls)
}

func TestVaultClient_NoCache(t *testing.T) {
	fake := &fakeVault{values: map[string]string{"a": "1"}}
	client := newVaultClient(fake, &VaultConfig{VaultName: "kv"}, zap.NewNop())

	_, _ = client.GetSecret(context.Background(), "a")
	_, _ = client.GetSecret(context.Background(), "a")
	assert.Equal(t, 2, fake.calls)

	_, err := client.GetSecret(context.Background(), "missing")
	assert.Error(t, err)
}

func TestProvider_ApplyPrefersEnvironmentOverride(t *testing.T) {
	env := map[string]string{"JWT_SECRET": "from-env"}
	fake := &fakeVault{values: map[string]string{
		SecretJWTSigning:  "from-vault",
		SecretAdminAPIKey: "key-from-vault",
	}}
	p := &Provider{
		source: SourceVault,
		vault:  newVaultClient(fake, &VaultConfig{VaultName: "kv"}, zap.NewNop()),
		logger: zap.NewNop(),
		getenv: func(k string) string { return env[k] },
	}

	var jwtSecret, apiKey, storage string
	storage = "unchanged"
	missing := p.Apply(context.Background(), []Binding{
		{Secret: SecretJWTSigning, Env: "JWT_SECRET", Target: &jwtSecret},
		{Secret: SecretAdminAPIKey, Env: "ADMIN_API_KEY", Target: &apiKey},
		{Secret: SecretStorageConnection, Env: "STORAGE_CLOUDCONNECTIONSTRING", Target: &storage},
	})

	assert.Equal(t, "from-env", jwtSecret)
	assert.Equal(t, "key-from-vault", apiKey)
	assert.Equal(t, "unchanged", storage)
	assert.Equal(t, []string{SecretStorageConnection}, missing)
}

func TestProvider_EnvironmentSource(t *testing.T) {
	p := &Provider{
		source: SourceEnvironment,
		logger: zap.NewNop(),
		getenv: func(k string) string {
			if k == "DATABASE_PASSWORD" {
				return "pw"
			}
			return ""
		},
	}

	v, err := p.GetSecretOrEnv(context.Background(), SecretDatabasePassword, "DATABASE_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "pw", v)

	_, err = p.GetSecretOrEnv(context.Background(), SecretDatabaseUser, "DATABASE_USER")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}
