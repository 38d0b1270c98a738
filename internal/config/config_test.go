package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "common", cfg.Azure.Tenant)
	assert.Equal(t, defaultScopes, cfg.Azure.Scopes)
	assert.NotEmpty(t, cfg.Database.Path)
	assert.NotEmpty(t, cfg.Storage.TokenFile)
	assert.Equal(t, "noreply.laboral.bcn@bdo.es", cfg.Payroll.Sender)
	assert.Equal(t, "Hojas de Salario", cfg.Payroll.Subject)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
azure:
  client_id: my-client-id
  tenant: my-tenant
database:
  path: /tmp/custom.db
payroll:
  sender: payroll@corp.example
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "my-client-id", cfg.Azure.ClientID)
	assert.Equal(t, "my-tenant", cfg.Azure.Tenant)
	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	assert.Equal(t, "payroll@corp.example", cfg.Payroll.Sender)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset keys keep their defaults.
	assert.Equal(t, "Hojas de Salario", cfg.Payroll.Subject)
	assert.Equal(t, defaultScopes, cfg.Azure.Scopes)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GRAPHMAIL_AZURE_CLIENT_ID", "env-client-id")
	t.Setenv("GRAPHMAIL_LOGGING_LEVEL", "error")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-client-id", cfg.Azure.ClientID)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("azure: [not: valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Database: DatabaseConfig{Path: filepath.Join(dir, "db", "emails.db")},
		Storage: StorageConfig{
			AttachmentsDir: filepath.Join(dir, "attachments"),
			TokenFile:      filepath.Join(dir, "auth", "tokens.json"),
			AccountFile:    filepath.Join(dir, "auth", "account.json"),
		},
	}

	require.NoError(t, cfg.EnsureDirectories())

	for _, p := range []string{
		filepath.Join(dir, "db"),
		filepath.Join(dir, "attachments"),
		filepath.Join(dir, "auth"),
	} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
