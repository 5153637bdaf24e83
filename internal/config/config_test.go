package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
app:
  name: "Barolo"
  environment: "test"
http:
  port: 9999
database:
  path: "data/test.db"
auth:
  admin_emails: "a@example.com,b@example.com"
email:
  api_key: "re_key"
  from_address: "bookings@barolo.example"
rate_limit:
  public_per_minute: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Barolo", cfg.App.Name)
	assert.Equal(t, 9999, cfg.HTTP.Port)
	assert.Equal(t, "data/test.db", cfg.Database.Path)
	assert.Equal(t, 5, cfg.RateLimit.PublicPerMinute)
	// Defaults fill in what the file omits.
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, "https://api.resend.com/emails", cfg.Email.Endpoint)
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("TEST_RESEND_KEY", "re_from_env")

	path := writeConfig(t, `
database:
  path: "data/test.db"
email:
  api_key: "${TEST_RESEND_KEY}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "re_from_env", cfg.Email.APIKey)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "data/test.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 10, cfg.RateLimit.PublicPerMinute)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	assert.Error(t, cfg.Validate())

	cfg.Database.Path = "data/test.db"
	assert.NoError(t, cfg.Validate())

	cfg.HTTP.Port = 99999
	assert.Error(t, cfg.Validate())
}

func TestAdminAllowList(t *testing.T) {
	auth := AuthConfig{AdminEmails: " Admin@Example.com , , second@example.com "}
	assert.Equal(t, []string{"admin@example.com", "second@example.com"}, auth.AdminAllowList())

	auth = AuthConfig{}
	assert.Empty(t, auth.AdminAllowList())
}
