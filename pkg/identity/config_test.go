package identity

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cognitoConfig() Config {
	return Config{
		Backend: BackendCognito,
		Auth: AuthConfig{
			Region:     "eu-west-1",
			UserPoolID: "eu-west-1_AbC123",
			ClientID:   "4abcdefghijklmnop",
		},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{name: "Valid", mutate: func(*Config) {}},
		{name: "MemoryNeedsNothing", mutate: func(c *Config) { *c = Config{Backend: BackendMemory} }},
		{name: "MissingBackend", mutate: func(c *Config) { c.Backend = "" }, fields: []string{"backend"}},
		{
			name:   "MissingPool",
			mutate: func(c *Config) { c.Auth.UserPoolID = ""; c.Auth.ClientID = "" },
			fields: []string{"auth.client_id", "auth.user_pool_id"},
		},
		{
			name:   "BadIdentityPool",
			mutate: func(c *Config) { c.Auth.IdentityPoolID = "not-a-pool" },
			fields: []string{"auth.identity_pool_id"},
		},
		{
			name:   "NegativeRefresh",
			mutate: func(c *Config) { c.RefreshInterval = -1 },
			fields: []string{"refresh_interval"},
		},
		{
			name: "RelativeRoutes",
			mutate: func(c *Config) {
				c.Routing = &RoutingConfig{Login: "login", LoginSuccess: "login", ProtectedPaths: []string{"app"}}
			},
			fields: []string{"routing.login", "routing.login_success", "routing.login_success", "routing.protected_paths"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cognitoConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsCategory(err, ErrCategoryValidation))

			var e *Error
			require.True(t, errors.As(err, &e))
			problems, ok := e.Details["fields"].([]FieldError)
			require.True(t, ok)
			var got []string
			for _, p := range problems {
				got = append(got, p.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
backend = "cognito"
default_username = "kiosk"
refresh_interval = 15

[auth]
region = "eu-west-1"
user_pool_id = "eu-west-1_AbC123"
client_id = "4abcdefghijklmnop"
identity_pool_id = "eu-west-1:3f1c7a2e-0000-4000-8000-000000000000"

[routing]
login = "/login"
logout = "/bye"
protected_paths = ["/dashboard"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("IDENTITY_CLIENT_ID", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendCognito, cfg.Backend)
	assert.Equal(t, "kiosk", cfg.DefaultUsername)
	assert.Equal(t, 15*time.Minute, cfg.RefreshPeriod())
	assert.Equal(t, "from-env", cfg.Auth.ClientID)
	assert.True(t, cfg.HasIdentityPool())
	require.NotNil(t, cfg.Routing)
	assert.Equal(t, []string{"/dashboard"}, cfg.Routing.ProtectedPaths)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("IDENTITY_BACKEND", BackendMemory)
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
}

func TestLoadConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("backend = ["), 0o600))

	_, err := LoadConfig(path)
	assert.True(t, IsCategory(err, ErrCategoryValidation))
}
