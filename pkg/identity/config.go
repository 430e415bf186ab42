package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Backend names understood by the client registry.
const (
	BackendCognito = "cognito"
	BackendMemory  = "memory"
)

// Config is the immutable orchestrator configuration.
type Config struct {
	// Backend selects the registered AuthClient factory.
	Backend string `toml:"backend" json:"backend"`

	// Auth describes the user pool and optional identity pool.
	Auth AuthConfig `toml:"auth" json:"auth"`

	// DefaultUsername is the user this deployment expects. A cached session
	// for any other user is signed out on start.
	DefaultUsername string `toml:"default_username" json:"default_username,omitempty"`

	// Routing enables login redirects. Nil disables all navigation.
	Routing *RoutingConfig `toml:"routing" json:"routing,omitempty"`

	// RefreshInterval is the session refresh period in minutes. Zero disables the timer.
	RefreshInterval int `toml:"refresh_interval" json:"refresh_interval,omitempty"`

	// OAuth marks hosted-UI deployments, which handle logout redirects themselves.
	OAuth bool `toml:"oauth" json:"oauth,omitempty"`

	// Debug enables debug logging of orchestrator events.
	Debug bool `toml:"debug" json:"debug,omitempty"`
}

// AuthConfig identifies the user pool and identity pool.
type AuthConfig struct {
	Region         string `toml:"region" json:"region"`
	UserPoolID     string `toml:"user_pool_id" json:"user_pool_id"`
	ClientID       string `toml:"client_id" json:"client_id"`
	ClientSecret   string `toml:"client_secret" json:"-"`
	IdentityPoolID string `toml:"identity_pool_id" json:"identity_pool_id,omitempty"`

	// Endpoint overrides the service endpoint, for local emulators.
	Endpoint string `toml:"endpoint" json:"endpoint,omitempty"`
}

// HasIdentityPool reports whether credentials should be exchanged.
func (c Config) HasIdentityPool() bool {
	return c.Auth.IdentityPoolID != ""
}

// RefreshPeriod returns RefreshInterval as a duration.
func (c Config) RefreshPeriod() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Minute
}

// DefaultConfigPath returns the default path for the config file.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".identity-session", "config.toml")
}

// LoadConfig reads a TOML config file and applies environment overrides.
// A missing file yields an environment-only config.
func LoadConfig(path string) (Config, error) {
	cfg := Config{Backend: BackendCognito}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
			return Config{}, ErrValidation("invalid config file").
				WithCause(err).
				WithDetail("path", path)
		}
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// ApplyEnvOverrides overlays IDENTITY_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("IDENTITY_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("IDENTITY_REGION"); v != "" {
		c.Auth.Region = v
	}
	if v := os.Getenv("IDENTITY_USER_POOL_ID"); v != "" {
		c.Auth.UserPoolID = v
	}
	if v := os.Getenv("IDENTITY_CLIENT_ID"); v != "" {
		c.Auth.ClientID = v
	}
	if v := os.Getenv("IDENTITY_CLIENT_SECRET"); v != "" {
		c.Auth.ClientSecret = v
	}
	if v := os.Getenv("IDENTITY_IDENTITY_POOL_ID"); v != "" {
		c.Auth.IdentityPoolID = v
	}
	if v := os.Getenv("IDENTITY_DEFAULT_USERNAME"); v != "" {
		c.DefaultUsername = v
	}
	if v := os.Getenv("IDENTITY_REFRESH_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RefreshInterval = n
		}
	}
	if v := os.Getenv("IDENTITY_DEBUG"); v != "" {
		c.Debug, _ = strconv.ParseBool(v)
	}
}

// String renders the config without secrets.
func (c Config) String() string {
	return fmt.Sprintf("backend=%s region=%s user_pool=%s identity_pool=%s refresh=%dm oauth=%t",
		c.Backend, c.Auth.Region, c.Auth.UserPoolID, c.Auth.IdentityPoolID, c.RefreshInterval, c.OAuth)
}
