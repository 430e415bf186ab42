package identity

import (
	"path"
	"strings"
)

// RoutingConfig maps navigation paths to login behavior.
type RoutingConfig struct {
	// Login is the sign-in page. Without it no route is enforced.
	Login string `toml:"login" json:"login,omitempty"`

	// Logout is shown after sign-out. Falls back to Login.
	Logout string `toml:"logout" json:"logout,omitempty"`

	// LoginSuccess is pushed after a successful sign-in. When empty the
	// router goes back to the page that triggered the login redirect.
	LoginSuccess string `toml:"login_success" json:"login_success,omitempty"`

	// ProtectedPaths lists enforced paths. Entries match exactly, as a
	// segment prefix ("/app" covers "/app/settings"), or as a path.Match
	// glob. An empty list enforces every path except Login and Logout.
	ProtectedPaths []string `toml:"protected_paths" json:"protected_paths,omitempty"`

	// Matcher overrides ProtectedPaths when set.
	Matcher func(path string) bool `toml:"-" json:"-"`
}

// ShouldEnforceRoute reports whether p requires an authenticated session.
// Alternating redirects between two enforced routes are not detected; a
// configuration that enforces its own login route is invalid.
func ShouldEnforceRoute(p string, cfg *RoutingConfig) bool {
	if cfg == nil || cfg.Login == "" {
		return false
	}
	if p == cfg.Login || (cfg.Logout != "" && p == cfg.Logout) {
		return false
	}
	if cfg.Matcher != nil {
		return cfg.Matcher(p)
	}
	if len(cfg.ProtectedPaths) == 0 {
		return true
	}
	for _, pattern := range cfg.ProtectedPaths {
		if matchRoute(pattern, p) {
			return true
		}
	}
	return false
}

func matchRoute(pattern, p string) bool {
	if pattern == p {
		return true
	}
	if strings.ContainsAny(pattern, "*?[") {
		ok, err := path.Match(pattern, p)
		return err == nil && ok
	}
	prefix := strings.TrimSuffix(pattern, "/")
	return strings.HasPrefix(p, prefix+"/")
}
