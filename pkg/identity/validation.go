package identity

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	userPoolIDPattern     = regexp.MustCompile(`^[\w-]+_[0-9a-zA-Z]+$`)
	identityPoolIDPattern = regexp.MustCompile(`^[\w-]+:[0-9a-f-]+$`)
)

// FieldError describes one invalid configuration field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration and returns every problem found.
func (c Config) Validate() error {
	var problems []FieldError

	switch c.Backend {
	case BackendCognito:
		if c.Auth.Region == "" {
			problems = append(problems, FieldError{"auth.region", "required"})
		}
		if c.Auth.ClientID == "" {
			problems = append(problems, FieldError{"auth.client_id", "required"})
		}
		if c.Auth.UserPoolID == "" {
			problems = append(problems, FieldError{"auth.user_pool_id", "required"})
		} else if !userPoolIDPattern.MatchString(c.Auth.UserPoolID) {
			problems = append(problems, FieldError{"auth.user_pool_id", "expected <region>_<id>"})
		}
		if c.Auth.IdentityPoolID != "" && !identityPoolIDPattern.MatchString(c.Auth.IdentityPoolID) {
			problems = append(problems, FieldError{"auth.identity_pool_id", "expected <region>:<uuid>"})
		}
	case BackendMemory:
	case "":
		problems = append(problems, FieldError{"backend", "required"})
	}

	if c.RefreshInterval < 0 {
		problems = append(problems, FieldError{"refresh_interval", "must not be negative"})
	}

	if r := c.Routing; r != nil {
		routes := []struct{ name, path string }{
			{"login", r.Login},
			{"logout", r.Logout},
			{"login_success", r.LoginSuccess},
		}
		for _, rt := range routes {
			if rt.path != "" && !strings.HasPrefix(rt.path, "/") {
				problems = append(problems, FieldError{"routing." + rt.name, "must be an absolute path"})
			}
		}
		if r.LoginSuccess != "" && r.LoginSuccess == r.Login {
			problems = append(problems, FieldError{"routing.login_success", "must differ from routing.login"})
		}
		for _, p := range r.ProtectedPaths {
			if !strings.HasPrefix(p, "/") {
				problems = append(problems, FieldError{"routing.protected_paths", fmt.Sprintf("%q must be an absolute path", p)})
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}

	msgs := make([]string, len(problems))
	for i, p := range problems {
		msgs[i] = p.Error()
	}
	return ErrValidation("invalid configuration").
		WithDetail("fields", problems).
		WithCause(fmt.Errorf("%s", strings.Join(msgs, "; ")))
}
