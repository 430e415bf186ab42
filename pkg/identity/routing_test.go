package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldEnforceRoute(t *testing.T) {
	protected := &RoutingConfig{
		Login:          "/login",
		Logout:         "/bye",
		ProtectedPaths: []string{"/dashboard", "/admin/", "/reports/*"},
	}
	everything := &RoutingConfig{Login: "/login", Logout: "/bye"}
	matcher := &RoutingConfig{
		Login:   "/login",
		Matcher: func(p string) bool { return strings.HasSuffix(p, ".private") },
	}

	tests := []struct {
		name string
		path string
		cfg  *RoutingConfig
		want bool
	}{
		{"NoConfig", "/dashboard", nil, false},
		{"NoLoginRoute", "/dashboard", &RoutingConfig{ProtectedPaths: []string{"/dashboard"}}, false},
		{"Exact", "/dashboard", protected, true},
		{"SegmentPrefix", "/dashboard/reports", protected, true},
		{"NotASegment", "/dashboards", protected, false},
		{"TrailingSlashPattern", "/admin/users", protected, true},
		{"Glob", "/reports/q3", protected, true},
		{"GlobSingleSegment", "/reports/q3/raw", protected, false},
		{"Public", "/about", protected, false},
		{"LoginNeverEnforced", "/login", everything, false},
		{"LogoutNeverEnforced", "/bye", everything, false},
		{"EmptyListEnforcesAll", "/anything", everything, true},
		{"MatcherWins", "/doc.private", matcher, true},
		{"MatcherRejects", "/doc", matcher, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldEnforceRoute(tt.path, tt.cfg))
		})
	}
}
