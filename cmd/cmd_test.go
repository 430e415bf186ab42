package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhbiyani/identity-session/pkg/identity"
	"github.com/anirudhbiyani/identity-session/pkg/providers/memory"
	"github.com/anirudhbiyani/identity-session/pkg/router"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	base := []string{
		"--config", filepath.Join(t.TempDir(), "absent.toml"),
		"--backend", identity.BackendMemory,
		"--path", "/",
		"-o", "json",
	}
	rootCmd.SetArgs(append(args, base...))
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeSummary(t *testing.T, out string) summary {
	t.Helper()
	var s summary
	require.NoError(t, json.NewDecoder(strings.NewReader(out)).Decode(&s))
	return s
}

func TestSigninCommand(t *testing.T) {
	t.Setenv(memory.AccountsEnv, "alice:hunter22")

	out, err := execute(t, "hunter22\n", "signin", "alice", "--keep=false", "--password=")
	require.NoError(t, err)

	s := decodeSummary(t, out)
	assert.True(t, s.Authenticated)
	assert.Equal(t, "alice", s.Username)
	assert.NotContains(t, out, "id_token")
}

func TestSigninCommandRejectsBadPassword(t *testing.T) {
	t.Setenv(memory.AccountsEnv, "alice:hunter22")

	_, err := execute(t, "", "signin", "alice", "--password", "wrong")
	assert.True(t, identity.IsCategory(err, identity.ErrCategoryAuth))
}

func TestSignoutCommand(t *testing.T) {
	t.Setenv(memory.AccountsEnv, "alice:hunter22")

	out, err := execute(t, "", "signout", "alice", "--password", "hunter22", "--global")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out of all devices.")
}

func TestResetPasswordNeedsValidCode(t *testing.T) {
	t.Setenv(memory.AccountsEnv, "alice:hunter22")

	_, err := execute(t, "new-password\n", "reset-password", "alice", "--code", "000000")
	assert.True(t, identity.IsCategory(err, identity.ErrCategoryAuth))
}

func newTestApp(t *testing.T, client *memory.Client, stdin string) (*app, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	hist := router.New("/")
	orch := identity.New(client, hist, identity.Config{Backend: identity.BackendMemory})
	t.Cleanup(orch.Close)
	return &app{
		cfg:     identity.Config{Backend: identity.BackendMemory},
		client:  client,
		history: hist,
		orch:    orch,
		prompt:  newPrompter(strings.NewReader(stdin), &out),
		out:     &out,
	}, &out
}

func TestAnswerChallengesRetries(t *testing.T) {
	client := memory.New()
	client.AddAccount(memory.Account{Username: "kiosk", CustomAnswer: "4242"})
	a, out := newTestApp(t, client, "1111\n4242\n")
	ctx := context.Background()

	require.NoError(t, a.signIn(ctx, "kiosk", "", true))
	assert.True(t, a.orch.Snapshot().Authenticated)
	assert.Contains(t, out.String(), "Rejected:")
}

func TestAnswerChallengesGivesUp(t *testing.T) {
	client := memory.New()
	client.AddAccount(memory.Account{Username: "kiosk", CustomAnswer: "4242"})
	a, _ := newTestApp(t, client, "1\n2\n3\n")

	err := a.signIn(context.Background(), "kiosk", "", true)
	assert.True(t, identity.IsCategory(err, identity.ErrCategoryChallenge))
	assert.True(t, a.orch.Snapshot().ChallengePending)
}

func TestAnswerChallengesNewPassword(t *testing.T) {
	client := memory.New()
	client.AddAccount(memory.Account{Username: "alice", Password: "temporary", RequireNewPassword: true})
	a, _ := newTestApp(t, client, "a-much-longer-password\n")

	require.NoError(t, a.signIn(context.Background(), "alice", "temporary", false))
	assert.True(t, a.orch.Snapshot().Authenticated)
}

func TestWatchHandler(t *testing.T) {
	client := memory.New()
	client.AddAccount(memory.Account{Username: "alice", Password: "pw"})
	a, _ := newTestApp(t, client, "")
	srv := httptest.NewServer(a.handler(prometheus.NewRegistry()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.NoError(t, a.orch.SignIn(context.Background(), "alice", "pw"))

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	var s summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.True(t, s.Authenticated)
	assert.Equal(t, "alice", s.Username)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
