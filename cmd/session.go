package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/anirudhbiyani/identity-session/pkg/identity"
	"github.com/anirudhbiyani/identity-session/pkg/router"
)

// maxChallengeAttempts bounds how often a rejected challenge is re-prompted.
const maxChallengeAttempts = 3

// app is the per-invocation wiring shared by every command.
type app struct {
	cfg     identity.Config
	client  identity.AuthClient
	history *router.History
	orch    *identity.Orchestrator
	prompt  *prompter
	out     io.Writer
}

// newApp loads configuration, builds the backend client and an orchestrator
// positioned on the --path route.
func newApp(ctx context.Context, cmd *cobra.Command, opts ...identity.Option) (*app, error) {
	cfg, err := identity.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Backend = backend
	}

	level := logLevel
	if cfg.Debug && !cmd.Flags().Changed("log-level") {
		level = "debug"
	}
	logger := identity.NewLogger(cmd.ErrOrStderr(), level, logJSON)
	logger.Debug("configuration loaded", "config", cfg.String())

	client, err := identity.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	history := router.New(startPath)
	opts = append([]identity.Option{identity.WithLogger(logger)}, opts...)
	if cfg.Debug {
		opts = append(opts, identity.WithEventHook(func(ev identity.Event) {
			id := ev.Flow
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "event %s [%s] %s\n", ev.Operation, id, ev.Message)
		}))
	}

	return &app{
		cfg:     cfg,
		client:  client,
		history: history,
		orch:    identity.New(client, history, cfg, opts...),
		prompt:  newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
		out:     cmd.OutOrStdout(),
	}, nil
}

func (a *app) Close() {
	a.orch.Close()
}

// signIn signs username in, prompting for a password when none is given,
// and answers any challenges the backend issues.
func (a *app) signIn(ctx context.Context, username, password string, passwordless bool) error {
	var err error
	if username == "" {
		username = a.cfg.DefaultUsername
	}
	if username == "" {
		if username, err = a.prompt.line("Username: "); err != nil {
			return err
		}
	}
	if password == "" && !passwordless {
		if password, err = a.prompt.secret("Password: "); err != nil {
			return err
		}
	}

	if err := a.orch.SignIn(ctx, username, password); err != nil {
		return err
	}
	return a.answerChallenges(ctx)
}

// answerChallenges prompts for every pending challenge until the session is
// established.
func (a *app) answerChallenges(ctx context.Context) error {
	attempts := 0
	for {
		st := a.orch.Snapshot()
		if !st.ChallengePending {
			return nil
		}

		var (
			ans identity.ChallengeAnswer
			err error
		)
		switch st.ChallengeName {
		case identity.ChallengeNewPasswordRequired:
			fmt.Fprintln(a.prompt.w, "A new password is required.")
			ans.NewPassword, err = a.prompt.secret("New password: ")
		case identity.ChallengeCustom:
			if q := st.ChallengeParameters["question"]; q != "" {
				fmt.Fprintln(a.prompt.w, q)
			}
			ans.Answer, err = a.prompt.line("Answer: ")
		default:
			return identity.ErrUnsupportedChallenge.WithDetail("challenge", st.ChallengeName)
		}
		if err != nil {
			return err
		}

		err = a.orch.AnswerChallenge(ctx, ans)
		if err == nil {
			attempts = 0
			continue
		}
		attempts++
		if attempts >= maxChallengeAttempts || !identity.IsCategory(err, identity.ErrCategoryChallenge) {
			return err
		}
		fmt.Fprintf(a.prompt.w, "Rejected: %v\n", err)
	}
}

// summary is the printable view of the orchestrator state. Tokens and
// secret keys are never included.
type summary struct {
	Authenticated       bool       `json:"authenticated"`
	Username            string     `json:"username,omitempty"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	IdentityID          string     `json:"identity_id,omitempty"`
	AccessKeyID         string     `json:"access_key_id,omitempty"`
	CredentialsExpire   *time.Time `json:"credentials_expire,omitempty"`
	Challenge           string     `json:"challenge,omitempty"`
	DeliveryMedium      string     `json:"delivery_medium,omitempty"`
	DeliveryDestination string     `json:"delivery_destination,omitempty"`
	Path                string     `json:"path"`
	Error               string     `json:"error,omitempty"`
}

func summarize(st identity.State, path string) summary {
	s := summary{
		Authenticated: st.Authenticated,
		Challenge:     st.ChallengeName,
		Path:          path,
	}
	if st.Session != nil {
		s.Username = st.Session.Username
		exp := st.Session.ExpiresAt
		s.ExpiresAt = &exp
	}
	if c := st.Credentials; c != nil {
		s.IdentityID = c.IdentityID
		s.AccessKeyID = c.AccessKeyID
		exp := c.Expiration
		s.CredentialsExpire = &exp
	}
	if d := st.Delivery; d != nil {
		s.DeliveryMedium = d.DeliveryMedium
		s.DeliveryDestination = d.Destination
	}
	if st.LastError != nil {
		s.Error = st.LastError.Error()
	}
	return s
}

func (a *app) print() error {
	return writeSummary(a.out, summarize(a.orch.Snapshot(), a.history.Path()))
}

func writeSummary(w io.Writer, s summary) error {
	if output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(w, "Authenticated:  %t\n", s.Authenticated)
	if s.Username != "" {
		fmt.Fprintf(w, "Username:       %s\n", s.Username)
	}
	if s.ExpiresAt != nil {
		fmt.Fprintf(w, "Expires:        %s\n", s.ExpiresAt.Format(time.RFC3339))
	}
	if s.IdentityID != "" {
		fmt.Fprintf(w, "Identity:       %s\n", s.IdentityID)
		fmt.Fprintf(w, "Access key:     %s\n", s.AccessKeyID)
	}
	if s.Challenge != "" {
		fmt.Fprintf(w, "Challenge:      %s\n", s.Challenge)
	}
	if s.DeliveryMedium != "" {
		fmt.Fprintf(w, "Code sent via:  %s to %s\n", s.DeliveryMedium, s.DeliveryDestination)
	}
	fmt.Fprintf(w, "Route:          %s\n", s.Path)
	if s.Error != "" {
		fmt.Fprintf(w, "Last error:     %s\n", s.Error)
	}
	return nil
}

// prompter reads answers from the command's input. Secrets are read
// without echo when the input is a terminal.
type prompter struct {
	in io.Reader
	r  *bufio.Reader
	w  io.Writer
}

func newPrompter(in io.Reader, w io.Writer) *prompter {
	return &prompter{in: in, r: bufio.NewReader(in), w: w}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.w, label)
	s, err := p.r.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", identity.ErrValidation("no input for " + strings.TrimSuffix(strings.TrimSpace(label), ":")).WithCause(err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (p *prompter) secret(label string) (string, error) {
	f, ok := p.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.line(label)
	}
	fmt.Fprint(p.w, label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(p.w)
	if err != nil {
		return "", identity.ErrInternal("failed to read password").WithCause(err)
	}
	return string(b), nil
}
