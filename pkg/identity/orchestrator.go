package identity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Orchestrator restores, refreshes and ends user sessions against an
// AuthClient, and redirects through a Router based on the outcome.
//
// Every command blocks on the backend. The router's listener, the refresh
// timer and user commands may run concurrently; each flow commits its result
// with the generation it captured, and flows that start a new sign-in or
// sign-out advance the generation so older results are discarded.
type Orchestrator struct {
	client  AuthClient
	router  Router
	cfg     Config
	store   *StateStore
	logger  *slog.Logger
	hook    EventHook
	metrics *Metrics

	// ctx bounds background work (route changes and timer ticks).
	ctx    context.Context
	cancel context.CancelFunc

	refreshPeriod time.Duration
	timerMu       sync.Mutex
	timer         *refreshTimer

	unlisten  func()
	unobserve func()
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithEventHook sets a hook receiving every orchestrator event.
func WithEventHook(h EventHook) Option {
	return func(o *Orchestrator) {
		o.hook = h
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithStateStore sets the state store.
func WithStateStore(s *StateStore) Option {
	return func(o *Orchestrator) {
		o.store = s
	}
}

// WithRefreshPeriod overrides the period derived from Config.RefreshInterval.
func WithRefreshPeriod(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.refreshPeriod = d
	}
}

// New creates an Orchestrator. router may be nil, in which case every
// navigation reports ErrNoRouter.
func New(client AuthClient, router Router, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:        client,
		router:        router,
		cfg:           cfg,
		store:         NewStateStore(),
		logger:        discardLogger(),
		refreshPeriod: cfg.RefreshPeriod(),
	}
	o.ctx, o.cancel = context.WithCancel(context.Background())

	for _, opt := range opts {
		opt(o)
	}

	if o.metrics != nil {
		o.unobserve = o.store.Subscribe(o.metrics.observe)
	}
	return o
}

// Config returns the orchestrator configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() State {
	return o.store.Snapshot()
}

// Subscribe registers fn for state changes.
func (o *Orchestrator) Subscribe(fn func(State)) (cancel func()) {
	return o.store.Subscribe(fn)
}

// Start subscribes to route changes, signs out a cached user that is not
// the configured default user, and restores the session.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.router != nil && o.unlisten == nil {
		o.unlisten = o.router.Listen(o.OnRouteChange)
	}

	f := o.begin("start", true)
	if o.cfg.DefaultUsername != "" {
		o.emit(f, nil, "provided default username", "username", o.cfg.DefaultUsername)
	}
	o.emit(f, nil, "routing configuration", "present", o.cfg.Routing != nil)
	o.store.Reset(f.gen)

	redirect := ShouldEnforceRoute(o.currentPath(), o.cfg.Routing)

	user, err := o.client.CurrentAuthenticatedUser(ctx)
	switch {
	case err != nil:
		o.emit(f, nil, "no cached user", "reason", err.Error())
	case o.cfg.DefaultUsername != "" && user.Username() != o.cfg.DefaultUsername:
		o.emit(f, nil, "removing previous session", "username", user.Username())
		if err := o.client.SignOut(ctx, false); err != nil {
			o.emit(f, err, "sign-out of previous session failed")
		}
	default:
		o.emit(f, nil, "restoring session", "username", user.Username())
	}

	o.RestoreSession(ctx, redirect)
	return ctx.Err()
}

// Close stops the refresh timer and detaches from the router.
func (o *Orchestrator) Close() {
	o.StopTimer()
	if o.unlisten != nil {
		o.unlisten()
		o.unlisten = nil
	}
	if o.unobserve != nil {
		o.unobserve()
		o.unobserve = nil
	}
	o.cancel()
}

// RestoreSession looks up the current user pool user and commits its
// session, exchanging it for credentials when an identity pool is
// configured. It returns the restored session or nil. A failure clears the
// session; when redirect is set it is also recorded as LastError and the
// router is sent to the login page.
func (o *Orchestrator) RestoreSession(ctx context.Context, redirect bool) *Session {
	f := o.begin("restore", false)
	username := o.cfg.DefaultUsername

	user, err := o.client.CurrentUserPoolUser(ctx)
	if err != nil {
		o.restoreFailed(ctx, f, redirect, username, err)
		return nil
	}
	if u := user.Username(); u != "" {
		username = u
	}
	o.emit(f, nil, "current user", "username", username)

	var (
		sess  *Session
		creds *Credentials
	)
	if o.cfg.HasIdentityPool() {
		bundle, err := o.ObtainCredentials(ctx, user)
		if err != nil {
			o.restoreFailed(ctx, f, redirect, username, err)
			return nil
		}
		sess, creds = bundle.Session, bundle.Credentials
	} else {
		sess, err = o.client.CurrentSession(ctx)
		if err != nil {
			o.restoreFailed(ctx, f, redirect, username, err)
			return nil
		}
	}

	if !sess.IsValid() {
		o.metrics.restore("invalid")
		o.emit(f, nil, "session is not valid")
		if !o.commit(f, func(r *record) {
			r.Session = nil
			r.Credentials = nil
			r.Authenticated = false
		}) {
			return nil
		}
		o.StopTimer()
		o.forceLogin(ctx, f, redirect, username)
		return nil
	}

	if !o.commit(f, func(r *record) {
		r.Session = sess
		r.Credentials = creds
		r.Authenticated = true
		r.ChallengeParameters = nil
		r.challengeUser = nil
		r.LastError = nil
	}) {
		return nil
	}
	o.metrics.restore("restored")
	o.emit(f, nil, "session restored", "expires_at", sess.ExpiresAt)
	o.maybeStartTimer(f)
	return sess
}

func (o *Orchestrator) restoreFailed(ctx context.Context, f flow, redirect bool, username string, err error) {
	o.metrics.restore("failure")
	o.emit(f, err, "restore failed")
	if !o.commit(f, func(r *record) {
		r.Session = nil
		r.Credentials = nil
		r.Authenticated = false
		if redirect {
			r.LastError = err
		}
	}) {
		return
	}
	o.StopTimer()
	o.forceLogin(ctx, f, redirect, username)
}

// forceLogin sends the router to the login page and, when a username is
// known, starts a password-less sign-in for it.
func (o *Orchestrator) forceLogin(ctx context.Context, f flow, redirect bool, username string) {
	if !redirect {
		return
	}
	r := o.cfg.Routing
	if r == nil || r.Login == "" {
		o.emit(f, nil, "redirect requested without a login route")
		return
	}
	if err := o.NavigateToLogin(r.Login); err != nil {
		return
	}
	o.emit(f, nil, "redirection completed")

	if username == "" {
		o.commit(f, func(r *record) { r.LastError = ErrNoUser.WithOperation(f.op) })
		return
	}
	o.emit(f, nil, "attempting sign-in", "username", username)
	_ = o.SignIn(ctx, username, "")
}

// ObtainCredentials exchanges user's session for identity pool credentials.
func (o *Orchestrator) ObtainCredentials(ctx context.Context, user User) (*CredentialBundle, error) {
	var sess *Session
	if user != nil {
		sess = user.Session()
	}
	if sess == nil {
		return nil, ErrNoSession.WithOperation("obtain_credentials")
	}
	creds, err := o.client.CurrentUserCredentials(ctx)
	if err != nil {
		return nil, err
	}
	return &CredentialBundle{Credentials: creds, Session: sess}, nil
}

// SignOut stops the refresh timer, signs the current user out and resets
// the state. The state is reset and the logout redirect performed even
// when the backend call fails; the backend error is returned and kept as
// LastError.
func (o *Orchestrator) SignOut(ctx context.Context, invalidateAllSessions bool) error {
	f := o.begin("sign_out", true)
	o.StopTimer()

	var signOutErr error
	if _, err := o.client.CurrentUserPoolUser(ctx); err != nil {
		o.emit(f, err, "no user to sign out")
	} else if err := o.client.SignOut(ctx, invalidateAllSessions); err != nil {
		o.emit(f, err, "sign-out failed")
		signOutErr = err
	}

	o.commit(f, func(r *record) {
		*r = record{}
		r.LastError = signOutErr
	})

	if r := o.cfg.Routing; r != nil && (r.Login != "" || r.Logout != "") && !o.cfg.OAuth {
		target := r.Logout
		if target == "" {
			target = r.Login
		}
		_ = o.NavigateToLogin(target)
	}
	return signOutErr
}

// ForgotPassword sends a password reset code to username.
func (o *Orchestrator) ForgotPassword(ctx context.Context, username string) error {
	f := o.begin("forgot_password", false)
	o.emit(f, nil, "initiating forgot password", "username", username)

	delivery, err := o.client.ForgotPassword(ctx, username)
	if err != nil {
		o.emit(f, err, "forgot password failed")
		o.commit(f, func(r *record) { r.LastError = err })
		return err
	}
	o.commit(f, func(r *record) {
		r.Delivery = delivery
		r.Authenticated = false
		r.LastError = nil
	})
	return nil
}

// ResetPassword sets a new password using the code sent by ForgotPassword.
func (o *Orchestrator) ResetPassword(ctx context.Context, username, code, newPassword string) error {
	f := o.begin("reset_password", false)

	if err := o.client.ForgotPasswordSubmit(ctx, username, code, newPassword); err != nil {
		o.emit(f, err, "reset password failed")
		o.commit(f, func(r *record) { r.LastError = err })
		return err
	}
	o.emit(f, nil, "password reset", "username", username)
	o.commit(f, func(r *record) {
		r.Delivery = nil
		r.Authenticated = false
		r.LastError = nil
	})
	return nil
}

// OnRouteChange restores the session after navigation when none is held.
// Enforced routes restore with a login redirect.
func (o *Orchestrator) OnRouteChange(path string) {
	f := o.begin("route_change", false)
	o.emit(f, nil, "route changed", "path", path)

	enforce := ShouldEnforceRoute(path, o.cfg.Routing)
	if o.store.Snapshot().Session != nil {
		return
	}
	if enforce {
		o.emit(f, nil, "should check session", "path", path)
	}
	o.RestoreSession(o.ctx, enforce)
}

// flow identifies one top-level operation for logging and stale-result checks.
type flow struct {
	id  string
	op  string
	gen uint64
}

func (o *Orchestrator) begin(op string, advance bool) flow {
	var gen uint64
	if advance {
		gen = o.store.Advance()
	} else {
		gen = o.store.Generation()
	}
	return flow{id: uuid.NewString(), op: op, gen: gen}
}

// commit applies fn under the flow's generation. Stale results are dropped.
func (o *Orchestrator) commit(f flow, fn func(*record)) bool {
	if o.store.update(f.gen, fn) {
		return true
	}
	o.metrics.stale()
	o.emit(f, nil, "discarding stale result", "generation", f.gen)
	return false
}

func (o *Orchestrator) emit(f flow, err error, msg string, attrs ...any) {
	args := append([]any{"op", f.op, "flow", f.id}, attrs...)
	if err != nil {
		o.logger.Warn(msg, append(args, "error", err)...)
	} else {
		o.logger.Debug(msg, args...)
	}
	if o.hook != nil {
		o.hook(Event{
			Time:      time.Now(),
			Operation: f.op,
			Flow:      f.id,
			Message:   msg,
			Err:       err,
			Attrs:     attrs,
		})
	}
}

func (o *Orchestrator) currentPath() string {
	if o.router == nil {
		return ""
	}
	return o.router.Path()
}
