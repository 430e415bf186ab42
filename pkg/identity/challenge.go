package identity

import (
	"context"
)

// SignIn authenticates username. An empty password starts a custom-auth
// (password-less) flow. On success the session, or the challenge the
// backend issued instead, is committed to the state.
func (o *Orchestrator) SignIn(ctx context.Context, username, password string) error {
	f := o.begin("sign_in", true)
	o.commit(f, func(r *record) { r.LastError = nil })

	user, err := o.client.SignIn(ctx, username, password)
	if err != nil {
		o.metrics.signIn("failure")
		o.emit(f, err, "sign-in failed", "username", username)
		o.commit(f, func(r *record) { r.LastError = err })
		return err
	}
	return o.handleAuthResponse(ctx, f, user)
}

// AnswerChallenge answers the pending challenge. Custom challenges send
// ans.Answer; NEW_PASSWORD_REQUIRED sends ans.NewPassword. A rejected
// answer leaves the challenge pending so the caller can retry.
func (o *Orchestrator) AnswerChallenge(ctx context.Context, ans ChallengeAnswer) error {
	user := o.store.challengeUser()
	if user == nil {
		f := o.begin("answer_challenge", false)
		err := ErrNoChallenge.WithOperation(f.op)
		o.emit(f, err, "no pending challenge")
		return err
	}
	f := o.begin("answer_challenge", true)

	var (
		next User
		err  error
	)
	switch {
	case user.ChallengeName() == ChallengeNewPasswordRequired:
		if ans.NewPassword == "" {
			err = ErrValidation("new password required").WithOperation(f.op)
			break
		}
		o.emit(f, nil, "submitting new password")
		next, err = o.client.CompleteNewPassword(ctx, user, ans.NewPassword, ans.Attributes)
	case user.AuthenticationFlowType() == FlowCustomAuth || user.ChallengeName() == ChallengeCustom:
		next, err = o.client.SendCustomChallengeAnswer(ctx, user, ans.Answer)
	default:
		err = ErrUnsupportedChallenge.
			WithOperation(f.op).
			WithDetail("challenge", user.ChallengeName())
	}
	if err != nil {
		o.emit(f, err, "challenge answer failed")
		o.commit(f, func(r *record) { r.LastError = err })
		return err
	}

	o.emit(f, nil, "challenge answered", "challenge", user.ChallengeName())
	return o.handleAuthResponse(ctx, f, next)
}

// handleAuthResponse commits the outcome of a sign-in step. A user with a
// session is authenticated: credentials are exchanged when an identity
// pool is configured, the refresh timer is started and the router is sent
// to the login-success route or back to where the login began. A failed
// exchange clears the session. Nothing happens once the flow is stale.
func (o *Orchestrator) handleAuthResponse(ctx context.Context, f flow, user User) error {
	sess := user.Session()
	name := user.ChallengeName()
	params := user.ChallengeParameters()
	if name != "" && params == nil {
		params = map[string]string{}
	}

	if !o.commit(f, func(r *record) {
		r.Authenticated = sess != nil
		r.Session = sess
		r.Credentials = nil
		r.ChallengeName = name
		r.ChallengeParameters = params
		r.challengeUser = nil
		if name != "" {
			r.challengeUser = user
		}
		r.LastError = nil
	}) {
		return nil
	}

	if name != "" {
		o.metrics.signIn("challenge")
		o.emit(f, nil, "received auth challenge", "challenge", name)
	}
	if sess == nil {
		return nil
	}

	if o.cfg.HasIdentityPool() {
		bundle, err := o.ObtainCredentials(ctx, user)
		if err != nil {
			o.metrics.signIn("failure")
			o.emit(f, err, "credential exchange failed")
			if o.commit(f, func(r *record) {
				r.Session = nil
				r.Credentials = nil
				r.Authenticated = false
				r.LastError = err
			}) {
				o.StopTimer()
			}
			return err
		}
		if !o.commit(f, func(r *record) {
			r.Authenticated = true
			r.Session = bundle.Session
			r.Credentials = bundle.Credentials
		}) {
			return nil
		}
	}

	if !o.maybeStartTimer(f) {
		return nil
	}
	o.metrics.signIn("success")
	o.emit(f, nil, "signed in", "username", user.Username())

	if r := o.cfg.Routing; r != nil && r.LoginSuccess != "" {
		_ = o.NavigateToLogin(r.LoginSuccess)
	} else {
		_ = o.NavigateOnSuccess()
	}
	return nil
}
