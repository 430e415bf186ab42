// Package identity keeps a user pool session alive for a front end and
// publishes its state.
//
// # Overview
//
// An Orchestrator wraps an AuthClient (a user pool / identity pool backend,
// see pkg/providers) and a Router. It restores the session on start and on
// every route change, drives interactive sign-in including challenges,
// exchanges the session for identity pool credentials, refreshes the
// session on a timer and redirects to the login, login-success and logout
// routes.
//
// # State
//
// The State snapshot holds the session, credentials, authenticated flag,
// pending challenge and last error. Consumers read it with Snapshot or
// receive it with Subscribe:
//
//	orch := identity.New(client, history, cfg, identity.WithLogger(logger))
//	defer orch.Close()
//
//	cancel := orch.Subscribe(func(st identity.State) {
//	    fmt.Println("authenticated:", st.Authenticated)
//	})
//	defer cancel()
//
//	if err := orch.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Sign-in
//
//	if err := orch.SignIn(ctx, "alice", password); err != nil {
//	    return err
//	}
//	if st := orch.Snapshot(); st.ChallengePending {
//	    err = orch.AnswerChallenge(ctx, identity.ChallengeAnswer{NewPassword: next})
//	}
//
// # Failures
//
// Backend failures never escape as panics and never leave the state half
// written: each flow ends with a committed State, typically unauthenticated,
// and optionally a login redirect. Commands also return the error so
// callers can report it.
//
// # Backends
//
// Backends register a ClientFactory with Register from an init() function
// and are selected by Config.Backend.
package identity
