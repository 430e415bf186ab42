package identity

import (
	"context"
)

// User is a user pool user as returned by the authentication backend.
// A user without a session is mid-authentication and carries challenge
// metadata instead.
type User interface {
	// Username returns the user pool username.
	Username() string

	// Session returns the issued session, or nil while a challenge is pending.
	Session() *Session

	// ChallengeName returns the pending challenge kind, empty when none.
	ChallengeName() string

	// ChallengeParameters returns the parameters of the pending challenge.
	ChallengeParameters() map[string]string

	// AuthenticationFlowType returns the flow the user signed in with.
	AuthenticationFlowType() string
}

// AuthClient is the authentication backend wrapped by the orchestrator.
// Implementations live under pkg/providers.
type AuthClient interface {
	// CurrentAuthenticatedUser returns the user cached by the client, if any.
	CurrentAuthenticatedUser(ctx context.Context) (User, error)

	// CurrentUserPoolUser returns the current user, refreshing tokens if needed.
	CurrentUserPoolUser(ctx context.Context) (User, error)

	// CurrentSession returns the current user's session.
	CurrentSession(ctx context.Context) (*Session, error)

	// CurrentUserCredentials exchanges the current session for identity pool credentials.
	CurrentUserCredentials(ctx context.Context) (*Credentials, error)

	// SignIn starts authentication. An empty password starts a custom-auth flow.
	SignIn(ctx context.Context, username, password string) (User, error)

	// SignOut ends the current session; global invalidates every device.
	SignOut(ctx context.Context, global bool) error

	// SendCustomChallengeAnswer answers a custom challenge for user.
	SendCustomChallengeAnswer(ctx context.Context, user User, answer string) (User, error)

	// CompleteNewPassword answers a NEW_PASSWORD_REQUIRED challenge.
	CompleteNewPassword(ctx context.Context, user User, newPassword string, attrs map[string]string) (User, error)

	// ForgotPassword sends a password reset code.
	ForgotPassword(ctx context.Context, username string) (*CodeDelivery, error)

	// ForgotPasswordSubmit sets a new password using a reset code.
	ForgotPasswordSubmit(ctx context.Context, username, code, newPassword string) error
}

// Router is the navigation collaborator.
type Router interface {
	// Path returns the current location.
	Path() string

	// Push navigates forward to path.
	Push(path string)

	// Back navigates to the previous entry of the history stack.
	Back()

	// Listen registers fn for path changes and returns a cancel function.
	Listen(fn func(path string)) (cancel func())
}

// ClientFactory builds an AuthClient for a backend.
type ClientFactory interface {
	// Create creates a client from cfg.
	Create(ctx context.Context, cfg Config) (AuthClient, error)
}

// ClientFactoryFunc adapts a function to ClientFactory.
type ClientFactoryFunc func(ctx context.Context, cfg Config) (AuthClient, error)

// Create implements ClientFactory.
func (f ClientFactoryFunc) Create(ctx context.Context, cfg Config) (AuthClient, error) {
	return f(ctx, cfg)
}
