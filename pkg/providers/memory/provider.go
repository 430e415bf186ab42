// Package memory provides an in-process authentication backend for offline
// development and tests.
package memory

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/anirudhbiyani/identity-session/pkg/identity"
)

// AccountsEnv lists accounts for the registered factory as "user:password" pairs separated by commas.
const AccountsEnv = "IDENTITY_MEMORY_ACCOUNTS"

func init() {
	_ = identity.Register(identity.BackendMemory, identity.ClientFactoryFunc(func(ctx context.Context, cfg identity.Config) (identity.AuthClient, error) {
		c := New(WithIdentityPool(cfg.Auth.IdentityPoolID))
		for _, pair := range strings.Split(os.Getenv(AccountsEnv), ",") {
			user, pass, ok := strings.Cut(strings.TrimSpace(pair), ":")
			if ok && user != "" {
				c.AddAccount(Account{Username: user, Password: pass})
			}
		}
		return c, nil
	}))
}

// Account is a user known to the backend.
type Account struct {
	Username string
	Password string

	// RequireNewPassword issues NEW_PASSWORD_REQUIRED on the next password sign-in.
	RequireNewPassword bool

	// CustomAnswer enables password-less sign-in answered with this value.
	CustomAnswer string

	// Email receives password reset codes.
	Email string
}

// Client implements identity.AuthClient in memory.
type Client struct {
	mu             sync.Mutex
	accounts       map[string]*Account
	current        *user
	resetCodes     map[string]string
	identityPoolID string
	identityIDs    map[string]string
	ttl            time.Duration
	now            func() time.Time
	signingKey     []byte
}

// Option configures the Client.
type Option func(*Client)

// WithIdentityPool enables credential exchange.
func WithIdentityPool(id string) Option {
	return func(c *Client) {
		c.identityPoolID = id
	}
}

// WithTokenTTL sets the lifetime of issued sessions.
func WithTokenTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.ttl = ttl
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates an empty backend.
func New(opts ...Option) *Client {
	c := &Client{
		accounts:    make(map[string]*Account),
		resetCodes:  make(map[string]string),
		identityIDs: make(map[string]string),
		ttl:         time.Hour,
		now:         time.Now,
		signingKey:  []byte(uuid.NewString()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddAccount adds or replaces an account.
func (c *Client) AddAccount(a Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acct := a
	c.accounts[a.Username] = &acct
}

// ResetCode returns the last reset code issued for username.
func (c *Client) ResetCode(username string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	code, ok := c.resetCodes[username]
	return code, ok
}

// Expire moves the current session's expiry to the past.
func (c *Client) Expire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.session != nil {
		c.current.session.ExpiresAt = c.now().Add(-time.Second)
	}
}

// CurrentAuthenticatedUser implements identity.AuthClient.
func (c *Client) CurrentAuthenticatedUser(ctx context.Context) (identity.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, identity.ErrNoUser.WithOperation("current_authenticated_user")
	}
	return c.current, nil
}

// CurrentUserPoolUser implements identity.AuthClient.
func (c *Client) CurrentUserPoolUser(ctx context.Context) (identity.User, error) {
	return c.CurrentAuthenticatedUser(ctx)
}

// CurrentSession implements identity.AuthClient.
func (c *Client) CurrentSession(ctx context.Context) (*identity.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.session == nil {
		return nil, identity.ErrNoSession.WithOperation("current_session")
	}
	sess := *c.current.session
	return &sess, nil
}

// CurrentUserCredentials implements identity.AuthClient.
func (c *Client) CurrentUserCredentials(ctx context.Context) (*identity.Credentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identityPoolID == "" {
		return nil, identity.ErrNotConfigured.WithOperation("current_user_credentials")
	}
	if c.current == nil || !c.current.session.ValidAt(c.now()) {
		return nil, identity.ErrNoSession.WithOperation("current_user_credentials")
	}

	name := c.current.username
	id, ok := c.identityIDs[name]
	if !ok {
		id = fmt.Sprintf("%s:%s", strings.SplitN(c.identityPoolID, ":", 2)[0], uuid.NewString())
		c.identityIDs[name] = id
	}
	return &identity.Credentials{
		IdentityID:      id,
		AccessKeyID:     "ASIA" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:16],
		SecretAccessKey: uuid.NewString(),
		SessionToken:    uuid.NewString(),
		Expiration:      c.current.session.ExpiresAt,
	}, nil
}

// SignIn implements identity.AuthClient.
func (c *Client) SignIn(ctx context.Context, username, password string) (identity.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	acct, ok := c.accounts[username]
	if !ok {
		return nil, identity.ErrNotFound("user", username).WithOperation("sign_in")
	}

	if password == "" {
		if acct.CustomAnswer == "" {
			return nil, identity.ErrAuth("custom authentication is not enabled for this user").WithOperation("sign_in")
		}
		return &user{
			username:   username,
			flowType:   identity.FlowCustomAuth,
			challenge:  identity.ChallengeCustom,
			parameters: map[string]string{"USERNAME": username},
		}, nil
	}

	if acct.Password != password {
		return nil, identity.ErrAuth("incorrect username or password").WithOperation("sign_in")
	}
	if acct.RequireNewPassword {
		return &user{
			username:   username,
			flowType:   identity.FlowUserPassword,
			challenge:  identity.ChallengeNewPasswordRequired,
			parameters: map[string]string{"requiredAttributes": "[]", "userAttributes": "{}"},
		}, nil
	}
	return c.issue(username, identity.FlowUserPassword)
}

// SignOut implements identity.AuthClient. Local tokens are always dropped.
func (c *Client) SignOut(ctx context.Context, global bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
	return nil
}

// SendCustomChallengeAnswer implements identity.AuthClient.
func (c *Client) SendCustomChallengeAnswer(ctx context.Context, u identity.User, answer string) (identity.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	acct, ok := c.accounts[u.Username()]
	if !ok {
		return nil, identity.ErrNotFound("user", u.Username()).WithOperation("send_custom_challenge_answer")
	}
	if acct.CustomAnswer == "" || acct.CustomAnswer != answer {
		return nil, identity.ErrChallenge("incorrect challenge answer").WithOperation("send_custom_challenge_answer")
	}
	return c.issue(acct.Username, identity.FlowCustomAuth)
}

// CompleteNewPassword implements identity.AuthClient.
func (c *Client) CompleteNewPassword(ctx context.Context, u identity.User, newPassword string, attrs map[string]string) (identity.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	acct, ok := c.accounts[u.Username()]
	if !ok {
		return nil, identity.ErrNotFound("user", u.Username()).WithOperation("complete_new_password")
	}
	if len(newPassword) < 8 {
		return nil, identity.ErrValidation("password does not conform to policy").WithOperation("complete_new_password")
	}
	acct.Password = newPassword
	acct.RequireNewPassword = false
	return c.issue(acct.Username, identity.FlowUserPassword)
}

// ForgotPassword implements identity.AuthClient.
func (c *Client) ForgotPassword(ctx context.Context, username string) (*identity.CodeDelivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	acct, ok := c.accounts[username]
	if !ok {
		return nil, identity.ErrNotFound("user", username).WithOperation("forgot_password")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return nil, identity.ErrInternal("failed to generate code").WithCause(err)
	}
	c.resetCodes[username] = fmt.Sprintf("%06d", n.Int64())
	return &identity.CodeDelivery{
		Destination:    maskEmail(acct.Email),
		DeliveryMedium: "EMAIL",
		AttributeName:  "email",
	}, nil
}

// ForgotPasswordSubmit implements identity.AuthClient.
func (c *Client) ForgotPasswordSubmit(ctx context.Context, username, code, newPassword string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	acct, ok := c.accounts[username]
	if !ok {
		return identity.ErrNotFound("user", username).WithOperation("forgot_password_submit")
	}
	want, ok := c.resetCodes[username]
	if !ok || want != code {
		return identity.ErrAuth("invalid verification code").WithOperation("forgot_password_submit")
	}
	delete(c.resetCodes, username)
	acct.Password = newPassword
	return nil
}

// issue creates a session for username and makes it current. Callers hold c.mu.
func (c *Client) issue(username, flowType string) (*user, error) {
	now := c.now()
	exp := now.Add(c.ttl)

	idToken, err := c.sign(username, "id", now, exp)
	if err != nil {
		return nil, err
	}
	accessToken, err := c.sign(username, "access", now, exp)
	if err != nil {
		return nil, err
	}

	u := &user{
		username: username,
		flowType: flowType,
		session: &identity.Session{
			IDToken:      idToken,
			AccessToken:  accessToken,
			RefreshToken: uuid.NewString(),
			Username:     username,
			IssuedAt:     now,
			ExpiresAt:    exp,
		},
	}
	c.current = u
	return u, nil
}

func (c *Client) sign(username, use string, iat, exp time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":              uuid.NewString(),
		"cognito:username": username,
		"token_use":        use,
		"iat":              jwt.NewNumericDate(iat),
		"exp":              jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", identity.ErrInternal("failed to sign token").WithCause(err)
	}
	return signed, nil
}

func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return ""
	}
	return local[:1] + "***@" + domain
}

// user implements identity.User.
type user struct {
	username   string
	flowType   string
	challenge  string
	parameters map[string]string
	session    *identity.Session
}

func (u *user) Username() string { return u.username }

func (u *user) Session() *identity.Session {
	if u.session == nil {
		return nil
	}
	s := *u.session
	return &s
}

func (u *user) ChallengeName() string { return u.challenge }

func (u *user) ChallengeParameters() map[string]string { return u.parameters }

func (u *user) AuthenticationFlowType() string { return u.flowType }
