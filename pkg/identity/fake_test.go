package identity

import (
	"context"
	"sync"
	"time"
)

type fakeUser struct {
	name       string
	flow       string
	challenge  string
	parameters map[string]string
	session    *Session
}

func (u *fakeUser) Username() string                       { return u.name }
func (u *fakeUser) Session() *Session                      { return u.session }
func (u *fakeUser) ChallengeName() string                  { return u.challenge }
func (u *fakeUser) ChallengeParameters() map[string]string { return u.parameters }
func (u *fakeUser) AuthenticationFlowType() string         { return u.flow }

func validSession(name string) *Session {
	return &Session{
		IDToken:     "id-" + name,
		AccessToken: "access-" + name,
		Username:    name,
		IssuedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func expiredSession(name string) *Session {
	s := validSession(name)
	s.ExpiresAt = time.Now().Add(-time.Minute)
	return s
}

func signedIn(name string) *fakeUser {
	return &fakeUser{name: name, flow: FlowUserPassword, session: validSession(name)}
}

// fakeClient is a scripted AuthClient. Users returned with a session
// become the cached user, and SignOut always drops it.
type fakeClient struct {
	mu sync.Mutex

	current  *fakeUser
	poolErr  error
	creds    *Credentials
	credsErr error

	signIn      func(username, password string) (User, error)
	customAnswr func(u User, answer string) (User, error)
	newPassword func(u User, password string, attrs map[string]string) (User, error)
	signOutErr  error
	delivery    *CodeDelivery
	forgotErr   error
	submitErr   error

	calls map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{calls: make(map[string]int)}
}

func (f *fakeClient) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeClient) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeClient) setCurrent(u *fakeUser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = u
}

func (f *fakeClient) adopt(u User) {
	if fu, ok := u.(*fakeUser); ok && fu.session != nil {
		f.setCurrent(fu)
	}
}

func (f *fakeClient) CurrentAuthenticatedUser(ctx context.Context) (User, error) {
	f.record("CurrentAuthenticatedUser")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return nil, ErrNoUser
	}
	return f.current, nil
}

func (f *fakeClient) CurrentUserPoolUser(ctx context.Context) (User, error) {
	f.record("CurrentUserPoolUser")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.poolErr != nil {
		return nil, f.poolErr
	}
	if f.current == nil {
		return nil, ErrNoUser
	}
	return f.current, nil
}

func (f *fakeClient) CurrentSession(ctx context.Context) (*Session, error) {
	f.record("CurrentSession")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil || f.current.session == nil {
		return nil, ErrNoSession
	}
	return f.current.session, nil
}

func (f *fakeClient) CurrentUserCredentials(ctx context.Context) (*Credentials, error) {
	f.record("CurrentUserCredentials")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.credsErr != nil {
		return nil, f.credsErr
	}
	return f.creds, nil
}

func (f *fakeClient) SignIn(ctx context.Context, username, password string) (User, error) {
	f.record("SignIn")
	if f.signIn == nil {
		return nil, ErrAuth("sign-in not scripted")
	}
	u, err := f.signIn(username, password)
	if err == nil {
		f.adopt(u)
	}
	return u, err
}

func (f *fakeClient) SignOut(ctx context.Context, global bool) error {
	if global {
		f.record("SignOut(global)")
	} else {
		f.record("SignOut")
	}
	f.setCurrent(nil)
	return f.signOutErr
}

func (f *fakeClient) SendCustomChallengeAnswer(ctx context.Context, u User, answer string) (User, error) {
	f.record("SendCustomChallengeAnswer")
	next, err := f.customAnswr(u, answer)
	if err == nil {
		f.adopt(next)
	}
	return next, err
}

func (f *fakeClient) CompleteNewPassword(ctx context.Context, u User, password string, attrs map[string]string) (User, error) {
	f.record("CompleteNewPassword")
	next, err := f.newPassword(u, password, attrs)
	if err == nil {
		f.adopt(next)
	}
	return next, err
}

func (f *fakeClient) ForgotPassword(ctx context.Context, username string) (*CodeDelivery, error) {
	f.record("ForgotPassword")
	return f.delivery, f.forgotErr
}

func (f *fakeClient) ForgotPasswordSubmit(ctx context.Context, username, code, newPassword string) error {
	f.record("ForgotPasswordSubmit")
	return f.submitErr
}
