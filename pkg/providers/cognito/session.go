package cognito

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ciptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/golang-jwt/jwt/v5"

	"github.com/anirudhbiyani/identity-session/pkg/identity"
)

// user implements identity.User.
type user struct {
	username         string
	flowType         string
	challenge        string
	parameters       map[string]string
	challengeSession string
	session          *identity.Session
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

// challengeUsername prefers USER_ID_FOR_SRP, which Cognito sets to the
// canonical username when the user signed in with an alias.
func (u *user) challengeUsername() string {
	if id := u.parameters["USER_ID_FOR_SRP"]; id != "" {
		return id
	}
	return u.username
}

type authResult struct {
	result     *ciptypes.AuthenticationResultType
	challenge  ciptypes.ChallengeNameType
	parameters map[string]string
	session    string
}

// accept turns an InitiateAuth or RespondToAuthChallenge result into a
// user. A result with tokens becomes the current user.
func (c *Client) accept(username, flowType string, res authResult) (identity.User, error) {
	if res.result == nil {
		if res.challenge == "" {
			return nil, identity.ErrAuth("no tokens and no challenge in response")
		}
		params := res.parameters
		if params == nil {
			params = map[string]string{}
		}
		return &user{
			username:         username,
			flowType:         flowType,
			challenge:        string(res.challenge),
			parameters:       params,
			challengeSession: res.session,
		}, nil
	}

	sess, err := c.sessionFromResult(res.result, "")
	if err != nil {
		return nil, err
	}
	if sess.Username == "" {
		sess.Username = username
	}

	u := &user{username: sess.Username, flowType: flowType, session: sess}
	c.mu.Lock()
	c.current = u
	c.identityID = ""
	c.mu.Unlock()
	return u, nil
}

// sessionFromResult builds a session from issued tokens. refreshToken is
// used when the result carries none, as with REFRESH_TOKEN_AUTH.
func (c *Client) sessionFromResult(res *ciptypes.AuthenticationResultType, refreshToken string) (*identity.Session, error) {
	sess := &identity.Session{
		IDToken:      aws.ToString(res.IdToken),
		AccessToken:  aws.ToString(res.AccessToken),
		RefreshToken: aws.ToString(res.RefreshToken),
	}
	if sess.RefreshToken == "" {
		sess.RefreshToken = refreshToken
	}

	claims, err := parseClaims(sess.IDToken)
	if err != nil {
		return nil, err
	}
	sess.Username = claims.username
	sess.IssuedAt = claims.issuedAt
	sess.ExpiresAt = claims.expiresAt

	if res.ExpiresIn > 0 {
		exp := c.now().Add(time.Duration(res.ExpiresIn) * time.Second)
		if sess.ExpiresAt.IsZero() || exp.Before(sess.ExpiresAt) {
			sess.ExpiresAt = exp
		}
	}
	return sess, nil
}

type tokenClaims struct {
	username  string
	issuedAt  time.Time
	expiresAt time.Time
}

// parseClaims reads the ID token claims without verifying the signature;
// the token came straight from Cognito over TLS and is only used to learn
// its expiry and owner.
func parseClaims(idToken string) (tokenClaims, error) {
	var tc tokenClaims
	if idToken == "" {
		return tc, identity.ErrAuth("response carried no ID token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return tc, identity.ErrAuth("malformed ID token").WithCause(err)
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tc.expiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		tc.issuedAt = iat.Time
	}
	if name, ok := claims["cognito:username"].(string); ok {
		tc.username = name
	} else if sub, err := claims.GetSubject(); err == nil {
		tc.username = sub
	}
	return tc, nil
}

// CurrentAuthenticatedUser implements identity.AuthClient. It returns the
// cached user without contacting Cognito.
func (c *Client) CurrentAuthenticatedUser(ctx context.Context) (identity.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, identity.ErrNoUser.WithOperation("current_authenticated_user")
	}
	return c.current, nil
}

// CurrentUserPoolUser implements identity.AuthClient. Sessions close to
// expiry are renewed with the refresh token first.
func (c *Client) CurrentUserPoolUser(ctx context.Context) (identity.User, error) {
	if err := c.refreshIfNeeded(ctx); err != nil {
		return nil, err
	}
	return c.CurrentAuthenticatedUser(ctx)
}

// CurrentSession implements identity.AuthClient.
func (c *Client) CurrentSession(ctx context.Context) (*identity.Session, error) {
	u, err := c.CurrentUserPoolUser(ctx)
	if err != nil {
		return nil, err
	}
	sess := u.Session()
	if sess == nil {
		return nil, identity.ErrNoSession.WithOperation("current_session")
	}
	return sess, nil
}

func (c *Client) refreshIfNeeded(ctx context.Context) error {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()

	if cur == nil || cur.session == nil {
		return identity.ErrNoUser.WithOperation("current_user_pool_user")
	}
	if cur.session.ValidAt(c.now().Add(c.refreshSkew)) {
		return nil
	}
	if cur.session.RefreshToken == "" {
		return nil
	}

	params := map[string]string{"REFRESH_TOKEN": cur.session.RefreshToken}
	if h := c.secretHash(cur.username); h != "" {
		params["SECRET_HASH"] = h
	}
	out, err := c.userPool.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       ciptypes.AuthFlowTypeRefreshTokenAuth,
		ClientId:       aws.String(c.cfg.ClientID),
		AuthParameters: params,
	})
	if err != nil {
		return mapError("refresh_session", err)
	}
	if out.AuthenticationResult == nil {
		return identity.ErrAuth("refresh returned no tokens").WithOperation("refresh_session")
	}

	sess, err := c.sessionFromResult(out.AuthenticationResult, cur.session.RefreshToken)
	if err != nil {
		return err
	}
	if sess.Username == "" {
		sess.Username = cur.username
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == cur {
		c.current = &user{username: cur.username, flowType: cur.flowType, session: sess}
	}
	return nil
}

// CurrentUserCredentials implements identity.AuthClient.
func (c *Client) CurrentUserCredentials(ctx context.Context) (*identity.Credentials, error) {
	if c.identityPool == nil || c.cfg.IdentityPoolID == "" {
		return nil, identity.ErrNotConfigured.WithOperation("current_user_credentials")
	}
	sess, err := c.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	logins := map[string]string{c.loginsKey(): sess.IDToken}

	c.mu.Lock()
	identityID := c.identityID
	c.mu.Unlock()

	if identityID == "" {
		out, err := c.identityPool.GetId(ctx, &cognitoidentity.GetIdInput{
			IdentityPoolId: aws.String(c.cfg.IdentityPoolID),
			Logins:         logins,
		})
		if err != nil {
			return nil, mapError("get_id", err)
		}
		identityID = aws.ToString(out.IdentityId)
		c.mu.Lock()
		c.identityID = identityID
		c.mu.Unlock()
	}

	out, err := c.identityPool.GetCredentialsForIdentity(ctx, &cognitoidentity.GetCredentialsForIdentityInput{
		IdentityId: aws.String(identityID),
		Logins:     logins,
	})
	if err != nil {
		return nil, mapError("get_credentials_for_identity", err)
	}
	if out.Credentials == nil {
		return nil, identity.ErrAuth("identity pool returned no credentials").WithOperation("get_credentials_for_identity")
	}

	return &identity.Credentials{
		IdentityID:      identityID,
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		Expiration:      aws.ToTime(out.Credentials.Expiration),
	}, nil
}
