package cognito

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ciptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/anirudhbiyani/identity-session/pkg/identity"
)

// SignIn implements identity.AuthClient. An empty password starts a
// CUSTOM_AUTH flow.
func (c *Client) SignIn(ctx context.Context, username, password string) (identity.User, error) {
	params := map[string]string{"USERNAME": username}
	flow := ciptypes.AuthFlowTypeUserPasswordAuth
	if password == "" {
		flow = ciptypes.AuthFlowTypeCustomAuth
	} else {
		params["PASSWORD"] = password
	}
	if h := c.secretHash(username); h != "" {
		params["SECRET_HASH"] = h
	}

	out, err := c.userPool.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       flow,
		ClientId:       aws.String(c.cfg.ClientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, mapError("sign_in", err)
	}

	return c.accept(username, string(flow), authResult{
		result:     out.AuthenticationResult,
		challenge:  out.ChallengeName,
		parameters: out.ChallengeParameters,
		session:    aws.ToString(out.Session),
	})
}

// SendCustomChallengeAnswer implements identity.AuthClient.
func (c *Client) SendCustomChallengeAnswer(ctx context.Context, u identity.User, answer string) (identity.User, error) {
	cu, ok := u.(*user)
	if !ok {
		return nil, identity.ErrValidation("user was not issued by this client").WithOperation("send_custom_challenge_answer")
	}
	responses := map[string]string{
		"USERNAME": cu.challengeUsername(),
		"ANSWER":   answer,
	}
	return c.respond(ctx, "send_custom_challenge_answer", cu, ciptypes.ChallengeNameTypeCustomChallenge, responses)
}

// CompleteNewPassword implements identity.AuthClient.
func (c *Client) CompleteNewPassword(ctx context.Context, u identity.User, newPassword string, attrs map[string]string) (identity.User, error) {
	cu, ok := u.(*user)
	if !ok {
		return nil, identity.ErrValidation("user was not issued by this client").WithOperation("complete_new_password")
	}
	responses := map[string]string{
		"USERNAME":     cu.challengeUsername(),
		"NEW_PASSWORD": newPassword,
	}
	for k, v := range attrs {
		responses["userAttributes."+k] = v
	}
	return c.respond(ctx, "complete_new_password", cu, ciptypes.ChallengeNameTypeNewPasswordRequired, responses)
}

func (c *Client) respond(ctx context.Context, op string, u *user, name ciptypes.ChallengeNameType, responses map[string]string) (identity.User, error) {
	if h := c.secretHash(responses["USERNAME"]); h != "" {
		responses["SECRET_HASH"] = h
	}
	out, err := c.userPool.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ChallengeName:      name,
		ClientId:           aws.String(c.cfg.ClientID),
		ChallengeResponses: responses,
		Session:            aws.String(u.challengeSession),
	})
	if err != nil {
		return nil, mapError(op, err)
	}

	return c.accept(u.username, u.flowType, authResult{
		result:     out.AuthenticationResult,
		challenge:  out.ChallengeName,
		parameters: out.ChallengeParameters,
		session:    aws.ToString(out.Session),
	})
}

// SignOut implements identity.AuthClient. Local tokens are dropped even
// when the remote call fails.
func (c *Client) SignOut(ctx context.Context, global bool) error {
	c.mu.Lock()
	cur := c.current
	c.current = nil
	c.identityID = ""
	c.mu.Unlock()

	if cur == nil || cur.session == nil {
		return nil
	}

	if global {
		_, err := c.userPool.GlobalSignOut(ctx, &cip.GlobalSignOutInput{
			AccessToken: aws.String(cur.session.AccessToken),
		})
		return mapError("sign_out", err)
	}

	if cur.session.RefreshToken == "" {
		return nil
	}
	in := &cip.RevokeTokenInput{
		ClientId: aws.String(c.cfg.ClientID),
		Token:    aws.String(cur.session.RefreshToken),
	}
	if c.cfg.ClientSecret != "" {
		in.ClientSecret = aws.String(c.cfg.ClientSecret)
	}
	_, err := c.userPool.RevokeToken(ctx, in)
	return mapError("sign_out", err)
}

// ForgotPassword implements identity.AuthClient.
func (c *Client) ForgotPassword(ctx context.Context, username string) (*identity.CodeDelivery, error) {
	in := &cip.ForgotPasswordInput{
		ClientId: aws.String(c.cfg.ClientID),
		Username: aws.String(username),
	}
	if h := c.secretHash(username); h != "" {
		in.SecretHash = aws.String(h)
	}
	out, err := c.userPool.ForgotPassword(ctx, in)
	if err != nil {
		return nil, mapError("forgot_password", err)
	}

	d := &identity.CodeDelivery{}
	if det := out.CodeDeliveryDetails; det != nil {
		d.Destination = aws.ToString(det.Destination)
		d.DeliveryMedium = string(det.DeliveryMedium)
		d.AttributeName = aws.ToString(det.AttributeName)
	}
	return d, nil
}

// ForgotPasswordSubmit implements identity.AuthClient.
func (c *Client) ForgotPasswordSubmit(ctx context.Context, username, code, newPassword string) error {
	in := &cip.ConfirmForgotPasswordInput{
		ClientId:         aws.String(c.cfg.ClientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newPassword),
	}
	if h := c.secretHash(username); h != "" {
		in.SecretHash = aws.String(h)
	}
	_, err := c.userPool.ConfirmForgotPassword(ctx, in)
	return mapError("forgot_password_submit", err)
}

// secretHash computes SECRET_HASH for app clients with a secret.
func (c *Client) secretHash(username string) string {
	if c.cfg.ClientSecret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(c.cfg.ClientSecret))
	mac.Write([]byte(username + c.cfg.ClientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
