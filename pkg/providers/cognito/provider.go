// Package cognito provides an identity.AuthClient backed by Amazon Cognito
// user pools and identity pools.
package cognito

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/anirudhbiyani/identity-session/pkg/identity"
)

func init() {
	_ = identity.Register(identity.BackendCognito, identity.ClientFactoryFunc(func(ctx context.Context, cfg identity.Config) (identity.AuthClient, error) {
		return NewFromConfig(ctx, cfg.Auth)
	}))
}

// UserPoolAPI abstracts the Cognito user pool operations for testing.
type UserPoolAPI interface {
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, in *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error)
	GlobalSignOut(ctx context.Context, in *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
	RevokeToken(ctx context.Context, in *cip.RevokeTokenInput, optFns ...func(*cip.Options)) (*cip.RevokeTokenOutput, error)
	ForgotPassword(ctx context.Context, in *cip.ForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, in *cip.ConfirmForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error)
}

// IdentityPoolAPI abstracts the Cognito identity pool operations for testing.
type IdentityPoolAPI interface {
	GetId(ctx context.Context, in *cognitoidentity.GetIdInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetIdOutput, error)
	GetCredentialsForIdentity(ctx context.Context, in *cognitoidentity.GetCredentialsForIdentityInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetCredentialsForIdentityOutput, error)
}

// STSAPI abstracts the STS call used to check exchanged credentials.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// CallerIdentity describes the principal behind a set of credentials.
type CallerIdentity struct {
	Account string
	ARN     string
	UserID  string
}

// Client implements identity.AuthClient for Cognito. Tokens are kept in
// memory only.
type Client struct {
	cfg          identity.AuthConfig
	userPool     UserPoolAPI
	identityPool IdentityPoolAPI
	sts          STSAPI
	now          func() time.Time

	// refreshSkew renews sessions this long before they expire.
	refreshSkew time.Duration

	mu         sync.Mutex
	current    *user
	identityID string
}

// Option configures the Client.
type Option func(*Client)

// WithUserPoolAPI sets the user pool client.
func WithUserPoolAPI(api UserPoolAPI) Option {
	return func(c *Client) {
		c.userPool = api
	}
}

// WithIdentityPoolAPI sets the identity pool client.
func WithIdentityPoolAPI(api IdentityPoolAPI) Option {
	return func(c *Client) {
		c.identityPool = api
	}
}

// WithSTSAPI sets the STS client used by CallerIdentity.
func WithSTSAPI(api STSAPI) Option {
	return func(c *Client) {
		c.sts = api
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithRefreshSkew sets how early sessions are renewed.
func WithRefreshSkew(d time.Duration) Option {
	return func(c *Client) {
		c.refreshSkew = d
	}
}

// New creates a Client from explicit API clients.
func New(cfg identity.AuthConfig, opts ...Option) *Client {
	c := &Client{
		cfg:         cfg,
		now:         time.Now,
		refreshSkew: time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig loads the default AWS configuration for cfg.Region and
// builds the SDK clients.
func NewFromConfig(ctx context.Context, cfg identity.AuthConfig) (*Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, identity.ErrValidation("failed to load AWS configuration").WithCause(err)
	}

	userPool := cip.NewFromConfig(awsCfg, func(o *cip.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	opts := []Option{WithUserPoolAPI(userPool), WithSTSAPI(sts.NewFromConfig(awsCfg))}
	if cfg.IdentityPoolID != "" {
		opts = append(opts, WithIdentityPoolAPI(cognitoidentity.NewFromConfig(awsCfg, func(o *cognitoidentity.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})))
	}
	return New(cfg, opts...), nil
}

// CallerIdentity resolves the principal behind creds with STS.
func (c *Client) CallerIdentity(ctx context.Context, creds *identity.Credentials) (*CallerIdentity, error) {
	if c.sts == nil {
		return nil, identity.ErrNotConfigured.WithOperation("caller_identity")
	}
	if creds == nil {
		return nil, identity.ErrNoSession.WithOperation("caller_identity")
	}

	provider := credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken)
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}, func(o *sts.Options) {
		o.Credentials = provider
	})
	if err != nil {
		return nil, mapError("caller_identity", err)
	}
	return &CallerIdentity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}

// loginsKey is the identity pool login provider name for the user pool.
func (c *Client) loginsKey() string {
	return fmt.Sprintf("cognito-idp.%s.amazonaws.com/%s", c.cfg.Region, c.cfg.UserPoolID)
}
