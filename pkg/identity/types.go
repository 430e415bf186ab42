package identity

import (
	"time"
)

// Challenge names reported by the authentication backend.
const (
	// ChallengeCustom is issued by custom-auth (password-less) flows.
	ChallengeCustom = "CUSTOM_CHALLENGE"
	// ChallengeNewPasswordRequired forces the user to pick a new password.
	ChallengeNewPasswordRequired = "NEW_PASSWORD_REQUIRED"
	// ChallengeSMSMFA is an SMS one-time code challenge.
	ChallengeSMSMFA = "SMS_MFA"
	// ChallengeSoftwareTokenMFA is a TOTP challenge.
	ChallengeSoftwareTokenMFA = "SOFTWARE_TOKEN_MFA"
)

// Authentication flow types.
const (
	FlowUserPassword = "USER_PASSWORD_AUTH"
	FlowCustomAuth   = "CUSTOM_AUTH"
)

// Session is the token bundle issued by the user pool.
type Session struct {
	// IDToken is the OpenID Connect ID token.
	IDToken string `json:"id_token"`

	// AccessToken authorizes user pool API calls.
	AccessToken string `json:"access_token"`

	// RefreshToken is used by the backend to renew the other two tokens.
	RefreshToken string `json:"refresh_token,omitempty"`

	// Username is the user the tokens were issued to.
	Username string `json:"username"`

	// IssuedAt is when the ID token was issued.
	IssuedAt time.Time `json:"issued_at"`

	// ExpiresAt is when the ID and access tokens stop being accepted.
	ExpiresAt time.Time `json:"expires_at"`
}

// IsValid reports whether the session carries tokens that have not expired.
func (s *Session) IsValid() bool {
	return s.ValidAt(time.Now())
}

// ValidAt reports whether the session is usable at t.
func (s *Session) ValidAt(t time.Time) bool {
	if s == nil || s.IDToken == "" || s.AccessToken == "" {
		return false
	}
	return t.Before(s.ExpiresAt)
}

// Credentials are temporary AWS credentials issued by an identity pool.
type Credentials struct {
	IdentityID      string    `json:"identity_id"`
	AccessKeyID     string    `json:"access_key_id"`
	SecretAccessKey string    `json:"-"`
	SessionToken    string    `json:"-"`
	Expiration      time.Time `json:"expiration"`
}

// Expired reports whether the credentials are past their expiration.
func (c *Credentials) Expired() bool {
	if c == nil {
		return true
	}
	return !c.Expiration.IsZero() && !time.Now().Before(c.Expiration)
}

// CredentialBundle pairs exchanged credentials with the session they came from.
type CredentialBundle struct {
	Credentials *Credentials
	Session     *Session
}

// CodeDelivery describes where a verification code was sent.
type CodeDelivery struct {
	Destination    string `json:"destination"`
	DeliveryMedium string `json:"delivery_medium"`
	AttributeName  string `json:"attribute_name"`
}

// ChallengeAnswer is the input to Orchestrator.AnswerChallenge.
type ChallengeAnswer struct {
	// Answer is sent for custom challenges.
	Answer string

	// NewPassword is sent for NEW_PASSWORD_REQUIRED challenges.
	NewPassword string

	// Attributes are required user attributes submitted with a new password.
	Attributes map[string]string
}

// State is a read-only snapshot of the orchestrator's session state.
type State struct {
	Authenticated bool `json:"authenticated"`

	Session *Session `json:"session,omitempty"`

	// ChallengeName is the pending challenge kind, empty when none.
	ChallengeName string `json:"challenge_name,omitempty"`

	ChallengeParameters map[string]string `json:"challenge_parameters,omitempty"`

	// ChallengePending is true while AnswerChallenge can be called.
	ChallengePending bool `json:"challenge_pending"`

	Credentials *Credentials `json:"credentials,omitempty"`

	LastError error `json:"-"`

	// LastRoute is the path recorded before the last login redirect.
	LastRoute string `json:"last_route,omitempty"`

	// Delivery is set after a forgot-password request.
	Delivery *CodeDelivery `json:"delivery,omitempty"`

	Generation uint64    `json:"generation"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SessionView is the slice of State consumed by session-aware components.
type SessionView struct {
	Session       *Session
	Authenticated bool
}

// AuthenticationView is the slice of State consumed by sign-in components.
type AuthenticationView struct {
	ChallengeName       string
	ChallengeParameters map[string]string
	ChallengePending    bool
	Authenticated       bool
}

// SessionView returns the session slice of the snapshot.
func (s State) SessionView() SessionView {
	return SessionView{Session: s.Session, Authenticated: s.Authenticated}
}

// AuthenticationView returns the challenge slice of the snapshot.
func (s State) AuthenticationView() AuthenticationView {
	return AuthenticationView{
		ChallengeName:       s.ChallengeName,
		ChallengeParameters: s.ChallengeParameters,
		ChallengePending:    s.ChallengePending,
		Authenticated:       s.Authenticated,
	}
}

// clone copies the maps so snapshots never alias the live state.
func (s State) clone() State {
	if s.ChallengeParameters != nil {
		params := make(map[string]string, len(s.ChallengeParameters))
		for k, v := range s.ChallengeParameters {
			params[k] = v
		}
		s.ChallengeParameters = params
	}
	if s.Session != nil {
		sess := *s.Session
		s.Session = &sess
	}
	if s.Credentials != nil {
		creds := *s.Credentials
		s.Credentials = &creds
	}
	return s
}
