package cognito

import (
	"errors"

	"github.com/aws/smithy-go"

	"github.com/anirudhbiyani/identity-session/pkg/identity"
)

// challengeOps answer a pending challenge. A rejected answer from them is a
// challenge error so the caller can retry with the same challenge.
var challengeOps = map[string]bool{
	"send_custom_challenge_answer": true,
	"complete_new_password":        true,
}

// mapError converts SDK errors into identity errors. It returns nil for nil.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return identity.ErrNetwork("request failed").WithOperation(op).WithCause(err)
	}

	msg := apiErr.ErrorMessage()
	if msg == "" {
		msg = apiErr.ErrorCode()
	}

	var e *identity.Error
	switch apiErr.ErrorCode() {
	case "NotAuthorizedException", "CodeMismatchException":
		if challengeOps[op] {
			e = identity.ErrChallenge(msg)
		} else {
			e = identity.ErrAuth(msg)
		}
	case "ExpiredCodeException",
		"PasswordResetRequiredException", "UserNotConfirmedException":
		e = identity.ErrAuth(msg)
	case "UserNotFoundException", "ResourceNotFoundException":
		e = identity.NewError(identity.ErrCategoryNotFound, msg)
	case "InvalidPasswordException", "InvalidParameterException":
		e = identity.ErrValidation(msg)
	case "TooManyRequestsException", "LimitExceededException", "TooManyFailedAttemptsException":
		e = identity.ErrRateLimit(msg)
	default:
		e = identity.ErrInternal(msg)
	}
	return e.WithOperation(op).WithDetail("code", apiErr.ErrorCode()).WithCause(err)
}
