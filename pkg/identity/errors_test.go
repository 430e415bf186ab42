package identity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelsSurviveDecoration(t *testing.T) {
	err := ErrNoSession.WithOperation("obtain_credentials").WithDetail("user", "alice")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.NotErrorIs(t, err, ErrNoRouter)

	wrapped := fmt.Errorf("restore: %w", err)
	assert.ErrorIs(t, wrapped, ErrNoSession)
	assert.True(t, IsCategory(wrapped, ErrCategoryPrecondition))

	// Decorating must not mutate the sentinel.
	assert.Empty(t, ErrNoSession.Operation)
	assert.Empty(t, ErrNoSession.Details)
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("connection reset")
	err := ErrNetwork("request failed").WithOperation("sign_in").WithCause(cause)

	assert.Equal(t, "[sign_in:network] request failed: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRetryable(err))
	assert.False(t, IsRetryable(ErrAuth("nope")))
	assert.False(t, IsRetryable(cause))
}

func TestCategoryMatch(t *testing.T) {
	err := ErrAuth("incorrect username or password")
	assert.ErrorIs(t, err, &Error{Category: ErrCategoryAuth})
	assert.NotErrorIs(t, err, &Error{Category: ErrCategoryNetwork})
}
