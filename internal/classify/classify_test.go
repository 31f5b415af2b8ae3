package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	horuserrors "horus/internal/errors"
)

func TestStatusCode(t *testing.T) {
	cases := map[int]horuserrors.ErrorType{
		401: horuserrors.ErrorAuth,
		403: horuserrors.ErrorAuth,
		404: horuserrors.ErrorUnsupported,
		405: horuserrors.ErrorUnsupported,
		422: horuserrors.ErrorUnsupported,
		429: horuserrors.ErrorQuota,
		408: horuserrors.ErrorTransient,
		500: horuserrors.ErrorTransient,
		502: horuserrors.ErrorTransient,
		503: horuserrors.ErrorTransient,
		504: horuserrors.ErrorTransient,
		501: horuserrors.ErrorServerDown,
		200: horuserrors.ErrorUnknown,
	}
	for status, want := range cases {
		assert.Equal(t, want, StatusCode(status), "status %d", status)
	}
}

func TestMessage_PriorityOrder(t *testing.T) {
	assert.Equal(t, horuserrors.ErrorQuota, Message("Quota exceeded for this account"))
	assert.Equal(t, horuserrors.ErrorQuota, Message("Too Many Requests"))
	assert.Equal(t, horuserrors.ErrorAuth, Message("Unauthorized access"))
	assert.Equal(t, horuserrors.ErrorAuth, Message("invalid API key provided"))
	assert.Equal(t, horuserrors.ErrorUnsupported, Message("feature not implemented"))
	assert.Equal(t, horuserrors.ErrorTransient, Message("please try again later"))
	assert.Equal(t, horuserrors.ErrorUnknown, Message("something exploded"))
	assert.Equal(t, horuserrors.ErrorUnknown, Message(""))
}

func TestException_ProviderErrorWithStatusCode(t *testing.T) {
	err := horuserrors.NewHTTPStatusError(429, "rate limited")
	classified := Exception(err)
	assert.Equal(t, horuserrors.ErrorQuota, classified.ErrorType)
}

func TestException_ProviderErrorWithExplicitType(t *testing.T) {
	err := horuserrors.NewProviderError(horuserrors.ErrorTimeout, "deadline")
	classified := Exception(err)
	assert.Equal(t, horuserrors.ErrorTimeout, classified.ErrorType)
}

func TestException_ContextDeadlineExceeded(t *testing.T) {
	classified := Exception(context.DeadlineExceeded)
	assert.Equal(t, horuserrors.ErrorTimeout, classified.ErrorType)
}

func TestException_DefaultsToUnknown(t *testing.T) {
	classified := Exception(assertError("boom"))
	assert.Equal(t, horuserrors.ErrorUnknown, classified.ErrorType)
}

type plainError string

func (e plainError) Error() string { return string(e) }

func assertError(msg string) error { return plainError(msg) }
