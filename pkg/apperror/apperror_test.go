package apperror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Mindburn-Labs/workspace-engine/pkg/apperror"
	"github.com/stretchr/testify/assert"
)

func TestWrap_UnwrapsToTheOriginalCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperror.Wrap(apperror.KindTransient, "put object failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, apperror.KindTransient, apperror.KindOf(err))
}

func TestKindOf_DefaultsToFatalForUnrecognizedErrors(t *testing.T) {
	assert.Equal(t, apperror.KindFatal, apperror.KindOf(errors.New("boom")))
}

func TestKindOf_SeesThroughFmtErrorfWrapping(t *testing.T) {
	inner := apperror.New(apperror.KindNotFound, "component db-1 not found")
	outer := fmt.Errorf("resolve subscription target: %w", inner)

	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(outer))
	assert.True(t, apperror.Is(outer, apperror.KindNotFound))
	assert.False(t, apperror.Is(outer, apperror.KindConflict))
}

func TestStatusCode_MatchesTheErrorHandlingTable(t *testing.T) {
	cases := map[apperror.Kind]int{
		apperror.KindNotFound:       http.StatusNotFound,
		apperror.KindInvalidInput:   http.StatusUnprocessableEntity,
		apperror.KindConflict:       http.StatusConflict,
		apperror.KindPrecondition:   http.StatusPreconditionFailed,
		apperror.KindTransient:      http.StatusServiceUnavailable,
		apperror.KindAuthentication: http.StatusInternalServerError,
		apperror.KindFatal:          http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.StatusCode(), "kind %s", kind)
	}
}

func TestRetryable_OnlyTransientIsRetryable(t *testing.T) {
	assert.True(t, apperror.KindTransient.Retryable())
	assert.False(t, apperror.KindFatal.Retryable())
	assert.False(t, apperror.KindNotFound.Retryable())
}
