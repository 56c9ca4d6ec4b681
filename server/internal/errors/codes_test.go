package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/vidsage/plugin/ai/resilient"
)

func TestFromCore(t *testing.T) {
	cause := stderrors.New("model not found")

	tests := []struct {
		name       string
		err        error
		wantCode   ErrorCode
		wantStatus int
	}{
		{"RateLimited", resilient.ErrRateLimited, ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{"WrappedRateLimited", fmt.Errorf("summary: %w", resilient.ErrRateLimited), ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{"ProviderFailure", &resilient.ProviderError{Provider: "groq", Attempts: 1, Err: cause}, ErrCodeLLMUnavailable, http.StatusBadGateway},
		{"Deadline", context.DeadlineExceeded, ErrCodeTimeout, http.StatusGatewayTimeout},
		{"Canceled", context.Canceled, ErrCodeContextCanceled, 499},
		{"AlreadyCoded", FailedPrecondition("no video loaded"), ErrCodeFailedPrecondition, http.StatusConflict},
		{"WrappedCoded", fmt.Errorf("load: %w", InvalidArgument("bad id")), ErrCodeInvalidArgument, http.StatusBadRequest},
		{"Unknown", cause, ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromCore(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus())
		})
	}

	assert.Nil(t, FromCore(nil))
}

func TestAIError(t *testing.T) {
	cause := stderrors.New("boom")
	err := LLMUnavailable("AI service failed to respond", cause).WithContext("provider", "groq")

	assert.Equal(t, "[LLM_UNAVAILABLE] AI service failed to respond: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "groq", err.Context["provider"])
	assert.True(t, IsCode(err, ErrCodeLLMUnavailable))
	assert.False(t, IsCode(cause, ErrCodeLLMUnavailable))

	assert.Equal(t, "[NOT_FOUND] transcript missing", NotFound("transcript missing", nil).Error())
	assert.Equal(t, http.StatusNotFound, NotFound("x", nil).HTTPStatus())
	assert.Equal(t, http.StatusTooManyRequests, RateLimitExceeded("slow down").HTTPStatus())
}
