package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error_WithStatusCode(t *testing.T) {
	err := &Error{
		Type:       ErrorTypeOutage,
		Message:    "server error",
		StatusCode: 503,
	}

	result := err.Error()
	if !strings.Contains(result, "HTTP 503") {
		t.Errorf("expected error message to contain 'HTTP 503', got: %s", result)
	}
	if !strings.Contains(result, "server error") {
		t.Errorf("expected error message to contain 'server error', got: %s", result)
	}
}

func TestError_Error_WithModel(t *testing.T) {
	err := &Error{
		Type:    ErrorTypeOutage,
		Message: "rate limited",
		Model:   "gpt-4o",
	}

	result := err.Error()
	if !strings.Contains(result, "model=gpt-4o") {
		t.Errorf("expected error message to contain 'model=gpt-4o', got: %s", result)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewError(ErrorTypeOutage, "wrapped", true, cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find the cause")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{
			name:          "unauthorized",
			err:           fmt.Errorf("status code 401: unauthorized"),
			wantType:      ErrorTypeAuth,
			wantRetryable: false,
		},
		{
			name:          "invalid api key",
			err:           fmt.Errorf("invalid API key provided"),
			wantType:      ErrorTypeAuth,
			wantRetryable: false,
		},
		{
			name:          "deadline exceeded",
			err:           context.DeadlineExceeded,
			wantType:      ErrorTypeTimeout,
			wantRetryable: true,
		},
		{
			name:          "rate limited",
			err:           fmt.Errorf("status code 429: rate limit exceeded"),
			wantType:      ErrorTypeOutage,
			wantRetryable: true,
		},
		{
			name:          "quota exceeded",
			err:           fmt.Errorf("you have exceeded your quota"),
			wantType:      ErrorTypeOutage,
			wantRetryable: true,
		},
		{
			name:          "connection refused",
			err:           fmt.Errorf("dial tcp: connection refused"),
			wantType:      ErrorTypeOutage,
			wantRetryable: true,
		},
		{
			name:          "server error",
			err:           fmt.Errorf("status code 503: service unavailable"),
			wantType:      ErrorTypeOutage,
			wantRetryable: true,
		},
		{
			name:          "unknown",
			err:           fmt.Errorf("something odd happened"),
			wantType:      ErrorTypeUnknown,
			wantRetryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(tt.err)
			if classified.Type != tt.wantType {
				t.Errorf("expected type %s, got %s", tt.wantType, classified.Type)
			}
			if classified.Retryable != tt.wantRetryable {
				t.Errorf("expected retryable=%v, got %v", tt.wantRetryable, classified.Retryable)
			}
		})
	}
}

func TestClassifyError_PassesThroughExisting(t *testing.T) {
	orig := NewError(ErrorTypeParse, "bad JSON", false, nil)
	classified := ClassifyError(fmt.Errorf("wrapped: %w", orig))
	if classified != orig {
		t.Errorf("expected existing *Error to pass through unchanged")
	}
}

func TestIsOutage(t *testing.T) {
	if !IsOutage(NewError(ErrorTypeOutage, "down", true, nil)) {
		t.Errorf("outage errors should be outages")
	}
	if !IsOutage(NewError(ErrorTypeTimeout, "slow", true, nil)) {
		t.Errorf("timeout errors should count as outages")
	}
	if IsOutage(NewError(ErrorTypeParse, "bad JSON", false, nil)) {
		t.Errorf("parse errors are not outages")
	}
	if IsOutage(errors.New("plain error")) {
		t.Errorf("unclassified errors are not outages")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewError(ErrorTypeOutage, "down", true, nil)) {
		t.Errorf("expected retryable")
	}
	if IsRetryable(errors.New("plain error")) {
		t.Errorf("plain errors are not retryable")
	}
}
