package airtable

import (
	"errors"
	"testing"
	"time"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorClass
	}{
		{200, ""},
		{400, ErrorClassClient},
		{404, ErrorClassClient},
		{422, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.expected {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				Type:    TypeConnectionError,
				Message: "failed to connect to upstream",
				Class:   ErrorClassNetwork,
				Err:     errors.New("connection refused"),
			},
			expected: "airtable network error (status 0): CONNECTION_ERROR: failed to connect to upstream: connection refused",
		},
		{
			name: "error without wrapped error",
			apiError: &APIError{
				StatusCode: 404,
				Type:       "NOT_FOUND",
				Message:    "Not Found",
				Class:      ErrorClassClient,
			},
			expected: "airtable client error (status 404): NOT_FOUND: Not Found",
		},
		{
			name: "rate limit error",
			apiError: &APIError{
				StatusCode: 429,
				Type:       "TOO_MANY_REQUESTS",
				Class:      ErrorClassRateLimit,
			},
			expected: "airtable rate_limit error (status 429): TOO_MANY_REQUESTS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.apiError.Error()
			if result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	apiError := &APIError{
		Class: ErrorClassNetwork,
		Err:   wrappedErr,
	}

	if !errors.Is(apiError, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}
}

func TestAPIError_RetryAfter(t *testing.T) {
	if d := (&APIError{Class: ErrorClassServer}).RetryAfter(); d != 0 {
		t.Errorf("server error RetryAfter() = %v, want 0", d)
	}
	if d := (&APIError{Class: ErrorClassRateLimit}).RetryAfter(); d != LockoutPeriod {
		t.Errorf("rate limit RetryAfter() = %v, want %v", d, LockoutPeriod)
	}
	if d := (&APIError{Class: ErrorClassRateLimit, retryAfter: 3 * time.Second}).RetryAfter(); d != 3*time.Second {
		t.Errorf("rate limit with header RetryAfter() = %v, want 3s", d)
	}
}
