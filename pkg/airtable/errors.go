package airtable

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// LockoutPeriod is how long Airtable refuses requests after a 429.
const LockoutPeriod = 30 * time.Second

// ErrorClass represents a classification of upstream errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Error types used when the upstream body does not name one.
const (
	TypeConnectionError = "CONNECTION_ERROR"
	TypeUnexpectedError = "UNEXPECTED_ERROR"
)

// APIError is a failed list call with the detail Airtable reported.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Class      ErrorClass
	Err        error

	retryAfter time.Duration
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("airtable %s error (status %d): %s", e.Class, e.StatusCode, e.Type)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// RetryAfter returns the lockout period for rate limit errors and 0 otherwise.
func (e *APIError) RetryAfter() time.Duration {
	if e.Class != ErrorClassRateLimit {
		return 0
	}
	if e.retryAfter > 0 {
		return e.retryAfter
	}
	return LockoutPeriod
}

// classifyStatus categorizes an HTTP status code.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// defaultType names a status the way Airtable's own clients do when the body
// carries no error type.
func defaultType(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "AUTHENTICATION_REQUIRED"
	case http.StatusForbidden:
		return "NOT_AUTHORIZED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusRequestEntityTooLarge:
		return "REQUEST_TOO_LARGE"
	case http.StatusUnprocessableEntity:
		return "INVALID_REQUEST_UNKNOWN"
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case http.StatusInternalServerError:
		return "SERVER_ERROR"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return TypeUnexpectedError
	}
}

// errorBody matches both error shapes Airtable returns:
// {"error": {"type": "...", "message": "..."}} and {"error": "NOT_FOUND"}.
type errorBody struct {
	Error json.RawMessage `json:"error"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// newResponseError builds an APIError from a non-2xx response body.
func newResponseError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Class:      classifyStatus(resp.StatusCode),
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && len(eb.Error) > 0 {
		var detail errorDetail
		var name string
		switch {
		case json.Unmarshal(eb.Error, &detail) == nil:
			apiErr.Type = detail.Type
			apiErr.Message = detail.Message
		case json.Unmarshal(eb.Error, &name) == nil:
			apiErr.Type = name
		}
	}

	if apiErr.Type == "" {
		apiErr.Type = defaultType(resp.StatusCode)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	if apiErr.Class == ErrorClassRateLimit {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			apiErr.retryAfter = time.Duration(secs) * time.Second
		}
	}

	return apiErr
}

// newNetworkError wraps a transport failure.
func newNetworkError(err error) *APIError {
	return &APIError{
		Type:    TypeConnectionError,
		Message: "failed to connect to upstream",
		Class:   ErrorClassNetwork,
		Err:     err,
	}
}
