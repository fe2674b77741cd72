package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of LLM error
type ErrorType string

const (
	ErrorTypeUnknown           ErrorType = "unknown"
	ErrorTypeInvalidRequest    ErrorType = "invalid_request"
	ErrorTypeAuthentication    ErrorType = "authentication_error"
	ErrorTypePermission        ErrorType = "permission_error"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeRateLimit         ErrorType = "rate_limit_exceeded"
	ErrorTypeInsufficientQuota ErrorType = "insufficient_quota"
	ErrorTypeInvalidModel      ErrorType = "invalid_model"
	ErrorTypeContextLength     ErrorType = "context_length_exceeded"
	ErrorTypeServerError       ErrorType = "server_error"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeConnectionError   ErrorType = "connection_error"
)

// LLMError represents an error from an LLM provider
type LLMError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`
	Provider   Provider  `json:"provider"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	RetryAfter int       `json:"retry_after,omitempty"` // Seconds to wait before retry
	Cause      error     `json:"-"`
}

func (e *LLMError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error is retryable
func (e *LLMError) IsRetryable() bool {
	return e.Retryable
}

// NewLLMError creates a new LLM error
func NewLLMError(provider Provider, errorType ErrorType, message string) *LLMError {
	return &LLMError{
		Type:      errorType,
		Message:   message,
		Provider:  provider,
		Retryable: isRetryableError(errorType),
	}
}

// NewLLMErrorWithCause creates a new LLM error with an underlying cause
func NewLLMErrorWithCause(provider Provider, errorType ErrorType, message string, cause error) *LLMError {
	err := NewLLMError(provider, errorType, message)
	err.Cause = cause
	return err
}

func isRetryableError(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeTimeout, ErrorTypeConnectionError:
		return true
	}
	return false
}

type statusClass struct {
	typ ErrorType
	msg string
}

var statusClasses = map[int]statusClass{
	http.StatusBadRequest:          {ErrorTypeInvalidRequest, "Invalid request parameters"},
	http.StatusUnauthorized:        {ErrorTypeAuthentication, "Invalid API key or authentication failed"},
	http.StatusForbidden:           {ErrorTypePermission, "Permission denied"},
	http.StatusNotFound:            {ErrorTypeNotFound, "Resource not found"},
	http.StatusTooManyRequests:     {ErrorTypeRateLimit, "Rate limit exceeded"},
	http.StatusInternalServerError: {ErrorTypeServerError, "Server error occurred"},
	http.StatusBadGateway:          {ErrorTypeServerError, "Server error occurred"},
	http.StatusServiceUnavailable:  {ErrorTypeServerError, "Server error occurred"},
	http.StatusGatewayTimeout:      {ErrorTypeServerError, "Server error occurred"},
}

// bodyRules refine a status-based classification from the provider's error
// text. The first rule whose every keyword group matches wins; a group
// matches when any of its keywords appears.
var bodyRules = []struct {
	groups [][]string
	class  statusClass
}{
	{[][]string{{"rate limit", "too many requests"}}, statusClass{ErrorTypeRateLimit, "Rate limit exceeded"}},
	{[][]string{{"insufficient quota", "quota exceeded"}}, statusClass{ErrorTypeInsufficientQuota, "Insufficient quota or credits"}},
	{[][]string{{"context length", "token limit"}}, statusClass{ErrorTypeContextLength, "Context length exceeded"}},
	{[][]string{{"model"}, {"not found", "decommissioned"}}, statusClass{ErrorTypeInvalidModel, "Invalid or unavailable model"}},
}

// ParseHTTPError classifies a failed provider response.
func ParseHTTPError(provider Provider, statusCode int, body string) *LLMError {
	class, ok := statusClasses[statusCode]
	if !ok {
		class = statusClass{ErrorTypeUnknown, fmt.Sprintf("HTTP %d error", statusCode)}
	}
	msg := class.msg
	if body != "" {
		if refined, ok := classifyBody(body); ok {
			class, msg = refined, refined.msg
		} else {
			msg = fmt.Sprintf("%s: %s", msg, truncateBody(body, 200))
		}
	}
	err := NewLLMError(provider, class.typ, msg)
	err.HTTPStatus = statusCode
	return err
}

func classifyBody(body string) (statusClass, bool) {
	lower := strings.ToLower(body)
rules:
	for _, r := range bodyRules {
		for _, group := range r.groups {
			if !containsAny(lower, group) {
				continue rules
			}
		}
		return r.class, true
	}
	return statusClass{}, false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncateBody(body string, n int) string {
	if r := []rune(body); len(r) > n {
		return string(r[:n]) + "..."
	}
	return body
}

// IsLLMError unwraps err to its *LLMError, if any.
func IsLLMError(err error) (*LLMError, bool) {
	var le *LLMError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// IsRetryableError reports whether err is a transient provider failure.
func IsRetryableError(err error) bool {
	le, ok := IsLLMError(err)
	return ok && isRetryableError(le.Type)
}

// IsAuthenticationError reports whether the provider rejected the API key.
func IsAuthenticationError(err error) bool {
	le, ok := IsLLMError(err)
	return ok && le.Type == ErrorTypeAuthentication
}
