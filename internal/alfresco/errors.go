package alfresco

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Stable dispatch error codes. UI and logging layers branch on these instead
// of parsing messages.
const (
	CodeInvalidMethodFormat = "INVALID_METHOD_FORMAT"
	CodeUnknownNamespace    = "UNKNOWN_NAMESPACE"
	CodeMethodNotFound      = "METHOD_NOT_FOUND"
	CodeInvalidArgs         = "INVALID_ARGS"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeNotFound            = "NOT_FOUND"
	CodeServerError         = "SERVER_ERROR"
	CodeNetworkError        = "NETWORK_ERROR"
	CodeTimeout             = "TIMEOUT"
	CodeUnknown             = "UNKNOWN_ERROR"
)

// Error is the normalized shape every dispatch failure is mapped to.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// NewError builds a normalized error with a stable code.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatusError is a raw non-2xx response from a downstream server, before
// normalization.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// Normalize maps an arbitrary error to a stable {code, message, details}
// shape. It is the single chokepoint through which all dispatch failures are
// surfaced to callers.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		code := CodeServerError
		switch statusErr.StatusCode {
		case 401:
			code = CodeUnauthorized
		case 403:
			code = CodePermissionDenied
		case 404:
			code = CodeNotFound
		}
		return &Error{
			Code:    code,
			Message: fmt.Sprintf("remote server returned %d", statusErr.StatusCode),
			Details: map[string]any{"status": statusErr.StatusCode, "body": statusErr.Body, "url": statusErr.URL},
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeTimeout, Message: "request timed out"}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return &Error{Code: CodeTimeout, Message: "request timed out"}
		}
		return &Error{Code: CodeNetworkError, Message: urlErr.Error()}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Code: CodeNetworkError, Message: netErr.Error()}
	}

	return &Error{Code: CodeUnknown, Message: err.Error()}
}

// NormalizeBaseURL strips a trailing slash and a trailing repository context
// segment so equivalent base URLs key the same cache entry.
func NormalizeBaseURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	u = strings.TrimSuffix(u, "/"+contextSegment)
	return u
}
