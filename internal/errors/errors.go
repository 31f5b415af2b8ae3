// Package errors defines the two user-facing error domains: configuration
// errors (surfaced from load/validate, never crash the running server) and
// provider errors (never surfaced to callers, always recorded as an
// AttemptRecord and consumed by the attempt loop).
package errors

import "fmt"

// ErrorType is the seven-valued classification every provider failure is
// mapped to by internal/classify.
type ErrorType string

const (
	ErrorTimeout     ErrorType = "timeout"
	ErrorQuota       ErrorType = "quota"
	ErrorAuth        ErrorType = "auth"
	ErrorTransient   ErrorType = "transient"
	ErrorUnsupported ErrorType = "unsupported"
	ErrorServerDown  ErrorType = "server_down"
	ErrorUnknown     ErrorType = "unknown"
)

// ProviderError is raised by a provider adapter and carries the
// classification the adapter itself already knows (e.g. a non-2xx HTTP
// status). When an adapter returns a plain error instead, the classifier
// derives the ErrorType from the transport failure kind or the message.
type ProviderError struct {
	Message    string
	ErrorType  ErrorType
	StatusCode int
}

func (e *ProviderError) Error() string {
	return e.Message
}

// NewProviderError builds a classified provider failure.
func NewProviderError(errType ErrorType, format string, args ...interface{}) *ProviderError {
	return &ProviderError{Message: fmt.Sprintf(format, args...), ErrorType: errType}
}

// NewHTTPStatusError builds a provider failure carrying the HTTP status
// code that produced it, for internal/classify to map.
func NewHTTPStatusError(statusCode int, format string, args ...interface{}) *ProviderError {
	return &ProviderError{Message: fmt.Sprintf(format, args...), ErrorType: ErrorUnknown, StatusCode: statusCode}
}

// ConfigError signals a structurally invalid or missing configuration
// document. It names the offending file so operators can fix it without
// attaching a debugger.
type ConfigError struct {
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// NewConfigError builds a ConfigError for the given file.
func NewConfigError(path, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Path: path, Message: fmt.Sprintf(format, args...)}
}
