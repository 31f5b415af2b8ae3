// Package classify maps an arbitrary provider failure to the seven-valued
// ErrorType taxonomy, following the priority order in the orchestration
// error-handling design: transport kind first, then HTTP status, then a
// case-insensitive substring scan of the message, defaulting to unknown.
package classify

import (
	"context"
	"errors"
	"net"
	"strings"

	horuserrors "horus/internal/errors"
)

var quotaPatterns = []string{"quota", "rate limit", "too many requests"}
var authPatterns = []string{"unauthorized", "forbidden", "invalid api key"}
var unsupportedPatterns = []string{"unsupported", "not implemented"}
var transientPatterns = []string{"temporarily", "try again", "timeout"}

// Exception classifies a raised error from a provider adapter. A
// *horuserrors.ProviderError that already carries a StatusCode is resolved
// via StatusCode; one that already carries a non-unknown ErrorType is
// returned as-is. Context deadline/cancel and net.Error timeouts map to
// timeout; any other network-level failure with no status maps to
// server_down.
func Exception(err error) *horuserrors.ProviderError {
	var perr *horuserrors.ProviderError
	if errors.As(err, &perr) {
		if perr.StatusCode != 0 {
			return &horuserrors.ProviderError{
				Message:    perr.Message,
				ErrorType:  StatusCode(perr.StatusCode),
				StatusCode: perr.StatusCode,
			}
		}
		if perr.ErrorType != "" && perr.ErrorType != horuserrors.ErrorUnknown {
			return perr
		}
		return &horuserrors.ProviderError{Message: perr.Message, ErrorType: horuserrors.ErrorUnknown}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &horuserrors.ProviderError{Message: err.Error(), ErrorType: horuserrors.ErrorTimeout}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &horuserrors.ProviderError{Message: err.Error(), ErrorType: horuserrors.ErrorTimeout}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &horuserrors.ProviderError{Message: err.Error(), ErrorType: horuserrors.ErrorServerDown}
	}

	return &horuserrors.ProviderError{Message: err.Error(), ErrorType: horuserrors.ErrorUnknown}
}

// StatusCode classifies an HTTP response status code.
func StatusCode(status int) horuserrors.ErrorType {
	switch status {
	case 401, 403:
		return horuserrors.ErrorAuth
	case 404, 405, 422:
		return horuserrors.ErrorUnsupported
	case 429:
		return horuserrors.ErrorQuota
	case 408, 500, 502, 503, 504:
		return horuserrors.ErrorTransient
	}
	if status >= 500 {
		return horuserrors.ErrorServerDown
	}
	return horuserrors.ErrorUnknown
}

// Message re-classifies an error by scanning its text for known substrings,
// in the documented priority order: quota, auth, unsupported, transient.
// Used when the transport/status classification above bottoms out at
// unknown.
func Message(message string) horuserrors.ErrorType {
	if message == "" {
		return horuserrors.ErrorUnknown
	}
	lower := strings.ToLower(message)
	for _, p := range quotaPatterns {
		if strings.Contains(lower, p) {
			return horuserrors.ErrorQuota
		}
	}
	for _, p := range authPatterns {
		if strings.Contains(lower, p) {
			return horuserrors.ErrorAuth
		}
	}
	for _, p := range unsupportedPatterns {
		if strings.Contains(lower, p) {
			return horuserrors.ErrorUnsupported
		}
	}
	for _, p := range transientPatterns {
		if strings.Contains(lower, p) {
			return horuserrors.ErrorTransient
		}
	}
	return horuserrors.ErrorUnknown
}
