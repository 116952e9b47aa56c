package remote

import "errors"

var (
	// ErrUnavailable indicates the remote server is unreachable.
	ErrUnavailable = errors.New("remote service unavailable")

	// ErrTimeout indicates the call exceeded its bounded wait. The
	// underlying request may still complete later.
	ErrTimeout = errors.New("remote call timed out")

	// ErrAuthRequired is the ledger's AUTH_REQUIRED sentinel: the session
	// expired and a re-authentication may recover it.
	ErrAuthRequired = errors.New("ledger session requires authentication")

	// ErrJiraAuthRequired indicates Jira rejected the credentials (401/403).
	// It is never retried automatically.
	ErrJiraAuthRequired = errors.New("jira authentication required")

	// ErrStatus indicates a non-success HTTP status that is not an auth error.
	ErrStatus = errors.New("unexpected remote status")

	// ErrInvalidResponse indicates the response body could not be decoded.
	ErrInvalidResponse = errors.New("invalid remote response")

	// ErrRetryExhausted indicates all retry attempts have been exhausted.
	ErrRetryExhausted = errors.New("remote retry attempts exhausted")
)

// IsTimeout reports whether err is a bounded-wait expiry.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// ErrorCode maps an error to the short code recorded on call events.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrAuthRequired):
		return "AUTH_REQUIRED"
	case errors.Is(err, ErrJiraAuthRequired):
		return "JIRA_AUTH_REQUIRED"
	case errors.Is(err, ErrInvalidResponse):
		return "INVALID_RESPONSE"
	case errors.Is(err, ErrStatus):
		return "STATUS"
	default:
		return "UNKNOWN"
	}
}
