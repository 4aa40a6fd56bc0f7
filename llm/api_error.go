package llm

import (
	"net/http"
	"strings"
)

// IsRateLimit reports whether err is a vendor rate-limit rejection.
func IsRateLimit(err error) bool {
	e, ok := AsLLMError(err)
	if !ok || e.Kind != ErrKindProvider {
		return false
	}
	if e.HTTPStatus == http.StatusTooManyRequests {
		return true
	}
	code := strings.ToLower(strings.TrimSpace(e.Code))
	return code == "rate_limit" || code == "rate_limit_exceeded" || code == "rate_limit_error"
}

// IsAuth reports whether err is an authentication/authorization rejection.
func IsAuth(err error) bool {
	e, ok := AsLLMError(err)
	if !ok {
		return false
	}
	if e.Kind == ErrKindMissingCredential {
		return true
	}
	return e.HTTPStatus == http.StatusUnauthorized || e.HTTPStatus == http.StatusForbidden
}

// IsTemporary classifies err as worth retrying by the caller. Nothing in
// this module retries on its own.
func IsTemporary(err error) bool {
	e, ok := AsLLMError(err)
	if !ok {
		return false
	}
	if e.Kind == ErrKindTransport {
		return true
	}
	switch e.HTTPStatus {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
