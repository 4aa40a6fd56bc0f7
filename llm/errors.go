package llm

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrKindInvalidRequest    ErrorKind = "invalid_request"
	ErrKindMissingCredential ErrorKind = "missing_credential"
	ErrKindProvider          ErrorKind = "provider"
	ErrKindTransport         ErrorKind = "transport"
	ErrKindDecode            ErrorKind = "decode"
	ErrKindCanceled          ErrorKind = "canceled"
)

// LLMError is the single error type surfaced by adapters.
//
// Code and Message carry the vendor's original values verbatim when the
// vendor supplied them.
type LLMError struct {
	Provider ProviderFamily
	Kind     ErrorKind

	HTTPStatus int
	Code       string
	Message    string

	// Raw is an optional raw error payload (e.g. the HTTP response body).
	Raw []byte

	Cause error
}

func (e *LLMError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	if e.Provider != "" {
		return fmt.Sprintf("llm %s: %s", e.Provider, msg)
	}
	return fmt.Sprintf("llm: %s", msg)
}

func (e *LLMError) Unwrap() error { return e.Cause }

func AsLLMError(err error) (*LLMError, bool) {
	var e *LLMError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ProviderError builds a structured vendor failure.
func ProviderError(family ProviderFamily, code, message string) *LLMError {
	return &LLMError{Provider: family, Kind: ErrKindProvider, Code: code, Message: message}
}

func InvalidRequest(family ProviderFamily, format string, args ...any) *LLMError {
	return &LLMError{Provider: family, Kind: ErrKindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func MissingCredential(family ProviderFamily) *LLMError {
	return &LLMError{Provider: family, Kind: ErrKindMissingCredential, Message: "api key is required"}
}

func DecodeError(family ProviderFamily, raw []byte, cause error) *LLMError {
	return &LLMError{Provider: family, Kind: ErrKindDecode, Message: "failed to decode response", Raw: raw, Cause: cause}
}
