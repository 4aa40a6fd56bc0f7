package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/hrayleung/jin-llm/llm"
)

// MapError converts a transport failure into an *llm.LLMError. Vendor code
// and message are copied verbatim from the error envelope when one parses.
func MapError(family llm.ProviderFamily, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := llm.AsLLMError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &llm.LLMError{Provider: family, Kind: llm.ErrKindCanceled, Message: err.Error(), Cause: err}
	}

	var se *HTTPStatusError
	if errors.As(err, &se) {
		code, msg := ParseErrorEnvelope(se.Body)
		if msg == "" {
			msg = http.StatusText(se.StatusCode)
		}
		return &llm.LLMError{
			Provider:   family,
			Kind:       llm.ErrKindProvider,
			HTTPStatus: se.StatusCode,
			Code:       code,
			Message:    msg,
			Raw:        append([]byte(nil), se.Body...),
			Cause:      err,
		}
	}

	return &llm.LLMError{Provider: family, Kind: llm.ErrKindTransport, Message: err.Error(), Cause: err}
}

// ParseErrorEnvelope reads the error code and message out of the envelopes
// used by the supported vendors:
//
//	{"error":{"message":"...","code":"...","type":"..."}}   OpenAI and compatible
//	{"type":"error","error":{"type":"...","message":"..."}} Anthropic
//	{"error":{"code":400,"message":"...","status":"..."}}   Gemini
//	[{"error":{...}}]                                       Gemini streaming
func ParseErrorEnvelope(raw []byte) (code, message string) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return "", ""
	}
	root := gjson.ParseBytes(raw)
	if root.IsArray() {
		root = root.Get("0")
	}
	e := root.Get("error")
	if !e.Exists() {
		if m := root.Get("message"); m.Type == gjson.String {
			return root.Get("code").String(), m.String()
		}
		return "", ""
	}
	if e.Type == gjson.String {
		return "", e.String()
	}
	message = e.Get("message").String()
	for _, k := range []string{"code", "status", "type"} {
		if v := e.Get(k); v.Type == gjson.String && v.String() != "" {
			return v.String(), message
		}
	}
	// Numeric codes only when nothing symbolic is present.
	if v := e.Get("code"); v.Type == gjson.Number {
		return v.String(), message
	}
	return "", message
}
