package openai_compat

import (
	"github.com/tidwall/gjson"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
)

// chunkError converts an error object delivered inside a 200 response, which
// several vendors do mid-stream.
func chunkError(family llm.ProviderFamily, raw []byte) error {
	code, msg := transport.ParseErrorEnvelope(raw)
	if msg == "" {
		msg = "stream reported an error"
	}
	e := llm.ProviderError(family, code, msg)
	e.Raw = append([]byte(nil), raw...)
	if status := gjson.GetBytes(raw, "error.code"); status.Type == gjson.Number {
		if n := int(status.Int()); n >= 400 && n < 600 {
			e.HTTPStatus = n
		}
	}
	return e
}

func withFamily(family llm.ProviderFamily, err error) error {
	if e, ok := llm.AsLLMError(err); ok && e.Provider == "" {
		e.Provider = family
	}
	return err
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
