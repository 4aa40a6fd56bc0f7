package kimi

import (
	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/providers/openai_compat"
)

const (
	DefaultBaseURL = "https://api.moonshot.ai/v1"

	// ChinaBaseURL serves keys issued on the mainland platform.
	ChinaBaseURL = "https://api.moonshot.cn/v1"
)

// New returns a Kimi (Moonshot) provider.
//
// Kimi provides an OpenAI-compatible API. Its thinking models reason on
// their own, so no reasoning field is ever sent.
func New(apiKey string, opts ...Option) (*openai_compat.Provider, error) {
	return openai_compat.ForFamily(llm.FamilyKimi, apiKey, opts...)
}
