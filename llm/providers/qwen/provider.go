package qwen

import (
	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/providers/openai_compat"
)

const (
	DefaultBaseURL = "https://dashscope-intl.aliyuncs.com/compatible-mode/v1"

	// ChinaBaseURL serves keys issued in the Beijing region.
	ChinaBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
)

// New returns a Qwen (DashScope) provider using OpenAI-compatible mode.
func New(apiKey string, opts ...Option) (*openai_compat.Provider, error) {
	return openai_compat.ForFamily(llm.FamilyQwen, apiKey, opts...)
}
