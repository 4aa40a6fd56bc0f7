package deepseek

import (
	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/providers/openai_compat"
)

const (
	DefaultBaseURL             = "https://api.deepseek.com"
	DefaultChatCompletionsPath = openai_compat.DefaultChatCompletionsPath
)

// New returns a DeepSeek provider.
//
// DeepSeek advertises OpenAI-compatibility. The differences (the thinking
// switch, reasoning_content echo on tool-call turns, prompt_cache_hit_tokens)
// are handled by the compat preset.
func New(apiKey string, opts ...Option) (*openai_compat.Provider, error) {
	return openai_compat.ForFamily(llm.FamilyDeepSeek, apiKey, opts...)
}
