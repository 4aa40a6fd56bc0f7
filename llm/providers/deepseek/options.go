package deepseek

import (
	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/providers/openai_compat"
)

// Option configures the DeepSeek provider (client-level defaults).
type Option = openai_compat.Option

// Re-export common OpenAI-compatible options.
var (
	WithBaseURL             = openai_compat.WithBaseURL
	WithHTTPClient          = openai_compat.WithHTTPClient
	WithUserAgent           = openai_compat.WithUserAgent
	WithLogger              = openai_compat.WithLogger
	WithDefaultHeader       = openai_compat.WithDefaultHeader
	WithChatCompletionsPath = openai_compat.WithChatCompletionsPath
	WithDefaultControls     = openai_compat.WithDefaultControls
	WithHooks               = openai_compat.WithHooks
)

type ThinkingType string

const (
	ThinkingDisabled ThinkingType = "disabled"
	ThinkingEnabled  ThinkingType = "enabled"
)

// WithThinking sets the reasoning switch that DeepSeek sends as
// {"thinking": {"type": ...}}.
//
// Use it per request:
//
//	deepseek.WithThinking(deepseek.ThinkingDisabled)(&req.Controls)
//
// Or as a provider default:
//
//	deepseek.New(key, deepseek.WithDefaultControls(deepseek.WithThinking(...)))
func WithThinking(t ThinkingType) openai_compat.ControlsOption {
	return func(c *llm.GenerationControls) {
		c.Reasoning = &llm.ReasoningControls{Enabled: t == ThinkingEnabled}
	}
}

// WithDefaultThinking is WithDefaultControls(WithThinking(t)).
func WithDefaultThinking(t ThinkingType) Option {
	return WithDefaultControls(WithThinking(t))
}

func WithDefaultThinkingDisabled() Option { return WithDefaultThinking(ThinkingDisabled) }
func WithDefaultThinkingEnabled() Option  { return WithDefaultThinking(ThinkingEnabled) }
