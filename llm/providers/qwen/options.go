package qwen

import (
	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/providers/openai_compat"
)

type Option = openai_compat.Option

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

// WithThinking sends enable_thinking, and thinking_budget when budget > 0.
func WithThinking(enabled bool, budget int) openai_compat.ControlsOption {
	return func(c *llm.GenerationControls) {
		r := &llm.ReasoningControls{Enabled: enabled}
		if enabled && budget > 0 {
			r.BudgetTokens = llm.IntPtr(budget)
		}
		c.Reasoning = r
	}
}

// WithSearch turns on DashScope's built-in search (enable_search).
func WithSearch() openai_compat.ControlsOption {
	return func(c *llm.GenerationControls) {
		c.WebSearch = &llm.WebSearchControls{Enabled: true}
	}
}
