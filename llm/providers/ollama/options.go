package ollama

import (
	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/providers/openai_compat"
)

type Option = openai_compat.Option

var (
	WithBaseURL         = openai_compat.WithBaseURL
	WithHTTPClient      = openai_compat.WithHTTPClient
	WithUserAgent       = openai_compat.WithUserAgent
	WithLogger          = openai_compat.WithLogger
	WithDefaultHeader   = openai_compat.WithDefaultHeader
	WithDefaultControls = openai_compat.WithDefaultControls
	WithHooks           = openai_compat.WithHooks
)

// WithThink sets Ollama's think field. An empty effort sends a plain bool;
// models that take levels (gpt-oss) get the effort string.
func WithThink(enabled bool, effort llm.ReasoningEffort) openai_compat.ControlsOption {
	return func(c *llm.GenerationControls) {
		c.Reasoning = &llm.ReasoningControls{Enabled: enabled, Effort: effort}
	}
}
