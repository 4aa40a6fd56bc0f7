package kimi

import "github.com/hrayleung/jin-llm/llm/providers/openai_compat"

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
