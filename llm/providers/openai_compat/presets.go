package openai_compat

import (
	"fmt"

	"github.com/hrayleung/jin-llm/llm"
)

// Preset is the endpoint layout of one OpenAI-compatible vendor.
type Preset struct {
	BaseURL     string
	ChatPath    string
	ModelsPath  string
	KeyOptional bool

	// EchoReasoning is set for vendors that reject tool-call turns without
	// their reasoning_content.
	EchoReasoning bool
}

var presets = map[llm.ProviderFamily]Preset{
	llm.FamilyOpenRouter: {BaseURL: "https://openrouter.ai/api/v1"},
	llm.FamilyGroq:       {BaseURL: "https://api.groq.com/openai/v1"},
	llm.FamilyMistral:    {BaseURL: "https://api.mistral.ai/v1"},
	llm.FamilyXAI:        {BaseURL: "https://api.x.ai/v1"},
	llm.FamilyTogether:   {BaseURL: "https://api.together.xyz/v1"},
	llm.FamilyFireworks:  {BaseURL: "https://api.fireworks.ai/inference/v1"},
	llm.FamilyCerebras:   {BaseURL: "https://api.cerebras.ai/v1"},
	llm.FamilyPerplexity: {BaseURL: "https://api.perplexity.ai"},
	llm.FamilyDeepSeek:   {BaseURL: "https://api.deepseek.com", EchoReasoning: true},
	llm.FamilyKimi:       {BaseURL: "https://api.moonshot.ai/v1"},
	llm.FamilyQwen:       {BaseURL: "https://dashscope-intl.aliyuncs.com/compatible-mode/v1"},
	llm.FamilyOllama:     {BaseURL: "http://localhost:11434/v1", KeyOptional: true},
}

// PresetFor returns the endpoint layout for family with default paths filled in.
func PresetFor(family llm.ProviderFamily) (Preset, bool) {
	pr, ok := presets[family]
	if !ok {
		return Preset{}, false
	}
	if pr.ChatPath == "" {
		pr.ChatPath = DefaultChatCompletionsPath
	}
	if pr.ModelsPath == "" {
		pr.ModelsPath = DefaultModelsPath
	}
	return pr, true
}

// Options turns the preset into provider options. Later options win.
func (pr Preset) Options(family llm.ProviderFamily) []Option {
	opts := []Option{
		WithFamily(family),
		WithBaseURL(pr.BaseURL),
		WithChatCompletionsPath(pr.ChatPath),
		WithModelsPath(pr.ModelsPath),
	}
	if pr.KeyOptional {
		opts = append(opts, WithOptionalAPIKey())
	}
	if pr.EchoReasoning {
		opts = append(opts, WithReasoningEcho())
	}
	return opts
}

// ForFamily returns a provider preconfigured for a known compatible vendor.
// FamilyOpenAICompatible has no preset; pass WithBaseURL.
func ForFamily(family llm.ProviderFamily, apiKey string, opts ...Option) (*Provider, error) {
	if family == llm.FamilyOpenAICompatible {
		return New(apiKey, append([]Option{WithFamily(family)}, opts...)...)
	}
	pr, ok := PresetFor(family)
	if !ok {
		return nil, fmt.Errorf("openai_compat: no preset for %q", family)
	}
	return New(apiKey, append(pr.Options(family), opts...)...)
}
