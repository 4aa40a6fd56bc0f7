package llm

import (
	"context"
	"slices"
)

// ProviderFamily identifies a vendor API family. The set is closed: adapter
// selection is a single table lookup over these values.
type ProviderFamily string

const (
	FamilyOpenAI           ProviderFamily = "openai"
	FamilyAnthropic        ProviderFamily = "anthropic"
	FamilyGemini           ProviderFamily = "gemini"
	FamilyOpenRouter       ProviderFamily = "openrouter"
	FamilyGroq             ProviderFamily = "groq"
	FamilyMistral          ProviderFamily = "mistral"
	FamilyXAI              ProviderFamily = "xai"
	FamilyTogether         ProviderFamily = "together"
	FamilyFireworks        ProviderFamily = "fireworks"
	FamilyCerebras         ProviderFamily = "cerebras"
	FamilyPerplexity       ProviderFamily = "perplexity"
	FamilyDeepSeek         ProviderFamily = "deepseek"
	FamilyKimi             ProviderFamily = "kimi"
	FamilyQwen             ProviderFamily = "qwen"
	FamilyOllama           ProviderFamily = "ollama"
	FamilyOpenAICompatible ProviderFamily = "openai_compatible"
)

// Families lists every known provider family.
func Families() []ProviderFamily {
	return []ProviderFamily{
		FamilyOpenAI, FamilyAnthropic, FamilyGemini,
		FamilyOpenRouter, FamilyGroq, FamilyMistral, FamilyXAI, FamilyTogether, FamilyFireworks,
		FamilyCerebras, FamilyPerplexity, FamilyDeepSeek, FamilyKimi, FamilyQwen, FamilyOllama,
		FamilyOpenAICompatible,
	}
}

func ParseFamily(s string) (ProviderFamily, bool) {
	f := ProviderFamily(s)
	return f, slices.Contains(Families(), f)
}

// RequestShape names the wire protocol an adapter speaks.
type RequestShape string

const (
	ShapeOpenAIResponses       RequestShape = "openai_responses"
	ShapeAnthropicMessages     RequestShape = "anthropic_messages"
	ShapeGeminiGenerateContent RequestShape = "gemini_generate_content"
	ShapeOpenAICompatible      RequestShape = "openai_compatible"
)

// ShapeFor resolves the wire shape from the provider family alone.
func ShapeFor(f ProviderFamily) RequestShape {
	switch f {
	case FamilyOpenAI:
		return ShapeOpenAIResponses
	case FamilyAnthropic:
		return ShapeAnthropicMessages
	case FamilyGemini:
		return ShapeGeminiGenerateContent
	default:
		return ShapeOpenAICompatible
	}
}

type Capability string

const (
	CapStreaming       Capability = "streaming"
	CapToolCalling     Capability = "tool_calling"
	CapVision          Capability = "vision"
	CapReasoning       Capability = "reasoning"
	CapNativePDF       Capability = "native_pdf"
	CapImageGeneration Capability = "image_generation"
	CapVideoGeneration Capability = "video_generation"
	CapAudio           Capability = "audio"
)

type CapabilitySet []Capability

func (s CapabilitySet) Has(c Capability) bool { return slices.Contains(s, c) }

type ReasoningType string

const (
	ReasoningTypeNone   ReasoningType = "none"
	ReasoningTypeEffort ReasoningType = "effort"
	ReasoningTypeBudget ReasoningType = "budget"
)

// ReasoningConfig describes how a model exposes reasoning controls.
type ReasoningConfig struct {
	Type          ReasoningType     `json:"type" yaml:"type"`
	DefaultEffort ReasoningEffort   `json:"default_effort,omitempty" yaml:"default_effort"`
	Efforts       []ReasoningEffort `json:"efforts,omitempty" yaml:"efforts"`
	DefaultBudget int               `json:"default_budget,omitempty" yaml:"default_budget"`
}

func (r *ReasoningConfig) Clone() *ReasoningConfig {
	if r == nil {
		return nil
	}
	out := *r
	out.Efforts = slices.Clone(r.Efforts)
	return &out
}

// ModelInfo is the stored model record owned by the persistence collaborator.
type ModelInfo struct {
	ID              string           `json:"id"`
	Name            string           `json:"name,omitempty"`
	Capabilities    CapabilitySet    `json:"capabilities,omitempty"`
	ContextWindow   int              `json:"context_window,omitempty"`
	MaxOutputTokens int              `json:"max_output_tokens,omitempty"`
	Reasoning       *ReasoningConfig `json:"reasoning,omitempty"`
	Overrides       *ModelOverrides  `json:"overrides,omitempty"`
}

// ModelOverrides are per-model user overrides. A non-nil field fully replaces
// the corresponding resolved field.
type ModelOverrides struct {
	Capabilities        *CapabilitySet   `json:"capabilities,omitempty"`
	Reasoning           *ReasoningConfig `json:"reasoning,omitempty"`
	ContextWindow       *int             `json:"context_window,omitempty"`
	MaxOutputTokens     *int             `json:"max_output_tokens,omitempty"`
	ReasoningCanDisable *bool            `json:"reasoning_can_disable,omitempty"`
	WebSearchSupported  *bool            `json:"web_search_supported,omitempty"`
}

// ResolvedModel is the effective configuration an adapter works from.
// It is derived on demand and never persisted.
type ResolvedModel struct {
	ID                  string
	Family              ProviderFamily
	Capabilities        CapabilitySet
	ContextWindow       int
	MaxOutputTokens     int
	Reasoning           *ReasoningConfig
	ReasoningCanDisable bool
	WebSearchSupported  bool
	RequestShape        RequestShape
}

// SupportsReasoning reports whether reasoning controls apply to this model.
func (m ResolvedModel) SupportsReasoning() bool {
	return m.Capabilities.Has(CapReasoning) && m.Reasoning != nil
}

// Request is the canonical input of one generation call.
type Request struct {
	Model    ResolvedModel
	Messages []Message
	Controls GenerationControls
	Tools    []ToolDefinition
	Stream   bool
}

// Adapter translates canonical requests to one provider family's wire protocol.
//
// Implementations are expected to:
// - treat Request as read-only
// - return an *LLMError (or wrap one) for every failure
// - honor ctx cancellation for the whole life of the returned Stream
type Adapter interface {
	SendMessage(ctx context.Context, req Request) (Stream, error)
	FetchAvailableModels(ctx context.Context) ([]ModelInfo, error)
	ValidateAPIKey(ctx context.Context, key string) (bool, error)
}

// FamilyNamer is an optional interface for discovering which family an
// Adapter instance is backed by.
type FamilyNamer interface {
	Family() ProviderFamily
}

func FamilyOf(a Adapter) (ProviderFamily, bool) {
	if n, ok := a.(FamilyNamer); ok && n.Family() != "" {
		return n.Family(), true
	}
	return "", false
}
