// Package params maps canonical generation controls to and from the raw
// per-provider parameter document a user can edit by hand.
//
// Project renders the fields a family owns, in that family's wire names.
// Adapters send exactly this projection, so a draft always shows what goes
// on the wire. MakeDraft adds the provider-specific passthrough on top;
// ApplyDraft absorbs what it recognizes and hands back the rest.
package params

import (
	"encoding/json"
	"maps"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/resolve"
)

type codec interface {
	project(m llm.ResolvedModel, c llm.GenerationControls) map[string]any

	// absorb moves recognized fields from doc into c. doc is owned by the
	// caller and edited in place.
	absorb(m llm.ResolvedModel, doc map[string]any, c *llm.GenerationControls)

	owned() []string
}

func codecFor(family llm.ProviderFamily) codec {
	switch llm.ShapeFor(family) {
	case llm.ShapeOpenAIResponses:
		return openAICodec{}
	case llm.ShapeAnthropicMessages:
		return anthropicCodec{}
	case llm.ShapeGeminiGenerateContent:
		return geminiCodec{}
	default:
		return compatCodec{family: family}
	}
}

// Project returns the wire fields m's family owns for controls c.
// ProviderSpecific is not included.
func Project(m llm.ResolvedModel, c llm.GenerationControls) map[string]any {
	return codecFor(m.Family).project(m, c)
}

// Wire is Project after clamping c to what m supports. Adapters send this.
func Wire(m llm.ResolvedModel, c llm.GenerationControls) map[string]any {
	return Project(m, Normalize(m, c))
}

// Normalize clamps the reasoning effort to the model's supported tiers and
// makes the web search domain lists mutually exclusive.
func Normalize(m llm.ResolvedModel, c llm.GenerationControls) llm.GenerationControls {
	c = c.Clone()
	if c.Reasoning != nil && c.Reasoning.Effort != "" && m.Reasoning != nil {
		c.Reasoning.Effort = llm.ClampEffort(c.Reasoning.Effort, m.Reasoning.Efforts)
	}
	if c.WebSearch != nil {
		w := c.WebSearch.Normalize()
		c.WebSearch = &w
	}
	return c
}

// OwnedKeys lists the top-level keys the family's draft functions own.
func OwnedKeys(family llm.ProviderFamily) []string {
	return append([]string(nil), codecFor(family).owned()...)
}

// MakeDraft renders controls as the raw parameter document for modelID.
// Provider-specific entries are overlaid last and replace owned keys.
func MakeDraft(family llm.ProviderFamily, modelID string, controls llm.GenerationControls) map[string]any {
	m := resolve.Resolve(family, llm.ModelInfo{ID: modelID})
	doc := Project(m, controls)
	maps.Copy(doc, controls.ProviderSpecific)
	return normalizeJSON(doc)
}

// ApplyDraft absorbs doc into controls and returns the unrecognized
// remainder, which also becomes controls.ProviderSpecific.
//
// Canonical fields the family's draft represents are reset first, so a field
// deleted from the draft is cleared. Values that do not parse stay in the
// remainder and the canonical field stays unset.
func ApplyDraft(family llm.ProviderFamily, modelID string, doc map[string]any, controls *llm.GenerationControls) map[string]any {
	m := resolve.Resolve(family, llm.ModelInfo{ID: modelID})
	rest := normalizeJSON(doc)

	controls.Temperature = nil
	controls.TopP = nil
	controls.MaxTokens = nil
	controls.Reasoning = nil
	controls.WebSearch = nil
	controls.ContextCache = nil
	if m.Capabilities.Has(llm.CapImageGeneration) {
		controls.ImageGeneration = nil
	}
	if m.Capabilities.Has(llm.CapVideoGeneration) {
		controls.VideoGeneration = nil
	}

	codecFor(family).absorb(m, rest, controls)
	if len(rest) == 0 {
		controls.ProviderSpecific = nil
		return map[string]any{}
	}
	controls.ProviderSpecific = maps.Clone(rest)
	return rest
}

// normalizeJSON deep-copies v through encoding/json so every value has its
// decoded form: float64 numbers, []any arrays and map[string]any objects.
func normalizeJSON(v map[string]any) map[string]any {
	out := map[string]any{}
	if len(v) == 0 {
		return out
	}
	b, err := json.Marshal(v)
	if err != nil {
		return maps.Clone(v)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return maps.Clone(v)
	}
	return out
}
