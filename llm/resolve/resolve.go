// Package resolve merges a stored model record, its user overrides and the
// capability registry into the llm.ResolvedModel adapters work from.
package resolve

import (
	"slices"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/capability"
)

// Resolver is stateless apart from the registry it reads.
type Resolver struct {
	Registry *capability.Registry
}

// Default resolves against the embedded capability tables.
func Default() Resolver { return Resolver{Registry: capability.Default()} }

// Resolve is Default().Resolve.
func Resolve(family llm.ProviderFamily, info llm.ModelInfo) llm.ResolvedModel {
	return Default().Resolve(family, info)
}

// Resolve computes the effective model.
//
// Stored fields win over registry facts, and every non-nil override replaces
// the resolved field outright. A model without the reasoning capability
// never carries a reasoning config. The request shape depends on family alone.
func (r Resolver) Resolve(family llm.ProviderFamily, info llm.ModelInfo) llm.ResolvedModel {
	reg := r.Registry
	if reg == nil {
		reg = capability.Default()
	}
	facts := reg.Lookup(family, info.ID)

	out := llm.ResolvedModel{
		ID:                  info.ID,
		Family:              family,
		Capabilities:        slices.Clone(facts.Capabilities),
		ContextWindow:       facts.ContextWindow,
		MaxOutputTokens:     facts.MaxOutputTokens,
		Reasoning:           facts.Reasoning.Clone(),
		ReasoningCanDisable: facts.ReasoningCanDisable,
		WebSearchSupported:  facts.WebSearch,
		RequestShape:        llm.ShapeFor(family),
	}

	if len(info.Capabilities) > 0 {
		out.Capabilities = slices.Clone(info.Capabilities)
	}
	if info.ContextWindow > 0 {
		out.ContextWindow = info.ContextWindow
	}
	if info.MaxOutputTokens > 0 {
		out.MaxOutputTokens = info.MaxOutputTokens
	}
	if info.Reasoning != nil {
		out.Reasoning = info.Reasoning.Clone()
	}

	ov := info.Overrides
	if ov == nil || ov.ContextWindow == nil {
		out.ContextWindow = reg.CorrectContextWindow(info.ID, out.ContextWindow)
	}
	if ov != nil {
		if ov.Capabilities != nil {
			out.Capabilities = slices.Clone(*ov.Capabilities)
		}
		if ov.Reasoning != nil {
			out.Reasoning = ov.Reasoning.Clone()
		}
		if ov.ContextWindow != nil {
			out.ContextWindow = *ov.ContextWindow
		}
		if ov.MaxOutputTokens != nil {
			out.MaxOutputTokens = *ov.MaxOutputTokens
		}
		if ov.ReasoningCanDisable != nil {
			out.ReasoningCanDisable = *ov.ReasoningCanDisable
		}
		if ov.WebSearchSupported != nil {
			out.WebSearchSupported = *ov.WebSearchSupported
		}
	}

	if !out.Capabilities.Has(llm.CapReasoning) {
		out.Reasoning = nil
		out.ReasoningCanDisable = false
	}
	return out
}

// For returns an llm.ModelResolver bound to family, for llm.New.
func (r Resolver) For(family llm.ProviderFamily) llm.ModelResolver {
	return func(info llm.ModelInfo) llm.ResolvedModel { return r.Resolve(family, info) }
}
