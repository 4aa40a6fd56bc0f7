package openai_compat

import (
	"net/http"

	"github.com/hrayleung/jin-llm/llm"
)

type Option func(*Provider) error

type Hooks struct {
	PatchHeaders func(h http.Header)

	// BeforeMap allows mutating a copy of the canonical request before
	// mapping. Implementations should only touch req.Controls.
	BeforeMap func(req *llm.Request)

	// PatchRequest allows mutating the final JSON request map. It runs before
	// the provider-specific overlay is applied.
	PatchRequest func(m map[string]any)
}

func WithHooks(h Hooks) Option {
	return func(p *Provider) error {
		prev := p.hooks
		p.hooks.PatchHeaders = chainHeaders(prev.PatchHeaders, h.PatchHeaders)
		p.hooks.BeforeMap = chainBeforeMap(prev.BeforeMap, h.BeforeMap)
		p.hooks.PatchRequest = chainPatchRequest(prev.PatchRequest, h.PatchRequest)
		return nil
	}
}

// ControlsOption edits generation controls.
type ControlsOption func(c *llm.GenerationControls)

// WithDefaultControls sets provider-level defaults. A control the request
// sets itself is left alone.
//
// This lets you reuse the same ControlsOption both:
// - as a client-level default (via provider.New(..., WithDefaultControls(...)))
// - per request (by calling it on req.Controls)
func WithDefaultControls(opts ...ControlsOption) Option {
	return WithHooks(Hooks{
		BeforeMap: func(req *llm.Request) {
			var defaults llm.GenerationControls
			for _, opt := range opts {
				if opt != nil {
					opt(&defaults)
				}
			}
			req.Controls = fillDefaults(req.Controls, defaults)
		},
	})
}

func fillDefaults(c, d llm.GenerationControls) llm.GenerationControls {
	c = c.Clone()
	d = d.Clone()
	if c.Temperature == nil {
		c.Temperature = d.Temperature
	}
	if c.TopP == nil {
		c.TopP = d.TopP
	}
	if c.MaxTokens == nil {
		c.MaxTokens = d.MaxTokens
	}
	if c.Reasoning == nil {
		c.Reasoning = d.Reasoning
	}
	if c.WebSearch == nil {
		c.WebSearch = d.WebSearch
	}
	if c.ContextCache == nil {
		c.ContextCache = d.ContextCache
	}
	for k, v := range d.ProviderSpecific {
		if _, ok := c.ProviderSpecific[k]; ok {
			continue
		}
		if c.ProviderSpecific == nil {
			c.ProviderSpecific = make(map[string]any, len(d.ProviderSpecific))
		}
		c.ProviderSpecific[k] = v
	}
	return c
}

func chainHeaders(a, b func(http.Header)) func(http.Header) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(h http.Header) {
		a(h)
		b(h)
	}
}

func chainBeforeMap(a, b func(*llm.Request)) func(*llm.Request) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(r *llm.Request) {
		a(r)
		b(r)
	}
}

func chainPatchRequest(a, b func(map[string]any)) func(map[string]any) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(m map[string]any) {
		a(m)
		b(m)
	}
}
