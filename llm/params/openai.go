package params

import (
	"strconv"

	"github.com/hrayleung/jin-llm/llm"
)

// openAICodec covers the Responses API and the image and video endpoints.
type openAICodec struct{}

func (openAICodec) owned() []string {
	return []string{
		"temperature", "top_p", "max_output_tokens", "reasoning", "tools",
		"prompt_cache_key", "prompt_cache_retention",
		"size", "quality", "output_format", "n", "seconds",
	}
}

func (openAICodec) project(m llm.ResolvedModel, c llm.GenerationControls) map[string]any {
	out := map[string]any{}
	if m.Capabilities.Has(llm.CapImageGeneration) {
		if ig := c.ImageGeneration; ig != nil {
			putString(out, "size", ig.Size)
			putString(out, "quality", ig.Quality)
			putString(out, "output_format", ig.OutputFormat)
			putInt(out, "n", ig.Count)
		}
		return out
	}
	if m.Capabilities.Has(llm.CapVideoGeneration) {
		if vg := c.VideoGeneration; vg != nil {
			if vg.DurationSeconds != nil {
				out["seconds"] = strconv.Itoa(*vg.DurationSeconds)
			}
			putString(out, "size", vg.Size)
		}
		return out
	}

	// Reasoning models reject sampling knobs unless reasoning is off.
	samplingOK := !m.SupportsReasoning() ||
		(c.Reasoning != nil && !c.Reasoning.Enabled && m.ReasoningCanDisable)
	if samplingOK {
		putFloat(out, "temperature", c.Temperature)
		putFloat(out, "top_p", c.TopP)
	}
	putInt(out, "max_output_tokens", c.MaxTokens)

	if r := c.Reasoning; r != nil && m.SupportsReasoning() {
		switch {
		case r.Enabled:
			obj := map[string]any{}
			if eff := effortFor(m, r); eff != "" {
				obj["effort"] = string(eff)
			}
			if r.Summary != "" {
				obj["summary"] = string(r.Summary)
			}
			if len(obj) > 0 {
				out["reasoning"] = obj
			}
		case m.ReasoningCanDisable:
			out["reasoning"] = map[string]any{"effort": string(llm.EffortNone)}
		}
	}

	if c.WebSearchOn() && m.WebSearchSupported {
		w := c.WebSearch.Normalize()
		tool := map[string]any{"type": "web_search"}
		putString(tool, "search_context_size", string(w.ContextSize))
		if len(w.AllowedDomains) > 0 {
			tool["filters"] = map[string]any{"allowed_domains": stringsAny(w.AllowedDomains)}
		}
		out["tools"] = []any{tool}
	}

	if cc := c.ContextCache; cc != nil && cc.Mode != llm.CacheExplicit {
		putString(out, "prompt_cache_key", cc.Key)
		putString(out, "prompt_cache_retention", cc.TTL)
	}
	return out
}

func (openAICodec) absorb(m llm.ResolvedModel, doc map[string]any, c *llm.GenerationControls) {
	if m.Capabilities.Has(llm.CapImageGeneration) {
		var ig llm.ImageGenerationControls
		takeString(doc, "size", &ig.Size)
		takeString(doc, "quality", &ig.Quality)
		takeString(doc, "output_format", &ig.OutputFormat)
		takeInt(doc, "n", &ig.Count)
		if ig != (llm.ImageGenerationControls{}) {
			c.ImageGeneration = &ig
		}
		return
	}
	if m.Capabilities.Has(llm.CapVideoGeneration) {
		var vg llm.VideoGenerationControls
		switch v := doc["seconds"].(type) {
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				vg.DurationSeconds = llm.IntPtr(n)
				delete(doc, "seconds")
			}
		default:
			takeInt(doc, "seconds", &vg.DurationSeconds)
		}
		takeString(doc, "size", &vg.Size)
		if vg != (llm.VideoGenerationControls{}) {
			c.VideoGeneration = &vg
		}
		return
	}

	takeFloat(doc, "temperature", &c.Temperature)
	takeFloat(doc, "top_p", &c.TopP)
	takeInt(doc, "max_output_tokens", &c.MaxTokens)

	if obj, ok := asObject(doc["reasoning"]); ok {
		// summary is absorbed only next to an absent or recognized effort.
		_, pending := obj["effort"]
		if s, ok := asString(obj["effort"]); ok {
			if e, ok := llm.ParseReasoningEffort(s); ok {
				if e == llm.EffortNone {
					c.Reasoning = &llm.ReasoningControls{}
				} else {
					c.Reasoning = &llm.ReasoningControls{Enabled: true, Effort: e}
				}
				delete(obj, "effort")
				pending = false
			}
		}
		if s, ok := asString(obj["summary"]); ok && !pending {
			if sum, ok := parseSummary(s); ok {
				ensureReasoning(c).Summary = sum
				delete(obj, "summary")
			}
		}
		dropIfEmpty(doc, "reasoning")
	}

	takeTool(doc, func(tool map[string]any) bool {
		typ, _ := asString(tool["type"])
		if typ != "web_search" && typ != "web_search_preview" {
			return false
		}
		if !objectHasOnly(tool, "type", "search_context_size", "filters") {
			return false
		}
		w := llm.WebSearchControls{Enabled: true}
		if v, ok := tool["search_context_size"]; ok {
			s, _ := asString(v)
			size, ok := parseContextSize(s)
			if !ok {
				return false
			}
			w.ContextSize = size
		}
		if v, ok := tool["filters"]; ok {
			f, ok := asObject(v)
			if !ok || !objectHasOnly(f, "allowed_domains") {
				return false
			}
			if d, ok := f["allowed_domains"]; ok {
				domains, ok := asStrings(d)
				if !ok {
					return false
				}
				w.AllowedDomains = domains
			}
		}
		c.WebSearch = &w
		return true
	})

	var cc llm.ContextCacheControls
	takeString(doc, "prompt_cache_key", &cc.Key)
	takeString(doc, "prompt_cache_retention", &cc.TTL)
	if cc.Key != "" || cc.TTL != "" {
		cc.Mode = llm.CacheImplicit
		c.ContextCache = &cc
	}
}
