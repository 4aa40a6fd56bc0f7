package params

import (
	"strings"

	"github.com/hrayleung/jin-llm/llm"
)

// compatCodec covers the Chat Completions dialects. Families differ mostly
// in how they spell reasoning and web search.
type compatCodec struct {
	family llm.ProviderFamily
}

func (cc compatCodec) owned() []string {
	keys := []string{"temperature", "top_p", "max_tokens", "prompt_cache_key"}
	switch cc.family {
	case llm.FamilyOpenRouter:
		keys = append(keys, "reasoning", "web_search_options")
	case llm.FamilyDeepSeek:
		keys = append(keys, "thinking")
	case llm.FamilyQwen:
		keys = append(keys, "enable_thinking", "thinking_budget", "enable_search")
	case llm.FamilyOllama:
		keys = append(keys, "think")
	case llm.FamilyPerplexity:
		keys = append(keys, "reasoning_effort", "web_search_options", "search_domain_filter")
	case llm.FamilyXAI:
		keys = append(keys, "reasoning_effort", "search_parameters")
	case llm.FamilyKimi:
	default:
		keys = append(keys, "reasoning_effort")
	}
	return keys
}

func (cc compatCodec) project(m llm.ResolvedModel, c llm.GenerationControls) map[string]any {
	out := map[string]any{}
	putFloat(out, "temperature", c.Temperature)
	putFloat(out, "top_p", c.TopP)
	putInt(out, "max_tokens", c.MaxTokens)

	if r := c.Reasoning; r != nil && m.SupportsReasoning() {
		cc.projectReasoning(m, r, out)
	}
	if c.WebSearchOn() && m.WebSearchSupported {
		cc.projectSearch(c.WebSearch.Normalize(), out)
	}
	if cache := c.ContextCache; cache != nil && cache.Mode != llm.CacheExplicit {
		putString(out, "prompt_cache_key", cache.Key)
	}
	return out
}

func (cc compatCodec) projectReasoning(m llm.ResolvedModel, r *llm.ReasoningControls, out map[string]any) {
	eff := effortFor(m, r)
	switch cc.family {
	case llm.FamilyOpenRouter:
		switch {
		case !r.Enabled:
			out["reasoning"] = map[string]any{"enabled": false}
		case m.Reasoning.Type == llm.ReasoningTypeBudget:
			budget := m.Reasoning.DefaultBudget
			if r.BudgetTokens != nil {
				budget = *r.BudgetTokens
			}
			out["reasoning"] = map[string]any{"max_tokens": budget}
		case eff != "":
			out["reasoning"] = map[string]any{"effort": string(eff)}
		default:
			out["reasoning"] = map[string]any{"enabled": true}
		}
	case llm.FamilyDeepSeek:
		switch {
		case r.Enabled:
			out["thinking"] = map[string]any{"type": "enabled"}
		case m.ReasoningCanDisable:
			out["thinking"] = map[string]any{"type": "disabled"}
		}
	case llm.FamilyQwen:
		if r.Enabled || m.ReasoningCanDisable {
			out["enable_thinking"] = r.Enabled
		}
		if r.Enabled {
			putInt(out, "thinking_budget", r.BudgetTokens)
		}
	case llm.FamilyOllama:
		switch {
		case r.Enabled && m.Reasoning.Type == llm.ReasoningTypeEffort && eff != "":
			out["think"] = string(eff)
		default:
			out["think"] = r.Enabled
		}
	case llm.FamilyKimi:
	default:
		if r.Enabled && eff != "" && m.Reasoning.Type == llm.ReasoningTypeEffort {
			out["reasoning_effort"] = string(eff)
		}
	}
}

func (cc compatCodec) projectSearch(w llm.WebSearchControls, out map[string]any) {
	switch cc.family {
	case llm.FamilyOpenRouter:
		opts := map[string]any{}
		putString(opts, "search_context_size", string(w.ContextSize))
		out["web_search_options"] = opts
	case llm.FamilyPerplexity:
		if w.ContextSize != "" {
			out["web_search_options"] = map[string]any{"search_context_size": string(w.ContextSize)}
		}
		switch {
		case len(w.AllowedDomains) > 0:
			out["search_domain_filter"] = stringsAny(w.AllowedDomains)
		case len(w.BlockedDomains) > 0:
			deny := make([]any, len(w.BlockedDomains))
			for i, d := range w.BlockedDomains {
				deny[i] = "-" + d
			}
			out["search_domain_filter"] = deny
		}
	case llm.FamilyQwen:
		out["enable_search"] = true
	case llm.FamilyXAI:
		src := map[string]any{"type": "web"}
		if len(w.AllowedDomains) > 0 {
			src["allowed_websites"] = stringsAny(w.AllowedDomains)
		} else if len(w.BlockedDomains) > 0 {
			src["excluded_websites"] = stringsAny(w.BlockedDomains)
		}
		sp := map[string]any{"mode": "on", "sources": []any{src}}
		putInt(sp, "max_search_results", w.MaxUses)
		out["search_parameters"] = sp
	}
}

func (cc compatCodec) absorb(m llm.ResolvedModel, doc map[string]any, c *llm.GenerationControls) {
	takeFloat(doc, "temperature", &c.Temperature)
	takeFloat(doc, "top_p", &c.TopP)
	takeInt(doc, "max_tokens", &c.MaxTokens)

	cc.absorbReasoning(doc, c)
	cc.absorbSearch(doc, c)

	var key string
	takeString(doc, "prompt_cache_key", &key)
	if key != "" {
		c.ContextCache = &llm.ContextCacheControls{Mode: llm.CacheImplicit, Key: key}
	}
}

func (cc compatCodec) absorbReasoning(doc map[string]any, c *llm.GenerationControls) {
	switch cc.family {
	case llm.FamilyOpenRouter:
		obj, ok := asObject(doc["reasoning"])
		if !ok {
			return
		}
		if b, ok := asBool(obj["enabled"]); ok {
			c.Reasoning = &llm.ReasoningControls{Enabled: b}
			delete(obj, "enabled")
		}
		if s, ok := asString(obj["effort"]); ok {
			if e, ok := llm.ParseReasoningEffort(s); ok && e != llm.EffortNone {
				ensureReasoning(c).Effort = e
				delete(obj, "effort")
			}
		}
		if v, ok := obj["max_tokens"]; ok {
			if n, ok := asInt(v); ok {
				ensureReasoning(c).BudgetTokens = llm.IntPtr(n)
				delete(obj, "max_tokens")
			}
		}
		dropIfEmpty(doc, "reasoning")
	case llm.FamilyDeepSeek:
		obj, ok := asObject(doc["thinking"])
		if !ok || !objectHasOnly(obj, "type") {
			return
		}
		switch typ, _ := asString(obj["type"]); typ {
		case "enabled":
			c.Reasoning = &llm.ReasoningControls{Enabled: true}
			delete(doc, "thinking")
		case "disabled":
			c.Reasoning = &llm.ReasoningControls{}
			delete(doc, "thinking")
		}
	case llm.FamilyQwen:
		if b, ok := asBool(doc["enable_thinking"]); ok {
			c.Reasoning = &llm.ReasoningControls{Enabled: b}
			delete(doc, "enable_thinking")
		}
		if v, ok := doc["thinking_budget"]; ok {
			if n, ok := asInt(v); ok {
				ensureReasoning(c).BudgetTokens = llm.IntPtr(n)
				delete(doc, "thinking_budget")
			}
		}
	case llm.FamilyOllama:
		switch v := doc["think"].(type) {
		case bool:
			c.Reasoning = &llm.ReasoningControls{Enabled: v}
			delete(doc, "think")
		case string:
			if e, ok := llm.ParseReasoningEffort(v); ok && e != llm.EffortNone {
				c.Reasoning = &llm.ReasoningControls{Enabled: true, Effort: e}
				delete(doc, "think")
			}
		}
	case llm.FamilyKimi:
	default:
		if s, ok := asString(doc["reasoning_effort"]); ok {
			if e, ok := llm.ParseReasoningEffort(s); ok && e != llm.EffortNone {
				c.Reasoning = &llm.ReasoningControls{Enabled: true, Effort: e}
				delete(doc, "reasoning_effort")
			}
		}
	}
}

func (cc compatCodec) absorbSearch(doc map[string]any, c *llm.GenerationControls) {
	switch cc.family {
	case llm.FamilyOpenRouter, llm.FamilyPerplexity:
		if opts, ok := asObject(doc["web_search_options"]); ok && objectHasOnly(opts, "search_context_size") {
			w := llm.WebSearchControls{Enabled: true}
			parsed := true
			if v, ok := opts["search_context_size"]; ok {
				s, _ := asString(v)
				w.ContextSize, parsed = parseContextSize(s)
			}
			if parsed {
				c.WebSearch = &w
				delete(doc, "web_search_options")
			}
		}
		if cc.family != llm.FamilyPerplexity {
			return
		}
		filter, ok := asStrings(doc["search_domain_filter"])
		if !ok {
			return
		}
		var allow, deny []string
		for _, d := range filter {
			if rest, found := strings.CutPrefix(d, "-"); found {
				deny = append(deny, rest)
			} else {
				allow = append(allow, d)
			}
		}
		if c.WebSearch == nil {
			c.WebSearch = &llm.WebSearchControls{Enabled: true}
		}
		c.WebSearch.AllowedDomains = allow
		c.WebSearch.BlockedDomains = deny
		*c.WebSearch = c.WebSearch.Normalize()
		delete(doc, "search_domain_filter")
	case llm.FamilyQwen:
		if b, ok := asBool(doc["enable_search"]); ok {
			if b {
				c.WebSearch = &llm.WebSearchControls{Enabled: true}
			}
			delete(doc, "enable_search")
		}
	case llm.FamilyXAI:
		sp, ok := asObject(doc["search_parameters"])
		if !ok || !objectHasOnly(sp, "mode", "sources", "max_search_results") {
			return
		}
		if mode, _ := asString(sp["mode"]); mode != "on" && mode != "auto" {
			return
		}
		w := llm.WebSearchControls{Enabled: true}
		if v, ok := sp["max_search_results"]; ok {
			n, ok := asInt(v)
			if !ok {
				return
			}
			w.MaxUses = llm.IntPtr(n)
		}
		if v, ok := sp["sources"]; ok {
			srcs, ok := v.([]any)
			if !ok || len(srcs) != 1 {
				return
			}
			src, ok := asObject(srcs[0])
			if !ok || src["type"] != "web" || !objectHasOnly(src, "type", "allowed_websites", "excluded_websites") {
				return
			}
			if d, ok := src["allowed_websites"]; ok {
				if w.AllowedDomains, ok = asStrings(d); !ok {
					return
				}
			}
			if d, ok := src["excluded_websites"]; ok {
				if w.BlockedDomains, ok = asStrings(d); !ok {
					return
				}
			}
		}
		w = w.Normalize()
		c.WebSearch = &w
		delete(doc, "search_parameters")
	}
}
