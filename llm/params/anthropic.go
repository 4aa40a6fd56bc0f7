package params

import (
	"strings"

	"github.com/hrayleung/jin-llm/llm"
)

const (
	anthropicWebSearch        = "web_search_20250305"
	anthropicWebSearchDynamic = "web_search_20260209"

	// anthropicMinBudget is the smallest thinking budget the API accepts.
	anthropicMinBudget = 1024
)

// AnthropicEffort maps a canonical tier to output_config.effort.
func AnthropicEffort(e llm.ReasoningEffort) string {
	if e == llm.EffortXHigh {
		return "max"
	}
	return string(e)
}

func parseAnthropicEffort(s string) (llm.ReasoningEffort, bool) {
	if s == "max" {
		return llm.EffortXHigh, true
	}
	e, ok := llm.ParseReasoningEffort(s)
	if !ok || e == llm.EffortNone {
		return "", false
	}
	return e, true
}

type anthropicCodec struct{}

func (anthropicCodec) owned() []string {
	return []string{"max_tokens", "temperature", "top_p", "thinking", "output_config", "tools", "cache_control"}
}

func (anthropicCodec) project(m llm.ResolvedModel, c llm.GenerationControls) map[string]any {
	out := map[string]any{}
	putInt(out, "max_tokens", c.MaxTokens)

	thinking := c.ReasoningOn() && m.SupportsReasoning()
	if !thinking {
		putFloat(out, "temperature", c.Temperature)
		putFloat(out, "top_p", c.TopP)
	}

	if r := c.Reasoning; r != nil && m.SupportsReasoning() {
		switch {
		case !r.Enabled:
			out["thinking"] = map[string]any{"type": "disabled"}
		case m.Reasoning.Type == llm.ReasoningTypeEffort:
			out["thinking"] = map[string]any{"type": "adaptive"}
			if eff := effortFor(m, r); eff != "" && eff != llm.EffortNone {
				out["output_config"] = map[string]any{"effort": AnthropicEffort(eff)}
			}
		default:
			budget := m.Reasoning.DefaultBudget
			if r.BudgetTokens != nil {
				budget = *r.BudgetTokens
			}
			budget = max(budget, anthropicMinBudget)
			out["thinking"] = map[string]any{"type": "enabled", "budget_tokens": budget}
		}
	}

	if c.WebSearchOn() && m.WebSearchSupported {
		w := c.WebSearch.Normalize()
		typ := anthropicWebSearch
		if w.DynamicFiltering {
			typ = anthropicWebSearchDynamic
		}
		tool := map[string]any{"type": typ, "name": "web_search"}
		putInt(tool, "max_uses", w.MaxUses)
		if len(w.AllowedDomains) > 0 {
			tool["allowed_domains"] = stringsAny(w.AllowedDomains)
		} else if len(w.BlockedDomains) > 0 {
			tool["blocked_domains"] = stringsAny(w.BlockedDomains)
		}
		out["tools"] = []any{tool}
	}

	if cc := c.ContextCache; cc != nil && cc.Mode != llm.CacheExplicit {
		ctl := map[string]any{"type": "ephemeral"}
		putString(ctl, "ttl", cc.TTL)
		out["cache_control"] = ctl
	}
	return out
}

func (anthropicCodec) absorb(m llm.ResolvedModel, doc map[string]any, c *llm.GenerationControls) {
	takeInt(doc, "max_tokens", &c.MaxTokens)
	takeFloat(doc, "temperature", &c.Temperature)
	takeFloat(doc, "top_p", &c.TopP)

	if obj, ok := asObject(doc["thinking"]); ok {
		typ, _ := asString(obj["type"])
		switch typ {
		case "disabled":
			if objectHasOnly(obj, "type") {
				c.Reasoning = &llm.ReasoningControls{}
				delete(doc, "thinking")
			}
		case "adaptive":
			if objectHasOnly(obj, "type") {
				c.Reasoning = &llm.ReasoningControls{Enabled: true}
				delete(doc, "thinking")
			}
		case "enabled":
			if !objectHasOnly(obj, "type", "budget_tokens") {
				break
			}
			r := &llm.ReasoningControls{Enabled: true}
			if v, ok := obj["budget_tokens"]; ok {
				n, ok := asInt(v)
				if !ok {
					break
				}
				r.BudgetTokens = llm.IntPtr(n)
			}
			c.Reasoning = r
			delete(doc, "thinking")
		}
	}

	if obj, ok := asObject(doc["output_config"]); ok {
		if s, ok := asString(obj["effort"]); ok {
			if e, ok := parseAnthropicEffort(s); ok {
				ensureReasoning(c).Effort = e
				delete(obj, "effort")
			}
		}
		dropIfEmpty(doc, "output_config")
	}

	takeTool(doc, func(tool map[string]any) bool {
		typ, _ := asString(tool["type"])
		if !strings.HasPrefix(typ, "web_search_") {
			return false
		}
		if !objectHasOnly(tool, "type", "name", "max_uses", "allowed_domains", "blocked_domains") {
			return false
		}
		w := llm.WebSearchControls{Enabled: true, DynamicFiltering: typ == anthropicWebSearchDynamic}
		if v, ok := tool["max_uses"]; ok {
			n, ok := asInt(v)
			if !ok {
				return false
			}
			w.MaxUses = llm.IntPtr(n)
		}
		if v, ok := tool["allowed_domains"]; ok {
			d, ok := asStrings(v)
			if !ok {
				return false
			}
			w.AllowedDomains = d
		}
		if v, ok := tool["blocked_domains"]; ok {
			d, ok := asStrings(v)
			if !ok {
				return false
			}
			w.BlockedDomains = d
		}
		w = w.Normalize()
		c.WebSearch = &w
		return true
	})

	if obj, ok := asObject(doc["cache_control"]); ok && objectHasOnly(obj, "type", "ttl") {
		typ, _ := asString(obj["type"])
		ttl, ttlOK := asString(obj["ttl"])
		if _, has := obj["ttl"]; typ == "ephemeral" && (ttlOK || !has) {
			c.ContextCache = &llm.ContextCacheControls{Mode: llm.CacheImplicit, TTL: ttl}
			delete(doc, "cache_control")
		}
	}
}
