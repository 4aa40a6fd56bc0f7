package params

import (
	"github.com/hrayleung/jin-llm/llm"
)

// dynamicBudget lets Gemini pick its own thinking budget.
const dynamicBudget = -1

type geminiCodec struct{}

func (geminiCodec) owned() []string {
	return []string{"generationConfig", "tools", "cachedContent", "parameters"}
}

func (geminiCodec) project(m llm.ResolvedModel, c llm.GenerationControls) map[string]any {
	out := map[string]any{}

	if m.Capabilities.Has(llm.CapVideoGeneration) {
		if vg := c.VideoGeneration; vg != nil {
			p := map[string]any{}
			putString(p, "aspectRatio", vg.AspectRatio)
			putInt(p, "durationSeconds", vg.DurationSeconds)
			putString(p, "resolution", vg.Size)
			if len(p) > 0 {
				out["parameters"] = p
			}
		}
		return out
	}

	gc := map[string]any{}
	putFloat(gc, "temperature", c.Temperature)
	putFloat(gc, "topP", c.TopP)
	putInt(gc, "maxOutputTokens", c.MaxTokens)

	if r := c.Reasoning; r != nil && m.SupportsReasoning() {
		tc := map[string]any{}
		switch {
		case r.Enabled && m.Reasoning.Type == llm.ReasoningTypeEffort:
			if eff := effortFor(m, r); eff != "" {
				tc["thinkingLevel"] = string(eff)
			}
			tc["includeThoughts"] = true
		case r.Enabled:
			budget := dynamicBudget
			if r.BudgetTokens != nil {
				budget = *r.BudgetTokens
			}
			tc["thinkingBudget"] = budget
			tc["includeThoughts"] = true
		case m.ReasoningCanDisable && m.Reasoning.Type == llm.ReasoningTypeBudget:
			tc["thinkingBudget"] = 0
		}
		if len(tc) > 0 {
			gc["thinkingConfig"] = tc
		}
	}

	if m.Capabilities.Has(llm.CapImageGeneration) {
		gc["responseModalities"] = []any{"TEXT", "IMAGE"}
		if ig := c.ImageGeneration; ig != nil {
			ic := map[string]any{}
			putString(ic, "aspectRatio", ig.AspectRatio)
			putString(ic, "imageSize", ig.Size)
			if len(ic) > 0 {
				gc["imageConfig"] = ic
			}
		}
	}
	if len(gc) > 0 {
		out["generationConfig"] = gc
	}

	if c.WebSearchOn() && m.WebSearchSupported {
		out["tools"] = []any{map[string]any{"googleSearch": map[string]any{}}}
	}
	if cc := c.ContextCache; cc != nil && cc.Mode == llm.CacheExplicit && cc.Handle != "" {
		out["cachedContent"] = cc.Handle
	}
	return out
}

func (geminiCodec) absorb(m llm.ResolvedModel, doc map[string]any, c *llm.GenerationControls) {
	if p, ok := asObject(doc["parameters"]); ok && m.Capabilities.Has(llm.CapVideoGeneration) {
		var vg llm.VideoGenerationControls
		takeString(p, "aspectRatio", &vg.AspectRatio)
		takeInt(p, "durationSeconds", &vg.DurationSeconds)
		takeString(p, "resolution", &vg.Size)
		if vg != (llm.VideoGenerationControls{}) {
			c.VideoGeneration = &vg
		}
		dropIfEmpty(doc, "parameters")
	}

	if gc, ok := asObject(doc["generationConfig"]); ok {
		takeFloat(gc, "temperature", &c.Temperature)
		takeFloat(gc, "topP", &c.TopP)
		takeInt(gc, "maxOutputTokens", &c.MaxTokens)

		if tc, ok := asObject(gc["thinkingConfig"]); ok {
			absorbThinkingConfig(tc, c)
			dropIfEmpty(gc, "thinkingConfig")
		}

		if m.Capabilities.Has(llm.CapImageGeneration) {
			if mods, ok := asStrings(gc["responseModalities"]); ok && len(mods) == 2 && mods[0] == "TEXT" && mods[1] == "IMAGE" {
				delete(gc, "responseModalities")
			}
			if ic, ok := asObject(gc["imageConfig"]); ok {
				var ig llm.ImageGenerationControls
				takeString(ic, "aspectRatio", &ig.AspectRatio)
				takeString(ic, "imageSize", &ig.Size)
				if ig != (llm.ImageGenerationControls{}) {
					c.ImageGeneration = &ig
				}
				dropIfEmpty(gc, "imageConfig")
			}
		}
		dropIfEmpty(doc, "generationConfig")
	}

	takeTool(doc, func(tool map[string]any) bool {
		for _, key := range []string{"googleSearch", "google_search"} {
			if gs, ok := asObject(tool[key]); ok && len(gs) == 0 && len(tool) == 1 {
				c.WebSearch = &llm.WebSearchControls{Enabled: true}
				return true
			}
		}
		return false
	})

	if s, ok := asString(doc["cachedContent"]); ok && s != "" {
		c.ContextCache = &llm.ContextCacheControls{Mode: llm.CacheExplicit, Handle: s}
		delete(doc, "cachedContent")
	}
}

func absorbThinkingConfig(tc map[string]any, c *llm.GenerationControls) {
	absorbed := false
	if v, ok := tc["thinkingBudget"]; ok {
		if n, ok := asInt(v); ok {
			switch {
			case n == 0:
				c.Reasoning = &llm.ReasoningControls{}
			case n < 0:
				c.Reasoning = &llm.ReasoningControls{Enabled: true}
			default:
				c.Reasoning = &llm.ReasoningControls{Enabled: true, BudgetTokens: llm.IntPtr(n)}
			}
			delete(tc, "thinkingBudget")
			absorbed = true
		}
	}
	if s, ok := asString(tc["thinkingLevel"]); ok {
		if e, ok := llm.ParseReasoningEffort(s); ok && e != llm.EffortNone {
			ensureReasoning(c).Effort = e
			delete(tc, "thinkingLevel")
			absorbed = true
		}
	}
	// includeThoughts follows from reasoning being on.
	if b, ok := asBool(tc["includeThoughts"]); ok && (absorbed || b) {
		if b {
			ensureReasoning(c)
		}
		delete(tc, "includeThoughts")
	}
}
