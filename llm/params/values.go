package params

import (
	"math"
	"slices"

	"github.com/hrayleung/jin-llm/llm"
)

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// asInt accepts integral numbers only.
func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int(f), true
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asStrings(v any) ([]string, bool) {
	switch xs := v.(type) {
	case []string:
		return slices.Clone(xs), true
	case []any:
		out := make([]string, 0, len(xs))
		for _, x := range xs {
			s, ok := x.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func takeFloat(doc map[string]any, key string, dst **float64) {
	v, ok := doc[key]
	if !ok {
		return
	}
	if f, ok := asFloat(v); ok {
		*dst = llm.Float64Ptr(f)
		delete(doc, key)
	}
}

func takeInt(doc map[string]any, key string, dst **int) {
	v, ok := doc[key]
	if !ok {
		return
	}
	if n, ok := asInt(v); ok {
		*dst = llm.IntPtr(n)
		delete(doc, key)
	}
}

func takeString(doc map[string]any, key string, dst *string) {
	if s, ok := asString(doc[key]); ok {
		*dst = s
		delete(doc, key)
	}
}

func dropIfEmpty(doc map[string]any, key string) {
	switch v := doc[key].(type) {
	case map[string]any:
		if len(v) == 0 {
			delete(doc, key)
		}
	case []any:
		if len(v) == 0 {
			delete(doc, key)
		}
	}
}

func putFloat(doc map[string]any, key string, v *float64) {
	if v != nil {
		doc[key] = *v
	}
}

func putInt(doc map[string]any, key string, v *int) {
	if v != nil {
		doc[key] = *v
	}
}

func putString(doc map[string]any, key, v string) {
	if v != "" {
		doc[key] = v
	}
}

// stringsAny converts for JSON-shaped documents.
func stringsAny(xs []string) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func objectHasOnly(obj map[string]any, keys ...string) bool {
	for k := range obj {
		if !slices.Contains(keys, k) {
			return false
		}
	}
	return true
}

// effortFor is the effort to send when reasoning is on.
func effortFor(m llm.ResolvedModel, r *llm.ReasoningControls) llm.ReasoningEffort {
	if r.Effort != "" {
		return r.Effort
	}
	if m.Reasoning != nil {
		return m.Reasoning.DefaultEffort
	}
	return ""
}

func parseSummary(s string) (llm.ReasoningSummary, bool) {
	switch v := llm.ReasoningSummary(s); v {
	case llm.SummaryAuto, llm.SummaryConcise, llm.SummaryDetailed:
		return v, true
	default:
		return "", false
	}
}

func parseContextSize(s string) (llm.SearchContextSize, bool) {
	switch v := llm.SearchContextSize(s); v {
	case llm.SearchContextLow, llm.SearchContextMedium, llm.SearchContextHigh:
		return v, true
	default:
		return "", false
	}
}

func ensureReasoning(c *llm.GenerationControls) *llm.ReasoningControls {
	if c.Reasoning == nil {
		c.Reasoning = &llm.ReasoningControls{Enabled: true}
	}
	return c.Reasoning
}

// takeTool removes the first element of doc["tools"] that parse accepts.
func takeTool(doc map[string]any, parse func(tool map[string]any) bool) {
	tools, ok := doc["tools"].([]any)
	if !ok {
		return
	}
	for i, t := range tools {
		obj, ok := asObject(t)
		if !ok || !parse(obj) {
			continue
		}
		doc["tools"] = slices.Delete(slices.Clone(tools), i, i+1)
		dropIfEmpty(doc, "tools")
		return
	}
}
