package openai_compat

import (
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/hrayleung/jin-llm/llm"
)

// parseUsage reads a Chat Completions usage object. Vendors disagree on where
// cache hits go and some encode numbers as strings.
func parseUsage(raw json.RawMessage) *llm.Usage {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil
	}
	u := gjson.ParseBytes(raw)
	if !u.IsObject() {
		return nil
	}
	out := &llm.Usage{
		InputTokens:    intField(u, "prompt_tokens"),
		OutputTokens:   intField(u, "completion_tokens"),
		ThinkingTokens: intField(u, "completion_tokens_details.reasoning_tokens"),
		CachedTokens: firstInt(
			intField(u, "prompt_tokens_details.cached_tokens"),
			intField(u, "prompt_cache_hit_tokens"),
			intField(u, "cached_tokens"),
		),
	}
	if out.IsZero() {
		return nil
	}
	return out
}

func intField(r gjson.Result, path string) *int {
	v := r.Get(path)
	switch v.Type {
	case gjson.Number:
		return llm.IntPtr(int(v.Int()))
	case gjson.String:
		if n, err := strconv.Atoi(v.Str); err == nil {
			return llm.IntPtr(n)
		}
	}
	return nil
}

func firstInt(vs ...*int) *int {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}
