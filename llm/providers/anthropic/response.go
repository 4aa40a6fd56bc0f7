package anthropic

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/eventstream"
	"github.com/hrayleung/jin-llm/llm/internal/search"
	"github.com/hrayleung/jin-llm/llm/internal/toolcall"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
)

// emitResponse replays a whole message in block order, the same order the
// stream delivers.
func emitResponse(raw []byte, emit eventstream.Emit) error {
	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return llm.DecodeError(llm.FamilyAnthropic, raw, err)
	}
	if r.Type == "error" || (r.ID == "" && len(r.Content) == 0) {
		if code, msg := transport.ParseErrorEnvelope(raw); msg != "" {
			e := llm.ProviderError(llm.FamilyAnthropic, code, msg)
			e.Raw = append([]byte(nil), raw...)
			return e
		}
	}

	emit(llm.MessageStart(r.ID))
	var tracker search.Tracker
	for _, b := range r.Content {
		switch b.Type {
		case "thinking":
			emit(llm.ThinkingText(b.Thinking))
			emit(llm.ThinkingSignature(b.Signature))
		case "redacted_thinking":
			emit(llm.RedactedThinking(b.Data))
		case "text":
			emit(llm.TextDelta(b.Text))
			for _, c := range b.Citations {
				emitCitation(&tracker, c, emit)
			}
		case "tool_use":
			call := toolcall.Complete(b.ID, b.Name, inputJSON(b.Input), "")
			emit(llm.ToolCallStart(llm.ToolCall{ID: call.ID, Name: call.Name}))
			emit(llm.ToolCallEnd(call))
		case "server_tool_use":
			observe(&tracker, serverToolActivity(b.ID, b.Name, b.Input), emit)
		case "web_search_tool_result":
			observe(&tracker, searchResult(b), emit)
		}
	}
	emit(llm.MessageEnd(parseUsage(r.Usage)))
	return nil
}

// inputJSON treats an absent input as an empty object.
func inputJSON(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "{}"
	}
	return string(raw)
}

// serverToolActivity describes a server-side tool invocation. Only web_search
// and web_fetch are surfaced.
func serverToolActivity(id, name string, input json.RawMessage) llm.SearchActivity {
	a := llm.SearchActivity{ID: id, Status: llm.SearchSearching}
	switch name {
	case "web_search":
		a.Type = llm.SearchTypeSearch
		a.Query = gjson.GetBytes(input, "query").String()
	case "web_fetch":
		a.Type = llm.SearchTypeOpenPage
		a.URL = gjson.GetBytes(input, "url").String()
	default:
		a.Type = llm.SearchTypeWebSearch
		if len(input) > 0 && gjson.ValidBytes(input) {
			var args map[string]any
			if json.Unmarshal(input, &args) == nil && len(args) > 0 {
				a.Arguments = args
			}
		}
	}
	return a
}

// searchResult completes the activity of the tool call it answers. The
// content is a result list, or an error object that still ends the search.
func searchResult(b block) llm.SearchActivity {
	a := llm.SearchActivity{ID: b.ToolUseID, Status: llm.SearchCompleted}
	res := gjson.ParseBytes(b.Content)
	if !res.IsArray() {
		return a
	}
	for _, item := range res.Array() {
		if item.Get("type").String() != "web_search_result" {
			continue
		}
		if url := item.Get("url").String(); url != "" {
			a.Sources = append(a.Sources, llm.SearchSource{URL: url, Title: item.Get("title").String()})
		}
	}
	return a
}

func emitCitation(tracker *search.Tracker, c citation, emit eventstream.Emit) {
	if c.URL == "" {
		return
	}
	observe(tracker, llm.SearchActivity{
		ID:      search.CitationID(c.URL),
		Type:    llm.SearchTypeURLCitation,
		Status:  llm.SearchCompleted,
		URL:     c.URL,
		Title:   c.Title,
		Sources: []llm.SearchSource{{URL: c.URL, Title: c.Title, Snippet: c.CitedText}},
	}, emit)
}

func observe(tracker *search.Tracker, a llm.SearchActivity, emit eventstream.Emit) {
	if ev, ok := tracker.Observe(a); ok {
		emit(ev)
	}
}

func parseUsage(raw json.RawMessage) *llm.Usage {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil
	}
	u := gjson.ParseBytes(raw)
	out := &llm.Usage{
		InputTokens:         intField(u, "input_tokens"),
		OutputTokens:        intField(u, "output_tokens"),
		CachedTokens:        intField(u, "cache_read_input_tokens"),
		CacheCreationTokens: intField(u, "cache_creation_input_tokens"),
	}
	if out.IsZero() {
		return nil
	}
	return out
}

func intField(r gjson.Result, path string) *int {
	if v := r.Get(path); v.Type == gjson.Number {
		return llm.IntPtr(int(v.Int()))
	}
	return nil
}
