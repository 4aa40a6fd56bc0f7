package openai

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/eventstream"
	"github.com/hrayleung/jin-llm/llm/internal/search"
	"github.com/hrayleung/jin-llm/llm/internal/toolcall"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
)

// emitResponse walks the output items in order, which is also the order the
// stream delivers them.
func emitResponse(raw []byte, emit eventstream.Emit) error {
	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return llm.DecodeError(llm.FamilyOpenAI, raw, err)
	}
	if r.Status == "failed" || hasError(r.Error) {
		return responseError(r.Error, raw)
	}
	if r.ID == "" && len(r.Output) == 0 {
		if code, msg := transport.ParseErrorEnvelope(raw); msg != "" {
			e := llm.ProviderError(llm.FamilyOpenAI, code, msg)
			e.Raw = append([]byte(nil), raw...)
			return e
		}
	}

	emit(llm.MessageStart(r.ID))
	var tracker search.Tracker
	for _, item := range r.Output {
		switch item.Type {
		case "reasoning":
			texts := make([]string, 0, len(item.Summary))
			for _, s := range item.Summary {
				texts = append(texts, s.Text)
			}
			emit(llm.ThinkingText(strings.Join(texts, summarySeparator)))
			for _, part := range item.Content {
				if part.Type == "reasoning_text" {
					emit(llm.ThinkingText(part.Text))
				}
			}
		case "web_search_call":
			observe(&tracker, searchActivity(item), emit)
		case "message":
			for _, part := range item.Content {
				switch part.Type {
				case "output_text":
					emit(llm.TextDelta(part.Text))
				case "refusal":
					emit(llm.TextDelta(part.Refusal))
				}
				for _, a := range part.Annotations {
					emitAnnotation(&tracker, a, emit)
				}
			}
		case "function_call":
			call := toolcall.Complete(item.CallID, item.Name, item.Arguments, "")
			emit(llm.ToolCallStart(llm.ToolCall{ID: call.ID, Name: call.Name}))
			emit(llm.ToolCallEnd(call))
		}
	}
	emit(llm.MessageEnd(parseUsage(r.Usage)))
	return nil
}

// summarySeparator joins the parts of one reasoning summary.
const summarySeparator = "\n\n"

func hasError(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func responseError(errObj json.RawMessage, raw []byte) error {
	code := gjson.GetBytes(errObj, "code").String()
	msg := gjson.GetBytes(errObj, "message").String()
	if msg == "" {
		msg = "response failed"
	}
	e := llm.ProviderError(llm.FamilyOpenAI, code, msg)
	e.Raw = append([]byte(nil), raw...)
	return e
}

func searchActivity(item outputItem) llm.SearchActivity {
	a := llm.SearchActivity{ID: item.ID, Type: llm.SearchTypeWebSearch, Status: searchStatus(item.Status)}
	act := item.Action
	if act == nil {
		return a
	}
	switch act.Type {
	case "search":
		a.Type = llm.SearchTypeSearch
		a.Query = act.Query
		for _, s := range act.Sources {
			if s.URL != "" {
				a.Sources = append(a.Sources, llm.SearchSource{URL: s.URL})
			}
		}
	case "open_page":
		a.Type = llm.SearchTypeOpenPage
		a.URL = act.URL
	case "find_in_page":
		a.Type = llm.SearchTypeFindInPage
		a.URL = act.URL
		if act.Pattern != "" {
			a.Arguments = map[string]any{"pattern": act.Pattern}
		}
	}
	return a
}

func searchStatus(s string) llm.SearchStatus {
	switch s {
	case "searching":
		return llm.SearchSearching
	case "completed", "failed":
		return llm.SearchCompleted
	case "":
		return ""
	default:
		return llm.SearchInProgress
	}
}

func emitAnnotation(tracker *search.Tracker, a annotation, emit eventstream.Emit) {
	if a.Type != "url_citation" || a.URL == "" {
		return
	}
	observe(tracker, llm.SearchActivity{
		ID:      search.CitationID(a.URL),
		Type:    llm.SearchTypeURLCitation,
		Status:  llm.SearchCompleted,
		URL:     a.URL,
		Title:   a.Title,
		Sources: []llm.SearchSource{{URL: a.URL, Title: a.Title}},
	}, emit)
}

func observe(tracker *search.Tracker, a llm.SearchActivity, emit eventstream.Emit) {
	if ev, ok := tracker.Observe(a); ok {
		emit(ev)
	}
}

// parseUsage reads the usage object shared by Responses and Images.
func parseUsage(raw json.RawMessage) *llm.Usage {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil
	}
	u := gjson.ParseBytes(raw)
	out := &llm.Usage{
		InputTokens:    intField(u, "input_tokens"),
		OutputTokens:   intField(u, "output_tokens"),
		ThinkingTokens: intField(u, "output_tokens_details.reasoning_tokens"),
		CachedTokens:   intField(u, "input_tokens_details.cached_tokens"),
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
