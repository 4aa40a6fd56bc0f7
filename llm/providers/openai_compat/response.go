package openai_compat

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/eventstream"
	"github.com/hrayleung/jin-llm/llm/internal/search"
	"github.com/hrayleung/jin-llm/llm/internal/thinktag"
	"github.com/hrayleung/jin-llm/llm/internal/toolcall"
)

// emitResponse turns a complete response into events in the same order a
// stream produces them: thinking, text, media, citations, tool calls.
func (p *Provider) emitResponse(raw []byte, emit eventstream.Emit) error {
	var r chatCompletionResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return llm.DecodeError(p.family, raw, err)
	}
	if len(r.Choices) == 0 {
		if _, msg := parseEnvelope(raw); msg != "" {
			return chunkError(p.family, raw)
		}
	}

	emit(llm.MessageStart(r.ID))
	var tracker search.Tracker

	if len(r.Choices) > 0 {
		msg := r.Choices[0].Message
		text, inline := splitContent(msg.Content)
		tagged, visible := thinktag.Split(text)

		emit(llm.ThinkingText(firstNonEmpty(msg.ReasoningContent, msg.Reasoning) + inline + tagged))
		emit(llm.TextDelta(visible))
		emitImages(msg.Images, emit)
		emitAnnotations(&tracker, msg.Annotations, emit)
		for _, tc := range msg.ToolCalls {
			call := toolcall.Complete(tc.ID, tc.Function.Name, tc.Function.Arguments, "")
			emit(llm.ToolCallStart(llm.ToolCall{ID: call.ID, Name: call.Name}))
			emit(llm.ToolCallEnd(call))
		}
	}
	emitSources(&tracker, r.Citations, r.SearchResults, emit)

	emit(llm.MessageEnd(parseUsage(r.Usage)))
	return nil
}

func splitContent(v any) (text string, reasoning string) {
	switch x := v.(type) {
	case nil:
		return "", ""
	case string:
		return x, ""
	case []any:
		var b strings.Builder
		var r strings.Builder
		for _, it := range x {
			if m, ok := it.(map[string]any); ok {
				typeStr, _ := m["type"].(string)
				if t, ok := m["text"].(string); ok {
					switch typeStr {
					case "reasoning", "thinking":
						r.WriteString(t)
					default:
						b.WriteString(t)
					}
				}
			}
		}
		return b.String(), r.String()
	case map[string]any:
		typeStr, _ := x["type"].(string)
		if t, ok := x["text"].(string); ok {
			switch typeStr {
			case "reasoning", "thinking":
				return "", t
			default:
				return t, ""
			}
		}
		return "", ""
	default:
		return "", ""
	}
}

func emitImages(images []wireImage, emit eventstream.Emit) {
	for _, img := range images {
		if ref, ok := mediaRef(img.ImageURL.URL); ok {
			emit(llm.StreamEvent{Kind: llm.EventContentDelta, Content: &llm.ContentDelta{Image: &ref}})
		}
	}
}

// mediaRef accepts a data URL or a plain URL.
func mediaRef(u string) (llm.MediaRef, bool) {
	if u == "" {
		return llm.MediaRef{}, false
	}
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return llm.MediaRef{URL: u}, true
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return llm.MediaRef{}, false
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return llm.MediaRef{MIME: mime, Data: []byte(payload)}, true
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return llm.MediaRef{}, false
	}
	return llm.MediaRef{MIME: mime, Data: data}, true
}

func emitAnnotations(tracker *search.Tracker, anns []annotation, emit eventstream.Emit) {
	for _, a := range anns {
		if a.Type != "url_citation" || a.URLCitation == nil || a.URLCitation.URL == "" {
			continue
		}
		c := a.URLCitation
		observe(tracker, citation(c.URL, c.Title, c.Content), emit)
	}
}

// emitSources reports Perplexity's citations and search_results.
func emitSources(tracker *search.Tracker, urls []string, results []searchResult, emit eventstream.Emit) {
	for _, r := range results {
		if r.URL != "" {
			observe(tracker, citation(r.URL, r.Title, r.Snippet), emit)
		}
	}
	for _, u := range urls {
		if u != "" {
			observe(tracker, citation(u, "", ""), emit)
		}
	}
}

func citation(url, title, snippet string) llm.SearchActivity {
	return llm.SearchActivity{
		ID:      search.CitationID(url),
		Type:    llm.SearchTypeURLCitation,
		Status:  llm.SearchCompleted,
		URL:     url,
		Title:   title,
		Sources: []llm.SearchSource{{URL: url, Title: title, Snippet: snippet}},
	}
}

func observe(tracker *search.Tracker, a llm.SearchActivity, emit eventstream.Emit) {
	if ev, ok := tracker.Observe(a); ok {
		emit(ev)
	}
}
