package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/eventstream"
	"github.com/hrayleung/jin-llm/llm/internal/search"
	"github.com/hrayleung/jin-llm/llm/internal/sse"
	"github.com/hrayleung/jin-llm/llm/internal/toolcall"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
	"github.com/hrayleung/jin-llm/llm/media"
)

// chunkHandler folds GenerateContentResponse chunks. A batch response is a
// single chunk, so both paths share it.
type chunkHandler struct {
	ctx   context.Context
	store *media.Store

	searches search.Tracker
	usage    *llm.Usage
}

func (p *Provider) newChunkHandler(ctx context.Context) *chunkHandler {
	return &chunkHandler{ctx: ctx, store: p.store}
}

func (h *chunkHandler) HandleRecord(rec sse.Record, emit eventstream.Emit) error {
	if !json.Valid(rec.Data) {
		return eventstream.Skip(errInvalidChunk)
	}
	err := h.chunk(rec.Data, emit)
	// A chunk of the wrong shape or with unreadable inline data costs only
	// that chunk on a stream. Batch decoding still fails on it.
	if e, ok := llm.AsLLMError(err); ok && e.Kind == llm.ErrKindDecode {
		return eventstream.Skip(err)
	}
	return err
}

func (h *chunkHandler) Finish(emit eventstream.Emit) error {
	emit(llm.MessageEnd(h.usage))
	return nil
}

type chunkError string

func (e chunkError) Error() string { return string(e) }

const errInvalidChunk = chunkError("chunk is not valid JSON")

func (h *chunkHandler) chunk(raw []byte, emit eventstream.Emit) error {
	var r generateResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return llm.DecodeError(llm.FamilyGemini, raw, err)
	}
	if len(r.Error) > 0 && !bytes.Equal(r.Error, []byte("null")) {
		code, msg := transport.ParseErrorEnvelope(raw)
		if msg == "" {
			msg = "stream reported an error"
		}
		e := llm.ProviderError(llm.FamilyGemini, code, msg)
		e.Raw = append([]byte(nil), raw...)
		return e
	}

	emit(llm.MessageStart(r.ResponseID))
	h.usage = h.usage.Merge(parseUsage(r.UsageMetadata))

	if len(r.Candidates) == 0 {
		if fb := r.PromptFeedback; fb != nil && fb.BlockReason != "" {
			msg := fb.BlockReasonMessage
			if msg == "" {
				msg = "prompt blocked: " + fb.BlockReason
			}
			e := llm.ProviderError(llm.FamilyGemini, fb.BlockReason, msg)
			e.Raw = append([]byte(nil), raw...)
			return e
		}
		return nil
	}

	cand := r.Candidates[0]
	for _, pt := range cand.Content.Parts {
		if err := h.part(pt, emit); err != nil {
			return err
		}
	}
	h.grounding(cand.GroundingMetadata, emit)
	return nil
}

func (h *chunkHandler) part(pt part, emit eventstream.Emit) error {
	switch {
	case pt.FunctionCall != nil:
		args := "{}"
		if len(pt.FunctionCall.Args) > 0 && !bytes.Equal(pt.FunctionCall.Args, []byte("null")) {
			args = string(pt.FunctionCall.Args)
		}
		call := toolcall.Complete(pt.FunctionCall.ID, pt.FunctionCall.Name, args, pt.ThoughtSignature)
		emit(llm.ToolCallStart(llm.ToolCall{ID: call.ID, Name: call.Name, Signature: call.Signature}))
		emit(llm.ToolCallEnd(call))
		return nil
	case pt.Thought:
		emit(llm.ThinkingText(pt.Text))
	case pt.InlineData != nil:
		ref, err := h.inline(*pt.InlineData)
		if err != nil {
			return err
		}
		emit(media.Event(media.KindImage, ref))
	default:
		emit(llm.TextDelta(pt.Text))
	}
	if pt.ThoughtSignature != "" {
		emit(llm.ThinkingSignature(pt.ThoughtSignature))
	}
	return nil
}

func (h *chunkHandler) inline(b blob) (llm.MediaRef, error) {
	data, err := base64.StdEncoding.DecodeString(b.Data)
	if err != nil {
		return llm.MediaRef{}, llm.DecodeError(llm.FamilyGemini, []byte(b.Data), err)
	}
	if h.store == nil {
		return llm.MediaRef{MIME: b.MimeType, Data: data}, nil
	}
	path, err := h.store.Save(h.ctx, b.MimeType, bytes.NewReader(data))
	if err != nil {
		return llm.MediaRef{}, err
	}
	return llm.MediaRef{MIME: b.MimeType, Path: path}, nil
}

// grounding turns groundingMetadata into search activities: one per search
// query, each listing the grounding sources. Without queries the sources are
// reported under a single web_search activity.
func (h *chunkHandler) grounding(raw json.RawMessage, emit eventstream.Emit) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return
	}
	g := gjson.ParseBytes(raw)

	var sources []llm.SearchSource
	g.Get("groundingChunks").ForEach(func(_, c gjson.Result) bool {
		if uri := c.Get("web.uri").String(); uri != "" {
			sources = append(sources, llm.SearchSource{URL: uri, Title: c.Get("web.title").String()})
		}
		return true
	})

	queries := g.Get("webSearchQueries").Array()
	for _, q := range queries {
		if q.String() == "" {
			continue
		}
		h.observe(llm.SearchActivity{
			ID:      search.QueryID(q.String()),
			Type:    llm.SearchTypeSearch,
			Status:  llm.SearchCompleted,
			Query:   q.String(),
			Sources: sources,
		}, emit)
	}
	if len(queries) == 0 && len(sources) > 0 {
		h.observe(llm.SearchActivity{
			ID:      "grounding",
			Type:    llm.SearchTypeWebSearch,
			Status:  llm.SearchCompleted,
			Sources: sources,
		}, emit)
	}
}

func (h *chunkHandler) observe(a llm.SearchActivity, emit eventstream.Emit) {
	if ev, ok := h.searches.Observe(a); ok {
		emit(ev)
	}
}

// parseUsage reads usageMetadata. candidatesTokenCount excludes thoughts.
func parseUsage(raw json.RawMessage) *llm.Usage {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil
	}
	u := gjson.ParseBytes(raw)
	out := &llm.Usage{
		InputTokens:    intField(u, "promptTokenCount"),
		OutputTokens:   intField(u, "candidatesTokenCount"),
		ThinkingTokens: intField(u, "thoughtsTokenCount"),
		CachedTokens:   intField(u, "cachedContentTokenCount"),
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
