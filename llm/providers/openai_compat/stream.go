package openai_compat

import (
	"bytes"
	"encoding/json"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/eventstream"
	"github.com/hrayleung/jin-llm/llm/internal/search"
	"github.com/hrayleung/jin-llm/llm/internal/sse"
	"github.com/hrayleung/jin-llm/llm/internal/thinktag"
	"github.com/hrayleung/jin-llm/llm/internal/toolcall"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
)

// chunkHandler folds chat.completion.chunk records into canonical events.
// Only the first choice is reported.
type chunkHandler struct {
	family llm.ProviderFamily

	tags     thinktag.Splitter
	calls    toolcall.Accumulator
	searches search.Tracker
}

func newChunkHandler(family llm.ProviderFamily) *chunkHandler {
	return &chunkHandler{family: family}
}

func (h *chunkHandler) HandleRecord(rec sse.Record, emit eventstream.Emit) error {
	var chunk chatCompletionChunk
	if err := json.Unmarshal(rec.Data, &chunk); err != nil {
		return eventstream.Skip(err)
	}
	if len(chunk.Error) > 0 && !bytes.Equal(chunk.Error, []byte("null")) {
		return chunkError(h.family, rec.Data)
	}

	emit(llm.MessageStart(chunk.ID))

	for _, choice := range chunk.Choices {
		if choice.Index != 0 {
			continue
		}
		d := choice.Delta

		text, inline := splitContent(d.Content)
		emit(llm.ThinkingText(firstNonEmpty(d.ReasoningContent, d.Reasoning) + inline))
		if text != "" {
			thinking, visible := h.tags.Push(text)
			emit(llm.ThinkingText(thinking))
			emit(llm.TextDelta(visible))
		}
		emitImages(d.Images, emit)
		emitAnnotations(&h.searches, d.Annotations, emit)

		for i, tc := range d.ToolCalls {
			idx := i
			if tc.Index != nil {
				idx = *tc.Index
			}
			for _, ev := range h.calls.Delta(idx, tc.ID, tc.Function.Name, tc.Function.Arguments) {
				emit(ev)
			}
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			for _, ev := range h.calls.CompleteAll() {
				emit(ev)
			}
		}
	}
	emitSources(&h.searches, chunk.Citations, chunk.SearchResults, emit)

	if u := parseUsage(chunk.Usage); u != nil {
		emit(llm.MessageEnd(u))
	}
	return nil
}

// Finish releases text held back by an unterminated think tag and closes any
// tool call the vendor never finished.
func (h *chunkHandler) Finish(emit eventstream.Emit) error {
	emit(llm.TextDelta(h.tags.Flush()))
	for _, ev := range h.calls.CompleteAll() {
		emit(ev)
	}
	return nil
}

// parseEnvelope reports the vendor error carried by a body, if any.
func parseEnvelope(raw []byte) (code, message string) {
	return transport.ParseErrorEnvelope(raw)
}
