package anthropic

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/eventstream"
	"github.com/hrayleung/jin-llm/llm/internal/search"
	"github.com/hrayleung/jin-llm/llm/internal/sse"
	"github.com/hrayleung/jin-llm/llm/internal/toolcall"
)

// streamHandler folds Messages streaming events. Content blocks are keyed by
// their index.
type streamHandler struct {
	calls    toolcall.Accumulator
	searches search.Tracker
	usage    *llm.Usage

	// Blocks whose input arrives as input_json_delta.
	inputs map[int]*pendingInput
}

type pendingInput struct {
	server  bool
	id      string
	name    string
	initial json.RawMessage
	partial strings.Builder
}

func newStreamHandler() *streamHandler {
	return &streamHandler{inputs: make(map[int]*pendingInput)}
}

func (h *streamHandler) HandleRecord(rec sse.Record, emit eventstream.Emit) error {
	var ev streamEvent
	if err := json.Unmarshal(rec.Data, &ev); err != nil {
		return eventstream.Skip(err)
	}

	switch ev.Type {
	case "message_start":
		if ev.Message == nil {
			return eventstream.Skip(errMissing("message"))
		}
		emit(llm.MessageStart(ev.Message.ID))
		h.usage = h.usage.Merge(parseUsage(ev.Message.Usage))

	case "content_block_start":
		if ev.ContentBlock == nil {
			return eventstream.Skip(errMissing("content_block"))
		}
		h.start(ev.Index, *ev.ContentBlock, emit)

	case "content_block_delta":
		if ev.Delta == nil {
			return eventstream.Skip(errMissing("delta"))
		}
		h.delta(ev.Index, *ev.Delta, emit)

	case "content_block_stop":
		h.stop(ev.Index, emit)

	case "message_delta":
		h.usage = h.usage.Merge(parseUsage(ev.Usage))

	case "message_stop":
		return eventstream.ErrDone

	case "error":
		code := gjson.GetBytes(ev.Error, "type").String()
		msg := gjson.GetBytes(ev.Error, "message").String()
		if msg == "" {
			msg = "stream reported an error"
		}
		e := llm.ProviderError(llm.FamilyAnthropic, code, msg)
		e.Raw = append([]byte(nil), rec.Data...)
		return e
	}
	return nil
}

func (h *streamHandler) start(index int, b block, emit eventstream.Emit) {
	switch b.Type {
	case "text":
		emit(llm.TextDelta(b.Text))
		for _, c := range b.Citations {
			emitCitation(&h.searches, c, emit)
		}
	case "thinking":
		emit(llm.ThinkingText(b.Thinking))
		emit(llm.ThinkingSignature(b.Signature))
	case "redacted_thinking":
		emit(llm.RedactedThinking(b.Data))
	case "tool_use":
		h.inputs[index] = &pendingInput{id: b.ID, name: b.Name, initial: b.Input}
		h.emitAll(h.calls.Delta(index, b.ID, b.Name, ""), emit)
	case "server_tool_use":
		h.inputs[index] = &pendingInput{server: true, id: b.ID, name: b.Name, initial: b.Input}
		a := serverToolActivity(b.ID, b.Name, nil)
		a.Status = llm.SearchInProgress
		observe(&h.searches, a, emit)
	case "web_search_tool_result":
		observe(&h.searches, searchResult(b), emit)
	}
}

func (h *streamHandler) delta(index int, d delta, emit eventstream.Emit) {
	switch d.Type {
	case "text_delta":
		emit(llm.TextDelta(d.Text))
	case "thinking_delta":
		emit(llm.ThinkingText(d.Thinking))
	case "signature_delta":
		emit(llm.ThinkingSignature(d.Signature))
	case "citations_delta":
		if d.Citation != nil {
			emitCitation(&h.searches, *d.Citation, emit)
		}
	case "input_json_delta":
		if in, ok := h.inputs[index]; ok {
			in.partial.WriteString(d.PartialJSON)
		}
	}
}

// stop finishes a block. Tool input is parsed only here, once the fragment
// stream for the block is complete.
func (h *streamHandler) stop(index int, emit eventstream.Emit) {
	in, ok := h.inputs[index]
	if !ok {
		return
	}
	delete(h.inputs, index)

	raw := in.partial.String()
	if raw == "" {
		raw = inputJSON(in.initial)
	}
	if in.server {
		observe(&h.searches, serverToolActivity(in.id, in.name, json.RawMessage(raw)), emit)
		return
	}
	h.emitAll(h.calls.Delta(index, "", "", raw), emit)
	h.emitAll(h.calls.Complete(index), emit)
}

func (h *streamHandler) emitAll(evs []llm.StreamEvent, emit eventstream.Emit) {
	for _, ev := range evs {
		emit(ev)
	}
}

// Finish closes blocks a truncated stream left open and reports the usage
// gathered from message_start and message_delta.
func (h *streamHandler) Finish(emit eventstream.Emit) error {
	for _, index := range slices.Sorted(maps.Keys(h.inputs)) {
		h.stop(index, emit)
	}
	h.emitAll(h.calls.CompleteAll(), emit)
	emit(llm.MessageEnd(h.usage))
	return nil
}

type errMissing string

func (e errMissing) Error() string { return "event has no " + string(e) }
