package openai

import (
	"encoding/json"
	"errors"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/eventstream"
	"github.com/hrayleung/jin-llm/llm/internal/search"
	"github.com/hrayleung/jin-llm/llm/internal/sse"
	"github.com/hrayleung/jin-llm/llm/internal/toolcall"
)

// streamHandler folds Responses streaming events. Function calls are keyed
// by output_index.
type streamHandler struct {
	calls    toolcall.Accumulator
	searches search.Tracker

	// streamed records the calls whose arguments came as deltas.
	streamed map[int]bool
}

var errMissingItem = errors.New("event has no item")

func (h *streamHandler) HandleRecord(rec sse.Record, emit eventstream.Emit) error {
	var ev streamEvent
	if err := json.Unmarshal(rec.Data, &ev); err != nil {
		return eventstream.Skip(err)
	}

	switch ev.Type {
	case "response.created", "response.in_progress":
		if ev.Response != nil {
			emit(llm.MessageStart(ev.Response.ID))
		}

	case "response.output_item.added", "response.output_item.done":
		if ev.Item == nil {
			return eventstream.Skip(errMissingItem)
		}
		h.item(ev.Type == "response.output_item.done", ev.OutputIndex, *ev.Item, emit)

	case "response.function_call_arguments.delta":
		if h.streamed == nil {
			h.streamed = make(map[int]bool)
		}
		h.streamed[ev.OutputIndex] = true
		h.emitAll(h.calls.Delta(ev.OutputIndex, "", "", ev.Delta), emit)

	case "response.web_search_call.in_progress", "response.web_search_call.searching", "response.web_search_call.completed":
		status := ev.Type[len("response.web_search_call."):]
		observe(&h.searches, llm.SearchActivity{ID: ev.ItemID, Status: searchStatus(status)}, emit)

	case "response.reasoning_summary_part.added":
		if ev.SummaryIndex > 0 {
			emit(llm.ThinkingText(summarySeparator))
		}

	case "response.reasoning_summary_text.delta", "response.reasoning_text.delta":
		emit(llm.ThinkingText(ev.Delta))

	case "response.output_text.delta", "response.refusal.delta":
		emit(llm.TextDelta(ev.Delta))

	case "response.output_text.annotation.added":
		if ev.Annotation != nil {
			emitAnnotation(&h.searches, *ev.Annotation, emit)
		}

	case "response.completed", "response.incomplete":
		h.emitAll(h.calls.CompleteAll(), emit)
		if ev.Response != nil {
			emit(llm.MessageEnd(parseUsage(ev.Response.Usage)))
		}
		return eventstream.ErrDone

	case "response.failed":
		if ev.Response == nil {
			return responseError(nil, rec.Data)
		}
		return responseError(ev.Response.Error, rec.Data)

	case "error":
		msg := ev.Message
		if msg == "" {
			msg = "stream reported an error"
		}
		e := llm.ProviderError(llm.FamilyOpenAI, ev.Code, msg)
		e.Raw = append([]byte(nil), rec.Data...)
		return e
	}
	return nil
}

func (h *streamHandler) item(done bool, index int, item outputItem, emit eventstream.Emit) {
	switch item.Type {
	case "function_call":
		args := ""
		if done && !h.streamed[index] {
			// Arguments arrive with the item when no deltas were sent.
			args = item.Arguments
		}
		h.emitAll(h.calls.Delta(index, item.CallID, item.Name, args), emit)
		if done {
			h.emitAll(h.calls.Complete(index), emit)
		}
	case "web_search_call":
		observe(&h.searches, searchActivity(item), emit)
	}
}

func (h *streamHandler) emitAll(evs []llm.StreamEvent, emit eventstream.Emit) {
	for _, ev := range evs {
		emit(ev)
	}
}

func (h *streamHandler) Finish(emit eventstream.Emit) error {
	h.emitAll(h.calls.CompleteAll(), emit)
	return nil
}
