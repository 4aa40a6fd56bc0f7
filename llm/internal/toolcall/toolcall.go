// Package toolcall reassembles streamed tool-call argument fragments.
package toolcall

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/hrayleung/jin-llm/llm"
)

// IDPrefix marks ids minted by NewID.
const IDPrefix = "call_local_"

// NewID returns a synthetic call id for providers that do not assign one.
func NewID() string { return IDPrefix + uuid.NewString() }

// Synthetic reports whether id was minted by NewID.
func Synthetic(id string) bool { return strings.HasPrefix(id, IDPrefix) }

type entry struct {
	id        string
	name      string
	signature string
	args      strings.Builder
	started   bool
	done      bool
}

// Accumulator buffers argument fragments per call index. A call is announced
// with tool_call_start once its name is known and finished with
// tool_call_end only when Complete or CompleteAll is called for it.
type Accumulator struct {
	calls map[int]*entry
	order []int
}

func (a *Accumulator) get(index int) *entry {
	if a.calls == nil {
		a.calls = make(map[int]*entry)
	}
	e, ok := a.calls[index]
	if !ok {
		e = &entry{}
		a.calls[index] = e
		a.order = append(a.order, index)
	}
	return e
}

// Delta records one fragment for the call at index. id and name may be
// empty on continuation fragments.
func (a *Accumulator) Delta(index int, id, name, fragment string) []llm.StreamEvent {
	e := a.get(index)
	if e.done {
		return nil
	}
	if id != "" && !e.started {
		e.id = id
	}
	if name != "" && e.name == "" {
		e.name = name
	}
	e.args.WriteString(fragment)
	return a.start(e)
}

// SetSignature attaches a provider continuation token to the call at index.
func (a *Accumulator) SetSignature(index int, sig string) {
	if sig != "" {
		a.get(index).signature = sig
	}
}

// Has reports whether a call is open at index.
func (a *Accumulator) Has(index int) bool {
	e, ok := a.calls[index]
	return ok && !e.done
}

func (a *Accumulator) start(e *entry) []llm.StreamEvent {
	if e.started || e.name == "" {
		return nil
	}
	if e.id == "" {
		e.id = NewID()
	}
	e.started = true
	return []llm.StreamEvent{llm.ToolCallStart(llm.ToolCall{ID: e.id, Name: e.name, Signature: e.signature})}
}

// Complete finishes the call at index. Calls without a name are dropped.
func (a *Accumulator) Complete(index int) []llm.StreamEvent {
	e, ok := a.calls[index]
	if !ok || e.done {
		return nil
	}
	e.done = true
	if e.name == "" {
		return nil
	}
	out := a.start(e)
	call := llm.ToolCall{ID: e.id, Name: e.name, Signature: e.signature}
	FillArguments(&call, e.args.String())
	return append(out, llm.ToolCallEnd(call))
}

// CompleteAll finishes every open call in first-seen order.
func (a *Accumulator) CompleteAll() []llm.StreamEvent {
	var out []llm.StreamEvent
	for _, idx := range slices.Clone(a.order) {
		out = append(out, a.Complete(idx)...)
	}
	return out
}

// FillArguments parses raw into call.Arguments. A parse failure is recorded
// on the call instead of being returned.
func FillArguments(call *llm.ToolCall, raw string) {
	call.RawArguments = raw
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		call.Arguments = map[string]any{}
		return
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
		call.Arguments = nil
		call.ArgumentsError = err.Error()
		return
	}
	if args == nil {
		args = map[string]any{}
	}
	call.Arguments = args
}

// Complete builds a finished call from a non-streamed response.
func Complete(id, name, rawArgs, signature string) llm.ToolCall {
	if id == "" {
		id = NewID()
	}
	call := llm.ToolCall{ID: id, Name: name, Signature: signature}
	FillArguments(&call, rawArgs)
	return call
}
