package llm

import (
	"errors"
	"io"
	"iter"
	"strings"
)

// Stream yields StreamEvent values until io.EOF.
//
// Production is driven by Recv: nothing is read from the network until the
// consumer asks for the next event. Close aborts the underlying exchange.
type Stream interface {
	Recv() (StreamEvent, error)
	Close() error
}

type StreamEventKind string

const (
	EventMessageStart   StreamEventKind = "message_start"
	EventContentDelta   StreamEventKind = "content_delta"
	EventThinkingDelta  StreamEventKind = "thinking_delta"
	EventToolCallStart  StreamEventKind = "tool_call_start"
	EventToolCallEnd    StreamEventKind = "tool_call_end"
	EventSearchActivity StreamEventKind = "search_activity"
	EventMessageEnd     StreamEventKind = "message_end"
)

// MediaRef points at generated media: inline bytes, a local file or a remote URL.
type MediaRef struct {
	MIME string `json:"mime,omitempty"`
	Data []byte `json:"data,omitempty"`
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
}

type ContentDelta struct {
	Text  string    `json:"text,omitempty"`
	Image *MediaRef `json:"image,omitempty"`
	Video *MediaRef `json:"video,omitempty"`
}

// ThinkingDelta carries reasoning text or the signature that closes the
// current thinking block.
type ThinkingDelta struct {
	Text      string `json:"text,omitempty"`
	Signature string `json:"signature,omitempty"`
	Redacted  bool   `json:"redacted,omitempty"`
}

// StreamEvent is one canonical, provider-agnostic unit of output.
//
// message_start comes first when the provider supplied an id and
// message_end always comes last. A tool_call_start for an id precedes the
// tool_call_end for the same id.
type StreamEvent struct {
	Kind StreamEventKind `json:"kind"`

	MessageID string          `json:"message_id,omitempty"`
	Content   *ContentDelta   `json:"content,omitempty"`
	Thinking  *ThinkingDelta  `json:"thinking,omitempty"`
	ToolCall  *ToolCall       `json:"tool_call,omitempty"`
	Search    *SearchActivity `json:"search,omitempty"`
	Usage     *Usage          `json:"usage,omitempty"`
}

func MessageStart(id string) StreamEvent { return StreamEvent{Kind: EventMessageStart, MessageID: id} }

func TextDelta(text string) StreamEvent {
	return StreamEvent{Kind: EventContentDelta, Content: &ContentDelta{Text: text}}
}

func ThinkingText(text string) StreamEvent {
	return StreamEvent{Kind: EventThinkingDelta, Thinking: &ThinkingDelta{Text: text}}
}

func ThinkingSignature(sig string) StreamEvent {
	return StreamEvent{Kind: EventThinkingDelta, Thinking: &ThinkingDelta{Signature: sig}}
}

// RedactedThinking is a whole encrypted thinking block.
func RedactedThinking(data string) StreamEvent {
	return StreamEvent{Kind: EventThinkingDelta, Thinking: &ThinkingDelta{Signature: data, Redacted: true}}
}

func ToolCallStart(call ToolCall) StreamEvent {
	return StreamEvent{Kind: EventToolCallStart, ToolCall: &call}
}

func ToolCallEnd(call ToolCall) StreamEvent {
	return StreamEvent{Kind: EventToolCallEnd, ToolCall: &call}
}

func SearchEvent(a SearchActivity) StreamEvent {
	return StreamEvent{Kind: EventSearchActivity, Search: &a}
}

func MessageEnd(u *Usage) StreamEvent { return StreamEvent{Kind: EventMessageEnd, Usage: u} }

var ErrStreamClosed = errors.New("llm: stream closed")

// Events adapts a Stream to a range-over-func sequence. The stream is closed
// when iteration stops. A normal end yields no error.
func Events(s Stream) iter.Seq2[StreamEvent, error] {
	return func(yield func(StreamEvent, error) bool) {
		defer s.Close()
		for {
			ev, err := s.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(StreamEvent{}, err)
				}
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// Collector folds a stream of events into the final assistant turn.
type Collector struct {
	MessageID string
	text      strings.Builder
	thinking  []*thinkingPart
	media     []ContentBlock

	ToolCalls []ToolCall
	Searches  []SearchActivity
	Usage     *Usage
	Ended     bool

	started map[string]bool
}

func (c *Collector) Apply(ev StreamEvent) {
	switch ev.Kind {
	case EventMessageStart:
		c.MessageID = ev.MessageID
	case EventContentDelta:
		if ev.Content == nil {
			return
		}
		c.text.WriteString(ev.Content.Text)
		if ev.Content.Image != nil {
			c.media = append(c.media, mediaBlock(ContentImage, *ev.Content.Image))
		}
		if ev.Content.Video != nil {
			c.media = append(c.media, mediaBlock(ContentVideo, *ev.Content.Video))
		}
	case EventThinkingDelta:
		if ev.Thinking == nil {
			return
		}
		if ev.Thinking.Redacted {
			c.thinking = append(c.thinking, &thinkingPart{signature: ev.Thinking.Signature, redacted: true})
			return
		}
		if ev.Thinking.Text == "" && ev.Thinking.Signature == "" {
			return
		}
		part := c.openThinking()
		part.text.WriteString(ev.Thinking.Text)
		part.signature = ev.Thinking.Signature
	case EventToolCallStart:
		if ev.ToolCall == nil {
			return
		}
		if c.started == nil {
			c.started = make(map[string]bool)
		}
		c.started[ev.ToolCall.ID] = true
	case EventToolCallEnd:
		if ev.ToolCall != nil {
			c.ToolCalls = append(c.ToolCalls, *ev.ToolCall)
		}
	case EventSearchActivity:
		if ev.Search == nil {
			return
		}
		for i := range c.Searches {
			if c.Searches[i].ID == ev.Search.ID {
				c.Searches[i] = c.Searches[i].Merge(*ev.Search)
				return
			}
		}
		c.Searches = append(c.Searches, *ev.Search)
	case EventMessageEnd:
		c.Usage = c.Usage.Merge(ev.Usage)
		c.Ended = true
	}
}

// thinkingPart is one thinking block. A signature closes it.
type thinkingPart struct {
	text      strings.Builder
	signature string
	redacted  bool
}

func (c *Collector) openThinking() *thinkingPart {
	if n := len(c.thinking); n > 0 && c.thinking[n-1].signature == "" {
		return c.thinking[n-1]
	}
	part := &thinkingPart{}
	c.thinking = append(c.thinking, part)
	return part
}

func mediaBlock(t ContentType, ref MediaRef) ContentBlock {
	return ContentBlock{Type: t, MIME: ref.MIME, Data: ref.Data, Path: ref.Path, URL: ref.URL}
}

func (c *Collector) Text() string { return c.text.String() }

// Thinking returns the visible reasoning text of every thinking block.
func (c *Collector) Thinking() string {
	var b strings.Builder
	for _, part := range c.thinking {
		b.WriteString(part.text.String())
	}
	return b.String()
}

// Message returns the assistant message built from the applied events.
func (c *Collector) Message() Message {
	msg := Message{Role: RoleAssistant}
	for _, part := range c.thinking {
		if part.redacted {
			msg.Blocks = append(msg.Blocks, RedactedThinkingBlock(part.signature))
			continue
		}
		msg.Blocks = append(msg.Blocks, ThinkingBlock(part.text.String(), part.signature))
	}
	if c.text.Len() > 0 {
		msg.Blocks = append(msg.Blocks, TextBlock(c.text.String()))
	}
	msg.Blocks = append(msg.Blocks, c.media...)
	if len(c.ToolCalls) > 0 {
		msg.ToolCalls = append([]ToolCall(nil), c.ToolCalls...)
	}
	return msg
}

// Drain consumes and closes the stream, returning the collected turn.
func Drain(s Stream) (*Collector, error) {
	var c Collector
	for ev, err := range Events(s) {
		if err != nil {
			return &c, err
		}
		c.Apply(ev)
	}
	return &c, nil
}
