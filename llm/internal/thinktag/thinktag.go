// Package thinktag separates a leading <think>...</think> block from a plain
// content stream.
//
// Some models inline their reasoning at the start of ordinary content. The
// Splitter is fed content chunks as they arrive and reports which part is
// reasoning and which part is visible text, independent of where the chunk
// boundaries fall.
package thinktag

import "strings"

type tag struct{ open, close string }

var tags = []tag{
	{open: "<thinking>", close: "</thinking>"},
	{open: "<think>", close: "</think>"},
}

type state int

const (
	stateDetect state = iota
	stateThink
	statePass
)

// Splitter is a small state machine. The zero value is ready to use.
type Splitter struct {
	state state

	// raw holds every byte seen while the outcome is undecided so it can be
	// replayed verbatim if the tag turns out to be malformed.
	raw  strings.Builder
	open tag
	body strings.Builder
	seek int
}

// Push feeds one content chunk. Either return value may be empty.
func (s *Splitter) Push(chunk string) (thinking, visible string) {
	if chunk == "" {
		return "", ""
	}
	switch s.state {
	case statePass:
		return "", chunk
	case stateThink:
		s.raw.WriteString(chunk)
		s.body.WriteString(chunk)
		return s.scanClose()
	}

	s.raw.WriteString(chunk)
	buffered := s.raw.String()
	trimmed := strings.TrimLeft(buffered, " \t\r\n")
	if trimmed == "" {
		return "", ""
	}
	for _, t := range tags {
		if strings.HasPrefix(trimmed, t.open) {
			s.state = stateThink
			s.open = t
			s.body.WriteString(trimmed[len(t.open):])
			return s.scanClose()
		}
	}
	for _, t := range tags {
		if strings.HasPrefix(t.open, trimmed) {
			return "", ""
		}
	}
	s.state = statePass
	s.raw.Reset()
	return "", buffered
}

func (s *Splitter) scanClose() (string, string) {
	body := s.body.String()
	idx := strings.Index(body[s.seek:], s.open.close)
	if idx < 0 {
		// A partial close tag may straddle the next chunk.
		if n := len(body) - len(s.open.close) + 1; n > s.seek {
			s.seek = n
		}
		return "", ""
	}
	idx += s.seek
	s.state = statePass
	s.raw.Reset()
	s.body.Reset()
	return body[:idx], body[idx+len(s.open.close):]
}

// Flush ends the stream. Text held back for an open tag that never closed is
// returned as visible content, exactly as received.
func (s *Splitter) Flush() (visible string) {
	if s.state == statePass {
		return ""
	}
	out := s.raw.String()
	s.raw.Reset()
	s.body.Reset()
	s.state = statePass
	return out
}

// Split runs a whole text through a fresh Splitter.
func Split(text string) (thinking, visible string) {
	var s Splitter
	th, vis := s.Push(text)
	return th, vis + s.Flush()
}
