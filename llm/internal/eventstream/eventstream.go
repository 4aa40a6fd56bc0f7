// Package eventstream is the pull-based runtime behind every adapter's
// llm.Stream.
//
// Adapters supply a Handler that turns framed records into canonical events.
// The runtime owns the parts every adapter shares: opening the exchange on
// the first Recv, skipping malformed records, keeping message_start first and
// message_end last, and merging usage reports into the final message_end.
package eventstream

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/sse"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
)

var (
	// ErrSkip drops the current record and keeps reading.
	ErrSkip = errors.New("eventstream: skip record")

	// ErrDone ends the stream normally after the current record.
	ErrDone = errors.New("eventstream: done")
)

// Skip wraps cause so the runtime logs it and moves on.
func Skip(cause error) error { return fmt.Errorf("%w: %v", ErrSkip, cause) }

// Emit hands one event to the runtime. Emitting llm.MessageEnd only records
// usage; the runtime emits the real message_end when the stream finishes.
type Emit func(llm.StreamEvent)

type Handler interface {
	HandleRecord(rec sse.Record, emit Emit) error

	// Finish is called once when the input is exhausted.
	Finish(emit Emit) error
}

// Opener performs the HTTP exchange. It is called at most once, on the first
// Recv.
type Opener func() (*http.Response, error)

type Stream struct {
	family llm.ProviderFamily
	logger *slog.Logger

	open    Opener
	handler Handler
	run     func(emit Emit) error

	resp *http.Response
	dec  sse.Reader
	em   emitter

	started  bool
	finished bool
	closed   bool
	err      error
}

// New returns a stream over a framed response body. The framing (SSE or
// NDJSON) follows the response Content-Type.
func New(family llm.ProviderFamily, logger *slog.Logger, open Opener, h Handler) *Stream {
	s := &Stream{family: family, logger: orDiscard(logger), open: open, handler: h}
	s.em.logger = s.logger
	return s
}

// Lazy returns a stream whose events are produced by run on the first Recv.
// It backs non-streaming calls and media jobs.
func Lazy(family llm.ProviderFamily, logger *slog.Logger, run func(emit Emit) error) *Stream {
	s := &Stream{family: family, logger: orDiscard(logger), run: run}
	s.em.logger = s.logger
	return s
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

func (s *Stream) Recv() (llm.StreamEvent, error) {
	for {
		if s.closed {
			return llm.StreamEvent{}, llm.ErrStreamClosed
		}
		if ev, ok := s.em.pop(); ok {
			return ev, nil
		}
		if s.err != nil {
			return llm.StreamEvent{}, s.err
		}
		if s.finished {
			return llm.StreamEvent{}, io.EOF
		}
		if err := s.step(); err != nil {
			s.err = s.wrap(err)
			s.release()
		}
	}
}

func (s *Stream) step() error {
	if s.run != nil {
		s.finished = true
		if err := s.run(s.em.emit); err != nil {
			return err
		}
		s.em.end()
		return nil
	}

	if !s.started {
		s.started = true
		resp, err := s.open()
		if err != nil {
			return err
		}
		s.resp = resp
		s.dec = sse.ForContentType(resp.Header.Get("Content-Type"), resp.Body)
		return nil
	}

	rec, err := s.dec.Next()
	if errors.Is(err, io.EOF) {
		return s.finish()
	}
	if err != nil {
		return err
	}
	if rec.Done() {
		return s.finish()
	}

	err = s.handler.HandleRecord(rec, s.em.emit)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSkip):
		s.logger.Debug("llm stream: skipped record", "provider", s.family, "event", rec.Event, "err", err)
		return nil
	case errors.Is(err, ErrDone):
		return s.finish()
	default:
		if _, ok := llm.AsLLMError(err); ok {
			return err
		}
		return llm.DecodeError(s.family, rec.Data, err)
	}
}

func (s *Stream) finish() error {
	s.finished = true
	if err := s.handler.Finish(s.em.emit); err != nil {
		return err
	}
	s.em.end()
	s.release()
	return nil
}

func (s *Stream) wrap(err error) error {
	if _, ok := llm.AsLLMError(err); ok {
		return err
	}
	return transport.MapError(s.family, err)
}

func (s *Stream) release() {
	if s.resp != nil && s.resp.Body != nil {
		_ = s.resp.Body.Close()
		s.resp = nil
	}
}

// Close aborts the exchange. Closing before the first Recv means no request
// is ever sent.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.release()
	return nil
}

// emitter enforces event ordering and accumulates usage.
type emitter struct {
	logger *slog.Logger

	queue   []llm.StreamEvent
	started bool
	any     bool
	usage   *llm.Usage
}

func (e *emitter) emit(ev llm.StreamEvent) {
	switch ev.Kind {
	case llm.EventMessageStart:
		if ev.MessageID == "" || e.started {
			return
		}
		if e.any {
			e.logger.Debug("llm stream: late message_start dropped", "id", ev.MessageID)
			return
		}
		e.started = true
	case llm.EventMessageEnd:
		e.usage = e.usage.Merge(ev.Usage)
		return
	case llm.EventContentDelta:
		if ev.Content == nil || (ev.Content.Text == "" && ev.Content.Image == nil && ev.Content.Video == nil) {
			return
		}
	case llm.EventThinkingDelta:
		if ev.Thinking == nil || (ev.Thinking.Text == "" && ev.Thinking.Signature == "") {
			return
		}
	}
	e.any = true
	e.queue = append(e.queue, ev)
}

func (e *emitter) end() {
	e.queue = append(e.queue, llm.MessageEnd(e.usage))
}

func (e *emitter) pop() (llm.StreamEvent, bool) {
	if len(e.queue) == 0 {
		return llm.StreamEvent{}, false
	}
	ev := e.queue[0]
	e.queue = e.queue[1:]
	return ev, true
}
