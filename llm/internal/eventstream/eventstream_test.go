package eventstream

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/sse"
)

// textHandler understands {"id":..,"text":..,"usage":..} records.
type textHandler struct{ finished int }

func (h *textHandler) HandleRecord(rec sse.Record, emit Emit) error {
	var v struct {
		ID    string `json:"id"`
		Text  string `json:"text"`
		Fatal string `json:"fatal"`
		Usage *struct {
			In  int `json:"in"`
			Out int `json:"out"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(rec.Data, &v); err != nil {
		return Skip(err)
	}
	if v.Fatal != "" {
		return llm.ProviderError(llm.FamilyOpenAI, "server_error", v.Fatal)
	}
	emit(llm.MessageStart(v.ID))
	emit(llm.TextDelta(v.Text))
	if v.Usage != nil {
		emit(llm.MessageEnd(&llm.Usage{InputTokens: llm.IntPtr(v.Usage.In)}))
		emit(llm.MessageEnd(&llm.Usage{OutputTokens: llm.IntPtr(v.Usage.Out)}))
	}
	return nil
}

func (h *textHandler) Finish(Emit) error {
	h.finished++
	return nil
}

func sseResponse(body string) Opener {
	return func() (*http.Response, error) {
		h := make(http.Header)
		h.Set("Content-Type", "text/event-stream")
		return &http.Response{StatusCode: http.StatusOK, Header: h, Body: io.NopCloser(strings.NewReader(body))}, nil
	}
}

func drain(t *testing.T, s llm.Stream) ([]llm.StreamEvent, error) {
	t.Helper()
	var out []llm.StreamEvent
	for {
		ev, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}

func TestStream_MalformedRecordSkipped(t *testing.T) {
	body := strings.Join([]string{
		`data: {"id":"m1","text":"Hel"}`,
		"",
		`data: {not json`,
		"",
		`data: {"id":"m1","text":"lo","usage":{"in":3,"out":2}}`,
		"",
		"data: [DONE]",
		"",
		`data: {"text":"after done"}`,
		"",
	}, "\n")
	h := &textHandler{}
	evs, err := drain(t, New(llm.FamilyOpenAI, nil, sseResponse(body), h))
	if err != nil {
		t.Fatalf("drain err=%v", err)
	}
	var c llm.Collector
	for _, ev := range evs {
		c.Apply(ev)
	}
	if c.Text() != "Hello" || c.MessageID != "m1" || !c.Ended {
		t.Fatalf("text=%q id=%q ended=%v", c.Text(), c.MessageID, c.Ended)
	}
	if evs[0].Kind != llm.EventMessageStart || evs[len(evs)-1].Kind != llm.EventMessageEnd {
		t.Fatalf("order: first=%s last=%s", evs[0].Kind, evs[len(evs)-1].Kind)
	}
	u := evs[len(evs)-1].Usage
	if u == nil || *u.InputTokens != 3 || *u.OutputTokens != 2 {
		t.Fatalf("usage=%+v", u)
	}
	if h.finished != 1 {
		t.Fatalf("Finish called %d times", h.finished)
	}
}

func TestStream_LateMessageStartDropped(t *testing.T) {
	run := func(emit Emit) error {
		emit(llm.TextDelta("a"))
		emit(llm.MessageStart("late"))
		return nil
	}
	evs, err := drain(t, Lazy(llm.FamilyGemini, nil, run))
	if err != nil {
		t.Fatalf("drain err=%v", err)
	}
	if len(evs) != 2 || evs[0].Kind != llm.EventContentDelta || evs[1].Kind != llm.EventMessageEnd {
		t.Fatalf("evs=%+v", evs)
	}
}

func TestStream_ProviderErrorTerminates(t *testing.T) {
	body := "data: {\"id\":\"m\",\"text\":\"x\"}\n\ndata: {\"fatal\":\"boom\"}\n\ndata: {\"text\":\"y\"}\n\n"
	evs, err := drain(t, New(llm.FamilyOpenAI, nil, sseResponse(body), &textHandler{}))
	le, ok := llm.AsLLMError(err)
	if !ok || le.Message != "boom" || le.Code != "server_error" {
		t.Fatalf("err=%v", err)
	}
	for _, ev := range evs {
		if ev.Kind == llm.EventMessageEnd {
			t.Fatalf("message_end emitted after failure")
		}
	}
}

func TestStream_CloseBeforeRecvNeverOpens(t *testing.T) {
	opened := false
	s := New(llm.FamilyOpenAI, nil, func() (*http.Response, error) {
		opened = true
		return nil, errors.New("unreachable")
	}, &textHandler{})
	_ = s.Close()
	if _, err := s.Recv(); !errors.Is(err, llm.ErrStreamClosed) {
		t.Fatalf("Recv() err=%v", err)
	}
	if opened {
		t.Fatalf("request sent after Close")
	}
}

func TestStream_OpenErrorMapped(t *testing.T) {
	s := New(llm.FamilyOpenAI, nil, func() (*http.Response, error) {
		return nil, errors.New("connection refused")
	}, &textHandler{})
	_, err := s.Recv()
	le, ok := llm.AsLLMError(err)
	if !ok || le.Kind != llm.ErrKindTransport {
		t.Fatalf("err=%v", err)
	}
	// The error is sticky.
	if _, err2 := s.Recv(); err2 != err {
		t.Fatalf("second Recv() err=%v", err2)
	}
}

func TestStream_NDJSON(t *testing.T) {
	open := func() (*http.Response, error) {
		h := make(http.Header)
		h.Set("Content-Type", "application/x-ndjson")
		body := "{\"id\":\"n\",\"text\":\"a\"}\n{\"text\":\"b\"}\n"
		return &http.Response{StatusCode: 200, Header: h, Body: io.NopCloser(strings.NewReader(body))}, nil
	}
	c, err := llm.Drain(New(llm.FamilyOllama, nil, open, &textHandler{}))
	if err != nil {
		t.Fatalf("Drain() err=%v", err)
	}
	if c.Text() != "ab" || c.MessageID != "n" {
		t.Fatalf("text=%q id=%q", c.Text(), c.MessageID)
	}
}
