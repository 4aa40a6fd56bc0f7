package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hrayleung/jin-llm/llm"
)

type fakeBackend struct {
	submit   func(ctx context.Context) (Job, error)
	polls    []Status
	pollErr  error
	download func(ctx context.Context, st Status) (io.ReadCloser, string, error)

	pollCount int
}

func (f *fakeBackend) Submit(ctx context.Context) (Job, error) {
	if f.submit != nil {
		return f.submit(ctx)
	}
	return Job{ID: "job_1"}, nil
}

func (f *fakeBackend) Poll(ctx context.Context, id string) (Status, error) {
	f.pollCount++
	if f.pollErr != nil {
		return Status{}, f.pollErr
	}
	if len(f.polls) == 0 {
		return Status{State: StatePending}, nil
	}
	st := f.polls[0]
	if len(f.polls) > 1 {
		f.polls = f.polls[1:]
	}
	return st, nil
}

func (f *fakeBackend) Download(ctx context.Context, st Status) (io.ReadCloser, string, error) {
	if f.download == nil {
		return nil, "", errors.New("unexpected download")
	}
	return f.download(ctx, st)
}

func fastController(kind Kind) *Controller {
	return &Controller{Family: llm.FamilyOpenAI, Kind: kind, PollInterval: time.Millisecond, Timeout: time.Second}
}

func TestRunDownloadsIntoStore(t *testing.T) {
	dir := t.TempDir()
	b := &fakeBackend{
		polls: []Status{{State: StatePending}, {State: StateDone, URL: "https://cdn.example/v.mp4", MIME: "video/mp4"}},
		download: func(ctx context.Context, st Status) (io.ReadCloser, string, error) {
			if st.URL != "https://cdn.example/v.mp4" {
				t.Fatalf("URL=%q", st.URL)
			}
			return io.NopCloser(strings.NewReader("mp4-bytes")), "", nil
		},
	}
	c := fastController(KindVideo)
	c.Store = NewStore(dir)

	ref, err := c.Run(context.Background(), b)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ref.MIME != "video/mp4" || filepath.Ext(ref.Path) != ".mp4" || filepath.Dir(ref.Path) != dir {
		t.Fatalf("ref=%+v", ref)
	}
	data, err := os.ReadFile(ref.Path)
	if err != nil || string(data) != "mp4-bytes" {
		t.Fatalf("file=%q err=%v", data, err)
	}
	if b.pollCount != 2 {
		t.Fatalf("pollCount=%d", b.pollCount)
	}
}

func TestRunInlineResultWithoutStore(t *testing.T) {
	b := &fakeBackend{
		submit: func(context.Context) (Job, error) {
			return Job{Status: Status{State: StateDone, MIME: "image/png", Data: []byte("png")}}, nil
		},
	}
	ref, err := fastController(KindImage).Run(context.Background(), b)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(ref.Data) != "png" || ref.MIME != "image/png" || ref.Path != "" {
		t.Fatalf("ref=%+v", ref)
	}
	if b.pollCount != 0 {
		t.Fatalf("pollCount=%d, want 0 for a job done at submit", b.pollCount)
	}
}

func TestRunTerminalErrors(t *testing.T) {
	rule := StatusRule{
		StatePath:    "status",
		States:       map[string]State{"queued": StatePending, "failed": StateFailed, "expired": StateExpired, "completed": StateDone},
		MessagePaths: []string{"error.message"},
	}
	cases := []struct {
		name     string
		code     int
		body     string
		wantCode string
		wantMsg  string
	}{
		{"failed without message", 200, `{"status":"failed"}`, "video_generation_failed", "video generation failed"},
		{"failed with message", 200, `{"status":"failed","error":{"message":"Prompt was blocked"}}`, "video_poll_error", "Prompt was blocked"},
		{"expired", 200, `{"status":"expired"}`, "video_generation_expired", "video generation expired"},
		{"non-2xx without status", 502, `<html>bad gateway</html>`, "video_generation_failed", "video generation failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &fakeBackend{polls: []Status{ParseStatus(tc.code, []byte(tc.body), rule)}}
			_, err := fastController(KindVideo).Run(context.Background(), b)
			e, ok := llm.AsLLMError(err)
			if !ok {
				t.Fatalf("err=%v, want *llm.LLMError", err)
			}
			if e.Kind != llm.ErrKindProvider || e.Code != tc.wantCode || e.Message != tc.wantMsg {
				t.Fatalf("err=%+v", e)
			}
		})
	}
}

func TestRunTimeout(t *testing.T) {
	c := fastController(KindVideo)
	c.Timeout = 20 * time.Millisecond
	_, err := c.Run(context.Background(), &fakeBackend{})
	e, ok := llm.AsLLMError(err)
	if !ok || e.Code != "video_generation_timeout" {
		t.Fatalf("err=%v", err)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := &fakeBackend{
		submit: func(context.Context) (Job, error) {
			cancel()
			return Job{ID: "job_1"}, nil
		},
	}
	c := fastController(KindVideo)
	c.PollInterval = time.Hour
	_, err := c.Run(ctx, b)
	e, ok := llm.AsLLMError(err)
	if !ok || e.Kind != llm.ErrKindCanceled {
		t.Fatalf("err=%v", err)
	}
	if b.pollCount != 0 {
		t.Fatalf("pollCount=%d", b.pollCount)
	}
}

func TestParseStatus(t *testing.T) {
	gemini := StatusRule{
		StatePath:    "done",
		States:       map[string]State{"true": StateDone, "false": StatePending},
		ErrorPath:    "error",
		MessagePaths: []string{"error.message"},
	}
	cases := []struct {
		name string
		code int
		body string
		want Status
	}{
		{"running", 200, `{"name":"operations/1"}`, Status{State: StatePending}},
		{"done", 200, `{"name":"operations/1","done":true,"response":{}}`, Status{State: StateDone}},
		{"error", 200, `{"done":true,"error":{"code":3,"message":"bad prompt"}}`, Status{State: StateFailed, Message: "bad prompt"}},
		{"null error ignored", 200, `{"done":false,"error":null}`, Status{State: StatePending}},
		{"not found", 404, `not json`, Status{State: StateFailed}},
		{"server error with message", 500, `{"error":{"message":"internal"}}`, Status{State: StateFailed, Message: "internal"}},
	}
	for _, tc := range cases {
		got := ParseStatus(tc.code, []byte(tc.body), gemini)
		if got.State != tc.want.State || got.Message != tc.want.Message {
			t.Fatalf("%s: got=%+v want=%+v", tc.name, got, tc.want)
		}
	}
}
