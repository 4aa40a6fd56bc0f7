package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/media"
	"github.com/hrayleung/jin-llm/llm/resolve"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func sseResponse(r *http.Request, records ...string) *http.Response {
	var b strings.Builder
	for _, rec := range records {
		b.WriteString("data: ")
		b.WriteString(rec)
		b.WriteString("\n\n")
	}
	h := make(http.Header)
	h.Set("Content-Type", "text/event-stream")
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(b.String())), Header: h, Request: r}
}

func jsonResponse(r *http.Request, status int, body string) *http.Response {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: h, Request: r}
}

func newTestProvider(t *testing.T, rt roundTripperFunc, opts ...Option) *Provider {
	t.Helper()
	base := []Option{WithBaseURL("https://example.test/v1"), WithHTTPClient(&http.Client{Transport: rt})}
	p, err := New("test-key", append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	return p
}

func request(model string, stream bool, msgs ...llm.Message) llm.Request {
	if len(msgs) == 0 {
		msgs = []llm.Message{llm.User("hi")}
	}
	return llm.Request{
		Model:    resolve.Resolve(llm.FamilyOpenAI, llm.ModelInfo{ID: model}),
		Messages: msgs,
		Stream:   stream,
	}
}

func drain(t *testing.T, p *Provider, req llm.Request) *llm.Collector {
	t.Helper()
	stream, err := p.SendMessage(context.Background(), req)
	if err != nil {
		t.Fatalf("SendMessage() err=%v", err)
	}
	c, err := llm.Drain(stream)
	if err != nil {
		t.Fatalf("Drain() err=%v", err)
	}
	return c
}

func drainErr(t *testing.T, p *Provider, req llm.Request) *llm.LLMError {
	t.Helper()
	stream, err := p.SendMessage(context.Background(), req)
	if err != nil {
		t.Fatalf("SendMessage() err=%v", err)
	}
	_, err = llm.Drain(stream)
	e, ok := llm.AsLLMError(err)
	if !ok {
		t.Fatalf("err=%v, want *llm.LLMError", err)
	}
	return e
}

var streamedTurn = []string{
	`{"type":"response.created","response":{"id":"resp_1","status":"in_progress","output":[]}}`,
	`{"type":"response.in_progress","response":{"id":"resp_1","status":"in_progress","output":[]}}`,
	`{"type":"response.output_item.added","output_index":0,"item":{"id":"rs_1","type":"reasoning","summary":[]}}`,
	`{"type":"response.reasoning_summary_part.added","output_index":0,"summary_index":0}`,
	`{"type":"response.reasoning_summary_text.delta","output_index":0,"summary_index":0,"delta":"Plan"}`,
	`{"type":"response.reasoning_summary_part.added","output_index":0,"summary_index":1}`,
	`{"type":"response.reasoning_summary_text.delta","output_index":0,"summary_index":1,"delta":"Act"}`,
	`{"type":"response.output_item.added","output_index":1,"item":{"id":"ws_1","type":"web_search_call","status":"in_progress"}}`,
	`{"type":"response.web_search_call.searching","output_index":1,"item_id":"ws_1"}`,
	`{"type":"response.output_item.done","output_index":1,"item":{"id":"ws_1","type":"web_search_call","status":"completed","action":{"type":"search","query":"go iter","sources":[{"type":"url","url":"https://go.dev/blog"}]}}}`,
	`{"type":"response.output_item.added","output_index":2,"item":{"id":"msg_1","type":"message","role":"assistant","content":[]}}`,
	`{"type":"response.output_text.delta","output_index":2,"item_id":"msg_1","delta":"Hello"}`,
	`{"type":"response.output_text.delta","output_index":2,"item_id":"msg_1","delta":" world"}`,
	`{"type":"response.output_text.annotation.added","output_index":2,"item_id":"msg_1","annotation":{"type":"url_citation","url":"https://go.dev/blog","title":"Go Blog"}}`,
	`{"type":"response.output_item.added","output_index":3,"item":{"id":"fc_1","type":"function_call","call_id":"call_1","name":"lookup","arguments":""}}`,
	`{"type":"response.function_call_arguments.delta","output_index":3,"item_id":"fc_1","delta":"{\"q\":"}`,
	`{"type":"response.function_call_arguments.delta","output_index":3,"item_id":"fc_1","delta":"\"x\"}"}`,
	`{"type":"response.output_item.done","output_index":3,"item":{"id":"fc_1","type":"function_call","call_id":"call_1","name":"lookup","arguments":"{\"q\":\"x\"}"}}`,
	`{"type":"response.completed","response":{"id":"resp_1","status":"completed","usage":{"input_tokens":10,"output_tokens":5,"output_tokens_details":{"reasoning_tokens":3},"input_tokens_details":{"cached_tokens":2}}}}`,
}

const batchTurn = `{
  "id": "resp_1",
  "status": "completed",
  "output": [
    {"id":"rs_1","type":"reasoning","summary":[{"type":"summary_text","text":"Plan"},{"type":"summary_text","text":"Act"}]},
    {"id":"ws_1","type":"web_search_call","status":"completed","action":{"type":"search","query":"go iter","sources":[{"type":"url","url":"https://go.dev/blog"}]}},
    {"id":"msg_1","type":"message","role":"assistant","content":[{"type":"output_text","text":"Hello world","annotations":[{"type":"url_citation","url":"https://go.dev/blog","title":"Go Blog"}]}]},
    {"id":"fc_1","type":"function_call","call_id":"call_1","name":"lookup","arguments":"{\"q\":\"x\"}"}
  ],
  "usage": {"input_tokens":10,"output_tokens":5,"output_tokens_details":{"reasoning_tokens":3},"input_tokens_details":{"cached_tokens":2}}
}`

func TestStream_FullTurn(t *testing.T) {
	p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/responses" {
			return jsonResponse(r, http.StatusNotFound, ""), nil
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			return jsonResponse(r, http.StatusUnauthorized, ""), nil
		}
		return sseResponse(r, streamedTurn...), nil
	})

	c := drain(t, p, request("gpt-5", true))
	if c.MessageID != "resp_1" {
		t.Fatalf("MessageID=%q", c.MessageID)
	}
	if got := c.Text(); got != "Hello world" {
		t.Fatalf("Text()=%q", got)
	}
	if got := c.Thinking(); got != "Plan\n\nAct" {
		t.Fatalf("Thinking()=%q", got)
	}
	if len(c.ToolCalls) != 1 {
		t.Fatalf("ToolCalls=%+v", c.ToolCalls)
	}
	call := c.ToolCalls[0]
	if call.ID != "call_1" || call.Name != "lookup" || call.Arguments["q"] != "x" {
		t.Fatalf("call=%+v", call)
	}
	if len(c.Searches) != 2 {
		t.Fatalf("Searches=%+v", c.Searches)
	}
	if s := c.Searches[0]; s.ID != "ws_1" || s.Type != llm.SearchTypeSearch || s.Status != llm.SearchCompleted || s.Query != "go iter" {
		t.Fatalf("search=%+v", s)
	}
	if s := c.Searches[1]; s.Type != llm.SearchTypeURLCitation || s.Title != "Go Blog" {
		t.Fatalf("citation=%+v", s)
	}
	want := &llm.Usage{InputTokens: llm.IntPtr(10), OutputTokens: llm.IntPtr(5), ThinkingTokens: llm.IntPtr(3), CachedTokens: llm.IntPtr(2)}
	if diff := cmp.Diff(want, c.Usage); diff != "" {
		t.Fatalf("usage mismatch (-want +got):\n%s", diff)
	}
}

func TestSendMessage_StreamAndBatchAgree(t *testing.T) {
	p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["stream"] == true {
			return sseResponse(r, streamedTurn...), nil
		}
		return jsonResponse(r, http.StatusOK, batchTurn), nil
	})

	streamed := drain(t, p, request("gpt-5", true))
	batch := drain(t, p, request("gpt-5", false))

	if diff := cmp.Diff(streamed.Message(), batch.Message()); diff != "" {
		t.Fatalf("message mismatch (-stream +batch):\n%s", diff)
	}
	if diff := cmp.Diff(streamed.Usage, batch.Usage); diff != "" {
		t.Fatalf("usage mismatch (-stream +batch):\n%s", diff)
	}
	if diff := cmp.Diff(streamed.Searches, batch.Searches); diff != "" {
		t.Fatalf("searches mismatch (-stream +batch):\n%s", diff)
	}
}

func TestSendMessage_ReasoningTextAgree(t *testing.T) {
	streamed := []string{
		`{"type":"response.created","response":{"id":"resp_2","status":"in_progress","output":[]}}`,
		`{"type":"response.output_item.added","output_index":0,"item":{"id":"rs_2","type":"reasoning","summary":[]}}`,
		`{"type":"response.reasoning_text.delta","output_index":0,"content_index":0,"delta":"step one, "}`,
		`{"type":"response.reasoning_text.delta","output_index":0,"content_index":0,"delta":"step two"}`,
		`{"type":"response.output_item.added","output_index":1,"item":{"id":"msg_2","type":"message","role":"assistant","content":[]}}`,
		`{"type":"response.output_text.delta","output_index":1,"item_id":"msg_2","delta":"42"}`,
		`{"type":"response.completed","response":{"id":"resp_2","status":"completed","usage":{"input_tokens":3,"output_tokens":4}}}`,
	}
	const batch = `{"id":"resp_2","status":"completed","output":[
		{"id":"rs_2","type":"reasoning","summary":[],"content":[{"type":"reasoning_text","text":"step one, step two"}]},
		{"id":"msg_2","type":"message","role":"assistant","content":[{"type":"output_text","text":"42"}]}
	],"usage":{"input_tokens":3,"output_tokens":4}}`

	p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["stream"] == true {
			return sseResponse(r, streamed...), nil
		}
		return jsonResponse(r, http.StatusOK, batch), nil
	})

	for _, stream := range []bool{true, false} {
		c := drain(t, p, request("gpt-5", stream))
		if got := c.Thinking(); got != "step one, step two" {
			t.Fatalf("stream=%v Thinking()=%q", stream, got)
		}
		if got := c.Text(); got != "42" {
			t.Fatalf("stream=%v Text()=%q", stream, got)
		}
	}
}

func TestStream_ArgumentsOnlyOnItemDone(t *testing.T) {
	p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
		return sseResponse(r,
			`{"type":"response.created","response":{"id":"resp_2"}}`,
			`{"type":"response.output_item.added","output_index":0,"item":{"type":"function_call","call_id":"call_9","name":"f","arguments":""}}`,
			`{"type":"response.output_item.done","output_index":0,"item":{"type":"function_call","call_id":"call_9","name":"f","arguments":"{\"a\":1}"}}`,
			`{"type":"response.completed","response":{"id":"resp_2"}}`,
		), nil
	})
	c := drain(t, p, request("gpt-5", true))
	if len(c.ToolCalls) != 1 || c.ToolCalls[0].RawArguments != `{"a":1}` {
		t.Fatalf("ToolCalls=%+v", c.ToolCalls)
	}
}

func TestStream_Failures(t *testing.T) {
	cases := []struct {
		name     string
		record   string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "response failed",
			record:   `{"type":"response.failed","response":{"id":"resp_3","status":"failed","error":{"code":"server_error","message":"boom"}}}`,
			wantCode: "server_error",
			wantMsg:  "boom",
		},
		{
			name:    "response failed without error",
			record:  `{"type":"response.failed","response":{"id":"resp_3","status":"failed"}}`,
			wantMsg: "response failed",
		},
		{
			name:     "error event",
			record:   `{"type":"error","code":"rate_limit_exceeded","message":"slow down"}`,
			wantCode: "rate_limit_exceeded",
			wantMsg:  "slow down",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
				return sseResponse(r, `{"type":"response.created","response":{"id":"resp_3"}}`, tc.record), nil
			})
			e := drainErr(t, p, request("gpt-5", true))
			if e.Kind != llm.ErrKindProvider || e.Code != tc.wantCode || e.Message != tc.wantMsg {
				t.Fatalf("err=%+v", e)
			}
			if len(e.Raw) == 0 {
				t.Fatalf("Raw is empty")
			}
		})
	}
}

func TestSendMessage_BatchFailedStatus(t *testing.T) {
	p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(r, http.StatusOK, `{"id":"resp_4","status":"failed","error":{"code":"server_error","message":"nope"}}`), nil
	})
	e := drainErr(t, p, request("gpt-5", false))
	if e.Code != "server_error" || e.Message != "nope" {
		t.Fatalf("err=%+v", e)
	}
}

func TestSendMessage_HTTPError(t *testing.T) {
	for _, stream := range []bool{true, false} {
		p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
			return jsonResponse(r, http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`), nil
		})
		e := drainErr(t, p, request("gpt-5", stream))
		if e.HTTPStatus != http.StatusTooManyRequests || e.Code != "rate_limit_exceeded" || !llm.IsRateLimit(e) {
			t.Fatalf("stream=%v err=%+v", stream, e)
		}
	}
}

func TestSendMessage_Validation(t *testing.T) {
	p, err := New("")
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if _, err := p.SendMessage(context.Background(), request("gpt-5", true)); err == nil {
		t.Fatalf("missing key accepted")
	} else if e, _ := llm.AsLLMError(err); e == nil || e.Kind != llm.ErrKindMissingCredential {
		t.Fatalf("err=%v", err)
	}

	p = newTestProvider(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request to %s", r.URL)
		return nil, nil
	})
	if _, err := p.SendMessage(context.Background(), llm.Request{Model: llm.ResolvedModel{ID: "gpt-5"}}); err == nil {
		t.Fatalf("empty messages accepted")
	}
	if _, err := p.SendMessage(context.Background(), request("gpt-image-1", false, llm.System("only system"))); err == nil {
		t.Fatalf("image request without prompt accepted")
	}
}

func TestGenerateImage(t *testing.T) {
	png := []byte("\x89PNG fake")
	var gotBody map[string]any
	p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/images/generations" {
			return jsonResponse(r, http.StatusNotFound, ""), nil
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		return jsonResponse(r, http.StatusOK, `{"data":[{"b64_json":"`+base64.StdEncoding.EncodeToString(png)+`"}],"output_format":"webp","usage":{"input_tokens":7,"output_tokens":100}}`), nil
	})

	req := request("gpt-image-1", false, llm.User("a red fox"))
	req.Controls.ImageGeneration = &llm.ImageGenerationControls{Size: "1024x1024", Quality: "high"}
	c := drain(t, p, req)

	want := map[string]any{"model": "gpt-image-1", "prompt": "a red fox", "size": "1024x1024", "quality": "high"}
	if diff := cmp.Diff(want, gotBody); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	msg := c.Message()
	if len(msg.Blocks) != 1 || msg.Blocks[0].Type != llm.ContentImage {
		t.Fatalf("blocks=%+v", msg.Blocks)
	}
	if b := msg.Blocks[0]; b.MIME != "image/webp" || string(b.Data) != string(png) {
		t.Fatalf("image=%+v", b)
	}
	if c.Usage == nil || c.Usage.InputTokens == nil || *c.Usage.InputTokens != 7 {
		t.Fatalf("usage=%+v", c.Usage)
	}
}

func TestGenerateImage_EditUsesMultipart(t *testing.T) {
	var gotPrompt, gotModel, gotImageType string
	p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/images/edits" {
			return jsonResponse(r, http.StatusNotFound, ""), nil
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() err=%v", err)
		}
		gotPrompt = r.FormValue("prompt")
		gotModel = r.FormValue("model")
		if fhs := r.MultipartForm.File["image[]"]; len(fhs) == 1 {
			gotImageType = fhs[0].Header.Get("Content-Type")
		}
		return jsonResponse(r, http.StatusOK, `{"data":[{"url":"https://cdn.test/out.png"}]}`), nil
	})

	msg := llm.Message{Role: llm.RoleUser, Blocks: []llm.ContentBlock{
		llm.TextBlock("make it blue"),
		llm.ImageBlock("image/jpeg", []byte("jpeg-bytes")),
	}}
	c := drain(t, p, request("gpt-image-1", false, msg))
	if gotPrompt != "make it blue" || gotModel != "gpt-image-1" || gotImageType != "image/jpeg" {
		t.Fatalf("prompt=%q model=%q image type=%q", gotPrompt, gotModel, gotImageType)
	}
	if blocks := c.Message().Blocks; len(blocks) != 1 || blocks[0].URL != "https://cdn.test/out.png" {
		t.Fatalf("blocks=%+v", blocks)
	}
}

func TestGenerateImage_EditRejectsRemoteSource(t *testing.T) {
	p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request to %s", r.URL)
		return nil, nil
	})
	msg := llm.Message{Role: llm.RoleUser, Blocks: []llm.ContentBlock{
		llm.TextBlock("edit"),
		llm.ImageURLBlock("https://cdn.test/in.png"),
	}}
	_, err := p.SendMessage(context.Background(), request("gpt-image-1", false, msg))
	if e, ok := llm.AsLLMError(err); !ok || e.Kind != llm.ErrKindInvalidRequest {
		t.Fatalf("err=%v", err)
	}
}

func TestGenerateVideo(t *testing.T) {
	var polls atomic.Int32
	p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/videos":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["seconds"] != "8" || body["prompt"] != "waves" {
				t.Errorf("body=%v", body)
			}
			return jsonResponse(r, http.StatusOK, `{"id":"video_1","status":"queued"}`), nil
		case r.URL.Path == "/v1/videos/video_1":
			if polls.Add(1) == 1 {
				return jsonResponse(r, http.StatusOK, `{"id":"video_1","status":"in_progress"}`), nil
			}
			return jsonResponse(r, http.StatusOK, `{"id":"video_1","status":"completed"}`), nil
		case r.URL.Path == "/v1/videos/video_1/content":
			h := make(http.Header)
			h.Set("Content-Type", "video/mp4")
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("mp4-bytes")), Header: h, Request: r}, nil
		}
		return jsonResponse(r, http.StatusNotFound, ""), nil
	}, WithMediaStore(media.NewStore(t.TempDir())), WithJobPolling(time.Millisecond, 5*time.Second))

	req := request("sora-2", false, llm.User("waves"))
	req.Controls.VideoGeneration = &llm.VideoGenerationControls{DurationSeconds: llm.IntPtr(8)}
	c := drain(t, p, req)

	blocks := c.Message().Blocks
	if len(blocks) != 1 || blocks[0].Type != llm.ContentVideo || blocks[0].MIME != "video/mp4" {
		t.Fatalf("blocks=%+v", blocks)
	}
	data, err := os.ReadFile(blocks[0].Path)
	if err != nil {
		t.Fatalf("ReadFile() err=%v", err)
	}
	if string(data) != "mp4-bytes" {
		t.Fatalf("stored=%q", data)
	}
	if c.MessageID != "video_1" {
		t.Fatalf("MessageID=%q", c.MessageID)
	}
}

func TestGenerateVideo_Failed(t *testing.T) {
	cases := []struct {
		name     string
		poll     string
		wantCode string
	}{
		{"without message", `{"id":"video_2","status":"failed"}`, "video_generation_failed"},
		{"with message", `{"id":"video_2","status":"failed","error":{"code":"moderation_blocked","message":"blocked by moderation"}}`, "video_poll_error"},
		{"expired", `{"id":"video_2","status":"expired"}`, "video_generation_expired"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
				if r.Method == http.MethodPost {
					return jsonResponse(r, http.StatusOK, `{"id":"video_2","status":"queued"}`), nil
				}
				return jsonResponse(r, http.StatusOK, tc.poll), nil
			}, WithJobPolling(time.Millisecond, 5*time.Second))
			e := drainErr(t, p, request("sora-2", false, llm.User("waves")))
			if e.Code != tc.wantCode {
				t.Fatalf("Code=%q, want %q (err=%v)", e.Code, tc.wantCode, e)
			}
		})
	}
}

func TestFetchAvailableModels(t *testing.T) {
	p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/models" {
			return jsonResponse(r, http.StatusNotFound, ""), nil
		}
		return jsonResponse(r, http.StatusOK, `{"data":[{"id":"gpt-4.1"},{"id":""},{"id":"sora-2"}]}`), nil
	})
	models, err := p.FetchAvailableModels(context.Background())
	if err != nil {
		t.Fatalf("FetchAvailableModels() err=%v", err)
	}
	if len(models) != 2 || models[0].ID != "gpt-4.1" || models[1].ID != "sora-2" {
		t.Fatalf("models=%+v", models)
	}
	if !models[1].Capabilities.Has(llm.CapVideoGeneration) {
		t.Fatalf("sora-2 capabilities=%v", models[1].Capabilities)
	}
}

func TestValidateAPIKey(t *testing.T) {
	p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
		if r.Header.Get("Authorization") == "Bearer good" {
			return jsonResponse(r, http.StatusOK, `{"data":[]}`), nil
		}
		return jsonResponse(r, http.StatusUnauthorized, `{"error":{"message":"bad key"}}`), nil
	})
	if ok, err := p.ValidateAPIKey(context.Background(), "good"); err != nil || !ok {
		t.Fatalf("good key: ok=%v err=%v", ok, err)
	}
	if ok, err := p.ValidateAPIKey(context.Background(), "bad"); err != nil || ok {
		t.Fatalf("bad key: ok=%v err=%v", ok, err)
	}
}
