package deepseek

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/resolve"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func chatRequest(model string) llm.Request {
	return llm.Request{
		Model:    resolve.Resolve(llm.FamilyDeepSeek, llm.ModelInfo{ID: model}),
		Messages: []llm.Message{llm.User("hi")},
	}
}

func TestDeepSeek_DefaultPathAndProviderName(t *testing.T) {
	httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path=%q", r.URL.Path)
		}
		return &http.Response{
			StatusCode: http.StatusUnauthorized,
			Body:       io.NopCloser(strings.NewReader(`{"error":{"message":"bad key","code":"invalid"}}`)),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})}

	p, err := New("bad",
		WithHTTPClient(httpClient),
		WithBaseURL("https://example.test"),
	)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	stream, err := p.SendMessage(context.Background(), chatRequest("deepseek-chat"))
	if err != nil {
		t.Fatalf("SendMessage() err=%v", err)
	}
	_, err = llm.Drain(stream)
	if err == nil {
		t.Fatalf("expected error")
	}
	llme, ok := llm.AsLLMError(err)
	if !ok {
		t.Fatalf("expected LLMError, got %T", err)
	}
	if llme.Provider != llm.FamilyDeepSeek || llme.Code != "invalid" {
		t.Fatalf("Provider=%q Code=%q", llme.Provider, llme.Code)
	}
}

func TestDeepSeek_Thinking(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		perCall ThinkingType
		want    string
	}{
		{name: "provider default", opts: []Option{WithDefaultThinkingDisabled()}, want: `{"type":"disabled"}`},
		{name: "per request wins", opts: []Option{WithDefaultThinkingDisabled()}, perCall: ThinkingEnabled, want: `{"type":"enabled"}`},
		{name: "enabled default", opts: []Option{WithDefaultThinkingEnabled()}, want: `{"type":"enabled"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got json.RawMessage
			httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				var body struct {
					Thinking json.RawMessage `json:"thinking"`
				}
				b, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(b, &body)
				got = body.Thinking
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader(`{"id":"x","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)),
					Header:     make(http.Header),
					Request:    r,
				}, nil
			})}

			p, err := New("key", append([]Option{WithHTTPClient(httpClient), WithBaseURL("https://example.test")}, tt.opts...)...)
			if err != nil {
				t.Fatalf("New() err=%v", err)
			}

			req := chatRequest("deepseek-chat")
			if tt.perCall != "" {
				WithThinking(tt.perCall)(&req.Controls)
			}
			stream, err := p.SendMessage(context.Background(), req)
			if err != nil {
				t.Fatalf("SendMessage() err=%v", err)
			}
			c, err := llm.Drain(stream)
			if err != nil {
				t.Fatalf("Drain() err=%v", err)
			}
			if c.Text() != "ok" {
				t.Fatalf("Text()=%q", c.Text())
			}
			if string(got) != tt.want {
				t.Fatalf("thinking=%s want %s", got, tt.want)
			}
		})
	}
}
