package ollama

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

func TestOllama_DefaultPathAndProviderName(t *testing.T) {
	httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path=%q", r.URL.Path)
		}
		return &http.Response{
			StatusCode: http.StatusBadRequest,
			Body:       io.NopCloser(strings.NewReader(`{"error":{"message":"bad request"}}`)),
			Header:     make(http.Header),
			Request:    r,
		}, nil
	})}

	p, err := New("", WithHTTPClient(httpClient))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	client := llm.New(p, func(info llm.ModelInfo) llm.ResolvedModel { return resolve.Resolve(llm.FamilyOllama, info) })
	stream, err := client.SendMessage(context.Background(), llm.ModelInfo{ID: "llama3"}, []llm.Message{llm.User("hi")}, llm.GenerationControls{}, nil, true)
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
	if llme.Provider != llm.FamilyOllama || llme.Message != "bad request" {
		t.Fatalf("Provider=%q Message=%q", llme.Provider, llme.Message)
	}
}

func TestOllama_Think(t *testing.T) {
	tests := []struct {
		name  string
		info  llm.ModelInfo
		think func(*llm.GenerationControls)
		want  any
	}{
		{
			name:  "bool",
			info:  llm.ModelInfo{ID: "qwen3", Capabilities: llm.CapabilitySet{llm.CapStreaming, llm.CapReasoning}, Reasoning: &llm.ReasoningConfig{Type: llm.ReasoningTypeNone}},
			think: WithThink(true, ""),
			want:  true,
		},
		{
			name: "effort",
			info: llm.ModelInfo{ID: "gpt-oss:20b", Capabilities: llm.CapabilitySet{llm.CapStreaming, llm.CapReasoning}, Reasoning: &llm.ReasoningConfig{
				Type: llm.ReasoningTypeEffort, DefaultEffort: llm.EffortMedium, Efforts: []llm.ReasoningEffort{llm.EffortLow, llm.EffortMedium, llm.EffortHigh},
			}},
			think: WithThink(true, llm.EffortLow),
			want:  "low",
		},
		{
			name:  "off",
			info:  llm.ModelInfo{ID: "qwen3", Capabilities: llm.CapabilitySet{llm.CapStreaming, llm.CapReasoning}, Reasoning: &llm.ReasoningConfig{Type: llm.ReasoningTypeNone}},
			think: WithThink(false, ""),
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				b, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(b, &body)
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"<think>hmm</think>ok"},"finish_reason":"stop"}]}`)),
					Header:     make(http.Header),
					Request:    r,
				}, nil
			})}

			p, err := New("", WithHTTPClient(httpClient))
			if err != nil {
				t.Fatalf("New() err=%v", err)
			}
			req := llm.Request{Model: resolve.Resolve(llm.FamilyOllama, tt.info), Messages: []llm.Message{llm.User("hi")}}
			tt.think(&req.Controls)

			stream, err := p.SendMessage(context.Background(), req)
			if err != nil {
				t.Fatalf("SendMessage() err=%v", err)
			}
			c, err := llm.Drain(stream)
			if err != nil {
				t.Fatalf("Drain() err=%v", err)
			}
			if body["think"] != tt.want {
				t.Fatalf("think=%v want %v", body["think"], tt.want)
			}
			if c.Thinking() != "hmm" || c.Text() != "ok" {
				t.Fatalf("Thinking()=%q Text()=%q", c.Thinking(), c.Text())
			}
		})
	}
}
