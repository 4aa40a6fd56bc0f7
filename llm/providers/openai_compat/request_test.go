package openai_compat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hrayleung/jin-llm/llm"
)

const okResponse = `{"id":"x","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`

// sendCaptured runs req to completion and returns the raw request body.
func sendCaptured(t *testing.T, family llm.ProviderFamily, req llm.Request, opts ...Option) []byte {
	t.Helper()
	var gotBody []byte
	p := newTestProvider(t, family, func(r *http.Request) (*http.Response, error) {
		gotBody, _ = io.ReadAll(r.Body)
		return jsonResponse(r, http.StatusOK, okResponse), nil
	}, opts...)
	drain(t, p, req)
	if len(gotBody) == 0 {
		t.Fatalf("empty body")
	}
	return gotBody
}

func decodeBody(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal body: %v\n%s", err, string(b))
	}
	return m
}

func TestRequestMapping_CommonFields(t *testing.T) {
	req := request(llm.FamilyGroq, "openai/gpt-oss-120b", false)
	req.Controls = llm.GenerationControls{
		Temperature: llm.Float64Ptr(0.7),
		TopP:        llm.Float64Ptr(0.9),
		MaxTokens:   llm.IntPtr(123),
		Reasoning:   &llm.ReasoningControls{Enabled: true, Effort: llm.EffortXHigh},
	}
	req.Tools = []llm.ToolDefinition{{
		Name:        "get_weather",
		Description: "Look up the weather",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`),
	}}

	m := decodeBody(t, sendCaptured(t, llm.FamilyGroq, req))

	if m["model"] != "openai/gpt-oss-120b" {
		t.Fatalf("model=%v", m["model"])
	}
	if m["max_tokens"] != float64(123) {
		t.Fatalf("max_tokens=%v", m["max_tokens"])
	}
	if m["temperature"] != 0.7 {
		t.Fatalf("temperature=%v", m["temperature"])
	}
	if m["top_p"] != 0.9 {
		t.Fatalf("top_p=%v", m["top_p"])
	}
	// xhigh is clamped to the best level the model supports.
	if m["reasoning_effort"] != "high" {
		t.Fatalf("reasoning_effort=%v", m["reasoning_effort"])
	}
	if _, ok := m["stream"]; ok {
		t.Fatalf("stream set on a non-streaming call")
	}
	tools, _ := m["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("tools=%v", m["tools"])
	}
	fn, _ := tools[0].(map[string]any)["function"].(map[string]any)
	if fn["name"] != "get_weather" || fn["parameters"] == nil {
		t.Fatalf("function=%v", fn)
	}
}

func TestRequestMapping_ProviderSpecificOverlayWins(t *testing.T) {
	req := request(llm.FamilyOpenRouter, "openai/gpt-5.2", false)
	req.Controls = llm.GenerationControls{
		Temperature: llm.Float64Ptr(0.2),
		ProviderSpecific: map[string]any{
			"temperature": 1.0,
			"provider":    map[string]any{"order": []string{"openai"}},
			"stop":        nil,
			"a.b":         "literal",
		},
	}

	body := sendCaptured(t, llm.FamilyOpenRouter, req)
	m := decodeBody(t, body)

	if m["temperature"] != 1.0 {
		t.Fatalf("temperature=%v", m["temperature"])
	}
	if diff := cmp.Diff(map[string]any{"order": []any{"openai"}}, m["provider"]); diff != "" {
		t.Fatalf("provider mismatch (-want +got):\n%s", diff)
	}
	if !bytes.Contains(body, []byte(`"stop":null`)) {
		t.Fatalf("body=%s", string(body))
	}
	if m["a.b"] != "literal" {
		t.Fatalf("dotted key=%v body=%s", m["a.b"], string(body))
	}
}

func TestRequestMapping_Messages(t *testing.T) {
	msgs := []llm.Message{
		llm.System("be brief"),
		{Role: llm.RoleUser, Blocks: []llm.ContentBlock{
			llm.TextBlock("what is this?"),
			llm.ImageBlock("image/png", []byte("png")),
			llm.ImageURLBlock("https://img.example/cat.jpg"),
			{Type: llm.ContentFile, Filename: "notes.pdf", MIME: "application/pdf", ExtractedText: "page one"},
		}},
		{
			Role:      llm.RoleAssistant,
			Blocks:    []llm.ContentBlock{llm.ThinkingBlock("plan", ""), llm.TextBlock("checking")},
			ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "lookup", Arguments: map[string]any{"city": "Paris"}}},
		},
		llm.ToolResults(
			llm.ToolResult{ToolCallID: "call_1", Content: "sunny"},
			llm.ToolResult{ToolCallID: "call_2", Content: "boom", IsError: true},
		),
	}

	m := decodeBody(t, sendCaptured(t, llm.FamilyMistral, request(llm.FamilyMistral, "mistral-large-latest", false, msgs...)))
	wire, _ := m["messages"].([]any)
	if len(wire) != 5 {
		t.Fatalf("messages=%d", len(wire))
	}

	sys := wire[0].(map[string]any)
	if sys["role"] != "system" || sys["content"] != "be brief" {
		t.Fatalf("system=%v", sys)
	}

	wantUser := []any{
		map[string]any{"type": "text", "text": "what is this?"},
		map[string]any{"type": "image_url", "image_url": map[string]any{"url": "data:image/png;base64,cG5n"}},
		map[string]any{"type": "image_url", "image_url": map[string]any{"url": "https://img.example/cat.jpg"}},
		map[string]any{"type": "text", "text": "[Attachment: notes.pdf (application/pdf)]\npage one"},
	}
	if diff := cmp.Diff(wantUser, wire[1].(map[string]any)["content"]); diff != "" {
		t.Fatalf("user content mismatch (-want +got):\n%s", diff)
	}

	asst := wire[2].(map[string]any)
	if asst["content"] != "checking" {
		t.Fatalf("assistant content=%v", asst["content"])
	}
	if _, ok := asst["reasoning_content"]; ok {
		t.Fatalf("reasoning echoed without WithReasoningEcho")
	}
	calls := asst["tool_calls"].([]any)
	fn := calls[0].(map[string]any)["function"].(map[string]any)
	if fn["name"] != "lookup" || fn["arguments"] != `{"city":"Paris"}` {
		t.Fatalf("function=%v", fn)
	}

	for i, id := range []string{"call_1", "call_2"} {
		tm := wire[3+i].(map[string]any)
		if tm["role"] != "tool" || tm["tool_call_id"] != id {
			t.Fatalf("tool message %d=%v", i, tm)
		}
	}
}

func TestRequestMapping_ImagesWithoutVisionBecomePlaceholders(t *testing.T) {
	msg := llm.Message{Role: llm.RoleUser, Blocks: []llm.ContentBlock{
		llm.TextBlock("describe"),
		{Type: llm.ContentImage, MIME: "image/png", Filename: "cat.png", Data: []byte("png")},
	}}

	m := decodeBody(t, sendCaptured(t, llm.FamilyGroq, request(llm.FamilyGroq, "llama-3.3-70b-versatile", false, msg)))
	wire := m["messages"].([]any)
	if got := wire[0].(map[string]any)["content"]; got != "describe\n[Attachment: cat.png (image/png)]" {
		t.Fatalf("content=%q", got)
	}
}

func TestRequestMapping_DeepSeekEchoesReasoningOnToolTurns(t *testing.T) {
	msgs := []llm.Message{
		llm.User("weather?"),
		{
			Role:      llm.RoleAssistant,
			Blocks:    []llm.ContentBlock{llm.ThinkingBlock("need the tool", "")},
			ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "lookup", RawArguments: `{"q":"sf"}`}},
		},
		llm.ToolResults(llm.ToolResult{ToolCallID: "call_1", Content: "sunny"}),
		{Role: llm.RoleAssistant, Blocks: []llm.ContentBlock{llm.ThinkingBlock("easy", ""), llm.TextBlock("Sunny.")}},
		llm.User("thanks"),
	}

	m := decodeBody(t, sendCaptured(t, llm.FamilyDeepSeek, request(llm.FamilyDeepSeek, "deepseek-reasoner", false, msgs...)))
	wire := m["messages"].([]any)

	toolTurn := wire[1].(map[string]any)
	if toolTurn["reasoning_content"] != "need the tool" {
		t.Fatalf("reasoning_content=%v", toolTurn["reasoning_content"])
	}
	fn := toolTurn["tool_calls"].([]any)[0].(map[string]any)["function"].(map[string]any)
	if fn["arguments"] != `{"q":"sf"}` {
		t.Fatalf("arguments=%v", fn["arguments"])
	}
	if _, ok := wire[3].(map[string]any)["reasoning_content"]; ok {
		t.Fatalf("reasoning echoed on a plain assistant turn")
	}
}

func TestRequestMapping_DefaultControls(t *testing.T) {
	thinkingOff := func(c *llm.GenerationControls) {
		c.Reasoning = &llm.ReasoningControls{Enabled: false}
		c.ProviderSpecific = map[string]any{"user": "default", "seed": 1}
	}

	tests := []struct {
		name         string
		controls     llm.GenerationControls
		wantThinking string
		wantUser     string
	}{
		{
			name:         "default applies",
			wantThinking: "disabled",
			wantUser:     "default",
		},
		{
			name: "request wins",
			controls: llm.GenerationControls{
				Reasoning:        &llm.ReasoningControls{Enabled: true},
				ProviderSpecific: map[string]any{"user": "mine"},
			},
			wantThinking: "enabled",
			wantUser:     "mine",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(llm.FamilyDeepSeek, "deepseek-chat", false)
			req.Controls = tt.controls
			before := req.Controls.Clone()

			m := decodeBody(t, sendCaptured(t, llm.FamilyDeepSeek, req, WithDefaultControls(thinkingOff)))
			thinking, _ := m["thinking"].(map[string]any)
			if thinking["type"] != tt.wantThinking {
				t.Fatalf("thinking=%v", m["thinking"])
			}
			if m["user"] != tt.wantUser {
				t.Fatalf("user=%v", m["user"])
			}
			if m["seed"] != float64(1) {
				t.Fatalf("seed=%v", m["seed"])
			}
			if diff := cmp.Diff(before, req.Controls); diff != "" {
				t.Fatalf("request controls mutated (-before +after):\n%s", diff)
			}
		})
	}
}

func TestRequestMapping_Hooks(t *testing.T) {
	var gotHeader string
	var gotBody []byte
	p := newTestProvider(t, llm.FamilyFireworks, func(r *http.Request) (*http.Response, error) {
		gotHeader = r.Header.Get("X-Trace")
		gotBody, _ = io.ReadAll(r.Body)
		return jsonResponse(r, http.StatusOK, okResponse), nil
	}, WithHooks(Hooks{
		PatchHeaders: func(h http.Header) { h.Set("X-Trace", "t1") },
		PatchRequest: func(m map[string]any) { m["user"] = "hooked" },
	}), WithHooks(Hooks{
		PatchRequest: func(m map[string]any) { m["n"] = 1 },
	}))

	stream, err := p.SendMessage(context.Background(), request(llm.FamilyFireworks, "accounts/fireworks/models/kimi-k2", false))
	if err != nil {
		t.Fatalf("SendMessage() err=%v", err)
	}
	if _, err := llm.Drain(stream); err != nil {
		t.Fatalf("Drain() err=%v", err)
	}

	if gotHeader != "t1" {
		t.Fatalf("X-Trace=%q", gotHeader)
	}
	m := decodeBody(t, gotBody)
	if m["user"] != "hooked" || m["n"] != float64(1) {
		t.Fatalf("body=%s", string(gotBody))
	}
}

func TestRequestMapping_CustomPaths(t *testing.T) {
	var gotURL string
	rt := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		return jsonResponse(r, http.StatusOK, okResponse), nil
	})
	p, err := New("k",
		WithBaseURL("https://llm.internal/api"),
		WithChatCompletionsPath("/v2/chat"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if p.Family() != llm.FamilyOpenAICompatible {
		t.Fatalf("Family()=%q", p.Family())
	}

	drain(t, p, request(llm.FamilyOpenAICompatible, "local-model", false))
	if gotURL != "https://llm.internal/api/v2/chat" {
		t.Fatalf("url=%q", gotURL)
	}
}
