package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/toolcall"
)

func sendCaptured(t *testing.T, req llm.Request) map[string]any {
	t.Helper()
	var body map[string]any
	p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(b, &body); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		return jsonResponse(r, http.StatusOK, `{"candidates":[]}`), nil
	})
	drain(t, p, req)
	return body
}

func TestRequestMapping_Contents(t *testing.T) {
	local := toolcall.NewID()
	req := request("gemini-2.5-flash", false,
		llm.System("be brief"),
		llm.User("hello"),
		llm.Message{
			Role: llm.RoleAssistant,
			Blocks: []llm.ContentBlock{
				llm.ThinkingBlock("pondering", "sig-t"),
				llm.TextBlock("calling"),
			},
			ToolCalls: []llm.ToolCall{
				{ID: "fc_1", Name: "lookup", Arguments: map[string]any{"q": "x"}, Signature: "sig-fc"},
				{ID: local, Name: "now"},
			},
		},
		llm.ToolResults(
			llm.ToolResult{ToolCallID: "fc_1", Content: "found"},
			llm.ToolResult{ToolCallID: local, Content: "boom", IsError: true},
		),
		llm.Message{Role: llm.RoleUser, Blocks: []llm.ContentBlock{
			llm.TextBlock("and these"),
			llm.ImageBlock("image/png", []byte("png")),
			llm.ImageURLBlock("https://img.test/a.jpg"),
			{Type: llm.ContentFile, MIME: "application/pdf", Data: []byte("pdf"), Filename: "a.pdf"},
			{Type: llm.ContentFile, MIME: "text/csv", Filename: "t.csv", ExtractedText: "a,b"},
		}},
	)
	body := sendCaptured(t, req)

	wantSystem := map[string]any{"parts": []any{map[string]any{"text": "be brief"}}}
	if diff := cmp.Diff(wantSystem, body["systemInstruction"]); diff != "" {
		t.Fatalf("systemInstruction mismatch (-want +got):\n%s", diff)
	}

	want := []any{
		map[string]any{"role": "user", "parts": []any{
			map[string]any{"text": "hello"},
		}},
		map[string]any{"role": "model", "parts": []any{
			map[string]any{"text": "calling", "thoughtSignature": "sig-t"},
			map[string]any{"functionCall": map[string]any{"id": "fc_1", "name": "lookup", "args": map[string]any{"q": "x"}}, "thoughtSignature": "sig-fc"},
			map[string]any{"functionCall": map[string]any{"name": "now", "args": map[string]any{}}},
		}},
		map[string]any{"role": "user", "parts": []any{
			map[string]any{"functionResponse": map[string]any{"id": "fc_1", "name": "lookup", "response": map[string]any{"content": "found"}}},
			map[string]any{"functionResponse": map[string]any{"name": "now", "response": map[string]any{"error": "boom"}}},
			map[string]any{"text": "and these"},
			map[string]any{"inlineData": map[string]any{"mimeType": "image/png", "data": "cG5n"}},
			map[string]any{"fileData": map[string]any{"mimeType": "image/png", "fileUri": "https://img.test/a.jpg"}},
			map[string]any{"inlineData": map[string]any{"mimeType": "application/pdf", "data": "cGRm"}},
			map[string]any{"text": "[Attachment: t.csv (text/csv)]\na,b"},
		}},
	}
	if diff := cmp.Diff(want, body["contents"]); diff != "" {
		t.Fatalf("contents mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestMapping_UnknownToolResult(t *testing.T) {
	p := newTestProvider(t, func(r *http.Request) (*http.Response, error) {
		t.Errorf("unexpected request to %s", r.URL)
		return jsonResponse(r, http.StatusOK, `{}`), nil
	})
	req := request("gemini-2.5-flash", false,
		llm.User("hi"),
		llm.ToolResults(llm.ToolResult{ToolCallID: "missing", Content: "?"}),
	)
	_, err := p.SendMessage(context.Background(), req)
	if e, ok := llm.AsLLMError(err); !ok || e.Kind != llm.ErrKindInvalidRequest {
		t.Fatalf("err=%v", err)
	}
}

func TestRequestMapping_Controls(t *testing.T) {
	req := request("gemini-2.5-flash", false)
	req.Controls = llm.GenerationControls{
		Temperature: llm.Float64Ptr(0.4),
		MaxTokens:   llm.IntPtr(2000),
		Reasoning:   &llm.ReasoningControls{Enabled: true, BudgetTokens: llm.IntPtr(1024)},
		WebSearch:   &llm.WebSearchControls{Enabled: true},
	}
	req.Tools = []llm.ToolDefinition{{
		Name:        "lookup",
		Description: "Look something up",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}}}`),
	}}
	body := sendCaptured(t, req)

	wantConfig := map[string]any{
		"temperature":     0.4,
		"maxOutputTokens": float64(2000),
		"thinkingConfig":  map[string]any{"thinkingBudget": float64(1024), "includeThoughts": true},
	}
	if diff := cmp.Diff(wantConfig, body["generationConfig"]); diff != "" {
		t.Fatalf("generationConfig mismatch (-want +got):\n%s", diff)
	}

	wantTools := []any{
		map[string]any{"googleSearch": map[string]any{}},
		map[string]any{"functionDeclarations": []any{map[string]any{
			"name":        "lookup",
			"description": "Look something up",
			"parameters":  map[string]any{"type": "object", "properties": map[string]any{"q": map[string]any{"type": "string"}}},
		}}},
	}
	if diff := cmp.Diff(wantTools, body["tools"]); diff != "" {
		t.Fatalf("tools mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestMapping_DisableThinking(t *testing.T) {
	tests := []struct {
		model string
		want  any
	}{
		{model: "gemini-2.5-flash", want: map[string]any{"thinkingConfig": map[string]any{"thinkingBudget": float64(0)}}},
		{model: "gemini-2.5-pro", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			req := request(tt.model, false)
			req.Controls.Reasoning = &llm.ReasoningControls{}
			body := sendCaptured(t, req)
			if diff := cmp.Diff(tt.want, body["generationConfig"]); diff != "" {
				t.Fatalf("generationConfig mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRequestMapping_ProviderSpecificOverlay(t *testing.T) {
	req := request("gemini-2.5-flash", false)
	req.Controls.Temperature = llm.Float64Ptr(0.2)
	req.Controls.ProviderSpecific = map[string]any{
		"generationConfig": map[string]any{"topK": 40},
		"safetySettings":   []any{map[string]any{"category": "HARM_CATEGORY_HARASSMENT", "threshold": "BLOCK_NONE"}},
	}
	body := sendCaptured(t, req)

	if diff := cmp.Diff(map[string]any{"topK": float64(40)}, body["generationConfig"]); diff != "" {
		t.Fatalf("generationConfig mismatch (-want +got):\n%s", diff)
	}
	if _, ok := body["safetySettings"]; !ok {
		t.Fatalf("safetySettings missing: %v", body)
	}
}
