package openai

import (
	"encoding/base64"
	"encoding/json"
	"maps"
	"strings"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
	"github.com/hrayleung/jin-llm/llm/params"
)

func (p *Provider) buildBody(req llm.Request) ([]byte, error) {
	instructions, input, err := mapInput(req.Model, req.Messages)
	if err != nil {
		return nil, err
	}

	m := map[string]any{
		"model": req.Model.ID,
		"input": input,
	}
	if instructions != "" {
		m["instructions"] = instructions
	}
	maps.Copy(m, params.Wire(req.Model, req.Controls))

	if len(req.Tools) > 0 {
		tools, _ := m["tools"].([]any)
		for _, t := range req.Tools {
			fn := map[string]any{"type": "function", "name": t.Name}
			if t.Description != "" {
				fn["description"] = t.Description
			}
			if len(t.Parameters) > 0 {
				fn["parameters"] = t.Parameters
			}
			tools = append(tools, fn)
		}
		m["tools"] = tools
	}
	if req.Stream {
		m["stream"] = true
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, llm.InvalidRequest(llm.FamilyOpenAI, "encode request: %v", err)
	}
	if len(req.Controls.ProviderSpecific) > 0 {
		if b, err = transport.Overlay(b, req.Controls.ProviderSpecific); err != nil {
			return nil, llm.InvalidRequest(llm.FamilyOpenAI, "apply provider-specific fields: %v", err)
		}
	}
	return b, nil
}

// mapInput turns the conversation into Responses input items. System turns
// become the instructions string.
func mapInput(model llm.ResolvedModel, msgs []llm.Message) (string, []any, error) {
	var system []string
	input := make([]any, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			if t := m.Text(); t != "" {
				system = append(system, t)
			}
		case llm.RoleTool:
			for _, r := range m.ToolResults {
				input = append(input, map[string]any{
					"type":    "function_call_output",
					"call_id": r.ToolCallID,
					"output":  r.Content,
				})
			}
		case llm.RoleAssistant:
			if parts := assistantParts(m.Blocks); len(parts) > 0 {
				input = append(input, map[string]any{"role": "assistant", "content": parts})
			}
			for _, tc := range m.ToolCalls {
				input = append(input, map[string]any{
					"type":      "function_call",
					"call_id":   tc.ID,
					"name":      tc.Name,
					"arguments": tc.ArgumentsJSON(),
				})
			}
		default:
			parts, err := userParts(model, m.Blocks)
			if err != nil {
				return "", nil, err
			}
			input = append(input, map[string]any{"role": "user", "content": parts})
		}
	}
	return strings.Join(system, "\n\n"), input, nil
}

func assistantParts(blocks []llm.ContentBlock) []any {
	var out []any
	for _, b := range blocks {
		switch {
		case b.Type == llm.ContentText && b.Text != "":
			out = append(out, map[string]any{"type": "output_text", "text": b.Text})
		case b.IsMedia():
			out = append(out, map[string]any{"type": "output_text", "text": b.Placeholder()})
		}
	}
	return out
}

func userParts(model llm.ResolvedModel, blocks []llm.ContentBlock) ([]any, error) {
	out := make([]any, 0, len(blocks))
	for _, b := range blocks {
		switch {
		case b.Type == llm.ContentText:
			out = append(out, map[string]any{"type": "input_text", "text": b.Text})
		case b.Type == llm.ContentImage && model.Capabilities.Has(llm.CapVision):
			url, err := dataURL(b, "image/png")
			if err != nil {
				return nil, err
			}
			out = append(out, map[string]any{"type": "input_image", "image_url": url})
		case b.Type == llm.ContentFile && b.MIME == "application/pdf" && model.Capabilities.Has(llm.CapNativePDF):
			part := map[string]any{"type": "input_file", "filename": b.DisplayName()}
			if b.URL != "" && len(b.Data) == 0 && b.Path == "" {
				part["file_url"] = b.URL
			} else {
				url, err := dataURL(b, b.MIME)
				if err != nil {
					return nil, err
				}
				part["file_data"] = url
			}
			out = append(out, part)
		case b.IsMedia():
			out = append(out, map[string]any{"type": "input_text", "text": b.Placeholder()})
		}
	}
	return out, nil
}

// dataURL returns a remote URL as is and inlines local data.
func dataURL(b llm.ContentBlock, fallbackMIME string) (string, error) {
	if b.URL != "" && len(b.Data) == 0 && b.Path == "" {
		return b.URL, nil
	}
	data, err := b.Bytes()
	if err != nil {
		if e, ok := llm.AsLLMError(err); ok {
			e.Provider = llm.FamilyOpenAI
		}
		return "", err
	}
	mime := b.MIME
	if mime == "" {
		mime = fallbackMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
