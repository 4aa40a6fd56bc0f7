package gemini

import (
	"encoding/base64"
	"encoding/json"
	"maps"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/toolcall"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
	"github.com/hrayleung/jin-llm/llm/params"
)

func buildBody(req llm.Request) ([]byte, error) {
	system, contents, err := mapMessages(req.Model, req.Messages)
	if err != nil {
		return nil, err
	}

	m := map[string]any{"contents": contents}
	if len(system) > 0 {
		m["systemInstruction"] = map[string]any{"parts": system}
	}
	maps.Copy(m, params.Wire(req.Model, req.Controls))

	if len(req.Tools) > 0 {
		decls := make([]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			d := map[string]any{"name": t.Name}
			if t.Description != "" {
				d["description"] = t.Description
			}
			if len(t.Parameters) > 0 {
				d["parameters"] = t.Parameters
			}
			decls = append(decls, d)
		}
		tools, _ := m["tools"].([]any)
		m["tools"] = append(tools, map[string]any{"functionDeclarations": decls})
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, llm.InvalidRequest(llm.FamilyGemini, "encode request: %v", err)
	}
	if len(req.Controls.ProviderSpecific) > 0 {
		if b, err = transport.Overlay(b, req.Controls.ProviderSpecific); err != nil {
			return nil, llm.InvalidRequest(llm.FamilyGemini, "apply provider-specific fields: %v", err)
		}
	}
	return b, nil
}

// mapMessages returns the system parts and the contents list. Consecutive
// turns of the same wire role are merged; tool results travel as user turns.
func mapMessages(model llm.ResolvedModel, msgs []llm.Message) ([]any, []any, error) {
	var system []any
	var out []any
	var role string
	var parts []any

	// Function responses are keyed by name, which tool results may omit.
	callNames := map[string]string{}

	flush := func() {
		if len(parts) > 0 {
			out = append(out, map[string]any{"role": role, "parts": parts})
		}
		parts = nil
	}
	add := func(r string, ps []any) {
		if len(ps) == 0 {
			return
		}
		if r != role {
			flush()
			role = r
		}
		parts = append(parts, ps...)
	}

	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			if t := m.Text(); t != "" {
				system = append(system, map[string]any{"text": t})
			}
		case llm.RoleTool:
			ps, err := functionResponses(m.ToolResults, callNames)
			if err != nil {
				return nil, nil, err
			}
			add("user", ps)
		case llm.RoleAssistant:
			for _, tc := range m.ToolCalls {
				callNames[tc.ID] = tc.Name
			}
			add("model", modelParts(m))
		default:
			ps, err := userParts(model, m.Blocks)
			if err != nil {
				return nil, nil, err
			}
			add("user", ps)
		}
	}
	flush()
	return system, out, nil
}

func functionResponses(results []llm.ToolResult, names map[string]string) ([]any, error) {
	out := make([]any, 0, len(results))
	for _, r := range results {
		name := r.Name
		if name == "" {
			name = names[r.ToolCallID]
		}
		if name == "" {
			return nil, llm.InvalidRequest(llm.FamilyGemini, "tool result %q has no matching tool call", r.ToolCallID)
		}
		response := map[string]any{"content": r.Content}
		if r.IsError {
			response = map[string]any{"error": r.Content}
		}
		fr := map[string]any{"name": name, "response": response}
		if id := vendorID(r.ToolCallID); id != "" {
			fr["id"] = id
		}
		out = append(out, map[string]any{"functionResponse": fr})
	}
	return out, nil
}

// modelParts replays a previous model turn. Thought text is not sent back;
// its signature rides on the first part of the turn, and each function call
// carries its own.
func modelParts(m llm.Message) []any {
	var out []any
	var signature string
	for _, b := range m.Blocks {
		switch {
		case b.Type == llm.ContentThinking:
			if signature == "" {
				signature = b.Signature
			}
		case b.Type == llm.ContentText && b.Text != "":
			out = append(out, map[string]any{"text": b.Text})
		case b.IsMedia():
			out = append(out, map[string]any{"text": b.Placeholder()})
		}
	}
	for _, tc := range m.ToolCalls {
		args := tc.Arguments
		if args == nil {
			args = map[string]any{}
		}
		fc := map[string]any{"name": tc.Name, "args": args}
		if id := vendorID(tc.ID); id != "" {
			fc["id"] = id
		}
		p := map[string]any{"functionCall": fc}
		if tc.Signature != "" {
			p["thoughtSignature"] = tc.Signature
		}
		out = append(out, p)
	}
	if signature != "" && len(out) > 0 {
		if first := out[0].(map[string]any); first["thoughtSignature"] == nil {
			first["thoughtSignature"] = signature
		}
	}
	return out
}

// vendorID drops call ids minted locally for calls the API sent without one.
func vendorID(id string) string {
	if toolcall.Synthetic(id) {
		return ""
	}
	return id
}

func userParts(model llm.ResolvedModel, blocks []llm.ContentBlock) ([]any, error) {
	out := make([]any, 0, len(blocks))
	for _, b := range blocks {
		switch {
		case b.Type == llm.ContentText:
			if b.Text != "" {
				out = append(out, map[string]any{"text": b.Text})
			}
		case nativeMedia(model, b):
			p, err := mediaPart(b)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		case b.IsMedia():
			out = append(out, map[string]any{"text": b.Placeholder()})
		}
	}
	return out, nil
}

func nativeMedia(model llm.ResolvedModel, b llm.ContentBlock) bool {
	switch b.Type {
	case llm.ContentImage, llm.ContentVideo:
		return model.Capabilities.Has(llm.CapVision)
	case llm.ContentFile:
		return b.MIME == "application/pdf" && model.Capabilities.Has(llm.CapNativePDF)
	default:
		return false
	}
}

func mediaPart(b llm.ContentBlock) (map[string]any, error) {
	mime := b.MIME
	if mime == "" {
		mime = defaultMIME(b.Type)
	}
	if b.URL != "" && len(b.Data) == 0 && b.Path == "" {
		return map[string]any{"fileData": map[string]any{"mimeType": mime, "fileUri": b.URL}}, nil
	}
	data, err := b.Bytes()
	if err != nil {
		if e, ok := llm.AsLLMError(err); ok {
			e.Provider = llm.FamilyGemini
		}
		return nil, err
	}
	return map[string]any{"inlineData": map[string]any{
		"mimeType": mime,
		"data":     base64.StdEncoding.EncodeToString(data),
	}}, nil
}

func defaultMIME(t llm.ContentType) string {
	switch t {
	case llm.ContentVideo:
		return "video/mp4"
	case llm.ContentImage:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
