package anthropic

import (
	"encoding/base64"
	"encoding/json"
	"maps"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
	"github.com/hrayleung/jin-llm/llm/params"
)

const (
	// defaultMaxTokens applies when neither the request nor the model names
	// an output limit. The API requires one.
	defaultMaxTokens = 4096

	// thinkingHeadroom is the visible-output room added above a thinking
	// budget when max_tokens has to be raised to fit it.
	thinkingHeadroom = 4096
)

func buildBody(req llm.Request) ([]byte, error) {
	system, msgs, err := mapMessages(req.Model, req.Messages)
	if err != nil {
		return nil, err
	}

	wire := params.Wire(req.Model, req.Controls)
	cacheControl, _ := wire["cache_control"].(map[string]any)
	delete(wire, "cache_control")
	if cacheControl != nil {
		markLast(system, cacheControl)
		if len(msgs) > 0 {
			last := msgs[len(msgs)-1].(map[string]any)
			markLast(last["content"].([]any), cacheControl)
		}
	}

	m := map[string]any{
		"model":    req.Model.ID,
		"messages": msgs,
	}
	if len(system) > 0 {
		m["system"] = system
	}
	maps.Copy(m, wire)
	fitMaxTokens(m, req.Model)

	if len(req.Tools) > 0 {
		tools, _ := m["tools"].([]any)
		for _, t := range req.Tools {
			tool := map[string]any{"name": t.Name}
			if t.Description != "" {
				tool["description"] = t.Description
			}
			if len(t.Parameters) > 0 {
				tool["input_schema"] = t.Parameters
			} else {
				tool["input_schema"] = map[string]any{"type": "object"}
			}
			tools = append(tools, tool)
		}
		m["tools"] = tools
	}
	if req.Stream {
		m["stream"] = true
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, llm.InvalidRequest(llm.FamilyAnthropic, "encode request: %v", err)
	}
	if len(req.Controls.ProviderSpecific) > 0 {
		if b, err = transport.Overlay(b, req.Controls.ProviderSpecific); err != nil {
			return nil, llm.InvalidRequest(llm.FamilyAnthropic, "apply provider-specific fields: %v", err)
		}
	}
	return b, nil
}

// fitMaxTokens fills in max_tokens and keeps a thinking budget below it.
// An explicit max_tokens is never raised; the budget shrinks instead.
func fitMaxTokens(m map[string]any, model llm.ResolvedModel) {
	maxTokens, explicit := m["max_tokens"].(int)
	if !explicit {
		maxTokens = defaultMaxTokens
		if model.MaxOutputTokens > 0 {
			maxTokens = min(maxTokens, model.MaxOutputTokens)
		}
	}

	thinking, _ := m["thinking"].(map[string]any)
	budget, hasBudget := thinking["budget_tokens"].(int)
	if hasBudget && budget >= maxTokens {
		if !explicit {
			maxTokens = budget + thinkingHeadroom
			if model.MaxOutputTokens > 0 {
				maxTokens = min(maxTokens, model.MaxOutputTokens)
			}
		}
		if budget >= maxTokens {
			thinking["budget_tokens"] = maxTokens - 1
		}
	}
	m["max_tokens"] = maxTokens
}

func markLast(blocks []any, cacheControl map[string]any) {
	if len(blocks) == 0 {
		return
	}
	if b, ok := blocks[len(blocks)-1].(map[string]any); ok {
		b["cache_control"] = maps.Clone(cacheControl)
	}
}

// mapMessages returns the system blocks and the alternating message list.
// Consecutive turns of the same wire role are merged, which is where tool
// results and a following user turn end up together.
func mapMessages(model llm.ResolvedModel, msgs []llm.Message) ([]any, []any, error) {
	var system []any
	var out []any
	var role string
	var content []any

	flush := func() {
		if len(content) > 0 {
			out = append(out, map[string]any{"role": role, "content": content})
		}
		content = nil
	}
	add := func(r string, blocks []any) {
		if len(blocks) == 0 {
			return
		}
		if r != role {
			flush()
			role = r
		}
		content = append(content, blocks...)
	}

	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			if t := m.Text(); t != "" {
				system = append(system, map[string]any{"type": "text", "text": t})
			}
		case llm.RoleTool:
			add("user", toolResults(m.ToolResults))
		case llm.RoleAssistant:
			add("assistant", assistantBlocks(m))
		default:
			blocks, err := userBlocks(model, m.Blocks)
			if err != nil {
				return nil, nil, err
			}
			add("user", blocks)
		}
	}
	flush()
	return system, out, nil
}

func toolResults(results []llm.ToolResult) []any {
	out := make([]any, 0, len(results))
	for _, r := range results {
		b := map[string]any{"type": "tool_result", "tool_use_id": r.ToolCallID, "content": r.Content}
		if r.IsError {
			b["is_error"] = true
		}
		out = append(out, b)
	}
	return out
}

// assistantBlocks replays a previous turn. Thinking without a signature
// cannot be verified by the API and is dropped.
func assistantBlocks(m llm.Message) []any {
	var out []any
	for _, b := range m.Blocks {
		switch {
		case b.Type == llm.ContentThinking && b.Redacted:
			out = append(out, map[string]any{"type": "redacted_thinking", "data": b.Signature})
		case b.Type == llm.ContentThinking && b.Signature != "":
			out = append(out, map[string]any{"type": "thinking", "thinking": b.Text, "signature": b.Signature})
		case b.Type == llm.ContentText && b.Text != "":
			out = append(out, map[string]any{"type": "text", "text": b.Text})
		case b.IsMedia():
			out = append(out, map[string]any{"type": "text", "text": b.Placeholder()})
		}
	}
	for _, tc := range m.ToolCalls {
		input := tc.Arguments
		if input == nil {
			input = map[string]any{}
		}
		out = append(out, map[string]any{"type": "tool_use", "id": tc.ID, "name": tc.Name, "input": input})
	}
	return out
}

func userBlocks(model llm.ResolvedModel, blocks []llm.ContentBlock) ([]any, error) {
	out := make([]any, 0, len(blocks))
	for _, b := range blocks {
		switch {
		case b.Type == llm.ContentText:
			if b.Text != "" {
				out = append(out, map[string]any{"type": "text", "text": b.Text})
			}
		case b.Type == llm.ContentImage && model.Capabilities.Has(llm.CapVision):
			src, err := source(b, "image/png")
			if err != nil {
				return nil, err
			}
			out = append(out, map[string]any{"type": "image", "source": src})
		case b.Type == llm.ContentFile && b.MIME == "application/pdf" && model.Capabilities.Has(llm.CapNativePDF):
			src, err := source(b, b.MIME)
			if err != nil {
				return nil, err
			}
			out = append(out, map[string]any{"type": "document", "source": src, "title": b.DisplayName()})
		case b.IsMedia():
			out = append(out, map[string]any{"type": "text", "text": b.Placeholder()})
		}
	}
	return out, nil
}

func source(b llm.ContentBlock, fallbackMIME string) (map[string]any, error) {
	if b.URL != "" && len(b.Data) == 0 && b.Path == "" {
		return map[string]any{"type": "url", "url": b.URL}, nil
	}
	data, err := b.Bytes()
	if err != nil {
		if e, ok := llm.AsLLMError(err); ok {
			e.Provider = llm.FamilyAnthropic
		}
		return nil, err
	}
	mime := b.MIME
	if mime == "" {
		mime = fallbackMIME
	}
	return map[string]any{"type": "base64", "media_type": mime, "data": base64.StdEncoding.EncodeToString(data)}, nil
}
