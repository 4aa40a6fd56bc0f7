package openai_compat

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
	if p.hooks.BeforeMap != nil {
		req.Controls = req.Controls.Clone()
		p.hooks.BeforeMap(&req)
	}

	wmessages, err := p.mapMessages(req.Model, req.Messages)
	if err != nil {
		return nil, err
	}

	m := map[string]any{
		"model":    req.Model.ID,
		"messages": wmessages,
	}
	maps.Copy(m, params.Wire(req.Model, req.Controls))

	if len(req.Tools) > 0 {
		wtools := make([]wireTool, 0, len(req.Tools))
		for _, t := range req.Tools {
			wtools = append(wtools, wireTool{
				Type: "function",
				Function: wireFunctionDef{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		m["tools"] = wtools
	}
	if req.Stream {
		m["stream"] = true
		m["stream_options"] = map[string]any{"include_usage": true}
	}

	if p.hooks.PatchRequest != nil {
		p.hooks.PatchRequest(m)
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, llm.InvalidRequest(p.family, "encode request: %v", err)
	}
	if len(req.Controls.ProviderSpecific) > 0 {
		if b, err = transport.Overlay(b, req.Controls.ProviderSpecific); err != nil {
			return nil, llm.InvalidRequest(p.family, "apply provider-specific fields: %v", err)
		}
	}
	return b, nil
}

func (p *Provider) mapMessages(model llm.ResolvedModel, msgs []llm.Message) ([]wireMessage, error) {
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == llm.RoleTool {
			for _, r := range m.ToolResults {
				out = append(out, wireMessage{Role: "tool", ToolCallID: r.ToolCallID, Content: r.Content})
			}
			continue
		}

		content, err := p.mapMessageContent(model, m)
		if err != nil {
			return nil, err
		}
		wm := wireMessage{Role: string(m.Role), Content: content}
		if len(m.ToolCalls) > 0 {
			wm.ToolCalls = make([]wireToolCall, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: wireFunctionCall{
						Name:      tc.Name,
						Arguments: tc.ArgumentsJSON(),
					},
				})
			}
			if p.echoReasoning {
				wm.ReasoningContent = m.Thinking()
			}
		}
		out = append(out, wm)
	}
	return out, nil
}

// mapMessageContent prefers a plain string. Only user turns carry
// multi-part content; media the model cannot read becomes a placeholder.
func (p *Provider) mapMessageContent(model llm.ResolvedModel, msg llm.Message) (any, error) {
	if msg.Role != llm.RoleUser || !model.Capabilities.Has(llm.CapVision) || !hasImage(msg.Blocks) {
		return flattenBlocks(msg.Blocks), nil
	}

	out := make([]any, 0, len(msg.Blocks))
	for _, b := range msg.Blocks {
		switch {
		case b.Type == llm.ContentText:
			out = append(out, map[string]any{"type": "text", "text": b.Text})
		case b.Type == llm.ContentImage:
			url, err := imageURL(b)
			if err != nil {
				return nil, withFamily(p.family, err)
			}
			out = append(out, map[string]any{"type": "image_url", "image_url": map[string]any{"url": url}})
		case b.IsMedia():
			out = append(out, map[string]any{"type": "text", "text": b.Placeholder()})
		}
	}
	return out, nil
}

func hasImage(blocks []llm.ContentBlock) bool {
	for _, b := range blocks {
		if b.Type == llm.ContentImage {
			return true
		}
	}
	return false
}

// flattenBlocks joins text and media placeholders. Thinking is dropped.
func flattenBlocks(blocks []llm.ContentBlock) string {
	var parts []string
	for _, b := range blocks {
		switch {
		case b.Type == llm.ContentText:
			parts = append(parts, b.Text)
		case b.IsMedia():
			parts = append(parts, b.Placeholder())
		}
	}
	return strings.Join(parts, "\n")
}

func imageURL(b llm.ContentBlock) (string, error) {
	if b.URL != "" && len(b.Data) == 0 && b.Path == "" {
		return b.URL, nil
	}
	data, err := b.Bytes()
	if err != nil {
		return "", err
	}
	mime := b.MIME
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
