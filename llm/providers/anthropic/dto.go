package anthropic

import "encoding/json"

type response struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Role       string          `json:"role"`
	Content    []block         `json:"content"`
	StopReason string          `json:"stop_reason"`
	Usage      json.RawMessage `json:"usage"`
}

// block is any content block of a response. Only the fields of its Type are
// set.
type block struct {
	Type string `json:"type"`

	Text      string     `json:"text,omitempty"`
	Citations []citation `json:"citations,omitempty"`

	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
	// redacted_thinking
	Data string `json:"data,omitempty"`

	// tool_use and server_tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// web_search_tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

type citation struct {
	Type      string `json:"type"`
	URL       string `json:"url,omitempty"`
	Title     string `json:"title,omitempty"`
	CitedText string `json:"cited_text,omitempty"`
}

type streamEvent struct {
	Type         string          `json:"type"`
	Message      *response       `json:"message,omitempty"`
	Index        int             `json:"index"`
	ContentBlock *block          `json:"content_block,omitempty"`
	Delta        *delta          `json:"delta,omitempty"`
	Usage        json.RawMessage `json:"usage,omitempty"`
	Error        json.RawMessage `json:"error,omitempty"`
}

type delta struct {
	Type        string    `json:"type"`
	Text        string    `json:"text,omitempty"`
	Thinking    string    `json:"thinking,omitempty"`
	Signature   string    `json:"signature,omitempty"`
	PartialJSON string    `json:"partial_json,omitempty"`
	Citation    *citation `json:"citation,omitempty"`
	StopReason  string    `json:"stop_reason,omitempty"`
}

type modelList struct {
	Data []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
	HasMore bool   `json:"has_more"`
	LastID  string `json:"last_id"`
}
