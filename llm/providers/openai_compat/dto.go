package openai_compat

import "encoding/json"

// wire* types model Chat Completions payloads. They are intentionally
// distinct from llm domain types.
type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`

	// ReasoningContent is echoed back on assistant tool-call turns for
	// providers that require it.
	ReasoningContent string `json:"reasoning_content,omitempty"`

	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	Index    *int             `json:"index,omitempty"`
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function wireFunctionCall `json:"function"`
}

type wireFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type wireTool struct {
	Type     string          `json:"type"`
	Function wireFunctionDef `json:"function"`
}

type wireFunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type chatCompletionResponse struct {
	ID      string                 `json:"id"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
	Usage   json.RawMessage        `json:"usage,omitempty"`

	// Perplexity reports sources beside the choices.
	Citations     []string       `json:"citations,omitempty"`
	SearchResults []searchResult `json:"search_results,omitempty"`
}

type chatCompletionChoice struct {
	Index        int             `json:"index"`
	Message      responseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// responseMessage is shared by full messages and streamed deltas.
type responseMessage struct {
	Role             string         `json:"role,omitempty"`
	Content          any            `json:"content,omitempty"`
	ReasoningContent string         `json:"reasoning_content,omitempty"`
	Reasoning        string         `json:"reasoning,omitempty"`
	ToolCalls        []wireToolCall `json:"tool_calls,omitempty"`
	Annotations      []annotation   `json:"annotations,omitempty"`
	Images           []wireImage    `json:"images,omitempty"`
}

type annotation struct {
	Type        string `json:"type"`
	URLCitation *struct {
		URL     string `json:"url"`
		Title   string `json:"title,omitempty"`
		Content string `json:"content,omitempty"`
	} `json:"url_citation,omitempty"`
}

type wireImage struct {
	Type     string `json:"type"`
	ImageURL struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

type searchResult struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

type chatCompletionChunk struct {
	ID      string                      `json:"id"`
	Model   string                      `json:"model"`
	Choices []chatCompletionChunkChoice `json:"choices"`
	Usage   json.RawMessage             `json:"usage,omitempty"`
	Error   json.RawMessage             `json:"error,omitempty"`

	Citations     []string       `json:"citations,omitempty"`
	SearchResults []searchResult `json:"search_results,omitempty"`
}

type chatCompletionChunkChoice struct {
	Index        int             `json:"index"`
	Delta        responseMessage `json:"delta"`
	FinishReason *string         `json:"finish_reason"`
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}
