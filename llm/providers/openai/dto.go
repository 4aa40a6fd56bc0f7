package openai

import "encoding/json"

// Responses API payloads. Input items are built as maps in request.go; only
// the shapes read back are typed here.

type response struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output []outputItem    `json:"output"`
	Usage  json.RawMessage `json:"usage,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

type outputItem struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status,omitempty"`

	// message, and reasoning_text parts of reasoning
	Role    string        `json:"role,omitempty"`
	Content []contentPart `json:"content,omitempty"`

	// reasoning
	Summary []summaryPart `json:"summary,omitempty"`

	// function_call
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// web_search_call
	Action *searchAction `json:"action,omitempty"`
}

type contentPart struct {
	Type        string       `json:"type"`
	Text        string       `json:"text,omitempty"`
	Refusal     string       `json:"refusal,omitempty"`
	Annotations []annotation `json:"annotations,omitempty"`
}

type summaryPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type annotation struct {
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

type searchAction struct {
	Type    string `json:"type"`
	Query   string `json:"query,omitempty"`
	URL     string `json:"url,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Sources []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"sources,omitempty"`
}

// streamEvent is the union of the Responses streaming events this adapter
// reads. Each event names its type in the payload.
type streamEvent struct {
	Type string `json:"type"`

	Response *response `json:"response,omitempty"`

	OutputIndex  int         `json:"output_index"`
	SummaryIndex int         `json:"summary_index"`
	ItemID       string      `json:"item_id,omitempty"`
	Item         *outputItem `json:"item,omitempty"`
	Delta        string      `json:"delta,omitempty"`
	Annotation   *annotation `json:"annotation,omitempty"`

	// error events
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type imageResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json,omitempty"`
		URL           string `json:"url,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
	OutputFormat string          `json:"output_format,omitempty"`
	Usage        json.RawMessage `json:"usage,omitempty"`
}

type videoJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}
