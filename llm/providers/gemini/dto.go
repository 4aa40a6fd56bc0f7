package gemini

import "encoding/json"

type generateResponse struct {
	ResponseID     string          `json:"responseId"`
	Candidates     []candidate     `json:"candidates"`
	UsageMetadata  json.RawMessage `json:"usageMetadata"`
	PromptFeedback *promptFeedback `json:"promptFeedback"`
	Error          json.RawMessage `json:"error"`
}

type promptFeedback struct {
	BlockReason        string `json:"blockReason"`
	BlockReasonMessage string `json:"blockReasonMessage"`
}

type candidate struct {
	Content struct {
		Role  string `json:"role"`
		Parts []part `json:"parts"`
	} `json:"content"`
	FinishReason      string          `json:"finishReason"`
	GroundingMetadata json.RawMessage `json:"groundingMetadata"`
}

type part struct {
	Text             string        `json:"text,omitempty"`
	Thought          bool          `json:"thought,omitempty"`
	ThoughtSignature string        `json:"thoughtSignature,omitempty"`
	InlineData       *blob         `json:"inlineData,omitempty"`
	FunctionCall     *functionCall `json:"functionCall,omitempty"`
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type functionCall struct {
	ID   string          `json:"id,omitempty"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type operation struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

type modelList struct {
	Models []struct {
		Name                       string   `json:"name"`
		DisplayName                string   `json:"displayName"`
		InputTokenLimit            int      `json:"inputTokenLimit"`
		OutputTokenLimit           int      `json:"outputTokenLimit"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
	NextPageToken string `json:"nextPageToken"`
}
