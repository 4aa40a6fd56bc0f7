package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type ContentType string

const (
	ContentText     ContentType = "text"
	ContentImage    ContentType = "image"
	ContentVideo    ContentType = "video"
	ContentFile     ContentType = "file"
	ContentThinking ContentType = "thinking"
)

// ContentBlock is one segment of message content.
//
// Media blocks (image, video, file) carry a MIME type and exactly one source:
// inline Data, a local Path or a remote URL. File and video blocks may also
// carry ExtractedText for providers that cannot ingest them natively.
type ContentBlock struct {
	Type ContentType `json:"type"`

	// Text is used by text and thinking blocks.
	Text string `json:"text,omitempty"`

	// Signature is the provider-opaque continuation token of a thinking block.
	Signature string `json:"signature,omitempty"`
	// Redacted marks a thinking block whose content the provider encrypted
	// into Signature. It must be echoed back as is.
	Redacted bool `json:"redacted,omitempty"`

	MIME     string `json:"mime,omitempty"`
	Data     []byte `json:"data,omitempty"`
	Path     string `json:"path,omitempty"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`

	ExtractedText string `json:"extracted_text,omitempty"`
}

func TextBlock(text string) ContentBlock { return ContentBlock{Type: ContentText, Text: text} }

func ThinkingBlock(text, signature string) ContentBlock {
	return ContentBlock{Type: ContentThinking, Text: text, Signature: signature}
}

func RedactedThinkingBlock(data string) ContentBlock {
	return ContentBlock{Type: ContentThinking, Signature: data, Redacted: true}
}

func ImageBlock(mime string, data []byte) ContentBlock {
	return ContentBlock{Type: ContentImage, MIME: mime, Data: data}
}

func ImageURLBlock(url string) ContentBlock { return ContentBlock{Type: ContentImage, URL: url} }

func FileBlock(filename, mime, path string) ContentBlock {
	return ContentBlock{Type: ContentFile, Filename: filename, MIME: mime, Path: path}
}

// IsMedia reports whether the block carries binary media.
func (b ContentBlock) IsMedia() bool {
	switch b.Type {
	case ContentImage, ContentVideo, ContentFile:
		return true
	default:
		return false
	}
}

// Bytes returns the inline data, reading the local file when needed.
// Blocks that only reference a remote URL return an invalid-request error.
func (b ContentBlock) Bytes() ([]byte, error) {
	if len(b.Data) > 0 {
		return b.Data, nil
	}
	if b.Path != "" {
		data, err := os.ReadFile(b.Path)
		if err != nil {
			return nil, &LLMError{Kind: ErrKindInvalidRequest, Message: fmt.Sprintf("read %s: %v", b.Path, err), Cause: err}
		}
		return data, nil
	}
	return nil, &LLMError{Kind: ErrKindInvalidRequest, Message: "media block has no inline data or local file"}
}

// DisplayName is the best human label for a media block.
func (b ContentBlock) DisplayName() string {
	switch {
	case b.Filename != "":
		return b.Filename
	case b.Path != "":
		if i := strings.LastIndexAny(b.Path, `/\`); i >= 0 {
			return b.Path[i+1:]
		}
		return b.Path
	case b.URL != "":
		return b.URL
	default:
		return string(b.Type)
	}
}

// Placeholder renders a media block as text for providers without native
// support for its type.
func (b ContentBlock) Placeholder() string {
	mime := b.MIME
	if mime == "" {
		mime = "unknown type"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[Attachment: %s (%s)]", b.DisplayName(), mime)
	if t := strings.TrimSpace(b.ExtractedText); t != "" {
		sb.WriteString("\n")
		sb.WriteString(t)
	}
	return sb.String()
}

// ToolCall is a canonical tool/function call.
//
// ArgumentsError is set when streamed argument fragments could not be parsed
// as a JSON object; Arguments is then empty and RawArguments holds the text.
type ToolCall struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Arguments    map[string]any `json:"arguments,omitempty"`
	RawArguments string         `json:"raw_arguments,omitempty"`

	// Signature is an opaque token some providers require to be echoed back
	// with the call on the next turn.
	Signature string `json:"signature,omitempty"`

	ArgumentsError string `json:"arguments_error,omitempty"`
}

// ArgumentsJSON returns the arguments encoded as a JSON object.
func (c ToolCall) ArgumentsJSON() string {
	if c.Arguments == nil {
		if c.RawArguments != "" && json.Valid([]byte(c.RawArguments)) {
			return c.RawArguments
		}
		return "{}"
	}
	b, err := json.Marshal(c.Arguments)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ResultForError builds the error result for a call whose arguments failed to parse.
func (c ToolCall) ResultForError() (ToolResult, bool) {
	if c.ArgumentsError == "" {
		return ToolResult{}, false
	}
	return ToolResult{
		ToolCallID: c.ID,
		Name:       c.Name,
		Content:    "invalid tool arguments: " + c.ArgumentsError,
		IsError:    true,
	}, true
}

type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`

	// Name is the called tool's name; some providers key results by name.
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// ToolDefinition is an opaque callable tool handed in by the tool-routing layer.
type ToolDefinition struct {
	Name        string
	Description string

	// Parameters is a JSON Schema object.
	Parameters json.RawMessage
}

// Message is a canonical chat message. It is treated as immutable once built.
type Message struct {
	Role        Role
	Blocks      []ContentBlock
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

func System(text string) Message { return Message{Role: RoleSystem, Blocks: []ContentBlock{TextBlock(text)}} }
func User(text string) Message   { return Message{Role: RoleUser, Blocks: []ContentBlock{TextBlock(text)}} }
func Assistant(text string) Message {
	return Message{Role: RoleAssistant, Blocks: []ContentBlock{TextBlock(text)}}
}

func ToolResults(results ...ToolResult) Message {
	return Message{Role: RoleTool, ToolResults: append([]ToolResult(nil), results...)}
}

func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Blocks {
		if p.Type == ContentText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func (m Message) Thinking() string {
	var b strings.Builder
	for _, p := range m.Blocks {
		if p.Type == ContentThinking {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Usage reports token accounting. A nil field means the provider did not
// report it, which is different from zero.
type Usage struct {
	InputTokens         *int `json:"input_tokens,omitempty"`
	OutputTokens        *int `json:"output_tokens,omitempty"`
	ThinkingTokens      *int `json:"thinking_tokens,omitempty"`
	CachedTokens        *int `json:"cached_tokens,omitempty"`
	CacheCreationTokens *int `json:"cache_creation_tokens,omitempty"`
}

func IntPtr(v int) *int { return &v }

// Merge returns u with every non-nil field of other applied on top.
func (u *Usage) Merge(other *Usage) *Usage {
	if other == nil {
		return u
	}
	var out Usage
	if u != nil {
		out = *u
	}
	if other.InputTokens != nil {
		out.InputTokens = IntPtr(*other.InputTokens)
	}
	if other.OutputTokens != nil {
		out.OutputTokens = IntPtr(*other.OutputTokens)
	}
	if other.ThinkingTokens != nil {
		out.ThinkingTokens = IntPtr(*other.ThinkingTokens)
	}
	if other.CachedTokens != nil {
		out.CachedTokens = IntPtr(*other.CachedTokens)
	}
	if other.CacheCreationTokens != nil {
		out.CacheCreationTokens = IntPtr(*other.CacheCreationTokens)
	}
	return &out
}

func (u *Usage) IsZero() bool {
	return u == nil || (u.InputTokens == nil && u.OutputTokens == nil && u.ThinkingTokens == nil &&
		u.CachedTokens == nil && u.CacheCreationTokens == nil)
}
