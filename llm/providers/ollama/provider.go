package ollama

import (
	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/providers/openai_compat"
)

const DefaultBaseURL = "http://localhost:11434/v1"

// New returns an Ollama provider via its OpenAI-compatible API.
//
// Requires Ollama to be running locally. apiKey may be empty.
func New(apiKey string, opts ...Option) (*openai_compat.Provider, error) {
	return openai_compat.ForFamily(llm.FamilyOllama, apiKey, opts...)
}
