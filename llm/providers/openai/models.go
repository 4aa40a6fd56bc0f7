package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/capability"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
)

func (p *Provider) FetchAvailableModels(ctx context.Context) ([]llm.ModelInfo, error) {
	if p.apiKey == "" {
		return nil, llm.MissingCredential(llm.FamilyOpenAI)
	}
	_, raw, err := p.tr.DoJSON(ctx, http.MethodGet, modelsPath, p.headers(p.apiKey, "application/json"), nil)
	if err != nil {
		return nil, transport.MapError(llm.FamilyOpenAI, err)
	}
	var list modelList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, llm.DecodeError(llm.FamilyOpenAI, raw, err)
	}
	out := make([]llm.ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		if m.ID == "" {
			continue
		}
		out = append(out, capability.Lookup(llm.FamilyOpenAI, m.ID).ModelInfo(m.ID))
	}
	return out, nil
}

// ValidateAPIKey reports false for a key the models endpoint rejects with 401
// or 403.
func (p *Provider) ValidateAPIKey(ctx context.Context, key string) (bool, error) {
	_, _, err := p.tr.DoJSON(ctx, http.MethodGet, modelsPath, p.headers(key, "application/json"), nil)
	if err == nil {
		return true, nil
	}
	var se *transport.HTTPStatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
		return false, nil
	}
	return false, transport.MapError(llm.FamilyOpenAI, err)
}
