package openai_compat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/capability"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
)

// FetchAvailableModels lists the vendor's models, each enriched with what the
// capability registry knows about it.
func (p *Provider) FetchAvailableModels(ctx context.Context) ([]llm.ModelInfo, error) {
	if p.apiKey == "" && !p.keyOptional {
		return nil, llm.MissingCredential(p.family)
	}
	_, raw, err := p.tr.DoJSON(ctx, http.MethodGet, p.modelsPath, p.defaultHeaders("application/json"), nil)
	if err != nil {
		return nil, transport.MapError(p.family, err)
	}
	var list modelList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, llm.DecodeError(p.family, raw, err)
	}
	out := make([]llm.ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		if m.ID == "" {
			continue
		}
		out = append(out, capability.Lookup(p.family, m.ID).ModelInfo(m.ID))
	}
	return out, nil
}

// ValidateAPIKey probes the models endpoint with key. A 401 or 403 means the
// key is bad; any other failure is returned as an error.
func (p *Provider) ValidateAPIKey(ctx context.Context, key string) (bool, error) {
	return validateKey(ctx, p.family, p.tr, p.modelsPath, p.headers(key, "application/json"))
}

func validateKey(ctx context.Context, family llm.ProviderFamily, tr *transport.Client, path string, hdr http.Header) (bool, error) {
	_, _, err := tr.DoJSON(ctx, http.MethodGet, path, hdr, nil)
	if err == nil {
		return true, nil
	}
	var se *transport.HTTPStatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
		return false, nil
	}
	return false, transport.MapError(family, err)
}
