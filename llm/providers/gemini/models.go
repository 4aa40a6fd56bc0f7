package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/capability"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
)

const maxModelPages = 20

// FetchAvailableModels lists the models that can generate content or run
// long-running predictions. Token limits from the listing win over the
// registry's when present.
func (p *Provider) FetchAvailableModels(ctx context.Context) ([]llm.ModelInfo, error) {
	if p.apiKey == "" {
		return nil, llm.MissingCredential(llm.FamilyGemini)
	}
	var out []llm.ModelInfo
	token := ""
	for range maxModelPages {
		q := url.Values{"pageSize": {"1000"}}
		if token != "" {
			q.Set("pageToken", token)
		}
		_, raw, err := p.tr.DoJSON(ctx, http.MethodGet, modelsPath+"?"+q.Encode(), p.headers(p.apiKey), nil)
		if err != nil {
			return nil, transport.MapError(llm.FamilyGemini, err)
		}
		var list modelList
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, llm.DecodeError(llm.FamilyGemini, raw, err)
		}
		for _, m := range list.Models {
			if !slices.Contains(m.SupportedGenerationMethods, "generateContent") &&
				!slices.Contains(m.SupportedGenerationMethods, "predictLongRunning") {
				continue
			}
			id := strings.TrimPrefix(m.Name, "models/")
			if id == "" {
				continue
			}
			info := capability.Lookup(llm.FamilyGemini, id).ModelInfo(id)
			if m.DisplayName != "" {
				info.Name = m.DisplayName
			}
			if m.InputTokenLimit > 0 {
				info.ContextWindow = m.InputTokenLimit
			}
			if m.OutputTokenLimit > 0 {
				info.MaxOutputTokens = m.OutputTokenLimit
			}
			out = append(out, info)
		}
		if list.NextPageToken == "" {
			break
		}
		token = list.NextPageToken
	}
	return out, nil
}

// ValidateAPIKey reports false for a rejected key. Gemini answers a bad key
// with 400 API_KEY_INVALID rather than 401.
func (p *Provider) ValidateAPIKey(ctx context.Context, key string) (bool, error) {
	_, _, err := p.tr.DoJSON(ctx, http.MethodGet, modelsPath+"?pageSize=1", p.headers(key), nil)
	if err == nil {
		return true, nil
	}
	var se *transport.HTTPStatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return false, nil
		case http.StatusBadRequest:
			if invalidKey(se.Body) {
				return false, nil
			}
		}
	}
	return false, transport.MapError(llm.FamilyGemini, err)
}

func invalidKey(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	for _, r := range gjson.GetBytes(body, "error.details.#.reason").Array() {
		if r.String() == "API_KEY_INVALID" {
			return true
		}
	}
	return false
}
