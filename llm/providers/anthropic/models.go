package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/capability"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
)

// maxModelPages bounds the listing in case a server keeps reporting has_more.
const maxModelPages = 20

// FetchAvailableModels walks every page of the models listing.
func (p *Provider) FetchAvailableModels(ctx context.Context) ([]llm.ModelInfo, error) {
	if p.apiKey == "" {
		return nil, llm.MissingCredential(llm.FamilyAnthropic)
	}
	var out []llm.ModelInfo
	after := ""
	for range maxModelPages {
		q := url.Values{"limit": {"1000"}}
		if after != "" {
			q.Set("after_id", after)
		}
		_, raw, err := p.tr.DoJSON(ctx, http.MethodGet, modelsPath+"?"+q.Encode(), p.headers(p.apiKey, "application/json"), nil)
		if err != nil {
			return nil, transport.MapError(llm.FamilyAnthropic, err)
		}
		var list modelList
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, llm.DecodeError(llm.FamilyAnthropic, raw, err)
		}
		for _, m := range list.Data {
			if m.ID == "" {
				continue
			}
			info := capability.Lookup(llm.FamilyAnthropic, m.ID).ModelInfo(m.ID)
			if m.DisplayName != "" {
				info.Name = m.DisplayName
			}
			out = append(out, info)
		}
		if !list.HasMore || list.LastID == "" {
			break
		}
		after = list.LastID
	}
	return out, nil
}

// ValidateAPIKey reports false for a key the models endpoint rejects with 401
// or 403.
func (p *Provider) ValidateAPIKey(ctx context.Context, key string) (bool, error) {
	_, _, err := p.tr.DoJSON(ctx, http.MethodGet, modelsPath+"?limit=1", p.headers(key, "application/json"), nil)
	if err == nil {
		return true, nil
	}
	var se *transport.HTTPStatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
		return false, nil
	}
	return false, transport.MapError(llm.FamilyAnthropic, err)
}
