// Package anthropic speaks the Anthropic Messages API.
package anthropic

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/eventstream"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1"
	DefaultVersion = "2023-06-01"

	messagesPath = "/messages"
	modelsPath   = "/models"

	// setupTokenPrefix marks OAuth setup tokens, which authenticate as bearer
	// tokens instead of through x-api-key.
	setupTokenPrefix = "sk-ant-oat01-"
)

type Provider struct {
	apiKey  string
	version string
	tr      *transport.Client
}

var _ llm.Adapter = (*Provider)(nil)

type Option func(*Provider) error

func New(apiKey string, opts ...Option) (*Provider, error) {
	tr, err := transport.New(DefaultBaseURL, nil)
	if err != nil {
		return nil, err
	}
	p := &Provider{apiKey: apiKey, version: DefaultVersion, tr: tr}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func WithBaseURL(baseURL string) Option {
	return func(p *Provider) error {
		tr, err := transport.New(baseURL, p.tr.HTTPClient)
		if err != nil {
			return err
		}
		tr.DefaultHeaders = p.tr.DefaultHeaders.Clone()
		tr.UserAgent = p.tr.UserAgent
		tr.Logger = p.tr.Logger
		p.tr = tr
		return nil
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) error {
		p.tr.HTTPClient = c
		return nil
	}
}

func WithUserAgent(ua string) Option {
	return func(p *Provider) error {
		p.tr.UserAgent = ua
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) error {
		if logger != nil {
			p.tr.Logger = logger
		}
		return nil
	}
}

func WithDefaultHeader(key, value string) Option {
	return func(p *Provider) error {
		p.tr.DefaultHeaders.Add(key, value)
		return nil
	}
}

// WithVersion overrides the anthropic-version header.
func WithVersion(v string) Option {
	return func(p *Provider) error {
		p.version = v
		return nil
	}
}

// WithBeta opts into beta features through the anthropic-beta header.
func WithBeta(features ...string) Option {
	return func(p *Provider) error {
		if len(features) > 0 {
			p.tr.DefaultHeaders.Set("anthropic-beta", strings.Join(features, ","))
		}
		return nil
	}
}

func (p *Provider) Family() llm.ProviderFamily { return llm.FamilyAnthropic }

func (p *Provider) SendMessage(ctx context.Context, req llm.Request) (llm.Stream, error) {
	if p.apiKey == "" {
		return nil, llm.MissingCredential(llm.FamilyAnthropic)
	}
	if req.Model.ID == "" {
		return nil, llm.InvalidRequest(llm.FamilyAnthropic, "model is required")
	}
	if len(req.Messages) == 0 {
		return nil, llm.InvalidRequest(llm.FamilyAnthropic, "messages is required")
	}

	body, err := buildBody(req)
	if err != nil {
		return nil, err
	}
	logger := p.tr.Logger

	if !req.Stream {
		return eventstream.Lazy(llm.FamilyAnthropic, logger, func(emit eventstream.Emit) error {
			_, raw, err := p.tr.DoJSON(ctx, http.MethodPost, messagesPath, p.headers(p.apiKey, "application/json"), body)
			if err != nil {
				return transport.MapError(llm.FamilyAnthropic, err)
			}
			return emitResponse(raw, emit)
		}), nil
	}

	open := func() (*http.Response, error) {
		return p.tr.DoStream(ctx, http.MethodPost, messagesPath, p.headers(p.apiKey, "text/event-stream"), body)
	}
	return eventstream.New(llm.FamilyAnthropic, logger, open, newStreamHandler()), nil
}

func (p *Provider) headers(apiKey, accept string) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	h.Set("anthropic-version", p.version)
	if accept != "" {
		h.Set("Accept", accept)
	}
	switch {
	case apiKey == "":
	case strings.HasPrefix(apiKey, setupTokenPrefix):
		h.Set("Authorization", "Bearer "+apiKey)
	default:
		h.Set("x-api-key", apiKey)
	}
	return h
}
