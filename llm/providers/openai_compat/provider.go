package openai_compat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/eventstream"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
)

const (
	DefaultChatCompletionsPath = "/chat/completions"
	DefaultModelsPath          = "/models"
)

// Provider speaks the Chat Completions dialect shared by many vendors.
type Provider struct {
	family llm.ProviderFamily

	apiKey      string
	keyOptional bool
	path        string
	modelsPath  string

	// echoReasoning sends prior reasoning back on assistant tool-call turns.
	echoReasoning bool

	tr    *transport.Client
	hooks Hooks
}

var _ llm.Adapter = (*Provider)(nil)

// New returns a provider for a generic OpenAI-compatible endpoint. Use
// WithFamily and WithBaseURL, or ForFamily, to target a specific vendor.
func New(apiKey string, opts ...Option) (*Provider, error) {
	tr, err := transport.New("https://api.openai.com/v1", nil)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		family:     llm.FamilyOpenAICompatible,
		apiKey:     apiKey,
		path:       DefaultChatCompletionsPath,
		modelsPath: DefaultModelsPath,
		tr:         tr,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.tr == nil {
		return nil, errors.New("openai_compat: nil transport")
	}
	return p, nil
}

func WithFamily(family llm.ProviderFamily) Option {
	return func(p *Provider) error {
		p.family = family
		return nil
	}
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

func WithChatCompletionsPath(path string) Option {
	return func(p *Provider) error {
		p.path = path
		return nil
	}
}

func WithModelsPath(path string) Option {
	return func(p *Provider) error {
		p.modelsPath = path
		return nil
	}
}

// WithOptionalAPIKey lets requests go out without credentials, for local
// servers.
func WithOptionalAPIKey() Option {
	return func(p *Provider) error {
		p.keyOptional = true
		return nil
	}
}

// WithReasoningEcho sends an assistant turn's reasoning back as
// reasoning_content when that turn made tool calls.
func WithReasoningEcho() Option {
	return func(p *Provider) error {
		p.echoReasoning = true
		return nil
	}
}

func (p *Provider) Family() llm.ProviderFamily { return p.family }

func (p *Provider) SendMessage(ctx context.Context, req llm.Request) (llm.Stream, error) {
	if err := p.validateRequest(req); err != nil {
		return nil, err
	}
	body, err := p.buildBody(req)
	if err != nil {
		return nil, err
	}
	logger := p.tr.Logger

	if !req.Stream {
		return eventstream.Lazy(p.family, logger, func(emit eventstream.Emit) error {
			_, raw, err := p.tr.DoJSON(ctx, http.MethodPost, p.path, p.defaultHeaders("application/json"), body)
			if err != nil {
				return transport.MapError(p.family, err)
			}
			return p.emitResponse(raw, emit)
		}), nil
	}

	open := func() (*http.Response, error) {
		return p.tr.DoStream(ctx, http.MethodPost, p.path, p.defaultHeaders("text/event-stream"), body)
	}
	return eventstream.New(p.family, logger, open, newChunkHandler(p.family)), nil
}

func (p *Provider) defaultHeaders(accept string) http.Header {
	return p.headers(p.apiKey, accept)
}

func (p *Provider) headers(apiKey, accept string) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	if accept != "" {
		h.Set("Accept", accept)
	}
	if apiKey != "" {
		h.Set("Authorization", "Bearer "+apiKey)
	}
	if p.hooks.PatchHeaders != nil {
		p.hooks.PatchHeaders(h)
	}
	return h
}

func (p *Provider) validateRequest(req llm.Request) error {
	if p.apiKey == "" && !p.keyOptional {
		return llm.MissingCredential(p.family)
	}
	if req.Model.ID == "" {
		return llm.InvalidRequest(p.family, "model is required")
	}
	if len(req.Messages) == 0 {
		return llm.InvalidRequest(p.family, "messages is required")
	}
	return nil
}
