// Package openai speaks OpenAI's native APIs: Responses for chat, the Images
// endpoints for gpt-image models and video jobs for sora models.
package openai

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/eventstream"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
	"github.com/hrayleung/jin-llm/llm/media"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"

	responsesPath = "/responses"
	modelsPath    = "/models"
)

type Provider struct {
	apiKey string
	tr     *transport.Client

	// Video jobs.
	store        *media.Store
	pollInterval time.Duration
	jobTimeout   time.Duration
}

var _ llm.Adapter = (*Provider)(nil)

type Option func(*Provider) error

func New(apiKey string, opts ...Option) (*Provider, error) {
	tr, err := transport.New(DefaultBaseURL, nil)
	if err != nil {
		return nil, err
	}
	p := &Provider{apiKey: apiKey, tr: tr}
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

// WithOrganization sets the OpenAI-Organization header.
func WithOrganization(org string) Option { return WithDefaultHeader("OpenAI-Organization", org) }

// WithMediaStore saves finished videos under store instead of returning the
// bytes inline.
func WithMediaStore(store *media.Store) Option {
	return func(p *Provider) error {
		p.store = store
		return nil
	}
}

// WithJobPolling overrides how often and for how long video jobs are polled.
// Zero keeps the media package default.
func WithJobPolling(interval, timeout time.Duration) Option {
	return func(p *Provider) error {
		p.pollInterval = interval
		p.jobTimeout = timeout
		return nil
	}
}

func (p *Provider) Family() llm.ProviderFamily { return llm.FamilyOpenAI }

func (p *Provider) SendMessage(ctx context.Context, req llm.Request) (llm.Stream, error) {
	if p.apiKey == "" {
		return nil, llm.MissingCredential(llm.FamilyOpenAI)
	}
	if req.Model.ID == "" {
		return nil, llm.InvalidRequest(llm.FamilyOpenAI, "model is required")
	}
	if len(req.Messages) == 0 {
		return nil, llm.InvalidRequest(llm.FamilyOpenAI, "messages is required")
	}

	switch {
	case req.Model.Capabilities.Has(llm.CapImageGeneration):
		return p.generateImage(ctx, req)
	case req.Model.Capabilities.Has(llm.CapVideoGeneration):
		return p.generateVideo(ctx, req)
	}

	body, err := p.buildBody(req)
	if err != nil {
		return nil, err
	}
	logger := p.tr.Logger

	if !req.Stream {
		return eventstream.Lazy(llm.FamilyOpenAI, logger, func(emit eventstream.Emit) error {
			_, raw, err := p.tr.DoJSON(ctx, http.MethodPost, responsesPath, p.headers(p.apiKey, "application/json"), body)
			if err != nil {
				return transport.MapError(llm.FamilyOpenAI, err)
			}
			return emitResponse(raw, emit)
		}), nil
	}

	open := func() (*http.Response, error) {
		return p.tr.DoStream(ctx, http.MethodPost, responsesPath, p.headers(p.apiKey, "text/event-stream"), body)
	}
	return eventstream.New(llm.FamilyOpenAI, logger, open, &streamHandler{}), nil
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
	return h
}

func (p *Provider) controller(kind media.Kind) *media.Controller {
	return &media.Controller{
		Family:       llm.FamilyOpenAI,
		Kind:         kind,
		PollInterval: p.pollInterval,
		Timeout:      p.jobTimeout,
		Store:        p.store,
		Logger:       p.tr.Logger,
	}
}
