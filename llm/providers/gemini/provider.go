// Package gemini speaks the Gemini API: generateContent for chat and image
// output, and long-running predict operations for Veo video models.
package gemini

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/internal/eventstream"
	"github.com/hrayleung/jin-llm/llm/internal/transport"
	"github.com/hrayleung/jin-llm/llm/media"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	modelsPath = "/models"
)

type Provider struct {
	apiKey string
	tr     *transport.Client

	// Generated media.
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

// WithMediaStore saves generated images and videos under store instead of
// returning the bytes inline.
func WithMediaStore(store *media.Store) Option {
	return func(p *Provider) error {
		p.store = store
		return nil
	}
}

// WithJobPolling overrides how often and for how long Veo operations are
// polled. Zero keeps the media package default.
func WithJobPolling(interval, timeout time.Duration) Option {
	return func(p *Provider) error {
		p.pollInterval = interval
		p.jobTimeout = timeout
		return nil
	}
}

func (p *Provider) Family() llm.ProviderFamily { return llm.FamilyGemini }

func (p *Provider) SendMessage(ctx context.Context, req llm.Request) (llm.Stream, error) {
	if p.apiKey == "" {
		return nil, llm.MissingCredential(llm.FamilyGemini)
	}
	if req.Model.ID == "" {
		return nil, llm.InvalidRequest(llm.FamilyGemini, "model is required")
	}
	if len(req.Messages) == 0 {
		return nil, llm.InvalidRequest(llm.FamilyGemini, "messages is required")
	}
	if req.Model.Capabilities.Has(llm.CapVideoGeneration) {
		return p.generateVideo(ctx, req)
	}

	body, err := buildBody(req)
	if err != nil {
		return nil, err
	}
	logger := p.tr.Logger
	model := modelPath(req.Model.ID)

	if !req.Stream {
		return eventstream.Lazy(llm.FamilyGemini, logger, func(emit eventstream.Emit) error {
			_, raw, err := p.tr.DoJSON(ctx, http.MethodPost, model+":generateContent", p.headers(p.apiKey), body)
			if err != nil {
				return transport.MapError(llm.FamilyGemini, err)
			}
			h := p.newChunkHandler(ctx)
			if err := h.chunk(raw, emit); err != nil {
				return err
			}
			return h.Finish(emit)
		}), nil
	}

	open := func() (*http.Response, error) {
		return p.tr.DoStream(ctx, http.MethodPost, model+":streamGenerateContent?alt=sse", p.headers(p.apiKey), body)
	}
	return eventstream.New(llm.FamilyGemini, logger, open, p.newChunkHandler(ctx)), nil
}

// modelPath is the resource path of a model id. Tuned model names already
// carry their collection.
func modelPath(id string) string {
	if strings.Contains(id, "/") {
		return "/" + strings.TrimPrefix(id, "/")
	}
	return modelsPath + "/" + id
}

func (p *Provider) headers(apiKey string) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	if apiKey != "" {
		h.Set("x-goog-api-key", apiKey)
	}
	return h
}

func (p *Provider) controller(kind media.Kind) *media.Controller {
	return &media.Controller{
		Family:       llm.FamilyGemini,
		Kind:         kind,
		PollInterval: p.pollInterval,
		Timeout:      p.jobTimeout,
		Store:        p.store,
		Logger:       p.tr.Logger,
	}
}
