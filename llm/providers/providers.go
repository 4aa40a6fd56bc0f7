// Package providers picks the adapter for a provider family.
package providers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/media"
	"github.com/hrayleung/jin-llm/llm/providers/anthropic"
	"github.com/hrayleung/jin-llm/llm/providers/gemini"
	"github.com/hrayleung/jin-llm/llm/providers/openai"
	"github.com/hrayleung/jin-llm/llm/providers/openai_compat"
)

// Config holds the settings every adapter understands. Zero values keep each
// adapter's defaults.
type Config struct {
	// BaseURL overrides the vendor endpoint. Required for
	// FamilyOpenAICompatible.
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	Logger     *slog.Logger
	Headers    map[string]string

	// MediaStore receives generated images and videos.
	MediaStore   *media.Store
	PollInterval time.Duration
	JobTimeout   time.Duration
}

type constructor func(family llm.ProviderFamily, apiKey string, cfg Config) (llm.Adapter, error)

var byShape = map[llm.RequestShape]constructor{
	llm.ShapeOpenAIResponses:       newOpenAI,
	llm.ShapeAnthropicMessages:     newAnthropic,
	llm.ShapeGeminiGenerateContent: newGemini,
	llm.ShapeOpenAICompatible:      newCompatible,
}

// New returns the adapter for family. The wire shape is derived from the
// family alone.
func New(family llm.ProviderFamily, apiKey string, cfg Config) (llm.Adapter, error) {
	if _, ok := llm.ParseFamily(string(family)); !ok {
		return nil, fmt.Errorf("providers: unknown family %q", family)
	}
	return byShape[llm.ShapeFor(family)](family, apiKey, cfg)
}

func newOpenAI(_ llm.ProviderFamily, apiKey string, cfg Config) (llm.Adapter, error) {
	var opts []openai.Option
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, openai.WithUserAgent(cfg.UserAgent))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, openai.WithDefaultHeader(k, v))
	}
	opts = append(opts,
		openai.WithLogger(cfg.Logger),
		openai.WithMediaStore(cfg.MediaStore),
		openai.WithJobPolling(cfg.PollInterval, cfg.JobTimeout),
	)
	return adapter(openai.New(apiKey, opts...))
}

func newAnthropic(_ llm.ProviderFamily, apiKey string, cfg Config) (llm.Adapter, error) {
	var opts []anthropic.Option
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, anthropic.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, anthropic.WithUserAgent(cfg.UserAgent))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, anthropic.WithDefaultHeader(k, v))
	}
	opts = append(opts, anthropic.WithLogger(cfg.Logger))
	return adapter(anthropic.New(apiKey, opts...))
}

func newGemini(_ llm.ProviderFamily, apiKey string, cfg Config) (llm.Adapter, error) {
	var opts []gemini.Option
	if cfg.BaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, gemini.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, gemini.WithUserAgent(cfg.UserAgent))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, gemini.WithDefaultHeader(k, v))
	}
	opts = append(opts,
		gemini.WithLogger(cfg.Logger),
		gemini.WithMediaStore(cfg.MediaStore),
		gemini.WithJobPolling(cfg.PollInterval, cfg.JobTimeout),
	)
	return adapter(gemini.New(apiKey, opts...))
}

func newCompatible(family llm.ProviderFamily, apiKey string, cfg Config) (llm.Adapter, error) {
	if family == llm.FamilyOpenAICompatible && cfg.BaseURL == "" {
		return nil, fmt.Errorf("providers: %s needs a base URL", family)
	}
	var opts []openai_compat.Option
	if cfg.BaseURL != "" {
		opts = append(opts, openai_compat.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, openai_compat.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, openai_compat.WithUserAgent(cfg.UserAgent))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, openai_compat.WithDefaultHeader(k, v))
	}
	opts = append(opts, openai_compat.WithLogger(cfg.Logger))
	return adapter(openai_compat.ForFamily(family, apiKey, opts...))
}

// adapter keeps a failed constructor from yielding a non-nil interface
// around a nil pointer.
func adapter[T llm.Adapter](a T, err error) (llm.Adapter, error) {
	if err != nil {
		return nil, err
	}
	return a, nil
}
