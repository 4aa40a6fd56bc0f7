package llm

import (
	"context"
	"slices"
)

// ModelResolver turns a stored model record into the effective model.
type ModelResolver func(ModelInfo) ResolvedModel

// EventHandler observes each event of a generation driven by Client.Generate.
// Returning an error stops the generation and closes the stream.
type EventHandler func(ctx context.Context, ev StreamEvent) error

type ClientOption func(*Client)

// WithDefaultControls registers options applied before the per-call ones.
func WithDefaultControls(opts ...ControlOption) ClientOption {
	return func(c *Client) {
		c.defaultControls = append(c.defaultControls, opts...)
	}
}

// WithEventHandler sets the handler Generate calls for every event.
func WithEventHandler(h EventHandler) ClientOption {
	return func(c *Client) {
		c.onEvent = h
	}
}

// Client is the caller-facing entrypoint: it resolves the model and hands the
// call to one Adapter.
type Client struct {
	adapter Adapter
	resolve ModelResolver

	defaultControls []ControlOption
	onEvent         EventHandler
}

func New(adapter Adapter, resolve ModelResolver, opts ...ClientOption) *Client {
	c := &Client{adapter: adapter, resolve: resolve}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// SendMessage resolves model and starts one generation call. Default
// controls registered on the client apply only where controls leaves a
// field unset.
func (c *Client) SendMessage(ctx context.Context, model ModelInfo, messages []Message, controls GenerationControls, tools []ToolDefinition, streaming bool) (Stream, error) {
	return c.adapter.SendMessage(ctx, Request{
		Model:    c.resolve(model),
		Messages: messages,
		Controls: c.withDefaults(controls),
		Tools:    tools,
		Stream:   streaming,
	})
}

// Generate runs one streaming call to completion and returns the folded
// turn. The event handler, when set, sees every event in order.
func (c *Client) Generate(ctx context.Context, model ModelInfo, messages []Message, tools []ToolDefinition, opts ...ControlOption) (*Collector, error) {
	s, err := c.SendMessage(ctx, model, messages, BuildControls(opts...), tools, true)
	if err != nil {
		return nil, err
	}
	var col Collector
	for ev, err := range Events(s) {
		if err != nil {
			return &col, err
		}
		col.Apply(ev)
		if c.onEvent != nil {
			if err := c.onEvent(ctx, ev); err != nil {
				return &col, err
			}
		}
	}
	return &col, nil
}

func (c *Client) withDefaults(controls GenerationControls) GenerationControls {
	if len(c.defaultControls) == 0 {
		return controls
	}
	base := BuildControls(slices.Clone(c.defaultControls)...)
	out := controls.Clone()
	if out.Temperature == nil {
		out.Temperature = base.Temperature
	}
	if out.TopP == nil {
		out.TopP = base.TopP
	}
	if out.MaxTokens == nil {
		out.MaxTokens = base.MaxTokens
	}
	if out.Reasoning == nil {
		out.Reasoning = base.Reasoning
	}
	if out.WebSearch == nil {
		out.WebSearch = base.WebSearch
	}
	if out.ContextCache == nil {
		out.ContextCache = base.ContextCache
	}
	if out.ImageGeneration == nil {
		out.ImageGeneration = base.ImageGeneration
	}
	if out.VideoGeneration == nil {
		out.VideoGeneration = base.VideoGeneration
	}
	for k, v := range base.ProviderSpecific {
		if _, ok := out.ProviderSpecific[k]; !ok {
			if out.ProviderSpecific == nil {
				out.ProviderSpecific = map[string]any{}
			}
			out.ProviderSpecific[k] = v
		}
	}
	return out
}

func (c *Client) FetchAvailableModels(ctx context.Context) ([]ModelInfo, error) {
	return c.adapter.FetchAvailableModels(ctx)
}

func (c *Client) ValidateAPIKey(ctx context.Context, key string) (bool, error) {
	return c.adapter.ValidateAPIKey(ctx, key)
}

func (c *Client) Adapter() Adapter { return c.adapter }
