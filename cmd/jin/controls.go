package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/params"
)

// controlFlags are the generation flags shared by send and draft.
type controlFlags struct {
	temperature float64
	topP        float64
	maxTokens   int

	effort    string
	budget    int
	noReason  bool
	webSearch bool
	allow     []string
	block     []string

	cacheTTL    string
	cacheKey    string
	cacheHandle string

	imageSize   string
	aspectRatio string
	duration    int

	params string
}

func (f *controlFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Float64Var(&f.temperature, "temperature", 0, "sampling temperature")
	fs.Float64Var(&f.topP, "top-p", 0, "nucleus sampling threshold")
	fs.IntVar(&f.maxTokens, "max-tokens", 0, "output token limit")
	fs.StringVar(&f.effort, "effort", "", "reasoning effort (none, minimal, low, medium, high, xhigh)")
	fs.IntVar(&f.budget, "thinking-budget", 0, "reasoning token budget")
	fs.BoolVar(&f.noReason, "no-reasoning", false, "explicitly disable reasoning")
	fs.BoolVar(&f.webSearch, "web-search", false, "enable built-in web search")
	fs.StringSliceVar(&f.allow, "allow-domain", nil, "restrict web search to these domains")
	fs.StringSliceVar(&f.block, "block-domain", nil, "exclude these domains from web search")
	fs.StringVar(&f.cacheTTL, "cache-ttl", "", "context cache TTL, e.g. 5m or 1h")
	fs.StringVar(&f.cacheKey, "cache-key", "", "implicit prompt cache key")
	fs.StringVar(&f.cacheHandle, "cache", "", "explicit cache handle to reuse")
	fs.StringVar(&f.imageSize, "image-size", "", "generated image size")
	fs.StringVar(&f.aspectRatio, "aspect-ratio", "", "generated image or video aspect ratio")
	fs.IntVar(&f.duration, "duration", 0, "generated video length in seconds")
	fs.StringVar(&f.params, "params", "", "raw parameter draft as JSON, or @file")
}

// build assembles controls for modelID. A --params draft is absorbed
// first so explicit flags win over it.
func (f *controlFlags) build(cmd *cobra.Command, family llm.ProviderFamily, modelID string) (llm.GenerationControls, error) {
	var c llm.GenerationControls
	if f.params != "" {
		doc, err := readDraft(f.params)
		if err != nil {
			return c, err
		}
		params.ApplyDraft(family, modelID, doc, &c)
	}

	changed := cmd.Flags().Changed
	var opts []llm.ControlOption
	if changed("temperature") {
		opts = append(opts, llm.WithTemperature(f.temperature))
	}
	if changed("top-p") {
		opts = append(opts, llm.WithTopP(f.topP))
	}
	if changed("max-tokens") {
		opts = append(opts, llm.WithMaxTokens(f.maxTokens))
	}
	if f.effort != "" {
		e, ok := llm.ParseReasoningEffort(f.effort)
		if !ok {
			return c, fmt.Errorf("unknown reasoning effort %q", f.effort)
		}
		opts = append(opts, llm.WithReasoningEffort(e))
	}
	if changed("thinking-budget") {
		opts = append(opts, llm.WithReasoningBudget(f.budget))
	}
	if f.noReason {
		opts = append(opts, llm.WithoutReasoning())
	}
	if f.webSearch || len(f.allow) > 0 || len(f.block) > 0 {
		opts = append(opts, llm.WithWebSearch(f.allow, f.block))
	}
	if f.cacheTTL != "" || f.cacheKey != "" || f.cacheHandle != "" {
		cc := llm.ContextCacheControls{Mode: llm.CacheImplicit, TTL: f.cacheTTL, Key: f.cacheKey, Handle: f.cacheHandle}
		if f.cacheHandle != "" {
			cc.Mode = llm.CacheExplicit
		}
		opts = append(opts, llm.WithContextCache(cc))
	}
	if f.imageSize != "" || (f.aspectRatio != "" && !changed("duration")) {
		opts = append(opts, llm.WithImageGeneration(llm.ImageGenerationControls{Size: f.imageSize, AspectRatio: f.aspectRatio}))
	}
	if changed("duration") {
		opts = append(opts, llm.WithVideoGeneration(llm.VideoGenerationControls{DurationSeconds: llm.IntPtr(f.duration), AspectRatio: f.aspectRatio}))
	}
	llm.ApplyControls(&c, opts...)
	return c, nil
}

// readDraft parses an inline JSON object, "@path" or "-" for stdin.
func readDraft(arg string) (map[string]any, error) {
	var data []byte
	switch {
	case arg == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		data = b
	case strings.HasPrefix(arg, "@"):
		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("read draft: %w", err)
		}
		data = b
	default:
		data = []byte(arg)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("draft must be a JSON object: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}
