package llm

import (
	"maps"
	"slices"
)

// ReasoningEffort is an ordinal tier controlling hidden reasoning.
type ReasoningEffort string

const (
	EffortNone    ReasoningEffort = "none"
	EffortMinimal ReasoningEffort = "minimal"
	EffortLow     ReasoningEffort = "low"
	EffortMedium  ReasoningEffort = "medium"
	EffortHigh    ReasoningEffort = "high"
	EffortXHigh   ReasoningEffort = "xhigh"
)

var effortOrder = []ReasoningEffort{EffortNone, EffortMinimal, EffortLow, EffortMedium, EffortHigh, EffortXHigh}

// Rank returns the ordinal of e, or -1 for an unknown tier.
func (e ReasoningEffort) Rank() int { return slices.Index(effortOrder, e) }

// ParseReasoningEffort accepts only the known tiers.
func ParseReasoningEffort(s string) (ReasoningEffort, bool) {
	e := ReasoningEffort(s)
	if e.Rank() < 0 {
		return "", false
	}
	return e, true
}

// ClampEffort maps requested onto the supported tiers: the tier itself when
// supported, else the highest supported tier below it, else the lowest
// supported tier. An empty supported list leaves requested untouched.
func ClampEffort(requested ReasoningEffort, supported []ReasoningEffort) ReasoningEffort {
	if len(supported) == 0 || requested == "" {
		return requested
	}
	if slices.Contains(supported, requested) {
		return requested
	}
	r := requested.Rank()
	best := ReasoningEffort("")
	lowest := ReasoningEffort("")
	for _, s := range supported {
		sr := s.Rank()
		if sr < 0 {
			continue
		}
		if lowest == "" || sr < lowest.Rank() {
			lowest = s
		}
		if sr <= r && (best == "" || sr > best.Rank()) {
			best = s
		}
	}
	if best != "" {
		return best
	}
	return lowest
}

type ReasoningSummary string

const (
	SummaryAuto     ReasoningSummary = "auto"
	SummaryConcise  ReasoningSummary = "concise"
	SummaryDetailed ReasoningSummary = "detailed"
)

type ReasoningControls struct {
	Enabled bool
	Effort  ReasoningEffort

	// BudgetTokens is used by budget-style providers.
	BudgetTokens *int
	Summary      ReasoningSummary
}

type SearchContextSize string

const (
	SearchContextLow    SearchContextSize = "low"
	SearchContextMedium SearchContextSize = "medium"
	SearchContextHigh   SearchContextSize = "high"
)

// WebSearchControls configures a provider's built-in web search.
// AllowedDomains and BlockedDomains are mutually exclusive; see Normalize.
type WebSearchControls struct {
	Enabled          bool
	ContextSize      SearchContextSize
	AllowedDomains   []string
	BlockedDomains   []string
	DynamicFiltering bool
	MaxUses          *int
}

// Normalize drops the block list when an allow list is present.
func (w WebSearchControls) Normalize() WebSearchControls {
	if len(w.AllowedDomains) > 0 {
		w.BlockedDomains = nil
	}
	return w
}

type CacheMode string

const (
	CacheImplicit CacheMode = "implicit"
	CacheExplicit CacheMode = "explicit"
)

type ContextCacheControls struct {
	Mode CacheMode

	// TTL is a provider duration string, e.g. "5m", "1h" or "24h".
	TTL       string
	Key       string
	MinTokens *int

	// Handle names an explicit, previously created cache.
	Handle string
}

type ImageGenerationControls struct {
	Size         string
	AspectRatio  string
	Quality      string
	OutputFormat string
	Count        *int
}

type VideoGenerationControls struct {
	DurationSeconds *int
	Size            string
	AspectRatio     string
}

// GenerationControls are the provider-agnostic generation knobs of one call.
//
// ProviderSpecific is an overlay of raw top-level wire fields applied last;
// the canonical layer never interprets it.
type GenerationControls struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int

	Reasoning       *ReasoningControls
	WebSearch       *WebSearchControls
	ContextCache    *ContextCacheControls
	ImageGeneration *ImageGenerationControls
	VideoGeneration *VideoGenerationControls

	ProviderSpecific map[string]any
}

func Float64Ptr(v float64) *float64 { return &v }

func (c GenerationControls) Clone() GenerationControls {
	out := c
	if c.Temperature != nil {
		out.Temperature = Float64Ptr(*c.Temperature)
	}
	if c.TopP != nil {
		out.TopP = Float64Ptr(*c.TopP)
	}
	if c.MaxTokens != nil {
		out.MaxTokens = IntPtr(*c.MaxTokens)
	}
	if c.Reasoning != nil {
		r := *c.Reasoning
		if r.BudgetTokens != nil {
			r.BudgetTokens = IntPtr(*r.BudgetTokens)
		}
		out.Reasoning = &r
	}
	if c.WebSearch != nil {
		w := *c.WebSearch
		w.AllowedDomains = slices.Clone(w.AllowedDomains)
		w.BlockedDomains = slices.Clone(w.BlockedDomains)
		if w.MaxUses != nil {
			w.MaxUses = IntPtr(*w.MaxUses)
		}
		out.WebSearch = &w
	}
	if c.ContextCache != nil {
		cc := *c.ContextCache
		if cc.MinTokens != nil {
			cc.MinTokens = IntPtr(*cc.MinTokens)
		}
		out.ContextCache = &cc
	}
	if c.ImageGeneration != nil {
		ig := *c.ImageGeneration
		if ig.Count != nil {
			ig.Count = IntPtr(*ig.Count)
		}
		out.ImageGeneration = &ig
	}
	if c.VideoGeneration != nil {
		vg := *c.VideoGeneration
		if vg.DurationSeconds != nil {
			vg.DurationSeconds = IntPtr(*vg.DurationSeconds)
		}
		out.VideoGeneration = &vg
	}
	out.ProviderSpecific = maps.Clone(c.ProviderSpecific)
	return out
}

// ReasoningOn reports whether the caller asked for reasoning.
func (c GenerationControls) ReasoningOn() bool {
	return c.Reasoning != nil && c.Reasoning.Enabled
}

// WebSearchOn reports whether the caller asked for built-in web search.
func (c GenerationControls) WebSearchOn() bool {
	return c.WebSearch != nil && c.WebSearch.Enabled
}
