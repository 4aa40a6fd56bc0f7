// Package capability answers what a (provider family, model id) pair
// supports.
//
// Lookup order is exact table entry, then any prefix rule the family declares,
// then the family's generation heuristics, then a conservative fallback.
// Unknown ids never fail and never borrow facts from a similarly named model.
package capability

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/hrayleung/jin-llm/llm"
)

//go:embed models.yaml
var defaultTables []byte

// Source records which rule produced a Facts value.
type Source string

const (
	SourceExact     Source = "exact"
	SourcePrefix    Source = "prefix"
	SourceHeuristic Source = "heuristic"
	SourceFallback  Source = "fallback"
)

// Facts is what the registry knows about one model.
type Facts struct {
	Capabilities        llm.CapabilitySet    `yaml:"capabilities"`
	ContextWindow       int                  `yaml:"context_window"`
	MaxOutputTokens     int                  `yaml:"max_output_tokens"`
	Reasoning           *llm.ReasoningConfig `yaml:"reasoning"`
	ReasoningCanDisable bool                 `yaml:"reasoning_can_disable"`
	WebSearch           bool                 `yaml:"web_search"`

	Source Source `yaml:"-"`
}

const fallbackContextWindow = 128000

// Fallback is returned for every model the registry does not know.
func Fallback() Facts {
	return Facts{
		Capabilities:  llm.CapabilitySet{llm.CapStreaming, llm.CapToolCalling},
		ContextWindow: fallbackContextWindow,
		Source:        SourceFallback,
	}
}

func (f Facts) clone() Facts {
	out := f
	out.Capabilities = slices.Clone(f.Capabilities)
	out.Reasoning = f.Reasoning.Clone()
	return out
}

// ModelInfo turns f into a stored-record shape for model listings.
func (f Facts) ModelInfo(id string) llm.ModelInfo {
	return llm.ModelInfo{
		ID:              id,
		Name:            id,
		Capabilities:    slices.Clone(f.Capabilities),
		ContextWindow:   f.ContextWindow,
		MaxOutputTokens: f.MaxOutputTokens,
		Reasoning:       f.Reasoning.Clone(),
	}
}

type prefixRule struct {
	Prefix string `yaml:"prefix"`
	Facts  `yaml:",inline"`
}

type familyTable struct {
	Models   map[string]Facts `yaml:"models"`
	Prefixes []prefixRule     `yaml:"prefixes"`
}

type correction struct {
	Model string `yaml:"model"`
	From  int    `yaml:"from"`
	To    int    `yaml:"to"`
}

type tableFile struct {
	Families    map[string]familyTable `yaml:"families"`
	Corrections []correction           `yaml:"context_window_corrections"`
}

// Registry is read-only after construction and safe for concurrent use.
type Registry struct {
	families    map[llm.ProviderFamily]familyTable
	corrections map[string]correction
}

// Parse builds a registry from YAML tables in the models.yaml format.
func Parse(data []byte) (*Registry, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("capability: parse tables: %w", err)
	}
	r := &Registry{
		families:    make(map[llm.ProviderFamily]familyTable, len(tf.Families)),
		corrections: make(map[string]correction, len(tf.Corrections)),
	}
	for name, t := range tf.Families {
		fam, ok := llm.ParseFamily(name)
		if !ok {
			return nil, fmt.Errorf("capability: unknown family %q", name)
		}
		for id, f := range t.Models {
			if err := validate(f); err != nil {
				return nil, fmt.Errorf("capability: %s/%s: %w", fam, id, err)
			}
		}
		r.families[fam] = t
	}
	for _, c := range tf.Corrections {
		r.corrections[c.Model] = c
	}
	return r, nil
}

func validate(f Facts) error {
	if f.Reasoning == nil {
		return nil
	}
	for _, e := range f.Reasoning.Efforts {
		if e.Rank() < 0 {
			return fmt.Errorf("unknown effort %q", e)
		}
	}
	return nil
}

var loadDefault = sync.OnceValue(func() *Registry {
	r, err := Parse(defaultTables)
	if err != nil {
		panic(err)
	}
	return r
})

// Default returns the registry built from the embedded tables.
func Default() *Registry { return loadDefault() }

// Lookup queries the default registry.
func Lookup(family llm.ProviderFamily, modelID string) Facts {
	return Default().Lookup(family, modelID)
}

// Lookup returns the facts for modelID. It never fails.
func (r *Registry) Lookup(family llm.ProviderFamily, modelID string) Facts {
	if f, ok := r.lookup(family, modelID); ok {
		return f
	}
	if family == llm.FamilyOpenRouter {
		if f, ok := r.lookupRouted(modelID); ok {
			return f
		}
	}
	return Fallback()
}

func (r *Registry) lookup(family llm.ProviderFamily, modelID string) (Facts, bool) {
	t := r.families[family]
	if f, ok := t.Models[modelID]; ok {
		f = f.clone()
		f.Source = SourceExact
		return f, true
	}
	for _, p := range t.Prefixes {
		if p.Prefix != "" && strings.HasPrefix(modelID, p.Prefix) {
			f := p.Facts.clone()
			f.Source = SourcePrefix
			return f, true
		}
	}
	if h, ok := heuristics[family]; ok {
		if f, ok := h(modelID); ok {
			f.Source = SourceHeuristic
			return f, true
		}
	}
	return Facts{}, false
}

// OpenRouter ids are "vendor/model"; vendor tables apply to the model part.
var routedVendors = map[string]llm.ProviderFamily{
	"openai":     llm.FamilyOpenAI,
	"anthropic":  llm.FamilyAnthropic,
	"google":     llm.FamilyGemini,
	"x-ai":       llm.FamilyXAI,
	"deepseek":   llm.FamilyDeepSeek,
	"moonshotai": llm.FamilyKimi,
	"qwen":       llm.FamilyQwen,
	"mistralai":  llm.FamilyMistral,
	"perplexity": llm.FamilyPerplexity,
}

func (r *Registry) lookupRouted(modelID string) (Facts, bool) {
	vendor, model, ok := strings.Cut(modelID, "/")
	if !ok {
		return Facts{}, false
	}
	fam, ok := routedVendors[vendor]
	if !ok {
		return Facts{}, false
	}
	if fam == llm.FamilyAnthropic {
		// OpenRouter spells claude versions with dots: claude-sonnet-4.5.
		model = dottedVersion.ReplaceAllString(model, "$1-$2")
	}
	f, ok := r.lookup(fam, model)
	if !ok {
		return Facts{}, false
	}
	// OpenRouter's web plugin works for every routed model.
	f.WebSearch = true
	return f, true
}

// CorrectContextWindow fixes a stale stored context window for modelID.
func (r *Registry) CorrectContextWindow(modelID string, stored int) int {
	if c, ok := r.corrections[modelID]; ok && stored == c.From {
		return c.To
	}
	return stored
}
