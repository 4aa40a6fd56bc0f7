package capability

import (
	"regexp"
	"strconv"

	"github.com/hrayleung/jin-llm/llm"
)

type heuristic func(modelID string) (Facts, bool)

var heuristics = map[llm.ProviderFamily]heuristic{
	llm.FamilyOpenAI:    openAIFacts,
	llm.FamilyAnthropic: anthropicFacts,
	llm.FamilyGemini:    geminiFacts,
}

var (
	gptPattern     = regexp.MustCompile(`^gpt-(\d+)(?:\.(\d+))?(-mini|-nano|-pro)?(?:-\d{4}-\d{2}-\d{2})?$`)
	oSeriesPattern = regexp.MustCompile(`^o(\d)(-mini|-pro)?(?:-\d{4}-\d{2}-\d{2})?$`)
	claudePattern  = regexp.MustCompile(`^claude-(opus|sonnet|haiku)-(\d+)(?:-(\d{1,2}))?(?:-(\d{8}))?$`)
	geminiPattern  = regexp.MustCompile(`^gemini-(\d+)(?:\.(\d+))?-(pro|flash|flash-lite)(?:-preview(?:-\d{2}-\d{4})?|-latest|-\d{3})?$`)
	dottedVersion  = regexp.MustCompile(`(\d)\.(\d)`)
)

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func efforts(es ...llm.ReasoningEffort) []llm.ReasoningEffort { return es }

// openAIFacts covers the gpt-5 generation onwards and the o-series.
func openAIFacts(id string) (Facts, bool) {
	if m := oSeriesPattern.FindStringSubmatch(id); m != nil {
		return Facts{
			Capabilities:    llm.CapabilitySet{llm.CapStreaming, llm.CapToolCalling, llm.CapVision, llm.CapReasoning, llm.CapNativePDF},
			ContextWindow:   200000,
			MaxOutputTokens: 100000,
			WebSearch:       atoi(m[1]) >= 3,
			Reasoning: &llm.ReasoningConfig{
				Type:          llm.ReasoningTypeEffort,
				DefaultEffort: llm.EffortMedium,
				Efforts:       efforts(llm.EffortLow, llm.EffortMedium, llm.EffortHigh),
			},
		}, true
	}

	m := gptPattern.FindStringSubmatch(id)
	if m == nil {
		return Facts{}, false
	}
	major, minor, variant := atoi(m[1]), atoi(m[2]), m[3]
	if major < 5 {
		return Facts{}, false
	}
	gen := major*10 + minor

	f := Facts{
		Capabilities:    llm.CapabilitySet{llm.CapStreaming, llm.CapToolCalling, llm.CapVision, llm.CapReasoning, llm.CapNativePDF},
		ContextWindow:   400000,
		MaxOutputTokens: 128000,
		WebSearch:       true,
	}
	rc := &llm.ReasoningConfig{Type: llm.ReasoningTypeEffort}
	switch {
	case variant == "-pro" && gen >= 52:
		rc.DefaultEffort, rc.Efforts = llm.EffortHigh, efforts(llm.EffortMedium, llm.EffortHigh, llm.EffortXHigh)
	case variant == "-pro":
		rc.DefaultEffort, rc.Efforts = llm.EffortHigh, efforts(llm.EffortHigh)
	case gen == 50:
		rc.DefaultEffort, rc.Efforts = llm.EffortMedium, efforts(llm.EffortMinimal, llm.EffortLow, llm.EffortMedium, llm.EffortHigh)
	case gen == 51:
		rc.DefaultEffort, rc.Efforts = llm.EffortNone, efforts(llm.EffortNone, llm.EffortLow, llm.EffortMedium, llm.EffortHigh)
		f.ReasoningCanDisable = true
	default:
		rc.DefaultEffort, rc.Efforts = llm.EffortNone, efforts(llm.EffortNone, llm.EffortLow, llm.EffortMedium, llm.EffortHigh, llm.EffortXHigh)
		f.ReasoningCanDisable = true
	}
	f.Reasoning = rc
	return f, true
}

// anthropicFacts covers claude-{opus,sonnet,haiku}-N[-M] from generation 4.
// Budget thinking up to 4.5, adaptive thinking with effort from 4.6.
func anthropicFacts(id string) (Facts, bool) {
	m := claudePattern.FindStringSubmatch(id)
	if m == nil {
		return Facts{}, false
	}
	tier, major, minor := m[1], atoi(m[2]), atoi(m[3])
	if major < 4 {
		return Facts{}, false
	}
	gen := major*10 + minor

	f := Facts{
		Capabilities:        llm.CapabilitySet{llm.CapStreaming, llm.CapToolCalling, llm.CapVision, llm.CapReasoning, llm.CapNativePDF},
		ContextWindow:       200000,
		MaxOutputTokens:     64000,
		WebSearch:           true,
		ReasoningCanDisable: true,
	}
	switch {
	case tier == "opus" && gen < 45:
		f.MaxOutputTokens = 32000
	case tier == "opus" && gen >= 46:
		f.MaxOutputTokens = 128000
	}
	if gen >= 46 {
		f.Reasoning = &llm.ReasoningConfig{
			Type:          llm.ReasoningTypeEffort,
			DefaultEffort: llm.EffortHigh,
			Efforts:       efforts(llm.EffortLow, llm.EffortMedium, llm.EffortHigh),
		}
		if tier == "opus" {
			f.Reasoning.Efforts = append(f.Reasoning.Efforts, llm.EffortXHigh)
		}
		return f, true
	}
	f.Reasoning = &llm.ReasoningConfig{Type: llm.ReasoningTypeBudget, DefaultBudget: 4096}
	return f, true
}

// geminiFacts covers gemini-N[.M]-{pro,flash,flash-lite}. 2.5 uses thinking
// budgets, 3 and later use thinking levels.
func geminiFacts(id string) (Facts, bool) {
	m := geminiPattern.FindStringSubmatch(id)
	if m == nil {
		return Facts{}, false
	}
	major, minor, tier := atoi(m[1]), atoi(m[2]), m[3]
	gen := major*10 + minor

	f := Facts{
		Capabilities:    llm.CapabilitySet{llm.CapStreaming, llm.CapToolCalling, llm.CapVision, llm.CapNativePDF},
		ContextWindow:   1048576,
		MaxOutputTokens: 65536,
		WebSearch:       true,
	}
	switch {
	case gen < 25:
		f.MaxOutputTokens = 8192
		return f, true
	case gen == 25:
		f.Reasoning = &llm.ReasoningConfig{Type: llm.ReasoningTypeBudget, DefaultBudget: 8192}
		f.ReasoningCanDisable = tier != "pro"
	case tier == "pro":
		f.Reasoning = &llm.ReasoningConfig{
			Type:          llm.ReasoningTypeEffort,
			DefaultEffort: llm.EffortHigh,
			Efforts:       efforts(llm.EffortLow, llm.EffortHigh),
		}
	default:
		f.Reasoning = &llm.ReasoningConfig{
			Type:          llm.ReasoningTypeEffort,
			DefaultEffort: llm.EffortHigh,
			Efforts:       efforts(llm.EffortMinimal, llm.EffortLow, llm.EffortMedium, llm.EffortHigh),
		}
	}
	f.Capabilities = append(f.Capabilities, llm.CapReasoning)
	return f, true
}
