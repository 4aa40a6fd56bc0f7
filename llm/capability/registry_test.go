package capability

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hrayleung/jin-llm/llm"
)

func TestLookup_UnknownGetsFallback(t *testing.T) {
	cases := []struct {
		family llm.ProviderFamily
		id     string
	}{
		{llm.FamilyOpenAI, "gpt-5-custom"},
		{llm.FamilyOpenAI, "gpt-5.3-codex-spark-custom"},
		{llm.FamilyOpenAI, "gpt-4"},
		{llm.FamilyAnthropic, "claude-sonnet-4-5-custom"},
		{llm.FamilyAnthropic, "claude-2.1"},
		{llm.FamilyGemini, "gemini-2.5-pro-tuned"},
		{llm.FamilyDeepSeek, "deepseek-chat-v9"},
		{llm.FamilyOllama, "llama3.2"},
		{llm.FamilyOpenRouter, "unknown-vendor/model"},
		{llm.FamilyOpenRouter, "openai/gpt-5-custom"},
		{llm.FamilyOpenAICompatible, ""},
	}
	want := Fallback()
	for _, tc := range cases {
		got := Lookup(tc.family, tc.id)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Lookup(%s, %q) mismatch (-want +got):\n%s", tc.family, tc.id, diff)
		}
	}
	if want.ContextWindow != 128000 || want.Reasoning != nil || len(want.Capabilities) != 2 {
		t.Fatalf("fallback=%+v", want)
	}
}

func TestLookup_ExactDoesNotLeakToSuffixVariants(t *testing.T) {
	spark := Lookup(llm.FamilyOpenAI, "gpt-5.3-codex-spark")
	codex := Lookup(llm.FamilyOpenAI, "gpt-5.3-codex")
	if spark.Source != SourceExact || codex.Source != SourceExact {
		t.Fatalf("sources=%s,%s", spark.Source, codex.Source)
	}
	if spark.ContextWindow == codex.ContextWindow {
		t.Fatalf("spark inherited codex context window")
	}
	if spark.Capabilities.Has(llm.CapVision) {
		t.Fatalf("spark inherited vision")
	}
}

func TestLookup_OpenAIEffortTiers(t *testing.T) {
	cases := []struct {
		id        string
		requested llm.ReasoningEffort
		want      llm.ReasoningEffort
	}{
		{"gpt-5", llm.EffortXHigh, llm.EffortHigh},
		{"gpt-5.2-pro", llm.EffortXHigh, llm.EffortXHigh},
		{"gpt-5-mini", llm.EffortNone, llm.EffortMinimal},
		{"gpt-5.1", llm.EffortXHigh, llm.EffortHigh},
		{"gpt-5.2", llm.EffortXHigh, llm.EffortXHigh},
		{"o3", llm.EffortMinimal, llm.EffortLow},
	}
	for _, tc := range cases {
		f := Lookup(llm.FamilyOpenAI, tc.id)
		if f.Reasoning == nil {
			t.Fatalf("%s: no reasoning config", tc.id)
		}
		if got := llm.ClampEffort(tc.requested, f.Reasoning.Efforts); got != tc.want {
			t.Fatalf("%s: ClampEffort(%s)=%s", tc.id, tc.requested, got)
		}
	}
}

func TestLookup_Heuristics(t *testing.T) {
	cases := []struct {
		family llm.ProviderFamily
		id     string
		typ    llm.ReasoningType
		window int
	}{
		{llm.FamilyAnthropic, "claude-sonnet-4-5-20250929", llm.ReasoningTypeBudget, 200000},
		{llm.FamilyAnthropic, "claude-opus-4-20250514", llm.ReasoningTypeBudget, 200000},
		{llm.FamilyAnthropic, "claude-opus-4-6", llm.ReasoningTypeEffort, 200000},
		{llm.FamilyGemini, "gemini-2.5-flash", llm.ReasoningTypeBudget, 1048576},
		{llm.FamilyGemini, "gemini-3-pro-preview", llm.ReasoningTypeEffort, 1048576},
		{llm.FamilyOpenAI, "gpt-5-2025-08-07", llm.ReasoningTypeEffort, 400000},
	}
	for _, tc := range cases {
		f := Lookup(tc.family, tc.id)
		if f.Source != SourceHeuristic {
			t.Fatalf("%s: Source=%s", tc.id, f.Source)
		}
		if f.Reasoning == nil || f.Reasoning.Type != tc.typ || f.ContextWindow != tc.window {
			t.Fatalf("%s: facts=%+v reasoning=%+v", tc.id, f, f.Reasoning)
		}
	}

	if f := Lookup(llm.FamilyAnthropic, "claude-opus-4-1"); f.MaxOutputTokens != 32000 {
		t.Fatalf("opus 4.1 max output=%d", f.MaxOutputTokens)
	}
	if f := Lookup(llm.FamilyGemini, "gemini-2.0-flash"); f.Reasoning != nil || f.Capabilities.Has(llm.CapReasoning) {
		t.Fatalf("gemini 2.0 should not reason: %+v", f)
	}
	if f := Lookup(llm.FamilyGemini, "gemini-2.5-pro"); f.ReasoningCanDisable {
		t.Fatalf("gemini 2.5 pro cannot disable thinking")
	}
}

func TestLookup_OpenRouterRoutesToVendorTables(t *testing.T) {
	f := Lookup(llm.FamilyOpenRouter, "anthropic/claude-sonnet-4.5")
	if f.Reasoning == nil || f.Reasoning.Type != llm.ReasoningTypeBudget || !f.WebSearch {
		t.Fatalf("facts=%+v", f)
	}
	g := Lookup(llm.FamilyOpenRouter, "deepseek/deepseek-chat")
	if g.Source != SourceExact || g.ContextWindow != 128000 {
		t.Fatalf("facts=%+v", g)
	}
}

func TestLookup_PrefixRule(t *testing.T) {
	f := Lookup(llm.FamilyFireworks, "accounts/fireworks/models/deepseek-r1-0528")
	if f.Source != SourcePrefix || f.ContextWindow != 163840 {
		t.Fatalf("facts=%+v", f)
	}
	// Prefix rules are per family.
	if g := Lookup(llm.FamilyTogether, "accounts/fireworks/models/deepseek-r1-0528"); g.Source != SourceFallback {
		t.Fatalf("prefix leaked across families: %+v", g)
	}
}

func TestLookup_ResultIsACopy(t *testing.T) {
	a := Lookup(llm.FamilyOpenAI, "gpt-5.2-pro")
	a.Reasoning.Efforts[0] = llm.EffortMinimal
	a.Capabilities[0] = llm.CapAudio
	b := Lookup(llm.FamilyOpenAI, "gpt-5.2-pro")
	if b.Reasoning.Efforts[0] != llm.EffortMedium || b.Capabilities[0] != llm.CapStreaming {
		t.Fatalf("registry tables were mutated: %+v", b)
	}
}

func TestCorrectContextWindow(t *testing.T) {
	r := Default()
	cases := []struct {
		id     string
		stored int
		want   int
	}{
		{"deepseek-chat", 64000, 128000},
		{"gpt-4.1", 128000, 1047576},
		{"kimi-k2-0905-preview", 128000, 256000},
		{"deepseek-chat", 32000, 32000},
		{"deepseek-chat-custom", 64000, 64000},
	}
	for _, tc := range cases {
		if got := r.CorrectContextWindow(tc.id, tc.stored); got != tc.want {
			t.Fatalf("CorrectContextWindow(%q, %d)=%d", tc.id, tc.stored, got)
		}
	}
}

func TestParse_RejectsUnknownFamilyAndEffort(t *testing.T) {
	if _, err := Parse([]byte("families:\n  nope:\n    models: {}\n")); err == nil {
		t.Fatalf("expected unknown family error")
	}
	bad := "families:\n  openai:\n    models:\n      m:\n        reasoning:\n          type: effort\n          efforts: [ultra]\n"
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatalf("expected unknown effort error")
	}
}
