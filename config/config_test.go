package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/media"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadSettings_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jin.yaml")
	writeFile(t, path, `
default_provider: anthropic
providers:
  anthropic:
    api_key: sk-ant-test
    model: claude-sonnet-4-5
  openai_compatible:
    base_url: http://localhost:8000/v1
media:
  poll_interval: 2s
log:
  level: debug
`)

	cfg, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() err=%v", err)
	}
	s := cfg.Get()

	if s.DefaultProvider != "anthropic" {
		t.Fatalf("DefaultProvider=%q", s.DefaultProvider)
	}
	if got := s.Provider(llm.FamilyAnthropic); got.APIKey != "sk-ant-test" || got.Model != "claude-sonnet-4-5" {
		t.Fatalf("anthropic=%+v", got)
	}
	if got := s.Provider(llm.FamilyOpenAICompatible).BaseURL; got != "http://localhost:8000/v1" {
		t.Fatalf("openai_compatible base_url=%q", got)
	}
	if s.Media.PollInterval != 2*time.Second || s.Media.Timeout != media.DefaultTimeout {
		t.Fatalf("media=%+v", s.Media)
	}
	if s.Log.SlogLevel() != slog.LevelDebug {
		t.Fatalf("level=%v", s.Log.SlogLevel())
	}
	if cfg.Path() != path {
		t.Fatalf("Path()=%q", cfg.Path())
	}
}

func TestLoadSettings_EnvOnly(t *testing.T) {
	t.Setenv("JIN_PROVIDERS_GEMINI_API_KEY", "g-key")
	t.Setenv("JIN_DEFAULT_PROVIDER", "gemini")

	cfg, err := LoadSettings("")
	if err != nil {
		t.Fatalf("LoadSettings() err=%v", err)
	}
	s := cfg.Get()
	if s.DefaultProvider != "gemini" || s.Provider(llm.FamilyGemini).APIKey != "g-key" {
		t.Fatalf("settings=%+v", s)
	}
	if s.Provider(llm.FamilyOpenAI).APIKey != "" {
		t.Fatalf("openai api_key=%q", s.Provider(llm.FamilyOpenAI).APIKey)
	}
	if s.Media.Dir != media.DefaultDir() || s.Media.PollInterval != media.DefaultPollInterval {
		t.Fatalf("media=%+v", s.Media)
	}
}

func TestLoadSettings_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jin.yaml")
	writeFile(t, path, "providers:\n  openai:\n    api_key: from-file\n")
	t.Setenv("JIN_PROVIDERS_OPENAI_API_KEY", "from-env")

	cfg, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() err=%v", err)
	}
	if got := cfg.Get().Provider(llm.FamilyOpenAI).APIKey; got != "from-env" {
		t.Fatalf("api_key=%q", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jin.yaml")
	writeFile(t, path, "providers:\n  openai:\n    api_key: k\n")
	cfg, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() err=%v", err)
	}

	s := cfg.Get()
	s.Providers["openai"] = ProviderSettings{APIKey: "mutated"}
	if got := cfg.Get().Provider(llm.FamilyOpenAI).APIKey; got != "k" {
		t.Fatalf("api_key=%q after mutating a copy", got)
	}
}

func TestOnChange_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jin.yaml")
	writeFile(t, path, "log:\n  level: info\n")
	cfg, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() err=%v", err)
	}

	changed := make(chan Settings, 1)
	cfg.OnChange(func(_, s Settings) {
		select {
		case changed <- s:
		default:
		}
	})
	writeFile(t, path, "log:\n  level: error\n")

	select {
	case s := <-changed:
		if s.Log.Level != "error" {
			t.Fatalf("level=%q", s.Log.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload after editing %s", path)
	}
	if got := cfg.Get().Log.SlogLevel(); got != slog.LevelError {
		t.Fatalf("level=%v", got)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelWarn,
		"":        slog.LevelWarn,
	}
	for in, want := range tests {
		if got := (LogSettings{Level: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q)=%v, want %v", in, got, want)
		}
	}
}
