package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/hrayleung/jin-llm/llm"
	"github.com/hrayleung/jin-llm/llm/media"
)

// EnvPrefix 是 jin 读取的环境变量前缀
const EnvPrefix = "JIN"

// Settings 是 jin 命令行的配置结构
//
//	default_provider: anthropic
//	providers:
//	  anthropic:
//	    api_key: sk-ant-...
//	    model: claude-sonnet-4-5
//	  openai_compatible:
//	    base_url: http://localhost:8000/v1
//	media:
//	  dir: ~/jin-media
//	  poll_interval: 5s
//	  timeout: 10m
//	log:
//	  level: debug
type Settings struct {
	DefaultProvider string                      `mapstructure:"default_provider" json:"default_provider"`
	Providers       map[string]ProviderSettings `mapstructure:"providers" json:"providers"`
	Media           MediaSettings               `mapstructure:"media" json:"media"`
	Log             LogSettings                 `mapstructure:"log" json:"log"`
}

// ProviderSettings 是单个 provider family 的连接配置
type ProviderSettings struct {
	APIKey  string `mapstructure:"api_key" json:"api_key"`
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	// Model 是未指定 --model 时使用的模型
	Model string `mapstructure:"model" json:"model"`
}

type MediaSettings struct {
	Dir          string        `mapstructure:"dir" json:"dir"`
	PollInterval time.Duration `mapstructure:"poll_interval" json:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout" json:"timeout"`
}

type LogSettings struct {
	Level string `mapstructure:"level" json:"level"`
}

// Defaults 返回默认值。每个 family 的 key 都登记一次，这样只设置环境变量也能生效。
func Defaults() map[string]any {
	d := map[string]any{
		"default_provider":    string(llm.FamilyOpenAI),
		"media.dir":           media.DefaultDir(),
		"media.poll_interval": media.DefaultPollInterval,
		"media.timeout":       media.DefaultTimeout,
		"log.level":           "warn",
	}
	for _, f := range llm.Families() {
		d["providers."+string(f)+".api_key"] = ""
		d["providers."+string(f)+".base_url"] = ""
		d["providers."+string(f)+".model"] = ""
	}
	return d
}

// LoadSettings 读取 path（可为空）并叠加 JIN_ 环境变量
func LoadSettings(path string) (*Config[Settings], error) {
	return Load(path,
		WithDefaults[Settings](Defaults()),
		WithEnv[Settings](EnvPrefix),
	)
}

// Provider 返回 family 的配置，未配置时为零值
func (s Settings) Provider(f llm.ProviderFamily) ProviderSettings {
	return s.Providers[string(f)]
}

// SlogLevel 解析 log.level，无法识别时返回 warn
func (l LogSettings) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return slog.LevelWarn
	}
	return lvl
}
