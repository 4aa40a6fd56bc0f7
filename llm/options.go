package llm

import "maps"

// ControlOption 是生成参数的可选函数类型
type ControlOption func(*GenerationControls)

// BuildControls 把选项依次应用到一份新的 GenerationControls 上。
//
// 采用“每次调用构建新配置”的方式，调用方无需关心深拷贝。
func BuildControls(opts ...ControlOption) GenerationControls {
	var c GenerationControls
	ApplyControls(&c, opts...)
	return c
}

// ApplyControls 在已有的 controls 上追加选项，nil 选项会被忽略
func ApplyControls(c *GenerationControls, opts ...ControlOption) {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
}

// === 采样参数 ===

// WithTemperature 设置采样温度
func WithTemperature(v float64) ControlOption {
	return func(c *GenerationControls) {
		c.Temperature = Float64Ptr(v)
	}
}

// WithTopP 设置核采样阈值
func WithTopP(v float64) ControlOption {
	return func(c *GenerationControls) {
		c.TopP = Float64Ptr(v)
	}
}

// WithMaxTokens 设置输出 token 上限
func WithMaxTokens(v int) ControlOption {
	return func(c *GenerationControls) {
		c.MaxTokens = IntPtr(v)
	}
}

// === 推理 ===

// WithReasoningEffort 开启推理并设置强度档位。
// 模型不支持该档位时，由参数投影按 ClampEffort 的规则降档。
func WithReasoningEffort(e ReasoningEffort) ControlOption {
	return func(c *GenerationControls) {
		r := reasoningOf(c)
		r.Enabled = true
		r.Effort = e
	}
}

// WithReasoningBudget 开启推理并设置 token 预算（预算型 provider 使用）
func WithReasoningBudget(tokens int) ControlOption {
	return func(c *GenerationControls) {
		r := reasoningOf(c)
		r.Enabled = true
		r.BudgetTokens = IntPtr(tokens)
	}
}

// WithReasoningSummary 设置推理摘要的详细程度
func WithReasoningSummary(s ReasoningSummary) ControlOption {
	return func(c *GenerationControls) {
		reasoningOf(c).Summary = s
	}
}

// WithoutReasoning 显式关闭推理。模型不允许关闭时该选项不产生任何字段。
func WithoutReasoning() ControlOption {
	return func(c *GenerationControls) {
		c.Reasoning = &ReasoningControls{Enabled: false}
	}
}

func reasoningOf(c *GenerationControls) *ReasoningControls {
	if c.Reasoning == nil {
		c.Reasoning = &ReasoningControls{}
	}
	return c.Reasoning
}

// === 内置工具 ===

// WithWebSearch 开启 provider 内置的联网搜索。
// allowed 与 blocked 互斥，同时给出时以 allowed 为准。
func WithWebSearch(allowed, blocked []string) ControlOption {
	return func(c *GenerationControls) {
		w := WebSearchControls{Enabled: true, AllowedDomains: allowed, BlockedDomains: blocked}.Normalize()
		c.WebSearch = &w
	}
}

// WithContextCache 设置上下文缓存
func WithContextCache(cc ContextCacheControls) ControlOption {
	return func(c *GenerationControls) {
		c.ContextCache = &cc
	}
}

// === 媒体生成 ===

// WithImageGeneration 设置图片生成参数，只对图片模型生效
func WithImageGeneration(ig ImageGenerationControls) ControlOption {
	return func(c *GenerationControls) {
		c.ImageGeneration = &ig
	}
}

// WithVideoGeneration 设置视频生成参数，只对视频模型生效
func WithVideoGeneration(vg VideoGenerationControls) ControlOption {
	return func(c *GenerationControls) {
		c.VideoGeneration = &vg
	}
}

// === 扩展字段 ===

// WithProviderFields 批量设置 provider 原生字段。
// 这些字段在请求体构建完成后按顶层 key 覆盖，可以替换已投影的字段。
func WithProviderFields(fields map[string]any) ControlOption {
	fields = maps.Clone(fields)
	return func(c *GenerationControls) {
		if len(fields) == 0 {
			return
		}
		if c.ProviderSpecific == nil {
			c.ProviderSpecific = make(map[string]any, len(fields))
		}
		maps.Copy(c.ProviderSpecific, fields)
	}
}

// WithProviderField 设置单个 provider 原生字段
func WithProviderField(key string, value any) ControlOption {
	return func(c *GenerationControls) {
		if c.ProviderSpecific == nil {
			c.ProviderSpecific = make(map[string]any)
		}
		c.ProviderSpecific[key] = value
	}
}

// WithControls 用一份已构建好的 controls 整体替换当前配置，
// 之后的选项仍然可以在其上继续修改。
func WithControls(gc GenerationControls) ControlOption {
	gc = gc.Clone()
	return func(c *GenerationControls) {
		*c = gc.Clone()
	}
}
