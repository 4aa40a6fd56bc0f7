// Package version 记录 jin 二进制的构建元数据，供 `jin version` 和请求的 User-Agent 使用。
//
// 发布构建通过 -ldflags 注入：
//
//	go build -ldflags "-X github.com/hrayleung/jin-llm/version.gitVersion=v0.3.0 \
//	  -X github.com/hrayleung/jin-llm/version.gitCommit=$(git rev-parse HEAD)" ./cmd/jin
//
// go install 安装的二进制没有注入值，改用 Go 工具链写入的模块版本和 vcs 信息。
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/gosuri/uitable"
)

// 未注入时为空
var (
	gitVersion   string
	gitCommit    string
	gitTreeState string // clean 或 dirty
	buildDate    string // $(date -u +'%Y-%m-%dT%H:%M:%SZ')
)

// devVersion 是既没有注入也没有模块版本时的版本号，例如 go run 或本地 go build
const devVersion = "dev"

// Info 是一次构建的元数据
type Info struct {
	GitVersion   string `json:"gitVersion"`
	GitCommit    string `json:"gitCommit,omitempty"`
	GitTreeState string `json:"gitTreeState,omitempty"`
	BuildDate    string `json:"buildDate,omitempty"`
	Module       string `json:"module,omitempty"`
	GoVersion    string `json:"goVersion"`
	Platform     string `json:"platform"`
}

// String 返回版本号，工作区有未提交修改时带 -dirty 后缀
func (info Info) String() string {
	if info.GitTreeState == "dirty" {
		return info.GitVersion + "-dirty"
	}
	return info.GitVersion
}

// ShortString 只返回版本号
func (info Info) ShortString() string {
	return info.GitVersion
}

// Dev 表示这是一次没有版本号的本地构建
func (info Info) Dev() bool {
	return info.GitVersion == devVersion
}

func (info Info) ToJSONIndent() (string, error) {
	s, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal version info: %w", err)
	}
	return string(s), nil
}

// Text 以右对齐的两列表格输出，空字段不显示
func (info Info) Text() string {
	table := uitable.New()
	table.RightAlign(0)
	table.MaxColWidth = 80
	table.Separator = " "
	row := func(k, v string) {
		if v != "" {
			table.AddRow(k+":", v)
		}
	}
	row("version", info.String())
	row("commit", info.GitCommit)
	row("built", info.BuildDate)
	row("module", info.Module)
	row("go", info.GoVersion)
	row("platform", info.Platform)
	return table.String()
}

// UserAgent 是发给 provider 的 User-Agent，例如 jin-llm/v0.3.0 (linux/amd64)。
// 本地构建带上 commit 前缀，方便在 provider 的请求日志里区分。
func (info Info) UserAgent() string {
	v := info.ShortString()
	if info.Dev() && len(info.GitCommit) >= 7 {
		v += "+" + info.GitCommit[:7]
	}
	return fmt.Sprintf("jin-llm/%s (%s)", v, info.Platform)
}

// Get 返回当前二进制的构建信息。-ldflags 注入的值优先，其余取自 debug.ReadBuildInfo。
func Get() Info {
	info := Info{
		GitVersion:   gitVersion,
		GitCommit:    gitCommit,
		GitTreeState: gitTreeState,
		BuildDate:    buildDate,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = withBuildInfo(info, bi)
	}
	if info.GitVersion == "" {
		info.GitVersion = devVersion
	}
	return info
}

// withBuildInfo 只填补空字段
func withBuildInfo(info Info, bi *debug.BuildInfo) Info {
	info.Module = bi.Main.Path
	if info.GitVersion == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.GitVersion = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			if info.GitTreeState == "" {
				info.GitTreeState = "clean"
				if s.Value == "true" {
					info.GitTreeState = "dirty"
				}
			}
		}
	}
	return info
}
