package config

import (
	"github.com/kyson-dev/sub-optimizer/internal/document"
	"github.com/kyson-dev/sub-optimizer/internal/runtime"
)

// ConfigModule 配置模块接口
// 每个模块负责订阅文档的一个修正步骤，按顺序依次执行
type ConfigModule interface {
	// Name 返回模块名称，用于日志和调试
	Name() string
	// Apply 原地修改 doc
	Apply(doc *document.Object, ctx *BuildContext) error
}

// BuildContext 构建上下文，模块间共享数据
type BuildContext struct {
	// RunOptions 运行时参数
	RunOptions *runtime.RunOptions

	// Modules 已执行的模块名称，按执行顺序
	Modules []string

	// 以下字段由模块回填，供日志和测试使用
	FlattenedRuleSets int
	GeositeReplaced   bool
	InjectedServers   int
	InjectedRules     int
}

// NewBuildContext 创建构建上下文
func NewBuildContext(opts *runtime.RunOptions) *BuildContext {
	return &BuildContext{
		RunOptions: opts,
	}
}
