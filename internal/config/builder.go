package config

import (
	"fmt"

	"github.com/kyson-dev/sub-optimizer/internal/document"
	"github.com/kyson-dev/sub-optimizer/internal/logger"
	"github.com/kyson-dev/sub-optimizer/internal/runtime"
)

// ConfigBuilder 配置构建器
// 支持链式调用添加模块，灵活组装修正流程
type ConfigBuilder struct {
	modules []ConfigModule // 配置模块列表
	ctx     *BuildContext  // 构建上下文
}

// Apply 按 RunOptions 选择模块并依次作用在 doc 上，返回修正后的文档
func Apply(doc *document.Object, runops *runtime.RunOptions) (*document.Object, *BuildContext, error) {
	builder := NewConfigBuilder(runops)
	for _, m := range DefaultModules(runops) {
		builder.With(m)
	}
	return builder.Build(doc)
}

// NewConfigBuilder 创建配置构建器，opts 为 nil 时使用默认参数
func NewConfigBuilder(opts *runtime.RunOptions) *ConfigBuilder {
	if opts == nil {
		defaultOpts := runtime.DefaultRunOptions()
		opts = &defaultOpts
	}
	return &ConfigBuilder{
		modules: []ConfigModule{},
		ctx:     NewBuildContext(opts),
	}
}

// With 添加一个模块（链式调用）
func (b *ConfigBuilder) With(m ConfigModule) *ConfigBuilder {
	b.modules = append(b.modules, m)
	return b
}

// Build 依次应用各模块
func (b *ConfigBuilder) Build(doc *document.Object) (*document.Object, *BuildContext, error) {
	if doc == nil {
		return nil, b.ctx, fmt.Errorf("nil document")
	}
	for _, m := range b.modules {
		logger.Debug("Applying config module", "name", m.Name())
		if err := m.Apply(doc, b.ctx); err != nil {
			return nil, b.ctx, fmt.Errorf("module %s failed: %w", m.Name(), err)
		}
		b.ctx.Modules = append(b.ctx.Modules, m.Name())
	}
	return doc, b.ctx, nil
}

// DefaultModules 根据 RunOptions 返回默认模块组合
// 兼容性修正总是执行，DNS 注入由 InjectDNS 开关控制
func DefaultModules(opts *runtime.RunOptions) []ConfigModule {
	modules := []ConfigModule{
		&CompatModule{},
	}
	if opts != nil && opts.InjectDNS {
		modules = append(modules, &DNSModule{ProxyDetour: opts.ProxyDetour})
	}
	return modules
}
