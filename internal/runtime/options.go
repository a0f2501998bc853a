package runtime

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kyson-dev/sub-optimizer/internal/version"
	"gopkg.in/yaml.v3"
)

const (
	DefaultOutputPath  = "optimized_config.json"
	DefaultTimeout     = 15 * time.Second
	DefaultProxyDetour = "🌏️主代理"
	DefaultServeListen = "0.0.0.0:8090"
)

// 环境变量名
const (
	EnvSourceURL  = "SUB_URL"
	EnvInjectDNS  = "INJECT_DNS"
	EnvOutputPath = "OUTPUT_PATH"
	EnvAuthToken  = "AUTH_TOKEN"
)

// RunOptions 运行时参数
type RunOptions struct {
	SourceURL   string        `yaml:"source_url"`
	OutputPath  string        `yaml:"output"`
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
	InjectDNS   bool          `yaml:"inject_dns"`
	ProxyDetour string        `yaml:"proxy_detour"` // 国外 DNS 走的出站 tag，必须存在于引擎配置中
	Serve       ServeOptions  `yaml:"serve"`
}

// ServeOptions serve 命令参数
type ServeOptions struct {
	Listen string `yaml:"listen"`
	Token  string `yaml:"token"`
}

// DefaultRunOptions 返回默认运行参数
func DefaultRunOptions() RunOptions {
	return RunOptions{
		OutputPath:  DefaultOutputPath,
		Timeout:     DefaultTimeout,
		UserAgent:   version.UserAgent(),
		ProxyDetour: DefaultProxyDetour,
		Serve: ServeOptions{
			Listen: DefaultServeListen,
		},
	}
}

// LoadOptions 在默认值之上叠加 YAML 文件
// path 为空时直接返回默认值
func LoadOptions(path string) (RunOptions, error) {
	opts := DefaultRunOptions()
	if path == "" {
		return opts, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read options file: %w", err)
	}
	if err := yaml.Unmarshal(content, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse options file %s: %w", path, err)
	}
	opts.fillDefaults()
	return opts, nil
}

// ApplyEnv 用环境变量覆盖文件中的值，lookup 通常是 os.LookupEnv
func (o *RunOptions) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvSourceURL); ok && strings.TrimSpace(v) != "" {
		o.SourceURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvOutputPath); ok && strings.TrimSpace(v) != "" {
		o.OutputPath = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvAuthToken); ok && v != "" {
		o.Serve.Token = v
	}
	if v, ok := lookup(EnvInjectDNS); ok && strings.TrimSpace(v) != "" {
		enabled, err := ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvInjectDNS, err)
		}
		o.InjectDNS = enabled
	}
	return nil
}

func (o *RunOptions) fillDefaults() {
	defaults := DefaultRunOptions()
	if o.OutputPath == "" {
		o.OutputPath = defaults.OutputPath
	}
	if o.Timeout <= 0 {
		o.Timeout = defaults.Timeout
	}
	if o.UserAgent == "" {
		o.UserAgent = defaults.UserAgent
	}
	if o.ProxyDetour == "" {
		o.ProxyDetour = defaults.ProxyDetour
	}
	if o.Serve.Listen == "" {
		o.Serve.Listen = defaults.Serve.Listen
	}
}

var errInvalidBool = errors.New("expected one of 1/0, true/false, yes/no, on/off")

// ParseBool 解析开关类环境变量
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%q: %w", s, errInvalidBool)
	}
}
