package config

import (
	"github.com/spf13/pflag"
)

// FlagSource 命令行参数数据源
// 只有用户显式传入（Changed）的参数才参与合并，默认值不会覆盖文件或环境变量
type FlagSource struct {
	flags    *pflag.FlagSet
	bindings map[string]string // flag 名 -> 配置 key，如 "port" -> "monitor.server.port"
	priority int
}

// NewFlagSource 创建命令行参数数据源
func NewFlagSource(flags *pflag.FlagSet, bindings map[string]string, priority int) *FlagSource {
	return &FlagSource{
		flags:    flags,
		bindings: bindings,
		priority: priority,
	}
}

// Name 数据源名称
func (s *FlagSource) Name() string {
	return "flags"
}

// Priority 优先级
func (s *FlagSource) Priority() int {
	return s.priority
}

// Load 读取已修改的参数值（字符串形式，由 Unmarshal 转换类型）
func (s *FlagSource) Load() (map[string]interface{}, error) {
	result := make(map[string]interface{})
	if s.flags == nil {
		return result, nil
	}

	for name, key := range s.bindings {
		f := s.flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		result[key] = f.Value.String()
	}
	return result, nil
}
