package config

import (
	"os"
	"strings"
)

// EnvSource 环境变量数据源
// 只读取 bindings 中声明的变量，避免 "check_interval" 之类带下划线的 key 被误拆
type EnvSource struct {
	prefix   string // 环境变量前缀，如 "MONITOR"
	priority int
	bindings map[string]string // 配置 key -> 变量名（不含前缀），如 "backend.url" -> "BACKEND_URL"
}

// NewEnvSource bindings 为 nil 时使用 EnvBindings
func NewEnvSource(prefix string, bindings map[string]string, priority int) *EnvSource {
	if bindings == nil {
		bindings = EnvBindings
	}
	return &EnvSource{prefix: prefix, priority: priority, bindings: bindings}
}

// Name 数据源名称
func (s *EnvSource) Name() string {
	return "env:" + s.prefix
}

// Priority 优先级
func (s *EnvSource) Priority() int {
	return s.priority
}

// Load 加载环境变量配置；空值视为未设置
func (s *EnvSource) Load() (map[string]interface{}, error) {
	result := make(map[string]interface{})
	for key, envKey := range s.bindings {
		if value := os.Getenv(withPrefix(s.prefix, envKey)); value != "" {
			result[key] = value
		}
	}
	return result, nil
}

// withPrefix BACKEND_URL -> MONITOR_BACKEND_URL
func withPrefix(prefix, envKey string) string {
	if prefix == "" || strings.HasPrefix(envKey, prefix+"_") {
		return envKey
	}
	return prefix + "_" + envKey
}
