package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// DotenvSource .env 文件数据源（setup 命令写入的 .env.monitor）
// 变量名带前缀或不带前缀均可，带前缀优先
type DotenvSource struct {
	path     string
	prefix   string
	priority int
	bindings map[string]string
}

// NewDotenvSource 创建 dotenv 数据源
func NewDotenvSource(path, prefix string, bindings map[string]string, priority int) *DotenvSource {
	return &DotenvSource{
		path:     path,
		prefix:   prefix,
		priority: priority,
		bindings: bindings,
	}
}

// Name 数据源名称
func (s *DotenvSource) Name() string {
	return "dotenv:" + s.path
}

// Priority 优先级
func (s *DotenvSource) Priority() int {
	return s.priority
}

// Load 解析 dotenv 文件；文件不存在时返回空配置
func (s *DotenvSource) Load() (map[string]interface{}, error) {
	result := make(map[string]interface{})

	vars, err := godotenv.Read(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("读取 dotenv 文件失败 %s: %w", s.path, err)
	}

	for key, envKey := range s.bindings {
		if value := vars[withPrefix(s.prefix, envKey)]; value != "" {
			result[key] = value
			continue
		}
		if value := vars[envKey]; value != "" {
			result[key] = value
		}
	}
	return result, nil
}
