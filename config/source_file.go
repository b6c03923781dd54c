package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
)

// FileSource json or yaml file, detected by extension.
// A missing file contributes nothing so a fresh checkout runs on defaults.
type FileSource struct {
	path     string
	priority int
}

// NewFileSource creates a file source
func NewFileSource(path string, priority int) *FileSource {
	return &FileSource{path: path, priority: priority}
}

// Name file:<path>
func (s *FileSource) Name() string {
	return "file:" + s.path
}

// Priority source priority
func (s *FileSource) Priority() int {
	return s.priority
}

// Load reads the file into dotted keys
func (s *FileSource) Load() (map[string]interface{}, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]interface{}{}, nil
		}
		return nil, fmt.Errorf("读取配置文件失败 %s: %w", s.path, err)
	}

	out := make(map[string]interface{})
	flattenInto(out, "", v.AllSettings())
	return out, nil
}

// flattenInto writes nested maps as dotted keys:
// {"monitor": {"server": {"port": 3001}}} becomes {"monitor.server.port": 3001}
func flattenInto(out map[string]interface{}, prefix string, node map[string]interface{}) {
	for key, value := range node {
		if prefix != "" {
			key = prefix + "." + key
		}
		if child, ok := value.(map[string]interface{}); ok && len(child) > 0 {
			flattenInto(out, key, child)
			continue
		}
		out[key] = value
	}
}
