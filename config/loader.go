package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Loader merges flat key/value sources by priority; a higher priority source
// overrides single keys of a lower one, never whole sections.
type Loader struct {
	sources []ConfigSource
	v       *viper.Viper

	origin      map[string]string // key -> source name that won
	loadedFiles []string          // file and dotenv sources that contributed keys
}

// NewLoader creates an empty loader
func NewLoader() *Loader {
	return &Loader{v: viper.New(), origin: make(map[string]string)}
}

// AddSource registers a source; order of registration does not matter
func (l *Loader) AddSource(source ConfigSource) {
	l.sources = append(l.sources, source)
}

// Load reads every source from lowest to highest priority
func (l *Loader) Load() error {
	sort.SliceStable(l.sources, func(i, j int) bool {
		return l.sources[i].Priority() < l.sources[j].Priority()
	})

	v := viper.New()
	origin := make(map[string]string)
	var files []string

	for _, source := range l.sources {
		data, err := source.Load()
		if err != nil {
			return fmt.Errorf("加载数据源 %s 失败: %w", source.Name(), err)
		}
		if len(data) == 0 {
			continue
		}

		for key, value := range data {
			key = normalizeKey(key)
			if key == "" {
				continue
			}
			v.Set(key, value)
			origin[key] = source.Name()
		}

		switch src := source.(type) {
		case *FileSource:
			files = append(files, src.path)
		case *DotenvSource:
			files = append(files, src.path)
		}
	}

	l.v, l.origin, l.loadedFiles = v, origin, files
	return nil
}

// Unmarshal decodes the merged settings; durations accept "30s" style strings
func (l *Loader) Unmarshal(out interface{}) error {
	return l.v.Unmarshal(out)
}

// IsSet reports whether any source set key
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}

// Origin name of the source that set key, "" when unset
func (l *Loader) Origin(key string) string {
	return l.origin[normalizeKey(key)]
}

// GetLoadedFiles files that contributed at least one key, lowest priority first
func (l *Loader) GetLoadedFiles() []string {
	return l.loadedFiles
}

// normalizeKey lower case, empty segments dropped
func normalizeKey(key string) string {
	return strings.Join(splitKey(strings.ToLower(key)), ".")
}

// splitKey splits on dots, dropping empty segments
func splitKey(key string) []string {
	return strings.FieldsFunc(key, func(r rune) bool { return r == '.' })
}
