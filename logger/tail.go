package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LevelAll disables level filtering in ReadTail
const LevelAll = "all"

// Entry a parsed JSON log line
type Entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Module    string                 `json:"module,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// ReadTail returns up to limit entries from a JSON-lines log file, newest first.
// level filters on exact level; "" or "all" keeps every entry.
// A missing file yields an empty slice. Lines that are not JSON are skipped.
func ReadTail(path, level string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	level = strings.ToLower(strings.TrimSpace(level))

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	defer f.Close()

	// ring buffer of the last `limit` matches
	ring := make([]Entry, 0, limit)
	next := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		entry, ok := ParseLine(scanner.Bytes())
		if !ok {
			continue
		}
		if level != "" && level != LevelAll && entry.Level != level {
			continue
		}
		if len(ring) < limit {
			ring = append(ring, entry)
			continue
		}
		ring[next] = entry
		next = (next + 1) % limit
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log file %s: %w", path, err)
	}

	out := make([]Entry, 0, len(ring))
	for i := len(ring) - 1; i >= 0; i-- {
		out = append(out, ring[(next+i)%len(ring)])
	}
	return out, nil
}

// ParseLine decodes one JSON log line; ok is false for anything else
func ParseLine(line []byte) (Entry, bool) {
	var raw map[string]interface{}
	if err := json.Unmarshal(line, &raw); err != nil {
		return Entry{}, false
	}

	entry := Entry{Fields: make(map[string]interface{})}
	for k, v := range raw {
		s, _ := v.(string)
		switch k {
		case "timestamp":
			entry.Timestamp = s
		case "level":
			entry.Level = s
		case "message":
			entry.Message = s
		case "module":
			entry.Module = s
		case "caller", "stack", "app_name":
			// noise for the dashboard
		default:
			entry.Fields[k] = v
		}
	}
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}
	return entry, true
}
