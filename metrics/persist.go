package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DateLayout date suffix of the persisted files
const DateLayout = "2006-01-02"

// Entry one persisted metrics snapshot
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Metrics   Metrics   `json:"metrics"`
}

// DailySummary rollup written at midnight
type DailySummary struct {
	Date                string  `json:"date"`
	TotalAlerts         int     `json:"total_alerts"`
	Uptime              float64 `json:"uptime"`
	AverageResponseTime int64   `json:"average_response_time"`
	TotalChecks         int64   `json:"total_checks"`
	FailedChecks        int64   `json:"failed_checks"`
	Metrics             Metrics `json:"metrics"`
}

// FileStore writes logs/metrics-<date>.json and logs/daily-summary-<date>.json
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore stores files under dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// MetricsPath snapshot file for day
func (f *FileStore) MetricsPath(day time.Time) string {
	return filepath.Join(f.dir, "metrics-"+day.Format(DateLayout)+".json")
}

// SummaryPath summary file for day
func (f *FileStore) SummaryPath(day time.Time) string {
	return filepath.Join(f.dir, "daily-summary-"+day.Format(DateLayout)+".json")
}

// Append adds a snapshot to the day's array (read, append, rewrite)
func (f *FileStore) Append(now time.Time, m Metrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.MetricsPath(now)
	entries, err := f.readEntries(path)
	if err != nil {
		return err
	}
	entries = append(entries, Entry{Timestamp: now, Metrics: m})
	return f.writeJSON(path, entries)
}

// Entries snapshots persisted for day
func (f *FileStore) Entries(day time.Time) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readEntries(f.MetricsPath(day))
}

// WriteSummary writes the day's summary, replacing any previous one
func (f *FileStore) WriteSummary(s DailySummary, day time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeJSON(f.SummaryPath(day), s)
}

// ReadSummary reads the day's summary
func (f *FileStore) ReadSummary(day time.Time) (DailySummary, error) {
	var s DailySummary
	data, err := os.ReadFile(f.SummaryPath(day))
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(data, &s)
	return s, err
}

func (f *FileStore) readEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return entries, nil
}

// writeJSON writes through a temp file so readers never see a partial file
func (f *FileStore) writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", f.dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
