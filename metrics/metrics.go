// Package metrics holds the rolling monitor metrics, host sampling,
// daily persistence and the Prometheus exposition.
package metrics

import (
	"math"
	"sync"
	"time"
)

// SystemHealth host usage percentages
type SystemHealth struct {
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
	Disk   float64 `json:"disk"` // used
}

// Metrics rolling snapshot broadcast to dashboards
type Metrics struct {
	Uptime                 float64      `json:"uptime"`        // percent of successful health cycles
	ResponseTime           int64        `json:"response_time"` // ms, last target probe
	ErrorRate              float64      `json:"error_rate"`    // percent of failed health cycles
	UserCount              int64        `json:"user_count"`
	SessionCount           int64        `json:"session_count"` // last 24h
	CulturalEngagement     float64      `json:"cultural_engagement"`
	AIPersonalizationUsage float64      `json:"ai_personalization_usage"`
	SystemHealth           SystemHealth `json:"system_health"`
	LastUpdated            time.Time    `json:"last_updated"`
}

// Usage figures pulled from the data backend
type Usage struct {
	UserCount              int64
	SessionCount           int64
	CulturalEngagement     float64
	AIPersonalizationUsage float64
}

// DayStats running totals since the last daily reset
type DayStats struct {
	Checks            int64
	FailedChecks      int64
	ResponseTimeTotal int64
}

// UptimePercent successful checks today, 100 when nothing ran
func (d DayStats) UptimePercent() float64 {
	if d.Checks == 0 {
		return 100
	}
	return round2(float64(d.Checks-d.FailedChecks) / float64(d.Checks) * 100)
}

// AverageResponseTime ms, 0 when nothing ran
func (d DayStats) AverageResponseTime() int64 {
	if d.Checks == 0 {
		return 0
	}
	return d.ResponseTimeTotal / d.Checks
}

// Store guards Metrics; every write is a single locked update
type Store struct {
	mu      sync.RWMutex
	metrics Metrics
	checks  int64
	failed  int64
	day     DayStats
	now     func() time.Time
}

// NewStore creates a store; uptime starts at 100
func NewStore() *Store {
	return &Store{
		metrics: Metrics{Uptime: 100},
		now:     time.Now,
	}
}

// Snapshot copy of the current metrics
func (s *Store) Snapshot() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// RecordCheck folds one health cycle into uptime, error rate and response time
func (s *Store) RecordCheck(success bool, responseTime time.Duration) Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := responseTime.Milliseconds()
	s.checks++
	s.day.Checks++
	s.day.ResponseTimeTotal += ms
	if !success {
		s.failed++
		s.day.FailedChecks++
	}

	s.metrics.ResponseTime = ms
	s.metrics.Uptime = round2(float64(s.checks-s.failed) / float64(s.checks) * 100)
	s.metrics.ErrorRate = round2(float64(s.failed) / float64(s.checks) * 100)
	s.metrics.LastUpdated = s.now()
	return s.metrics
}

// SetUsage merges backend usage figures
func (s *Store) SetUsage(u Usage) Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.UserCount = u.UserCount
	s.metrics.SessionCount = u.SessionCount
	s.metrics.CulturalEngagement = u.CulturalEngagement
	s.metrics.AIPersonalizationUsage = u.AIPersonalizationUsage
	s.metrics.LastUpdated = s.now()
	return s.metrics
}

// SetSystem merges a host sample
func (s *Store) SetSystem(h SystemHealth) Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.SystemHealth = h
	s.metrics.LastUpdated = s.now()
	return s.metrics
}

// Day running totals since the last reset
func (s *Store) Day() DayStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.day
}

// ResetDay returns the finished day's totals and starts a new day
func (s *Store) ResetDay() DayStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.day
	s.day = DayStats{}
	return d
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
