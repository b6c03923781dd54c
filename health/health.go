// Package health runs named checks and aggregates them into one report per cycle.
package health

import (
	"context"
	"math"
	"time"
)

// Status health status of a check or a report
type Status string

const (
	// StatusHealthy check passed
	StatusHealthy Status = "healthy"
	// StatusDegraded working but slow or incomplete
	StatusDegraded Status = "degraded"
	// StatusUnhealthy probe failed
	StatusUnhealthy Status = "unhealthy"
	// StatusError check returned an error, panicked or timed out
	StatusError Status = "error"
	// StatusUnknown no checks, or statuses that cannot be classified
	StatusUnknown Status = "unknown"
)

// Output what a check function reports on success.
// An empty Status means healthy.
type Output struct {
	Status  Status
	Message string
	Data    map[string]interface{}
}

// CheckFunc a single named probe
type CheckFunc func(ctx context.Context) (Output, error)

// Result outcome of one check in one cycle
type Result struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Duration  int64                  `json:"duration"` // milliseconds
	Timestamp time.Time              `json:"timestamp"`
}

// Summary counts of one cycle. Error results are counted as unhealthy.
type Summary struct {
	TotalChecks int `json:"total_checks"`
	Healthy     int `json:"healthy"`
	Degraded    int `json:"degraded"`
	Unhealthy   int `json:"unhealthy"`
	SuccessRate int `json:"success_rate"` // percent, rounded
}

// Report aggregate of one cycle
type Report struct {
	Status    Status            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Duration  int64             `json:"duration"` // milliseconds
	Checks    map[string]Result `json:"checks"`
	Summary   Summary           `json:"summary"`
}

// IsHealthy overall status is healthy
func (r *Report) IsHealthy() bool {
	return r.Status == StatusHealthy
}

// IsDegraded overall status is degraded
func (r *Report) IsDegraded() bool {
	return r.Status == StatusDegraded
}

// CalculateOverallHealth worst-of rule:
// unhealthy if any check is unhealthy or error, else degraded if any is degraded,
// else healthy if all are healthy, otherwise unknown.
func CalculateOverallHealth(checks map[string]Result) Status {
	if len(checks) == 0 {
		return StatusUnknown
	}

	hasUnhealthy := false
	hasDegraded := false
	allHealthy := true

	for _, result := range checks {
		switch result.Status {
		case StatusUnhealthy, StatusError:
			hasUnhealthy = true
			allHealthy = false
		case StatusDegraded:
			hasDegraded = true
			allHealthy = false
		case StatusHealthy:
		default:
			allHealthy = false
		}
	}

	switch {
	case hasUnhealthy:
		return StatusUnhealthy
	case hasDegraded:
		return StatusDegraded
	case allHealthy:
		return StatusHealthy
	default:
		return StatusUnknown
	}
}

// GenerateSummary counts results; healthy + degraded + unhealthy == total.
func GenerateSummary(checks map[string]Result) Summary {
	s := Summary{TotalChecks: len(checks)}
	for _, result := range checks {
		switch result.Status {
		case StatusHealthy:
			s.Healthy++
		case StatusDegraded:
			s.Degraded++
		}
	}
	s.Unhealthy = s.TotalChecks - s.Healthy - s.Degraded

	if s.TotalChecks > 0 {
		s.SuccessRate = int(math.Round(float64(s.Healthy) / float64(s.TotalChecks) * 100))
	}
	return s
}
