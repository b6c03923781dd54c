// Package alert keeps the bounded alert history and fans new alerts out to sinks.
package alert

import (
	"time"

	"github.com/google/uuid"
)

// Level alert severity
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// Alert a raised alert
type Alert struct {
	ID           string    `json:"id"`
	Level        Level     `json:"level"`
	Check        string    `json:"check"`
	Message      string    `json:"message"`
	FailureCount int       `json:"failure_count,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
}

// New builds an unacknowledged alert with a fresh id
func New(level Level, check, message string, failureCount int, now time.Time) Alert {
	return Alert{
		ID:           uuid.NewString(),
		Level:        level,
		Check:        check,
		Message:      message,
		FailureCount: failureCount,
		Timestamp:    now,
	}
}
