package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGinLogWriter routes Gin output by content
func TestGinLogWriter(t *testing.T) {
	log := NewTestCtxLogger()
	writer := NewGinLogWriter(log)

	n, err := writer.Write([]byte("[GIN-debug] GET /api/metrics --> handler (3 handlers)\n"))
	assert.NoError(t, err)
	assert.Greater(t, n, 0)

	_, _ = writer.Write([]byte("[WARNING] Running in \"debug\" mode"))
	_, _ = writer.Write([]byte("[Recovery] panic recovered"))
	_, _ = writer.Write([]byte("plain line"))
	_, _ = writer.Write([]byte("   "))

	assert.Equal(t, 1, log.CountLogs("DEBUG"))
	assert.Equal(t, 1, log.CountLogs("WARN"))
	assert.Equal(t, 1, log.CountLogs("ERROR"))
	assert.Equal(t, 1, log.CountLogs("INFO"))
}
