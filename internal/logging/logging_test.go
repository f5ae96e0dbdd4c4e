package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesToLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "app.log")

	logger := Setup("debug", logFile)
	logger.Info().Str("key", "value").Msg("hello from test")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
	assert.Contains(t, string(data), `"key":"value"`)
}

func TestSetupWithoutLogFile(t *testing.T) {
	logger := Setup("info", "")
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestAuditLogLifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reviews")

	audit, err := OpenAudit(dir, "rev-1")
	require.NoError(t, err)

	audit.Event("Thread %s created", "t-1")
	audit.Close()

	// Events after Close are dropped, not a panic.
	audit.Event("too late")

	data, err := os.ReadFile(filepath.Join(dir, "rev-1.log"))
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "Review ID: rev-1")
	assert.Contains(t, content, "Thread t-1 created")
	assert.Contains(t, content, "Review audit closed")
	assert.NotContains(t, content, "too late")
}

func TestNilAuditLogIsNoOp(t *testing.T) {
	var audit *AuditLog
	audit.Event("ignored")
	audit.Close()
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("info"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("bogus"))
}
