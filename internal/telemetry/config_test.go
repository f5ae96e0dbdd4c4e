package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearTelemetryEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LOGFIRE_TOKEN", "LOGFIRE_WRITE_TOKEN", "LOGFIRE_REGION",
		"LOGFIRE_BASE_URL", "LOGFIRE_ENVIRONMENT", "LOGFIRE_DEBUG",
		"LOGFIRE_TRACE_EVENTS", "OTEL_SERVICE_NAME", "OTEL_SERVICE_VERSION",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigWithoutToken(t *testing.T) {
	clearTelemetryEnv(t)
	assert.Nil(t, LoadConfig())
}

func TestLoadConfigDefaults(t *testing.T) {
	clearTelemetryEnv(t)
	t.Setenv("LOGFIRE_TOKEN", "pylf_v1_us_abc123")

	cfg := LoadConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "pylf_v1_us_abc123", cfg.Token)
	assert.Equal(t, "openfleet", cfg.ServiceName)
	assert.Equal(t, "0.1.0", cfg.ServiceVersion)
	assert.Equal(t, "https://logfire-us.pydantic.dev", cfg.BaseURL)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.TraceEvents)
}

func TestLoadConfigRegionFromToken(t *testing.T) {
	clearTelemetryEnv(t)
	t.Setenv("LOGFIRE_TOKEN", "pylf_v1_eu_abc123")

	cfg := LoadConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "https://logfire-eu.pydantic.dev", cfg.BaseURL)
}

func TestLoadConfigRegionOverride(t *testing.T) {
	clearTelemetryEnv(t)
	t.Setenv("LOGFIRE_TOKEN", "pylf_v1_us_abc123")
	t.Setenv("LOGFIRE_REGION", "eu")

	cfg := LoadConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "https://logfire-eu.pydantic.dev", cfg.BaseURL)
}

func TestLoadConfigBaseURLOverride(t *testing.T) {
	clearTelemetryEnv(t)
	t.Setenv("LOGFIRE_TOKEN", "pylf_v1_us_abc123")
	t.Setenv("LOGFIRE_BASE_URL", "http://localhost:4318")

	cfg := LoadConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:4318", cfg.BaseURL)
}

func TestLoadConfigWriteTokenFallback(t *testing.T) {
	clearTelemetryEnv(t)
	t.Setenv("LOGFIRE_WRITE_TOKEN", "pylf_v1_us_xyz")

	cfg := LoadConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "pylf_v1_us_xyz", cfg.Token)
}

func TestLoadConfigFlags(t *testing.T) {
	clearTelemetryEnv(t)
	t.Setenv("LOGFIRE_TOKEN", "pylf_v1_us_abc")
	t.Setenv("LOGFIRE_DEBUG", "true")
	t.Setenv("LOGFIRE_TRACE_EVENTS", "true")
	t.Setenv("LOGFIRE_ENVIRONMENT", "staging")
	t.Setenv("OTEL_SERVICE_NAME", "custom")
	t.Setenv("OTEL_SERVICE_VERSION", "9.9.9")

	cfg := LoadConfig()
	require.NotNil(t, cfg)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.TraceEvents)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "custom", cfg.ServiceName)
	assert.Equal(t, "9.9.9", cfg.ServiceVersion)
}

func TestRegionFromToken(t *testing.T) {
	assert.Equal(t, "us", regionFromToken("pylf_v1_us_abc"))
	assert.Equal(t, "eu", regionFromToken("pylf_v1_eu_abc"))
	assert.Equal(t, "us", regionFromToken("pylf_v1_mars_abc"))
	assert.Equal(t, "us", regionFromToken("not-a-token"))
}
