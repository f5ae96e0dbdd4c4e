package telemetry

import (
	"os"
	"regexp"
)

// Config describes the OTLP export target. A nil Config means
// telemetry is disabled for the process.
type Config struct {
	Token          string
	ServiceName    string
	ServiceVersion string
	Environment    string
	BaseURL        string
	Debug          bool
	TraceEvents    bool
}

var regions = map[string]string{
	"us": "https://logfire-us.pydantic.dev",
	"eu": "https://logfire-eu.pydantic.dev",
}

var tokenPattern = regexp.MustCompile(`^pylf_v[0-9]+_([a-z]+)_[a-zA-Z0-9]+$`)

// regionFromToken extracts the region segment from a write token,
// defaulting to us when the token does not carry a known region.
func regionFromToken(token string) string {
	m := tokenPattern.FindStringSubmatch(token)
	if m != nil {
		if _, ok := regions[m[1]]; ok {
			return m[1]
		}
	}
	return "us"
}

// LoadConfig reads telemetry settings from the environment. Without a
// token it returns nil and the exporter stays a no-op.
func LoadConfig() *Config {
	token := os.Getenv("LOGFIRE_TOKEN")
	if token == "" {
		token = os.Getenv("LOGFIRE_WRITE_TOKEN")
	}
	if token == "" {
		return nil
	}

	region := os.Getenv("LOGFIRE_REGION")
	if _, ok := regions[region]; !ok {
		region = regionFromToken(token)
	}
	baseURL := os.Getenv("LOGFIRE_BASE_URL")
	if baseURL == "" {
		baseURL = regions[region]
	}

	return &Config{
		Token:          token,
		ServiceName:    envOr("OTEL_SERVICE_NAME", "openfleet"),
		ServiceVersion: envOr("OTEL_SERVICE_VERSION", "0.1.0"),
		Environment:    os.Getenv("LOGFIRE_ENVIRONMENT"),
		BaseURL:        baseURL,
		Debug:          os.Getenv("LOGFIRE_DEBUG") == "true",
		TraceEvents:    os.Getenv("LOGFIRE_TRACE_EVENTS") == "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
