package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Host string `koanf:"host"`
		Port int    `koanf:"port"`
	} `koanf:"server"`

	Review struct {
		// Client poll interval in milliseconds.
		PollIntervalMs int `koanf:"poll_interval_ms"`
	} `koanf:"review"`

	Workspace struct {
		Dir string `koanf:"dir"`
	} `koanf:"workspace"`

	Logging struct {
		Level string `koanf:"level"`
	} `koanf:"logging"`
}

// LoadConfig loads the configuration: built-in defaults, then an
// optional TOML file, then OPENFLEET_-prefixed environment variables.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	k.Load(confmap.Provider(map[string]interface{}{
		"server.host":             "127.0.0.1",
		"server.port":             0,
		"review.poll_interval_ms": 5000,
		"workspace.dir":           ".openfleet",
		"logging.level":           "info",
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./openfleet.toml", "$HOME/.openfleet.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Double underscore separates nesting levels so keys that contain
	// underscores themselves (review.poll_interval_ms) stay reachable:
	// OPENFLEET_REVIEW__POLL_INTERVAL_MS.
	k.Load(env.Provider("OPENFLEET_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "OPENFLEET_")), "__", ".", -1)
	}), nil)

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# Openfleet Configuration

[server]
host = "127.0.0.1"
# 0 picks an available port at startup
port = 0

[review]
poll_interval_ms = 5000

[workspace]
dir = ".openfleet"

[logging]
level = "info"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server host is required")
	}
	if config.Server.Port < 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", config.Server.Port)
	}
	if config.Review.PollIntervalMs < 500 {
		return fmt.Errorf("poll interval must be at least 500ms, got %d", config.Review.PollIntervalMs)
	}
	if config.Workspace.Dir == "" {
		return fmt.Errorf("workspace dir is required")
	}
	return nil
}
