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

	"github.com/jobsignal/internal/aiconnectors"
)

// Config is the application configuration, loaded from defaults, an optional
// TOML file, and JOBSIGNAL_-prefixed environment variables, in that order.
type Config struct {
	General struct {
		// ProviderChain is the ordered list of extraction providers the
		// chain runner walks.
		ProviderChain []string `koanf:"provider_chain"`
		LogLevel      string   `koanf:"log_level"`
	} `koanf:"general"`

	Database struct {
		URL string `koanf:"url"`
	} `koanf:"database"`

	Server struct {
		Addr string `koanf:"addr"`
	} `koanf:"server"`

	Queue struct {
		Workers    int `koanf:"workers"`
		MaxRetries int `koanf:"max_retries"`
	} `koanf:"queue"`

	Thresholds struct {
		Round    float64 `koanf:"round"`
		Feedback float64 `koanf:"feedback"`
		Status   float64 `koanf:"status"`
	} `koanf:"thresholds"`

	Providers map[string]map[string]interface{} `koanf:"providers"`
}

// LoadConfig loads configuration from the given path, falling back to the
// default locations when the path is empty.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	k.Load(confmap.Provider(map[string]interface{}{
		"general.provider_chain": []string{"openai", "gemini", "claude"},
		"general.log_level":      "info",
		"server.addr":            ":8080",
		"queue.workers":          4,
		"queue.max_retries":      3,
		"thresholds.round":       0.6,
		"thresholds.feedback":    0.5,
		"thresholds.status":      0.6,
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./jobsignal.toml", "$HOME/.jobsignal.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	k.Load(env.Provider("JOBSIGNAL_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "JOBSIGNAL_")), "_", ".", -1)
	}), nil)

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &config, nil
}

// ConnectorOptions builds the per-provider connector options from the
// providers table. Providers with no configuration block are omitted; the
// chain skips anything it cannot resolve.
func (c *Config) ConnectorOptions() map[string]aiconnectors.ConnectorOptions {
	out := make(map[string]aiconnectors.ConnectorOptions, len(c.Providers))
	for name, raw := range c.Providers {
		opts := aiconnectors.ConnectorOptions{Provider: aiconnectors.Provider(name)}
		if v, ok := raw["api_key"].(string); ok {
			opts.APIKey = v
		}
		if v, ok := raw["base_url"].(string); ok {
			opts.BaseURL = v
		}
		if v, ok := raw["model"].(string); ok {
			opts.ModelConfig.Model = v
		}
		if v, ok := raw["temperature"].(float64); ok {
			opts.ModelConfig.Temperature = v
		}
		switch v := raw["max_tokens"].(type) {
		case int:
			opts.ModelConfig.MaxTokens = v
		case int64:
			opts.ModelConfig.MaxTokens = int(v)
		case float64:
			opts.ModelConfig.MaxTokens = int(v)
		}
		out[name] = opts
	}
	return out
}

// InitConfig writes a starter configuration file.
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# jobsignal configuration

[general]
provider_chain = ["openai", "gemini", "claude"]
log_level = "info"

[database]
url = "postgres://localhost:5432/jobsignal?sslmode=disable"

[server]
addr = ":8080"

[queue]
workers = 4
max_retries = 3

[thresholds]
round = 0.6
feedback = 0.5
status = 0.6

[providers.openai]
api_key = "your-openai-api-key"
model = "gpt-4o-mini"
temperature = 0.1

[providers.gemini]
api_key = "your-gemini-api-key"
model = "gemini-2.5-flash"
temperature = 0.1

[providers.claude]
api_key = "your-anthropic-api-key"
model = "claude-3-5-haiku-latest"
temperature = 0.1
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate checks that the configuration can actually drive the pipeline.
func Validate(config *Config) error {
	if len(config.General.ProviderChain) == 0 {
		return fmt.Errorf("provider chain must not be empty")
	}
	for _, name := range config.General.ProviderChain {
		if _, ok := config.Providers[name]; !ok {
			return fmt.Errorf("configuration for provider %s not found", name)
		}
	}
	if config.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}
	for _, pair := range []struct {
		name  string
		value float64
	}{
		{"round", config.Thresholds.Round},
		{"feedback", config.Thresholds.Feedback},
		{"status", config.Thresholds.Status},
	} {
		if pair.value < 0 || pair.value > 1 {
			return fmt.Errorf("threshold %s must be between 0 and 1", pair.name)
		}
	}
	return nil
}
