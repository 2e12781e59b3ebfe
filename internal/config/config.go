package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/medigen/catalyst/internal/analysis"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned when a provider needs an API key and none
// could be found or entered.
var ErrMissingCredential = errors.New("no API key configured")

const (
	ProviderGemini = "gemini"
	ProviderGenAI  = "genai"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config is the resolved runtime configuration
type Config struct {
	Provider      string        `yaml:"provider"`
	Model         string        `yaml:"model"`
	APIKey        string        `yaml:"-"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	OllamaURL     string        `yaml:"ollama_url"`
	PromptVariant string        `yaml:"prompt_variant"`
	ExportDir     string        `yaml:"export_dir"`
	AssetsDir     string        `yaml:"assets_dir"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	MaxSessions   int           `yaml:"max_sessions"`
	ModelTimeout  time.Duration `yaml:"model_timeout"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Provider:      ProviderGemini,
		PromptVariant: string(analysis.VariantEnhanced),
		ExportDir:     "exports",
		AssetsDir:     "assets",
		SessionTTL:    time.Hour,
		MaxSessions:   256,
		ModelTimeout:  5 * time.Minute,
	}
}

// Overrides carries command line flags. Empty fields are ignored.
type Overrides struct {
	Provider      string
	Model         string
	PromptVariant string
	ExportDir     string
	AssetsDir     string
}

// Load builds the configuration from defaults, an optional YAML file, the
// environment and command line overrides, each taking precedence over the
// previous.
func Load(path string, o Overrides) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyOverrides(o)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Provider, "MEDIGEN_PROVIDER")
	setString(&c.Model, "MEDIGEN_MODEL")
	setString(&c.PromptVariant, "MEDIGEN_PROMPT_VARIANT")
	setString(&c.ExportDir, "MEDIGEN_EXPORT_DIR")
	setString(&c.AssetsDir, "MEDIGEN_ASSETS_DIR")
	setString(&c.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&c.OllamaURL, "OLLAMA_HOST")
	setString(&c.OllamaURL, "OLLAMA_URL")

	if v := os.Getenv("MEDIGEN_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SessionTTL = d
		}
	}
	if v := os.Getenv("MEDIGEN_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxSessions = n
		}
	}

}

func (c *Config) applyOverrides(o Overrides) {
	for dst, v := range map[*string]string{
		&c.Provider:      o.Provider,
		&c.Model:         o.Model,
		&c.PromptVariant: o.PromptVariant,
		&c.ExportDir:     o.ExportDir,
		&c.AssetsDir:     o.AssetsDir,
	} {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
}

func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Model == "" {
		c.Model = DefaultModel(c.Provider)
	}
	if c.APIKey == "" {
		c.APIKey = credentialFromEnv(c.Provider)
	}
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderGenAI, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}
	if _, err := analysis.ParseVariant(c.PromptVariant); err != nil {
		return err
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be positive, got %d", c.MaxSessions)
	}
	if c.ExportDir == "" {
		return errors.New("export_dir must not be empty")
	}
	return nil
}

// NeedsCredential reports whether the provider requires an API key
func (c *Config) NeedsCredential() bool {
	return c.Provider != ProviderOllama
}

// DefaultModel returns the model used when none is configured
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return "gpt-4o"
	case ProviderOllama:
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return "mistral-small3.2:24b"
	default:
		return "gemini-1.5-pro-latest"
	}
}

func credentialFromEnv(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderOllama:
		return ""
	default:
		if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GEMINI_API_KEY")
	}
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}
