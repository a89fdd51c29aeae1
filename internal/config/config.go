package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides. Nested keys use a double
// underscore, e.g. HOOKGEN_PROVIDER__API_KEY.
const EnvPrefix = "HOOKGEN_"

type Config struct {
	Server     ServerConfig    `koanf:"server"`
	Log        LogConfig       `koanf:"log"`
	Telemetry  TelemetryConfig `koanf:"telemetry"`
	Provider   ProviderConfig  `koanf:"provider"`
	Hooks      HooksConfig     `koanf:"hooks"`
	Storage    StorageConfig   `koanf:"storage"`
	Quota      QuotaConfig     `koanf:"quota"`
	Memo       MemoConfig      `koanf:"memo"`
	Auth       AuthConfig      `koanf:"auth"`
	Validation string          `koanf:"validation"` // loose, strict
}

type ServerConfig struct {
	Port    int           `koanf:"port"`
	Path    string        `koanf:"path"`
	Timeout time.Duration `koanf:"timeout"`
}

type LogConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

type ProviderConfig struct {
	Type        string  `koanf:"type"` // openai, openai-sdk, gemini, template
	APIKey      string  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Model       string  `koanf:"model"`
	Temperature float32 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
}

type HooksConfig struct {
	Count           int `koanf:"count"`
	MaxWords        int `koanf:"max_words"`
	MinChars        int `koanf:"min_chars"`
	MaxPromptTokens int `koanf:"max_prompt_tokens"`
}

type StorageConfig struct {
	Type string `koanf:"type"` // memory, sqlite, postgres, supabase
	DSN  string `koanf:"dsn"`

	// AutoMigrate lets the supabase store create or alter its tables. Off by
	// default since the web app owns that schema.
	AutoMigrate bool `koanf:"auto_migrate"`
}

type QuotaConfig struct {
	Mode string `koanf:"mode"` // none, balance
}

type MemoConfig struct {
	Enabled bool `koanf:"enabled"`
	Persist bool `koanf:"persist"`
}

type AuthConfig struct {
	APIKeys []APIKeyConfig `koanf:"api_keys"`
}

type APIKeyConfig struct {
	KeyHash     string `koanf:"key_hash"`
	Description string `koanf:"description"`
}

// Provider types.
const (
	ProviderOpenAI    = "openai"
	ProviderOpenAISDK = "openai-sdk"
	ProviderGemini    = "gemini"
	ProviderTemplate  = "template"
)

// Storage types.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageSupabase = "supabase"
)

const (
	QuotaNone    = "none"
	QuotaBalance = "balance"

	ValidationLoose  = "loose"
	ValidationStrict = "strict"
)

var defaults = map[string]any{
	"server.port":            8080,
	"server.path":            "/api/generate",
	"server.timeout":         "30s",
	"log.level":              "info",
	"telemetry.service_name": "hookgen",
	"provider.type":          ProviderOpenAI,
	"provider.temperature":   0.8,
	"hooks.count":            5,
	"hooks.max_words":        15,
	"hooks.min_chars":        6,
	"storage.type":           StorageMemory,
	"quota.mode":             QuotaNone,
	"validation":             ValidationLoose,
}

// providerDefaults fill in base URL and model per provider type when the
// config leaves them empty.
var providerDefaults = map[string]struct{ baseURL, model string }{
	ProviderOpenAI:    {"https://api.groq.com/openai/v1", "llama-3.3-70b-versatile"},
	ProviderOpenAISDK: {"https://api.groq.com/openai/v1", "llama-3.3-70b-versatile"},
	ProviderGemini:    {"", "gemini-2.0-flash"},
}

// fallbackKeyEnv lists the conventional provider secret names honoured when
// provider.api_key is not set explicitly.
var fallbackKeyEnv = map[string][]string{
	ProviderOpenAI:    {"GROQ_API_KEY", "OPENAI_API_KEY"},
	ProviderOpenAISDK: {"OPENAI_API_KEY", "GROQ_API_KEY"},
	ProviderGemini:    {"GEMINI_API_KEY"},
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml from the working directory (if present) and then
// applies HOOKGEN_ environment overrides.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	// Try to load from the config file first
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute environment variables in secrets
	cfg.Provider.APIKey = substituteEnvVars(cfg.Provider.APIKey)
	cfg.Storage.DSN = substituteEnvVars(cfg.Storage.DSN)

	if d, ok := providerDefaults[cfg.Provider.Type]; ok {
		if cfg.Provider.BaseURL == "" {
			cfg.Provider.BaseURL = d.baseURL
		}
		if cfg.Provider.Model == "" {
			cfg.Provider.Model = d.model
		}
	}

	if cfg.Provider.APIKey == "" {
		for _, name := range fallbackKeyEnv[cfg.Provider.Type] {
			if v := os.Getenv(name); v != "" {
				cfg.Provider.APIKey = v
				break
			}
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration is complete enough to serve
// requests. Missing secrets fail here rather than at the first provider call.
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider.Type {
	case ProviderOpenAI, ProviderOpenAISDK, ProviderGemini:
		if c.Provider.APIKey == "" {
			errs = append(errs, fmt.Errorf("provider %q requires an api key (provider.api_key or %s)",
				c.Provider.Type, strings.Join(fallbackKeyEnv[c.Provider.Type], "/")))
		}
		if c.Provider.Model == "" {
			errs = append(errs, errors.New("provider.model is required"))
		}
	case ProviderTemplate:
	default:
		errs = append(errs, fmt.Errorf("unknown provider type %q", c.Provider.Type))
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageSQLite, StoragePostgres, StorageSupabase:
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage %q requires storage.dsn", c.Storage.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}

	switch c.Quota.Mode {
	case QuotaNone, QuotaBalance:
	default:
		errs = append(errs, fmt.Errorf("unknown quota mode %q", c.Quota.Mode))
	}

	switch c.Validation {
	case ValidationLoose, ValidationStrict:
	default:
		errs = append(errs, fmt.Errorf("unknown validation policy %q", c.Validation))
	}

	if c.Hooks.Count < 3 || c.Hooks.Count > 5 {
		errs = append(errs, fmt.Errorf("hooks.count must be between 3 and 5, got %d", c.Hooks.Count))
	}
	if c.Hooks.MaxWords <= 0 {
		errs = append(errs, errors.New("hooks.max_words must be positive"))
	}

	return errors.Join(errs...)
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
