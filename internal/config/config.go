package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultEndpoint = "http://localhost:11434"

	configPathEnv   = "EPUB_TRANSLATOR_CONFIG"
	llmURLEnv       = "LLM_API_URL"
	llmAPIKeyEnv    = "LLM_API_KEY"
	llmModelEnv     = "LLM_MODEL"
	workspaceDirEnv = "EPUB_TRANSLATOR_WORKSPACE_DIR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Backends  []BackendConfig `yaml:"backends"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retry     RetryConfig     `yaml:"retry"`
	Sanity    SanityConfig    `yaml:"sanity"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BackendConfig describes one translation backend; order in the slice is the
// fallback priority order.
type BackendConfig struct {
	Kind     string `yaml:"kind"` // ollama | openai
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// ChunkerConfig bounds the size of a single backend request.
type ChunkerConfig struct {
	MaxSize  int    `yaml:"maxSize"`
	Measure  string `yaml:"measure"`  // runes | tokens
	Encoding string `yaml:"encoding"` // tiktoken encoding when measure=tokens
	MinWords int    `yaml:"minWords"` // chapters below this are skipped
}

// RetryConfig controls per-backend retries and the per-call timeout.
type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	CallTimeout time.Duration `yaml:"callTimeout"`
}

// SanityConfig tunes the structural validation of backend output.
// TagRatioTolerance t accepts outputs whose tag count is within
// [1-t, 1+t] times the source tag count.
type SanityConfig struct {
	TagRatioTolerance float64 `yaml:"tagRatioTolerance"`
	MinTextChars      int     `yaml:"minTextChars"`
}

// WorkspaceConfig locates the per-document progress files.
type WorkspaceConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig selects console verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads .env, YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(llmURLEnv); v != "" && len(c.Backends) > 0 {
		c.Backends[0].Endpoint = v
	}

	if v := os.Getenv(llmAPIKeyEnv); v != "" && len(c.Backends) > 0 {
		c.Backends[0].APIKey = v
	}

	if v := os.Getenv(llmModelEnv); v != "" && len(c.Backends) > 0 {
		c.Backends[0].Model = v
	}

	if v := os.Getenv(workspaceDirEnv); v != "" {
		c.Workspace.Dir = v
	}
}

func mergeConfig(base, override Config) Config {
	if len(override.Backends) > 0 {
		base.Backends = override.Backends
	}

	if override.Chunker.MaxSize > 0 {
		base.Chunker.MaxSize = override.Chunker.MaxSize
	}
	if override.Chunker.Measure != "" {
		base.Chunker.Measure = override.Chunker.Measure
	}
	if override.Chunker.Encoding != "" {
		base.Chunker.Encoding = override.Chunker.Encoding
	}
	if override.Chunker.MinWords > 0 {
		base.Chunker.MinWords = override.Chunker.MinWords
	}

	if override.Retry.MaxAttempts > 0 {
		base.Retry.MaxAttempts = override.Retry.MaxAttempts
	}
	if override.Retry.CallTimeout > 0 {
		base.Retry.CallTimeout = override.Retry.CallTimeout
	}

	if override.Sanity.TagRatioTolerance > 0 {
		base.Sanity.TagRatioTolerance = override.Sanity.TagRatioTolerance
	}
	if override.Sanity.MinTextChars > 0 {
		base.Sanity.MinTextChars = override.Sanity.MinTextChars
	}

	if override.Workspace.Dir != "" {
		base.Workspace.Dir = override.Workspace.Dir
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Backends: []BackendConfig{
			{Kind: "ollama", Endpoint: defaultEndpoint, Model: "mistral"},
		},
		Chunker: ChunkerConfig{
			MaxSize:  10000,
			Measure:  "runes",
			Encoding: "cl100k_base",
			MinWords: 200,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			CallTimeout: 120 * time.Second,
		},
		Sanity: SanityConfig{
			TagRatioTolerance: 0.5,
			MinTextChars:      20,
		},
		Workspace: WorkspaceConfig{Dir: "."},
		Logging:   LoggingConfig{Level: "info"},
	}
}
