// Package config loads service configuration from environment variables with
// an optional YAML file overlay. Settings are passed into components as
// explicit values; nothing here is consulted as ambient global state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gitdigest/internal/triage"
)

// DefaultExcludePatterns filters common binary, data and lockfile noise out of
// the digest before triage ever sees it.
var DefaultExcludePatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.ico", "*.svg",
	"*.pdf", "*.zip", "*.tar.gz", "*.parquet", "*.csv",
	"*.pt", "*.pth", "*.onnx", "*.safetensors",
	"*.lock", "package-lock.json", "yarn.lock", "uv.lock",
}

type Config struct {
	Port string

	// Auth and CORS for the HTTP API. An empty APIKey disables auth.
	APIKey        string
	AllowedOrigin string

	// Ingestion
	GitingestBinary  string
	OutputDir        string
	MaxSummaries     int
	DefaultMaxSize   int64
	DefaultWordCount int
	ExcludePatterns  []string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int
	JobTTL       time.Duration

	// LLM provider (OpenAI-compatible)
	LLMBaseURL          string
	LLMAPIKey           string
	LLMModel            string
	LLMTimeout          time.Duration
	LLMFrequencyPenalty float64
	LLMResponseFormat   string
	LLMReasoningEffort  string
	LLMMaxOutputTokens  int

	// Triage
	TriageEnabled  bool
	TokenThreshold int
	Layers         map[string]bool
}

// fileConfig is the YAML overlay shape. Only fields present in the file
// override the env-derived config.
type fileConfig struct {
	Port          string `yaml:"port"`
	AllowedOrigin string `yaml:"allowed_origin"`

	Digest struct {
		OutputDir        string   `yaml:"output_dir"`
		MaxSummaries     *int     `yaml:"max_summaries"`
		DefaultMaxSize   *int64   `yaml:"default_max_size"`
		DefaultWordCount *int     `yaml:"default_word_count"`
		ExcludePatterns  []string `yaml:"default_exclude_patterns"`
	} `yaml:"digest"`

	LLM struct {
		BaseURL          string   `yaml:"base_url"`
		Model            string   `yaml:"model"`
		Timeout          *int     `yaml:"timeout"`
		FrequencyPenalty *float64 `yaml:"frequency_penalty"`
		ResponseFormat   string   `yaml:"response_format"`
		ReasoningEffort  string   `yaml:"reasoning_effort"`
		MaxOutputTokens  *int     `yaml:"max_output_tokens"`
	} `yaml:"llm"`

	Triage struct {
		Enabled        *bool           `yaml:"enabled"`
		TokenThreshold *int            `yaml:"token_threshold"`
		Layers         map[string]bool `yaml:"layers"`
	} `yaml:"triage"`
}

// Load builds configuration from environment variables.
func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey:        os.Getenv("GITDIGEST_API_KEY"),
		AllowedOrigin: envOr("ALLOWED_ORIGIN", "http://localhost:3000"),

		GitingestBinary:  envOr("GITINGEST_BINARY", "gitingest"),
		OutputDir:        envOr("OUTPUT_DIR", "git_summaries"),
		MaxSummaries:     envInt("MAX_SUMMARIES", 20),
		DefaultMaxSize:   envInt64("DEFAULT_MAX_SIZE", 10485760), // 10MB
		DefaultWordCount: envInt("DEFAULT_WORD_COUNT", 750),
		ExcludePatterns:  envList("EXCLUDE_PATTERNS", DefaultExcludePatterns),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 50),
		JobTTL:       envDuration("JOB_TTL", 1*time.Hour),

		LLMBaseURL:          envOr("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:           os.Getenv("LLM_API_KEY"),
		LLMModel:            envOr("LLM_MODEL", "gpt-4.1-mini"),
		LLMTimeout:          envDuration("LLM_TIMEOUT", 300*time.Second),
		LLMFrequencyPenalty: envFloat("LLM_FREQUENCY_PENALTY", 0.3),
		LLMResponseFormat:   envOr("LLM_RESPONSE_FORMAT", "json_schema"),
		LLMReasoningEffort:  os.Getenv("LLM_REASONING_EFFORT"),
		LLMMaxOutputTokens:  envInt("LLM_MAX_OUTPUT_TOKENS", 0),

		TriageEnabled:  envBool("TRIAGE_ENABLED", true),
		TokenThreshold: envInt("TRIAGE_TOKEN_THRESHOLD", triage.DefaultTokenThreshold),
		Layers:         map[string]bool{},
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.DefaultWordCount <= 0 {
		cfg.DefaultWordCount = 750
	}
	if cfg.TokenThreshold <= 0 {
		cfg.TokenThreshold = triage.DefaultTokenThreshold
	}

	return cfg
}

// LoadFile applies a YAML config file on top of cfg. Fields absent from the
// file leave the existing values untouched.
func LoadFile(path string, cfg Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if fc.AllowedOrigin != "" {
		cfg.AllowedOrigin = fc.AllowedOrigin
	}
	if fc.Digest.OutputDir != "" {
		cfg.OutputDir = fc.Digest.OutputDir
	}
	if fc.Digest.MaxSummaries != nil {
		cfg.MaxSummaries = *fc.Digest.MaxSummaries
	}
	if fc.Digest.DefaultMaxSize != nil {
		cfg.DefaultMaxSize = *fc.Digest.DefaultMaxSize
	}
	if fc.Digest.DefaultWordCount != nil {
		cfg.DefaultWordCount = *fc.Digest.DefaultWordCount
	}
	if len(fc.Digest.ExcludePatterns) > 0 {
		cfg.ExcludePatterns = fc.Digest.ExcludePatterns
	}
	if fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if fc.LLM.Timeout != nil {
		cfg.LLMTimeout = time.Duration(*fc.LLM.Timeout) * time.Second
	}
	if fc.LLM.FrequencyPenalty != nil {
		cfg.LLMFrequencyPenalty = *fc.LLM.FrequencyPenalty
	}
	if fc.LLM.ResponseFormat != "" {
		cfg.LLMResponseFormat = fc.LLM.ResponseFormat
	}
	if fc.LLM.ReasoningEffort != "" {
		cfg.LLMReasoningEffort = fc.LLM.ReasoningEffort
	}
	if fc.LLM.MaxOutputTokens != nil {
		cfg.LLMMaxOutputTokens = *fc.LLM.MaxOutputTokens
	}
	if fc.Triage.Enabled != nil {
		cfg.TriageEnabled = *fc.Triage.Enabled
	}
	if fc.Triage.TokenThreshold != nil {
		cfg.TokenThreshold = *fc.Triage.TokenThreshold
	}
	for name, enabled := range fc.Triage.Layers {
		cfg.Layers[name] = enabled
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.LLMBaseURL == "" {
		return fmt.Errorf("LLM base URL must not be empty")
	}
	if c.LLMModel == "" {
		return fmt.Errorf("LLM model must not be empty")
	}
	return nil
}

// TriageConfig converts the loaded settings into the explicit value the
// triage core consumes.
func (c Config) TriageConfig() triage.Config {
	layers := triage.DefaultLayers()
	for name, enabled := range c.Layers {
		layers[triage.Tier(name)] = enabled
	}
	return triage.Config{
		TokenThreshold: c.TokenThreshold,
		Layers:         layers,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
