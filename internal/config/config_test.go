package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gitdigest/internal/triage"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8091" {
		t.Errorf("Port = %q, want 8091", cfg.Port)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("WorkerCount = %d, want 2", cfg.WorkerCount)
	}
	if cfg.DefaultWordCount != 750 {
		t.Errorf("DefaultWordCount = %d, want 750", cfg.DefaultWordCount)
	}
	if cfg.TokenThreshold != triage.DefaultTokenThreshold {
		t.Errorf("TokenThreshold = %d, want %d", cfg.TokenThreshold, triage.DefaultTokenThreshold)
	}
	if !cfg.TriageEnabled {
		t.Error("TriageEnabled = false, want true")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("TRIAGE_ENABLED", "false")
	t.Setenv("TRIAGE_TOKEN_THRESHOLD", "50000")
	t.Setenv("JOB_TTL", "30m")
	t.Setenv("EXCLUDE_PATTERNS", "*.bin, *.dat")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d", cfg.WorkerCount)
	}
	if cfg.TriageEnabled {
		t.Error("TriageEnabled = true, want false")
	}
	if cfg.TokenThreshold != 50000 {
		t.Errorf("TokenThreshold = %d", cfg.TokenThreshold)
	}
	if cfg.JobTTL != 30*time.Minute {
		t.Errorf("JobTTL = %v", cfg.JobTTL)
	}
	if len(cfg.ExcludePatterns) != 2 || cfg.ExcludePatterns[1] != "*.dat" {
		t.Errorf("ExcludePatterns = %v", cfg.ExcludePatterns)
	}
}

func TestLoadInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("WORKER_COUNT", "not-a-number")
	t.Setenv("TRIAGE_ENABLED", "maybe")

	cfg := Load()
	if cfg.WorkerCount != 2 {
		t.Errorf("WorkerCount = %d, want default 2", cfg.WorkerCount)
	}
	if !cfg.TriageEnabled {
		t.Error("TriageEnabled = false, want default true")
	}
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
port: "9500"
digest:
  output_dir: /tmp/digests
  default_word_count: 400
llm:
  model: test-model
  timeout: 60
triage:
  enabled: false
  token_threshold: 10000
  layers:
    tests: true
    ci: false
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path, Load())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9500" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.OutputDir != "/tmp/digests" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.DefaultWordCount != 400 {
		t.Errorf("DefaultWordCount = %d", cfg.DefaultWordCount)
	}
	if cfg.LLMModel != "test-model" {
		t.Errorf("LLMModel = %q", cfg.LLMModel)
	}
	if cfg.LLMTimeout != 60*time.Second {
		t.Errorf("LLMTimeout = %v", cfg.LLMTimeout)
	}
	if cfg.TriageEnabled {
		t.Error("TriageEnabled = true, want false from file")
	}
	if cfg.TokenThreshold != 10000 {
		t.Errorf("TokenThreshold = %d", cfg.TokenThreshold)
	}

	tc := cfg.TriageConfig()
	if !tc.Layers.Enabled(triage.TierTests) {
		t.Error("tests layer not enabled by file overlay")
	}
	if tc.Layers.Enabled(triage.TierCI) {
		t.Error("ci layer not disabled by file overlay")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/config.yaml", Load()); err == nil {
		t.Error("missing file did not error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.LLMAPIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing LLM API key passed validation")
	}

	cfg.LLMAPIKey = "sk-test"
	cfg.LLMModel = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing model passed validation")
	}

	cfg.LLMModel = "m"
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config failed validation: %v", err)
	}
}
