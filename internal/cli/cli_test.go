package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/letteraudit/internal/model"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"letters/2023 decision.txt", "2023-decision"},
		{"https://va.example/letters/rating.html", "rating"},
		{"a:b*c?.txt", "a_b_c_"},
		{"", "letter"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := sanitizeFilename(tt.in); got != tt.want {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".letteraudit", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# letteraudit configuration") {
		t.Errorf("Expected header comment, got %q", string(data[:40]))
	}

	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("Written config is not valid YAML: %v", err)
	}
	if cfg.Limits.MaxPages != 60 || cfg.Gate.MinConfidence != "medium" || cfg.LLM.Provider != "" {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}

	if err := writeDefaultConfig(path); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected refusal to overwrite, got %v", err)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("LETTERAUDIT_LLM_PROVIDER", "ollama")
	t.Setenv("LETTERAUDIT_LIMITS_MAX_PAGES", "12")
	t.Setenv("LETTERAUDIT_CACHE_MEMORY_TTL", "5m")

	registerDefaults()
	viper.SetEnvPrefix("LETTERAUDIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("Expected provider from env, got %q", cfg.LLM.Provider)
	}
	if cfg.Limits.MaxPages != 12 {
		t.Errorf("Expected max pages 12, got %d", cfg.Limits.MaxPages)
	}
	if cfg.Cache.MemoryTTL != 5*time.Minute {
		t.Errorf("Expected memory TTL 5m, got %v", cfg.Cache.MemoryTTL)
	}
	if cfg.Gate.MinConfidence != "medium" {
		t.Errorf("Expected default min confidence, got %q", cfg.Gate.MinConfidence)
	}
}

func TestRedact(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "sk-secret"

	if got := redact(cfg).LLM.APIKey; got == "sk-secret" {
		t.Error("Expected API key to be redacted")
	}
	if cfg.LLM.APIKey != "sk-secret" {
		t.Error("redact must not modify the original config")
	}
}
