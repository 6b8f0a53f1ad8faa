package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds all runtime configuration for letteraudit
type Config struct {
	Limits      LimitsConfig      `yaml:"limits" mapstructure:"limits"`
	Gate        GateConfig        `yaml:"gate" mapstructure:"gate"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// LimitsConfig bounds what the loader accepts
type LimitsConfig struct {
	MaxFileMB    int   `yaml:"max_file_mb" mapstructure:"max_file_mb"`
	MaxPages     int   `yaml:"max_pages" mapstructure:"max_pages"`
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// GateConfig controls when downstream AI analysis is allowed
type GateConfig struct {
	MinConfidence  string `yaml:"min_confidence" mapstructure:"min_confidence"` // low, medium, high
	RequireConsent bool   `yaml:"require_consent" mapstructure:"require_consent"`
}

// LLMConfig configures the optional summary provider
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // "" disables summaries
	Model             string  `yaml:"model" mapstructure:"model"`
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxInputChars     int     `yaml:"max_input_chars" mapstructure:"max_input_chars"`
	Temperature       float32 `yaml:"temperature" mapstructure:"temperature"`
	StrictFacts       bool    `yaml:"strict_facts" mapstructure:"strict_facts"` // Warn on percentages the letter never states
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig configures the summary cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig configures batch workers
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// HTTPConfig configures remote document loading
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	AllowRemote   bool          `yaml:"allow_remote" mapstructure:"allow_remote"`
}

// OutputConfig configures rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := ".letteraudit-cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".letteraudit", "cache")
	}

	return &Config{
		Limits: LimitsConfig{
			MaxFileMB:    25,
			MaxPages:     60,
			MaxBodyBytes: 25 << 20,
		},
		Gate: GateConfig{
			MinConfidence:  string(ConfidenceMedium),
			RequireConsent: true,
		},
		LLM: LLMConfig{
			Provider:          "", // Disabled by default
			Model:             "", // Provider default
			Timeout:           45,
			MaxTokens:         1000,
			MaxInputChars:     20000,
			Temperature:       0.2,
			StrictFacts:       true,
			RequestsPerSecond: 1,
			Burst:             2,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "letteraudit/0.1 (+https://github.com/ppiankov/letteraudit)",
			RespectRobots: true,
			AllowRemote:   false,
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
	}
}
