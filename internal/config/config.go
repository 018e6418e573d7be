// Package config holds the run configuration shared by mdtran's commands.
// Values come from flags, MDTRAN_* environment variables and an optional
// mdtran.yaml, merged by viper.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/mdtran/internal/chunker"
)

// Services lists the translation backends a config may name.
var Services = []string{"dashscope", "openrouter", "ollama", "google"}

const (
	PacingFixed = "fixed"
	PacingRate  = "rate"
)

type Config struct {
	Service     string `mapstructure:"service"`
	Model       string `mapstructure:"model"`
	BaseURL     string `mapstructure:"base_url"`
	Credentials string `mapstructure:"credentials"`

	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`
	Domain     string `mapstructure:"domain"`

	ChunkSize  int           `mapstructure:"chunk_size"`
	ChunkDelay time.Duration `mapstructure:"chunk_delay"`
	// Pacing is "fixed" (sleep ChunkDelay after every call) or "rate" (start
	// at most one call per ChunkDelay).
	Pacing    string        `mapstructure:"pacing"`
	FileDelay time.Duration `mapstructure:"file_delay"`
	Suffix    string        `mapstructure:"suffix"`

	EnvFile        string  `mapstructure:"env_file"`
	DB             string  `mapstructure:"db"`
	NoCache        bool    `mapstructure:"no_cache"`
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`
	Protect        bool    `mapstructure:"protect"`
	// CheckLanguage rejects chunk translations not in TargetLang.
	CheckLanguage bool `mapstructure:"validate"`
	MaxRetries    int  `mapstructure:"max_retries"`

	Refine      bool   `mapstructure:"refine"`
	RefineModel string `mapstructure:"refine_model"`
	RefineURL   string `mapstructure:"refine_url"`

	// Timeout bounds a whole translate or convert run; zero means none.
	Timeout time.Duration `mapstructure:"timeout"`
	Pandoc  string        `mapstructure:"pandoc"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		Service:     "dashscope",
		TargetLang:  "zh",
		ChunkSize:   chunker.DefaultMaxChunkSize,
		ChunkDelay:  2 * time.Second,
		Pacing:      PacingFixed,
		FileDelay:   5 * time.Second,
		Suffix:      "_zh",
		EnvFile:     ".env",
		DB:          "./data/mdtran.db",
		Protect:     true,
		MaxRetries:  3,
		RefineModel: "qwen2.5:7b",
		RefineURL:   "http://localhost:11434",
		Pandoc:      "pandoc",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// SetDefaults registers Defaults with v so that every key is known to
// viper's env binding and Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("service", d.Service)
	v.SetDefault("model", d.Model)
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("credentials", d.Credentials)
	v.SetDefault("source_lang", d.SourceLang)
	v.SetDefault("target_lang", d.TargetLang)
	v.SetDefault("domain", d.Domain)
	v.SetDefault("chunk_size", d.ChunkSize)
	v.SetDefault("chunk_delay", d.ChunkDelay)
	v.SetDefault("pacing", d.Pacing)
	v.SetDefault("file_delay", d.FileDelay)
	v.SetDefault("suffix", d.Suffix)
	v.SetDefault("env_file", d.EnvFile)
	v.SetDefault("db", d.DB)
	v.SetDefault("no_cache", d.NoCache)
	v.SetDefault("fuzzy_threshold", d.FuzzyThreshold)
	v.SetDefault("protect", d.Protect)
	v.SetDefault("validate", d.CheckLanguage)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("refine", d.Refine)
	v.SetDefault("refine_model", d.RefineModel)
	v.SetDefault("refine_url", d.RefineURL)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("pandoc", d.Pandoc)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Service = strings.ToLower(strings.TrimSpace(cfg.Service))
	cfg.Pacing = strings.ToLower(strings.TrimSpace(cfg.Pacing))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

func (c *Config) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalid, c.ChunkSize)
	case c.ChunkDelay < 0:
		return fmt.Errorf("%w: chunk_delay must not be negative, got %s", ErrInvalid, c.ChunkDelay)
	case c.FileDelay < 0:
		return fmt.Errorf("%w: file_delay must not be negative, got %s", ErrInvalid, c.FileDelay)
	case strings.TrimSpace(c.TargetLang) == "":
		return fmt.Errorf("%w: target_lang is required", ErrInvalid)
	case !slices.Contains(Services, c.Service):
		return fmt.Errorf("%w: unknown service %q (want one of %s)", ErrInvalid, c.Service, strings.Join(Services, ", "))
	case c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1:
		return fmt.Errorf("%w: fuzzy_threshold must be within [0, 1], got %v", ErrInvalid, c.FuzzyThreshold)
	case c.Pacing != PacingFixed && c.Pacing != PacingRate:
		return fmt.Errorf("%w: pacing must be %q or %q, got %q", ErrInvalid, PacingFixed, PacingRate, c.Pacing)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max_retries must not be negative, got %d", ErrInvalid, c.MaxRetries)
	}
	return nil
}

// CredentialKey names the credential-file key holding the API key of a
// service. Services that need no key return "".
func CredentialKey(service string) string {
	switch service {
	case "dashscope":
		return "ALIYUN_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	}
	return ""
}
