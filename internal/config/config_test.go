package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper(t))
	require.NoError(t, err)

	want := Defaults()
	assert.Equal(t, &want, cfg)
	assert.Equal(t, 3000, cfg.ChunkSize)
	assert.Equal(t, 2*time.Second, cfg.ChunkDelay)
	assert.Equal(t, 5*time.Second, cfg.FileDelay)
	assert.Equal(t, "_zh", cfg.Suffix)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mdtran.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service: OpenRouter
target_lang: ja
chunk_size: 1500
chunk_delay: 500ms
validate: true
fuzzy_threshold: 0.95
`), 0o644))

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "openrouter", cfg.Service)
	assert.Equal(t, "ja", cfg.TargetLang)
	assert.Equal(t, 1500, cfg.ChunkSize)
	assert.Equal(t, 500*time.Millisecond, cfg.ChunkDelay)
	assert.True(t, cfg.CheckLanguage)
	assert.InDelta(t, 0.95, cfg.FuzzyThreshold, 1e-9)
	// untouched keys keep their defaults
	assert.Equal(t, 5*time.Second, cfg.FileDelay)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MDTRAN_CHUNK_SIZE", "42")
	t.Setenv("MDTRAN_SERVICE", "ollama")

	v := newViper(t)
	v.SetEnvPrefix("MDTRAN")
	v.AutomaticEnv()

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.ChunkSize)
	assert.Equal(t, "ollama", cfg.Service)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, "chunk_size"},
		{"negative chunk delay", func(c *Config) { c.ChunkDelay = -time.Second }, "chunk_delay"},
		{"negative file delay", func(c *Config) { c.FileDelay = -time.Second }, "file_delay"},
		{"empty target", func(c *Config) { c.TargetLang = " " }, "target_lang"},
		{"unknown service", func(c *Config) { c.Service = "babelfish" }, "unknown service"},
		{"fuzzy out of range", func(c *Config) { c.FuzzyThreshold = 1.5 }, "fuzzy_threshold"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max_retries"},
		{"unknown pacing", func(c *Config) { c.Pacing = "burst" }, "pacing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	cfg := Defaults()
	cfg.ChunkDelay = 0
	assert.NoError(t, cfg.Validate(), "zero delay disables pacing")
}

func TestCredentialKey(t *testing.T) {
	assert.Equal(t, "ALIYUN_KEY", CredentialKey("dashscope"))
	assert.Equal(t, "OPENROUTER_API_KEY", CredentialKey("openrouter"))
	assert.Empty(t, CredentialKey("ollama"))
	assert.Empty(t, CredentialKey("google"))
}
