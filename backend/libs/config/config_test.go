package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nested struct {
	Name    string        `yaml:"name"`
	Rate    float64       `yaml:"rate" env:"CUSTOM_RATE"`
	Timeout time.Duration `yaml:"timeout"`
}

type sample struct {
	Port    int    `yaml:"port"`
	Debug   bool   `yaml:"debug"`
	Skipped string `env:"-"`
	Inner   nested `yaml:"inner"`
}

func TestLoadConfigEnvKeys(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "8081")
	t.Setenv("DEBUG", "true")
	t.Setenv("SKIPPED", "ignored")
	t.Setenv("INNER_NAME", "billing")
	t.Setenv("CUSTOM_RATE", "0.8")
	t.Setenv("INNER_TIMEOUT", "1m30s")

	var cfg sample
	require.NoError(t, LoadConfig(&cfg))
	assert.Equal(t, 8081, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Empty(t, cfg.Skipped)
	assert.Equal(t, "billing", cfg.Inner.Name)
	assert.Equal(t, 0.8, cfg.Inner.Rate)
	assert.Equal(t, 90*time.Second, cfg.Inner.Timeout)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 7000\ninner:\n  name: from-file\n  rate: 1.5\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CUSTOM_RATE", "2.5")

	var cfg sample
	require.NoError(t, LoadConfig(&cfg))
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "from-file", cfg.Inner.Name)
	assert.Equal(t, 2.5, cfg.Inner.Rate)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	assert.Error(t, LoadConfig(nil))

	var notStruct int
	assert.Error(t, LoadConfig(&notStruct))

	t.Setenv("PORT", "eighty")
	var cfg sample
	assert.ErrorContains(t, LoadConfig(&cfg), "PORT")

	t.Setenv("PORT", "")
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, LoadConfig(&cfg), "read file")
}
