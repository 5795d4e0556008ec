package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/spectra/internal/errors"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "json", cfg.Format)
	assert.Positive(t, cfg.Workers)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"SPECTRA_FORMAT":        "yaml",
		"SPECTRA_TITLE":         "  Widgets  ",
		"SPECTRA_VERSION":       "2.1.0",
		"SPECTRA_WORKERS":       "3",
		"SPECTRA_VALIDATE":      "true",
		"SPECTRA_DEBOUNCE":      "1s",
		"SPECTRA_MAX_FILE_SIZE": "1024",
		"SPECTRA_OUTPUT":        "",
		"OTHER_FORMAT":          "xml",
	}))
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, "Widgets", cfg.Title)
	assert.Equal(t, "2.1.0", cfg.Version)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.ValidateOutput)
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.Equal(t, int64(1024), cfg.MaxFileSize)
	assert.Empty(t, cfg.Output, "empty values are ignored")
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	testCases := map[string]string{
		"SPECTRA_WORKERS":       "many",
		"SPECTRA_WATCH":         "maybe",
		"SPECTRA_DEBOUNCE":      "soon",
		"SPECTRA_MAX_FILE_SIZE": "big",
	}
	for key, value := range testCases {
		t.Run(key, func(t *testing.T) {
			cfg := Default()
			err := cfg.ApplyEnv(lookupFrom(map[string]string{key: value}))
			require.Error(t, err)
			assert.Equal(t, errors.ConfigurationErrorCode, errors.CodeOf(err))
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestBindFlags_OverridesEnv(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookupFrom(map[string]string{
		"SPECTRA_FORMAT": "yaml",
		"SPECTRA_TITLE":  "From Env",
	})))

	fs := flag.NewFlagSet("spectra", flag.ContinueOnError)
	cfg.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--format", "json", "--workers", "2", "--validate", "./src"}))

	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.ValidateOutput)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "From Env", cfg.Title)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []string{"./src"}, fs.Args())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		setting string
	}{
		{"bad format", func(c *Config) { c.Format = "xml" }, "format"},
		{"bad version", func(c *Config) { c.Version = "latest" }, "version"},
		{"empty title", func(c *Config) { c.Title = " " }, "title"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"bad framework", func(c *Config) { c.Serve = ":8080"; c.Framework = "chi" }, "framework"},
		{"zero debounce", func(c *Config) { c.Watch = true; c.Debounce = 0 }, "debounce"},
		{"verbose and quiet", func(c *Config) { c.Verbose = true; c.Quiet = true }, "verbose"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.ConfigurationErrorCode, errors.CodeOf(err))
			assert.Contains(t, err.Error(), tc.setting)
		})
	}
}

func TestValidate_Normalizes(t *testing.T) {
	cfg := Default()
	cfg.Format = "YML"
	cfg.Version = "v2.0.0-beta.1"
	cfg.Serve = ":0"
	cfg.Framework = "Gin"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, "gin", cfg.Framework)
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SPECTRA_TEST_DOTENV=loaded\n"), 0644))
	t.Setenv("SPECTRA_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("SPECTRA_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("SPECTRA_TEST_DOTENV"))
}
