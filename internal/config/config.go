// Package config resolves run settings from defaults, an optional .env file,
// SPECTRA_* environment variables and command-line flags, in that order.
package config

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/mod/semver"

	"github.com/toyz/spectra/internal/errors"
)

// EnvPrefix prefixes every environment variable the tool reads
const EnvPrefix = "SPECTRA_"

// Supported values
var (
	Formats    = []string{"json", "yaml"}
	Frameworks = []string{"echo", "gin", "fiber"}
)

// Config holds the configuration for one invocation
type Config struct {
	// Root is the directory scanned for source files
	Root string

	// Output is the file the document is written to; empty means stdout
	Output string
	Format string

	// Document header
	Title       string
	Version     string
	Description string

	Workers     int
	MaxFileSize int64
	CacheSize   int

	// ValidateOutput runs the OpenAPI validator over the emitted document
	ValidateOutput bool
	Watch          bool
	Debounce       time.Duration

	// Serve is the listen address of the document server; empty disables it
	Serve     string
	Framework string

	Verbose bool
	Quiet   bool
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Root:        ".",
		Format:      "json",
		Title:       "API",
		Version:     "1.0.0",
		Workers:     runtime.NumCPU(),
		MaxFileSize: 2 << 20,
		CacheSize:   4096,
		Debounce:    250 * time.Millisecond,
		Framework:   "echo",
	}
}

// LoadDotEnv loads variables from a .env file without overriding the ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.WrapConfigurationError("env file", err)
	}
	return nil
}

// ApplyEnv overrides settings from SPECTRA_* variables found through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	strs := map[string]*string{
		"ROOT":        &c.Root,
		"OUTPUT":      &c.Output,
		"FORMAT":      &c.Format,
		"TITLE":       &c.Title,
		"VERSION":     &c.Version,
		"DESCRIPTION": &c.Description,
		"SERVE":       &c.Serve,
		"FRAMEWORK":   &c.Framework,
	}
	for name, dst := range strs {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"VALIDATE": &c.ValidateOutput,
		"WATCH":    &c.Watch,
		"VERBOSE":  &c.Verbose,
		"QUIET":    &c.Quiet,
	}
	for name, dst := range bools {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.WrapConfigurationError(EnvPrefix+name, err)
			}
			*dst = b
		}
	}

	ints := map[string]*int{
		"WORKERS":    &c.Workers,
		"CACHE_SIZE": &c.CacheSize,
	}
	for name, dst := range ints {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.WrapConfigurationError(EnvPrefix+name, err)
			}
			*dst = n
		}
	}

	if v, ok := get("MAX_FILE_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.WrapConfigurationError(EnvPrefix+"MAX_FILE_SIZE", err)
		}
		c.MaxFileSize = n
	}
	if v, ok := get("DEBOUNCE"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.WrapConfigurationError(EnvPrefix+"DEBOUNCE", err)
		}
		c.Debounce = d
	}
	return nil
}

// BindFlags registers a flag for every setting, using the current values as
// defaults so flags override whatever was loaded before
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Output, "output", c.Output, "Write the document to this file instead of stdout")
	fs.StringVar(&c.Format, "format", c.Format, "Output format: json or yaml")
	fs.StringVar(&c.Title, "title", c.Title, "Document title")
	fs.StringVar(&c.Version, "api-version", c.Version, "Document version (semver)")
	fs.StringVar(&c.Description, "description", c.Description, "Document description")
	fs.IntVar(&c.Workers, "workers", c.Workers, "Number of files analyzed in parallel")
	fs.Int64Var(&c.MaxFileSize, "max-file-size", c.MaxFileSize, "Skip source files larger than this many bytes")
	fs.IntVar(&c.CacheSize, "cache-size", c.CacheSize, "Number of analyzed files kept in the cache")
	fs.BoolVar(&c.ValidateOutput, "validate", c.ValidateOutput, "Validate the document after emitting it")
	fs.BoolVar(&c.Watch, "watch", c.Watch, "Rebuild the document when sources change")
	fs.DurationVar(&c.Debounce, "debounce", c.Debounce, "Quiet period before a watch rebuild")
	fs.StringVar(&c.Serve, "serve", c.Serve, "Serve the document on this address (e.g. :8080)")
	fs.StringVar(&c.Framework, "framework", c.Framework, "HTTP framework used by --serve: echo, gin or fiber")
	fs.BoolVar(&c.Verbose, "verbose", c.Verbose, "Enable verbose output")
	fs.BoolVar(&c.Quiet, "quiet", c.Quiet, "Only show errors")
}

// Validate checks the settings and normalizes case-insensitive values
func (c *Config) Validate() error {
	c.Format = strings.ToLower(c.Format)
	if c.Format == "yml" {
		c.Format = "yaml"
	}
	if !contains(Formats, c.Format) {
		return errors.WrapConfigurationError("format",
			fmt.Errorf("unsupported format '%s' (supported: %s)", c.Format, strings.Join(Formats, ", ")))
	}

	c.Framework = strings.ToLower(c.Framework)
	if c.Serve != "" && !contains(Frameworks, c.Framework) {
		return errors.WrapConfigurationError("framework",
			fmt.Errorf("unsupported framework '%s' (supported: %s)", c.Framework, strings.Join(Frameworks, ", ")))
	}

	if strings.TrimSpace(c.Root) == "" {
		return errors.WrapConfigurationError("root", fmt.Errorf("root directory is required"))
	}
	if strings.TrimSpace(c.Title) == "" {
		return errors.WrapConfigurationError("title", fmt.Errorf("title cannot be empty"))
	}
	if !semver.IsValid(canonicalVersion(c.Version)) {
		return errors.WrapConfigurationError("version",
			fmt.Errorf("'%s' is not a semantic version", c.Version)).
			WithSuggestion("Use a version such as 1.0.0")
	}

	if c.Workers <= 0 {
		return errors.WrapConfigurationError("workers", fmt.Errorf("must be positive, got %d", c.Workers))
	}
	if c.MaxFileSize <= 0 {
		return errors.WrapConfigurationError("max-file-size", fmt.Errorf("must be positive, got %d", c.MaxFileSize))
	}
	if c.CacheSize <= 0 {
		return errors.WrapConfigurationError("cache-size", fmt.Errorf("must be positive, got %d", c.CacheSize))
	}
	if c.Watch && c.Debounce <= 0 {
		return errors.WrapConfigurationError("debounce", fmt.Errorf("must be positive, got %s", c.Debounce))
	}
	if c.Verbose && c.Quiet {
		return errors.WrapConfigurationError("verbose", fmt.Errorf("--verbose and --quiet are mutually exclusive"))
	}
	return nil
}

// canonicalVersion accepts versions with or without the leading v
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
