// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable [Load] reads the config path
// from.
const EnvVar = "FIELDWIRE_CONFIG"

// ErrNotConfigured is returned by [Load] when [EnvVar] is not set.
var ErrNotConfigured = errors.New(EnvVar + " environment variable not set")

// Config is the master configuration for the fieldwire command.
type Config struct {
	// Schemas lists the schema documents (YAML or JSONC) loaded into
	// one catalog for every command that needs types.
	Schemas []string `yaml:"schemas"`

	// Decode configures value decoding.
	Decode DecodeConfig `yaml:"decode"`

	// Output configures what decode and encode write.
	Output OutputConfig `yaml:"output"`

	// Log configures the command logger.
	Log LogConfig `yaml:"log"`
}

// DecodeConfig configures value decoding.
type DecodeConfig struct {
	// UnknownFields is the policy for record field IDs the schema does
	// not declare: "ignore" logs and continues, "reject" fails.
	// Default: ignore
	UnknownFields string `yaml:"unknown_fields"`

	// MaxLength bounds every length prefix. Zero means the wire
	// package's built-in limit.
	MaxLength int `yaml:"max_length"`
}

// OutputConfig configures command output.
type OutputConfig struct {
	// Format is the decode output: "json", "cbor" or "diag" (CBOR
	// diagnostic notation).
	// Default: json
	Format string `yaml:"format"`

	// Compression is the frame written by encode: "none", "zstd" or
	// "lz4".
	// Default: none
	Compression string `yaml:"compression"`
}

// LogConfig configures the command logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`
}

var (
	unknownFieldValues = []string{"ignore", "reject"}
	formatValues       = []string{"json", "cbor", "diag"}
	compressionValues  = []string{"none", "zstd", "lz4"}
	levelValues        = []string{"debug", "info", "warn", "error"}
)

// Default returns the default configuration. File values are loaded
// on top of it.
func Default() *Config {
	return &Config{
		Decode: DecodeConfig{
			UnknownFields: "ignore",
		},
		Output: OutputConfig{
			Format:      "json",
			Compression: "none",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the file named by FIELDWIRE_CONFIG.
// It returns [ErrNotConfigured] when the variable is not set; callers
// that can run without a config check for it and use [Default].
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, ErrNotConfigured
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	cfg.expandVariables(filepath.Dir(absolute))

	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// schema paths and resolves relative ones against configDir.
func (c *Config) expandVariables(configDir string) {
	vars := map[string]string{
		"FIELDWIRE_CONFIG_DIR": configDir,
		"HOME":                 os.Getenv("HOME"),
	}
	for i, schemaPath := range c.Schemas {
		expanded := expandVars(schemaPath, vars)
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(configDir, expanded)
		}
		c.Schemas[i] = expanded
	}
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// ValidationError lists every problem found by [Config.Validate].
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Validate checks the configuration, returning a *ValidationError
// with every problem found.
func (c *Config) Validate() error {
	var problems []string

	for i, schemaPath := range c.Schemas {
		if schemaPath == "" {
			problems = append(problems, fmt.Sprintf("schemas[%d] is empty", i))
		}
	}
	if !slices.Contains(unknownFieldValues, c.Decode.UnknownFields) {
		problems = append(problems, fmt.Sprintf("decode.unknown_fields must be one of: %v", unknownFieldValues))
	}
	if c.Decode.MaxLength < 0 {
		problems = append(problems, "decode.max_length must not be negative")
	}
	if !slices.Contains(formatValues, c.Output.Format) {
		problems = append(problems, fmt.Sprintf("output.format must be one of: %v", formatValues))
	}
	if !slices.Contains(compressionValues, c.Output.Compression) {
		problems = append(problems, fmt.Sprintf("output.compression must be one of: %v", compressionValues))
	}
	if !slices.Contains(levelValues, c.Log.Level) {
		problems = append(problems, fmt.Sprintf("log.level must be one of: %v", levelValues))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// LogLevel returns the configured level as a slog.Level. Unknown
// names, which Validate rejects, fall back to info.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
