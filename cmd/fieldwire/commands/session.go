// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fieldwire/cmd/fieldwire/cli"
	"github.com/bureau-foundation/fieldwire/lib/codec"
	"github.com/bureau-foundation/fieldwire/lib/config"
	"github.com/bureau-foundation/fieldwire/lib/dynamic"
	"github.com/bureau-foundation/fieldwire/lib/schema"
)

// streams are the standard streams a command reads and writes. Tests
// substitute buffers.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func osStreams() streams {
	return streams{in: os.Stdin, out: os.Stdout, err: os.Stderr}
}

// schemaFlags are the flags shared by every command that needs a
// catalog.
type schemaFlags struct {
	configPath string
	schemas    []string
}

func (f *schemaFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.configPath, "config", "", "config file (default: $"+config.EnvVar+")")
	flagSet.StringArrayVarP(&f.schemas, "schema", "s", nil, "schema document, YAML or JSONC (repeatable; added to the config's schemas)")
}

// session is the state a data command works with: validated config, a
// logger and the loaded catalog.
type session struct {
	config  *config.Config
	logger  *slog.Logger
	catalog *schema.Catalog
}

func (f *schemaFlags) open(s streams, command string) (*session, error) {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	logger := cli.NewCommandLogger(s.err, cfg.LogLevel()).With("command", command)

	paths := append(append([]string(nil), cfg.Schemas...), f.schemas...)
	if len(paths) == 0 {
		return nil, cli.Validation("no schema documents").
			WithHint("Pass --schema FILE or list schemas in the config file.")
	}
	catalog, err := loadCatalog(paths...)
	if err != nil {
		return nil, err
	}
	logger.Debug("schemas loaded", "documents", len(paths), "types", len(catalog.Names()))

	return &session{config: cfg, logger: logger, catalog: catalog}, nil
}

// loadConfig loads the file named by --config or FIELDWIRE_CONFIG, or
// the defaults when neither is set.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
		if errors.Is(err, config.ErrNotConfigured) {
			cfg, err = config.Default(), nil
		}
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cli.NotFound("%w", err)
		}
		return nil, cli.Validation("%w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("%w", err)
	}
	return cfg, nil
}

func loadCatalog(paths ...string) (*schema.Catalog, error) {
	catalog, err := schema.LoadCatalog(paths...)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cli.NotFound("%w", err)
		}
		return nil, cli.Data("%w", err)
	}
	return catalog, nil
}

// codec builds the dynamic codec for the session. unknownFields
// overrides the configured policy when set.
func (s *session) codec(unknownFields string) (*dynamic.Codec, error) {
	if unknownFields == "" {
		unknownFields = s.config.Decode.UnknownFields
	}
	policy, err := codec.ParseUnknownFields(unknownFields)
	if err != nil {
		return nil, cli.Validation("--unknown-fields: %w", err)
	}
	return dynamic.New(s.catalog,
		dynamic.WithLogger(s.logger),
		dynamic.WithUnknownFields(policy),
		dynamic.WithMaxLength(s.config.Decode.MaxLength),
	), nil
}

// resolveType resolves a --type expression, listing the catalog's
// types when it names one that does not exist.
func resolveType(c *dynamic.Codec, expr string) (schema.Type, error) {
	if expr == "" {
		return schema.Type{}, cli.Validation("--type is required").
			WithHint(fmt.Sprintf("Types in the schema: %s", strings.Join(c.Catalog().Names(), ", ")))
	}
	t, err := c.Resolve(expr)
	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, schema.ErrUnknownType):
		return schema.Type{}, cli.NotFound("%w", err).
			WithHint(fmt.Sprintf("Types in the schema: %s", strings.Join(c.Catalog().Names(), ", ")))
	default:
		return schema.Type{}, cli.Validation("--type: %w", err)
	}
}
