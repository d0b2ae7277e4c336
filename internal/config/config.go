// Package config loads the server configuration: defaults, then an optional
// YAML file, then command line flags. The result is checked against the
// embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/S0me0neR0man/ourledger/internal/codec"
	"github.com/S0me0neR0man/ourledger/internal/memory"
)

//go:embed schema.cue
var schemaSource string

const (
	DefaultListen       = "127.0.0.1:3200"
	DefaultDataPath     = "db"
	DefaultCompactEvery = "5m"
	DefaultLogLevel     = "info"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Listen        string `yaml:"listen"`
	Backend       string `yaml:"backend"`
	DataPath      string `yaml:"data_path"`
	Token         string `yaml:"token"`
	MaxRecordSize int    `yaml:"max_record_size"`
	CompactEvery  string `yaml:"compact_every"` // "0" disables compaction
	LogLevel      string `yaml:"log_level"`
}

func NewConfig() *Config {
	return &Config{
		Listen:        DefaultListen,
		Backend:       memory.BadgerBackend,
		DataPath:      DefaultDataPath,
		MaxRecordSize: codec.DefaultMaxSize,
		CompactEvery:  DefaultCompactEvery,
		LogLevel:      DefaultLogLevel,
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	c := NewConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) fields() map[string]any {
	return map[string]any{
		"listen":          c.Listen,
		"backend":         c.Backend,
		"data_path":       c.DataPath,
		"token":           c.Token,
		"max_record_size": c.MaxRecordSize,
		"compact_every":   c.CompactEvery,
		"log_level":       c.LogLevel,
	}
}

// Validate checks c against the schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c.fields()))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if _, err := c.CompactInterval(); err != nil {
		return err
	}
	return nil
}

// CompactInterval parses CompactEvery.
func (c *Config) CompactInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.CompactEvery)
	if err != nil {
		return 0, fmt.Errorf("%w: compact_every: %v", ErrInvalidConfig, err)
	}
	return d, nil
}

func (c *Config) Level() (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return lvl, fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	return lvl, nil
}
