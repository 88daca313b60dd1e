// Package config reads and writes the .dfq.yaml configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gnolang/dfq/internal/lang"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = ".dfq.yaml"

const (
	OutputText = "text"
	OutputJSON = "json"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Name       string        `yaml:"name"`
	Quote      string        `yaml:"quote"`
	EndSymbols string        `yaml:"end_symbols"`
	LegacyPlus bool          `yaml:"legacy_plus"`
	Output     string        `yaml:"output"`
	Color      bool          `yaml:"color"`
	Timeout    time.Duration `yaml:"timeout"`
}

func Default() Config {
	return Config{
		Name:       "dfq",
		Quote:      string(lang.DefaultQuote),
		EndSymbols: lang.DefaultEndSymbols,
		Output:     OutputText,
		Color:      true,
		Timeout:    30 * time.Second,
	}
}

// Load decodes the file at path over the defaults. A missing file is only an
// error when path is not DefaultFile.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultFile
	}
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultFile {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Write marshals cfg to path, replacing any existing file.
func Write(path string, cfg Config) error {
	if path == "" {
		path = DefaultFile
	}
	d, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, d, 0o644)
}

func (c Config) Validate() error {
	if utf8.RuneCountInString(c.Quote) != 1 {
		return fmt.Errorf("%w: quote must be a single character, got %q", ErrInvalid, c.Quote)
	}
	if c.EndSymbols == "" {
		return fmt.Errorf("%w: end_symbols is empty", ErrInvalid)
	}

	quote, _ := utf8.DecodeRuneInString(c.Quote)
	if unicode.IsSpace(quote) {
		return fmt.Errorf("%w: quote cannot be whitespace, got %q", ErrInvalid, quote)
	}
	seen := make(map[rune]bool)
	for _, r := range c.EndSymbols {
		if unicode.IsSpace(r) {
			return fmt.Errorf("%w: end symbol cannot be whitespace, got %q", ErrInvalid, r)
		}
		if r == quote {
			return fmt.Errorf("%w: %q is both the quote and an end symbol", ErrInvalid, r)
		}
		if seen[r] {
			return fmt.Errorf("%w: end symbol %q is repeated", ErrInvalid, r)
		}
		seen[r] = true
	}

	switch c.Output {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("%w: output must be %q or %q, got %q", ErrInvalid, OutputText, OutputJSON, c.Output)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalid, c.Timeout)
	}
	return nil
}

// ParserOptions translates the configuration into parser options.
func (c Config) ParserOptions(logger *zap.Logger) []lang.Option {
	quote, _ := utf8.DecodeRuneInString(c.Quote)
	return []lang.Option{
		lang.WithQuote(quote),
		lang.WithEndSymbols([]rune(c.EndSymbols)...),
		lang.WithLegacyPlus(c.LegacyPlus),
		lang.WithLogger(logger),
	}
}
