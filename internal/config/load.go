package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file, fills in defaults and validates it. Relative
// paths in the file resolve against the file's directory unless the file sets
// its own context.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if cfg.Context == "" {
		cfg.Context = filepath.Dir(path)
	} else if !filepath.IsAbs(cfg.Context) {
		cfg.Context = filepath.Join(filepath.Dir(path), cfg.Context)
	}

	log.Debug().Str("path", path).Str("context", cfg.Context).Msg("loaded config")

	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file doesn't
// exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, ErrConfigNotFound) {
		log.Debug().Str("path", path).Msg("config file not found, using defaults")
		cfg = Default()
		cfg.Context = "."
		return cfg, nil
	}
	return cfg, err
}

// Parse decodes a YAML config document. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Marshal encodes the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks the record for errors the bundler would only report late
// or not at all.
func (c *Config) Validate() error {
	var errs []error

	if c.Mode != ModeProduction && c.Mode != ModeDevelopment {
		errs = append(errs, fmt.Errorf("mode must be %q or %q, got %q", ModeProduction, ModeDevelopment, c.Mode))
	}

	if len(c.Entry) == 0 {
		errs = append(errs, errors.New("at least one entry is required"))
	}
	seen := make(map[string]bool, len(c.Entry))
	for _, entry := range c.Entry {
		switch {
		case entry.Name == "":
			errs = append(errs, errors.New("entry name must not be empty"))
		case seen[entry.Name]:
			errs = append(errs, fmt.Errorf("duplicate entry %q", entry.Name))
		case entry.Import == "":
			errs = append(errs, fmt.Errorf("entry %q has no import path", entry.Name))
		}
		seen[entry.Name] = true
	}

	sentinels := 0
	for _, ext := range c.Resolve.Extensions {
		if ext == ExtensionsSentinel {
			sentinels++
			continue
		}
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, fmt.Errorf("extension %q must start with a dot", ext))
		}
	}
	if sentinels > 1 {
		errs = append(errs, fmt.Errorf("%q may appear at most once in resolve.extensions", ExtensionsSentinel))
	}

	for i, rule := range c.Module.Rules {
		if err := c.validateRule(rule); err != nil {
			errs = append(errs, fmt.Errorf("module.rules[%d]: %w", i, err))
		}
	}

	for _, name := range c.Plugins.Names() {
		if name == "" {
			errs = append(errs, errors.New("plugin name must not be empty"))
		}
	}

	switch c.SourceMaps() {
	case DevtoolNone, DevtoolSourceMap, DevtoolInline, DevtoolLinked:
	default:
		errs = append(errs, fmt.Errorf("unsupported devtool %q", c.SourceMaps()))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c *Config) validateRule(rule Rule) error {
	if rule.Test == "" {
		return errors.New("test is required")
	}
	for _, pattern := range []string{rule.Test, rule.Include, rule.Exclude} {
		if pattern == "" {
			continue
		}
		if _, err := CompilePattern(pattern); err != nil {
			return err
		}
	}

	switch rule.Type {
	case "", TypeAsset, TypeAssetResource, TypeAssetInline, TypeAssetSource, TypeJavaScriptAuto, TypeJSON:
	case TypeCSS:
		if !c.Experiments.CSS {
			return errors.New("type css requires experiments.css")
		}
	default:
		return fmt.Errorf("unknown type %q", rule.Type)
	}

	if rule.Parser != nil && rule.Parser.DataURLCondition != nil && rule.Type != TypeAsset {
		return errors.New("parser.dataUrlCondition is only valid for type asset")
	}

	if rule.Type == "" && len(rule.Use) == 0 {
		return errors.New("rule needs a type or at least one loader")
	}

	for _, use := range rule.Use {
		switch use.Loader {
		case LoaderSWC, LoaderSWCAlias:
			if jsc := use.Options.JSC; jsc != nil {
				switch jsc.Parser.Syntax {
				case "", SyntaxECMAScript, SyntaxTypeScript:
				default:
					return fmt.Errorf("unknown parser syntax %q", jsc.Parser.Syntax)
				}
			}
		case LoaderPostCSS:
		default:
			return fmt.Errorf("unknown loader %q", use.Loader)
		}
	}
	return nil
}

// ResolveExtensions expands the "..." sentinel with DefaultExtensions.
// Without a sentinel the configured list replaces the defaults. Duplicates
// keep their first position.
func (c *Config) ResolveExtensions() []string {
	exts := c.Resolve.Extensions
	if len(exts) == 0 {
		exts = []string{ExtensionsSentinel}
	}

	out := make([]string, 0, len(exts)+len(DefaultExtensions))
	add := func(ext string) {
		if !slices.Contains(out, ext) {
			out = append(out, ext)
		}
	}
	for _, ext := range exts {
		if ext == ExtensionsSentinel {
			for _, def := range DefaultExtensions {
				add(def)
			}
			continue
		}
		add(ext)
	}
	return out
}

// Path resolves p against the config context.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	base := c.Context
	if base == "" {
		base = "."
	}
	return filepath.Join(base, p)
}

var jsLiteral = regexp.MustCompile(`^/(.*)/([a-z]*)$`)

// CompilePattern compiles a rule pattern. Both Go regexp syntax and the
// JavaScript literal form /pattern/flags are accepted; only the i flag has
// an effect.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	expr := pattern
	if m := jsLiteral.FindStringSubmatch(pattern); m != nil {
		expr = m[1]
		if strings.Contains(m[2], "i") {
			expr = "(?i)" + expr
		}
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}
