package config

import (
	"errors"
	"slices"
)

// Sentinel errors
var (
	// ErrInvalidConfig is returned when the configuration fails validation.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrConfigNotFound is returned when the configuration file doesn't exist.
	ErrConfigNotFound = errors.New("config file not found")
)

const (
	ModeProduction  = "production"
	ModeDevelopment = "development"

	// ExtensionsSentinel keeps the default extension list at its position.
	ExtensionsSentinel = "..."
)

// Module types understood by rules.
const (
	TypeAsset          = "asset"
	TypeAssetResource  = "asset/resource"
	TypeAssetInline    = "asset/inline"
	TypeAssetSource    = "asset/source"
	TypeCSS            = "css"
	TypeJavaScriptAuto = "javascript/auto"
	TypeJSON           = "json"
)

// Loader names and parser syntaxes understood by rules.
const (
	LoaderSWC        = "builtin:swc-loader"
	LoaderSWCAlias   = "swc-loader"
	LoaderPostCSS    = "postcss-loader"
	SyntaxECMAScript = "ecmascript"
	SyntaxTypeScript = "typescript"
)

// Devtool values controlling source maps.
const (
	DevtoolNone      = ""
	DevtoolSourceMap = "source-map"
	DevtoolInline    = "inline-source-map"
	DevtoolLinked    = "linked"
)

// Config is the build configuration record handed to the bundler.
type Config struct {
	Mode         string       `yaml:"mode,omitempty"`
	Context      string       `yaml:"context,omitempty"`
	Entry        Entries      `yaml:"entry"`
	Resolve      Resolve      `yaml:"resolve"`
	Module       Module       `yaml:"module"`
	Plugins      PluginList   `yaml:"plugins"`
	Experiments  Experiments  `yaml:"experiments"`
	Output       Output       `yaml:"output,omitempty"`
	Devtool      *string      `yaml:"devtool,omitempty"`
	Optimization Optimization `yaml:"optimization,omitempty"`
	DevServer    DevServer    `yaml:"devServer,omitempty"`
	Targets      []string     `yaml:"targets,omitempty"`
}

// Entry maps a logical bundle name to a source file.
type Entry struct {
	Name   string
	Import string
}

// Entries is an ordered list of entry points.
type Entries []Entry

// Names returns the entry names in declaration order.
func (e Entries) Names() []string {
	names := make([]string, 0, len(e))
	for _, entry := range e {
		names = append(names, entry.Name)
	}
	return names
}

// Lookup returns the entry with the given name.
func (e Entries) Lookup(name string) (Entry, bool) {
	for _, entry := range e {
		if entry.Name == name {
			return entry, true
		}
	}
	return Entry{}, false
}

type Resolve struct {
	Extensions []string `yaml:"extensions"`
}

type Module struct {
	Rules []Rule `yaml:"rules"`
}

// Rule selects files by pattern and declares how they are transformed.
type Rule struct {
	Test    string      `yaml:"test"`
	Include string      `yaml:"include,omitempty"`
	Exclude string      `yaml:"exclude,omitempty"`
	Type    string      `yaml:"type,omitempty"`
	Use     []UseEntry  `yaml:"use,omitempty"`
	Parser  *RuleParser `yaml:"parser,omitempty"`
}

type RuleParser struct {
	DataURLCondition *DataURLCondition `yaml:"dataUrlCondition,omitempty"`
}

// DataURLCondition inlines assets smaller than MaxSize bytes.
type DataURLCondition struct {
	MaxSize int `yaml:"maxSize"`
}

// UseEntry is one step of a rule's transformation pipeline.
type UseEntry struct {
	Loader  string        `yaml:"loader"`
	Options LoaderOptions `yaml:"options,omitempty"`
}

type LoaderOptions struct {
	JSC            *JSCOptions     `yaml:"jsc,omitempty"`
	Env            *EnvOptions     `yaml:"env,omitempty"`
	PostCSSOptions *PostCSSOptions `yaml:"postcssOptions,omitempty"`
}

type JSCOptions struct {
	Parser ParserOptions `yaml:"parser"`
}

type ParserOptions struct {
	Syntax string `yaml:"syntax"`
	JSX    bool   `yaml:"jsx,omitempty"`
	TSX    bool   `yaml:"tsx,omitempty"`
}

type EnvOptions struct {
	Targets []string `yaml:"targets"`
}

type PostCSSOptions struct {
	Plugins PluginList `yaml:"plugins"`
}

// PluginSpec names a plugin and its options.
type PluginSpec struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options,omitempty"`
}

type Experiments struct {
	CSS bool `yaml:"css"`
}

type Output struct {
	Path          string `yaml:"path,omitempty"`
	PublicPath    string `yaml:"publicPath,omitempty"`
	Filename      string `yaml:"filename,omitempty"`
	AssetFilename string `yaml:"assetModuleFilename,omitempty"`
	Clean         bool   `yaml:"clean,omitempty"`
}

type Optimization struct {
	Minimize *bool `yaml:"minimize,omitempty"`
}

type DevServer struct {
	Host           string   `yaml:"host,omitempty"`
	Port           int      `yaml:"port,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
	Compress       *bool    `yaml:"compress,omitempty"`
}

// IsProduction reports whether the config builds for production.
func (c *Config) IsProduction() bool {
	return c.Mode != ModeDevelopment
}

// Minimize reports whether output is minified, defaulting by mode.
func (c *Config) Minimize() bool {
	if c.Optimization.Minimize != nil {
		return *c.Optimization.Minimize
	}
	return c.IsProduction()
}

// SourceMaps returns the effective devtool, defaulting by mode.
func (c *Config) SourceMaps() string {
	if c.Devtool != nil {
		return *c.Devtool
	}
	if c.IsProduction() {
		return DevtoolNone
	}
	return DevtoolLinked
}

// Clone returns a deep copy so builds can hold an immutable record.
func (c *Config) Clone() *Config {
	out := *c
	out.Entry = slices.Clone(c.Entry)
	out.Resolve.Extensions = slices.Clone(c.Resolve.Extensions)
	out.Targets = slices.Clone(c.Targets)
	out.DevServer.AllowedOrigins = slices.Clone(c.DevServer.AllowedOrigins)
	out.DevServer.Compress = clonePtr(c.DevServer.Compress)
	out.Devtool = clonePtr(c.Devtool)
	out.Optimization.Minimize = clonePtr(c.Optimization.Minimize)
	out.Plugins = c.Plugins.clone()

	out.Module.Rules = make([]Rule, len(c.Module.Rules))
	for i, rule := range c.Module.Rules {
		r := rule
		if rule.Parser != nil {
			r.Parser = &RuleParser{DataURLCondition: clonePtr(rule.Parser.DataURLCondition)}
		}
		r.Use = make([]UseEntry, len(rule.Use))
		for j, use := range rule.Use {
			r.Use[j] = UseEntry{Loader: use.Loader, Options: use.Options.clone()}
		}
		out.Module.Rules[i] = r
	}
	return &out
}

func (o LoaderOptions) clone() LoaderOptions {
	out := LoaderOptions{JSC: clonePtr(o.JSC)}
	if o.Env != nil {
		out.Env = &EnvOptions{Targets: slices.Clone(o.Env.Targets)}
	}
	if o.PostCSSOptions != nil {
		out.PostCSSOptions = &PostCSSOptions{Plugins: o.PostCSSOptions.Plugins.clone()}
	}
	return out
}

func (p PluginList) clone() PluginList {
	if p == nil {
		return nil
	}
	out := make(PluginList, len(p))
	for i, spec := range p {
		out[i] = PluginSpec{Name: spec.Name}
		if spec.Options != nil {
			out[i].Options = cloneValue(spec.Options).(map[string]any)
		}
	}
	return out
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// cloneValue copies the maps and slices yaml decodes plugin options into.
func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
