package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"maps"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/frontbuild/internal/config"
	"github.com/wolfeidau/frontbuild/internal/diag"
	"github.com/wolfeidau/frontbuild/internal/metafile"
	"github.com/wolfeidau/frontbuild/internal/plugins"
	"github.com/wolfeidau/frontbuild/internal/rules"
)

// Sentinel errors
var (
	// ErrBuildFailed is returned when esbuild reports errors.
	ErrBuildFailed = errors.New("build failed")

	// ErrNotBuilt is returned when outputs are requested before a build.
	ErrNotBuilt = errors.New("assets not built yet, call Build() first")

	// ErrUnsafeClean is returned when cleaning would delete the project itself.
	ErrUnsafeClean = errors.New("refusing to clean output directory")
)

// BuildError carries the esbuild messages of a failed build.
type BuildError struct {
	Messages []api.Message
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s with %d error(s):\n%s", ErrBuildFailed, len(e.Messages), diag.Error(e.Messages))
}

func (e *BuildError) Unwrap() error {
	return ErrBuildFailed
}

// Result summarises a successful build.
type Result struct {
	BuildID  string
	Outputs  []string
	Warnings []api.Message
	Duration time.Duration
}

// Pipeline builds the configured entries and serves pages that load them.
type Pipeline struct {
	cfg      *config.Config
	rules    *rules.Set
	env      plugins.Env
	plugins  []api.Plugin
	metadata *metafile.Metadata
	tmpl     *template.Template
	mu       sync.RWMutex
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithTemplate loads a single page template with optional extra functions.
func WithTemplate(templatePath string, customFuncs template.FuncMap) Option {
	return func(p *Pipeline) error {
		tmpl, err := template.New(filepath.Base(templatePath)).Funcs(templateFuncs(customFuncs)).ParseFiles(templatePath)
		if err != nil {
			return err
		}
		p.tmpl = tmpl
		return nil
	}
}

// WithTemplateDir loads every *.html template in a directory.
func WithTemplateDir(templateDir string, customFuncs template.FuncMap) Option {
	return func(p *Pipeline) error {
		tmpl, err := template.New(templateDir).Funcs(templateFuncs(customFuncs)).ParseGlob(filepath.Join(templateDir, "*.html"))
		if err != nil {
			return err
		}
		p.tmpl = tmpl
		return nil
	}
}

// New validates cfg and prepares a pipeline for it. Without a template option
// pages render with plugins.DefaultPage.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	set, err := rules.Compile(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	workDir, err := filepath.Abs(cfg.Path("."))
	if err != nil {
		return nil, err
	}
	outDir, err := filepath.Abs(cfg.Path(cfg.Output.Path))
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:   cfg,
		rules: set,
		env: plugins.Env{
			WorkDir:    workDir,
			OutDir:     outDir,
			PublicPath: cfg.Output.PublicPath,
			Entries:    cfg.Entry,
		},
	}

	if p.plugins, err = plugins.New(cfg.Plugins, p.env); err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.tmpl == nil {
		p.tmpl = template.Must(template.New("page").Funcs(templateFuncs(nil)).Parse(plugins.DefaultPage))
	}

	return p, nil
}

// Config returns the record the pipeline was created with.
func (p *Pipeline) Config() *config.Config {
	return p.cfg
}

// Rules returns the compiled rule set.
func (p *Pipeline) Rules() *rules.Set {
	return p.rules
}

// OutDir returns the absolute output directory.
func (p *Pipeline) OutDir() string {
	return p.env.OutDir
}

func templateFuncs(customFuncs template.FuncMap) template.FuncMap {
	funcs := template.FuncMap{
		"marshal": marshal,
		"safe": func(s string) template.HTML {
			return template.HTML(s) //nolint:gosec
		},
		"join": strings.Join,
	}
	maps.Copy(funcs, customFuncs)
	return funcs
}

func marshal(value any) string {
	buf := new(bytes.Buffer)

	if err := json.NewEncoder(buf).Encode(value); err != nil {
		panic(errors.New("context can only be json serializable"))
	}

	return buf.String()
}
