// Package plugins holds the named build plugins that can be listed under
// "plugins" in the configuration. Each one is an esbuild end hook that sees
// the in-memory outputs of a successful build.
package plugins

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/frontbuild/internal/config"
)

// ErrUnknownPlugin is returned for plugin names with no implementation.
var ErrUnknownPlugin = errors.New("unknown plugin")

// Env describes the build a plugin is attached to.
type Env struct {
	// WorkDir is the absolute directory metafile paths are relative to.
	WorkDir string
	// OutDir is the absolute output directory.
	OutDir     string
	PublicPath string
	Entries    config.Entries
}

// EntryPoint returns the entry's import path as esbuild records it in the
// metafile.
func (e Env) EntryPoint(entry config.Entry) string {
	p := entry.Import
	if filepath.IsAbs(p) {
		if rel, err := filepath.Rel(e.WorkDir, p); err == nil {
			p = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(p))
}

// Abs returns the absolute path of a metafile output path.
func (e Env) Abs(outputPath string) string {
	if filepath.IsAbs(outputPath) {
		return outputPath
	}
	return filepath.Join(e.WorkDir, filepath.FromSlash(outputPath))
}

// Rel returns an output path relative to the output directory, slash separated.
func (e Env) Rel(outputPath string) string {
	rel, err := filepath.Rel(e.OutDir, e.Abs(outputPath))
	if err != nil {
		return filepath.ToSlash(outputPath)
	}
	return filepath.ToSlash(rel)
}

// URL returns the public URL an output is served at.
func (e Env) URL(outputPath string) string {
	base := e.PublicPath
	if base == "" {
		base = config.DefaultPublicPath
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + e.Rel(outputPath)
}

// URLs maps URL over a list of output paths.
func (e Env) URLs(outputPaths []string) []string {
	urls := make([]string, 0, len(outputPaths))
	for _, p := range outputPaths {
		urls = append(urls, e.URL(p))
	}
	return urls
}

type constructor func(options map[string]any, env Env) (api.Plugin, error)

var registry = map[string]constructor{
	"manifest": newManifest,
	"compress": newCompress,
	"html":     newHTML,
}

// Names returns the available plugin names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New instantiates the listed plugins in order.
func New(specs config.PluginList, env Env) ([]api.Plugin, error) {
	out := make([]api.Plugin, 0, len(specs))
	for _, spec := range specs {
		ctor, ok := registry[spec.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, spec.Name)
		}
		plugin, err := ctor(spec.Options, env)
		if err != nil {
			return nil, fmt.Errorf("plugin %q: %w", spec.Name, err)
		}
		out = append(out, plugin)
	}
	return out, nil
}

func stringOption(options map[string]any, key, def string) (string, error) {
	raw, ok := options[key]
	if !ok || raw == nil {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("option %q must be a string", key)
	}
	return s, nil
}

func intOption(options map[string]any, key string, def int) (int, error) {
	raw, ok := options[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("option %q must be a number", key)
	}
}

func stringsOption(options map[string]any, key string, def []string) ([]string, error) {
	raw, ok := options[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("option %q must be a list of strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("option %q must be a list of strings", key)
	}
}
