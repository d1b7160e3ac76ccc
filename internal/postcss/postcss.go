// Package postcss runs stylesheets through an ordered list of processors
// before the bundler sees them as native CSS.
package postcss

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/frontbuild/internal/config"
	"github.com/wolfeidau/frontbuild/internal/targets"
)

// Sentinel errors
var (
	// ErrUnknownPlugin is returned for plugin names with no processor.
	ErrUnknownPlugin = errors.New("unknown postcss plugin")

	// ErrUnknownUtility is returned when @apply names a class that doesn't exist.
	ErrUnknownUtility = errors.New("unknown utility class")
)

// Stylesheet is the unit passed between processors.
type Stylesheet struct {
	Path string
	CSS  []byte

	// WatchFiles lists extra files the output depends on.
	WatchFiles []string
}

// Processor transforms a stylesheet in place.
type Processor interface {
	Name() string
	Process(ctx context.Context, sheet *Stylesheet) error
}

// Options carries build-wide settings into processors.
type Options struct {
	// Root is the directory content globs are relative to.
	Root string
	// DefaultContent is used by the utilities processor when the plugin
	// options don't name any content globs.
	DefaultContent []string
	// Targets is the browser baseline used for vendor prefixes.
	Targets targets.Targets
	// Scanner is shared between pipelines so content is scanned once per build.
	Scanner *Scanner
}

type constructor func(options map[string]any, opts Options) (Processor, error)

var registry = map[string]constructor{
	"tailwindcss":          newUtilities,
	"@tailwindcss/postcss": newUtilities,
	"autoprefixer":         newPrefixer,
}

// Available returns the processor names usable in postcssOptions.plugins,
// sorted.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Pipeline is an ordered list of processors.
type Pipeline struct {
	processors []Processor
}

// NewPipeline instantiates processors for the plugins in order.
func NewPipeline(plugins config.PluginList, opts Options) (*Pipeline, error) {
	if opts.Scanner == nil {
		opts.Scanner = NewScanner(opts.Root)
	}

	p := &Pipeline{}
	for _, plugin := range plugins {
		ctor, ok := registry[plugin.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, plugin.Name)
		}
		proc, err := ctor(plugin.Options, opts)
		if err != nil {
			return nil, fmt.Errorf("postcss plugin %q: %w", plugin.Name, err)
		}
		p.processors = append(p.processors, proc)
	}
	return p, nil
}

// Names returns the processor names in order.
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.processors))
	for _, proc := range p.processors {
		names = append(names, proc.Name())
	}
	return names
}

// Process runs every processor over the stylesheet.
func (p *Pipeline) Process(ctx context.Context, sheet *Stylesheet) error {
	for _, proc := range p.processors {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := proc.Process(ctx, sheet); err != nil {
			return fmt.Errorf("%s: %w", proc.Name(), err)
		}
		log.Debug().Str("path", sheet.Path).Str("processor", proc.Name()).Int("bytes", len(sheet.CSS)).Msg("processed stylesheet")
	}
	return nil
}

func stringSlice(options map[string]any, key string) ([]string, error) {
	raw, ok := options[key]
	if !ok || raw == nil {
		return nil, nil
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
