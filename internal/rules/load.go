package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/frontbuild/internal/config"
	"github.com/wolfeidau/frontbuild/internal/diag"
	"github.com/wolfeidau/frontbuild/internal/postcss"
	"github.com/wolfeidau/frontbuild/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrNoRule is returned when no rule claims a file.
var ErrNoRule = errors.New("no rule matches")

// Load runs path through the first rule that claims it.
func (s *Set) Load(path string) (*Compiled, api.OnLoadResult, error) {
	c, ok := s.Match(path)
	if !ok {
		return nil, api.OnLoadResult{}, fmt.Errorf("%w: %s", ErrNoRule, path)
	}
	res, err := s.load(c, path)
	return c, res, err
}

func (s *Set) load(c *Compiled, path string) (api.OnLoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.OnLoadResult{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	src := string(data)
	loader := api.LoaderNone
	var watch []string

	// use steps chain from last to first
	for i := len(c.Rule.Use) - 1; i >= 0; i-- {
		use := c.Rule.Use[i]
		switch use.Loader {
		case config.LoaderSWC, config.LoaderSWCAlias:
			src, err = s.transformScript(c, use, path, src)
			loader = api.LoaderJS
		case config.LoaderPostCSS:
			src, watch, err = c.processStyles(path, src)
			loader = api.LoaderCSS
		}
		if err != nil {
			return api.OnLoadResult{}, err
		}
	}

	loader = moduleLoader(c.Rule, loader, path, len(data))

	log.Debug().Str("path", path).Int("rule", c.Index).Str("loader", loaderName(loader)).Msg("loaded module")
	telemetry.GetMetrics().ModulesLoadedTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("loader", loaderName(loader))))

	return api.OnLoadResult{
		Contents:   &src,
		Loader:     loader,
		ResolveDir: filepath.Dir(path),
		WatchFiles: watch,
	}, nil
}

func (s *Set) transformScript(c *Compiled, use config.UseEntry, path, src string) (string, error) {
	loader := api.LoaderJS
	if jsc := use.Options.JSC; jsc != nil {
		switch {
		case jsc.Parser.Syntax == config.SyntaxTypeScript && jsc.Parser.TSX:
			loader = api.LoaderTSX
		case jsc.Parser.Syntax == config.SyntaxTypeScript:
			loader = api.LoaderTS
		case jsc.Parser.JSX:
			loader = api.LoaderJSX
		}
	}

	tgts := c.Targets
	if tgts == nil {
		tgts = s.targets
	}

	opts := api.TransformOptions{
		Loader:     loader,
		Engines:    tgts.Engines(),
		Sourcefile: path,
		LogLevel:   api.LogLevelSilent,
	}
	if s.sourcemap {
		opts.Sourcemap = api.SourceMapInline
	}

	result := api.Transform(src, opts)
	if len(result.Errors) > 0 {
		return "", diag.Error(result.Errors)
	}
	diag.Log(zerolog.WarnLevel, result.Warnings)

	return string(result.Code), nil
}

func (c *Compiled) processStyles(path, src string) (string, []string, error) {
	if c.styles == nil {
		return src, nil, nil
	}
	sheet := &postcss.Stylesheet{Path: path, CSS: []byte(src)}
	if err := c.styles.Process(context.Background(), sheet); err != nil {
		return "", nil, err
	}
	return string(sheet.CSS), sheet.WatchFiles, nil
}

// moduleLoader picks the esbuild loader from the rule type, falling back to
// the output of the last use step and then the file extension.
func moduleLoader(rule config.Rule, stepLoader api.Loader, path string, size int) api.Loader {
	switch rule.Type {
	case config.TypeAsset:
		if p := rule.Parser; p != nil && p.DataURLCondition != nil && size < p.DataURLCondition.MaxSize {
			return api.LoaderDataURL
		}
		return api.LoaderFile
	case config.TypeAssetResource:
		return api.LoaderFile
	case config.TypeAssetInline:
		return api.LoaderDataURL
	case config.TypeAssetSource:
		return api.LoaderText
	case config.TypeCSS:
		return api.LoaderCSS
	case config.TypeJSON:
		return api.LoaderJSON
	case config.TypeJavaScriptAuto:
		return api.LoaderJS
	}

	if stepLoader != api.LoaderNone {
		return stepLoader
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	case ".css":
		return api.LoaderCSS
	case ".json":
		return api.LoaderJSON
	default:
		return api.LoaderJS
	}
}

var loaderNames = map[api.Loader]string{
	api.LoaderNone:    "none",
	api.LoaderJS:      "js",
	api.LoaderJSX:     "jsx",
	api.LoaderTS:      "ts",
	api.LoaderTSX:     "tsx",
	api.LoaderJSON:    "json",
	api.LoaderText:    "text",
	api.LoaderDataURL: "dataurl",
	api.LoaderFile:    "file",
	api.LoaderCSS:     "css",
}

func loaderName(l api.Loader) string {
	if name, ok := loaderNames[l]; ok {
		return name
	}
	return fmt.Sprintf("loader(%d)", l)
}

// Describe returns the esbuild loader the rule produces for path, by name.
func (c *Compiled) Describe(path string, size int) string {
	step := api.LoaderNone
	for _, use := range c.Rule.Use {
		switch use.Loader {
		case config.LoaderSWC, config.LoaderSWCAlias:
			step = api.LoaderJS
		case config.LoaderPostCSS:
			step = api.LoaderCSS
		}
	}
	return loaderName(moduleLoader(c.Rule, step, path, size))
}
