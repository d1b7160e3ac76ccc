package assets

import (
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/frontbuild/internal/config"
	"github.com/wolfeidau/frontbuild/internal/plugins"
)

// Options translates the configuration record into esbuild build options.
// Outputs stay in memory; the output plugin writes them once the build
// succeeds.
func (p *Pipeline) Options() api.BuildOptions {
	cfg := p.cfg

	entries := make([]api.EntryPoint, 0, len(cfg.Entry))
	for _, entry := range cfg.Entry {
		entries = append(entries, api.EntryPoint{InputPath: entry.Import, OutputPath: entry.Name})
	}

	minify := cfg.Minimize()

	return api.BuildOptions{
		AbsWorkingDir:       p.env.WorkDir,
		EntryPointsAdvanced: entries,
		Bundle:              true,
		Splitting:           true,
		Write:               false,
		Metafile:            true,
		Outdir:              p.env.OutDir,
		EntryNames:          trimExt(cfg.Output.Filename),
		AssetNames:          trimExt(cfg.Output.AssetFilename),
		ChunkNames:          "chunks/[name]-[hash]",
		PublicPath:          cfg.Output.PublicPath,
		ResolveExtensions:   cfg.ResolveExtensions(),
		Engines:             p.rules.Targets().Engines(),
		Format:              api.FormatESModule,
		Platform:            api.PlatformBrowser,
		TreeShaking:         api.TreeShakingTrue,
		MinifyWhitespace:    minify,
		MinifyIdentifiers:   minify,
		MinifySyntax:        minify,
		Sourcemap:           sourceMap(cfg.SourceMaps()),
		Define: map[string]string{
			"process.env.NODE_ENV": strconv.Quote(cfg.Mode),
		},
		LogLevel: api.LogLevelSilent,
		Plugins:  append([]api.Plugin{p.rules.Plugin(), plugins.Output(p.env)}, p.plugins...),
	}
}

func sourceMap(devtool string) api.SourceMap {
	switch devtool {
	case config.DevtoolInline:
		return api.SourceMapInline
	case config.DevtoolSourceMap, config.DevtoolLinked:
		return api.SourceMapLinked
	default:
		return api.SourceMapNone
	}
}

// trimExt drops a trailing ".js" or "[ext]" from a name template since
// esbuild appends the extension itself.
func trimExt(name string) string {
	for _, suffix := range []string{".[ext]", ".js"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return name
}
