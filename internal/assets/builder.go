package assets

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/frontbuild/internal/diag"
	"github.com/wolfeidau/frontbuild/internal/metafile"
	"github.com/wolfeidau/frontbuild/internal/plugins"
	"github.com/wolfeidau/frontbuild/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Build runs esbuild once and caches the resulting metadata. Cancelling ctx
// cancels the build.
func (p *Pipeline) Build(ctx context.Context) (*Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "assets.Build")
	defer span.End()

	if err := p.clean(); err != nil {
		return nil, err
	}

	buildCtx, ctxErr := api.Context(p.Options())
	if ctxErr != nil {
		return nil, p.failed(ctx, ctxErr.Errors)
	}
	defer buildCtx.Dispose()

	stop := context.AfterFunc(ctx, buildCtx.Cancel)
	defer stop()

	log.Info().Strs("entries", p.cfg.Entry.Names()).Str("mode", p.cfg.Mode).Msg("building assets")

	start := time.Now()
	result := buildCtx.Rebuild()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := p.finish(ctx, &result, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("build.id", res.BuildID),
		attribute.Int("build.outputs", len(res.Outputs)),
	)
	return res, nil
}

// Watch builds, then rebuilds whenever an input changes, calling onRebuild
// after every build. It blocks until ctx is done.
func (p *Pipeline) Watch(ctx context.Context, onRebuild func(*Result, error)) error {
	if err := p.clean(); err != nil {
		return err
	}

	opts := p.Options()
	var start time.Time
	opts.Plugins = append(opts.Plugins, api.Plugin{
		Name: "frontbuild-watch",
		Setup: func(build api.PluginBuild) {
			build.OnStart(func() (api.OnStartResult, error) {
				start = time.Now()
				return api.OnStartResult{}, nil
			})
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				res, err := p.finish(ctx, result, time.Since(start))
				if onRebuild != nil {
					onRebuild(res, err)
				}
				return api.OnEndResult{}, nil
			})
		},
	})

	buildCtx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		return p.failed(ctx, ctxErr.Errors)
	}
	defer buildCtx.Dispose()

	metrics := telemetry.GetMetrics()
	metrics.ActiveWatches.Add(ctx, 1)
	defer metrics.ActiveWatches.Add(context.WithoutCancel(ctx), -1)

	if err := buildCtx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("failed to start watch: %w", err)
	}
	log.Info().Str("dir", p.env.WorkDir).Msg("watching for changes")

	<-ctx.Done()
	return nil
}

// finish records the outcome of a build and caches its metadata.
func (p *Pipeline) finish(ctx context.Context, result *api.BuildResult, elapsed time.Duration) (*Result, error) {
	metrics := telemetry.GetMetrics()
	metrics.BuildsTotal.Add(ctx, 1)
	metrics.BuildDuration.Record(ctx, float64(elapsed.Milliseconds()))

	diag.Log(zerolog.WarnLevel, result.Warnings)

	if len(result.Errors) > 0 {
		return nil, p.failed(ctx, result.Errors)
	}

	md, err := metafile.Parse(result.Metafile)
	if err != nil {
		return nil, err
	}

	res := &Result{
		BuildID:  uuid.Must(uuid.NewV7()).String(),
		Warnings: result.Warnings,
		Duration: elapsed,
	}
	for _, file := range result.OutputFiles {
		rel := p.env.Rel(file.Path)
		res.Outputs = append(res.Outputs, rel)
		log.Info().Str("file", rel).Int("bytes", len(file.Contents)).Msg("built file")
	}

	p.mu.Lock()
	p.metadata = md
	p.mu.Unlock()

	log.Info().Str("build_id", res.BuildID).Int("outputs", len(res.Outputs)).Dur("elapsed", elapsed).Msg("build complete")
	return res, nil
}

func (p *Pipeline) failed(ctx context.Context, msgs []api.Message) error {
	telemetry.GetMetrics().BuildErrorsTotal.Add(ctx, 1)
	diag.Log(zerolog.ErrorLevel, msgs)
	return &BuildError{Messages: msgs}
}

// clean empties the output directory when output.clean is set. Directories
// that contain the project are never removed.
func (p *Pipeline) clean() error {
	if !p.cfg.Output.Clean {
		return nil
	}
	rel, err := filepath.Rel(p.env.OutDir, p.env.WorkDir)
	if err != nil {
		return err
	}
	if rel == "." || !strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%w: %s contains the project", ErrUnsafeClean, p.env.OutDir)
	}
	if err := os.RemoveAll(p.env.OutDir); err != nil {
		return fmt.Errorf("failed to clean output directory: %w", err)
	}
	log.Debug().Str("dir", p.env.OutDir).Msg("cleaned output directory")
	return nil
}

// LoadScripts returns the ordered script URLs needed for the named entry
// and the URL of the entry chunk itself.
func (p *Pipeline) LoadScripts(entryName string) ([]string, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, "", ErrNotBuilt
	}

	entry, ok := p.cfg.Entry.Lookup(entryName)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", metafile.ErrEntryNotFound, entryName)
	}

	scripts, err := p.metadata.Scripts(p.env.EntryPoint(entry))
	if err != nil {
		return nil, "", err
	}
	urls := p.env.URLs(scripts)
	return urls, urls[0], nil
}

// LoadStyles returns the stylesheet URLs for the named entry.
func (p *Pipeline) LoadStyles(entryName string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, ErrNotBuilt
	}

	entry, ok := p.cfg.Entry.Lookup(entryName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", metafile.ErrEntryNotFound, entryName)
	}

	styles, err := p.metadata.Styles(p.env.EntryPoint(entry))
	if err != nil {
		return nil, err
	}
	return p.env.URLs(styles), nil
}

// Handler returns an http.HandlerFunc that renders the named template with the
// entry's scripts and stylesheets. An empty templateName renders the root
// template.
func (p *Pipeline) Handler(templateName, title, entryName string, contextFn func(ctx context.Context) any) (http.HandlerFunc, error) {
	if _, ok := p.cfg.Entry.Lookup(entryName); !ok {
		return nil, fmt.Errorf("%w: %s", metafile.ErrEntryNotFound, entryName)
	}
	if templateName != "" && p.tmpl.Lookup(templateName) == nil {
		return nil, fmt.Errorf("template %q not loaded", templateName)
	}

	if contextFn == nil {
		contextFn = func(ctx context.Context) any {
			return nil
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		scripts, _, err := p.LoadScripts(entryName)
		if err != nil {
			log.Error().Err(err).Msg("failed to load scripts")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		styles, err := p.LoadStyles(entryName)
		if err != nil {
			log.Error().Err(err).Msg("failed to load styles")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		data := plugins.PageData{
			Title:   title,
			Scripts: scripts,
			Styles:  styles,
			Context: contextFn(r.Context()),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if templateName == "" {
			err = p.tmpl.Execute(w, data)
		} else {
			err = p.tmpl.ExecuteTemplate(w, templateName, data)
		}
		if err != nil {
			log.Error().Err(err).Msg("failed to render template")
		}
	}, nil
}
