package postcss

import (
	"context"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/frontbuild/internal/diag"
	"github.com/wolfeidau/frontbuild/internal/targets"
)

// prefixer inserts vendor-prefixed declarations for the target browsers.
// esbuild already knows which properties each engine needs prefixed, so the
// stylesheet is printed through its CSS transform with the baseline engines.
type prefixer struct {
	engines []api.Engine
}

func newPrefixer(options map[string]any, opts Options) (Processor, error) {
	tgts := opts.Targets
	queries, err := stringSlice(options, "overrideBrowserslist")
	if err != nil {
		return nil, err
	}
	if len(queries) > 0 {
		if tgts, err = targets.Parse(queries); err != nil {
			return nil, err
		}
	}
	return &prefixer{engines: tgts.Engines()}, nil
}

func (p *prefixer) Name() string {
	return "autoprefixer"
}

func (p *prefixer) Process(_ context.Context, sheet *Stylesheet) error {
	result := api.Transform(string(sheet.CSS), api.TransformOptions{
		Loader:     api.LoaderCSS,
		Engines:    p.engines,
		Sourcefile: sheet.Path,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return diag.Error(result.Errors)
	}
	sheet.CSS = result.Code
	return nil
}
