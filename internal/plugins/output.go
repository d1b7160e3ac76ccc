package plugins

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/frontbuild/internal/telemetry"
)

// MetafileName is written to the output directory after every build.
const MetafileName = "meta.json"

// Output writes the in-memory outputs of a successful build, then the
// metafile. It must be registered before any plugin that reads the output
// directory.
func Output(env Env) api.Plugin {
	return api.Plugin{
		Name: "frontbuild-output",
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}
				return api.OnEndResult{}, writeOutputs(env, result)
			})
		},
	}
}

func writeOutputs(env Env, result *api.BuildResult) error {
	var written int64
	for _, file := range result.OutputFiles {
		changed, err := writeIfChanged(file.Path, file.Contents)
		if err != nil {
			return err
		}
		if changed {
			written += int64(len(file.Contents))
			log.Debug().Str("file", env.Rel(file.Path)).Int("bytes", len(file.Contents)).Msg("wrote output")
		}
	}

	if result.Metafile != "" {
		if _, err := writeIfChanged(filepath.Join(env.OutDir, MetafileName), []byte(result.Metafile)); err != nil {
			return err
		}
	}

	telemetry.GetMetrics().OutputBytes.Add(context.Background(), written)
	return nil
}

// writeIfChanged leaves files with identical content untouched so watchers
// downstream only see real changes.
func writeIfChanged(path string, data []byte) (bool, error) {
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
