package plugins

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/frontbuild/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

const (
	AlgorithmGzip = "gzip"
	AlgorithmZstd = "zstd"
)

var algorithmSuffix = map[string]string{
	AlgorithmGzip: ".gz",
	AlgorithmZstd: ".zst",
}

type compressPlugin struct {
	algorithms []string
	threshold  int
	extensions []string
}

func newCompress(options map[string]any, _ Env) (api.Plugin, error) {
	algorithms, err := stringsOption(options, "algorithms", []string{AlgorithmGzip, AlgorithmZstd})
	if err != nil {
		return api.Plugin{}, err
	}
	for _, a := range algorithms {
		if _, ok := algorithmSuffix[a]; !ok {
			return api.Plugin{}, fmt.Errorf("unknown compression algorithm %q", a)
		}
	}
	threshold, err := intOption(options, "threshold", 1024)
	if err != nil {
		return api.Plugin{}, err
	}
	extensions, err := stringsOption(options, "extensions", []string{".js", ".css", ".svg", ".json", ".map"})
	if err != nil {
		return api.Plugin{}, err
	}

	c := &compressPlugin{algorithms: algorithms, threshold: threshold, extensions: extensions}
	return api.Plugin{
		Name: "compress",
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}
				return api.OnEndResult{}, c.run(context.Background(), result.OutputFiles)
			})
		},
	}, nil
}

func (c *compressPlugin) eligible(file api.OutputFile) bool {
	return len(file.Contents) >= c.threshold &&
		slices.Contains(c.extensions, strings.ToLower(filepath.Ext(file.Path)))
}

// run writes a sidecar per eligible file and algorithm, removing sidecars
// left by an earlier build for files that no longer qualify.
func (c *compressPlugin) run(ctx context.Context, files []api.OutputFile) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, file := range files {
		eligible := c.eligible(file)
		for _, algorithm := range c.algorithms {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if !eligible {
					return removeSidecar(file.Path, algorithm)
				}
				return compressFile(file, algorithm)
			})
		}
	}
	return g.Wait()
}

func compressFile(file api.OutputFile, algorithm string) error {
	var buf bytes.Buffer
	if err := Compress(&buf, file.Contents, algorithm); err != nil {
		return fmt.Errorf("failed to compress %s: %w", file.Path, err)
	}

	if buf.Len() >= len(file.Contents) {
		log.Debug().Str("file", file.Path).Str("algorithm", algorithm).Msg("compression not worthwhile, skipped")
		return removeSidecar(file.Path, algorithm)
	}

	if _, err := writeIfChanged(file.Path+algorithmSuffix[algorithm], buf.Bytes()); err != nil {
		return err
	}

	telemetry.GetMetrics().CompressedFilesTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("algorithm", algorithm)))
	return nil
}

func removeSidecar(path, algorithm string) error {
	err := os.Remove(path + algorithmSuffix[algorithm])
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Compress writes data to w encoded with algorithm.
func Compress(w io.Writer, data []byte, algorithm string) error {
	var enc io.WriteCloser
	switch algorithm {
	case AlgorithmGzip:
		gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
		if err != nil {
			return err
		}
		enc = gz
	case AlgorithmZstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return err
		}
		enc = zw
	default:
		return fmt.Errorf("unknown compression algorithm %q", algorithm)
	}

	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
