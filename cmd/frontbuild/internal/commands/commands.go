package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/frontbuild/internal/config"
	"github.com/wolfeidau/frontbuild/internal/telemetry"
)

type Globals struct {
	Debug   bool
	Config  string
	Mode    string
	Tracing bool
	Version string
	Stdout  io.Writer
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// loadConfig reads the config file, or the built-in defaults when it is
// missing, and applies the --mode override.
func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Mode != "" {
		cfg.Mode = g.Mode
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// startTelemetry initialises OTLP export when tracing is enabled and returns
// a function that flushes it.
func (g *Globals) startTelemetry(ctx context.Context, log zerolog.Logger) func() {
	if !g.Tracing {
		return func() {}
	}

	log.Info().Msg("Tracing is enabled")
	shutdown, err := telemetry.InitTelemetry(ctx, "frontbuild", g.Version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
