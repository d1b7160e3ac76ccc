package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"filippo.io/csrf"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/frontbuild/internal/assets"
	"github.com/wolfeidau/frontbuild/internal/config"
	httpmiddleware "github.com/wolfeidau/frontbuild/internal/http"
	"github.com/wolfeidau/frontbuild/internal/logger"
	"golang.org/x/sync/errgroup"
)

type ServeCmd struct {
	Host      string `help:"Listen host, overrides devServer.host." env:"FRONTBUILD_HOST"`
	Port      int    `help:"Listen port, overrides devServer.port." env:"FRONTBUILD_PORT"`
	Entry     string `help:"Entry rendered at /, defaults to the first entry."`
	Title     string `help:"Page title." default:"frontbuild"`
	Template  string `help:"Page template rendered at / instead of the built-in page." type:"path"`
	Templates string `help:"Directory of *.html page templates, used with --page." type:"path"`
	Page      string `help:"Template from --templates rendered at /."`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)
	defer globals.startTelemetry(ctx, log)()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := globals.loadConfig()
	if err != nil {
		return err
	}
	if c.Host != "" {
		cfg.DevServer.Host = c.Host
	}
	if c.Port != 0 {
		cfg.DevServer.Port = c.Port
	}

	var opts []assets.Option
	switch {
	case c.Templates != "":
		if c.Page == "" {
			return errors.New("--page is required with --templates")
		}
		opts = append(opts, assets.WithTemplateDir(c.Templates, nil))
	case c.Template != "":
		opts = append(opts, assets.WithTemplate(c.Template, nil))
	}
	pipeline, err := assets.New(cfg, opts...)
	if err != nil {
		return err
	}

	handler, err := c.handler(pipeline, log)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(cfg.DevServer.Host, strconv.Itoa(cfg.DevServer.Port))
	srv := configureHTTPServer(addr, handler)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pipeline.Watch(ctx, func(res *assets.Result, err error) {
			if err != nil {
				log.Error().Err(err).Msg("rebuild failed")
				return
			}
			log.Info().Str("build_id", res.BuildID).Dur("duration", res.Duration).Msg("rebuilt")
		})
	})
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("version", globals.Version).Msg("Starting dev server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dev server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down dev server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// handler serves the entry page at / and the output directory everywhere
// else.
func (c *ServeCmd) handler(pipeline *assets.Pipeline, log zerolog.Logger) (http.Handler, error) {
	cfg := pipeline.Config()

	entry := c.Entry
	if entry == "" {
		entry = cfg.Entry[0].Name
	}

	page, err := pipeline.Handler(c.Page, c.Title, entry, nil)
	if err != nil {
		return nil, err
	}

	return newDevHandler(page, pipeline.OutDir(), cfg.DevServer, log), nil
}

func newDevHandler(page http.Handler, outDir string, dev config.DevServer, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/{$}", page)

	// output may be fetched by pages on the allowed origins
	files := cors.New(cors.Options{
		AllowedOrigins: dev.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	})
	mux.Handle("/", files.Handler(http.FileServer(http.Dir(outDir))))

	// cross-origin requests with unsafe methods are rejected on every route
	var handler http.Handler = csrf.New().Handler(mux)
	if dev.Compress == nil || *dev.Compress {
		handler = gzhttp.GzipHandler(handler)
	}

	return httpmiddleware.RequestLogger(log)(httpmiddleware.NoCache(handler))
}
