package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/frontbuild/internal/assets"
	"github.com/wolfeidau/frontbuild/internal/config"
	"github.com/wolfeidau/frontbuild/internal/resolve"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

// newProject writes a project with a default config file and returns
// globals pointing at it.
func newProject(t *testing.T) (string, *Globals, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, "src/index.html", `<main class="p-4"></main>`)
	writeFile(t, dir, "src/logo.svg", `<svg xmlns="http://www.w3.org/2000/svg"/>`)
	writeFile(t, dir, "src/styles.css", "@tailwind utilities;\n")
	writeFile(t, dir, "src/util.js", "export const origin = 'js';\n")
	writeFile(t, dir, "src/util.ts", "export const origin: string = 'ts';\n")
	writeFile(t, dir, "src/index.ts", `import { origin } from "./util";
import "./styles.css";
document.title = origin;
`)

	out := new(bytes.Buffer)
	globals := &Globals{
		Config:  filepath.Join(dir, "frontbuild.yaml"),
		Version: "test",
		Stdout:  out,
	}
	require.NoError(t, (&ConfigInitCmd{}).Run(globals))
	out.Reset()

	return dir, globals, out
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		globals Globals
		mode    string
		err     error
	}{
		{name: "missing file uses defaults", globals: Globals{Config: filepath.Join(dir, "missing.yaml")}, mode: config.ModeProduction},
		{name: "mode override", globals: Globals{Config: filepath.Join(dir, "missing.yaml"), Mode: config.ModeDevelopment}, mode: config.ModeDevelopment},
		{name: "invalid mode", globals: Globals{Config: filepath.Join(dir, "missing.yaml"), Mode: "staging"}, err: config.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.globals.loadConfig()
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.mode, cfg.Mode)
			require.Equal(t, []string{"main"}, cfg.Entry.Names())
		})
	}
}

func TestConfigInit(t *testing.T) {
	dir, globals, out := newProject(t)

	err := (&ConfigInitCmd{}).Run(globals)
	require.ErrorIs(t, err, ErrConfigExists)

	require.NoError(t, (&ConfigInitCmd{Force: true}).Run(globals))
	require.Contains(t, out.String(), "frontbuild.yaml")

	cfg, err := config.Load(globals.Config)
	require.NoError(t, err)
	require.Equal(t, dir, cfg.Context)
	require.Len(t, cfg.Module.Rules, 4)
}

func TestConfigPrint(t *testing.T) {
	_, globals, out := newProject(t)
	globals.Mode = config.ModeDevelopment

	require.NoError(t, (&ConfigPrintCmd{}).Run(globals))

	cfg, err := config.Parse(out.Bytes())
	require.NoError(t, err)
	require.Equal(t, config.ModeDevelopment, cfg.Mode)
	require.Equal(t, []string{"tailwindcss", "autoprefixer"}, cfg.Module.Rules[3].Use[0].Options.PostCSSOptions.Plugins.Names())
}

func TestInspectMatch(t *testing.T) {
	dir, globals, out := newProject(t)

	require.NoError(t, (&InspectMatchCmd{File: "src/logo.svg"}).Run(globals))
	require.Contains(t, out.String(), "file:    "+filepath.Join(dir, "src", "logo.svg"))
	require.Contains(t, out.String(), "rule:    0 (test \\.svg$)")
	require.Contains(t, out.String(), "type:    asset\n")
	require.Contains(t, out.String(), "loaders: -\n")
	require.Contains(t, out.String(), "esbuild: file\n")

	out.Reset()
	require.NoError(t, (&InspectMatchCmd{File: "src/styles.css"}).Run(globals))
	require.Contains(t, out.String(), "rule:    3")
	require.Contains(t, out.String(), "loaders: postcss-loader\n")
	require.Contains(t, out.String(), "esbuild: css\n")
	require.Contains(t, out.String(), "postcss: tailwindcss, autoprefixer\n")

	err := (&InspectMatchCmd{File: "src/photo.png"}).Run(globals)
	require.Error(t, err)
}

func TestInspectResolve(t *testing.T) {
	dir, globals, out := newProject(t)

	require.NoError(t, (&InspectResolveCmd{Request: "./util", From: "src"}).Run(globals))
	require.Equal(t, filepath.Join(dir, "src", "util.js")+"\n", out.String())

	err := (&InspectResolveCmd{Request: "./nowhere", From: "src"}).Run(globals)
	require.ErrorIs(t, err, resolve.ErrNotResolved)
	require.ErrorContains(t, err, "(extensions .js .json .wasm .ts)")
}

func TestInspectPlugins(t *testing.T) {
	dir, globals, out := newProject(t)

	cfg, err := config.Load(globals.Config)
	require.NoError(t, err)
	cfg.Plugins = config.PluginList{{Name: "manifest"}}
	data, err := cfg.Marshal()
	require.NoError(t, err)
	writeFile(t, dir, "frontbuild.yaml", string(data))

	require.NoError(t, (&InspectPluginsCmd{}).Run(globals))
	require.Equal(t, `build plugins:
  compress
  html
  manifest (enabled)
postcss processors:
  @tailwindcss/postcss
  autoprefixer (rule 3)
  tailwindcss (rule 3)
`, out.String())
}

func TestBuildCmd(t *testing.T) {
	dir, globals, out := newProject(t)

	require.NoError(t, (&BuildCmd{Clean: true}).Run(context.Background(), globals))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Contains(t, lines, "main.js")
	require.Contains(t, lines, "main.css")
	require.FileExists(t, filepath.Join(dir, "dist", "main.js"))

	writeFile(t, dir, "src/index.ts", "import './missing';\n")
	err := (&BuildCmd{}).Run(context.Background(), globals)
	require.ErrorIs(t, err, assets.ErrBuildFailed)
}

func TestServeHandler(t *testing.T) {
	dir, globals, _ := newProject(t)
	writeFile(t, dir, "src/index.ts", "import './styles.css';\ndocument.title = '"+strings.Repeat("frontbuild ", 200)+"';\n")

	cfg, err := globals.loadConfig()
	require.NoError(t, err)
	cfg.DevServer.AllowedOrigins = []string{"http://localhost:3000"}

	pipeline, err := assets.New(cfg)
	require.NoError(t, err)
	_, err = pipeline.Build(context.Background())
	require.NoError(t, err)

	handler, err := (&ServeCmd{Title: "Dev"}).handler(pipeline, zerolog.Nop())
	require.NoError(t, err)

	t.Run("page", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "<title>Dev</title>")
		require.Contains(t, rec.Body.String(), `<script type="module" src="/main.js"></script>`)
		require.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	})

	t.Run("cross site post rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("cross site post to output rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/main.js", nil)
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("static output", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/main.js", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Contains(t, rec.Body.String(), "frontbuild")
	})

	t.Run("gzip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/main.js", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	})

	t.Run("unknown entry", func(t *testing.T) {
		_, err := (&ServeCmd{Entry: "admin"}).handler(pipeline, zerolog.Nop())
		require.Error(t, err)
	})
}

func TestServeHandler_templateDir(t *testing.T) {
	dir, globals, _ := newProject(t)
	writeFile(t, dir, "templates/app.html", `<h1>{{ .Title }}</h1>{{ join .Scripts "," }}`)

	cfg, err := globals.loadConfig()
	require.NoError(t, err)
	pipeline, err := assets.New(cfg, assets.WithTemplateDir(filepath.Join(dir, "templates"), nil))
	require.NoError(t, err)
	_, err = pipeline.Build(context.Background())
	require.NoError(t, err)

	handler, err := (&ServeCmd{Title: "App", Page: "app.html"}).handler(pipeline, zerolog.Nop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "<h1>App</h1>/main.js", rec.Body.String())

	_, err = (&ServeCmd{Page: "missing.html"}).handler(pipeline, zerolog.Nop())
	require.Error(t, err)
}

func TestServeCmd_templatesRequirePage(t *testing.T) {
	dir, globals, _ := newProject(t)

	err := (&ServeCmd{Templates: filepath.Join(dir, "templates")}).Run(context.Background(), globals)
	require.ErrorContains(t, err, "--page is required")
}
