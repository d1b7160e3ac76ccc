package plugins

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/frontbuild/internal/metafile"
)

// DefaultPage is the page template used when the html plugin has no
// "template" option. It receives PageData.
const DefaultPage = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ .Title }}</title>
{{- range .Styles }}
  <link rel="stylesheet" href="{{ . }}">
{{- end }}
</head>
<body>
  <div id="app"></div>
{{- range .Scripts }}
  <script type="module" src="{{ . }}"></script>
{{- end }}
</body>
</html>
`

// PageData is passed to page templates.
type PageData struct {
	Title   string
	Scripts []string
	Styles  []string
	Context any
}

type htmlPlugin struct {
	env      Env
	entry    string
	filename string
	title    string
	tmpl     *template.Template
}

func newHTML(options map[string]any, env Env) (api.Plugin, error) {
	var def string
	if len(env.Entries) > 0 {
		def = env.Entries[0].Name
	}
	entry, err := stringOption(options, "entry", def)
	if err != nil {
		return api.Plugin{}, err
	}
	if _, ok := env.Entries.Lookup(entry); !ok {
		return api.Plugin{}, fmt.Errorf("entry %q not found", entry)
	}
	filename, err := stringOption(options, "filename", "index.html")
	if err != nil {
		return api.Plugin{}, err
	}
	title, err := stringOption(options, "title", entry)
	if err != nil {
		return api.Plugin{}, err
	}
	tmplPath, err := stringOption(options, "template", "")
	if err != nil {
		return api.Plugin{}, err
	}

	tmpl := template.New(filename)
	if tmplPath == "" {
		tmpl, err = tmpl.Parse(DefaultPage)
	} else {
		if !filepath.IsAbs(tmplPath) {
			tmplPath = filepath.Join(env.WorkDir, tmplPath)
		}
		tmpl, err = template.ParseFiles(tmplPath)
	}
	if err != nil {
		return api.Plugin{}, fmt.Errorf("failed to parse template: %w", err)
	}

	h := &htmlPlugin{env: env, entry: entry, filename: filename, title: title, tmpl: tmpl}
	return api.Plugin{
		Name: "html",
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}
				return api.OnEndResult{}, h.write(result.Metafile)
			})
		},
	}, nil
}

func (h *htmlPlugin) write(meta string) error {
	md, err := metafile.Parse(meta)
	if err != nil {
		return err
	}

	entry, _ := h.env.Entries.Lookup(h.entry)
	scripts, err := md.Scripts(h.env.EntryPoint(entry))
	if err != nil {
		return err
	}
	styles, err := md.Styles(h.env.EntryPoint(entry))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	err = h.tmpl.Execute(&buf, PageData{
		Title:   h.title,
		Scripts: h.env.URLs(scripts),
		Styles:  h.env.URLs(styles),
	})
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", h.filename, err)
	}

	_, err = writeIfChanged(filepath.Join(h.env.OutDir, h.filename), buf.Bytes())
	return err
}
