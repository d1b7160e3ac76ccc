package postcss

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/frontbuild/internal/config"
	"github.com/wolfeidau/frontbuild/internal/targets"
)

func TestResolveClass(t *testing.T) {
	tests := []struct {
		class    string
		expected []decl
	}{
		{class: "p-4", expected: []decl{{"padding", "1rem"}}},
		{class: "px-0.5", expected: []decl{{"padding-left", "0.125rem"}, {"padding-right", "0.125rem"}}},
		{class: "mx-auto", expected: []decl{{"margin-left", "auto"}, {"margin-right", "auto"}}},
		{class: "-mt-2", expected: []decl{{"margin-top", "-0.5rem"}}},
		{class: "gap-x-3", expected: []decl{{"column-gap", "0.75rem"}}},
		{class: "w-1/2", expected: []decl{{"width", "50%"}}},
		{class: "h-screen", expected: []decl{{"height", "100vh"}}},
		{class: "max-w-md", expected: []decl{{"max-width", "28rem"}}},
		{class: "text-lg", expected: []decl{{"font-size", "1.125rem"}, {"line-height", "1.75rem"}}},
		{class: "text-red-500", expected: []decl{{"color", "#ef4444"}}},
		{class: "bg-white", expected: []decl{{"background-color", "#fff"}}},
		{class: "font-bold", expected: []decl{{"font-weight", "700"}}},
		{class: "rounded", expected: []decl{{"border-radius", "0.25rem"}}},
		{class: "rounded-full", expected: []decl{{"border-radius", "9999px"}}},
		{class: "border-2", expected: []decl{{"border-width", "2px"}}},
		{class: "border-gray-200", expected: []decl{{"border-color", "#e5e7eb"}}},
		{class: "opacity-50", expected: []decl{{"opacity", "0.5"}}},
		{class: "backdrop-blur-sm", expected: []decl{{"backdrop-filter", "blur(4px)"}}},
		{class: "select-none", expected: []decl{{"user-select", "none"}}},
		{class: "z-10", expected: []decl{{"z-index", "10"}}},
		{class: "duration-300", expected: []decl{{"transition-duration", "300ms"}}},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			u, ok := resolveClass(tt.class)
			require.True(t, ok)
			require.Equal(t, tt.expected, u.Decls)
		})
	}
}

func TestResolveClass_variants(t *testing.T) {
	u, ok := resolveClass("md:hover:bg-blue-500")
	require.True(t, ok)
	require.Equal(t, []string{":hover"}, u.Pseudo)
	require.Equal(t, "(min-width: 768px)", u.Media)
	require.Equal(t, ".md\\:hover\\:bg-blue-500:hover", u.selector("."+escapeClass(u.Class)))
}

func TestResolveClass_unknown(t *testing.T) {
	for _, class := range []string{"", "p-97", "-p-4", "text-purple-500", "foo", "sm:md:p-4", "wobble:p-4", "opacity-33", "w-1/5", "const", "div"} {
		_, ok := resolveClass(class)
		require.False(t, ok, class)
	}
}

func TestEscapeClass(t *testing.T) {
	require.Equal(t, "p-4", escapeClass("p-4"))
	require.Equal(t, "hover\\:p-4", escapeClass("hover:p-4"))
	require.Equal(t, "w-1\\/2", escapeClass("w-1/2"))
	require.Equal(t, "p-0\\.5", escapeClass("p-0.5"))
	require.Equal(t, "\\32 xl\\:p-4", escapeClass("2xl:p-4"))
}

func TestGenerate_order(t *testing.T) {
	out := generate([]string{"md:p-2", "text-center", "hover:underline", "flex", "p-4", "nothing"})

	flex := strings.Index(out, ".flex {")
	p4 := strings.Index(out, ".p-4 {")
	center := strings.Index(out, ".text-center {")
	hover := strings.Index(out, ".hover\\:underline:hover {")
	media := strings.Index(out, "@media (min-width: 768px) {")

	require.True(t, flex >= 0 && p4 > flex && center > p4 && hover > center && media > hover, out)
	require.NotContains(t, out, "nothing")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newTestPipeline(t *testing.T, root string, plugins ...string) *Pipeline {
	t.Helper()

	list := make(config.PluginList, 0, len(plugins))
	for _, name := range plugins {
		list = append(list, config.PluginSpec{Name: name})
	}

	p, err := NewPipeline(list, Options{
		Root:           root,
		DefaultContent: []string{"src/**/*.{html,ts,js}"},
		Targets:        targets.MustParse(config.Baseline),
	})
	require.NoError(t, err)
	return p
}

func TestUtilities_directives(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/index.html", `<div class="p-4 text-red-500 hover:bg-blue-500 md:flex"></div>`)
	writeFile(t, root, "src/components/card.ts", "el.className = 'rounded-lg shadow-md'")
	writeFile(t, root, "node_modules/lib/index.js", "'bg-green-500'")

	p := newTestPipeline(t, root, "tailwindcss")
	sheet := &Stylesheet{
		Path: filepath.Join(root, "src/styles.css"),
		CSS:  []byte("@tailwind base;\n@tailwind components;\n@tailwind utilities;\n"),
	}
	require.NoError(t, p.Process(context.Background(), sheet))

	out := string(sheet.CSS)
	require.Contains(t, out, "box-sizing: border-box")
	require.Contains(t, out, ".p-4 {\n  padding: 1rem;\n}")
	require.Contains(t, out, "color: #ef4444;")
	require.Contains(t, out, ".hover\\:bg-blue-500:hover {")
	require.Contains(t, out, "@media (min-width: 768px) {")
	require.Contains(t, out, "border-radius: 0.5rem;")
	require.NotContains(t, out, "@tailwind")
	require.NotContains(t, out, "#22c55e", "node_modules must not be scanned")

	require.Len(t, sheet.WatchFiles, 2)
}

func TestUtilities_apply(t *testing.T) {
	p := newTestPipeline(t, t.TempDir(), "tailwindcss")
	sheet := &Stylesheet{
		Path: "btn.css",
		CSS:  []byte(".btn, .button { @apply px-4 py-2 rounded hover:bg-blue-700; color: white; }\n"),
	}
	require.NoError(t, p.Process(context.Background(), sheet))

	out := string(sheet.CSS)
	require.Contains(t, out, "padding-left: 1rem;")
	require.Contains(t, out, "padding-top: 0.5rem;")
	require.Contains(t, out, "border-radius: 0.25rem;")
	require.Contains(t, out, "color: white;")
	require.Contains(t, out, ".btn:hover, .button:hover {")
	require.Contains(t, out, "background-color: #1d4ed8;")
	require.NotContains(t, out, "@apply")
}

func TestUtilities_applyImportant(t *testing.T) {
	p := newTestPipeline(t, t.TempDir(), "tailwindcss")
	sheet := &Stylesheet{Path: "a.css", CSS: []byte(".a { @apply p-1 !important; }\n")}
	require.NoError(t, p.Process(context.Background(), sheet))
	require.Contains(t, string(sheet.CSS), "padding: 0.25rem !important;")
}

func TestUtilities_applyUnknown(t *testing.T) {
	p := newTestPipeline(t, t.TempDir(), "tailwindcss")
	sheet := &Stylesheet{Path: "bad.css", CSS: []byte(".a { @apply p-4 sparkle; }\n")}

	err := p.Process(context.Background(), sheet)
	require.ErrorIs(t, err, ErrUnknownUtility)
	require.Contains(t, err.Error(), `"sparkle"`)
	require.Contains(t, err.Error(), "bad.css")
}

func TestUtilities_layers(t *testing.T) {
	p := newTestPipeline(t, t.TempDir(), "tailwindcss")
	sheet := &Stylesheet{
		Path: "layers.css",
		CSS: []byte(`@tailwind components;
.page { color: black; }
@layer components {
  .card { @apply p-2; }
}
`),
	}
	require.NoError(t, p.Process(context.Background(), sheet))

	out := string(sheet.CSS)
	card := strings.Index(out, ".card {")
	page := strings.Index(out, ".page {")
	require.True(t, card >= 0 && page > card, out)
	require.NotContains(t, out, "@layer")
}

func TestUtilities_passThrough(t *testing.T) {
	tests := []struct {
		name string
		css  string
	}{
		{name: "selector list", css: "h1, h2 { margin: 0 }\n"},
		{name: "comma inside :not", css: "a:not(.b, .c) { color: red }\n"},
		{name: "comma inside :is", css: ":is(.a, .b) > p { color: red }\n"},
		{name: "comma inside attribute", css: `a[title="x,y"] { color: red }` + "\n"},
		{name: "keyframe stops", css: "@keyframes pulse { 0%, 100% { opacity: 1 } 50% { opacity: .5 } }\n"},
		{name: "nested rule", css: ".d { color: red; &:hover { color: blue } }\n"},
		{name: "license comment", css: "/*! keep me */\n.b { color: blue }\n"},
		{name: "media query", css: "@media (min-width: 640px) { .a, .b { display: none } }\n"},
	}

	p := newTestPipeline(t, t.TempDir(), "tailwindcss")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := &Stylesheet{Path: "plain.css", CSS: []byte(tt.css)}
			require.NoError(t, p.Process(context.Background(), sheet))
			require.Equal(t, tt.css, string(sheet.CSS))
		})
	}
}

func TestUtilities_applyComplexSelectors(t *testing.T) {
	p := newTestPipeline(t, t.TempDir(), "tailwindcss")
	sheet := &Stylesheet{
		Path: "links.css",
		CSS:  []byte(`:is(.nav, .footer) a, a[title="x,y"] { @apply underline hover:text-blue-500; }` + "\n"),
	}
	require.NoError(t, p.Process(context.Background(), sheet))

	out := string(sheet.CSS)
	require.Contains(t, out, `:is(.nav, .footer) a, a[title="x,y"] {`)
	require.Contains(t, out, "text-decoration-line: underline;")
	require.Contains(t, out, `:is(.nav, .footer) a:hover, a[title="x,y"]:hover {`)
}

func TestPipeline_nestingAndComments(t *testing.T) {
	p := newTestPipeline(t, t.TempDir(), "tailwindcss", "autoprefixer")
	sheet := &Stylesheet{
		Path: "nested.css",
		CSS:  []byte("/*! keep me */\n.d { color: red; &:hover { color: blue } }\nh1, h2 { margin: 0 }\n"),
	}
	require.NoError(t, p.Process(context.Background(), sheet))

	out := string(sheet.CSS)
	require.Contains(t, out, "/*! keep me */")
	require.Contains(t, out, ".d:hover")
	require.Contains(t, out, "color: blue;")
	require.Contains(t, out, "h1,")
	require.Contains(t, out, "h2 {")
	require.NotContains(t, out, "&")
}

func TestPipeline_prefixes(t *testing.T) {
	p := newTestPipeline(t, t.TempDir(), "tailwindcss", "autoprefixer")
	require.Equal(t, []string{"tailwindcss", "autoprefixer"}, p.Names())

	sheet := &Stylesheet{
		Path: "glass.css",
		CSS:  []byte(".glass { @apply backdrop-blur select-none; }\n"),
	}
	require.NoError(t, p.Process(context.Background(), sheet))

	out := string(sheet.CSS)
	require.Contains(t, out, "-webkit-backdrop-filter: blur(8px);")
	require.Contains(t, out, "backdrop-filter: blur(8px);")
	require.Contains(t, out, "-webkit-user-select: none;")
}

func TestPipeline_prefixerSyntaxError(t *testing.T) {
	p := newTestPipeline(t, t.TempDir(), "autoprefixer")
	sheet := &Stylesheet{Path: "broken.css", CSS: []byte(".a { color: red;\n")}

	// esbuild reports unterminated blocks as warnings, so only check that
	// the pipeline either succeeds or fails with a located error
	err := p.Process(context.Background(), sheet)
	if err != nil {
		require.Contains(t, err.Error(), "broken.css")
	}
}

func TestNewPipeline_unknownPlugin(t *testing.T) {
	_, err := NewPipeline(config.PluginList{{Name: "cssnano"}}, Options{})
	require.ErrorIs(t, err, ErrUnknownPlugin)
	require.Equal(t, []string{"@tailwindcss/postcss", "autoprefixer", "tailwindcss"}, Available())
}

func TestScanner_cache(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.html", `<p class="italic">`)

	s := NewScanner(root)
	candidates, files, err := s.Scan([]string{"./src/**/*.html"})
	require.NoError(t, err)
	require.Contains(t, candidates, "italic")
	require.Len(t, files, 1)

	writeFile(t, root, "src/b.html", `<p class="underline">`)

	candidates, _, err = s.Scan([]string{"./src/**/*.html"})
	require.NoError(t, err)
	require.NotContains(t, candidates, "underline")

	s.Reset()
	candidates, _, err = s.Scan([]string{"./src/**/*.html"})
	require.NoError(t, err)
	require.Contains(t, candidates, "underline")
}
