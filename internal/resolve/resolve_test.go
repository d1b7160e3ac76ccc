package resolve

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

// extensions after expanding ["...", ".ts"]
var extensions = []string{".js", ".json", ".wasm", ".ts"}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"src/index.ts":                       {Data: []byte(`import "./util"`)},
		"src/util.js":                        {Data: []byte("export {}")},
		"src/util.ts":                        {Data: []byte("export {}")},
		"src/only.ts":                        {Data: []byte("export {}")},
		"src/data.json":                      {Data: []byte("{}")},
		"src/components/index.ts":            {Data: []byte("export {}")},
		"src/logo.svg":                       {Data: []byte("<svg/>")},
		"node_modules/lit/package.json":      {Data: []byte(`{"module": "index.js", "main": "index.cjs"}`)},
		"node_modules/lit/index.js":          {Data: []byte("export {}")},
		"node_modules/lit/index.cjs":         {Data: []byte("module.exports = {}")},
		"node_modules/lit/decorators.js":     {Data: []byte("export {}")},
		"node_modules/plain/index.js":        {Data: []byte("export {}")},
		"node_modules/dir-main/package.json": {Data: []byte(`{"main": "lib"}`)},
		"node_modules/dir-main/lib/index.js": {Data: []byte("export {}")},
	}
}

func TestResolve(t *testing.T) {
	r := New(testFS(), extensions)

	tests := []struct {
		name     string
		from     string
		request  string
		expected string
	}{
		{name: "js wins over ts", from: "src", request: "./util", expected: "src/util.js"},
		{name: "ts when no default extension matches", from: "src", request: "./only", expected: "src/only.ts"},
		{name: "exact file", from: "src", request: "./logo.svg", expected: "src/logo.svg"},
		{name: "json from defaults", from: "src", request: "./data", expected: "src/data.json"},
		{name: "directory index", from: "src", request: "./components", expected: "src/components/index.ts"},
		{name: "parent directory", from: "src/components", request: "../util", expected: "src/util.js"},
		{name: "root relative", from: "src/components", request: "/src/only", expected: "src/only.ts"},
		{name: "package module field", from: "src", request: "lit", expected: "node_modules/lit/index.js"},
		{name: "package subpath", from: "src/components", request: "lit/decorators", expected: "node_modules/lit/decorators.js"},
		{name: "package without manifest", from: "src", request: "plain", expected: "node_modules/plain/index.js"},
		{name: "package main directory", from: "src", request: "dir-main", expected: "node_modules/dir-main/lib/index.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := r.Resolve(tt.from, tt.request)
			require.NoError(t, err)
			require.Equal(t, tt.expected, resolved)
		})
	}
}

func TestResolve_extensionOrder(t *testing.T) {
	// with .ts ahead of the defaults the same request picks the ts file
	r := New(testFS(), []string{".ts", ".js"})

	resolved, err := r.Resolve("src", "./util")
	require.NoError(t, err)
	require.Equal(t, "src/util.ts", resolved)
}

func TestResolve_notFound(t *testing.T) {
	r := New(testFS(), extensions)

	_, err := r.Resolve("src", "./missing")
	require.ErrorIs(t, err, ErrNotResolved)

	_, err = r.Resolve("src", "react")
	require.ErrorIs(t, err, ErrNotResolved)

	// .ts is not in the list so the file is invisible to extensionless imports
	r = New(testFS(), []string{".js"})
	_, err = r.Resolve("src", "./only")
	require.ErrorIs(t, err, ErrNotResolved)
}
