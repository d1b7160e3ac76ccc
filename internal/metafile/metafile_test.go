package metafile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `{
  "inputs": {},
  "outputs": {
    "dist/main.js": {
      "entryPoint": "src/index.ts",
      "cssBundle": "dist/main.css",
      "imports": [
        {"path": "dist/chunk-A.js", "kind": "import-statement"},
        {"path": "dist/assets/logo-X.svg", "kind": "file-loader"},
        {"path": "dist/lazy-B.js", "kind": "dynamic-import"}
      ],
      "bytes": 120
    },
    "dist/admin.js": {
      "entryPoint": "src/admin.ts",
      "imports": [{"path": "dist/chunk-A.js", "kind": "import-statement"}],
      "bytes": 80
    },
    "dist/chunk-A.js": {
      "imports": [{"path": "dist/chunk-C.js", "kind": "import-statement"}],
      "bytes": 40
    },
    "dist/chunk-C.js": {"imports": [], "bytes": 10},
    "dist/main.css": {"entryPoint": "src/index.ts", "imports": [], "bytes": 30}
  }
}`

func TestScripts(t *testing.T) {
	md, err := Parse(sample)
	require.NoError(t, err)

	tests := []struct {
		name       string
		entryPoint string
		expected   []string
	}{
		{name: "entry with chunks", entryPoint: "./src/index.ts", expected: []string{"dist/main.js", "dist/chunk-A.js", "dist/chunk-C.js"}},
		{name: "shared chunk", entryPoint: "src/admin.ts", expected: []string{"dist/admin.js", "dist/chunk-A.js", "dist/chunk-C.js"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scripts, err := md.Scripts(tt.entryPoint)
			require.NoError(t, err)
			require.Equal(t, tt.expected, scripts)
		})
	}
}

func TestStyles(t *testing.T) {
	md, err := Parse(sample)
	require.NoError(t, err)

	styles, err := md.Styles("src/index.ts")
	require.NoError(t, err)
	require.Equal(t, []string{"dist/main.css"}, styles)

	styles, err = md.Styles("src/admin.ts")
	require.NoError(t, err)
	require.Empty(t, styles)
}

func TestEntry_notFound(t *testing.T) {
	md, err := Parse(sample)
	require.NoError(t, err)

	_, err = md.Scripts("src/missing.ts")
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestParse_invalid(t *testing.T) {
	_, err := Parse("{")
	require.Error(t, err)
}
