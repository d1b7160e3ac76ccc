package targets

import (
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/require"
)

func TestParse_baseline(t *testing.T) {
	tgts, err := Parse([]string{"chrome >= 87", "edge >= 88", "firefox >= 78", "safari >= 14"})
	require.NoError(t, err)

	require.Equal(t, []api.Engine{
		{Name: api.EngineChrome, Version: "87"},
		{Name: api.EngineEdge, Version: "88"},
		{Name: api.EngineFirefox, Version: "78"},
		{Name: api.EngineSafari, Version: "14"},
	}, tgts.Engines())
	require.Equal(t, "chrome87,edge88,firefox78,safari14", tgts.String())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		engine   api.EngineName
		version  string
		wantErr  bool
		errorMsg string
	}{
		{name: "greater or equal", query: "chrome >= 87", engine: api.EngineChrome, version: "87"},
		{name: "bare version", query: "firefox 78", engine: api.EngineFirefox, version: "78"},
		{name: "greater than", query: "safari > 14", engine: api.EngineSafari, version: "15"},
		{name: "minor version", query: "ios_saf >= 14.5", engine: api.EngineIOS, version: "14.5"},
		{name: "mixed case", query: "Chrome >= 90", engine: api.EngineChrome, version: "90"},
		{name: "unknown browser", query: "netscape >= 4", wantErr: true, errorMsg: "unknown browser"},
		{name: "unknown operator", query: "chrome <= 87", wantErr: true, errorMsg: "unsupported operator"},
		{name: "bad version", query: "chrome >= latest", wantErr: true, errorMsg: "bad version"},
		{name: "too many fields", query: "last 2 chrome versions", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tgts, err := Parse([]string{tt.query})
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidQuery)
				if tt.errorMsg != "" {
					require.Contains(t, err.Error(), tt.errorMsg)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.version, tgts[tt.engine])
		})
	}
}

func TestParse_duplicateKeepsLowest(t *testing.T) {
	tgts, err := Parse([]string{"chrome >= 90", "chrome >= 87", "chrome >= 100"})
	require.NoError(t, err)
	require.Equal(t, Targets{api.EngineChrome: "87"}, tgts)
}

func TestMerge(t *testing.T) {
	a := MustParse([]string{"chrome >= 87", "safari >= 14"})
	b := MustParse([]string{"chrome >= 80", "firefox >= 78", "safari >= 14.1"})

	merged := Merge(a, b)
	require.Equal(t, Targets{
		api.EngineChrome:  "80",
		api.EngineFirefox: "78",
		api.EngineSafari:  "14",
	}, merged)

	// inputs are untouched
	require.Equal(t, "87", a[api.EngineChrome])
}

func TestCompareVersions(t *testing.T) {
	require.Zero(t, compareVersions("14", "14.0"))
	require.Negative(t, compareVersions("14", "14.1"))
	require.Positive(t, compareVersions("100", "99"))
}
