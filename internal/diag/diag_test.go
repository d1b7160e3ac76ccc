package diag

import (
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		msg      api.Message
		expected string
	}{
		{
			name:     "with location",
			msg:      api.Message{Text: "Unexpected \"}\"", Location: &api.Location{File: "src/a.ts", Line: 3, Column: 7}},
			expected: "src/a.ts:3:7: Unexpected \"}\"",
		},
		{
			name:     "plugin without location",
			msg:      api.Message{Text: "boom\n", PluginName: "frontbuild-rules"},
			expected: "[frontbuild-rules] boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Format(tt.msg))
		})
	}
}

func TestError(t *testing.T) {
	require.NoError(t, Error(nil))

	err := Error([]api.Message{{Text: "one"}, {Text: "two"}})
	require.Error(t, err)
	require.Equal(t, "one\ntwo", err.Error())
}
