package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)
	require.Equal(t, zerolog.InfoLevel, log.GetLevel())

	log.Debug().Msg("hidden")
	require.Zero(t, buf.Len())

	log.Info().Str("file", "main.js").Msg("built file")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	require.Equal(t, "built file", event["message"])
	require.Equal(t, "main.js", event["file"])
	require.Contains(t, event, "time")
}

func TestNew_dev(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, true)
	require.Equal(t, zerolog.DebugLevel, log.GetLevel())

	log.Debug().Str("dir", "dist").Msg("watching")
	require.Contains(t, buf.String(), "watching")
	require.Contains(t, buf.String(), "dir=")
}
