// Package diag turns esbuild messages into errors and log events.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Format renders a message as "file:line:col: text".
func Format(msg api.Message) string {
	text := strings.TrimSpace(msg.Text)
	if msg.PluginName != "" {
		text = "[" + msg.PluginName + "] " + text
	}
	if msg.Location == nil {
		return text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, text)
}

// Error joins msgs into one error, or returns nil when there are none.
func Error(msgs []api.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	errs := make([]error, 0, len(msgs))
	for _, msg := range msgs {
		errs = append(errs, errors.New(Format(msg)))
	}
	return errors.Join(errs...)
}

// Log writes each message as a structured event at level.
func Log(level zerolog.Level, msgs []api.Message) {
	for _, msg := range msgs {
		ev := log.WithLevel(level).Str("text", strings.TrimSpace(msg.Text))
		if msg.PluginName != "" {
			ev = ev.Str("plugin", msg.PluginName)
		}
		if loc := msg.Location; loc != nil {
			ev = ev.Str("file", loc.File).Int("line", loc.Line).Int("column", loc.Column)
		}
		ev.Msg("esbuild")
	}
}
