// Package targets turns browserslist-style queries such as "chrome >= 87"
// into the esbuild engine list output is compiled down to.
package targets

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// ErrInvalidQuery is returned for queries that can't be mapped to an engine.
var ErrInvalidQuery = errors.New("invalid target query")

var browsers = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"and_chr": api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ff":      api.EngineFirefox,
	"safari":  api.EngineSafari,
	"ios":     api.EngineIOS,
	"ios_saf": api.EngineIOS,
	"opera":   api.EngineOpera,
	"node":    api.EngineNode,
	"ie":      api.EngineIE,
}

var engineNames = map[api.EngineName]string{
	api.EngineChrome:  "chrome",
	api.EngineEdge:    "edge",
	api.EngineFirefox: "firefox",
	api.EngineSafari:  "safari",
	api.EngineIOS:     "ios",
	api.EngineOpera:   "opera",
	api.EngineNode:    "node",
	api.EngineIE:      "ie",
}

// Targets maps an engine to the minimum version the output must run on.
type Targets map[api.EngineName]string

// Parse parses a list of queries. Supported forms are "<browser> >= <ver>",
// "<browser> > <ver>" and "<browser> <ver>".
func Parse(queries []string) (Targets, error) {
	t := Targets{}
	for _, query := range queries {
		engine, version, err := parseQuery(query)
		if err != nil {
			return nil, err
		}
		t.add(engine, version)
	}
	return t, nil
}

// MustParse is like Parse but panics on error.
func MustParse(queries []string) Targets {
	t, err := Parse(queries)
	if err != nil {
		panic(err)
	}
	return t
}

func parseQuery(query string) (api.EngineName, string, error) {
	var unknown api.EngineName
	fields := strings.Fields(strings.ToLower(query))

	var name, op, version string
	switch len(fields) {
	case 2:
		name, op, version = fields[0], ">=", fields[1]
	case 3:
		name, op, version = fields[0], fields[1], fields[2]
	default:
		return unknown, "", fmt.Errorf("%w: %q", ErrInvalidQuery, query)
	}

	engine, ok := browsers[name]
	if !ok {
		return unknown, "", fmt.Errorf("%w: unknown browser %q in %q", ErrInvalidQuery, name, query)
	}

	parts, err := parseVersion(version)
	if err != nil {
		return unknown, "", fmt.Errorf("%w: %q: %w", ErrInvalidQuery, query, err)
	}

	switch op {
	case ">=":
	case ">":
		// next major
		parts = []int{parts[0] + 1}
	default:
		return unknown, "", fmt.Errorf("%w: unsupported operator %q in %q", ErrInvalidQuery, op, query)
	}

	return engine, formatVersion(parts), nil
}

func (t Targets) add(engine api.EngineName, version string) {
	if existing, ok := t[engine]; ok && compareVersions(existing, version) <= 0 {
		return
	}
	t[engine] = version
}

// Merge combines target sets. Where more than one set names the same engine
// the lowest version wins, so the result satisfies every input baseline.
func Merge(sets ...Targets) Targets {
	out := Targets{}
	for _, set := range sets {
		for engine, version := range set {
			out.add(engine, version)
		}
	}
	return out
}

// Engines returns the esbuild engine list ordered by engine name.
func (t Targets) Engines() []api.Engine {
	engines := make([]api.Engine, 0, len(t))
	for engine, version := range t {
		engines = append(engines, api.Engine{Name: engine, Version: version})
	}
	slices.SortFunc(engines, func(a, b api.Engine) int {
		return strings.Compare(engineNames[a.Name], engineNames[b.Name])
	})
	return engines
}

func (t Targets) String() string {
	parts := make([]string, 0, len(t))
	for _, engine := range t.Engines() {
		parts = append(parts, engineNames[engine.Name]+engine.Version)
	}
	return strings.Join(parts, ",")
}

func parseVersion(version string) ([]int, error) {
	fields := strings.Split(version, ".")
	parts := make([]int, 0, len(fields))
	for _, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad version %q", version)
		}
		parts = append(parts, n)
	}
	return parts, nil
}

func formatVersion(parts []int) string {
	fields := make([]string, 0, len(parts))
	for _, part := range parts {
		fields = append(fields, strconv.Itoa(part))
	}
	return strings.Join(fields, ".")
}

// compareVersions compares two dotted versions numerically; missing
// components count as zero.
func compareVersions(a, b string) int {
	pa, _ := parseVersion(a)
	pb, _ := parseVersion(b)
	for i := 0; i < max(len(pa), len(pb)); i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		if x != y {
			return x - y
		}
	}
	return 0
}
