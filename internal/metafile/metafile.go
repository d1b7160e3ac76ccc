// Package metafile reads the esbuild metafile and answers which output files
// an entry needs.
package metafile

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
)

// ErrEntryNotFound is returned when no output was produced for an entry.
var ErrEntryNotFound = errors.New("entry point not found in metadata")

type Metadata struct {
	Outputs map[string]Output `json:"outputs"`
}

type Output struct {
	EntryPoint string   `json:"entryPoint,omitempty"`
	CSSBundle  string   `json:"cssBundle,omitempty"`
	Imports    []Import `json:"imports"`
	Bytes      int      `json:"bytes"`
}

type Import struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// Parse decodes the metafile JSON returned by a build.
func Parse(data string) (*Metadata, error) {
	var md Metadata
	if err := json.Unmarshal([]byte(data), &md); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}
	return &md, nil
}

// Entry returns the output path and record for the given entry point, which
// is matched against the source path recorded by esbuild.
func (m *Metadata) Entry(entryPoint string) (string, Output, error) {
	want := clean(entryPoint)
	for _, outputPath := range m.sortedOutputs() {
		info := m.Outputs[outputPath]
		if info.EntryPoint != "" && clean(info.EntryPoint) == want && strings.HasSuffix(outputPath, ".js") {
			return outputPath, info, nil
		}
	}
	return "", Output{}, fmt.Errorf("%w: %s", ErrEntryNotFound, entryPoint)
}

// Scripts returns the entry chunk followed by every chunk it statically
// imports, depth first.
func (m *Metadata) Scripts(entryPoint string) ([]string, error) {
	outputPath, info, err := m.Entry(entryPoint)
	if err != nil {
		return nil, err
	}

	scripts := []string{outputPath}
	visited := map[string]bool{outputPath: true}
	m.addDependencies(info, &scripts, visited)
	return scripts, nil
}

func (m *Metadata) addDependencies(output Output, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if imp.Kind != "import-statement" || visited[imp.Path] {
			continue
		}
		visited[imp.Path] = true
		*scripts = append(*scripts, imp.Path)

		if chunk, ok := m.Outputs[imp.Path]; ok {
			m.addDependencies(chunk, scripts, visited)
		}
	}
}

// Styles returns the stylesheet bundled for the entry, if any.
func (m *Metadata) Styles(entryPoint string) ([]string, error) {
	_, info, err := m.Entry(entryPoint)
	if err != nil {
		return nil, err
	}
	if info.CSSBundle == "" {
		return []string{}, nil
	}
	return []string{info.CSSBundle}, nil
}

func (m *Metadata) sortedOutputs() []string {
	paths := make([]string, 0, len(m.Outputs))
	for p := range m.Outputs {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

func clean(p string) string {
	return strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "./")
}
