// Package resolve reproduces the bundler's import resolution so a project
// can check which file an extensionless import ends up at.
package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// ErrNotResolved is returned when no file matches a request.
var ErrNotResolved = errors.New("could not resolve")

// DefaultMainFields are the package.json fields consulted, in order, for a
// package's entry file.
var DefaultMainFields = []string{"browser", "module", "main"}

// Resolver resolves import requests against a file system using an ordered
// extension list.
type Resolver struct {
	fsys       fs.FS
	extensions []string
	mainFields []string
}

// New creates a resolver. Paths passed to Resolve and returned from it are
// slash separated and relative to the root of fsys.
func New(fsys fs.FS, extensions []string) *Resolver {
	return &Resolver{
		fsys:       fsys,
		extensions: extensions,
		mainFields: DefaultMainFields,
	}
}

// Resolve finds the file a request made from fromDir refers to. Relative
// requests are tried as a file, then with each extension in order, then as
// a directory; bare requests are looked up in node_modules directories from
// fromDir up to the root.
func (r *Resolver) Resolve(fromDir, request string) (string, error) {
	fromDir = clean(fromDir)

	if isRelative(request) {
		target := clean(path.Join(fromDir, request))
		if strings.HasPrefix(request, "/") {
			target = clean(request)
		}
		if p, ok := r.loadAsFile(target); ok {
			return p, nil
		}
		if p, ok := r.loadAsDirectory(target); ok {
			return p, nil
		}
		return "", fmt.Errorf("%w: %q from %q", ErrNotResolved, request, fromDir)
	}

	for dir := fromDir; ; dir = path.Dir(dir) {
		target := path.Join(dir, "node_modules", request)
		if p, ok := r.loadAsFile(target); ok {
			return p, nil
		}
		if p, ok := r.loadAsDirectory(target); ok {
			return p, nil
		}
		if dir == "." {
			break
		}
	}

	return "", fmt.Errorf("%w: %q from %q", ErrNotResolved, request, fromDir)
}

// Extensions returns the ordered extension list.
func (r *Resolver) Extensions() []string {
	return r.extensions
}

func (r *Resolver) loadAsFile(p string) (string, bool) {
	if r.isFile(p) {
		return p, true
	}
	for _, ext := range r.extensions {
		if r.isFile(p + ext) {
			return p + ext, true
		}
	}
	return "", false
}

func (r *Resolver) loadAsDirectory(p string) (string, bool) {
	if !r.isDir(p) {
		return "", false
	}

	if main := r.packageMain(p); main != "" {
		target := clean(path.Join(p, main))
		if file, ok := r.loadAsFile(target); ok {
			return file, true
		}
		if file, ok := r.loadIndex(target); ok {
			return file, true
		}
	}

	return r.loadIndex(p)
}

func (r *Resolver) loadIndex(dir string) (string, bool) {
	for _, ext := range r.extensions {
		index := path.Join(dir, "index"+ext)
		if r.isFile(index) {
			return index, true
		}
	}
	return "", false
}

func (r *Resolver) packageMain(dir string) string {
	data, err := fs.ReadFile(r.fsys, path.Join(dir, "package.json"))
	if err != nil {
		return ""
	}

	var pkg map[string]any
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}

	for _, field := range r.mainFields {
		if main, ok := pkg[field].(string); ok && main != "" {
			return main
		}
	}
	return ""
}

func (r *Resolver) isFile(p string) bool {
	st, err := fs.Stat(r.fsys, p)
	return err == nil && !st.IsDir()
}

func (r *Resolver) isDir(p string) bool {
	st, err := fs.Stat(r.fsys, p)
	return err == nil && st.IsDir()
}

func isRelative(request string) bool {
	return request == "." || request == ".." ||
		strings.HasPrefix(request, "./") ||
		strings.HasPrefix(request, "../") ||
		strings.HasPrefix(request, "/")
}

func clean(p string) string {
	p = path.Clean(strings.TrimPrefix(p, "/"))
	if p == "" || p == "/" {
		return "."
	}
	return p
}
