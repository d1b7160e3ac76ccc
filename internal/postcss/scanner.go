package postcss

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
)

var candidatePattern = regexp.MustCompile(`[A-Za-z0-9_:./-]+`)

// Scanner collects class name candidates from content files. Results are
// cached per glob set until Reset is called.
type Scanner struct {
	root string

	mu    sync.Mutex
	cache map[string]scanResult
}

type scanResult struct {
	candidates []string
	files      []string
}

// NewScanner creates a scanner for content globs relative to root.
func NewScanner(root string) *Scanner {
	if root == "" {
		root = "."
	}
	return &Scanner{root: root, cache: make(map[string]scanResult)}
}

// Reset drops cached results so the next scan reads files again.
func (s *Scanner) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
}

// Scan returns the sorted, de-duplicated candidates found in files matching
// patterns, and the files that were read.
func (s *Scanner) Scan(patterns []string) ([]string, []string, error) {
	key := strings.Join(patterns, "\x00")

	s.mu.Lock()
	defer s.mu.Unlock()

	if res, ok := s.cache[key]; ok {
		return res.candidates, res.files, nil
	}

	globs, err := compileGlobs(patterns)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool)
	var files []string

	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && (d.Name() == "node_modules" || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !matchAny(globs, rel) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, path)
		for _, candidate := range candidatePattern.FindAll(data, -1) {
			seen[strings.TrimRight(string(candidate), ".:/")] = true
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	candidates := make([]string, 0, len(seen))
	for candidate := range seen {
		if candidate != "" {
			candidates = append(candidates, candidate)
		}
	}
	slices.Sort(candidates)

	log.Debug().Strs("patterns", patterns).Int("files", len(files)).Int("candidates", len(candidates)).Msg("scanned content")

	s.cache[key] = scanResult{candidates: candidates, files: files}
	return candidates, files, nil
}

// compileGlobs compiles each pattern, plus a variant without "**/" so that
// "src/**/*.ts" also matches files directly inside src.
func compileGlobs(patterns []string) ([]glob.Glob, error) {
	var globs []glob.Glob
	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
		variants := []string{pattern}
		if strings.Contains(pattern, "**/") {
			variants = append(variants, strings.ReplaceAll(pattern, "**/", ""))
		}
		for _, variant := range variants {
			g, err := glob.Compile(variant, '/')
			if err != nil {
				return nil, err
			}
			globs = append(globs, g)
		}
	}
	return globs, nil
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
