package watch

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rotisserie/eris"
)

// Matcher decides which paths below root are relevant. A path matches if it matches
// any include pattern and none of the exclude patterns.
type Matcher struct {
	root    string
	include []string
	exclude []string
}

// NewMatcher validates the patterns. Patterns use forward slashes and are relative to root.
func NewMatcher(root string, include, exclude []string) (*Matcher, error) {
	if len(include) == 0 {
		return nil, eris.New("at least one include pattern is required")
	}

	for _, list := range [][]string{include, exclude} {
		for _, pattern := range list {
			if !doublestar.ValidatePattern(pattern) {
				return nil, eris.Errorf("invalid pattern %s", pattern)
			}
		}
	}

	return &Matcher{
		root:    filepath.Clean(root),
		include: include,
		exclude: exclude,
	}, nil
}

func (m *Matcher) relative(path string) (string, bool) {
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(m.root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", false
		}
		path = rel
	}

	return filepath.ToSlash(path), true
}

// Match reports whether path (absolute or relative to root) is watched
func (m *Matcher) Match(path string) bool {
	rel, ok := m.relative(path)
	if !ok {
		return false
	}

	for _, pattern := range m.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}

	for _, pattern := range m.include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}

	return false
}

// Roots returns the directories that have to be watched recursively, i.e. the static
// prefix of every include pattern
func (m *Matcher) Roots() []string {
	seen := map[string]bool{}
	for _, pattern := range m.include {
		base, _ := doublestar.SplitPattern(pattern)
		if base == "." || base == "" {
			base = ""
		}

		seen[filepath.Join(m.root, filepath.FromSlash(base))] = true
	}

	// drop roots that are nested in other roots
	roots := make([]string, 0, len(seen))
	for dir := range seen {
		nested := false
		for other := range seen {
			if other != dir && strings.HasPrefix(dir, other+string(filepath.Separator)) {
				nested = true
				break
			}
		}

		if !nested {
			roots = append(roots, dir)
		}
	}

	sort.Strings(roots)
	return roots
}
