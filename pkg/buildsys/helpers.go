package buildsys

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rotisserie/eris"
)

// NormalizePath joins pathList onto base. Paths starting with // are relative to projectRoot.
func NormalizePath(projectRoot, base string, pathList ...string) string {
	result := base

	for _, path := range pathList {
		if strings.HasPrefix(path, "//") {
			result = filepath.Join(projectRoot, path[2:])
		} else if !filepath.IsAbs(path) {
			result = filepath.Join(result, path)
		} else {
			result = path
		}
	}

	return filepath.Clean(result)
}

// HasGlob reports whether pattern contains any glob meta characters
func HasGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

func getEnvVars(envOverrides map[string]string) []string {
	osEnv := os.Environ()
	shellEnv := make([]string, 0, len(osEnv)+len(envOverrides))
	for _, item := range osEnv {
		parts := strings.SplitN(item, "=", 2)
		if runtime.GOOS == "windows" {
			parts[0] = strings.ToUpper(parts[0])
		}

		// skip overriden entries to avoid conflicts
		if _, present := envOverrides[parts[0]]; !present {
			shellEnv = append(shellEnv, item)
		}
	}

	for k, v := range envOverrides {
		shellEnv = append(shellEnv, fmt.Sprintf("%s=%s", k, v))
	}

	return shellEnv
}

// splitPattern separates the directory a pattern is relative to from the part that is globbed.
// Only absolute patterns are split at their first meta character.
func splitPattern(projectRoot, base, pattern string) (string, string) {
	switch {
	case strings.HasPrefix(pattern, "//"):
		return projectRoot, pattern[2:]
	case filepath.IsAbs(pattern):
		dir, rest := doublestar.SplitPattern(filepath.ToSlash(pattern))
		return filepath.FromSlash(dir), rest
	default:
		return base, filepath.ToSlash(pattern)
	}
}

// hiddenMatch reports whether match descends into a dot entry the pattern didn't ask for
func hiddenMatch(pattern, match string) bool {
	if strings.HasPrefix(pattern, ".") || strings.Contains(pattern, "/.") {
		return false
	}

	for _, part := range strings.Split(match, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// ResolvePatterns expands the given glob patterns (with ** support) relative to base.
// Patterns that don't match anything are dropped; literal paths are returned as-is.
// Only the pattern itself is globbed, meta characters in base or projectRoot are taken literally.
// Like a POSIX shell, wildcards don't match names starting with a dot.
func ResolvePatterns(projectRoot, base string, patterns []string) ([]string, error) {
	result := []string{}

	for _, item := range patterns {
		dir, pattern := splitPattern(projectRoot, base, item)

		if !HasGlob(pattern) {
			result = append(result, NormalizePath(projectRoot, dir, filepath.FromSlash(pattern)))
			continue
		}

		pattern = path.Clean(pattern)
		if !doublestar.ValidatePattern(pattern) {
			return nil, eris.Errorf("Failed to parse pattern %s", item)
		}

		matches, err := doublestar.Glob(os.DirFS(dir), pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "Failed to resolve pattern %s", item)
		}

		for _, match := range matches {
			if hiddenMatch(pattern, match) {
				continue
			}
			result = append(result, filepath.Join(dir, filepath.FromSlash(match)))
		}
	}
	return result, nil
}
