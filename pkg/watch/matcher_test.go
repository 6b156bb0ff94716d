package watch

import (
	"path/filepath"
	"testing"
)

func TestMatcher(t *testing.T) {
	root := filepath.FromSlash("/project")
	m, err := NewMatcher(root, []string{"src/**/*.ts"}, []string{"src/view/**/*.ts"})
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"src/extension.ts", true},
		{"src/common/deep/file.ts", true},
		{"src/view/app.ts", false},
		{"src/view/nested/comp.ts", false},
		{"src/extension.js", false},
		{"test/a.ts", false},
		{filepath.FromSlash("/project/src/a.ts"), true},
		{filepath.FromSlash("/project/src/view/a.ts"), false},
		{filepath.FromSlash("/elsewhere/src/a.ts"), false},
	}

	for _, tt := range tests {
		if got := m.Match(tt.path); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMatcherInvalid(t *testing.T) {
	if _, err := NewMatcher("/p", nil, nil); err == nil {
		t.Error("expected error without include patterns")
	}

	if _, err := NewMatcher("/p", []string{"src/[.ts"}, nil); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestMatcherRoots(t *testing.T) {
	root := filepath.FromSlash("/project")
	m, err := NewMatcher(root, []string{"src/**/*.ts", "src/common/*.json", "test/*.ts"}, nil)
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}

	roots := m.Roots()
	want := []string{filepath.Join(root, "src"), filepath.Join(root, "test")}
	if len(roots) != len(want) {
		t.Fatalf("Roots() = %v, want %v", roots, want)
	}
	for i := range want {
		if roots[i] != want[i] {
			t.Errorf("Roots()[%d] = %q, want %q", i, roots[i], want[i])
		}
	}
}
