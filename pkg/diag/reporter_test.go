package diag

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
)

func TestFormatLocated(t *testing.T) {
	tests := []struct {
		name string
		diag Diagnostic
		want string
	}{
		{
			name: "simple",
			diag: Diagnostic{
				File:        "/p/src/a.ts",
				Start:       &Position{Line: 0, Character: 4},
				Code:        2322,
				MessageText: MessageChain{Text: "Type 'string' is not assignable to type 'number'."},
			},
			want: "[typescript] /p/src/a.ts(1,4): error TS2322: Type 'string' is not assignable to type 'number'.",
		},
		{
			name: "chain",
			diag: Diagnostic{
				File:  "/p/src/b.ts",
				Start: &Position{Line: 41, Character: 0},
				Code:  2345,
				MessageText: MessageChain{
					Text: "Argument is not assignable.",
					Next: []MessageChain{
						{Text: "Types of property 'x' are incompatible.", Next: []MessageChain{{Text: "Type 'A' is not 'B'."}}},
					},
				},
			},
			want: "[typescript] /p/src/b.ts(42,0): error TS2345: Argument is not assignable. Types of property 'x' are incompatible. Type 'A' is not 'B'.",
		},
		{
			name: "embedded newline",
			diag: Diagnostic{
				File:        "/p/src/[id].ts",
				Start:       &Position{Line: 9, Character: 2},
				Code:        1005,
				MessageText: MessageChain{Text: "first\nsecond"},
			},
			want: "[typescript] /p/src/[id].ts(10,2): error TS1005: first second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.diag)
			if got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
			if strings.Contains(got, "\n") {
				t.Error("formatted diagnostic spans multiple lines")
			}
		})
	}
}

func TestFormatLineIsOneBased(t *testing.T) {
	for _, line := range []int{0, 1, 7, 999} {
		d := Diagnostic{
			File:        "/x.ts",
			Start:       &Position{Line: line, Character: 3},
			Code:        7006,
			MessageText: MessageChain{Text: "msg"},
		}

		got := Format(d)
		if !strings.Contains(got, "error TS7006:") {
			t.Errorf("%q doesn't contain the error code", got)
		}

		wantPos := "/x.ts(" + strconv.Itoa(line+1) + ",3)"
		if !strings.Contains(got, wantPos) {
			t.Errorf("%q doesn't contain %q", got, wantPos)
		}
	}
}

func TestFormatWithoutLocation(t *testing.T) {
	tests := []Diagnostic{
		{Message: "error TS5083: Cannot read file '/p/tsconfig.json'.", Code: 5083},
		{Message: "something odd happened", Category: CategoryMessage},
		// a file without a position is printed verbatim as well
		{File: "/p/a.ts", Message: "raw text", Code: 1},
	}

	for _, d := range tests {
		if got := Format(d); got != d.Message {
			t.Errorf("Format() = %q, want %q", got, d.Message)
		}
	}
}

func TestReporterCountsErrors(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out, false)

	r.ReportAll([]Diagnostic{
		{File: "/a.ts", Start: &Position{}, Code: 1, Category: CategoryError, MessageText: MessageChain{Text: "one"}},
		{Message: "note", Category: CategoryMessage},
		{Message: "error TS6053: File not found.", Category: CategoryError, Code: 6053},
	})

	if r.Errors != 2 {
		t.Errorf("Errors = %d, want 2", r.Errors)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), out.String())
	}
	if lines[1] != "note" {
		t.Errorf("second line = %q, want note", lines[1])
	}
}

func TestReporterColor(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out, true)
	r.Report(Diagnostic{File: "/a.ts", Start: &Position{Line: 2, Character: 1}, Code: 42, MessageText: MessageChain{Text: "bad"}})

	got := out.String()
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("expected ANSI escape codes in %q", got)
	}
	if !strings.Contains(got, "/a.ts(3,1): ") || !strings.Contains(got, "error TS42: bad") {
		t.Errorf("unexpected output %q", got)
	}
}
