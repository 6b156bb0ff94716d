package diag

import (
	"bufio"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// src/foo.ts(12,5): error TS2322: Type 'string' is not assignable to type 'number'.
	fileDiagPattern = regexp.MustCompile(`^(.+)\((\d+),(\d+)\):\s*(error|warning|message)\s+TS(\d+):\s*(.*)$`)
	// error TS5083: Cannot read file 'tsconfig.json'.
	globalDiagPattern = regexp.MustCompile(`^(error|warning|message)\s+TS(\d+):\s*(.*)$`)
)

type chainBuilder struct {
	diag  *Diagnostic
	stack []*MessageChain
}

func (b *chainBuilder) add(depth int, text string) {
	parentIdx := depth - 1
	if parentIdx >= len(b.stack) {
		parentIdx = len(b.stack) - 1
	}

	parent := b.stack[parentIdx]
	parent.Next = append(parent.Next, MessageChain{Text: text})
	b.stack = append(b.stack[:parentIdx+1], &parent.Next[len(parent.Next)-1])
}

// Parse reads the output of `tsc --pretty false` and returns the diagnostics in order.
// Relative file names are resolved against baseDir.
func Parse(r io.Reader, baseDir string) ([]Diagnostic, error) {
	result := make([]Diagnostic, 0)
	var current *chainBuilder
	var global *Diagnostic

	flush := func() {
		if current != nil {
			result = append(result, *current.diag)
			current = nil
		}
		if global != nil {
			result = append(result, *global)
			global = nil
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.HasPrefix(line, " ") && (current != nil || global != nil) {
			trimmed := strings.TrimLeft(line, " ")
			if current != nil {
				depth := (len(line) - len(trimmed)) / 2
				if depth < 1 {
					depth = 1
				}
				current.add(depth, trimmed)
			} else {
				global.Message += "\n" + line
			}
			continue
		}

		flush()

		if m := fileDiagPattern.FindStringSubmatch(line); m != nil {
			lineNo, _ := strconv.Atoi(m[2])
			col, _ := strconv.Atoi(m[3])
			code, _ := strconv.Atoi(m[5])

			file := filepath.FromSlash(m[1])
			if !filepath.IsAbs(file) && baseDir != "" {
				file = filepath.Join(baseDir, file)
			}

			d := &Diagnostic{
				File: file,
				Start: &Position{
					Line:      toZeroBased(lineNo),
					Character: toZeroBased(col),
				},
				Code:        code,
				Category:    Category(m[4]),
				MessageText: MessageChain{Text: m[6]},
				Message:     line,
			}
			current = &chainBuilder{diag: d, stack: []*MessageChain{&d.MessageText}}
			continue
		}

		if m := globalDiagPattern.FindStringSubmatch(line); m != nil {
			code, _ := strconv.Atoi(m[2])
			global = &Diagnostic{
				Code:        code,
				Category:    Category(m[1]),
				MessageText: MessageChain{Text: m[3]},
				Message:     line,
			}
			continue
		}

		// anything else (e.g. a crash message) is passed through as an informational line
		result = append(result, Diagnostic{
			Category: CategoryMessage,
			Message:  line,
		})
	}

	flush()

	if err := scanner.Err(); err != nil {
		return result, eris.Wrap(err, "failed to read type-checker output")
	}

	return result, nil
}

func toZeroBased(n int) int {
	if n > 0 {
		return n - 1
	}
	return 0
}
