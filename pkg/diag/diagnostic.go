// Package diag models type-checker diagnostics and prints them in the
// "file(line,col): error TSxxxx: message" format editors know how to link.
package diag

import "strings"

// Category is the severity of a diagnostic
type Category string

const (
	CategoryError   Category = "error"
	CategoryWarning Category = "warning"
	CategoryMessage Category = "message"
)

// Position is a zero-based line and character offset
type Position struct {
	Line      int
	Character int
}

// MessageChain is a message with nested explanations, each level adding detail
type MessageChain struct {
	Text string
	Next []MessageChain
}

// Diagnostic is a single problem reported by the type-checker
type Diagnostic struct {
	// File is the absolute path of the affected file, empty for global diagnostics
	File     string
	Start    *Position
	Code     int
	Category Category
	// MessageText is the structured message of file diagnostics
	MessageText MessageChain
	// Message is the raw text printed for diagnostics without a file
	Message string
}

// HasLocation reports whether the diagnostic points at a position in a file
func (d Diagnostic) HasLocation() bool {
	return d.File != "" && d.Start != nil
}

// Flatten joins the chain depth-first into one string, separating levels with sep
func (m MessageChain) Flatten(sep string) string {
	parts := make([]string, 0, 1+len(m.Next))
	m.collect(&parts)
	return strings.Join(parts, sep)
}

func (m MessageChain) collect(parts *[]string) {
	if m.Text != "" {
		*parts = append(*parts, m.Text)
	}

	for _, next := range m.Next {
		next.collect(parts)
	}
}
