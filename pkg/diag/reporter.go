package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/colorstring"
)

// Reporter prints diagnostics, one line each
type Reporter struct {
	out       io.Writer
	colorizer colorstring.Colorize
	// Errors counts the reported diagnostics of category error
	Errors int
}

// NewReporter returns a reporter writing to out
func NewReporter(out io.Writer, color bool) *Reporter {
	return &Reporter{
		out: out,
		colorizer: colorstring.Colorize{
			Colors:  colorstring.DefaultColors,
			Disable: !color,
		},
	}
}

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ")

// Format renders a diagnostic without colors
func Format(d Diagnostic) string {
	return format(d, colorstring.Colorize{Colors: colorstring.DefaultColors, Disable: true})
}

func format(d Diagnostic, c colorstring.Colorize) string {
	if !d.HasLocation() {
		return d.Message
	}

	// file names go around the colorizer, it would eat bracketed path segments
	message := newlines.Replace(d.MessageText.Flatten(" "))
	return c.Color("[dark_gray]") + "[typescript]" + c.Color("[reset]") + " " +
		c.Color("[red]") + fmt.Sprintf("%s(%d,%d): ", d.File, d.Start.Line+1, d.Start.Character) + c.Color("[reset]") +
		fmt.Sprintf("error TS%d: %s", d.Code, message)
}

// Report prints a single diagnostic
func (r *Reporter) Report(d Diagnostic) {
	if d.Category == CategoryError || d.Category == "" {
		r.Errors++
	}

	fmt.Fprintln(r.out, format(d, r.colorizer))
}

// ReportAll prints every diagnostic in order
func (r *Reporter) ReportAll(diags []Diagnostic) {
	for _, d := range diags {
		r.Report(d)
	}
}
