// Package debug has helpers producing human readable dumps for debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter produces indented outline, two spaces per level. Enter and
// Leave move between levels.
type TreeWriter struct {
	b     strings.Builder
	depth int
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{}
}

func (tw *TreeWriter) String() string {
	return tw.b.String()
}

// Line writes formatted line at current level.
func (tw *TreeWriter) Line(format string, args ...any) {
	tw.b.WriteString(strings.Repeat("  ", tw.depth))
	fmt.Fprintf(&tw.b, format, args...)
	tw.b.WriteByte('\n')
}

// Enter writes formatted line and makes following lines its children.
func (tw *TreeWriter) Enter(format string, args ...any) {
	tw.Line(format, args...)
	tw.depth++
}

func (tw *TreeWriter) Leave() {
	if tw.depth > 0 {
		tw.depth--
	}
}

// Field writes label with quoted value, so selectors with escapes and
// whitespace are unambiguous.
func (tw *TreeWriter) Field(label, value string) {
	tw.Line("%s: %s", label, quote(value))
}

// List writes label with item count followed by items, one per line.
func (tw *TreeWriter) List(label string, items []string) {
	tw.Enter("%s (%d)", label, len(items))
	for _, item := range items {
		tw.Line("%s", quote(item))
	}
	tw.Leave()
}

func quote(s string) string {
	if s == "" {
		return s
	}
	return strconv.Quote(s)
}
