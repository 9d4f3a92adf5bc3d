package export

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"

	"canvasx/utils/debug"
)

// Block is the exported text of a single canvas.
type Block struct {
	Index  int    // 1-based canvas position
	Markup string // formatted wrapper markup, empty when export failed
	Err    error  // why canvas could not be exported

	// what went into the style block, kept for debug dumps
	Classes     []string
	Synthesized []string
	Retained    []string
}

// String returns block text: label comment followed by markup.
func (b *Block) String() string {
	if b.Err != nil {
		return fmt.Sprintf("<!-- Canvas %d: export failed: %s -->\n", b.Index, commentSafe(b.Err.Error()))
	}
	return fmt.Sprintf("<!-- Canvas %d -->\n%s\n", b.Index, b.Markup)
}

// commentSafe makes text usable inside html comment.
func commentSafe(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "- -")
	}
	return s
}

// Document is the export result: canvas blocks in document order.
type Document struct {
	Blocks []*Block
}

// String returns complete document text with blocks separated by an empty
// line.
func (d *Document) String() string {
	parts := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

// WriteTo writes document text to w, implementing io.WriterTo.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, d.String())
	return int64(n), err
}

// Err returns combined errors of all failed canvases, nil when every canvas
// was exported.
func (d *Document) Err() error {
	var err error
	for _, b := range d.Blocks {
		if b.Err != nil {
			err = multierr.Append(err, fmt.Errorf("canvas %d: %w", b.Index, b.Err))
		}
	}
	return err
}

// Failed returns number of canvases which could not be exported.
func (d *Document) Failed() int {
	return len(multierr.Errors(d.Err()))
}

// Dump produces human readable description of what was exported.
func (d *Document) Dump() string {
	tw := debug.NewTreeWriter()
	tw.Enter("document: %d canvas(es), %d failed", len(d.Blocks), d.Failed())
	for _, b := range d.Blocks {
		tw.Enter("canvas %d", b.Index)
		if b.Err != nil {
			tw.Field("error", b.Err.Error())
		} else {
			tw.List("classes", b.Classes)
			tw.List("synthesized", b.Synthesized)
			tw.List("retained", b.Retained)
		}
		tw.Leave()
	}
	return tw.String()
}
