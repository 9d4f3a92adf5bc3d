package css

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInaccessible is returned (wrapped) by Sheet.Rules when sheet content
// cannot be enumerated: remote or cross-origin sheets, unreadable files.
var ErrInaccessible = errors.New("style sheet is not accessible")

// Rule is a plain style rule: selector text and the complete rule text in
// "selector { property: value; }" form.
type Rule struct {
	Selector string // Selector text as written, may be a selector list
	Text     string // Verbatim rule text
}

// Group is a conditional group rule (@media, @supports, @layer, @container)
// holding nested items.
type Group struct {
	Prelude string // At-rule with its condition, e.g. "@media (min-width: 640px)"
	Items   []StylesheetItem
}

// Text returns group text wrapping all nested rules.
func (g *Group) Text() string {
	var sb strings.Builder
	sb.WriteString(g.Prelude)
	sb.WriteString(" {")
	for _, item := range g.Items {
		switch {
		case item.Rule != nil:
			sb.WriteString(" ")
			sb.WriteString(item.Rule.Text)
		case item.Group != nil:
			sb.WriteString(" ")
			sb.WriteString(item.Group.Text())
		}
	}
	sb.WriteString(" }")
	return sb.String()
}

// StylesheetItem is a single item in a stylesheet.
// Exactly one of Rule, Group, or Import is non-nil.
type StylesheetItem struct {
	Rule   *Rule   // A plain rule
	Group  *Group  // A conditional group containing nested items
	Import *string // An @import URL
}

// Sheet is a single style sheet in a rule source. Access to its rules may
// fail, for example when sheet comes from another origin.
type Sheet interface {
	// Name identifies sheet in logs: href, file name or "inline #N".
	Name() string
	// Rules returns sheet items in source order.
	Rules() ([]StylesheetItem, error)
}

// Source is ordered collection of style sheets in effect for a document.
type Source []Sheet

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Href     string           // Where stylesheet came from
	Items    []StylesheetItem // All top-level items in source order
	Warnings []string         // Warnings for unsupported features
}

// Name implements Sheet.
func (s *Stylesheet) Name() string {
	return s.Href
}

// Rules implements Sheet.
func (s *Stylesheet) Rules() ([]StylesheetItem, error) {
	return s.Items, nil
}

// Imports returns all @import URLs from the stylesheet in source order.
func (s *Stylesheet) Imports() []string {
	var urls []string
	for _, item := range s.Items {
		if item.Import != nil {
			urls = append(urls, *item.Import)
		}
	}
	return urls
}

// WriteTo writes the stylesheet to w in source order, one item per line,
// implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, item := range s.Items {
		var (
			n   int
			err error
		)
		switch {
		case item.Import != nil:
			n, err = fmt.Fprintf(w, "@import url(\"%s\");\n", cssEscapeDoubleQuoted(*item.Import))
		case item.Group != nil:
			n, err = fmt.Fprintln(w, item.Group.Text())
		case item.Rule != nil:
			n, err = fmt.Fprintln(w, item.Rule.Text)
		}
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// Inaccessible is a sheet whose rules cannot be read.
type Inaccessible struct {
	Href  string
	Cause error
}

// Name implements Sheet.
func (s *Inaccessible) Name() string {
	return s.Href
}

// Rules implements Sheet, always failing.
func (s *Inaccessible) Rules() ([]StylesheetItem, error) {
	if s.Cause != nil {
		return nil, fmt.Errorf("%s: %w: %w", s.Href, ErrInaccessible, s.Cause)
	}
	return nil, fmt.Errorf("%s: %w", s.Href, ErrInaccessible)
}

// cssEscapeDoubleQuoted escapes a string for use inside CSS double quotes.
// Backslashes and double quotes are escaped per CSS syntax: \" and \\.
func cssEscapeDoubleQuoted(s string) string {
	// Fast path: nothing to escape.
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
