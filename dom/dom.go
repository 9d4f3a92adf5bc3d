// Package dom is a thin element view over golang.org/x/net/html parse trees.
// It gives the exporter what it needs from a document: class tokens, element
// children, selector queries, detached deep copies and serialization.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element wraps a single html node. Document nodes are allowed as query
// roots, everything else is expected to be an element node.
type Element struct {
	node *html.Node
}

// Wrap returns Element for the node, nil for nil node.
func Wrap(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	return &Element{node: n}
}

// Parse reads complete HTML document. Input is expected to be UTF-8, callers
// are responsible for charset conversion.
func Parse(r io.Reader) (*Element, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("unable to parse html: %w", err)
	}
	return Wrap(doc), nil
}

// NewElement creates detached element with given tag name and attributes
// (name, value pairs).
func NewElement(tag string, attrs ...string) *Element {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tag)),
		Data:     tag,
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return Wrap(n)
}

// Tag returns element name.
func (e *Element) Tag() string {
	return e.node.Data
}

// Attr returns attribute value and presence flag.
func (e *Element) Attr(key string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Classes returns class attribute tokens in attribute order. Duplicates are
// kept, the same way DOMTokenList would see them before normalization.
func (e *Element) Classes() []string {
	return e.AttrTokens("class")
}

// AttrTokens splits attribute value into tokens on HTML whitespace, the way
// class and rel lists are read by browsers. Missing attribute gives nil.
func (e *Element) AttrTokens(key string) []string {
	if e.node.Type != html.ElementNode {
		return nil
	}
	val, ok := e.Attr(key)
	if !ok {
		return nil
	}
	return strings.FieldsFunc(val, isASCIISpace)
}

// isASCIISpace matches HTML whitespace, class lists are split on nothing else.
func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}

// Children returns element children only, text and comments are skipped.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, Wrap(c))
		}
	}
	return out
}

// AppendChild attaches child (which must be detached) as the last child.
func (e *Element) AppendChild(child *Element) {
	e.node.AppendChild(child.node)
}

// AppendText adds text node as the last child.
func (e *Element) AppendText(text string) {
	e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Text returns concatenated text of all descendant text nodes.
func (e *Element) Text() string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
	return sb.String()
}

// Clone returns detached deep structural copy of the element. Mutating the
// copy never affects the source tree.
func (e *Element) Clone() *Element {
	return Wrap(cloneNode(e.node))
}

func cloneNode(n *html.Node) *html.Node {
	m := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		m.Attr = make([]html.Attribute, len(n.Attr))
		copy(m.Attr, n.Attr)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		m.AppendChild(cloneNode(c))
	}
	return m
}

// Render serializes element with its subtree (outer HTML).
func (e *Element) Render() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.node); err != nil {
		return "", fmt.Errorf("unable to render <%s>: %w", e.node.Data, err)
	}
	return buf.String(), nil
}

// Selector is compiled CSS selector usable for queries.
type Selector struct {
	raw string
	sel cascadia.Selector
}

// Compile parses CSS selector.
func Compile(selector string) (*Selector, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("bad selector %q: %w", selector, err)
	}
	return &Selector{raw: selector, sel: sel}, nil
}

// String returns selector source.
func (s *Selector) String() string {
	return s.raw
}

// QueryAll returns all descendants of e (e itself excluded) matching
// selector in document order.
func (e *Element) QueryAll(s *Selector) []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		for _, n := range s.sel.MatchAll(c) {
			out = append(out, Wrap(n))
		}
	}
	return out
}

// Query returns first descendant of e (e itself excluded) matching selector
// or nil.
func (e *Element) Query(s *Selector) *Element {
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if n := s.sel.MatchFirst(c); n != nil {
			return Wrap(n)
		}
	}
	return nil
}

// Walk calls fn for e and every descendant element in pre-order. Returning
// false from fn skips the subtree of that element.
func (e *Element) Walk(fn func(*Element) bool) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if !fn(Wrap(n)) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
}
