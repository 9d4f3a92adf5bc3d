package format

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

type kind int

const (
	elementNode kind = iota
	textNode
	leafNode // comments, doctypes, void and self-closing tags, stray end tags
)

// node is minimal markup model: raw token bytes arranged into a tree.
type node struct {
	kind     kind
	tag      string
	open     string // raw start tag or leaf text
	close    string // raw end tag, empty when missing in input
	children []*node
}

// Content of these elements is emitted exactly as received.
var verbatim = map[string]bool{
	"style":  true,
	"script": true,
}

// Content of these elements keeps its inline layout.
var preformatted = map[string]bool{
	"pre":      true,
	"textarea": true,
}

// void elements never have end tags.
var void = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// HTML re-indents serialized markup. Every tag starts a new line indented by
// two spaces per nesting level, an element without content keeps its end
// tag on the same line and whitespace-only text is dropped. Content of style
// and script elements is emitted byte for byte between the tag lines, content
// of pre and textarea is left inline as is. Attribute text is never
// re-serialized.
func HTML(markup string) (string, error) {
	root, err := parseMarkup(markup)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, n := range root.children {
		lines = renderNode(lines, n, 0)
	}
	return strings.Join(lines, "\n"), nil
}

func parseMarkup(markup string) (*node, error) {
	root := &node{kind: elementNode}
	stack := []*node{root}
	top := func() *node { return stack[len(stack)-1] }

	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("unable to tokenize markup: %w", err)
			}
			return root, nil

		case html.StartTagToken:
			raw := string(z.Raw())
			name, _ := z.TagName()
			n := &node{kind: elementNode, tag: string(name), open: raw}
			if void[n.tag] {
				n.kind = leafNode
				top().children = append(top().children, n)
				continue
			}
			top().children = append(top().children, n)
			stack = append(stack, n)

		case html.EndTagToken:
			raw := string(z.Raw())
			name, _ := z.TagName()
			i := len(stack) - 1
			for ; i > 0; i-- {
				if stack[i].tag == string(name) {
					break
				}
			}
			if i == 0 {
				top().children = append(top().children, &node{kind: leafNode, open: raw})
				continue
			}
			stack[i].close = raw
			stack = stack[:i]

		case html.SelfClosingTagToken, html.CommentToken, html.DoctypeToken:
			top().children = append(top().children, &node{kind: leafNode, open: string(z.Raw())})

		case html.TextToken:
			top().children = append(top().children, &node{kind: textNode, open: string(z.Raw())})
		}
	}
}

func renderNode(lines []string, n *node, depth int) []string {
	indent := strings.Repeat("  ", depth)

	switch n.kind {
	case leafNode:
		return append(lines, indent+n.open)

	case textNode:
		if text := strings.TrimSpace(n.open); text != "" {
			lines = append(lines, indent+text)
		}
		return lines
	}

	switch {
	case verbatim[n.tag]:
		content := rawContent(n)
		if content == "" {
			return append(lines, indent+n.open+n.close)
		}
		return append(lines, indent+n.open, content, indent+n.close)

	case preformatted[n.tag]:
		return append(lines, indent+n.open+rawContent(n)+n.close)
	}

	if !hasContent(n) {
		return append(lines, indent+n.open+n.close)
	}
	lines = append(lines, indent+n.open)
	for _, c := range n.children {
		lines = renderNode(lines, c, depth+1)
	}
	if n.close != "" {
		lines = append(lines, indent+n.close)
	}
	return lines
}

// rawContent reproduces markup of node children as it was received.
func rawContent(n *node) string {
	var sb strings.Builder
	var write func(*node)
	write = func(n *node) {
		for _, c := range n.children {
			sb.WriteString(c.open)
			if c.kind == elementNode {
				write(c)
				sb.WriteString(c.close)
			}
		}
	}
	write(n)
	return sb.String()
}

func hasContent(n *node) bool {
	for _, c := range n.children {
		if c.kind != textNode || strings.TrimSpace(c.open) != "" {
			return true
		}
	}
	return false
}
