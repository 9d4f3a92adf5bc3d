// Package classes discovers class tokens used by exported markup and
// synthesizes CSS for arbitrary value utility classes (h-[120px] and alike).
package classes

import (
	"strings"

	"canvasx/dom"
)

// Collect walks el and all its descendants in pre-order adding every class
// token to set. Tokens carrying bracketed literal which Decode understands
// also get their declaration recorded in table.
func Collect(el *dom.Element, set *Set, table *Table) {
	el.Walk(func(e *dom.Element) bool {
		for _, token := range e.Classes() {
			set.Add(token)
			if !strings.Contains(token, "[") || !strings.Contains(token, "]") {
				continue
			}
			if d, ok := Decode(token); ok {
				table.Put(token, d)
			}
		}
		return true
	})
}

// Rules returns synthesized rules for every table entry in table order, for
// example ".h-\[120px\] { height: 120px; }". When joined is set axis pairs
// are rendered with Declaration.Joined.
func Rules(table *Table, joined bool) []string {
	out := make([]string, 0, table.Len())
	for _, token := range table.Tokens() {
		d, _ := table.Get(token)
		body := d.String()
		if joined {
			body = d.Joined()
		}
		out = append(out, Selector(token)+" { "+body+" }")
	}
	return out
}
