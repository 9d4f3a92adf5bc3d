package classes

import "strings"

// prefixes maps arbitrary value utility prefix to CSS properties it sets.
// Axis prefixes set two properties to the same value.
var prefixes = map[string][]string{
	"h":     {"height"},
	"w":     {"width"},
	"m":     {"margin"},
	"mt":    {"margin-top"},
	"mb":    {"margin-bottom"},
	"ml":    {"margin-left"},
	"mr":    {"margin-right"},
	"mx":    {"margin-left", "margin-right"},
	"my":    {"margin-top", "margin-bottom"},
	"p":     {"padding"},
	"pt":    {"padding-top"},
	"pb":    {"padding-bottom"},
	"pl":    {"padding-left"},
	"pr":    {"padding-right"},
	"px":    {"padding-left", "padding-right"},
	"py":    {"padding-top", "padding-bottom"},
	"max-w": {"max-width"},
	"min-w": {"min-width"},
	"max-h": {"max-height"},
	"min-h": {"min-height"},
	"text":  {"font-size"},
	"gap":   {"gap"},
}

// Declaration is CSS synthesized for a single arbitrary value class.
type Declaration struct {
	Properties []string
	Value      string
}

// String renders one declaration per property:
// "margin-left: 4px; margin-right: 4px;".
func (d Declaration) String() string {
	var b strings.Builder
	for i, p := range d.Properties {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
		b.WriteString(": ")
		b.WriteString(d.Value)
		b.WriteByte(';')
	}
	return b.String()
}

// Joined renders all properties in front of a single shared value:
// "margin-left, margin-right: 4px;". This is not valid CSS for axis pairs and
// is kept only to reproduce output of older exports.
func (d Declaration) Joined() string {
	return strings.Join(d.Properties, ", ") + ": " + d.Value + ";"
}

// Decode parses arbitrary value class token of the form prefix-[literal]
// into declaration. Literal is the text between the first '[' and the first
// following ']', empty literal is not decoded. Tokens with unknown prefix
// (including variant prefixed ones like "hover:h-[1px]") are not decoded.
func Decode(token string) (Declaration, bool) {
	prefix, rest, found := strings.Cut(token, "-[")
	if !found {
		return Declaration{}, false
	}
	props, ok := prefixes[prefix]
	if !ok {
		return Declaration{}, false
	}
	value, _, closed := strings.Cut(rest, "]")
	if !closed || value == "" {
		return Declaration{}, false
	}
	return Declaration{Properties: props, Value: value}, true
}
