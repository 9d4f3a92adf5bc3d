// Package format pretty-prints exported style sheets and markup.
package format

import (
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// CSS lays out rule texts one declaration per line. Input is lexed, never
// validated: opening braces end a line, every ';' ends a line, closing
// braces stand on their own line, whitespace runs collapse to a single space
// and blank lines are dropped. Strings, urls and comments are copied as
// lexed, so braces and semicolons inside them are left alone.
func CSS(texts []string) string {
	l := css.NewLexer(parse.NewInputString(strings.Join(texts, "\n")))

	var (
		lines []string
		cur   strings.Builder
	)
	flush := func(suffix string) {
		line := strings.TrimSpace(cur.String())
		cur.Reset()
		switch {
		case line == "" && suffix == "":
			return
		case line == "" || suffix == "" || suffix == ";":
			line += suffix
		default:
			line += " " + suffix
		}
		lines = append(lines, line)
	}

	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			// end of input or unreadable input
			flush("")
			return strings.Join(lines, "\n")
		case css.WhitespaceToken:
			if cur.Len() > 0 {
				cur.WriteByte(' ')
			}
		case css.LeftBraceToken:
			flush("{")
		case css.SemicolonToken:
			flush(";")
		case css.RightBraceToken:
			flush("")
			lines = append(lines, "}")
		default:
			cur.Write(data)
		}
	}
}
