package config

import (
	"strings"
	"unicode"
)

const badFileName = "_bad_file_name_"

// CleanFileName makes single path segment out of name derived from page
// title or url. Exports are often moved between systems, so characters
// reserved on any of them are dropped, not only on the current one. Leading
// dots are removed to never produce hidden or relative names.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if unicode.IsControl(sym) || strings.ContainsRune(`<>:"/\|?*`, sym) {
			return -1
		}
		return sym
	}, in)
	out = strings.TrimRight(strings.TrimLeft(out, ". "), " ")
	if len(out) == 0 {
		return badFileName
	}
	return out
}
