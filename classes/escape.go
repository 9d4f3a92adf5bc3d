package classes

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// SpecialChars lists characters which must be backslash escaped when class
// token is used inside CSS selector. Both escaping profiles below are derived
// from it and must stay in sync.
const SpecialChars = "!\"#$%&'()*+,./:;<=>?@[\\]^`{|}~"

// identFollow is the set of characters which may continue a class name in
// selector text. Match must not be followed by any of them, otherwise token
// would be found as a prefix of a longer class (p-2 vs p-20 or p-2\.5).
const identFollow = `[A-Za-z0-9_\-\\]`

// EscapeIdent returns token with every special character backslash escaped
// the way it appears in style sheet selector text.
func EscapeIdent(token string) string {
	if !strings.ContainsAny(token, SpecialChars) {
		return token
	}
	var b strings.Builder
	b.Grow(len(token) + 8)
	for _, r := range token {
		if strings.ContainsRune(SpecialChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Selector returns class selector for token, for example ".h-\[120px\]".
func Selector(token string) string {
	return "." + EscapeIdent(token)
}

// Pattern returns regular expression source matching class selector for
// token inside selector text and never matching it as a prefix of a longer
// class name. Expression uses lookahead and must be compiled with regexp2.
func Pattern(token string) string {
	return regexp2.Escape(Selector(token)) + "(?!" + identFollow + ")"
}

// CompilePattern compiles Pattern(token).
func CompilePattern(token string) (*regexp2.Regexp, error) {
	return regexp2.Compile(Pattern(token), regexp2.None)
}
