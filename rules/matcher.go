// Package rules selects style sheet rules relevant to a set of class tokens.
package rules

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"canvasx/classes"
)

type pattern struct {
	token   string
	literal string // escaped selector form, cheap substring prefilter
	re      *regexp2.Regexp
}

// Matcher tests selector text against anchored patterns built from class
// tokens. A selector matches when it references at least one token as a
// whole class.
type Matcher struct {
	patterns []pattern
}

// NewMatcher compiles patterns for all tokens once.
func NewMatcher(tokens []string) (*Matcher, error) {
	m := &Matcher{patterns: make([]pattern, 0, len(tokens))}
	for _, token := range tokens {
		re, err := classes.CompilePattern(token)
		if err != nil {
			return nil, fmt.Errorf("unable to compile pattern for class %q: %w", token, err)
		}
		m.patterns = append(m.patterns, pattern{
			token:   token,
			literal: classes.Selector(token),
			re:      re,
		})
	}
	return m, nil
}

// Len returns number of compiled patterns.
func (m *Matcher) Len() int {
	return len(m.patterns)
}

// Match reports whether selector references any of the tokens and returns
// the first token found.
func (m *Matcher) Match(selector string) (string, bool) {
	for _, p := range m.patterns {
		if !strings.Contains(selector, p.literal) {
			continue
		}
		if ok, err := p.re.MatchString(selector); err == nil && ok {
			return p.token, true
		}
	}
	return "", false
}
