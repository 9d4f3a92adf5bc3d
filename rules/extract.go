package rules

import (
	"go.uber.org/zap"

	"canvasx/classes"
	"canvasx/css"
)

// Set is deduplicated collection of rule texts in first retained order.
type Set struct {
	texts []string
	seen  map[string]struct{}
}

// NewSet returns empty rule set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add inserts text unless already present. Reports whether it was added.
func (s *Set) Add(text string) bool {
	if _, ok := s.seen[text]; ok {
		return false
	}
	s.seen[text] = struct{}{}
	s.texts = append(s.texts, text)
	return true
}

// Len returns number of retained rules.
func (s *Set) Len() int {
	return len(s.texts)
}

// Texts returns retained rule texts in order.
func (s *Set) Texts() []string {
	return s.texts
}

// Options control how rules nested in group rules are retained.
type Options struct {
	// KeepGroups wraps retained nested rules into their enclosing group
	// rule preludes instead of emitting them bare.
	KeepGroups bool
}

// Extract walks every sheet of the source and retains verbatim text of each
// style rule whose selector references a token from the set. Sheets which
// cannot be read are skipped with a warning. Error is returned only when
// patterns cannot be built.
func Extract(src css.Source, tokens *classes.Set, opts Options, log *zap.Logger) (*Set, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("rules")

	m, err := NewMatcher(tokens.Tokens())
	if err != nil {
		return nil, err
	}

	retained := NewSet()
	for _, sheet := range src {
		items, err := sheet.Rules()
		if err != nil {
			log.Warn("Unable to access style sheet, skipping", zap.String("sheet", sheet.Name()), zap.Error(err))
			continue
		}
		if m.Len() == 0 {
			// nothing to look for, sheets are still read to report inaccessible ones
			continue
		}
		before := retained.Len()
		walk(items, m, opts, nil, retained, log)
		log.Debug("Style sheet processed", zap.String("sheet", sheet.Name()), zap.Int("retained", retained.Len()-before))
	}
	return retained, nil
}

func walk(items []css.StylesheetItem, m *Matcher, opts Options, preludes []string, retained *Set, log *zap.Logger) {
	for _, item := range items {
		switch {
		case item.Rule != nil:
			token, ok := m.Match(item.Rule.Selector)
			if !ok {
				continue
			}
			text := item.Rule.Text
			if opts.KeepGroups {
				text = wrap(text, preludes)
			}
			if retained.Add(text) {
				log.Debug("Rule retained", zap.String("selector", item.Rule.Selector), zap.String("class", token))
			}
		case item.Group != nil:
			walk(item.Group.Items, m, opts, append(preludes[:len(preludes):len(preludes)], item.Group.Prelude), retained, log)
		}
	}
}

// wrap encloses rule text into group preludes, innermost last.
func wrap(text string, preludes []string) string {
	for i := len(preludes) - 1; i >= 0; i-- {
		text = preludes[i] + " { " + text + " }"
	}
	return text
}
