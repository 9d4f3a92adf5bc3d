package classes

// Set is a set of class tokens remembering first-seen order.
type Set struct {
	order []string
	seen  map[string]struct{}
}

// NewSet creates empty set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add inserts token, returns false if it was already present.
func (s *Set) Add(token string) bool {
	if _, ok := s.seen[token]; ok {
		return false
	}
	s.seen[token] = struct{}{}
	s.order = append(s.order, token)
	return true
}

// Len returns number of tokens.
func (s *Set) Len() int {
	return len(s.order)
}

// Tokens returns tokens in first-seen order. Returned slice must not be
// modified.
func (s *Set) Tokens() []string {
	return s.order
}

// Table maps arbitrary value class token to its synthesized declaration,
// keeping first insertion order.
type Table struct {
	order []string
	decls map[string]Declaration
}

// NewTable creates empty table.
func NewTable() *Table {
	return &Table{decls: make(map[string]Declaration)}
}

// Put stores declaration for token. Replacing existing entry does not change
// its position.
func (t *Table) Put(token string, d Declaration) {
	if _, ok := t.decls[token]; !ok {
		t.order = append(t.order, token)
	}
	t.decls[token] = d
}

// Get returns declaration for token.
func (t *Table) Get(token string) (Declaration, bool) {
	d, ok := t.decls[token]
	return d, ok
}

// Len returns number of entries.
func (t *Table) Len() int {
	return len(t.order)
}

// Tokens returns keys in insertion order. Returned slice must not be
// modified.
func (t *Table) Tokens() []string {
	return t.order
}
