package styles

import "sc2sx/expr"

// Default is the key holding the unconditioned value of a nested map.
const Default = "default"

// Value is either a leaf expression or a nested map keyed by pseudo
// selectors and media queries.
type Value struct {
	Leaf expr.Node
	Sub  *Map
}

func leaf(n expr.Node) *Value {
	if n == nil {
		n = &expr.Null{}
	}
	return &Value{Leaf: n}
}

// Map is an insertion ordered string keyed map. Overwriting a key keeps
// its original position. Keys of computed entries (resolved media) are
// wrapped in brackets.
type Map struct {
	keys []string
	vals map[string]*Value
}

func NewMap() *Map {
	return &Map{vals: make(map[string]*Value)}
}

func (m *Map) Get(key string) (*Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.vals[key]
	return v, ok
}

func (m *Map) Set(key string, v *Value) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Keys returns keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Leaf returns the leaf expression stored under key.
func (m *Map) Leaf(key string) (expr.Node, bool) {
	v, ok := m.Get(key)
	if !ok || v.Leaf == nil {
		return nil, false
	}
	return v.Leaf, true
}

// Lookup follows a key path through nested maps and returns the leaf at
// its end.
func (m *Map) Lookup(path ...string) (expr.Node, bool) {
	cur := m
	for i, k := range path {
		v, ok := cur.Get(k)
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return v.Leaf, v.Leaf != nil
		}
		cur = v.Sub
	}
	return nil, false
}

// IsComputedKey reports whether key is a computed (bracketed) key.
func IsComputedKey(key string) bool {
	return len(key) > 1 && key[0] == '[' && key[len(key)-1] == ']'
}

// ComputedKey wraps an expression into a computed map key.
func ComputedKey(n expr.Node) string {
	return "[" + expr.Print(n) + "]"
}
