package expr

import (
	"fmt"
	"regexp"
	"strconv"
)

// Slot is an index into a component's expression table.
type Slot int

// Table is the append-only expression table owned by one component. Slots
// are handed out in insertion order and never reused.
type Table struct {
	nodes []Node
}

// Add appends n and returns its slot.
func (t *Table) Add(n Node) Slot {
	t.nodes = append(t.nodes, n)
	return Slot(len(t.nodes) - 1)
}

// Get returns the tree stored in slot s.
func (t *Table) Get(s Slot) (Node, bool) {
	if t == nil || s < 0 || int(s) >= len(t.nodes) {
		return nil, false
	}
	return t.nodes[s], true
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

var markerPattern = regexp.MustCompile(`__SC_EXPR_(\d+)__`)

// Marker returns the textual stand-in for slot s used inside selectors and
// at-rule text.
func Marker(s Slot) string {
	return fmt.Sprintf("__SC_EXPR_%d__", int(s))
}

// ParseMarker reports whether text is exactly one slot marker.
func ParseMarker(text string) (Slot, bool) {
	m := markerPattern.FindStringSubmatchIndex(text)
	if m == nil || m[0] != 0 || m[1] != len(text) {
		return 0, false
	}
	n, err := strconv.Atoi(text[m[2]:m[3]])
	if err != nil {
		return 0, false
	}
	return Slot(n), true
}

// Markers returns all slots referenced from text in order of appearance.
func Markers(text string) []Slot {
	var slots []Slot
	for _, m := range markerPattern.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			slots = append(slots, Slot(n))
		}
	}
	return slots
}

// ReplaceMarkers substitutes every slot marker in text with fn(slot).
func ReplaceMarkers(text string, fn func(Slot) string) string {
	return markerPattern.ReplaceAllStringFunc(text, func(m string) string {
		s, _ := ParseMarker(m)
		return fn(s)
	})
}
