// Package condition turns property tests found in interpolations into
// canonical condition keys and implements the small algebra the lowering
// recognizers need over them: inversion, conjunction and exclusivity.
//
// Keys are plain strings and are compared literally, "a && b" and "b && a"
// are different keys.
package condition

import (
	"slices"
	"strings"

	"sc2sx/expr"
)

// Term is a single test of one property. Op is "" for truthiness, "!" for
// falsiness, or one of the equality operators.
type Term struct {
	Prop    string
	Op      string
	Operand expr.Node
}

func (t Term) String() string {
	switch t.Op {
	case "":
		return t.Prop
	case "!":
		return "!" + t.Prop
	}
	return t.Prop + " " + t.Op + " " + expr.Print(t.Operand)
}

// Condition is a conjunction of terms, optionally negated as a whole.
// Single-term conditions are never Negated, their operator is flipped
// instead.
type Condition struct {
	Terms   []Term
	Negated bool
}

var flipped = map[string]string{
	"":    "!",
	"!":   "",
	"===": "!==",
	"!==": "===",
	"==":  "!=",
	"!=":  "==",
}

// Key renders the canonical key.
func (c *Condition) Key() string {
	parts := make([]string, 0, len(c.Terms))
	for _, t := range c.Terms {
		parts = append(parts, t.String())
	}
	key := strings.Join(parts, " && ")
	if c.Negated {
		return "!(" + key + ")"
	}
	return key
}

// Props lists the referenced properties in order of first appearance.
func (c *Condition) Props() []string {
	var props []string
	for _, t := range c.Terms {
		if !slices.Contains(props, t.Prop) {
			props = append(props, t.Prop)
		}
	}
	return props
}

// Parse reads a property test. It returns nil for shapes that have no
// faithful key: disjunctions, comparisons between two properties, tests of
// anything but a component property.
func Parse(n expr.Node, s Scope) *Condition {
	switch v := n.(type) {
	case *expr.Unary:
		if v.Op != "!" {
			return nil
		}
		if c := Parse(v.X, s); c != nil {
			return Invert(c)
		}
		return nil
	case *expr.Logical:
		if v.Op != "&&" {
			return nil
		}
		l, r := Parse(v.X, s), Parse(v.Y, s)
		if l == nil || r == nil || l.Negated || r.Negated {
			return nil
		}
		terms := append(append([]Term(nil), l.Terms...), r.Terms...)
		return &Condition{Terms: terms}
	case *expr.Binary:
		switch v.Op {
		case "===", "!==", "==", "!=":
		default:
			return nil
		}
		if p, ok := s.Prop(v.X); ok {
			if operand(v.Y, s) {
				return &Condition{Terms: []Term{{Prop: p, Op: v.Op, Operand: v.Y}}}
			}
			return nil
		}
		if p, ok := s.Prop(v.Y); ok && operand(v.X, s) {
			return &Condition{Terms: []Term{{Prop: p, Op: v.Op, Operand: v.X}}}
		}
		return nil
	}
	if p, ok := s.Prop(n); ok {
		return &Condition{Terms: []Term{{Prop: p}}}
	}
	return nil
}

// operand reports whether n may stand on the other side of a comparison: a
// literal or a constant reference such as an enum member. Destructured
// properties are never constants, even with a default.
func operand(n expr.Node, s Scope) bool {
	if expr.IsLiteral(n) {
		return true
	}
	root, _, ok := expr.Path(n)
	if !ok {
		return false
	}
	if _, isProp := s.Prop(n); isProp {
		return false
	}
	if _, isTheme := s.ThemePath(n); isTheme {
		return false
	}
	return !s.bound(root) && !s.local(root)
}

// Invert returns the logical complement of c.
func Invert(c *Condition) *Condition {
	if len(c.Terms) == 1 {
		t := c.Terms[0]
		t.Op = flipped[t.Op]
		return &Condition{Terms: []Term{t}}
	}
	return &Condition{Terms: c.Terms, Negated: !c.Negated}
}

// Exclusive reports whether a and b can never hold together in a way that
// is visible from their keys alone: the same property compared for strict
// equality with two different literals, or a truthiness test against its
// own negation.
func Exclusive(a, b *Condition) bool {
	if a == nil || b == nil || len(a.Terms) != 1 || len(b.Terms) != 1 || a.Negated || b.Negated {
		return false
	}
	x, y := a.Terms[0], b.Terms[0]
	if x.Prop != y.Prop {
		return false
	}
	if x.Op == "===" && y.Op == "===" {
		return expr.IsLiteral(x.Operand) && expr.IsLiteral(y.Operand) &&
			expr.Print(x.Operand) != expr.Print(y.Operand)
	}
	return (x.Op == "" && y.Op == "!") || (x.Op == "!" && y.Op == "")
}

// And joins keys left to right into one conjunction key. Empty keys are
// skipped.
func And(keys ...string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			parts = append(parts, k)
		}
	}
	return strings.Join(parts, " && ")
}

// InvertKey complements a rendered key without re-parsing the source
// expression. It agrees with Invert for every key produced by Key.
func InvertKey(key string) string {
	if strings.HasPrefix(key, "!(") && closingParen(key, 1) == len(key)-1 {
		return key[2 : len(key)-1]
	}
	if len(splitTop(key, " && ")) > 1 {
		return "!(" + key + ")"
	}
	for _, op := range []string{" === ", " !== ", " == ", " != "} {
		if parts := splitTop(key, op); len(parts) == 2 {
			return parts[0] + " " + flipped[strings.TrimSpace(op)] + " " + parts[1]
		}
	}
	if strings.HasPrefix(key, "!") {
		return key[1:]
	}
	return "!" + key
}

// splitTop splits s around sep occurrences outside of quotes and brackets.
func splitTop(s, sep string) []string {
	var (
		parts []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case depth == 0 && strings.HasPrefix(s[i:], sep):
			parts = append(parts, s[start:i])
			i += len(sep) - 1
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// closingParen returns the index of the parenthesis closing the one at
// open, -1 if unbalanced.
func closingParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
