// Package selector classifies the selector and at-rule context of a style
// rule into the few shapes that have a static representation.
//
// Classification is conservative: anything that would need real cascade
// semantics (descendant, child or class selectors, mixed selector lists,
// doubled specificity) is reported as Unsupported with a reason.
package selector

import (
	"fmt"
	"strings"

	"sc2sx/expr"
)

// Kind of a classified selector.
type Kind int

const (
	Unsupported Kind = iota
	Base
	PseudoSet
	PseudoElement
	AttributeTest
	Sibling
	Relation
	RawMedia
)

func (k Kind) String() string {
	switch k {
	case Unsupported:
		return "unsupported"
	case Base:
		return "base"
	case PseudoSet:
		return "pseudo"
	case PseudoElement:
		return "pseudo-element"
	case AttributeTest:
		return "attribute"
	case Sibling:
		return "sibling"
	case Relation:
		return "relation"
	case RawMedia:
		return "media"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

const (
	Adjacent = "adjacent"
	General  = "general"

	Ancestor   = "ancestor"
	Descendant = "descendant"
)

// Media is the at-rule context of a rule. A Resolved media names a slot
// whose expression has to be resolved through the adapter to get the key.
type Media struct {
	Text     string
	Slot     expr.Slot
	Resolved bool
}

// Registry resolves a slot referenced from a selector to the name of a
// sibling component declared in the same file.
type Registry interface {
	Component(slot expr.Slot) (string, bool)
}

// Classification is the result of Classify.
type Classification struct {
	Kind Kind

	// Pseudos are the pseudo map keys of a PseudoSet, each entry is one
	// compound key such as ":hover" or ":hover:focus-visible".
	Pseudos []string
	Element string
	Attr    Attribute

	// Combinator is Adjacent or General for siblings, Guard is the optional
	// pseudo on the leading self reference.
	Combinator string
	Guard      string

	// Direction is Ancestor or Descendant, Other names the related
	// component and Pseudo is its optional state.
	Direction string
	Other     string
	Pseudo    string

	Media      *Media
	Normalized string
	Reason     string
}

// Keys returns pseudo map keys this classification writes under.
func (c *Classification) Keys() []string {
	switch c.Kind {
	case PseudoSet:
		return c.Pseudos
	case Sibling:
		fn := "when.siblingBefore"
		if c.Combinator == Adjacent {
			fn = "when.adjacentSibling"
		}
		if c.Guard == "" {
			return []string{fn + "()"}
		}
		return []string{fn + "(" + expr.QuoteString(c.Guard) + ")"}
	case Relation:
		if c.Pseudo == "" {
			return []string{"when." + c.Direction + "(" + c.Other + ")"}
		}
		return []string{"when." + c.Direction + "(" + expr.QuoteString(c.Pseudo) + ", " + c.Other + ")"}
	}
	return nil
}

func unsupported(normalized, format string, args ...any) Classification {
	return Classification{Kind: Unsupported, Normalized: normalized, Reason: fmt.Sprintf(format, args...)}
}

// Classify categorizes a rule. reg may be nil, in which case selectors
// referring to other components are unsupported.
func Classify(sel string, atRules []string, reg Registry) Classification {
	media, reason := classifyAtRules(atRules)
	if reason != "" {
		return unsupported(sel, "%s", reason)
	}

	toks, err := tokenize(sel)
	if err != nil {
		return unsupported(sel, "%v", err)
	}
	p := &parser{toks: toks}
	group, err := p.parseGroup()
	if err != nil {
		return unsupported(sel, "malformed selector: %v", err)
	}
	for _, cs := range group {
		normalizeComplex(cs)
	}
	normalized := renderGroup(group)

	var c Classification
	if len(group) == 1 {
		c = classifyComplex(group[0], reg)
	} else {
		c = Classification{Kind: PseudoSet}
		for _, cs := range group {
			one := classifyComplex(cs, reg)
			if one.Kind != PseudoSet {
				return unsupported(normalized, "mixed grouped selector")
			}
			c.Pseudos = append(c.Pseudos, one.Pseudos...)
		}
	}
	c.Normalized = normalized
	if c.Kind == Unsupported {
		return c
	}

	if media != nil {
		c.Media = media
		if c.Kind == Base {
			c.Kind = RawMedia
		}
		if c.Kind == AttributeTest {
			return unsupported(normalized, "attribute selector inside %s", media.Text)
		}
	}
	return c
}

// Normalize returns the canonical text of a selector, or the input when it
// cannot be parsed.
func Normalize(sel string) string {
	toks, err := tokenize(sel)
	if err != nil {
		return sel
	}
	group, err := (&parser{toks: toks}).parseGroup()
	if err != nil {
		return sel
	}
	for _, cs := range group {
		normalizeComplex(cs)
	}
	return renderGroup(group)
}

func renderGroup(group []*complexSel) string {
	parts := make([]string, 0, len(group))
	for _, cs := range group {
		parts = append(parts, cs.String())
	}
	return strings.Join(parts, ", ")
}

// normalizeComplex makes implicit self references explicit and collapses
// one level of doubled self reference (&& is &).
func normalizeComplex(cs *complexSel) {
	for _, c := range cs.compounds {
		if c.amps == 0 && len(c.refs) == 0 && len(c.other) == 0 {
			c.amps = 1
		}
		if c.amps == 2 {
			c.amps = 1
		}
	}
}

func classifyComplex(cs *complexSel, reg Registry) Classification {
	for _, c := range cs.compounds {
		if c.amps > 1 {
			return unsupported("", "specificity doubling beyond one level")
		}
		if len(c.other) > 0 {
			return unsupported("", "class, type or id selector %q", strings.Join(c.other, ""))
		}
	}

	switch len(cs.compounds) {
	case 1:
		return classifyCompound(cs.compounds[0], reg)
	case 2:
		first, second := cs.compounds[0], cs.compounds[1]
		comb := cs.combs[0]
		if !bareSelf(second) {
			return unsupported("", "selector targets an element other than the component")
		}
		switch comb {
		case "+", "~":
			if first.amps != 1 || len(first.refs) > 0 || len(first.attrs) > 0 || len(first.elements) > 0 || len(first.pseudos) > 1 {
				return unsupported("", "unsupported sibling selector")
			}
			c := Classification{Kind: Sibling, Combinator: General}
			if comb == "+" {
				c.Combinator = Adjacent
			}
			if len(first.pseudos) == 1 {
				c.Guard = first.pseudos[0].String()
			}
			return c
		case " ":
			return relation(Ancestor, first, reg)
		}
		return unsupported("", "child combinator")
	}
	return unsupported("", "descendant selector")
}

func bareSelf(c *compound) bool {
	return c.amps == 1 && len(c.refs) == 0 && len(c.pseudos) == 0 && len(c.elements) == 0 && len(c.attrs) == 0
}

func classifyCompound(c *compound, reg Registry) Classification {
	if len(c.refs) > 0 {
		return unsupported("", "component reference without self reference")
	}

	for _, p := range c.pseudos {
		if p.name == "has" && hasRef(p.args) {
			if len(c.pseudos) > 1 || len(c.elements) > 0 || len(c.attrs) > 0 {
				return unsupported("", "descendant relation combined with other selectors")
			}
			inner, err := (&parser{toks: p.args}).parseGroup()
			if err != nil || len(inner) != 1 || len(inner[0].compounds) != 1 {
				return unsupported("", "unsupported :has() argument")
			}
			return relation(Descendant, inner[0].compounds[0], reg)
		}
	}

	switch {
	case len(c.attrs) > 0:
		if len(c.attrs) > 1 || len(c.pseudos) > 0 || len(c.elements) > 0 {
			return unsupported("", "attribute selector combined with other selectors")
		}
		attr, ok := LookupAttribute(c.attrs[0])
		if !ok {
			return unsupported("", "attribute selector %s", c.attrs[0])
		}
		return Classification{Kind: AttributeTest, Attr: attr}
	case len(c.elements) > 0:
		if len(c.elements) > 1 || len(c.pseudos) > 0 {
			return unsupported("", "pseudo-element combined with other selectors")
		}
		return Classification{Kind: PseudoElement, Element: c.elements[0]}
	case len(c.pseudos) > 0:
		var key strings.Builder
		for _, p := range c.pseudos {
			key.WriteString(p.String())
		}
		return Classification{Kind: PseudoSet, Pseudos: []string{key.String()}}
	}
	return Classification{Kind: Base}
}

func hasRef(toks []token) bool {
	for _, t := range toks {
		if _, ok := expr.ParseMarker(t.text); ok && t.kind == tIdent {
			return true
		}
	}
	return false
}

// relation validates the compound naming the other component: exactly one
// reference with at most one plain pseudo-class.
func relation(direction string, c *compound, reg Registry) Classification {
	if len(c.refs) != 1 || c.amps != 0 || len(c.attrs) > 0 || len(c.elements) > 0 || len(c.other) > 0 || len(c.pseudos) > 1 {
		return unsupported("", "unsupported %s selector", direction)
	}
	if reg == nil {
		return unsupported("", "no component registry for %s selector", direction)
	}
	name, ok := reg.Component(c.refs[0])
	if !ok {
		return unsupported("", "%s selector references unknown component", direction)
	}
	cl := Classification{Kind: Relation, Direction: direction, Other: name}
	if len(c.pseudos) == 1 {
		if c.pseudos[0].fn {
			return unsupported("", "functional pseudo-class on %s component", direction)
		}
		cl.Pseudo = c.pseudos[0].String()
	}
	return cl
}

var mediaPrefixes = []string{"@media", "@supports", "@container"}

// classifyAtRules accepts zero or one conditional at-rule.
func classifyAtRules(atRules []string) (*Media, string) {
	switch len(atRules) {
	case 0:
		return nil, ""
	case 1:
	default:
		return nil, "nested at-rules"
	}
	text := strings.Join(strings.Fields(atRules[0]), " ")
	prefix := ""
	for _, p := range mediaPrefixes {
		if text == p || strings.HasPrefix(text, p+" ") {
			prefix = p
			break
		}
	}
	if prefix == "" {
		return nil, fmt.Sprintf("unsupported at-rule %q", text)
	}
	query := strings.TrimSpace(strings.TrimPrefix(text, prefix))
	if query == "" {
		return nil, fmt.Sprintf("empty %s query", prefix)
	}
	if slot, ok := expr.ParseMarker(query); ok {
		if prefix != "@media" {
			return nil, fmt.Sprintf("interpolated %s query", prefix)
		}
		return &Media{Text: text, Slot: slot, Resolved: true}, ""
	}
	if len(expr.Markers(query)) > 0 {
		return nil, fmt.Sprintf("partially interpolated %s query", prefix)
	}
	return &Media{Text: text}, ""
}
