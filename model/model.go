// Package model holds the source-side data the lowering engine consumes:
// rules, declarations and their values as discovered in one source file.
package model

import (
	"fmt"
	"strings"

	"sc2sx/expr"
)

// Location points at a construct in the source file.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	switch {
	case l.File == "":
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	case l.Line == 0:
		return l.File
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Part is one piece of an interpolated value: literal text or a slot into
// the component's expression table.
type Part struct {
	Text   string
	Slot   expr.Slot
	IsSlot bool
}

// TextPart and SlotPart build value parts.
func TextPart(s string) Part { return Part{Text: s} }

func SlotPart(s expr.Slot) Part { return Part{Slot: s, IsSlot: true} }

// Value is a declaration value. When Parts is empty the value is static and
// Static holds its text.
type Value struct {
	Static string
	Parts  []Part
}

// StaticValue returns a constant value.
func StaticValue(s string) Value { return Value{Static: s} }

// Interpolated returns a value made of literal text and slots.
func Interpolated(parts ...Part) Value { return Value{Parts: parts} }

// IsStatic reports whether the value has no interpolations.
func (v Value) IsStatic() bool {
	for _, p := range v.Parts {
		if p.IsSlot {
			return false
		}
	}
	return true
}

// Text returns the value text with slots replaced by their markers.
func (v Value) Text() string {
	if len(v.Parts) == 0 {
		return v.Static
	}
	var sb strings.Builder
	for _, p := range v.Parts {
		if p.IsSlot {
			sb.WriteString(expr.Marker(p.Slot))
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// Slots lists the slots referenced by the value in order.
func (v Value) Slots() []expr.Slot {
	var slots []expr.Slot
	for _, p := range v.Parts {
		if p.IsSlot {
			slots = append(slots, p.Slot)
		}
	}
	return slots
}

// SingleSlot returns the only slot of a value together with the literal
// text around it. ok is false when the value does not have exactly one slot.
func (v Value) SingleSlot() (prefix string, slot expr.Slot, suffix string, ok bool) {
	seen := false
	for _, p := range v.Parts {
		switch {
		case p.IsSlot && seen:
			return "", 0, "", false
		case p.IsSlot:
			slot, seen = p.Slot, true
		case seen:
			suffix += p.Text
		default:
			prefix += p.Text
		}
	}
	return prefix, slot, suffix, seen
}

// Declaration is one property/value pair. An empty Property marks a
// whole-block interpolation (mixin slot).
type Declaration struct {
	Property  string
	Value     Value
	Important bool
	Loc       Location
}

// IsMixin reports whether the declaration interpolates a whole block.
func (d *Declaration) IsMixin() bool { return d.Property == "" }

// Rule is a selector with its at-rule stack and declarations.
type Rule struct {
	Selector     string
	AtRules      []string
	Declarations []Declaration
	Loc          Location
}

// Target is what a component renders: an intrinsic element or another
// component.
type Target struct {
	Name      string
	Intrinsic bool
}

func (t Target) String() string {
	if t.Intrinsic {
		return "<" + t.Name + ">"
	}
	return t.Name
}

// IntrinsicTarget reports whether name looks like an intrinsic element tag
// (lower case first letter).
func IntrinsicTarget(name string) Target {
	return Target{Name: name, Intrinsic: name != "" && name[0] >= 'a' && name[0] <= 'z'}
}
