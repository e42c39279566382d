// Package patterns is the ordered catalogue of dynamic styling idioms the
// engine can lower. Each recognizer inspects one interpolated declaration
// and either declines or returns the lowering it commits to; the first
// recognizer that commits wins.
package patterns

import (
	"strings"

	"go.uber.org/zap"

	"sc2sx/adapter"
	"sc2sx/condition"
	"sc2sx/diag"
	"sc2sx/expr"
	"sc2sx/model"
	"sc2sx/styles"
)

// Policy decides which component properties may be dropped from the
// props forwarded to the rendered element.
type Policy struct {
	TransientPrefix string
	KeepProps       map[string]bool
}

// Droppable reports whether prop is purely presentational for target.
func (p Policy) Droppable(prop string, target model.Target) bool {
	prefix := p.TransientPrefix
	if prefix == "" {
		prefix = "$"
	}
	if strings.HasPrefix(prop, prefix) {
		return true
	}
	return target.Intrinsic && !p.KeepProps[prop]
}

// Env is the read-only file scope shared by all declarations of a file.
type Env struct {
	// Helpers are locally defined mapping functions by name.
	Helpers map[string]*expr.Arrow
	// Imports maps local import bindings to their module.
	Imports map[string]string
	Bridge  *adapter.Bridge
	Policy  Policy
}

// Context is everything a recognizer sees about one declaration.
type Context struct {
	Env     *Env
	Decl    *model.Declaration
	Exprs   *expr.Table
	Style   styles.Context
	Target  model.Target
	Builder *styles.Builder
	Tracker *diag.Tracker
	Log     *zap.Logger

	// Set by Dispatch for single slot values.
	Prop   string
	Prefix string
	Suffix string
	Slot   expr.Slot
	Node   expr.Node
	// Fn is set when the slot holds a function, Body is its expression body
	// (nil for block bodies) or the slot expression itself.
	Fn    *expr.Arrow
	Body  expr.Node
	Scope condition.Scope
}

// Lowering applies a committed recognition to the builder.
type Lowering func(c *Context)

// Recognizer is one catalogue entry. Recognize must not mutate anything,
// it returns nil to decline.
type Recognizer interface {
	Name() string
	Recognize(c *Context) Lowering
}

// Table is the ordered recognizer list.
type Table struct {
	recognizers []Recognizer
}

// NewTable returns a table trying recognizers in the given order.
func NewTable(recognizers ...Recognizer) *Table {
	return &Table{recognizers: recognizers}
}

// Default returns the standard catalogue.
func Default() *Table {
	return NewTable(
		constantValue{},
		themeBooleanSplit{},
		ternaryChain{},
		logicalAndVariant{},
		nullishDefault{},
		themeIndexedLookup{},
		enumIfChain{},
		mappedFunction{},
		propStyleFunction{},
	)
}

// Names lists recognizer names in dispatch order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.recognizers))
	for _, r := range t.recognizers {
		names = append(names, r.Name())
	}
	return names
}

// Dispatch lowers one interpolated declaration and returns the name of
// the recognizer that committed, empty when the declaration bailed.
func (t *Table) Dispatch(c *Context) string {
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
	if c.Decl.IsMixin() {
		lowerMixin(c)
		return "mixin"
	}

	prefix, slot, suffix, ok := c.Decl.Value.SingleSlot()
	if !ok {
		lowerTemplate(c)
		return "template"
	}
	node, ok := c.Exprs.Get(slot)
	if !ok {
		c.Tracker.Bail(diag.UnsupportedInterpolation, c.Decl.Loc, "unknown", "missing expression for slot "+expr.Marker(slot))
		return ""
	}
	if c.Decl.Important {
		suffix += " !important"
	}
	c.Prop, c.Prefix, c.Suffix, c.Slot = c.Decl.Property, prefix, suffix, slot
	c.bind(node)

	for _, r := range t.recognizers {
		lowering := r.Recognize(c)
		if lowering == nil {
			continue
		}
		lowering(c)
		c.Log.Debug("Declaration lowered",
			zap.String("recognizer", r.Name()),
			zap.String("property", c.Prop),
			zap.Bool("bailed", c.Tracker.Bailed()))
		return r.Name()
	}

	c.Tracker.Bail(diag.UnsupportedInterpolation, c.Decl.Loc, Shape(node), c.Prop+": "+expr.Print(node))
	return ""
}

// bind makes node the current slot expression.
func (c *Context) bind(node expr.Node) {
	c.Node, c.Fn, c.Body, c.Scope = node, nil, node, condition.Scope{}
	if fn, ok := node.(*expr.Arrow); ok {
		c.Fn, c.Body, c.Scope = fn, fn.Body, condition.ScopeOf(fn)
	}
}

// Shape names the kind of an unrecognized expression for diagnostics.
func Shape(n expr.Node) string {
	switch n.(type) {
	case *expr.Call:
		return "call"
	case *expr.Ident:
		return "identifier"
	case *expr.Member, *expr.Index:
		return "member"
	case *expr.Arrow:
		return "arrow"
	}
	return "unknown"
}
