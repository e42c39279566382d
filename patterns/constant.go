package patterns

import (
	"sc2sx/adapter"
	"sc2sx/diag"
	"sc2sx/expr"
	"sc2sx/styles"
)

// constantValue lowers values that do not depend on component props:
// literals, templates over constants and adapter resolvable references.
type constantValue struct{}

func (constantValue) Name() string { return "constant" }

func (constantValue) Recognize(c *Context) Lowering {
	if c.Body == nil {
		return nil
	}
	n, imports, m := c.constant(c.Body)
	switch {
	case m == nil:
		if _, isObject := n.(*expr.Object); isObject {
			return nil
		}
		return func(c *Context) {
			c.Builder.AddImports(imports...)
			c.Builder.Apply(c.Prop, c.value(n), c.Style)
		}
	case m.kind == missingTheme:
		return func(c *Context) { c.bailUnresolved(m) }
	}
	return nil
}

// lowerTemplate handles values with more than one slot. Every slot has to
// be constant, the value becomes one template.
func lowerTemplate(c *Context) {
	c.Prop = c.Decl.Property
	var (
		quasis  = []string{""}
		exprs   []expr.Node
		imports []adapter.Import
	)
	for _, p := range c.Decl.Value.Parts {
		if !p.IsSlot {
			quasis[len(quasis)-1] += p.Text
			continue
		}
		node, ok := c.Exprs.Get(p.Slot)
		if !ok {
			c.Tracker.Bail(diag.UnsupportedInterpolation, c.Decl.Loc, "unknown", "missing expression for slot "+expr.Marker(p.Slot))
			return
		}
		c.bind(node)
		if c.Body == nil {
			c.Tracker.Bail(diag.UnsupportedInterpolation, c.Decl.Loc, Shape(node), c.Prop+": "+expr.Print(node))
			return
		}
		r, imps, m := c.constant(c.Body)
		switch {
		case m == nil:
		case m.kind == missingTheme:
			c.bailUnresolved(m)
			return
		default:
			c.Tracker.Bail(diag.UnsupportedInterpolation, c.Decl.Loc, Shape(node), c.Prop+": "+expr.Print(node))
			return
		}
		exprs = append(exprs, r)
		imports = append(imports, imps...)
		quasis = append(quasis, "")
	}
	if c.Decl.Important {
		quasis[len(quasis)-1] += " !important"
	}
	c.Builder.AddImports(imports...)
	c.Builder.Apply(c.Prop, expr.Tmpl(quasis, exprs...), c.Style)
}

// lowerMixin composes a whole-block interpolation that resolves to a
// constant style reference.
func lowerMixin(c *Context) {
	slots := c.Decl.Value.Slots()
	if len(slots) != 1 {
		c.Tracker.Bail(diag.UnsupportedInterpolation, c.Decl.Loc, "unknown", "mixin with "+c.Decl.Value.Text())
		return
	}
	node, ok := c.Exprs.Get(slots[0])
	if !ok {
		c.Tracker.Bail(diag.UnsupportedInterpolation, c.Decl.Loc, "unknown", "missing expression for slot "+expr.Marker(slots[0]))
		return
	}
	if !c.Style.IsBase() {
		c.Tracker.Bail(diag.UnsupportedInterpolation, c.Decl.Loc, Shape(node), "mixin inside nested selector")
		return
	}
	c.Prop = "mixin"
	c.bind(node)

	var (
		ref     expr.Node
		imports []adapter.Import
		m       = nonConstant
	)
	if c.Body != nil {
		ref, imports, m = c.reference(c.Body)
	}
	switch {
	case m == nil:
	case m.kind == missingTheme:
		c.bailUnresolved(m)
		return
	default:
		c.Tracker.Bail(diag.UnsupportedInterpolation, c.Decl.Loc, Shape(node), "mixin "+expr.Print(node))
		return
	}

	values := map[string]expr.Node{}
	if obj, ok := ref.(*expr.Object); ok {
		for _, p := range obj.Props {
			values[styles.PropertyName(p.Key)] = p.Value
		}
	}
	c.Builder.AddImports(imports...)
	c.Builder.ComposeMixin(ref, values)
}
