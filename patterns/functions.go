package patterns

import (
	"slices"

	"sc2sx/expr"
)

// nullishDefault lowers p || fallback and p ?? fallback: the fallback is
// the base value and a style function applies p when it is provided.
type nullishDefault struct{}

func (nullishDefault) Name() string { return "nullish-default" }

func (nullishDefault) Recognize(c *Context) Lowering {
	l, ok := c.Body.(*expr.Logical)
	if !ok || (l.Op != "||" && l.Op != "??") || !c.conditional() {
		return nil
	}
	p, ok := c.Scope.Prop(l.X)
	if !ok {
		return nil
	}
	fallback, imports, m := c.constant(l.Y)
	if m != nil {
		return failedBranch(m)
	}
	guard := p
	if l.Op == "??" {
		guard = p + " != null"
	}
	return func(c *Context) {
		c.Builder.AddImports(imports...)
		if !expr.IsEmptyValue(fallback) {
			c.Builder.Apply(c.Prop, c.value(fallback), c.Style)
		}
		name := c.Builder.RegisterFunction(c.Prop, []string{p}, expr.Concat(c.Prefix, expr.Id(p), c.Suffix), c.Style)
		c.Builder.ApplyFunction(name, c.Prop, []string{p}, guard)
		c.dropProps([]string{p})
		c.Builder.NeedWrapper()
	}
}

// propStyleFunction lowers any pure expression over component props into a
// style function taking those props. Calls, nested functions, theme reads
// and references to anything outside the props are refused.
type propStyleFunction struct{}

func (propStyleFunction) Name() string { return "prop-style-function" }

func (propStyleFunction) Recognize(c *Context) Lowering {
	if c.Fn == nil || c.Body == nil || !c.conditional() || c.Scope.UsesTheme(c.Body) {
		return nil
	}
	impure := expr.Count(c.Body, func(n expr.Node) bool {
		switch n.(type) {
		case *expr.Call, *expr.Arrow, *expr.Unknown, *expr.Object:
			return true
		}
		return false
	})
	if impure > 0 {
		return nil
	}
	props, free := c.Scope.Refs(c.Body)
	if len(props) == 0 || len(free) > 0 {
		return nil
	}
	body := expr.Rewrite(c.Body, func(n expr.Node) (expr.Node, bool) {
		if p, ok := c.Scope.Prop(n); ok {
			return expr.Id(p), true
		}
		return nil, false
	})
	stray := expr.Count(body, func(n expr.Node) bool {
		id, ok := n.(*expr.Ident)
		return ok && !slices.Contains(props, id.Name)
	})
	if stray > 0 {
		return nil
	}
	return func(c *Context) {
		name := c.Builder.RegisterFunction(c.Prop, props, expr.Concat(c.Prefix, body, c.Suffix), c.Style)
		c.Builder.ApplyFunction(name, c.Prop, props, "")
		c.dropProps(props)
		c.Builder.NeedWrapper()
	}
}
