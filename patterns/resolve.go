package patterns

import (
	"strings"

	"sc2sx/adapter"
	"sc2sx/condition"
	"sc2sx/diag"
	"sc2sx/expr"
)

type missKind int

const (
	// notConstant: the expression depends on component props or has a shape
	// that is never constant.
	notConstant missKind = iota
	// missingTheme: a theme path the adapter could not resolve.
	missingTheme
	// missingRef: an import or helper call the adapter could not resolve.
	missingRef
)

type miss struct {
	kind missKind
	text string
}

var nonConstant = &miss{kind: notConstant}

// constant turns n into an expression that needs no component props:
// literals, templates and concatenations over constants, and references the
// adapter resolves. Imports needed by resolved references are returned.
func (c *Context) constant(n expr.Node) (expr.Node, []adapter.Import, *miss) {
	switch v := n.(type) {
	case *expr.StringLit, *expr.NumberLit, *expr.BoolLit, *expr.Null, *expr.Undefined:
		return n, nil, nil
	case *expr.Template:
		var imports []adapter.Import
		exprs := make([]expr.Node, len(v.Exprs))
		for i, e := range v.Exprs {
			r, imps, m := c.constant(e)
			if m != nil {
				return nil, nil, m
			}
			exprs[i] = r
			imports = append(imports, imps...)
		}
		return &expr.Template{Quasis: v.Quasis, Exprs: exprs}, imports, nil
	case *expr.Binary:
		if v.Op != "+" {
			return nil, nil, nonConstant
		}
		x, ix, m := c.constant(v.X)
		if m != nil {
			return nil, nil, m
		}
		y, iy, m := c.constant(v.Y)
		if m != nil {
			return nil, nil, m
		}
		return &expr.Binary{Op: "+", X: x, Y: y}, append(ix, iy...), nil
	case *expr.Unary:
		if v.Op != "-" {
			return nil, nil, nonConstant
		}
		x, imports, m := c.constant(v.X)
		if m != nil {
			return nil, nil, m
		}
		return &expr.Unary{Op: "-", X: x}, imports, nil
	}
	return c.reference(n)
}

// reference resolves a theme path, an imported value or a helper call with
// constant arguments through the adapter.
func (c *Context) reference(n expr.Node) (expr.Node, []adapter.Import, *miss) {
	if _, ok := c.Scope.Prop(n); ok {
		return nil, nil, nonConstant
	}
	if path, ok := c.Scope.ThemePath(n); ok {
		res, ok := c.Env.Bridge.Resolve(adapter.Descriptor{Kind: adapter.ThemePath, Path: path})
		if !ok {
			return nil, nil, &miss{kind: missingTheme, text: "theme." + strings.Join(path, ".")}
		}
		return res.Expr, res.Imports, nil
	}
	if root, names, ok := expr.Path(n); ok {
		module, imported := c.Env.Imports[root]
		if !imported {
			return nil, nil, nonConstant
		}
		res, ok := c.Env.Bridge.Resolve(adapter.Descriptor{Kind: adapter.ImportedValue, Module: module, Name: root, Path: names})
		if !ok {
			return nil, nil, &miss{kind: missingRef, text: expr.Print(n)}
		}
		return res.Expr, res.Imports, nil
	}
	if call, ok := n.(*expr.Call); ok {
		id, ok := call.Callee.(*expr.Ident)
		if !ok {
			return nil, nil, nonConstant
		}
		var (
			args    []expr.Node
			imports []adapter.Import
		)
		for _, a := range call.Args {
			r, imps, m := c.constant(a)
			if m != nil {
				return nil, nil, m
			}
			args = append(args, r)
			imports = append(imports, imps...)
		}
		res, ok := c.Env.Bridge.Resolve(adapter.Descriptor{Kind: adapter.HelperCall, Name: id.Name, Args: args})
		if !ok {
			return nil, nil, &miss{kind: missingRef, text: expr.Print(n)}
		}
		return res.Expr, append(imports, res.Imports...), nil
	}
	return nil, nil, nonConstant
}

// value places a branch result into the declaration text around the slot.
// Empty results (empty string, null, undefined, false) unset the property.
func (c *Context) value(n expr.Node) expr.Node {
	if expr.IsEmptyValue(n) {
		return &expr.Null{}
	}
	return expr.Concat(c.Prefix, n, c.Suffix)
}

// conditional reports whether the selector context allows conditional
// lowering: variant buckets and style functions cannot carry attribute or
// pseudo-element conditions.
func (c *Context) conditional() bool {
	return c.Style.Attr == nil && c.Style.Element == ""
}

// dropProps removes purely presentational props from forwarding.
func (c *Context) dropProps(props []string) {
	for _, p := range props {
		if c.Env.Policy.Droppable(p, c.Target) {
			c.Builder.DropProp(p)
		}
	}
}

// bailUnresolved commits a failed theme lookup.
func (c *Context) bailUnresolved(m *miss) {
	c.Tracker.Bail(diag.UnresolvedReference, c.Decl.Loc, "", c.Prop+": "+m.text)
}

// branch is one arm of a conditional chain.
type branch struct {
	cond  *condition.Condition
	value expr.Node
}

// chainKeys gives each branch a key that holds exactly when the branch is
// taken: its own condition conjoined with the complement of every earlier
// condition that it does not already exclude.
func chainKeys(branches []branch) []string {
	keys := make([]string, len(branches))
	for i, b := range branches {
		parts := make([]string, 0, i+1)
		for _, prior := range branches[:i] {
			if !condition.Exclusive(prior.cond, b.cond) {
				parts = append(parts, condition.Invert(prior.cond).Key())
			}
		}
		keys[i] = condition.And(append(parts, b.cond.Key())...)
	}
	return keys
}

// lowerChain writes a resolved conditional chain: the default goes to the
// base object and every branch to its variant bucket. An empty branch
// unsets the property when the default is not empty.
func (c *Context) lowerChain(branches []branch, def expr.Node, imports []adapter.Import) {
	c.Builder.AddImports(imports...)
	emptyDefault := def == nil || expr.IsEmptyValue(def)
	if !emptyDefault {
		c.Builder.Apply(c.Prop, c.value(def), c.Style)
	}
	var props []string
	for i, key := range chainKeys(branches) {
		b := branches[i]
		props = append(props, b.cond.Props()...)
		if expr.IsEmptyValue(b.value) && emptyDefault {
			continue
		}
		c.Builder.ApplyVariant(key, c.Prop, c.value(b.value), c.Style)
	}
	c.dropProps(props)
	c.Builder.NeedWrapper()
}
