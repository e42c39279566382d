package patterns

import (
	"strings"

	"go.uber.org/zap"

	"sc2sx/adapter"
	"sc2sx/expr"
)

// themeBooleanSplit lowers theme.isX ? A : B. A test the adapter resolves to
// a boolean picks its branch statically, otherwise each branch goes into a
// bucket gated by a runtime theme read.
type themeBooleanSplit struct{}

func (themeBooleanSplit) Name() string { return "theme-boolean-split" }

func (themeBooleanSplit) Recognize(c *Context) Lowering {
	cond, ok := c.Body.(*expr.Cond)
	if !ok || !c.conditional() {
		return nil
	}
	test, then, els := cond.Test, cond.Then, cond.Else
	for {
		u, ok := test.(*expr.Unary)
		if !ok || u.Op != "!" {
			break
		}
		test, then, els = u.X, els, then
	}
	path, ok := c.Scope.ThemePath(test)
	if !ok {
		return nil
	}

	a, ia, m := c.constant(then)
	if m != nil {
		return failedBranch(m)
	}
	b, ib, m := c.constant(els)
	if m != nil {
		return failedBranch(m)
	}
	imports := append(ia, ib...)

	key := "theme." + strings.Join(path, ".")
	return func(c *Context) {
		c.Builder.AddImports(imports...)
		res, ok := c.Env.Bridge.Resolve(adapter.Descriptor{Kind: adapter.ThemePath, Path: path})
		if ok {
			if v, isBool := res.Expr.(*expr.BoolLit); isBool {
				pick := b
				if v.Value {
					pick = a
				}
				if !expr.IsEmptyValue(pick) {
					c.Builder.Apply(c.Prop, c.value(pick), c.Style)
				}
				return
			}
		}
		c.Builder.ApplyTheme(key, c.Prop, c.value(a), c.Style)
		c.Builder.ApplyTheme("!"+key, c.Prop, c.value(b), c.Style)
		c.Builder.NeedWrapper()
	}
}

// failedBranch commits an unresolved theme read inside a branch and
// declines anything else.
func failedBranch(m *miss) Lowering {
	if m.kind != missingTheme {
		return nil
	}
	return func(c *Context) { c.bailUnresolved(m) }
}

// themeIndexedLookup lowers theme.category[p], optionally followed by
// || fallback or ?? fallback, into a style function indexing the resolved
// constant table.
type themeIndexedLookup struct{}

func (themeIndexedLookup) Name() string { return "theme-indexed-lookup" }

func (themeIndexedLookup) Recognize(c *Context) Lowering {
	if !c.conditional() {
		return nil
	}
	body := c.Body
	var (
		op       string
		fallback expr.Node
	)
	if l, ok := body.(*expr.Logical); ok && (l.Op == "||" || l.Op == "??") {
		body, op, fallback = l.X, l.Op, l.Y
	}
	idx, ok := body.(*expr.Index)
	if !ok {
		return nil
	}
	p, ok := c.Scope.Prop(idx.Key)
	if !ok {
		return nil
	}
	path, ok := c.Scope.ThemePath(idx.X)
	if !ok {
		return nil
	}
	table, imports, m := c.constant(idx.X)
	if m != nil {
		return failedBranch(m)
	}
	var lookup expr.Node = &expr.Index{X: table, Key: expr.Id(p)}
	if fallback != nil {
		f, fi, m := c.constant(fallback)
		if m != nil {
			return failedBranch(m)
		}
		imports = append(imports, fi...)
		lookup = &expr.Logical{Op: op, X: lookup, Y: f}
	}
	return func(c *Context) {
		c.Builder.AddImports(imports...)
		name := c.Builder.RegisterFunction(c.Prop, []string{p}, expr.Concat(c.Prefix, lookup, c.Suffix), c.Style)
		c.Builder.ApplyFunction(name, c.Prop, []string{p}, "")
		c.Log.Debug("Theme table indexed by property",
			zap.String("theme", strings.Join(path, ".")), zap.String("prop", p))
		c.dropProps([]string{p})
		c.Builder.NeedWrapper()
	}
}
