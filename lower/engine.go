// Package lower drives the declaration lowering of one source file:
// components in discovery order, their rules in source order and the
// declarations of each rule in source order. Every step that may bail a
// component is followed by a latch check, a bailed component is never
// touched again.
package lower

import (
	"strings"

	"go.uber.org/zap"

	"sc2sx/adapter"
	"sc2sx/diag"
	"sc2sx/expr"
	"sc2sx/model"
	"sc2sx/patterns"
	"sc2sx/selector"
	"sc2sx/styles"
)

// Engine lowers files. It holds no per file state and may be reused for
// several files sequentially.
type Engine struct {
	table  *patterns.Table
	bridge *adapter.Bridge
	policy patterns.Policy
	log    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTable replaces the default recognizer catalogue.
func WithTable(t *patterns.Table) Option {
	return func(e *Engine) { e.table = t }
}

// WithPolicy sets the prop forwarding policy.
func WithPolicy(p patterns.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

func NewEngine(r adapter.Resolver, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		table:  patterns.Default(),
		bridge: adapter.NewBridge(r, log),
		log:    log.Named("lower"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithResolver returns an engine sharing catalogue and policy with e that
// resolves references through r.
func (e *Engine) WithResolver(r adapter.Resolver) *Engine {
	cp := *e
	cp.bridge = adapter.NewBridge(r, e.log)
	return &cp
}

// Lower processes every component of f.
func (e *Engine) Lower(f *File) {
	for _, c := range f.Components {
		e.LowerComponent(f, c)
	}
	e.log.Debug("File lowered",
		zap.String("file", f.Path),
		zap.Int("components", len(f.Components)),
		zap.Int("errors", f.diags.Count(diag.SeverityError)))
}

// LowerComponent processes one component and freezes its builder. Calling
// it for a bailed or already lowered component does nothing.
func (e *Engine) LowerComponent(f *File, c *Component) {
	if c.Tracker.Bailed() || c.Builder.Frozen() {
		return
	}
	defer c.Builder.Freeze()

	env := &patterns.Env{
		Helpers: f.Helpers,
		Imports: f.Imports,
		Bridge:  e.bridge,
		Policy:  e.policy,
	}
	roles := make(map[string]string)
	refs := siblings{file: f, self: c}
	log := e.log.With(zap.String("component", c.Name))

	for i := range c.Rules {
		rule := &c.Rules[i]
		ctx, ok := e.context(c, rule, refs, roles)
		if !ok || c.Tracker.Bailed() {
			break
		}
		for j := range rule.Declarations {
			e.declaration(env, c, &rule.Declarations[j], ctx, log)
			if c.Tracker.Bailed() {
				break
			}
		}
		if c.Tracker.Bailed() {
			break
		}
	}

	if c.Tracker.Bailed() {
		log.Debug("Component left untransformed")
		return
	}
	log.Debug("Component lowered",
		zap.Int("variants", len(c.Builder.Variants())),
		zap.Int("functions", len(c.Builder.Functions())),
		zap.Bool("wrapper", c.Builder.NeedsWrapper()))
}

// context classifies the selector of a rule and derives the write context
// of its declarations.
func (e *Engine) context(c *Component, rule *model.Rule, refs selector.Registry, roles map[string]string) (styles.Context, bool) {
	cls := selector.Classify(rule.Selector, rule.AtRules, refs)
	var ctx styles.Context

	switch cls.Kind {
	case selector.Unsupported:
		c.Tracker.Bail(diag.UnsupportedSelector, rule.Loc, "", describe(rule)+": "+cls.Reason)
		return ctx, false
	case selector.PseudoSet:
		ctx.Pseudos = cls.Pseudos
	case selector.PseudoElement:
		ctx.Element = cls.Element
	case selector.AttributeTest:
		attr := cls.Attr
		ctx.Attr = &attr
	case selector.Sibling:
		ctx.Pseudos = cls.Keys()
		c.Builder.AddRelationMarker(c.Name)
	case selector.Relation:
		// one component state observed both as ancestor and as descendant
		// has no single key
		if cls.Pseudo != "" {
			role := cls.Other + cls.Pseudo
			if prev, ok := roles[role]; ok && prev != cls.Direction {
				c.Tracker.Bail(diag.ConflictingCondition, rule.Loc, "",
					describe(rule)+": "+cls.Other+cls.Pseudo+" used as "+prev+" and "+cls.Direction)
				return ctx, false
			}
			roles[role] = cls.Direction
		}
		ctx.Pseudos = cls.Keys()
		c.Builder.AddRelationMarker(cls.Other)
	}

	if cls.Media != nil {
		media, ok := e.media(c, rule, cls.Media)
		if !ok {
			return ctx, false
		}
		ctx.Media = media
	}
	return ctx, true
}

// media returns the map key of an at-rule, resolving interpolated queries
// through the adapter.
func (e *Engine) media(c *Component, rule *model.Rule, m *selector.Media) (string, bool) {
	if !m.Resolved {
		return m.Text, true
	}
	n, ok := c.Exprs.Get(m.Slot)
	if !ok {
		c.Tracker.Bail(diag.UnsupportedSelector, rule.Loc, "", describe(rule)+": missing expression for "+expr.Marker(m.Slot))
		return "", false
	}
	res, ok := e.bridge.Resolve(adapter.Descriptor{Kind: adapter.MediaSlot, Expr: n})
	if !ok {
		c.Tracker.Bail(diag.UnresolvedReference, rule.Loc, "", describe(rule)+": media "+expr.Print(n))
		return "", false
	}
	c.Builder.AddImports(res.Imports...)
	if s, ok := res.Expr.(*expr.StringLit); ok {
		return s.Value, true
	}
	return styles.ComputedKey(res.Expr), true
}

func (e *Engine) declaration(env *patterns.Env, c *Component, d *model.Declaration, ctx styles.Context, log *zap.Logger) {
	if d.Value.IsStatic() {
		if d.IsMixin() {
			return
		}
		var value expr.Node
		if d.Important {
			value = expr.Str(strings.TrimSpace(d.Value.Static) + " !important")
		} else {
			value = expr.Literal(d.Value.Static)
		}
		c.Builder.Apply(d.Property, value, ctx)
		return
	}

	name := e.table.Dispatch(&patterns.Context{
		Env:     env,
		Decl:    d,
		Exprs:   c.Exprs,
		Style:   ctx,
		Target:  c.Target,
		Builder: c.Builder,
		Tracker: c.Tracker,
		Log:     log,
	})
	if name == "" || c.Tracker.Bailed() {
		return
	}
	c.Recognized[name]++
	if d.Important && name != "constant" && name != "template" {
		c.Tracker.Warn(diag.IgnoredSemantics, d.Loc, d.Property+": !important applies to every branch")
	}
}

func describe(rule *model.Rule) string {
	if len(rule.AtRules) == 0 {
		return rule.Selector
	}
	return strings.Join(rule.AtRules, " ") + " { " + rule.Selector + " }"
}
