// Package styles accumulates lowering results of one component into its
// final static representation: the base style object with per-property
// pseudo and media maps, variant buckets keyed by condition, theme gated
// buckets, attribute buckets, pseudo-element buckets and style functions.
//
// A Builder is the only way to mutate these accumulators. Once the
// component's latch has tripped, or the builder was frozen, every write is
// silently refused.
package styles

import (
	"slices"

	"go.uber.org/zap"

	"sc2sx/adapter"
	"sc2sx/expr"
	"sc2sx/selector"
)

// Latch reports whether the owning component has bailed.
type Latch interface {
	Bailed() bool
}

// Context tells where a value goes.
//
// Priority when several fields are set: Attr routes to the attribute
// bucket first, then pseudo and media nest (pseudo outside, media inside),
// then Element routes to the pseudo-element bucket, otherwise the value is
// a base value.
type Context struct {
	Attr    *selector.Attribute
	Pseudos []string
	Media   string
	Element string
}

// IsBase reports whether ctx writes straight into the base object.
func (c Context) IsBase() bool {
	return c.Attr == nil && len(c.Pseudos) == 0 && c.Media == "" && c.Element == ""
}

// paths lists the nested map key paths a value is written under. An empty
// path means a base write.
func (c Context) paths() [][]string {
	if len(c.Pseudos) == 0 {
		if c.Media == "" {
			return [][]string{nil}
		}
		return [][]string{{c.Media}}
	}
	paths := make([][]string, 0, len(c.Pseudos))
	for _, p := range c.Pseudos {
		if c.Media != "" {
			paths = append(paths, []string{p, c.Media})
		} else {
			paths = append(paths, []string{p})
		}
	}
	return paths
}

// Variant is a conditionally applied style object. Theme variants are
// gated by a runtime theme read instead of a component property.
type Variant struct {
	Key    string
	Name   string
	Theme  bool
	Bucket *Map
}

// AttributeBucket holds styles applied when the rendered element carries
// an attribute.
type AttributeBucket struct {
	Attr   selector.Attribute
	Bucket *Map
}

// ElementBucket holds styles of one pseudo-element.
type ElementBucket struct {
	Element string
	Bucket  *Map
}

// Function is a generated style function: Params are component properties
// and Bucket is the style object it returns, with parameters referenced as
// identifiers.
type Function struct {
	Name     string
	Params   []string
	Property string
	Bucket   *Map
}

// Application records where a style function is applied. Args are the
// component properties passed in, Guard is a condition key that must hold
// (empty when unconditional).
type Application struct {
	Name     string
	Property string
	Args     []string
	Guard    string
}

// Builder accumulates the static styles of one component. It is not safe
// for concurrent use.
type Builder struct {
	latch  Latch
	log    *zap.Logger
	frozen bool
	names  names

	main        *Map
	mixinValues map[string]expr.Node
	mixins      []expr.Node

	variants   []*Variant
	variantIdx map[string]*Variant

	attrs    []*AttributeBucket
	elements []*ElementBucket

	functions    []*Function
	applications []Application

	drops           []string
	relationMarkers []string
	imports         []adapter.Import

	needsWrapper   bool
	needsThemeHook bool
}

// NewBuilder returns a builder refusing writes once latch reports a bail.
// A nil latch never trips.
func NewBuilder(latch Latch, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		latch:       latch,
		log:         log.Named("styles"),
		names:       names{},
		main:        NewMap(),
		mixinValues: make(map[string]expr.Node),
		variantIdx:  make(map[string]*Variant),
	}
}

func (b *Builder) refused() bool {
	return b.frozen || (b.latch != nil && b.latch.Bailed())
}

// Freeze stops all further mutation.
func (b *Builder) Freeze() {
	b.frozen = true
}

// Frozen reports whether Freeze was called.
func (b *Builder) Frozen() bool {
	return b.frozen
}

// Apply writes a value of a CSS property into the component style object.
func (b *Builder) Apply(prop string, value expr.Node, ctx Context) {
	if b.refused() {
		return
	}
	prop = PropertyName(prop)
	switch {
	case ctx.Attr != nil:
		bucket := b.attributeBucket(*ctx.Attr)
		inner := ctx
		inner.Attr = nil
		b.write(bucket, prop, value, inner, nil)
	case ctx.Element != "" && len(ctx.Pseudos) == 0:
		inner := ctx
		inner.Element = ""
		b.write(b.elementBucket(ctx.Element), prop, value, inner, nil)
	default:
		b.write(b.main, prop, value, ctx, b.mixinValues[prop])
	}
}

// ApplyVariant writes into the variant bucket of a condition key, the
// bucket is created on first use. Pseudo and media entries of the bucket
// default to the component's base value since the bucket replaces the
// whole property when merged.
func (b *Builder) ApplyVariant(key, prop string, value expr.Node, ctx Context) {
	if b.refused() {
		return
	}
	prop = PropertyName(prop)
	b.write(b.variant(key, false).Bucket, prop, value, ctx, b.seed(prop))
}

// ApplyTheme writes into a bucket gated by a runtime theme read.
func (b *Builder) ApplyTheme(key, prop string, value expr.Node, ctx Context) {
	if b.refused() {
		return
	}
	b.needsThemeHook = true
	prop = PropertyName(prop)
	b.write(b.variant(key, true).Bucket, prop, value, ctx, b.seed(prop))
}

// BaseValue returns the current unconditioned value of prop in the base
// object, looking through pseudo/media maps at their default.
func (b *Builder) BaseValue(prop string) (expr.Node, bool) {
	prop = PropertyName(prop)
	v, ok := b.main.Get(prop)
	switch {
	case !ok:
		if m, ok := b.mixinValues[prop]; ok {
			return m, true
		}
		return nil, false
	case v.Sub != nil:
		return v.Sub.Leaf(Default)
	}
	return v.Leaf, true
}

// seed is the default of a conditional entry in a bucket merged over the
// base object: base value, then mixin value, then null.
func (b *Builder) seed(prop string) expr.Node {
	if v, ok := b.BaseValue(prop); ok {
		return v
	}
	return nil
}

// RegisterFunction registers a style function computing prop from params
// and returns its generated name.
func (b *Builder) RegisterFunction(prop string, params []string, value expr.Node, ctx Context) string {
	if b.refused() {
		return ""
	}
	prop = PropertyName(prop)
	base := prop
	if len(params) > 0 {
		base = prop + " from " + params[0]
	}
	fn := &Function{
		Name:     b.names.unique(camel(base)),
		Params:   slices.Clone(params),
		Property: prop,
		Bucket:   NewMap(),
	}
	ctx.Attr = nil
	b.write(fn.Bucket, prop, value, ctx, b.seed(prop))
	b.functions = append(b.functions, fn)
	b.log.Debug("Style function registered", zap.String("name", fn.Name), zap.Strings("params", params))
	return fn.Name
}

// ApplyFunction records an application of a registered style function.
func (b *Builder) ApplyFunction(name, prop string, args []string, guard string) {
	if b.refused() {
		return
	}
	b.applications = append(b.applications, Application{
		Name:     name,
		Property: PropertyName(prop),
		Args:     slices.Clone(args),
		Guard:    guard,
	})
}

// DropProp stops a component property from being forwarded to the rendered
// element.
func (b *Builder) DropProp(name string) {
	if b.refused() || slices.Contains(b.drops, name) {
		return
	}
	b.drops = append(b.drops, name)
}

// ComposeMixin adds a constant style reference composed before the base
// object. values are its known properties, used to seed defaults.
func (b *Builder) ComposeMixin(ref expr.Node, values map[string]expr.Node) {
	if b.refused() {
		return
	}
	b.mixins = append(b.mixins, ref)
	for k, v := range values {
		b.mixinValues[PropertyName(k)] = v
	}
}

// AddRelationMarker records that component name has to carry a marker
// for relation or sibling keys.
func (b *Builder) AddRelationMarker(name string) {
	if b.refused() || slices.Contains(b.relationMarkers, name) {
		return
	}
	b.relationMarkers = append(b.relationMarkers, name)
}

// AddImports records imports needed by resolved expressions. Names from the
// same module are merged.
func (b *Builder) AddImports(imports ...adapter.Import) {
	if b.refused() {
		return
	}
	for _, imp := range imports {
		i := slices.IndexFunc(b.imports, func(x adapter.Import) bool { return x.From == imp.From })
		if i < 0 {
			b.imports = append(b.imports, adapter.Import{From: imp.From})
			i = len(b.imports) - 1
		}
		for _, n := range imp.Names {
			if !slices.Contains(b.imports[i].Names, n) {
				b.imports[i].Names = append(b.imports[i].Names, n)
			}
		}
	}
}

// NeedWrapper marks that the component needs a wrapper to compute its
// style at render time.
func (b *Builder) NeedWrapper() {
	if b.refused() {
		return
	}
	b.needsWrapper = true
}

func (b *Builder) variant(key string, theme bool) *Variant {
	idx := key
	if theme {
		idx = "theme:" + key
	}
	if v, ok := b.variantIdx[idx]; ok {
		return v
	}
	v := &Variant{Key: key, Name: b.names.unique(KeyName(key)), Theme: theme, Bucket: NewMap()}
	b.variants = append(b.variants, v)
	b.variantIdx[idx] = v
	b.log.Debug("Variant bucket created", zap.String("key", key), zap.String("name", v.Name), zap.Bool("theme", theme))
	return v
}

func (b *Builder) attributeBucket(attr selector.Attribute) *Map {
	for _, ab := range b.attrs {
		if ab.Attr == attr {
			return ab.Bucket
		}
	}
	ab := &AttributeBucket{Attr: attr, Bucket: NewMap()}
	b.attrs = append(b.attrs, ab)
	b.needsWrapper = true
	return ab.Bucket
}

func (b *Builder) elementBucket(element string) *Map {
	for _, eb := range b.elements {
		if eb.Element == element {
			return eb.Bucket
		}
	}
	eb := &ElementBucket{Element: element, Bucket: NewMap()}
	b.elements = append(b.elements, eb)
	return eb.Bucket
}

// write stores value under prop in m following ctx. The first conditional
// write of a property turns its entry into a map whose default is the prior
// value in m, or seed when m has none (null when seed is nil). A base write
// to a property that already has a map updates its default.
func (b *Builder) write(m *Map, prop string, value expr.Node, ctx Context, seed expr.Node) {
	for _, path := range ctx.paths() {
		cur, ok := m.Get(prop)
		if len(path) == 0 {
			if ok && cur.Sub != nil {
				cur.Sub.Set(Default, leaf(value))
			} else {
				m.Set(prop, leaf(value))
			}
			continue
		}

		var sub *Map
		switch {
		case ok && cur.Sub != nil:
			sub = cur.Sub
		case ok:
			sub = NewMap()
			sub.Set(Default, cur)
			m.Set(prop, &Value{Sub: sub})
		default:
			sub = NewMap()
			sub.Set(Default, leaf(seed))
			m.Set(prop, &Value{Sub: sub})
		}
		for i, k := range path {
			if i == len(path)-1 {
				if next, ok := sub.Get(k); ok && next.Sub != nil {
					next.Sub.Set(Default, leaf(value))
				} else {
					sub.Set(k, leaf(value))
				}
				break
			}
			next, ok := sub.Get(k)
			switch {
			case ok && next.Sub != nil:
				sub = next.Sub
			case ok:
				n := NewMap()
				n.Set(Default, next)
				sub.Set(k, &Value{Sub: n})
				sub = n
			default:
				n := NewMap()
				n.Set(Default, leaf(nil))
				sub.Set(k, &Value{Sub: n})
				sub = n
			}
		}
	}
}

// Main returns the base style object.
func (b *Builder) Main() *Map { return b.main }

// Variants returns variant and theme buckets in creation order.
func (b *Builder) Variants() []*Variant { return b.variants }

// Attributes returns attribute buckets in creation order.
func (b *Builder) Attributes() []*AttributeBucket { return b.attrs }

// Elements returns pseudo-element buckets in creation order.
func (b *Builder) Elements() []*ElementBucket { return b.elements }

// Functions returns registered style functions.
func (b *Builder) Functions() []*Function { return b.functions }

// Applications returns recorded style function applications.
func (b *Builder) Applications() []Application { return b.applications }

// ForwardPropDrops returns properties not forwarded to the element.
func (b *Builder) ForwardPropDrops() []string { return b.drops }

// Mixins returns constant style references composed before the base object.
func (b *Builder) Mixins() []expr.Node { return b.mixins }

// RelationMarkers returns components that carry relation markers.
func (b *Builder) RelationMarkers() []string { return b.relationMarkers }

// Imports returns imports needed by resolved expressions.
func (b *Builder) Imports() []adapter.Import { return b.imports }

// NeedsWrapper reports whether a render time wrapper is required.
func (b *Builder) NeedsWrapper() bool { return b.needsWrapper }

// NeedsThemeHook reports whether theme buckets read the runtime theme.
func (b *Builder) NeedsThemeHook() bool { return b.needsThemeHook }

// Variant returns the property variant bucket of a condition key.
func (b *Builder) Variant(key string) (*Variant, bool) {
	v, ok := b.variantIdx[key]
	return v, ok
}

// AttributeWrapper lists the attributes the wrapper component has to read,
// nil when no attribute bucket exists.
func (b *Builder) AttributeWrapper() []selector.Attribute {
	if len(b.attrs) == 0 {
		return nil
	}
	attrs := make([]selector.Attribute, 0, len(b.attrs))
	for _, ab := range b.attrs {
		attrs = append(attrs, ab.Attr)
	}
	return attrs
}
