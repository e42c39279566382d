package lower

import (
	"strings"

	"sc2sx/expr"
	"sc2sx/styles"
	"sc2sx/utils/debug"
)

// String returns a readable tree of the file: every component with its
// accumulated style objects followed by diagnostics. It exists for manual
// inspection and debug reports.
func (f *File) String() string {
	if f == nil {
		return "<nil File>"
	}
	tw := debug.NewTreeWriter()
	tw.Line(0, "File %s (%d components)", f.Path, len(f.Components))
	for _, c := range f.Components {
		c.dump(tw, 1)
	}
	if all := f.diags.All(); len(all) > 0 {
		tw.Line(1, "Diagnostics: %d", len(all))
		for _, d := range all {
			tw.Line(2, "%s", d)
		}
	}
	return tw.String()
}

func (c *Component) dump(tw *debug.TreeWriter, depth int) {
	if c.Bailed() {
		tw.Line(depth, "Component %s %s left untransformed", c.Name, c.Target)
		return
	}
	b := c.Builder
	tw.Line(depth, "Component %s %s styles.%s", c.Name, c.Target, c.StyleKey)
	depth++

	if b.Main().Len() > 0 {
		tw.Line(depth, "Base")
		dumpMap(tw, depth+1, b.Main())
	}
	for _, v := range b.Variants() {
		kind := "Variant"
		if v.Theme {
			kind = "Theme variant"
		}
		tw.Line(depth, "%s %s when %s", kind, v.Name, v.Key)
		dumpMap(tw, depth+1, v.Bucket)
	}
	for _, a := range b.Attributes() {
		tw.Line(depth, "Attribute %s[%s]", a.Attr.Kind, a.Attr.Name)
		dumpMap(tw, depth+1, a.Bucket)
	}
	for _, e := range b.Elements() {
		tw.Line(depth, "Element %s", e.Element)
		dumpMap(tw, depth+1, e.Bucket)
	}
	for _, fn := range b.Functions() {
		tw.Line(depth, "Function %s(%s) for %s", fn.Name, strings.Join(fn.Params, ", "), fn.Property)
		dumpMap(tw, depth+1, fn.Bucket)
	}
	for _, app := range b.Applications() {
		if app.Guard == "" {
			tw.Line(depth, "Apply %s(%s)", app.Name, strings.Join(app.Args, ", "))
			continue
		}
		tw.Line(depth, "Apply %s(%s) if %s", app.Name, strings.Join(app.Args, ", "), app.Guard)
	}
	for _, m := range b.Mixins() {
		tw.Line(depth, "Mixin %s", expr.Print(m))
	}
	for _, imp := range b.Imports() {
		tw.Line(depth, "Import {%s} from %q", strings.Join(imp.Names, ", "), imp.From)
	}
	tw.List(depth, "Dropped props", b.ForwardPropDrops())
	if markers := b.RelationMarkers(); len(markers) > 0 {
		// marker order is meaningful
		tw.Line(depth, "Relation markers: %s", strings.Join(markers, ", "))
	}
	if b.NeedsWrapper() || b.NeedsThemeHook() {
		tw.Line(depth, "Wrapper: %t, theme hook: %t", b.NeedsWrapper(), b.NeedsThemeHook())
	}
	tw.Counts(depth, "Recognized", c.Recognized)
}

// dumpMap keeps insertion order, it is the order styles are emitted in.
func dumpMap(tw *debug.TreeWriter, depth int, m *styles.Map) {
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		if v.Sub != nil {
			tw.Line(depth, "%s", k)
			dumpMap(tw, depth+1, v.Sub)
			continue
		}
		tw.Line(depth, "%s: %s", k, expr.Print(v.Leaf))
	}
}
