package patterns

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"sc2sx/adapter"
	"sc2sx/diag"
	"sc2sx/expr"
	"sc2sx/expr/jsexpr"
	"sc2sx/model"
	"sc2sx/styles"
)

const themeTable = `
theme:
  colors.border: {expr: '"red"'}
  isLight: {expr: "true"}
  sizes:
    expr: sizes
    imports: [{from: ./tokens, names: [sizes]}]
modules:
  ./tokens:
    space.md: {expr: '"12px"'}
calls:
  rem(2): {expr: '"0.5rem"'}
`

type harness struct {
	t       *testing.T
	env     *Env
	exprs   *expr.Table
	sink    *diag.Sink
	tracker *diag.Tracker
	builder *styles.Builder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	var table adapter.Table
	if err := yaml.Unmarshal([]byte(themeTable), &table); err != nil {
		t.Fatalf("decode table: %v", err)
	}
	tr, err := adapter.NewTableResolver(&table)
	if err != nil {
		t.Fatalf("NewTableResolver() error = %v", err)
	}
	log := zaptest.NewLogger(t)
	h := &harness{
		t: t,
		env: &Env{
			Helpers: map[string]*expr.Arrow{},
			Imports: map[string]string{"space": "./tokens", "spacing": "./tokens"},
			Bridge:  adapter.NewBridge(tr, log),
		},
		exprs: &expr.Table{},
		sink:  &diag.Sink{},
	}
	h.tracker = diag.NewTracker("Button", h.sink, log)
	h.builder = styles.NewBuilder(h.tracker, log)
	return h
}

func (h *harness) helper(name, src string) {
	h.t.Helper()
	_, fn, err := jsexpr.ParseFunction(src)
	if err != nil {
		h.t.Fatalf("ParseFunction(%s) error = %v", src, err)
	}
	h.env.Helpers[name] = fn
}

func (h *harness) slot(src string) expr.Slot {
	h.t.Helper()
	n, err := jsexpr.Parse(src)
	if err != nil {
		h.t.Fatalf("Parse(%s) error = %v", src, err)
	}
	return h.exprs.Add(n)
}

// lower dispatches one declaration whose value is prefix${src}suffix.
func (h *harness) lower(prop, prefix, src, suffix string, style styles.Context) string {
	h.t.Helper()
	var parts []model.Part
	if prefix != "" {
		parts = append(parts, model.TextPart(prefix))
	}
	parts = append(parts, model.SlotPart(h.slot(src)))
	if suffix != "" {
		parts = append(parts, model.TextPart(suffix))
	}
	return h.dispatch(&model.Declaration{Property: prop, Value: model.Interpolated(parts...)}, style)
}

func (h *harness) dispatch(d *model.Declaration, style styles.Context) string {
	return Default().Dispatch(&Context{
		Env:     h.env,
		Decl:    d,
		Exprs:   h.exprs,
		Style:   style,
		Target:  model.IntrinsicTarget("button"),
		Builder: h.builder,
		Tracker: h.tracker,
	})
}

func (h *harness) base(prop string) string {
	h.t.Helper()
	n, ok := h.builder.Main().Lookup(prop)
	if !ok {
		h.t.Fatalf("no base value for %s", prop)
	}
	return expr.Print(n)
}

func (h *harness) variant(key, prop string) string {
	h.t.Helper()
	v, ok := h.builder.Variant(key)
	if !ok {
		h.t.Fatalf("no variant %q, have %v", key, variantKeys(h.builder))
	}
	n, ok := v.Bucket.Lookup(prop)
	if !ok {
		h.t.Fatalf("variant %q has no %s", key, prop)
	}
	return expr.Print(n)
}

func variantKeys(b *styles.Builder) []string {
	var keys []string
	for _, v := range b.Variants() {
		keys = append(keys, v.Key)
	}
	return keys
}

func TestDefaultOrder(t *testing.T) {
	want := []string{
		"constant",
		"theme-boolean-split",
		"ternary-chain",
		"logical-and-variant",
		"nullish-default",
		"theme-indexed-lookup",
		"enum-if-chain",
		"mapped-function",
		"prop-style-function",
	}
	if got := Default().Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v", got)
	}
}

func TestTernaryChainScenario(t *testing.T) {
	h := newHarness(t)
	got := h.lower("width", "", `p => p.size === "large" ? "40px" : p.size === "small" ? "20px" : "30px"`, "", styles.Context{})
	if got != "ternary-chain" {
		t.Fatalf("recognizer = %q", got)
	}
	if v := h.base("width"); v != `"30px"` {
		t.Errorf("base width = %s", v)
	}
	if v := h.variant(`size === "large"`, "width"); v != `"40px"` {
		t.Errorf("large = %s", v)
	}
	if v := h.variant(`size === "small"`, "width"); v != `"20px"` {
		t.Errorf("small = %s", v)
	}
	if !reflect.DeepEqual(h.builder.ForwardPropDrops(), []string{"size"}) {
		t.Errorf("drops = %v", h.builder.ForwardPropDrops())
	}
	if !h.builder.NeedsWrapper() || h.tracker.Bailed() {
		t.Error("expected wrapper and no bail")
	}
}

func TestNegatedOnlyChain(t *testing.T) {
	h := newHarness(t)
	h.lower("display", "", `({ $open }) => !$open ? "none" : ""`, "", styles.Context{})
	if h.builder.Main().Len() != 0 {
		t.Error("empty default touched the base object")
	}
	if v := h.variant("!$open", "display"); v != `"none"` {
		t.Errorf("!$open = %s", v)
	}
}

// holds evaluates a chain key against property values.
func holds(t *testing.T, key string, props map[string]any) bool {
	t.Helper()
	for _, term := range strings.Split(key, " && ") {
		var ok bool
		switch {
		case strings.Contains(term, " === "):
			p, lit, _ := strings.Cut(term, " === ")
			ok = props[p] == strings.Trim(lit, `"`)
		case strings.Contains(term, " !== "):
			p, lit, _ := strings.Cut(term, " !== ")
			ok = props[p] != strings.Trim(lit, `"`)
		case strings.HasPrefix(term, "!"):
			ok = !truthy(props[term[1:]])
		default:
			ok = truthy(props[term])
		}
		if !ok {
			return false
		}
	}
	return true
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	return true
}

func TestTernaryChainEvaluation(t *testing.T) {
	tests := []struct {
		src  string
		want func(kind any, active any) string
	}{
		{
			`p => p.kind === "a" ? "red" : p.kind === "b" ? "green" : p.active ? "blue" : "black"`,
			func(kind, active any) string {
				switch {
				case kind == "a":
					return "red"
				case kind == "b":
					return "green"
				case truthy(active):
					return "blue"
				}
				return "black"
			},
		},
		{
			`({ kind, active }) => active ? "blue" : kind === "a" ? "red" : "black"`,
			func(kind, active any) string {
				switch {
				case truthy(active):
					return "blue"
				case kind == "a":
					return "red"
				}
				return "black"
			},
		},
		{
			`p => p.active && p.kind === "a" ? "red" : "black"`,
			func(kind, active any) string {
				if truthy(active) && kind == "a" {
					return "red"
				}
				return "black"
			},
		},
	}
	for _, tt := range tests {
		h := newHarness(t)
		h.lower("color", "", tt.src, "", styles.Context{})
		if h.tracker.Bailed() {
			t.Fatalf("%s bailed: %v", tt.src, h.sink.All())
		}
		for _, kind := range []any{"a", "b", "c", nil} {
			for _, active := range []any{true, false, nil} {
				props := map[string]any{"kind": kind, "active": active}
				got := ""
				if n, ok := h.builder.Main().Lookup("color"); ok {
					got, _ = expr.EvalString(n)
				}
				for _, v := range h.builder.Variants() {
					if n, ok := v.Bucket.Lookup("color"); ok && holds(t, v.Key, props) {
						got, _ = expr.EvalString(n)
					}
				}
				if want := tt.want(kind, active); got != want {
					t.Errorf("%s with kind=%v active=%v = %q, want %q (variants %v)",
						tt.src, kind, active, got, want, variantKeys(h.builder))
				}
			}
		}
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	h := newHarness(t)
	if got := h.lower("border", "2px solid ", `p => p.theme.colors.border`, "", styles.Context{}); got != "constant" {
		t.Fatalf("recognizer = %q", got)
	}
	n, ok := h.builder.Main().Lookup("border")
	if !ok {
		t.Fatal("no border")
	}
	if _, isTemplate := n.(*expr.Template); !isTemplate {
		t.Fatalf("border = %s, want a template", expr.Print(n))
	}
	if s, ok := expr.EvalString(n); !ok || s != "2px solid red" {
		t.Errorf("border evaluates to %q", s)
	}
}

func TestConstantReferences(t *testing.T) {
	h := newHarness(t)
	h.lower("padding", "", `space.md`, "", styles.Context{})
	h.lower("margin", "", `() => rem(2)`, "", styles.Context{})
	h.lower("color", "", `"navy"`, "", styles.Context{})
	if h.tracker.Bailed() {
		t.Fatalf("bailed: %v", h.sink.All())
	}
	for prop, want := range map[string]string{"padding": `"12px"`, "margin": `"0.5rem"`, "color": `"navy"`} {
		if got := h.base(prop); got != want {
			t.Errorf("%s = %s, want %s", prop, got, want)
		}
	}
}

func TestUnresolvedImportedCall(t *testing.T) {
	h := newHarness(t)
	h.builder.Apply("gap", expr.Str("4px"), styles.Context{})
	if got := h.lower("padding", "", `spacing(4)`, "", styles.Context{}); got != "" {
		t.Fatalf("recognizer = %q, want bail", got)
	}
	if !h.tracker.Bailed() {
		t.Fatal("component did not bail")
	}
	all := h.sink.All()
	if len(all) != 1 || all[0].Kind != diag.UnsupportedInterpolation || all[0].Shape != "call" {
		t.Fatalf("diagnostics = %v", all)
	}
	if _, ok := h.builder.Main().Get("padding"); ok {
		t.Error("bailed declaration wrote to the base object")
	}
}

func TestDefaultedPropIsNotAnOperand(t *testing.T) {
	h := newHarness(t)
	if got := h.lower("border-width", "", `({ kind, size = "m" }) => kind === size ? "1px" : "2px"`, "", styles.Context{}); got != "" {
		t.Fatalf("recognizer = %q, want bail", got)
	}
	all := h.sink.All()
	if !h.tracker.Bailed() || len(all) != 1 || all[0].Kind != diag.UnsupportedInterpolation {
		t.Fatalf("diagnostics = %v", all)
	}
	if len(h.builder.Variants()) != 0 || len(h.builder.ForwardPropDrops()) != 0 {
		t.Errorf("variants %v, drops %v", variantKeys(h.builder), h.builder.ForwardPropDrops())
	}
}

func TestUnresolvedThemePath(t *testing.T) {
	h := newHarness(t)
	h.lower("color", "", `p => p.theme.colors.missing`, "", styles.Context{})
	all := h.sink.All()
	if len(all) != 1 || all[0].Kind != diag.UnresolvedReference {
		t.Fatalf("diagnostics = %v", all)
	}
	if !strings.Contains(all[0].Context, "theme.colors.missing") {
		t.Errorf("context = %q", all[0].Context)
	}
}

func TestThemeBooleanSplit(t *testing.T) {
	h := newHarness(t)
	h.lower("color", "", `p => p.theme.isDark ? "white" : "black"`, "", styles.Context{})
	keys := variantKeys(h.builder)
	if !reflect.DeepEqual(keys, []string{"theme.isDark", "!theme.isDark"}) {
		t.Fatalf("variants = %v", keys)
	}
	for _, v := range h.builder.Variants() {
		if !v.Theme {
			t.Errorf("%s is not a theme bucket", v.Key)
		}
	}
	if !h.builder.NeedsThemeHook() {
		t.Error("theme hook not requested")
	}

	// a theme flag the adapter knows picks its branch statically
	s := newHarness(t)
	s.lower("color", "", `({ theme }) => !theme.isLight ? "white" : "black"`, "", styles.Context{})
	if got := s.base("color"); got != `"black"` {
		t.Errorf("color = %s", got)
	}
	if len(s.builder.Variants()) != 0 {
		t.Errorf("variants = %v", variantKeys(s.builder))
	}
}

func TestLogicalAndVariant(t *testing.T) {
	h := newHarness(t)
	h.builder.Apply("opacity", expr.Num(1), styles.Context{})
	if got := h.lower("opacity", "", `p => p.disabled && 0.5`, "", styles.Context{}); got != "logical-and-variant" {
		t.Fatalf("recognizer = %q", got)
	}
	if got := h.base("opacity"); got != "1" {
		t.Errorf("base opacity = %s", got)
	}
	if got := h.variant("disabled", "opacity"); got != "0.5" {
		t.Errorf("disabled = %s", got)
	}
}

func TestNullishDefault(t *testing.T) {
	h := newHarness(t)
	if got := h.lower("gap", "calc(", `p => p.$gap ?? "8px"`, " * 2)", styles.Context{}); got != "nullish-default" {
		t.Fatalf("recognizer = %q", got)
	}
	n, _ := h.builder.Main().Lookup("gap")
	if s, _ := expr.EvalString(n); s != "calc(8px * 2)" {
		t.Errorf("base gap = %q", s)
	}
	fns := h.builder.Functions()
	if len(fns) != 1 || fns[0].Name != "gapFromGap" {
		t.Fatalf("functions = %v", fns)
	}
	n, _ = fns[0].Bucket.Lookup("gap")
	if got := expr.Print(n); got != "`calc(${$gap} * 2)`" {
		t.Errorf("function body = %s", got)
	}
	apps := h.builder.Applications()
	if len(apps) != 1 || apps[0].Guard != "$gap != null" || !reflect.DeepEqual(apps[0].Args, []string{"$gap"}) {
		t.Errorf("applications = %v", apps)
	}
	if !reflect.DeepEqual(h.builder.ForwardPropDrops(), []string{"$gap"}) {
		t.Errorf("drops = %v", h.builder.ForwardPropDrops())
	}
}

func TestThemeIndexedLookup(t *testing.T) {
	h := newHarness(t)
	if got := h.lower("width", "", `p => p.theme.sizes[p.size] || "10px"`, "", styles.Context{}); got != "theme-indexed-lookup" {
		t.Fatalf("recognizer = %q", got)
	}
	fns := h.builder.Functions()
	if len(fns) != 1 {
		t.Fatalf("functions = %v", fns)
	}
	n, _ := fns[0].Bucket.Lookup("width")
	if got := expr.Print(n); got != `sizes[size] || "10px"` {
		t.Errorf("function body = %s", got)
	}
	imports := h.builder.Imports()
	if len(imports) != 1 || imports[0].From != "./tokens" {
		t.Errorf("imports = %v", imports)
	}
}

func TestEnumIfChain(t *testing.T) {
	h := newHarness(t)
	src := `p => { if (p.v === "a") return "1px"; if (p.v === "b") { return "2px"; } return "0"; }`
	if got := h.lower("margin", "", src, "", styles.Context{}); got != "enum-if-chain" {
		t.Fatalf("recognizer = %q", got)
	}
	if got := h.base("margin"); got != `"0"` {
		t.Errorf("base = %s", got)
	}
	if got := h.variant(`v === "b"`, "margin"); got != `"2px"` {
		t.Errorf("b = %s", got)
	}
}

func TestEnumIfChainMalformed(t *testing.T) {
	tests := []string{
		`p => { if (p.v === "a") { return "1px"; } else { return "2px"; } }`,
		`p => { if (p.v === "a") return p.w; return "0"; }`,
		`p => { if (p.v === "a") return "1px"; console.log(p); return "0"; }`,
	}
	for _, src := range tests {
		h := newHarness(t)
		h.lower("margin", "", src, "", styles.Context{})
		all := h.sink.All()
		if len(all) != 1 || all[0].Kind != diag.MalformedPattern {
			t.Errorf("%s: diagnostics = %v", src, all)
		}
		if h.builder.Main().Len() != 0 {
			t.Errorf("%s: malformed chain wrote styles", src)
		}
		if h.tracker.Bailed() {
			t.Errorf("%s: malformed chain bailed the component", src)
		}
	}

	// following declarations of the same component still lower
	h := newHarness(t)
	h.lower("margin", "", tests[0], "", styles.Context{})
	if got := h.lower("padding", "", `p => p.dense ? "2px" : "4px"`, "", styles.Context{}); got != "ternary-chain" {
		t.Fatalf("recognizer = %q", got)
	}
	if got := h.base("padding"); got != `"4px"` {
		t.Errorf("padding = %s", got)
	}
	if _, ok := h.builder.Main().Get("margin"); ok {
		t.Error("rejected declaration wrote margin")
	}
}

func TestMappedFunction(t *testing.T) {
	h := newHarness(t)
	h.helper("sizeToPx", `function sizeToPx(s) { return s === "large" ? "20px" : "10px"; }`)
	h.helper("toneColor", `(t) => { if (t === "warn") return "orange"; return "gray"; }`)
	if got := h.lower("padding", "", `p => sizeToPx(p.size)`, "", styles.Context{}); got != "mapped-function" {
		t.Fatalf("recognizer = %q", got)
	}
	h.lower("color", "", `({ tone: level }) => toneColor(level)`, "", styles.Context{})
	if h.tracker.Bailed() {
		t.Fatalf("bailed: %v", h.sink.All())
	}
	if got := h.base("padding"); got != `"10px"` {
		t.Errorf("padding = %s", got)
	}
	if got := h.variant(`size === "large"`, "padding"); got != `"20px"` {
		t.Errorf("large = %s", got)
	}
	if got := h.variant(`tone === "warn"`, "color"); got != `"orange"` {
		t.Errorf("warn = %s", got)
	}
}

func TestPropStyleFunction(t *testing.T) {
	h := newHarness(t)
	if got := h.lower("width", "", `p => p.cols * 10 + "%"`, "", styles.Context{}); got != "prop-style-function" {
		t.Fatalf("recognizer = %q", got)
	}
	fns := h.builder.Functions()
	if len(fns) != 1 || !reflect.DeepEqual(fns[0].Params, []string{"cols"}) {
		t.Fatalf("functions = %v", fns)
	}
	n, _ := fns[0].Bucket.Lookup("width")
	if got := expr.Print(n); got != `cols * 10 + "%"` {
		t.Errorf("function body = %s", got)
	}

	// free identifiers and the bare parameter are refused
	for _, src := range []string{`p => p.cols * factor`, `p => p.cols + p`} {
		b := newHarness(t)
		if got := b.lower("width", "", src, "", styles.Context{}); got != "" {
			t.Errorf("%s lowered by %s", src, got)
		}
	}
}

func TestConditionalInsidePseudoElementBails(t *testing.T) {
	h := newHarness(t)
	h.lower("content", "", `p => p.on ? "'x'" : "''"`, "", styles.Context{Element: "::before"})
	if !h.tracker.Bailed() {
		t.Error("conditional inside a pseudo-element did not bail")
	}
}

func TestMixin(t *testing.T) {
	h := newHarness(t)
	h.env.Imports["shared"] = "./shared"
	h.env.Bridge = adapter.NewBridge(adapter.ResolverFunc(func(d adapter.Descriptor) (*adapter.Resolution, bool) {
		if d.Kind == adapter.ImportedValue && d.Name == "shared" {
			return &adapter.Resolution{
				Expr:    &expr.Object{Props: []expr.Prop{{Key: "color", Value: expr.Str("white")}}},
				Imports: []adapter.Import{{From: "./shared.stylex", Names: []string{"shared"}}},
			}, true
		}
		return nil, false
	}), nil)
	slot := h.slot(`shared.base`)
	if got := h.dispatch(&model.Declaration{Value: model.Interpolated(model.SlotPart(slot))}, styles.Context{}); got != "mixin" {
		t.Fatalf("recognizer = %q", got)
	}
	h.lower("color", "", `"black"`, "", styles.Context{Pseudos: []string{":hover"}})
	if len(h.builder.Mixins()) != 1 {
		t.Fatalf("mixins = %v", h.builder.Mixins())
	}
	n, _ := h.builder.Main().Lookup("color", styles.Default)
	if got := expr.Print(n); got != `"white"` {
		t.Errorf("seeded default = %s", got)
	}
}

func TestMultiSlotTemplate(t *testing.T) {
	h := newHarness(t)
	a, b := h.slot(`space.md`), h.slot(`p => p.theme.colors.border`)
	h.dispatch(&model.Declaration{
		Property:  "border",
		Important: true,
		Value: model.Interpolated(
			model.SlotPart(a), model.TextPart(" solid "), model.SlotPart(b),
		),
	}, styles.Context{})
	n, ok := h.builder.Main().Lookup("border")
	if !ok {
		t.Fatalf("no border, diagnostics %v", h.sink.All())
	}
	if s, _ := expr.EvalString(n); s != "12px solid red !important" {
		t.Errorf("border = %q", s)
	}

	bad := newHarness(t)
	x, y := bad.slot(`"1px"`), bad.slot(`p => p.color`)
	bad.dispatch(&model.Declaration{
		Property: "border",
		Value:    model.Interpolated(model.SlotPart(x), model.TextPart(" solid "), model.SlotPart(y)),
	}, styles.Context{})
	if all := bad.sink.All(); len(all) != 1 || all[0].Shape != "arrow" {
		t.Errorf("diagnostics = %v", all)
	}
}
