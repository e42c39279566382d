package fixture

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"sc2sx/diag"
	"sc2sx/expr"
	"sc2sx/lower"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		in   string
		want []segment
	}{
		{"red", []segment{{text: "red"}}},
		{"", []segment{{text: ""}}},
		{"${a}", []segment{{text: "a", interp: true}}},
		{"1px solid ${ c }", []segment{{text: "1px solid "}, {text: "c", interp: true}}},
		{"${p => ({ a: 1 }).a}px", []segment{{text: "p => ({ a: 1 }).a", interp: true}, {text: "px"}}},
		{"${p => p.x ? '}' : `${p.y}`}", []segment{{text: "p => p.x ? '}' : `${p.y}`", interp: true}}},
		{"${a} ${b}", []segment{{text: "a", interp: true}, {text: " "}, {text: "b", interp: true}}},
	}
	for _, tt := range tests {
		got, err := split(tt.in)
		if err != nil {
			t.Fatalf("split(%q) error = %v", tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("split(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"${a", "${}", "${ '}"} {
		if _, err := split(bad); err == nil {
			t.Errorf("split(%q) succeeded", bad)
		}
	}
}

func TestLoadAndLower(t *testing.T) {
	fx, err := Load(filepath.Join("testdata", "button.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	f, tr, err := fx.Build(zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	lower.NewEngine(tr, zaptest.NewLogger(t)).Lower(f)

	bailed := map[string]bool{}
	for _, c := range f.Components {
		bailed[c.Name] = c.Bailed()
	}
	want := map[string]bool{"Icon": false, "Button": false, "Card": true, "Spacer": true}
	if !reflect.DeepEqual(bailed, want) {
		t.Fatalf("bailed = %v, diagnostics %v", bailed, f.Diagnostics().All())
	}
	if n := f.Diagnostics().Count(diag.SeverityError); n != 2 {
		t.Errorf("errors = %d", n)
	}

	b := f.Lookup("Button")
	if _, ok := b.Builder.Variant(`size === "large"`); !ok {
		t.Error("missing size variant")
	}
	if got := b.Builder.RelationMarkers(); !reflect.DeepEqual(got, []string{"Icon"}) {
		t.Errorf("markers = %v", got)
	}
	border, _ := b.Builder.Main().Lookup("border")
	if s, _ := expr.EvalString(border); s != "1px solid #ccc" {
		t.Errorf("border = %q", s)
	}
	hover, _ := b.Builder.Main().Lookup("color", ":hover")
	if got := expr.Print(hover); got != `"blue"` {
		t.Errorf("color :hover = %s", got)
	}
	def, _ := b.Builder.Main().Lookup("color", "default")
	if got := expr.Print(def); got != "colors.primary" {
		t.Errorf("color default = %s", got)
	}
	if len(b.Builder.Attributes()) != 1 || len(b.Builder.Elements()) != 1 {
		t.Errorf("attributes = %d, elements = %d", len(b.Builder.Attributes()), len(b.Builder.Elements()))
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse("x.yaml", []byte("file: x\nextra: 1\n")); err == nil {
		t.Error("unknown field accepted")
	}

	fx, err := Parse("x.yaml", []byte(`
components:
  - name: A
    base: div
    rules:
      - selector: "&"
        declarations:
          - {property: color, value: "${p => }"}
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, _, err := fx.Build(nil); err == nil || !strings.Contains(err.Error(), "component A") {
		t.Errorf("Build() error = %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "missing.yaml")
	if _, err := Load(path); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
	if err := os.WriteFile(path, []byte("components: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fx, err = Load(path)
	if err != nil || fx.File != path {
		t.Errorf("Load() = %v, %v", fx, err)
	}
}

func TestTemplateComponent(t *testing.T) {
	fx, err := Parse("link.yaml", []byte(`
file: Link.tsx
imports:
  - {name: colors, from: ./tokens}
components:
  - name: Link
    base: a
    css: |
      color: red;
      border: 1px solid ${colors.border};
      &:hover {
        color: blue;
      }
resolver:
  modules:
    ./tokens:
      colors.border: {expr: '"#ccc"'}
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	f, tr, err := fx.Build(zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	c := f.Lookup("Link")
	if len(c.Rules) != 2 || c.Rules[1].Selector != "&:hover" || c.Rules[0].Loc.File != "Link.tsx" {
		t.Fatalf("rules = %+v", c.Rules)
	}

	lower.NewEngine(tr, zaptest.NewLogger(t)).Lower(f)
	if c.Bailed() {
		t.Fatalf("Link bailed: %v", f.Diagnostics().All())
	}
	border, _ := c.Builder.Main().Lookup("border")
	if s, _ := expr.EvalString(border); s != "1px solid #ccc" {
		t.Errorf("border = %q", s)
	}
	hover, _ := c.Builder.Main().Lookup("color", ":hover")
	if got := expr.Print(hover); got != `"blue"` {
		t.Errorf("color :hover = %s", got)
	}
}

func TestTemplateErrors(t *testing.T) {
	tests := []struct {
		doc  string
		want string
	}{
		{`
components:
  - name: A
    base: div
    css: "color: red;"
    rules: [{selector: "&", declarations: [{property: color, value: red}]}]
`, "both rules and css"},
		{`
components:
  - name: A
    base: div
    css: "color red;"
`, "malformed declaration"},
		{`
components:
  - name: A
    base: div
    css: "color: ${p => };"
`, "component A"},
	}
	for _, tt := range tests {
		fx, err := Parse("x.yaml", []byte(tt.doc))
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if _, _, err := fx.Build(nil); err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("Build() error = %v, want %q", err, tt.want)
		}
	}
}
