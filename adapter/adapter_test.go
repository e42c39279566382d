package adapter

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap/zaptest"

	"sc2sx/expr"
)

func TestBridgeMemoizes(t *testing.T) {
	calls := 0
	r := ResolverFunc(func(d Descriptor) (*Resolution, bool) {
		calls++
		if d.Kind == ThemePath && d.Key() == "theme:colors.primary" {
			return &Resolution{Expr: expr.Dot(expr.Id("colors"), "primary")}, true
		}
		return nil, false
	})
	b := NewBridge(r, zaptest.NewLogger(t))

	d := Descriptor{Kind: ThemePath, Path: []string{"colors", "primary"}}
	for range 3 {
		res, ok := b.Resolve(d)
		if !ok || expr.Print(res.Expr) != "colors.primary" {
			t.Fatalf("Resolve() = %v, %v", res, ok)
		}
	}
	miss := Descriptor{Kind: HelperCall, Name: "rem", Args: []expr.Node{expr.Num(4)}}
	for range 2 {
		if _, ok := b.Resolve(miss); ok {
			t.Fatal("Resolve() resolved unknown helper")
		}
	}
	if calls != 2 {
		t.Errorf("resolver called %d times, want 2", calls)
	}
}

func TestBridgeWithoutResolver(t *testing.T) {
	if _, ok := NewBridge(nil, nil).Resolve(Descriptor{Kind: ThemePath, Path: []string{"x"}}); ok {
		t.Fatal("nil resolver resolved a reference")
	}
}

func TestDescriptorKey(t *testing.T) {
	tests := []struct {
		d    Descriptor
		want string
	}{
		{Descriptor{Kind: ThemePath, Path: []string{"space", "md"}}, "theme:space.md"},
		{Descriptor{Kind: ImportedValue, Module: "./tokens", Name: "colors", Path: []string{"red"}}, "import:./tokens:colors.red"},
		{Descriptor{Kind: HelperCall, Name: "rem", Args: []expr.Node{expr.Num(4)}}, "call:rem(4)"},
		{Descriptor{Kind: MediaSlot, Expr: expr.Dot(expr.Id("bp"), "md")}, "media:bp.md"},
	}
	for _, tt := range tests {
		if got := tt.d.Key(); got != tt.want {
			t.Errorf("Key() = %q, want %q", got, tt.want)
		}
	}
}

const table = `
theme:
  colors.primary:
    expr: colors.primary
    imports:
      - {from: ./tokens.stylex, names: [colors]}
  space: {expr: spacing}
modules:
  ./tokens:
    sizes.lg: {expr: '"24px"'}
calls:
  "rem( 4 )": {expr: '"1rem"'}
media:
  bp.md: {expr: '"@media (min-width: 768px)"'}
`

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolver.yaml")
	if err := os.WriteFile(path, []byte(table), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	tr, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable() error = %v", err)
	}

	tests := []struct {
		d    Descriptor
		want string
	}{
		{Descriptor{Kind: ThemePath, Path: []string{"colors", "primary"}}, "colors.primary"},
		{Descriptor{Kind: ThemePath, Path: []string{"space"}}, "spacing"},
		{Descriptor{Kind: ImportedValue, Module: "./tokens", Name: "sizes", Path: []string{"lg"}}, `"24px"`},
		{Descriptor{Kind: HelperCall, Name: "rem", Args: []expr.Node{&expr.NumberLit{Value: 4, Raw: "4"}}}, `"1rem"`},
		{Descriptor{Kind: MediaSlot, Expr: expr.Dot(expr.Id("bp"), "md")}, `"@media (min-width: 768px)"`},
	}
	for _, tt := range tests {
		res, ok := tr.Resolve(tt.d)
		if !ok {
			t.Errorf("Resolve(%s) failed", tt.d)
			continue
		}
		if got := expr.Print(res.Expr); got != tt.want {
			t.Errorf("Resolve(%s) = %s, want %s", tt.d, got, tt.want)
		}
	}

	res, _ := tr.Resolve(Descriptor{Kind: ThemePath, Path: []string{"colors", "primary"}})
	if want := []Import{{From: "./tokens.stylex", Names: []string{"colors"}}}; !reflect.DeepEqual(res.Imports, want) {
		t.Errorf("imports = %v, want %v", res.Imports, want)
	}
	if _, ok := tr.Resolve(Descriptor{Kind: ThemePath, Path: []string{"missing"}}); ok {
		t.Error("Resolve() found missing theme path")
	}
}

func TestLoadTableRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolver.yaml")
	if err := os.WriteFile(path, []byte("themes: {}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadTable(path); err == nil {
		t.Fatal("LoadTable() accepted unknown section")
	}
}
