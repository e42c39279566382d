package jsexpr_test

import (
	"testing"

	"sc2sx/expr"
	"sc2sx/expr/jsexpr"
)

func TestParseRoundTripsThroughPrint(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`props.size === "large" ? "40px" : "30px"`, `props.size === "large" ? "40px" : "30px"`},
		{`p => p.$active && 'red'`, `(p) => p.$active && "red"`},
		{`({ size, theme }) => theme.space[size] ?? 0`, `({ size, theme }) => theme.space[size] ?? 0`},
		{`({ variant: v }) => v`, `({ variant: v }) => v`},
		{`!props.disabled`, `!props.disabled`},
		{`rem(4)`, `rem(4)`},
		{`-2`, `-2`},
		{`undefined`, `undefined`},
		{`{ color: "red" }`, `{ color: "red" }`},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			n, err := jsexpr.Parse(tt.src)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := expr.Print(n); got != tt.want {
				t.Errorf("Print(Parse()) = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseTemplate(t *testing.T) {
	n, err := jsexpr.Parse("`${props.width}px solid`")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tpl, ok := n.(*expr.Template)
	if !ok {
		t.Fatalf("Parse() = %T, want template", n)
	}
	if len(tpl.Exprs) != 1 || tpl.Quasis[0] != "" || tpl.Quasis[1] != "px solid" {
		t.Fatalf("template parts = %q / %d exprs", tpl.Quasis, len(tpl.Exprs))
	}
}

func TestParseBlockBody(t *testing.T) {
	n, err := jsexpr.Parse(`(p) => { if (p.size === "small") return "4px"; if (p.size === "large") { return "12px"; } return "8px"; }`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	fn, ok := n.(*expr.Arrow)
	if !ok {
		t.Fatalf("Parse() = %T, want arrow", n)
	}
	if fn.Body != nil {
		t.Fatal("block body was read as a concise body")
	}
	if len(fn.Stmts) != 3 {
		t.Fatalf("got %d statements, want 3", len(fn.Stmts))
	}
	if _, ok := fn.Stmts[0].(*expr.If); !ok {
		t.Errorf("first statement = %T, want if", fn.Stmts[0])
	}
	if ret, ok := fn.Stmts[2].(*expr.Return); !ok || expr.Print(ret.Value) != `"8px"` {
		t.Errorf("last statement = %#v", fn.Stmts[2])
	}
}

func TestParseFunction(t *testing.T) {
	tests := []struct {
		src  string
		name string
	}{
		{`function sizeToPx(s) { return s === "large" ? "20px" : "10px"; }`, "sizeToPx"},
		{`const sizeToPx = (s) => s === "large" ? "20px" : "10px"`, "sizeToPx"},
		{`(s) => s === "large" ? "20px" : "10px"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			name, fn, err := jsexpr.ParseFunction(tt.src)
			if err != nil {
				t.Fatalf("ParseFunction() error = %v", err)
			}
			if name != tt.name {
				t.Errorf("name = %q, want %q", name, tt.name)
			}
			if len(fn.Params) != 1 || fn.Params[0].Name != "s" {
				t.Errorf("params = %#v", fn.Params)
			}
			if _, ok := fn.Body.(*expr.Cond); !ok {
				t.Errorf("body = %T, want conditional", fn.Body)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"", "a b", "a; b"} {
		if _, err := jsexpr.Parse(src); err == nil {
			t.Errorf("Parse(%q) expected error", src)
		}
	}
	if _, _, err := jsexpr.ParseFunction(`const x = 1`); err == nil {
		t.Error("ParseFunction() accepted a non-function binding")
	}
}
