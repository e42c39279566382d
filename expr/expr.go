// Package expr defines the expression trees the lowering engine reads from
// interpolation slots and constructs for its output.
//
// The set of node types is closed: every consumer switches over the concrete
// types below and treats anything it does not understand as Unknown. Trees
// are immutable once built; rewriting produces new nodes.
package expr

import "strconv"

// Kind identifies the concrete type of a Node.
type Kind int

const (
	KindUnknown Kind = iota
	KindIdent
	KindString
	KindNumber
	KindBool
	KindNull
	KindUndefined
	KindMember
	KindIndex
	KindCall
	KindUnary
	KindBinary
	KindLogical
	KindCond
	KindTemplate
	KindArrow
	KindObject
)

var kindNames = [...]string{
	KindUnknown:   "unknown",
	KindIdent:     "identifier",
	KindString:    "string",
	KindNumber:    "number",
	KindBool:      "boolean",
	KindNull:      "null",
	KindUndefined: "undefined",
	KindMember:    "member",
	KindIndex:     "index",
	KindCall:      "call",
	KindUnary:     "unary",
	KindBinary:    "binary",
	KindLogical:   "logical",
	KindCond:      "conditional",
	KindTemplate:  "template",
	KindArrow:     "arrow",
	KindObject:    "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Node is a single expression tree node.
type Node interface {
	Kind() Kind
	node()
}

type (
	// Ident is a bare identifier reference.
	Ident struct{ Name string }

	// StringLit is a string literal with its cooked value.
	StringLit struct{ Value string }

	// NumberLit is a numeric literal. Raw keeps the source spelling when known.
	NumberLit struct {
		Value float64
		Raw   string
	}

	BoolLit struct{ Value bool }

	Null struct{}

	Undefined struct{}

	// Member is a non-computed property access: X.Name.
	Member struct {
		X    Node
		Name string
	}

	// Index is a computed property access: X[Key].
	Index struct {
		X   Node
		Key Node
	}

	Call struct {
		Callee Node
		Args   []Node
	}

	// Unary covers prefix operators: "!", "-", "+", "typeof", "void".
	Unary struct {
		Op string
		X  Node
	}

	// Binary covers comparison and arithmetic operators.
	Binary struct {
		Op string
		X  Node
		Y  Node
	}

	// Logical covers "&&", "||" and "??".
	Logical struct {
		Op string
		X  Node
		Y  Node
	}

	Cond struct {
		Test Node
		Then Node
		Else Node
	}

	// Template is an untagged template literal. Quasis always has exactly one
	// more element than Exprs.
	Template struct {
		Quasis []string
		Exprs  []Node
	}

	// Arrow is an arrow function or a function expression. Exactly one of
	// Body (concise body) or Stmts (block body) is set.
	Arrow struct {
		Params []Param
		Body   Node
		Stmts  []Stmt
	}

	Object struct{ Props []Prop }

	// Unknown holds anything the reader could not map to a known shape.
	Unknown struct{ Text string }
)

// Param is a single function parameter: either a plain name or an object
// destructuring pattern.
type Param struct {
	Name   string
	Fields []Field
	Rest   string
}

// IsPattern reports whether the parameter destructures its argument.
func (p Param) IsPattern() bool { return p.Name == "" }

// Field is one destructured property: { Key: Local = Default }.
type Field struct {
	Key     string
	Local   string
	Default Node
}

// Prop is one object literal property.
type Prop struct {
	Key   string
	Value Node
}

func (*Ident) Kind() Kind     { return KindIdent }
func (*StringLit) Kind() Kind { return KindString }
func (*NumberLit) Kind() Kind { return KindNumber }
func (*BoolLit) Kind() Kind   { return KindBool }
func (*Null) Kind() Kind      { return KindNull }
func (*Undefined) Kind() Kind { return KindUndefined }
func (*Member) Kind() Kind    { return KindMember }
func (*Index) Kind() Kind     { return KindIndex }
func (*Call) Kind() Kind      { return KindCall }
func (*Unary) Kind() Kind     { return KindUnary }
func (*Binary) Kind() Kind    { return KindBinary }
func (*Logical) Kind() Kind   { return KindLogical }
func (*Cond) Kind() Kind      { return KindCond }
func (*Template) Kind() Kind  { return KindTemplate }
func (*Arrow) Kind() Kind     { return KindArrow }
func (*Object) Kind() Kind    { return KindObject }
func (*Unknown) Kind() Kind   { return KindUnknown }

func (*Ident) node()     {}
func (*StringLit) node() {}
func (*NumberLit) node() {}
func (*BoolLit) node()   {}
func (*Null) node()      {}
func (*Undefined) node() {}
func (*Member) node()    {}
func (*Index) node()     {}
func (*Call) node()      {}
func (*Unary) node()     {}
func (*Binary) node()    {}
func (*Logical) node()   {}
func (*Cond) node()      {}
func (*Template) node()  {}
func (*Arrow) node()     {}
func (*Object) node()    {}
func (*Unknown) node()   {}

// Stmt is a statement inside a function block body. Only the statements the
// recognizers care about are modelled, the rest are kept as OtherStmt.
type Stmt interface {
	stmt()
}

type (
	If struct {
		Test Node
		Then []Stmt
		Else []Stmt
	}

	// Return with a nil Value is a bare "return;".
	Return struct{ Value Node }

	OtherStmt struct{ Text string }
)

func (*If) stmt()        {}
func (*Return) stmt()    {}
func (*OtherStmt) stmt() {}

// Constructors used by the engine when it synthesizes new trees.

func Id(name string) *Ident { return &Ident{Name: name} }

func Str(s string) *StringLit { return &StringLit{Value: s} }

func Num(v float64) *NumberLit { return &NumberLit{Value: v} }

// Dot builds a member chain x.a.b.c.
func Dot(x Node, names ...string) Node {
	for _, n := range names {
		x = &Member{X: x, Name: n}
	}
	return x
}

// Tmpl builds a template literal, panics when the quasis/exprs invariant does
// not hold since that is always a programming error.
func Tmpl(quasis []string, exprs ...Node) *Template {
	if len(quasis) != len(exprs)+1 {
		panic("expr: template needs exactly one more quasi than expressions")
	}
	return &Template{Quasis: quasis, Exprs: exprs}
}

// IsLiteral reports whether n is a primitive literal (string, number,
// boolean, null or undefined).
func IsLiteral(n Node) bool {
	switch n.(type) {
	case *StringLit, *NumberLit, *BoolLit, *Null, *Undefined:
		return true
	}
	return false
}

// IsEmptyValue reports whether n produces no CSS value when interpolated:
// empty string, null, undefined or false.
func IsEmptyValue(n Node) bool {
	switch v := n.(type) {
	case *StringLit:
		return v.Value == ""
	case *Null, *Undefined:
		return true
	case *BoolLit:
		return !v.Value
	case *Template:
		if len(v.Exprs) == 0 {
			return v.Quasis[0] == ""
		}
	}
	return false
}

// Path returns the dotted path of a member chain rooted at an identifier,
// e.g. "props.theme.colors" for props.theme.colors. ok is false for any
// other shape.
func Path(n Node) (root string, names []string, ok bool) {
	for {
		switch v := n.(type) {
		case *Ident:
			// names were collected outermost first
			for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
				names[i], names[j] = names[j], names[i]
			}
			return v.Name, names, true
		case *Member:
			names = append(names, v.Name)
			n = v.X
		default:
			return "", nil, false
		}
	}
}
