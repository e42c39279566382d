package expr

import (
	"strconv"
	"strings"
)

// Operator precedence, loosely following ECMAScript. Higher binds tighter.
const (
	precArrow = iota + 1
	precCond
	precNullish
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precPrimary
)

func binaryPrec(op string) int {
	switch op {
	case "??":
		return precNullish
	case "||":
		return precOr
	case "&&":
		return precAnd
	case "===", "!==", "==", "!=":
		return precEquality
	case "<", ">", "<=", ">=", "in", "instanceof":
		return precRelational
	case "+", "-":
		return precAdditive
	case "*", "/", "%":
		return precMultiplicative
	}
	return precRelational
}

func precOf(n Node) int {
	switch v := n.(type) {
	case *Arrow:
		return precArrow
	case *Cond:
		return precCond
	case *Logical:
		return binaryPrec(v.Op)
	case *Binary:
		return binaryPrec(v.Op)
	case *Unary:
		return precUnary
	case *Member, *Index, *Call:
		return precPostfix
	case *NumberLit:
		if v.Value < 0 {
			return precUnary
		}
	}
	return precPrimary
}

// Print renders n as canonical JavaScript-like text. The output is used for
// condition keys, descriptors and diagnostics, it is not meant to reproduce
// the original source formatting.
func Print(n Node) string {
	var sb strings.Builder
	printNode(&sb, n, 0)
	return sb.String()
}

func printParen(sb *strings.Builder, n Node, min int) {
	if n == nil {
		sb.WriteString("undefined")
		return
	}
	if precOf(n) < min {
		sb.WriteByte('(')
		printNode(sb, n, 0)
		sb.WriteByte(')')
		return
	}
	printNode(sb, n, min)
}

func printNode(sb *strings.Builder, n Node, _ int) {
	switch v := n.(type) {
	case nil:
		sb.WriteString("undefined")
	case *Ident:
		sb.WriteString(v.Name)
	case *StringLit:
		sb.WriteString(QuoteString(v.Value))
	case *NumberLit:
		if v.Raw != "" {
			sb.WriteString(v.Raw)
		} else {
			sb.WriteString(strconv.FormatFloat(v.Value, 'f', -1, 64))
		}
	case *BoolLit:
		sb.WriteString(strconv.FormatBool(v.Value))
	case *Null:
		sb.WriteString("null")
	case *Undefined:
		sb.WriteString("undefined")
	case *Member:
		printParen(sb, v.X, precPostfix)
		sb.WriteByte('.')
		sb.WriteString(v.Name)
	case *Index:
		printParen(sb, v.X, precPostfix)
		sb.WriteByte('[')
		printNode(sb, v.Key, 0)
		sb.WriteByte(']')
	case *Call:
		printParen(sb, v.Callee, precPostfix)
		sb.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			printParen(sb, a, precArrow)
		}
		sb.WriteByte(')')
	case *Unary:
		sb.WriteString(v.Op)
		if v.Op == "typeof" || v.Op == "void" {
			sb.WriteByte(' ')
		}
		printParen(sb, v.X, precUnary)
	case *Binary:
		printInfix(sb, v.Op, v.X, v.Y)
	case *Logical:
		printInfix(sb, v.Op, v.X, v.Y)
	case *Cond:
		printParen(sb, v.Test, precCond+1)
		sb.WriteString(" ? ")
		printParen(sb, v.Then, precArrow)
		sb.WriteString(" : ")
		printParen(sb, v.Else, precCond)
	case *Template:
		sb.WriteByte('`')
		for i, q := range v.Quasis {
			sb.WriteString(escapeTemplate(q))
			if i < len(v.Exprs) {
				sb.WriteString("${")
				printNode(sb, v.Exprs[i], 0)
				sb.WriteByte('}')
			}
		}
		sb.WriteByte('`')
	case *Arrow:
		printArrow(sb, v)
	case *Object:
		if len(v.Props) == 0 {
			sb.WriteString("{}")
			return
		}
		sb.WriteString("{ ")
		for i, p := range v.Props {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(propertyKey(p.Key))
			sb.WriteString(": ")
			printParen(sb, p.Value, precArrow)
		}
		sb.WriteString(" }")
	case *Unknown:
		sb.WriteString(v.Text)
	}
}

func printInfix(sb *strings.Builder, op string, x, y Node) {
	p := binaryPrec(op)
	printParen(sb, x, p)
	sb.WriteByte(' ')
	sb.WriteString(op)
	sb.WriteByte(' ')
	// left associative: the right operand needs strictly higher precedence
	printParen(sb, y, p+1)
}

func printArrow(sb *strings.Builder, a *Arrow) {
	sb.WriteByte('(')
	for i, p := range a.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		printParam(sb, p)
	}
	sb.WriteString(") => ")
	if a.Body != nil {
		if _, ok := a.Body.(*Object); ok {
			sb.WriteByte('(')
			printNode(sb, a.Body, 0)
			sb.WriteByte(')')
			return
		}
		printParen(sb, a.Body, precArrow)
		return
	}
	sb.WriteString("{ ")
	printStmts(sb, a.Stmts)
	sb.WriteString("}")
}

func printParam(sb *strings.Builder, p Param) {
	if !p.IsPattern() {
		sb.WriteString(p.Name)
		return
	}
	sb.WriteString("{ ")
	for i, f := range p.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Key)
		if f.Local != "" && f.Local != f.Key {
			sb.WriteString(": ")
			sb.WriteString(f.Local)
		}
		if f.Default != nil {
			sb.WriteString(" = ")
			printParen(sb, f.Default, precArrow)
		}
	}
	if p.Rest != "" {
		if len(p.Fields) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("...")
		sb.WriteString(p.Rest)
	}
	sb.WriteString(" }")
}

func printStmts(sb *strings.Builder, stmts []Stmt) {
	for _, s := range stmts {
		switch v := s.(type) {
		case *Return:
			sb.WriteString("return")
			if v.Value != nil {
				sb.WriteByte(' ')
				printNode(sb, v.Value, 0)
			}
			sb.WriteString("; ")
		case *If:
			sb.WriteString("if (")
			printNode(sb, v.Test, 0)
			sb.WriteString(") { ")
			printStmts(sb, v.Then)
			sb.WriteString("} ")
			if len(v.Else) > 0 {
				sb.WriteString("else { ")
				printStmts(sb, v.Else)
				sb.WriteString("} ")
			}
		case *OtherStmt:
			sb.WriteString(v.Text)
			sb.WriteString("; ")
		}
	}
}

// QuoteString renders s as a double quoted JavaScript string literal.
func QuoteString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func escapeTemplate(s string) string {
	if !strings.ContainsAny(s, "`\\$") {
		return s
	}
	r := strings.NewReplacer("\\", `\\`, "`", "\\`", "${", "\\${")
	return r.Replace(s)
}

func propertyKey(k string) string {
	if isIdentifier(k) {
		return k
	}
	return QuoteString(k)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
