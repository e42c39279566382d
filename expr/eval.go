package expr

import (
	"strconv"
	"strings"
)

// EvalString folds a constant tree into the string it would produce when
// interpolated into CSS text. Only literals, templates over constants and
// "+" concatenation are folded; anything else reports false.
func EvalString(n Node) (string, bool) {
	switch v := n.(type) {
	case *StringLit:
		return v.Value, true
	case *NumberLit:
		return strconv.FormatFloat(v.Value, 'f', -1, 64), true
	case *BoolLit:
		return strconv.FormatBool(v.Value), true
	case *Null:
		return "null", true
	case *Template:
		var sb strings.Builder
		for i, q := range v.Quasis {
			sb.WriteString(q)
			if i < len(v.Exprs) {
				s, ok := EvalString(v.Exprs[i])
				if !ok {
					return "", false
				}
				sb.WriteString(s)
			}
		}
		return sb.String(), true
	case *Binary:
		if v.Op != "+" {
			return "", false
		}
		x, ok := EvalString(v.X)
		if !ok {
			return "", false
		}
		y, ok := EvalString(v.Y)
		if !ok {
			return "", false
		}
		// numeric addition only when both sides are numbers
		if xn, ok := v.X.(*NumberLit); ok {
			if yn, ok := v.Y.(*NumberLit); ok {
				return strconv.FormatFloat(xn.Value+yn.Value, 'f', -1, 64), true
			}
		}
		return x + y, true
	case *Unary:
		if num, ok := v.X.(*NumberLit); ok && v.Op == "-" {
			return strconv.FormatFloat(-num.Value, 'f', -1, 64), true
		}
	}
	return "", false
}

// IsConstant reports whether n contains no identifiers, calls or functions,
// i.e. it can be evaluated without any runtime context.
func IsConstant(n Node) bool {
	constant := true
	Walk(n, func(x Node) bool {
		switch x.(type) {
		case *Ident, *Call, *Arrow, *Unknown:
			constant = false
		}
		return constant
	})
	return constant
}

// Literal converts raw CSS value text into the literal node used for static
// declarations: plain numbers become NumberLit, everything else StringLit.
func Literal(text string) Node {
	t := strings.TrimSpace(text)
	if t != "" && (t[0] >= '0' && t[0] <= '9' || t[0] == '.' || t[0] == '-') {
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return &NumberLit{Value: f, Raw: t}
		}
	}
	return Str(t)
}

// Concat joins static text around a node into a template literal, the way an
// interpolated CSS value embeds its slot. A bare node is returned unchanged
// when there is no surrounding text.
func Concat(prefix string, n Node, suffix string) Node {
	if prefix == "" && suffix == "" {
		return n
	}
	return &Template{Quasis: []string{prefix, suffix}, Exprs: []Node{n}}
}
