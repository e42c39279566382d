// Package jsexpr reads JavaScript expression text into expr trees.
//
// It stands in for the source parser the lowering engine expects to be fed
// by: fixtures and the command line tool describe interpolations as text and
// need them as trees. Only reading is supported, there is no printer back to
// source.
package jsexpr

import (
	"fmt"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"

	"sc2sx/expr"
)

var binaryOps = map[js.TokenType]string{
	js.EqEqEqToken:  "===",
	js.NotEqEqToken: "!==",
	js.EqEqToken:    "==",
	js.NotEqToken:   "!=",
	js.LtToken:      "<",
	js.GtToken:      ">",
	js.LtEqToken:    "<=",
	js.GtEqToken:    ">=",
	js.AddToken:     "+",
	js.SubToken:     "-",
	js.MulToken:     "*",
	js.DivToken:     "/",
	js.ModToken:     "%",
}

var logicalOps = map[js.TokenType]string{
	js.AndToken:     "&&",
	js.OrToken:      "||",
	js.NullishToken: "??",
}

var unaryOps = map[js.TokenType]string{
	js.NotToken:    "!",
	js.NegToken:    "-",
	js.PosToken:    "+",
	js.TypeofToken: "typeof",
	js.VoidToken:   "void",
}

// Parse reads a single JavaScript expression.
func Parse(src string) (expr.Node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("empty expression")
	}
	// parenthesize so object literals and function expressions are read in
	// expression position
	ast, err := js.Parse(parse.NewInputString("("+src+"\n)"), js.Options{})
	if err != nil {
		return nil, fmt.Errorf("unable to parse expression %q: %w", src, err)
	}
	if len(ast.BlockStmt.List) != 1 {
		return nil, fmt.Errorf("expected single expression in %q, got %d statements", src, len(ast.BlockStmt.List))
	}
	stmt, ok := ast.BlockStmt.List[0].(*js.ExprStmt)
	if !ok {
		return nil, fmt.Errorf("expected expression in %q", src)
	}
	return convertExpr(stmt.Value), nil
}

// ParseFunction reads a helper definition. Accepted forms are a function
// declaration, a const/let binding of an arrow or function expression, or a
// bare arrow/function expression. The declared name is empty for the latter.
func ParseFunction(src string) (string, *expr.Arrow, error) {
	ast, err := js.Parse(parse.NewInputString(src), js.Options{})
	if err != nil {
		return "", nil, fmt.Errorf("unable to parse function %q: %w", src, err)
	}
	if len(ast.BlockStmt.List) != 1 {
		return "", nil, fmt.Errorf("expected single definition in %q, got %d statements", src, len(ast.BlockStmt.List))
	}

	var (
		name  string
		value js.IExpr
	)
	switch s := ast.BlockStmt.List[0].(type) {
	case *js.FuncDecl:
		if s.Name != nil {
			name = string(s.Name.Data)
		}
		return name, convertFunc(s.Params, s.Body), nil
	case *js.VarDecl:
		if len(s.List) != 1 {
			return "", nil, fmt.Errorf("expected single binding in %q", src)
		}
		v, ok := s.List[0].Binding.(*js.Var)
		if !ok {
			return "", nil, fmt.Errorf("unsupported binding in %q", src)
		}
		name, value = string(v.Data), s.List[0].Default
	case *js.ExprStmt:
		value = s.Value
	default:
		return "", nil, fmt.Errorf("unsupported definition %q", src)
	}

	node := convertExpr(value)
	arrow, ok := node.(*expr.Arrow)
	if !ok {
		return "", nil, fmt.Errorf("definition %q is not a function", src)
	}
	return name, arrow, nil
}

func convertExpr(e js.IExpr) expr.Node {
	switch v := e.(type) {
	case nil:
		return &expr.Undefined{}
	case *js.GroupExpr:
		return convertExpr(v.X)
	case *js.Var:
		if name := string(v.Data); name != "undefined" {
			return expr.Id(name)
		}
		return &expr.Undefined{}
	case *js.LiteralExpr:
		return convertLiteral(v.TokenType, v.Data)
	case *js.DotExpr:
		return &expr.Member{X: convertExpr(v.X), Name: v.Y.String()}
	case *js.IndexExpr:
		return &expr.Index{X: convertExpr(v.X), Key: convertExpr(v.Y)}
	case *js.CallExpr:
		call := &expr.Call{Callee: convertExpr(v.X)}
		for _, a := range v.Args.List {
			if a.Rest {
				return &expr.Unknown{Text: e.String()}
			}
			call.Args = append(call.Args, convertExpr(a.Value))
		}
		return call
	case *js.UnaryExpr:
		if op, ok := unaryOps[v.Op]; ok {
			x := convertExpr(v.X)
			if num, ok := x.(*expr.NumberLit); ok && op == "-" {
				return &expr.NumberLit{Value: -num.Value, Raw: "-" + num.Raw}
			}
			return &expr.Unary{Op: op, X: x}
		}
	case *js.BinaryExpr:
		if op, ok := logicalOps[v.Op]; ok {
			return &expr.Logical{Op: op, X: convertExpr(v.X), Y: convertExpr(v.Y)}
		}
		if op, ok := binaryOps[v.Op]; ok {
			return &expr.Binary{Op: op, X: convertExpr(v.X), Y: convertExpr(v.Y)}
		}
	case *js.CondExpr:
		return &expr.Cond{Test: convertExpr(v.Cond), Then: convertExpr(v.X), Else: convertExpr(v.Y)}
	case *js.TemplateExpr:
		if v.Tag != nil {
			break
		}
		tpl := &expr.Template{}
		for _, part := range v.List {
			tpl.Quasis = append(tpl.Quasis, templateText(part.Value))
			tpl.Exprs = append(tpl.Exprs, convertExpr(part.Expr))
		}
		tpl.Quasis = append(tpl.Quasis, templateText(v.Tail))
		return tpl
	case *js.ArrowFunc:
		return convertFunc(v.Params, v.Body)
	case *js.FuncDecl:
		return convertFunc(v.Params, v.Body)
	case *js.ObjectExpr:
		obj := &expr.Object{}
		for _, p := range v.List {
			if p.Spread || p.Name == nil || p.Name.Computed != nil || p.Init != nil {
				return &expr.Unknown{Text: e.String()}
			}
			obj.Props = append(obj.Props, expr.Prop{
				Key:   literalKey(p.Name.Literal.TokenType, p.Name.Literal.Data),
				Value: convertExpr(p.Value),
			})
		}
		return obj
	}
	return &expr.Unknown{Text: e.String()}
}

func convertLiteral(tt js.TokenType, data []byte) expr.Node {
	switch tt {
	case js.StringToken:
		return expr.Str(unquote(string(data)))
	case js.DecimalToken:
		raw := string(data)
		f, err := strconv.ParseFloat(strings.ReplaceAll(raw, "_", ""), 64)
		if err != nil {
			return &expr.Unknown{Text: raw}
		}
		return &expr.NumberLit{Value: f, Raw: raw}
	case js.TrueToken:
		return &expr.BoolLit{Value: true}
	case js.FalseToken:
		return &expr.BoolLit{Value: false}
	case js.NullToken:
		return &expr.Null{}
	}
	return &expr.Unknown{Text: string(data)}
}

func convertFunc(params js.Params, body js.BlockStmt) *expr.Arrow {
	fn := &expr.Arrow{}
	for _, be := range params.List {
		fn.Params = append(fn.Params, convertParam(be))
	}
	if params.Rest != nil {
		if v, ok := params.Rest.(*js.Var); ok {
			fn.Params = append(fn.Params, expr.Param{Name: "..." + string(v.Data)})
		}
	}
	// concise arrow bodies come back as a block with one return statement
	if len(body.List) == 1 {
		if ret, ok := body.List[0].(*js.ReturnStmt); ok && ret.Value != nil {
			fn.Body = convertExpr(ret.Value)
			return fn
		}
	}
	fn.Stmts = convertStmts(body.List)
	if fn.Stmts == nil {
		fn.Stmts = []expr.Stmt{}
	}
	return fn
}

func convertParam(be js.BindingElement) expr.Param {
	switch b := be.Binding.(type) {
	case *js.Var:
		return expr.Param{Name: string(b.Data)}
	case *js.BindingObject:
		p := expr.Param{}
		for _, item := range b.List {
			local, ok := item.Value.Binding.(*js.Var)
			if !ok {
				// nested destructuring is kept opaque
				p.Fields = append(p.Fields, expr.Field{Key: "?"})
				continue
			}
			f := expr.Field{Local: string(local.Data), Key: string(local.Data)}
			if item.Key != nil && item.Key.Computed == nil && len(item.Key.Literal.Data) > 0 {
				f.Key = literalKey(item.Key.Literal.TokenType, item.Key.Literal.Data)
			}
			if item.Value.Default != nil {
				f.Default = convertExpr(item.Value.Default)
			}
			p.Fields = append(p.Fields, f)
		}
		if b.Rest != nil {
			p.Rest = string(b.Rest.Data)
		}
		return p
	}
	return expr.Param{Name: "?"}
}

func convertStmts(list []js.IStmt) []expr.Stmt {
	var out []expr.Stmt
	for _, s := range list {
		switch v := s.(type) {
		case *js.ReturnStmt:
			ret := &expr.Return{}
			if v.Value != nil {
				ret.Value = convertExpr(v.Value)
			}
			out = append(out, ret)
		case *js.IfStmt:
			out = append(out, &expr.If{
				Test: convertExpr(v.Cond),
				Then: convertStmts(stmtList(v.Body)),
				Else: convertStmts(stmtList(v.Else)),
			})
		case *js.BlockStmt:
			out = append(out, convertStmts(v.List)...)
		default:
			out = append(out, &expr.OtherStmt{Text: s.String()})
		}
	}
	return out
}

func stmtList(s js.IStmt) []js.IStmt {
	switch v := s.(type) {
	case nil:
		return nil
	case *js.BlockStmt:
		return v.List
	}
	return []js.IStmt{s}
}

func literalKey(tt js.TokenType, data []byte) string {
	if tt == js.StringToken {
		return unquote(string(data))
	}
	return string(data)
}

// templateText strips template delimiters from a raw template chunk and
// resolves the escapes that matter for CSS text.
func templateText(raw []byte) string {
	s := string(raw)
	if strings.HasPrefix(s, "`") || strings.HasPrefix(s, "}") {
		s = s[1:]
	}
	if after, ok := strings.CutSuffix(s, "${"); ok {
		s = after
	} else if after, ok := strings.CutSuffix(s, "`"); ok {
		s = after
	}
	return strings.NewReplacer("\\`", "`", "\\$", "$", `\\`, `\`).Replace(s)
}

func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	q := s[0]
	if (q != '"' && q != '\'') || s[len(s)-1] != q {
		return s
	}
	s = s[1 : len(s)-1]
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
