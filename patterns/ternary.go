package patterns

import (
	"sc2sx/adapter"
	"sc2sx/condition"
	"sc2sx/diag"
	"sc2sx/expr"
)

// ternaryChain lowers p === "x" ? A : p === "y" ? B : C. The last else is
// the base value, every tested branch becomes a variant bucket.
type ternaryChain struct{}

func (ternaryChain) Name() string { return "ternary-chain" }

func (ternaryChain) Recognize(c *Context) Lowering {
	if _, ok := c.Body.(*expr.Cond); !ok || !c.conditional() {
		return nil
	}
	return c.ternary(c.Body)
}

// ternary resolves a conditional chain into branches and returns the
// lowering, nil when some test is not a property condition or some branch
// is not constant.
func (c *Context) ternary(n expr.Node) Lowering {
	var (
		branches []branch
		imports  []adapter.Import
	)
	for {
		cond, ok := n.(*expr.Cond)
		if !ok {
			break
		}
		test := condition.Parse(cond.Test, c.Scope)
		if test == nil {
			return nil
		}
		v, imps, m := c.constant(cond.Then)
		if m != nil {
			return failedBranch(m)
		}
		branches = append(branches, branch{cond: test, value: v})
		imports = append(imports, imps...)
		n = cond.Else
	}
	def, imps, m := c.constant(n)
	if m != nil {
		return failedBranch(m)
	}
	imports = append(imports, imps...)
	return func(c *Context) { c.lowerChain(branches, def, imports) }
}

// logicalAndVariant lowers cond && A into one bucket keyed by the
// condition, the base value is left alone.
type logicalAndVariant struct{}

func (logicalAndVariant) Name() string { return "logical-and-variant" }

func (logicalAndVariant) Recognize(c *Context) Lowering {
	l, ok := c.Body.(*expr.Logical)
	if !ok || l.Op != "&&" || !c.conditional() {
		return nil
	}
	test := condition.Parse(l.X, c.Scope)
	if test == nil {
		return nil
	}
	v, imports, m := c.constant(l.Y)
	if m != nil {
		return failedBranch(m)
	}
	return func(c *Context) {
		c.lowerChain([]branch{{cond: test, value: v}}, nil, imports)
	}
}

// mappedFunction lowers helper(p) where helper is a local function mapping
// its argument through a ternary or an if-chain. The helper body is
// specialized to the argument and lowered like an inline chain.
type mappedFunction struct{}

func (mappedFunction) Name() string { return "mapped-function" }

func (mappedFunction) Recognize(c *Context) Lowering {
	call, ok := c.Body.(*expr.Call)
	if !ok || len(call.Args) != 1 || !c.conditional() {
		return nil
	}
	id, ok := call.Callee.(*expr.Ident)
	if !ok {
		return nil
	}
	helper := c.Env.Helpers[id.Name]
	if helper == nil || len(helper.Params) != 1 || helper.Params[0].IsPattern() {
		return nil
	}
	if _, ok := c.Scope.Prop(call.Args[0]); !ok {
		return nil
	}
	param, arg := helper.Params[0].Name, call.Args[0]
	subst := func(n expr.Node) expr.Node {
		return expr.Rewrite(n, func(x expr.Node) (expr.Node, bool) {
			if v, ok := x.(*expr.Ident); ok && v.Name == param {
				return arg, true
			}
			return nil, false
		})
	}
	if helper.Body != nil {
		if _, ok := helper.Body.(*expr.Cond); !ok {
			return nil
		}
		return c.ternary(subst(helper.Body))
	}
	branches, def, imports, problem := c.ifChain(helper.Stmts, subst)
	if problem != nil {
		// a helper that does not fit is just an unknown call
		if problem.miss != nil && problem.miss.kind == missingTheme {
			return func(c *Context) { c.bailUnresolved(problem.miss) }
		}
		return nil
	}
	return func(c *Context) { c.lowerChain(branches, def, imports) }
}

// malformed describes why an if-chain could not be lowered.
type malformed struct {
	reason string
	miss   *miss
}

// ifChain reads guards of the form if (cond) return A; followed by a
// final return. subst is applied to every test and returned value before
// they are interpreted.
func (c *Context) ifChain(stmts []expr.Stmt, subst func(expr.Node) expr.Node) ([]branch, expr.Node, []adapter.Import, *malformed) {
	var (
		branches []branch
		imports  []adapter.Import
	)
	literal := func(n expr.Node) (expr.Node, *malformed) {
		if n == nil {
			return &expr.Undefined{}, nil
		}
		v, imps, m := c.constant(subst(n))
		if m != nil {
			return nil, &malformed{reason: "non-literal return " + expr.Print(n), miss: m}
		}
		imports = append(imports, imps...)
		return v, nil
	}
	for _, s := range stmts {
		switch v := s.(type) {
		case *expr.If:
			if len(v.Else) > 0 {
				return nil, nil, nil, &malformed{reason: "if with else"}
			}
			if len(v.Then) != 1 {
				return nil, nil, nil, &malformed{reason: "guard is not a single return"}
			}
			ret, ok := v.Then[0].(*expr.Return)
			if !ok {
				return nil, nil, nil, &malformed{reason: "guard is not a single return"}
			}
			test := condition.Parse(subst(v.Test), c.Scope)
			if test == nil {
				return nil, nil, nil, &malformed{reason: "unsupported guard " + expr.Print(v.Test)}
			}
			val, bad := literal(ret.Value)
			if bad != nil {
				return nil, nil, nil, bad
			}
			branches = append(branches, branch{cond: test, value: val})
		case *expr.Return:
			def, bad := literal(v.Value)
			if bad != nil {
				return nil, nil, nil, bad
			}
			return branches, def, imports, nil
		default:
			return nil, nil, nil, &malformed{reason: "unsupported statement"}
		}
	}
	return branches, &expr.Undefined{}, imports, nil
}

// enumIfChain lowers a function body of property guards returning
// literals. Once the body starts with a guard it is committed: anything
// that does not fit rejects the declaration with a malformed pattern
// diagnostic, the component itself keeps lowering.
type enumIfChain struct{}

func (enumIfChain) Name() string { return "enum-if-chain" }

func (enumIfChain) Recognize(c *Context) Lowering {
	if c.Fn == nil || len(c.Fn.Stmts) == 0 || !c.conditional() {
		return nil
	}
	if _, ok := c.Fn.Stmts[0].(*expr.If); !ok {
		return nil
	}
	branches, def, imports, problem := c.ifChain(c.Fn.Stmts, func(n expr.Node) expr.Node { return n })
	if problem != nil {
		return func(c *Context) {
			if problem.miss != nil && problem.miss.kind == missingTheme {
				c.bailUnresolved(problem.miss)
				return
			}
			c.Tracker.Reject(diag.MalformedPattern, c.Decl.Loc, "", c.Prop+": "+problem.reason)
		}
	}
	return func(c *Context) { c.lowerChain(branches, def, imports) }
}
