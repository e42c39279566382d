package expr

// Walk traverses n in depth-first pre-order calling fn for every node.
// Returning false from fn skips the children of that node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *Member:
		Walk(v.X, fn)
	case *Index:
		Walk(v.X, fn)
		Walk(v.Key, fn)
	case *Call:
		Walk(v.Callee, fn)
		for _, a := range v.Args {
			Walk(a, fn)
		}
	case *Unary:
		Walk(v.X, fn)
	case *Binary:
		Walk(v.X, fn)
		Walk(v.Y, fn)
	case *Logical:
		Walk(v.X, fn)
		Walk(v.Y, fn)
	case *Cond:
		Walk(v.Test, fn)
		Walk(v.Then, fn)
		Walk(v.Else, fn)
	case *Template:
		for _, e := range v.Exprs {
			Walk(e, fn)
		}
	case *Arrow:
		for _, p := range v.Params {
			for _, f := range p.Fields {
				Walk(f.Default, fn)
			}
		}
		Walk(v.Body, fn)
		walkStmts(v.Stmts, fn)
	case *Object:
		for _, p := range v.Props {
			Walk(p.Value, fn)
		}
	}
}

func walkStmts(stmts []Stmt, fn func(Node) bool) {
	for _, s := range stmts {
		switch v := s.(type) {
		case *If:
			Walk(v.Test, fn)
			walkStmts(v.Then, fn)
			walkStmts(v.Else, fn)
		case *Return:
			Walk(v.Value, fn)
		}
	}
}

// Rewrite rebuilds n bottom-up after offering every node to fn first. When
// fn returns a replacement and true, the replacement is used as is and its
// children are not visited. Nodes without replaced descendants are shared
// with the original tree.
func Rewrite(n Node, fn func(Node) (Node, bool)) Node {
	if n == nil {
		return nil
	}
	if r, ok := fn(n); ok {
		return r
	}
	switch v := n.(type) {
	case *Member:
		if x := Rewrite(v.X, fn); x != v.X {
			return &Member{X: x, Name: v.Name}
		}
	case *Index:
		x, k := Rewrite(v.X, fn), Rewrite(v.Key, fn)
		if x != v.X || k != v.Key {
			return &Index{X: x, Key: k}
		}
	case *Call:
		callee := Rewrite(v.Callee, fn)
		args, changed := rewriteList(v.Args, fn)
		if changed || callee != v.Callee {
			return &Call{Callee: callee, Args: args}
		}
	case *Unary:
		if x := Rewrite(v.X, fn); x != v.X {
			return &Unary{Op: v.Op, X: x}
		}
	case *Binary:
		x, y := Rewrite(v.X, fn), Rewrite(v.Y, fn)
		if x != v.X || y != v.Y {
			return &Binary{Op: v.Op, X: x, Y: y}
		}
	case *Logical:
		x, y := Rewrite(v.X, fn), Rewrite(v.Y, fn)
		if x != v.X || y != v.Y {
			return &Logical{Op: v.Op, X: x, Y: y}
		}
	case *Cond:
		t, a, b := Rewrite(v.Test, fn), Rewrite(v.Then, fn), Rewrite(v.Else, fn)
		if t != v.Test || a != v.Then || b != v.Else {
			return &Cond{Test: t, Then: a, Else: b}
		}
	case *Template:
		exprs, changed := rewriteList(v.Exprs, fn)
		if changed {
			return &Template{Quasis: v.Quasis, Exprs: exprs}
		}
	case *Object:
		var props []Prop
		for i, p := range v.Props {
			if nv := Rewrite(p.Value, fn); nv != p.Value {
				if props == nil {
					props = append([]Prop(nil), v.Props...)
				}
				props[i].Value = nv
			}
		}
		if props != nil {
			return &Object{Props: props}
		}
	}
	return n
}

func rewriteList(list []Node, fn func(Node) (Node, bool)) ([]Node, bool) {
	var out []Node
	for i, e := range list {
		if ne := Rewrite(e, fn); ne != e {
			if out == nil {
				out = append([]Node(nil), list...)
			}
			out[i] = ne
		}
	}
	if out == nil {
		return list, false
	}
	return out, true
}

// Count returns the number of nodes in n satisfying pred.
func Count(n Node, pred func(Node) bool) int {
	c := 0
	Walk(n, func(x Node) bool {
		if pred(x) {
			c++
		}
		return true
	})
	return c
}
