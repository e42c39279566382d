package condition

import (
	"slices"

	"sc2sx/expr"
)

// Scope knows how an interpolation function names the component
// properties: through its parameter (props.size), through destructured
// locals ({ size }, { size: s }) or through a rest binding.
type Scope struct {
	param      string
	rest       string
	locals     map[string]string
	defaulted  map[string]bool
	themeLocal string
}

// ScopeOf builds the scope of a function's first parameter. A function
// without parameters yields a scope that resolves nothing.
func ScopeOf(fn *expr.Arrow) Scope {
	s := Scope{locals: map[string]string{}, defaulted: map[string]bool{}}
	if fn == nil || len(fn.Params) == 0 {
		return s
	}
	p := fn.Params[0]
	if !p.IsPattern() {
		s.param = p.Name
		return s
	}
	for _, f := range p.Fields {
		if f.Local == "" || f.Key == "?" {
			continue
		}
		if f.Key == "theme" {
			s.themeLocal = f.Local
			continue
		}
		s.locals[f.Local] = f.Key
		if f.Default != nil {
			s.defaulted[f.Local] = true
		}
	}
	s.rest = p.Rest
	return s
}

// Param returns the plain parameter name, empty for destructuring patterns.
func (s Scope) Param() string {
	return s.param
}

// Prop resolves n to the component property it reads. Theme access and
// destructured properties with defaults never resolve.
func (s Scope) Prop(n expr.Node) (string, bool) {
	switch v := n.(type) {
	case *expr.Ident:
		name, ok := s.locals[v.Name]
		if !ok || s.defaulted[v.Name] {
			return "", false
		}
		return name, true
	case *expr.Member:
		id, ok := v.X.(*expr.Ident)
		if !ok || v.Name == "theme" {
			return "", false
		}
		if (s.param != "" && id.Name == s.param) || (s.rest != "" && id.Name == s.rest) {
			return v.Name, true
		}
	}
	return "", false
}

// ThemePath resolves n to a path below the theme, e.g. props.theme.colors.primary
// gives [colors primary].
func (s Scope) ThemePath(n expr.Node) ([]string, bool) {
	root, names, ok := expr.Path(n)
	if !ok {
		return nil, false
	}
	switch {
	case s.param != "" && root == s.param && len(names) > 1 && names[0] == "theme":
		return names[1:], true
	case s.themeLocal != "" && root == s.themeLocal && len(names) > 0:
		return names, true
	}
	return nil, false
}

// UsesTheme reports whether n reads the theme anywhere.
func (s Scope) UsesTheme(n expr.Node) bool {
	uses := false
	expr.Walk(n, func(x expr.Node) bool {
		switch v := x.(type) {
		case *expr.Ident:
			if s.themeLocal != "" && v.Name == s.themeLocal {
				uses = true
			}
		case *expr.Member:
			if id, ok := v.X.(*expr.Ident); ok && id.Name == s.param && s.param != "" && v.Name == "theme" {
				uses = true
			}
		}
		return !uses
	})
	return uses
}

// Refs collects the properties n reads in order of first use. free lists
// identifiers that are neither properties nor the parameter itself, e.g.
// imported values or globals.
func (s Scope) Refs(n expr.Node) (props, free []string) {
	expr.Walk(n, func(x expr.Node) bool {
		if p, ok := s.Prop(x); ok {
			if !slices.Contains(props, p) {
				props = append(props, p)
			}
			return false
		}
		if id, ok := x.(*expr.Ident); ok && !s.bound(id.Name) && !slices.Contains(free, id.Name) {
			free = append(free, id.Name)
		}
		return true
	})
	return props, free
}

// local reports whether name is a destructured property, defaulted or not.
func (s Scope) local(name string) bool {
	_, ok := s.locals[name]
	return ok
}

func (s Scope) bound(name string) bool {
	if name == s.param || name == s.rest || name == s.themeLocal {
		return name != ""
	}
	_, ok := s.locals[name]
	return ok && !s.defaulted[name]
}
