// Package adapter is the bridge between the lowering engine and the
// injected resolver that turns theme paths, imported design tokens, helper
// calls and media slots into constant expressions.
package adapter

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sc2sx/expr"
)

// Kind of a reference descriptor.
type Kind int

const (
	ThemePath Kind = iota + 1
	ImportedValue
	HelperCall
	MediaSlot
)

func (k Kind) String() string {
	switch k {
	case ThemePath:
		return "theme"
	case ImportedValue:
		return "import"
	case HelperCall:
		return "call"
	case MediaSlot:
		return "media"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Descriptor identifies one reference the engine wants resolved.
//
//   - ThemePath: Path below the theme object, e.g. [colors primary].
//   - ImportedValue: Module and Name of the import binding, Path of members
//     read from it.
//   - HelperCall: Name of the callee and its constant Args.
//   - MediaSlot: Expr is the expression interpolated into an at-rule.
type Descriptor struct {
	Kind   Kind
	Path   []string
	Module string
	Name   string
	Args   []expr.Node
	Expr   expr.Node
}

// Key is the canonical identity of the descriptor, equal keys always
// resolve to the same answer.
func (d Descriptor) Key() string {
	switch d.Kind {
	case ThemePath:
		return "theme:" + strings.Join(d.Path, ".")
	case ImportedValue:
		return "import:" + d.Module + ":" + strings.Join(append([]string{d.Name}, d.Path...), ".")
	case HelperCall:
		return "call:" + expr.Print(&expr.Call{Callee: expr.Id(d.Name), Args: d.Args})
	case MediaSlot:
		return "media:" + expr.Print(d.Expr)
	}
	return "unknown:"
}

func (d Descriptor) String() string {
	return d.Key()
}

// Import is a module import the generated code needs for a resolved
// expression.
type Import struct {
	From  string   `yaml:"from"`
	Names []string `yaml:"names"`
}

// Resolution is a resolved constant expression and its imports.
type Resolution struct {
	Expr    expr.Node
	Imports []Import
}

// Resolver is the injected capability. It must be pure: the same
// descriptor always produces the same answer.
type Resolver interface {
	Resolve(d Descriptor) (*Resolution, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(d Descriptor) (*Resolution, bool)

func (f ResolverFunc) Resolve(d Descriptor) (*Resolution, bool) {
	return f(d)
}

// Bridge memoizes resolver answers, misses included. A Bridge with nil
// resolver resolves nothing.
type Bridge struct {
	r     Resolver
	cache map[string]*Resolution
	log   *zap.Logger
}

func NewBridge(r Resolver, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{r: r, cache: make(map[string]*Resolution), log: log.Named("adapter")}
}

// Resolve asks the resolver once per distinct descriptor key.
func (b *Bridge) Resolve(d Descriptor) (*Resolution, bool) {
	if b == nil {
		return nil, false
	}
	key := d.Key()
	if res, ok := b.cache[key]; ok {
		return res, res != nil
	}
	var res *Resolution
	if b.r != nil {
		if r, ok := b.r.Resolve(d); ok && r != nil && r.Expr != nil {
			res = r
		}
	}
	b.cache[key] = res
	if res == nil {
		b.log.Debug("Reference not resolved", zap.String("descriptor", key))
		return nil, false
	}
	b.log.Debug("Reference resolved", zap.String("descriptor", key), zap.String("expr", expr.Print(res.Expr)))
	return res, true
}
