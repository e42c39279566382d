package lower

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"sc2sx/diag"
	"sc2sx/expr"
	"sc2sx/model"
	"sc2sx/styles"
)

// Component is one discovered component with everything its lowering
// owns: rules, expression table, accumulators and bail latch.
type Component struct {
	Name     string
	Target   model.Target
	StyleKey string
	Rules    []model.Rule
	Exprs    *expr.Table

	Builder *styles.Builder
	Tracker *diag.Tracker

	// Recognized counts lowered declarations per recognizer name.
	Recognized map[string]int
}

// Bailed reports whether the component is left untransformed.
func (c *Component) Bailed() bool {
	return c.Tracker.Bailed()
}

// File is the file scope: components in discovery order, locally defined
// helpers and imported bindings.
type File struct {
	Path       string
	Components []*Component
	Helpers    map[string]*expr.Arrow
	Imports    map[string]string

	diags  *diag.Sink
	byName map[string]*Component
	keys   map[string]bool
	log    *zap.Logger
}

func NewFile(path string, log *zap.Logger) *File {
	if log == nil {
		log = zap.NewNop()
	}
	return &File{
		Path:    path,
		Helpers: make(map[string]*expr.Arrow),
		Imports: make(map[string]string),
		diags:   &diag.Sink{},
		byName:  make(map[string]*Component),
		keys:    make(map[string]bool),
		log:     log,
	}
}

// AddComponent registers a component. exprs may be nil for components
// without interpolations.
func (f *File) AddComponent(name string, target model.Target, rules []model.Rule, exprs *expr.Table) (*Component, error) {
	if name == "" {
		return nil, fmt.Errorf("component without name in %s", f.Path)
	}
	if _, ok := f.byName[name]; ok {
		return nil, fmt.Errorf("duplicate component %s in %s", name, f.Path)
	}
	if exprs == nil {
		exprs = &expr.Table{}
	}
	tracker := diag.NewTracker(name, f.diags, f.log)
	c := &Component{
		Name:       name,
		Target:     target,
		StyleKey:   f.styleKey(name),
		Rules:      rules,
		Exprs:      exprs,
		Tracker:    tracker,
		Builder:    styles.NewBuilder(tracker, f.log.With(zap.String("component", name))),
		Recognized: make(map[string]int),
	}
	f.Components = append(f.Components, c)
	f.byName[name] = c
	return c, nil
}

// Lookup finds a component of this file by its local name.
func (f *File) Lookup(name string) *Component {
	return f.byName[name]
}

// Diagnostics returns all diagnostics of the file in the order they were
// produced.
func (f *File) Diagnostics() *diag.Sink {
	return f.diags
}

// styleKey derives a per file unique style object name from a component
// name.
func (f *File) styleKey(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	base := string(unicode.ToLower(r)) + name[size:]
	base = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' {
			return r
		}
		return '_'
	}, base)
	key := base
	for i := 2; f.keys[key]; i++ {
		key = base + strconv.Itoa(i)
	}
	f.keys[key] = true
	return key
}

// siblings resolves selector references of one component to the other
// components of the file.
type siblings struct {
	file *File
	self *Component
}

func (s siblings) Component(slot expr.Slot) (string, bool) {
	n, ok := s.self.Exprs.Get(slot)
	if !ok {
		return "", false
	}
	id, ok := n.(*expr.Ident)
	if !ok || id.Name == s.self.Name {
		return "", false
	}
	if s.file.Lookup(id.Name) == nil {
		return "", false
	}
	return id.Name, true
}
