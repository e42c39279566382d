package adapter

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sc2sx/expr"
	"sc2sx/expr/jsexpr"
)

// Entry is one resolver table answer as written in YAML: the expression as
// JavaScript text and the imports it needs.
type Entry struct {
	Expr    string   `yaml:"expr"`
	Imports []Import `yaml:"imports,omitempty"`
}

// Table is the YAML form of a TableResolver.
//
//	theme:
//	  colors.primary: {expr: "colors.primary", imports: [{from: ./tokens.stylex, names: [colors]}]}
//	modules:
//	  ./tokens:
//	    spacing.md: {expr: "spacing.md"}
//	calls:
//	  rem(4): {expr: '"1rem"'}
//	media:
//	  breakpoints.md: {expr: '"@media (min-width: 768px)"'}
type Table struct {
	Theme   map[string]Entry            `yaml:"theme,omitempty"`
	Modules map[string]map[string]Entry `yaml:"modules,omitempty"`
	Calls   map[string]Entry            `yaml:"calls,omitempty"`
	Media   map[string]Entry            `yaml:"media,omitempty"`
}

// TableResolver answers descriptors from a fixed table. Expressions are
// parsed once when the resolver is built.
type TableResolver struct {
	theme   map[string]*Resolution
	modules map[string]map[string]*Resolution
	calls   map[string]*Resolution
	media   map[string]*Resolution
}

// NewTableResolver parses every table entry.
func NewTableResolver(t *Table) (*TableResolver, error) {
	tr := &TableResolver{
		theme:   make(map[string]*Resolution),
		modules: make(map[string]map[string]*Resolution),
		calls:   make(map[string]*Resolution),
		media:   make(map[string]*Resolution),
	}
	if t == nil {
		return tr, nil
	}

	var err error
	if tr.theme, err = parseEntries("theme", t.Theme); err != nil {
		return nil, err
	}
	for module, entries := range t.Modules {
		if tr.modules[module], err = parseEntries("module "+module, entries); err != nil {
			return nil, err
		}
	}
	// calls and media are looked up by printed expression, normalize keys
	// the same way
	for _, section := range []struct {
		name    string
		entries map[string]Entry
		dst     map[string]*Resolution
	}{
		{"calls", t.Calls, tr.calls},
		{"media", t.Media, tr.media},
	} {
		parsed, err := parseEntries(section.name, section.entries)
		if err != nil {
			return nil, err
		}
		for k, res := range parsed {
			n, err := jsexpr.Parse(k)
			if err != nil {
				return nil, fmt.Errorf("%s key %q: %w", section.name, k, err)
			}
			section.dst[expr.Print(n)] = res
		}
	}
	return tr, nil
}

func parseEntries(section string, entries map[string]Entry) (map[string]*Resolution, error) {
	out := make(map[string]*Resolution, len(entries))
	for k, e := range entries {
		n, err := jsexpr.Parse(e.Expr)
		if err != nil {
			return nil, fmt.Errorf("%s entry %q: %w", section, k, err)
		}
		out[k] = &Resolution{Expr: n, Imports: e.Imports}
	}
	return out, nil
}

// LoadTable reads a resolver table from a YAML file.
func LoadTable(path string) (*TableResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read resolver table: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var t Table
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("unable to decode resolver table '%s': %w", path, err)
	}
	return NewTableResolver(&t)
}

func (tr *TableResolver) Resolve(d Descriptor) (*Resolution, bool) {
	var res *Resolution
	switch d.Kind {
	case ThemePath:
		res = tr.theme[strings.Join(d.Path, ".")]
	case ImportedValue:
		res = tr.modules[d.Module][strings.Join(append([]string{d.Name}, d.Path...), ".")]
	case HelperCall:
		res = tr.calls[expr.Print(&expr.Call{Callee: expr.Id(d.Name), Args: d.Args})]
	case MediaSlot:
		res = tr.media[expr.Print(d.Expr)]
	}
	return res, res != nil
}
