// Package fixture reads YAML descriptions of one styled source file and
// turns them into the engine data model: components with their rules,
// expression tables, file helpers and imports, plus the resolver table the
// file is lowered against.
package fixture

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"sc2sx/adapter"
	"sc2sx/css"
	"sc2sx/expr"
	"sc2sx/expr/jsexpr"
	"sc2sx/lower"
	"sc2sx/model"
)

type Import struct {
	Name string `yaml:"name"`
	From string `yaml:"from"`
}

type Declaration struct {
	Property  string `yaml:"property,omitempty"`
	Value     string `yaml:"value"`
	Important bool   `yaml:"important,omitempty"`
}

type Rule struct {
	Selector     string        `yaml:"selector"`
	At           []string      `yaml:"at,omitempty"`
	Declarations []Declaration `yaml:"declarations"`
}

// Component describes one styled component. Its styles are given either
// as structured rules or as the template body in css.
type Component struct {
	Name  string `yaml:"name"`
	Base  string `yaml:"base"`
	Rules []Rule `yaml:"rules,omitempty"`
	CSS   string `yaml:"css,omitempty"`
}

// Fixture is the YAML form of one source file.
type Fixture struct {
	File       string            `yaml:"file"`
	Imports    []Import          `yaml:"imports,omitempty"`
	Helpers    map[string]string `yaml:"helpers,omitempty"`
	Components []Component       `yaml:"components"`
	Resolver   *adapter.Table    `yaml:"resolver,omitempty"`
}

// Load reads and decodes a fixture file. Unknown fields are errors.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read fixture: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes fixture data, path is used for messages and as the default
// file name.
func Parse(path string, data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("unable to decode fixture '%s': %w", path, err)
	}
	if fx.File == "" {
		fx.File = path
	}
	return &fx, nil
}

// Build creates the engine file and the resolver described by the fixture.
func (fx *Fixture) Build(log *zap.Logger) (*lower.File, *adapter.TableResolver, error) {
	f := lower.NewFile(fx.File, log)
	for _, imp := range fx.Imports {
		f.Imports[imp.Name] = imp.From
	}
	for key, src := range fx.Helpers {
		name, fn, err := jsexpr.ParseFunction(src)
		if err != nil {
			return nil, nil, fmt.Errorf("helper %s: %w", key, err)
		}
		if name != "" && name != key {
			return nil, nil, fmt.Errorf("helper %s declares function %s", key, name)
		}
		f.Helpers[key] = fn
	}

	parser := css.NewParser(log)
	for i, c := range fx.Components {
		exprs := &expr.Table{}
		var (
			rules []model.Rule
			err   error
		)
		switch {
		case c.CSS != "" && len(c.Rules) > 0:
			err = fmt.Errorf("both rules and css are given")
		case c.CSS != "":
			rules, err = fx.template(parser, c.CSS, exprs)
		default:
			rules, err = fx.rules(c, exprs)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("component %s: %w", c.Name, err)
		}
		if c.Base == "" {
			return nil, nil, fmt.Errorf("component %d (%s) has no base", i, c.Name)
		}
		if _, err := f.AddComponent(c.Name, model.IntrinsicTarget(c.Base), rules, exprs); err != nil {
			return nil, nil, err
		}
	}

	tr, err := adapter.NewTableResolver(fx.Resolver)
	if err != nil {
		return nil, nil, fmt.Errorf("resolver of %s: %w", fx.File, err)
	}
	return f, tr, nil
}

func (fx *Fixture) rules(c Component, exprs *expr.Table) ([]model.Rule, error) {
	rules := make([]model.Rule, 0, len(c.Rules))
	for i, r := range c.Rules {
		loc := model.Location{File: fx.File, Line: i + 1, Column: 1}
		sel, err := markers(r.Selector, exprs)
		if err != nil {
			return nil, fmt.Errorf("rule %d selector: %w", i+1, err)
		}
		rule := model.Rule{Selector: sel, Loc: loc}
		for _, at := range r.At {
			text, err := markers(at, exprs)
			if err != nil {
				return nil, fmt.Errorf("rule %d at-rule: %w", i+1, err)
			}
			rule.AtRules = append(rule.AtRules, text)
		}
		for j, d := range r.Declarations {
			value, err := parseValue(d.Value, exprs)
			if err != nil {
				return nil, fmt.Errorf("rule %d declaration %d: %w", i+1, j+1, err)
			}
			if d.Property == "" && value.IsStatic() {
				return nil, fmt.Errorf("rule %d declaration %d: static value without property", i+1, j+1)
			}
			rule.Declarations = append(rule.Declarations, model.Declaration{
				Property:  strings.TrimSpace(d.Property),
				Value:     value,
				Important: d.Important,
				Loc:       model.Location{File: fx.File, Line: i + 1, Column: j + 1},
			})
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// template parses a template body after replacing its interpolations with
// slot markers.
func (fx *Fixture) template(parser *css.Parser, body string, exprs *expr.Table) ([]model.Rule, error) {
	text, err := markers(body, exprs)
	if err != nil {
		return nil, err
	}
	return parser.Parse(fx.File, text)
}

// parseValue splits a declaration value into text and slots. Values
// without interpolations stay static.
func parseValue(text string, exprs *expr.Table) (model.Value, error) {
	segs, err := split(text)
	if err != nil {
		return model.Value{}, err
	}
	if len(segs) == 1 && !segs[0].interp {
		return model.StaticValue(segs[0].text), nil
	}
	parts := make([]model.Part, 0, len(segs))
	for _, s := range segs {
		if !s.interp {
			parts = append(parts, model.TextPart(s.text))
			continue
		}
		n, err := jsexpr.Parse(s.text)
		if err != nil {
			return model.Value{}, err
		}
		parts = append(parts, model.SlotPart(exprs.Add(n)))
	}
	return model.Interpolated(parts...), nil
}

// markers replaces every interpolation of selector or at-rule text with the
// slot marker of its parsed expression.
func markers(text string, exprs *expr.Table) (string, error) {
	segs, err := split(text)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, s := range segs {
		if !s.interp {
			sb.WriteString(s.text)
			continue
		}
		n, err := jsexpr.Parse(s.text)
		if err != nil {
			return "", err
		}
		sb.WriteString(expr.Marker(exprs.Add(n)))
	}
	return sb.String(), nil
}
