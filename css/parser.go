// Package css parses the body of a styled template, with interpolations
// already replaced by slot markers, into the rules the lowering engine
// consumes. Nested selectors and at-rules are flattened so every rule
// carries its full selector and at-rule stack.
package css

import (
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"

	"sc2sx/expr"
	"sc2sx/model"
)

// Parser parses styled template bodies.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new template parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

type token struct {
	tt   css.TokenType
	text string
	loc  model.Location
}

// scope is one open block.
type scope struct {
	selector string
	atRules  []string
	// index of the open rule in state.rules, -1 when none
	rule int
}

type state struct {
	file    string
	toks    []token
	pos     int
	rules   []model.Rule
	pending []token
}

// Parse turns template text into rules in source order. file is recorded
// in locations, lines and columns are relative to the template start.
// Declarations outside of any nested block belong to the "&" rule.
func (p *Parser) Parse(file, text string) ([]model.Rule, error) {
	toks, err := lex(file, text)
	if err != nil {
		return nil, err
	}
	st := &state{file: file, toks: toks}
	if err := st.block(&scope{selector: "&", rule: -1}, false); err != nil {
		return nil, err
	}
	p.log.Debug("Template parsed", zap.String("file", file), zap.Int("tokens", len(toks)), zap.Int("rules", len(st.rules)))
	return st.rules, nil
}

func lex(file, text string) ([]token, error) {
	l := css.NewLexer(parse.NewInputString(text))
	line, col := 1, 1
	var toks []token
	for {
		tt, data := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("unable to tokenize template at %d:%d: %w", line, col, err)
			}
			return toks, nil
		}
		s := string(data)
		if tt != css.CommentToken {
			toks = append(toks, token{tt: tt, text: s, loc: model.Location{File: file, Line: line, Column: col}})
		}
		if n := strings.Count(s, "\n"); n > 0 {
			line += n
			col = len(s) - strings.LastIndexByte(s, '\n')
		} else {
			col += len(s)
		}
	}
}

// block consumes tokens until the closing brace of sc (or the end of input
// for the outermost scope).
func (st *state) block(sc *scope, nested bool) error {
	for st.pos < len(st.toks) {
		t := st.toks[st.pos]
		st.pos++
		switch t.tt {
		case css.SemicolonToken:
			if err := st.declaration(sc); err != nil {
				return err
			}
		case css.LeftBraceToken:
			if err := st.declarationsBefore(sc); err != nil {
				return err
			}
			child, err := st.child(sc, t)
			if err != nil {
				return err
			}
			sc.rule = -1
			if err := st.block(child, true); err != nil {
				return err
			}
		case css.RightBraceToken:
			if !nested {
				return fmt.Errorf("unexpected '}' at %s", t.loc)
			}
			return st.declaration(sc)
		default:
			st.pending = append(st.pending, t)
		}
	}
	if nested {
		return fmt.Errorf("unterminated block of '%s'", sc.selector)
	}
	return st.declaration(sc)
}

// declarationsBefore handles declarations written without a terminating
// semicolon before a nested block prelude. Only the leading mixin markers
// can be split off reliably, the rest of the tokens form the prelude.
func (st *state) declarationsBefore(sc *scope) error {
	for {
		i := firstSignificant(st.pending, 0)
		if i < 0 {
			return nil
		}
		if _, ok := expr.ParseMarker(st.pending[i].text); !ok || st.pending[i].tt != css.IdentToken {
			return nil
		}
		j := firstSignificant(st.pending, i+1)
		if j < 0 || st.pending[j].tt == css.ColonToken || !hasNewline(st.pending[i+1:j]) {
			return nil
		}
		st.mixin(sc, st.pending[i])
		st.pending = st.pending[j:]
	}
}

// child opens a nested block, its prelude is the pending tokens.
func (st *state) child(sc *scope, brace token) (*scope, error) {
	prelude := strings.TrimSpace(collapse(st.pending))
	loc := brace.loc
	if i := firstSignificant(st.pending, 0); i >= 0 {
		loc = st.pending[i].loc
	}
	st.pending = st.pending[:0]
	if prelude == "" {
		return nil, fmt.Errorf("block without selector at %s", loc)
	}

	child := &scope{selector: sc.selector, atRules: sc.atRules, rule: -1}
	if strings.HasPrefix(prelude, "@") {
		switch name := atName(prelude); name {
		case "media", "supports", "container":
			child.atRules = append(append([]string(nil), sc.atRules...), prelude)
			return child, nil
		default:
			return nil, fmt.Errorf("unsupported at-rule @%s at %s", name, loc)
		}
	}
	child.selector = nest(sc.selector, prelude)
	return child, nil
}

// nest resolves a nested selector against its parent.
func nest(parent, sel string) string {
	if parent == "&" {
		return sel
	}
	parts := strings.Split(sel, ",")
	for i, s := range parts {
		s = strings.TrimSpace(s)
		if strings.Contains(s, "&") {
			parts[i] = strings.ReplaceAll(s, "&", parent)
		} else {
			parts[i] = parent + " " + s
		}
	}
	return strings.Join(parts, ", ")
}

// declaration turns the pending tokens into a declaration of sc.
func (st *state) declaration(sc *scope) error {
	if err := st.declarationsBefore(sc); err != nil {
		return err
	}
	toks := st.pending
	st.pending = st.pending[:0]

	start := firstSignificant(toks, 0)
	if start < 0 {
		return nil
	}
	if _, ok := expr.ParseMarker(toks[start].text); ok && firstSignificant(toks, start+1) < 0 {
		st.mixin(sc, toks[start])
		return nil
	}

	colon := -1
	depth := 0
	for i := start; i < len(toks) && colon < 0; i++ {
		switch toks[i].tt {
		case css.LeftParenthesisToken, css.FunctionToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.ColonToken:
			if depth == 0 {
				colon = i
			}
		}
	}
	if colon < 0 {
		return fmt.Errorf("malformed declaration '%s' at %s", strings.TrimSpace(collapse(toks[start:])), toks[start].loc)
	}

	prop := strings.TrimSpace(collapse(toks[start:colon]))
	if prop == "" || strings.ContainsAny(prop, " \t") {
		return fmt.Errorf("malformed property '%s' at %s", prop, toks[start].loc)
	}
	value, important := splitImportant(strings.TrimSpace(collapse(toks[colon+1:])))
	if value == "" {
		return fmt.Errorf("empty value of '%s' at %s", prop, toks[start].loc)
	}
	st.add(sc, model.Declaration{
		Property:  prop,
		Value:     Value(value),
		Important: important,
		Loc:       toks[start].loc,
	})
	return nil
}

func (st *state) mixin(sc *scope, t token) {
	s, _ := expr.ParseMarker(t.text)
	st.add(sc, model.Declaration{Value: model.Interpolated(model.SlotPart(s)), Loc: t.loc})
}

// add appends d to the open rule of sc, starting a new rule after a nested
// block so source order is kept.
func (st *state) add(sc *scope, d model.Declaration) {
	if sc.rule < 0 {
		st.rules = append(st.rules, model.Rule{
			Selector: sc.selector,
			AtRules:  sc.atRules,
			Loc:      d.Loc,
		})
		sc.rule = len(st.rules) - 1
	}
	r := &st.rules[sc.rule]
	r.Declarations = append(r.Declarations, d)
}

// Value splits text at slot markers. Text without markers stays static.
func Value(text string) model.Value {
	slots := expr.Markers(text)
	if len(slots) == 0 {
		return model.StaticValue(text)
	}
	var parts []model.Part
	for _, s := range slots {
		m := expr.Marker(s)
		i := strings.Index(text, m)
		if i > 0 {
			parts = append(parts, model.TextPart(text[:i]))
		}
		parts = append(parts, model.SlotPart(s))
		text = text[i+len(m):]
	}
	if text != "" {
		parts = append(parts, model.TextPart(text))
	}
	return model.Interpolated(parts...)
}

func splitImportant(v string) (string, bool) {
	i := strings.LastIndexByte(v, '!')
	if i < 0 || !strings.EqualFold(strings.TrimSpace(v[i+1:]), "important") {
		return v, false
	}
	return strings.TrimSpace(v[:i]), true
}

// collapse joins token text with every whitespace run reduced to one space.
func collapse(toks []token) string {
	var sb strings.Builder
	for _, t := range toks {
		if t.tt == css.WhitespaceToken {
			if s := sb.String(); s == "" || s[len(s)-1] != ' ' {
				sb.WriteByte(' ')
			}
			continue
		}
		sb.WriteString(t.text)
	}
	return sb.String()
}

func firstSignificant(toks []token, from int) int {
	for i := from; i < len(toks); i++ {
		if toks[i].tt != css.WhitespaceToken {
			return i
		}
	}
	return -1
}

func hasNewline(toks []token) bool {
	for _, t := range toks {
		if strings.Contains(t.text, "\n") {
			return true
		}
	}
	return false
}

func atName(prelude string) string {
	name := strings.TrimPrefix(prelude, "@")
	if i := strings.IndexAny(name, " \t\n("); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}
