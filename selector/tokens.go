package selector

import (
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"sc2sx/expr"
)

type tokKind int

const (
	tAmp tokKind = iota
	tColon
	tIdent
	tFunc
	tLParen
	tRParen
	tLBracket
	tRBracket
	tString
	tComma
	tSpace
	tDelim
	tHash
	tOther
)

type token struct {
	kind tokKind
	text string
}

func (t token) String() string {
	switch t.kind {
	case tString:
		return expr.QuoteString(t.text)
	case tFunc:
		return t.text + "("
	}
	return t.text
}

// tokenize runs the CSS lexer over selector text. Slot markers come out as
// identifiers.
func tokenize(s string) ([]token, error) {
	l := css.NewLexer(parse.NewInputString(s))
	var toks []token
	for {
		tt, data := l.Next()
		text := string(data)
		switch tt {
		case css.ErrorToken:
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("unable to tokenize selector %q: %w", s, err)
			}
			return toks, nil
		case css.WhitespaceToken, css.CommentToken:
			if n := len(toks); n == 0 || toks[n-1].kind != tSpace {
				toks = append(toks, token{tSpace, " "})
			}
		case css.IdentToken:
			toks = append(toks, token{tIdent, text})
		case css.ColonToken:
			toks = append(toks, token{tColon, ":"})
		case css.FunctionToken:
			toks = append(toks, token{tFunc, strings.TrimSuffix(text, "(")})
		case css.LeftParenthesisToken:
			toks = append(toks, token{tLParen, "("})
		case css.RightParenthesisToken:
			toks = append(toks, token{tRParen, ")"})
		case css.LeftBracketToken:
			toks = append(toks, token{tLBracket, "["})
		case css.RightBracketToken:
			toks = append(toks, token{tRBracket, "]"})
		case css.StringToken:
			toks = append(toks, token{tString, unquote(text)})
		case css.CommaToken:
			toks = append(toks, token{tComma, ","})
		case css.HashToken:
			toks = append(toks, token{tHash, text})
		case css.DelimToken:
			if text == "&" {
				toks = append(toks, token{tAmp, "&"})
			} else {
				toks = append(toks, token{tDelim, text})
			}
		default:
			// numbers, dimensions and attribute match operators are only
			// ever needed as text
			toks = append(toks, token{tOther, text})
		}
	}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func render(toks []token) string {
	var sb strings.Builder
	for _, t := range toks {
		sb.WriteString(t.String())
	}
	return strings.TrimSpace(sb.String())
}

// pseudo is a pseudo-class, args is set for the functional form.
type pseudo struct {
	name string
	args []token
	fn   bool
}

func (p pseudo) String() string {
	if !p.fn {
		return ":" + p.name
	}
	return ":" + p.name + "(" + render(p.args) + ")"
}

// compound is one compound selector: everything between two combinators.
type compound struct {
	amps     int
	refs     []expr.Slot
	pseudos  []pseudo
	elements []string
	attrs    []string
	// other holds class, id, type and universal selectors, none of which
	// can be lowered
	other []string
}

func (c *compound) empty() bool {
	return c.amps == 0 && len(c.refs) == 0 && len(c.pseudos) == 0 &&
		len(c.elements) == 0 && len(c.attrs) == 0 && len(c.other) == 0
}

func (c *compound) String() string {
	var sb strings.Builder
	for range c.amps {
		sb.WriteString("&")
	}
	for _, r := range c.refs {
		sb.WriteString(expr.Marker(r))
	}
	for _, o := range c.other {
		sb.WriteString(o)
	}
	for _, a := range c.attrs {
		sb.WriteString(a)
	}
	for _, p := range c.pseudos {
		sb.WriteString(p.String())
	}
	for _, e := range c.elements {
		sb.WriteString(e)
	}
	return sb.String()
}

// complexSel is a chain of compounds joined by combinators. combs[i] joins
// compounds[i] and compounds[i+1] and is one of " ", ">", "+", "~".
type complexSel struct {
	compounds []*compound
	combs     []string
}

func (s *complexSel) String() string {
	var sb strings.Builder
	for i, c := range s.compounds {
		if i > 0 {
			if comb := s.combs[i-1]; comb == " " {
				sb.WriteString(" ")
			} else {
				sb.WriteString(" " + comb + " ")
			}
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) next() (token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *parser) skipSpace() bool {
	skipped := false
	for t, ok := p.peek(); ok && t.kind == tSpace; t, ok = p.peek() {
		p.pos++
		skipped = true
	}
	return skipped
}

// parseGroup reads a comma separated selector list.
func (p *parser) parseGroup() ([]*complexSel, error) {
	var group []*complexSel
	for {
		sel, err := p.parseComplex()
		if err != nil {
			return nil, err
		}
		group = append(group, sel)
		t, ok := p.next()
		if !ok {
			return group, nil
		}
		if t.kind != tComma {
			return nil, fmt.Errorf("unexpected %q", t.text)
		}
	}
}

func (p *parser) parseComplex() (*complexSel, error) {
	sel := &complexSel{}
	p.skipSpace()
	for {
		c, err := p.parseCompound()
		if err != nil {
			return nil, err
		}
		if c.empty() {
			if len(sel.compounds) > 0 {
				return nil, fmt.Errorf("dangling combinator")
			}
			// bare "" selects the component itself
			c.amps = 1
		}
		sel.compounds = append(sel.compounds, c)

		spaced := p.skipSpace()
		t, ok := p.peek()
		if !ok || t.kind == tComma {
			return sel, nil
		}
		if t.kind == tDelim && (t.text == ">" || t.text == "+" || t.text == "~") {
			p.pos++
			p.skipSpace()
			sel.combs = append(sel.combs, t.text)
			continue
		}
		if !spaced {
			return nil, fmt.Errorf("unexpected %q", t.text)
		}
		sel.combs = append(sel.combs, " ")
	}
}

func (p *parser) parseCompound() (*compound, error) {
	c := &compound{}
	for {
		t, ok := p.peek()
		if !ok {
			return c, nil
		}
		switch {
		case t.kind == tAmp:
			p.pos++
			c.amps++
		case t.kind == tIdent:
			p.pos++
			if slot, ok := expr.ParseMarker(t.text); ok {
				c.refs = append(c.refs, slot)
			} else {
				c.other = append(c.other, strings.ToLower(t.text))
			}
		case t.kind == tHash:
			p.pos++
			c.other = append(c.other, t.text)
		case t.kind == tDelim && (t.text == "." || t.text == "*"):
			p.pos++
			text := t.text
			if t.text == "." {
				if n, ok := p.next(); ok && n.kind == tIdent {
					text += n.text
				} else {
					return nil, fmt.Errorf("class selector without name")
				}
			}
			c.other = append(c.other, text)
		case t.kind == tColon:
			p.pos++
			if err := p.parsePseudo(c); err != nil {
				return nil, err
			}
		case t.kind == tLBracket:
			p.pos++
			attr, err := p.parseAttribute()
			if err != nil {
				return nil, err
			}
			c.attrs = append(c.attrs, attr)
		default:
			return c, nil
		}
	}
}

// legacyElements are pseudo-elements that may be written with one colon.
var legacyElements = map[string]bool{
	"before":       true,
	"after":        true,
	"first-line":   true,
	"first-letter": true,
}

func (p *parser) parsePseudo(c *compound) error {
	element := false
	if t, ok := p.peek(); ok && t.kind == tColon {
		p.pos++
		element = true
	}
	t, ok := p.next()
	if !ok {
		return fmt.Errorf("pseudo selector without name")
	}
	name := strings.ToLower(t.text)
	switch t.kind {
	case tIdent:
		if element || legacyElements[name] {
			c.elements = append(c.elements, "::"+name)
		} else {
			c.pseudos = append(c.pseudos, pseudo{name: name})
		}
		return nil
	case tFunc:
		args, err := p.parseArgs()
		if err != nil {
			return err
		}
		if element {
			c.elements = append(c.elements, "::"+name+"("+render(args)+")")
		} else {
			c.pseudos = append(c.pseudos, pseudo{name: name, args: args, fn: true})
		}
		return nil
	}
	return fmt.Errorf("unexpected %q after colon", t.text)
}

// parseArgs collects tokens up to the parenthesis closing a function.
func (p *parser) parseArgs() ([]token, error) {
	var args []token
	depth := 1
	for {
		t, ok := p.next()
		if !ok {
			return nil, fmt.Errorf("unbalanced parenthesis")
		}
		switch t.kind {
		case tFunc, tLParen:
			depth++
		case tRParen:
			depth--
			if depth == 0 {
				return args, nil
			}
		}
		args = append(args, t)
	}
}

// parseAttribute reads an attribute test and renders it with canonical
// spacing and quoting, e.g. [type=checkbox] becomes [type="checkbox"].
func (p *parser) parseAttribute() (string, error) {
	var parts []token
	for {
		t, ok := p.next()
		if !ok {
			return "", fmt.Errorf("unterminated attribute selector")
		}
		if t.kind == tRBracket {
			break
		}
		if t.kind != tSpace {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 || parts[0].kind != tIdent {
		return "", fmt.Errorf("attribute selector without name")
	}
	name := strings.ToLower(parts[0].text)
	rest := parts[1:]
	if len(rest) == 0 {
		return "[" + name + "]", nil
	}

	op := ""
	for len(rest) > 0 && !strings.HasSuffix(op, "=") && (rest[0].kind == tDelim || rest[0].kind == tOther) {
		op += rest[0].text
		rest = rest[1:]
	}
	switch op {
	case "=", "^=", "$=", "*=", "~=", "|=":
	default:
		return "", fmt.Errorf("unsupported attribute operator %q", op)
	}
	if len(rest) == 0 {
		return "", fmt.Errorf("attribute selector without value")
	}
	attr := "[" + name + op + expr.QuoteString(rest[0].text)
	if len(rest) > 1 {
		attr += " " + strings.ToLower(rest[1].text)
	}
	return attr + "]", nil
}
