// Package styxconfig parses the workspace traceability config file: a
// small nested-block grammar naming one or more specs, each with its own
// include/exclude globs and a list of implementations (each with its own
// include/exclude globs).
//
// Grammar (informal):
//
//	specs (
//	    {
//	        name docs
//	        include (docs/**/*.md)
//	        exclude ()
//	        impls (
//	            {
//	                name backend
//	                include (src/**/*.go)
//	                exclude (src/**/*_test.go)
//	            }
//	        )
//	    }
//	)
package styxconfig

import (
	"fmt"
	"strings"
)

// Impl is one named implementation block under a spec.
type Impl struct {
	Name    string
	Include []string
	Exclude []string
}

// Spec is one named spec block.
type Spec struct {
	Name    string
	Include []string
	Exclude []string
	Impls   []Impl
}

// Config is a fully parsed workspace config.
type Config struct {
	Specs []Spec
}

// Default returns the config used when no file exists: a single spec
// named "docs" covering every markdown file, with a single implementation
// named "src" covering every supported source extension.
func Default() Config {
	return Config{Specs: []Spec{{
		Name:    "docs",
		Include: []string{"**/*.md", "**/*.markdown"},
		Impls: []Impl{{
			Name:    "src",
			Include: []string{"**/*"},
		}},
	}}}
}

// Parse parses the config grammar from text.
func Parse(text string) (Config, error) {
	p := &parser{toks: tokenize(text)}
	cfg, err := p.parseRoot()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// --- tokenizer ---

type tokKind int

const (
	tokIdent tokKind = iota
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokEOF
)

type token struct {
	kind tokKind
	text string
}

func tokenize(text string) []token {
	var toks []token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '#':
			for i < len(text) && text[i] != '\n' {
				i++
			}
		case c == '(' :
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '{':
			toks = append(toks, token{tokLBrace, "{"})
			i++
		case c == '}':
			toks = append(toks, token{tokRBrace, "}"})
			i++
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		default:
			start := i
			for i < len(text) && !strings.ContainsRune(" \t\n\r(){}#", rune(text[i])) {
				i++
			}
			toks = append(toks, token{tokIdent, text[start:i]})
		}
	}
	toks = append(toks, token{tokEOF, ""})
	return toks
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokKind) (token, error) {
	t := p.next()
	if t.kind != k {
		return t, fmt.Errorf("styxconfig: unexpected token %q at position %d", t.text, p.pos)
	}
	return t, nil
}

func (p *parser) parseRoot() (Config, error) {
	if _, err := p.expectIdent("specs"); err != nil {
		return Config{}, err
	}
	if _, err := p.expect(tokLParen); err != nil {
		return Config{}, err
	}
	var specs []Spec
	for p.peek().kind == tokLBrace {
		s, err := p.parseSpec()
		if err != nil {
			return Config{}, err
		}
		specs = append(specs, s)
	}
	if _, err := p.expect(tokRParen); err != nil {
		return Config{}, err
	}
	return Config{Specs: specs}, nil
}

func (p *parser) expectIdent(want string) (token, error) {
	t, err := p.expect(tokIdent)
	if err != nil {
		return t, err
	}
	if t.text != want {
		return t, fmt.Errorf("styxconfig: expected %q, found %q", want, t.text)
	}
	return t, nil
}

func (p *parser) parseSpec() (Spec, error) {
	if _, err := p.expect(tokLBrace); err != nil {
		return Spec{}, err
	}
	s := Spec{}
	for p.peek().kind == tokIdent {
		key := p.next().text
		switch key {
		case "name":
			v, err := p.expect(tokIdent)
			if err != nil {
				return Spec{}, err
			}
			s.Name = v.text
		case "include":
			list, err := p.parseStringList()
			if err != nil {
				return Spec{}, err
			}
			s.Include = list
		case "exclude":
			list, err := p.parseStringList()
			if err != nil {
				return Spec{}, err
			}
			s.Exclude = list
		case "impls":
			impls, err := p.parseImpls()
			if err != nil {
				return Spec{}, err
			}
			s.Impls = impls
		default:
			return Spec{}, fmt.Errorf("styxconfig: unknown spec field %q", key)
		}
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return Spec{}, err
	}
	if s.Name == "" {
		return Spec{}, fmt.Errorf("styxconfig: spec block missing required 'name'")
	}
	return s, nil
}

func (p *parser) parseImpls() ([]Impl, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	var impls []Impl
	for p.peek().kind == tokLBrace {
		impl, err := p.parseImpl()
		if err != nil {
			return nil, err
		}
		impls = append(impls, impl)
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	return impls, nil
}

func (p *parser) parseImpl() (Impl, error) {
	if _, err := p.expect(tokLBrace); err != nil {
		return Impl{}, err
	}
	im := Impl{}
	for p.peek().kind == tokIdent {
		key := p.next().text
		switch key {
		case "name":
			v, err := p.expect(tokIdent)
			if err != nil {
				return Impl{}, err
			}
			im.Name = v.text
		case "include":
			list, err := p.parseStringList()
			if err != nil {
				return Impl{}, err
			}
			im.Include = list
		case "exclude":
			list, err := p.parseStringList()
			if err != nil {
				return Impl{}, err
			}
			im.Exclude = list
		default:
			return Impl{}, fmt.Errorf("styxconfig: unknown impl field %q", key)
		}
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return Impl{}, err
	}
	if im.Name == "" {
		return Impl{}, fmt.Errorf("styxconfig: impl block missing required 'name'")
	}
	return im, nil
}

func (p *parser) parseStringList() ([]string, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	var out []string
	for p.peek().kind == tokIdent {
		out = append(out, p.next().text)
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	return out, nil
}
