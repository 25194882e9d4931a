package smi

import (
	"fmt"
)

// ParseError reports a lexical or structural problem in MIB text.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s, line %d", e.Msg, e.Line)
}

// macroKinds maps SMI macro keywords to definition kinds. The token
// preceding one of these keywords is the definition name.
var macroKinds = map[string]DefKind{
	"OBJECT-TYPE":        KindObjectType,
	"MODULE-IDENTITY":    KindIdentity,
	"OBJECT-IDENTITY":    KindObjectIdentity,
	"NOTIFICATION-TYPE":  KindNotification,
	"TRAP-TYPE":          KindTrap,
	"MODULE-COMPLIANCE":  KindCompliance,
	"OBJECT-GROUP":       KindObjectGroup,
	"NOTIFICATION-GROUP": KindNotificationGroup,
	"AGENT-CAPABILITIES": KindCapabilities,
}

// Parse reads MIB text and returns the structural skeleton of every
// module it declares. A single blob may declare more than one module.
// Returns a *ParseError carrying a line number on malformed input.
func Parse(src []byte) ([]*ModuleAST, error) {
	toks, err := scan(src)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks}
	var modules []*ModuleAST
	for {
		mod, err := p.nextModule()
		if err != nil {
			return nil, err
		}
		if mod == nil {
			break
		}
		modules = append(modules, mod)
	}

	if len(modules) == 0 {
		return nil, &ParseError{Line: p.lastLine(), Msg: "no MIB module definitions found"}
	}
	return modules, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) lastLine() int {
	if len(p.toks) == 0 {
		return 1
	}
	if p.pos < len(p.toks) {
		return p.toks[p.pos].line
	}
	return p.toks[len(p.toks)-1].line
}

func (p *parser) next() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	t := p.toks[p.pos]
	p.pos++
	return t, true
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) peekAt(offset int) (token, bool) {
	idx := p.pos + offset
	if idx >= len(p.toks) {
		return token{}, false
	}
	return p.toks[idx], true
}

// nextModule scans forward to the next "Name DEFINITIONS ... ::= BEGIN"
// header and parses the module body. Returns nil when no further module
// header exists in the remaining token stream.
func (p *parser) nextModule() (*ModuleAST, error) {
	for {
		t, ok := p.next()
		if !ok {
			return nil, nil
		}
		nxt, ok := p.peek()
		if !ok {
			return nil, nil
		}
		if t.kind == tokIdent && nxt.text == "DEFINITIONS" {
			mod := &ModuleAST{Name: t.text, Line: t.line}
			p.pos++ // consume DEFINITIONS

			// Skip tag defaults etc. up to BEGIN.
			for {
				t, ok := p.next()
				if !ok {
					return nil, &ParseError{Line: mod.Line, Msg: fmt.Sprintf("module %s: missing BEGIN", mod.Name)}
				}
				if t.text == "BEGIN" {
					break
				}
			}

			if err := p.parseBody(mod); err != nil {
				return nil, err
			}
			return mod, nil
		}
	}
}

// parseBody consumes tokens up to the matching END, collecting IMPORTS
// and top-level definitions.
func (p *parser) parseBody(mod *ModuleAST) error {
	var (
		lastIdent     string
		lastIdentLine int
		def           *Definition
		identity      *Identity
		trapEnt       string
		lastClause    string
	)

	for {
		t, ok := p.next()
		if !ok {
			return &ParseError{Line: p.lastLine(), Msg: fmt.Sprintf("module %s: unexpected end of input before END", mod.Name)}
		}

		switch {
		case t.text == "END" && t.kind == tokIdent:
			if identity != nil {
				mod.Identity = identity
			}
			return nil

		case t.text == "IMPORTS":
			if err := p.parseImports(mod); err != nil {
				return err
			}

		case t.text == "EXPORTS":
			for {
				t, ok := p.next()
				if !ok {
					return &ParseError{Line: p.lastLine(), Msg: fmt.Sprintf("module %s: unterminated EXPORTS", mod.Name)}
				}
				if t.kind == tokSemi {
					break
				}
			}

		case t.text == "MACRO":
			// Macro bodies contain BEGIN/::= sequences of their own.
			for {
				t, ok := p.next()
				if !ok {
					return &ParseError{Line: p.lastLine(), Msg: fmt.Sprintf("module %s: unterminated MACRO", mod.Name)}
				}
				if t.text == "END" {
					break
				}
			}
			lastIdent = ""

		case def == nil && t.kind == tokIdent && isMacroKeyword(t.text):
			if lastIdent == "" {
				continue
			}
			kind := macroKinds[t.text]
			def = &Definition{Name: lastIdent, Kind: kind, Line: lastIdentLine}
			trapEnt = ""
			lastClause = ""
			if kind == KindIdentity {
				identity = &Identity{Name: lastIdent}
			}

		case def == nil && t.text == "OBJECT":
			// "name OBJECT IDENTIFIER ::= { ... }" value assignment.
			n1, ok1 := p.peek()
			n2, ok2 := p.peekAt(1)
			if ok1 && ok2 && n1.text == "IDENTIFIER" && n2.kind == tokAssign && lastIdent != "" {
				def = &Definition{Name: lastIdent, Kind: KindNode, Line: lastIdentLine}
				p.pos++ // consume IDENTIFIER; ::= handled below
			}

		case t.kind == tokAssign:
			switch {
			case def != nil:
				arcs, err := p.parseValueAssignment(mod, def, trapEnt)
				if err != nil {
					return err
				}
				def.OID = arcs
				mod.Definitions = append(mod.Definitions, *def)
				def = nil
				lastIdent = ""

			case lastIdent != "":
				// Type assignment: "Name ::= <syntax>".
				kind := KindTypeAssignment
				if nxt, ok := p.peek(); ok && nxt.text == "TEXTUAL-CONVENTION" {
					kind = KindTextualConvention
				}
				mod.Definitions = append(mod.Definitions, Definition{
					Name: lastIdent,
					Kind: kind,
					Line: lastIdentLine,
				})
				lastIdent = ""
			}

		case def != nil && def.Kind == KindTrap && t.text == "ENTERPRISE":
			if nxt, ok := p.peek(); ok && nxt.kind == tokIdent {
				trapEnt = nxt.text
				p.pos++
			}

		case def != nil && def.Kind == KindIdentity && identity != nil:
			switch t.text {
			case "LAST-UPDATED":
				identity.LastUpdated = p.nextString()
				lastClause = ""
			case "ORGANIZATION":
				identity.Organization = p.nextString()
				lastClause = ""
			case "REVISION":
				identity.Revisions = append(identity.Revisions, Revision{Date: p.nextString()})
				lastClause = "REVISION"
			case "DESCRIPTION":
				text := p.nextString()
				if lastClause == "REVISION" && len(identity.Revisions) > 0 {
					identity.Revisions[len(identity.Revisions)-1].Description = text
				}
				lastClause = ""
			default:
				if t.kind == tokIdent {
					lastClause = ""
				}
			}

		case t.kind == tokIdent:
			lastIdent = t.text
			lastIdentLine = t.line
		}
	}
}

// parseImports consumes "IMPORTS sym, sym FROM Module ... ;".
func (p *parser) parseImports(mod *ModuleAST) error {
	var pending []string
	for {
		t, ok := p.next()
		if !ok {
			return &ParseError{Line: p.lastLine(), Msg: fmt.Sprintf("module %s: unterminated IMPORTS", mod.Name)}
		}
		switch {
		case t.kind == tokSemi:
			return nil
		case t.text == "FROM":
			from, ok := p.next()
			if !ok || from.kind != tokIdent {
				return &ParseError{Line: t.line, Msg: fmt.Sprintf("module %s: FROM without module name", mod.Name)}
			}
			for _, sym := range pending {
				mod.Imports = append(mod.Imports, Import{Module: from.text, Symbol: sym})
			}
			pending = pending[:0]
		case t.kind == tokIdent:
			pending = append(pending, t.text)
		}
	}
}

// parseValueAssignment consumes the value after "::=" of an open
// definition: either "{ arc arc ... }" or, for TRAP-TYPE, a bare number.
func (p *parser) parseValueAssignment(mod *ModuleAST, def *Definition, trapEnt string) ([]string, error) {
	t, ok := p.next()
	if !ok {
		return nil, &ParseError{Line: p.lastLine(), Msg: fmt.Sprintf("module %s: unterminated value assignment for %s", mod.Name, def.Name)}
	}

	if def.Kind == KindTrap && t.kind == tokNumber {
		arcs := []string{t.text}
		if trapEnt != "" {
			arcs = []string{trapEnt, t.text}
		}
		return arcs, nil
	}

	if t.kind != tokLBrace {
		return nil, &ParseError{Line: t.line, Msg: fmt.Sprintf("module %s: expected '{' after ::= for %s", mod.Name, def.Name)}
	}

	var arcs []string
	for {
		t, ok := p.next()
		if !ok {
			return nil, &ParseError{Line: p.lastLine(), Msg: fmt.Sprintf("module %s: unterminated OID for %s", mod.Name, def.Name)}
		}
		switch t.kind {
		case tokRBrace:
			return arcs, nil
		case tokIdent:
			// Named arc, possibly "iso(1)".
			arc := t.text
			if nxt, ok := p.peek(); ok && nxt.kind == tokLParen {
				p.pos++
				if num, ok := p.next(); ok && num.kind == tokNumber {
					arc = fmt.Sprintf("%s(%s)", arc, num.text)
				}
				if nxt, ok := p.peek(); ok && nxt.kind == tokRParen {
					p.pos++
				}
			}
			arcs = append(arcs, arc)
		case tokNumber:
			arcs = append(arcs, t.text)
		}
	}
}

func (p *parser) nextString() string {
	if t, ok := p.peek(); ok && t.kind == tokString {
		p.pos++
		return t.text
	}
	return ""
}

func isMacroKeyword(text string) bool {
	_, ok := macroKinds[text]
	return ok
}
