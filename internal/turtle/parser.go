package turtle

import "github.com/jward/thicket/internal/syntax"

// Parse builds a lossless syntax tree for src. It never fails: tokens that do
// not fit the grammar are wrapped in error nodes up to the next statement
// terminator, and tokens the grammar requires but the input lacks appear as
// zero-width missing nodes.
func Parse(src []byte) *syntax.Elem {
	p := &parser{src: src, toks: lex(src)}
	var stmts []*syntax.Elem
	for !p.at(tokEOF) {
		stmts = append(stmts, p.statement())
	}
	return syntax.NewNode(KindRoot, src, stmts...)
}

type parser struct {
	src  []byte
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) at(k syntax.Kind) bool { return p.toks[p.pos].kind == k }

// prevEnd is where a missing token would have been: right after the last
// consumed token.
func (p *parser) prevEnd() uint32 {
	if p.pos == 0 {
		return 0
	}
	return p.toks[p.pos-1].rng.End
}

func (p *parser) bump() *syntax.Elem {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return syntax.NewLeaf(t.kind, t.rng, string(p.src[t.rng.Start:t.rng.End]))
}

func (p *parser) expect(k syntax.Kind) *syntax.Elem {
	if p.at(k) {
		return p.bump()
	}
	return syntax.NewMissing(k, p.prevEnd())
}

func (p *parser) atDirective() bool {
	switch p.peek().kind {
	case TokAtPrefix, TokAtBase, TokPrefix, TokBase:
		return true
	}
	return false
}

func (p *parser) statement() *syntax.Elem {
	switch p.peek().kind {
	case TokAtPrefix:
		return p.directive(KindPrefixDeclaration, true, TokPNameNS, TokIRIRef)
	case TokPrefix:
		return p.directive(KindSparqlPrefix, false, TokPNameNS, TokIRIRef)
	case TokAtBase:
		return p.directive(KindBaseDeclaration, true, TokIRIRef)
	case TokBase:
		return p.directive(KindSparqlBase, false, TokIRIRef)
	}
	if p.startsSubject() {
		return p.triples()
	}
	return p.recover()
}

func (p *parser) directive(kind syntax.Kind, dotted bool, want ...syntax.Kind) *syntax.Elem {
	children := []*syntax.Elem{p.bump()}
	for _, k := range want {
		children = append(children, p.expect(k))
	}
	if dotted {
		children = append(children, p.terminator())
	}
	return syntax.NewNode(kind, p.src, children...)
}

// terminator consumes the '.' closing a statement. Anything else before it
// becomes an error node that swallows the dot too.
func (p *parser) terminator() *syntax.Elem {
	if p.at(TokDot) {
		return p.bump()
	}
	if p.at(tokEOF) || p.atDirective() {
		return syntax.NewMissing(TokDot, p.prevEnd())
	}
	return p.recover()
}

// recover wraps tokens up to and including the next '.' in an error node,
// stopping early at a directive keyword or end of input. The caller
// guarantees the current token is neither, so at least one token is taken.
func (p *parser) recover() *syntax.Elem {
	var toks []*syntax.Elem
	for !p.at(tokEOF) && (len(toks) == 0 || !p.atDirective()) {
		t := p.bump()
		toks = append(toks, t)
		if t.Kind() == TokDot {
			break
		}
	}
	return syntax.NewError(p.src, toks...)
}

func (p *parser) triples() *syntax.Elem {
	subj := p.subject()
	children := []*syntax.Elem{subj}
	// "[ :p :o ] ." is a complete statement on its own.
	if subj.Kind() != KindBlankNodePropertyList || !p.at(TokDot) {
		children = append(children, p.predicateObjectList())
	}
	children = append(children, p.terminator())
	return syntax.NewNode(KindTriples, p.src, children...)
}

func (p *parser) startsSubject() bool {
	switch p.peek().kind {
	case TokIRIRef, TokPNameLN, TokPNameNS, TokBlankNodeLabel, TokLBracket, TokLParen:
		return true
	}
	return false
}

func (p *parser) startsVerb() bool {
	switch p.peek().kind {
	case TokA, TokIRIRef, TokPNameLN, TokPNameNS:
		return true
	}
	return false
}

func (p *parser) startsObject() bool {
	if p.startsSubject() {
		return true
	}
	switch p.peek().kind {
	case TokString, TokInteger, TokDecimal, TokDouble, TokTrue, TokFalse:
		return true
	}
	return false
}

func (p *parser) iri() *syntax.Elem {
	switch p.peek().kind {
	case TokIRIRef:
		return syntax.NewNode(KindIRI, p.src, p.bump())
	case TokPNameLN, TokPNameNS:
		return syntax.NewNode(KindPrefixedName, p.src, p.bump())
	}
	return syntax.NewMissing(KindIRI, p.prevEnd())
}

func (p *parser) subject() *syntax.Elem {
	switch p.peek().kind {
	case TokBlankNodeLabel:
		return syntax.NewNode(KindBlankNode, p.src, p.bump())
	case TokLBracket:
		return p.bracketed()
	case TokLParen:
		return p.collection()
	}
	return p.iri()
}

func (p *parser) bracketed() *syntax.Elem {
	lb := p.bump()
	if p.at(TokRBracket) {
		return syntax.NewNode(KindBlankNode, p.src, lb, p.bump())
	}
	pol := p.predicateObjectList()
	return syntax.NewNode(KindBlankNodePropertyList, p.src, lb, pol, p.expect(TokRBracket))
}

func (p *parser) collection() *syntax.Elem {
	children := []*syntax.Elem{p.bump()}
	for p.startsObject() {
		children = append(children, p.object())
	}
	children = append(children, p.expect(TokRParen))
	return syntax.NewNode(KindCollection, p.src, children...)
}

func (p *parser) predicateObjectList() *syntax.Elem {
	var children []*syntax.Elem
	for {
		if !p.startsVerb() {
			children = append(children, syntax.NewMissing(KindIRI, p.prevEnd()))
			break
		}
		var verb *syntax.Elem
		if p.at(TokA) {
			verb = syntax.NewNode(KindVerbA, p.src, p.bump())
		} else {
			verb = p.iri()
		}
		children = append(children, verb, p.objectList())
		if !p.at(TokSemicolon) {
			break
		}
		for p.at(TokSemicolon) {
			children = append(children, p.bump())
		}
		if !p.startsVerb() {
			break
		}
	}
	return syntax.NewNode(KindPredicateObjectList, p.src, children...)
}

func (p *parser) objectList() *syntax.Elem {
	children := []*syntax.Elem{p.object()}
	for p.at(TokComma) {
		children = append(children, p.bump(), p.object())
	}
	return syntax.NewNode(KindObjectList, p.src, children...)
}

func (p *parser) object() *syntax.Elem {
	switch p.peek().kind {
	case TokString:
		return p.rdfLiteral()
	case TokInteger, TokDecimal, TokDouble:
		return syntax.NewNode(KindNumericLiteral, p.src, p.bump())
	case TokTrue, TokFalse:
		return syntax.NewNode(KindBooleanLiteral, p.src, p.bump())
	}
	return p.subject()
}

func (p *parser) rdfLiteral() *syntax.Elem {
	children := []*syntax.Elem{p.bump()}
	switch {
	case p.at(TokLangTag):
		children = append(children, p.bump())
	case p.at(TokDatatypeMarker):
		children = append(children, p.bump(), p.iri())
	}
	return syntax.NewNode(KindRDFLiteral, p.src, children...)
}
