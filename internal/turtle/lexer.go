package turtle

import (
	"strings"
	"unicode/utf8"

	"github.com/jward/thicket/internal/syntax"
)

type token struct {
	kind syntax.Kind
	rng  syntax.Range
}

// lex tokenizes src. Whitespace and comments are dropped; anything the lexer
// cannot classify becomes a TokBogus token so the parser can wrap it in an
// error node. The result always ends with an EOF token.
func lex(src []byte) []token {
	l := &lexer{src: src}
	var toks []token
	for {
		t := l.next()
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks
		}
	}
}

type lexer struct {
	src []byte
	pos int
}

func (l *lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *lexer) emit(kind syntax.Kind, start int) token {
	return token{kind: kind, rng: syntax.NewRange(uint32(start), uint32(l.pos))}
}

func (l *lexer) skipTrivia() {
	for l.pos < len(l.src) {
		switch c := l.src[l.pos]; {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.pos++
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) next() token {
	l.skipTrivia()
	start := l.pos
	if l.pos >= len(l.src) {
		return l.emit(tokEOF, start)
	}

	c := l.src[l.pos]
	switch {
	case c == '<':
		return l.iriRef(start)
	case c == '"' || c == '\'':
		return l.stringLiteral(start, c)
	case c == '@':
		return l.atWord(start)
	case c == '^':
		if l.peekAt(1) == '^' {
			l.pos += 2
			return l.emit(TokDatatypeMarker, start)
		}
		l.pos++
		return l.emit(TokBogus, start)
	case c == '_' && l.peekAt(1) == ':':
		return l.blankNodeLabel(start)
	case isDigit(c),
		(c == '+' || c == '-') && (isDigit(l.peekAt(1)) || l.peekAt(1) == '.' && isDigit(l.peekAt(2))),
		c == '.' && isDigit(l.peekAt(1)):
		return l.number(start)
	}

	switch c {
	case '.':
		l.pos++
		return l.emit(TokDot, start)
	case ';':
		l.pos++
		return l.emit(TokSemicolon, start)
	case ',':
		l.pos++
		return l.emit(TokComma, start)
	case '[':
		l.pos++
		return l.emit(TokLBracket, start)
	case ']':
		l.pos++
		return l.emit(TokRBracket, start)
	case '(':
		l.pos++
		return l.emit(TokLParen, start)
	case ')':
		l.pos++
		return l.emit(TokRParen, start)
	}

	if c == ':' || isPNCharsBase(c) {
		return l.name(start)
	}

	_, size := utf8.DecodeRune(l.src[l.pos:])
	l.pos += size
	return l.emit(TokBogus, start)
}

func (l *lexer) iriRef(start int) token {
	l.pos++ // <
	for l.pos < len(l.src) {
		switch c := l.src[l.pos]; c {
		case '>':
			l.pos++
			return l.emit(TokIRIRef, start)
		case '\\':
			l.pos += 2
		case ' ', '\t', '\r', '\n', '<', '"', '{', '}', '|', '^', '`':
			return l.emit(TokBogus, start)
		default:
			l.pos++
		}
	}
	l.pos = len(l.src)
	return l.emit(TokBogus, start)
}

func (l *lexer) stringLiteral(start int, quote byte) token {
	long := l.peekAt(1) == quote && l.peekAt(2) == quote
	if long {
		l.pos += 3
		for l.pos < len(l.src) {
			if l.src[l.pos] == '\\' {
				l.pos += 2
				continue
			}
			if l.src[l.pos] == quote && l.peekAt(1) == quote && l.peekAt(2) == quote {
				l.pos += 3
				return l.emit(TokString, start)
			}
			l.pos++
		}
		l.pos = len(l.src)
		return l.emit(TokBogus, start)
	}

	l.pos++
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.pos += 2
		case quote:
			l.pos++
			return l.emit(TokString, start)
		case '\n', '\r':
			return l.emit(TokBogus, start)
		default:
			l.pos++
		}
	}
	l.pos = len(l.src)
	return l.emit(TokBogus, start)
}

func (l *lexer) atWord(start int) token {
	l.pos++ // @
	for l.pos < len(l.src) && isAlpha(l.src[l.pos]) {
		l.pos++
	}
	word := string(l.src[start+1 : l.pos])
	switch word {
	case "":
		return l.emit(TokBogus, start)
	case "prefix":
		return l.emit(TokAtPrefix, start)
	case "base":
		return l.emit(TokAtBase, start)
	}
	for l.peekAt(0) == '-' && isAlnum(l.peekAt(1)) {
		l.pos++
		for l.pos < len(l.src) && isAlnum(l.src[l.pos]) {
			l.pos++
		}
	}
	return l.emit(TokLangTag, start)
}

func (l *lexer) blankNodeLabel(start int) token {
	l.pos += 2 // _:
	for l.pos < len(l.src) && (isPNChars(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}
	for l.pos > start+2 && l.src[l.pos-1] == '.' {
		l.pos--
	}
	if l.pos == start+2 {
		return l.emit(TokBogus, start)
	}
	return l.emit(TokBlankNodeLabel, start)
}

func (l *lexer) number(start int) token {
	if c := l.src[l.pos]; c == '+' || c == '-' {
		l.pos++
	}
	kind := TokInteger
	l.digits()
	if l.peekAt(0) == '.' && isDigit(l.peekAt(1)) {
		l.pos++
		l.digits()
		kind = TokDecimal
	}
	if e := l.peekAt(0); e == 'e' || e == 'E' {
		sign := l.peekAt(1) == '+' || l.peekAt(1) == '-'
		if isDigit(l.peekAt(1)) || sign && isDigit(l.peekAt(2)) {
			l.pos++
			if sign {
				l.pos++
			}
			l.digits()
			kind = TokDouble
		}
	}
	return l.emit(kind, start)
}

func (l *lexer) digits() {
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
}

// name lexes a prefixed name (ns:local or ns:) or a bare keyword.
func (l *lexer) name(start int) token {
	for l.pos < len(l.src) && (isPNChars(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}
	if l.peekAt(0) != ':' {
		for l.pos > start && l.src[l.pos-1] == '.' {
			l.pos--
		}
		word := string(l.src[start:l.pos])
		switch {
		case word == "a":
			return l.emit(TokA, start)
		case word == "true":
			return l.emit(TokTrue, start)
		case word == "false":
			return l.emit(TokFalse, start)
		case strings.EqualFold(word, "PREFIX"):
			return l.emit(TokPrefix, start)
		case strings.EqualFold(word, "BASE"):
			return l.emit(TokBase, start)
		}
		return l.emit(TokBogus, start)
	}

	l.pos++ // :
	local := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case isPNChars(c) || c == ':' || c == '.':
			l.pos++
		case c == '%' && isHex(l.peekAt(1)) && isHex(l.peekAt(2)):
			l.pos += 3
		case c == '\\' && l.pos+1 < len(l.src):
			l.pos += 2
		default:
			goto done
		}
	}
done:
	// A local name cannot end with '.', that dot terminates the statement.
	for l.pos > local && l.src[l.pos-1] == '.' {
		l.pos--
	}
	if l.pos == local {
		return l.emit(TokPNameNS, start)
	}
	return l.emit(TokPNameLN, start)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

func isHex(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// isPNCharsBase treats every non-ASCII byte as a name character; the lexer
// works on bytes and never splits a multi-byte rune inside a name.
func isPNCharsBase(c byte) bool { return isAlpha(c) || c >= 0x80 }

func isPNChars(c byte) bool {
	return isPNCharsBase(c) || isDigit(c) || c == '_' || c == '-'
}
