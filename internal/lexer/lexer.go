// Package lexer produces a stream of tokens over raw SourcePawn/AMXXPawn
// source text. It is deliberately naive about meaning — it classifies
// characters into token kinds and nothing more; the preprocessor is the
// first consumer that attaches semantics (macro expansion, conditional
// compilation) to the stream.
package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/sourcepawn-tools/spls-core/internal/source"
)

// Kind is a tagged union covering every lexical category spec.md §3 names
// for Token: identifiers, literals, operators, keywords, preprocessor
// directives, comments, newline, EOF.
type Kind int

const (
	KindEOF Kind = iota
	KindIdent
	KindKeyword
	KindIntLiteral
	KindHexLiteral
	KindOctalLiteral
	KindBinLiteral
	KindCharLiteral
	KindFloatLiteral
	KindStringLiteral
	KindOperator
	KindPunct // ( ) { } [ ] , ; :
	KindDirective
	KindComment
	KindNewline
	KindWhitespace
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindEOF:
		return "EOF"
	case KindIdent:
		return "Ident"
	case KindKeyword:
		return "Keyword"
	case KindIntLiteral:
		return "IntLiteral"
	case KindHexLiteral:
		return "HexLiteral"
	case KindOctalLiteral:
		return "OctalLiteral"
	case KindBinLiteral:
		return "BinLiteral"
	case KindCharLiteral:
		return "CharLiteral"
	case KindFloatLiteral:
		return "FloatLiteral"
	case KindStringLiteral:
		return "StringLiteral"
	case KindOperator:
		return "Operator"
	case KindPunct:
		return "Punct"
	case KindDirective:
		return "Directive"
	case KindComment:
		return "Comment"
	case KindNewline:
		return "Newline"
	case KindWhitespace:
		return "Whitespace"
	default:
		return "Unknown"
	}
}

// Token is one lexical unit: its kind, the byte range it occupies in the
// text it was lexed from, and the literal text of that range.
type Token struct {
	Kind  Kind
	Range source.ByteRange
	Text  string
}

var keywords = map[string]bool{
	"new": true, "static": true, "public": true, "stock": true, "native": true,
	"forward": true, "const": true, "decl": true, "enum": true, "struct": true,
	"methodmap": true, "property": true, "functag": true, "funcenum": true,
	"typedef": true, "typeset": true, "if": true, "else": true, "for": true,
	"while": true, "do": true, "switch": true, "case": true, "default": true,
	"break": true, "continue": true, "return": true, "sizeof": true,
	"view_as": true, "delete": true, "this": true, "null": true, "true": true,
	"false": true, "void": true, "int": true, "float": true, "bool": true,
	"char": true, "any": true, "Function": true, "get": true, "set": true,
}

// IsKeyword reports whether ident names a reserved SourcePawn keyword.
func IsKeyword(ident string) bool { return keywords[ident] }

// Lexer tokenizes raw source text on demand; call Next until it returns a
// KindEOF token.
type Lexer struct {
	src []byte
	pos int
}

// New creates a Lexer over src.
func New(src []byte) *Lexer {
	return &Lexer{src: src}
}

// Tokenize lexes the entire input and returns every token, including a
// trailing KindEOF token.
func Tokenize(src []byte) []Token {
	lx := New(src)
	var out []Token
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Kind == KindEOF {
			return out
		}
	}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

// Next returns the next token in the stream.
func (l *Lexer) Next() Token {
	if l.pos >= len(l.src) {
		return Token{Kind: KindEOF, Range: source.ByteRange{Start: l.pos, End: l.pos}}
	}

	start := l.pos
	c := l.peek()

	switch {
	case c == '\n':
		l.pos++
		return l.tok(KindNewline, start)
	case c == ' ' || c == '\t' || c == '\r':
		for l.pos < len(l.src) && (l.peek() == ' ' || l.peek() == '\t' || l.peek() == '\r') {
			l.pos++
		}
		return l.tok(KindWhitespace, start)
	case c == '#' && (start == 0 || l.src[start-1] == '\n' || onlyWSBefore(l.src, start)):
		return l.lexDirective(start)
	case c == '/' && l.peekAt(1) == '/':
		for l.pos < len(l.src) && l.peek() != '\n' {
			l.pos++
		}
		return l.tok(KindComment, start)
	case c == '/' && l.peekAt(1) == '*':
		l.pos += 2
		for l.pos < len(l.src) {
			if l.peek() == '*' && l.peekAt(1) == '/' {
				l.pos += 2
				break
			}
			l.pos++
		}
		return l.tok(KindComment, start)
	case c == '"':
		return l.lexString(start)
	case c == '\'':
		return l.lexChar(start)
	case isDigit(c):
		return l.lexNumber(start)
	case isIdentStart(c):
		return l.lexIdent(start)
	default:
		return l.lexOperator(start)
	}
}

func onlyWSBefore(src []byte, pos int) bool {
	for i := pos - 1; i >= 0; i-- {
		switch src[i] {
		case ' ', '\t', '\r':
			continue
		case '\n':
			return true
		default:
			return false
		}
	}
	return true
}

func (l *Lexer) tok(k Kind, start int) Token {
	return Token{Kind: k, Range: source.ByteRange{Start: start, End: l.pos}, Text: string(l.src[start:l.pos])}
}

func (l *Lexer) lexDirective(start int) Token {
	l.pos++ // consume '#'
	for l.pos < len(l.src) && (l.peek() == ' ' || l.peek() == '\t') {
		l.pos++
	}
	for l.pos < len(l.src) && isIdentPart(l.peek()) {
		l.pos++
	}
	return l.tok(KindDirective, start)
}

func (l *Lexer) lexString(start int) Token {
	l.pos++ // opening quote
	for l.pos < len(l.src) {
		c := l.peek()
		if c == '\\' {
			l.pos += 2
			continue
		}
		if c == '"' {
			l.pos++
			break
		}
		if c == '\n' {
			break // unterminated; caller's diagnostic machinery handles this
		}
		l.pos++
	}
	return l.tok(KindStringLiteral, start)
}

func (l *Lexer) lexChar(start int) Token {
	l.pos++
	for l.pos < len(l.src) {
		c := l.peek()
		if c == '\\' {
			l.pos += 2
			continue
		}
		if c == '\'' {
			l.pos++
			break
		}
		if c == '\n' {
			break
		}
		l.pos++
	}
	return l.tok(KindCharLiteral, start)
}

func (l *Lexer) lexNumber(start int) Token {
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.pos += 2
		for l.pos < len(l.src) && isHexDigit(l.peek()) {
			l.pos++
		}
		return l.tok(KindHexLiteral, start)
	}
	if l.peek() == '0' && (l.peekAt(1) == 'b' || l.peekAt(1) == 'B') {
		l.pos += 2
		for l.pos < len(l.src) && (l.peek() == '0' || l.peek() == '1') {
			l.pos++
		}
		return l.tok(KindBinLiteral, start)
	}
	if l.peek() == '0' && isOctalDigit(l.peekAt(1)) {
		l.pos++
		for l.pos < len(l.src) && isOctalDigit(l.peek()) {
			l.pos++
		}
		return l.tok(KindOctalLiteral, start)
	}

	kind := KindIntLiteral
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.pos++
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		kind = KindFloatLiteral
		l.pos++
		for l.pos < len(l.src) && isDigit(l.peek()) {
			l.pos++
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		kind = KindFloatLiteral
		l.pos++
		if l.peek() == '+' || l.peek() == '-' {
			l.pos++
		}
		for l.pos < len(l.src) && isDigit(l.peek()) {
			l.pos++
		}
	}
	return l.tok(kind, start)
}

func (l *Lexer) lexIdent(start int) Token {
	for l.pos < len(l.src) && isIdentPart(l.peek()) {
		l.pos++
	}
	tok := l.tok(KindIdent, start)
	if IsKeyword(tok.Text) {
		tok.Kind = KindKeyword
	}
	return tok
}

var multiCharOps = []string{
	">>>", "<<=", ">>=", "...",
	"==", "!=", "<=", ">=", "&&", "||", "<<", ">>", "+=", "-=", "*=", "/=",
	"%=", "&=", "|=", "^=", "++", "--", "::", "->",
}

func (l *Lexer) lexOperator(start int) Token {
	rest := l.src[l.pos:]
	for _, op := range multiCharOps {
		if strings.HasPrefix(string(rest), op) {
			l.pos += len(op)
			return l.tok(KindOperator, start)
		}
	}
	c := l.peek()
	if strings.ContainsRune("(){}[],;:", rune(c)) {
		l.pos++
		return l.tok(KindPunct, start)
	}
	if strings.ContainsRune("+-*/%<>=!&|^~?.", rune(c)) {
		l.pos++
		return l.tok(KindOperator, start)
	}
	// Unknown byte (or the start of a multi-byte rune); consume one rune so
	// we always make forward progress.
	_, size := utf8.DecodeRune(l.src[l.pos:])
	if size == 0 {
		size = 1
	}
	l.pos += size
	return l.tok(KindUnknown, start)
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isOctalDigit(c byte) bool { return c >= '0' && c <= '7' }
func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
