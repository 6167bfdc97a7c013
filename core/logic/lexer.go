package logic

import (
	"strconv"
	"strings"

	"github.com/drmem-io/drmem/core/errors"
	"github.com/drmem-io/drmem/core/value"
)

// lexer turns an expression source string into a stream of Tokens.
type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src)}
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekAt(off int) rune {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *lexer) advance() rune {
	r := l.peek()
	l.pos++
	return r
}

func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isAlpha(r rune) bool  { return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isAlnum(r rune) bool  { return isAlpha(r) || isDigit(r) }
func isSpace(r rune) bool  { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }
func isHexish(r rune) bool { return isAlnum(r) }

// next lexes and returns the next Token, or a *errors.Error of
// KindParseError on malformed input.
func (l *lexer) next() (Token, error) {
	for isSpace(l.peek()) {
		l.advance()
	}

	start := l.pos
	r := l.peek()
	switch {
	case r == 0:
		return Token{Kind: TokEOF, Pos: start}, nil

	case r == '{':
		return l.lexVariable(start)

	case r == '#':
		return l.lexColor(start)

	case r == '"':
		return l.lexString(start)

	case isDigit(r):
		return l.lexNumber(start)

	case isAlpha(r):
		return l.lexKeyword(start)

	default:
		return l.lexOperator(start)
	}
}

func (l *lexer) lexVariable(start int) (Token, error) {
	l.advance() // consume '{'
	var b strings.Builder
	for {
		r := l.peek()
		if r == 0 {
			return Token{}, errors.ParseError("unterminated variable starting at byte %d", start)
		}
		if r == '}' {
			l.advance()
			break
		}
		b.WriteRune(r)
		l.advance()
	}
	return Token{Kind: TokVariable, Text: b.String(), Pos: start}, nil
}

func (l *lexer) lexColor(start int) (Token, error) {
	var b strings.Builder
	b.WriteRune(l.advance()) // '#'
	for isHexish(l.peek()) {
		b.WriteRune(l.advance())
	}
	c, err := value.ParseColor(b.String())
	if err != nil {
		return Token{}, errors.ParseError("invalid color literal %q at byte %d", b.String(), start)
	}
	return Token{Kind: TokColor, Text: b.String(), Pos: start, ColorVal: [4]uint8{c.R, c.G, c.B, c.A}}, nil
}

func (l *lexer) lexString(start int) (Token, error) {
	l.advance() // opening quote
	var b strings.Builder
	for {
		r := l.peek()
		if r == 0 {
			return Token{}, errors.ParseError("unterminated string starting at byte %d", start)
		}
		if r == '"' {
			l.advance()
			break
		}
		if r == '\\' {
			l.advance()
			esc := l.advance()
			switch esc {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case '"':
				b.WriteRune('"')
			case '\\':
				b.WriteRune('\\')
			default:
				b.WriteRune(esc)
			}
			continue
		}
		b.WriteRune(r)
		l.advance()
	}
	return Token{Kind: TokString, Text: b.String(), Pos: start, StringVal: b.String()}, nil
}

func (l *lexer) lexNumber(start int) (Token, error) {
	var b strings.Builder
	isFloat := false
	for isDigit(l.peek()) {
		b.WriteRune(l.advance())
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		b.WriteRune(l.advance())
		for isDigit(l.peek()) {
			b.WriteRune(l.advance())
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		save := l.pos
		var exp strings.Builder
		exp.WriteRune(l.advance())
		if l.peek() == '+' || l.peek() == '-' {
			exp.WriteRune(l.advance())
		}
		if isDigit(l.peek()) {
			for isDigit(l.peek()) {
				exp.WriteRune(l.advance())
			}
			isFloat = true
			b.WriteString(exp.String())
		} else {
			l.pos = save
		}
	}

	text := b.String()
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, errors.ParseError("invalid float literal %q at byte %d", text, start)
		}
		return Token{Kind: TokFloat, Text: text, Pos: start, FloatVal: f}, nil
	}
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return Token{}, errors.ParseError("invalid integer literal %q at byte %d", text, start)
	}
	return Token{Kind: TokInt, Text: text, Pos: start, IntVal: int32(n)}, nil
}

func (l *lexer) lexKeyword(start int) (Token, error) {
	var b strings.Builder
	for isAlnum(l.peek()) {
		b.WriteRune(l.advance())
	}
	text := b.String()
	switch strings.ToLower(text) {
	case "true":
		return Token{Kind: TokBool, Text: text, Pos: start, BoolVal: true}, nil
	case "false":
		return Token{Kind: TokBool, Text: text, Pos: start, BoolVal: false}, nil
	case "and":
		return Token{Kind: TokAnd, Text: text, Pos: start}, nil
	case "or":
		return Token{Kind: TokOr, Text: text, Pos: start}, nil
	case "not":
		return Token{Kind: TokNot, Text: text, Pos: start}, nil
	default:
		return Token{Kind: TokIdent, Text: text, Pos: start}, nil
	}
}

func (l *lexer) lexOperator(start int) (Token, error) {
	r := l.advance()
	switch r {
	case '(':
		return Token{Kind: TokLParen, Pos: start}, nil
	case ')':
		return Token{Kind: TokRParen, Pos: start}, nil
	case '+':
		return Token{Kind: TokPlus, Pos: start}, nil
	case '*':
		return Token{Kind: TokStar, Pos: start}, nil
	case '/':
		return Token{Kind: TokSlash, Pos: start}, nil
	case '%':
		return Token{Kind: TokPercent, Pos: start}, nil
	case '-':
		if l.peek() == '>' {
			l.advance()
			return Token{Kind: TokArrow, Pos: start}, nil
		}
		return Token{Kind: TokMinus, Pos: start}, nil
	case '=':
		return Token{Kind: TokEq, Pos: start}, nil
	case '<':
		switch l.peek() {
		case '>':
			l.advance()
			return Token{Kind: TokNe, Pos: start}, nil
		case '=':
			l.advance()
			return Token{Kind: TokLe, Pos: start}, nil
		default:
			return Token{Kind: TokLt, Pos: start}, nil
		}
	case '>':
		if l.peek() == '=' {
			l.advance()
			return Token{Kind: TokGe, Pos: start}, nil
		}
		return Token{Kind: TokGt, Pos: start}, nil
	default:
		return Token{}, errors.ParseError("unexpected character %q at byte %d", r, start)
	}
}
