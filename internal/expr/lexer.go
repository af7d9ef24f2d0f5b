package expr

import (
	"strconv"
	"strings"
	"unicode"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokNumber
	tokString
	tokIdent
	tokTrue
	tokFalse
	tokNull
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokEq  // ==
	tokNeq // !=
	tokLt
	tokLte
	tokGt
	tokGte
	tokAnd // &&
	tokOr  // ||
	tokNot // !
	tokLParen
	tokRParen
	tokComma
	tokDot
)

type token struct {
	typ tokenType
	pos int
	lit string  // identifier or string payload
	num float64 // number payload
}

// lexer tokenizes a single expression. The token set is fixed: anything
// outside it is a ParseError, which is what keeps the language closed.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

// lexAll tokenizes the entire input up front
func (l *lexer) lexAll() ([]token, error) {
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.typ == tokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.input) {
		return token{typ: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.input[l.pos]

	switch c {
	case '(':
		l.pos++
		return token{typ: tokLParen, pos: start}, nil
	case ')':
		l.pos++
		return token{typ: tokRParen, pos: start}, nil
	case ',':
		l.pos++
		return token{typ: tokComma, pos: start}, nil
	case '.':
		// A leading dot can also start a number like ".5"
		if l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1]) {
			return l.lexNumber()
		}
		l.pos++
		return token{typ: tokDot, pos: start}, nil
	case '+':
		l.pos++
		return token{typ: tokPlus, pos: start}, nil
	case '-':
		l.pos++
		return token{typ: tokMinus, pos: start}, nil
	case '*':
		l.pos++
		return token{typ: tokStar, pos: start}, nil
	case '/':
		l.pos++
		return token{typ: tokSlash, pos: start}, nil
	case '%':
		l.pos++
		return token{typ: tokPercent, pos: start}, nil
	case '=':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return token{typ: tokEq, pos: start}, nil
		}
		return token{}, newParseError(l.input, start, "assignment is not allowed; use ==")
	case '!':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return token{typ: tokNeq, pos: start}, nil
		}
		l.pos++
		return token{typ: tokNot, pos: start}, nil
	case '<':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return token{typ: tokLte, pos: start}, nil
		}
		l.pos++
		return token{typ: tokLt, pos: start}, nil
	case '>':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return token{typ: tokGte, pos: start}, nil
		}
		l.pos++
		return token{typ: tokGt, pos: start}, nil
	case '&':
		if l.peekAt(1) == '&' {
			l.pos += 2
			return token{typ: tokAnd, pos: start}, nil
		}
		return token{}, newParseError(l.input, start, "single '&' is not a valid operator")
	case '|':
		if l.peekAt(1) == '|' {
			l.pos += 2
			return token{typ: tokOr, pos: start}, nil
		}
		return token{}, newParseError(l.input, start, "single '|' is not a valid operator")
	case '"', '\'':
		return l.lexString(c)
	}

	if isDigit(c) {
		return l.lexNumber()
	}
	if isIdentStart(c) {
		return l.lexIdent()
	}

	return token{}, newParseError(l.input, start, "unexpected character %q", string(c))
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	seenDot := false
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if isDigit(c) {
			l.pos++
			continue
		}
		if c == '.' && !seenDot && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1]) {
			seenDot = true
			l.pos++
			continue
		}
		break
	}
	lit := l.input[start:l.pos]
	num, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return token{}, newParseError(l.input, start, "invalid number %q", lit)
	}
	return token{typ: tokNumber, pos: start, num: num}, nil
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == quote {
			l.pos++
			return token{typ: tokString, pos: start, lit: sb.String()}, nil
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{}, newParseError(l.input, start, "unterminated string literal")
}

func (l *lexer) lexIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	lit := l.input[start:l.pos]

	switch lit {
	case "true":
		return token{typ: tokTrue, pos: start}, nil
	case "false":
		return token{typ: tokFalse, pos: start}, nil
	case "null":
		return token{typ: tokNull, pos: start}, nil
	}
	return token{typ: tokIdent, pos: start, lit: lit}, nil
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func (l *lexer) peekAt(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
